// Package invoices renders HTML invoices for paid bookings.
package invoices

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"html/template"
	"strings"
	"time"

	"findam-backend/internal/accounts"
	"findam-backend/internal/bookings"
	apperrors "findam-backend/internal/common/errors"
	"findam-backend/internal/models"
	"findam-backend/internal/properties"

	_ "embed"
)

//go:embed invoice.html.tmpl
var invoiceTemplate string

// Number builds the invoice number: INV-<year>-<first 8 hex of booking id>.
func Number(bookingID string, issuedAt time.Time) string {
	id := strings.ReplaceAll(bookingID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("INV-%d-%s", issuedAt.Year(), strings.ToUpper(id))
}

// FormatFCFA renders an amount with thousands separators: 1 250 000 FCFA.
func FormatFCFA(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := fmt.Sprintf("%d", amount)

	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteRune(' ')
		}
		b.WriteRune(d)
	}
	out := b.String()
	if neg {
		out = "-" + out
	}
	return out + " FCFA"
}

// Invoice is the data rendered into the template.
type Invoice struct {
	Number       string
	IssuedAt     time.Time
	TenantName   string
	TenantEmail  string
	OwnerName    string
	Property     string
	Address      string
	CheckIn      time.Time
	CheckOut     time.Time
	Nights       int
	Guests       int
	Lines        []Line
	Total        string
	BookingID    string

	PaymentStatus      string
	PaymentStatusClass string
}

// paymentBadge maps a booking payment status to the badge shown on the
// invoice.
func paymentBadge(status string) (label, class string) {
	switch status {
	case models.PaymentStatusPaid:
		return "Payée", "paid"
	case models.PaymentStatusRefunded:
		return "Remboursée", "refunded"
	default:
		return "En attente", "pending"
	}
}

type Line struct {
	Label  string
	Amount string
}

// Service loads booking data and renders the invoice.
type Service struct {
	bookings   *bookings.Repository
	properties *properties.Repository
	accounts   *accounts.Repository
	tmpl       *template.Template
	now        func() time.Time
}

func NewService(b *bookings.Repository, p *properties.Repository, a *accounts.Repository) (*Service, error) {
	tmpl, err := template.New("invoice").Parse(invoiceTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse invoice template: %w", err)
	}
	return &Service{
		bookings:   b,
		properties: p,
		accounts:   a,
		tmpl:       tmpl,
		now:        time.Now,
	}, nil
}

// Build assembles the invoice for a paid booking visible to the caller.
func (s *Service) Build(ctx context.Context, bookingID, userID string) (*Invoice, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewBookingNotFoundError(bookingID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}

	property, err := s.properties.GetByID(ctx, booking.PropertyID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	if booking.TenantID != userID && property.OwnerID != userID {
		return nil, apperrors.NewForbiddenError("booking belongs to another user")
	}
	if booking.PaymentStatus != models.PaymentStatusPaid && booking.PaymentStatus != models.PaymentStatusRefunded {
		return nil, apperrors.NewValidationFailedError("invoice is only available for paid bookings")
	}

	tenant, err := s.accounts.GetUserByID(ctx, booking.TenantID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	owner, err := s.accounts.GetUserByID(ctx, property.OwnerID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}

	issuedAt := s.now().UTC()
	lines := []Line{
		{Label: fmt.Sprintf("Stay (%d nights)", booking.Nights()), Amount: FormatFCFA(booking.BasePrice)},
	}
	if booking.CleaningFee > 0 {
		lines = append(lines, Line{Label: "Cleaning fee", Amount: FormatFCFA(booking.CleaningFee)})
	}
	if booking.SecurityDeposit > 0 {
		lines = append(lines, Line{Label: "Security deposit (refundable)", Amount: FormatFCFA(booking.SecurityDeposit)})
	}
	lines = append(lines, Line{Label: "Service fee", Amount: FormatFCFA(booking.ServiceFee)})
	if booking.DiscountAmount > 0 {
		lines = append(lines, Line{Label: "Discount", Amount: FormatFCFA(-booking.DiscountAmount)})
	}

	badge, badgeClass := paymentBadge(booking.PaymentStatus)

	return &Invoice{
		Number:      Number(booking.ID, issuedAt),
		IssuedAt:    issuedAt,
		TenantName:  tenant.FullName(),
		TenantEmail: tenant.Email,
		OwnerName:   owner.FullName(),
		Property:    property.Title,
		Address:     property.Address,
		CheckIn:     booking.CheckInDate,
		CheckOut:    booking.CheckOutDate,
		Nights:      booking.Nights(),
		Guests:      booking.GuestsCount,
		Lines:       lines,
		Total:       FormatFCFA(booking.TotalPrice),
		BookingID:   booking.ID,

		PaymentStatus:      badge,
		PaymentStatusClass: badgeClass,
	}, nil
}

// Render builds and renders the invoice to HTML.
func (s *Service) Render(ctx context.Context, bookingID, userID string) ([]byte, error) {
	inv, err := s.Build(ctx, bookingID, userID)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, inv); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return buf.Bytes(), nil
}

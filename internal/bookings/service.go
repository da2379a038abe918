package bookings

import (
	"context"
	"database/sql"
	"time"

	apperrors "findam-backend/internal/common/errors"
	"findam-backend/internal/common/logger"
	"findam-backend/internal/common/metrics"
	"findam-backend/internal/models"
	"findam-backend/internal/properties"

	"github.com/google/uuid"
)

// RefundRecorder writes the ledger entries produced by cancelling a paid
// booking. Implemented by the payments service.
type RefundRecorder interface {
	RecordCancellation(ctx context.Context, b *models.Booking, r Refund) error
}

// EventNotifier fans booking lifecycle events out to the parties involved.
// Implemented by the communications service.
type EventNotifier interface {
	BookingEvent(ctx context.Context, b *models.Booking, event string)
}

// Service implements booking creation, the status machine and cancellation.
type Service struct {
	repo           *Repository
	properties     *properties.Repository
	refunds        RefundRecorder
	notifier       EventNotifier
	serviceFeeRate float64
	logger         logger.Logger
	now            func() time.Time
}

func NewService(repo *Repository, props *properties.Repository, serviceFeeRate float64, log logger.Logger) *Service {
	return &Service{
		repo:           repo,
		properties:     props,
		serviceFeeRate: serviceFeeRate,
		logger:         log,
		now:            time.Now,
	}
}

// SetRefundRecorder and SetEventNotifier break the construction cycle with the
// packages that depend on bookings.
func (s *Service) SetRefundRecorder(r RefundRecorder) { s.refunds = r }
func (s *Service) SetEventNotifier(n EventNotifier)   { s.notifier = n }

type BookingInput struct {
	PropertyID      string    `json:"property_id" binding:"required"`
	CheckInDate     time.Time `json:"check_in_date" binding:"required" time_format:"2006-01-02"`
	CheckOutDate    time.Time `json:"check_out_date" binding:"required" time_format:"2006-01-02"`
	GuestsCount     int       `json:"guests_count" binding:"required,min=1"`
	PromoCode       string    `json:"promo_code"`
	SpecialRequests string    `json:"special_requests"`
}

// validate checks dates, capacity and availability, and resolves the promo
// code. Returns the property and promo for pricing.
func (s *Service) validate(ctx context.Context, tenantID string, in BookingInput) (*models.Property, *models.PromoCode, error) {
	if !in.CheckOutDate.After(in.CheckInDate) {
		return nil, nil, apperrors.NewInvalidDateRangeError("check_out_date must be after check_in_date")
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	if in.CheckInDate.Before(today) {
		return nil, nil, apperrors.NewInvalidDateRangeError("check_in_date is in the past")
	}

	property, err := s.properties.GetByID(ctx, in.PropertyID)
	if err == sql.ErrNoRows {
		return nil, nil, apperrors.NewPropertyNotFoundError(in.PropertyID)
	}
	if err != nil {
		return nil, nil, apperrors.NewQueryExecutionFailedError(err)
	}
	if !property.IsPublished {
		return nil, nil, apperrors.NewPropertyNotFoundError(in.PropertyID)
	}
	if in.GuestsCount > property.Capacity {
		return nil, nil, apperrors.NewCapacityExceededError(property.Capacity, in.GuestsCount)
	}

	overlap, err := s.properties.HasOverlap(ctx, in.PropertyID, in.CheckInDate, in.CheckOutDate)
	if err != nil {
		return nil, nil, apperrors.NewQueryExecutionFailedError(err)
	}
	if overlap {
		return nil, nil, apperrors.NewDatesUnavailableError("requested dates overlap an existing booking or block")
	}

	var promo *models.PromoCode
	if in.PromoCode != "" {
		promo, err = s.repo.GetPromoByCode(ctx, in.PromoCode)
		if err == sql.ErrNoRows {
			return nil, nil, apperrors.NewPromoInvalidError(in.PromoCode)
		}
		if err != nil {
			return nil, nil, apperrors.NewQueryExecutionFailedError(err)
		}
		// Codes are issued to one tenant for one property.
		if promo.PropertyID != in.PropertyID || promo.TenantID != tenantID {
			return nil, nil, apperrors.NewPromoInvalidError(in.PromoCode)
		}
		if !promo.IsActive {
			return nil, nil, apperrors.NewPromoInvalidError(in.PromoCode)
		}
		if !promo.IsValid(s.now().UTC()) {
			return nil, nil, apperrors.NewPromoExpiredError(in.PromoCode)
		}
	}

	return property, promo, nil
}

func (s *Service) price(ctx context.Context, property *models.Property, promo *models.PromoCode, nights int) (Quote, error) {
	discounts, err := s.properties.ListDiscounts(ctx, property.ID)
	if err != nil {
		return Quote{}, apperrors.NewQueryExecutionFailedError(err)
	}
	return ComputeQuote(property, discounts, promo, s.serviceFeeRate, nights), nil
}

// GetQuote prices a prospective stay without writing anything.
func (s *Service) GetQuote(ctx context.Context, tenantID string, in BookingInput) (*Quote, error) {
	property, promo, err := s.validate(ctx, tenantID, in)
	if err != nil {
		return nil, err
	}
	nights := int(in.CheckOutDate.Sub(in.CheckInDate).Hours() / 24)
	quote, err := s.price(ctx, property, promo, nights)
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// Create validates and prices the stay, stores the pending booking and burns
// the promo code.
func (s *Service) Create(ctx context.Context, tenantID string, in BookingInput) (*models.Booking, error) {
	property, promo, err := s.validate(ctx, tenantID, in)
	if err != nil {
		return nil, err
	}
	nights := int(in.CheckOutDate.Sub(in.CheckInDate).Hours() / 24)
	quote, err := s.price(ctx, property, promo, nights)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	b := &models.Booking{
		ID:              uuid.NewString(),
		PropertyID:      property.ID,
		TenantID:        tenantID,
		CheckInDate:     in.CheckInDate,
		CheckOutDate:    in.CheckOutDate,
		GuestsCount:     in.GuestsCount,
		BasePrice:       quote.BasePrice,
		CleaningFee:     quote.CleaningFee,
		SecurityDeposit: quote.SecurityDeposit,
		PromoCodeID:     quote.PromoCodeID,
		DiscountAmount:  quote.DiscountAmount,
		ServiceFee:      quote.ServiceFee,
		TotalPrice:      quote.TotalPrice,
		Status:          models.BookingPending,
		PaymentStatus:   models.PaymentStatusPending,
		SpecialRequests: in.SpecialRequests,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}

	if promo != nil {
		if err := s.repo.SetPromoActive(ctx, promo.ID, false); err != nil {
			s.logger.WithError(err).Warn("promo deactivation failed", map[string]interface{}{"promo_id": promo.ID})
		}
	}

	metrics.BookingsCreated.Inc()
	s.logger.Info("booking created", map[string]interface{}{
		"booking_id":  b.ID,
		"property_id": b.PropertyID,
		"tenant_id":   tenantID,
		"total_price": b.TotalPrice,
	})
	s.notify(ctx, b, "booking_request")
	return b, nil
}

// Get loads a booking visible to its tenant or the property owner.
func (s *Service) Get(ctx context.Context, bookingID, userID string) (*models.Booking, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewBookingNotFoundError(bookingID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	if b.TenantID != userID {
		property, err := s.properties.GetByID(ctx, b.PropertyID)
		if err != nil || property.OwnerID != userID {
			return nil, apperrors.NewForbiddenError("booking belongs to another user")
		}
	}
	return b, nil
}

func (s *Service) ListForTenant(ctx context.Context, tenantID string) ([]*models.Booking, error) {
	out, err := s.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return out, nil
}

func (s *Service) ListForOwner(ctx context.Context, ownerID string) ([]*models.Booking, error) {
	out, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return out, nil
}

// Confirm moves a pending booking to confirmed and blocks the dates. Only the
// property owner can confirm.
func (s *Service) Confirm(ctx context.Context, bookingID, ownerID string) (*models.Booking, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewBookingNotFoundError(bookingID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}

	property, err := s.properties.GetByID(ctx, b.PropertyID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	if property.OwnerID != ownerID {
		return nil, apperrors.NewForbiddenError("only the property owner can confirm")
	}
	if !b.CanTransitionTo(models.BookingConfirmed) {
		return nil, apperrors.NewInvalidStatusChangeError(b.Status, models.BookingConfirmed)
	}

	b.Status = models.BookingConfirmed
	b.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateStatus(ctx, b); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}

	block := &models.Availability{
		PropertyID: b.PropertyID,
		StartDate:  b.CheckInDate,
		EndDate:    b.CheckOutDate,
		BlockType:  models.BlockTypeBooking,
		BookingID:  b.ID,
		CreatedAt:  b.UpdatedAt,
	}
	if err := s.properties.CreateBlock(ctx, block); err != nil {
		s.logger.WithError(err).Error("availability block creation failed", map[string]interface{}{"booking_id": b.ID})
	}

	s.logger.Info("booking confirmed", map[string]interface{}{"booking_id": b.ID})
	s.notify(ctx, b, "booking_confirmed")
	return b, nil
}

// ConfirmOnPayment confirms a pending booking after a successful payment,
// bypassing the owner check. Used by the payment webhook flow.
func (s *Service) ConfirmOnPayment(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewBookingNotFoundError(bookingID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}

	b.PaymentStatus = models.PaymentStatusPaid
	if b.CanTransitionTo(models.BookingConfirmed) {
		b.Status = models.BookingConfirmed
	}
	b.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateStatus(ctx, b); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}

	if b.Status == models.BookingConfirmed {
		block := &models.Availability{
			PropertyID: b.PropertyID,
			StartDate:  b.CheckInDate,
			EndDate:    b.CheckOutDate,
			BlockType:  models.BlockTypeBooking,
			BookingID:  b.ID,
			CreatedAt:  b.UpdatedAt,
		}
		if err := s.properties.CreateBlock(ctx, block); err != nil {
			s.logger.WithError(err).Error("availability block creation failed", map[string]interface{}{"booking_id": b.ID})
		}
		s.notify(ctx, b, "booking_confirmed")
	}
	return b, nil
}

type CancelOutput struct {
	Booking *models.Booking `json:"booking"`
	Refund  *Refund         `json:"refund,omitempty"`
}

// Cancel cancels a pending or confirmed booking. The tenant or the owner can
// cancel; refunds apply only when the booking was paid.
func (s *Service) Cancel(ctx context.Context, bookingID, userID string) (*CancelOutput, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewBookingNotFoundError(bookingID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}

	property, err := s.properties.GetByID(ctx, b.PropertyID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	if b.TenantID != userID && property.OwnerID != userID {
		return nil, apperrors.NewForbiddenError("booking belongs to another user")
	}
	if !b.CanTransitionTo(models.BookingCancelled) {
		return nil, apperrors.NewBookingNotCancellableError(b.Status)
	}

	now := s.now().UTC()
	wasPaid := b.PaymentStatus == models.PaymentStatusPaid

	b.Status = models.BookingCancelled
	b.CancelledAt = &now
	b.CancelledBy = userID
	b.UpdatedAt = now

	var refund *Refund
	if wasPaid {
		r := ComputeRefund(b, property.CancellationPolicy, now)
		refund = &r
		b.PaymentStatus = models.PaymentStatusRefunded
	}

	if err := s.repo.UpdateStatus(ctx, b); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}

	if err := s.properties.DeleteBlockByBooking(ctx, b.ID); err != nil {
		s.logger.WithError(err).Warn("availability block removal failed", map[string]interface{}{"booking_id": b.ID})
	}
	if b.PromoCodeID != nil {
		if err := s.repo.SetPromoActive(ctx, *b.PromoCodeID, true); err != nil {
			s.logger.WithError(err).Warn("promo reactivation failed", map[string]interface{}{"promo_id": *b.PromoCodeID})
		}
	}

	if refund != nil && s.refunds != nil {
		if err := s.refunds.RecordCancellation(ctx, b, *refund); err != nil {
			s.logger.WithError(err).Error("refund ledger entries failed", map[string]interface{}{"booking_id": b.ID})
		}
	}

	s.logger.Info("booking cancelled", map[string]interface{}{
		"booking_id":   b.ID,
		"cancelled_by": userID,
		"refunded":     refund != nil,
	})
	s.notify(ctx, b, "booking_cancelled")
	return &CancelOutput{Booking: b, Refund: refund}, nil
}

// CompletePastStays is run periodically to close out finished stays.
func (s *Service) CompletePastStays(ctx context.Context) (int64, error) {
	n, err := s.repo.CompletePastStays(ctx, s.now().UTC())
	if err != nil {
		return 0, apperrors.NewQueryExecutionFailedError(err)
	}
	if n > 0 {
		s.logger.Info("stays completed", map[string]interface{}{"count": n})
	}
	return n, nil
}

type PromoInput struct {
	PropertyID         string    `json:"property_id" binding:"required"`
	TenantID           string    `json:"tenant_id" binding:"required"`
	DiscountPercentage float64   `json:"discount_percentage" binding:"required,gt=0,lte=100"`
	ExpiryDate         time.Time `json:"expiry_date" binding:"required" time_format:"2006-01-02"`
	Code               string    `json:"code"`
}

// CreatePromo lets an owner issue a single-use code for one tenant on one of
// their properties.
func (s *Service) CreatePromo(ctx context.Context, ownerID string, in PromoInput) (*models.PromoCode, error) {
	property, err := s.properties.GetByID(ctx, in.PropertyID)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewPropertyNotFoundError(in.PropertyID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	if property.OwnerID != ownerID {
		return nil, apperrors.NewForbiddenError("property belongs to another owner")
	}
	if !in.ExpiryDate.After(s.now().UTC()) {
		return nil, apperrors.NewValidationFailedError("expiry_date must be in the future")
	}

	code := in.Code
	if code == "" {
		code = "FINDAM-" + uuid.NewString()[:8]
	}

	promo := &models.PromoCode{
		Code:               code,
		PropertyID:         in.PropertyID,
		TenantID:           in.TenantID,
		DiscountPercentage: in.DiscountPercentage,
		IsActive:           true,
		ExpiryDate:         in.ExpiryDate,
		CreatedBy:          ownerID,
		CreatedAt:          s.now().UTC(),
	}
	if err := s.repo.CreatePromo(ctx, promo); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return promo, nil
}

func (s *Service) notify(ctx context.Context, b *models.Booking, event string) {
	if s.notifier != nil {
		s.notifier.BookingEvent(ctx, b, event)
	}
}

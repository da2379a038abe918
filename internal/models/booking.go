package models

import "time"

// Booking statuses.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"
)

// Booking payment statuses.
const (
	PaymentStatusPending    = "pending"
	PaymentStatusAuthorized = "authorized"
	PaymentStatusPaid       = "paid"
	PaymentStatusRefunded   = "refunded"
	PaymentStatusFailed     = "failed"
)

type Booking struct {
	ID         string `json:"id"`
	PropertyID string `json:"property_id"`
	TenantID   string `json:"tenant_id"`

	CheckInDate  time.Time `json:"check_in_date"`
	CheckOutDate time.Time `json:"check_out_date"`
	GuestsCount  int       `json:"guests_count"`

	// Amounts are whole FCFA.
	BasePrice       int64  `json:"base_price"`
	CleaningFee     int64  `json:"cleaning_fee"`
	SecurityDeposit int64  `json:"security_deposit"`
	PromoCodeID     *int64 `json:"promo_code_id,omitempty"`
	DiscountAmount  int64  `json:"discount_amount"`
	ServiceFee      int64  `json:"service_fee"`
	TotalPrice      int64  `json:"total_price"`

	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`

	SpecialRequests string `json:"special_requests,omitempty"`
	Notes           string `json:"notes,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy string     `json:"cancelled_by,omitempty"`
}

// Nights returns the number of nights between check-in and check-out.
func (b *Booking) Nights() int {
	return int(b.CheckOutDate.Sub(b.CheckInDate).Hours() / 24)
}

// CanTransitionTo validates the booking status machine.
func (b *Booking) CanTransitionTo(next string) bool {
	switch b.Status {
	case BookingPending:
		return next == BookingConfirmed || next == BookingCancelled
	case BookingConfirmed:
		return next == BookingCompleted || next == BookingCancelled
	default:
		return false
	}
}

type PromoCode struct {
	ID                 int64     `json:"id"`
	Code               string    `json:"code"`
	PropertyID         string    `json:"property_id"`
	TenantID           string    `json:"tenant_id"`
	DiscountPercentage float64   `json:"discount_percentage"`
	IsActive           bool      `json:"is_active"`
	ExpiryDate         time.Time `json:"expiry_date"`
	CreatedBy          string    `json:"created_by,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// IsValid reports whether the code can still be applied at t.
func (p *PromoCode) IsValid(t time.Time) bool {
	return p.IsActive && t.Before(p.ExpiryDate)
}

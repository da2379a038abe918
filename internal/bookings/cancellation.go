package bookings

import (
	"time"

	"findam-backend/internal/models"
)

// Refund is the outcome of cancelling a paid booking. The security deposit is
// always returned in full; the policy fraction applies to the discounted base
// price plus the cleaning fee. The service fee is never refunded. The owner
// is compensated with the non-refunded share of the base price.
type Refund struct {
	Fraction          float64 `json:"fraction"`
	RefundAmount      int64   `json:"refund_amount"`
	OwnerCompensation int64   `json:"owner_compensation"`
}

// refundFraction returns the refundable share of the stay cost under the
// property's cancellation policy, given full days before check-in.
func refundFraction(policy string, daysBefore int) float64 {
	switch policy {
	case models.PolicyFlexible:
		if daysBefore >= 1 {
			return 1.0
		}
		return 0.5
	case models.PolicyStrict:
		if daysBefore >= 14 {
			return 1.0
		}
		if daysBefore >= 7 {
			return 0.5
		}
		return 0.0
	default: // moderate
		if daysBefore >= 5 {
			return 1.0
		}
		return 0.5
	}
}

// ComputeRefund applies the cancellation policy at cancellation time.
func ComputeRefund(b *models.Booking, policy string, at time.Time) Refund {
	daysBefore := int(b.CheckInDate.Sub(at).Hours() / 24)
	if daysBefore < 0 {
		daysBefore = 0
	}
	fraction := refundFraction(policy, daysBefore)

	refundable := b.BasePrice + b.CleaningFee - b.DiscountAmount
	if refundable < 0 {
		refundable = 0
	}

	return Refund{
		Fraction:          fraction,
		RefundAmount:      b.SecurityDeposit + roundFCFA(float64(refundable)*fraction),
		OwnerCompensation: roundFCFA(float64(b.BasePrice) * (1 - fraction)),
	}
}

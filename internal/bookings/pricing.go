package bookings

import (
	"math"

	"findam-backend/internal/models"
)

// Quote is a fully computed booking price breakdown, amounts in whole FCFA.
type Quote struct {
	Nights          int    `json:"nights"`
	BasePrice       int64  `json:"base_price"`
	CleaningFee     int64  `json:"cleaning_fee"`
	SecurityDeposit int64  `json:"security_deposit"`
	DiscountAmount  int64  `json:"discount_amount"`
	ServiceFee      int64  `json:"service_fee"`
	TotalPrice      int64  `json:"total_price"`
	PromoCodeID     *int64 `json:"promo_code_id,omitempty"`
}

// ComputeQuote prices a stay. The base uses the property's tiered rates. A
// single percentage discounts the base: the promo code when one is supplied,
// otherwise the best applicable long-stay discount. The service fee applies
// to the discounted base only, never to the cleaning fee or deposit.
func ComputeQuote(p *models.Property, discounts []*models.LongStayDiscount, promo *models.PromoCode, serviceFeeRate float64, nights int) Quote {
	base := p.PriceForNights(nights)

	var discountPct float64
	switch {
	case promo != nil:
		discountPct = promo.DiscountPercentage
	case p.AllowDiscount:
		for _, d := range discounts {
			if nights >= d.MinDays && d.DiscountPercentage > discountPct {
				discountPct = d.DiscountPercentage
			}
		}
	}
	if discountPct > 100 {
		discountPct = 100
	}

	discount := roundFCFA(float64(base) * discountPct / 100)
	serviceFee := roundFCFA(float64(base-discount) * serviceFeeRate)

	q := Quote{
		Nights:          nights,
		BasePrice:       base,
		CleaningFee:     p.CleaningFee,
		SecurityDeposit: p.SecurityDeposit,
		DiscountAmount:  discount,
		ServiceFee:      serviceFee,
		TotalPrice:      base + p.CleaningFee + p.SecurityDeposit + serviceFee - discount,
	}
	if promo != nil {
		q.PromoCodeID = &promo.ID
	}
	return q
}

func roundFCFA(v float64) int64 {
	return int64(math.Round(v))
}

package bookings

import (
	"testing"
	"time"

	"findam-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func pricedProperty() *models.Property {
	return &models.Property{
		ID:              "prop-1",
		PricePerNight:   10000,
		PricePerWeek:    60000,
		PricePerMonth:   200000,
		CleaningFee:     5000,
		SecurityDeposit: 20000,
		AllowDiscount:   true,
	}
}

func TestComputeQuote(t *testing.T) {
	const feeRate = 0.07

	t.Run("plain nightly stay", func(t *testing.T) {
		q := ComputeQuote(pricedProperty(), nil, nil, feeRate, 3)

		assert.Equal(t, int64(30000), q.BasePrice)
		assert.Equal(t, int64(0), q.DiscountAmount)
		assert.Equal(t, int64(2100), q.ServiceFee) // 7% of 30000
		assert.Equal(t, int64(30000+5000+20000+2100), q.TotalPrice)
	})

	t.Run("promo discount reduces the fee base", func(t *testing.T) {
		promo := &models.PromoCode{
			ID:                 42,
			DiscountPercentage: 10,
			IsActive:           true,
			ExpiryDate:         time.Now().Add(time.Hour),
		}
		q := ComputeQuote(pricedProperty(), nil, promo, feeRate, 3)

		assert.Equal(t, int64(3000), q.DiscountAmount)
		assert.Equal(t, int64(1890), q.ServiceFee) // 7% of 27000
		assert.Equal(t, int64(30000+5000+20000+1890-3000), q.TotalPrice)
		assert.Equal(t, int64(42), *q.PromoCodeID)
	})

	t.Run("best long-stay discount applies", func(t *testing.T) {
		discounts := []*models.LongStayDiscount{
			{MinDays: 7, DiscountPercentage: 5},
			{MinDays: 14, DiscountPercentage: 12},
		}
		q := ComputeQuote(pricedProperty(), discounts, nil, feeRate, 14)

		// 14 nights = 2 weeks at the weekly rate.
		assert.Equal(t, int64(120000), q.BasePrice)
		assert.Equal(t, int64(14400), q.DiscountAmount) // 12%
	})

	t.Run("long-stay discount ignored when disallowed", func(t *testing.T) {
		p := pricedProperty()
		p.AllowDiscount = false
		discounts := []*models.LongStayDiscount{{MinDays: 7, DiscountPercentage: 5}}

		q := ComputeQuote(p, discounts, nil, feeRate, 10)
		assert.Equal(t, int64(0), q.DiscountAmount)
	})

	t.Run("promo replaces the long-stay discount", func(t *testing.T) {
		promo := &models.PromoCode{ID: 7, DiscountPercentage: 10}
		discounts := []*models.LongStayDiscount{{MinDays: 7, DiscountPercentage: 25}}

		// Only the promo percentage applies, even when a larger
		// long-stay tier matches the stay.
		q := ComputeQuote(pricedProperty(), discounts, promo, feeRate, 14)
		assert.Equal(t, int64(120000), q.BasePrice)
		assert.Equal(t, int64(12000), q.DiscountAmount)
	})

	t.Run("discount caps at 100 percent", func(t *testing.T) {
		promo := &models.PromoCode{ID: 1, DiscountPercentage: 150}

		q := ComputeQuote(pricedProperty(), nil, promo, feeRate, 2)
		assert.Equal(t, q.BasePrice, q.DiscountAmount)
		assert.Equal(t, int64(0), q.ServiceFee)
	})
}

func TestComputeRefund(t *testing.T) {
	booking := &models.Booking{
		BasePrice:       100000,
		CleaningFee:     5000,
		SecurityDeposit: 20000,
		ServiceFee:      7000,
		TotalPrice:      132000,
		CheckInDate:     time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	}

	// The refundable pool is base + cleaning fee (105000); the service fee
	// stays with the platform and the deposit always comes back in full.
	tests := []struct {
		name             string
		policy           string
		daysBefore       int
		wantFraction     float64
		wantRefund       int64
		wantCompensation int64
	}{
		{"flexible full refund", models.PolicyFlexible, 3, 1.0, 125000, 0},
		{"flexible same-day keeps half", models.PolicyFlexible, 0, 0.5, 20000 + 52500, 50000},
		{"moderate full refund at 5 days", models.PolicyModerate, 5, 1.0, 125000, 0},
		{"moderate late cancel keeps half", models.PolicyModerate, 2, 0.5, 20000 + 52500, 50000},
		{"strict full refund at 14 days", models.PolicyStrict, 20, 1.0, 125000, 0},
		{"strict half refund in window", models.PolicyStrict, 10, 0.5, 20000 + 52500, 50000},
		{"strict late cancel refunds deposit only", models.PolicyStrict, 2, 0.0, 20000, 100000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := booking.CheckInDate.AddDate(0, 0, -tt.daysBefore)
			r := ComputeRefund(booking, tt.policy, at)
			assert.Equal(t, tt.wantFraction, r.Fraction)
			assert.Equal(t, tt.wantRefund, r.RefundAmount)
			assert.Equal(t, tt.wantCompensation, r.OwnerCompensation)
		})
	}

	t.Run("discount shrinks the refundable pool", func(t *testing.T) {
		discounted := &models.Booking{
			BasePrice:       100000,
			CleaningFee:     5000,
			SecurityDeposit: 20000,
			DiscountAmount:  10000,
			ServiceFee:      6300,
			TotalPrice:      121300,
			CheckInDate:     time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		}
		at := discounted.CheckInDate // same-day cancel, half back
		r := ComputeRefund(discounted, models.PolicyFlexible, at)
		assert.Equal(t, int64(20000+47500), r.RefundAmount) // half of 95000 + deposit
	})
}

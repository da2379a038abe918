package invoices

import (
	"context"
	"testing"
	"time"

	"findam-backend/internal/accounts"
	"findam-backend/internal/bookings"
	apperrors "findam-backend/internal/common/errors"
	"findam-backend/internal/models"
	"findam-backend/internal/properties"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumber(t *testing.T) {
	issued := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "INV-2026-D9B2A7C1", Number("d9b2a7c1-e842-4f5a-9c3d-111122223333", issued))
	assert.Equal(t, "INV-2026-AB12", Number("ab12", issued))
}

func TestFormatFCFA(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 FCFA"},
		{950, "950 FCFA"},
		{15000, "15 000 FCFA"},
		{1250000, "1 250 000 FCFA"},
		{-5000, "-5 000 FCFA"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFCFA(tt.in))
	}
}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc, err := NewService(bookings.NewRepository(db), properties.NewRepository(db), accounts.NewRepository(db))
	require.NoError(t, err)
	return svc, mock
}

func expectInvoiceData(mock sqlmock.Sqlmock, paymentStatus string) {
	now := time.Now()
	checkIn := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	checkOut := time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM findam_bookings WHERE id`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "property_id", "tenant_id", "check_in_date", "check_out_date", "guests_count",
			"base_price", "cleaning_fee", "security_deposit", "promo_code_id", "discount_amount", "service_fee", "total_price",
			"status", "payment_status", "special_requests", "notes", "created_at", "updated_at", "cancelled_at", "cancelled_by",
		}).AddRow(
			"d9b2a7c1-e842-4f5a-9c3d-111122223333", "prop-1", "tenant-1", checkIn, checkOut, 2,
			45000, 5000, 20000, nil, 0, 3150, 73150,
			models.BookingConfirmed, paymentStatus, "", "", now, now, nil, ""))

	mock.ExpectQuery(`SELECT .+ FROM findam_properties WHERE id`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "owner_id", "title", "description", "property_type", "capacity", "bedrooms", "bathrooms",
			"city_id", "neighborhood_id", "address", "latitude", "longitude",
			"price_per_night", "price_per_week", "price_per_month", "cleaning_fee", "security_deposit",
			"allow_discount", "cancellation_policy", "is_published", "is_verified", "avg_rating", "rating_count",
			"created_at", "updated_at",
		}).AddRow(
			"prop-1", "owner-1", "Studio meublé Bastos", "", models.PropertyTypeStudio, 2, 1, 1,
			1, 0, "Rue 1234, Bastos, Yaoundé", 0.0, 0.0,
			15000, 0, 0, 5000, 20000,
			false, models.PolicyModerate, true, true, 0.0, 0, now, now))

	userCols := []string{
		"id", "email", "phone_number", "password_hash", "first_name", "last_name",
		"user_type", "is_active", "is_verified", "date_joined", "last_login",
	}
	mock.ExpectQuery(`SELECT id, email, phone_number`).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(
			"tenant-1", "marie@example.com", "677112233", "h", "Marie", "Ngono",
			models.UserTypeTenant, true, true, now, nil))
	mock.ExpectQuery(`SELECT id, email, phone_number`).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(
			"owner-1", "paul@example.com", "699887766", "h", "Paul", "Atangana",
			models.UserTypeOwner, true, true, now, nil))
}

func TestRender(t *testing.T) {
	t.Run("renders a paid booking", func(t *testing.T) {
		svc, mock := newTestService(t)
		expectInvoiceData(mock, models.PaymentStatusPaid)

		html, err := svc.Render(context.Background(), "d9b2a7c1-e842-4f5a-9c3d-111122223333", "tenant-1")
		require.NoError(t, err)

		out := string(html)
		assert.Contains(t, out, "INV-")
		assert.Contains(t, out, "D9B2A7C1")
		assert.Contains(t, out, "Marie Ngono")
		assert.Contains(t, out, "Studio meublé Bastos")
		assert.Contains(t, out, "73 150 FCFA")
		assert.Contains(t, out, "45 000 FCFA")
		assert.Contains(t, out, `badge paid`)
		assert.Contains(t, out, "Payée")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("refunded booking shows the refunded badge", func(t *testing.T) {
		svc, mock := newTestService(t)
		expectInvoiceData(mock, models.PaymentStatusRefunded)

		html, err := svc.Render(context.Background(), "d9b2a7c1-e842-4f5a-9c3d-111122223333", "tenant-1")
		require.NoError(t, err)

		out := string(html)
		assert.Contains(t, out, `badge refunded`)
		assert.Contains(t, out, "Remboursée")
	})

	t.Run("unpaid booking has no invoice", func(t *testing.T) {
		svc, mock := newTestService(t)
		expectInvoiceData(mock, models.PaymentStatusPending)

		_, err := svc.Render(context.Background(), "d9b2a7c1-e842-4f5a-9c3d-111122223333", "tenant-1")
		se := apperrors.AsStandard(err)
		require.NotNil(t, se)
		assert.Equal(t, apperrors.ErrCodeValidationFailed, se.Code)
	})

	t.Run("stranger is refused", func(t *testing.T) {
		svc, mock := newTestService(t)
		expectInvoiceData(mock, models.PaymentStatusPaid)

		_, err := svc.Render(context.Background(), "d9b2a7c1-e842-4f5a-9c3d-111122223333", "intruder")
		se := apperrors.AsStandard(err)
		require.NotNil(t, se)
		assert.Equal(t, apperrors.ErrCodeForbidden, se.Code)
	})
}

package reviews

import (
	"context"
	"testing"
	"time"

	"findam-backend/internal/bookings"
	apperrors "findam-backend/internal/common/errors"
	"findam-backend/internal/common/logger"
	"findam-backend/internal/models"
	"findam-backend/internal/properties"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock, redismock.ClientMock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	rdb, redisMock := redismock.NewClientMock()
	log := logger.NewTestLogger(t)
	propSvc := properties.NewService(properties.NewRepository(db), rdb, nil, log)

	svc := NewService(NewRepository(db), bookings.NewRepository(db), propSvc, log)
	return svc, mock, redisMock
}

func completedBookingRows(tenantID, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "property_id", "tenant_id", "check_in_date", "check_out_date", "guests_count",
		"base_price", "cleaning_fee", "security_deposit", "promo_code_id", "discount_amount", "service_fee", "total_price",
		"status", "payment_status", "special_requests", "notes", "created_at", "updated_at", "cancelled_at", "cancelled_by",
	}).AddRow(
		"book-1", "prop-1", tenantID, now.AddDate(0, 0, -10), now.AddDate(0, 0, -7), 2,
		45000, 5000, 20000, nil, 0, 3150, 73150,
		status, models.PaymentStatusPaid, "", "", now, now, nil, "")
}

func validInput() ReviewInput {
	return ReviewInput{
		BookingID:           "book-1",
		CleanlinessRating:   5,
		LocationRating:      4,
		ValueRating:         4,
		CommunicationRating: 5,
		Title:               "Séjour impeccable",
		Comment:             "Très bon séjour, propriétaire réactif.",
	}
}

type fakeReviewNotifier struct {
	received []*models.Review
}

func (f *fakeReviewNotifier) ReviewReceived(_ context.Context, r *models.Review) {
	f.received = append(f.received, r)
}

func TestCreateReview(t *testing.T) {
	t.Run("posts review, refreshes rating and notifies owner", func(t *testing.T) {
		svc, mock, redisMock := newTestService(t)
		notifier := &fakeReviewNotifier{}
		svc.SetNotifier(notifier)

		mock.ExpectQuery(`SELECT .+ FROM findam_bookings WHERE id`).
			WillReturnRows(completedBookingRows("tenant-1", models.BookingCompleted))
		mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM findam_reviews`).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec(`INSERT INTO findam_reviews`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT AVG\(overall_rating\), COUNT\(\*\)`).
			WillReturnRows(sqlmock.NewRows([]string{"avg", "count"}).AddRow(4.5, 1))
		mock.ExpectExec(`UPDATE findam_properties SET avg_rating`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		redisMock.ExpectDel("property:prop-1").SetVal(1)

		rev, err := svc.Create(context.Background(), "tenant-1", validInput())
		require.NoError(t, err)
		assert.Equal(t, 4.5, rev.OverallRating) // (5+4+4+5)/4
		assert.Equal(t, "Séjour impeccable", rev.Title)
		assert.True(t, rev.IsPublished)
		// No stay date given, so the booking's check-out date is used.
		require.NotNil(t, rev.StayDate)
		require.Len(t, notifier.received, 1)
		assert.Equal(t, rev.ID, notifier.received[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("explicit stay date is kept", func(t *testing.T) {
		svc, mock, redisMock := newTestService(t)

		mock.ExpectQuery(`SELECT .+ FROM findam_bookings WHERE id`).
			WillReturnRows(completedBookingRows("tenant-1", models.BookingCompleted))
		mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM findam_reviews`).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec(`INSERT INTO findam_reviews`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT AVG\(overall_rating\), COUNT\(\*\)`).
			WillReturnRows(sqlmock.NewRows([]string{"avg", "count"}).AddRow(4.5, 1))
		mock.ExpectExec(`UPDATE findam_properties SET avg_rating`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		redisMock.ExpectDel("property:prop-1").SetVal(1)

		in := validInput()
		stay := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
		in.StayDate = &stay

		rev, err := svc.Create(context.Background(), "tenant-1", in)
		require.NoError(t, err)
		require.NotNil(t, rev.StayDate)
		assert.True(t, rev.StayDate.Equal(stay))
	})

	t.Run("only the tenant can review", func(t *testing.T) {
		svc, mock, _ := newTestService(t)

		mock.ExpectQuery(`SELECT .+ FROM findam_bookings WHERE id`).
			WillReturnRows(completedBookingRows("someone-else", models.BookingCompleted))

		_, err := svc.Create(context.Background(), "tenant-1", validInput())
		se := apperrors.AsStandard(err)
		require.NotNil(t, se)
		assert.Equal(t, apperrors.ErrCodeForbidden, se.Code)
	})

	t.Run("stay must be completed", func(t *testing.T) {
		svc, mock, _ := newTestService(t)

		mock.ExpectQuery(`SELECT .+ FROM findam_bookings WHERE id`).
			WillReturnRows(completedBookingRows("tenant-1", models.BookingConfirmed))

		_, err := svc.Create(context.Background(), "tenant-1", validInput())
		se := apperrors.AsStandard(err)
		require.NotNil(t, se)
		assert.Equal(t, apperrors.ErrCodeValidationFailed, se.Code)
	})

	t.Run("one review per booking", func(t *testing.T) {
		svc, mock, _ := newTestService(t)

		mock.ExpectQuery(`SELECT .+ FROM findam_bookings WHERE id`).
			WillReturnRows(completedBookingRows("tenant-1", models.BookingCompleted))
		mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM findam_reviews`).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := svc.Create(context.Background(), "tenant-1", validInput())
		se := apperrors.AsStandard(err)
		require.NotNil(t, se)
		assert.Equal(t, apperrors.ErrCodeReviewExists, se.Code)
	})
}

func TestComputeOverall(t *testing.T) {
	rev := &models.Review{
		CleanlinessRating:   3,
		LocationRating:      4,
		ValueRating:         4,
		CommunicationRating: 5,
	}
	assert.Equal(t, 4.0, rev.ComputeOverall())

	rev.CleanlinessRating = 2
	assert.Equal(t, 3.8, rev.ComputeOverall()) // 15/4 = 3.75 rounds to 3.8
}

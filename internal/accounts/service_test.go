package accounts

import (
	"context"
	"testing"
	"time"

	"findam-backend/internal/common/auth"
	"findam-backend/internal/common/config"
	apperrors "findam-backend/internal/common/errors"
	"findam-backend/internal/common/logger"
	"findam-backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	jwtSvc := auth.NewJWTService(config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  15,
		RefreshTokenTTL: 168,
	}, rdb)

	svc := NewService(NewRepository(db), jwtSvc, auth.NewLoginLimiter(10, 10), 4, logger.NewTestLogger(t))
	return svc, mock
}

func TestRegister(t *testing.T) {
	input := RegisterInput{
		Email:       "Marie@Example.COM",
		PhoneNumber: "677112233",
		Password:    "secret-pass",
		FirstName:   "Marie",
		LastName:    "Ngono",
		UserType:    models.UserTypeTenant,
	}

	t.Run("creates user and profile", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM findam_users WHERE email`).
			WithArgs("marie@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM findam_users WHERE phone_number`).
			WithArgs("677112233").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec(`INSERT INTO findam_users`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		// New profiles start with identity verification pending.
		mock.ExpectExec(`INSERT INTO findam_profiles`).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), models.VerificationPending, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		out, err := svc.Register(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, "marie@example.com", out.User.Email)
		assert.Equal(t, models.UserTypeTenant, out.User.UserType)
		assert.NotEqual(t, input.Password, out.User.PasswordHash, "password must be hashed")
		assert.NotEmpty(t, out.Tokens.AccessToken)
		assert.NotEmpty(t, out.Tokens.RefreshToken)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM findam_users WHERE email`).
			WithArgs("marie@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := svc.Register(context.Background(), input)
		require.Error(t, err)
		se := apperrors.AsStandard(err)
		require.NotNil(t, se)
		assert.Equal(t, apperrors.ErrCodeEmailTaken, se.Code)
	})

	t.Run("rejects duplicate phone", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM findam_users WHERE email`).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM findam_users WHERE phone_number`).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := svc.Register(context.Background(), input)
		se := apperrors.AsStandard(err)
		require.NotNil(t, se)
		assert.Equal(t, apperrors.ErrCodePhoneTaken, se.Code)
	})
}

func userRows(passwordHash string, isActive bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "phone_number", "password_hash", "first_name", "last_name",
		"user_type", "is_active", "is_verified", "date_joined", "last_login",
	}).AddRow(
		"user-1", "marie@example.com", "677112233", passwordHash, "Marie", "Ngono",
		models.UserTypeTenant, isActive, true, time.Now(), nil,
	)
}

func TestLogin(t *testing.T) {
	hash, err := auth.HashPassword("secret-pass", 4)
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`SELECT id, email, phone_number`).
			WithArgs("marie@example.com").
			WillReturnRows(userRows(hash, true))
		mock.ExpectExec(`UPDATE findam_users SET last_login`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		out, err := svc.Login(context.Background(), LoginInput{Email: "marie@example.com", Password: "secret-pass"})
		require.NoError(t, err)
		assert.Equal(t, "user-1", out.User.ID)
		assert.NotEmpty(t, out.Tokens.AccessToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`SELECT id, email, phone_number`).
			WillReturnRows(userRows(hash, true))

		_, err := svc.Login(context.Background(), LoginInput{Email: "marie@example.com", Password: "nope"})
		se := apperrors.AsStandard(err)
		require.NotNil(t, se)
		assert.Equal(t, apperrors.ErrCodeInvalidCredentials, se.Code)
	})

	t.Run("unknown email", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`SELECT id, email, phone_number`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := svc.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "x"})
		se := apperrors.AsStandard(err)
		require.NotNil(t, se)
		assert.Equal(t, apperrors.ErrCodeInvalidCredentials, se.Code)
	})

	t.Run("disabled account", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`SELECT id, email, phone_number`).
			WillReturnRows(userRows(hash, false))

		_, err := svc.Login(context.Background(), LoginInput{Email: "marie@example.com", Password: "secret-pass"})
		se := apperrors.AsStandard(err)
		require.NotNil(t, se)
		assert.Equal(t, apperrors.ErrCodeAccountDisabled, se.Code)
	})

	t.Run("rate limited after burst", func(t *testing.T) {
		svc, mock := newTestService(t)
		svc.limiter = auth.NewLoginLimiter(1, 1)

		mock.ExpectQuery(`SELECT id, email, phone_number`).
			WillReturnRows(userRows(hash, true))
		mock.ExpectExec(`UPDATE findam_users SET last_login`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		_, err := svc.Login(context.Background(), LoginInput{Email: "marie@example.com", Password: "secret-pass"})
		require.NoError(t, err)

		_, err = svc.Login(context.Background(), LoginInput{Email: "marie@example.com", Password: "secret-pass"})
		se := apperrors.AsStandard(err)
		require.NotNil(t, se)
		assert.Equal(t, apperrors.ErrCodeRateLimited, se.Code)
	})
}

func TestRefreshAndLogout(t *testing.T) {
	svc, _ := newTestService(t)

	pair, err := svc.jwt.IssuePair("user-1", models.UserTypeTenant)
	require.NoError(t, err)

	rotated, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The used refresh token is revoked and cannot be replayed.
	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	se := apperrors.AsStandard(err)
	require.NotNil(t, se)
	assert.Equal(t, apperrors.ErrCodeTokenInvalid, se.Code)

	require.NoError(t, svc.Logout(context.Background(), rotated.RefreshToken))
	_, err = svc.Refresh(context.Background(), rotated.RefreshToken)
	assert.Error(t, err)
}

func TestSubscribe(t *testing.T) {
	svc, mock := newTestService(t)

	ownerRows := sqlmock.NewRows([]string{
		"id", "email", "phone_number", "password_hash", "first_name", "last_name",
		"user_type", "is_active", "is_verified", "date_joined", "last_login",
	}).AddRow("owner-1", "paul@example.com", "699887766", "hash", "Paul", "Biya",
		models.UserTypeOwner, true, true, time.Now(), nil)

	mock.ExpectQuery(`SELECT id, email, phone_number`).
		WithArgs("owner-1").
		WillReturnRows(ownerRows)
	mock.ExpectExec(`INSERT INTO findam_owner_subscriptions`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	sub, err := svc.Subscribe(context.Background(), "owner-1", SubscribeInput{SubscriptionType: models.SubscriptionQuarterly})
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	require.NotNil(t, sub.EndDate)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 90), *sub.EndDate, time.Minute)
}

func TestActiveSubscriptionType(t *testing.T) {
	t.Run("no subscription defaults to free", func(t *testing.T) {
		svc, mock := newTestService(t)
		mock.ExpectQuery(`SELECT id, owner_id, subscription_type`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		plan, err := svc.ActiveSubscriptionType(context.Background(), "owner-1")
		require.NoError(t, err)
		assert.Equal(t, models.SubscriptionFree, plan)
	})

	t.Run("active plan returned", func(t *testing.T) {
		svc, mock := newTestService(t)
		end := time.Now().Add(24 * time.Hour)
		mock.ExpectQuery(`SELECT id, owner_id, subscription_type`).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "owner_id", "subscription_type", "status", "start_date", "end_date", "payment_reference", "created_at",
			}).AddRow("sub-1", "owner-1", models.SubscriptionYearly, models.SubscriptionStatusActive,
				time.Now().Add(-time.Hour), end, "ref-1", time.Now()))

		plan, err := svc.ActiveSubscriptionType(context.Background(), "owner-1")
		require.NoError(t, err)
		assert.Equal(t, models.SubscriptionYearly, plan)
	})
}

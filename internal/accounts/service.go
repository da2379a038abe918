package accounts

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"findam-backend/internal/common/auth"
	apperrors "findam-backend/internal/common/errors"
	"findam-backend/internal/common/logger"
	"findam-backend/internal/models"

	"github.com/google/uuid"
)

// Service implements registration, login and profile management.
type Service struct {
	repo       *Repository
	jwt        *auth.JWTService
	limiter    *auth.LoginLimiter
	bcryptCost int
	logger     logger.Logger
	now        func() time.Time
}

func NewService(repo *Repository, jwt *auth.JWTService, limiter *auth.LoginLimiter, bcryptCost int, log logger.Logger) *Service {
	return &Service{
		repo:       repo,
		jwt:        jwt,
		limiter:    limiter,
		bcryptCost: bcryptCost,
		logger:     log,
		now:        time.Now,
	}
}

type RegisterInput struct {
	Email       string `json:"email" binding:"required,email"`
	PhoneNumber string `json:"phone_number" binding:"required"`
	Password    string `json:"password" binding:"required,min=8"`
	FirstName   string `json:"first_name" binding:"required"`
	LastName    string `json:"last_name" binding:"required"`
	UserType    string `json:"user_type" binding:"required,oneof=tenant owner"`
}

type AuthOutput struct {
	User   *models.User    `json:"user"`
	Tokens *auth.TokenPair `json:"tokens"`
}

// Register creates the user with a default profile and signs them in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthOutput, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if taken, err := s.repo.EmailExists(ctx, email); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	} else if taken {
		return nil, apperrors.NewEmailTakenError(email)
	}
	if taken, err := s.repo.PhoneExists(ctx, in.PhoneNumber); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	} else if taken {
		return nil, apperrors.NewPhoneTakenError(in.PhoneNumber)
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PhoneNumber:  in.PhoneNumber,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		UserType:     in.UserType,
		IsActive:     true,
		DateJoined:   now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}

	profile := &models.Profile{
		UserID:             user.ID,
		Country:            "Cameroun",
		VerificationStatus: models.VerificationPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.CreateProfile(ctx, profile); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}

	tokens, err := s.jwt.IssuePair(user.ID, user.UserType)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("user registered", map[string]interface{}{
		"user_id":   user.ID,
		"user_type": user.UserType,
	})

	return &AuthOutput{User: user, Tokens: tokens}, nil
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials under a per-email rate limit.
func (s *Service) Login(ctx context.Context, in LoginInput) (*AuthOutput, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if !s.limiter.Allow(email) {
		s.logger.Warn("login rate limited", map[string]interface{}{"email": email})
		return nil, apperrors.NewRateLimitedError()
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewInvalidCredentialsError()
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}

	if !auth.CheckPassword(user.PasswordHash, in.Password) {
		return nil, apperrors.NewInvalidCredentialsError()
	}
	if !user.IsActive {
		return nil, apperrors.NewAccountDisabledError(user.ID)
	}

	now := s.now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.WithError(err).Warn("failed to record last login", map[string]interface{}{"user_id": user.ID})
	}
	user.LastLogin = &now

	tokens, err := s.jwt.IssuePair(user.ID, user.UserType)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	return &AuthOutput{User: user, Tokens: tokens}, nil
}

// Refresh rotates a refresh token into a new token pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	pair, err := s.jwt.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, apperrors.NewTokenInvalidError(err.Error())
	}
	return pair, nil
}

// Logout revokes the refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if err := s.jwt.Revoke(ctx, refreshToken); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// GetProfile loads the user plus profile by user id.
func (s *Service) GetProfile(ctx context.Context, userID string) (*models.User, *models.Profile, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err == sql.ErrNoRows {
		return nil, nil, apperrors.NewResourceNotFoundError("User", "userId: "+userID)
	}
	if err != nil {
		return nil, nil, apperrors.NewQueryExecutionFailedError(err)
	}
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil && err != sql.ErrNoRows {
		return nil, nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return user, profile, nil
}

type UpdateProfileInput struct {
	AvatarURL *string    `json:"avatar_url"`
	Bio       *string    `json:"bio"`
	BirthDate *time.Time `json:"birth_date"`
	City      *string    `json:"city"`
	Country   *string    `json:"country"`
}

// UpdateProfile applies the provided fields onto the stored profile.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*models.Profile, error) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewResourceNotFoundError("Profile", "userId: "+userID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}

	if in.AvatarURL != nil {
		profile.AvatarURL = *in.AvatarURL
	}
	if in.Bio != nil {
		profile.Bio = *in.Bio
	}
	if in.BirthDate != nil {
		profile.BirthDate = in.BirthDate
	}
	if in.City != nil {
		profile.City = *in.City
	}
	if in.Country != nil {
		profile.Country = *in.Country
	}
	profile.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateProfile(ctx, profile); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	return profile, nil
}

type SubscribeInput struct {
	SubscriptionType string `json:"subscription_type" binding:"required,oneof=monthly quarterly yearly"`
	PaymentReference string `json:"payment_reference"`
}

// Subscribe activates a paid plan for an owner. The plan end date comes from
// the plan duration (30/90/365 days).
func (s *Service) Subscribe(ctx context.Context, ownerID string, in SubscribeInput) (*models.OwnerSubscription, error) {
	user, err := s.repo.GetUserByID(ctx, ownerID)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewResourceNotFoundError("User", "userId: "+ownerID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}
	if user.UserType != models.UserTypeOwner {
		return nil, apperrors.NewForbiddenError("only owners can subscribe")
	}

	now := s.now().UTC()
	end := now.AddDate(0, 0, models.SubscriptionDurationDays(in.SubscriptionType))
	sub := &models.OwnerSubscription{
		ID:               uuid.NewString(),
		OwnerID:          ownerID,
		SubscriptionType: in.SubscriptionType,
		Status:           models.SubscriptionStatusActive,
		StartDate:        now,
		EndDate:          &end,
		PaymentReference: in.PaymentReference,
		CreatedAt:        now,
	}
	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(err)
	}

	s.logger.Info("subscription activated", map[string]interface{}{
		"owner_id": ownerID,
		"plan":     in.SubscriptionType,
		"end_date": end,
	})
	return sub, nil
}

// ActiveSubscriptionType returns the owner's current plan, "free" when none.
func (s *Service) ActiveSubscriptionType(ctx context.Context, ownerID string) (string, error) {
	sub, err := s.repo.ActiveSubscription(ctx, ownerID, s.now().UTC())
	if err != nil {
		return "", apperrors.NewQueryExecutionFailedError(err)
	}
	if sub == nil {
		return models.SubscriptionFree, nil
	}
	return sub.SubscriptionType, nil
}

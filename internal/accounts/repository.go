package accounts

import (
	"context"
	"database/sql"
	"time"

	"findam-backend/internal/models"
)

// Repository provides access to user, profile and subscription rows.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO findam_users (id, email, phone_number, password_hash, first_name, last_name, user_type, is_active, is_verified, date_joined)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.Email, u.PhoneNumber, u.PasswordHash, u.FirstName, u.LastName,
		u.UserType, u.IsActive, u.IsVerified, u.DateJoined)
	return err
}

func (r *Repository) CreateProfile(ctx context.Context, p *models.Profile) error {
	query := `
		INSERT INTO findam_profiles (user_id, country, verification_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query,
		p.UserID, p.Country, p.VerificationStatus, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, phone_number, password_hash, first_name, last_name, user_type, is_active, is_verified, date_joined, last_login
		FROM findam_users WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *Repository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, email, phone_number, password_hash, first_name, last_name, user_type, is_active, is_verified, date_joined, last_login
		FROM findam_users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *Repository) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var lastLogin sql.NullTime
	err := row.Scan(&u.ID, &u.Email, &u.PhoneNumber, &u.PasswordHash, &u.FirstName,
		&u.LastName, &u.UserType, &u.IsActive, &u.IsVerified, &u.DateJoined, &lastLogin)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	return &u, nil
}

// EmailExists and PhoneExists back uniqueness checks during registration.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM findam_users WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

func (r *Repository) PhoneExists(ctx context.Context, phone string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM findam_users WHERE phone_number = $1)`, phone).Scan(&exists)
	return exists, err
}

func (r *Repository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE findam_users SET last_login = $1 WHERE id = $2`, at, userID)
	return err
}

func (r *Repository) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	query := `
		SELECT user_id, avatar_url, bio, birth_date, city, country, verification_status, avg_rating, rating_count, created_at, updated_at
		FROM findam_profiles WHERE user_id = $1`
	var p models.Profile
	var avatar, bio, city sql.NullString
	var birthDate sql.NullTime
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &avatar, &bio, &birthDate, &city, &p.Country,
		&p.VerificationStatus, &p.AvgRating, &p.RatingCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.AvatarURL = avatar.String
	p.Bio = bio.String
	p.City = city.String
	if birthDate.Valid {
		p.BirthDate = &birthDate.Time
	}
	return &p, nil
}

func (r *Repository) UpdateProfile(ctx context.Context, p *models.Profile) error {
	query := `
		UPDATE findam_profiles
		SET avatar_url = $1, bio = $2, birth_date = $3, city = $4, country = $5, updated_at = $6
		WHERE user_id = $7`
	_, err := r.db.ExecContext(ctx, query,
		p.AvatarURL, p.Bio, p.BirthDate, p.City, p.Country, p.UpdatedAt, p.UserID)
	return err
}

// ActiveSubscription returns the owner's current active subscription, or nil.
func (r *Repository) ActiveSubscription(ctx context.Context, ownerID string, now time.Time) (*models.OwnerSubscription, error) {
	query := `
		SELECT id, owner_id, subscription_type, status, start_date, end_date, payment_reference, created_at
		FROM findam_owner_subscriptions
		WHERE owner_id = $1 AND status = 'active' AND (end_date IS NULL OR end_date > $2)
		ORDER BY created_at DESC LIMIT 1`
	var s models.OwnerSubscription
	var endDate sql.NullTime
	var ref sql.NullString
	err := r.db.QueryRowContext(ctx, query, ownerID, now).Scan(
		&s.ID, &s.OwnerID, &s.SubscriptionType, &s.Status, &s.StartDate, &endDate, &ref, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if endDate.Valid {
		s.EndDate = &endDate.Time
	}
	s.PaymentReference = ref.String
	return &s, nil
}

func (r *Repository) CreateSubscription(ctx context.Context, s *models.OwnerSubscription) error {
	query := `
		INSERT INTO findam_owner_subscriptions (id, owner_id, subscription_type, status, start_date, end_date, payment_reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.OwnerID, s.SubscriptionType, s.Status, s.StartDate, s.EndDate, s.PaymentReference, s.CreatedAt)
	return err
}

// ExpireOverdueSubscriptions flips active subscriptions past their end date.
func (r *Repository) ExpireOverdueSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE findam_owner_subscriptions SET status = 'expired' WHERE status = 'active' AND end_date IS NOT NULL AND end_date <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

package models

import "time"

// User types.
const (
	UserTypeTenant = "tenant"
	UserTypeOwner  = "owner"
	UserTypeAdmin  = "admin"
)

// Identity verification statuses.
const (
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationRejected = "rejected"
)

// Owner subscription plans and statuses.
const (
	SubscriptionFree      = "free"
	SubscriptionMonthly   = "monthly"
	SubscriptionQuarterly = "quarterly"
	SubscriptionYearly    = "yearly"

	SubscriptionStatusActive    = "active"
	SubscriptionStatusExpired   = "expired"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusPending   = "pending"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PhoneNumber  string    `json:"phone_number"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	UserType     string    `json:"user_type"`
	IsActive     bool      `json:"is_active"`
	IsVerified   bool      `json:"is_verified"`
	DateJoined   time.Time `json:"date_joined"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// FullName returns "first last" trimmed, falling back to the email.
func (u *User) FullName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Email
	}
	return name
}

type Profile struct {
	UserID             string     `json:"user_id"`
	AvatarURL          string     `json:"avatar_url,omitempty"`
	Bio                string     `json:"bio,omitempty"`
	BirthDate          *time.Time `json:"birth_date,omitempty"`
	City               string     `json:"city,omitempty"`
	Country            string     `json:"country"`
	VerificationStatus string     `json:"verification_status"`
	AvgRating          float64    `json:"avg_rating"`
	RatingCount        int        `json:"rating_count"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type OwnerSubscription struct {
	ID               string     `json:"id"`
	OwnerID          string     `json:"owner_id"`
	SubscriptionType string     `json:"subscription_type"`
	Status           string     `json:"status"`
	StartDate        time.Time  `json:"start_date"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	PaymentReference string     `json:"payment_reference,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// IsCurrentlyActive reports whether the subscription is active at t.
func (s *OwnerSubscription) IsCurrentlyActive(t time.Time) bool {
	if s.Status != SubscriptionStatusActive {
		return false
	}
	return s.EndDate == nil || s.EndDate.After(t)
}

// Duration returns the plan length in days, 0 for the free plan.
func SubscriptionDurationDays(subscriptionType string) int {
	switch subscriptionType {
	case SubscriptionMonthly:
		return 30
	case SubscriptionQuarterly:
		return 90
	case SubscriptionYearly:
		return 365
	default:
		return 0
	}
}

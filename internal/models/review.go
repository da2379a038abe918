package models

import "time"

// Review report reasons.
const (
	ReportInappropriate = "inappropriate"
	ReportFake          = "fake"
	ReportSpam          = "spam"
	ReportOther         = "other"
)

// Review is left by a tenant after a completed stay. The overall rating is
// the average of the four category ratings, rounded to one decimal.
type Review struct {
	ID         string `json:"id"`
	BookingID  string `json:"booking_id"`
	PropertyID string `json:"property_id"`
	TenantID   string `json:"tenant_id"`

	OverallRating       float64 `json:"overall_rating"`
	CleanlinessRating   int     `json:"cleanliness_rating"`
	LocationRating      int     `json:"location_rating"`
	ValueRating         int     `json:"value_rating"`
	CommunicationRating int     `json:"communication_rating"`

	Title    string     `json:"title,omitempty"`
	Comment  string     `json:"comment"`
	StayDate *time.Time `json:"stay_date,omitempty"`

	IsPublished bool `json:"is_published"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ComputeOverall derives the overall rating from the category ratings.
func (r *Review) ComputeOverall() float64 {
	sum := r.CleanlinessRating + r.LocationRating + r.ValueRating + r.CommunicationRating
	avg := float64(sum) / 4.0
	return float64(int(avg*10+0.5)) / 10.0
}

type ReviewReply struct {
	ID        string    `json:"id"`
	ReviewID  string    `json:"review_id"`
	OwnerID   string    `json:"owner_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ReviewReport struct {
	ID         string    `json:"id"`
	ReviewID   string    `json:"review_id"`
	ReporterID string    `json:"reporter_id"`
	Reason     string    `json:"reason"`
	Details    string    `json:"details,omitempty"`
	IsResolved bool      `json:"is_resolved"`
	CreatedAt  time.Time `json:"created_at"`
}

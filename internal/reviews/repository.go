package reviews

import (
	"context"
	"database/sql"

	"findam-backend/internal/models"
)

// Repository provides access to review, reply and report rows.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const reviewColumns = `id, booking_id, property_id, tenant_id, overall_rating,
	cleanliness_rating, location_rating, value_rating, communication_rating,
	title, comment, stay_date, is_published, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, rev *models.Review) error {
	query := `
		INSERT INTO findam_reviews (` + reviewColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.db.ExecContext(ctx, query,
		rev.ID, rev.BookingID, rev.PropertyID, rev.TenantID, rev.OverallRating,
		rev.CleanlinessRating, rev.LocationRating, rev.ValueRating, rev.CommunicationRating,
		rev.Title, rev.Comment, rev.StayDate, rev.IsPublished, rev.CreatedAt, rev.UpdatedAt)
	return err
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM findam_reviews WHERE id = $1`
	var rev models.Review
	var stayDate sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rev.ID, &rev.BookingID, &rev.PropertyID, &rev.TenantID, &rev.OverallRating,
		&rev.CleanlinessRating, &rev.LocationRating, &rev.ValueRating, &rev.CommunicationRating,
		&rev.Title, &rev.Comment, &stayDate, &rev.IsPublished, &rev.CreatedAt, &rev.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if stayDate.Valid {
		rev.StayDate = &stayDate.Time
	}
	return &rev, nil
}

func (r *Repository) ExistsForBooking(ctx context.Context, bookingID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM findam_reviews WHERE booking_id = $1)`, bookingID).Scan(&exists)
	return exists, err
}

func (r *Repository) ListByProperty(ctx context.Context, propertyID string, limit, offset int) ([]*models.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := `SELECT ` + reviewColumns + ` FROM findam_reviews
		WHERE property_id = $1 AND is_published = TRUE
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, propertyID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Review
	for rows.Next() {
		var rev models.Review
		var stayDate sql.NullTime
		if err := rows.Scan(
			&rev.ID, &rev.BookingID, &rev.PropertyID, &rev.TenantID, &rev.OverallRating,
			&rev.CleanlinessRating, &rev.LocationRating, &rev.ValueRating, &rev.CommunicationRating,
			&rev.Title, &rev.Comment, &stayDate, &rev.IsPublished, &rev.CreatedAt, &rev.UpdatedAt); err != nil {
			return nil, err
		}
		if stayDate.Valid {
			rev.StayDate = &stayDate.Time
		}
		out = append(out, &rev)
	}
	return out, rows.Err()
}

// PropertyAggregate computes the published-review average and count.
func (r *Repository) PropertyAggregate(ctx context.Context, propertyID string) (float64, int, error) {
	var avg sql.NullFloat64
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT AVG(overall_rating), COUNT(*) FROM findam_reviews
		WHERE property_id = $1 AND is_published = TRUE`, propertyID).Scan(&avg, &count)
	if err != nil {
		return 0, 0, err
	}
	return avg.Float64, count, nil
}

func (r *Repository) CreateReply(ctx context.Context, rep *models.ReviewReply) error {
	query := `
		INSERT INTO findam_review_replies (id, review_id, owner_id, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query,
		rep.ID, rep.ReviewID, rep.OwnerID, rep.Content, rep.CreatedAt, rep.UpdatedAt)
	return err
}

func (r *Repository) ReplyExists(ctx context.Context, reviewID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM findam_review_replies WHERE review_id = $1)`, reviewID).Scan(&exists)
	return exists, err
}

func (r *Repository) CreateReport(ctx context.Context, rep *models.ReviewReport) error {
	query := `
		INSERT INTO findam_review_reports (id, review_id, reporter_id, reason, details, is_resolved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query,
		rep.ID, rep.ReviewID, rep.ReporterID, rep.Reason, rep.Details, rep.IsResolved, rep.CreatedAt)
	return err
}

package bookings

import (
	"context"
	"database/sql"
	"time"

	"findam-backend/internal/models"
)

// Repository provides access to booking and promo code rows.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const bookingColumns = `id, property_id, tenant_id, check_in_date, check_out_date, guests_count,
	base_price, cleaning_fee, security_deposit, promo_code_id, discount_amount, service_fee, total_price,
	status, payment_status, special_requests, notes, created_at, updated_at, cancelled_at, cancelled_by`

func (r *Repository) Create(ctx context.Context, b *models.Booking) error {
	query := `
		INSERT INTO findam_bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, NULLIF($21, ''))`
	_, err := r.db.ExecContext(ctx, query,
		b.ID, b.PropertyID, b.TenantID, b.CheckInDate, b.CheckOutDate, b.GuestsCount,
		b.BasePrice, b.CleaningFee, b.SecurityDeposit, b.PromoCodeID, b.DiscountAmount, b.ServiceFee, b.TotalPrice,
		b.Status, b.PaymentStatus, b.SpecialRequests, b.Notes, b.CreatedAt, b.UpdatedAt, b.CancelledAt, b.CancelledBy)
	return err
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM findam_bookings WHERE id = $1`
	return scanBooking(r.db.QueryRowContext(ctx, query, id))
}

func scanBooking(row *sql.Row) (*models.Booking, error) {
	var b models.Booking
	var promoID sql.NullInt64
	var requests, notes, cancelledBy sql.NullString
	var cancelledAt sql.NullTime
	err := row.Scan(
		&b.ID, &b.PropertyID, &b.TenantID, &b.CheckInDate, &b.CheckOutDate, &b.GuestsCount,
		&b.BasePrice, &b.CleaningFee, &b.SecurityDeposit, &promoID, &b.DiscountAmount, &b.ServiceFee, &b.TotalPrice,
		&b.Status, &b.PaymentStatus, &requests, &notes, &b.CreatedAt, &b.UpdatedAt, &cancelledAt, &cancelledBy)
	if err != nil {
		return nil, err
	}
	if promoID.Valid {
		b.PromoCodeID = &promoID.Int64
	}
	b.SpecialRequests = requests.String
	b.Notes = notes.String
	if cancelledAt.Valid {
		b.CancelledAt = &cancelledAt.Time
	}
	b.CancelledBy = cancelledBy.String
	return &b, nil
}

func collectBookings(rows *sql.Rows) ([]*models.Booking, error) {
	var out []*models.Booking
	for rows.Next() {
		var b models.Booking
		var promoID sql.NullInt64
		var requests, notes, cancelledBy sql.NullString
		var cancelledAt sql.NullTime
		err := rows.Scan(
			&b.ID, &b.PropertyID, &b.TenantID, &b.CheckInDate, &b.CheckOutDate, &b.GuestsCount,
			&b.BasePrice, &b.CleaningFee, &b.SecurityDeposit, &promoID, &b.DiscountAmount, &b.ServiceFee, &b.TotalPrice,
			&b.Status, &b.PaymentStatus, &requests, &notes, &b.CreatedAt, &b.UpdatedAt, &cancelledAt, &cancelledBy)
		if err != nil {
			return nil, err
		}
		if promoID.Valid {
			b.PromoCodeID = &promoID.Int64
		}
		b.SpecialRequests = requests.String
		b.Notes = notes.String
		if cancelledAt.Valid {
			b.CancelledAt = &cancelledAt.Time
		}
		b.CancelledBy = cancelledBy.String
		out = append(out, &b)
	}
	return out, rows.Err()
}

func (r *Repository) ListByTenant(ctx context.Context, tenantID string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM findam_bookings WHERE tenant_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Booking, error) {
	query := `
		SELECT b.id, b.property_id, b.tenant_id, b.check_in_date, b.check_out_date, b.guests_count,
			b.base_price, b.cleaning_fee, b.security_deposit, b.promo_code_id, b.discount_amount, b.service_fee, b.total_price,
			b.status, b.payment_status, b.special_requests, b.notes, b.created_at, b.updated_at, b.cancelled_at, b.cancelled_by
		FROM findam_bookings b
		JOIN findam_properties p ON p.id = b.property_id
		WHERE p.owner_id = $1
		ORDER BY b.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

func (r *Repository) UpdateStatus(ctx context.Context, b *models.Booking) error {
	query := `
		UPDATE findam_bookings
		SET status = $1, payment_status = $2, updated_at = $3, cancelled_at = $4, cancelled_by = NULLIF($5, '')
		WHERE id = $6`
	_, err := r.db.ExecContext(ctx, query,
		b.Status, b.PaymentStatus, b.UpdatedAt, b.CancelledAt, b.CancelledBy, b.ID)
	return err
}

func (r *Repository) UpdatePaymentStatus(ctx context.Context, bookingID, paymentStatus string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE findam_bookings SET payment_status = $1, updated_at = $2 WHERE id = $3`,
		paymentStatus, at, bookingID)
	return err
}

// CompletePastStays flips confirmed bookings whose check-out has passed.
func (r *Repository) CompletePastStays(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE findam_bookings SET status = 'completed', updated_at = $1
		WHERE status = 'confirmed' AND check_out_date <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- promo codes ---

func (r *Repository) GetPromoByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	query := `
		SELECT id, code, property_id, tenant_id, discount_percentage, is_active, expiry_date, created_by, created_at
		FROM findam_promo_codes WHERE code = $1`
	var p models.PromoCode
	var createdBy sql.NullString
	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&p.ID, &p.Code, &p.PropertyID, &p.TenantID, &p.DiscountPercentage,
		&p.IsActive, &p.ExpiryDate, &createdBy, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.CreatedBy = createdBy.String
	return &p, nil
}

func (r *Repository) CreatePromo(ctx context.Context, p *models.PromoCode) error {
	query := `
		INSERT INTO findam_promo_codes (code, property_id, tenant_id, discount_percentage, is_active, expiry_date, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		p.Code, p.PropertyID, p.TenantID, p.DiscountPercentage, p.IsActive, p.ExpiryDate, p.CreatedBy, p.CreatedAt).Scan(&p.ID)
}

// SetPromoActive backs single-use semantics: a code is deactivated when the
// booking is created and reactivated if that booking is cancelled.
func (r *Repository) SetPromoActive(ctx context.Context, promoID int64, active bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE findam_promo_codes SET is_active = $1 WHERE id = $2`, active, promoID)
	return err
}

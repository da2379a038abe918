package properties

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"findam-backend/internal/models"

	"github.com/lib/pq"
)

// Repository provides access to property, image and availability rows.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const propertyColumns = `id, owner_id, title, description, property_type, capacity, bedrooms, bathrooms,
	city_id, neighborhood_id, address, latitude, longitude,
	price_per_night, price_per_week, price_per_month, cleaning_fee, security_deposit,
	allow_discount, cancellation_policy, is_published, is_verified, avg_rating, rating_count,
	created_at, updated_at`

func (r *Repository) Create(ctx context.Context, p *models.Property) error {
	query := `
		INSERT INTO findam_properties (` + propertyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.OwnerID, p.Title, p.Description, p.PropertyType, p.Capacity, p.Bedrooms, p.Bathrooms,
		p.CityID, p.NeighborhoodID, p.Address, p.Latitude, p.Longitude,
		p.PricePerNight, p.PricePerWeek, p.PricePerMonth, p.CleaningFee, p.SecurityDeposit,
		p.AllowDiscount, p.CancellationPolicy, p.IsPublished, p.IsVerified, p.AvgRating, p.RatingCount,
		p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM findam_properties WHERE id = $1`
	return scanProperty(r.db.QueryRowContext(ctx, query, id))
}

func scanProperty(row *sql.Row) (*models.Property, error) {
	var p models.Property
	err := row.Scan(
		&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.PropertyType, &p.Capacity, &p.Bedrooms, &p.Bathrooms,
		&p.CityID, &p.NeighborhoodID, &p.Address, &p.Latitude, &p.Longitude,
		&p.PricePerNight, &p.PricePerWeek, &p.PricePerMonth, &p.CleaningFee, &p.SecurityDeposit,
		&p.AllowDiscount, &p.CancellationPolicy, &p.IsPublished, &p.IsVerified, &p.AvgRating, &p.RatingCount,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) Update(ctx context.Context, p *models.Property) error {
	query := `
		UPDATE findam_properties SET
			title = $1, description = $2, property_type = $3, capacity = $4, bedrooms = $5, bathrooms = $6,
			city_id = $7, neighborhood_id = $8, address = $9, latitude = $10, longitude = $11,
			price_per_night = $12, price_per_week = $13, price_per_month = $14, cleaning_fee = $15, security_deposit = $16,
			allow_discount = $17, cancellation_policy = $18, is_published = $19, updated_at = $20
		WHERE id = $21`
	_, err := r.db.ExecContext(ctx, query,
		p.Title, p.Description, p.PropertyType, p.Capacity, p.Bedrooms, p.Bathrooms,
		p.CityID, p.NeighborhoodID, p.Address, p.Latitude, p.Longitude,
		p.PricePerNight, p.PricePerWeek, p.PricePerMonth, p.CleaningFee, p.SecurityDeposit,
		p.AllowDiscount, p.CancellationPolicy, p.IsPublished, p.UpdatedAt, p.ID)
	return err
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM findam_properties WHERE id = $1`, id)
	return err
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM findam_properties WHERE owner_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProperties(rows)
}

func collectProperties(rows *sql.Rows) ([]*models.Property, error) {
	var out []*models.Property
	for rows.Next() {
		var p models.Property
		err := rows.Scan(
			&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.PropertyType, &p.Capacity, &p.Bedrooms, &p.Bathrooms,
			&p.CityID, &p.NeighborhoodID, &p.Address, &p.Latitude, &p.Longitude,
			&p.PricePerNight, &p.PricePerWeek, &p.PricePerMonth, &p.CleaningFee, &p.SecurityDeposit,
			&p.AllowDiscount, &p.CancellationPolicy, &p.IsPublished, &p.IsVerified, &p.AvgRating, &p.RatingCount,
			&p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *Repository) GetByIDs(ctx context.Context, ids []string) ([]*models.Property, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + propertyColumns + ` FROM findam_properties WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProperties(rows)
}

// SearchFilter carries the SQL-side search criteria. Zero values mean "any".
type SearchFilter struct {
	CityID         int64
	NeighborhoodID int64
	PropertyType   string
	MinPrice       int64
	MaxPrice       int64
	MinCapacity    int
	Query          string
	Limit          int
	Offset         int
}

// Search runs the SQL search used when Elasticsearch is disabled or down.
func (r *Repository) Search(ctx context.Context, f SearchFilter) ([]*models.Property, error) {
	var (
		conds = []string{"is_published = TRUE"}
		args  []interface{}
	)
	add := func(cond string, val interface{}) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.CityID > 0 {
		add("city_id = $%d", f.CityID)
	}
	if f.NeighborhoodID > 0 {
		add("neighborhood_id = $%d", f.NeighborhoodID)
	}
	if f.PropertyType != "" {
		add("property_type = $%d", f.PropertyType)
	}
	if f.MinPrice > 0 {
		add("price_per_night >= $%d", f.MinPrice)
	}
	if f.MaxPrice > 0 {
		add("price_per_night <= $%d", f.MaxPrice)
	}
	if f.MinCapacity > 0 {
		add("capacity >= $%d", f.MinCapacity)
	}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `SELECT ` + propertyColumns + ` FROM findam_properties WHERE ` + strings.Join(conds, " AND ") +
		fmt.Sprintf(" ORDER BY avg_rating DESC, created_at DESC LIMIT %d OFFSET %d", limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProperties(rows)
}

// --- images ---

func (r *Repository) AddImage(ctx context.Context, img *models.PropertyImage) error {
	query := `
		INSERT INTO findam_property_images (property_id, url, is_main, image_order, caption, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		img.PropertyID, img.URL, img.IsMain, img.Order, img.Caption, img.CreatedAt).Scan(&img.ID)
}

func (r *Repository) ListImages(ctx context.Context, propertyID string) ([]*models.PropertyImage, error) {
	query := `
		SELECT id, property_id, url, is_main, image_order, caption, created_at
		FROM findam_property_images WHERE property_id = $1 ORDER BY image_order`
	rows, err := r.db.QueryContext(ctx, query, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.PropertyImage
	for rows.Next() {
		var img models.PropertyImage
		var caption sql.NullString
		if err := rows.Scan(&img.ID, &img.PropertyID, &img.URL, &img.IsMain, &img.Order, &caption, &img.CreatedAt); err != nil {
			return nil, err
		}
		img.Caption = caption.String
		out = append(out, &img)
	}
	return out, rows.Err()
}

// --- amenities ---

func (r *Repository) ListAmenityCatalog(ctx context.Context) ([]*models.Amenity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, icon, category FROM findam_amenities ORDER BY category, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAmenities(rows)
}

func (r *Repository) ListPropertyAmenities(ctx context.Context, propertyID string) ([]*models.Amenity, error) {
	query := `
		SELECT a.id, a.name, a.icon, a.category
		FROM findam_amenities a
		JOIN findam_property_amenities pa ON pa.amenity_id = a.id
		WHERE pa.property_id = $1 ORDER BY a.category, a.name`
	rows, err := r.db.QueryContext(ctx, query, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAmenities(rows)
}

func collectAmenities(rows *sql.Rows) ([]*models.Amenity, error) {
	var out []*models.Amenity
	for rows.Next() {
		var a models.Amenity
		if err := rows.Scan(&a.ID, &a.Name, &a.Icon, &a.Category); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// SetPropertyAmenities replaces the property's amenity set atomically.
func (r *Repository) SetPropertyAmenities(ctx context.Context, propertyID string, amenityIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM findam_property_amenities WHERE property_id = $1`, propertyID); err != nil {
		return err
	}
	if len(amenityIDs) > 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO findam_property_amenities (property_id, amenity_id)
			SELECT $1, unnest($2::bigint[])`, propertyID, pq.Array(amenityIDs))
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// --- location reference data ---

func (r *Repository) ListCities(ctx context.Context) ([]*models.City, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM findam_cities ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.City
	for rows.Next() {
		var c models.City
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *Repository) ListNeighborhoods(ctx context.Context, cityID int64) ([]*models.Neighborhood, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, city_id, name FROM findam_neighborhoods WHERE city_id = $1 ORDER BY name`, cityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Neighborhood
	for rows.Next() {
		var n models.Neighborhood
		if err := rows.Scan(&n.ID, &n.CityID, &n.Name); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

// --- availability ---

// HasOverlap reports whether any unavailability period intersects [start, end).
func (r *Repository) HasOverlap(ctx context.Context, propertyID string, start, end time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM findam_availabilities
			WHERE property_id = $1 AND start_date < $3 AND end_date > $2
		)`, propertyID, start, end).Scan(&exists)
	return exists, err
}

func (r *Repository) CreateBlock(ctx context.Context, a *models.Availability) error {
	query := `
		INSERT INTO findam_availabilities (property_id, start_date, end_date, block_type, booking_id, external_client_name, external_client_phone, notes, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9) RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		a.PropertyID, a.StartDate, a.EndDate, a.BlockType, a.BookingID,
		a.ClientName, a.ClientPhone, a.Notes, a.CreatedAt).Scan(&a.ID)
}

func (r *Repository) DeleteBlockByBooking(ctx context.Context, bookingID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM findam_availabilities WHERE booking_id = $1`, bookingID)
	return err
}

func (r *Repository) DeleteBlock(ctx context.Context, propertyID string, blockID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM findam_availabilities WHERE id = $1 AND property_id = $2 AND block_type != 'booking'`,
		blockID, propertyID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *Repository) ListBlocks(ctx context.Context, propertyID string, from, to time.Time) ([]*models.Availability, error) {
	query := `
		SELECT id, property_id, start_date, end_date, block_type, COALESCE(booking_id::text, ''), external_client_name, external_client_phone, notes, created_at
		FROM findam_availabilities
		WHERE property_id = $1 AND start_date < $3 AND end_date > $2
		ORDER BY start_date`
	rows, err := r.db.QueryContext(ctx, query, propertyID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Availability
	for rows.Next() {
		var a models.Availability
		var name, phone, notes sql.NullString
		if err := rows.Scan(&a.ID, &a.PropertyID, &a.StartDate, &a.EndDate, &a.BlockType,
			&a.BookingID, &name, &phone, &notes, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.ClientName = name.String
		a.ClientPhone = phone.String
		a.Notes = notes.String
		out = append(out, &a)
	}
	return out, rows.Err()
}

// --- long-stay discounts ---

func (r *Repository) ListDiscounts(ctx context.Context, propertyID string) ([]*models.LongStayDiscount, error) {
	query := `
		SELECT id, property_id, min_days, discount_percentage
		FROM findam_long_stay_discounts WHERE property_id = $1 ORDER BY min_days DESC`
	rows, err := r.db.QueryContext(ctx, query, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.LongStayDiscount
	for rows.Next() {
		var d models.LongStayDiscount
		if err := rows.Scan(&d.ID, &d.PropertyID, &d.MinDays, &d.DiscountPercentage); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (r *Repository) UpsertDiscount(ctx context.Context, d *models.LongStayDiscount) error {
	query := `
		INSERT INTO findam_long_stay_discounts (property_id, min_days, discount_percentage)
		VALUES ($1, $2, $3)
		ON CONFLICT (property_id, min_days) DO UPDATE SET discount_percentage = EXCLUDED.discount_percentage
		RETURNING id`
	return r.db.QueryRowContext(ctx, query, d.PropertyID, d.MinDays, d.DiscountPercentage).Scan(&d.ID)
}

// UpdateRating refreshes the denormalized review aggregate on the property row.
func (r *Repository) UpdateRating(ctx context.Context, propertyID string, avg float64, count int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE findam_properties SET avg_rating = $1, rating_count = $2 WHERE id = $3`,
		avg, count, propertyID)
	return err
}

package payments

import (
	"context"
	"database/sql"
	"time"

	"findam-backend/internal/models"
)

// Repository provides access to the transaction ledger, payment methods,
// payouts and commissions.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const transactionColumns = `id, user_id, transaction_type, status, amount, currency,
	booking_id, external_reference, description, created_at, updated_at, processed_at`

func (r *Repository) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	query := `
		INSERT INTO findam_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11, $12)`
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.UserID, t.TransactionType, t.Status, t.Amount, t.Currency,
		t.BookingID, t.ExternalReference, t.Description, t.CreatedAt, t.UpdatedAt, t.ProcessedAt)
	return err
}

func (r *Repository) GetTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM findam_transactions WHERE external_reference = $1`
	return scanTransaction(r.db.QueryRowContext(ctx, query, reference))
}

func (r *Repository) GetTransactionByID(ctx context.Context, id string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM findam_transactions WHERE id = $1`
	return scanTransaction(r.db.QueryRowContext(ctx, query, id))
}

func scanTransaction(row *sql.Row) (*models.Transaction, error) {
	var t models.Transaction
	var bookingID, extRef sql.NullString
	var processedAt sql.NullTime
	err := row.Scan(&t.ID, &t.UserID, &t.TransactionType, &t.Status, &t.Amount, &t.Currency,
		&bookingID, &extRef, &t.Description, &t.CreatedAt, &t.UpdatedAt, &processedAt)
	if err != nil {
		return nil, err
	}
	t.BookingID = bookingID.String
	t.ExternalReference = extRef.String
	if processedAt.Valid {
		t.ProcessedAt = &processedAt.Time
	}
	return &t, nil
}

func (r *Repository) UpdateTransactionStatus(ctx context.Context, id, status string, processedAt *time.Time, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE findam_transactions SET status = $1, processed_at = $2, updated_at = $3 WHERE id = $4`,
		status, processedAt, now, id)
	return err
}

func (r *Repository) ListTransactionsByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := `SELECT ` + transactionColumns + ` FROM findam_transactions
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		var bookingID, extRef sql.NullString
		var processedAt sql.NullTime
		if err := rows.Scan(&t.ID, &t.UserID, &t.TransactionType, &t.Status, &t.Amount, &t.Currency,
			&bookingID, &extRef, &t.Description, &t.CreatedAt, &t.UpdatedAt, &processedAt); err != nil {
			return nil, err
		}
		t.BookingID = bookingID.String
		t.ExternalReference = extRef.String
		if processedAt.Valid {
			t.ProcessedAt = &processedAt.Time
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// --- payment methods ---

const methodColumns = `id, user_id, payment_type, is_default, is_verified, nickname,
	phone_number, operator, account_name, last_digits, bank_name, created_at, updated_at`

func (r *Repository) CreatePaymentMethod(ctx context.Context, m *models.PaymentMethod) error {
	query := `
		INSERT INTO findam_payment_methods (` + methodColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.UserID, m.PaymentType, m.IsDefault, m.IsVerified, m.Nickname,
		m.PhoneNumber, m.Operator, m.AccountName, m.LastDigits, m.BankName, m.CreatedAt, m.UpdatedAt)
	return err
}

func (r *Repository) ListPaymentMethods(ctx context.Context, userID string) ([]*models.PaymentMethod, error) {
	query := `SELECT ` + methodColumns + ` FROM findam_payment_methods WHERE user_id = $1 ORDER BY is_default DESC, created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.PaymentMethod
	for rows.Next() {
		m, err := scanMethodRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repository) GetPaymentMethod(ctx context.Context, id, userID string) (*models.PaymentMethod, error) {
	query := `SELECT ` + methodColumns + ` FROM findam_payment_methods WHERE id = $1 AND user_id = $2`
	rows, err := r.db.QueryContext(ctx, query, id, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}
	return scanMethodRow(rows)
}

func (r *Repository) GetDefaultPaymentMethod(ctx context.Context, userID string) (*models.PaymentMethod, error) {
	query := `SELECT ` + methodColumns + ` FROM findam_payment_methods WHERE user_id = $1 AND is_default = TRUE LIMIT 1`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}
	return scanMethodRow(rows)
}

func scanMethodRow(rows *sql.Rows) (*models.PaymentMethod, error) {
	var m models.PaymentMethod
	var nickname, phone, operator, accountName, lastDigits, bankName sql.NullString
	err := rows.Scan(&m.ID, &m.UserID, &m.PaymentType, &m.IsDefault, &m.IsVerified, &nickname,
		&phone, &operator, &accountName, &lastDigits, &bankName, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.Nickname = nickname.String
	m.PhoneNumber = phone.String
	m.Operator = operator.String
	m.AccountName = accountName.String
	m.LastDigits = lastDigits.String
	m.BankName = bankName.String
	return &m, nil
}

// ClearDefaultPaymentMethod unsets the current default before a new one is set.
func (r *Repository) ClearDefaultPaymentMethod(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE findam_payment_methods SET is_default = FALSE WHERE user_id = $1`, userID)
	return err
}

func (r *Repository) DeletePaymentMethod(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM findam_payment_methods WHERE id = $1 AND user_id = $2`, id, userID)
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

// --- commissions ---

func (r *Repository) CreateCommission(ctx context.Context, c *models.Commission) error {
	query := `
		INSERT INTO findam_commissions (id, booking_id, owner_amount, tenant_amount, total_amount, owner_rate, tenant_rate, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.BookingID, c.OwnerAmount, c.TenantAmount, c.TotalAmount, c.OwnerRate, c.TenantRate, c.CreatedAt)
	return err
}

// --- payouts ---

func (r *Repository) CreatePayout(ctx context.Context, p *models.Payout) error {
	query := `
		INSERT INTO findam_payouts (id, owner_id, amount, currency, payment_method_id, status, transaction_id, external_reference, period_start, period_end, notes, created_at, processed_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11, $12, $13)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.OwnerID, p.Amount, p.Currency, p.PaymentMethodID, p.Status, p.TransactionID,
		p.ExternalReference, p.PeriodStart, p.PeriodEnd, p.Notes, p.CreatedAt, p.ProcessedAt)
	return err
}

func (r *Repository) UpdatePayoutStatus(ctx context.Context, id, status, externalReference string, processedAt *time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE findam_payouts SET status = $1, external_reference = COALESCE(NULLIF($2, ''), external_reference), processed_at = $3 WHERE id = $4`,
		status, externalReference, processedAt, id)
	return err
}

func (r *Repository) ListPayoutsByOwner(ctx context.Context, ownerID string) ([]*models.Payout, error) {
	query := `
		SELECT id, owner_id, amount, currency, COALESCE(payment_method_id::text, ''), status,
			COALESCE(transaction_id::text, ''), COALESCE(external_reference, ''), period_start, period_end,
			COALESCE(notes, ''), created_at, processed_at
		FROM findam_payouts WHERE owner_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Payout
	for rows.Next() {
		var p models.Payout
		var processedAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Amount, &p.Currency, &p.PaymentMethodID, &p.Status,
			&p.TransactionID, &p.ExternalReference, &p.PeriodStart, &p.PeriodEnd,
			&p.Notes, &p.CreatedAt, &processedAt); err != nil {
			return nil, err
		}
		if processedAt.Valid {
			p.ProcessedAt = &processedAt.Time
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// OwnerEarning is the payout-eligible balance of one owner for a period.
type OwnerEarning struct {
	OwnerID string
	Amount  int64
}

// PendingOwnerEarnings sums, per owner, the base price plus cleaning fee of
// completed paid stays in the period, minus the owner-side commission already
// recorded, minus amounts already paid out.
func (r *Repository) PendingOwnerEarnings(ctx context.Context, periodStart, periodEnd time.Time) ([]*OwnerEarning, error) {
	query := `
		SELECT p.owner_id,
			SUM(b.base_price + b.cleaning_fee) - COALESCE(SUM(c.owner_amount), 0) AS amount
		FROM findam_bookings b
		JOIN findam_properties p ON p.id = b.property_id
		LEFT JOIN findam_commissions c ON c.booking_id = b.id
		WHERE b.status = 'completed'
		  AND b.payment_status = 'paid'
		  AND b.check_out_date >= $1 AND b.check_out_date < $2
		  AND NOT EXISTS (
			SELECT 1 FROM findam_payouts po
			WHERE po.owner_id = p.owner_id
			  AND po.period_start = $1 AND po.period_end = $2
			  AND po.status IN ('pending', 'processing', 'completed')
		  )
		GROUP BY p.owner_id
		HAVING SUM(b.base_price + b.cleaning_fee) - COALESCE(SUM(c.owner_amount), 0) > 0`
	rows, err := r.db.QueryContext(ctx, query, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*OwnerEarning
	for rows.Next() {
		var e OwnerEarning
		if err := rows.Scan(&e.OwnerID, &e.Amount); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

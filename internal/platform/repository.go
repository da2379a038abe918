package platform

import (
	"context"
	"database/sql"
	"time"

	"findam-backend/internal/models"
)

// Repository backs the system configuration key/value store.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetConfig(ctx context.Context, key string) (*models.SystemConfig, error) {
	query := `SELECT key, value, description, updated_at FROM findam_system_configs WHERE key = $1`
	var c models.SystemConfig
	err := r.db.QueryRowContext(ctx, query, key).Scan(&c.Key, &c.Value, &c.Description, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) ListConfigs(ctx context.Context) ([]*models.SystemConfig, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, value, description, updated_at FROM findam_system_configs ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.SystemConfig
	for rows.Next() {
		var c models.SystemConfig
		if err := rows.Scan(&c.Key, &c.Value, &c.Description, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *Repository) UpsertConfig(ctx context.Context, c *models.SystemConfig, at time.Time) error {
	query := `
		INSERT INTO findam_system_configs (key, value, description, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, description = EXCLUDED.description, updated_at = EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, query, c.Key, c.Value, c.Description, at)
	return err
}

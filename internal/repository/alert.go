package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocktrack/backend/internal/models"
)

type AlertRepo struct {
	pool *pgxpool.Pool
}

func NewAlertRepo(pool *pgxpool.Pool) *AlertRepo {
	return &AlertRepo{pool: pool}
}

func (r *AlertRepo) Add(ctx context.Context, a *models.PriceAlert) (*models.PriceAlert, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO price_alerts (id, user_id, ticker, upper_threshold, lower_threshold, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, user_id, ticker, upper_threshold, lower_threshold, is_active, created_at`,
		a.ID, a.UserID, a.Ticker, a.UpperThreshold, a.LowerThreshold, a.IsActive,
	)
	return scanAlert(row)
}

func (r *AlertRepo) ListByUser(ctx context.Context, userID string) ([]models.PriceAlert, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, ticker, upper_threshold, lower_threshold, is_active, created_at
		 FROM price_alerts WHERE user_id = $1 ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAlerts(rows)
}

func (r *AlertRepo) Get(ctx context.Context, id, userID string) (*models.PriceAlert, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_id, ticker, upper_threshold, lower_threshold, is_active, created_at
		 FROM price_alerts WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	a, err := scanAlert(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// ActiveByTicker feeds the alert evaluator: every active alert on the
// ticker, across all users.
func (r *AlertRepo) ActiveByTicker(ctx context.Context, ticker string) ([]models.PriceAlert, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, ticker, upper_threshold, lower_threshold, is_active, created_at
		 FROM price_alerts WHERE ticker = $1 AND is_active ORDER BY created_at ASC`,
		ticker,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAlerts(rows)
}

// Update rewrites thresholds and the active flag. Deactivating
// (is_active = false) is the soft delete.
func (r *AlertRepo) Update(ctx context.Context, a *models.PriceAlert) (*models.PriceAlert, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE price_alerts
		 SET upper_threshold = $3, lower_threshold = $4, is_active = $5
		 WHERE id = $1 AND user_id = $2
		 RETURNING id, user_id, ticker, upper_threshold, lower_threshold, is_active, created_at`,
		a.ID, a.UserID, a.UpperThreshold, a.LowerThreshold, a.IsActive,
	)
	updated, err := scanAlert(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return updated, err
}

func (r *AlertRepo) Remove(ctx context.Context, id, userID string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM price_alerts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanAlert(row scannable) (*models.PriceAlert, error) {
	var a models.PriceAlert
	err := row.Scan(&a.ID, &a.UserID, &a.Ticker, &a.UpperThreshold, &a.LowerThreshold, &a.IsActive, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func collectAlerts(rows pgx.Rows) ([]models.PriceAlert, error) {
	var out []models.PriceAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocktrack/backend/internal/models"
)

// StockRepo persists portfolio holdings. This is the server-side home of
// what the browser app kept in a per-user local-storage key.
type StockRepo struct {
	pool *pgxpool.Pool
}

func NewStockRepo(pool *pgxpool.Pool) *StockRepo {
	return &StockRepo{pool: pool}
}

func (r *StockRepo) Add(ctx context.Context, s *models.Stock) (*models.Stock, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO stocks (id, user_id, ticker, buy_date, buy_price, quantity)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, user_id, ticker, buy_date, buy_price, quantity, created_at`,
		s.ID, s.UserID, s.Ticker, s.BuyDate, s.BuyPrice, s.Quantity,
	)
	return scanStock(row)
}

func (r *StockRepo) ListByUser(ctx context.Context, userID string) ([]models.Stock, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, ticker, buy_date, buy_price, quantity, created_at
		 FROM stocks WHERE user_id = $1 ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStocks(rows)
}

func (r *StockRepo) Get(ctx context.Context, id, userID string) (*models.Stock, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_id, ticker, buy_date, buy_price, quantity, created_at
		 FROM stocks WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	s, err := scanStock(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *StockRepo) Update(ctx context.Context, s *models.Stock) (*models.Stock, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE stocks SET ticker = $3, buy_date = $4, buy_price = $5, quantity = $6
		 WHERE id = $1 AND user_id = $2
		 RETURNING id, user_id, ticker, buy_date, buy_price, quantity, created_at`,
		s.ID, s.UserID, s.Ticker, s.BuyDate, s.BuyPrice, s.Quantity,
	)
	updated, err := scanStock(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return updated, err
}

func (r *StockRepo) Remove(ctx context.Context, id, userID string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM stocks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Tickers returns the distinct tickers held across all users. This is the
// poll scheduler's ticker source, re-read at every tick.
func (r *StockRepo) Tickers(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT ticker FROM stocks ORDER BY ticker ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- scan helpers ---

type scannable interface {
	Scan(dest ...any) error
}

func scanStock(row scannable) (*models.Stock, error) {
	var s models.Stock
	var buyDate time.Time
	err := row.Scan(&s.ID, &s.UserID, &s.Ticker, &buyDate, &s.BuyPrice, &s.Quantity, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.BuyDate = buyDate
	return &s, nil
}

func collectStocks(rows pgx.Rows) ([]models.Stock, error) {
	var out []models.Stock
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

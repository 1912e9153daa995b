package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocktrack/backend/internal/models"
)

// QuoteHistoryRepo logs one row per poll refresh. The log backs the
// CSV/PDF export and the candle fallback used when the upstream plan
// blocks the candle endpoint.
type QuoteHistoryRepo struct {
	pool *pgxpool.Pool
}

func NewQuoteHistoryRepo(pool *pgxpool.Pool) *QuoteHistoryRepo {
	return &QuoteHistoryRepo{pool: pool}
}

func (r *QuoteHistoryRepo) Record(ctx context.Context, q models.Quote) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO quote_history (ticker, price, change, change_percent, volume, ts)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		q.Ticker, q.CurrentPrice, q.Change, q.ChangePercent, q.Volume, q.FetchedAt,
	)
	return err
}

// Range returns points for one ticker inside [from, to], oldest first.
func (r *QuoteHistoryRepo) Range(ctx context.Context, ticker string, from, to time.Time) ([]models.QuotePoint, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, ticker, price, change, change_percent, volume, ts
		 FROM quote_history
		 WHERE ticker = $1 AND ts BETWEEN $2 AND $3
		 ORDER BY ts ASC`,
		ticker, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPoints(rows)
}

// Since returns points for a set of tickers newer than the cutoff,
// oldest first. Feeds the export path.
func (r *QuoteHistoryRepo) Since(ctx context.Context, tickers []string, cutoff time.Time) ([]models.QuotePoint, error) {
	if len(tickers) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, ticker, price, change, change_percent, volume, ts
		 FROM quote_history
		 WHERE ticker = ANY($1) AND ts >= $2
		 ORDER BY ts ASC`,
		tickers, cutoff,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPoints(rows)
}

func collectPoints(rows pgx.Rows) ([]models.QuotePoint, error) {
	var out []models.QuotePoint
	for rows.Next() {
		var p models.QuotePoint
		if err := rows.Scan(&p.ID, &p.Ticker, &p.Price, &p.Change, &p.ChangePercent, &p.Volume, &p.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

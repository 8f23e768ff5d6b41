package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trenchwatch/engine/internal/domain"
)

// AlertStore implements domain.AlertLogStore using PostgreSQL.
type AlertStore struct {
	pool *pgxpool.Pool
}

// NewAlertStore creates a new AlertStore backed by the given connection pool.
func NewAlertStore(pool *pgxpool.Pool) *AlertStore {
	return &AlertStore{pool: pool}
}

const alertSelectCols = `id, token_id, symbol, contract, buy_count, buyer_count,
	net_flow_sol, delivered, failed, message_len, created_at`

func scanAlertRows(rows pgx.Rows) ([]domain.AlertRecord, error) {
	var records []domain.AlertRecord
	for rows.Next() {
		var r domain.AlertRecord
		if err := rows.Scan(
			&r.ID, &r.TokenID, &r.Symbol, &r.Contract,
			&r.BuyCount, &r.BuyerCount, &r.NetFlowSOL,
			&r.Delivered, &r.Failed, &r.MessageLen, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Insert appends one alert record to the audit log.
func (s *AlertStore) Insert(ctx context.Context, rec domain.AlertRecord) error {
	const query = `
		INSERT INTO alert_log (
			id, token_id, symbol, contract, buy_count, buyer_count,
			net_flow_sol, delivered, failed, message_len, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.TokenID, rec.Symbol, rec.Contract,
		rec.BuyCount, rec.BuyerCount, rec.NetFlowSOL,
		rec.Delivered, rec.Failed, rec.MessageLen, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert alert %s: %w", rec.ID, err)
	}
	return nil
}

// ListOlder returns up to limit alert records created before cutoff, oldest
// first, for archival.
func (s *AlertStore) ListOlder(ctx context.Context, cutoff time.Time, limit int) ([]domain.AlertRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM alert_log WHERE created_at < $1 ORDER BY created_at ASC LIMIT $2`, alertSelectCols)

	rows, err := s.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list alerts before %v: %w", cutoff, err)
	}
	defer rows.Close()

	records, err := scanAlertRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan alerts: %w", err)
	}
	return records, nil
}

// DeleteOlder removes alert records created before cutoff and returns the
// number deleted.
func (s *AlertStore) DeleteOlder(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM alert_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete alerts before %v: %w", cutoff, err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.AlertLogStore = (*AlertStore)(nil)

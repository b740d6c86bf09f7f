package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hongminglow/sales-dashboard-be/internal/models"
)

// AppendSyncLog records one sync attempt.
func (s *Store) AppendSyncLog(ctx context.Context, entry models.SyncLog) (models.SyncLog, error) {
	const query = `
		INSERT INTO sync_logs (rows_count, status, message)
		VALUES ($1, $2, NULLIF($3, ''))
		RETURNING id, rows_count, status, COALESCE(message, ''), synced_at`
	var out models.SyncLog
	err := s.pool.QueryRow(ctx, query, entry.RowsCount, entry.Status, entry.Message).
		Scan(&out.ID, &out.RowsCount, &out.Status, &out.Message, &out.SyncedAt)
	if err != nil {
		return models.SyncLog{}, fmt.Errorf("insert sync log: %w", err)
	}
	return out, nil
}

// RecentSyncLogs returns the newest entries first.
func (s *Store) RecentSyncLogs(ctx context.Context, limit int) ([]models.SyncLog, error) {
	const query = `
		SELECT id, rows_count, status, COALESCE(message, ''), synced_at
		FROM sync_logs
		ORDER BY synced_at DESC, id DESC
		LIMIT $1`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query sync logs: %w", err)
	}
	logs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.SyncLog, error) {
		var l models.SyncLog
		err := row.Scan(&l.ID, &l.RowsCount, &l.Status, &l.Message, &l.SyncedAt)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan sync logs: %w", err)
	}
	return logs, nil
}

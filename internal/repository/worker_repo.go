package repository

import (
	"context"
	"database/sql"
	"fmt"

	"pv_informant/internal/models"
)

type WorkerSQLite struct {
	db *sql.DB
}

func NewWorkerSQLite(db *sql.DB) *WorkerSQLite { return &WorkerSQLite{db: db} }

var _ WorkerRepo = (*WorkerSQLite)(nil)

const (
	upsertWorkerSQL = `
		INSERT INTO workers (address, registered_at_ns, last_wake_ns)
		VALUES (?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			last_wake_ns=excluded.last_wake_ns
	`

	selectWorkersSQL = `SELECT address, registered_at_ns, last_wake_ns FROM workers ORDER BY address ASC`
)

// Save inserts the worker or updates its last wake time. registered_at is
// written once.
func (r *WorkerSQLite) Save(ctx context.Context, w models.Worker) error {
	var lastWake sql.NullInt64
	if w.LastWakeTime != nil {
		lastWake = sql.NullInt64{Int64: toNanos(*w.LastWakeTime), Valid: true}
	}
	if _, err := r.db.ExecContext(ctx, upsertWorkerSQL, w.Address, toNanos(w.RegisteredAt), lastWake); err != nil {
		return fmt.Errorf("upsert worker %s: %w", w.Address, err)
	}
	return nil
}

func (r *WorkerSQLite) List(ctx context.Context) ([]models.Worker, error) {
	rows, err := r.db.QueryContext(ctx, selectWorkersSQL)
	if err != nil {
		return nil, fmt.Errorf("select workers: %w", err)
	}
	defer rows.Close()

	var out []models.Worker
	for rows.Next() {
		var (
			w          models.Worker
			registered int64
			lastWake   sql.NullInt64
		)
		if err := rows.Scan(&w.Address, &registered, &lastWake); err != nil {
			return nil, fmt.Errorf("scan worker: %w", err)
		}
		w.RegisteredAt = fromNanos(registered)
		if lastWake.Valid {
			t := fromNanos(lastWake.Int64)
			w.LastWakeTime = &t
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workers: %w", err)
	}
	return out, nil
}

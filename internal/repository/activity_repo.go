package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pv_informant/internal/models"

	"github.com/google/uuid"
)

type ActivitySQLite struct {
	db *sql.DB
}

func NewActivitySQLite(db *sql.DB) *ActivitySQLite { return &ActivitySQLite{db: db} }

var _ ActivityRepo = (*ActivitySQLite)(nil)

const (
	insertActivitySQL = `
		INSERT INTO worker_activity (event_id, ts_ns, address, status)
		VALUES (?, ?, ?, ?)
	`

	selectActivitySQL = `
		SELECT event_id, ts_ns, address, status FROM worker_activity
		WHERE address = ? AND ts_ns >= ? AND ts_ns <= ?
		ORDER BY ts_ns ASC, seq ASC
	`

	selectActivityBeforeSQL = `
		SELECT event_id, ts_ns, address, status FROM worker_activity
		WHERE address = ? AND ts_ns <= ?
		ORDER BY ts_ns DESC, seq DESC LIMIT 1
	`

	// seq is monotonic, so max(seq) per address is its newest report
	selectLastPerAddressSQL = `
		SELECT a.event_id, a.ts_ns, a.address, a.status FROM worker_activity a
		JOIN (SELECT address, MAX(seq) AS seq FROM worker_activity GROUP BY address) l
		ON a.seq = l.seq
	`
)

// Append inserts a new event. If EventID or Timestamp are empty, they are set.
func (r *ActivitySQLite) Append(ctx context.Context, e models.ActivityEvent) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, insertActivitySQL,
		e.EventID,
		toNanos(e.Timestamp),
		e.Address,
		e.Status,
	)
	if err != nil {
		return fmt.Errorf("insert activity for %s: %w", e.Address, err)
	}
	return nil
}

// List returns the events of address within [from, to], oldest first.
func (r *ActivitySQLite) List(ctx context.Context, address string, from, to time.Time) ([]models.ActivityEvent, error) {
	rows, err := r.db.QueryContext(ctx, selectActivitySQL, address, toNanos(from), toNanos(to))
	if err != nil {
		return nil, fmt.Errorf("select activity for %s: %w", address, err)
	}
	defer rows.Close()

	out := make([]models.ActivityEvent, 0, 64)
	for rows.Next() {
		e, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity for %s: %w", address, err)
	}
	return out, nil
}

// LastBefore returns the newest event of address at or before t. Returns (nil, nil) if none.
func (r *ActivitySQLite) LastBefore(ctx context.Context, address string, t time.Time) (*models.ActivityEvent, error) {
	e, err := scanActivity(r.db.QueryRowContext(ctx, selectActivityBeforeSQL, address, toNanos(t)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *ActivitySQLite) LastPerAddress(ctx context.Context) (map[string]models.ActivityEvent, error) {
	rows, err := r.db.QueryContext(ctx, selectLastPerAddressSQL)
	if err != nil {
		return nil, fmt.Errorf("select last activity: %w", err)
	}
	defer rows.Close()

	out := make(map[string]models.ActivityEvent)
	for rows.Next() {
		e, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out[e.Address] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate last activity: %w", err)
	}
	return out, nil
}

func scanActivity(s scanner) (models.ActivityEvent, error) {
	var (
		e  models.ActivityEvent
		ns int64
	)
	if err := s.Scan(&e.EventID, &ns, &e.Address, &e.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ActivityEvent{}, err
		}
		return models.ActivityEvent{}, fmt.Errorf("scan activity: %w", err)
	}
	e.Timestamp = fromNanos(ns)
	return e, nil
}

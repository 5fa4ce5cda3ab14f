package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pv_informant/internal/models"
)

type ReadingSQLite struct {
	db *sql.DB
}

func NewReadingSQLite(db *sql.DB) *ReadingSQLite {
	return &ReadingSQLite{db: db}
}

var _ ReadingRepo = (*ReadingSQLite)(nil)

const (
	insertReadingSQL = `
		INSERT INTO pv_readings (ts_ns, battery_voltage, pv_voltage, pv_current, temperature)
		VALUES (?, ?, ?, ?, ?)
	`

	selectReadingsSQL = `
		SELECT ts_ns, battery_voltage, pv_voltage, pv_current, temperature
		FROM pv_readings WHERE ts_ns >= ? AND ts_ns <= ?
		ORDER BY ts_ns ASC, seq ASC
	`

	selectLatestReadingSQL = `
		SELECT ts_ns, battery_voltage, pv_voltage, pv_current, temperature
		FROM pv_readings WHERE ts_ns >= ?
		ORDER BY ts_ns DESC, seq DESC LIMIT 1
	`
)

// Append stores a reading. Validation happens at ingestion; only the
// timestamp range is rechecked here since ts_ns cannot hold anything else.
func (r *ReadingSQLite) Append(ctx context.Context, rd models.Reading) error {
	if !models.Storable(rd.Timestamp) {
		return fmt.Errorf("insert reading at %s: %w", rd.Timestamp.UTC().Format(time.RFC3339), errUnstorableTime)
	}
	_, err := r.db.ExecContext(ctx, insertReadingSQL,
		toNanos(rd.Timestamp),
		rd.BatteryVoltage,
		rd.PVVoltage,
		rd.PVCurrent,
		rd.Temperature,
	)
	if err != nil {
		return fmt.Errorf("insert reading at %s: %w", rd.Timestamp.UTC().Format(time.RFC3339), err)
	}
	return nil
}

// List returns readings in [from, to] (inclusive), oldest first.
func (r *ReadingSQLite) List(ctx context.Context, from, to time.Time) ([]models.Reading, error) {
	rows, err := r.db.QueryContext(ctx, selectReadingsSQL, toNanos(from), toNanos(to))
	if err != nil {
		return nil, fmt.Errorf("select readings: %w", err)
	}
	defer rows.Close()

	out := make([]models.Reading, 0, 64)
	for rows.Next() {
		rd, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate readings: %w", err)
	}
	return out, nil
}

// Latest returns the newest reading at or after since. Returns (nil, nil) if none.
func (r *ReadingSQLite) Latest(ctx context.Context, since time.Time) (*models.Reading, error) {
	row := r.db.QueryRowContext(ctx, selectLatestReadingSQL, toNanos(since))
	rd, err := scanReading(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rd, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReading(s scanner) (models.Reading, error) {
	var (
		rd models.Reading
		ns int64
	)
	if err := s.Scan(&ns, &rd.BatteryVoltage, &rd.PVVoltage, &rd.PVCurrent, &rd.Temperature); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Reading{}, err
		}
		return models.Reading{}, fmt.Errorf("scan reading: %w", err)
	}
	rd.Timestamp = fromNanos(ns)
	return rd, nil
}

package service

import (
	"fmt"
	"time"

	"pv_informant/internal/models"
)

// DefaultMaxRange caps history queries.
const DefaultMaxRange = 20 * 24 * time.Hour

// RangeParams selects the window [From, To] of a history query.
type RangeParams struct {
	From time.Time
	To   time.Time
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeAndValidateRange converts both ends to UTC and rejects missing
// ends, From after To, and windows longer than maxRange (0 disables the cap).
func normalizeAndValidateRange(p RangeParams, maxRange time.Duration) (RangeParams, error) {
	from := normalizeToUTC(p.From)
	to := normalizeToUTC(p.To)

	if from.IsZero() || to.IsZero() {
		return RangeParams{}, fmt.Errorf("%w: from and to are required", models.ErrInvalidRange)
	}
	if !models.Storable(from) || !models.Storable(to) {
		return RangeParams{}, fmt.Errorf("%w: times must lie between %s and %s", models.ErrInvalidRange,
			models.MinStorableTime.Format(time.RFC3339), models.MaxStorableTime.Format(time.RFC3339))
	}
	if from.After(to) {
		return RangeParams{}, fmt.Errorf("%w: from %s is after to %s", models.ErrInvalidRange,
			from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	if maxRange > 0 && to.Sub(from) > maxRange {
		return RangeParams{}, fmt.Errorf("%w: %s exceeds the maximum of %s", models.ErrInvalidRange, to.Sub(from), maxRange)
	}
	return RangeParams{From: from, To: to}, nil
}

// storageErr marks err as a storage failure unless it is nil.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", models.ErrStorageUnavailable, op, err)
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pv_informant/internal/models"
)

// Authorization stores operator credentials.
type Authorization interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// ReadingRepo is the time-series store of PV samples.
type ReadingRepo interface {
	Append(ctx context.Context, r models.Reading) error
	// List returns readings in [from, to] ordered by timestamp, ties in arrival order.
	List(ctx context.Context, from, to time.Time) ([]models.Reading, error)
	// Latest returns the newest reading not older than since, or nil.
	Latest(ctx context.Context, since time.Time) (*models.Reading, error)
}

// ActivityRepo is the append-only log of worker reports.
type ActivityRepo interface {
	Append(ctx context.Context, e models.ActivityEvent) error
	List(ctx context.Context, address string, from, to time.Time) ([]models.ActivityEvent, error)
	// LastBefore returns the newest event of address at or before t, or nil.
	LastBefore(ctx context.Context, address string, t time.Time) (*models.ActivityEvent, error)
	// LastPerAddress returns the newest event of every address that ever reported.
	LastPerAddress(ctx context.Context) (map[string]models.ActivityEvent, error)
}

// WorkerRepo persists registered workers. Report state is derived from the
// activity log, so only registration and wake times live here.
type WorkerRepo interface {
	Save(ctx context.Context, w models.Worker) error
	List(ctx context.Context) ([]models.Worker, error)
}

type Repository struct {
	Readings ReadingRepo
	Activity ActivityRepo
	Workers  WorkerRepo
	Auth     Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Readings: NewReadingSQLite(db),
		Activity: NewActivitySQLite(db),
		Workers:  NewWorkerSQLite(db),
		Auth:     NewUserRepository(db),
	}
}

var errUnstorableTime = errors.New("timestamp outside the unix-nanosecond range")

// toNanos and fromNanos convert between time.Time and the ts_ns columns.
func toNanos(t time.Time) int64 { return t.UTC().UnixNano() }

func fromNanos(ns int64) time.Time { return time.Unix(0, ns).UTC() }

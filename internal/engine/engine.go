package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lifeline/internal/backend"
	"lifeline/internal/config"
	"lifeline/internal/domain"
	"lifeline/internal/events"
	"lifeline/internal/repo"
)

// Engine is the SQLite-backed persistence service.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Log    *slog.Logger
	Now    func() time.Time
}

var _ backend.Service = Engine{}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e Engine) log() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (e Engine) events() events.Writer {
	w := e.Events
	w.Now = e.now
	return w
}

func (e Engine) defaults() config.Defaults {
	if e.Config == nil {
		return config.Default().Defaults
	}
	return e.Config.Defaults
}

func newID() string {
	return uuid.NewString()
}

// parent maps a missing parent row to a validation error.
func parent(err error, field, kind, id string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Invalid(field, "%s %s does not exist", kind, id)
	}
	return fmt.Errorf("load %s: %w", kind, err)
}

// applyStatus sets status and keeps completed_at in step with it.
func applyStatus(t *domain.Task, to string, now time.Time) {
	if to == domain.TaskDone && t.CompletedAt == nil {
		t.CompletedAt = &now
	}
	if to != domain.TaskDone {
		t.CompletedAt = nil
	}
	t.Status = to
}

// LatestEvents returns activity, newest first.
func (e Engine) LatestEvents(ctx context.Context, f repo.EventFilters) ([]domain.Event, error) {
	return e.Repo.LatestEvents(ctx, f)
}

// EventsAfter returns activity after cursor, oldest first.
func (e Engine) EventsAfter(ctx context.Context, cursor int64, limit int) ([]domain.Event, error) {
	return e.Repo.EventsAfter(ctx, cursor, limit)
}

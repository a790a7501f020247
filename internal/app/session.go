// Package app wires a backend, the hierarchy store and the board controller
// from workspace configuration.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"lifeline/internal/backend"
	"lifeline/internal/board"
	"lifeline/internal/config"
	"lifeline/internal/db"
	"lifeline/internal/engine"
	"lifeline/internal/hierarchy"
	"lifeline/internal/migrate"
	"lifeline/internal/view"
)

type Mode int

const (
	ModeLocal Mode = iota
	ModeRemote
	ModeMemory
)

func (m Mode) String() string {
	switch m {
	case ModeRemote:
		return "remote"
	case ModeMemory:
		return "memory"
	default:
		return "local"
	}
}

type Options struct {
	Workspace string
	// Server selects the remote backend when set.
	Server string
	Token  string
	Memory bool
	Config *config.Config
	Logger *slog.Logger
}

func (o Options) mode() Mode {
	switch {
	case strings.TrimSpace(o.Server) != "":
		return ModeRemote
	case o.Memory:
		return ModeMemory
	default:
		return ModeLocal
	}
}

// Session holds the wired components for one CLI invocation.
type Session struct {
	Mode    Mode
	Config  *config.Config
	Log     *slog.Logger
	Service backend.Service
	Store   *hierarchy.Store
	Board   *board.Controller

	// Engine is set in local mode only.
	Engine *engine.Engine
	conn   *sql.DB
}

// Open builds a session. Nothing is loaded from the backend yet.
func Open(ctx context.Context, opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		if cfg, err = config.LoadOptional(opts.Workspace); err != nil {
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Session{Mode: opts.mode(), Config: cfg, Log: logger}

	switch s.Mode {
	case ModeRemote:
		s.Service = backend.NewRemote(opts.Server, opts.Token)
	case ModeMemory:
		s.Service = backend.NewMemory()
	default:
		e, conn, err := OpenEngine(ctx, opts.Workspace, cfg, logger)
		if err != nil {
			return nil, err
		}
		s.Engine = &e
		s.conn = conn
		s.Service = e
	}
	logger.Debug("session opened", "mode", s.Mode.String())

	s.Store = hierarchy.New(s.Service, hierarchy.WithLogger(logger))
	s.Board = board.New(s.Store, board.WithLogger(logger), board.WithColumns(cfg.Board.Columns...))
	return s, nil
}

// OpenEngine opens and migrates the workspace database.
func OpenEngine(ctx context.Context, workspace string, cfg *config.Config, logger *slog.Logger) (engine.Engine, *sql.DB, error) {
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return engine.Engine{}, nil, fmt.Errorf("open database: %w", err)
	}
	applied, err := migrate.Migrate(ctx, conn)
	if err != nil {
		conn.Close()
		return engine.Engine{}, nil, fmt.Errorf("migrate: %w", err)
	}
	if applied > 0 && logger != nil {
		logger.Info("applied migrations", "count", applied, "path", db.Path(workspace))
	}
	e := engine.New(conn, cfg)
	if logger != nil {
		e.Log = logger
	}
	return e, conn, nil
}

func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Sort returns the configured default board sort.
func (s *Session) Sort() view.Sort {
	return SortFromConfig(s.Config)
}

func SortFromConfig(cfg *config.Config) view.Sort {
	sort := view.DefaultSort()
	if cfg == nil {
		return sort
	}
	if f, err := view.ParseField(cfg.Board.Sort); err == nil {
		sort.Field = f
	}
	if cfg.Board.Direction == "" {
		return sort
	}
	if d, err := view.ParseDirection(cfg.Board.Direction); err == nil {
		sort.Direction = d
	}
	return sort
}

// NewLogger builds a slog logger from level and format names.
func NewLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
}

package repo_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"lifeline/internal/db"
	"lifeline/internal/domain"
	"lifeline/internal/events"
	"lifeline/internal/migrate"
	"lifeline/internal/repo"
)

func openRepo(t *testing.T) (repo.Repo, *sql.DB) {
	t.Helper()
	conn, err := db.Open(db.Config{Memory: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if _, err := migrate.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo.Repo{DB: conn}, conn
}

func inTx(t *testing.T, conn *sql.DB, fn func(tx *sql.Tx) error) {
	t.Helper()
	tx, err := conn.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		t.Fatalf("tx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func seedRows(t *testing.T, r repo.Repo, conn *sql.DB, statuses ...string) (domain.Persona, domain.Workstream) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	p := domain.Persona{ID: "p1", Name: "Work", Color: "#123456", IsActive: true, CreatedAt: now, UpdatedAt: now}
	ws := domain.Workstream{ID: "w1", PersonaID: p.ID, Name: "Launch", Status: "active", Priority: "high", CreatedAt: now, UpdatedAt: now}
	inTx(t, conn, func(tx *sql.Tx) error {
		if err := r.InsertPersona(ctx, tx, p); err != nil {
			return err
		}
		if err := r.InsertWorkstream(ctx, tx, ws); err != nil {
			return err
		}
		for i, s := range statuses {
			created := now.Add(time.Duration(i) * time.Minute)
			task := domain.Task{
				ID:           string(rune('a' + i)),
				WorkstreamID: ws.ID,
				Title:        "task",
				Status:       s,
				Priority:     "medium",
				CreatedAt:    created,
				UpdatedAt:    created,
			}
			if err := r.InsertTask(ctx, tx, task); err != nil {
				return err
			}
		}
		return nil
	})
	return p, ws
}

func TestTaskReadsAreJoinedAndNormalized(t *testing.T) {
	r, conn := openRepo(t)
	ctx := context.Background()
	seedRows(t, r, conn, `"In Progress"`, "todo", "DONE")

	tasks, err := r.ListTasks(ctx, repo.TaskFilters{WorkstreamID: "w1"})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	if tasks[0].ID != "c" || tasks[2].ID != "a" {
		t.Fatalf("expected newest first, got %s..%s", tasks[0].ID, tasks[2].ID)
	}
	if tasks[2].Status != domain.TaskInProgress || tasks[0].Status != domain.TaskDone {
		t.Fatalf("statuses not normalized: %q %q", tasks[2].Status, tasks[0].Status)
	}
	if tasks[0].WorkstreamName != "Launch" || tasks[0].PersonaID != "p1" || tasks[0].PersonaColor != "#123456" {
		t.Fatalf("join fields missing: %+v", tasks[0])
	}

	limited, err := r.ListTasks(ctx, repo.TaskFilters{PersonaID: "p1", Limit: 2})
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected limit 2, got %d", len(limited))
	}

	raw, err := r.CountTasksByStatus(ctx, "w1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if raw["DONE"] != 1 || raw[`"In Progress"`] != 1 {
		t.Fatalf("expected raw keys, got %v", raw)
	}
}

func TestNotFoundAndForeignKeyCascade(t *testing.T) {
	r, conn := openRepo(t)
	ctx := context.Background()
	if _, err := r.GetTask(ctx, "missing"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if !errors.Is(repo.ErrNotFound, domain.ErrNotFound) {
		t.Fatal("repo.ErrNotFound should be domain.ErrNotFound")
	}
	seedRows(t, r, conn, "todo", "todo")

	n, err := r.CountTasksForPersona(ctx, nil, "p1")
	if err != nil || n != 2 {
		t.Fatalf("expected 2 persona tasks, got %d %v", n, err)
	}
	inTx(t, conn, func(tx *sql.Tx) error { return r.DeletePersona(ctx, tx, "p1") })

	ws, err := r.ListWorkstreams(ctx, "")
	if err != nil || len(ws) != 0 {
		t.Fatalf("expected workstreams cascaded away, got %d %v", len(ws), err)
	}
	tasks, err := r.ListTasks(ctx, repo.TaskFilters{})
	if err != nil || len(tasks) != 0 {
		t.Fatalf("expected tasks cascaded away, got %d %v", len(tasks), err)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()
	if err := r.DeleteTask(ctx, tx, "a"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found deleting twice, got %v", err)
	}
}

func TestEventsPaging(t *testing.T) {
	r, conn := openRepo(t)
	ctx := context.Background()
	w := events.Writer{DB: conn}
	inTx(t, conn, func(tx *sql.Tx) error {
		for _, typ := range []string{events.PersonaCreated, events.TaskCreated, events.TaskStatusUpdated} {
			if err := w.Append(ctx, tx, typ, "task", "t1", events.Payload{"k": typ}); err != nil {
				return err
			}
		}
		return nil
	})

	latest, err := r.LatestEvents(ctx, repo.EventFilters{EntityKind: "task", Limit: 2})
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(latest) != 2 || latest[0].Type != events.TaskStatusUpdated {
		t.Fatalf("unexpected latest %+v", latest)
	}
	older, err := r.LatestEvents(ctx, repo.EventFilters{Before: latest[1].ID})
	if err != nil || len(older) != 1 || older[0].Type != events.PersonaCreated {
		t.Fatalf("unexpected older page %+v %v", older, err)
	}
	after, err := r.EventsAfter(ctx, older[0].ID, 0)
	if err != nil || len(after) != 2 || after[0].Type != events.TaskCreated {
		t.Fatalf("unexpected events after %+v %v", after, err)
	}
}

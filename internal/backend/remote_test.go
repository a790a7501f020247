package backend_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeline/internal/backend"
	"lifeline/internal/cascade"
	"lifeline/internal/config"
	"lifeline/internal/db"
	"lifeline/internal/domain"
	"lifeline/internal/engine"
	"lifeline/internal/migrate"
	"lifeline/internal/server"
)

func newRemote(t *testing.T) backend.Remote {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = migrate.Migrate(context.Background(), conn)
	require.NoError(t, err)
	handler, err := server.New(server.Config{Engine: engine.New(conn, config.Default()), BasePath: "/v0"})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return backend.NewRemote(srv.URL, "")
}

func TestRemoteRoundTrip(t *testing.T) {
	r := newRemote(t)
	ctx := context.Background()

	p, err := r.CreatePersona(ctx, domain.PersonaInput{Name: "Work"})
	require.NoError(t, err)
	ws, err := r.CreateWorkstream(ctx, domain.WorkstreamInput{PersonaID: p.ID, Name: "Launch", Priority: "High"})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityHigh, ws.Priority)
	task, err := r.CreateTask(ctx, domain.TaskInput{WorkstreamID: ws.ID, Title: "Write copy"})
	require.NoError(t, err)

	moved, err := r.UpdateTaskStatus(ctx, task.ID, "In Progress")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskInProgress, moved.Status)

	title := "Write launch copy"
	updated, err := r.UpdateTask(ctx, task.ID, domain.TaskPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, domain.TaskInProgress, updated.Status)

	counts, err := r.TaskCountsByStatus(ctx, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[domain.TaskInProgress])
	assert.Contains(t, counts, domain.TaskBacklog)

	board, err := r.BoardTasks(ctx, ws.ID, []string{"inprogress", "review"})
	require.NoError(t, err)
	require.Len(t, board, 1)

	deps, err := r.CheckPersonaDependencies(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, deps.WorkstreamCount)
	assert.Equal(t, 1, deps.TaskCount)

	// Remote deletes always cascade; gating happens in the caller.
	msg, err := r.DeletePersona(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, `persona "Work" deleted along with 1 workstream(s) and 1 task(s)`, msg)
}

func TestRemoteMapsErrors(t *testing.T) {
	r := newRemote(t)
	ctx := context.Background()

	_, err := r.CreateTask(ctx, domain.TaskInput{WorkstreamID: "nope", Title: "x"})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	_, err = r.UpdateTaskStatus(ctx, "nope", "done")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = r.CheckWorkstreamDependencies(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemoteServerRefusesUnacknowledgedCascade(t *testing.T) {
	r := newRemote(t)
	ctx := context.Background()
	p, err := r.CreatePersona(ctx, domain.PersonaInput{Name: "Side"})
	require.NoError(t, err)
	_, err = r.CreateWorkstream(ctx, domain.WorkstreamInput{PersonaID: p.ID, Name: "Blog"})
	require.NoError(t, err)

	_, err = r.Client.DeletePersona(ctx, p.ID, false)
	require.Error(t, err)
	var blocked *cascade.BlockedError
	mapped := backend.RemoteError(err)
	require.ErrorAs(t, mapped, &blocked)
	assert.Equal(t, cascade.Persona, blocked.Kind)
	assert.Equal(t, 1, blocked.Deps.WorkstreamCount)
	assert.ErrorIs(t, mapped, cascade.ErrCascadeRequired)
}

func TestRemoteCountsFoldRawKeys(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/tasks/counts", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"counts":{"\"In Progress\"":2,"inprogress":1,"TODO":4}}`)
	}))
	t.Cleanup(srv.Close)

	counts, err := backend.NewRemote(srv.URL, "").TaskCountsByStatus(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 3, counts[domain.TaskInProgress])
	assert.Equal(t, 4, counts[domain.TaskTodo])
	assert.Equal(t, 0, counts[domain.TaskDone])
	assert.Len(t, counts, 5)
}

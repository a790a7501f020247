package hierarchy

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeline/internal/backend"
	"lifeline/internal/cascade"
	"lifeline/internal/domain"
	"lifeline/internal/flow"
)

type env struct {
	mem   *backend.Memory
	store *Store
	calls atomic.Int32
	ctx   context.Context
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{mem: backend.NewMemory(), ctx: context.Background()}
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	var tick atomic.Int64
	e.mem.Now = func() time.Time { return base.Add(time.Duration(tick.Add(1)) * time.Second) }
	e.mem.Hook = func(context.Context, string) error {
		e.calls.Add(1)
		return nil
	}
	e.store = New(e.mem)
	require.NoError(t, e.store.Load(e.ctx))
	return e
}

func strPtr(s string) *string { return &s }

func (e *env) seed(t *testing.T) (domain.Persona, domain.Workstream, domain.Task) {
	t.Helper()
	p, err := e.store.CreatePersona(e.ctx, domain.PersonaInput{Name: "Work", Color: "#ff0000"})
	require.NoError(t, err)
	ws, err := e.store.CreateWorkstream(e.ctx, domain.WorkstreamInput{PersonaID: p.ID, Name: "Launch"})
	require.NoError(t, err)
	task, err := e.store.CreateTask(e.ctx, domain.TaskInput{WorkstreamID: ws.ID, Title: "Write brief"})
	require.NoError(t, err)
	return p, ws, task
}

func TestLoadState(t *testing.T) {
	e := newEnv(t)
	st := e.store.State()
	assert.Equal(t, flow.Loaded, st.Phase())
	loads, _ := st.Data()
	assert.Equal(t, 1, loads)

	e.mem.Hook = func(context.Context, string) error { return errors.New("offline") }
	err := e.store.Load(e.ctx)
	require.Error(t, err)
	assert.Equal(t, flow.Failed, e.store.State().Phase())
}

func TestCreatePrependsAndDecorates(t *testing.T) {
	e := newEnv(t)
	p, ws, task := e.seed(t)

	assert.Equal(t, "Work", ws.PersonaName)
	assert.Equal(t, "#ff0000", ws.PersonaColor)
	assert.Equal(t, "Launch", task.WorkstreamName)
	assert.Equal(t, p.ID, task.PersonaID)
	assert.Equal(t, domain.TaskTodo, task.Status)
	assert.Equal(t, domain.PriorityMedium, task.Priority)
	assert.Equal(t, domain.WorkstreamPlanning, ws.Status)

	second, err := e.store.CreateTask(e.ctx, domain.TaskInput{WorkstreamID: ws.ID, Title: "Ship"})
	require.NoError(t, err)
	tasks := e.store.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, second.ID, tasks[0].ID)
	assert.Equal(t, task.ID, tasks[1].ID)
}

func TestValidationHappensBeforeServiceCall(t *testing.T) {
	e := newEnv(t)
	before := e.calls.Load()

	_, err := e.store.CreatePersona(e.ctx, domain.PersonaInput{Name: "   "})
	assert.True(t, domain.IsValidation(err))

	_, err = e.store.CreateWorkstream(e.ctx, domain.WorkstreamInput{PersonaID: "missing", Name: "X"})
	assert.True(t, domain.IsValidation(err))

	_, err = e.store.CreateTask(e.ctx, domain.TaskInput{WorkstreamID: "", Title: "X"})
	assert.True(t, domain.IsValidation(err))

	_, err = e.store.CreateTask(e.ctx, domain.TaskInput{WorkstreamID: "ws", Title: "X", Status: "someday"})
	assert.True(t, domain.IsValidation(err))

	assert.Equal(t, before, e.calls.Load())
}

func TestUpdateReplacesInPlaceAndRefreshesDerived(t *testing.T) {
	e := newEnv(t)
	p, ws, task := e.seed(t)
	_, err := e.store.CreatePersona(e.ctx, domain.PersonaInput{Name: "Home"})
	require.NoError(t, err)

	updated, err := e.store.UpdatePersona(e.ctx, p.ID, domain.PersonaPatch{Name: strPtr("Job"), Color: strPtr("#00ff00")})
	require.NoError(t, err)
	assert.Equal(t, "Job", updated.Name)

	personas := e.store.Personas()
	require.Len(t, personas, 2)
	assert.Equal(t, p.ID, personas[1].ID, "position preserved")

	gotWS, _ := e.store.Workstream(ws.ID)
	assert.Equal(t, "Job", gotWS.PersonaName)
	assert.Equal(t, "#00ff00", gotWS.PersonaColor)
	gotTask, _ := e.store.Task(task.ID)
	assert.Equal(t, "#00ff00", gotTask.PersonaColor)

	_, err = e.store.UpdateWorkstream(e.ctx, ws.ID, domain.WorkstreamPatch{Name: strPtr("Relaunch"), Status: strPtr(`"Active"`)})
	require.NoError(t, err)
	gotWS, _ = e.store.Workstream(ws.ID)
	assert.Equal(t, domain.WorkstreamActive, gotWS.Status)
	gotTask, _ = e.store.Task(task.ID)
	assert.Equal(t, "Relaunch", gotTask.WorkstreamName)
}

func TestFailedUpdateLeavesStateUntouched(t *testing.T) {
	e := newEnv(t)
	_, _, task := e.seed(t)
	e.mem.Hook = func(_ context.Context, op string) error {
		if op == "update_task" {
			return errors.New("disk full")
		}
		return nil
	}
	_, err := e.store.UpdateTask(e.ctx, task.ID, domain.TaskPatch{Title: strPtr("Other")})
	require.Error(t, err)
	got, _ := e.store.Task(task.ID)
	assert.Equal(t, "Write brief", got.Title)
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	e := newEnv(t)
	_, _, task := e.seed(t)

	var first sync.Once
	entered := make(chan struct{})
	release := make(chan struct{})
	e.mem.Hook = func(_ context.Context, op string) error {
		if op != "update_task" {
			return nil
		}
		block := false
		first.Do(func() { block = true })
		if block {
			close(entered)
			<-release
		}
		return nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := e.store.UpdateTask(e.ctx, task.ID, domain.TaskPatch{Title: strPtr("Older")})
		done <- err
	}()
	<-entered

	_, err := e.store.UpdateTask(e.ctx, task.ID, domain.TaskPatch{Title: strPtr("Newer")})
	require.NoError(t, err)
	close(release)
	require.NoError(t, <-done)

	got, _ := e.store.Task(task.ID)
	assert.Equal(t, "Newer", got.Title)
}

func TestFailedLaterUpdateKeepsEarlierSuccess(t *testing.T) {
	e := newEnv(t)
	p, _, _ := e.seed(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	var updates atomic.Int32
	e.mem.Hook = func(_ context.Context, op string) error {
		if op != "update_persona" {
			return nil
		}
		switch updates.Add(1) {
		case 1:
			close(entered)
			<-release
			return nil
		default:
			return errors.New("write conflict")
		}
	}

	done := make(chan error, 1)
	go func() {
		_, err := e.store.UpdatePersona(e.ctx, p.ID, domain.PersonaPatch{Name: strPtr("Job")})
		done <- err
	}()
	<-entered

	_, err := e.store.UpdatePersona(e.ctx, p.ID, domain.PersonaPatch{Name: strPtr("Career")})
	require.Error(t, err)
	close(release)
	require.NoError(t, <-done)

	got, _ := e.store.Persona(p.ID)
	assert.Equal(t, "Job", got.Name)
	stored, err := e.mem.ListPersonas(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, "Job", stored[0].Name)
}

func TestEarlierResponseKeepsPendingStatusVisible(t *testing.T) {
	e := newEnv(t)
	_, _, task := e.seed(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	e.mem.Hook = func(_ context.Context, op string) error {
		if op == "update_task" {
			close(entered)
			<-release
		}
		return nil
	}
	done := make(chan error, 1)
	go func() {
		_, err := e.store.UpdateTask(e.ctx, task.ID, domain.TaskPatch{Title: strPtr("Renamed")})
		done <- err
	}()
	<-entered

	change, ok := e.store.BeginTaskStatus(task.ID, domain.TaskReview)
	require.True(t, ok)
	close(release)
	require.NoError(t, <-done)

	got, _ := e.store.Task(task.ID)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, domain.TaskReview, got.Status)

	require.True(t, e.store.RevertTaskStatus(change))
	got, _ = e.store.Task(task.ID)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, domain.TaskTodo, got.Status)
}

func TestRevertSkippedAfterLaterUpdateApplied(t *testing.T) {
	e := newEnv(t)
	_, _, task := e.seed(t)

	change, ok := e.store.BeginTaskStatus(task.ID, domain.TaskDone)
	require.True(t, ok)
	_, err := e.store.UpdateTask(e.ctx, task.ID, domain.TaskPatch{Status: strPtr("review")})
	require.NoError(t, err)

	assert.False(t, e.store.RevertTaskStatus(change))
	got, _ := e.store.Task(task.ID)
	assert.Equal(t, domain.TaskReview, got.Status)
}

func TestDeleteIsGatedByDependencies(t *testing.T) {
	e := newEnv(t)
	p, ws, _ := e.seed(t)

	_, err := e.store.DeleteWorkstream(e.ctx, ws.ID, false)
	require.ErrorIs(t, err, cascade.ErrCascadeRequired)
	assert.Len(t, e.store.Tasks(), 1)

	_, err = e.store.DeletePersona(e.ctx, p.ID, false)
	var blocked *cascade.BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, 1, blocked.Deps.WorkstreamCount)
	assert.Equal(t, 1, blocked.Deps.TaskCount)

	msg, err := e.store.DeletePersona(e.ctx, p.ID, true)
	require.NoError(t, err)
	assert.Contains(t, msg, "Work")
	assert.Empty(t, e.store.Personas())
	assert.Empty(t, e.store.Workstreams())
	assert.Empty(t, e.store.Tasks())
}

func TestDeletePersonaWithoutWorkstreams(t *testing.T) {
	e := newEnv(t)
	p, err := e.store.CreatePersona(e.ctx, domain.PersonaInput{Name: "Solo"})
	require.NoError(t, err)
	deps, err := e.store.Dependencies(e.ctx, cascade.Persona, p.ID)
	require.NoError(t, err)
	assert.False(t, deps.HasDependencies)

	_, err = e.store.Delete(e.ctx, cascade.Persona, p.ID, false)
	require.NoError(t, err)
	assert.Empty(t, e.store.Personas())
}

func TestReconcileReloads(t *testing.T) {
	e := newEnv(t)
	_, ws, _ := e.seed(t)
	_, err := e.mem.CreateTask(e.ctx, domain.TaskInput{WorkstreamID: ws.ID, Title: "Out of band"})
	require.NoError(t, err)
	assert.Len(t, e.store.Tasks(), 1)

	require.NoError(t, e.store.Reconcile(e.ctx))
	assert.Len(t, e.store.Tasks(), 2)
}

func TestOptimisticHooks(t *testing.T) {
	e := newEnv(t)
	_, _, task := e.seed(t)

	change, ok := e.store.BeginTaskStatus(task.ID, domain.TaskDone)
	require.True(t, ok)
	got, _ := e.store.Task(task.ID)
	assert.Equal(t, domain.TaskDone, got.Status)

	require.True(t, e.store.RevertTaskStatus(change))
	got, _ = e.store.Task(task.ID)
	assert.Equal(t, domain.TaskTodo, got.Status)

	stale, _ := e.store.BeginTaskStatus(task.ID, domain.TaskReview)
	_, _ = e.store.BeginTaskStatus(task.ID, domain.TaskDone)
	assert.False(t, e.store.RevertTaskStatus(stale), "superseded change is not reverted")

	_, ok = e.store.BeginTaskStatus("nope", domain.TaskDone)
	assert.False(t, ok)
}

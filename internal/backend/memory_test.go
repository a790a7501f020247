package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeline/internal/domain"
)

func seedMemory(t *testing.T, m *Memory, tasks int) (domain.Persona, domain.Workstream) {
	t.Helper()
	ctx := context.Background()
	p, err := m.CreatePersona(ctx, domain.PersonaInput{Name: "Home"})
	require.NoError(t, err)
	ws, err := m.CreateWorkstream(ctx, domain.WorkstreamInput{PersonaID: p.ID, Name: "Garden"})
	require.NoError(t, err)
	for i := 0; i < tasks; i++ {
		_, err := m.CreateTask(ctx, domain.TaskInput{WorkstreamID: ws.ID, Title: "weed"})
		require.NoError(t, err)
	}
	return p, ws
}

func TestMemoryCreateDecoratesAndOrdersNewestFirst(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	p, ws := seedMemory(t, m, 0)

	assert.Equal(t, domain.DefaultPersonaColor, p.Color)
	assert.True(t, p.IsActive)
	assert.Equal(t, "Home", ws.PersonaName)
	assert.Equal(t, domain.WorkstreamPlanning, ws.Status)

	first, err := m.CreateTask(ctx, domain.TaskInput{WorkstreamID: ws.ID, Title: "one", Status: " In Progress "})
	require.NoError(t, err)
	second, err := m.CreateTask(ctx, domain.TaskInput{WorkstreamID: ws.ID, Title: "two", Priority: "HIGH"})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskInProgress, first.Status)
	assert.Equal(t, domain.PriorityHigh, second.Priority)
	assert.Equal(t, p.ID, second.PersonaID)
	assert.Equal(t, "Garden", second.WorkstreamName)

	tasks, err := m.ListTasks(ctx, domain.TaskQuery{WorkstreamID: ws.ID})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, second.ID, tasks[0].ID)
}

func TestMemoryRejectsUnknownParentAndEnum(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, err := m.CreateWorkstream(ctx, domain.WorkstreamInput{PersonaID: "nope", Name: "x"})
	assert.True(t, domain.IsValidation(err))

	_, ws := seedMemory(t, m, 0)
	_, err = m.CreateTask(ctx, domain.TaskInput{WorkstreamID: ws.ID, Title: "x", Status: "blocked"})
	assert.True(t, domain.IsValidation(err))
}

func TestMemoryStatusMaintainsCompletedAt(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, ws := seedMemory(t, m, 0)
	task, err := m.CreateTask(ctx, domain.TaskInput{WorkstreamID: ws.ID, Title: "ship"})
	require.NoError(t, err)

	done, err := m.UpdateTaskStatus(ctx, task.ID, "Done")
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)

	back, err := m.UpdateTaskStatus(ctx, task.ID, "review")
	require.NoError(t, err)
	assert.Nil(t, back.CompletedAt)

	_, err = m.UpdateTaskStatus(ctx, "missing", "todo")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryCountsAndCascadeDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	p, ws := seedMemory(t, m, 3)
	other, err := m.CreateWorkstream(ctx, domain.WorkstreamInput{PersonaID: p.ID, Name: "Kitchen"})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := m.CreateTask(ctx, domain.TaskInput{WorkstreamID: other.ID, Title: "clean", Status: "done"})
		require.NoError(t, err)
	}

	counts, err := m.TaskCountsByStatus(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, counts[domain.TaskTodo])
	assert.Equal(t, 5, counts[domain.TaskDone])
	assert.Equal(t, 0, counts[domain.TaskReview])

	scoped, err := m.TaskCountsByStatus(ctx, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, scoped[domain.TaskDone])

	deps, err := m.CheckPersonaDependencies(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Dependencies{HasDependencies: true, WorkstreamCount: 2, TaskCount: 8}, deps)

	msg, err := m.DeletePersona(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, `persona "Home" deleted along with 2 workstream(s) and 8 task(s)`, msg)

	tasks, err := m.ListTasks(ctx, domain.TaskQuery{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
	_, err = m.CheckPersonaDependencies(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryHookFailsOperation(t *testing.T) {
	m := NewMemory()
	boom := errors.New("offline")
	m.Hook = func(_ context.Context, op string) error {
		if op == "list_personas" {
			return boom
		}
		return nil
	}
	_, err := m.ListPersonas(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "list_personas")
}

func TestStatusFilterDropsUnknownValues(t *testing.T) {
	assert.Equal(t, []string{domain.TaskInProgress, domain.TaskDone}, StatusFilter([]string{"In Progress", "bogus", `"DONE"`}))
	assert.Empty(t, StatusFilter(nil))

	_, err := TaskStatus("later")
	assert.True(t, domain.IsValidation(err))
}

func TestDueDateValidation(t *testing.T) {
	d, err := DueDate(" 2025-06-30 ")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-30", d)
	d, err = DueDate("")
	require.NoError(t, err)
	assert.Empty(t, d)
	_, err = DueDate("30/06/2025")
	assert.True(t, domain.IsValidation(err))

	m := NewMemory()
	_, ws := seedMemory(t, m, 0)
	task, err := m.CreateTask(context.Background(), domain.TaskInput{WorkstreamID: ws.ID, Title: "Plant", DueDate: "2025-03-20"})
	require.NoError(t, err)
	assert.Equal(t, "2025-03-20", task.DueDate)
}

func TestDeletedMessages(t *testing.T) {
	assert.Equal(t, `workstream "W" deleted`, WorkstreamDeletedMessage("W", domain.Dependencies{}))
	assert.Equal(t, `workstream "W" deleted along with 2 task(s)`, WorkstreamDeletedMessage("W", domain.Dependencies{HasDependencies: true, TaskCount: 2}))
	assert.Equal(t, `task "T" deleted`, TaskDeletedMessage("T"))
}

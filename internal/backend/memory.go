package backend

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"lifeline/internal/cascade"
	"lifeline/internal/domain"
)

// Memory is an in-process Service. It is safe for concurrent use.
// Hook, when set, runs before every operation with the operation name; a
// non-nil return fails the operation without touching state.
type Memory struct {
	Now  func() time.Time
	Hook func(ctx context.Context, op string) error

	mu          sync.RWMutex
	personas    []domain.Persona
	workstreams []domain.Workstream
	tasks       []domain.Task
}

var _ Service = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{Now: time.Now}
}

func (m *Memory) now() time.Time {
	if m.Now != nil {
		return m.Now().UTC()
	}
	return time.Now().UTC()
}

func (m *Memory) enter(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.Hook != nil {
		if err := m.Hook(ctx, op); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

func (m *Memory) ListPersonas(ctx context.Context) ([]domain.Persona, error) {
	if err := m.enter(ctx, "list_personas"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := slices.Clone(m.personas)
	slices.Reverse(out)
	return out, nil
}

func (m *Memory) ListWorkstreams(ctx context.Context, personaID string) ([]domain.Workstream, error) {
	if err := m.enter(ctx, "list_workstreams"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []domain.Workstream{}
	for i := len(m.workstreams) - 1; i >= 0; i-- {
		ws := m.workstreams[i]
		if personaID != "" && ws.PersonaID != personaID {
			continue
		}
		out = append(out, m.decorateWorkstream(ws))
	}
	return out, nil
}

func (m *Memory) ListTasks(ctx context.Context, q domain.TaskQuery) ([]domain.Task, error) {
	if err := m.enter(ctx, "list_tasks"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selectTasks(q), nil
}

func (m *Memory) selectTasks(q domain.TaskQuery) []domain.Task {
	var allowed map[string]bool
	if len(q.Statuses) > 0 {
		allowed = map[string]bool{}
		for _, s := range StatusFilter(q.Statuses) {
			allowed[s] = true
		}
	}
	out := []domain.Task{}
	for i := len(m.tasks) - 1; i >= 0; i-- {
		t := m.decorateTask(m.tasks[i])
		if q.WorkstreamID != "" && t.WorkstreamID != q.WorkstreamID {
			continue
		}
		if q.PersonaID != "" && t.PersonaID != q.PersonaID {
			continue
		}
		if allowed != nil && !allowed[t.Status] {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (m *Memory) CreatePersona(ctx context.Context, in domain.PersonaInput) (domain.Persona, error) {
	in, active, err := PreparePersona(in)
	if err != nil {
		return domain.Persona{}, err
	}
	if err := m.enter(ctx, "create_persona"); err != nil {
		return domain.Persona{}, err
	}
	now := m.now()
	p := domain.Persona{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Color:       in.Color,
		IsActive:    active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.mu.Lock()
	m.personas = append(m.personas, p)
	m.mu.Unlock()
	return p, nil
}

func (m *Memory) CreateWorkstream(ctx context.Context, in domain.WorkstreamInput) (domain.Workstream, error) {
	in, err := PrepareWorkstream(in)
	if err != nil {
		return domain.Workstream{}, err
	}
	if err := m.enter(ctx, "create_workstream"); err != nil {
		return domain.Workstream{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.personaIndex(in.PersonaID) < 0 {
		return domain.Workstream{}, domain.Invalid("persona_id", "persona %s does not exist", in.PersonaID)
	}
	now := m.now()
	ws := domain.Workstream{
		ID:          uuid.NewString(),
		PersonaID:   in.PersonaID,
		Name:        in.Name,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.workstreams = append(m.workstreams, ws)
	return m.decorateWorkstream(ws), nil
}

func (m *Memory) CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	in, err := PrepareTask(in)
	if err != nil {
		return domain.Task{}, err
	}
	if err := m.enter(ctx, "create_task"); err != nil {
		return domain.Task{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.workstreamIndex(in.WorkstreamID) < 0 {
		return domain.Task{}, domain.Invalid("workstream_id", "workstream %s does not exist", in.WorkstreamID)
	}
	now := m.now()
	t := domain.Task{
		ID:           uuid.NewString(),
		WorkstreamID: in.WorkstreamID,
		Title:        in.Title,
		Description:  in.Description,
		Status:       in.Status,
		Priority:     in.Priority,
		DueDate:      in.DueDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if t.Status == domain.TaskDone {
		t.CompletedAt = &now
	}
	m.tasks = append(m.tasks, t)
	return m.decorateTask(t), nil
}

func (m *Memory) UpdatePersona(ctx context.Context, id string, p domain.PersonaPatch) (domain.Persona, error) {
	p, err := PreparePersonaPatch(p)
	if err != nil {
		return domain.Persona{}, err
	}
	if err := m.enter(ctx, "update_persona"); err != nil {
		return domain.Persona{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.personaIndex(id)
	if i < 0 {
		return domain.Persona{}, fmt.Errorf("persona %s: %w", id, domain.ErrNotFound)
	}
	cur := &m.personas[i]
	if p.Name != nil {
		cur.Name = *p.Name
	}
	if p.Description != nil {
		cur.Description = *p.Description
	}
	if p.Color != nil {
		cur.Color = *p.Color
	}
	if p.IsActive != nil {
		cur.IsActive = *p.IsActive
	}
	cur.UpdatedAt = m.now()
	return *cur, nil
}

func (m *Memory) UpdateWorkstream(ctx context.Context, id string, p domain.WorkstreamPatch) (domain.Workstream, error) {
	p, err := PrepareWorkstreamPatch(p)
	if err != nil {
		return domain.Workstream{}, err
	}
	if err := m.enter(ctx, "update_workstream"); err != nil {
		return domain.Workstream{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.workstreamIndex(id)
	if i < 0 {
		return domain.Workstream{}, fmt.Errorf("workstream %s: %w", id, domain.ErrNotFound)
	}
	cur := &m.workstreams[i]
	if p.Name != nil {
		cur.Name = *p.Name
	}
	if p.Description != nil {
		cur.Description = *p.Description
	}
	if p.Status != nil {
		cur.Status = *p.Status
	}
	if p.Priority != nil {
		cur.Priority = *p.Priority
	}
	cur.UpdatedAt = m.now()
	return m.decorateWorkstream(*cur), nil
}

func (m *Memory) UpdateTask(ctx context.Context, id string, p domain.TaskPatch) (domain.Task, error) {
	p, err := PrepareTaskPatch(p)
	if err != nil {
		return domain.Task{}, err
	}
	if err := m.enter(ctx, "update_task"); err != nil {
		return domain.Task{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.taskIndex(id)
	if i < 0 {
		return domain.Task{}, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	cur := &m.tasks[i]
	now := m.now()
	if p.Title != nil {
		cur.Title = *p.Title
	}
	if p.Description != nil {
		cur.Description = *p.Description
	}
	if p.Priority != nil {
		cur.Priority = *p.Priority
	}
	if p.DueDate != nil {
		cur.DueDate = *p.DueDate
	}
	if p.Status != nil {
		setStatus(cur, *p.Status, now)
	}
	cur.UpdatedAt = now
	return m.decorateTask(*cur), nil
}

func (m *Memory) UpdateTaskStatus(ctx context.Context, id, raw string) (domain.Task, error) {
	tag, err := TaskStatus(raw)
	if err != nil {
		return domain.Task{}, err
	}
	if err := m.enter(ctx, "update_task_status"); err != nil {
		return domain.Task{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.taskIndex(id)
	if i < 0 {
		return domain.Task{}, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	now := m.now()
	setStatus(&m.tasks[i], tag, now)
	m.tasks[i].UpdatedAt = now
	return m.decorateTask(m.tasks[i]), nil
}

func setStatus(t *domain.Task, tag string, now time.Time) {
	if tag == domain.TaskDone && t.Status != domain.TaskDone {
		t.CompletedAt = &now
	}
	if tag != domain.TaskDone {
		t.CompletedAt = nil
	}
	t.Status = tag
}

func (m *Memory) DeletePersona(ctx context.Context, id string) (string, error) {
	if err := m.enter(ctx, "delete_persona"); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.personaIndex(id)
	if i < 0 {
		return "", fmt.Errorf("persona %s: %w", id, domain.ErrNotFound)
	}
	name := m.personas[i].Name
	deps := cascade.Tally(cascade.Persona, id, m.workstreams, m.tasks)
	owned := map[string]bool{}
	m.workstreams = slices.DeleteFunc(m.workstreams, func(ws domain.Workstream) bool {
		if ws.PersonaID == id {
			owned[ws.ID] = true
			return true
		}
		return false
	})
	m.tasks = slices.DeleteFunc(m.tasks, func(t domain.Task) bool { return owned[t.WorkstreamID] })
	m.personas = slices.Delete(m.personas, i, i+1)
	return PersonaDeletedMessage(name, deps), nil
}

func (m *Memory) DeleteWorkstream(ctx context.Context, id string) (string, error) {
	if err := m.enter(ctx, "delete_workstream"); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.workstreamIndex(id)
	if i < 0 {
		return "", fmt.Errorf("workstream %s: %w", id, domain.ErrNotFound)
	}
	name := m.workstreams[i].Name
	deps := cascade.Tally(cascade.Workstream, id, m.workstreams, m.tasks)
	m.tasks = slices.DeleteFunc(m.tasks, func(t domain.Task) bool { return t.WorkstreamID == id })
	m.workstreams = slices.Delete(m.workstreams, i, i+1)
	return WorkstreamDeletedMessage(name, deps), nil
}

func (m *Memory) DeleteTask(ctx context.Context, id string) (string, error) {
	if err := m.enter(ctx, "delete_task"); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.taskIndex(id)
	if i < 0 {
		return "", fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	title := m.tasks[i].Title
	m.tasks = slices.Delete(m.tasks, i, i+1)
	return TaskDeletedMessage(title), nil
}

func (m *Memory) CheckPersonaDependencies(ctx context.Context, id string) (domain.Dependencies, error) {
	if err := m.enter(ctx, "check_persona_dependencies"); err != nil {
		return domain.Dependencies{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.personaIndex(id) < 0 {
		return domain.Dependencies{}, fmt.Errorf("persona %s: %w", id, domain.ErrNotFound)
	}
	return cascade.Tally(cascade.Persona, id, m.workstreams, m.tasks), nil
}

func (m *Memory) CheckWorkstreamDependencies(ctx context.Context, id string) (domain.Dependencies, error) {
	if err := m.enter(ctx, "check_workstream_dependencies"); err != nil {
		return domain.Dependencies{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.workstreamIndex(id) < 0 {
		return domain.Dependencies{}, fmt.Errorf("workstream %s: %w", id, domain.ErrNotFound)
	}
	return cascade.Tally(cascade.Workstream, id, m.workstreams, m.tasks), nil
}

func (m *Memory) TaskCountsByStatus(ctx context.Context, workstreamID string) (domain.StatusCounts, error) {
	if err := m.enter(ctx, "task_counts_by_status"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := ZeroCounts()
	for _, t := range m.tasks {
		if workstreamID != "" && t.WorkstreamID != workstreamID {
			continue
		}
		counts[t.Status]++
	}
	return counts, nil
}

func (m *Memory) BoardTasks(ctx context.Context, workstreamID string, statuses []string) ([]domain.Task, error) {
	if err := m.enter(ctx, "board_tasks"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selectTasks(domain.TaskQuery{WorkstreamID: workstreamID, Statuses: statuses}), nil
}

func (m *Memory) personaIndex(id string) int {
	return slices.IndexFunc(m.personas, func(p domain.Persona) bool { return p.ID == id })
}

func (m *Memory) workstreamIndex(id string) int {
	return slices.IndexFunc(m.workstreams, func(ws domain.Workstream) bool { return ws.ID == id })
}

func (m *Memory) taskIndex(id string) int {
	return slices.IndexFunc(m.tasks, func(t domain.Task) bool { return t.ID == id })
}

func (m *Memory) decorateWorkstream(ws domain.Workstream) domain.Workstream {
	if i := m.personaIndex(ws.PersonaID); i >= 0 {
		ws.PersonaName = m.personas[i].Name
		ws.PersonaColor = m.personas[i].Color
	}
	return ws
}

func (m *Memory) decorateTask(t domain.Task) domain.Task {
	if i := m.workstreamIndex(t.WorkstreamID); i >= 0 {
		ws := m.decorateWorkstream(m.workstreams[i])
		t.WorkstreamName = ws.Name
		t.PersonaID = ws.PersonaID
		t.PersonaColor = ws.PersonaColor
	}
	return t
}

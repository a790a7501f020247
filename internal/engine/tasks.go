package engine

import (
	"context"
	"fmt"

	"lifeline/internal/backend"
	"lifeline/internal/domain"
	"lifeline/internal/events"
	"lifeline/internal/repo"
)

// ListTasks lists tasks newest first. The status filter is applied after the
// stored values are normalized.
func (e Engine) ListTasks(ctx context.Context, q domain.TaskQuery) ([]domain.Task, error) {
	tasks, err := e.Repo.ListTasks(ctx, repo.TaskFilters{WorkstreamID: q.WorkstreamID, PersonaID: q.PersonaID})
	if err != nil {
		return nil, err
	}
	if len(q.Statuses) == 0 {
		return tasks, nil
	}
	allowed := map[string]bool{}
	for _, s := range backend.StatusFilter(q.Statuses) {
		allowed[s] = true
	}
	out := tasks[:0]
	for _, t := range tasks {
		if allowed[t.Status] {
			out = append(out, t)
		}
	}
	return out, nil
}

func (e Engine) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return e.Repo.GetTask(ctx, id)
}

func (e Engine) BoardTasks(ctx context.Context, workstreamID string, statuses []string) ([]domain.Task, error) {
	return e.ListTasks(ctx, domain.TaskQuery{WorkstreamID: workstreamID, Statuses: statuses})
}

func (e Engine) CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	d := e.defaults()
	if in.Status == "" {
		in.Status = d.TaskStatus
	}
	if in.Priority == "" {
		in.Priority = d.TaskPriority
	}
	in, err := backend.PrepareTask(in)
	if err != nil {
		return domain.Task{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetWorkstreamTx(ctx, tx, in.WorkstreamID); err != nil {
		return domain.Task{}, parent(err, "workstream_id", "workstream", in.WorkstreamID)
	}
	now := e.now()
	t := domain.Task{
		ID:           newID(),
		WorkstreamID: in.WorkstreamID,
		Title:        in.Title,
		Description:  in.Description,
		Priority:     in.Priority,
		DueDate:      in.DueDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	applyStatus(&t, in.Status, now)
	if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	if err := e.events().Append(ctx, tx, events.TaskCreated, "task", t.ID, events.Payload{
		"workstream_id": t.WorkstreamID,
		"title":         t.Title,
		"status":        t.Status,
	}); err != nil {
		return domain.Task{}, err
	}
	created, err := e.Repo.GetTaskTx(ctx, tx, t.ID)
	if err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return created, nil
}

func (e Engine) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	patch, err := backend.PrepareTaskPatch(patch)
	if err != nil {
		return domain.Task{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTaskTx(ctx, tx, id)
	if err != nil {
		return domain.Task{}, err
	}
	now := e.now()
	changed := events.Payload{}
	if patch.Title != nil {
		t.Title = *patch.Title
		changed["title"] = t.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
		changed["description"] = t.Description
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
		changed["priority"] = t.Priority
	}
	if patch.DueDate != nil {
		t.DueDate = *patch.DueDate
		changed["due_date"] = t.DueDate
	}
	if patch.Status != nil {
		changed["from"] = t.Status
		applyStatus(&t, *patch.Status, now)
		changed["status"] = t.Status
	}
	t.UpdatedAt = now
	if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
		return domain.Task{}, fmt.Errorf("update task: %w", err)
	}
	if err := e.events().Append(ctx, tx, events.TaskUpdated, "task", t.ID, changed); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// UpdateTaskStatus moves a task to another status. Every transition between
// task statuses is allowed.
func (e Engine) UpdateTaskStatus(ctx context.Context, id, raw string) (domain.Task, error) {
	to, err := backend.TaskStatus(raw)
	if err != nil {
		return domain.Task{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTaskTx(ctx, tx, id)
	if err != nil {
		return domain.Task{}, err
	}
	from := t.Status
	now := e.now()
	applyStatus(&t, to, now)
	t.UpdatedAt = now
	if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
		return domain.Task{}, fmt.Errorf("update task status: %w", err)
	}
	if err := e.events().Append(ctx, tx, events.TaskStatusUpdated, "task", t.ID, events.Payload{"from": from, "to": to}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	e.log().Debug("task status updated", "id", id, "from", from, "to", to)
	return t, nil
}

func (e Engine) DeleteTask(ctx context.Context, id string) (string, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTaskTx(ctx, tx, id)
	if err != nil {
		return "", err
	}
	if err := e.Repo.DeleteTask(ctx, tx, id); err != nil {
		return "", fmt.Errorf("delete task: %w", err)
	}
	if err := e.events().Append(ctx, tx, events.TaskDeleted, "task", id, events.Payload{
		"title":         t.Title,
		"workstream_id": t.WorkstreamID,
	}); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return backend.TaskDeletedMessage(t.Title), nil
}

// TaskCountsByStatus merges raw stored statuses into their normalized tags.
// Every task status is present in the result.
func (e Engine) TaskCountsByStatus(ctx context.Context, workstreamID string) (domain.StatusCounts, error) {
	raw, err := e.Repo.CountTasksByStatus(ctx, workstreamID)
	if err != nil {
		return nil, err
	}
	counts := backend.ZeroCounts()
	for s, n := range raw {
		counts[statusTag(s)] += n
	}
	return counts, nil
}

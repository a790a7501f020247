package engine

import (
	"context"
	"fmt"

	"lifeline/internal/backend"
	"lifeline/internal/domain"
	"lifeline/internal/events"
)

func (e Engine) ListWorkstreams(ctx context.Context, personaID string) ([]domain.Workstream, error) {
	return e.Repo.ListWorkstreams(ctx, personaID)
}

func (e Engine) GetWorkstream(ctx context.Context, id string) (domain.Workstream, error) {
	return e.Repo.GetWorkstream(ctx, id)
}

func (e Engine) CreateWorkstream(ctx context.Context, in domain.WorkstreamInput) (domain.Workstream, error) {
	if in.Status == "" {
		in.Status = e.defaults().WorkstreamStatus
	}
	in, err := backend.PrepareWorkstream(in)
	if err != nil {
		return domain.Workstream{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Workstream{}, err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetPersonaTx(ctx, tx, in.PersonaID); err != nil {
		return domain.Workstream{}, parent(err, "persona_id", "persona", in.PersonaID)
	}
	now := e.now()
	ws := domain.Workstream{
		ID:          newID(),
		PersonaID:   in.PersonaID,
		Name:        in.Name,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Repo.InsertWorkstream(ctx, tx, ws); err != nil {
		return domain.Workstream{}, fmt.Errorf("insert workstream: %w", err)
	}
	if err := e.events().Append(ctx, tx, events.WorkstreamCreated, "workstream", ws.ID, events.Payload{
		"persona_id": ws.PersonaID,
		"name":       ws.Name,
		"status":     ws.Status,
	}); err != nil {
		return domain.Workstream{}, err
	}
	created, err := e.Repo.GetWorkstreamTx(ctx, tx, ws.ID)
	if err != nil {
		return domain.Workstream{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Workstream{}, err
	}
	return created, nil
}

func (e Engine) UpdateWorkstream(ctx context.Context, id string, patch domain.WorkstreamPatch) (domain.Workstream, error) {
	patch, err := backend.PrepareWorkstreamPatch(patch)
	if err != nil {
		return domain.Workstream{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Workstream{}, err
	}
	defer tx.Rollback()

	ws, err := e.Repo.GetWorkstreamTx(ctx, tx, id)
	if err != nil {
		return domain.Workstream{}, err
	}
	changed := events.Payload{}
	if patch.Name != nil {
		ws.Name = *patch.Name
		changed["name"] = ws.Name
	}
	if patch.Description != nil {
		ws.Description = *patch.Description
		changed["description"] = ws.Description
	}
	if patch.Status != nil {
		changed["from"] = ws.Status
		ws.Status = *patch.Status
		changed["status"] = ws.Status
	}
	if patch.Priority != nil {
		ws.Priority = *patch.Priority
		changed["priority"] = ws.Priority
	}
	ws.UpdatedAt = e.now()
	if err := e.Repo.UpdateWorkstream(ctx, tx, ws); err != nil {
		return domain.Workstream{}, fmt.Errorf("update workstream: %w", err)
	}
	if err := e.events().Append(ctx, tx, events.WorkstreamUpdated, "workstream", ws.ID, changed); err != nil {
		return domain.Workstream{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Workstream{}, err
	}
	return ws, nil
}

// DeleteWorkstream removes the workstream and its tasks.
func (e Engine) DeleteWorkstream(ctx context.Context, id string) (string, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	ws, err := e.Repo.GetWorkstreamTx(ctx, tx, id)
	if err != nil {
		return "", err
	}
	deps, err := e.workstreamDependencies(ctx, tx, id)
	if err != nil {
		return "", err
	}
	if err := e.Repo.DeleteWorkstream(ctx, tx, id); err != nil {
		return "", fmt.Errorf("delete workstream: %w", err)
	}
	if err := e.events().Append(ctx, tx, events.WorkstreamDeleted, "workstream", id, events.Payload{
		"name":       ws.Name,
		"persona_id": ws.PersonaID,
		"tasks":      deps.TaskCount,
	}); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return backend.WorkstreamDeletedMessage(ws.Name, deps), nil
}

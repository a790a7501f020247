package engine

import (
	"context"
	"fmt"

	"lifeline/internal/backend"
	"lifeline/internal/domain"
	"lifeline/internal/events"
	"lifeline/internal/repo"
)

func (e Engine) ListPersonas(ctx context.Context) ([]domain.Persona, error) {
	return e.Repo.ListPersonas(ctx, repo.PersonaFilters{})
}

// ListActivePersonas lists personas with the given is_active flag.
func (e Engine) ListActivePersonas(ctx context.Context, active bool) ([]domain.Persona, error) {
	return e.Repo.ListPersonas(ctx, repo.PersonaFilters{Active: &active})
}

func (e Engine) GetPersona(ctx context.Context, id string) (domain.Persona, error) {
	return e.Repo.GetPersona(ctx, id)
}

func (e Engine) CreatePersona(ctx context.Context, in domain.PersonaInput) (domain.Persona, error) {
	if in.Color == "" {
		in.Color = e.defaults().PersonaColor
	}
	in, active, err := backend.PreparePersona(in)
	if err != nil {
		return domain.Persona{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Persona{}, err
	}
	defer tx.Rollback()

	now := e.now()
	p := domain.Persona{
		ID:          newID(),
		Name:        in.Name,
		Description: in.Description,
		Color:       in.Color,
		IsActive:    active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Repo.InsertPersona(ctx, tx, p); err != nil {
		return domain.Persona{}, fmt.Errorf("insert persona: %w", err)
	}
	if err := e.events().Append(ctx, tx, events.PersonaCreated, "persona", p.ID, events.Payload{"name": p.Name, "color": p.Color}); err != nil {
		return domain.Persona{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Persona{}, err
	}
	e.log().Debug("persona created", "id", p.ID)
	return p, nil
}

func (e Engine) UpdatePersona(ctx context.Context, id string, patch domain.PersonaPatch) (domain.Persona, error) {
	patch, err := backend.PreparePersonaPatch(patch)
	if err != nil {
		return domain.Persona{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Persona{}, err
	}
	defer tx.Rollback()

	p, err := e.Repo.GetPersonaTx(ctx, tx, id)
	if err != nil {
		return domain.Persona{}, err
	}
	changed := events.Payload{}
	if patch.Name != nil {
		p.Name = *patch.Name
		changed["name"] = p.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
		changed["description"] = p.Description
	}
	if patch.Color != nil {
		p.Color = *patch.Color
		changed["color"] = p.Color
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
		changed["is_active"] = p.IsActive
	}
	p.UpdatedAt = e.now()
	if err := e.Repo.UpdatePersona(ctx, tx, p); err != nil {
		return domain.Persona{}, fmt.Errorf("update persona: %w", err)
	}
	if err := e.events().Append(ctx, tx, events.PersonaUpdated, "persona", p.ID, changed); err != nil {
		return domain.Persona{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Persona{}, err
	}
	return p, nil
}

// DeletePersona removes the persona with its workstreams and their tasks.
func (e Engine) DeletePersona(ctx context.Context, id string) (string, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	p, err := e.Repo.GetPersonaTx(ctx, tx, id)
	if err != nil {
		return "", err
	}
	deps, err := e.personaDependencies(ctx, tx, id)
	if err != nil {
		return "", err
	}
	if err := e.Repo.DeletePersona(ctx, tx, id); err != nil {
		return "", fmt.Errorf("delete persona: %w", err)
	}
	if err := e.events().Append(ctx, tx, events.PersonaDeleted, "persona", id, events.Payload{
		"name":        p.Name,
		"workstreams": deps.WorkstreamCount,
		"tasks":       deps.TaskCount,
	}); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return backend.PersonaDeletedMessage(p.Name, deps), nil
}

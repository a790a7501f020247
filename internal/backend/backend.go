// Package backend defines the persistence service the hierarchy core talks to.
package backend

import (
	"context"

	"lifeline/internal/domain"
)

// Service is the set of named persistence operations. Implementations return
// authoritative entities with normalized status and priority values.
type Service interface {
	ListPersonas(ctx context.Context) ([]domain.Persona, error)
	ListWorkstreams(ctx context.Context, personaID string) ([]domain.Workstream, error)
	ListTasks(ctx context.Context, q domain.TaskQuery) ([]domain.Task, error)

	CreatePersona(ctx context.Context, in domain.PersonaInput) (domain.Persona, error)
	CreateWorkstream(ctx context.Context, in domain.WorkstreamInput) (domain.Workstream, error)
	CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error)

	UpdatePersona(ctx context.Context, id string, p domain.PersonaPatch) (domain.Persona, error)
	UpdateWorkstream(ctx context.Context, id string, p domain.WorkstreamPatch) (domain.Workstream, error)
	UpdateTask(ctx context.Context, id string, p domain.TaskPatch) (domain.Task, error)

	// Deletes cascade to children unconditionally; gating is the caller's job.
	DeletePersona(ctx context.Context, id string) (string, error)
	DeleteWorkstream(ctx context.Context, id string) (string, error)
	DeleteTask(ctx context.Context, id string) (string, error)

	CheckPersonaDependencies(ctx context.Context, id string) (domain.Dependencies, error)
	CheckWorkstreamDependencies(ctx context.Context, id string) (domain.Dependencies, error)

	UpdateTaskStatus(ctx context.Context, id, status string) (domain.Task, error)
	// TaskCountsByStatus counts tasks per status, optionally scoped to one
	// workstream. Every task status is present in the result.
	TaskCountsByStatus(ctx context.Context, workstreamID string) (domain.StatusCounts, error)
	// BoardTasks lists tasks whose normalized status is in statuses (all when empty).
	BoardTasks(ctx context.Context, workstreamID string, statuses []string) ([]domain.Task, error)
}

// Package cascade reports which children a delete would take with it and
// blocks unacknowledged cascading deletes.
package cascade

import (
	"context"
	"errors"
	"fmt"

	"lifeline/internal/domain"
)

type Kind string

const (
	Persona    Kind = "persona"
	Workstream Kind = "workstream"
	Task       Kind = "task"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Persona, Workstream, Task:
		return Kind(s), nil
	}
	return "", domain.Invalid("kind", "unknown entity kind %q", s)
}

// ErrCascadeRequired matches every BlockedError.
var ErrCascadeRequired = errors.New("cascade delete requires acknowledgement")

// BlockedError is returned when a delete would remove dependents and the
// caller has not acknowledged it.
type BlockedError struct {
	Kind Kind
	ID   string
	Deps domain.Dependencies
}

func (e *BlockedError) Error() string {
	switch e.Kind {
	case Persona:
		return fmt.Sprintf("persona %s has %d workstream(s) and %d task(s); delete with cascade to remove them",
			e.ID, e.Deps.WorkstreamCount, e.Deps.TaskCount)
	default:
		return fmt.Sprintf("%s %s has %d task(s); delete with cascade to remove them", e.Kind, e.ID, e.Deps.TaskCount)
	}
}

func (e *BlockedError) Is(target error) bool { return target == ErrCascadeRequired }

// Source answers dependency queries.
type Source interface {
	CheckPersonaDependencies(ctx context.Context, id string) (domain.Dependencies, error)
	CheckWorkstreamDependencies(ctx context.Context, id string) (domain.Dependencies, error)
}

type Resolver struct {
	Source Source
}

func New(src Source) *Resolver {
	return &Resolver{Source: src}
}

// Resolve reports the dependents of an entity. Tasks never have any and
// never reach the source.
func (r *Resolver) Resolve(ctx context.Context, kind Kind, id string) (domain.Dependencies, error) {
	var (
		deps domain.Dependencies
		err  error
	)
	switch kind {
	case Task:
		return domain.Dependencies{}, nil
	case Persona:
		deps, err = r.Source.CheckPersonaDependencies(ctx, id)
	case Workstream:
		deps, err = r.Source.CheckWorkstreamDependencies(ctx, id)
	default:
		return domain.Dependencies{}, domain.Invalid("kind", "unknown entity kind %q", kind)
	}
	if err != nil {
		return domain.Dependencies{}, fmt.Errorf("check %s dependencies: %w", kind, err)
	}
	deps.HasDependencies = deps.WorkstreamCount > 0 || deps.TaskCount > 0
	return deps, nil
}

// Gate resolves dependencies and returns a BlockedError when there are any
// and the cascade was not acknowledged.
func (r *Resolver) Gate(ctx context.Context, kind Kind, id string, acknowledged bool) (domain.Dependencies, error) {
	deps, err := r.Resolve(ctx, kind, id)
	if err != nil {
		return deps, err
	}
	if deps.HasDependencies && !acknowledged {
		return deps, &BlockedError{Kind: kind, ID: id, Deps: deps}
	}
	return deps, nil
}

// Tally computes the dependency report from in-memory collections.
func Tally(kind Kind, id string, workstreams []domain.Workstream, tasks []domain.Task) domain.Dependencies {
	var deps domain.Dependencies
	switch kind {
	case Persona:
		owned := map[string]bool{}
		for _, ws := range workstreams {
			if ws.PersonaID == id {
				owned[ws.ID] = true
			}
		}
		deps.WorkstreamCount = len(owned)
		for _, t := range tasks {
			if owned[t.WorkstreamID] {
				deps.TaskCount++
			}
		}
	case Workstream:
		for _, t := range tasks {
			if t.WorkstreamID == id {
				deps.TaskCount++
			}
		}
	}
	deps.HasDependencies = deps.WorkstreamCount > 0 || deps.TaskCount > 0
	return deps
}

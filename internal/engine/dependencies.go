package engine

import (
	"context"
	"database/sql"

	"lifeline/internal/domain"
	"lifeline/internal/status"
)

func statusTag(raw string) string { return status.Task(raw) }

func (e Engine) CheckPersonaDependencies(ctx context.Context, id string) (domain.Dependencies, error) {
	if _, err := e.Repo.GetPersona(ctx, id); err != nil {
		return domain.Dependencies{}, err
	}
	return e.personaDependencies(ctx, nil, id)
}

func (e Engine) CheckWorkstreamDependencies(ctx context.Context, id string) (domain.Dependencies, error) {
	if _, err := e.Repo.GetWorkstream(ctx, id); err != nil {
		return domain.Dependencies{}, err
	}
	return e.workstreamDependencies(ctx, nil, id)
}

func (e Engine) personaDependencies(ctx context.Context, tx *sql.Tx, id string) (domain.Dependencies, error) {
	wsCount, err := e.Repo.CountWorkstreams(ctx, tx, id)
	if err != nil {
		return domain.Dependencies{}, err
	}
	taskCount, err := e.Repo.CountTasksForPersona(ctx, tx, id)
	if err != nil {
		return domain.Dependencies{}, err
	}
	return domain.Dependencies{
		HasDependencies: wsCount > 0 || taskCount > 0,
		WorkstreamCount: wsCount,
		TaskCount:       taskCount,
	}, nil
}

func (e Engine) workstreamDependencies(ctx context.Context, tx *sql.Tx, id string) (domain.Dependencies, error) {
	n, err := e.Repo.CountTasksInWorkstream(ctx, tx, id)
	if err != nil {
		return domain.Dependencies{}, err
	}
	return domain.Dependencies{HasDependencies: n > 0, TaskCount: n}, nil
}

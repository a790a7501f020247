package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"lifeline/internal/cascade"
	"lifeline/internal/domain"
	"lifeline/internal/status"
	lifelinesdk "lifeline/sdk/go"
)

// Remote is a Service backed by a lifeline API server.
type Remote struct {
	Client *lifelinesdk.Client
}

var _ Service = Remote{}

func NewRemote(baseURL, token string) Remote {
	c := lifelinesdk.New(baseURL)
	c.BearerToken = token
	return Remote{Client: c}
}

func (r Remote) ListPersonas(ctx context.Context) ([]domain.Persona, error) {
	out, err := r.Client.ListPersonas(ctx)
	return out, RemoteError(err)
}

func (r Remote) ListWorkstreams(ctx context.Context, personaID string) ([]domain.Workstream, error) {
	out, err := r.Client.ListWorkstreams(ctx, personaID)
	return out, RemoteError(err)
}

func (r Remote) ListTasks(ctx context.Context, q domain.TaskQuery) ([]domain.Task, error) {
	out, err := r.Client.ListTasks(ctx, q.WorkstreamID, q.PersonaID, q.Statuses)
	return out, RemoteError(err)
}

func (r Remote) CreatePersona(ctx context.Context, in domain.PersonaInput) (domain.Persona, error) {
	out, err := r.Client.CreatePersona(ctx, in)
	return out, RemoteError(err)
}

func (r Remote) CreateWorkstream(ctx context.Context, in domain.WorkstreamInput) (domain.Workstream, error) {
	out, err := r.Client.CreateWorkstream(ctx, in)
	return out, RemoteError(err)
}

func (r Remote) CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	out, err := r.Client.CreateTask(ctx, in)
	return out, RemoteError(err)
}

func (r Remote) UpdatePersona(ctx context.Context, id string, p domain.PersonaPatch) (domain.Persona, error) {
	out, err := r.Client.UpdatePersona(ctx, id, p)
	return out, RemoteError(err)
}

func (r Remote) UpdateWorkstream(ctx context.Context, id string, p domain.WorkstreamPatch) (domain.Workstream, error) {
	out, err := r.Client.UpdateWorkstream(ctx, id, p)
	return out, RemoteError(err)
}

func (r Remote) UpdateTask(ctx context.Context, id string, p domain.TaskPatch) (domain.Task, error) {
	out, err := r.Client.UpdateTask(ctx, id, p)
	return out, RemoteError(err)
}

// DeletePersona always asks the server to cascade; callers gate first.
func (r Remote) DeletePersona(ctx context.Context, id string) (string, error) {
	msg, err := r.Client.DeletePersona(ctx, id, true)
	return msg, RemoteError(err)
}

func (r Remote) DeleteWorkstream(ctx context.Context, id string) (string, error) {
	msg, err := r.Client.DeleteWorkstream(ctx, id, true)
	return msg, RemoteError(err)
}

func (r Remote) DeleteTask(ctx context.Context, id string) (string, error) {
	msg, err := r.Client.DeleteTask(ctx, id)
	return msg, RemoteError(err)
}

func (r Remote) CheckPersonaDependencies(ctx context.Context, id string) (domain.Dependencies, error) {
	out, err := r.Client.PersonaDependencies(ctx, id)
	return out, RemoteError(err)
}

func (r Remote) CheckWorkstreamDependencies(ctx context.Context, id string) (domain.Dependencies, error) {
	out, err := r.Client.WorkstreamDependencies(ctx, id)
	return out, RemoteError(err)
}

func (r Remote) UpdateTaskStatus(ctx context.Context, id, status string) (domain.Task, error) {
	out, err := r.Client.UpdateTaskStatus(ctx, id, status)
	return out, RemoteError(err)
}

func (r Remote) TaskCountsByStatus(ctx context.Context, workstreamID string) (domain.StatusCounts, error) {
	out, err := r.Client.TaskCounts(ctx, workstreamID)
	if err != nil {
		return nil, RemoteError(err)
	}
	counts := ZeroCounts()
	for k, v := range out {
		counts[status.Task(k)] += v
	}
	return counts, nil
}

func (r Remote) BoardTasks(ctx context.Context, workstreamID string, statuses []string) ([]domain.Task, error) {
	out, err := r.Client.BoardTasks(ctx, workstreamID, statuses)
	return out, RemoteError(err)
}

// RemoteError maps API error envelopes back onto the local error vocabulary.
func RemoteError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *lifelinesdk.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", apiErr.Message, domain.ErrNotFound)
	case http.StatusBadRequest:
		field, _ := apiErr.Details["field"].(string)
		msg := apiErr.Message
		if field != "" {
			msg = strings.TrimPrefix(msg, field+": ")
		}
		return &domain.ValidationError{Field: field, Message: msg}
	case http.StatusConflict:
		if apiErr.Code == "cascade_required" {
			kind, _ := apiErr.Details["kind"].(string)
			id, _ := apiErr.Details["id"].(string)
			deps := domain.Dependencies{
				WorkstreamCount: detailInt(apiErr.Details, "workstream_count"),
				TaskCount:       detailInt(apiErr.Details, "task_count"),
			}
			deps.HasDependencies = deps.WorkstreamCount > 0 || deps.TaskCount > 0
			return &cascade.BlockedError{Kind: cascade.Kind(kind), ID: id, Deps: deps}
		}
	}
	return err
}

func detailInt(details map[string]any, key string) int {
	switch v := details[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

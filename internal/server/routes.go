package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"lifeline/internal/cascade"
	"lifeline/internal/domain"
	"lifeline/internal/engine"
	"lifeline/internal/repo"
)

func registerPersonas(api huma.API, e engine.Engine, deps *cascade.Resolver) {
	huma.Register(api, huma.Operation{
		OperationID: "list-personas",
		Method:      http.MethodGet,
		Path:        "/personas",
		Summary:     "List personas",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Active string `query:"active" enum:"true,false" doc:"Only active (true) or inactive (false) personas"`
	}) (*struct {
		Body PersonaList `json:"body"`
	}, error) {
		var (
			items []domain.Persona
			err   error
		)
		if input.Active == "" {
			items, err = e.ListPersonas(ctx)
		} else {
			items, err = e.ListActivePersonas(ctx, input.Active == "true")
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PersonaList `json:"body"`
		}{Body: PersonaList{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-persona",
		Method:        http.MethodPost,
		Path:          "/personas",
		Summary:       "Create persona",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreatePersonaRequest `json:"body"`
	}) (*personaOutput, error) {
		p, err := e.CreatePersona(ctx, input.Body.input())
		if err != nil {
			return nil, handleError(err)
		}
		return &personaOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-persona",
		Method:      http.MethodGet,
		Path:        "/personas/{id}",
		Summary:     "Get persona",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*personaOutput, error) {
		p, err := e.GetPersona(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &personaOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-persona",
		Method:      http.MethodPatch,
		Path:        "/personas/{id}",
		Summary:     "Update persona",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string               `path:"id"`
		Body UpdatePersonaRequest `json:"body"`
	}) (*personaOutput, error) {
		p, err := e.UpdatePersona(ctx, input.ID, input.Body.patch())
		if err != nil {
			return nil, handleError(err)
		}
		return &personaOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-persona",
		Method:      http.MethodDelete,
		Path:        "/personas/{id}",
		Summary:     "Delete persona",
		Description: "Refuses with 409 when the persona still owns workstreams unless cascade=true.",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID      string `path:"id"`
		Cascade bool   `query:"cascade"`
	}) (*deleteOutput, error) {
		if _, err := deps.Gate(ctx, cascade.Persona, input.ID, input.Cascade); err != nil {
			return nil, handleError(err)
		}
		msg, err := e.DeletePersona(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &deleteOutput{Body: DeleteResponse{Message: msg}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "persona-dependencies",
		Method:      http.MethodGet,
		Path:        "/personas/{id}/dependencies",
		Summary:     "Count workstreams and tasks owned by a persona",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*dependenciesOutput, error) {
		d, err := deps.Resolve(ctx, cascade.Persona, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &dependenciesOutput{Body: d}, nil
	})
}

func registerWorkstreams(api huma.API, e engine.Engine, deps *cascade.Resolver) {
	huma.Register(api, huma.Operation{
		OperationID: "list-workstreams",
		Method:      http.MethodGet,
		Path:        "/workstreams",
		Summary:     "List workstreams",
	}, func(ctx context.Context, input *struct {
		PersonaID string `query:"persona_id"`
	}) (*struct {
		Body WorkstreamList `json:"body"`
	}, error) {
		items, err := e.ListWorkstreams(ctx, input.PersonaID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkstreamList `json:"body"`
		}{Body: WorkstreamList{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-workstream",
		Method:        http.MethodPost,
		Path:          "/workstreams",
		Summary:       "Create workstream",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateWorkstreamRequest `json:"body"`
	}) (*workstreamOutput, error) {
		ws, err := e.CreateWorkstream(ctx, input.Body.input())
		if err != nil {
			return nil, handleError(err)
		}
		return &workstreamOutput{Body: ws}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-workstream",
		Method:      http.MethodGet,
		Path:        "/workstreams/{id}",
		Summary:     "Get workstream",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*workstreamOutput, error) {
		ws, err := e.GetWorkstream(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &workstreamOutput{Body: ws}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-workstream",
		Method:      http.MethodPatch,
		Path:        "/workstreams/{id}",
		Summary:     "Update workstream",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string                  `path:"id"`
		Body UpdateWorkstreamRequest `json:"body"`
	}) (*workstreamOutput, error) {
		ws, err := e.UpdateWorkstream(ctx, input.ID, input.Body.patch())
		if err != nil {
			return nil, handleError(err)
		}
		return &workstreamOutput{Body: ws}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-workstream",
		Method:      http.MethodDelete,
		Path:        "/workstreams/{id}",
		Summary:     "Delete workstream",
		Description: "Refuses with 409 when the workstream still has tasks unless cascade=true.",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID      string `path:"id"`
		Cascade bool   `query:"cascade"`
	}) (*deleteOutput, error) {
		if _, err := deps.Gate(ctx, cascade.Workstream, input.ID, input.Cascade); err != nil {
			return nil, handleError(err)
		}
		msg, err := e.DeleteWorkstream(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &deleteOutput{Body: DeleteResponse{Message: msg}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "workstream-dependencies",
		Method:      http.MethodGet,
		Path:        "/workstreams/{id}/dependencies",
		Summary:     "Count tasks in a workstream",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*dependenciesOutput, error) {
		d, err := deps.Resolve(ctx, cascade.Workstream, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &dependenciesOutput{Body: d}, nil
	})
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
	}, func(ctx context.Context, input *struct {
		WorkstreamID string   `query:"workstream_id"`
		PersonaID    string   `query:"persona_id"`
		Status       []string `query:"status" doc:"Comma separated statuses; omitted means all"`
	}) (*struct {
		Body TaskList `json:"body"`
	}, error) {
		items, err := e.ListTasks(ctx, domain.TaskQuery{
			WorkstreamID: input.WorkstreamID,
			PersonaID:    input.PersonaID,
			Statuses:     input.Status,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskList `json:"body"`
		}{Body: TaskList{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest `json:"body"`
	}) (*taskOutput, error) {
		t, err := e.CreateTask(ctx, input.Body.input())
		if err != nil {
			return nil, handleError(err)
		}
		return &taskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "task-counts",
		Method:      http.MethodGet,
		Path:        "/tasks/counts",
		Summary:     "Count tasks per status",
	}, func(ctx context.Context, input *struct {
		WorkstreamID string `query:"workstream_id"`
	}) (*struct {
		Body CountsResponse `json:"body"`
	}, error) {
		counts, err := e.TaskCountsByStatus(ctx, input.WorkstreamID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CountsResponse `json:"body"`
		}{Body: CountsResponse{WorkstreamID: input.WorkstreamID, Counts: counts}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*taskOutput, error) {
		t, err := e.GetTask(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &taskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}",
		Summary:     "Update task",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body UpdateTaskRequest `json:"body"`
	}) (*taskOutput, error) {
		t, err := e.UpdateTask(ctx, input.ID, input.Body.patch())
		if err != nil {
			return nil, handleError(err)
		}
		return &taskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task-status",
		Method:      http.MethodPut,
		Path:        "/tasks/{id}/status",
		Summary:     "Move a task to another status",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string                  `path:"id"`
		Body UpdateTaskStatusRequest `json:"body"`
	}) (*taskOutput, error) {
		t, err := e.UpdateTaskStatus(ctx, input.ID, input.Body.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return &taskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/tasks/{id}",
		Summary:     "Delete task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*deleteOutput, error) {
		msg, err := e.DeleteTask(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &deleteOutput{Body: DeleteResponse{Message: msg}}, nil
	})
}

func registerBoard(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "board-tasks",
		Method:      http.MethodGet,
		Path:        "/board",
		Summary:     "List tasks for the board",
	}, func(ctx context.Context, input *struct {
		WorkstreamID string   `query:"workstream_id"`
		Status       []string `query:"status"`
	}) (*struct {
		Body TaskList `json:"body"`
	}, error) {
		items, err := e.BoardTasks(ctx, input.WorkstreamID, input.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskList `json:"body"`
		}{Body: TaskList{Items: items}}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent events",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind" enum:"persona,workstream,task"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" default:"50"`
		Cursor     string `query:"cursor"`
		After      int64  `query:"after" doc:"Return events with a larger id, oldest first"`
	}) (*struct {
		Body EventList `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		if input.After > 0 {
			items, err := e.EventsAfter(ctx, input.After, limit)
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body EventList `json:"body"`
			}{Body: EventList{Items: items}}, nil
		}
		var before int64
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil {
				return nil, envelope(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			before = parsed
		}
		items, err := e.LatestEvents(ctx, repo.EventFilters{
			Type:       input.Type,
			EntityKind: input.EntityKind,
			EntityID:   input.EntityID,
			Before:     before,
			Limit:      limit + 1,
		})
		if err != nil {
			return nil, handleError(err)
		}
		resp := EventList{Items: items}
		if len(items) > limit {
			// the cursor is exclusive, so point it at the last returned event
			resp.NextCursor = fmt.Sprintf("%d", items[limit-1].ID)
			resp.Items = items[:limit]
		}
		return &struct {
			Body EventList `json:"body"`
		}{Body: resp}, nil
	})
}

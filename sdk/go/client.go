package lifelinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lifeline/internal/domain"
)

type (
	Persona         = domain.Persona
	Workstream      = domain.Workstream
	Task            = domain.Task
	Event           = domain.Event
	Dependencies    = domain.Dependencies
	StatusCounts    = domain.StatusCounts
	PersonaInput    = domain.PersonaInput
	PersonaPatch    = domain.PersonaPatch
	WorkstreamInput = domain.WorkstreamInput
	WorkstreamPatch = domain.WorkstreamPatch
	TaskInput       = domain.TaskInput
	TaskPatch       = domain.TaskPatch
)

// Client is a minimal Lifeline HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v0",
		Timeout:  10 * time.Second,
	}
}

// APIError wraps non-2xx responses. Code, Message and Details are filled
// from the error envelope when the body carries one.
type APIError struct {
	StatusCode int
	Body       string
	Code       string
	Message    string
	Details    map[string]any
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error: status=%d code=%s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

type list[T any] struct {
	Items []T `json:"items"`
}

type deleted struct {
	Message string `json:"message"`
}

type counts struct {
	Counts StatusCounts `json:"counts"`
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "health", nil, nil)
}

func (c *Client) ListPersonas(ctx context.Context) ([]Persona, error) {
	var resp list[Persona]
	err := c.do(ctx, http.MethodGet, "personas", nil, &resp)
	return resp.Items, err
}

func (c *Client) GetPersona(ctx context.Context, id string) (Persona, error) {
	var resp Persona
	err := c.do(ctx, http.MethodGet, "personas/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

func (c *Client) CreatePersona(ctx context.Context, in PersonaInput) (Persona, error) {
	var resp Persona
	err := c.do(ctx, http.MethodPost, "personas", in, &resp)
	return resp, err
}

func (c *Client) UpdatePersona(ctx context.Context, id string, p PersonaPatch) (Persona, error) {
	var resp Persona
	err := c.do(ctx, http.MethodPatch, "personas/"+url.PathEscape(id), p, &resp)
	return resp, err
}

// DeletePersona deletes a persona. Without cascade the server refuses with
// 409 when the persona still owns workstreams.
func (c *Client) DeletePersona(ctx context.Context, id string, cascade bool) (string, error) {
	var resp deleted
	err := c.do(ctx, http.MethodDelete, withQuery("personas/"+url.PathEscape(id), cascadeQuery(cascade)), nil, &resp)
	return resp.Message, err
}

func (c *Client) PersonaDependencies(ctx context.Context, id string) (Dependencies, error) {
	var resp Dependencies
	err := c.do(ctx, http.MethodGet, "personas/"+url.PathEscape(id)+"/dependencies", nil, &resp)
	return resp, err
}

func (c *Client) ListWorkstreams(ctx context.Context, personaID string) ([]Workstream, error) {
	q := url.Values{}
	if personaID != "" {
		q.Set("persona_id", personaID)
	}
	var resp list[Workstream]
	err := c.do(ctx, http.MethodGet, withQuery("workstreams", q), nil, &resp)
	return resp.Items, err
}

func (c *Client) GetWorkstream(ctx context.Context, id string) (Workstream, error) {
	var resp Workstream
	err := c.do(ctx, http.MethodGet, "workstreams/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

func (c *Client) CreateWorkstream(ctx context.Context, in WorkstreamInput) (Workstream, error) {
	var resp Workstream
	err := c.do(ctx, http.MethodPost, "workstreams", in, &resp)
	return resp, err
}

func (c *Client) UpdateWorkstream(ctx context.Context, id string, p WorkstreamPatch) (Workstream, error) {
	var resp Workstream
	err := c.do(ctx, http.MethodPatch, "workstreams/"+url.PathEscape(id), p, &resp)
	return resp, err
}

func (c *Client) DeleteWorkstream(ctx context.Context, id string, cascade bool) (string, error) {
	var resp deleted
	err := c.do(ctx, http.MethodDelete, withQuery("workstreams/"+url.PathEscape(id), cascadeQuery(cascade)), nil, &resp)
	return resp.Message, err
}

func (c *Client) WorkstreamDependencies(ctx context.Context, id string) (Dependencies, error) {
	var resp Dependencies
	err := c.do(ctx, http.MethodGet, "workstreams/"+url.PathEscape(id)+"/dependencies", nil, &resp)
	return resp, err
}

// ListTasks lists tasks. An empty statuses slice means every status.
func (c *Client) ListTasks(ctx context.Context, workstreamID, personaID string, statuses []string) ([]Task, error) {
	q := url.Values{}
	if workstreamID != "" {
		q.Set("workstream_id", workstreamID)
	}
	if personaID != "" {
		q.Set("persona_id", personaID)
	}
	if len(statuses) > 0 {
		q.Set("status", strings.Join(statuses, ","))
	}
	var resp list[Task]
	err := c.do(ctx, http.MethodGet, withQuery("tasks", q), nil, &resp)
	return resp.Items, err
}

func (c *Client) GetTask(ctx context.Context, id string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodGet, "tasks/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

func (c *Client) CreateTask(ctx context.Context, in TaskInput) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, "tasks", in, &resp)
	return resp, err
}

func (c *Client) UpdateTask(ctx context.Context, id string, p TaskPatch) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPatch, "tasks/"+url.PathEscape(id), p, &resp)
	return resp, err
}

func (c *Client) UpdateTaskStatus(ctx context.Context, id, status string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPut, "tasks/"+url.PathEscape(id)+"/status", map[string]string{"status": status}, &resp)
	return resp, err
}

func (c *Client) DeleteTask(ctx context.Context, id string) (string, error) {
	var resp deleted
	err := c.do(ctx, http.MethodDelete, "tasks/"+url.PathEscape(id), nil, &resp)
	return resp.Message, err
}

func (c *Client) TaskCounts(ctx context.Context, workstreamID string) (StatusCounts, error) {
	q := url.Values{}
	if workstreamID != "" {
		q.Set("workstream_id", workstreamID)
	}
	var resp counts
	err := c.do(ctx, http.MethodGet, withQuery("tasks/counts", q), nil, &resp)
	return resp.Counts, err
}

func (c *Client) BoardTasks(ctx context.Context, workstreamID string, statuses []string) ([]Task, error) {
	q := url.Values{}
	if workstreamID != "" {
		q.Set("workstream_id", workstreamID)
	}
	if len(statuses) > 0 {
		q.Set("status", strings.Join(statuses, ","))
	}
	var resp list[Task]
	err := c.do(ctx, http.MethodGet, withQuery("board", q), nil, &resp)
	return resp.Items, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	page, err := c.EventsPage(ctx, limit, "")
	return page.Items, err
}

// EventsPage returns a paginated event listing, newest first.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, withQuery("events", q), nil, &resp)
	return resp, err
}

// EventsAfter returns events newer than id, oldest first.
func (c *Client) EventsAfter(ctx context.Context, id int64, limit int) ([]Event, error) {
	q := url.Values{}
	q.Set("after", fmt.Sprintf("%d", id))
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, withQuery("events", q), nil, &resp)
	return resp.Items, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return newAPIError(resp.StatusCode, b)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: string(body)}
	var env struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &env) == nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.Details = env.Error.Details
	}
	return apiErr
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base
}

func withQuery(endpoint string, q url.Values) string {
	if len(q) == 0 {
		return endpoint
	}
	return endpoint + "?" + q.Encode()
}

func cascadeQuery(cascade bool) url.Values {
	if !cascade {
		return nil
	}
	return url.Values{"cascade": {"true"}}
}

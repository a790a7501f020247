// Package board moves tasks between status columns with optimistic local
// updates that are committed or rolled back once the service answers.
package board

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"lifeline/internal/domain"
	"lifeline/internal/flow"
	"lifeline/internal/hierarchy"
	"lifeline/internal/status"
	"lifeline/internal/view"
)

// ErrTransitionPending is returned when a task is dropped while a previous
// drop of the same task is still waiting for the service.
var ErrTransitionPending = errors.New("status change already in progress")

type Phase int

const (
	Idle Phase = iota
	Pending
	Committed
	RolledBack
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Outcome is the final state of one drop. Task is the authoritative task on
// commit and the restored task on rollback.
type Outcome struct {
	TaskID string
	From   string
	To     string
	Phase  Phase
	Task   domain.Task
	Err    error
}

type Controller struct {
	store   *hierarchy.Store
	log     *slog.Logger
	columns []string

	mu      sync.Mutex
	pending map[string]bool
	scope   string
	counts  flow.State[domain.StatusCounts]
}

type Option func(*Controller)

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithColumns sets the visible status columns. Unknown values are dropped;
// an empty result keeps every status.
func WithColumns(raw ...string) Option {
	return func(c *Controller) {
		cols := view.Filters{}.WithStatuses(raw...).Statuses
		if len(cols) > 0 {
			c.columns = cols
		}
	}
}

func New(store *hierarchy.Store, opts ...Option) *Controller {
	c := &Controller{
		store:   store,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		columns: status.TaskStatuses.Tags(),
		pending: map[string]bool{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load loads the store and the counts for the current scope.
func (c *Controller) Load(ctx context.Context) error {
	if err := c.store.Load(ctx); err != nil {
		return err
	}
	return c.RefreshCounts(ctx)
}

// SetScope selects the workstream the counts cover ("" for all) and refreshes them.
func (c *Controller) SetScope(ctx context.Context, workstreamID string) error {
	if workstreamID == view.All {
		workstreamID = ""
	}
	c.mu.Lock()
	c.scope = workstreamID
	c.mu.Unlock()
	return c.RefreshCounts(ctx)
}

func (c *Controller) Scope() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scope
}

func (c *Controller) Counts() flow.State[domain.StatusCounts] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts
}

func (c *Controller) RefreshCounts(ctx context.Context) error {
	c.mu.Lock()
	scope := c.scope
	c.counts = c.counts.Start()
	c.mu.Unlock()

	counts, err := c.store.Service().TaskCountsByStatus(ctx, scope)

	c.mu.Lock()
	defer c.mu.Unlock()
	if scope != c.scope {
		return nil
	}
	if err != nil {
		c.counts = c.counts.Fail(err)
		return fmt.Errorf("task counts: %w", err)
	}
	c.counts = c.counts.Succeed(counts)
	return nil
}

// IsPending reports whether a drop of the task is waiting for the service.
func (c *Controller) IsPending(taskID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[taskID]
}

// Drop moves a task to target. An unknown target, unknown task or a drop
// onto the current status leaves everything untouched and returns Idle.
func (c *Controller) Drop(ctx context.Context, taskID, target string) Outcome {
	out := Outcome{TaskID: taskID, To: target, Phase: Idle}
	tag, ok := status.TaskStatuses.Match(target)
	if !ok {
		out.Err = domain.Invalid("status", "unknown task status %q", target)
		return out
	}
	out.To = tag

	c.mu.Lock()
	if c.pending[taskID] {
		c.mu.Unlock()
		out.Err = ErrTransitionPending
		return out
	}
	task, ok := c.store.Task(taskID)
	if !ok {
		c.mu.Unlock()
		out.Err = fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
		return out
	}
	out.From = task.Status
	out.Task = task
	if task.Status == tag {
		c.mu.Unlock()
		return out
	}
	change, ok := c.store.BeginTaskStatus(taskID, tag)
	if !ok {
		c.mu.Unlock()
		out.Err = fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
		return out
	}
	c.pending[taskID] = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, taskID)
		c.mu.Unlock()
	}()

	c.log.Debug("status change pending", "task", taskID, "from", out.From, "to", tag)
	updated, err := c.store.Service().UpdateTaskStatus(ctx, taskID, tag)
	if err != nil {
		c.store.RevertTaskStatus(change)
		c.log.Warn("status change rolled back", "task", taskID, "to", tag, "error", err)
		out.Phase = RolledBack
		out.Task = change.Previous
		out.Err = fmt.Errorf("update task status: %w", err)
		return out
	}

	if !c.store.CommitTaskStatus(change, updated) {
		c.log.Debug("status change superseded", "task", taskID)
	}
	out.Phase = Committed
	out.Task = updated
	if err := c.RefreshCounts(ctx); err != nil {
		c.log.Warn("count refresh failed", "error", err)
	}
	c.log.Info("status changed", "task", taskID, "from", out.From, "to", tag)
	return out
}

// DropAsync runs Drop on its own goroutine. The channel receives exactly
// one Outcome and is then closed.
func (c *Controller) DropAsync(ctx context.Context, taskID, target string) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		ch <- c.Drop(ctx, taskID, target)
	}()
	return ch
}

// Column is one status lane of the board.
type Column struct {
	Status string        `json:"status"`
	Label  string        `json:"label"`
	Color  string        `json:"color"`
	Tasks  []domain.Task `json:"tasks"`
	// Total is the service-side count when the loaded counts cover exactly
	// the filtered scope, otherwise len(Tasks).
	Total int `json:"total"`
}

// Columns groups the filtered view by visible status. A column is shown
// only when its status is also selected by the filters.
func (c *Controller) Columns(f view.Filters, s view.Sort) []Column {
	c.mu.Lock()
	counts, haveCounts := c.counts.Data()
	haveCounts = haveCounts && countsCover(f, c.scope)
	cols := append([]string(nil), c.columns...)
	c.mu.Unlock()

	visible := make([]string, 0, len(cols))
	for _, tag := range cols {
		for _, sel := range f.Statuses {
			if sel == tag {
				visible = append(visible, tag)
				break
			}
		}
	}

	tasks := view.Derive(c.store.Tasks(), c.store.Workstreams(), f, s)
	groups := view.Group(tasks, visible)
	out := make([]Column, 0, len(visible))
	for _, tag := range visible {
		opt, _ := status.TaskStatuses.Lookup(tag)
		col := Column{Status: tag, Label: opt.Label, Color: opt.Color, Tasks: groups[tag], Total: len(groups[tag])}
		if haveCounts {
			col.Total = counts[tag]
		}
		out = append(out, col)
	}
	return out
}

// CountsFor returns per-status counts for the filtered scope, zero-filled
// for every status. It uses the loaded service counts when they cover the
// filters and counts the local view otherwise.
func (c *Controller) CountsFor(f view.Filters) domain.StatusCounts {
	all := f
	all.Statuses = status.TaskStatuses.Tags()
	c.mu.Lock()
	counts, ok := c.counts.Data()
	ok = ok && countsCover(f, c.scope)
	c.mu.Unlock()

	out := domain.StatusCounts{}
	for _, tag := range all.Statuses {
		out[tag] = 0
	}
	if ok {
		for tag, n := range counts {
			out[status.Task(tag)] += n
		}
		return out
	}
	for _, t := range view.Derive(c.store.Tasks(), c.store.Workstreams(), all, view.Sort{}) {
		out[status.Task(t.Status)]++
	}
	return out
}

// countsCover reports whether counts loaded for the workstream scope match
// the filters. Counts carry no persona dimension.
func countsCover(f view.Filters, scope string) bool {
	if f.PersonaID != "" && f.PersonaID != view.All {
		return false
	}
	ws := f.WorkstreamID
	if ws == view.All {
		ws = ""
	}
	return ws == scope
}

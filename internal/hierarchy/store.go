// Package hierarchy keeps the local Persona, Workstream and Task collections
// consistent with the persistence service.
//
// State changes happen under one mutex and only when a service call has
// completed; calls are made without holding it. Every update or delete takes
// a sequence number when it is issued. A successful response is applied only
// when its number is above the highest one already applied for that entity,
// so a late answer never overwrites a newer one. Failed calls apply nothing
// and never invalidate an earlier call.
package hierarchy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"lifeline/internal/backend"
	"lifeline/internal/cascade"
	"lifeline/internal/domain"
	"lifeline/internal/flow"
	"lifeline/internal/status"
)

type Store struct {
	svc  backend.Service
	deps *cascade.Resolver
	log  *slog.Logger

	mu          sync.Mutex
	personas    []domain.Persona
	workstreams []domain.Workstream
	tasks       []domain.Task
	state       flow.State[int]
	applied     map[string]uint64
	next        uint64
	// optimistic holds the in-flight status change per task id.
	optimistic map[string]StatusChange
}

type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

func New(svc backend.Service, opts ...Option) *Store {
	s := &Store{
		svc:        svc,
		deps:       cascade.New(svc),
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		applied:    map[string]uint64{},
		optimistic: map[string]StatusChange{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Service returns the backing persistence service.
func (s *Store) Service() backend.Service { return s.svc }

// Resolver returns the dependency resolver bound to the service.
func (s *Store) Resolver() *cascade.Resolver { return s.deps }

// State reports the load state of the collections. The data is the number
// of completed loads.
func (s *Store) State() flow.State[int] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Load fetches every collection and replaces the local copies.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	s.state = s.state.Start()
	s.mu.Unlock()

	personas, workstreams, tasks, err := s.fetchAll(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = s.state.Fail(err)
		s.log.Warn("load failed", "error", err)
		return err
	}
	s.personas = personas
	s.workstreams = make([]domain.Workstream, len(workstreams))
	for i, ws := range workstreams {
		s.workstreams[i] = normalizeWorkstream(ws)
	}
	s.tasks = make([]domain.Task, len(tasks))
	for i, t := range tasks {
		s.tasks[i] = normalizeTask(t)
	}
	loads, _ := s.state.Data()
	s.state = s.state.Succeed(loads + 1)
	s.log.Debug("loaded", "personas", len(personas), "workstreams", len(workstreams), "tasks", len(tasks))
	return nil
}

// Reconcile discards local state and reloads it from the service.
func (s *Store) Reconcile(ctx context.Context) error {
	s.log.Info("reconciling with service")
	return s.Load(ctx)
}

func (s *Store) fetchAll(ctx context.Context) ([]domain.Persona, []domain.Workstream, []domain.Task, error) {
	personas, err := s.svc.ListPersonas(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list personas: %w", err)
	}
	workstreams, err := s.svc.ListWorkstreams(ctx, "")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list workstreams: %w", err)
	}
	tasks, err := s.svc.ListTasks(ctx, domain.TaskQuery{})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list tasks: %w", err)
	}
	return personas, workstreams, tasks, nil
}

func (s *Store) Personas() []domain.Persona {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.personas)
}

func (s *Store) Workstreams() []domain.Workstream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.workstreams)
}

func (s *Store) Tasks() []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.tasks)
}

func (s *Store) Persona(id string) (domain.Persona, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.personaIndex(id); i >= 0 {
		return s.personas[i], true
	}
	return domain.Persona{}, false
}

func (s *Store) Workstream(id string) (domain.Workstream, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.workstreamIndex(id); i >= 0 {
		return s.workstreams[i], true
	}
	return domain.Workstream{}, false
}

func (s *Store) Task(id string) (domain.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.taskIndex(id); i >= 0 {
		return s.tasks[i], true
	}
	return domain.Task{}, false
}

// Dependencies reports what deleting the entity would remove.
func (s *Store) Dependencies(ctx context.Context, kind cascade.Kind, id string) (domain.Dependencies, error) {
	return s.deps.Resolve(ctx, kind, id)
}

// ticket reserves the next sequence number. Caller holds mu.
func (s *Store) ticket() uint64 {
	s.next++
	return s.next
}

// claim reports whether a successful response numbered n may be applied to
// key and, if so, records it as the newest applied. Caller holds mu.
func (s *Store) claim(key string, n uint64) bool {
	if latest := s.applied[key]; n <= latest {
		s.log.Debug("discarding stale response", "entity", key, "seq", n, "applied", latest)
		return false
	}
	s.applied[key] = n
	return true
}

func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticket()
}

func personaKey(id string) string    { return "persona:" + id }
func workstreamKey(id string) string { return "workstream:" + id }
func taskKey(id string) string       { return "task:" + id }

func (s *Store) personaIndex(id string) int {
	return slices.IndexFunc(s.personas, func(p domain.Persona) bool { return p.ID == id })
}

func (s *Store) workstreamIndex(id string) int {
	return slices.IndexFunc(s.workstreams, func(ws domain.Workstream) bool { return ws.ID == id })
}

func (s *Store) taskIndex(id string) int {
	return slices.IndexFunc(s.tasks, func(t domain.Task) bool { return t.ID == id })
}

// decorate fills the derived fields from local parents. Caller holds mu.
func (s *Store) decorateWorkstream(ws domain.Workstream) domain.Workstream {
	if i := s.personaIndex(ws.PersonaID); i >= 0 {
		ws.PersonaName = s.personas[i].Name
		ws.PersonaColor = s.personas[i].Color
	}
	return ws
}

func (s *Store) decorateTask(t domain.Task) domain.Task {
	if i := s.workstreamIndex(t.WorkstreamID); i >= 0 {
		ws := s.workstreams[i]
		t.WorkstreamName = ws.Name
		t.PersonaID = ws.PersonaID
		t.PersonaColor = ws.PersonaColor
	}
	return t
}

func normalizeWorkstream(ws domain.Workstream) domain.Workstream {
	ws.Status = status.Workstream(ws.Status)
	ws.Priority = status.Priority(ws.Priority)
	return ws
}

func normalizeTask(t domain.Task) domain.Task {
	t.Status = status.Task(t.Status)
	t.Priority = status.Priority(t.Priority)
	return t
}

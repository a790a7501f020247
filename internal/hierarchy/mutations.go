package hierarchy

import (
	"context"
	"fmt"
	"slices"

	"lifeline/internal/backend"
	"lifeline/internal/cascade"
	"lifeline/internal/domain"
)

func (s *Store) CreatePersona(ctx context.Context, in domain.PersonaInput) (domain.Persona, error) {
	if _, _, err := backend.PreparePersona(in); err != nil {
		return domain.Persona{}, err
	}
	p, err := s.svc.CreatePersona(ctx, in)
	if err != nil {
		return domain.Persona{}, fmt.Errorf("create persona: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.personas = slices.Insert(s.personas, 0, p)
	s.log.Info("persona created", "id", p.ID, "name", p.Name)
	return p, nil
}

func (s *Store) CreateWorkstream(ctx context.Context, in domain.WorkstreamInput) (domain.Workstream, error) {
	if _, err := backend.PrepareWorkstream(in); err != nil {
		return domain.Workstream{}, err
	}
	if _, ok := s.Persona(in.PersonaID); !ok {
		return domain.Workstream{}, domain.Invalid("persona_id", "persona %s does not exist", in.PersonaID)
	}
	ws, err := s.svc.CreateWorkstream(ctx, in)
	if err != nil {
		return domain.Workstream{}, fmt.Errorf("create workstream: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ws = s.decorateWorkstream(normalizeWorkstream(ws))
	s.workstreams = slices.Insert(s.workstreams, 0, ws)
	s.log.Info("workstream created", "id", ws.ID, "persona", ws.PersonaID)
	return ws, nil
}

func (s *Store) CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	if _, err := backend.PrepareTask(in); err != nil {
		return domain.Task{}, err
	}
	if _, ok := s.Workstream(in.WorkstreamID); !ok {
		return domain.Task{}, domain.Invalid("workstream_id", "workstream %s does not exist", in.WorkstreamID)
	}
	t, err := s.svc.CreateTask(ctx, in)
	if err != nil {
		return domain.Task{}, fmt.Errorf("create task: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t = s.decorateTask(normalizeTask(t))
	s.tasks = slices.Insert(s.tasks, 0, t)
	s.log.Info("task created", "id", t.ID, "workstream", t.WorkstreamID)
	return t, nil
}

func (s *Store) UpdatePersona(ctx context.Context, id string, patch domain.PersonaPatch) (domain.Persona, error) {
	if _, err := backend.PreparePersonaPatch(patch); err != nil {
		return domain.Persona{}, err
	}
	if _, ok := s.Persona(id); !ok {
		return domain.Persona{}, fmt.Errorf("persona %s: %w", id, domain.ErrNotFound)
	}
	key := personaKey(id)
	n := s.begin()
	p, err := s.svc.UpdatePersona(ctx, id, patch)
	if err != nil {
		return domain.Persona{}, fmt.Errorf("update persona: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.claim(key, n) {
		return p, nil
	}
	i := s.personaIndex(id)
	if i < 0 {
		return p, nil
	}
	s.personas[i] = p
	for j := range s.workstreams {
		if s.workstreams[j].PersonaID == id {
			s.workstreams[j] = s.decorateWorkstream(s.workstreams[j])
		}
	}
	for j := range s.tasks {
		if s.tasks[j].PersonaID == id {
			s.tasks[j] = s.decorateTask(s.tasks[j])
		}
	}
	return p, nil
}

func (s *Store) UpdateWorkstream(ctx context.Context, id string, patch domain.WorkstreamPatch) (domain.Workstream, error) {
	if _, err := backend.PrepareWorkstreamPatch(patch); err != nil {
		return domain.Workstream{}, err
	}
	if _, ok := s.Workstream(id); !ok {
		return domain.Workstream{}, fmt.Errorf("workstream %s: %w", id, domain.ErrNotFound)
	}
	key := workstreamKey(id)
	n := s.begin()
	ws, err := s.svc.UpdateWorkstream(ctx, id, patch)
	if err != nil {
		return domain.Workstream{}, fmt.Errorf("update workstream: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ws = s.decorateWorkstream(normalizeWorkstream(ws))
	if !s.claim(key, n) {
		return ws, nil
	}
	i := s.workstreamIndex(id)
	if i < 0 {
		return ws, nil
	}
	s.workstreams[i] = ws
	for j := range s.tasks {
		if s.tasks[j].WorkstreamID == id {
			s.tasks[j] = s.decorateTask(s.tasks[j])
		}
	}
	return ws, nil
}

func (s *Store) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	if _, err := backend.PrepareTaskPatch(patch); err != nil {
		return domain.Task{}, err
	}
	if _, ok := s.Task(id); !ok {
		return domain.Task{}, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	key := taskKey(id)
	n := s.begin()
	t, err := s.svc.UpdateTask(ctx, id, patch)
	if err != nil {
		return domain.Task{}, fmt.Errorf("update task: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t = s.decorateTask(normalizeTask(t))
	if !s.claim(key, n) {
		return t, nil
	}
	if i := s.taskIndex(id); i >= 0 {
		s.tasks[i] = s.withOptimistic(t, n)
	}
	return t, nil
}

// DeletePersona removes a persona. When it still owns workstreams or tasks
// the delete fails with a *cascade.BlockedError unless cascade is set, in
// which case the children are removed locally too.
func (s *Store) DeletePersona(ctx context.Context, id string, cascadeAck bool) (string, error) {
	if _, err := s.deps.Gate(ctx, cascade.Persona, id, cascadeAck); err != nil {
		return "", err
	}
	key := personaKey(id)
	n := s.begin()
	msg, err := s.svc.DeletePersona(ctx, id)
	if err != nil {
		return "", fmt.Errorf("delete persona: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.claim(key, n) {
		return msg, nil
	}
	owned := map[string]bool{}
	s.workstreams = slices.DeleteFunc(s.workstreams, func(ws domain.Workstream) bool {
		if ws.PersonaID == id {
			owned[ws.ID] = true
			return true
		}
		return false
	})
	s.tasks = slices.DeleteFunc(s.tasks, func(t domain.Task) bool { return owned[t.WorkstreamID] })
	s.personas = slices.DeleteFunc(s.personas, func(p domain.Persona) bool { return p.ID == id })
	s.log.Info("persona deleted", "id", id, "workstreams", len(owned))
	return msg, nil
}

func (s *Store) DeleteWorkstream(ctx context.Context, id string, cascadeAck bool) (string, error) {
	if _, err := s.deps.Gate(ctx, cascade.Workstream, id, cascadeAck); err != nil {
		return "", err
	}
	key := workstreamKey(id)
	n := s.begin()
	msg, err := s.svc.DeleteWorkstream(ctx, id)
	if err != nil {
		return "", fmt.Errorf("delete workstream: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.claim(key, n) {
		return msg, nil
	}
	s.tasks = slices.DeleteFunc(s.tasks, func(t domain.Task) bool { return t.WorkstreamID == id })
	s.workstreams = slices.DeleteFunc(s.workstreams, func(ws domain.Workstream) bool { return ws.ID == id })
	s.log.Info("workstream deleted", "id", id)
	return msg, nil
}

// DeleteTask removes a task. Tasks have no dependents.
func (s *Store) DeleteTask(ctx context.Context, id string) (string, error) {
	key := taskKey(id)
	n := s.begin()
	msg, err := s.svc.DeleteTask(ctx, id)
	if err != nil {
		return "", fmt.Errorf("delete task: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.claim(key, n) {
		return msg, nil
	}
	s.tasks = slices.DeleteFunc(s.tasks, func(t domain.Task) bool { return t.ID == id })
	s.log.Info("task deleted", "id", id)
	return msg, nil
}

// Delete dispatches on kind.
func (s *Store) Delete(ctx context.Context, kind cascade.Kind, id string, cascadeAck bool) (string, error) {
	switch kind {
	case cascade.Persona:
		return s.DeletePersona(ctx, id, cascadeAck)
	case cascade.Workstream:
		return s.DeleteWorkstream(ctx, id, cascadeAck)
	case cascade.Task:
		return s.DeleteTask(ctx, id)
	}
	return "", domain.Invalid("kind", "unknown entity kind %q", kind)
}

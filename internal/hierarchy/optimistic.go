package hierarchy

import "lifeline/internal/domain"

// StatusChange identifies one optimistic status update of a task.
type StatusChange struct {
	TaskID   string
	Previous domain.Task
	To       string
	seq      uint64
}

// BeginTaskStatus applies to locally and returns the change to commit or
// revert later. It reports false when the task is not known.
func (s *Store) BeginTaskStatus(id, to string) (StatusChange, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.taskIndex(id)
	if i < 0 {
		return StatusChange{}, false
	}
	c := StatusChange{TaskID: id, Previous: s.tasks[i], To: to, seq: s.ticket()}
	s.tasks[i].Status = to
	s.optimistic[id] = c
	return c, true
}

// CommitTaskStatus replaces the task with the authoritative copy. It reports
// false when a later mutation of the task was already applied.
func (s *Store) CommitTaskStatus(c StatusChange, t domain.Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settle(c)
	if !s.claim(taskKey(c.TaskID), c.seq) {
		return false
	}
	i := s.taskIndex(c.TaskID)
	if i < 0 {
		return false
	}
	s.tasks[i] = s.withOptimistic(s.decorateTask(normalizeTask(t)), c.seq)
	return true
}

// RevertTaskStatus restores the status the task had before BeginTaskStatus.
// Other fields keep whatever earlier responses brought in. Nothing is
// restored when a later mutation of the task was applied or a later status
// change is still in flight.
func (s *Store) RevertTaskStatus(c StatusChange) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settle(c)
	if latest := s.applied[taskKey(c.TaskID)]; latest > c.seq {
		s.log.Debug("revert superseded", "task", c.TaskID, "seq", c.seq, "applied", latest)
		return false
	}
	if pending, ok := s.optimistic[c.TaskID]; ok && pending.seq > c.seq {
		return false
	}
	i := s.taskIndex(c.TaskID)
	if i < 0 {
		return false
	}
	s.tasks[i].Status = c.Previous.Status
	s.tasks[i].CompletedAt = c.Previous.CompletedAt
	return true
}

// settle forgets c as the in-flight change of its task. Caller holds mu.
func (s *Store) settle(c StatusChange) {
	if pending, ok := s.optimistic[c.TaskID]; ok && pending.seq == c.seq {
		delete(s.optimistic, c.TaskID)
	}
}

// withOptimistic keeps a status change issued after seq visible over a
// response for seq. Caller holds mu.
func (s *Store) withOptimistic(t domain.Task, seq uint64) domain.Task {
	if pending, ok := s.optimistic[t.ID]; ok && pending.seq > seq {
		t.Status = pending.To
	}
	return t
}

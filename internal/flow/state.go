// Package flow holds the load state of a single asynchronous workflow.
package flow

import "fmt"

type Phase int

const (
	Idle Phase = iota
	Loading
	Loaded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is one of Idle, Loading, Loaded(data) or Failed(err). The zero value is Idle.
// The last loaded value survives a reload or a failure so callers can keep showing it.
type State[T any] struct {
	phase Phase
	data  T
	has   bool
	err   error
}

func (s State[T]) Phase() Phase { return s.phase }
func (s State[T]) Err() error   { return s.err }

// Data returns the last loaded value and whether one exists.
func (s State[T]) Data() (T, bool) { return s.data, s.has }

// Start moves to Loading.
func (s State[T]) Start() State[T] {
	return State[T]{phase: Loading, data: s.data, has: s.has}
}

// Succeed moves to Loaded(data).
func (s State[T]) Succeed(data T) State[T] {
	return State[T]{phase: Loaded, data: data, has: true}
}

// Fail moves to Failed(err).
func (s State[T]) Fail(err error) State[T] {
	return State[T]{phase: Failed, data: s.data, has: s.has, err: err}
}

func (s State[T]) String() string {
	if s.phase == Failed {
		return fmt.Sprintf("failed: %v", s.err)
	}
	return s.phase.String()
}

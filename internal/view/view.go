// Package view derives filtered, ordered task lists.
package view

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"lifeline/internal/domain"
	"lifeline/internal/status"
)

// All matches any workstream or persona.
const All = "all"

// Filters are combined with AND. Statuses holds canonical task status tags;
// an empty set matches nothing.
type Filters struct {
	WorkstreamID string
	PersonaID    string
	Statuses     []string
}

// DefaultFilters selects every task.
func DefaultFilters() Filters {
	return Filters{WorkstreamID: All, PersonaID: All, Statuses: status.TaskStatuses.Tags()}
}

// WithStatuses returns f restricted to the given raw statuses, dropping
// values that are not task statuses.
func (f Filters) WithStatuses(raw ...string) Filters {
	f.Statuses = make([]string, 0, len(raw))
	for _, r := range raw {
		if tag, ok := status.TaskStatuses.Match(r); ok && !slices.Contains(f.Statuses, tag) {
			f.Statuses = append(f.Statuses, tag)
		}
	}
	return f
}

type Field string

const (
	Title      Field = "title"
	Status     Field = "status"
	Priority   Field = "priority"
	Workstream Field = "workstream"
	CreatedAt  Field = "created_at"
	UpdatedAt  Field = "updated_at"
)

var Fields = []Field{Title, Status, Priority, Workstream, CreatedAt, UpdatedAt}

func ParseField(s string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Fields, f) {
		return f, nil
	}
	return "", fmt.Errorf("unknown sort field %q", s)
}

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Asc, "":
		return Asc, nil
	case Desc:
		return Desc, nil
	}
	return "", fmt.Errorf("unknown sort direction %q", s)
}

type Sort struct {
	Field     Field
	Direction Direction
}

// DefaultSort orders by creation time, newest first.
func DefaultSort() Sort {
	return Sort{Field: CreatedAt, Direction: Desc}
}

// Toggle flips the direction when field is already selected and otherwise
// switches to field ascending.
func (s Sort) Toggle(field Field) Sort {
	if s.Field == field {
		if s.Direction == Desc {
			return Sort{Field: field, Direction: Asc}
		}
		return Sort{Field: field, Direction: Desc}
	}
	return Sort{Field: field, Direction: Asc}
}

// Derive filters and orders tasks. Persona filtering joins through the
// owning workstream. The input slice is not modified and ties keep their
// input order.
func Derive(tasks []domain.Task, workstreams []domain.Workstream, f Filters, s Sort) []domain.Task {
	owner := make(map[string]string, len(workstreams))
	for _, ws := range workstreams {
		owner[ws.ID] = ws.PersonaID
	}
	allowed := make(map[string]bool, len(f.Statuses))
	for _, tag := range f.Statuses {
		allowed[tag] = true
	}

	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if !wildcard(f.WorkstreamID) && t.WorkstreamID != f.WorkstreamID {
			continue
		}
		if !wildcard(f.PersonaID) && owner[t.WorkstreamID] != f.PersonaID {
			continue
		}
		if !allowed[status.Task(t.Status)] {
			continue
		}
		out = append(out, t)
	}

	less := comparator(s.Field)
	slices.SortStableFunc(out, func(a, b domain.Task) int {
		c := less(a, b)
		if s.Direction == Desc {
			return -c
		}
		return c
	})
	return out
}

func wildcard(v string) bool { return v == "" || v == All }

func comparator(f Field) func(a, b domain.Task) int {
	switch f {
	case Title:
		return func(a, b domain.Task) int {
			return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		}
	case Status:
		return func(a, b domain.Task) int {
			return cmp.Compare(status.TaskStatuses.Rank(status.Task(a.Status)), status.TaskStatuses.Rank(status.Task(b.Status)))
		}
	case Priority:
		return func(a, b domain.Task) int {
			return cmp.Compare(status.Priorities.Rank(status.Priority(a.Priority)), status.Priorities.Rank(status.Priority(b.Priority)))
		}
	case Workstream:
		return func(a, b domain.Task) int {
			return cmp.Compare(strings.ToLower(a.WorkstreamName), strings.ToLower(b.WorkstreamName))
		}
	case UpdatedAt:
		return func(a, b domain.Task) int { return a.UpdatedAt.Compare(b.UpdatedAt) }
	default:
		return func(a, b domain.Task) int { return a.CreatedAt.Compare(b.CreatedAt) }
	}
}

// Group splits tasks into one bucket per status tag, preserving order.
func Group(tasks []domain.Task, statuses []string) map[string][]domain.Task {
	out := make(map[string][]domain.Task, len(statuses))
	for _, tag := range statuses {
		out[tag] = []domain.Task{}
	}
	for _, t := range tasks {
		tag := status.Task(t.Status)
		if _, ok := out[tag]; ok {
			out[tag] = append(out[tag], t)
		}
	}
	return out
}

package backend

import (
	"strings"
	"time"

	"lifeline/internal/domain"
	"lifeline/internal/status"
)

// Input checks shared by every Service implementation. Explicit enum values
// must match a member after cleaning; missing ones take the form defaults.

func PreparePersona(in domain.PersonaInput) (domain.PersonaInput, bool, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, false, domain.Invalid("name", "persona name is required")
	}
	in.Color = strings.TrimSpace(in.Color)
	if in.Color == "" {
		in.Color = domain.DefaultPersonaColor
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return in, active, nil
}

func PrepareWorkstream(in domain.WorkstreamInput) (domain.WorkstreamInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if strings.TrimSpace(in.PersonaID) == "" {
		return in, domain.Invalid("persona_id", "persona is required")
	}
	if in.Name == "" {
		return in, domain.Invalid("name", "workstream name is required")
	}
	var err error
	if in.Status, err = enum(status.WorkstreamStatuses, "status", in.Status, domain.WorkstreamPlanning); err != nil {
		return in, err
	}
	if in.Priority, err = enum(status.Priorities, "priority", in.Priority, domain.PriorityMedium); err != nil {
		return in, err
	}
	return in, nil
}

func PrepareTask(in domain.TaskInput) (domain.TaskInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	if strings.TrimSpace(in.WorkstreamID) == "" {
		return in, domain.Invalid("workstream_id", "workstream is required")
	}
	if in.Title == "" {
		return in, domain.Invalid("title", "task title is required")
	}
	var err error
	if in.Status, err = enum(status.TaskStatuses, "status", in.Status, domain.TaskTodo); err != nil {
		return in, err
	}
	if in.Priority, err = enum(status.Priorities, "priority", in.Priority, domain.PriorityMedium); err != nil {
		return in, err
	}
	if in.DueDate, err = DueDate(in.DueDate); err != nil {
		return in, err
	}
	return in, nil
}

func PreparePersonaPatch(p domain.PersonaPatch) (domain.PersonaPatch, error) {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return p, domain.Invalid("name", "persona name cannot be empty")
		}
		p.Name = &name
	}
	if p.Color != nil && strings.TrimSpace(*p.Color) == "" {
		c := domain.DefaultPersonaColor
		p.Color = &c
	}
	return p, nil
}

func PrepareWorkstreamPatch(p domain.WorkstreamPatch) (domain.WorkstreamPatch, error) {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return p, domain.Invalid("name", "workstream name cannot be empty")
		}
		p.Name = &name
	}
	if err := enumPtr(status.WorkstreamStatuses, "status", &p.Status); err != nil {
		return p, err
	}
	if err := enumPtr(status.Priorities, "priority", &p.Priority); err != nil {
		return p, err
	}
	return p, nil
}

func PrepareTaskPatch(p domain.TaskPatch) (domain.TaskPatch, error) {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return p, domain.Invalid("title", "task title cannot be empty")
		}
		p.Title = &title
	}
	if err := enumPtr(status.TaskStatuses, "status", &p.Status); err != nil {
		return p, err
	}
	if err := enumPtr(status.Priorities, "priority", &p.Priority); err != nil {
		return p, err
	}
	if p.DueDate != nil {
		d, err := DueDate(*p.DueDate)
		if err != nil {
			return p, err
		}
		p.DueDate = &d
	}
	return p, nil
}

// DueDate reduces raw to a YYYY-MM-DD day. Full RFC 3339 timestamps are
// accepted and truncated; empty stays empty.
func DueDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(time.DateOnly), nil
		}
	}
	return "", domain.Invalid("due_date", "due date %q is not a YYYY-MM-DD date", raw)
}

// TaskStatus validates an explicit status transition target.
func TaskStatus(raw string) (string, error) {
	tag, ok := status.TaskStatuses.Match(raw)
	if !ok {
		return "", domain.Invalid("status", "unknown task status %q", raw)
	}
	return tag, nil
}

// StatusFilter cleans a status filter list, dropping values that match nothing.
func StatusFilter(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if tag, ok := status.TaskStatuses.Match(s); ok {
			out = append(out, tag)
		}
	}
	return out
}

// ZeroCounts returns counts with every task status present.
func ZeroCounts() domain.StatusCounts {
	counts := domain.StatusCounts{}
	for _, tag := range status.TaskStatuses.Tags() {
		counts[tag] = 0
	}
	return counts
}

func enum(opts status.Options, field, raw, def string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	tag, ok := opts.Match(raw)
	if !ok {
		return "", domain.Invalid(field, "unknown %s %q", field, raw)
	}
	return tag, nil
}

func enumPtr(opts status.Options, field string, v **string) error {
	if *v == nil {
		return nil
	}
	tag, ok := opts.Match(**v)
	if !ok {
		return domain.Invalid(field, "unknown %s %q", field, **v)
	}
	*v = &tag
	return nil
}

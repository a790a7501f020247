// Package status cleans raw status and priority values into their canonical tags.
package status

import (
	"strings"
	"unicode"

	"lifeline/internal/domain"
)

// Option is one member of an ordered enumeration.
type Option struct {
	Tag   string
	Label string
	Color string
}

// Options is an ordered enumeration. The first entry is the fallback for
// values that do not match any tag.
type Options []Option

var TaskStatuses = Options{
	{Tag: domain.TaskBacklog, Label: "Backlog", Color: "#6b7280"},
	{Tag: domain.TaskTodo, Label: "To Do", Color: "#3b82f6"},
	{Tag: domain.TaskInProgress, Label: "In Progress", Color: "#f59e0b"},
	{Tag: domain.TaskReview, Label: "Review", Color: "#8b5cf6"},
	{Tag: domain.TaskDone, Label: "Done", Color: "#10b981"},
}

var Priorities = Options{
	{Tag: domain.PriorityLow, Label: "Low", Color: "#10b981"},
	{Tag: domain.PriorityMedium, Label: "Medium", Color: "#f59e0b"},
	{Tag: domain.PriorityHigh, Label: "High", Color: "#f97316"},
	{Tag: domain.PriorityCritical, Label: "Critical", Color: "#ef4444"},
}

var WorkstreamStatuses = Options{
	{Tag: domain.WorkstreamPlanning, Label: "Planning", Color: "#6b7280"},
	{Tag: domain.WorkstreamActive, Label: "Active", Color: "#10b981"},
	{Tag: domain.WorkstreamPaused, Label: "Paused", Color: "#f59e0b"},
	{Tag: domain.WorkstreamCompleted, Label: "Completed", Color: "#059669"},
	{Tag: domain.WorkstreamCancelled, Label: "Cancelled", Color: "#dc2626"},
}

// Clean strips one layer of wrapping quotes, drops escaped quotes, lowercases
// and removes all whitespace. It does not consult any enumeration.
func Clean(raw string) string {
	s := raw
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'') && first == last {
			s = s[1 : len(s)-1]
		}
	}
	s = strings.ReplaceAll(s, `\"`, "")
	s = strings.ReplaceAll(s, `\'`, "")
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

// Match returns the canonical tag for raw, or false if raw names no member.
func (o Options) Match(raw string) (string, bool) {
	c := Clean(raw)
	for _, opt := range o {
		if opt.Tag == c {
			return opt.Tag, true
		}
	}
	return "", false
}

// Normalize returns the canonical tag for raw, falling back to the first
// member. It never fails and Normalize(Normalize(x)) == Normalize(x).
func (o Options) Normalize(raw string) string {
	if tag, ok := o.Match(raw); ok {
		return tag
	}
	if len(o) == 0 {
		return ""
	}
	return o[0].Tag
}

// Lookup returns the option for an already-canonical tag.
func (o Options) Lookup(tag string) (Option, bool) {
	for _, opt := range o {
		if opt.Tag == tag {
			return opt, true
		}
	}
	return Option{}, false
}

// Rank is the position of tag in the enumeration, or len(o) when unknown.
func (o Options) Rank(tag string) int {
	for i, opt := range o {
		if opt.Tag == tag {
			return i
		}
	}
	return len(o)
}

func (o Options) Tags() []string {
	out := make([]string, len(o))
	for i, opt := range o {
		out[i] = opt.Tag
	}
	return out
}

// Label returns the display label for tag, or tag itself when unknown.
func (o Options) Label(tag string) string {
	if opt, ok := o.Lookup(tag); ok {
		return opt.Label
	}
	return tag
}

// Color returns the hex color for tag, or "" when unknown.
func (o Options) Color(tag string) string {
	if opt, ok := o.Lookup(tag); ok {
		return opt.Color
	}
	return ""
}

// Task normalizes a task status.
func Task(raw string) string { return TaskStatuses.Normalize(raw) }

// Priority normalizes a priority.
func Priority(raw string) string { return Priorities.Normalize(raw) }

// Workstream normalizes a workstream status.
func Workstream(raw string) string { return WorkstreamStatuses.Normalize(raw) }

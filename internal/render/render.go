// Package render formats hierarchy entities for the terminal.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"

	"lifeline/internal/board"
	"lifeline/internal/domain"
	"lifeline/internal/status"
)

// Swatch renders label in the given hex color. Invalid or empty colors
// render the label unstyled.
func Swatch(hex, label string) string {
	if !strings.HasPrefix(hex, "#") {
		return label
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render(label)
}

func TaskStatus(tag string) string {
	return Swatch(status.TaskStatuses.Color(tag), status.TaskStatuses.Label(tag))
}

func Priority(tag string) string {
	return Swatch(status.Priorities.Color(tag), status.Priorities.Label(tag))
}

const overdueColor = "#ef4444"

// Due renders a task's due day, red when it is past today and the task is
// not done.
func Due(t domain.Task, today time.Time) string {
	if t.DueDate == "" {
		return "-"
	}
	if t.Status != domain.TaskDone && t.DueDate < today.Format(time.DateOnly) {
		return Swatch(overdueColor, t.DueDate)
	}
	return t.DueDate
}

func WorkstreamStatus(tag string) string {
	return Swatch(status.WorkstreamStatuses.Color(tag), status.WorkstreamStatuses.Label(tag))
}

// Persona renders a colored dot followed by the persona name.
func Persona(name, color string) string {
	if name == "" {
		return ""
	}
	return Swatch(color, "●") + " " + name
}

var (
	mdMu        sync.Mutex
	mdRenderers = map[string]*glamour.TermRenderer{}
)

// Markdown renders a description. Rendering problems fall back to the raw text.
func Markdown(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 20 {
		width = 20
	}
	style := markdownStyle()
	key := fmt.Sprintf("%s:%d", style, width)

	mdMu.Lock()
	r := mdRenderers[key]
	if r == nil {
		rr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			mdMu.Unlock()
			return md
		}
		mdRenderers[key] = rr
		r = rr
	}
	mdMu.Unlock()

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

func markdownStyle() string {
	if os.Getenv("NO_COLOR") != "" {
		return "notty"
	}
	if s := strings.TrimSpace(os.Getenv("LIFELINE_MARKDOWN_STYLE")); s != "" {
		return s
	}
	return "dark"
}

func PersonaTable(w io.Writer, items []domain.Persona) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"ID", "Name", "Active", "Updated"})
	for _, p := range items {
		tw.AppendRow(table.Row{p.ID, Persona(p.Name, p.Color), p.IsActive, ago(p.UpdatedAt)})
	}
	tw.Render()
}

func WorkstreamTable(w io.Writer, items []domain.Workstream) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"ID", "Name", "Persona", "Status", "Priority", "Updated"})
	for _, ws := range items {
		tw.AppendRow(table.Row{
			ws.ID, ws.Name, Persona(ws.PersonaName, ws.PersonaColor),
			WorkstreamStatus(ws.Status), Priority(ws.Priority), ago(ws.UpdatedAt),
		})
	}
	tw.Render()
}

func TaskTable(w io.Writer, items []domain.Task) {
	tw := newTable(w)
	today := time.Now()
	tw.AppendHeader(table.Row{"ID", "Title", "Workstream", "Status", "Priority", "Due", "Updated"})
	for _, t := range items {
		tw.AppendRow(table.Row{
			t.ID, t.Title, Persona(t.WorkstreamName, t.PersonaColor),
			TaskStatus(t.Status), Priority(t.Priority), Due(t, today), ago(t.UpdatedAt),
		})
	}
	tw.Render()
}

// Board prints one section per column with its count header.
func Board(w io.Writer, cols []board.Column) {
	today := time.Now()
	for i, col := range cols {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (%d)\n", Swatch(col.Color, strings.ToUpper(col.Label)), col.Total)
		if len(col.Tasks) == 0 {
			fmt.Fprintln(w, "  -")
			continue
		}
		tw := newTable(w)
		tw.AppendHeader(table.Row{"ID", "Title", "Workstream", "Priority", "Due"})
		for _, t := range col.Tasks {
			tw.AppendRow(table.Row{t.ID, t.Title, Persona(t.WorkstreamName, t.PersonaColor), Priority(t.Priority), Due(t, today)})
		}
		tw.Render()
	}
}

// Counts prints per-status totals in board column order.
func Counts(w io.Writer, counts domain.StatusCounts) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Status", "Tasks"})
	total := 0
	for _, tag := range status.TaskStatuses.Tags() {
		tw.AppendRow(table.Row{TaskStatus(tag), counts[tag]})
		total += counts[tag]
	}
	tw.AppendFooter(table.Row{"Total", total})
	tw.Render()
}

func Dependencies(kind, id string, deps domain.Dependencies) string {
	if !deps.HasDependencies {
		return fmt.Sprintf("%s %s has no dependents", kind, id)
	}
	if kind == "persona" {
		return fmt.Sprintf("%s %s owns %d workstream(s) and %d task(s)", kind, id, deps.WorkstreamCount, deps.TaskCount)
	}
	return fmt.Sprintf("%s %s holds %d task(s)", kind, id, deps.TaskCount)
}

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	return tw
}

func ago(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

// EventTable prints events in the order given.
func EventTable(w io.Writer, items []domain.Event) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"ID", "When", "Type", "Entity", "Payload"})
	for _, e := range items {
		tw.AppendRow(table.Row{e.ID, e.TS, e.Type, e.EntityKind + ":" + e.EntityID, e.Payload})
	}
	tw.Render()
}

package domain

import "time"

// Task status tags.
const (
	TaskBacklog    = "backlog"
	TaskTodo       = "todo"
	TaskInProgress = "inprogress"
	TaskReview     = "review"
	TaskDone       = "done"
)

// Priority tags shared by tasks and workstreams.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Workstream status tags.
const (
	WorkstreamPlanning  = "planning"
	WorkstreamActive    = "active"
	WorkstreamPaused    = "paused"
	WorkstreamCompleted = "completed"
	WorkstreamCancelled = "cancelled"
)

// DefaultPersonaColor is used when a persona is created without a color.
const DefaultPersonaColor = "#3b82f6"

type Persona struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Workstream struct {
	ID          string    `json:"id"`
	PersonaID   string    `json:"persona_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status" enum:"planning,active,paused,completed,cancelled"`
	Priority    string    `json:"priority" enum:"low,medium,high,critical"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Read-only, joined from the owning persona.
	PersonaName  string `json:"persona_name,omitempty"`
	PersonaColor string `json:"persona_color,omitempty"`
}

type Task struct {
	ID           string     `json:"id"`
	WorkstreamID string     `json:"workstream_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Status       string     `json:"status" enum:"backlog,todo,inprogress,review,done"`
	Priority     string     `json:"priority" enum:"low,medium,high,critical"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	// DueDate is a calendar day, YYYY-MM-DD.
	DueDate string `json:"due_date,omitempty" format:"date"`

	// Read-only, joined from the owning workstream and persona.
	WorkstreamName string `json:"workstream_name,omitempty"`
	PersonaID      string `json:"persona_id,omitempty"`
	PersonaColor   string `json:"persona_color,omitempty"`
}

// Dependencies reports the children a delete would cascade to.
type Dependencies struct {
	HasDependencies bool `json:"has_dependencies"`
	WorkstreamCount int  `json:"workstream_count,omitempty"`
	TaskCount       int  `json:"task_count,omitempty"`
}

// StatusCounts maps a task status tag to the number of tasks in it.
type StatusCounts map[string]int

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}

type PersonaInput struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
	IsActive    *bool  `json:"is_active,omitempty"`
}

// PersonaPatch carries changed fields only; nil means unchanged.
type PersonaPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

type WorkstreamInput struct {
	PersonaID   string `json:"persona_id,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

type WorkstreamPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Priority    *string `json:"priority,omitempty"`
}

type TaskInput struct {
	WorkstreamID string `json:"workstream_id,omitempty"`
	Title        string `json:"title,omitempty"`
	Description  string `json:"description,omitempty"`
	Status       string `json:"status,omitempty"`
	Priority     string `json:"priority,omitempty"`
	DueDate      string `json:"due_date,omitempty"`
}

// TaskPatch carries changed fields only. An empty DueDate clears it.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
}

// TaskQuery narrows a task listing. Empty fields do not filter.
type TaskQuery struct {
	WorkstreamID string
	PersonaID    string
	Statuses     []string
}

package server

import (
	"lifeline/internal/domain"
)

// Request payloads. Status and priority values are cleaned server-side, so
// they are plain strings here rather than enums.

type CreatePersonaRequest struct {
	Name        string  `json:"name" minLength:"1"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty" example:"#3b82f6"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

type UpdatePersonaRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

type CreateWorkstreamRequest struct {
	PersonaID   string  `json:"persona_id"`
	Name        string  `json:"name" minLength:"1"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty" example:"planning"`
	Priority    *string `json:"priority,omitempty" example:"medium"`
}

type UpdateWorkstreamRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Priority    *string `json:"priority,omitempty"`
}

type CreateTaskRequest struct {
	WorkstreamID string  `json:"workstream_id"`
	Title        string  `json:"title" minLength:"1"`
	Description  *string `json:"description,omitempty"`
	Status       *string `json:"status,omitempty" example:"todo"`
	Priority     *string `json:"priority,omitempty" example:"medium"`
	DueDate      *string `json:"due_date,omitempty" example:"2025-06-30"`
}

type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	DueDate     *string `json:"due_date,omitempty" doc:"Empty string clears the due date"`
}

type UpdateTaskStatusRequest struct {
	Status string `json:"status" example:"inprogress"`
}

// Response payloads

type PersonaList struct {
	Items []domain.Persona `json:"items"`
}

type WorkstreamList struct {
	Items []domain.Workstream `json:"items"`
}

type TaskList struct {
	Items []domain.Task `json:"items"`
}

type EventList struct {
	Items      []domain.Event `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

type DeleteResponse struct {
	Message string `json:"message"`
}

type CountsResponse struct {
	WorkstreamID string              `json:"workstream_id,omitempty"`
	Counts       domain.StatusCounts `json:"counts"`
}

type personaOutput struct {
	Body domain.Persona `json:"body"`
}

type workstreamOutput struct {
	Body domain.Workstream `json:"body"`
}

type taskOutput struct {
	Body domain.Task `json:"body"`
}

type deleteOutput struct {
	Body DeleteResponse `json:"body"`
}

type dependenciesOutput struct {
	Body domain.Dependencies `json:"body"`
}

func (r CreatePersonaRequest) input() domain.PersonaInput {
	return domain.PersonaInput{
		Name:        r.Name,
		Description: deref(r.Description),
		Color:       deref(r.Color),
		IsActive:    r.IsActive,
	}
}

func (r UpdatePersonaRequest) patch() domain.PersonaPatch {
	return domain.PersonaPatch{Name: r.Name, Description: r.Description, Color: r.Color, IsActive: r.IsActive}
}

func (r CreateWorkstreamRequest) input() domain.WorkstreamInput {
	return domain.WorkstreamInput{
		PersonaID:   r.PersonaID,
		Name:        r.Name,
		Description: deref(r.Description),
		Status:      deref(r.Status),
		Priority:    deref(r.Priority),
	}
}

func (r UpdateWorkstreamRequest) patch() domain.WorkstreamPatch {
	return domain.WorkstreamPatch{Name: r.Name, Description: r.Description, Status: r.Status, Priority: r.Priority}
}

func (r CreateTaskRequest) input() domain.TaskInput {
	return domain.TaskInput{
		WorkstreamID: r.WorkstreamID,
		Title:        r.Title,
		Description:  deref(r.Description),
		Status:       deref(r.Status),
		Priority:     deref(r.Priority),
		DueDate:      deref(r.DueDate),
	}
}

func (r UpdateTaskRequest) patch() domain.TaskPatch {
	return domain.TaskPatch{Title: r.Title, Description: r.Description, Status: r.Status, Priority: r.Priority, DueDate: r.DueDate}
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

package task

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("task not found")

// Status and Priority use the wire values the frontend already speaks.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"dueDate"`
	Status      Status    `json:"status"`
	Priority    Priority  `json:"priority"`
	OwnerID     string    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CreateTaskRequest struct {
	Name        string    `json:"name" binding:"required,min=1,max=200"`
	Description string    `json:"description" binding:"required,max=2000"`
	DueDate     time.Time `json:"dueDate" binding:"required"`
	Status      Status    `json:"status" binding:"omitempty,oneof=Pending 'In Progress' Completed"`
	Priority    Priority  `json:"priority" binding:"omitempty,oneof=Low Medium High"`
}

// Defaults fills the enum fields the payload left empty.
func (r *CreateTaskRequest) Defaults() {
	if r.Status == "" {
		r.Status = StatusPending
	}
	if r.Priority == "" {
		r.Priority = PriorityLow
	}
}

// UpdateTaskRequest is a PATCH payload: nil means "leave unchanged".
type UpdateTaskRequest struct {
	Name        *string    `json:"name" binding:"omitempty,min=1,max=200"`
	Description *string    `json:"description" binding:"omitempty,max=2000"`
	DueDate     *time.Time `json:"dueDate"`
	Status      *Status    `json:"status" binding:"omitempty,oneof=Pending 'In Progress' Completed"`
	Priority    *Priority  `json:"priority" binding:"omitempty,oneof=Low Medium High"`
}

// Empty reports whether the patch carries no fields at all.
func (r UpdateTaskRequest) Empty() bool {
	return r.Name == nil && r.Description == nil && r.DueDate == nil && r.Status == nil && r.Priority == nil
}

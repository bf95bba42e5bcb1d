package models

import (
	"fmt"

	"github.com/google/uuid"
)

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// ParsePriority maps a request value onto the priority enum. An empty value
// falls back to Low, anything else outside the enum is rejected.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case "":
		return PriorityLow, nil
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(s), nil
	default:
		return "", fmt.Errorf("invalid priority %q", s)
	}
}

// Task belongs either to its owning user (ListID nil, a personal task) or to
// exactly one list. For list tasks, access is governed by list membership and
// UserID only records who created the task.
type Task struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	UserID      uuid.UUID  `db:"user_id" json:"user_id"`
	ListID      *uuid.UUID `db:"list_id" json:"list_id,omitempty"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	DueDate     string     `db:"due_date" json:"dueDate"`
	DueTime     string     `db:"due_time" json:"dueTime"`
	Priority    Priority   `db:"priority" json:"priority"`
	Done        bool       `db:"done" json:"done"`
	CreatedAt   string     `db:"created_at" json:"createdAt"`
}

// TaskPatch carries a partial update; nil fields are left untouched.
type TaskPatch struct {
	Title       *string
	Description *string
	DueDate     *string
	DueTime     *string
	Priority    *Priority
	Done        *bool
}

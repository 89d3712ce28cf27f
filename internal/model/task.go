package model

import (
	"fmt"
	"strings"
	"time"
)

// Status is the normalized progress state of a task.
type Status string

// Status values accepted by the task service.
const (
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusInProgress, StatusCompleted}

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	return s == StatusInProgress || s == StatusCompleted
}

// Toggled returns the opposite status.
func (s Status) Toggled() Status {
	if s == StatusCompleted {
		return StatusInProgress
	}
	return StatusCompleted
}

// ParseStatus normalizes a status string. Older servers and clients
// spelled the open state several ways; all of them map to StatusInProgress.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in-progress", "in progress", "in_progress", "incomplete":
		return StatusInProgress, nil
	case "completed", "complete", "done":
		return StatusCompleted, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// Priority is the urgency of a task.
type Priority string

// Priority values accepted by the task service.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every valid priority from most to least urgent.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// Valid reports whether p is one of the enumerated priorities.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Rank orders priorities for sorting: lower rank is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// ParsePriority normalizes a priority string.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q", s)
	}
	return p, nil
}

// Default field values applied when a draft omits them.
const (
	DefaultStatus   = StatusInProgress
	DefaultPriority = PriorityLow
)

// Task is a unit of trackable work owned by the remote service.
type Task struct {
	// ID is assigned by the service and never changes.
	ID string `json:"id"`

	Title       string   `json:"title"`
	Description string   `json:"description"`
	Deadline    Date     `json:"deadline,omitzero"`
	Status      Status   `json:"status"`
	Priority    Priority `json:"priority"`
}

// IsCompleted reports whether the task is done.
func (t Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// IsOverdue reports whether an open task's deadline lies before today.
func (t Task) IsOverdue(now time.Time) bool {
	if t.IsCompleted() || t.Deadline.IsZero() {
		return false
	}
	return t.Deadline.Before(Today(now))
}

// Draft is the input for creating a task. Zero-valued optional fields
// fall back to DefaultStatus and DefaultPriority.
type Draft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Deadline    Date     `json:"deadline,omitzero"`
	Status      Status   `json:"status,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
}

// WithDefaults returns a copy of d with omitted status and priority filled in.
func (d Draft) WithDefaults() Draft {
	if d.Status == "" {
		d.Status = DefaultStatus
	}
	if d.Priority == "" {
		d.Priority = DefaultPriority
	}
	return d
}

// Patch is a partial update. Nil fields are left unchanged by the service.
type Patch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Deadline    *Date     `json:"deadline,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Deadline == nil &&
		p.Status == nil && p.Priority == nil
}

// StatusPatch builds a patch that only changes the status.
func StatusPatch(s Status) Patch {
	return Patch{Status: &s}
}

package types

import (
	"fmt"
	"regexp"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

// Task statuses. A task progresses through these during its lifecycle;
// done is the only status that carries a completion timestamp.
const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusBlocked Status = "blocked"
	StatusDone    Status = "done"
)

// validStatuses is the set of recognized status values.
var validStatuses = map[Status]bool{
	StatusPending: true,
	StatusActive:  true,
	StatusBlocked: true,
	StatusDone:    true,
}

// ParseStatus converts a string to a Status.
// Returns ErrInvalidStatus for unrecognized values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !validStatuses[st] {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// TaskType classifies a task within a hierarchy.
type TaskType string

// Task types.
const (
	TypeTask    TaskType = "task"
	TypeSubtask TaskType = "subtask"
	TypeEpic    TaskType = "epic"
)

// validTypes is the set of recognized task type values.
var validTypes = map[TaskType]bool{
	TypeTask:    true,
	TypeSubtask: true,
	TypeEpic:    true,
}

// ParseTaskType converts a string to a TaskType.
// Returns ErrInvalidType for unrecognized values.
func ParseTaskType(s string) (TaskType, error) {
	tt := TaskType(s)
	if !validTypes[tt] {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return tt, nil
}

// taskIDPattern matches task IDs: a literal T followed by digits.
var taskIDPattern = regexp.MustCompile(`^T[0-9]+$`)

// ValidateTaskID checks that id has the form T<digits>.
// Returns ErrInvalidID otherwise.
func ValidateTaskID(id string) error {
	if !taskIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Task represents a single unit of work within one project.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Priority    int        `json:"priority,omitempty"`
	Type        TaskType   `json:"type"`
	ParentID    string     `json:"parentId,omitempty"`
	Depends     []string   `json:"depends,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// SetStatus sets the task status, maintaining the invariant that
// CompletedAt is set iff the status is done. The now argument supplies
// the completion timestamp so callers control the clock.
// Returns ErrInvalidStatus for unrecognized values.
func (t *Task) SetStatus(status Status, now time.Time) error {
	if !validStatuses[status] {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	t.Status = status
	if status == StatusDone {
		done := now
		t.CompletedAt = &done
	} else {
		t.CompletedAt = nil
	}
	return nil
}

// IsDone reports whether the task status is done.
func (t *Task) IsDone() bool {
	return t.Status == StatusDone
}

package models

import "time"

// Task statuses and priorities are stored as their display strings, exactly
// the values the API accepts.
const (
	StatusToDo       = "To Do"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
	StatusBlocked    = "Blocked"

	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// AllowedStatuses and AllowedPriorities are the accepted enum values, in
// their canonical order.
var (
	AllowedStatuses  = []string{StatusToDo, StatusInProgress, StatusCompleted, StatusBlocked}
	AllowedPriorities = []string{PriorityLow, PriorityMedium, PriorityHigh}
)

// Task is a unit of work assigned to one or more owners within a project
// and a team. CompletedAt is set exactly while Status == "Completed" and is
// null otherwise; re-entering Completed refreshes it.
type Task struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	ProjectID      string     `json:"project"`
	TeamID         string     `json:"team"`
	OwnerIDs       []string   `json:"owners"`
	TagIDs         []string   `json:"tags"`
	TimeToComplete int        `json:"timeToComplete"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	CreatedAt      time.Time  `json:"createdAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// RemainingDays computes how many estimated days of work are left at the
// given moment: timeToComplete minus full days elapsed since creation,
// floored at zero. Overdue tasks contribute zero, never negative values.
func (t *Task) RemainingDays(now time.Time) int {
	daysPassed := int(now.Sub(t.CreatedAt).Hours() / 24)
	remaining := t.TimeToComplete - daysPassed
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

package tasks

import (
	"context"
	"time"

	"github.com/dmitrijs2005/taskpilot/internal/server/models"
)

// Filter narrows a task listing. Empty fields are skipped; the service
// layer validates and resolves every present reference before the filter
// reaches the repository, so a populated field is always a known-good id or
// enum value. Owner and tag match tasks where the id is a member of the
// corresponding multi-valued field.
type Filter struct {
	Status    string
	Priority  string
	ProjectID string
	TeamID    string
	OwnerID   string
	TagID     string
}

// Sort values accepted by List. SortPriority orders by the raw enum string
// descending, so the result order is Medium, Low, High.
const (
	SortNone     = ""
	SortRecent   = "recent"
	SortPriority = "priority"
)

// ClosedTaskRow is one (completed task, owner) pair with the display names
// the closed-tasks report aggregates over.
type ClosedTaskRow struct {
	TaskID      string
	TeamName    string
	ProjectName string
	OwnerName   string
}

type Repository interface {
	Create(ctx context.Context, task *models.Task) (*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id string) error
	DeleteByProject(ctx context.Context, projectID string) error
	GetByID(ctx context.Context, id string) (*models.Task, error)
	List(ctx context.Context, filter Filter, sort string) ([]*models.Task, error)
	ListCompletedSince(ctx context.Context, since time.Time) ([]*models.Task, error)
	ListUncompleted(ctx context.Context) ([]*models.Task, error)
	ClosedTaskRows(ctx context.Context) ([]ClosedTaskRow, error)
}

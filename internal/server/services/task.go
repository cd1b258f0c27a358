package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/taskpilot/internal/common"
	"github.com/dmitrijs2005/taskpilot/internal/dbx"
	"github.com/dmitrijs2005/taskpilot/internal/server/models"
	"github.com/dmitrijs2005/taskpilot/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskpilot/internal/server/repositories/tasks"
)

// TaskService implements task CRUD, filtered listings, and the three
// aggregate reports.
type TaskService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewTaskService(db *sql.DB, m repomanager.RepositoryManager) *TaskService {
	return &TaskService{db: db, repomanager: m}
}

// TaskInput is the write payload for creating and updating tasks. Both
// operations run it through the same validation.
type TaskInput struct {
	Name           string   `json:"name"`
	Project        string   `json:"project"`
	Team           string   `json:"team"`
	Owners         []string `json:"owners"`
	Tags           []string `json:"tags"`
	TimeToComplete int      `json:"timeToComplete"`
	Status         string   `json:"status"`
	Priority       string   `json:"priority"`
}

// TaskCriteria carries the raw listing query parameters. References are
// resolved against their entities before querying; unknown enum values are
// passed through and simply match nothing.
type TaskCriteria struct {
	Status   string
	Priority string
	Project  string
	Team     string
	Owner    string
	Tag      string
	Sort     string
}

var allowedSorts = []string{tasks.SortNone, tasks.SortRecent, tasks.SortPriority}

// resolveRef checks that id is well formed and names an existing entity.
func resolveRef(ctx context.Context, kind string, id string, exists func(context.Context, string) (bool, error)) error {
	if !validID(id) {
		return fmt.Errorf("%w: invalid %s id", common.ErrValidation, kind)
	}
	ok, err := exists(ctx, id)
	if err != nil {
		return fmt.Errorf("error checking %s: %w", kind, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s not found", common.ErrNotFound, kind)
	}
	return nil
}

// buildFilter validates the criteria and produces a repository filter.
// Every reference present in the criteria must resolve or the listing
// fails; resolution is all-or-nothing.
func (s *TaskService) buildFilter(ctx context.Context, c TaskCriteria) (tasks.Filter, error) {
	filter := tasks.Filter{
		Status:   strings.TrimSpace(c.Status),
		Priority: strings.TrimSpace(c.Priority),
	}
	if c.Project != "" {
		if err := resolveRef(ctx, "project", c.Project, s.repomanager.Projects(s.db).Exists); err != nil {
			return tasks.Filter{}, err
		}
		filter.ProjectID = c.Project
	}
	if c.Team != "" {
		if err := resolveRef(ctx, "team", c.Team, s.repomanager.Teams(s.db).Exists); err != nil {
			return tasks.Filter{}, err
		}
		filter.TeamID = c.Team
	}
	if c.Owner != "" {
		if err := resolveRef(ctx, "owner", c.Owner, s.repomanager.Users(s.db).Exists); err != nil {
			return tasks.Filter{}, err
		}
		filter.OwnerID = c.Owner
	}
	if c.Tag != "" {
		if err := resolveRef(ctx, "tag", c.Tag, s.repomanager.Tags(s.db).Exists); err != nil {
			return tasks.Filter{}, err
		}
		filter.TagID = c.Tag
	}
	return filter, nil
}

// ListTasks returns tasks matching the criteria, optionally sorted by
// creation time or by priority.
func (s *TaskService) ListTasks(ctx context.Context, c TaskCriteria) ([]*models.Task, error) {
	if !slices.Contains(allowedSorts, c.Sort) {
		return nil, fmt.Errorf("%w: invalid sort value, allowed: recent, priority", common.ErrValidation)
	}
	filter, err := s.buildFilter(ctx, c)
	if err != nil {
		return nil, err
	}
	result, err := s.repomanager.Tasks(s.db).List(ctx, filter, c.Sort)
	if err != nil {
		return nil, fmt.Errorf("error listing tasks: %w", err)
	}
	return result, nil
}

// ListTeamTasks lists tasks for one team, with the remaining criteria still
// applied.
func (s *TaskService) ListTeamTasks(ctx context.Context, teamID string, c TaskCriteria) ([]*models.Task, error) {
	c.Team = teamID
	return s.ListTasks(ctx, c)
}

// ListProjectTasks lists tasks for one project.
func (s *TaskService) ListProjectTasks(ctx context.Context, projectID string, c TaskCriteria) ([]*models.Task, error) {
	c.Project = projectID
	return s.ListTasks(ctx, c)
}

// GetTask loads a single task by id.
func (s *TaskService) GetTask(ctx context.Context, id string) (*models.Task, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: invalid task id", common.ErrValidation)
	}
	task, err := s.repomanager.Tasks(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: task not found", common.ErrNotFound)
		}
		return nil, fmt.Errorf("error loading task: %w", err)
	}
	return task, nil
}

// validateInput checks the payload and resolves every reference it names.
// Owner and tag lists come back deduplicated with first-seen order kept.
func (s *TaskService) validateInput(ctx context.Context, in *TaskInput) error {
	if err := validateTaskName(in.Name); err != nil {
		return err
	}
	if err := validateTimeToComplete(in.TimeToComplete); err != nil {
		return err
	}
	if err := validateStatus(in.Status); err != nil {
		return err
	}
	if err := validatePriority(in.Priority); err != nil {
		return err
	}
	if err := resolveRef(ctx, "project", in.Project, s.repomanager.Projects(s.db).Exists); err != nil {
		return err
	}
	if err := resolveRef(ctx, "team", in.Team, s.repomanager.Teams(s.db).Exists); err != nil {
		return err
	}
	in.Owners = dedupe(in.Owners)
	if len(in.Owners) == 0 {
		return fmt.Errorf("%w: at least one owner is required", common.ErrValidation)
	}
	for _, id := range in.Owners {
		if err := resolveRef(ctx, "owner", id, s.repomanager.Users(s.db).Exists); err != nil {
			return err
		}
	}
	in.Tags = dedupe(in.Tags)
	for _, id := range in.Tags {
		if err := resolveRef(ctx, "tag", id, s.repomanager.Tags(s.db).Exists); err != nil {
			return err
		}
	}
	return nil
}

// CreateTask validates the payload and stores the task together with its
// owner and tag links in one transaction.
func (s *TaskService) CreateTask(ctx context.Context, in TaskInput) (*models.Task, error) {
	if err := s.validateInput(ctx, &in); err != nil {
		return nil, err
	}

	task := &models.Task{
		Name:           strings.TrimSpace(in.Name),
		ProjectID:      in.Project,
		TeamID:         in.Team,
		OwnerIDs:       in.Owners,
		TagIDs:         in.Tags,
		TimeToComplete: in.TimeToComplete,
		Status:         in.Status,
		Priority:       in.Priority,
	}
	if task.Status == "" {
		task.Status = models.StatusToDo
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if task.Status == models.StatusCompleted {
		now := time.Now()
		task.CompletedAt = &now
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Tasks(tx).Create(ctx, task)
		if err != nil {
			return err
		}
		task = created
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error creating task: %w", err)
	}
	return task, nil
}

// UpdateTask validates the full payload and replaces the stored task.
// CompletedAt tracks the status on every update: entering or staying in
// Completed refreshes the timestamp, any other status clears it.
func (s *TaskService) UpdateTask(ctx context.Context, id string, in TaskInput) (*models.Task, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: invalid task id", common.ErrValidation)
	}
	if _, err := s.repomanager.Tasks(s.db).GetByID(ctx, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: task not found", common.ErrNotFound)
		}
		return nil, fmt.Errorf("error loading task: %w", err)
	}
	if err := s.validateInput(ctx, &in); err != nil {
		return nil, err
	}

	task := &models.Task{
		ID:             id,
		Name:           strings.TrimSpace(in.Name),
		ProjectID:      in.Project,
		TeamID:         in.Team,
		OwnerIDs:       in.Owners,
		TagIDs:         in.Tags,
		TimeToComplete: in.TimeToComplete,
		Status:         in.Status,
		Priority:       in.Priority,
	}
	if task.Status == "" {
		task.Status = models.StatusToDo
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if task.Status == models.StatusCompleted {
		now := time.Now()
		task.CompletedAt = &now
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Tasks(tx).Update(ctx, task)
	})
	if err != nil {
		return nil, fmt.Errorf("error updating task: %w", err)
	}
	return s.GetTask(ctx, id)
}

// DeleteTask removes a task and, through the schema, its owner and tag
// links.
func (s *TaskService) DeleteTask(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("%w: invalid task id", common.ErrValidation)
	}
	err := s.repomanager.Tasks(s.db).Delete(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("%w: task not found", common.ErrNotFound)
		}
		return fmt.Errorf("error deleting task: %w", err)
	}
	return nil
}

// LastWeekReport lists tasks completed within the past seven days,
// endpoints inclusive.
type LastWeekReport struct {
	Tasks          []*models.Task `json:"tasks"`
	TotalCompleted int            `json:"totalCompletedTasks"`
}

func (s *TaskService) LastWeekCompleted(ctx context.Context) (*LastWeekReport, error) {
	since := time.Now().AddDate(0, 0, -7)
	completed, err := s.repomanager.Tasks(s.db).ListCompletedSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("error listing completed tasks: %w", err)
	}
	return &LastWeekReport{Tasks: completed, TotalCompleted: len(completed)}, nil
}

// PendingWorkReport totals the open tasks and their remaining estimated
// days. Overdue tasks count as zero remaining days, so the total never
// shrinks below the count of days still genuinely outstanding.
type PendingWorkReport struct {
	PendingTasks       int `json:"totalPendingTasks"`
	TotalRemainingDays int `json:"totalRemainingDays"`
}

func (s *TaskService) PendingWork(ctx context.Context) (*PendingWorkReport, error) {
	open, err := s.repomanager.Tasks(s.db).ListUncompleted(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing pending tasks: %w", err)
	}
	report := &PendingWorkReport{PendingTasks: len(open)}
	now := time.Now()
	for _, t := range open {
		report.TotalRemainingDays += t.RemainingDays(now)
	}
	return report, nil
}

// ClosedTasksReport breaks completed tasks down by team, owner, and project.
// A task counts once toward its team and project; multi-owner tasks count
// once per owner in the owner breakdown.
type ClosedTasksReport struct {
	ByTeam    map[string]int `json:"byTeam"`
	ByOwner   map[string]int `json:"byOwner"`
	ByProject map[string]int `json:"byProject"`
}

func (s *TaskService) ClosedTasks(ctx context.Context) (*ClosedTasksReport, error) {
	rows, err := s.repomanager.Tasks(s.db).ClosedTaskRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing closed tasks: %w", err)
	}
	report := &ClosedTasksReport{
		ByTeam:    map[string]int{},
		ByOwner:   map[string]int{},
		ByProject: map[string]int{},
	}
	seen := make(map[string]struct{})
	for _, row := range rows {
		if _, ok := seen[row.TaskID]; !ok {
			seen[row.TaskID] = struct{}{}
			report.ByTeam[row.TeamName]++
			report.ByProject[row.ProjectName]++
		}
		report.ByOwner[row.OwnerName]++
	}
	return report, nil
}

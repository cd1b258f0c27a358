package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/taskpilot/internal/common"
	"github.com/dmitrijs2005/taskpilot/internal/dbx"
	"github.com/dmitrijs2005/taskpilot/internal/server/models"
)

const taskColumns = `t.id, t.name, t.project_id, t.team_id, t.time_to_complete, t.status, t.priority, t.created_at, t.completed_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the task row plus its owner and tag links. Callers run it
// inside dbx.WithTx so a failed link insert does not leave a half-written
// task behind.
func (r *PostgresRepository) Create(ctx context.Context, task *models.Task) (*models.Task, error) {

	query :=
		`INSERT INTO tasks (name, project_id, team_id, time_to_complete, status, priority, completed_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		task.Name, task.ProjectID, task.TeamID, task.TimeToComplete, task.Status, task.Priority, task.CompletedAt).
		Scan(&task.ID, &task.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := r.insertLinks(ctx, task); err != nil {
		return nil, err
	}

	return task, nil
}

// Update rewrites the task row and replaces its owner and tag links.
// Callers run it inside dbx.WithTx.
func (r *PostgresRepository) Update(ctx context.Context, task *models.Task) error {
	query :=
		`UPDATE tasks SET name = $2, project_id = $3, team_id = $4, time_to_complete = $5, status = $6, priority = $7, completed_at = $8
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query,
		task.ID, task.Name, task.ProjectID, task.TeamID, task.TimeToComplete, task.Status, task.Priority, task.CompletedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}

	for _, table := range []string{"task_owners", "task_tags"} {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE task_id = $1`, task.ID); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}

	return r.insertLinks(ctx, task)
}

func (r *PostgresRepository) insertLinks(ctx context.Context, task *models.Task) error {
	for _, ownerID := range task.OwnerIDs {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO task_owners (task_id, user_id) VALUES ($1, $2)`, task.ID, ownerID)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}

	for _, tagID := range task.TagIDs {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO task_tags (task_id, tag_id) VALUES ($1, $2)`, task.ID, tagID)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}

	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query :=
		`DELETE FROM tasks
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}

	return nil
}

// DeleteByProject removes every task of a project; link rows follow through
// ON DELETE CASCADE. Used by the project-deletion cascade.
func (r *PostgresRepository) DeleteByProject(ctx context.Context, projectID string) error {
	query :=
		`DELETE FROM tasks
		 WHERE project_id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, projectID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks t WHERE t.id = $1`

	task, err := r.scanTask(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if err := r.loadLinks(ctx, task); err != nil {
		return nil, err
	}

	return task, nil
}

// List retrieves tasks matching the filter, optionally sorted.
//
// SortPriority orders by the raw text column descending, which yields
// Medium, Low, High (lexical order, not severity).
func (r *PostgresRepository) List(ctx context.Context, filter Filter, sort string) ([]*models.Task, error) {

	var where []string
	var args []any

	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filter.Status != "" {
		add(`t.status = $%d`, filter.Status)
	}
	if filter.Priority != "" {
		add(`t.priority = $%d`, filter.Priority)
	}
	if filter.ProjectID != "" {
		add(`t.project_id = $%d`, filter.ProjectID)
	}
	if filter.TeamID != "" {
		add(`t.team_id = $%d`, filter.TeamID)
	}
	if filter.OwnerID != "" {
		add(`EXISTS (SELECT 1 FROM task_owners o WHERE o.task_id = t.id AND o.user_id = $%d)`, filter.OwnerID)
	}
	if filter.TagID != "" {
		add(`EXISTS (SELECT 1 FROM task_tags tt WHERE tt.task_id = t.id AND tt.tag_id = $%d)`, filter.TagID)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks t`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}

	switch sort {
	case SortRecent:
		query += ` ORDER BY t.created_at DESC`
	case SortPriority:
		query += ` ORDER BY t.priority DESC`
	}

	return r.queryTasks(ctx, query, args...)
}

func (r *PostgresRepository) ListCompletedSince(ctx context.Context, since time.Time) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks t WHERE t.status = $1 AND t.completed_at >= $2`
	return r.queryTasks(ctx, query, models.StatusCompleted, since)
}

func (r *PostgresRepository) ListUncompleted(ctx context.Context) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks t WHERE t.status <> $1`
	return r.queryTasks(ctx, query, models.StatusCompleted)
}

// ClosedTaskRows returns one row per (completed task, owner) with the team,
// project and owner display names the closed-tasks report needs.
func (r *PostgresRepository) ClosedTaskRows(ctx context.Context) ([]ClosedTaskRow, error) {
	query :=
		`SELECT t.id, tm.name, p.name, u.name
		 FROM tasks t
		 JOIN teams tm ON tm.id = t.team_id
		 JOIN projects p ON p.id = t.project_id
		 JOIN task_owners o ON o.task_id = t.id
		 JOIN users u ON u.id = o.user_id
		 WHERE t.status = $1
		 ORDER BY t.id
		 `

	rows, err := r.db.QueryContext(ctx, query, models.StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []ClosedTaskRow
	for rows.Next() {
		var row ClosedTaskRow
		if err := rows.Scan(&row.TaskID, &row.TeamName, &row.ProjectName, &row.OwnerName); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepository) scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var completedAt sql.NullTime

	err := row.Scan(&task.ID, &task.Name, &task.ProjectID, &task.TeamID,
		&task.TimeToComplete, &task.Status, &task.Priority, &task.CreatedAt, &completedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}

	return task, nil
}

func (r *PostgresRepository) queryTasks(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Task
	for rows.Next() {
		task, err := r.scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	for _, task := range result {
		if err := r.loadLinks(ctx, task); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (r *PostgresRepository) loadLinks(ctx context.Context, task *models.Task) error {
	owners, err := r.linkIDs(ctx, `SELECT user_id FROM task_owners WHERE task_id = $1 ORDER BY user_id`, task.ID)
	if err != nil {
		return err
	}
	task.OwnerIDs = owners

	tags, err := r.linkIDs(ctx, `SELECT tag_id FROM task_tags WHERE task_id = $1 ORDER BY tag_id`, task.ID)
	if err != nil {
		return err
	}
	task.TagIDs = tags

	return nil
}

func (r *PostgresRepository) linkIDs(ctx context.Context, query string, taskID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return ids, nil
}

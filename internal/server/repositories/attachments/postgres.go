package attachments

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/taskpilot/internal/dbx"
	"github.com/dmitrijs2005/taskpilot/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Attachment) (*models.Attachment, error) {

	query :=
		`INSERT INTO attachments (task_id, file_name, storage_key)
         VALUES ($1, $2, $3)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query, a.TaskID, a.FileName, a.StorageKey).
		Scan(&a.ID, &a.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return a, nil
}

func (r *PostgresRepository) ListByTask(ctx context.Context, taskID string) ([]*models.Attachment, error) {
	query :=
		`SELECT id, task_id, file_name, storage_key, created_at FROM attachments
		 WHERE task_id = $1
		 ORDER BY created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Attachment
	for rows.Next() {
		a := &models.Attachment{}
		if err := rows.Scan(&a.ID, &a.TaskID, &a.FileName, &a.StorageKey, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

package attachments

import (
	"context"

	"github.com/dmitrijs2005/taskpilot/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, attachment *models.Attachment) (*models.Attachment, error)
	ListByTask(ctx context.Context, taskID string) ([]*models.Attachment, error)
}

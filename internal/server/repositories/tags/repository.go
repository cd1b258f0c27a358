package tags

import (
	"context"

	"github.com/dmitrijs2005/taskpilot/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, tag *models.Tag) (*models.Tag, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.Tag, error)
	GetByName(ctx context.Context, name string) (*models.Tag, error)
	Exists(ctx context.Context, id string) (bool, error)
}

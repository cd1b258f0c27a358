package teams

import (
	"context"

	"github.com/dmitrijs2005/taskpilot/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, team *models.Team) (*models.Team, error)
	Update(ctx context.Context, team *models.Team) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.Team, error)
	GetByID(ctx context.Context, id string) (*models.Team, error)
	GetByName(ctx context.Context, name string) (*models.Team, error)
	Exists(ctx context.Context, id string) (bool, error)
}

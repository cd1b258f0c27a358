package users

import (
	"context"

	"github.com/dmitrijs2005/taskpilot/internal/server/models"
)

// Repository is the credential store: it persists verified accounts and is
// the only writer of password hashes.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdatePassword(ctx context.Context, email string, passwordHash string) error
	Exists(ctx context.Context, id string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

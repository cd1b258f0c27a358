package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/taskpilot/internal/common"
	"github.com/dmitrijs2005/taskpilot/internal/dbx"
	"github.com/dmitrijs2005/taskpilot/internal/server/models"
	"github.com/dmitrijs2005/taskpilot/internal/server/repositories/repomanager"
)

// ProjectService manages projects. Deleting a project takes its tasks with
// it in the same transaction.
type ProjectService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewProjectService(db *sql.DB, m repomanager.RepositoryManager) *ProjectService {
	return &ProjectService{db: db, repomanager: m}
}

func (s *ProjectService) CreateProject(ctx context.Context, name string, description string) (*models.Project, error) {
	if err := validateProjectName(name); err != nil {
		return nil, err
	}
	repo := s.repomanager.Projects(s.db)
	if _, err := repo.GetByName(ctx, name); err == nil {
		return nil, fmt.Errorf("%w: project with this name already exists", common.ErrConflict)
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("error checking project: %w", err)
	}
	project, err := repo.Create(ctx, &models.Project{Name: name, Description: description})
	if err != nil {
		return nil, fmt.Errorf("error creating project: %w", err)
	}
	return project, nil
}

// UpdateProject applies a partial update, same contract as UpdateTeam.
func (s *ProjectService) UpdateProject(ctx context.Context, id string, name *string, description *string) (*models.Project, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: invalid project id", common.ErrValidation)
	}
	repo := s.repomanager.Projects(s.db)
	project, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: project not found", common.ErrNotFound)
		}
		return nil, fmt.Errorf("error loading project: %w", err)
	}

	if name != nil {
		if err := validateProjectName(*name); err != nil {
			return nil, err
		}
		if other, err := repo.GetByName(ctx, *name); err == nil && other.ID != id {
			return nil, fmt.Errorf("%w: project with this name already exists", common.ErrConflict)
		} else if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("error checking project: %w", err)
		}
		project.Name = *name
	}
	if description != nil {
		project.Description = *description
	}

	if err := repo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("error updating project: %w", err)
	}
	return project, nil
}

// DeleteProject removes the project and every task that belongs to it.
func (s *ProjectService) DeleteProject(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("%w: invalid project id", common.ErrValidation)
	}
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Tasks(tx).DeleteByProject(ctx, id); err != nil {
			return err
		}
		return s.repomanager.Projects(tx).Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("%w: project not found", common.ErrNotFound)
		}
		return fmt.Errorf("error deleting project: %w", err)
	}
	return nil
}

func (s *ProjectService) ListProjects(ctx context.Context) ([]*models.Project, error) {
	projects, err := s.repomanager.Projects(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing projects: %w", err)
	}
	return projects, nil
}

func (s *ProjectService) GetProject(ctx context.Context, id string) (*models.Project, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: invalid project id", common.ErrValidation)
	}
	project, err := s.repomanager.Projects(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: project not found", common.ErrNotFound)
		}
		return nil, fmt.Errorf("error loading project: %w", err)
	}
	return project, nil
}

package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/taskpilot/internal/common"
	"github.com/dmitrijs2005/taskpilot/internal/server/models"
	"github.com/dmitrijs2005/taskpilot/internal/server/repositories/repomanager"
)

// TeamService manages the team roster.
type TeamService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewTeamService(db *sql.DB, m repomanager.RepositoryManager) *TeamService {
	return &TeamService{db: db, repomanager: m}
}

func (s *TeamService) CreateTeam(ctx context.Context, name string, description string) (*models.Team, error) {
	if err := validateTeamName(name); err != nil {
		return nil, err
	}
	repo := s.repomanager.Teams(s.db)
	if _, err := repo.GetByName(ctx, name); err == nil {
		return nil, fmt.Errorf("%w: team with this name already exists", common.ErrConflict)
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("error checking team: %w", err)
	}
	team, err := repo.Create(ctx, &models.Team{Name: name, Description: description})
	if err != nil {
		return nil, fmt.Errorf("error creating team: %w", err)
	}
	return team, nil
}

// UpdateTeam applies a partial update. Nil fields are left untouched; a new
// name is validated and checked for collisions with other teams.
func (s *TeamService) UpdateTeam(ctx context.Context, id string, name *string, description *string) (*models.Team, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: invalid team id", common.ErrValidation)
	}
	repo := s.repomanager.Teams(s.db)
	team, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: team not found", common.ErrNotFound)
		}
		return nil, fmt.Errorf("error loading team: %w", err)
	}

	if name != nil {
		if err := validateTeamName(*name); err != nil {
			return nil, err
		}
		if other, err := repo.GetByName(ctx, *name); err == nil && other.ID != id {
			return nil, fmt.Errorf("%w: team with this name already exists", common.ErrConflict)
		} else if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("error checking team: %w", err)
		}
		team.Name = *name
	}
	if description != nil {
		team.Description = *description
	}

	if err := repo.Update(ctx, team); err != nil {
		return nil, fmt.Errorf("error updating team: %w", err)
	}
	return team, nil
}

func (s *TeamService) DeleteTeam(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("%w: invalid team id", common.ErrValidation)
	}
	if err := s.repomanager.Teams(s.db).Delete(ctx, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("%w: team not found", common.ErrNotFound)
		}
		return fmt.Errorf("error deleting team: %w", err)
	}
	return nil
}

func (s *TeamService) ListTeams(ctx context.Context) ([]*models.Team, error) {
	teams, err := s.repomanager.Teams(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing teams: %w", err)
	}
	return teams, nil
}

func (s *TeamService) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: invalid team id", common.ErrValidation)
	}
	team, err := s.repomanager.Teams(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: team not found", common.ErrNotFound)
		}
		return nil, fmt.Errorf("error loading team: %w", err)
	}
	return team, nil
}

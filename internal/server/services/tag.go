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

// TagService manages the flat tag namespace.
type TagService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewTagService(db *sql.DB, m repomanager.RepositoryManager) *TagService {
	return &TagService{db: db, repomanager: m}
}

func (s *TagService) CreateTag(ctx context.Context, name string) (*models.Tag, error) {
	if err := validateTagName(name); err != nil {
		return nil, err
	}
	repo := s.repomanager.Tags(s.db)
	if _, err := repo.GetByName(ctx, name); err == nil {
		return nil, fmt.Errorf("%w: tag with this name already exists", common.ErrConflict)
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("error checking tag: %w", err)
	}
	tag, err := repo.Create(ctx, &models.Tag{Name: name})
	if err != nil {
		return nil, fmt.Errorf("error creating tag: %w", err)
	}
	return tag, nil
}

func (s *TagService) DeleteTag(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("%w: invalid tag id", common.ErrValidation)
	}
	if err := s.repomanager.Tags(s.db).Delete(ctx, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("%w: tag not found", common.ErrNotFound)
		}
		return fmt.Errorf("error deleting tag: %w", err)
	}
	return nil
}

func (s *TagService) ListTags(ctx context.Context) ([]*models.Tag, error) {
	tags, err := s.repomanager.Tags(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing tags: %w", err)
	}
	return tags, nil
}

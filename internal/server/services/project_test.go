package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/taskpilot/internal/common"
	"github.com/dmitrijs2005/taskpilot/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProjectService(t *testing.T) (*ProjectService, *fakeRepoManager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newSQLMockDB(t)
	rm := newFakeRepoManager()
	return NewProjectService(db, rm), rm, mock
}

func TestCreateProject(t *testing.T) {
	s, _, _ := newProjectService(t)
	ctx := context.Background()

	project, err := s.CreateProject(ctx, "Apollo 11", "moon landing")
	require.NoError(t, err)
	assert.NotEmpty(t, project.ID)

	_, err = s.CreateProject(ctx, "Apollo 11", "")
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = s.CreateProject(ctx, "Apollo!", "")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestDeleteProject_CascadesToTasks(t *testing.T) {
	s, rm, mock := newProjectService(t)
	ctx := context.Background()
	rm.projects.byID[projectID] = &models.Project{ID: projectID, Name: "Apollo"}

	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, s.DeleteProject(ctx, projectID))
	assert.Equal(t, []string{projectID}, rm.tasks.deletedByProject)
	assert.Equal(t, []string{projectID}, rm.projects.deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteProject_UnknownRollsBack(t *testing.T) {
	s, rm, mock := newProjectService(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := s.DeleteProject(ctx, unknownID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	// the task delete ran inside the transaction but rolls back with it;
	// the fake still records the call
	assert.Equal(t, []string{unknownID}, rm.tasks.deletedByProject)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProject(t *testing.T) {
	s, rm, _ := newProjectService(t)
	ctx := context.Background()
	rm.projects.byID[projectID] = &models.Project{ID: projectID, Name: "Apollo", Description: "old"}

	name := "Apollo 12"
	project, err := s.UpdateProject(ctx, projectID, &name, nil)
	require.NoError(t, err)
	assert.Equal(t, "Apollo 12", project.Name)
	assert.Equal(t, "old", project.Description)

	_, err = s.UpdateProject(ctx, unknownID, &name, nil)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

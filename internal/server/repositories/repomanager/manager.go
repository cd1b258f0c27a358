// Package repomanager provides the factory that hands out repositories
// bound to a database handle, either the shared *sql.DB or a transaction
// from dbx.WithTx.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/taskpilot/internal/dbx"
	"github.com/dmitrijs2005/taskpilot/internal/server/repositories/attachments"
	"github.com/dmitrijs2005/taskpilot/internal/server/repositories/challenges"
	"github.com/dmitrijs2005/taskpilot/internal/server/repositories/projects"
	"github.com/dmitrijs2005/taskpilot/internal/server/repositories/tags"
	"github.com/dmitrijs2005/taskpilot/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/taskpilot/internal/server/repositories/teams"
	"github.com/dmitrijs2005/taskpilot/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Challenges(db dbx.DBTX) challenges.Repository
	Teams(db dbx.DBTX) teams.Repository
	Projects(db dbx.DBTX) projects.Repository
	Tags(db dbx.DBTX) tags.Repository
	Tasks(db dbx.DBTX) tasks.Repository
	Attachments(db dbx.DBTX) attachments.Repository
}

package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/taskpilot/internal/dbx"
	"github.com/dmitrijs2005/taskpilot/internal/server/migrations"
	"github.com/dmitrijs2005/taskpilot/internal/server/repositories/attachments"
	"github.com/dmitrijs2005/taskpilot/internal/server/repositories/challenges"
	"github.com/dmitrijs2005/taskpilot/internal/server/repositories/projects"
	"github.com/dmitrijs2005/taskpilot/internal/server/repositories/tags"
	"github.com/dmitrijs2005/taskpilot/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/taskpilot/internal/server/repositories/teams"
	"github.com/dmitrijs2005/taskpilot/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type PostgresRepositoryManager struct {
}

func NewPostgresRepositoryManager() (RepositoryManager, error) {
	return &PostgresRepositoryManager{}, nil
}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Challenges(db dbx.DBTX) challenges.Repository {
	return challenges.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Teams(db dbx.DBTX) teams.Repository {
	return teams.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Projects(db dbx.DBTX) projects.Repository {
	return projects.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Tags(db dbx.DBTX) tags.Repository {
	return tags.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Tasks(db dbx.DBTX) tasks.Repository {
	return tasks.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Attachments(db dbx.DBTX) attachments.Repository {
	return attachments.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return err
	}

	return nil
}

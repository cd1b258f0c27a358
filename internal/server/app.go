// Package server initializes and runs the TaskPilot backend. It opens the
// database, runs migrations, wires the services, and starts the HTTP server
// together with the challenge sweeper, handling graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/taskpilot/internal/logging"
	"github.com/dmitrijs2005/taskpilot/internal/server/config"
	"github.com/dmitrijs2005/taskpilot/internal/server/httpapi"
	"github.com/dmitrijs2005/taskpilot/internal/server/notify"
	"github.com/dmitrijs2005/taskpilot/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskpilot/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB

	identityService   *services.IdentityService
	sessionService    *services.SessionService
	taskService       *services.TaskService
	teamService       *services.TeamService
	projectService    *services.ProjectService
	tagService        *services.TagService
	attachmentService *services.AttachmentService

	repomanager repomanager.RepositoryManager
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager()
	if err != nil {
		return nil, fmt.Errorf("repository init error: %w", err)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	notifier := notify.NewSMTPNotifier(cfg.SMTPAddr, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailFrom)

	return &App{
		config:            cfg,
		logger:            logger,
		db:                db,
		repomanager:       rm,
		identityService:   services.NewIdentityService(db, rm, notifier, cfg),
		sessionService:    services.NewSessionService(db, rm, cfg),
		taskService:       services.NewTaskService(db, rm),
		teamService:       services.NewTeamService(db, rm),
		projectService:    services.NewProjectService(db, rm),
		tagService:        services.NewTagService(db, rm),
		attachmentService: services.NewAttachmentService(db, rm, cfg),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.config.SecretKey,
		app.identityService, app.sessionService, app.taskService,
		app.teamService, app.projectService, app.tagService, app.attachmentService)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// runChallengeSweeper periodically deletes expired OTP challenges. Reads
// check expiry themselves; the sweeper only keeps the table from
// accumulating rows nobody came back for.
func (app *App) runChallengeSweeper(ctx context.Context) {
	log := app.logger.With("module", "challenge_sweeper")
	ticker := time.NewTicker(app.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.repomanager.Challenges(app.db).DeleteExpired(ctx, time.Now())
			if err != nil {
				log.Error(ctx, "sweep failed", "error", err)
				continue
			}
			if n > 0 {
				log.Info(ctx, "swept expired challenges", "count", n)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runChallengeSweeper(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing db", "error", err)
	}
}

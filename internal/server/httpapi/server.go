// Package httpapi exposes the service layer as a JSON HTTP API. Routing
// uses net/http method patterns; every non-auth route sits behind the
// bearer-token middleware.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/taskpilot/internal/logging"
	"github.com/dmitrijs2005/taskpilot/internal/server/models"
	"github.com/dmitrijs2005/taskpilot/internal/server/services"
)

// Service interfaces consumed by the handlers. The concrete
// implementations live in the services package; the handlers only need
// these slices of them.
type IdentityService interface {
	IssueSignupChallenge(ctx context.Context, name, email, password string) error
	ResendSignupChallenge(ctx context.Context, email, password string) error
	VerifySignup(ctx context.Context, email, otp string) (*models.User, error)
	IssueResetChallenge(ctx context.Context, email string) error
	ResendResetChallenge(ctx context.Context, email string) error
	VerifyResetChallenge(ctx context.Context, email, otp string) error
	CompletePasswordReset(ctx context.Context, email, newPassword string) error
}

type SessionService interface {
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

type TaskService interface {
	ListTasks(ctx context.Context, c services.TaskCriteria) ([]*models.Task, error)
	ListTeamTasks(ctx context.Context, teamID string, c services.TaskCriteria) ([]*models.Task, error)
	ListProjectTasks(ctx context.Context, projectID string, c services.TaskCriteria) ([]*models.Task, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	CreateTask(ctx context.Context, in services.TaskInput) (*models.Task, error)
	UpdateTask(ctx context.Context, id string, in services.TaskInput) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) error
	LastWeekCompleted(ctx context.Context) (*services.LastWeekReport, error)
	PendingWork(ctx context.Context) (*services.PendingWorkReport, error)
	ClosedTasks(ctx context.Context) (*services.ClosedTasksReport, error)
}

type TeamService interface {
	CreateTeam(ctx context.Context, name, description string) (*models.Team, error)
	UpdateTeam(ctx context.Context, id string, name, description *string) (*models.Team, error)
	DeleteTeam(ctx context.Context, id string) error
	ListTeams(ctx context.Context) ([]*models.Team, error)
	GetTeam(ctx context.Context, id string) (*models.Team, error)
}

type ProjectService interface {
	CreateProject(ctx context.Context, name, description string) (*models.Project, error)
	UpdateProject(ctx context.Context, id string, name, description *string) (*models.Project, error)
	DeleteProject(ctx context.Context, id string) error
	ListProjects(ctx context.Context) ([]*models.Project, error)
	GetProject(ctx context.Context, id string) (*models.Project, error)
}

type TagService interface {
	CreateTag(ctx context.Context, name string) (*models.Tag, error)
	DeleteTag(ctx context.Context, id string) error
	ListTags(ctx context.Context) ([]*models.Tag, error)
}

type AttachmentService interface {
	CreateAttachment(ctx context.Context, taskID, fileName string) (*services.AttachmentUpload, error)
	ListAttachments(ctx context.Context, taskID string) ([]*services.AttachmentDownload, error)
}

type HTTPServer struct {
	address   string
	logger    logging.Logger
	jwtSecret []byte

	identity    IdentityService
	sessions    SessionService
	tasks       TaskService
	teams       TeamService
	projects    ProjectService
	tags        TagService
	attachments AttachmentService
}

func NewHTTPServer(address string, l logging.Logger, secretKey string,
	identity IdentityService, sessions SessionService, tasks TaskService,
	teams TeamService, projects ProjectService, tags TagService,
	attachments AttachmentService) *HTTPServer {
	return &HTTPServer{
		address:     address,
		logger:      l.With("module", "http_server"),
		jwtSecret:   []byte(secretKey),
		identity:    identity,
		sessions:    sessions,
		tasks:       tasks,
		teams:       teams,
		projects:    projects,
		tags:        tags,
		attachments: attachments,
	}
}

// Handler builds the full route table.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleHealth)

	mux.HandleFunc("POST /auth/signup", s.handleSignup)
	mux.HandleFunc("POST /auth/verify-signup", s.handleVerifySignup)
	mux.HandleFunc("POST /auth/resend-signup-otp", s.handleResendSignupOTP)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/forgot-password", s.handleForgotPassword)
	mux.HandleFunc("POST /auth/resend-forgot-password-otp", s.handleResendForgotPasswordOTP)
	mux.HandleFunc("POST /auth/verify-forgot-password", s.handleVerifyForgotPassword)
	mux.HandleFunc("POST /auth/reset-password", s.handleResetPassword)

	protected := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.requireAuth(h))
	}

	protected("GET /profile", s.handleProfile)

	protected("GET /tasks", s.handleListTasks)
	protected("POST /tasks", s.handleCreateTask)
	protected("GET /tasks/{id}", s.handleGetTask)
	protected("POST /tasks/{id}", s.handleUpdateTask)
	protected("DELETE /tasks/{id}", s.handleDeleteTask)
	protected("GET /tasks/{id}/attachments", s.handleListAttachments)
	protected("POST /tasks/{id}/attachments", s.handleCreateAttachment)

	protected("GET /teams", s.handleListTeams)
	protected("POST /teams", s.handleCreateTeam)
	protected("POST /teams/{id}", s.handleUpdateTeam)
	protected("DELETE /teams/{id}", s.handleDeleteTeam)
	protected("GET /teams/{id}/details", s.handleGetTeam)
	protected("GET /teams/{id}/tasks", s.handleListTeamTasks)

	protected("GET /projects", s.handleListProjects)
	protected("POST /projects", s.handleCreateProject)
	protected("POST /projects/{id}", s.handleUpdateProject)
	protected("DELETE /projects/{id}", s.handleDeleteProject)
	protected("GET /projects/{id}/details", s.handleGetProject)
	protected("GET /projects/{id}/tasks", s.handleListProjectTasks)

	protected("GET /tags", s.handleListTags)
	protected("POST /tags", s.handleCreateTag)
	protected("DELETE /tags/{id}", s.handleDeleteTag)

	protected("GET /report/last-week", s.handleReportLastWeek)
	protected("GET /report/pending", s.handleReportPending)
	protected("GET /report/closed-tasks", s.handleReportClosedTasks)

	return mux
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "TaskPilot API is running"})
}

package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/taskpilot/internal/common"
	"github.com/dmitrijs2005/taskpilot/internal/server/auth"
	"github.com/dmitrijs2005/taskpilot/internal/server/config"
	"github.com/dmitrijs2005/taskpilot/internal/server/models"
	"github.com/dmitrijs2005/taskpilot/internal/server/repositories/repomanager"
)

// SessionService verifies credentials and mints signed session tokens.
type SessionService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	jwtSecret     []byte
	tokenValidity time.Duration
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *SessionService {
	return &SessionService{
		db:            db,
		repomanager:   m,
		jwtSecret:     []byte(cfg.SecretKey),
		tokenValidity: cfg.TokenValidityDuration,
	}
}

// errInvalidCredentials is the single failure every login path collapses
// into. Malformed input, unknown email, and wrong password are
// indistinguishable to the caller.
var errInvalidCredentials = fmt.Errorf("%w: invalid email or password", common.ErrUnauthorized)

// Login verifies the credentials and returns a signed token together with
// the account it belongs to.
func (s *SessionService) Login(ctx context.Context, email string, password string) (string, *models.User, error) {
	if email == "" || password == "" {
		return "", nil, errInvalidCredentials
	}
	email = strings.ToLower(email)
	if !auth.ValidEmailFormat(email) || !auth.ValidPasswordFormat(password) {
		return "", nil, errInvalidCredentials
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		return "", nil, errInvalidCredentials
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return "", nil, errInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.tokenValidity)
	if err != nil {
		return "", nil, fmt.Errorf("error generating token: %w", err)
	}
	return token, user, nil
}

// GetUser loads the account behind an authenticated session.
func (s *SessionService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return user, nil
}

// Package services contains server-side business logic. This file implements
// IdentityService, which runs the OTP challenge flows for signup email
// verification and password reset.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/taskpilot/internal/common"
	"github.com/dmitrijs2005/taskpilot/internal/dbx"
	"github.com/dmitrijs2005/taskpilot/internal/server/auth"
	"github.com/dmitrijs2005/taskpilot/internal/server/config"
	"github.com/dmitrijs2005/taskpilot/internal/server/models"
	"github.com/dmitrijs2005/taskpilot/internal/server/notify"
	"github.com/dmitrijs2005/taskpilot/internal/server/repositories/repomanager"
)

// IdentityService owns the pre-account and pre-reset OTP challenges.
// A challenge is created (or rotated) on request, delivered by email, and
// consumed on successful verification. Expiry is checked on every read;
// the background sweeper only reclaims rows nobody came back for.
type IdentityService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	notifier    notify.Notifier
	otpValidity time.Duration
}

// NewIdentityService constructs an IdentityService using repositories,
// a notifier for OTP delivery, and server config.
func NewIdentityService(db *sql.DB, m repomanager.RepositoryManager, n notify.Notifier, cfg *config.Config) *IdentityService {
	return &IdentityService{
		db:          db,
		repomanager: m,
		notifier:    n,
		otpValidity: cfg.OTPValidityDuration,
	}
}

func (s *IdentityService) otpMinutes() int {
	return int(s.otpValidity.Minutes())
}

// IssueSignupChallenge validates the signup request, stores a pending
// challenge with the already-hashed password, and emails the OTP. No user
// row exists until VerifySignup succeeds.
func (s *IdentityService) IssueSignupChallenge(ctx context.Context, name string, email string, password string) error {
	if strings.TrimSpace(name) == "" || email == "" || password == "" {
		return fmt.Errorf("%w: name, email and password are required", common.ErrValidation)
	}
	email = strings.ToLower(email)
	if !auth.ValidEmailFormat(email) {
		return fmt.Errorf("%w: please enter a valid email address", common.ErrValidation)
	}
	if !auth.ValidPasswordFormat(password) {
		return fmt.Errorf("%w: password must be at least 8 characters and include uppercase, lowercase, number, and special character", common.ErrValidation)
	}

	users := s.repomanager.Users(s.db)
	exists, err := users.ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("error checking user: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: email already registered", common.ErrConflict)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	otp, err := generateOTP()
	if err != nil {
		return err
	}

	challenges := s.repomanager.Challenges(s.db)
	// Re-requesting signup replaces any previous pending challenge. The
	// delete and the create are separate statements on purpose, matching
	// the single-caller assumption for a given email.
	if err := challenges.Delete(ctx, models.FlowSignup, email); err != nil {
		return fmt.Errorf("error discarding previous challenge: %w", err)
	}
	challenge := &models.Challenge{
		Flow:         models.FlowSignup,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		OTP:          otp,
		ExpiresAt:    time.Now().Add(s.otpValidity),
	}
	if _, err := challenges.Create(ctx, challenge); err != nil {
		return fmt.Errorf("error creating challenge: %w", err)
	}

	body := fmt.Sprintf("Your OTP is %s. It is valid for %d minutes.", otp, s.otpMinutes())
	if err := s.notifier.Notify(ctx, email, "Verify your email - TaskPilot", body); err != nil {
		return fmt.Errorf("error sending otp: %w", err)
	}
	return nil
}

// ResendSignupChallenge rotates the OTP on a still-pending signup challenge.
// The caller must present the signup password again before a new code is
// sent.
func (s *IdentityService) ResendSignupChallenge(ctx context.Context, email string, password string) error {
	if email == "" || password == "" {
		return fmt.Errorf("%w: email and password are required", common.ErrValidation)
	}
	email = strings.ToLower(email)
	if !auth.ValidEmailFormat(email) {
		return fmt.Errorf("%w: please enter a valid email address", common.ErrValidation)
	}

	users := s.repomanager.Users(s.db)
	exists, err := users.ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("error checking user: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: user already registered, please login", common.ErrConflict)
	}

	challenges := s.repomanager.Challenges(s.db)
	challenge, err := challenges.Get(ctx, models.FlowSignup, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("%w: signup session expired, please sign up again", common.ErrChallengeExpired)
		}
		return fmt.Errorf("error loading challenge: %w", err)
	}
	if challenge.Expired(time.Now()) {
		_ = challenges.Delete(ctx, models.FlowSignup, email)
		return fmt.Errorf("%w: signup session expired, please sign up again", common.ErrChallengeExpired)
	}
	if !auth.CheckPassword(challenge.PasswordHash, password) {
		return fmt.Errorf("%w: incorrect password", common.ErrUnauthorized)
	}

	otp, err := generateOTP()
	if err != nil {
		return err
	}
	if err := challenges.Rotate(ctx, models.FlowSignup, email, otp, time.Now().Add(s.otpValidity)); err != nil {
		return fmt.Errorf("error rotating challenge: %w", err)
	}

	body := fmt.Sprintf("Your new OTP is %s. It is valid for %d minutes.", otp, s.otpMinutes())
	if err := s.notifier.Notify(ctx, email, "Your new OTP - TaskPilot", body); err != nil {
		return fmt.Errorf("error sending otp: %w", err)
	}
	return nil
}

// VerifySignup checks the OTP and, on success, creates the user and deletes
// the challenge in one transaction. Absence, mismatch, and expiry all
// produce the same error so callers cannot probe which emails have pending
// signups.
func (s *IdentityService) VerifySignup(ctx context.Context, email string, otp string) (*models.User, error) {
	if email == "" || otp == "" {
		return nil, fmt.Errorf("%w: email and otp are required", common.ErrValidation)
	}
	email = strings.ToLower(email)

	challenge, err := s.repomanager.Challenges(s.db).Get(ctx, models.FlowSignup, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid or expired OTP", common.ErrChallengeExpired)
		}
		return nil, fmt.Errorf("error loading challenge: %w", err)
	}
	if challenge.Expired(time.Now()) || challenge.OTP != otp {
		return nil, fmt.Errorf("%w: invalid or expired OTP", common.ErrChallengeExpired)
	}

	user := &models.User{
		Name:         challenge.Name,
		Email:        challenge.Email,
		PasswordHash: challenge.PasswordHash,
	}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Users(tx).Create(ctx, user)
		if err != nil {
			return err
		}
		user = created
		return s.repomanager.Challenges(tx).Delete(ctx, models.FlowSignup, email)
	})
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, fmt.Errorf("%w: email already registered", common.ErrConflict)
		}
		return nil, fmt.Errorf("error completing signup: %w", err)
	}
	return user, nil
}

// IssueResetChallenge starts a password reset for a registered email.
func (s *IdentityService) IssueResetChallenge(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", common.ErrValidation)
	}
	email = strings.ToLower(email)
	if !auth.ValidEmailFormat(email) {
		return fmt.Errorf("%w: please enter a valid email address", common.ErrValidation)
	}

	users := s.repomanager.Users(s.db)
	exists, err := users.ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("error checking user: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: user not found", common.ErrNotFound)
	}

	otp, err := generateOTP()
	if err != nil {
		return err
	}

	challenges := s.repomanager.Challenges(s.db)
	if err := challenges.Delete(ctx, models.FlowReset, email); err != nil {
		return fmt.Errorf("error discarding previous challenge: %w", err)
	}
	challenge := &models.Challenge{
		Flow:      models.FlowReset,
		Email:     email,
		OTP:       otp,
		ExpiresAt: time.Now().Add(s.otpValidity),
	}
	if _, err := challenges.Create(ctx, challenge); err != nil {
		return fmt.Errorf("error creating challenge: %w", err)
	}

	body := fmt.Sprintf("Your password reset OTP is %s. It is valid for %d minutes.", otp, s.otpMinutes())
	if err := s.notifier.Notify(ctx, email, "Reset your password - TaskPilot", body); err != nil {
		return fmt.Errorf("error sending otp: %w", err)
	}
	return nil
}

// ResendResetChallenge rotates the OTP on a pending reset challenge. Unlike
// the signup resend there is no password to re-check; possession of the
// account email is the whole claim being verified.
func (s *IdentityService) ResendResetChallenge(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", common.ErrValidation)
	}
	email = strings.ToLower(email)

	challenges := s.repomanager.Challenges(s.db)
	challenge, err := challenges.Get(ctx, models.FlowReset, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("%w: reset session expired, please try again", common.ErrChallengeExpired)
		}
		return fmt.Errorf("error loading challenge: %w", err)
	}
	if challenge.Expired(time.Now()) {
		_ = challenges.Delete(ctx, models.FlowReset, email)
		return fmt.Errorf("%w: reset session expired, please try again", common.ErrChallengeExpired)
	}

	otp, err := generateOTP()
	if err != nil {
		return err
	}
	if err := challenges.Rotate(ctx, models.FlowReset, email, otp, time.Now().Add(s.otpValidity)); err != nil {
		return fmt.Errorf("error rotating challenge: %w", err)
	}

	body := fmt.Sprintf("Your new password reset OTP is %s. It is valid for %d minutes.", otp, s.otpMinutes())
	if err := s.notifier.Notify(ctx, email, "Your new reset OTP - TaskPilot", body); err != nil {
		return fmt.Errorf("error sending otp: %w", err)
	}
	return nil
}

// VerifyResetChallenge checks the OTP without consuming the challenge, so a
// client can confirm the code before collecting the new password.
func (s *IdentityService) VerifyResetChallenge(ctx context.Context, email string, otp string) error {
	if email == "" || otp == "" {
		return fmt.Errorf("%w: email and otp are required", common.ErrValidation)
	}
	email = strings.ToLower(email)

	challenge, err := s.repomanager.Challenges(s.db).Get(ctx, models.FlowReset, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("%w: invalid or expired OTP", common.ErrChallengeExpired)
		}
		return fmt.Errorf("error loading challenge: %w", err)
	}
	if challenge.Expired(time.Now()) || challenge.OTP != otp {
		return fmt.Errorf("%w: invalid or expired OTP", common.ErrChallengeExpired)
	}
	return nil
}

// CompletePasswordReset sets a new password and consumes the reset
// challenge.
func (s *IdentityService) CompletePasswordReset(ctx context.Context, email string, newPassword string) error {
	if email == "" || newPassword == "" {
		return fmt.Errorf("%w: email and password are required", common.ErrValidation)
	}
	email = strings.ToLower(email)
	if !auth.ValidPasswordFormat(newPassword) {
		return fmt.Errorf("%w: password must be at least 8 characters and include uppercase, lowercase, number, and special character", common.ErrValidation)
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).UpdatePassword(ctx, email, hash); err != nil {
			return err
		}
		return s.repomanager.Challenges(tx).Delete(ctx, models.FlowReset, email)
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("%w: user not found", common.ErrNotFound)
		}
		return fmt.Errorf("error resetting password: %w", err)
	}
	return nil
}

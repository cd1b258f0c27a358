package services

import (
	"context"
	"database/sql"
	"strconv"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/taskpilot/internal/common"
	"github.com/dmitrijs2005/taskpilot/internal/server/auth"
	"github.com/dmitrijs2005/taskpilot/internal/server/config"
	"github.com/dmitrijs2005/taskpilot/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func newIdentityService(t *testing.T, db *sql.DB, rm *fakeRepoManager, n *fakeNotifier) *IdentityService {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.OTPValidityDuration = 3 * time.Minute
	return NewIdentityService(db, rm, n, cfg)
}

func TestGenerateOTP_Range(t *testing.T) {
	for i := 0; i < 200; i++ {
		otp, err := generateOTP()
		require.NoError(t, err)
		require.Len(t, otp, 6)
		n, err := strconv.Atoi(otp)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestIssueSignupChallenge_OK(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := newFakeRepoManager()
	n := &fakeNotifier{}
	s := newIdentityService(t, db, rm, n)

	err := s.IssueSignupChallenge(context.Background(), "Alice", "Alice@Example.com", "Password1!")
	require.NoError(t, err)

	c, err := rm.challenges.Get(context.Background(), models.FlowSignup, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice", c.Name)
	assert.Len(t, c.OTP, 6)
	assert.False(t, c.Expired(time.Now()))
	assert.True(t, c.Expired(time.Now().Add(4*time.Minute)))

	// password is stored hashed, never verbatim
	assert.NotEqual(t, "Password1!", c.PasswordHash)
	assert.True(t, auth.CheckPassword(c.PasswordHash, "Password1!"))

	require.Len(t, n.sent, 1)
	assert.Equal(t, "alice@example.com", n.sent[0].recipient)
	assert.Equal(t, "Verify your email - TaskPilot", n.sent[0].subject)
	assert.Contains(t, n.sent[0].body, c.OTP)
	assert.Contains(t, n.sent[0].body, "3 minutes")
}

func TestIssueSignupChallenge_ValidationAndConflict(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := newFakeRepoManager()
	rm.users.add(&models.User{ID: "user-1", Email: "taken@example.com"})
	s := newIdentityService(t, db, rm, &fakeNotifier{})
	ctx := context.Background()

	tests := []struct {
		name     string
		userName string
		email    string
		password string
		want     error
	}{
		{"missing name", "", "a@b.com", "Password1!", common.ErrValidation},
		{"bad email", "Alice", "not-an-email", "Password1!", common.ErrValidation},
		{"weak password", "Alice", "a@b.com", "password", common.ErrValidation},
		{"registered email", "Alice", "taken@example.com", "Password1!", common.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.IssueSignupChallenge(ctx, tt.userName, tt.email, tt.password)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestIssueSignupChallenge_ReplacesPrevious(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := newFakeRepoManager()
	s := newIdentityService(t, db, rm, &fakeNotifier{})
	ctx := context.Background()

	require.NoError(t, s.IssueSignupChallenge(ctx, "Alice", "a@b.com", "Password1!"))
	first, err := rm.challenges.Get(ctx, models.FlowSignup, "a@b.com")
	require.NoError(t, err)
	firstCopy := *first

	require.NoError(t, s.IssueSignupChallenge(ctx, "Alice Two", "a@b.com", "Password2!"))
	second, err := rm.challenges.Get(ctx, models.FlowSignup, "a@b.com")
	require.NoError(t, err)

	assert.Contains(t, rm.challenges.deleted, challengeKey(models.FlowSignup, "a@b.com"))
	assert.Equal(t, "Alice Two", second.Name)
	assert.NotEqual(t, firstCopy.PasswordHash, second.PasswordHash)
}

func TestResendSignupChallenge(t *testing.T) {
	ctx := context.Background()
	hash, err := auth.HashPassword("Password1!")
	require.NoError(t, err)

	seed := func(rm *fakeRepoManager, expiresAt time.Time) {
		rm.challenges.items[challengeKey(models.FlowSignup, "a@b.com")] = &models.Challenge{
			Flow: models.FlowSignup, Email: "a@b.com", Name: "Alice",
			PasswordHash: hash, OTP: "111111", ExpiresAt: expiresAt,
		}
	}

	t.Run("rotates otp and extends expiry", func(t *testing.T) {
		db, _ := newSQLMockDB(t)
		rm := newFakeRepoManager()
		seed(rm, time.Now().Add(time.Minute))
		n := &fakeNotifier{}
		s := newIdentityService(t, db, rm, n)

		require.NoError(t, s.ResendSignupChallenge(ctx, "a@b.com", "Password1!"))
		require.Len(t, rm.challenges.rotated, 1)
		assert.True(t, rm.challenges.rotated[0].ExpiresAt.After(time.Now().Add(2*time.Minute)))
		require.Len(t, n.sent, 1)
		assert.Equal(t, "Your new OTP - TaskPilot", n.sent[0].subject)
	})

	t.Run("wrong password", func(t *testing.T) {
		db, _ := newSQLMockDB(t)
		rm := newFakeRepoManager()
		seed(rm, time.Now().Add(time.Minute))
		s := newIdentityService(t, db, rm, &fakeNotifier{})

		err := s.ResendSignupChallenge(ctx, "a@b.com", "WrongPass1!")
		assert.ErrorIs(t, err, common.ErrUnauthorized)
	})

	t.Run("expired challenge is removed", func(t *testing.T) {
		db, _ := newSQLMockDB(t)
		rm := newFakeRepoManager()
		seed(rm, time.Now().Add(-time.Minute))
		s := newIdentityService(t, db, rm, &fakeNotifier{})

		err := s.ResendSignupChallenge(ctx, "a@b.com", "Password1!")
		assert.ErrorIs(t, err, common.ErrChallengeExpired)
		_, err = rm.challenges.Get(ctx, models.FlowSignup, "a@b.com")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("no pending challenge", func(t *testing.T) {
		db, _ := newSQLMockDB(t)
		rm := newFakeRepoManager()
		s := newIdentityService(t, db, rm, &fakeNotifier{})

		err := s.ResendSignupChallenge(ctx, "a@b.com", "Password1!")
		assert.ErrorIs(t, err, common.ErrChallengeExpired)
	})

	t.Run("already registered", func(t *testing.T) {
		db, _ := newSQLMockDB(t)
		rm := newFakeRepoManager()
		rm.users.add(&models.User{ID: "user-1", Email: "a@b.com"})
		s := newIdentityService(t, db, rm, &fakeNotifier{})

		err := s.ResendSignupChallenge(ctx, "a@b.com", "Password1!")
		assert.ErrorIs(t, err, common.ErrConflict)
	})
}

func TestVerifySignup_OK(t *testing.T) {
	ctx := context.Background()
	db, mock := newSQLMockDB(t)
	rm := newFakeRepoManager()
	rm.challenges.items[challengeKey(models.FlowSignup, "a@b.com")] = &models.Challenge{
		Flow: models.FlowSignup, Email: "a@b.com", Name: "Alice",
		PasswordHash: "hash", OTP: "123456", ExpiresAt: time.Now().Add(time.Minute),
	}
	s := newIdentityService(t, db, rm, &fakeNotifier{})

	mock.ExpectBegin()
	mock.ExpectCommit()

	user, err := s.VerifySignup(ctx, "A@B.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)
	assert.Equal(t, "a@b.com", user.Email)
	assert.NotEmpty(t, user.ID)

	// challenge consumed
	_, err = rm.challenges.Get(ctx, models.FlowSignup, "a@b.com")
	assert.ErrorIs(t, err, common.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifySignup_FailuresAreUniform(t *testing.T) {
	ctx := context.Background()
	db, _ := newSQLMockDB(t)
	rm := newFakeRepoManager()
	rm.challenges.items[challengeKey(models.FlowSignup, "a@b.com")] = &models.Challenge{
		Flow: models.FlowSignup, Email: "a@b.com", OTP: "123456",
		ExpiresAt: time.Now().Add(time.Minute),
	}
	rm.challenges.items[challengeKey(models.FlowSignup, "old@b.com")] = &models.Challenge{
		Flow: models.FlowSignup, Email: "old@b.com", OTP: "123456",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	s := newIdentityService(t, db, rm, &fakeNotifier{})

	_, errMismatch := s.VerifySignup(ctx, "a@b.com", "000000")
	_, errAbsent := s.VerifySignup(ctx, "nobody@b.com", "123456")
	_, errExpired := s.VerifySignup(ctx, "old@b.com", "123456")

	for _, err := range []error{errMismatch, errAbsent, errExpired} {
		assert.ErrorIs(t, err, common.ErrChallengeExpired)
	}
	// the message must not reveal which case occurred
	assert.Equal(t, errMismatch.Error(), errAbsent.Error())
	assert.Equal(t, errMismatch.Error(), errExpired.Error())
}

func TestIssueResetChallenge(t *testing.T) {
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		db, _ := newSQLMockDB(t)
		rm := newFakeRepoManager()
		rm.users.add(&models.User{ID: "user-1", Email: "a@b.com"})
		n := &fakeNotifier{}
		s := newIdentityService(t, db, rm, n)

		require.NoError(t, s.IssueResetChallenge(ctx, "A@B.com"))
		c, err := rm.challenges.Get(ctx, models.FlowReset, "a@b.com")
		require.NoError(t, err)
		assert.Len(t, c.OTP, 6)
		assert.Empty(t, c.PasswordHash)
		require.Len(t, n.sent, 1)
		assert.Equal(t, "Reset your password - TaskPilot", n.sent[0].subject)
	})

	t.Run("unknown email", func(t *testing.T) {
		db, _ := newSQLMockDB(t)
		rm := newFakeRepoManager()
		s := newIdentityService(t, db, rm, &fakeNotifier{})

		err := s.IssueResetChallenge(ctx, "nobody@b.com")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestResendResetChallenge(t *testing.T) {
	ctx := context.Background()

	t.Run("rotates without password", func(t *testing.T) {
		db, _ := newSQLMockDB(t)
		rm := newFakeRepoManager()
		rm.challenges.items[challengeKey(models.FlowReset, "a@b.com")] = &models.Challenge{
			Flow: models.FlowReset, Email: "a@b.com", OTP: "111111",
			ExpiresAt: time.Now().Add(time.Minute),
		}
		n := &fakeNotifier{}
		s := newIdentityService(t, db, rm, n)

		require.NoError(t, s.ResendResetChallenge(ctx, "a@b.com"))
		require.Len(t, rm.challenges.rotated, 1)
		require.Len(t, n.sent, 1)
		assert.Equal(t, "Your new reset OTP - TaskPilot", n.sent[0].subject)
	})

	t.Run("no pending challenge", func(t *testing.T) {
		db, _ := newSQLMockDB(t)
		rm := newFakeRepoManager()
		s := newIdentityService(t, db, rm, &fakeNotifier{})

		err := s.ResendResetChallenge(ctx, "a@b.com")
		assert.ErrorIs(t, err, common.ErrChallengeExpired)
	})
}

func TestVerifyResetChallenge_DoesNotConsume(t *testing.T) {
	ctx := context.Background()
	db, _ := newSQLMockDB(t)
	rm := newFakeRepoManager()
	rm.challenges.items[challengeKey(models.FlowReset, "a@b.com")] = &models.Challenge{
		Flow: models.FlowReset, Email: "a@b.com", OTP: "123456",
		ExpiresAt: time.Now().Add(time.Minute),
	}
	s := newIdentityService(t, db, rm, &fakeNotifier{})

	require.NoError(t, s.VerifyResetChallenge(ctx, "a@b.com", "123456"))

	// still present, the reset completes in a later call
	_, err := rm.challenges.Get(ctx, models.FlowReset, "a@b.com")
	require.NoError(t, err)

	err = s.VerifyResetChallenge(ctx, "a@b.com", "654321")
	assert.ErrorIs(t, err, common.ErrChallengeExpired)
}

func TestCompletePasswordReset(t *testing.T) {
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		db, mock := newSQLMockDB(t)
		rm := newFakeRepoManager()
		rm.users.add(&models.User{ID: "user-1", Email: "a@b.com", PasswordHash: "old"})
		rm.challenges.items[challengeKey(models.FlowReset, "a@b.com")] = &models.Challenge{
			Flow: models.FlowReset, Email: "a@b.com", OTP: "123456",
			ExpiresAt: time.Now().Add(time.Minute),
		}
		s := newIdentityService(t, db, rm, &fakeNotifier{})

		mock.ExpectBegin()
		mock.ExpectCommit()

		require.NoError(t, s.CompletePasswordReset(ctx, "a@b.com", "NewPassword1!"))

		hash := rm.users.updatedHash["a@b.com"]
		require.NotEmpty(t, hash)
		assert.True(t, auth.CheckPassword(hash, "NewPassword1!"))

		_, err := rm.challenges.Get(ctx, models.FlowReset, "a@b.com")
		assert.ErrorIs(t, err, common.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown user rolls back", func(t *testing.T) {
		db, mock := newSQLMockDB(t)
		rm := newFakeRepoManager()
		s := newIdentityService(t, db, rm, &fakeNotifier{})

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := s.CompletePasswordReset(ctx, "nobody@b.com", "NewPassword1!")
		assert.ErrorIs(t, err, common.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("weak password", func(t *testing.T) {
		db, _ := newSQLMockDB(t)
		rm := newFakeRepoManager()
		s := newIdentityService(t, db, rm, &fakeNotifier{})

		err := s.CompletePasswordReset(ctx, "a@b.com", "short")
		assert.ErrorIs(t, err, common.ErrValidation)
	})
}

package challenges

import (
	"context"
	"time"

	"github.com/dmitrijs2005/taskpilot/internal/server/models"
)

// Repository is the verification ledger: short-lived OTP challenge records
// for the signup and password-reset flows.
//
// The at-most-one-active-challenge-per-email invariant is kept by
// delete-then-create, which is not atomic across concurrent requests for
// the same email; the unique (flow, email) index turns that race into a
// write error instead of two live rows. Presence of a record never implies
// validity: callers check ExpiresAt on every read, and DeleteExpired runs
// as an independent background sweep.
type Repository interface {
	Create(ctx context.Context, challenge *models.Challenge) (*models.Challenge, error)
	Get(ctx context.Context, flow models.ChallengeFlow, email string) (*models.Challenge, error)
	Rotate(ctx context.Context, flow models.ChallengeFlow, email string, otp string, expiresAt time.Time) error
	Delete(ctx context.Context, flow models.ChallengeFlow, email string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

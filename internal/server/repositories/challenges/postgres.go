package challenges

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/taskpilot/internal/common"
	"github.com/dmitrijs2005/taskpilot/internal/dbx"
	"github.com/dmitrijs2005/taskpilot/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Challenge) (*models.Challenge, error) {

	query :=
		`INSERT INTO challenges (flow, email, name, password_hash, otp, expires_at)
         VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		c.Flow, c.Email, c.Name, c.PasswordHash, c.OTP, c.ExpiresAt).Scan(&c.ID, &c.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return c, nil
}

func (r *PostgresRepository) Get(ctx context.Context, flow models.ChallengeFlow, email string) (*models.Challenge, error) {
	query :=
		`SELECT id, flow, email, name, password_hash, otp, expires_at, created_at FROM challenges
		 WHERE flow = $1 AND email = $2
		 `

	c := &models.Challenge{}
	err := r.db.QueryRowContext(ctx, query, flow, email).
		Scan(&c.ID, &c.Flow, &c.Email, &c.Name, &c.PasswordHash, &c.OTP, &c.ExpiresAt, &c.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return c, nil
}

// Rotate replaces the OTP and pushes the expiry window forward on an
// existing challenge (the resend path).
func (r *PostgresRepository) Rotate(ctx context.Context, flow models.ChallengeFlow, email string, otp string, expiresAt time.Time) error {
	query :=
		`UPDATE challenges SET otp = $3, expires_at = $4
		 WHERE flow = $1 AND email = $2
		 `

	res, err := r.db.ExecContext(ctx, query, flow, email, otp, expiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}

	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, flow models.ChallengeFlow, email string) error {
	query :=
		`DELETE FROM challenges
		 WHERE flow = $1 AND email = $2
		 `

	if _, err := r.db.ExecContext(ctx, query, flow, email); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// DeleteExpired removes every challenge whose window elapsed before now and
// reports how many rows went away. The background sweeper calls this so
// stale records never accumulate, mirroring a TTL index.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query :=
		`DELETE FROM challenges
		 WHERE expires_at < $1
		 `

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return affected, nil
}

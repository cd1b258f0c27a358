package models

import "time"

// ChallengeFlow distinguishes the two OTP flows sharing the challenges table.
type ChallengeFlow string

const (
	FlowSignup ChallengeFlow = "signup"
	FlowReset  ChallengeFlow = "reset"
)

// Challenge is a short-lived OTP record gating a sensitive identity
// operation. For the signup flow it also carries the pending account's name
// and password hash; reset rows leave those fields empty.
//
// At most one active challenge exists per (flow, email); issuing a new one
// supersedes the old record.
type Challenge struct {
	ID           string
	Flow         ChallengeFlow
	Email        string
	Name         string
	PasswordHash string
	OTP          string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// Expired reports whether the challenge window has elapsed at the given
// moment. Presence of a record never implies validity; every read checks.
func (c *Challenge) Expired(now time.Time) bool {
	return c.ExpiresAt.Before(now)
}

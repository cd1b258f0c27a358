package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
)

// generateOTP returns a random code in [100000, 999999]. Codes are always
// six digits with no leading zero, so they survive any client that treats
// them as numbers.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("otp generation: %w", err)
	}
	return strconv.FormatInt(100000+n.Int64(), 10), nil
}

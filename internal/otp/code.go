// Package otp holds the ephemeral side of registration: numeric code
// generation and the Redis-backed store for pending registrations and their
// per-email request counters.
package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateCode returns a fixed-length numeric code. Leading zeros are
// preserved ("0042" is a valid 4-digit code).
func GenerateCode(length int) (string, error) {
	if length < 4 || length > 10 {
		return "", fmt.Errorf("otp length %d out of range", length)
	}
	max := big.NewInt(10)
	for i := 1; i < length; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n), nil
}

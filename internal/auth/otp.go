package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"math/big"
)

const otpDigits = 6

var ten = big.NewInt(10)

// generateOTP returns a zero-padded numeric code whose digits are drawn
// independently and uniformly from src.
func generateOTP(src io.Reader) (string, error) {
	code := make([]byte, otpDigits)
	for i := range code {
		n, err := rand.Int(src, ten)
		if err != nil {
			return "", fmt.Errorf("failed to generate reset code: %w", err)
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code), nil
}

func otpEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

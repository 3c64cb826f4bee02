package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"time"
)

const CodePrefix = "CERT-"

const codeModulus = 100_000_000

var codePattern = regexp.MustCompile(`^CERT-\d{8}$`)

// GenerateCode returns "CERT-" followed by the last eight digits of now in
// epoch milliseconds. Codes repeat every ~27.8 hours of wall clock and two
// calls in the same millisecond collide; callers check the store.
func GenerateCode(now time.Time) string {
	ms := now.UnixMilli() % codeModulus
	if ms < 0 {
		ms += codeModulus
	}
	return fmt.Sprintf("%s%08d", CodePrefix, ms)
}

// RandomCode returns a code in the same format drawn from crypto/rand.
func RandomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeModulus))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%08d", CodePrefix, n.Int64()), nil
}

func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

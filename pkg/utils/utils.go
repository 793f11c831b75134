package utils

import (
	"crypto/rand"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

const (
	loanIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	digits         = "0123456789"
)

func randomString(alphabet string, length int) string {
	out := make([]byte, length)
	max := big.NewInt(int64(len(alphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform entropy source is
			// broken; nothing sensible to do but give up loudly.
			panic(err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out)
}

// GenerateLoanID returns a 10-character uppercase alphanumeric loan id.
func GenerateLoanID() string {
	return randomString(loanIDAlphabet, 10)
}

// GenerateToken returns a 10-digit numeric meter token.
func GenerateToken() string {
	return randomString(digits, 10)
}

// GeneratePaymentReference returns a 12-character alphanumeric reference.
func GeneratePaymentReference() string {
	return randomString(loanIDAlphabet, 12)
}

// GenerateTransactionID returns a 16-character alphanumeric transaction id.
func GenerateTransactionID() string {
	return randomString(loanIDAlphabet, 16)
}

// DaysBetween returns the number of whole days from earlier to later.
func DaysBetween(earlier, later time.Time) int {
	if later.Before(earlier) {
		return 0
	}
	return int(later.Sub(earlier).Hours() / 24)
}

// DecimalFromString converts string to decimal.Decimal
func DecimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

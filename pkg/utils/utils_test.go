package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateLoanID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateLoanID()
		assert.Len(t, id, 10)
		for _, r := range id {
			assert.True(t, strings.ContainsRune(loanIDAlphabet, r), "unexpected rune %q", r)
		}
		seen[id] = true
	}
	assert.Greater(t, len(seen), 95, "ids should be effectively unique")
}

func TestGenerateToken(t *testing.T) {
	token := GenerateToken()
	assert.Len(t, token, 10)
	for _, r := range token {
		assert.True(t, r >= '0' && r <= '9', "token must be numeric, got %q", r)
	}
}

func TestGenerateReferenceLengths(t *testing.T) {
	assert.Len(t, GeneratePaymentReference(), 12)
	assert.Len(t, GenerateTransactionID(), 16)
}

func TestDaysBetween(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysBetween(base, base))
	assert.Equal(t, 1, DaysBetween(base, base.AddDate(0, 0, 1)))
	assert.Equal(t, 31, DaysBetween(base, base.AddDate(0, 1, 0)))
	assert.Equal(t, 0, DaysBetween(base, base.Add(-time.Hour)), "reversed range clamps to zero")
	assert.Equal(t, 0, DaysBetween(base, base.Add(23*time.Hour)), "partial days do not count")
}

func TestDecimalFromString(t *testing.T) {
	d, err := DecimalFromString("775.7")
	require.NoError(t, err)
	assert.Equal(t, "775.7", d.String())

	_, err = DecimalFromString("not a number")
	assert.Error(t, err)
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateReferralCode(t *testing.T) {
	code := GenerateReferralCode("user@example.com")
	assert.Len(t, code, 6)
	for _, c := range code {
		assert.Contains(t, referralCodeChars, string(c))
	}

	// Deterministic so the code can be recomputed client-side
	assert.Equal(t, code, GenerateReferralCode("user@example.com"))
	assert.NotEqual(t, code, GenerateReferralCode("other@example.com"))
}

package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPKCEPair(t *testing.T) {
	pair := NewPKCEPair()

	assert.Equal(t, CodeChallengeMethodS256, pair.Method)
	assert.Len(t, pair.Verifier, 43)
	assert.Len(t, pair.Challenge, 43)

	sum := sha256.Sum256([]byte(pair.Verifier))
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(sum[:]), pair.Challenge)
	assert.NotContains(t, pair.Challenge, "=")
}

func TestNewPKCEPair_IsFreshEachTime(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		pair := NewPKCEPair()
		_, dup := seen[pair.Verifier]
		assert.False(t, dup, "verifier repeated")
		seen[pair.Verifier] = struct{}{}
	}
}

func TestVerifyChallenge(t *testing.T) {
	// RFC 7636 appendix B
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	challenge := "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"

	assert.True(t, VerifyChallenge(verifier, challenge))
	assert.False(t, VerifyChallenge(verifier, challenge+"x"))
	assert.False(t, VerifyChallenge("other", challenge))
}

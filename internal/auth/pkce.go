package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"pkce-relay/internal/models"

	"golang.org/x/oauth2"
)

const CodeChallengeMethodS256 = "S256"

// NewPKCEPair returns a fresh 32 byte verifier and its S256 challenge.
func NewPKCEPair() models.PKCEPair {
	verifier := oauth2.GenerateVerifier()

	return models.PKCEPair{
		Verifier:  verifier,
		Challenge: oauth2.S256ChallengeFromVerifier(verifier),
		Method:    CodeChallengeMethodS256,
	}
}

// VerifyChallenge reports whether challenge is base64url(sha256(verifier)).
func VerifyChallenge(verifier, challenge string) bool {
	sum := sha256.Sum256([]byte(verifier))
	expected := base64.RawURLEncoding.EncodeToString(sum[:])

	return subtle.ConstantTimeCompare([]byte(expected), []byte(challenge)) == 1
}

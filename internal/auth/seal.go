package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"pkce-relay/internal/models"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	sealNonceSize = 24
	sealInfo      = "pkce-relay session token record"
)

var ErrSealedTokenInvalid = errors.New("sealed token record is invalid")

// tokenSealer encrypts token records before they are written to the session
// store, keyed from the configured session secret.
type tokenSealer struct {
	key [32]byte
}

func newTokenSealer(secret string) (*tokenSealer, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}

	sealer := &tokenSealer{}
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(sealInfo))
	if _, err := io.ReadFull(kdf, sealer.key[:]); err != nil {
		return nil, fmt.Errorf("failed to derive session key: %w", err)
	}

	return sealer, nil
}

func (s *tokenSealer) Seal(record *models.TokenRecord) ([]byte, error) {
	plaintext, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal token record: %w", err)
	}

	var nonce [sealNonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return secretbox.Seal(nonce[:], plaintext, &nonce, &s.key), nil
}

func (s *tokenSealer) Open(sealed []byte) (*models.TokenRecord, error) {
	if len(sealed) < sealNonceSize+secretbox.Overhead {
		return nil, ErrSealedTokenInvalid
	}

	var nonce [sealNonceSize]byte
	copy(nonce[:], sealed[:sealNonceSize])

	plaintext, ok := secretbox.Open(nil, sealed[sealNonceSize:], &nonce, &s.key)
	if !ok {
		return nil, ErrSealedTokenInvalid
	}

	var record models.TokenRecord
	if err := json.Unmarshal(plaintext, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSealedTokenInvalid, err)
	}

	return &record, nil
}

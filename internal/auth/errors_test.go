package auth

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"
)

func TestErrorKind_StatusAndMessage(t *testing.T) {
	tests := []struct {
		kind    ErrorKind
		status  int
		message string
	}{
		{KindInvalidRequest, http.StatusBadRequest, "Invalid request"},
		{KindTokenExchangeFailed, http.StatusInternalServerError, "Token exchange failed"},
		{KindUnauthorized, http.StatusUnauthorized, "Unauthorized"},
		{KindProfileFetchFailed, http.StatusInternalServerError, "Failed to fetch user info"},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.status, tt.kind.Status())
			assert.Equal(t, tt.message, tt.kind.Message())
		})
	}
}

func TestRelayError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("outer: %w", &RelayError{Kind: KindUnauthorized, Err: errors.New("no token")})

	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.False(t, errors.Is(err, ErrInvalidRequest))
	assert.Equal(t, KindUnauthorized, KindOf(err))
	assert.Equal(t, ErrorKind(0), KindOf(errors.New("plain")))
}

func TestNewTokenExchangeError_Details(t *testing.T) {
	jsonBody := &oauth2.RetrieveError{Body: []byte(`{"error":"invalid_grant"}`)}
	err := newTokenExchangeError(fmt.Errorf("exchange: %w", jsonBody))
	assert.Equal(t, map[string]any{"error": "invalid_grant"}, err.Details)

	textBody := &oauth2.RetrieveError{Body: []byte("bad gateway")}
	err = newTokenExchangeError(textBody)
	assert.Equal(t, "bad gateway", err.Details)

	err = newTokenExchangeError(errors.New("dial tcp: connection refused"))
	assert.Nil(t, err.Details)
	assert.Equal(t, KindTokenExchangeFailed, err.Kind)
}

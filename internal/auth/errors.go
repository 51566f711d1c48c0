package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

type ErrorKind int

const (
	KindInvalidRequest ErrorKind = iota + 1
	KindTokenExchangeFailed
	KindUnauthorized
	KindProfileFetchFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidRequest:
		return "InvalidRequest"
	case KindTokenExchangeFailed:
		return "TokenExchangeFailed"
	case KindUnauthorized:
		return "Unauthorized"
	case KindProfileFetchFailed:
		return "ProfileFetchFailed"
	default:
		return "Unknown"
	}
}

// Status is the HTTP status the relay answers with for this kind.
func (k ErrorKind) Status() int {
	switch k {
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Message is the client-visible "error" field.
func (k ErrorKind) Message() string {
	switch k {
	case KindInvalidRequest:
		return "Invalid request"
	case KindTokenExchangeFailed:
		return "Token exchange failed"
	case KindUnauthorized:
		return "Unauthorized"
	case KindProfileFetchFailed:
		return "Failed to fetch user info"
	default:
		return http.StatusText(http.StatusInternalServerError)
	}
}

// RelayError is a terminal failure of one relay operation. Details is only
// populated for token exchange failures, with the provider's error body.
type RelayError struct {
	Kind    ErrorKind
	Details any
	Err     error
}

func (e *RelayError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *RelayError) Unwrap() error {
	return e.Err
}

var (
	ErrInvalidRequest = &RelayError{Kind: KindInvalidRequest}
	ErrUnauthorized   = &RelayError{Kind: KindUnauthorized}
)

// Is matches on Kind so errors.Is(err, ErrUnauthorized) works for wrapped instances.
func (e *RelayError) Is(target error) bool {
	var t *RelayError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Err == nil
}

// KindOf reports the kind of err, or zero if err is not a RelayError.
func KindOf(err error) ErrorKind {
	var relayErr *RelayError
	if errors.As(err, &relayErr) {
		return relayErr.Kind
	}
	return 0
}

func newTokenExchangeError(err error) *RelayError {
	return &RelayError{
		Kind:    KindTokenExchangeFailed,
		Details: retrieveErrorDetails(err),
		Err:     err,
	}
}

func newProfileFetchError(err error) *RelayError {
	return &RelayError{
		Kind: KindProfileFetchFailed,
		Err:  err,
	}
}

// retrieveErrorDetails extracts the provider's token endpoint error body.
func retrieveErrorDetails(err error) any {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) || len(retrieveErr.Body) == 0 {
		return nil
	}

	var body any
	if jsonErr := json.Unmarshal(retrieveErr.Body, &body); jsonErr == nil {
		return body
	}

	return string(retrieveErr.Body)
}

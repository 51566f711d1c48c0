package handlers

import (
	"errors"
	"net/http"

	"pkce-relay/internal/auth"
	"pkce-relay/internal/middlewares"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// writeRelayError maps err onto the relay's JSON error body. Only token
// exchange failures carry details.
func writeRelayError(ctx *middlewares.AppContext, err error) {
	var relayErr *auth.RelayError
	if !errors.As(err, &relayErr) {
		ctx.SetJSONError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	resp := errorResponse{Error: relayErr.Kind.Message()}
	if relayErr.Kind == auth.KindTokenExchangeFailed {
		resp.Details = relayErr.Details
	}

	ctx.WriteJSON(relayErr.Kind.Status(), resp)
}

package handlers

import (
	"net/http"

	"pkce-relay/internal/middlewares"
)

type StatusResponse struct {
	Authenticated bool `json:"authenticated"`
	LoginPending  bool `json:"login_pending"`
}

// GETStatusHandler reports where the session is in the login flow without
// touching the provider.
func GETStatusHandler(ctx *middlewares.AppContext) {
	_, hasToken := ctx.SessionManager.GetToken(ctx)

	ctx.WriteJSON(http.StatusOK, StatusResponse{
		Authenticated: hasToken,
		LoginPending:  ctx.SessionManager.GetCodeVerifier(ctx) != "",
	})
}

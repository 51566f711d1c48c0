package handlers

import (
	"net/http"

	"pkce-relay/internal/auth"
	"pkce-relay/internal/middlewares"
)

// GETUserHandler relays the provider profile for the session's access token.
// The body is passed through unmodified.
func GETUserHandler(ctx *middlewares.AppContext) {
	token, ok := ctx.SessionManager.GetToken(ctx)
	if !ok || token.AccessToken == "" {
		writeRelayError(ctx, auth.ErrUnauthorized)
		return
	}

	profile, err := ctx.OAuthProvider.FetchProfile(ctx, token)
	if err != nil {
		ctx.Logger.Error("Failed to fetch user profile", "error", err)
		writeRelayError(ctx, err)
		return
	}

	ctx.WriteRaw(http.StatusOK, "application/json", profile)
}

package handlers

import (
	"net/http"

	"pkce-relay/internal/metrics"
	"pkce-relay/internal/middlewares"
)

// GETLoginHandler starts a login attempt. Any verifier from an earlier,
// unfinished attempt is replaced.
func GETLoginHandler(ctx *middlewares.AppContext) {
	pkce := ctx.OAuthProvider.NewPKCEPair()
	ctx.SessionManager.SetCodeVerifier(ctx, pkce.Verifier)

	authURL := ctx.OAuthProvider.AuthCodeURL(pkce)
	metrics.LoginsStarted.Inc()

	ctx.Logger.Debug("Redirecting to identity provider", "url", authURL)
	ctx.Redirect(authURL, http.StatusFound)
}

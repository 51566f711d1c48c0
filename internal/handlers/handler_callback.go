package handlers

import (
	"net/http"

	"pkce-relay/internal/auth"
	"pkce-relay/internal/middlewares"
)

func GETCallbackHandler(ctx *middlewares.AppContext) {
	query := ctx.Request.URL.Query()

	if errorParam := query.Get("error"); errorParam != "" {
		ctx.Logger.Warn("Provider returned an error to the callback",
			"error", errorParam,
			"description", query.Get("error_description"))
	}

	code := query.Get("code")
	verifier := ctx.SessionManager.GetCodeVerifier(ctx)
	if code == "" || verifier == "" {
		ctx.Logger.Warn("Callback without code or pending verifier",
			"has_code", code != "",
			"has_verifier", verifier != "")
		writeRelayError(ctx, auth.ErrInvalidRequest)
		return
	}

	token, err := ctx.OAuthProvider.Exchange(ctx, code, verifier)
	if err != nil {
		ctx.Logger.Error("Failed to exchange authorization code", "error", err)
		writeRelayError(ctx, err)
		return
	}

	ctx.SessionManager.ClearCodeVerifier(ctx)
	if err := ctx.SessionManager.SetToken(ctx, token); err != nil {
		ctx.Logger.Error("Failed to store token in session", "error", err)
		writeRelayError(ctx, err)
		return
	}

	ctx.Logger.Info("Authorization code exchanged",
		"token_type", token.TokenType,
		"expires_in", token.ExpiresIn,
		"has_refresh_token", token.RefreshToken != "")

	body, err := token.ResponseBody()
	if err != nil {
		ctx.Logger.Error("Failed to encode token response", "error", err)
		writeRelayError(ctx, err)
		return
	}

	ctx.WriteRaw(http.StatusOK, "application/json", body)
}

package handlers

import (
	"net/http"

	"pkce-relay/internal/middlewares"
)

func POSTLogoutHandler(ctx *middlewares.AppContext) {
	_, hadToken := ctx.SessionManager.GetToken(ctx)

	if err := ctx.SessionManager.Logout(ctx); err != nil {
		ctx.Logger.Error("Failed to destroy session", "error", err)
		ctx.SetJSONError(http.StatusInternalServerError, "Failed to logout")
		return
	}

	if hadToken {
		ctx.Logger.Info("Session logged out")
	}

	ctx.SetJSONStatus(http.StatusOK, "OK")
}

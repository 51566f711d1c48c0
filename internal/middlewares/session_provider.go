package middlewares

import (
	"net/http"

	"pkce-relay/internal/models"
)

//go:generate mockgen -source=session_provider.go -destination=../mocks/session.go -package=mocks

type SessionProvider interface {
	SetCodeVerifier(ctx *AppContext, verifier string)
	GetCodeVerifier(ctx *AppContext) string
	ClearCodeVerifier(ctx *AppContext)
	SetToken(ctx *AppContext, token *models.TokenRecord) error
	GetToken(ctx *AppContext) (token *models.TokenRecord, ok bool)
	Logout(ctx *AppContext) error

	LoadAndSave(next http.Handler) http.Handler
}

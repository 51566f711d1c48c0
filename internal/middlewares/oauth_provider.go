package middlewares

import (
	"context"

	"pkce-relay/internal/models"
)

//go:generate mockgen -source=oauth_provider.go -destination=../mocks/oauth.go -package=mocks

type OAuthProvider interface {
	NewPKCEPair() models.PKCEPair
	AuthCodeURL(pkce models.PKCEPair) string
	Exchange(ctx context.Context, code, verifier string) (*models.TokenRecord, error)
	FetchProfile(ctx context.Context, token *models.TokenRecord) ([]byte, error)
}

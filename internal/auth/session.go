package auth

import (
	"fmt"
	"log/slog"
	"net/http"

	"pkce-relay/internal/config"
	"pkce-relay/internal/middlewares"
	"pkce-relay/internal/models"

	"github.com/alexedwards/scs/v2"
)

// SessionManager keeps the two pieces of per-browser login state: the
// in-flight PKCE verifier and the token record.
type SessionManager struct {
	*scs.SessionManager
	sealer *tokenSealer
	logger *slog.Logger
}

func NewSessionManager(logger *slog.Logger, cfg *config.Config) (*SessionManager, error) {
	store, err := NewSessionStore(logger, cfg)
	if err != nil {
		return nil, err
	}

	return newSessionManagerWithStore(logger, cfg.Sessions, store)
}

func newSessionManagerWithStore(logger *slog.Logger, cfg config.SessionConfig, store scs.Store) (*SessionManager, error) {
	sealer, err := newTokenSealer(cfg.Secret)
	if err != nil {
		return nil, err
	}

	sessionManager := scs.New()
	sessionManager.Store = store
	sessionManager.Lifetime = cfg.Lifetime

	sessionManager.Cookie.Name = cfg.Name
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	sessionManager.Cookie.Secure = cfg.Secure
	sessionManager.Cookie.Path = "/"
	sessionManager.Cookie.Persist = false

	sessionManager.ErrorFunc = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("session store error", "error", err, "path", r.URL.Path)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}

	return &SessionManager{
		SessionManager: sessionManager,
		sealer:         sealer,
		logger:         logger,
	}, nil
}

func (s *SessionManager) LoadAndSave(next http.Handler) http.Handler {
	return s.SessionManager.LoadAndSave(next)
}

// SetCodeVerifier records the verifier for the login attempt in flight,
// replacing any earlier one.
func (s *SessionManager) SetCodeVerifier(ctx *middlewares.AppContext, verifier string) {
	s.Put(ctx, string(SessionKeyCodeVerifier), verifier)
}

func (s *SessionManager) GetCodeVerifier(ctx *middlewares.AppContext) string {
	return s.GetString(ctx, string(SessionKeyCodeVerifier))
}

func (s *SessionManager) ClearCodeVerifier(ctx *middlewares.AppContext) {
	s.Remove(ctx, string(SessionKeyCodeVerifier))
}

// SetToken stores the sealed token record and rotates the session token,
// since the session now carries a credential.
func (s *SessionManager) SetToken(ctx *middlewares.AppContext, token *models.TokenRecord) error {
	if token == nil {
		return fmt.Errorf("token record is nil")
	}

	sealed, err := s.sealer.Seal(token)
	if err != nil {
		return err
	}

	if err := s.RenewToken(ctx); err != nil {
		return fmt.Errorf("failed to renew session token: %w", err)
	}

	s.Put(ctx, string(SessionKeyTokenRecord), sealed)
	return nil
}

func (s *SessionManager) GetToken(ctx *middlewares.AppContext) (*models.TokenRecord, bool) {
	sealed := s.GetBytes(ctx, string(SessionKeyTokenRecord))
	if len(sealed) == 0 {
		return nil, false
	}

	token, err := s.sealer.Open(sealed)
	if err != nil {
		s.logger.Warn("discarding unreadable token record", "error", err)
		s.Remove(ctx, string(SessionKeyTokenRecord))
		return nil, false
	}

	return token, true
}

func (s *SessionManager) Logout(ctx *middlewares.AppContext) error {
	return s.Destroy(ctx)
}

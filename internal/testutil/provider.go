package testutil

import (
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"pkce-relay/internal/config"
)

const (
	FakeTenantID     = "test-tenant"
	FakeClientID     = "test-client"
	FakeClientSecret = "test-secret"
	FakeAccessToken  = "fake-access-token"
	FakeAuthCode     = "fake-auth-code"
)

// FakeTokenResponse is the exact body the fake token endpoint answers with.
// ext_expires_in is an Azure field outside the OAuth2 token schema.
var FakeTokenResponse = []byte(`{"token_type":"Bearer","scope":"openid profile email","expires_in":3599,"ext_expires_in":3599,"access_token":"` + FakeAccessToken + `","refresh_token":"fake-refresh-token"}`)

// FakeProfile is what the fake provider serves from /me.
var FakeProfile = []byte(`{"@odata.context":"https://graph.microsoft.com/v1.0/$metadata#users/$entity","displayName":"Ada Lovelace","mail":"ada@example.com","id":"00000000-0000-0000-0000-000000000001"}`)

// FakeProvider is an httptest identity provider speaking the Microsoft v2.0
// authorize/token layout plus a Graph style profile endpoint. It enforces
// PKCE: a code is only redeemable with the verifier matching the challenge
// last seen on the authorize endpoint.
type FakeProvider struct {
	Server *httptest.Server

	mu             sync.Mutex
	challenge      string
	tokenRequests  []url.Values
	profileStatus  int
	profile        []byte
	tokenRejection []byte
}

func NewFakeProvider(t *testing.T) *FakeProvider {
	t.Helper()

	p := &FakeProvider{profileStatus: http.StatusOK, profile: FakeProfile}

	mux := http.NewServeMux()
	mux.HandleFunc("/"+FakeTenantID+"/oauth2/v2.0/authorize", p.handleAuthorize)
	mux.HandleFunc("/"+FakeTenantID+"/oauth2/v2.0/token", p.handleToken)
	mux.HandleFunc("/me", p.handleProfile)

	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Server.Close)

	return p
}

func (p *FakeProvider) URL() string {
	return p.Server.URL
}

func (p *FakeProvider) ProfileURL() string {
	return p.Server.URL + "/me"
}

// RelayConfig loads a relay configuration from the environment, pointed at
// this provider, with an in-memory session store.
func (p *FakeProvider) RelayConfig(t *testing.T, redirectURI string) *config.Config {
	t.Helper()

	t.Setenv(config.EnvTenantID, FakeTenantID)
	t.Setenv(config.EnvClientID, FakeClientID)
	t.Setenv(config.EnvClientSecret, FakeClientSecret)
	t.Setenv(config.EnvRedirectURI, redirectURI)
	t.Setenv(config.EnvSessionSecret, "test-session-secret")
	t.Setenv(config.EnvPort, "")

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("failed to load relay config: %v", err)
	}

	cfg.Provider.AuthorityURL = p.URL()
	cfg.Provider.ProfileURL = p.ProfileURL()
	cfg.Provider.HTTPTimeout = 5 * time.Second

	return cfg
}

// SetChallenge records the challenge a browser would have presented on the
// authorize endpoint.
func (p *FakeProvider) SetChallenge(challenge string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.challenge = challenge
}

// RejectTokenRequests makes the token endpoint answer 400 with body.
func (p *FakeProvider) RejectTokenRequests(body []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenRejection = body
}

func (p *FakeProvider) SetProfileStatus(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profileStatus = status
}

// SetProfile replaces the document served from /me.
func (p *FakeProvider) SetProfile(body []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profile = body
}

func (p *FakeProvider) TokenRequests() []url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]url.Values(nil), p.tokenRequests...)
}

// handleAuthorize plays the user consenting and bounces to redirect_uri.
func (p *FakeProvider) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	p.SetChallenge(query.Get("code_challenge"))

	redirect, err := url.Parse(query.Get("redirect_uri"))
	if err != nil || redirect.String() == "" {
		http.Error(w, "invalid redirect_uri", http.StatusBadRequest)
		return
	}

	q := redirect.Query()
	q.Set("code", FakeAuthCode)
	redirect.RawQuery = q.Encode()

	http.Redirect(w, r, redirect.String(), http.StatusFound)
}

func (p *FakeProvider) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	p.tokenRequests = append(p.tokenRequests, r.PostForm)
	challenge := p.challenge
	rejection := p.tokenRejection
	p.mu.Unlock()

	if rejection != nil {
		writeProviderJSON(w, http.StatusBadRequest, rejection)
		return
	}

	form := r.PostForm
	if form.Get("grant_type") != "authorization_code" ||
		form.Get("client_id") != FakeClientID ||
		form.Get("client_secret") != FakeClientSecret ||
		form.Get("code") != FakeAuthCode {
		writeProviderJSON(w, http.StatusBadRequest, []byte(`{"error":"invalid_grant","error_description":"unknown code or client"}`))
		return
	}

	sum := sha256.Sum256([]byte(form.Get("code_verifier")))
	if base64.RawURLEncoding.EncodeToString(sum[:]) != challenge {
		writeProviderJSON(w, http.StatusBadRequest, []byte(`{"error":"invalid_grant","error_description":"PKCE verification failed"}`))
		return
	}

	writeProviderJSON(w, http.StatusOK, FakeTokenResponse)
}

func (p *FakeProvider) handleProfile(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	status := p.profileStatus
	profile := p.profile
	p.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+FakeAccessToken {
		writeProviderJSON(w, http.StatusUnauthorized, []byte(`{"error":{"code":"InvalidAuthenticationToken"}}`))
		return
	}

	if status != http.StatusOK {
		writeProviderJSON(w, status, []byte(`{"error":{"code":"ServiceUnavailable"}}`))
		return
	}

	writeProviderJSON(w, http.StatusOK, profile)
}

func writeProviderJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

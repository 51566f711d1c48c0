package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"pkce-relay/internal/auth"
	"pkce-relay/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type relayHarness struct {
	provider *testutil.FakeProvider
	relay    *httptest.Server
	client   *http.Client
	logs     *testutil.TestLogHandler
}

func newRelayHarness(t *testing.T) *relayHarness {
	t.Helper()

	provider := testutil.NewFakeProvider(t)
	cfg := provider.RelayConfig(t, "http://localhost:5173/")

	logs := testutil.NewTestLogHandler()
	srv, err := NewWithLogger(cfg, slog.New(logs))
	require.NoError(t, err)

	relay := httptest.NewServer(srv.Handler())
	t.Cleanup(relay.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &relayHarness{provider: provider, relay: relay, client: client, logs: logs}
}

func (h *relayHarness) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	return h.do(t, http.MethodGet, path)
}

func (h *relayHarness) do(t *testing.T, method, path string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, h.relay.URL+path, nil)
	require.NoError(t, err)

	resp, err := h.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, body
}

// login walks /login and records the challenge at the provider, the way a
// browser following the redirect would.
func (h *relayHarness) login(t *testing.T) *url.URL {
	t.Helper()

	resp, _ := h.get(t, "/login")
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)

	h.provider.SetChallenge(location.Query().Get("code_challenge"))
	return location
}

func TestRelay_FullLoginFlow(t *testing.T) {
	h := newRelayHarness(t)

	resp, body := h.get(t, "/user")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, string(body))

	location := h.login(t)
	query := location.Query()

	assert.Equal(t, h.provider.URL(), location.Scheme+"://"+location.Host)
	assert.Equal(t, "/"+testutil.FakeTenantID+"/oauth2/v2.0/authorize", location.Path)
	assert.Equal(t, testutil.FakeClientID, query.Get("client_id"))
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "http://localhost:5173/", query.Get("redirect_uri"))
	assert.Equal(t, "query", query.Get("response_mode"))
	assert.Equal(t, "openid profile email", query.Get("scope"))
	assert.Equal(t, "S256", query.Get("code_challenge_method"))
	assert.Len(t, query.Get("code_challenge"), 43)
	assert.Empty(t, query.Get("state"))

	resp, body = h.get(t, "/callback?code="+testutil.FakeAuthCode)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, testutil.FakeTokenResponse, body, "token response should pass through unchanged")

	requests := h.provider.TokenRequests()
	require.Len(t, requests, 1)
	assert.Equal(t, "http://localhost:5173/", requests[0].Get("redirect_uri"))
	assert.True(t, auth.VerifyChallenge(requests[0].Get("code_verifier"), query.Get("code_challenge")))

	resp, body = h.get(t, "/user")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, testutil.FakeProfile, body)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	assert.False(t, h.logs.ContainsText(testutil.FakeAccessToken), "access token must not be logged")
}

func TestRelay_CallbackWithoutLoginIsInvalid(t *testing.T) {
	h := newRelayHarness(t)

	resp, body := h.get(t, "/callback?code="+testutil.FakeAuthCode)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Invalid request"}`, string(body))
	assert.Empty(t, h.provider.TokenRequests())
}

func TestRelay_CallbackIsSingleUse(t *testing.T) {
	h := newRelayHarness(t)
	h.login(t)

	resp, _ := h.get(t, "/callback?code="+testutil.FakeAuthCode)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := h.get(t, "/callback?code="+testutil.FakeAuthCode)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Invalid request"}`, string(body))
}

func TestRelay_TokenExchangeFailureRelaysDetails(t *testing.T) {
	h := newRelayHarness(t)
	h.login(t)

	h.provider.RejectTokenRequests([]byte(`{"error":"invalid_grant","error_description":"AADSTS54005: OAuth2 Authorization code was already redeemed."}`))

	resp, body := h.get(t, "/callback?code="+testutil.FakeAuthCode)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Token exchange failed","details":{"error":"invalid_grant","error_description":"AADSTS54005: OAuth2 Authorization code was already redeemed."}}`, string(body))

	resp, _ = h.get(t, "/user")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRelay_TokenExchangeFailureWithTextBody(t *testing.T) {
	h := newRelayHarness(t)
	h.login(t)

	h.provider.RejectTokenRequests([]byte(`service unavailable`))

	resp, body := h.get(t, "/callback?code="+testutil.FakeAuthCode)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Token exchange failed","details":"service unavailable"}`, string(body))
}

func TestRelay_ProfileFailureHidesDetails(t *testing.T) {
	h := newRelayHarness(t)
	h.login(t)

	resp, _ := h.get(t, "/callback?code="+testutil.FakeAuthCode)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	h.provider.SetProfileStatus(http.StatusServiceUnavailable)

	resp, body := h.get(t, "/user")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Failed to fetch user info"}`, string(body))
}

func TestRelay_OversizedProfileIsRejected(t *testing.T) {
	h := newRelayHarness(t)
	h.login(t)

	resp, _ := h.get(t, "/callback?code="+testutil.FakeAuthCode)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	h.provider.SetProfile([]byte(`{"displayName":"` + strings.Repeat("a", 1<<20) + `"}`))

	resp, body := h.get(t, "/user")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Failed to fetch user info"}`, string(body))
}

func TestRelay_LogoutDropsToken(t *testing.T) {
	h := newRelayHarness(t)
	h.login(t)

	resp, _ := h.get(t, "/callback?code="+testutil.FakeAuthCode)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := h.do(t, http.MethodPost, "/logout")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"OK"}`, string(body))

	resp, _ = h.get(t, "/user")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRelay_SessionCookieAttributes(t *testing.T) {
	h := newRelayHarness(t)

	resp, _ := h.get(t, "/login")
	require.Equal(t, http.StatusFound, resp.StatusCode)

	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "relay_session" {
			session = c
		}
	}
	require.NotNil(t, session, "session cookie should be set on login")

	assert.True(t, session.HttpOnly)
	assert.False(t, session.Secure)
	assert.Equal(t, http.SameSiteLaxMode, session.SameSite)
	assert.Equal(t, "/", session.Path)
	assert.Zero(t, session.MaxAge)
	assert.True(t, session.Expires.IsZero())
}

func TestRelay_CORSPreflight(t *testing.T) {
	h := newRelayHarness(t)

	req, err := http.NewRequest(http.MethodOptions, h.relay.URL+"/user", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	resp, err := h.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	assert.Empty(t, resp.Header.Values("Set-Cookie"))
}

func TestRelay_StatusFollowsSessionShape(t *testing.T) {
	h := newRelayHarness(t)

	_, body := h.get(t, "/status")
	assert.JSONEq(t, `{"authenticated":false,"login_pending":false}`, string(body))

	h.login(t)
	_, body = h.get(t, "/status")
	assert.JSONEq(t, `{"authenticated":false,"login_pending":true}`, string(body))

	resp, _ := h.get(t, "/callback?code="+testutil.FakeAuthCode)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = h.get(t, "/status")
	assert.JSONEq(t, `{"authenticated":true,"login_pending":false}`, string(body))
}

func TestRelay_Health(t *testing.T) {
	h := newRelayHarness(t)

	resp, body := h.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `"status":"OK"`))
}

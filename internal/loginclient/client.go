package loginclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"pkce-relay/internal/models"
)

const maxRelayBodyBytes = 1 << 20

var ErrNoCode = errors.New("redirect carries no authorization code")

// RelayError is a non-2xx answer from the relay, with its JSON error body.
type RelayError struct {
	Status  int             `json:"-"`
	Message string          `json:"error"`
	Details json.RawMessage `json:"details,omitempty"`
}

func (e *RelayError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("relay returned %d: %s: %s", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("relay returned %d: %s", e.Status, e.Message)
}

// Client drives a login against the relay. It holds the relay session cookie
// the way a browser would.
type Client struct {
	relayURL *url.URL
	http     *http.Client
	logger   *slog.Logger
	machine  *Machine

	mu         sync.Mutex
	profile    *models.Profile
	rawProfile []byte
}

type Option func(*Client)

func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = timeout
	}
}

func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.Transport = rt
	}
}

func New(relayURL string, logger *slog.Logger, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(relayURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid relay url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid relay url: %q must be absolute", relayURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	c := &Client{
		relayURL: parsed,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger:  logger,
		machine: NewMachine(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Client) State() State {
	return c.machine.State()
}

// Profile returns the last fetched profile and its raw document.
func (c *Client) Profile() (*models.Profile, []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile, c.rawProfile
}

func (c *Client) LoginURL() string {
	return c.endpoint("/login")
}

// Initiate calls the relay login endpoint and returns the provider
// authorize URL the user has to open.
func (c *Client) Initiate(ctx context.Context) (string, error) {
	if _, err := c.machine.Fire(EventInitiate); err != nil {
		return "", err
	}

	c.mu.Lock()
	c.profile, c.rawProfile = nil, nil
	c.mu.Unlock()

	resp, err := c.get(ctx, "/login")
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	defer c.closeBody(resp)

	if resp.StatusCode != http.StatusFound && resp.StatusCode != http.StatusSeeOther {
		return "", c.relayError(resp)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("relay login response has no Location header")
	}

	c.logger.Debug("Relay issued authorize redirect", "location", location)
	return location, nil
}

// HandleRedirect processes the URL the provider sent the user back to. A URL
// without a code leaves the state untouched. Failures are logged and end in
// StateFailed; they are not returned.
func (c *Client) HandleRedirect(ctx context.Context, redirect string) State {
	code, err := codeFromRedirect(redirect)
	if err != nil {
		if !errors.Is(err, ErrNoCode) {
			c.logger.Warn("Ignoring unparseable redirect", "error", err)
		}
		return c.State()
	}

	if _, err := c.machine.Fire(EventCodeReceived); err != nil {
		c.logger.Warn("Ignoring authorization code", "error", err)
		return c.State()
	}

	token, err := c.CompleteLogin(ctx, code)
	if err != nil {
		c.logger.Error("Login failed", "error", err)
		c.fire(EventExchangeFailed)
		return c.State()
	}

	if token.AccessToken == "" {
		c.logger.Error("Login failed", "error", "token response has no access_token")
		c.fire(EventExchangeFailed)
		return c.State()
	}
	c.fire(EventExchangeSucceeded)

	if _, err := c.FetchProfile(ctx); err != nil {
		c.logger.Error("Failed to fetch profile", "error", err)
		c.fire(EventProfileFailed)
		return c.State()
	}
	c.fire(EventProfileFetched)

	return c.State()
}

// CompleteLogin asks the relay to exchange code for a token.
func (c *Client) CompleteLogin(ctx context.Context, code string) (*models.TokenRecord, error) {
	resp, err := c.get(ctx, "/callback?"+url.Values{"code": {code}}.Encode())
	if err != nil {
		return nil, fmt.Errorf("callback request failed: %w", err)
	}
	defer c.closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, c.relayError(resp)
	}

	var token models.TokenRecord
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxRelayBodyBytes)).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &token, nil
}

// FetchProfile reads the relayed profile for the current session.
func (c *Client) FetchProfile(ctx context.Context) (*models.Profile, error) {
	resp, err := c.get(ctx, "/user")
	if err != nil {
		return nil, fmt.Errorf("profile request failed: %w", err)
	}
	defer c.closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, c.relayError(resp)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRelayBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var profile models.Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}

	c.mu.Lock()
	c.profile, c.rawProfile = &profile, raw
	c.mu.Unlock()

	return &profile, nil
}

// Logout destroys the relay session and returns to StateAnonymous.
func (c *Client) Logout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/logout"), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	defer c.closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return c.relayError(resp)
	}

	if c.State() != StateAnonymous {
		c.fire(EventInitiate)
	}

	c.mu.Lock()
	c.profile, c.rawProfile = nil, nil
	c.mu.Unlock()

	return nil
}

func (c *Client) fire(event Event) {
	if _, err := c.machine.Fire(event); err != nil {
		c.logger.Warn("Unexpected login state transition", "error", err)
	}
}

func (c *Client) endpoint(path string) string {
	return c.relayURL.String() + path
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	return c.http.Do(req)
}

func (c *Client) relayError(resp *http.Response) error {
	relayErr := &RelayError{Status: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRelayBodyBytes))
	if err != nil || json.Unmarshal(body, relayErr) != nil || relayErr.Message == "" {
		relayErr.Message = http.StatusText(resp.StatusCode)
	}

	return relayErr
}

func (c *Client) closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		c.logger.Debug("error closing relay response body", "error", err)
	}
}

func codeFromRedirect(redirect string) (string, error) {
	parsed, err := url.Parse(redirect)
	if err != nil {
		return "", err
	}

	code := parsed.Query().Get("code")
	if code == "" {
		return "", ErrNoCode
	}
	return code, nil
}

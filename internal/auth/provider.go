package auth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"pkce-relay/internal/config"
	"pkce-relay/internal/metrics"
	"pkce-relay/internal/models"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

const (
	maxProfileBytes       = 1 << 20
	maxTokenResponseBytes = 1 << 20
)

// AzureProvider talks to the Microsoft identity platform: authorize redirect,
// token exchange and the Graph profile endpoint.
type AzureProvider struct {
	oauth2Config  *oauth2.Config
	responseMode  string
	profileURL    string
	tokenClient   *http.Client
	profileClient *http.Client
	idVerifier    *oidc.IDTokenVerifier
	logger        *slog.Logger
}

func NewAzureProvider(ctx context.Context, cfg config.ProviderConfig, logger *slog.Logger) (*AzureProvider, error) {
	p := &AzureProvider{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpointFor(cfg),
			Scopes:       cfg.Scopes,
			RedirectURL:  cfg.RedirectURI,
		},
		responseMode: cfg.ResponseMode,
		profileURL:   cfg.ProfileURL,
		tokenClient: &http.Client{
			Timeout:   cfg.HTTPTimeout,
			Transport: instrumentedTransport(metrics.ProviderOperationToken),
		},
		profileClient: &http.Client{
			Timeout:   cfg.HTTPTimeout,
			Transport: instrumentedTransport(metrics.ProviderOperationProfile),
		},
		logger: logger,
	}

	if cfg.VerifyIDToken {
		discoveryCtx := oidc.ClientContext(ctx, p.tokenClient)
		provider, err := oidc.NewProvider(discoveryCtx, cfg.IssuerURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
		}
		p.idVerifier = provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	}

	return p, nil
}

func endpointFor(cfg config.ProviderConfig) oauth2.Endpoint {
	var endpoint oauth2.Endpoint
	if cfg.AuthorityURL == config.DefaultProviderConfig.AuthorityURL {
		endpoint = microsoft.AzureADEndpoint(cfg.TenantID)
	} else {
		endpoint = oauth2.Endpoint{
			AuthURL:  fmt.Sprintf("%s/%s/oauth2/v2.0/authorize", cfg.AuthorityURL, cfg.TenantID),
			TokenURL: fmt.Sprintf("%s/%s/oauth2/v2.0/token", cfg.AuthorityURL, cfg.TenantID),
		}
	}

	// client credentials travel in the form body
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	return endpoint
}

func instrumentedTransport(operation string) http.RoundTripper {
	observer := metrics.ProviderRequestDuration.MustCurryWith(prometheus.Labels{"operation": operation})
	return promhttp.InstrumentRoundTripperDuration(observer, http.DefaultTransport)
}

func (p *AzureProvider) NewPKCEPair() models.PKCEPair {
	return NewPKCEPair()
}

// AuthCodeURL builds the authorize redirect for one login attempt.
func (p *AzureProvider) AuthCodeURL(pkce models.PKCEPair) string {
	return p.oauth2Config.AuthCodeURL("",
		oauth2.SetAuthURLParam("response_mode", p.responseMode),
		oauth2.SetAuthURLParam("code_challenge", pkce.Challenge),
		oauth2.SetAuthURLParam("code_challenge_method", pkce.Method),
	)
}

// Exchange trades the authorization code and verifier for tokens in a single
// request. Failures are not retried.
func (p *AzureProvider) Exchange(ctx context.Context, code, verifier string) (*models.TokenRecord, error) {
	capture := &responseCapture{base: p.tokenClient.Transport}
	clientCtx := context.WithValue(ctx, oauth2.HTTPClient, &http.Client{
		Timeout:   p.tokenClient.Timeout,
		Transport: capture,
	})

	token, err := p.oauth2Config.Exchange(clientCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		metrics.TokenExchanges.WithLabelValues(metrics.OutcomeFailure).Inc()
		return nil, newTokenExchangeError(fmt.Errorf("failed to exchange code for token: %w", err))
	}

	record := models.NewTokenRecord(token, capture.body)

	if p.idVerifier != nil {
		if record.IDToken == "" {
			metrics.TokenExchanges.WithLabelValues(metrics.OutcomeFailure).Inc()
			return nil, newTokenExchangeError(fmt.Errorf("no id_token found in token response"))
		}

		if _, err := p.idVerifier.Verify(oidc.ClientContext(ctx, p.tokenClient), record.IDToken); err != nil {
			metrics.TokenExchanges.WithLabelValues(metrics.OutcomeFailure).Inc()
			return nil, newTokenExchangeError(fmt.Errorf("failed to verify ID Token: %w", err))
		}
	}

	metrics.TokenExchanges.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return record, nil
}

// FetchProfile calls the profile endpoint with the stored access token and
// returns the body untouched. The token is never refreshed.
func (p *AzureProvider) FetchProfile(ctx context.Context, token *models.TokenRecord) ([]byte, error) {
	client := &http.Client{
		Timeout: p.profileClient.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(token.OAuth2Token()),
			Base:   p.profileClient.Transport,
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return nil, newProfileFetchError(fmt.Errorf("failed to build profile request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		metrics.ProfileFetches.WithLabelValues(metrics.OutcomeFailure).Inc()
		return nil, newProfileFetchError(fmt.Errorf("profile request failed: %w", err))
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			p.logger.Debug("error closing profile response body", "error", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBytes+1))
	if err != nil {
		metrics.ProfileFetches.WithLabelValues(metrics.OutcomeFailure).Inc()
		return nil, newProfileFetchError(fmt.Errorf("failed to read profile response: %w", err))
	}
	if len(body) > maxProfileBytes {
		metrics.ProfileFetches.WithLabelValues(metrics.OutcomeFailure).Inc()
		return nil, newProfileFetchError(fmt.Errorf("profile response exceeds %d bytes", maxProfileBytes))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ProfileFetches.WithLabelValues(metrics.OutcomeFailure).Inc()
		return nil, newProfileFetchError(fmt.Errorf("profile endpoint returned status %d", resp.StatusCode))
	}

	metrics.ProfileFetches.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return body, nil
}

// responseCapture keeps a copy of the last successful response body while
// handing an identical body on to the caller.
type responseCapture struct {
	base http.RoundTripper
	body []byte
}

func (c *responseCapture) RoundTrip(req *http.Request) (*http.Response, error) {
	base := c.base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseBytes))
	closeErr := resp.Body.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, closeErr
	}

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		c.body = body
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"pkce-relay/internal/auth"
	"pkce-relay/internal/models"
	"pkce-relay/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestGetCallbackHandler_ShouldExchangeCodeAndReturnToken(t *testing.T) {
	tc := testutil.NewTestContext(t, "GET", "/callback?code=authcode")

	token := &models.TokenRecord{
		AccessToken: "access",
		TokenType:   "Bearer",
		ExpiresIn:   3599,
		Scope:       "openid profile email",
	}

	tc.MockSession.EXPECT().GetCodeVerifier(tc.AppContext).Return("verifier").Times(1)
	tc.MockOAuth.EXPECT().Exchange(tc.AppContext, "authcode", "verifier").Return(token, nil).Times(1)
	tc.MockSession.EXPECT().ClearCodeVerifier(tc.AppContext).Times(1)
	tc.MockSession.EXPECT().SetToken(tc.AppContext, token).Return(nil).Times(1)

	tc.CallHandler(GETCallbackHandler)

	tc.AssertStatus(t, http.StatusOK)
	tc.AssertContentType(t, "application/json")
	tc.AssertJSONField(t, "access_token", "access")
	tc.AssertJSONField(t, "token_type", "Bearer")
	tc.AssertJSONField(t, "expires_in", float64(3599))
	tc.AssertLogsContainMessage(t, slog.LevelInfo, "Authorization code exchanged")
}

func TestGetCallbackHandler_ShouldReturnProviderResponseUnchanged(t *testing.T) {
	tc := testutil.NewTestContext(t, "GET", "/callback?code=authcode")

	raw := []byte(`{"token_type":"Bearer","expires_in":3599,"ext_expires_in":3599,"access_token":"access"}`)
	token := &models.TokenRecord{AccessToken: "access", TokenType: "Bearer", ExpiresIn: 3599, Raw: raw}

	tc.MockSession.EXPECT().GetCodeVerifier(tc.AppContext).Return("verifier")
	tc.MockOAuth.EXPECT().Exchange(tc.AppContext, "authcode", "verifier").Return(token, nil)
	tc.MockSession.EXPECT().ClearCodeVerifier(tc.AppContext)
	tc.MockSession.EXPECT().SetToken(tc.AppContext, token).Return(nil)

	tc.CallHandler(GETCallbackHandler)

	tc.AssertStatus(t, http.StatusOK)
	tc.AssertContentType(t, "application/json")
	assert.Equal(t, raw, tc.Response.Body.Bytes())
	tc.AssertJSONField(t, "ext_expires_in", float64(3599))
}

func TestGetCallbackHandler_ShouldRejectMissingCode(t *testing.T) {
	tc := testutil.NewTestContext(t, "GET", "/callback")

	tc.MockSession.EXPECT().GetCodeVerifier(tc.AppContext).Return("verifier").Times(1)

	tc.CallHandler(GETCallbackHandler)

	tc.AssertStatus(t, http.StatusBadRequest)
	tc.AssertContentType(t, "application/json")
	tc.AssertJSONField(t, "error", "Invalid request")
	_, hasDetails := tc.GetJSONResponse(t)["details"]
	assert.False(t, hasDetails)
}

func TestGetCallbackHandler_ShouldRejectMissingVerifier(t *testing.T) {
	tc := testutil.NewTestContext(t, "GET", "/callback?code=authcode")

	tc.MockSession.EXPECT().GetCodeVerifier(tc.AppContext).Return("").Times(1)
	tc.MockOAuth.EXPECT().Exchange(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	tc.CallHandler(GETCallbackHandler)

	tc.AssertStatus(t, http.StatusBadRequest)
	tc.AssertJSONField(t, "error", "Invalid request")
	tc.AssertLogsContainMessage(t, slog.LevelWarn, "Callback without code or pending verifier")
}

func TestGetCallbackHandler_ShouldRelayProviderErrorDetails(t *testing.T) {
	tc := testutil.NewTestContext(t, "GET", "/callback?code=expired")

	exchangeErr := &auth.RelayError{
		Kind: auth.KindTokenExchangeFailed,
		Details: map[string]any{
			"error":             "invalid_grant",
			"error_description": "AADSTS70008: The provided authorization code has expired.",
		},
		Err: errors.New("oauth2: cannot fetch token"),
	}

	tc.MockSession.EXPECT().GetCodeVerifier(tc.AppContext).Return("verifier").Times(1)
	tc.MockOAuth.EXPECT().Exchange(tc.AppContext, "expired", "verifier").Return(nil, exchangeErr).Times(1)
	tc.MockSession.EXPECT().ClearCodeVerifier(gomock.Any()).Times(0)
	tc.MockSession.EXPECT().SetToken(gomock.Any(), gomock.Any()).Times(0)

	tc.CallHandler(GETCallbackHandler)

	tc.AssertStatus(t, http.StatusInternalServerError)
	tc.AssertJSONField(t, "error", "Token exchange failed")

	details, ok := tc.GetJSONResponse(t)["details"].(map[string]any)
	require.True(t, ok, "details should be a JSON object")
	assert.Equal(t, "invalid_grant", details["error"])
	tc.AssertLogsContainMessage(t, slog.LevelError, "Failed to exchange authorization code")
}

func TestGetCallbackHandler_ShouldRelayRawTextDetails(t *testing.T) {
	tc := testutil.NewTestContext(t, "GET", "/callback?code=authcode")

	exchangeErr := &auth.RelayError{
		Kind:    auth.KindTokenExchangeFailed,
		Details: "upstream exploded",
		Err:     errors.New("oauth2: cannot fetch token"),
	}

	tc.MockSession.EXPECT().GetCodeVerifier(tc.AppContext).Return("verifier")
	tc.MockOAuth.EXPECT().Exchange(tc.AppContext, "authcode", "verifier").Return(nil, exchangeErr)

	tc.CallHandler(GETCallbackHandler)

	tc.AssertStatus(t, http.StatusInternalServerError)
	tc.AssertJSONField(t, "details", "upstream exploded")
}

func TestGetCallbackHandler_ShouldFailWhenTokenCannotBeStored(t *testing.T) {
	tc := testutil.NewTestContext(t, "GET", "/callback?code=authcode")

	token := &models.TokenRecord{AccessToken: "access", TokenType: "Bearer"}

	tc.MockSession.EXPECT().GetCodeVerifier(tc.AppContext).Return("verifier")
	tc.MockOAuth.EXPECT().Exchange(tc.AppContext, "authcode", "verifier").Return(token, nil)
	tc.MockSession.EXPECT().ClearCodeVerifier(tc.AppContext)
	tc.MockSession.EXPECT().SetToken(tc.AppContext, token).Return(errors.New("renew failed"))

	tc.CallHandler(GETCallbackHandler)

	tc.AssertStatus(t, http.StatusInternalServerError)
	tc.AssertJSONField(t, "error", "Internal Server Error")
	tc.AssertLogsContainMessage(t, slog.LevelError, "Failed to store token in session")
}

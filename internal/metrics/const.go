package metrics

const Namespace = "pkce_relay"

const (
	ProviderOperationToken   = "token"
	ProviderOperationProfile = "profile"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

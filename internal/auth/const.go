package auth

type SessionKey string

const (
	SessionKeyCodeVerifier SessionKey = "oauth_code_verifier"
	SessionKeyTokenRecord  SessionKey = "token_record"
)

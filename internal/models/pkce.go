package models

// PKCEPair is a code verifier and its S256 challenge for one login attempt.
type PKCEPair struct {
	Verifier  string
	Challenge string
	Method    string
}

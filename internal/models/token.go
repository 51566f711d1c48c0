package models

import (
	"encoding/json"

	"golang.org/x/oauth2"
)

// TokenRecord is the token endpoint response kept in the session. Raw holds
// the provider's response body byte for byte; the parsed fields are only
// what the relay itself reads. The relay never inspects ExpiresIn or uses
// RefreshToken.
type TokenRecord struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	Raw          []byte `json:"raw,omitempty"`
}

// NewTokenRecord copies the fields of an exchanged token and keeps raw, the
// response body it was parsed from, when that body is a JSON document.
func NewTokenRecord(token *oauth2.Token, raw []byte) *TokenRecord {
	if token == nil {
		return nil
	}

	record := &TokenRecord{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    token.ExpiresIn,
	}

	if scope, ok := token.Extra("scope").(string); ok {
		record.Scope = scope
	}

	if idToken, ok := token.Extra("id_token").(string); ok {
		record.IDToken = idToken
	}

	if len(raw) > 0 && json.Valid(raw) {
		record.Raw = append([]byte(nil), raw...)
	}

	return record
}

// ResponseBody is the document handed back to the caller: the provider's
// response as received, or the parsed fields when no raw body was kept.
func (t *TokenRecord) ResponseBody() ([]byte, error) {
	if len(t.Raw) > 0 {
		return t.Raw, nil
	}

	return json.Marshal(t)
}

// OAuth2Token returns a token suitable for a static bearer token source.
func (t *TokenRecord) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken: t.AccessToken,
		TokenType:   t.TokenType,
	}
}

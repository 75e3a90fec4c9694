package pje

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/SinesysTech/captura/tribunal"
)

// Claim names vary across provider versions; candidates are tried in order,
// first match wins.
var (
	subjectClaims  = []string{"sub", "preferred_username", "username"}
	nameClaims     = []string{"name", "given_name", "nome"}
	documentClaims = []string{"cpf", "documento", "document"}
)

// decodeIdentity extracts the stable subject from the session artifact.
// The token is self-issued by the provider to the session that just logged
// in, so no signature verification is needed, only the claims.
func decodeIdentity(artifact string) (*tribunal.Identity, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(artifact, claims); err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}

	id := &tribunal.Identity{}
	if v, ok := firstClaimString(claims, subjectClaims); ok {
		id.Subject = v
	}
	if id.Subject == "" {
		return nil, fmt.Errorf("session token carries no subject claim")
	}
	if v, ok := firstClaimString(claims, nameClaims); ok {
		id.Name = v
	}
	if v, ok := firstClaimString(claims, documentClaims); ok {
		id.Document = v
	}
	return id, nil
}

func firstClaimString(claims jwt.MapClaims, keys []string) (string, bool) {
	for _, k := range keys {
		if v, ok := claims[k].(string); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

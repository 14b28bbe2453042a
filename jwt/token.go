// Package jwtkit decodes Web eID authentication tokens (JWS compact
// serialization) and verifies their signatures.
package jwtkit

import (
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformed is returned when the token cannot be decoded or lacks
	// required claims.
	ErrMalformed = errors.New("malformed token")
	// ErrUnsupportedAlgorithm is returned when the header alg is not allowed.
	ErrUnsupportedAlgorithm = errors.New("unsupported signature algorithm")
	// ErrSignatureInvalid is returned when the signature does not verify.
	ErrSignatureInvalid = errors.New("token signature is invalid")
)

// MaxTokenSize bounds the raw token length. Tokens carry the full user
// certificate so they are a few kilobytes; anything much larger is rejected
// before decoding.
const MaxTokenSize = 16 * 1024

// Algorithms lists the accepted JWS algorithms.
var Algorithms = []string{
	"RS256", "RS384", "RS512",
	"PS256", "PS384", "PS512",
	"ES256", "ES384", "ES512",
}

// Claims are the payload claims of an authentication token.
type Claims struct {
	Nonce string `json:"nonce"`
	jwt.RegisteredClaims
}

// Token is a decoded but unverified authentication token.
type Token struct {
	Raw       string
	Header    map[string]any
	Algorithm string
	Claims    *Claims
	// SigningInput is the exact byte range covered by Signature.
	SigningInput []byte
	Signature    []byte
}

// Origin returns the origin asserted by the token (the first audience entry).
func (t *Token) Origin() string {
	return t.Claims.Audience[0]
}

// Parse decodes raw without verifying its signature. The header alg must be
// one of Algorithms and the nonce and aud claims must be present.
func Parse(raw string) (*Token, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", ErrMalformed)
	}
	if len(raw) > MaxTokenSize {
		return nil, fmt.Errorf("%w: token exceeds %d bytes", ErrMalformed, MaxTokenSize)
	}
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformed, len(parts))
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: signature segment: %v", ErrMalformed, err)
	}
	if len(sig) == 0 {
		return nil, fmt.Errorf("%w: empty signature", ErrMalformed)
	}

	claims := &Claims{}
	tok, _, err := jwt.NewParser().ParseUnverified(raw, claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	alg, _ := tok.Header["alg"].(string)
	if !slices.Contains(Algorithms, alg) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}
	if claims.Nonce == "" {
		return nil, fmt.Errorf("%w: nonce claim missing", ErrMalformed)
	}
	if len(claims.Audience) == 0 || claims.Audience[0] == "" {
		return nil, fmt.Errorf("%w: aud claim missing", ErrMalformed)
	}

	return &Token{
		Raw:          raw,
		Header:       tok.Header,
		Algorithm:    alg,
		Claims:       claims,
		SigningInput: []byte(parts[0] + "." + parts[1]),
		Signature:    sig,
	}, nil
}

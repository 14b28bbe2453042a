package testing

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// TokenOptions controls the token minted by Card.CreateToken.
type TokenOptions struct {
	Origin        string
	Nonce         string
	ExtraAudience []string
	// IssuedAt defaults to now; ExpiresAt defaults to IssuedAt plus five minutes.
	IssuedAt  time.Time
	ExpiresAt time.Time
	NotBefore time.Time
	// Chain is appended after the card certificate in the x5c header.
	Chain []*x509.Certificate
	// Header entries override the generated header; nil values delete the key.
	Header map[string]any
	// SignedBy signs the token with another card's key while keeping this
	// card's certificate in x5c.
	SignedBy *Card
}

// X5C encodes certificates the way the x5c header carries them.
func X5C(certs ...*x509.Certificate) []string {
	out := make([]string, 0, len(certs))
	for _, c := range certs {
		out = append(out, base64.StdEncoding.EncodeToString(c.Raw))
	}
	return out
}

// CreateToken mints a signed authentication token carrying the card certificate.
func (c *Card) CreateToken(opts TokenOptions) string {
	iat := opts.IssuedAt
	if iat.IsZero() {
		iat = time.Now()
	}
	exp := opts.ExpiresAt
	if exp.IsZero() {
		exp = iat.Add(5 * time.Minute)
	}

	aud := append([]string{opts.Origin}, opts.ExtraAudience...)
	claims := jwt.MapClaims{
		"nonce": opts.Nonce,
		"aud":   aud,
		"iat":   iat.Unix(),
		"exp":   exp.Unix(),
	}
	if !opts.NotBefore.IsZero() {
		claims["nbf"] = opts.NotBefore.Unix()
	}

	signer := c
	if opts.SignedBy != nil {
		signer = opts.SignedBy
	}

	var method jwt.SigningMethod
	switch k := signer.Key.(type) {
	case *rsa.PrivateKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PrivateKey:
		switch k.Curve.Params().BitSize {
		case 256:
			method = jwt.SigningMethodES256
		case 521:
			method = jwt.SigningMethodES512
		default:
			method = jwt.SigningMethodES384
		}
	default:
		panic("unsupported card key type")
	}

	token := jwt.NewWithClaims(method, claims)
	token.Header["x5c"] = X5C(append([]*x509.Certificate{c.Certificate}, opts.Chain...)...)
	for k, v := range opts.Header {
		if v == nil {
			delete(token.Header, k)
			continue
		}
		token.Header[k] = v
	}

	s, err := token.SignedString(signer.Key)
	if err != nil {
		panic("failed to sign token: " + err.Error())
	}
	return s
}

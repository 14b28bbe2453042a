package jwtkit_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwtkit "github.com/PaulFidika/webeid/jwt"
)

func signES384(t *testing.T, key *ecdsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodES384, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func newECKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	k, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)
	return k
}

func validClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"nonce": "12345678123456781234567812345678912356789123",
		"aud":   []string{"https://ria.ee", "urn:cert:sha-256:6f0df244e4a856b94b3b3b47582a0a51a32d674dbc7107211ed23d4bec6d9c72"},
		"iat":   now.Unix(),
		"exp":   now.Add(5 * time.Minute).Unix(),
	}
}

func TestParse_Valid(t *testing.T) {
	key := newECKey(t)
	raw := signES384(t, key, validClaims())

	tok, err := jwtkit.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "ES384", tok.Algorithm)
	assert.Equal(t, "https://ria.ee", tok.Origin())
	assert.Len(t, tok.Claims.Audience, 2)
	assert.Equal(t, "12345678123456781234567812345678912356789123", tok.Claims.Nonce)
	require.NotNil(t, tok.Claims.IssuedAt)
	require.NotNil(t, tok.Claims.ExpiresAt)
	assert.Nil(t, tok.Claims.NotBefore)
	assert.Equal(t, raw[:strings.LastIndex(raw, ".")], string(tok.SigningInput))
	assert.Len(t, tok.Signature, 96)
}

func TestParse_Malformed(t *testing.T) {
	key := newECKey(t)

	noNonce := validClaims()
	delete(noNonce, "nonce")
	noAud := validClaims()
	delete(noAud, "aud")
	numericNonce := validClaims()
	numericNonce["nonce"] = 42

	cases := map[string]string{
		"empty":          "",
		"one segment":    "abc",
		"four segments":  "a.b.c.d",
		"bad header":     "!!!.e30.c2ln",
		"empty sig":      strings.TrimRight(signES384(t, key, validClaims()), "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_"),
		"missing nonce":  signES384(t, key, noNonce),
		"missing aud":    signES384(t, key, noAud),
		"numeric nonce":  signES384(t, key, numericNonce),
		"oversized":      strings.Repeat("a", jwtkit.MaxTokenSize+1),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := jwtkit.Parse(raw)
			require.ErrorIs(t, err, jwtkit.ErrMalformed)
		})
	}
}

func TestParse_UnsupportedAlgorithm(t *testing.T) {
	hs, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims()).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = jwtkit.Parse(hs)
	require.ErrorIs(t, err, jwtkit.ErrUnsupportedAlgorithm)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims()).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = jwtkit.Parse(none + "c2ln")
	require.ErrorIs(t, err, jwtkit.ErrUnsupportedAlgorithm)
}

func TestVerify(t *testing.T) {
	key := newECKey(t)
	raw := signES384(t, key, validClaims())
	tok, err := jwtkit.Parse(raw)
	require.NoError(t, err)

	require.NoError(t, jwtkit.Verify(tok, &key.PublicKey))

	other := newECKey(t)
	require.ErrorIs(t, jwtkit.Verify(tok, &other.PublicKey), jwtkit.ErrSignatureInvalid)
	require.ErrorIs(t, jwtkit.Verify(tok, nil), jwtkit.ErrSignatureInvalid)

	rk, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	require.ErrorIs(t, jwtkit.Verify(tok, &rk.PublicKey), jwtkit.ErrSignatureInvalid)
}

func TestVerify_RSA(t *testing.T) {
	rk, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	for _, m := range []jwt.SigningMethod{jwt.SigningMethodRS256, jwt.SigningMethodPS512} {
		raw, err := jwt.NewWithClaims(m, validClaims()).SignedString(rk)
		require.NoError(t, err)
		tok, err := jwtkit.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, m.Alg(), tok.Algorithm)
		require.NoError(t, jwtkit.Verify(tok, &rk.PublicKey))
	}
}

func TestVerify_TamperedPayload(t *testing.T) {
	key := newECKey(t)
	raw := signES384(t, key, validClaims())
	other := signES384(t, key, jwt.MapClaims{"nonce": "other", "aud": []string{"https://evil.example"}})

	parts := strings.Split(raw, ".")
	otherParts := strings.Split(other, ".")
	spliced := parts[0] + "." + otherParts[1] + "." + parts[2]

	tok, err := jwtkit.Parse(spliced)
	require.NoError(t, err)
	require.ErrorIs(t, jwtkit.Verify(tok, &key.PublicKey), jwtkit.ErrSignatureInvalid)
}

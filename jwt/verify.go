package jwtkit

import (
	"crypto"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
)

// Verify checks the token signature with key using the header algorithm.
func Verify(t *Token, key crypto.PublicKey) error {
	if key == nil {
		return fmt.Errorf("%w: no public key", ErrSignatureInvalid)
	}
	if _, err := jws.Verify([]byte(t.Raw), jws.WithKey(jwa.SignatureAlgorithm(t.Algorithm), key)); err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return nil
}

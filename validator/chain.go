package validator

import (
	"crypto/x509"
	"encoding/base64"
	"fmt"
)

// HeaderX5C is the token header carrying the certificate chain.
const HeaderX5C = "x5c"

// CertificateChain is a leaf-first list of certificates. It is never empty.
type CertificateChain []*x509.Certificate

// Leaf returns the end-entity certificate.
func (c CertificateChain) Leaf() *x509.Certificate { return c[0] }

// Intermediates returns the certificates following the leaf.
func (c CertificateChain) Intermediates() []*x509.Certificate { return c[1:] }

// ExtractChain decodes the x5c entry of a token header. Each malformed
// shape yields its own Kind and decoding stops at the first bad element.
func ExtractChain(header map[string]any) (CertificateChain, error) {
	raw, ok := header[HeaderX5C]
	if !ok || raw == nil {
		return nil, newError(X5cFieldMissing, StepExtractCertChain, "x5c field must be present", nil)
	}

	var elems []any
	switch v := raw.(type) {
	case []any:
		elems = v
	case []string:
		elems = make([]any, len(v))
		for i, s := range v {
			elems[i] = s
		}
	default:
		return nil, newError(X5cNotArray, StepExtractCertChain,
			fmt.Sprintf("x5c field in authentication token header must be an array, got %T", raw), nil)
	}
	if len(elems) == 0 {
		return nil, newError(X5cEmpty, StepExtractCertChain, "x5c field must not be empty", nil)
	}

	chain := make(CertificateChain, 0, len(elems))
	for i, el := range elems {
		s, ok := el.(string)
		if !ok {
			return nil, newError(X5cElementNotString, StepExtractCertChain,
				fmt.Sprintf("x5c field must be an array of strings, element %d is %T", i, el), nil)
		}
		der, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, newError(X5cInvalidCertificate, StepExtractCertChain,
				fmt.Sprintf("x5c element %d is not valid base64", i), err)
		}
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, newError(X5cInvalidCertificate, StepExtractCertChain,
				fmt.Sprintf("x5c element %d must contain a valid certificate", i), err)
		}
		chain = append(chain, cert)
	}
	return chain, nil
}

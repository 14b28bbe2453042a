package validator

import (
	"crypto/x509"
	"fmt"
	"time"
)

// TrustVerifier builds a path from the chain to one of the trusted CAs.
// It returns the verified path, leaf first and trust anchor last.
type TrustVerifier interface {
	VerifyChain(chain CertificateChain, trustedCAs []*x509.Certificate, now time.Time) ([]*x509.Certificate, error)
}

// X509TrustVerifier verifies paths with crypto/x509.
type X509TrustVerifier struct{}

func (X509TrustVerifier) VerifyChain(chain CertificateChain, trustedCAs []*x509.Certificate, now time.Time) ([]*x509.Certificate, error) {
	roots := x509.NewCertPool()
	for _, ca := range trustedCAs {
		roots.AddCert(ca)
	}
	intermediates := x509.NewCertPool()
	for _, c := range chain.Intermediates() {
		intermediates.AddCert(c)
	}
	paths, err := chain.Leaf().Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		CurrentTime:   now,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	})
	if err != nil {
		return nil, err
	}
	return paths[0], nil
}

// checkValidityPeriod rejects chains with a certificate outside its
// validity period at now.
func checkValidityPeriod(chain CertificateChain, now time.Time) error {
	for i, c := range chain {
		if now.Before(c.NotBefore) {
			return newError(CertificateNotYetValid, StepValidateChainOfTrust,
				fmt.Sprintf("certificate %d (%s) is valid from %s", i, c.Subject.CommonName, c.NotBefore.UTC().Format(time.RFC3339)), nil)
		}
		if now.After(c.NotAfter) {
			return newError(CertificateExpired, StepValidateChainOfTrust,
				fmt.Sprintf("certificate %d (%s) expired at %s", i, c.Subject.CommonName, c.NotAfter.UTC().Format(time.RFC3339)), nil)
		}
	}
	return nil
}

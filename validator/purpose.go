package validator

import (
	"crypto/x509"
	"slices"
)

// CheckPurpose requires the TLS client authentication extended key usage
// on the user certificate. It inspects attributes only.
func CheckPurpose(cert *x509.Certificate) error {
	if len(cert.ExtKeyUsage) == 0 && len(cert.UnknownExtKeyUsage) == 0 {
		return newError(CertificateMissingPurpose, StepValidatePurpose,
			"user certificate has no extended key usage", nil)
	}
	if !slices.Contains(cert.ExtKeyUsage, x509.ExtKeyUsageClientAuth) {
		return newError(CertificateWrongPurpose, StepValidatePurpose,
			"user certificate is not meant for client authentication", nil)
	}
	return nil
}

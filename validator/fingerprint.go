package validator

import (
	"crypto/subtle"
	"strings"
)

// FingerprintPrefix marks the audience entry carrying the site certificate
// SHA-256 fingerprint.
const FingerprintPrefix = "urn:cert:sha-256:"

func normalizeFingerprint(fp string) string {
	fp = strings.TrimSpace(fp)
	if len(fp) >= len(FingerprintPrefix) && strings.EqualFold(fp[:len(FingerprintPrefix)], FingerprintPrefix) {
		fp = fp[len(FingerprintPrefix):]
	}
	return strings.ToLower(strings.ReplaceAll(fp, ":", ""))
}

// tokenFingerprint returns the fingerprint audience entry, if any.
func tokenFingerprint(aud []string) (string, bool) {
	for _, a := range aud {
		if len(a) > len(FingerprintPrefix) && strings.EqualFold(a[:len(FingerprintPrefix)], FingerprintPrefix) {
			return a, true
		}
	}
	return "", false
}

func checkFingerprint(aud []string, expected string) error {
	got, ok := tokenFingerprint(aud)
	if !ok {
		return newError(FingerprintMismatch, StepCheckFingerprint, "token carries no site certificate fingerprint", nil)
	}
	if subtle.ConstantTimeCompare([]byte(normalizeFingerprint(got)), []byte(normalizeFingerprint(expected))) != 1 {
		return newError(FingerprintMismatch, StepCheckFingerprint, "site certificate fingerprint does not match", nil)
	}
	return nil
}

package validator

import (
	"errors"
	"strings"
)

// Kind identifies why a configuration or token was rejected.
type Kind int

const (
	KindUnknown Kind = iota

	// Configuration.
	InvalidOrigin
	MissingNonceStore
	NoTrustedCAs
	InvalidDuration
	MissingFingerprint

	// Token parsing.
	TokenMalformed
	X5cFieldMissing
	X5cNotArray
	X5cEmpty
	X5cElementNotString
	X5cInvalidCertificate

	// Certificate semantics.
	CertificateMissingPurpose
	CertificateWrongPurpose
	CertificateExpired
	CertificateNotYetValid
	ChainOfTrustFailed
	CertificateRevoked

	// Freshness.
	NonceNotFoundOrExpired
	NonceExpired
	TokenExpired
	ClockSkewExceeded

	// Binding.
	SignatureInvalid
	OriginMismatch
	FingerprintMismatch

	// Infrastructure.
	RevocationCheckFailed
	NonceStoreFailed
)

var kindNames = map[Kind]string{
	KindUnknown:               "unknown",
	InvalidOrigin:             "invalid_origin",
	MissingNonceStore:         "missing_nonce_store",
	NoTrustedCAs:              "no_trusted_cas",
	InvalidDuration:           "invalid_duration",
	MissingFingerprint:        "missing_fingerprint",
	TokenMalformed:            "token_malformed",
	X5cFieldMissing:           "x5c_field_missing",
	X5cNotArray:               "x5c_not_array",
	X5cEmpty:                  "x5c_empty",
	X5cElementNotString:       "x5c_element_not_string",
	X5cInvalidCertificate:     "x5c_invalid_certificate",
	CertificateMissingPurpose: "certificate_missing_purpose",
	CertificateWrongPurpose:   "certificate_wrong_purpose",
	CertificateExpired:        "certificate_expired",
	CertificateNotYetValid:    "certificate_not_yet_valid",
	ChainOfTrustFailed:        "chain_of_trust_failed",
	CertificateRevoked:        "certificate_revoked",
	NonceNotFoundOrExpired:    "nonce_not_found_or_expired",
	NonceExpired:              "nonce_expired",
	TokenExpired:              "token_expired",
	ClockSkewExceeded:         "clock_skew_exceeded",
	SignatureInvalid:          "signature_invalid",
	OriginMismatch:            "origin_mismatch",
	FingerprintMismatch:       "fingerprint_mismatch",
	RevocationCheckFailed:     "revocation_check_failed",
	NonceStoreFailed:          "nonce_store_failed",
}

// String returns the stable snake_case name of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[KindUnknown]
}

// Category groups kinds by who is at fault.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryConfiguration
	CategoryParse
	CategoryCertificate
	CategoryFreshness
	CategoryBinding
	CategoryInfrastructure
)

func (c Category) String() string {
	switch c {
	case CategoryConfiguration:
		return "configuration"
	case CategoryParse:
		return "parse"
	case CategoryCertificate:
		return "certificate"
	case CategoryFreshness:
		return "freshness"
	case CategoryBinding:
		return "binding"
	case CategoryInfrastructure:
		return "infrastructure"
	default:
		return "unknown"
	}
}

// Category returns the group the kind belongs to.
func (k Kind) Category() Category {
	switch {
	case k >= InvalidOrigin && k <= MissingFingerprint:
		return CategoryConfiguration
	case k >= TokenMalformed && k <= X5cInvalidCertificate:
		return CategoryParse
	case k >= CertificateMissingPurpose && k <= CertificateRevoked:
		return CategoryCertificate
	case k >= NonceNotFoundOrExpired && k <= ClockSkewExceeded:
		return CategoryFreshness
	case k >= SignatureInvalid && k <= FingerprintMismatch:
		return CategoryBinding
	case k == RevocationCheckFailed || k == NonceStoreFailed:
		return CategoryInfrastructure
	default:
		return CategoryUnknown
	}
}

// Step is a stage of token validation.
type Step int

const (
	StepNone Step = iota
	StepConfig
	StepParseToken
	StepExtractCertChain
	StepValidatePurpose
	StepValidateChainOfTrust
	StepVerifySignature
	StepCheckNonce
	StepCheckTimeValidity
	StepCheckOrigin
	StepCheckFingerprint
	StepCheckRevocation
)

var stepNames = [...]string{
	StepNone:                 "none",
	StepConfig:               "config",
	StepParseToken:           "parse_token",
	StepExtractCertChain:     "extract_cert_chain",
	StepValidatePurpose:      "validate_purpose",
	StepValidateChainOfTrust: "validate_chain_of_trust",
	StepVerifySignature:      "verify_signature",
	StepCheckNonce:           "check_nonce",
	StepCheckTimeValidity:    "check_time_validity",
	StepCheckOrigin:          "check_origin",
	StepCheckFingerprint:     "check_fingerprint",
	StepCheckRevocation:      "check_revocation",
}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return stepNames[StepNone]
	}
	return stepNames[s]
}

// Error is returned for every rejected configuration or token.
// Detail is meant for logs and may describe certificate contents; show
// end users only the Kind.
type Error struct {
	Kind   Kind
	Step   Step
	Field  string // set for InvalidDuration
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind Kind, step Step, detail string, err error) *Error {
	return &Error{Kind: kind, Step: step, Detail: detail, Err: err}
}

// Sentinels for errors.Is.
var (
	ErrInvalidOrigin             = &Error{Kind: InvalidOrigin}
	ErrMissingNonceStore         = &Error{Kind: MissingNonceStore}
	ErrNoTrustedCAs              = &Error{Kind: NoTrustedCAs}
	ErrInvalidDuration           = &Error{Kind: InvalidDuration}
	ErrMissingFingerprint        = &Error{Kind: MissingFingerprint}
	ErrTokenMalformed            = &Error{Kind: TokenMalformed}
	ErrX5cFieldMissing           = &Error{Kind: X5cFieldMissing}
	ErrX5cNotArray               = &Error{Kind: X5cNotArray}
	ErrX5cEmpty                  = &Error{Kind: X5cEmpty}
	ErrX5cElementNotString       = &Error{Kind: X5cElementNotString}
	ErrX5cInvalidCertificate     = &Error{Kind: X5cInvalidCertificate}
	ErrCertificateMissingPurpose = &Error{Kind: CertificateMissingPurpose}
	ErrCertificateWrongPurpose   = &Error{Kind: CertificateWrongPurpose}
	ErrCertificateExpired        = &Error{Kind: CertificateExpired}
	ErrCertificateNotYetValid    = &Error{Kind: CertificateNotYetValid}
	ErrChainOfTrustFailed        = &Error{Kind: ChainOfTrustFailed}
	ErrCertificateRevoked        = &Error{Kind: CertificateRevoked}
	ErrNonceNotFoundOrExpired    = &Error{Kind: NonceNotFoundOrExpired}
	ErrNonceExpired              = &Error{Kind: NonceExpired}
	ErrTokenExpired              = &Error{Kind: TokenExpired}
	ErrClockSkewExceeded         = &Error{Kind: ClockSkewExceeded}
	ErrSignatureInvalid          = &Error{Kind: SignatureInvalid}
	ErrOriginMismatch            = &Error{Kind: OriginMismatch}
	ErrFingerprintMismatch       = &Error{Kind: FingerprintMismatch}
	ErrRevocationCheckFailed     = &Error{Kind: RevocationCheckFailed}
	ErrNonceStoreFailed          = &Error{Kind: NonceStoreFailed}
)

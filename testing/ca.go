// Package testing provides utilities for testing applications that validate
// Web eID authentication tokens. It creates throwaway certificate authorities,
// user certificates with a chosen purpose, signed tokens and an OCSP
// responder, so tests run without real ID cards or CA infrastructure.
//
// Example usage:
//
//	ca := testing.NewTestCA("Test eID Root CA")
//	card := ca.IssueCard(testing.CardOptions{GivenName: "JAAK-KRISTJAN", Surname: "JÕEORG"})
//	token := card.CreateToken(testing.TokenOptions{Origin: "https://ria.ee", Nonce: nonce})
package testing

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"time"
)

var (
	oidGivenName = asn1.ObjectIdentifier{2, 5, 4, 42}
	oidSurname   = asn1.ObjectIdentifier{2, 5, 4, 4}
)

// TestCA is a certificate authority that lives only for the duration of a test.
type TestCA struct {
	Certificate *x509.Certificate
	Key         *ecdsa.PrivateKey
}

// Purpose selects the extended key usage written into a card certificate.
type Purpose int

const (
	// PurposeAuthentication marks the certificate for TLS client authentication.
	PurposeAuthentication Purpose = iota
	// PurposeNone omits the extended key usage extension.
	PurposeNone
	// PurposeSigning marks the certificate for e-mail protection only, as
	// digital signature certificates on ID cards are.
	PurposeSigning
)

// CardOptions describes the user certificate on a test card. Zero values
// get realistic defaults.
type CardOptions struct {
	GivenName    string
	Surname      string
	IdentityCode string
	Country      string
	Purpose      Purpose
	NotBefore    time.Time
	NotAfter     time.Time
	OCSPServer   []string
	// RSA issues an RSA-2048 key instead of the default ECDSA P-384.
	RSA bool
}

// Card is a user certificate with its private key.
type Card struct {
	Certificate *x509.Certificate
	Key         crypto.Signer
}

// NewTestCA creates a self-signed root CA.
func NewTestCA(commonName string) *TestCA {
	key := mustECKey()
	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber:          mustSerial(),
		Subject:               pkix.Name{CommonName: commonName, Organization: []string{"Test Certification Centre"}, Country: []string{"EE"}},
		NotBefore:             now.Add(-24 * time.Hour),
		NotAfter:              now.AddDate(10, 0, 0),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	return &TestCA{Certificate: mustCreate(tmpl, tmpl, key.Public(), key), Key: key}
}

// NewIntermediate creates a CA certificate issued by ca.
func (ca *TestCA) NewIntermediate(commonName string) *TestCA {
	key := mustECKey()
	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber:          mustSerial(),
		Subject:               pkix.Name{CommonName: commonName, Organization: []string{"Test Certification Centre"}, Country: []string{"EE"}},
		NotBefore:             now.Add(-24 * time.Hour),
		NotAfter:              now.AddDate(5, 0, 0),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLenZero:        true,
	}
	return &TestCA{Certificate: mustCreate(tmpl, ca.Certificate, key.Public(), ca.Key), Key: key}
}

// IssueCard creates a user certificate signed by ca.
func (ca *TestCA) IssueCard(opts CardOptions) *Card {
	if opts.GivenName == "" {
		opts.GivenName = "JAAK-KRISTJAN"
	}
	if opts.Surname == "" {
		opts.Surname = "JÕEORG"
	}
	if opts.IdentityCode == "" {
		opts.IdentityCode = "38001085718"
	}
	if opts.Country == "" {
		opts.Country = "EE"
	}
	now := time.Now()
	if opts.NotBefore.IsZero() {
		opts.NotBefore = now.Add(-time.Hour)
	}
	if opts.NotAfter.IsZero() {
		opts.NotAfter = now.AddDate(1, 0, 0)
	}

	var key crypto.Signer = mustECKey()
	if opts.RSA {
		rk, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic("failed to generate RSA key: " + err.Error())
		}
		key = rk
	}

	tmpl := &x509.Certificate{
		SerialNumber: mustSerial(),
		Subject: pkix.Name{
			CommonName:   opts.Surname + "," + opts.GivenName + "," + opts.IdentityCode,
			Country:      []string{opts.Country},
			SerialNumber: "PNO" + opts.Country + "-" + opts.IdentityCode,
			ExtraNames: []pkix.AttributeTypeAndValue{
				{Type: oidGivenName, Value: opts.GivenName},
				{Type: oidSurname, Value: opts.Surname},
			},
		},
		NotBefore:  opts.NotBefore,
		NotAfter:   opts.NotAfter,
		KeyUsage:   x509.KeyUsageDigitalSignature | x509.KeyUsageKeyAgreement,
		OCSPServer: opts.OCSPServer,
	}
	switch opts.Purpose {
	case PurposeAuthentication:
		tmpl.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}
	case PurposeSigning:
		tmpl.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageEmailProtection}
	}
	return &Card{Certificate: mustCreate(tmpl, ca.Certificate, key.Public(), ca.Key), Key: key}
}

func mustECKey() *ecdsa.PrivateKey {
	k, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		panic("failed to generate EC key: " + err.Error())
	}
	return k
}

func mustSerial() *big.Int {
	n, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 127))
	if err != nil {
		panic("failed to generate serial: " + err.Error())
	}
	return n
}

func mustCreate(tmpl, parent *x509.Certificate, pub crypto.PublicKey, signer crypto.Signer) *x509.Certificate {
	der, err := x509.CreateCertificate(rand.Reader, tmpl, parent, pub, signer)
	if err != nil {
		panic("failed to create certificate: " + err.Error())
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		panic("failed to parse certificate: " + err.Error())
	}
	return cert
}

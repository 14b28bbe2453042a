package validator

import (
	"crypto/x509"
	"encoding/asn1"
	"fmt"
)

var (
	oidGivenName = asn1.ObjectIdentifier{2, 5, 4, 42}
	oidSurname   = asn1.ObjectIdentifier{2, 5, 4, 4}
)

// Identity is the subject of a validated user certificate.
type Identity struct {
	Certificate  *x509.Certificate `json:"-"`
	CommonName   string            `json:"common_name"`
	GivenName    string            `json:"given_name,omitempty"`
	Surname      string            `json:"surname,omitempty"`
	IdentityCode string            `json:"identity_code,omitempty"`
	Country      string            `json:"country,omitempty"`
}

func identityFromCertificate(cert *x509.Certificate) *Identity {
	id := &Identity{
		Certificate:  cert,
		CommonName:   cert.Subject.CommonName,
		IdentityCode: cert.Subject.SerialNumber,
	}
	if len(cert.Subject.Country) > 0 {
		id.Country = cert.Subject.Country[0]
	}
	for _, n := range cert.Subject.Names {
		switch {
		case n.Type.Equal(oidGivenName):
			id.GivenName = fmt.Sprint(n.Value)
		case n.Type.Equal(oidSurname):
			id.Surname = fmt.Sprint(n.Value)
		}
	}
	return id
}

package config

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var certExtensions = map[string]bool{".pem": true, ".crt": true, ".cer": true, ".der": true}

// LoadTrustedCAs reads CA certificates from files and directories. Files
// may hold several PEM certificates or a single DER certificate.
// Directory entries are read when their extension is .pem, .crt, .cer or .der.
func LoadTrustedCAs(paths []string) ([]*x509.Certificate, error) {
	var out []*x509.Certificate
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		fi, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			certs, err := readCertificates(p)
			if err != nil {
				return nil, err
			}
			out = append(out, certs...)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || !certExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
				continue
			}
			certs, err := readCertificates(filepath.Join(p, e.Name()))
			if err != nil {
				return nil, err
			}
			out = append(out, certs...)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no trusted CA certificates found")
	}
	return out, nil
}

func readCertificates(path string) ([]*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	certs, err := parseCertificates(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return certs, nil
}

func parseCertificates(data []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	rest := data
	for {
		var blk *pem.Block
		blk, rest = pem.Decode(rest)
		if blk == nil {
			break
		}
		if blk.Type != "CERTIFICATE" {
			continue
		}
		c, err := x509.ParseCertificate(blk.Bytes)
		if err != nil {
			return nil, err
		}
		certs = append(certs, c)
	}
	if len(certs) > 0 {
		return certs, nil
	}
	c, err := x509.ParseCertificate(data)
	if err != nil {
		return nil, errors.New("no certificate in PEM or DER form")
	}
	return []*x509.Certificate{c}, nil
}

package validator

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// checkOriginURL reports why u is not a bare http(s) origin.
func checkOriginURL(u *url.URL) error {
	if u == nil {
		return fmt.Errorf("origin is required")
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("origin scheme must be http or https, got %q", u.Scheme)
	}
	if u.Opaque != "" || u.User != nil {
		return fmt.Errorf("origin must not carry userinfo or an opaque part")
	}
	if u.Hostname() == "" {
		return fmt.Errorf("origin host is empty")
	}
	if u.Path != "" || u.RawQuery != "" || u.ForceQuery || u.Fragment != "" {
		return fmt.Errorf("origin must not contain a path, query or fragment")
	}
	return nil
}

// canonicalOrigin lowercases scheme and host and drops default ports so
// that https://RIA.ee:443 and https://ria.ee compare equal.
func canonicalOrigin(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (scheme == "https" && port == "443") || (scheme == "http" && port == "80") {
		port = ""
	}
	if port != "" {
		return scheme + "://" + net.JoinHostPort(host, port)
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return scheme + "://" + host
}

// sameOrigin compares the token's asserted origin with the configured one.
func sameOrigin(expected *url.URL, asserted string) error {
	u, err := url.Parse(asserted)
	if err != nil {
		return fmt.Errorf("asserted origin %q does not parse: %v", asserted, err)
	}
	if err := checkOriginURL(u); err != nil {
		return fmt.Errorf("asserted origin %q: %v", asserted, err)
	}
	if canonicalOrigin(u) != canonicalOrigin(expected) {
		return fmt.Errorf("asserted origin %q does not match %q", asserted, canonicalOrigin(expected))
	}
	return nil
}

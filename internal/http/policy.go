package http

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"strings"
)

// ErrUntrustedURL is returned for tile URLs outside of the private and
// loopback hosts this tool may target.
var ErrUntrustedURL = errors.New("only local HTTP tile URLs are supported")

// Policy decides whether a rendered tile URL may be requested.
// It returns nil to allow the request and an error wrapping ErrUntrustedURL
// otherwise.
type Policy func(rawURL string) error

// TrustedPrefixes are the literal URL prefixes accepted by CheckPrefix.
var TrustedPrefixes = []string{
	"http://192.168.",
	"http://10.",
	"http://127.0.0.1",
	"http://localhost",
}

// CheckPrefix accepts URLs starting with one of TrustedPrefixes.
//
// The match is purely textual, so "http://localhost.example.com" passes too.
// CheckHost is the stricter alternative.
func CheckPrefix(rawURL string) error {
	for _, prefix := range TrustedPrefixes {
		if strings.HasPrefix(rawURL, prefix) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUntrustedURL, rawURL)
}

var trustedNetworks = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("127.0.0.1/32"),
}

// CheckHost parses the URL and accepts plain http requests whose host is
// localhost, 127.0.0.1, or an address in 10.0.0.0/8 or 192.168.0.0/16.
func CheckHost(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUntrustedURL, rawURL, err)
	}
	if u.Scheme != "http" || u.User != nil {
		return fmt.Errorf("%w: %s", ErrUntrustedURL, rawURL)
	}

	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return nil
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUntrustedURL, rawURL)
	}
	for _, network := range trustedNetworks {
		if network.Contains(addr) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUntrustedURL, rawURL)
}

// Package http provides the HTTP client used to fetch tiles from a private
// tile server.
//
// The Client in this package handles:
//   - The trust boundary: only private and loopback hosts may be requested
//   - User-Agent headers
//   - Timeout handling
//   - Status validation
//   - Proxy configuration
//
// # Basic Usage
//
//	client, err := http.NewClient(http.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//
//	data, err := client.Get(ctx, "http://localhost:8080/1/1/0.png")
//
// # Trust Boundary
//
// Every URL passes a Policy before any network activity. CheckPrefix accepts
// URLs beginning with http://192.168., http://10., http://127.0.0.1 or
// http://localhost. CheckHost parses the URL and compares the host instead:
//
//	opts := http.DefaultOptions()
//	opts.Policy = http.CheckHost
//
// Rejected URLs yield an error wrapping ErrUntrustedURL.
package http

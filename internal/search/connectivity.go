package search

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"time"
)

// DefaultProbeAddress is dialed to decide whether the API is reachable
const DefaultProbeAddress = "www.googleapis.com:443"

// Connectivity answers whether a search should be attempted at all
type Connectivity interface {
	Connected(ctx context.Context) bool
}

// Always is a fixed connectivity answer
type Always bool

// Connected returns the fixed answer
func (a Always) Connected(context.Context) bool {
	return bool(a)
}

// DialChecker reports connectivity by opening a TCP connection
type DialChecker struct {
	Address string
	Timeout time.Duration

	// Proxy picks the proxy for a request to Address, as http.Transport does.
	// When it returns a URL the proxy is dialed instead. nil dials direct.
	Proxy func(*http.Request) (*url.URL, error)
}

// NewDialChecker creates a checker for address; empty selects the API host.
// It honors the same proxy environment as the fetch transport.
func NewDialChecker(address string) *DialChecker {
	if address == "" {
		address = DefaultProbeAddress
	}
	return &DialChecker{Address: address, Timeout: 3 * time.Second, Proxy: http.ProxyFromEnvironment}
}

// Connected dials the target and closes the connection straight away
func (d *DialChecker) Connected(ctx context.Context) bool {
	dialer := net.Dialer{Timeout: d.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", d.target())
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// target is the proxy address when one applies to Address, else Address
func (d *DialChecker) target() string {
	if d.Proxy == nil {
		return d.Address
	}
	req := &http.Request{Method: http.MethodGet, URL: &url.URL{Scheme: "https", Host: d.Address}, Header: http.Header{}}
	proxy, err := d.Proxy(req)
	if err != nil || proxy == nil || proxy.Hostname() == "" {
		return d.Address
	}
	port := proxy.Port()
	if port == "" {
		switch proxy.Scheme {
		case "https":
			port = "443"
		case "socks5", "socks5h":
			port = "1080"
		default:
			port = "80"
		}
	}
	return net.JoinHostPort(proxy.Hostname(), port)
}

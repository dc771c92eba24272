package monitor

import (
	"context"
	"fmt"
	"net"
	"net/url"
)

var defaultPorts = map[string]string{"http": "80", "https": "443", "postgres": "5432"}

// TCPProbe reports whether addr accepts TCP connections.
func TCPProbe(addr string) Probe {
	return func(ctx context.Context) error {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return fmt.Errorf("%s unreachable: %w", addr, err)
		}
		return conn.Close()
	}
}

// EndpointAddr returns host:port for a URL, filling in the scheme's
// default port.
func EndpointAddr(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("invalid endpoint %q", rawURL)
	}
	port := u.Port()
	if port == "" {
		port = defaultPorts[u.Scheme]
	}
	if port == "" {
		return "", fmt.Errorf("no port for endpoint %q", rawURL)
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

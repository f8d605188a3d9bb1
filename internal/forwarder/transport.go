package forwarder

import (
	"crypto/tls"
	"net/http"
)

// perRequestTransport builds a brand new *http.Transport for every round
// trip. Keep-alives are disabled and the connection is torn down as soon
// as the response is read, so no upstream connection is ever reused
// across requests and no upstream connection pool accumulates (spec.md
// §1 Non-goals, §4.6).
type perRequestTransport struct {
	tlsConfig *tls.Config
}

func newPerRequestTransport(tlsConfig *tls.Config) http.RoundTripper {
	return &perRequestTransport{tlsConfig: tlsConfig}
}

func (t *perRequestTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	transport := &http.Transport{
		TLSClientConfig:   t.tlsConfig,
		DisableKeepAlives: true,
		ForceAttemptHTTP2: false,
		// An empty (non-nil) map stops the transport negotiating an
		// HTTP/2 upgrade via ALPN even if a future TLSClientConfig ever
		// advertised it; upstream is always http/1.1 (spec.md §1).
		TLSNextProto: map[string]func(string, *tls.Conn) http.RoundTripper{},
	}
	resp, err := transport.RoundTrip(req)
	transport.CloseIdleConnections()
	return resp, err
}

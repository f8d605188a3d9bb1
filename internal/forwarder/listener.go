// Package forwarder is the Listener & Request Forwarder collaborator
// (spec.md §4.6): it terminates plaintext inbound connections on a
// configured port, asks the router for a destination and TLS client
// configuration, and streams the request through to the upstream over a
// fresh mTLS connection.
package forwarder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/TelenorNorway/mtls-proxy/internal/router"
	"github.com/TelenorNorway/mtls-proxy/internal/util"
)

// Listener binds a single TCP port and forwards every accepted request
// through the shared Router.
type Listener struct {
	port   uint16
	router *router.Router
	server *http.Server
	log    zerolog.Logger
}

// New builds a Listener for port, backed by r. The Router is shared by
// reference across every Listener the process runs. Every log line this
// Listener emits carries the port as a structured field, so multi-port
// deployments can tell one listener's lines from another's.
func New(port uint16, r *router.Router) *Listener {
	l := &Listener{port: port, router: r, log: util.ForListener(port)}
	l.server = &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", port),
		Handler: l,
	}
	return l
}

// Port returns the configured listen port.
func (l *Listener) Port() uint16 {
	return l.port
}

// Run blocks, serving requests until ctx is cancelled, then drains
// in-flight requests within a grace period before returning.
func (l *Listener) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		l.log.Info().Str("addr", l.server.Addr).Msg("listener started")
		errCh <- l.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return l.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// ServeHTTP implements spec.md §4.6: build the canonical inbound URL,
// resolve it to a destination and client TLS config, and forward. Every
// failure is logged and answered with a 502 — a single bad request never
// brings the listener down.
func (l *Listener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	inbound := &url.URL{
		Scheme:   "http",
		Host:     fmt.Sprintf("localhost:%d", l.port),
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
	}

	tlsConfig, destination, err := l.router.GetDestination(inbound)
	if err != nil {
		l.log.Error().Err(err).Str("path", inbound.Path).Msg("could not resolve destination")
		http.Error(w, "routing error", http.StatusBadGateway)
		return
	}
	if destination == nil {
		l.log.Warn().Str("path", inbound.Path).Msg("no request mapping matched")
		http.Error(w, "no destination configured for this request", http.StatusBadGateway)
		return
	}
	if tlsConfig == nil {
		l.log.Warn().Str("destination", destination.String()).Msg("no client identity matched destination")
		http.Error(w, "no client identity configured for this destination", http.StatusBadGateway)
		return
	}

	start := time.Now()
	proxy := &httputil.ReverseProxy{
		Director: func(req *http.Request) {
			req.URL = destination
			req.Host = destination.Hostname()
		},
		Transport: newPerRequestTransport(tlsConfig),
		ErrorHandler: func(rw http.ResponseWriter, req *http.Request, err error) {
			l.log.Error().Err(err).Str("destination", destination.String()).Msg("upstream request failed")
			rw.WriteHeader(http.StatusBadGateway)
		},
	}
	proxy.ServeHTTP(w, r)

	l.log.Info().
		Str("method", r.Method).
		Str("path", inbound.Path).
		Str("destination", destination.String()).
		Dur("elapsed", time.Since(start)).
		Msg("forwarded request")
}

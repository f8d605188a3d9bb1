// Package router holds the immutable table of request mappings and client
// identities, and the selection protocol (spec.md §4.5) that turns an
// inbound URL into a destination URL plus the TLS client configuration to
// present when reaching it.
package router

import (
	"crypto/tls"
	"net/url"

	"github.com/TelenorNorway/mtls-proxy/internal/identity"
	"github.com/TelenorNorway/mtls-proxy/internal/routemap"
)

// Router is immutable once constructed and is shared by reference across
// every listener and request task — no locking is required (spec.md §5).
type Router struct {
	mappings   []*routemap.Mapping
	identities []*identity.Identity
}

// New builds a Router from construction-ordered mappings and identities.
// Both slices are retained by reference and must not be mutated by the
// caller afterward.
func New(mappings []*routemap.Mapping, identities []*identity.Identity) *Router {
	return &Router{mappings: mappings, identities: identities}
}

func (r *Router) destinationFor(inbound *url.URL) (*url.URL, error) {
	for _, m := range r.mappings {
		if m.Test(inbound) {
			return m.Destination(inbound)
		}
	}
	return nil, nil
}

func (r *Router) identityConfigFor(destination *url.URL) *tls.Config {
	for _, id := range r.identities {
		if id.Test(destination) {
			return id.Config()
		}
	}
	return nil
}

// GetDestination implements the two-stage lookup of spec.md §4.5: the
// first matching request mapping produces a destination URL, then the
// first client identity whose destination patterns cover that URL (not
// the inbound URL) supplies the TLS client configuration.
//
// Returns (nil, nil, nil) when no request mapping matches. Returns
// (nil, destination, nil) when a destination was computed but no identity
// covers it — the caller (the listener) treats that as a request failure,
// the router itself does not.
func (r *Router) GetDestination(inbound *url.URL) (*tls.Config, *url.URL, error) {
	destination, err := r.destinationFor(inbound)
	if err != nil {
		return nil, nil, err
	}
	if destination == nil {
		return nil, nil, nil
	}
	return r.identityConfigFor(destination), destination, nil
}

// Package routemap pairs a URL pattern that matches inbound requests with a
// URL template that produces the upstream destination.
package routemap

import (
	"fmt"
	"net/url"

	"github.com/TelenorNorway/mtls-proxy/internal/urlpattern"
	"github.com/TelenorNorway/mtls-proxy/internal/urltemplate"
)

// Mapping is an immutable (pattern, destination template) pair.
type Mapping struct {
	pattern             *urlpattern.Pattern
	destinationTemplate *urltemplate.Template
}

// New builds a Mapping from an already-compiled pattern and template.
func New(pattern *urlpattern.Pattern, destinationTemplate *urltemplate.Template) *Mapping {
	return &Mapping{pattern: pattern, destinationTemplate: destinationTemplate}
}

// Test reports whether the inbound URL matches this mapping's pattern.
func (m *Mapping) Test(inbound *url.URL) bool {
	return m.pattern.Test(inbound)
}

// Destination executes the pattern against inbound, merges the path and
// query captures (query overwrites path on name collision, per spec.md
// §3), and fills the destination template with them.
//
// Exec returning no match here is non-recoverable: the caller must only
// invoke Destination after Test has already returned true for the same
// URL, so a miss here indicates the pattern library gave inconsistent
// answers between the two calls.
func (m *Mapping) Destination(inbound *url.URL) (*url.URL, error) {
	match, ok := m.pattern.Exec(inbound)
	if !ok {
		return nil, fmt.Errorf("could not extract variables from input url %s using pattern", inbound)
	}

	vars := make(map[string]string, len(match.PathGroups)+len(match.QueryGroups))
	for k, v := range match.PathGroups {
		vars[k] = v
	}
	for k, v := range match.QueryGroups {
		vars[k] = v
	}

	dest, err := m.destinationTemplate.Fill(vars)
	if err != nil {
		return nil, err
	}
	return dest, nil
}

// Package urlpattern is a thin URL-matching layer compiled from a pattern
// string of the form `<scheme>://<host>[:<port>]/<path>[?<query>]`, where
// scheme/host/path/query components may contain a bare `*` wildcard or
// named placeholders (`:name`, `:name*`) the way gorilla/mux compiles
// `{name}` route segments into anchored regexps — adapted here to the
// colon-prefixed placeholder syntax this spec's patterns use, and to
// matching a scheme/host/port/path/query tuple rather than just a path.
package urlpattern

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Pattern is a compiled URL matcher. It is immutable and safe for
// concurrent use by multiple goroutines once constructed.
type Pattern struct {
	source   string
	schemeRe *regexp.Regexp
	hostRe   *regexp.Regexp
	port     string // "" or "*" means "any port"; otherwise an exact literal
	pathRe   *regexp.Regexp
	queryRe  *regexp.Regexp // nil means "any query string"
}

// Parse compiles a pattern string. See the package doc for the grammar.
func Parse(pattern string) (*Pattern, error) {
	idx := strings.Index(pattern, "://")
	if idx < 0 {
		return nil, fmt.Errorf("invalid url pattern %q: missing scheme separator", pattern)
	}
	scheme := pattern[:idx]
	rest := pattern[idx+3:]

	slashIdx := strings.IndexByte(rest, '/')
	var hostport, pathAndQuery string
	if slashIdx < 0 {
		hostport = rest
	} else {
		hostport = rest[:slashIdx]
		pathAndQuery = rest[slashIdx:]
	}

	host := hostport
	port := ""
	// Only a trailing `:<digits>` or `:*` is a port; any other colon starts
	// a named placeholder in the host.
	if colonIdx := strings.LastIndexByte(hostport, ':'); colonIdx >= 0 {
		candidate := hostport[colonIdx+1:]
		if candidate == "*" || strings.Trim(candidate, "0123456789") == "" {
			host = hostport[:colonIdx]
			port = candidate
		}
	}

	path := pathAndQuery
	query := ""
	hasQuery := false
	if qIdx := strings.IndexByte(pathAndQuery, '?'); qIdx >= 0 {
		path = pathAndQuery[:qIdx]
		query = pathAndQuery[qIdx+1:]
		hasQuery = true
	}
	if path == "" {
		path = "/"
	}

	schemeRe, err := compile(scheme, anyChar)
	if err != nil {
		return nil, fmt.Errorf("invalid url pattern %q: scheme: %w", pattern, err)
	}
	hostRe, err := compile(host, anyChar)
	if err != nil {
		return nil, fmt.Errorf("invalid url pattern %q: host: %w", pattern, err)
	}
	pathRe, err := compile(path, pathSegmentChar)
	if err != nil {
		return nil, fmt.Errorf("invalid url pattern %q: path: %w", pattern, err)
	}

	var queryRe *regexp.Regexp
	if hasQuery {
		queryRe, err = compile(query, querySegmentChar)
		if err != nil {
			return nil, fmt.Errorf("invalid url pattern %q: query: %w", pattern, err)
		}
	}

	return &Pattern{
		source:   pattern,
		schemeRe: schemeRe,
		hostRe:   hostRe,
		port:     port,
		pathRe:   pathRe,
		queryRe:  queryRe,
	}, nil
}

// String returns the original pattern text the Pattern was compiled from.
func (p *Pattern) String() string {
	return p.source
}

// Test reports whether u matches the pattern.
func (p *Pattern) Test(u *url.URL) bool {
	if !p.schemeRe.MatchString(u.Scheme) {
		return false
	}
	if !p.hostRe.MatchString(u.Hostname()) {
		return false
	}
	if p.port != "" && p.port != "*" && u.Port() != p.port {
		return false
	}
	if !p.pathRe.MatchString(u.Path) {
		return false
	}
	if p.queryRe != nil && !p.queryRe.MatchString(u.RawQuery) {
		return false
	}
	return true
}

// Match is the result of a successful Exec: named captures pulled from the
// path component and, if the pattern defines a query component, from the
// raw query string.
type Match struct {
	PathGroups  map[string]string
	QueryGroups map[string]string
}

// Exec matches u against the pattern and returns the named captures, or
// ok=false if u does not match.
func (p *Pattern) Exec(u *url.URL) (Match, bool) {
	if !p.Test(u) {
		return Match{}, false
	}

	match := Match{
		PathGroups:  namedGroups(p.pathRe, p.pathRe.FindStringSubmatch(u.Path)),
		QueryGroups: map[string]string{},
	}
	if p.queryRe != nil {
		match.QueryGroups = namedGroups(p.queryRe, p.queryRe.FindStringSubmatch(u.RawQuery))
	}
	return match, true
}

func namedGroups(re *regexp.Regexp, submatch []string) map[string]string {
	groups := map[string]string{}
	if submatch == nil {
		return groups
	}
	for i, name := range re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		groups[name] = submatch[i]
	}
	return groups
}

// charClass is the regexp character class a bare `:name` placeholder
// (without a trailing `*`) is compiled to; it bounds a single "segment" of
// whichever component is being compiled.
type charClass string

const (
	anyChar          charClass = "."
	pathSegmentChar  charClass = "[^/]"
	querySegmentChar charClass = "[^&]"
)

func isNameByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// compile walks raw left to right, turning literal runs into quoted regexp
// text, a bare `*` into an unnamed greedy wildcard, and `:name`/`:name*`
// into named capture groups, then anchors and compiles the result.
func compile(raw string, single charClass) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteByte('^')

	i := 0
	for i < len(raw) {
		switch raw[i] {
		case ':':
			j := i + 1
			for j < len(raw) && isNameByte(raw[j]) {
				j++
			}
			name := raw[i+1 : j]
			if name == "" {
				return nil, fmt.Errorf("empty placeholder name at offset %d", i)
			}
			if name[0] >= '0' && name[0] <= '9' {
				return nil, fmt.Errorf("placeholder name %q must not start with a digit", name)
			}
			if j < len(raw) && raw[j] == '*' {
				fmt.Fprintf(&b, "(?P<%s>.*)", name)
				j++
			} else {
				fmt.Fprintf(&b, "(?P<%s>%s+)", name, single)
			}
			i = j
		case '*':
			b.WriteString(".*")
			i++
		default:
			start := i
			for i < len(raw) && raw[i] != ':' && raw[i] != '*' {
				i++
			}
			b.WriteString(regexp.QuoteMeta(raw[start:i]))
		}
	}

	b.WriteByte('$')
	return regexp.Compile(b.String())
}

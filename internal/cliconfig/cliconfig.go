// Package cliconfig is the configuration-loader collaborator (spec.md
// §4.7): it turns the repeatable --client/--cert/--key flags and the
// positional request-mapping arguments (spec.md §6) into a fully-built
// Router and the deduplicated set of listen ports.
package cliconfig

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/TelenorNorway/mtls-proxy/internal/identity"
	"github.com/TelenorNorway/mtls-proxy/internal/router"
	"github.com/TelenorNorway/mtls-proxy/internal/routemap"
	"github.com/TelenorNorway/mtls-proxy/internal/urlpattern"
	"github.com/TelenorNorway/mtls-proxy/internal/urltemplate"
)

// Options mirrors the CLI flag surface of spec.md §6: repeatable
// --client/--cert/--key entries of the form "<name>=<value>", and the
// full, ordered list of positional request-mapping strings of the form
// ":<port>[/<path-pattern>]=<destination-template>".
type Options struct {
	Client  []string
	Cert    []string
	Key     []string
	Mapping []string
}

type identityBuilder struct {
	name     string
	patterns []string
	cert     string
	hasCert  bool
	key      string
	hasKey   bool
}

// splitKV splits value on its first '=' — the key before it cannot contain
// '=', but the value after it (a pattern, a file path or a destination
// template) may.
func splitKV(field string, index int, value string) (string, string, error) {
	eq := strings.IndexByte(value, '=')
	if eq < 0 {
		return "", "", fmt.Errorf("invalid key value pair %q when reading %s#%d", value, field, index+1)
	}
	return value[:eq], value[eq+1:], nil
}

// BuildRouter parses opts into a Router and the deduplicated set of listen
// ports, in the order the mapping arguments were declared. Identity
// construction order follows first mention among the --client entries
// (--cert and --key may only name an identity already introduced there),
// which the original CLI (backed by an unordered map) left unspecified —
// this implementation makes that order deterministic; see DESIGN.md.
func BuildRouter(opts Options) (*router.Router, []uint16, error) {
	order := make([]string, 0)
	builders := map[string]*identityBuilder{}

	builderFor := func(name string) *identityBuilder {
		b, ok := builders[name]
		if !ok {
			b = &identityBuilder{name: name}
			builders[name] = b
			order = append(order, name)
		}
		return b
	}

	for i, entry := range opts.Client {
		name, pattern, err := splitKV("client", i, entry)
		if err != nil {
			return nil, nil, err
		}
		b := builderFor(name)
		b.patterns = append(b.patterns, pattern)
	}

	for i, entry := range opts.Cert {
		name, filename, err := splitKV("cert", i, entry)
		if err != nil {
			return nil, nil, err
		}
		b, ok := builders[name]
		if !ok {
			return nil, nil, fmt.Errorf("could not find client identity %q when adding certificate %q", name, filename)
		}
		if b.hasCert {
			return nil, nil, fmt.Errorf("client identity %q already has a certificate defined", name)
		}
		b.cert, b.hasCert = filename, true
	}

	for i, entry := range opts.Key {
		name, filename, err := splitKV("key", i, entry)
		if err != nil {
			return nil, nil, err
		}
		b, ok := builders[name]
		if !ok {
			return nil, nil, fmt.Errorf("could not find client identity %q when adding key %q", name, filename)
		}
		if b.hasKey {
			return nil, nil, fmt.Errorf("client identity %q already has a key defined", name)
		}
		b.key, b.hasKey = filename, true
	}

	identities := make([]*identity.Identity, 0, len(order))
	for _, name := range order {
		b := builders[name]
		if !b.hasCert {
			return nil, nil, fmt.Errorf("no certificate file defined for client identity %q", name)
		}
		if !b.hasKey {
			return nil, nil, fmt.Errorf("no key file defined for client identity %q", name)
		}

		patterns := make([]*urlpattern.Pattern, 0, len(b.patterns))
		for _, raw := range b.patterns {
			p, err := urlpattern.Parse(raw)
			if err != nil {
				return nil, nil, fmt.Errorf("could not parse url pattern for client identity %q: %w", name, err)
			}
			patterns = append(patterns, p)
		}

		id, err := identity.New(name, patterns, b.cert, b.key)
		if err != nil {
			return nil, nil, fmt.Errorf("could not build client identity %q: %w", name, err)
		}
		identities = append(identities, id)
	}

	mappings, ports, err := buildMappings(opts.Mapping)
	if err != nil {
		return nil, nil, err
	}

	return router.New(mappings, identities), ports, nil
}

func buildMappings(entries []string) ([]*routemap.Mapping, []uint16, error) {
	seenPorts := map[uint16]bool{}
	var ports []uint16
	mappings := make([]*routemap.Mapping, 0, len(entries))

	for i, entry := range entries {
		key, destination, err := splitKV("mapping", i, entry)
		if err != nil {
			return nil, nil, err
		}

		port, path, err := splitMappingKey(key)
		if err != nil {
			return nil, nil, fmt.Errorf("could not parse mapping#%d: %w", i+1, err)
		}

		if !seenPorts[port] {
			seenPorts[port] = true
			ports = append(ports, port)
		}

		pattern, err := urlpattern.Parse(fmt.Sprintf("*://*:%d/%s", port, path))
		if err != nil {
			return nil, nil, fmt.Errorf("could not parse url pattern on mapping#%d: %w", i+1, err)
		}

		tpl, err := urltemplate.Parse(destination)
		if err != nil {
			return nil, nil, fmt.Errorf("could not parse destination template on mapping#%d: %w", i+1, err)
		}

		mappings = append(mappings, routemap.New(pattern, tpl))
	}

	return mappings, ports, nil
}

// splitMappingKey parses ":<port>[/<path-pattern>]" into its port and
// path-pattern (default "*").
func splitMappingKey(key string) (uint16, string, error) {
	if !strings.HasPrefix(key, ":") {
		return 0, "", fmt.Errorf("mapping key %q must start with ':'", key)
	}
	rest := key[1:]

	portStr, path := rest, "*"
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		portStr, path = rest[:slash], rest[slash+1:]
	}

	portNum, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return 0, "", fmt.Errorf("invalid port %q: %w", portStr, err)
	}

	return uint16(portNum), path, nil
}

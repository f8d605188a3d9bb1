// Package urltemplate parses and fills the small template language used to
// build destination URLs from captured route variables: literal text plus
// `{[/]name[:default][?]}` placeholders.
package urltemplate

import (
	"fmt"
	"net/url"
	"strings"
)

// Variable is a single `{...}` placeholder parsed from a template.
type Variable struct {
	Name         string
	Default      string
	HasDefault   bool
	Optional     bool
	LeadingSlash bool
}

func parseVariable(raw string) Variable {
	v := Variable{}

	if strings.HasPrefix(raw, "/") {
		v.LeadingSlash = true
		raw = raw[1:]
	}

	if strings.HasSuffix(raw, "?") {
		v.Optional = true
		raw = raw[:len(raw)-1]
	}

	if idx := strings.Index(raw, ":"); idx >= 0 {
		v.Default = raw[idx+1:]
		v.HasDefault = true
		raw = raw[:idx]
	}

	// `name?:default` is accepted as well as `name:default?`: a `?` right
	// before the default's colon also marks the variable optional.
	if v.HasDefault && strings.HasSuffix(raw, "?") {
		v.Optional = true
		raw = raw[:len(raw)-1]
	}

	v.Name = raw
	return v
}

type component struct {
	literal  string
	variable *Variable
}

// Template is a parsed, ready-to-fill URL template.
type Template struct {
	components []component
}

// Parse parses a template string per the grammar in spec.md §4.1. A `{`
// with no matching `}` is a parse error naming the original template text.
func Parse(template string) (*Template, error) {
	original := template
	var components []component

	for len(template) > 0 {
		start := strings.IndexByte(template, '{')
		if start < 0 {
			components = append(components, component{literal: template})
			break
		}
		if start > 0 {
			components = append(components, component{literal: template[:start]})
		}
		rel := strings.IndexByte(template[start+1:], '}')
		if rel < 0 {
			return nil, fmt.Errorf("unexpected end of variable in template %q", original)
		}
		end := start + 1 + rel
		v := parseVariable(template[start+1 : end])
		components = append(components, component{variable: &v})
		template = template[end+1:]
	}

	return &Template{components: components}, nil
}

// Fill substitutes vars into the template and parses the result as an
// absolute URL. Returns an error naming the missing variable, or an error
// wrapping the URL-parse failure (or reporting a non-absolute result), per
// spec.md §4.1.
func (t *Template) Fill(vars map[string]string) (*url.URL, error) {
	var buf strings.Builder

	for _, c := range t.components {
		if c.variable == nil {
			buf.WriteString(c.literal)
			continue
		}

		v := c.variable
		value, ok := vars[v.Name]
		if !ok {
			if !v.Optional {
				return nil, fmt.Errorf("missing required variable %s", v.Name)
			}
			if v.HasDefault {
				if v.LeadingSlash {
					buf.WriteByte('/')
				}
				buf.WriteString(v.Default)
			}
			continue
		}

		if v.LeadingSlash {
			buf.WriteByte('/')
		}
		buf.WriteString(value)
	}

	out, err := url.Parse(buf.String())
	if err != nil {
		return nil, fmt.Errorf("filled template is not a valid URL: %w", err)
	}
	if !out.IsAbs() {
		return nil, fmt.Errorf("filled template %q is not an absolute URL", buf.String())
	}
	return out, nil
}

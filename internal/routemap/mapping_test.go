package routemap

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TelenorNorway/mtls-proxy/internal/urlpattern"
	"github.com/TelenorNorway/mtls-proxy/internal/urltemplate"
)

func buildMapping(t *testing.T, pattern, template string) *Mapping {
	t.Helper()
	p, err := urlpattern.Parse(pattern)
	require.NoError(t, err)
	tpl, err := urltemplate.Parse(template)
	require.NoError(t, err)
	return New(p, tpl)
}

func TestDestinationRewritesPath(t *testing.T) {
	m := buildMapping(t, "*://*:9000/foo/:path*", "https://example.com/{path}")

	inbound, err := url.Parse("http://localhost:9000/foo/bar/baz")
	require.NoError(t, err)

	assert.True(t, m.Test(inbound))

	dest, err := m.Destination(inbound)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/bar/baz", dest.String())
}

func TestTestFalseForNonMatchingURL(t *testing.T) {
	m := buildMapping(t, "*://*:9000/foo/:path*", "https://example.com/{path}")

	inbound, err := url.Parse("http://localhost:9001/foo/bar")
	require.NoError(t, err)

	assert.False(t, m.Test(inbound))
}

func TestQueryGroupsOverwritePathGroups(t *testing.T) {
	m := buildMapping(t, "*://*:9000/items/:id?id=:id", "https://backend.internal/{id}")

	inbound, err := url.Parse("http://localhost:9000/items/path-value?id=query-value")
	require.NoError(t, err)

	dest, err := m.Destination(inbound)
	require.NoError(t, err)
	assert.Equal(t, "https://backend.internal/query-value", dest.String())
}

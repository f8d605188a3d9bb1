package urltemplate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMissingClosingBrace(t *testing.T) {
	_, err := Parse("https://example.com/{foo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "https://example.com/{foo")
}

func TestFillSimplePassThrough(t *testing.T) {
	tpl, err := Parse("https://example.com/{path}")
	require.NoError(t, err)

	u, err := tpl.Fill(map[string]string{"path": "bar/baz"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/bar/baz", u.String())
}

func TestFillOptionalWithDefault(t *testing.T) {
	tpl, err := Parse("https://api.example.com/v1/{tenant?:public}/items")
	require.NoError(t, err)

	u, err := tpl.Fill(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/public/items", u.String())

	u, err = tpl.Fill(map[string]string{"tenant": "acme"})
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/acme/items", u.String())
}

func TestFillLeadingSlashOptional(t *testing.T) {
	tpl, err := Parse("https://h.example{/suffix?}")
	require.NoError(t, err)

	u, err := tpl.Fill(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, "https://h.example", u.String())

	u, err = tpl.Fill(map[string]string{"suffix": "x"})
	require.NoError(t, err)
	assert.Equal(t, "https://h.example/x", u.String())
}

func TestFillRequiredMissing(t *testing.T) {
	tpl, err := Parse("https://h/{id}")
	require.NoError(t, err)

	_, err = tpl.Fill(map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id")
}

func TestFillOptionalWithoutDefaultEmitsNothing(t *testing.T) {
	tpl, err := Parse("https://h.example/{prefix?}suffix")
	require.NoError(t, err)

	u, err := tpl.Fill(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, "https://h.example/suffix", u.String())
}

func TestParseLiteralOnly(t *testing.T) {
	tpl, err := Parse("https://example.com/static")
	require.NoError(t, err)

	u, err := tpl.Fill(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/static", u.String())
}

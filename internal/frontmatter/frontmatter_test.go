package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplit_NoFrontMatter(t *testing.T) {
	content := []byte("# Hello\n\nBody\n")

	meta, body, had, err := Split(content)
	require.NoError(t, err)
	require.False(t, had)
	require.Nil(t, meta)
	require.Equal(t, content, body)
}

func TestSplit_WithFrontMatter(t *testing.T) {
	content := []byte("---\ntitle: Test\ndraft: true\n---\n# Body\n")

	meta, body, had, err := Split(content)
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, "title: Test\ndraft: true\n", string(meta))
	require.Equal(t, "# Body\n", string(body))
}

func TestSplit_EmptyFrontMatter(t *testing.T) {
	content := []byte("---\n---\n# Body\n")

	meta, body, had, err := Split(content)
	require.NoError(t, err)
	require.True(t, had)
	require.Empty(t, meta)
	require.Equal(t, "# Body\n", string(body))
}

func TestSplit_CRLFLineEndings(t *testing.T) {
	content := []byte("---\r\ntitle: Test\r\n---\r\nbody\r\n")

	meta, body, had, err := Split(content)
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, "title: Test\r\n", string(meta))
	require.Equal(t, "body\r\n", string(body))
}

func TestSplit_MissingClosingDelimiter(t *testing.T) {
	_, _, _, err := Split([]byte("---\ntitle: Test\nbody\n"))
	require.ErrorIs(t, err, ErrMissingClosingDelimiter)
}

func TestParse_EmptyYieldsEmptyMap(t *testing.T) {
	fields, err := Parse(nil)
	require.NoError(t, err)
	require.NotNil(t, fields)
	require.Empty(t, fields)
}

func TestParse_Fields(t *testing.T) {
	fields, err := Parse([]byte("title: Test\norder: 3\ntags:\n  - a\n  - b\n"))
	require.NoError(t, err)
	require.Equal(t, "Test", fields["title"])
	require.Equal(t, 3, fields["order"])
	require.Equal(t, []any{"a", "b"}, fields["tags"])
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte(":\n:bad"))
	require.Error(t, err)
}

func TestCompose_RoundTrip(t *testing.T) {
	fields := map[string]any{"title": "Test", "order": 2}
	meta, err := Serialize(fields)
	require.NoError(t, err)

	content := Compose(meta, []byte("# Body\n"))

	gotMeta, gotBody, had, err := Split(content)
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, "# Body\n", string(gotBody))

	parsed, err := Parse(gotMeta)
	require.NoError(t, err)
	require.Equal(t, "Test", parsed["title"])
	require.Equal(t, 2, parsed["order"])
}

func TestCompose_NoMetaReturnsBody(t *testing.T) {
	require.Equal(t, []byte("body"), Compose(nil, []byte("body")))
}

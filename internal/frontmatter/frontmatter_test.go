package frontmatter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/meta"
)

func TestSplit_NoFrontmatter_ReturnsBodyOnly(t *testing.T) {
	input := []byte("# Title\n\nHello\n")

	block, body, had := Split(input)
	require.False(t, had)
	require.Empty(t, block)
	require.Equal(t, input, body)
}

func TestSplit_YAMLFrontmatter_SplitsBlockAndBody(t *testing.T) {
	input := []byte("---\nkey: value\n---\n# Title\n")

	block, body, had := Split(input)
	require.True(t, had)
	require.Equal(t, []byte("key: value\n"), block)
	require.Equal(t, []byte("# Title\n"), body)
}

func TestSplit_MissingClosingMarker_IsNotABlock(t *testing.T) {
	input := []byte("---\nkey: value\n# Title\n")

	block, body, had := Split(input)
	require.False(t, had)
	require.Nil(t, block)
	require.Equal(t, input, body)
}

func TestSplit_CRLFAndTrailingWhitespace(t *testing.T) {
	input := []byte("--- \r\nkey: value\r\n---\t\r\n# Title\r\n")

	block, body, had := Split(input)
	require.True(t, had)
	require.Equal(t, []byte("key: value\r\n"), block)
	require.Equal(t, []byte("# Title\r\n"), body)
}

func TestSplit_MarkerMustOpenDocument(t *testing.T) {
	input := []byte("\n---\nkey: value\n---\nbody\n")

	_, body, had := Split(input)
	require.False(t, had)
	require.Equal(t, input, body)
}

func TestSplit_ClosingMarkerAtEOF(t *testing.T) {
	block, body, had := Split([]byte("---\na: 1\n---"))
	require.True(t, had)
	require.Equal(t, []byte("a: 1\n"), block)
	require.Empty(t, body)
}

func TestParse_MetadataAndBody(t *testing.T) {
	fields, body, err := Parse([]byte("---\ntitle: Hello\nlayout: default\n---\n# Body\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"title", "layout"}, fields.Keys())
	title, _ := fields.GetString("title")
	require.Equal(t, "Hello", title)
	require.Equal(t, "# Body\n", string(body))
}

func TestParse_EmptyBlockKeepsFullContent(t *testing.T) {
	for _, input := range []string{
		"---\n---\nbody\n",
		"---\n   \n---\nbody\n",
		"---\n# just a comment\n---\nbody\n",
		"---\n~\n---\nbody\n",
	} {
		fields, body, err := Parse([]byte(input))
		require.NoError(t, err, input)
		require.Equal(t, 0, fields.Len(), input)
		require.Equal(t, input, string(body), "an empty block leaves the body untouched")
	}
}

func TestParse_NoBlock(t *testing.T) {
	input := []byte("plain text, no metadata\n")
	fields, body, err := Parse(input)
	require.NoError(t, err)
	require.Equal(t, 0, fields.Len())
	require.Equal(t, input, body)
}

func TestParse_InvalidBlock(t *testing.T) {
	_, _, err := Parse([]byte("---\ntitle: [unclosed\n---\nbody\n"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidMetadata))

	_, _, err = Parse([]byte("---\n- a\n- b\n---\nbody\n"))
	require.True(t, errors.Is(err, ErrInvalidMetadata), "a top-level list is not metadata")
}

func TestParseYAML_ValidYAML_ReturnsOrderedContext(t *testing.T) {
	fields, err := ParseYAML([]byte("uid: abc\ntags:\n  - one\ncount: 3\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"uid", "tags", "count"}, fields.Keys())
	require.Equal(t, map[string]any{
		"uid":   "abc",
		"tags":  []any{"one"},
		"count": int64(3),
	}, fields.Data())
}

func TestParseYAML_Timestamps(t *testing.T) {
	fields, err := ParseYAML([]byte("date: 2024-03-05\nlabel: \"2024-03-05\"\n"))
	require.NoError(t, err)

	date, _ := fields.Get("date")
	when, ok := date.AsTime()
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), when)

	label, _ := fields.Get("label")
	require.Equal(t, meta.KindString, label.Kind(), "quoted dates stay strings")
}

func TestParseYAML_AnchorsAndMergeKeys(t *testing.T) {
	src := []byte("base: &base\n  a: 1\n  b: 2\nchild:\n  <<: *base\n  b: 3\nref: *base\n")
	fields, err := ParseYAML(src)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"a": int64(1), "b": int64(3)}, fields.Data()["child"])
	require.Equal(t, map[string]any{"a": int64(1), "b": int64(2)}, fields.Data()["ref"])
}

func TestParseYAML_Empty_ReturnsEmptyContext(t *testing.T) {
	fields, err := ParseYAML(nil)
	require.NoError(t, err)
	require.Equal(t, 0, fields.Len())
}

func TestParseYAML_InvalidYAML_ReturnsError(t *testing.T) {
	_, err := ParseYAML([]byte(": not yaml: ["))
	require.Error(t, err)
}

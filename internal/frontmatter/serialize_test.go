package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/meta"
)

func TestSerializeYAML_Empty_ReturnsEmpty(t *testing.T) {
	out, err := SerializeYAML(meta.New())
	require.NoError(t, err)
	require.Equal(t, "", string(out))
}

func TestSerializeYAML_KeepsContextOrder(t *testing.T) {
	fields := meta.New()
	fields.Set("b", meta.String("two"))
	fields.Set("a", meta.String("one"))
	fields.Set("c", meta.Int(3))

	out, err := SerializeYAML(fields)
	require.NoError(t, err)
	require.Equal(t, "b: two\na: one\nc: 3\n", string(out))
}

func TestSerializeYAML_NestedAndLists(t *testing.T) {
	inner := meta.New()
	inner.Set("x", meta.Bool(true))
	fields := meta.New()
	fields.Set("outer", meta.Map(inner))
	fields.Set("tags", meta.Strings([]string{"go", "web"}))

	out, err := SerializeYAML(fields)
	require.NoError(t, err)
	require.Equal(t, "outer:\n  x: true\ntags:\n  - go\n  - web\n", string(out))
}

func TestSerializeYAML_RoundTrip(t *testing.T) {
	src := []byte("title: Hello\ncategories:\n  - tech\n  - go\nweight: 2\n")
	fields, err := ParseYAML(src)
	require.NoError(t, err)

	out, err := SerializeYAML(fields)
	require.NoError(t, err)
	require.Equal(t, string(src), string(out))
}

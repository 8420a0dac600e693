package meta

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextPreservesInsertionOrder(t *testing.T) {
	c := New()
	c.Set("title", String("Hello"))
	c.Set("layout", String("default"))
	c.Set("draft", Bool(false))
	c.Set("title", String("Replaced"))

	assert.Equal(t, []string{"title", "layout", "draft"}, c.Keys())
	title, ok := c.GetString("title")
	require.True(t, ok)
	assert.Equal(t, "Replaced", title)
}

func TestCopyIsolation(t *testing.T) {
	site := New()
	site.Set("time", Time(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)))

	base := New()
	base.Set("site", Map(site))
	base.Set("author", String("ann"))

	cp := base.Copy()
	cp.Set("author", String("bob"))
	cp.Set("layout", String("post"))
	require.True(t, cp.Delete("site"))

	author, _ := base.GetString("author")
	assert.Equal(t, "ann", author, "overwriting a key on the copy must not touch the original")
	assert.False(t, base.Has("layout"), "keys added to the copy must not appear in the original")
	assert.True(t, base.Has("site"), "keys deleted from the copy must remain in the original")
	assert.Equal(t, []string{"site", "author"}, base.Keys())
}

func TestCopySharesNestedMaps(t *testing.T) {
	site := New()
	base := New()
	base.Set("site", Map(site))

	cp := base.Copy()
	site.Set("title", String("Blog"))

	v, ok := cp.Get("site")
	require.True(t, ok)
	nested, ok := v.AsMap()
	require.True(t, ok)
	title, _ := nested.GetString("title")
	assert.Equal(t, "Blog", title, "nested mappings are shared between copies")
}

func TestMergeOverwritesAndAppends(t *testing.T) {
	c := New()
	c.Set("a", Int(1))
	c.Set("b", Int(2))

	other := New()
	other.Set("b", Int(20))
	other.Set("c", Int(30))
	c.Merge(other)

	assert.Equal(t, []string{"a", "b", "c"}, c.Keys())
	b, _ := c.Get("b")
	n, _ := b.AsInt()
	assert.Equal(t, int64(20), n)

	c.Merge(nil)
	assert.Equal(t, 3, c.Len())
}

func TestDataConvertsRecursively(t *testing.T) {
	inner := New()
	inner.Set("name", String("x"))
	c := New()
	c.Set("list", List(String("a"), Int(2)))
	c.Set("nested", Map(inner))
	c.Set("none", Null())

	data := c.Data()
	assert.Equal(t, []any{"a", int64(2)}, data["list"])
	assert.Equal(t, map[string]any{"name": "x"}, data["nested"])
	assert.Nil(t, data["none"])
}

func TestNilContextReads(t *testing.T) {
	var c *Context
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("x")
	assert.False(t, ok)
	assert.Empty(t, c.Data())
	assert.Equal(t, 0, c.Copy().Len())
}

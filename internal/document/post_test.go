package document

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/meta"
)

func TestParseFilename_Valid(t *testing.T) {
	cases := []struct {
		file            string
		path, url, slug string
		date            time.Time
	}{
		{"2024-03-05-hello.md", "2024/03/05", "2024/03/05/hello", "hello", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"_posts/1999-12-31-party-like-it-is.html", "1999/12/31", "1999/12/31/party-like-it-is", "party-like-it-is", time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC)},
		{"2024-02-29-leap", "2024/02/29", "2024/02/29/leap", "leap", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		name, err := ParseFilename(c.file)
		require.NoError(t, err, c.file)
		assert.Equal(t, c.path, name.Path())
		assert.Equal(t, c.url, name.URL())
		assert.Equal(t, "/"+c.url, name.ID())
		assert.Equal(t, c.slug, name.Slug)
		assert.Equal(t, c.date, name.Date)
	}
}

func TestParseFilename_Invalid(t *testing.T) {
	for _, file := range []string{
		"hello.md",
		"2024-03-hello.md",
		"2024-03-05.md",
		"2024-03-05-.md",
		"24-03-05-hello.md",
		"2024-3-5-hello.md",
		"2024-xx-05-hello.md",
		"2023-02-29-not-leap.md",
		"2024-13-01-month.md",
	} {
		_, err := ParseFilename(file)
		require.Error(t, err, file)
		assert.True(t, errors.HasCategory(err, errors.CategoryNaming), file)
		assert.True(t, stderrors.Is(err, ErrInvalidFilename), file)
	}
}

func TestNormalizeCategories(t *testing.T) {
	cases := []struct {
		category, categories meta.Value
		want                 []string
	}{
		{meta.String("a"), meta.Null(), []string{"a"}},
		{meta.Null(), meta.String("a, b"), []string{"a", "b"}},
		{meta.String("tech"), meta.String("tech, life"), []string{"tech", "life"}},
		{meta.Null(), meta.Strings([]string{"x", " y ", ""}), []string{"x", "y"}},
		{meta.String(" , ,"), meta.Null(), nil},
		{meta.String("café"), meta.String("café"), []string{"café"}},
	}
	for _, c := range cases {
		got := NormalizeCategories(c.category, c.categories)
		assert.Equal(t, c.want, got)
		assert.NotContains(t, got, "")

		again := NormalizeCategories(meta.Null(), meta.Strings(got))
		assert.Equal(t, got, again, "normalization is idempotent")
	}
}

func TestLoadPost_DerivedFields(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "_posts/2024-03-05-hello.md",
		"---\ntitle: Hello\ncategory: tech\ncategories: tech, life\ndate: 1999-01-01\npermalink: /custom/\n---\nFirst para.\n\nSecond.\n")

	post, err := LoadPost(path, baseContext(), NewLayoutSet(), nil)
	require.NoError(t, err)

	ctx := post.Context()
	assert.False(t, ctx.Has("category"))
	cats, _ := ctx.Get("categories")
	assert.Equal(t, "tech,life", cats.Text())
	assert.Equal(t, []string{"tech", "life"}, post.Categories())

	date, _ := ctx.Get("date")
	when, ok := date.AsTime()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), when, "the filename date wins")

	for key, want := range map[string]string{
		"url":     "2024/03/05/hello",
		"path":    "2024/03/05",
		"slug":    "hello",
		"id":      "/2024/03/05/hello",
		"excerpt": "First para.",
	} {
		got, ok := ctx.GetString(key)
		require.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}

	permalink, ok := post.Permalink()
	assert.True(t, ok)
	assert.Equal(t, "/custom/", permalink)
}

func TestLoadPost_InvalidName(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "_posts/hello.md", "x")

	_, err := LoadPost(path, baseContext(), nil, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNaming))
}

func TestPostSummaryOmitsSite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "_posts/2024-03-05-hello.md", "---\ntitle: Hello\n---\n*hi*\n")

	post, err := LoadPost(path, baseContext(), nil, nil)
	require.NoError(t, err)

	s := post.Summary()
	assert.False(t, s.Has("site"))
	assert.True(t, post.Context().Has("site"))
	content, _ := s.GetString("content")
	assert.Equal(t, "<p><em>hi</em></p>\n", content)
}

func TestPostWrite_IgnoresPermalink(t *testing.T) {
	dir := t.TempDir()
	deploy := filepath.Join(dir, "_deploy")
	layouts := layoutSet(t, dir, map[string]string{"default.html": "<main>{{ .content }}</main>"})
	path := writeFile(t, dir, "_posts/2024-03-05-hello.md", "---\nlayout: default\npermalink: /elsewhere/\n---\nHi\n")

	post, err := LoadPost(path, baseContext(), layouts, nil)
	require.NoError(t, err)

	target, err := post.Write(deploy)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(deploy, "2024", "03", "05", "hello", "index.html"), target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "<main><p>Hi</p>\n</main>", string(data))
}

func TestSortByDate_Stable(t *testing.T) {
	dir := t.TempDir()
	var posts []*Post
	for _, name := range []string{"2024-03-05-b.md", "2023-01-01-a.md", "2024-03-05-c.md"} {
		p, err := LoadPost(writeFile(t, dir, name, "x"), baseContext(), nil, nil)
		require.NoError(t, err)
		posts = append(posts, p)
	}
	SortByDate(posts)

	var slugs []string
	for _, p := range posts {
		slugs = append(slugs, p.Slug())
	}
	assert.Equal(t, []string{"a", "b", "c"}, slugs)
}

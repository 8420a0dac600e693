package document

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/meta"
)

func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func baseContext() *meta.Context {
	site := meta.New()
	site.Set("time", meta.Time(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)))
	site.Set("title", meta.String("Blog"))
	c := meta.New()
	c.Set("site", meta.Map(site))
	return c
}

func layoutSet(t *testing.T, dir string, layouts map[string]string) *LayoutSet {
	t.Helper()
	set := NewLayoutSet()
	for name, content := range layouts {
		path := writeFile(t, dir, filepath.Join("_layouts", name), content)
		l, err := LoadLayout(path, baseContext(), nil)
		require.NoError(t, err)
		set.Add(l)
	}
	return set
}

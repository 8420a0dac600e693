package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// run parses args like main does and executes the selected command.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("sitebuilder"),
		kong.Exit(func(int) { t.Fatalf("unexpected exit for %v", args) }),
		kong.Vars{"version": "test"},
	)
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	err = ctx.Run(&Global{Out: &out}, cli)
	return out.String(), err
}

func sampleSite(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "_layouts/default.html", "{{ .content }}")
	writeFile(t, root, "_posts/2024-03-05-hello.md", "---\nlayout: default\n---\nHi")
	writeFile(t, root, "robots.txt", "User-agent: *\n")
	return root
}

func TestBuildCommand(t *testing.T) {
	root := sampleSite(t)
	deployDir := filepath.Join(t.TempDir(), "public")
	history := filepath.Join(t.TempDir(), "history.db")
	metricsFile := filepath.Join(t.TempDir(), "sitebuilder.prom")

	out, err := run(t, "build", root, deployDir,
		"--concurrency", "2",
		"--history-db", history,
		"--metrics-file", metricsFile)
	require.NoError(t, err)
	assert.Contains(t, out, "1 posts, 0 pages, 1 static files")

	post, err := os.ReadFile(filepath.Join(deployDir, "2024", "03", "05", "hello", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<p>Hi</p>\n", string(post))
	assert.FileExists(t, filepath.Join(deployDir, "robots.txt"))
	assert.FileExists(t, metricsFile)

	listing, err := run(t, "history", "--db", history)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(listing), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "success")

	id := strings.Fields(lines[1])[0]
	outputs, err := run(t, "history", "--db", history, "--outputs", id)
	require.NoError(t, err)
	assert.Contains(t, outputs, "2024/03/05/hello/index.html")
	assert.Contains(t, outputs, "robots.txt")
}

func TestBuildCommand_DefaultDeployDir(t *testing.T) {
	root := sampleSite(t)
	_, err := run(t, "build", root)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "_deploy", "robots.txt"))
}

func TestBuildCommand_MissingSource(t *testing.T) {
	_, err := run(t, "build")
	require.Error(t, err)

	_, err = run(t, "build", filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
}

func TestBuildCommand_ReportsBuildErrors(t *testing.T) {
	root := sampleSite(t)
	writeFile(t, root, "_posts/hello.md", "no date")
	_, err := run(t, "build", root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hello.md")
}

func TestHistoryCommand_RequiresDB(t *testing.T) {
	_, err := run(t, "history")
	require.Error(t, err)
}

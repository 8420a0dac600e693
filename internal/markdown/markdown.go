// Package markdown converts Markdown bodies to HTML and extracts plain-text
// excerpts from the result.
package markdown

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Options controls how Markdown is rendered.
type Options struct {
	// Unsafe passes raw HTML in the source through to the output.
	Unsafe bool
	// HardWraps renders soft line breaks as <br>.
	HardWraps bool
}

// DefaultOptions is what site builds use: GitHub-flavoured Markdown with raw HTML kept.
func DefaultOptions() Options {
	return Options{Unsafe: true}
}

// Converter renders Markdown with a fixed goldmark configuration. It is safe
// for concurrent use.
type Converter struct {
	md goldmark.Markdown
}

func New(opts Options) *Converter {
	htmlOpts := []renderer.Option{html.WithXHTML()}
	if opts.Unsafe {
		htmlOpts = append(htmlOpts, html.WithUnsafe())
	}
	if opts.HardWraps {
		htmlOpts = append(htmlOpts, html.WithHardWraps())
	}
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(htmlOpts...),
	)
	return &Converter{md: md}
}

// Convert renders a Markdown body (metadata already removed) to HTML.
// Template actions pass through verbatim so they can still be evaluated
// against the document context afterwards.
func (c *Converter) Convert(body []byte) ([]byte, error) {
	protected, actions := protectActions(body)
	var buf bytes.Buffer
	if err := c.md.Convert(protected, &buf); err != nil {
		return nil, err
	}
	return restoreActions(buf.Bytes(), actions), nil
}

// Placeholders are private-use runes, which goldmark neither escapes nor
// interprets as markup.
const (
	actionOpen  = "\uE000"
	actionClose = "\uE001"
)

var (
	templateAction    = regexp.MustCompile(`(?s)\{\{.*?\}\}`)
	actionPlaceholder = regexp.MustCompile(actionOpen + `([0-9]+)` + actionClose)
)

func protectActions(body []byte) ([]byte, [][]byte) {
	var actions [][]byte
	out := templateAction.ReplaceAllFunc(body, func(m []byte) []byte {
		actions = append(actions, bytes.Clone(m))
		return []byte(actionOpen + strconv.Itoa(len(actions)-1) + actionClose)
	})
	return out, actions
}

func restoreActions(html []byte, actions [][]byte) []byte {
	if len(actions) == 0 {
		return html
	}
	return actionPlaceholder.ReplaceAllFunc(html, func(m []byte) []byte {
		i, err := strconv.Atoi(string(m[len(actionOpen) : len(m)-len(actionClose)]))
		if err != nil || i >= len(actions) {
			return m
		}
		return actions[i]
	})
}

// Transform adapts Convert to the string-in, string-out shape used by content transformers.
func (c *Converter) Transform(body string) (string, error) {
	out, err := c.Convert([]byte(body))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Excerpt returns the whitespace-collapsed text of the first paragraph in an
// HTML fragment, or "" when there is none.
func Excerpt(fragment string) string {
	nodes, err := nethtml.ParseFragment(strings.NewReader(fragment), &nethtml.Node{
		Type:     nethtml.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return ""
	}
	for _, n := range nodes {
		if p := findParagraph(n); p != nil {
			return strings.Join(strings.Fields(extractText(p)), " ")
		}
	}
	return ""
}

func findParagraph(n *nethtml.Node) *nethtml.Node {
	if n.Type == nethtml.ElementNode && n.Data == "p" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if p := findParagraph(c); p != nil {
			return p
		}
	}
	return nil
}

func extractText(n *nethtml.Node) string {
	if n.Type == nethtml.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(extractText(c))
	}
	return sb.String()
}

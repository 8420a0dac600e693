package document

import (
	stderrors "errors"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
	"git.home.luguber.info/inful/sitebuilder/internal/meta"
	"git.home.luguber.info/inful/sitebuilder/internal/render"
)

// ErrInvalidFilename is the cause of errors for post filenames that are not
// YYYY-MM-DD-slug.ext.
var ErrInvalidFilename = stderrors.New("post filename must be YYYY-MM-DD-slug.ext")

// PostName holds the components of a post filename.
type PostName struct {
	Year, Month, Day string
	Slug             string
	Date             time.Time
}

// Path is "YYYY/MM/DD".
func (n PostName) Path() string { return path.Join(n.Year, n.Month, n.Day) }

// URL is "YYYY/MM/DD/slug".
func (n PostName) URL() string { return path.Join(n.Path(), n.Slug) }

// ID is "/YYYY/MM/DD/slug" and is unique per site.
func (n PostName) ID() string { return "/" + n.URL() }

// ParseFilename splits a post filename into its date and slug. The slug may
// contain dashes; the date must be a real calendar day.
func ParseFilename(filename string) (PostName, error) {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	parts := strings.SplitN(stem, "-", 4)
	if len(parts) != 4 || parts[3] == "" {
		return PostName{}, invalidFilename(filename, "expected four dash-separated components")
	}
	y, m, d := parts[0], parts[1], parts[2]
	if !isDigits(y, 4) || !isDigits(m, 2) || !isDigits(d, 2) {
		return PostName{}, invalidFilename(filename, "date components must be numeric")
	}
	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(m)
	day, _ := strconv.Atoi(d)
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Year() != year || int(date.Month()) != month || date.Day() != day {
		return PostName{}, invalidFilename(filename, "not a calendar date")
	}
	return PostName{Year: y, Month: m, Day: d, Slug: parts[3], Date: date}, nil
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func invalidFilename(filename, reason string) error {
	return errors.NamingError("invalid post filename").
		WithCause(ErrInvalidFilename).
		WithContext("path", filename).
		WithContext("reason", reason).
		Build()
}

// NormalizeCategories merges the string forms of category and categories,
// splits on commas, trims, drops empty names and duplicates (first occurrence
// wins) and applies NFC normalization.
func NormalizeCategories(category, categories meta.Value) []string {
	joined := category.Text() + "," + categories.Text()
	var out []string
	for _, raw := range strings.Split(joined, ",") {
		name := norm.NFC.String(strings.TrimSpace(raw))
		if name == "" || slices.Contains(out, name) {
			continue
		}
		out = append(out, name)
	}
	return out
}

// Post is a dated document written to YYYY/MM/DD/slug/index.html.
type Post struct {
	*Document
	name       PostName
	categories []string
	html       string
}

// LoadPost reads a post and freezes its derived fields into its context.
func LoadPost(filename string, base *meta.Context, layouts *LayoutSet, env *render.Environment) (*Post, error) {
	name, err := ParseFilename(filename)
	if err != nil {
		return nil, err
	}
	doc, err := Load(filename, base, layouts, env)
	if err != nil {
		return nil, err
	}
	html, err := doc.Transform()
	if err != nil {
		return nil, err
	}

	category, _ := doc.ctx.Get("category")
	declared, _ := doc.ctx.Get("categories")
	cats := NormalizeCategories(category, declared)
	doc.ctx.Delete("category")

	doc.ctx.Set("date", meta.Time(name.Date))
	doc.ctx.Set("url", meta.String(name.URL()))
	doc.ctx.Set("path", meta.String(name.Path()))
	doc.ctx.Set("slug", meta.String(name.Slug))
	doc.ctx.Set("id", meta.String(name.ID()))
	doc.ctx.Set("categories", meta.Strings(cats))
	doc.ctx.Set("excerpt", meta.String(markdown.Excerpt(html)))

	return &Post{Document: doc, name: name, categories: cats, html: html}, nil
}

func (p *Post) Name() PostName       { return p.name }
func (p *Post) Date() time.Time      { return p.name.Date }
func (p *Post) Slug() string         { return p.name.Slug }
func (p *Post) URL() string          { return p.name.URL() }
func (p *Post) ID() string           { return p.name.ID() }
func (p *Post) Categories() []string { return slices.Clone(p.categories) }

// Permalink is the declared permalink override. The writer does not use it.
func (p *Post) Permalink() (string, bool) {
	v, ok := p.ctx.Get("permalink")
	if !ok || v.IsNull() {
		return "", false
	}
	return v.Text(), true
}

// Summary is the view of the post exposed through site.posts and
// site.categories: its context without the site key, plus the transformed body
// as content.
func (p *Post) Summary() *meta.Context {
	s := p.ctx.Copy()
	s.Delete("site")
	s.Set("content", meta.String(p.html))
	return s
}

// OutputPath is the deploy-relative output file.
func (p *Post) OutputPath() string {
	return filepath.Join(filepath.FromSlash(p.name.URL()), "index.html")
}

// Write renders the full layout chain to deployRoot/YYYY/MM/DD/slug/index.html
// and returns the path written.
func (p *Post) Write(deployRoot string) (string, error) {
	out, err := p.RenderChain()
	if err != nil {
		return "", err
	}
	target := filepath.Join(deployRoot, p.OutputPath())
	if err := writeOutput(target, out); err != nil {
		return "", err
	}
	return target, nil
}

// SortByDate orders posts by date, keeping load order for equal dates.
func SortByDate(posts []*Post) {
	slices.SortStableFunc(posts, func(a, b *Post) int {
		return a.Date().Compare(b.Date())
	})
}

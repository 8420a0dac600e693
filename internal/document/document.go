// Package document models the files a site is built from: layouts, pages and
// posts. Each document reads its file once, merges its own metadata into a
// private copy of the site's base context and renders itself through the
// shared render.Environment and LayoutSet.
package document

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
	"git.home.luguber.info/inful/sitebuilder/internal/meta"
	"git.home.luguber.info/inful/sitebuilder/internal/render"
)

// ErrLayoutCycle is the cause of errors returned when a layout chain revisits a layout.
var ErrLayoutCycle = stderrors.New("circular layout reference")

// Document is the behaviour shared by layouts, pages and posts.
type Document struct {
	sourcePath string
	raw        []byte
	body       string
	metadata   *meta.Context
	ctx        *meta.Context
	layouts    *LayoutSet
	env        *render.Environment
}

// Load reads path and builds a Document whose context is a copy of base with
// the file's metadata merged in. layouts may be nil.
func Load(path string, base *meta.Context, layouts *LayoutSet, env *render.Environment) (*Document, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errors.FileSystemError("failed to read document").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	return parse(path, raw, base, layouts, env)
}

func parse(path string, raw []byte, base *meta.Context, layouts *LayoutSet, env *render.Environment) (*Document, error) {
	fields, body, err := frontmatter.Parse(raw)
	if err != nil {
		return nil, errors.ConfigError("failed to decode metadata block").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	ctx := base.Copy()
	ctx.Merge(fields)
	if env == nil {
		env = render.NewEnvironment()
	}
	return &Document{
		sourcePath: path,
		raw:        raw,
		body:       string(body),
		metadata:   fields,
		ctx:        ctx,
		layouts:    layouts,
		env:        env,
	}, nil
}

func (d *Document) SourcePath() string { return d.sourcePath }

// Body is the content after the metadata block.
func (d *Document) Body() string { return d.body }

// Metadata is the document's own parsed metadata, without inherited keys.
func (d *Document) Metadata() *meta.Context { return d.metadata }

// Context is the merged context templates are evaluated against.
func (d *Document) Context() *meta.Context { return d.ctx }

// Lookup reads a key from the merged context.
func (d *Document) Lookup(key string) (meta.Value, bool) { return d.ctx.Get(key) }

// Ext is the file extension without the dot, as used for transformer lookups.
func (d *Document) Ext() string {
	return strings.TrimPrefix(filepath.Ext(d.sourcePath), ".")
}

// LayoutName is the layout the document asks to be wrapped in, or "".
func (d *Document) LayoutName() string {
	v, ok := d.ctx.Get("layout")
	if !ok {
		return ""
	}
	return v.Text()
}

// Transform applies the transformer registered for the document's extension.
func (d *Document) Transform() (string, error) {
	out, err := d.env.Transformer(d.Ext())(d.body)
	if err != nil {
		return "", errors.TemplateError("failed to transform content").
			WithCause(err).
			WithContext("path", d.sourcePath).
			WithContext("extension", d.Ext()).
			Build()
	}
	return out, nil
}

// Render evaluates the transformed body against a copy of the context and
// wraps it in the document's own layout, if that layout exists.
func (d *Document) Render() (string, error) {
	out, _, err := d.render()
	return out, err
}

func (d *Document) render() (string, *Layout, error) {
	body, err := d.Transform()
	if err != nil {
		return "", nil, err
	}
	ctx := d.ctx.Copy()
	content, err := d.env.Render(d.sourcePath, body, ctx)
	if err != nil {
		return "", nil, err
	}
	ctx.Set("content", meta.String(content))

	layout := d.layouts.Get(d.LayoutName())
	if layout == nil {
		return content, nil, nil
	}
	out, err := d.env.Render(layout.SourcePath(), layout.Content(), ctx)
	if err != nil {
		return "", nil, err
	}
	return out, layout, nil
}

// RenderChain renders the document and then every ancestor of its layout.
//
// A layout name missing from the set ends the chain without error. A layout
// that appears twice in one chain is reported as a configuration error.
func (d *Document) RenderChain() (string, error) {
	content, first, err := d.render()
	if err != nil || first == nil {
		return content, err
	}

	ctx := d.ctx.Copy()
	ctx.Set("content", meta.String(content))
	chain := []string{first.Name()}
	for next := d.layouts.Get(first.Parent()); next != nil; next = d.layouts.Get(next.Parent()) {
		if slices.Contains(chain, next.Name()) {
			chain = append(chain, next.Name())
			return "", errors.ConfigError(ErrLayoutCycle.Error()+" "+strings.Join(chain, " => ")).
				WithCause(ErrLayoutCycle).
				WithContext("path", d.sourcePath).
				Build()
		}
		chain = append(chain, next.Name())
		out, err := d.env.Render(next.SourcePath(), next.Content(), ctx)
		if err != nil {
			return "", err
		}
		ctx.Set("content", meta.String(out))
	}
	v, _ := ctx.Get("content")
	return v.Text(), nil
}

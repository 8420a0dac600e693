// Package render owns the template environment shared by every document of a
// site: the template function (filter) registry, the per-extension content
// transformer registry and a cache of parsed templates.
package render

import (
	"bytes"
	"log/slog"
	"reflect"
	"slices"
	"sync"
	"text/template"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
	"git.home.luguber.info/inful/sitebuilder/internal/meta"
)

// TransformerFunc converts a document body from its authored syntax to text
// that is ready for template evaluation.
type TransformerFunc func(body string) (string, error)

// Identity is the transformer used for extensions without a registration.
func Identity(body string) (string, error) { return body, nil }

// Environment is safe for concurrent use. Registrations are expected to happen
// before the first render; registering a filter drops cached templates.
type Environment struct {
	mu           sync.RWMutex
	funcs        template.FuncMap
	transformers map[string]TransformerFunc
	cache        map[string]*template.Template
}

// NewEnvironment returns an Environment with the default filters and the
// Markdown transformer registered for "md" and "markdown".
func NewEnvironment() *Environment {
	env := &Environment{
		funcs:        defaultFuncs(),
		transformers: make(map[string]TransformerFunc),
		cache:        make(map[string]*template.Template),
	}
	md := markdown.New(markdown.DefaultOptions())
	env.transformers["md"] = md.Transform
	env.transformers["markdown"] = md.Transform
	return env
}

// RegisterFilter makes fn callable from templates under name. fn must be a
// function with one or two results, the second being an error.
func (e *Environment) RegisterFilter(name string, fn any) error {
	if name == "" {
		return errors.ValidationError("filter name is empty").Build()
	}
	if fn == nil || reflect.TypeOf(fn).Kind() != reflect.Func {
		return errors.ValidationError("filter must be a function").
			WithContext("filter", name).
			Build()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.funcs[name]; exists {
		slog.Debug("Replacing template filter", logfields.Name(name))
	}
	e.funcs[name] = fn
	clear(e.cache)
	return nil
}

// RegisterTransformer binds a content transformer to a file extension given
// without the leading dot. Lookups are case-sensitive.
func (e *Environment) RegisterTransformer(ext string, fn TransformerFunc) error {
	if ext == "" || fn == nil {
		return errors.ValidationError("transformer needs an extension and a function").
			WithContext("extension", ext).
			Build()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.transformers[ext] = fn
	return nil
}

// Transformer returns the transformer registered for ext, or Identity.
func (e *Environment) Transformer(ext string) TransformerFunc {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if fn, ok := e.transformers[ext]; ok {
		return fn
	}
	return Identity
}

// Render evaluates tpl against ctx. name identifies the template source in
// errors. Keys absent from ctx print as text/template's "<no value>" unless
// guarded with if, with, or the default filter.
func (e *Environment) Render(name, tpl string, ctx *meta.Context) (string, error) {
	t, err := e.parse(name, tpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx.Data()); err != nil {
		return "", errors.TemplateError("failed to render template").
			WithCause(err).
			WithContext("template", name).
			Build()
	}
	return buf.String(), nil
}

func (e *Environment) parse(name, tpl string) (*template.Template, error) {
	key := name + "\x00" + tpl

	e.mu.RLock()
	t, ok := e.cache[key]
	e.mu.RUnlock()
	if ok {
		return t, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.cache[key]; ok {
		return t, nil
	}
	t, err := template.New(name).Funcs(e.funcs).Parse(tpl)
	if err != nil {
		return nil, errors.TemplateError("failed to parse template").
			WithCause(err).
			WithContext("template", name).
			Build()
	}
	e.cache[key] = t
	return t, nil
}

// Filters lists the registered filter names in sorted order.
func (e *Environment) Filters() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.funcs))
	for name := range e.funcs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

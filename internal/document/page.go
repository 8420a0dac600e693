package document

import (
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/meta"
	"git.home.luguber.info/inful/sitebuilder/internal/render"
)

// Page is a document rendered to a path mirroring its source path, minus the
// trailing page marker on the filename.
type Page struct {
	*Document
	marker string
}

func LoadPage(path, marker string, base *meta.Context, layouts *LayoutSet, env *render.Environment) (*Page, error) {
	doc, err := Load(path, base, layouts, env)
	if err != nil {
		return nil, err
	}
	return &Page{Document: doc, marker: marker}, nil
}

// OutputPath returns the deploy-relative path: the source path relative to
// siteRoot with the marker removed from the end of the filename.
func (p *Page) OutputPath(siteRoot string) (string, error) {
	absRoot, err := filepath.Abs(siteRoot)
	if err != nil {
		return "", errors.FileSystemError("failed to resolve site root").WithCause(err).Build()
	}
	absSource, err := filepath.Abs(p.sourcePath)
	if err != nil {
		return "", errors.FileSystemError("failed to resolve page path").WithCause(err).Build()
	}
	rel, err := filepath.Rel(absRoot, absSource)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.NamingError("page is outside the site root").
			WithContext("path", p.sourcePath).
			WithContext("root", siteRoot).
			Build()
	}

	dir, name := filepath.Split(rel)
	trimmed, ok := strings.CutSuffix(name, p.marker)
	if !ok || p.marker == "" || trimmed == "" {
		return "", errors.NamingError("page filename must end with the page marker").
			WithContext("path", p.sourcePath).
			WithContext("marker", p.marker).
			Build()
	}
	return filepath.Join(dir, trimmed), nil
}

// Write renders the full layout chain to the output path under deployRoot and
// returns the path written.
func (p *Page) Write(siteRoot, deployRoot string) (string, error) {
	rel, err := p.OutputPath(siteRoot)
	if err != nil {
		return "", err
	}
	out, err := p.RenderChain()
	if err != nil {
		return "", err
	}
	target := filepath.Join(deployRoot, rel)
	if err := writeOutput(target, out); err != nil {
		return "", err
	}
	return target, nil
}

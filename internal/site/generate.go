package site

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/document"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// OutputKind classifies a written file.
type OutputKind string

const (
	KindPost   OutputKind = "post"
	KindPage   OutputKind = "page"
	KindStatic OutputKind = "static"
)

// Output describes one file written to the deploy directory.
type Output struct {
	Path        string // Relative to the deploy directory, slash separated
	Source      string // Relative to the site root, slash separated
	Kind        OutputKind
	Fingerprint string // mdfp fingerprint for documents, sha256 for static files
}

// Summary is what Generate produced.
type Summary struct {
	Posts   int
	Pages   int
	Static  int
	Outputs []Output // Sorted by Path
}

// Generate writes every post, then mirrors the source tree: pages are
// rendered and everything else is copied. Directories with the private prefix
// and the deploy directory itself are skipped.
func (s *Site) Generate(ctx context.Context) (*Summary, error) {
	if err := s.expect(StateRead, "generate"); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.deployDir, 0o755); err != nil {
		return nil, errors.FileSystemError("failed to create deploy directory").
			WithCause(err).
			WithContext("path", s.deployDir).
			Build()
	}

	postOutputs, err := s.writePosts(ctx)
	if err != nil {
		return nil, err
	}
	pages, statics, err := s.walkSource()
	if err != nil {
		return nil, err
	}
	contentOutputs, err := s.writeContent(ctx, pages, statics)
	if err != nil {
		return nil, err
	}

	outputs := append(postOutputs, contentOutputs...)
	slices.SortFunc(outputs, func(a, b Output) int { return strings.Compare(a.Path, b.Path) })
	s.summary = &Summary{
		Posts:   len(postOutputs),
		Pages:   len(pages),
		Static:  len(statics),
		Outputs: outputs,
	}
	slog.Info("Site generated",
		logfields.Output(s.deployDir),
		slog.Int("posts", s.summary.Posts),
		slog.Int("pages", s.summary.Pages),
		slog.Int("static", s.summary.Static))
	s.state = StateGenerated
	return s.summary, nil
}

func (s *Site) writePosts(ctx context.Context) ([]Output, error) {
	outputs := make([]Output, len(s.posts))
	errs := make([]error, len(s.posts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, p := range s.posts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			target, err := p.Write(s.deployDir)
			if err != nil {
				errs[i] = err
				return nil
			}
			outputs[i] = s.documentOutput(p.Document, target, KindPost)
			slog.Debug("Wrote post", logfields.Path(p.SourcePath()), logfields.Output(target))
			return nil
		})
	}
	_ = g.Wait()
	if err := stderrors.Join(errs...); err != nil {
		return nil, err
	}
	return outputs, nil
}

// walkSource collects pages and static files and mirrors the directory tree.
func (s *Site) walkSource() (pages, statics []string, err error) {
	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return errors.FileSystemError("failed to walk site").
				WithCause(walkErr).
				WithContext("path", path).
				Build()
		}
		if path == s.root {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if s.skipDir(path, name) {
				return filepath.SkipDir
			}
			return s.mkdirOut(path)
		}
		if s.skipFile(name) {
			return nil
		}
		if strings.HasSuffix(name, s.cfg.PageMarker) {
			pages = append(pages, path)
		} else {
			statics = append(statics, path)
		}
		return nil
	})
	return pages, statics, err
}

func (s *Site) skipDir(path, name string) bool {
	return strings.HasPrefix(name, s.cfg.PrivatePrefix) || name == ".git" || path == s.deployDir
}

func (s *Site) skipFile(name string) bool {
	return strings.HasPrefix(name, s.cfg.PrivatePrefix) || slices.Contains(config.EnvFiles, name)
}

func (s *Site) mkdirOut(srcDir string) error {
	rel, err := filepath.Rel(s.root, srcDir)
	if err != nil {
		return errors.FileSystemError("failed to resolve directory").WithCause(err).WithContext("path", srcDir).Build()
	}
	target := filepath.Join(s.deployDir, rel)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return errors.FileSystemError("failed to create directory").WithCause(err).WithContext("path", target).Build()
	}
	return nil
}

func (s *Site) writeContent(ctx context.Context, pages, statics []string) ([]Output, error) {
	outputs := make([]Output, len(pages)+len(statics))
	errs := make([]error, len(outputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, path := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			out, err := s.writePage(path)
			outputs[i], errs[i] = out, err
			return nil
		})
	}
	for j, path := range statics {
		i := len(pages) + j
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			out, err := s.copyStatic(path)
			outputs[i], errs[i] = out, err
			return nil
		})
	}
	_ = g.Wait()
	if err := stderrors.Join(errs...); err != nil {
		return nil, err
	}
	return outputs, nil
}

func (s *Site) writePage(path string) (Output, error) {
	page, err := document.LoadPage(path, s.cfg.PageMarker, s.base, s.layouts, s.env)
	if err != nil {
		return Output{}, err
	}
	target, err := page.Write(s.root, s.deployDir)
	if err != nil {
		return Output{}, err
	}
	slog.Debug("Wrote page", logfields.Path(path), logfields.Output(target))
	return s.documentOutput(page.Document, target, KindPage), nil
}

func (s *Site) documentOutput(doc *document.Document, target string, kind OutputKind) Output {
	fp, err := doc.Fingerprint()
	if err != nil {
		slog.Warn("Failed to fingerprint document", logfields.Path(doc.SourcePath()), logfields.Error(err))
	}
	return Output{
		Path:        s.relOut(target),
		Source:      s.relSource(doc.SourcePath()),
		Kind:        kind,
		Fingerprint: fp,
	}
}

// copyStatic copies a file byte for byte, keeping its permission bits.
func (s *Site) copyStatic(path string) (Output, error) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return Output{}, errors.FileSystemError("failed to resolve file").WithCause(err).WithContext("path", path).Build()
	}
	target := filepath.Join(s.deployDir, rel)
	sum, err := copyFile(path, target)
	if err != nil {
		return Output{}, errors.FileSystemError("failed to copy file").
			WithCause(err).
			WithContext("path", path).
			WithContext("output", target).
			Build()
	}
	return Output{
		Path:        s.relOut(target),
		Source:      filepath.ToSlash(rel),
		Kind:        KindStatic,
		Fingerprint: sum,
	}, nil
}

func copyFile(src, dst string) (string, error) {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return "", err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	out, err := os.OpenFile(filepath.Clean(dst), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return "", err
	}
	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(out, h), in); err != nil {
		_ = out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (s *Site) relOut(target string) string {
	rel, err := filepath.Rel(s.deployDir, target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	return filepath.ToSlash(rel)
}

func (s *Site) relSource(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

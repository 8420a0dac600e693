package site

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/document"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/meta"
)

// Read loads layouts and posts, sorts posts by date and publishes posts and
// categories on the shared site context. Every load failure is reported; the
// site stays in the created state when any occurs.
func (s *Site) Read(ctx context.Context) error {
	if err := s.expect(StateCreated, "read"); err != nil {
		return err
	}
	if err := s.readLayouts(); err != nil {
		return err
	}
	if err := s.readPosts(ctx); err != nil {
		return err
	}
	s.publishPosts()

	slog.Info("Site read",
		logfields.Path(s.root),
		slog.Int("layouts", s.layouts.Len()),
		slog.Int("posts", len(s.posts)),
		slog.Int("categories", s.categories.Len()))
	s.state = StateRead
	return nil
}

func (s *Site) readLayouts() error {
	files, err := s.sourceFiles(s.layoutsDir())
	if err != nil {
		return err
	}
	var errs []error
	for _, path := range files {
		l, err := document.LoadLayout(path, s.base, s.env)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if prev := s.layouts.Add(l); prev != nil {
			slog.Warn("Layout name collision; last loaded wins",
				logfields.Layout(l.Name()),
				logfields.Path(l.SourcePath()),
				slog.String("replaced", prev.SourcePath()))
		}
		slog.Debug("Loaded layout", logfields.Layout(l.Name()), logfields.Path(path))
	}
	return stderrors.Join(errs...)
}

// layoutsDir is the configured layouts directory, or the legacy "_layout"
// when the default one does not exist but the legacy one does.
func (s *Site) layoutsDir() string {
	dir := s.cfg.LayoutsDir
	if dir != config.DefaultLayoutsDir || isDir(filepath.Join(s.root, dir)) {
		return dir
	}
	if isDir(filepath.Join(s.root, config.LegacyLayoutsDir)) {
		slog.Debug("Using legacy layouts directory", logfields.Path(config.LegacyLayoutsDir))
		return config.LegacyLayoutsDir
	}
	return dir
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (s *Site) readPosts(ctx context.Context) error {
	files, err := s.sourceFiles(s.cfg.PostsDir)
	if err != nil {
		return err
	}

	posts := make([]*document.Post, len(files))
	errs := make([]error, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			post, err := document.LoadPost(path, s.base, s.layouts, s.env)
			if err != nil {
				errs[i] = err
				return nil
			}
			posts[i] = post
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := stderrors.Join(errs...); err != nil {
		return err
	}

	s.categories = aggregateCategories(posts)
	document.SortByDate(posts)
	s.posts = posts
	return nil
}

// publishPosts exposes site.posts and site.categories. Each post contributes
// one summary value shared between both.
func (s *Site) publishPosts() {
	summaries := make(map[*document.Post]meta.Value, len(s.posts))
	list := make([]meta.Value, 0, len(s.posts))
	for _, p := range s.posts {
		v := meta.Map(p.Summary())
		summaries[p] = v
		list = append(list, v)
	}
	s.siteCtx.Set("posts", meta.List(list...))
	s.siteCtx.Set("categories", meta.Map(s.categories.Context(summaries)))
}

// sourceFiles lists the loadable files of a source subdirectory in directory
// order. A missing directory holds no files. Names starting with "__" or "."
// are ignored, as are subdirectories.
func (s *Site) sourceFiles(dir string) ([]string, error) {
	full := filepath.Join(s.root, dir)
	entries, err := os.ReadDir(full)
	if os.IsNotExist(err) {
		slog.Debug("Source directory missing", logfields.Path(full))
		return nil, nil
	}
	if err != nil {
		return nil, errors.FileSystemError("failed to list source directory").
			WithCause(err).
			WithContext("path", full).
			Build()
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "__") || strings.HasPrefix(name, ".") {
			continue
		}
		files = append(files, filepath.Join(full, name))
	}
	return files, nil
}

package document

import (
	"path/filepath"
	"slices"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/meta"
	"git.home.luguber.info/inful/sitebuilder/internal/render"
)

// Layout is a reusable wrapper template named by its file stem. Its body is
// transformed once at load time.
type Layout struct {
	*Document
	name    string
	content string
}

func LoadLayout(path string, base *meta.Context, env *render.Environment) (*Layout, error) {
	doc, err := Load(path, base, nil, env)
	if err != nil {
		return nil, err
	}
	content, err := doc.Transform()
	if err != nil {
		return nil, err
	}
	file := filepath.Base(path)
	return &Layout{
		Document: doc,
		name:     strings.TrimSuffix(file, filepath.Ext(file)),
		content:  content,
	}, nil
}

func (l *Layout) Name() string { return l.name }

// Content is the transformed body used as the template when wrapping documents.
func (l *Layout) Content() string { return l.content }

// Parent is the layout this layout declares for itself, or "".
func (l *Layout) Parent() string { return l.LayoutName() }

// LayoutSet maps layout names to layouts. It is built before rendering starts
// and only read afterwards.
type LayoutSet struct {
	byName map[string]*Layout
}

func NewLayoutSet() *LayoutSet {
	return &LayoutSet{byName: make(map[string]*Layout)}
}

// Add stores l under its name and returns the layout it replaced, if any.
func (s *LayoutSet) Add(l *Layout) *Layout {
	prev := s.byName[l.Name()]
	s.byName[l.Name()] = l
	return prev
}

// Get returns the named layout, or nil when the name is empty or unknown.
func (s *LayoutSet) Get(name string) *Layout {
	if s == nil || name == "" {
		return nil
	}
	return s.byName[name]
}

func (s *LayoutSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byName)
}

// Names returns the layout names in sorted order.
func (s *LayoutSet) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

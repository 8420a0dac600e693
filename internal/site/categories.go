package site

import (
	"slices"

	"git.home.luguber.info/inful/sitebuilder/internal/document"
	"git.home.luguber.info/inful/sitebuilder/internal/meta"
)

// Categories maps category names to posts. Names keep the order in which they
// were first seen; each category lists its posts in load order.
type Categories struct {
	names []string
	posts map[string][]*document.Post
}

func aggregateCategories(posts []*document.Post) *Categories {
	c := &Categories{posts: make(map[string][]*document.Post)}
	for _, p := range posts {
		for _, name := range p.Categories() {
			if _, seen := c.posts[name]; !seen {
				c.names = append(c.names, name)
			}
			c.posts[name] = append(c.posts[name], p)
		}
	}
	return c
}

func (c *Categories) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

func (c *Categories) Names() []string {
	if c == nil {
		return nil
	}
	return slices.Clone(c.names)
}

// Posts returns the posts filed under name.
func (c *Categories) Posts(name string) []*document.Post {
	if c == nil {
		return nil
	}
	return slices.Clone(c.posts[name])
}

// Context renders the aggregation as category -> list of post summaries.
func (c *Categories) Context(summaries map[*document.Post]meta.Value) *meta.Context {
	out := meta.New()
	if c == nil {
		return out
	}
	for _, name := range c.names {
		items := make([]meta.Value, 0, len(c.posts[name]))
		for _, p := range c.posts[name] {
			items = append(items, summaries[p])
		}
		out.Set(name, meta.List(items...))
	}
	return out
}

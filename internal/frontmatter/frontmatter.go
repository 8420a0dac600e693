package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitebuilder/internal/meta"
)

// ErrInvalidMetadata indicates a metadata block that is present but cannot be
// decoded into a mapping.
var ErrInvalidMetadata = errors.New("invalid metadata block")

// maxDepth bounds nesting so alias loops in hand-written YAML cannot recurse forever.
const maxDepth = 64

// Split separates a `---` delimited metadata block from the body.
//
// The block is recognized only when the very first line is a marker line. The
// inner text runs up to the next marker line; the body is everything after it.
// Marker lines may carry trailing whitespace and CRLF endings. If the document
// does not open with a marker, or the block is never closed, had is false and
// body is the full input.
func Split(content []byte) (block []byte, body []byte, had bool) {
	first, rest, ok := cutLine(content)
	if !ok || !isMarker(first) {
		return nil, content, false
	}
	start := len(content) - len(rest)
	for len(rest) > 0 {
		line, next, _ := cutLine(rest)
		if isMarker(line) {
			end := len(content) - len(rest)
			if next == nil {
				next = []byte{}
			}
			return content[start:end], next, true
		}
		rest = next
	}
	return nil, content, false
}

// Parse extracts the metadata block and body from a document.
//
// Parsing is total: a document without a block, with a blank block, or with a
// block that decodes to nothing yields empty metadata and the unchanged input
// as body. A block that fails to decode returns ErrInvalidMetadata.
func Parse(content []byte) (*meta.Context, []byte, error) {
	block, body, had := Split(content)
	if !had || len(bytes.TrimSpace(block)) == 0 {
		return meta.New(), content, nil
	}
	fields, err := ParseYAML(block)
	if err != nil {
		return nil, nil, err
	}
	if fields.Len() == 0 {
		return meta.New(), content, nil
	}
	return fields, body, nil
}

// ParseYAML decodes raw YAML (without --- delimiters) into an ordered Context.
// Keys keep the order in which they appear in the document.
func ParseYAML(block []byte) (*meta.Context, error) {
	if len(bytes.TrimSpace(block)) == 0 {
		return meta.New(), nil
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(block, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMetadata, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return meta.New(), nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null" {
		return meta.New(), nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping (line %d)", ErrInvalidMetadata, root.Line)
	}
	return contextFromMapping(root, 0)
}

func contextFromMapping(n *yaml.Node, depth int) (*meta.Context, error) {
	c := meta.New()
	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valNode := n.Content[i], n.Content[i+1]
		if keyNode.ShortTag() == "!!merge" {
			if err := mergeInto(c, valNode, depth); err != nil {
				return nil, err
			}
			continue
		}
		v, err := valueFromNode(valNode, depth+1)
		if err != nil {
			return nil, err
		}
		c.Set(keyNode.Value, v)
	}
	return c, nil
}

// mergeInto applies a YAML merge key (<<). Keys already present win.
func mergeInto(c *meta.Context, n *yaml.Node, depth int) error {
	v, err := valueFromNode(n, depth+1)
	if err != nil {
		return err
	}
	var sources []meta.Value
	if items, ok := v.AsList(); ok {
		sources = items
	} else {
		sources = []meta.Value{v}
	}
	for _, src := range sources {
		m, ok := src.AsMap()
		if !ok {
			return fmt.Errorf("%w: merge key must reference a mapping (line %d)", ErrInvalidMetadata, n.Line)
		}
		m.Range(func(k string, val meta.Value) bool {
			if !c.Has(k) {
				c.Set(k, val)
			}
			return true
		})
	}
	return nil
}

func valueFromNode(n *yaml.Node, depth int) (meta.Value, error) {
	if depth > maxDepth {
		return meta.Null(), fmt.Errorf("%w: nesting deeper than %d levels (line %d)", ErrInvalidMetadata, maxDepth, n.Line)
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return meta.Null(), nil
		}
		return valueFromNode(n.Content[0], depth+1)
	case yaml.AliasNode:
		return valueFromNode(n.Alias, depth+1)
	case yaml.MappingNode:
		c, err := contextFromMapping(n, depth)
		if err != nil {
			return meta.Null(), err
		}
		return meta.Map(c), nil
	case yaml.SequenceNode:
		items := make([]meta.Value, 0, len(n.Content))
		for _, child := range n.Content {
			v, err := valueFromNode(child, depth+1)
			if err != nil {
				return meta.Null(), err
			}
			items = append(items, v)
		}
		return meta.List(items...), nil
	case yaml.ScalarNode:
		if n.ShortTag() == "!!timestamp" {
			var t time.Time
			if err := n.Decode(&t); err == nil {
				return meta.Time(t), nil
			}
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return meta.Null(), fmt.Errorf("%w: %w", ErrInvalidMetadata, err)
		}
		return meta.FromAny(v), nil
	}
	return meta.Null(), nil
}

func cutLine(b []byte) (line, rest []byte, found bool) {
	i := bytes.IndexByte(b, '\n')
	if i < 0 {
		return b, nil, false
	}
	return b[:i], b[i+1:], true
}

func isMarker(line []byte) bool {
	return string(bytes.TrimRight(line, " \t\r")) == "---"
}

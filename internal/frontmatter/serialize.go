package frontmatter

import (
	"bytes"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitebuilder/internal/meta"
)

// SerializeYAML renders metadata back to YAML bytes (without delimiters).
//
// Keys are written in the Context's order, so the output is as deterministic as
// the Context that produced it. An empty Context yields an empty slice.
func SerializeYAML(fields *meta.Context) ([]byte, error) {
	if fields.Len() == 0 {
		return []byte{}, nil
	}

	node, err := nodeFromContext(fields)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func nodeFromContext(c *meta.Context) (*yaml.Node, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	var err error
	c.Range(func(k string, v meta.Value) bool {
		var valNode *yaml.Node
		valNode, err = nodeFromValue(v)
		if err != nil {
			return false
		}
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
		n.Content = append(n.Content, keyNode, valNode)
		return true
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

func nodeFromValue(v meta.Value) (*yaml.Node, error) {
	switch v.Kind() {
	case meta.KindNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case meta.KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.Text()}, nil
	case meta.KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: v.Text()}, nil
	case meta.KindInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: v.Text()}, nil
	case meta.KindFloat:
		f, _ := v.AsFloat()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(f, 'g', -1, 64)}, nil
	case meta.KindTime:
		t, _ := v.AsTime()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!timestamp", Value: t.Format(time.RFC3339Nano)}, nil
	case meta.KindMap:
		m, _ := v.AsMap()
		return nodeFromContext(m)
	case meta.KindList:
		items, _ := v.AsList()
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range items {
			node, err := nodeFromValue(item)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, node)
		}
		return seq, nil
	default:
		// Fall back to yaml's own encoding for host-provided values.
		var node yaml.Node
		if err := node.Encode(v.Interface()); err != nil {
			return nil, err
		}
		return &node, nil
	}
}

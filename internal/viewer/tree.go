// Package viewer renders arbitrary JSON-shaped values as a read-only tree.
package viewer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Kind classifies a tree node.
type Kind string

const (
	KindObject Kind = "object"
	KindArray  Kind = "array"
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindBool   Kind = "bool"
	KindNull   Kind = "null"
)

// RootKey labels the top node of every tree.
const RootKey = "root"

// Node is one entry of the rendered tree. Leaves carry Value; objects and
// arrays carry Children, object keys sorted.
type Node struct {
	Key      string
	Kind     Kind
	Value    string
	Children []*Node
}

// Leaf reports whether the node has no children by kind.
func (n *Node) Leaf() bool {
	return n.Kind != KindObject && n.Kind != KindArray
}

// Summary describes a container, e.g. "{} 3 keys" or "[] 2 items".
func (n *Node) Summary() string {
	switch n.Kind {
	case KindObject:
		return plural("{}", len(n.Children), "key")
	case KindArray:
		return plural("[]", len(n.Children), "item")
	}
	return ""
}

// Build converts v into a tree through its JSON encoding. A nil value (or
// one that encodes to null) yields no tree.
func Build(v any) (*Node, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	if decoded == nil {
		return nil, nil
	}
	return build(RootKey, decoded), nil
}

func build(key string, v any) *Node {
	switch x := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		n := &Node{Key: key, Kind: KindObject, Children: make([]*Node, 0, len(keys))}
		for _, k := range keys {
			n.Children = append(n.Children, build(k, x[k]))
		}
		return n
	case []any:
		n := &Node{Key: key, Kind: KindArray, Children: make([]*Node, 0, len(x))}
		for i, item := range x {
			n.Children = append(n.Children, build(strconv.Itoa(i), item))
		}
		return n
	case string:
		return &Node{Key: key, Kind: KindString, Value: x}
	case json.Number:
		return &Node{Key: key, Kind: KindNumber, Value: x.String()}
	case bool:
		return &Node{Key: key, Kind: KindBool, Value: strconv.FormatBool(x)}
	default:
		return &Node{Key: key, Kind: KindNull, Value: "null"}
	}
}

// WriteText renders the tree with two-space indentation. A nil tree writes
// nothing.
func WriteText(w io.Writer, n *Node) error {
	if n == nil {
		return nil
	}
	var b strings.Builder
	writeText(&b, n, 0)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeText(b *strings.Builder, n *Node, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(n.Key)
	b.WriteString(": ")
	switch {
	case !n.Leaf():
		b.WriteString(n.Summary())
	case n.Kind == KindString:
		b.WriteString(strconv.Quote(n.Value))
	default:
		b.WriteString(n.Value)
	}
	b.WriteByte('\n')
	for _, c := range n.Children {
		writeText(b, c, depth+1)
	}
}

func plural(prefix string, n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%s 1 %s", prefix, noun)
	}
	return fmt.Sprintf("%s %d %ss", prefix, n, noun)
}

// Package yamlnode exposes gopkg.in/yaml.v3 node trees as proxy containers.
//
// Mapping nodes become string-keyed containers in document order and
// sequence nodes become integer-keyed containers. Scalar children are decoded
// into Go values on read; mapping and sequence children are returned as
// *yaml.Node so nested accessors edit the same tree. Documents unwrap to their
// content and aliases follow their anchor.
//
// Chain the introspector in front of the reflect-backed one to handle mixed
// values:
//
//	in := target.Chain(yamlnode.Introspector(), introspect.Default())
//	p, err := proxy.New(&doc, proxy.WithIntrospector(in))
package yamlnode

import (
	"errors"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"keyproxy/pkg/target"
)

const (
	tagNull = "!!null"
	tagStr  = "!!str"
	tagMap  = "!!map"
)

var (
	// ErrKeyType indicates a key the node kind cannot be indexed by: integers
	// on mappings, strings and negative integers on sequences.
	ErrKeyType = errors.New("yamlnode: key type not accepted by node")
	// ErrEncode indicates a Go value that could not be encoded into a node.
	ErrEncode = errors.New("yamlnode: cannot encode value")
	// ErrIndexRange indicates a sequence index further than MaxGrowth past the
	// end of the sequence.
	ErrIndexRange = errors.New("yamlnode: index too far past the end of the sequence")
)

// MaxGrowth bounds how many nodes a single Store may add to a sequence, null
// padding included.
const MaxGrowth = 1 << 16

// Introspector returns the *yaml.Node introspector. Slots are inspected by
// the value they hold. Other values are refused with
// target.ErrUnsupportedOperation so the introspector chains cleanly.
func Introspector() target.Introspector {
	return target.IntrospectorFunc(inspect)
}

func inspect(value any) (target.Target, error) {
	n, ok := target.Unslot(value).(*yaml.Node)
	if !ok || n == nil {
		return target.Target{}, fmt.Errorf("%w: %T is not a yaml node", target.ErrUnsupportedOperation, value)
	}
	n = follow(n)
	switch n.Kind {
	case yaml.MappingNode:
		return target.FromContainer(&mapping{node: n}), nil
	case yaml.SequenceNode:
		return target.FromContainer(&sequence{node: n}), nil
	default:
		return target.Target{}, fmt.Errorf("%w: yaml %s is a scalar value", target.ErrUnsupportedOperation, kindName(n.Kind))
	}
}

// follow unwraps documents and aliases.
func follow(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch {
		case n.Kind == yaml.DocumentNode && len(n.Content) == 1:
			n = n.Content[0]
		case n.Kind == yaml.AliasNode && n.Alias != nil:
			n = n.Alias
		default:
			return n
		}
	}
	return n
}

// decode returns collection nodes as-is and scalars as Go values.
func decode(n *yaml.Node) any {
	n = follow(n)
	if n == nil {
		return nil
	}
	if n.Kind != yaml.ScalarNode {
		return n
	}
	var out any
	if err := n.Decode(&out); err != nil {
		return n.Value
	}
	return out
}

func isNull(n *yaml.Node) bool {
	n = follow(n)
	return n == nil || (n.Kind == yaml.ScalarNode && n.ShortTag() == tagNull)
}

// encode converts value to a node. Nodes are stored as given so callers can
// graft existing subtrees.
func encode(value any) (*yaml.Node, error) {
	if n, ok := value.(*yaml.Node); ok && n != nil {
		return n, nil
	}
	n := &yaml.Node{}
	if err := n.Encode(value); err != nil {
		return nil, fmt.Errorf("%w: %T: %w", ErrEncode, value, err)
	}
	return n, nil
}

func nullNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagNull, Value: "null"}
}

func emptyMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: tagMap}
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "empty node"
	}
}

// mapping adapts a mapping node. Content alternates key and value nodes.
type mapping struct {
	node *yaml.Node
}

func (m *mapping) Value() any {
	return m.node
}

func (m *mapping) Keys() []target.Key {
	keys := make([]target.Key, 0, len(m.node.Content)/2)
	for i := 0; i+1 < len(m.node.Content); i += 2 {
		keys = append(keys, target.StringKey(m.node.Content[i].Value))
	}
	return keys
}

// index returns the position of the value node under key.
func (m *mapping) index(key target.Key) (int, bool) {
	if key.IsInt() {
		return 0, false
	}
	name := key.String()
	for i := 0; i+1 < len(m.node.Content); i += 2 {
		if m.node.Content[i].Value == name {
			return i + 1, true
		}
	}
	return 0, false
}

func (m *mapping) Lookup(key target.Key) (any, bool) {
	i, ok := m.index(key)
	if !ok {
		return nil, false
	}
	return decode(m.node.Content[i]), true
}

func (m *mapping) Ref(key target.Key) (any, bool) {
	return m.Lookup(key)
}

func (m *mapping) Initialised(key target.Key) bool {
	i, ok := m.index(key)
	return ok && !isNull(m.node.Content[i])
}

func (m *mapping) Store(key target.Key, value any) error {
	if key.IsInt() {
		return fmt.Errorf("%w: %s on mapping", ErrKeyType, key)
	}
	n, err := encode(value)
	if err != nil {
		return err
	}
	if i, ok := m.index(key); ok {
		m.node.Content[i] = n
		return nil
	}
	m.node.Content = append(m.node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: tagStr, Value: key.String()},
		n,
	)
	return nil
}

func (m *mapping) Delete(key target.Key) error {
	if i, ok := m.index(key); ok {
		m.node.Content = slices.Delete(m.node.Content, i-1, i+1)
	}
	return nil
}

func (m *mapping) Initialise(key target.Key) (any, error) {
	fresh := emptyMapping()
	if err := m.Store(key, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// sequence adapts a sequence node.
type sequence struct {
	node *yaml.Node
}

func (s *sequence) Value() any {
	return s.node
}

func (s *sequence) Keys() []target.Key {
	keys := make([]target.Key, len(s.node.Content))
	for i := range s.node.Content {
		keys[i] = target.IntKey(i)
	}
	return keys
}

func (s *sequence) index(key target.Key) (int, bool) {
	i, ok := key.Int()
	if !ok || i < 0 || i >= len(s.node.Content) {
		return 0, false
	}
	return i, true
}

func (s *sequence) Lookup(key target.Key) (any, bool) {
	i, ok := s.index(key)
	if !ok {
		return nil, false
	}
	return decode(s.node.Content[i]), true
}

func (s *sequence) Ref(key target.Key) (any, bool) {
	return s.Lookup(key)
}

func (s *sequence) Initialised(key target.Key) bool {
	i, ok := s.index(key)
	return ok && !isNull(s.node.Content[i])
}

// Store replaces in range and appends otherwise, padding any gap with nulls
// up to MaxGrowth new nodes.
func (s *sequence) Store(key target.Key, value any) error {
	i, ok := key.Int()
	if !ok || i < 0 {
		return fmt.Errorf("%w: %s on sequence", ErrKeyType, key)
	}
	if i-len(s.node.Content) >= MaxGrowth {
		return fmt.Errorf("%w: index %d, length %d", ErrIndexRange, i, len(s.node.Content))
	}
	n, err := encode(value)
	if err != nil {
		return err
	}
	for len(s.node.Content) < i {
		s.node.Content = append(s.node.Content, nullNode())
	}
	if i == len(s.node.Content) {
		s.node.Content = append(s.node.Content, n)
		return nil
	}
	s.node.Content[i] = n
	return nil
}

func (s *sequence) Delete(key target.Key) error {
	if i, ok := s.index(key); ok {
		s.node.Content = slices.Delete(s.node.Content, i, i+1)
	}
	return nil
}

func (s *sequence) Initialise(key target.Key) (any, error) {
	fresh := emptyMapping()
	if err := s.Store(key, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

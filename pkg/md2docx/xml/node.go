package xml

import (
	"maps"
	"slices"
	"strings"
)

// NodeType identifies the kind of a Node.
type NodeType int

const (
	ElementNode NodeType = iota
	TextNode
	CommentNode
	ProcInstNode
	DirectiveNode
)

// Attr is a single attribute. Prefix is kept exactly as written; URI is the resolved
// namespace ("" for unprefixed attributes).
type Attr struct {
	Prefix string
	Local  string
	URI    string
	Value  string
}

// Name returns the attribute name as it is serialised.
func (a Attr) Name() string {
	if a.Prefix == "" {
		return a.Local
	}
	return a.Prefix + ":" + a.Local
}

// Node is one node of a parsed XML part.
//
// For elements Prefix/Local/URI name the element and Attrs holds the attributes
// (namespace declarations included, in document order). For text and comments Data
// holds the content. For processing instructions Local is the target and Data the
// instruction body.
type Node struct {
	Type     NodeType
	Prefix   string
	Local    string
	URI      string
	Attrs    []Attr
	Data     string
	Children []*Node
	Parent   *Node
}

// NewElement creates a detached element.
func NewElement(prefix, local, uri string, attrs ...Attr) *Node {
	return &Node{Type: ElementNode, Prefix: prefix, Local: local, URI: uri, Attrs: attrs}
}

// NewText creates a detached text node.
func NewText(data string) *Node {
	return &Node{Type: TextNode, Data: data}
}

// Name returns the element name as it is serialised.
func (n *Node) Name() string {
	if n.Prefix == "" {
		return n.Local
	}
	return n.Prefix + ":" + n.Local
}

// Is reports whether n is an element with the given namespace and local name.
func (n *Node) Is(uri, local string) bool {
	return n != nil && n.Type == ElementNode && n.URI == uri && n.Local == local
}

// Attr looks up an attribute by namespace and local name.
func (n *Node) Attr(uri, local string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attrs {
		if a.URI == uri && a.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// AttrValue is Attr without the presence flag.
func (n *Node) AttrValue(uri, local string) string {
	v, _ := n.Attr(uri, local)
	return v
}

// SetAttr replaces the value of an existing attribute or appends a new one.
func (n *Node) SetAttr(prefix, local, uri, value string) {
	for i := range n.Attrs {
		if n.Attrs[i].URI == uri && n.Attrs[i].Local == local {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Prefix: prefix, Local: local, URI: uri, Value: value})
}

// RemoveAttr drops an attribute if present.
func (n *Node) RemoveAttr(uri, local string) {
	n.Attrs = slices.DeleteFunc(n.Attrs, func(a Attr) bool {
		return a.URI == uri && a.Local == local
	})
}

// Elements returns the element children of n.
func (n *Node) Elements() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Type == ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// Child returns the first element child with the given name.
func (n *Node) Child(uri, local string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Is(uri, local) {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns all element children with the given name.
func (n *Node) ChildrenNamed(uri, local string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Is(uri, local) {
			out = append(out, c)
		}
	}
	return out
}

// Walk visits n and its descendants in document order. Returning false from fn
// skips the children of the node just visited.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	// Children may be replaced by fn; iterate over a snapshot.
	for _, c := range slices.Clone(n.Children) {
		c.Walk(fn)
	}
}

// FindAll returns the descendants of n (n excluded) with the given name, in
// document order.
func (n *Node) FindAll(uri, local string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		c.Walk(func(d *Node) bool {
			if d.Is(uri, local) {
				out = append(out, d)
			}
			return true
		})
	}
	return out
}

// Find returns the first descendant with the given name.
func (n *Node) Find(uri, local string) *Node {
	var found *Node
	for _, c := range n.Children {
		c.Walk(func(d *Node) bool {
			if found != nil {
				return false
			}
			if d.Is(uri, local) {
				found = d
				return false
			}
			return true
		})
		if found != nil {
			break
		}
	}
	return found
}

// Ancestor returns the nearest proper ancestor with the given name.
func (n *Node) Ancestor(uri, local string) *Node {
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		if cur.Is(uri, local) {
			return cur
		}
	}
	return nil
}

// InnerText concatenates the text nodes below n.
func (n *Node) InnerText() string {
	var sb strings.Builder
	n.Walk(func(d *Node) bool {
		if d.Type == TextNode {
			sb.WriteString(d.Data)
		}
		return true
	})
	return sb.String()
}

// SetText replaces the children of n with a single text node.
func (n *Node) SetText(s string) {
	for _, c := range n.Children {
		c.Parent = nil
	}
	n.Children = nil
	n.AppendChild(NewText(s))
}

// Index returns the position of n within its parent's children, or -1.
func (n *Node) Index() int {
	if n.Parent == nil {
		return -1
	}
	return slices.Index(n.Parent.Children, n)
}

// AppendChild attaches c as the last child of n, detaching it first if needed.
func (n *Node) AppendChild(c *Node) {
	c.Remove()
	c.Parent = n
	n.Children = append(n.Children, c)
}

// InsertAt inserts nodes at position i of n's children.
func (n *Node) InsertAt(i int, nodes ...*Node) {
	for _, c := range nodes {
		c.Remove()
		c.Parent = n
	}
	if i < 0 || i > len(n.Children) {
		i = len(n.Children)
	}
	n.Children = slices.Insert(n.Children, i, nodes...)
}

// InsertAfter inserts nodes immediately after ref, which must be a child of n.
func (n *Node) InsertAfter(ref *Node, nodes ...*Node) {
	for _, c := range nodes {
		c.Remove()
	}
	n.InsertAt(slices.Index(n.Children, ref)+1, nodes...)
}

// InsertBefore inserts nodes immediately before ref, which must be a child of n.
func (n *Node) InsertBefore(ref *Node, nodes ...*Node) {
	for _, c := range nodes {
		c.Remove()
	}
	i := slices.Index(n.Children, ref)
	if i < 0 {
		i = len(n.Children)
	}
	n.InsertAt(i, nodes...)
}

// Remove detaches n from its parent.
func (n *Node) Remove() {
	if n.Parent == nil {
		return
	}
	p := n.Parent
	if i := slices.Index(p.Children, n); i >= 0 {
		p.Children = slices.Delete(p.Children, i, i+1)
	}
	n.Parent = nil
}

// RemoveChildren detaches every child of n for which drop returns true.
func (n *Node) RemoveChildren(drop func(*Node) bool) {
	kept := n.Children[:0]
	for _, c := range n.Children {
		if drop(c) {
			c.Parent = nil
			continue
		}
		kept = append(kept, c)
	}
	clear(n.Children[len(kept):])
	n.Children = kept
}

// Clone returns a deep, detached copy of n.
func (n *Node) Clone() *Node {
	c := &Node{
		Type:   n.Type,
		Prefix: n.Prefix,
		Local:  n.Local,
		URI:    n.URI,
		Attrs:  slices.Clone(n.Attrs),
		Data:   n.Data,
	}
	if len(n.Children) > 0 {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			cc := child.Clone()
			cc.Parent = c
			c.Children[i] = cc
		}
	}
	return c
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}

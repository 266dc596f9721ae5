package xml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// Document is a parsed XML part. Nodes holds every top-level node in order (XML
// declaration, comments, whitespace and the root element); Root points at the root
// element within Nodes.
type Document struct {
	Nodes []*Node
	Root  *Node
}

// NewDocument wraps root in a Document with no prolog. Bytes adds the standard
// declaration.
func NewDocument(root *Node) *Document {
	return &Document{Nodes: []*Node{root}, Root: root}
}

// ParseBytes is Parse over an in-memory part.
func ParseBytes(content []byte) (*Document, error) {
	return Parse(bytes.NewReader(content))
}

// Parse reads an XML part into a node tree.
func Parse(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	doc := &Document{}

	var stack []*Node
	scopes := []map[string]string{{"xml": NSXML}}

	attach := func(n *Node) error {
		if len(stack) == 0 {
			if n.Type == ElementNode {
				if doc.Root != nil {
					return errors.New("multiple root elements")
				}
				doc.Root = n
			}
			doc.Nodes = append(doc.Nodes, n)
			return nil
		}
		parent := stack[len(stack)-1]
		n.Parent = parent
		parent.Children = append(parent.Children, n)
		return nil
	}

	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			scope := scopes[len(scopes)-1]
			if decls := declarations(t.Attr); len(decls) > 0 {
				next := make(map[string]string, len(scope)+len(decls))
				for k, v := range scope {
					next[k] = v
				}
				for k, v := range decls {
					next[k] = v
				}
				scope = next
			}

			el := &Node{
				Type:   ElementNode,
				Prefix: t.Name.Space,
				Local:  t.Name.Local,
				URI:    scope[t.Name.Space],
				Attrs:  make([]Attr, 0, len(t.Attr)),
			}
			for _, a := range t.Attr {
				attr := Attr{Prefix: a.Name.Space, Local: a.Name.Local, Value: a.Value}
				switch {
				case a.Name.Space == "xmlns", a.Name.Space == "" && a.Name.Local == "xmlns":
					attr.URI = NSXMLNS
				case a.Name.Space != "":
					attr.URI = scope[a.Name.Space]
				}
				el.Attrs = append(el.Attrs, attr)
			}
			if err := attach(el); err != nil {
				return nil, fmt.Errorf("failed to parse xml: %w", err)
			}
			stack = append(stack, el)
			scopes = append(scopes, scope)

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("failed to parse xml: unexpected end element %s", rawName(t.Name))
			}
			top := stack[len(stack)-1]
			if top.Prefix != t.Name.Space || top.Local != t.Name.Local {
				return nil, fmt.Errorf("failed to parse xml: element %s closed by %s", top.Name(), rawName(t.Name))
			}
			stack = stack[:len(stack)-1]
			scopes = scopes[:len(scopes)-1]

		case xml.CharData:
			if err := attach(&Node{Type: TextNode, Data: string(t)}); err != nil {
				return nil, err
			}
		case xml.Comment:
			if err := attach(&Node{Type: CommentNode, Data: string(t)}); err != nil {
				return nil, err
			}
		case xml.ProcInst:
			if err := attach(&Node{Type: ProcInstNode, Local: t.Target, Data: string(t.Inst)}); err != nil {
				return nil, err
			}
		case xml.Directive:
			if err := attach(&Node{Type: DirectiveNode, Data: string(t)}); err != nil {
				return nil, err
			}
		}
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("failed to parse xml: element %s not closed", stack[len(stack)-1].Name())
	}
	if doc.Root == nil {
		return nil, errors.New("failed to parse xml: no root element")
	}
	return doc, nil
}

func declarations(attrs []xml.Attr) map[string]string {
	var decls map[string]string
	for _, a := range attrs {
		prefix, ok := "", false
		switch {
		case a.Name.Space == "xmlns":
			prefix, ok = a.Name.Local, true
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			ok = true
		}
		if !ok {
			continue
		}
		if decls == nil {
			decls = make(map[string]string)
		}
		decls[prefix] = a.Value
	}
	return decls
}

func rawName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

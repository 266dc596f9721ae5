package xml

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

// Bytes serialises the document. When the part had no XML declaration the standard
// one is written first.
func (d *Document) Bytes() []byte {
	var buf bytes.Buffer
	if len(d.Nodes) == 0 || d.Nodes[0].Type != ProcInstNode || d.Nodes[0].Local != "xml" {
		buf.WriteString(xml.Header)
	}
	for _, n := range d.Nodes {
		writeNode(&buf, n)
	}
	return buf.Bytes()
}

// WriteTo implements io.WriterTo.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(d.Bytes())
	return int64(n), err
}

// String serialises a single node and its subtree.
func (n *Node) String() string {
	var buf bytes.Buffer
	writeNode(&buf, n)
	return buf.String()
}

func writeNode(buf *bytes.Buffer, n *Node) {
	switch n.Type {
	case TextNode:
		buf.WriteString(textEscaper.Replace(n.Data))
	case CommentNode:
		buf.WriteString("<!--")
		buf.WriteString(n.Data)
		buf.WriteString("-->")
	case ProcInstNode:
		buf.WriteString("<?")
		buf.WriteString(n.Local)
		if n.Data != "" {
			buf.WriteByte(' ')
			buf.WriteString(n.Data)
		}
		buf.WriteString("?>")
	case DirectiveNode:
		buf.WriteString("<!")
		buf.WriteString(n.Data)
		buf.WriteString(">")
	case ElementNode:
		buf.WriteByte('<')
		buf.WriteString(n.Name())
		for _, a := range n.Attrs {
			buf.WriteByte(' ')
			buf.WriteString(a.Name())
			buf.WriteString(`="`)
			buf.WriteString(attrEscaper.Replace(a.Value))
			buf.WriteByte('"')
		}
		if len(n.Children) == 0 {
			buf.WriteString("/>")
			return
		}
		buf.WriteByte('>')
		for _, c := range n.Children {
			writeNode(buf, c)
		}
		buf.WriteString("</")
		buf.WriteString(n.Name())
		buf.WriteByte('>')
	}
}

var (
	textEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\r", "&#xD;",
	)
	attrEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"\t", "&#x9;",
		"\n", "&#xA;",
		"\r", "&#xD;",
	)
)

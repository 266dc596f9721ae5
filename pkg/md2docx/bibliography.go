package md2docx

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	wxml "github.com/benjaminschreck/go-md2docx/pkg/md2docx/xml"
)

// NewSourceGUID returns a braced upper-case random UUID, the form Word writes.
func NewSourceGUID() string {
	return "{" + strings.ToUpper(uuid.NewString()) + "}"
}

// BuildSourcesXML renders the bibliography part for sources. The root element of
// templateItem is kept with its attributes (style settings and namespace
// declarations); its source entries are replaced by one entry per record, in
// order. guid may be nil to use NewSourceGUID.
func BuildSourcesXML(templateItem []byte, sources []Source, guid func() string) ([]byte, error) {
	doc, err := wxml.ParseBytes(templateItem)
	if err != nil {
		return nil, WithContext(err, "parse bibliography part", nil)
	}
	root := doc.Root
	if !root.Is(wxml.NSBib, "Sources") {
		return nil, NewStructuralError("customXml", "bibliography sources",
			"root element is "+root.Name()+", not b:Sources")
	}
	if guid == nil {
		guid = NewSourceGUID
	}

	prefix := root.PrefixFor(wxml.NSBib)
	if _, bound := root.LookupNamespace(prefix); !bound {
		root.DeclareNamespace(prefix, wxml.NSBib)
	}
	bb := bibBuilder{prefix: prefix}

	root.RemoveChildren(func(*wxml.Node) bool { return true })
	written := taggedSources(sources)
	for i, src := range written {
		root.AppendChild(bb.source(src, guid(), i+1))
	}

	Debug("bibliography part rebuilt with %d sources", len(written))
	return doc.Bytes(), nil
}

// taggedSources drops records without a tag. Word cannot cite them.
func taggedSources(sources []Source) []Source {
	out := make([]Source, 0, len(sources))
	for _, src := range sources {
		if strings.TrimSpace(src.Tag) != "" {
			out = append(out, src)
		}
	}
	return out
}

type bibBuilder struct {
	prefix string
}

func (bb bibBuilder) el(local string, children ...*wxml.Node) *wxml.Node {
	n := wxml.NewElement(bb.prefix, local, wxml.NSBib)
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func (bb bibBuilder) text(local, value string) *wxml.Node {
	return bb.el(local, wxml.NewText(value))
}

func (bb bibBuilder) source(src Source, guid string, order int) *wxml.Node {
	s := bb.el("Source",
		bb.text("Tag", src.Tag),
		bb.text("SourceType", src.Type),
		bb.text("Guid", guid),
	)
	optional := func(local, value string) {
		if value != "" {
			s.AppendChild(bb.text(local, value))
		}
	}
	optional("Title", src.Title)
	optional("Year", src.Year)
	if len(src.Authors) > 0 {
		s.AppendChild(bb.authors(src.Authors))
	}
	optional("City", src.City)
	optional("Publisher", src.Publisher)
	s.AppendChild(bb.text("RefOrder", strconv.Itoa(order)))
	return s
}

// authors nests the name list the way Word does: Author/Author/NameList.
func (bb bibBuilder) authors(authors []Author) *wxml.Node {
	names := bb.el("NameList")
	for _, a := range authors {
		person := bb.el("Person")
		switch {
		case a.IsCorporate():
			person.AppendChild(bb.text("Last", a.Corporate))
		default:
			if a.Last != "" {
				person.AppendChild(bb.text("Last", a.Last))
			}
			if a.First != "" {
				person.AppendChild(bb.text("First", a.First))
			}
		}
		names.AppendChild(person)
	}
	return bb.el("Author", bb.el("Author", names))
}

// findBibliographyPart returns the name and content of the custom XML item holding
// the bibliography sources, or "" when the package has none.
func findBibliographyPart(dr *DocxReader) (string, []byte, error) {
	for _, name := range dr.CustomXMLItems() {
		content, err := dr.GetPart(name)
		if err != nil {
			return "", nil, err
		}
		doc, err := wxml.ParseBytes(content)
		if err != nil {
			Warn("skipping unreadable custom XML part %s: %v", name, err)
			continue
		}
		if doc.Root.Is(wxml.NSBib, "Sources") {
			return name, content, nil
		}
	}
	return "", nil, nil
}

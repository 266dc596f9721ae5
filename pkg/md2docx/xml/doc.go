// Package xml provides an ordered, namespace-aware node tree for the XML parts of a
// DOCX package.
//
// The linker needs to move arbitrary WordprocessingML between two documents without
// losing anything it does not understand: structured document tags, bookmarks, field
// characters, drawing markup and vendor extensions all have to survive. A typed model
// drops whatever it has no field for, so this package keeps every node instead.
//
// # Structure Organization
//
//   - node.go: Node and Attr, construction, navigation and mutation
//   - parse.go: Parse, built on encoding/xml RawToken so prefixes are kept verbatim
//   - write.go: serialisation back to bytes
//   - namespaces.go: well-known namespace URIs and declaration helpers
//
// # Key Concepts
//
// Every element records the prefix it was written with and the namespace URI that
// prefix resolved to when parsed. Matching is always done on (URI, local name), so a
// document that binds the WordprocessingML namespace to an unusual prefix still
// works. Serialisation writes the recorded prefix back out unchanged.
//
// Example:
//
//	doc, err := xml.Parse(bytes.NewReader(content))
//	if err != nil {
//	    return err
//	}
//	for _, p := range doc.Root.FindAll(xml.NSW, "p") {
//	    fmt.Println(p.AttrValue(xml.NSW, "rsidR"))
//	}
//	out := doc.Bytes()
package xml

package xml

// Namespace URIs used by the linker.
const (
	NSW          = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	NSR          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	NSPackageRel = "http://schemas.openxmlformats.org/package/2006/relationships"
	NSBib        = "http://schemas.openxmlformats.org/officeDocument/2006/bibliography"
	NSMC         = "http://schemas.openxmlformats.org/markup-compatibility/2006"
	NSContent    = "http://schemas.openxmlformats.org/package/2006/content-types"
	NSXML        = "http://www.w3.org/XML/1998/namespace"
	NSXMLNS      = "http://www.w3.org/2000/xmlns/"
)

var conventionalPrefixes = map[string]string{
	NSW:   "w",
	NSR:   "r",
	NSBib: "b",
	NSMC:  "mc",
	NSXML: "xml",
	"http://schemas.openxmlformats.org/officeDocument/2006/math":             "m",
	"http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing": "wp",
	"http://schemas.openxmlformats.org/drawingml/2006/main":                  "a",
	"http://schemas.openxmlformats.org/drawingml/2006/picture":               "pic",
	"http://schemas.microsoft.com/office/word/2010/wordprocessingDrawing":    "wp14",
	"urn:schemas-microsoft-com:vml":                                          "v",
	"urn:schemas-microsoft-com:office:office":                                "o",
	"http://schemas.microsoft.com/office/word/2010/wordml":                   "w14",
}

// Namespaces returns the namespace declarations written on n itself, keyed by
// prefix. The default namespace is keyed by "".
func (n *Node) Namespaces() map[string]string {
	decls := make(map[string]string)
	if n == nil || n.Type != ElementNode {
		return decls
	}
	for _, a := range n.Attrs {
		switch {
		case a.Prefix == "xmlns":
			decls[a.Local] = a.Value
		case a.Prefix == "" && a.Local == "xmlns":
			decls[""] = a.Value
		}
	}
	return decls
}

// LookupNamespace resolves prefix against the declarations in scope at n.
func (n *Node) LookupNamespace(prefix string) (string, bool) {
	if prefix == "xml" {
		return NSXML, true
	}
	for cur := n; cur != nil; cur = cur.Parent {
		if uri, ok := cur.Namespaces()[prefix]; ok {
			return uri, true
		}
	}
	return "", false
}

// PrefixFor returns the prefix bound to uri in scope at n. When nothing in scope
// declares uri the conventional prefix is returned.
func (n *Node) PrefixFor(uri string) string {
	for cur := n; cur != nil; cur = cur.Parent {
		for prefix, declared := range cur.Namespaces() {
			if declared == uri && prefix != "" {
				return prefix
			}
		}
	}
	return conventionalPrefixes[uri]
}

// DeclareNamespace adds an xmlns declaration for prefix on n unless n already
// declares that prefix. It reports whether a declaration was added; an existing
// declaration bound to a different URI is never overridden.
func (n *Node) DeclareNamespace(prefix, uri string) bool {
	if _, ok := n.Namespaces()[prefix]; ok {
		return false
	}
	if prefix == "" {
		n.Attrs = append(n.Attrs, Attr{Local: "xmlns", URI: NSXMLNS, Value: uri})
	} else {
		n.Attrs = append(n.Attrs, Attr{Prefix: "xmlns", Local: prefix, URI: NSXMLNS, Value: uri})
	}
	return true
}

// MergeNamespaces declares on n every prefix from decls that n does not declare yet.
// Prefixes n already binds to another URI are returned as conflicts.
func (n *Node) MergeNamespaces(decls map[string]string) (added, conflicts []string) {
	existing := n.Namespaces()
	for _, prefix := range sortedKeys(decls) {
		uri := decls[prefix]
		if have, ok := existing[prefix]; ok {
			if have != uri {
				conflicts = append(conflicts, prefix)
			}
			continue
		}
		n.DeclareNamespace(prefix, uri)
		added = append(added, prefix)
	}
	return added, conflicts
}

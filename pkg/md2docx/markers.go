package md2docx

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	wxml "github.com/benjaminschreck/go-md2docx/pkg/md2docx/xml"
)

// markerPrefix opens every placeholder token the converter leaves in the body.
const markerPrefix = "[[MD2DOCX_"

var (
	captionPattern = regexp.MustCompile(`^\[\[MD2DOCX_CAPTION_(FIG|TAB):([A-Za-z0-9_-]+)\|(.*)\]\]$`)
	inlinePattern  = regexp.MustCompile(`\[\[MD2DOCX_(?:REF:(fig|tab):([A-Za-z0-9_-]+)|CITATION:([A-Za-z0-9_-]+))\]\]`)
)

// MarkerResult summarises a marker resolution run.
type MarkerResult struct {
	Figures    int
	Tables     int
	References int
	Citations  int
	// Unresolved lists cross-references ("fig:id", "tab:id") whose id no caption
	// declared, in order of appearance.
	Unresolved []string
}

type captionKind struct {
	key   string
	label string
}

// MarkerResolver rewrites placeholder tokens into native fields. Captions are
// numbered over the whole main document first so references may precede the
// caption they point at.
type MarkerResolver struct {
	cfg          *Config
	b            wml
	kinds        map[string]captionKind
	counters     map[string]int
	numbers      map[string]map[string]int
	bookmarks    map[string]map[string]string
	taken        map[string]bool
	nextBookmark int
	result       *MarkerResult
}

// NewMarkerResolver creates a resolver for one document tree. Caption bookmark ids
// are allocated above the highest bookmark id already in doc.
func NewMarkerResolver(doc *wxml.Document, cfg *Config) *MarkerResolver {
	return &MarkerResolver{
		cfg: cfg,
		b:   newWML(doc.Root),
		kinds: map[string]captionKind{
			"fig": {key: "fig", label: cfg.FigureLabel},
			"tab": {key: "tab", label: cfg.TableLabel},
		},
		counters:     make(map[string]int),
		numbers:      map[string]map[string]int{"fig": {}, "tab": {}},
		bookmarks:    map[string]map[string]string{"fig": {}, "tab": {}},
		taken:        bookmarkNames(doc.Root),
		nextBookmark: maxBookmarkID(doc.Root),
		result:       &MarkerResult{},
	}
}

// Result returns the counts gathered so far.
func (mr *MarkerResolver) Result() *MarkerResult {
	return mr.result
}

// ResolveMarkers runs both passes over a document and verifies no token is left.
func ResolveMarkers(doc *wxml.Document, cfg *Config) (*MarkerResult, error) {
	mr := NewMarkerResolver(doc, cfg)
	mr.ResolveCaptions(doc.Root)
	mr.ResolveInline(doc.Root)
	if err := CheckNoMarkers(doc.Root, documentPart); err != nil {
		return mr.result, err
	}
	return mr.result, nil
}

// ResolveCaptions numbers every caption declaration paragraph under root and
// rewrites it into a bookmarked SEQ caption.
func (mr *MarkerResolver) ResolveCaptions(root *wxml.Node) {
	for _, p := range paragraphs(root) {
		if !strings.Contains(paragraphText(p), markerPrefix) {
			continue
		}
		mergeTextRuns(p)

		m := captionPattern.FindStringSubmatch(strings.TrimSpace(paragraphText(p)))
		if m == nil {
			continue
		}
		kind := mr.kinds[strings.ToLower(m[1])]
		id, title := m[2], strings.TrimSpace(m[3])

		mr.counters[kind.key]++
		number := mr.counters[kind.key]

		bookmark := ""
		if _, dup := mr.numbers[kind.key][id]; dup {
			Warn("%s %q declared more than once; references keep the first", kind.label, id)
		} else {
			mr.numbers[kind.key][id] = number
			bookmark = mr.claimBookmark(captionBookmarkName(kind.key, id))
			mr.bookmarks[kind.key][id] = bookmark
		}

		mr.rewriteCaption(p, kind, bookmark, title, number)
		if kind.key == "fig" {
			mr.result.Figures++
		} else {
			mr.result.Tables++
		}
		Debug("caption %s %d -> %s", kind.label, number, id)
	}
}

// claimBookmark returns name, or name with a numeric suffix when a bookmark of that
// name already exists in the document.
func (mr *MarkerResolver) claimBookmark(name string) string {
	candidate := name
	for i := 2; mr.taken[candidate]; i++ {
		suffix := "_" + strconv.Itoa(i)
		base := name
		if len(base)+len(suffix) > maxBookmarkNameLen {
			base = base[:maxBookmarkNameLen-len(suffix)]
		}
		candidate = base + suffix
	}
	mr.taken[candidate] = true
	return candidate
}

func (mr *MarkerResolver) rewriteCaption(p *wxml.Node, kind captionKind, bookmark, title string, number int) {
	b := mr.b
	p.RemoveChildren(func(n *wxml.Node) bool {
		return !n.Is(wxml.NSW, "pPr")
	})
	setParagraphStyle(p, mr.cfg.CaptionStyle)

	var bmID string
	if bookmark != "" {
		mr.nextBookmark++
		bmID = strconv.Itoa(mr.nextBookmark)
		p.AppendChild(b.el("bookmarkStart", b.attr("id", bmID), b.attr("name", bookmark)))
	}
	p.AppendChild(b.textRun(nil, kind.label+" "))
	for _, r := range b.fieldRuns(seqInstruction(kind.label), strconv.Itoa(number), nil) {
		p.AppendChild(r)
	}
	if bookmark != "" {
		p.AppendChild(b.el("bookmarkEnd", b.attr("id", bmID)))
	}
	p.AppendChild(b.textRun(nil, ". "+title))
}

// ResolveInline rewrites cross-reference and citation tokens under root. Each
// step resolves the first token of the first text node holding one, splitting its
// run; the remainder becomes a new run that later steps pick up.
func (mr *MarkerResolver) ResolveInline(root *wxml.Node) {
	for _, p := range paragraphs(root) {
		if !strings.Contains(paragraphText(p), markerPrefix) {
			continue
		}
		mergeTextRuns(p)

		for {
			t, loc := firstInlineToken(p)
			if t == nil {
				break
			}
			mr.replaceToken(t, loc)
		}
	}
}

func firstInlineToken(p *wxml.Node) (*wxml.Node, []int) {
	for _, t := range textNodes(p) {
		if loc := inlinePattern.FindStringSubmatchIndex(t.InnerText()); loc != nil {
			return t, loc
		}
	}
	return nil, nil
}

func (mr *MarkerResolver) replaceToken(t *wxml.Node, loc []int) {
	b := mr.b
	text := t.InnerText()
	before, after := text[:loc[0]], text[loc[1]:]
	group := func(i int) string {
		if loc[2*i] < 0 {
			return ""
		}
		return text[loc[2*i]:loc[2*i+1]]
	}

	run := t.Parent
	container := run.Parent
	rPr := run.Child(wxml.NSW, "rPr")

	var replacement []*wxml.Node
	if kindKey := group(1); kindKey != "" {
		replacement = mr.crossReference(kindKey, group(2), rPr)
	} else {
		tag := group(3)
		replacement = []*wxml.Node{b.citationBlock(tag, mr.cfg.CitationLCID, mr.cfg.CitationPlaceholder, rPr)}
		mr.result.Citations++
	}

	// Content of the run that follows the token moves to a new run so the
	// resolved field sits between the two halves.
	tailRun := b.run(rPr)
	if after != "" {
		tailRun.AppendChild(b.text(after))
	}
	idx := t.Index()
	for _, sibling := range append([]*wxml.Node(nil), run.Children[idx+1:]...) {
		tailRun.AppendChild(sibling)
	}
	if runHasContent(tailRun) {
		replacement = append(replacement, tailRun)
	}

	if before != "" {
		t.SetText(before)
		setSpacePreserve(t, before)
	} else {
		t.Remove()
	}

	container.InsertAfter(run, replacement...)
	if !runHasContent(run) {
		run.Remove()
	}
}

func (mr *MarkerResolver) crossReference(kindKey, id string, rPr *wxml.Node) []*wxml.Node {
	kind := mr.kinds[kindKey]
	mr.result.References++

	display := kind.label
	bookmark, ok := mr.bookmarks[kindKey][id]
	if ok {
		display = fmt.Sprintf("%s %d", kind.label, mr.numbers[kindKey][id])
	} else {
		bookmark = captionBookmarkName(kindKey, id)
		mr.result.Unresolved = append(mr.result.Unresolved, kindKey+":"+id)
		Warn("unresolved cross-reference to %s %q", kind.label, id)
	}
	return mr.b.fieldRuns(refInstruction(bookmark), display, rPr)
}

// runHasContent reports whether a run holds anything besides its properties.
func runHasContent(r *wxml.Node) bool {
	for _, c := range r.Children {
		if c.Type == wxml.ElementNode && !c.Is(wxml.NSW, "rPr") {
			return true
		}
	}
	return false
}

func setSpacePreserve(t *wxml.Node, s string) {
	if s != strings.TrimSpace(s) {
		t.SetAttr("xml", "space", wxml.NSXML, "preserve")
	}
}

// isPlainTextRun reports whether r holds nothing but optional properties and text.
func isPlainTextRun(r *wxml.Node) bool {
	if !r.Is(wxml.NSW, "r") {
		return false
	}
	hasText := false
	for _, c := range r.Elements() {
		switch {
		case c.Is(wxml.NSW, "rPr"):
		case c.Is(wxml.NSW, "t"):
			hasText = true
		default:
			return false
		}
	}
	return hasText
}

func runPropertiesEquivalent(a, b *wxml.Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}

// mergeTextRuns merges consecutive plain text runs with equivalent properties
// below p, so a token split across runs becomes a single text node.
func mergeTextRuns(p *wxml.Node) {
	var containers []*wxml.Node
	p.Walk(func(n *wxml.Node) bool {
		if n.Type != wxml.ElementNode {
			return false
		}
		if n.Is(wxml.NSW, "r") {
			return false
		}
		containers = append(containers, n)
		return true
	})

	for _, c := range containers {
		var current *wxml.Node
		for _, child := range append([]*wxml.Node(nil), c.Children...) {
			if child.Type != wxml.ElementNode {
				continue
			}
			if !isPlainTextRun(child) {
				current = nil
				continue
			}
			if current != nil && runPropertiesEquivalent(current.Child(wxml.NSW, "rPr"), child.Child(wxml.NSW, "rPr")) {
				appendRunText(current, child)
				child.Remove()
				continue
			}
			current = child
			collapseRunText(current)
		}
	}
}

// collapseRunText joins the w:t children of a plain text run into one.
func collapseRunText(r *wxml.Node) {
	texts := r.ChildrenNamed(wxml.NSW, "t")
	if len(texts) < 2 {
		return
	}
	var sb strings.Builder
	for _, t := range texts {
		sb.WriteString(t.InnerText())
	}
	for _, t := range texts[1:] {
		t.Remove()
	}
	texts[0].SetText(sb.String())
	setSpacePreserve(texts[0], sb.String())
}

func appendRunText(dst, src *wxml.Node) {
	t := dst.Child(wxml.NSW, "t")
	joined := t.InnerText()
	for _, st := range src.ChildrenNamed(wxml.NSW, "t") {
		joined += st.InnerText()
	}
	t.SetText(joined)
	setSpacePreserve(t, joined)
}

// FindMarkers returns every placeholder token left under root, in document order.
// A token without its closing brackets is cut after 60 bytes.
func FindMarkers(root *wxml.Node) []string {
	var found []string
	for _, p := range paragraphs(root) {
		text := paragraphText(p)
		for {
			i := strings.Index(text, markerPrefix)
			if i < 0 {
				break
			}
			snippet := text[i:]
			if j := strings.Index(snippet, "]]"); j >= 0 {
				snippet = snippet[:j+2]
			} else if len(snippet) > 60 {
				snippet = snippet[:60]
			}
			found = append(found, snippet)
			text = text[i+len(snippet):]
		}
	}
	return found
}

// CheckNoMarkers fails when any placeholder token text is left under root.
func CheckNoMarkers(root *wxml.Node, part string) error {
	if found := FindMarkers(root); len(found) > 0 {
		return NewStructuralError(part, "marker token", fmt.Sprintf("unresolved marker %q", found[0]))
	}
	return nil
}

package md2docx

import (
	"strings"

	wxml "github.com/benjaminschreck/go-md2docx/pkg/md2docx/xml"
)

// Landmark names used in structural errors.
const (
	landmarkBody          = "document body"
	landmarkFigureList    = "list of figures field"
	landmarkContentStart  = "first heading after the list of figures"
	landmarkReferences    = "references section"
	landmarkRegionOrdered = "sample region order"
)

// SpliceResult describes a completed splice.
type SpliceResult struct {
	// Removed is the number of template body nodes dropped from the sample region.
	Removed int
	// Inserted are the copies of the body's top-level elements, in order.
	Inserted []*wxml.Node
}

// sampleRegion is the half-open range [start, end) of template body children that
// the body content replaces.
type sampleRegion struct {
	body       *wxml.Node
	anchor     *wxml.Node
	start, end int
}

// findFigureListParagraph returns the first paragraph under root holding a TOC
// field scoped to label.
func findFigureListParagraph(root *wxml.Node, label string) *wxml.Node {
	for _, p := range paragraphs(root) {
		for _, instr := range fieldInstructions(p) {
			if isCaptionListField(instr, label) {
				return p
			}
		}
	}
	return nil
}

// isReferencesBlock reports whether a top-level w:sdt holds a heading paragraph
// whose text contains heading.
func isReferencesBlock(n *wxml.Node, headingStyle, heading string) bool {
	if !n.Is(wxml.NSW, "sdt") {
		return false
	}
	for _, p := range paragraphs(n) {
		if paragraphStyle(p) == headingStyle && strings.Contains(paragraphText(p), heading) {
			return true
		}
	}
	return false
}

// locateSampleRegion finds the region between the list of figures landmark and
// the references landmark.
func locateSampleRegion(doc *wxml.Document, cfg *Config) (*sampleRegion, error) {
	body := documentBody(doc)
	if body == nil {
		return nil, NewStructuralError(documentPart, landmarkBody, "template has no w:body")
	}

	figureList := findFigureListParagraph(body, cfg.FigureLabel)
	if figureList == nil {
		return nil, NewStructuralError(documentPart, landmarkFigureList,
			`no TOC field with \c "`+cfg.FigureLabel+`" found in template`)
	}
	anchor := topLevel(figureList, body)
	anchorIdx := anchor.Index()

	start := -1
	for i := anchorIdx + 1; i < len(body.Children); i++ {
		if paragraphStyle(body.Children[i]) == cfg.HeadingStyle {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, NewStructuralError(documentPart, landmarkContentStart,
			"no "+cfg.HeadingStyle+" paragraph follows the list of figures")
	}

	end := -1
	for i, child := range body.Children {
		if isReferencesBlock(child, cfg.HeadingStyle, cfg.ReferencesHeading) {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, NewStructuralError(documentPart, landmarkReferences,
			"no structured block with a "+cfg.HeadingStyle+" heading containing \""+cfg.ReferencesHeading+"\"")
	}
	if end < start {
		return nil, NewStructuralError(documentPart, landmarkRegionOrdered,
			"references section precedes the first content heading")
	}

	return &sampleRegion{body: body, anchor: anchor, start: start, end: end}, nil
}

// bodyContent returns the top-level elements of the body document that belong in
// the template: everything except the trailing section properties, whether they
// appear as w:sectPr or as a final paragraph carrying w:pPr/w:sectPr.
func bodyContent(body *wxml.Node) []*wxml.Node {
	elems := body.Elements()
	out := make([]*wxml.Node, 0, len(elems))
	for i, el := range elems {
		if el.Is(wxml.NSW, "sectPr") {
			continue
		}
		if i == len(elems)-1 && el.Is(wxml.NSW, "p") &&
			el.Child(wxml.NSW, "pPr").Child(wxml.NSW, "sectPr") != nil && paragraphText(el) == "" {
			continue
		}
		out = append(out, el)
	}
	return out
}

// Splice replaces the template's sample region with deep copies of the body's
// top-level content. Identifier renaming must already have been applied to body.
func Splice(template, body *wxml.Document, cfg *Config) (*SpliceResult, error) {
	region, err := locateSampleRegion(template, cfg)
	if err != nil {
		return nil, err
	}

	source := documentBody(body)
	if source == nil {
		return nil, NewStructuralError(documentPart, landmarkBody, "body document has no w:body")
	}

	tb := region.body
	removed := tb.Children[region.start:region.end]
	for _, n := range removed {
		n.Parent = nil
	}
	result := &SpliceResult{Removed: len(removed)}

	kept := append([]*wxml.Node(nil), tb.Children[:region.start]...)
	tail := append([]*wxml.Node(nil), tb.Children[region.end:]...)
	tb.Children = kept

	for _, el := range bodyContent(source) {
		clone := el.Clone()
		tb.AppendChild(clone)
		result.Inserted = append(result.Inserted, clone)
	}
	tb.Children = append(tb.Children, tail...)

	if _, conflicts := template.Root.MergeNamespaces(body.Root.Namespaces()); len(conflicts) > 0 {
		Warn("namespace prefixes bound differently in body document: %v", conflicts)
	}

	Debug("spliced %d body elements in place of %d template nodes", len(result.Inserted), result.Removed)
	return result, nil
}

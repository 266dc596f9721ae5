package md2docx

import (
	"strings"

	wxml "github.com/benjaminschreck/go-md2docx/pkg/md2docx/xml"
)

// paragraphStyle returns the w:pStyle value of a paragraph, or "".
func paragraphStyle(p *wxml.Node) string {
	if !p.Is(wxml.NSW, "p") {
		return ""
	}
	return p.Child(wxml.NSW, "pPr").Child(wxml.NSW, "pStyle").AttrValue(wxml.NSW, "val")
}

// ensureParagraphProperties returns the w:pPr of p, creating it as the first child
// when missing.
func ensureParagraphProperties(p *wxml.Node) *wxml.Node {
	if pPr := p.Child(wxml.NSW, "pPr"); pPr != nil {
		return pPr
	}
	pPr := wxml.NewElement(p.Prefix, "pPr", wxml.NSW)
	p.InsertAt(0, pPr)
	return pPr
}

// setParagraphStyle sets w:pStyle, keeping it the first child of w:pPr.
func setParagraphStyle(p *wxml.Node, style string) {
	pPr := ensureParagraphProperties(p)
	if pStyle := pPr.Child(wxml.NSW, "pStyle"); pStyle != nil {
		pStyle.SetAttr(pStyle.Prefix, "val", wxml.NSW, style)
		return
	}
	pPr.InsertAt(0, wxml.NewElement(p.Prefix, "pStyle", wxml.NSW,
		wxml.Attr{Prefix: p.Prefix, Local: "val", URI: wxml.NSW, Value: style}))
}

// setParagraphJustification sets w:jc on p. w:jc sits late in the w:pPr sequence,
// ahead of only a handful of elements.
func setParagraphJustification(p *wxml.Node, value string) {
	pPr := ensureParagraphProperties(p)
	if jc := pPr.Child(wxml.NSW, "jc"); jc != nil {
		jc.SetAttr(jc.Prefix, "val", wxml.NSW, value)
		return
	}
	jc := wxml.NewElement(p.Prefix, "jc", wxml.NSW,
		wxml.Attr{Prefix: p.Prefix, Local: "val", URI: wxml.NSW, Value: value})

	for _, c := range pPr.Elements() {
		switch c.Local {
		case "textDirection", "textAlignment", "textboxTightWrap", "outlineLvl", "divId",
			"cnfStyle", "rPr", "sectPr", "pPrChange":
			pPr.InsertBefore(c, jc)
			return
		}
	}
	pPr.AppendChild(jc)
}

// textNodes returns the w:t elements under n in document order.
func textNodes(n *wxml.Node) []*wxml.Node {
	return n.FindAll(wxml.NSW, "t")
}

// paragraphText concatenates the visible text of a paragraph.
func paragraphText(p *wxml.Node) string {
	var sb strings.Builder
	for _, t := range textNodes(p) {
		sb.WriteString(t.InnerText())
	}
	return sb.String()
}

// topLevel returns the ancestor of n (or n itself) that is a direct child of body.
func topLevel(n, body *wxml.Node) *wxml.Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Parent == body {
			return cur
		}
	}
	return nil
}

// documentBody returns the w:body of a main document part.
func documentBody(doc *wxml.Document) *wxml.Node {
	if doc == nil || !doc.Root.Is(wxml.NSW, "document") {
		return nil
	}
	return doc.Root.Child(wxml.NSW, "body")
}

// paragraphs returns every w:p under root in document order.
func paragraphs(root *wxml.Node) []*wxml.Node {
	return root.FindAll(wxml.NSW, "p")
}

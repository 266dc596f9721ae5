package md2docx

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/google/uuid"

	wxml "github.com/benjaminschreck/go-md2docx/pkg/md2docx/xml"
)

// wml builds WordprocessingML elements using the prefix the target document binds
// to the main namespace.
type wml struct {
	w string
}

func newWML(root *wxml.Node) wml {
	prefix := root.PrefixFor(wxml.NSW)
	if prefix == "" {
		prefix = "w"
	}
	return wml{w: prefix}
}

func (b wml) attr(local, value string) wxml.Attr {
	return wxml.Attr{Prefix: b.w, Local: local, URI: wxml.NSW, Value: value}
}

func (b wml) el(local string, attrs ...wxml.Attr) *wxml.Node {
	return wxml.NewElement(b.w, local, wxml.NSW, attrs...)
}

func (b wml) elWith(local string, children ...*wxml.Node) *wxml.Node {
	n := b.el(local)
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

var preserveSpace = wxml.Attr{Prefix: "xml", Local: "space", URI: wxml.NSXML, Value: "preserve"}

// text creates a w:t, preserving leading and trailing whitespace.
func (b wml) text(s string) *wxml.Node {
	t := b.el("t")
	if s != strings.TrimSpace(s) {
		t.Attrs = append(t.Attrs, preserveSpace)
	}
	t.AppendChild(wxml.NewText(s))
	return t
}

// run creates a w:r holding a copy of rPr (when non-nil) followed by children.
func (b wml) run(rPr *wxml.Node, children ...*wxml.Node) *wxml.Node {
	r := b.el("r")
	if rPr != nil {
		r.AppendChild(rPr.Clone())
	}
	for _, c := range children {
		r.AppendChild(c)
	}
	return r
}

func (b wml) textRun(rPr *wxml.Node, s string) *wxml.Node {
	return b.run(rPr, b.text(s))
}

func (b wml) fldChar(kind string) *wxml.Node {
	return b.el("fldChar", b.attr("fldCharType", kind))
}

func (b wml) noProof() *wxml.Node {
	return b.elWith("rPr", b.el("noProof"))
}

// paragraph creates a w:p with the given style (omitted when empty).
func (b wml) paragraph(style string, children ...*wxml.Node) *wxml.Node {
	p := b.el("p")
	if style != "" {
		p.AppendChild(b.elWith("pPr", b.el("pStyle", b.attr("val", style))))
	}
	for _, c := range children {
		p.AppendChild(c)
	}
	return p
}

// fieldRuns builds the five runs of a complex field: begin, instruction,
// separate, cached result, end. Every run carries a copy of rPr (which may be
// nil); the result run is additionally marked noProof.
func (b wml) fieldRuns(instruction, result string, rPr *wxml.Node) []*wxml.Node {
	instr := b.el("instrText", preserveSpace)
	instr.AppendChild(wxml.NewText(instruction))

	return []*wxml.Node{
		b.run(rPr, b.fldChar("begin")),
		b.run(rPr, instr),
		b.run(rPr, b.fldChar("separate")),
		b.run(b.withNoProof(rPr), b.text(result)),
		b.run(rPr, b.fldChar("end")),
	}
}

// rPr children that follow w:noProof in the schema sequence.
var afterNoProof = map[string]bool{
	"snapToGrid": true, "vanish": true, "webHidden": true, "color": true, "spacing": true,
	"w": true, "kern": true, "position": true, "sz": true, "szCs": true, "highlight": true,
	"u": true, "effect": true, "bdr": true, "shd": true, "fitText": true, "vertAlign": true,
	"rtl": true, "cs": true, "em": true, "lang": true, "eastAsianLayout": true,
	"specVanish": true, "oMath": true, "rPrChange": true,
}

// withNoProof returns a copy of rPr (or a new w:rPr) that includes w:noProof.
func (b wml) withNoProof(rPr *wxml.Node) *wxml.Node {
	if rPr == nil {
		return b.noProof()
	}
	out := rPr.Clone()
	if out.Child(wxml.NSW, "noProof") != nil {
		return out
	}
	np := b.el("noProof")
	for _, c := range out.Elements() {
		if c.URI == wxml.NSW && afterNoProof[c.Local] {
			out.InsertBefore(c, np)
			return out
		}
	}
	out.AppendChild(np)
	return out
}

// citationBlock builds an inline structured citation: a w:sdt flagged with
// w:citation wrapping a CITATION field.
func (b wml) citationBlock(tag string, lcid int, placeholder string, rPr *wxml.Node) *wxml.Node {
	sdtPr := b.elWith("sdtPr",
		b.el("id", b.attr("val", fmt.Sprint(citationID(tag)))),
		b.el("citation"),
	)
	content := b.elWith("sdtContent", b.fieldRuns(citationInstruction(tag, lcid), placeholder, rPr)...)
	return b.elWith("sdt", sdtPr, b.el("sdtEndPr"), content)
}

func seqInstruction(label string) string {
	return fmt.Sprintf(" SEQ %s \\* ARABIC ", label)
}

func refInstruction(bookmark string) string {
	return fmt.Sprintf(" REF %s \\h ", bookmark)
}

func citationInstruction(tag string, lcid int) string {
	return fmt.Sprintf(" CITATION %s \\l %d ", tag, lcid)
}

func tocInstruction(label string) string {
	return fmt.Sprintf(" TOC \\h \\z \\c \"%s\" ", label)
}

// citationNamespace scopes the name-based UUIDs behind citation ids.
var citationNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:md2docx:citation"))

// citationID derives a stable positive 31-bit id from a source tag, so the same
// tag always yields the same structured-tag id across builds.
func citationID(tag string) int32 {
	u := uuid.NewSHA1(citationNamespace, []byte(tag))
	id := int32(binary.BigEndian.Uint32(u[:4]) & 0x7FFFFFFF)
	if id == 0 {
		id = 1
	}
	return id
}

// fieldInstructions returns the instructions of the fields that begin in p:
// complex fields (w:instrText between begin and separate/end, nesting aware) and
// simple fields (w:fldSimple/@w:instr).
func fieldInstructions(p *wxml.Node) []string {
	var out []string
	var stack []*strings.Builder
	var collecting []bool

	p.Walk(func(n *wxml.Node) bool {
		if n.Type != wxml.ElementNode || n.URI != wxml.NSW {
			return true
		}
		switch n.Local {
		case "fldSimple":
			out = append(out, n.AttrValue(wxml.NSW, "instr"))
		case "fldChar":
			switch n.AttrValue(wxml.NSW, "fldCharType") {
			case "begin":
				stack = append(stack, &strings.Builder{})
				collecting = append(collecting, true)
			case "separate":
				if len(stack) > 0 && collecting[len(collecting)-1] {
					collecting[len(collecting)-1] = false
					out = append(out, stack[len(stack)-1].String())
				}
			case "end":
				if len(stack) > 0 {
					if collecting[len(collecting)-1] {
						out = append(out, stack[len(stack)-1].String())
					}
					stack = stack[:len(stack)-1]
					collecting = collecting[:len(collecting)-1]
				}
			}
		case "instrText":
			if len(stack) > 0 && collecting[len(collecting)-1] {
				stack[len(stack)-1].WriteString(n.InnerText())
			}
		}
		return true
	})

	// A field whose separator lies in a later paragraph.
	for i, sb := range stack {
		if collecting[i] {
			out = append(out, sb.String())
		}
	}
	return out
}

// tocCaptionLabel returns the caption label of a TOC field instruction scoped with
// \c, or "" when instr is not such a field.
func tocCaptionLabel(instr string) string {
	fields := strings.Fields(instr)
	if len(fields) == 0 || !strings.EqualFold(fields[0], "TOC") {
		return ""
	}
	for i := 1; i < len(fields)-1; i++ {
		if !strings.EqualFold(fields[i], `\c`) {
			continue
		}
		label := fields[i+1]
		if strings.HasPrefix(label, `"`) && !strings.HasSuffix(label[1:], `"`) {
			// Quoted label containing spaces.
			rest := strings.Join(fields[i+1:], " ")
			if end := strings.Index(rest[1:], `"`); end >= 0 {
				return rest[1 : end+1]
			}
			return strings.Trim(rest, `"`)
		}
		return strings.Trim(label, `"`)
	}
	return ""
}

// isCaptionListField reports whether instr is a TOC listing captions labelled label.
func isCaptionListField(instr, label string) bool {
	return tocCaptionLabel(instr) == label
}

package md2docx

import (
	"regexp"
	"strings"

	wxml "github.com/benjaminschreck/go-md2docx/pkg/md2docx/xml"
)

// CoverResult summarises a cover/TOC patch.
type CoverResult struct {
	// Substitutions counts replaced placeholder text nodes.
	Substitutions int
	// ListOfTablesInserted is set when a list of tables was added.
	ListOfTablesInserted bool
}

// PatchCover fills the cover placeholders of the template from meta and makes sure
// the template carries a list of tables next to its list of figures. Running it
// twice leaves the tree as after the first run.
func PatchCover(doc *wxml.Document, meta Metadata, cfg *Config) (*CoverResult, error) {
	body := documentBody(doc)
	if body == nil {
		return nil, NewStructuralError(documentPart, landmarkBody, "template has no w:body")
	}

	result := &CoverResult{Substitutions: applyCoverMetadata(doc.Root, meta, cfg)}

	result.ListOfTablesInserted = ensureListOfTables(body, cfg)
	return result, nil
}

func applyCoverMetadata(root *wxml.Node, meta Metadata, cfg *Config) int {
	exact := map[string]string{}
	if v := strings.TrimSpace(meta.Title); v != "" {
		exact[cfg.TitlePlaceholder] = v
	}
	if v := strings.TrimSpace(meta.Subtitle); v != "" {
		exact[cfg.SubtitlePlaceholder] = v
	}
	if v := strings.TrimSpace(meta.Author); v != "" {
		exact[cfg.AuthorLabel] = cfg.AuthorLabel + " " + v
	}
	if v := strings.TrimSpace(meta.Date); v != "" {
		exact[cfg.DateLabel] = cfg.DateLabel + " " + v
	}
	if len(exact) == 0 {
		return 0
	}

	replaced := 0
	for _, t := range textNodes(root) {
		value, ok := exact[t.InnerText()]
		if !ok {
			continue
		}
		t.SetText(value)
		setSpacePreserve(t, value)
		replaced++
	}
	Debug("cover: %d placeholders replaced", replaced)
	return replaced
}

// findCaptionListEnd returns the node closing the first TOC field scoped to label
// under body: the w:fldChar end of a complex field or the w:fldSimple itself. The
// second value is the paragraph where the field begins.
func findCaptionListEnd(body *wxml.Node, label string) (end, start *wxml.Node) {
	type openField struct {
		instr      strings.Builder
		collecting bool
		para       *wxml.Node
	}
	var stack []*openField

	body.Walk(func(n *wxml.Node) bool {
		if end != nil {
			return false
		}
		if n.Type != wxml.ElementNode || n.URI != wxml.NSW {
			return n.Type == wxml.ElementNode
		}
		switch n.Local {
		case "fldSimple":
			if isCaptionListField(n.AttrValue(wxml.NSW, "instr"), label) {
				end, start = n, n.Ancestor(wxml.NSW, "p")
			}
		case "instrText":
			if len(stack) > 0 && stack[len(stack)-1].collecting {
				stack[len(stack)-1].instr.WriteString(n.InnerText())
			}
		case "fldChar":
			switch n.AttrValue(wxml.NSW, "fldCharType") {
			case "begin":
				stack = append(stack, &openField{collecting: true, para: n.Ancestor(wxml.NSW, "p")})
			case "separate":
				if len(stack) > 0 {
					stack[len(stack)-1].collecting = false
				}
			case "end":
				if len(stack) == 0 {
					return true
				}
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if isCaptionListField(top.instr.String(), label) {
					end, start = n, top.para
				}
			}
		}
		return true
	})
	return end, start
}

// hasCaptionList reports whether a TOC field scoped to label exists under body,
// terminated or not.
func hasCaptionList(body *wxml.Node, label string) bool {
	return findFigureListParagraph(body, label) != nil
}

var captionSwitch = regexp.MustCompile(`(?i)(\\c\s+)("[^"]*"|\S+)`)

// mirrorInstruction rewrites the \c switch of a caption list instruction to label,
// keeping every other switch.
func mirrorInstruction(instr, label string) string {
	if !captionSwitch.MatchString(instr) {
		return tocInstruction(label)
	}
	replaced := false
	return captionSwitch.ReplaceAllStringFunc(instr, func(m string) string {
		if replaced {
			return m
		}
		replaced = true
		sub := captionSwitch.FindStringSubmatch(m)
		return sub[1] + `"` + label + `"`
	})
}

func ensureListOfTables(body *wxml.Node, cfg *Config) bool {
	if hasCaptionList(body, cfg.TableLabel) {
		return false
	}
	figureList := findFigureListParagraph(body, cfg.FigureLabel)
	if figureList == nil {
		Debug("template has no list of figures; list of tables not added")
		return false
	}

	var figureInstr string
	for _, instr := range fieldInstructions(figureList) {
		if isCaptionListField(instr, cfg.FigureLabel) {
			figureInstr = instr
			break
		}
	}

	after := topLevel(figureList, body)
	if end, _ := findCaptionListEnd(body, cfg.FigureLabel); end != nil {
		if closing := topLevel(end, body); closing != nil && closing.Index() > after.Index() {
			after = closing
		}
	}

	b := newWML(body)
	heading := b.paragraph(cfg.ListOfTablesHeadingStyle, b.textRun(nil, cfg.ListOfTablesHeading))

	field := b.el("p")
	if pPr := figureList.Child(wxml.NSW, "pPr"); pPr != nil {
		field.AppendChild(pPr.Clone())
	} else {
		field.AppendChild(b.elWith("pPr", b.el("pStyle", b.attr("val", "TableofFigures"))))
	}
	for _, r := range b.fieldRuns(mirrorInstruction(figureInstr, cfg.TableLabel), "", nil) {
		field.AppendChild(r)
	}

	body.InsertAfter(after, heading, field)
	Info("added list of tables after the list of figures")
	return true
}

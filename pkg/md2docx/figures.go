package md2docx

import (
	"strings"

	wxml "github.com/benjaminschreck/go-md2docx/pkg/md2docx/xml"
)

// isFigureCaption reports whether p is a caption paragraph numbered in the figure
// sequence.
func isFigureCaption(p *wxml.Node, cfg *Config) bool {
	if paragraphStyle(p) != cfg.CaptionStyle {
		return false
	}
	for _, instr := range fieldInstructions(p) {
		fields := strings.Fields(instr)
		if len(fields) >= 2 && strings.EqualFold(fields[0], "SEQ") && fields[1] == cfg.FigureLabel {
			return true
		}
	}
	return false
}

func hasGraphic(p *wxml.Node) bool {
	return p.Find(wxml.NSW, "drawing") != nil || p.Find(wxml.NSW, "pict") != nil
}

// CenterCaptionedFigures centres the image paragraph that directly follows each
// figure caption among the top-level paragraphs of body. It returns the number of
// paragraphs changed.
func CenterCaptionedFigures(body *wxml.Node, cfg *Config) int {
	paras := body.ChildrenNamed(wxml.NSW, "p")
	centred := 0
	for i := 0; i+1 < len(paras); i++ {
		if !isFigureCaption(paras[i], cfg) || !hasGraphic(paras[i+1]) {
			continue
		}
		setParagraphJustification(paras[i+1], "center")
		centred++
	}
	return centred
}

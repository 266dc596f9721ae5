// Package inspect re-reads a produced package and summarises it: the heading
// outline, the caption paragraphs and any placeholder tokens that survived.
package inspect

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/benjaminschreck/go-md2docx/pkg/md2docx"
)

var headingStyle = regexp.MustCompile(`(?i)^heading\s?([1-9])$`)

// Parts scanned for placeholder tokens, in report order.
var markerParts = []string{"word/document.xml", "word/footnotes.xml", "word/endnotes.xml"}

// Heading is one entry of the outline.
type Heading struct {
	Level int
	Text  string
}

// Result summarises a package.
type Result struct {
	Name       string
	Paragraphs int
	Outline    []Heading
	Captions   []string
	// Markers maps a part name to the placeholder tokens left in it.
	Markers map[string][]string
}

// Clean reports whether no placeholder token survived.
func (r *Result) Clean() bool {
	return len(r.Markers) == 0
}

// String renders the outline and findings as indented text.
func (r *Result) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d paragraphs, %d headings, %d captions\n", r.Name, r.Paragraphs, len(r.Outline), len(r.Captions))
	for _, h := range r.Outline {
		fmt.Fprintf(&b, "%s%s\n", strings.Repeat("  ", h.Level-1), h.Text)
	}
	for _, part := range markerParts {
		for _, m := range r.Markers[part] {
			fmt.Fprintf(&b, "residual marker in %s: %s\n", part, m)
		}
	}
	return b.String()
}

// InspectFile inspects the package at path.
func InspectFile(path string, cfg *md2docx.Config) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, md2docx.NewDocumentError("read", path, err)
	}
	return Inspect(data, path, cfg)
}

// Inspect summarises an in-memory package. A nil cfg uses the global configuration.
func Inspect(data []byte, name string, cfg *md2docx.Config) (*Result, error) {
	if cfg == nil {
		cfg = md2docx.GetGlobalConfig()
	}
	result := &Result{Name: name, Markers: make(map[string][]string)}

	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, md2docx.NewDocumentError("parse", name, err)
	}
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		result.Paragraphs++

		style := paragraphStyle(para)
		text := paragraphText(para)
		switch {
		case text == "":
		case style == cfg.CaptionStyle:
			result.Captions = append(result.Captions, text)
		case headingLevel(style) > 0:
			result.Outline = append(result.Outline, Heading{Level: headingLevel(style), Text: text})
		}
	}

	if err := scanMarkers(data, name, result); err != nil {
		return nil, err
	}

	md2docx.WithFields(md2docx.Fields{
		"package":  name,
		"headings": len(result.Outline),
		"captions": len(result.Captions),
		"markers":  len(result.Markers),
	}).Debug("Inspected package")
	return result, nil
}

// scanMarkers looks for placeholder tokens with the linker's own reader, which
// sees text inside structured tags and notes.
func scanMarkers(data []byte, name string, result *Result) error {
	dr, err := md2docx.NewDocxReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return err
	}
	dr.Name = name
	for _, part := range markerParts {
		if !dr.HasPart(part) {
			continue
		}
		tree, err := dr.ParsePart(part)
		if err != nil {
			return err
		}
		if found := md2docx.FindMarkers(tree.Root); len(found) > 0 {
			result.Markers[part] = found
		}
	}
	return nil
}

func paragraphStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return para.Properties.Style.Val
}

func headingLevel(style string) int {
	m := headingStyle.FindStringSubmatch(style)
	if m == nil {
		return 0
	}
	level, _ := strconv.Atoi(m[1])
	return level
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// Package lint checks authored markdown before it is converted: figure and table
// directives, cross-references, citations and the headings the template already
// provides.
package lint

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/benjaminschreck/go-md2docx/pkg/md2docx"
)

var (
	directivePattern = regexp.MustCompile(`^<!--\s*(figure|table)\s+(.*?)\s*-->\s*$`)
	keyValuePattern  = regexp.MustCompile(`(\w+)=("[^"]*"|\S+)`)
	figRefPattern    = regexp.MustCompile(`@fig:([A-Za-z0-9_-]+)`)
	tabRefPattern    = regexp.MustCompile(`@tab:([A-Za-z0-9_-]+)`)
	citationPattern  = regexp.MustCompile(`\[@([A-Za-z0-9_-]+)\]`)
)

var directiveKeys = []string{"id", "title", "source"}

// Options configures a check.
type Options struct {
	// Sources is the bibliography the citations are checked against.
	Sources []md2docx.Source
	// SourcesPath names the source list in the "no sources" warning.
	SourcesPath string
	// Strict turns any warning into an error.
	Strict bool
	// ReferencesHeading is the heading the template already carries. Defaults to
	// the global configuration.
	ReferencesHeading string
}

// Issue is a single finding. Line is 1-based and 0 when the finding concerns the
// whole file.
type Issue struct {
	Line    int
	Message string
}

func (i Issue) String() string {
	if i.Line > 0 {
		return fmt.Sprintf("line %d: %s", i.Line, i.Message)
	}
	return i.Message
}

// Report collects the findings of a check.
type Report struct {
	Errors   []Issue
	Warnings []Issue
	// Metadata holds the front matter of the file, if any.
	Metadata md2docx.Metadata
	// Figures and Tables are the declared ids in order of declaration.
	Figures []string
	Tables  []string
}

// OK reports whether the check found no errors.
func (r *Report) OK() bool {
	return len(r.Errors) == 0
}

// Err returns the errors as a *md2docx.ValidationError, or nil.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	ve := &md2docx.ValidationError{}
	for _, issue := range r.Errors {
		field := "markdown"
		if issue.Line > 0 {
			field = fmt.Sprintf("line %d", issue.Line)
		}
		ve.Issues = append(ve.Issues, md2docx.ValidationIssue{Field: field, Message: issue.Message})
	}
	return ve
}

// String renders the report as a short text listing.
func (r *Report) String() string {
	var lines []string
	if len(r.Errors) > 0 {
		lines = append(lines, "Errors:")
		for _, e := range r.Errors {
			lines = append(lines, "- "+e.String())
		}
	}
	if len(r.Warnings) > 0 {
		lines = append(lines, "Warnings:")
		for _, w := range r.Warnings {
			lines = append(lines, "- "+w.String())
		}
	}
	if len(lines) == 0 {
		return "OK"
	}
	return strings.Join(lines, "\n")
}

// CheckFile reads and checks the markdown file at path.
func CheckFile(path string, opts Options) (*Report, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, md2docx.NewDocumentError("read markdown", path, err)
	}
	report, err := Check(src, opts)
	if err != nil {
		return nil, md2docx.WithContext(err, "lint", map[string]interface{}{"path": path})
	}
	return report, nil
}

// Check validates markdown source. The returned error covers unreadable front
// matter only; findings are reported in the Report.
func Check(src []byte, opts Options) (*Report, error) {
	report := &Report{}

	body, err := frontmatter.Parse(bytes.NewReader(src), &report.Metadata)
	if err != nil {
		return nil, fmt.Errorf("parse front matter: %w", err)
	}

	c := &checker{
		src:       body,
		opts:      opts,
		report:    report,
		lineShift: frontMatterLines(src, body),
		figures:   make(map[string]bool),
		tables:    make(map[string]bool),
	}
	if c.opts.ReferencesHeading == "" {
		c.opts.ReferencesHeading = md2docx.GetGlobalConfig().ReferencesHeading
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(body))
	c.collectDirectives(doc)
	c.checkBlocks(doc)
	c.checkSources()

	if opts.Strict && len(report.Warnings) > 0 && len(report.Errors) == 0 {
		report.Errors = append(report.Errors, Issue{Message: "warnings present in strict mode"})
	}

	md2docx.WithFields(md2docx.Fields{
		"errors":   len(report.Errors),
		"warnings": len(report.Warnings),
		"figures":  len(report.Figures),
		"tables":   len(report.Tables),
	}).Debug("Checked markdown")
	return report, nil
}

// frontMatterLines counts the lines the front matter occupied in src.
func frontMatterLines(src, body []byte) int {
	if len(body) > len(src) || !bytes.HasSuffix(src, body) {
		return 0
	}
	return bytes.Count(src[:len(src)-len(body)], []byte("\n"))
}

type citation struct {
	tag  string
	line int
}

type checker struct {
	src       []byte
	opts      Options
	report    *Report
	lineShift int

	figures   map[string]bool
	tables    map[string]bool
	citations []citation
}

func (c *checker) errorf(line int, format string, args ...interface{}) {
	c.report.Errors = append(c.report.Errors, Issue{Line: line, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) warnf(line int, format string, args ...interface{}) {
	c.report.Warnings = append(c.report.Warnings, Issue{Line: line, Message: fmt.Sprintf(format, args...)})
}

// lineAt converts a byte offset of the body to a 1-based line of the file.
func (c *checker) lineAt(offset int) int {
	if offset > len(c.src) {
		offset = len(c.src)
	}
	return bytes.Count(c.src[:offset], []byte("\n")) + 1 + c.lineShift
}

func (c *checker) blockLine(n ast.Node) int {
	if lines := n.Lines(); lines.Len() > 0 {
		return c.lineAt(lines.At(0).Start)
	}
	for ch := n.FirstChild(); ch != nil; ch = ch.NextSibling() {
		if t, ok := ch.(*ast.Text); ok {
			return c.lineAt(t.Segment.Start)
		}
	}
	return 0
}

// directive returns the kind and keys of a figure or table directive block.
func (c *checker) directive(n ast.Node) (kind string, keys map[string]string, ok bool) {
	block, isHTML := n.(*ast.HTMLBlock)
	if !isHTML {
		return "", nil, false
	}
	var raw bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		raw.Write(seg.Value(c.src))
	}
	if block.HasClosure() {
		raw.Write(block.ClosureLine.Value(c.src))
	}
	m := directivePattern.FindStringSubmatch(strings.TrimSpace(raw.String()))
	if m == nil {
		return "", nil, false
	}
	return m[1], parseKeyValues(m[2]), true
}

// parseKeyValues reads key=value and key="quoted value" pairs.
func parseKeyValues(s string) map[string]string {
	out := make(map[string]string)
	for _, m := range keyValuePattern.FindAllStringSubmatch(s, -1) {
		v := m[2]
		if len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
			v = v[1 : len(v)-1]
		}
		out[m[1]] = v
	}
	return out
}

// collectDirectives registers every declared figure and table id. It runs before
// the reference checks so references may precede the figure they name.
func (c *checker) collectDirectives(doc ast.Node) {
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		kind, keys, ok := c.directive(n)
		if !ok {
			continue
		}
		line := c.blockLine(n)

		var missing []string
		for _, k := range directiveKeys {
			if _, ok := keys[k]; !ok {
				missing = append(missing, k)
			}
		}
		if len(missing) > 0 {
			c.errorf(line, "%s directive missing keys: %s", kind, strings.Join(missing, ", "))
			continue
		}

		id := strings.TrimSpace(keys["id"])
		seen, ids := c.figures, &c.report.Figures
		if kind == "table" {
			seen, ids = c.tables, &c.report.Tables
		}
		if seen[id] {
			c.errorf(line, "duplicate %s id: %s", kind, id)
			continue
		}
		seen[id] = true
		*ids = append(*ids, id)
	}
}

func (c *checker) checkBlocks(doc ast.Node) {
	var previous ast.Node
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.FencedCodeBlock:
			if string(node.Language(c.src)) == "mermaid" {
				if kind, _, ok := c.directive(previous); previous == nil || !ok || kind != "figure" {
					c.errorf(c.blockLine(n), "mermaid block must be preceded by a figure directive")
				}
			}
		case *ast.Heading:
			title := strings.TrimSpace(inlineText(node, c.src))
			if strings.EqualFold(title, c.opts.ReferencesHeading) {
				c.warnf(c.blockLine(n), "markdown contains a '%s' heading; the template already provides it with the bibliography",
					c.opts.ReferencesHeading)
			}
		}
		c.checkInline(n)
		previous = n
	}
}

// checkInline scans the prose under n for references and citations. Code spans and
// code blocks are skipped.
func (c *checker) checkInline(n ast.Node) {
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.Heading, *ast.TextBlock:
			c.scanProse(inlineText(node, c.src), c.blockLine(node))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
}

func (c *checker) scanProse(s string, line int) {
	for _, m := range figRefPattern.FindAllStringSubmatch(s, -1) {
		if !c.figures[m[1]] {
			c.errorf(line, "unknown figure ref id: %s", m[1])
		}
	}
	for _, m := range tabRefPattern.FindAllStringSubmatch(s, -1) {
		if !c.tables[m[1]] {
			c.errorf(line, "unknown table ref id: %s", m[1])
		}
	}
	for _, m := range citationPattern.FindAllStringSubmatch(s, -1) {
		c.citations = append(c.citations, citation{tag: m[1], line: line})
	}
}

func (c *checker) checkSources() {
	tags := md2docx.SourceTags(c.opts.Sources)
	if len(tags) == 0 {
		if c.opts.SourcesPath != "" {
			c.warnf(0, "no sources loaded from %s", c.opts.SourcesPath)
		} else {
			c.warnf(0, "no sources loaded")
		}
	}
	for _, ct := range c.citations {
		if !tags[ct.tag] {
			c.errorf(ct.line, "citation tag not found in sources: %s", ct.tag)
		}
	}
	sort.SliceStable(c.report.Errors, func(i, j int) bool {
		return c.report.Errors[i].Line < c.report.Errors[j].Line
	})
}

// inlineText concatenates the text under an inline container. goldmark splits
// text at delimiter characters, so patterns are matched on the joined string.
func inlineText(n ast.Node, src []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := node.(type) {
		case *ast.CodeSpan, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

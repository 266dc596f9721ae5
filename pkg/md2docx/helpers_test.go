package md2docx

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	wxml "github.com/benjaminschreck/go-md2docx/pkg/md2docx/xml"
)

const (
	wordNamespaces = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`
	drawingNamespaces = ` xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"` +
		` xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"` +
		` xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture"`
	xmlDecl = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
)

// wrapDocument builds a main document part around body content.
func wrapDocument(body string) string {
	return xmlDecl + `<w:document ` + wordNamespaces + drawingNamespaces + `><w:body>` + body + `</w:body></w:document>`
}

func wrapNotes(kind NoteKind, notes string) string {
	root := string(kind) + "s"
	return xmlDecl + `<w:` + root + ` ` + wordNamespaces + `>` + notes + `</w:` + root + `>`
}

func note(kind NoteKind, id, text string) string {
	return `<w:` + string(kind) + ` w:id="` + id + `"><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:` + string(kind) + `>`
}

func wrapRels(rels string) string {
	return xmlDecl + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` + rels + `</Relationships>`
}

func rel(id, typ, target string) string {
	return `<Relationship Id="` + id + `" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/` +
		typ + `" Target="` + target + `"/>`
}

func externalRel(id, typ, target string) string {
	return `<Relationship Id="` + id + `" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/` +
		typ + `" Target="` + target + `" TargetMode="External"/>`
}

func textPara(style, text string) string {
	var ppr string
	if style != "" {
		ppr = `<w:pPr><w:pStyle w:val="` + style + `"/></w:pPr>`
	}
	return `<w:p>` + ppr + `<w:r><w:t xml:space="preserve">` + text + `</w:t></w:r></w:p>`
}

func tocPara(label string) string {
	return `<w:p><w:pPr><w:pStyle w:val="TableofFigures"/></w:pPr>` +
		`<w:r><w:fldChar w:fldCharType="begin"/></w:r>` +
		`<w:r><w:instrText xml:space="preserve"> TOC \h \z \c "` + label + `" </w:instrText></w:r>` +
		`<w:r><w:fldChar w:fldCharType="separate"/></w:r>` +
		`<w:r><w:t>No hay entradas</w:t></w:r>` +
		`<w:r><w:fldChar w:fldCharType="end"/></w:r></w:p>`
}

func imagePara(rID string) string {
	return `<w:p><w:r><w:drawing><wp:inline><a:graphic><a:graphicData><pic:pic><pic:blipFill>` +
		`<a:blip r:embed="` + rID + `"/></pic:blipFill></pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`
}

const referencesBlock = `<w:sdt><w:sdtPr><w:bibliography/></w:sdtPr><w:sdtContent>` +
	`<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Referencias</w:t></w:r></w:p>` +
	`<w:p><w:r><w:t>Bibliografía</w:t></w:r></w:p>` +
	`</w:sdtContent></w:sdt>`

const templateSectPr = `<w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr>`

// templateBody is a template with a cover, a list of figures, sample content and
// a references block.
var templateBody = textPara("Title", "TÍTULO DEL DOCUMENTO") +
	textPara("Subtitle", "Subtítulo del documento") +
	textPara("", "Elaborado por:") +
	textPara("", "Fecha:") +
	textPara("TOCHeading", "Lista de figuras") +
	tocPara("Figura") +
	`<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:bookmarkStart w:id="5" w:name="_Toc1"/>` +
	`<w:r><w:t>Introducción</w:t></w:r><w:bookmarkEnd w:id="5"/></w:p>` +
	textPara("", "Texto de ejemplo") +
	imagePara("rId12") +
	referencesBlock +
	textPara("", "Anexo") +
	templateSectPr

// bodyContentXML is a converter output with markers, images, a hyperlink and a
// footnote reference.
var bodyContentXML = `<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:bookmarkStart w:id="0" w:name="capitulo"/>` +
	`<w:r><w:t>Capítulo</w:t></w:r><w:bookmarkEnd w:id="0"/></w:p>` +
	`<w:p><w:r><w:t xml:space="preserve">Ver [[MD2DOCX_REF:fig:arq]] y [[MD2DOCX_REF:tab:datos]].</w:t></w:r>` +
	`<w:r><w:footnoteReference w:id="1"/></w:r></w:p>` +
	textPara("", "[[MD2DOCX_CAPTION_FIG:arq|Arquitectura]]") +
	imagePara("rId4") +
	textPara("", "[[MD2DOCX_CAPTION_TAB:datos|Datos]]") +
	imagePara("rId7") +
	`<w:p><w:hyperlink r:id="rId9"><w:r><w:t>enlace</w:t></w:r></w:hyperlink>` +
	`<w:r><w:t xml:space="preserve"> según [[MD2DOCX_CITATION:smith2020]]</w:t></w:r></w:p>` +
	`<w:sectPr><w:pgSz w:w="12240" w:h="15840"/></w:sectPr>`

const contentTypesXML = xmlDecl + `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Default Extension="png" ContentType="image/png"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

const bibliographyItemXML = xmlDecl + `<b:Sources xmlns:b="http://schemas.openxmlformats.org/officeDocument/2006/bibliography" ` +
	`xmlns="http://schemas.openxmlformats.org/officeDocument/2006/bibliography" SelectedStyle="\APASixthEditionOfficeOnline.xsl" StyleName="APA">` +
	`<b:Source><b:Tag>plantilla</b:Tag><b:SourceType>Book</b:SourceType></b:Source></b:Sources>`

func templateParts() []DocumentPart {
	return []DocumentPart{
		{Name: contentTypesPart, Content: []byte(contentTypesXML)},
		{Name: "_rels/.rels", Content: []byte(wrapRels(rel("rId1", "officeDocument", "word/document.xml")))},
		{Name: documentPart, Content: []byte(wrapDocument(templateBody))},
		{Name: documentRelsPart, Content: []byte(wrapRels(
			rel("rId1", "styles", "styles.xml") +
				rel("rId2", "settings", "settings.xml") +
				rel("rId3", "footnotes", "footnotes.xml") +
				rel("rId4", "endnotes", "endnotes.xml") +
				rel("rId12", "image", "media/image1.png")))},
		{Name: footnotesPart, Content: []byte(wrapNotes(Footnote, note(Footnote, "-1", "")+note(Footnote, "0", "")+note(Footnote, "1", "Nota de plantilla")))},
		{Name: endnotesPart, Content: []byte(wrapNotes(Endnote, note(Endnote, "-1", "")+note(Endnote, "0", "")))},
		{Name: stylesPart, Content: []byte(xmlDecl + `<w:styles ` + wordNamespaces + `><w:style w:styleId="TemplateStyle"/></w:styles>`)},
		{Name: "word/settings.xml", Content: []byte(xmlDecl + `<w:settings ` + wordNamespaces + `/>`)},
		{Name: "word/media/image1.png", Content: []byte("TEMPLATEPNG")},
		{Name: "customXml/item1.xml", Content: []byte(bibliographyItemXML)},
		{Name: "customXml/itemProps1.xml", Content: []byte(xmlDecl + `<ds:datastoreItem xmlns:ds="http://schemas.openxmlformats.org/officeDocument/2006/customXml"/>`)},
	}
}

func bodyParts() []DocumentPart {
	return []DocumentPart{
		{Name: contentTypesPart, Content: []byte(contentTypesXML)},
		{Name: documentPart, Content: []byte(wrapDocument(bodyContentXML))},
		{Name: documentRelsPart, Content: []byte(wrapRels(
			rel("rId1", "styles", "styles.xml") +
				rel("rId4", "image", "media/rId4.png") +
				rel("rId7", "image", "media/rId7.JPG") +
				externalRel("rId9", "hyperlink", "https://example.com/doc")))},
		{Name: footnotesPart, Content: []byte(wrapNotes(Footnote, note(Footnote, "-1", "")+note(Footnote, "0", "")+note(Footnote, "1", "Nota del cuerpo")))},
		{Name: stylesPart, Content: []byte(xmlDecl + `<w:styles ` + wordNamespaces + `><w:style w:styleId="BodyStyle"/></w:styles>`)},
		{Name: numberingPart, Content: []byte(xmlDecl + `<w:numbering ` + wordNamespaces + `/>`)},
		{Name: "word/media/rId4.png", Content: []byte("BODYPNG")},
		{Name: "word/media/rId7.JPG", Content: []byte("BODYJPG")},
	}
}

// buildPackage zips parts in order.
func buildPackage(t *testing.T, parts []DocumentPart) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for _, p := range parts {
		f, err := w.Create(p.Name)
		if err != nil {
			t.Fatalf("failed to create %s: %v", p.Name, err)
		}
		if _, err := f.Write(p.Content); err != nil {
			t.Fatalf("failed to write %s: %v", p.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}

func openPackage(t *testing.T, name string, parts []DocumentPart) *DocxReader {
	t.Helper()
	data := buildPackage(t, parts)
	dr, err := NewDocxReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewDocxReader() error = %v", err)
	}
	dr.Name = name
	return dr
}

// replacePart returns parts with name's content swapped (or removed when content
// is nil).
func replacePart(parts []DocumentPart, name string, content []byte) []DocumentPart {
	out := make([]DocumentPart, 0, len(parts))
	for _, p := range parts {
		if p.Name == name {
			if content == nil {
				continue
			}
			p.Content = content
		}
		out = append(out, p)
	}
	return out
}

func mustParse(t *testing.T, s string) *wxml.Document {
	t.Helper()
	doc, err := wxml.ParseBytes([]byte(s))
	if err != nil {
		t.Fatalf("failed to parse fixture: %v\n%s", err, s)
	}
	return doc
}

func mustParseDocument(t *testing.T, body string) *wxml.Document {
	t.Helper()
	return mustParse(t, wrapDocument(body))
}

// bodyTexts returns the text of each top-level element of the document body.
func bodyTexts(doc *wxml.Document) []string {
	var out []string
	for _, el := range documentBody(doc).Elements() {
		if el.Is(wxml.NSW, "sectPr") {
			continue
		}
		out = append(out, paragraphText(el))
	}
	return out
}

func testConfig() *Config {
	return DefaultConfig()
}

func assertNoMarkers(t *testing.T, s string) {
	t.Helper()
	if strings.Contains(s, markerPrefix) {
		t.Errorf("marker token left in output:\n%s", s)
	}
}

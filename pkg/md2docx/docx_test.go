package md2docx

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	wxml "github.com/benjaminschreck/go-md2docx/pkg/md2docx/xml"
)

func TestNewDocxReaderRequiresDocument(t *testing.T) {
	data := buildPackage(t, replacePart(bodyParts(), documentPart, nil))
	_, err := NewDocxReader(bytes.NewReader(data), int64(len(data)))
	if !IsMissingPartError(err) {
		t.Errorf("expected a MissingPartError, got %v", err)
	}

	if _, err := NewDocxReader(strings.NewReader("not a zip"), 9); err == nil {
		t.Error("expected an error for a non-zip input")
	}
}

func TestDocxReaderParts(t *testing.T) {
	dr := openPackage(t, "template.docx", templateParts())

	if got := dr.ListParts(); len(got) != len(templateParts()) || got[0] != contentTypesPart {
		t.Errorf("ListParts() = %v", got)
	}

	if _, err := dr.GetPart("word/missing.xml"); !IsMissingPartError(err) {
		t.Errorf("GetPart(missing) error = %v", err)
	}

	rels, err := dr.GetRelationships(documentPart)
	if err != nil {
		t.Fatalf("GetRelationships() error = %v", err)
	}
	if len(rels) != 5 || rels[4].ID != "rId12" || rels[4].Target != "media/image1.png" {
		t.Errorf("relationships = %+v", rels)
	}

	if rels, err := dr.GetRelationships(footnotesPart); err != nil || len(rels) != 0 {
		t.Errorf("footnote relationships = %v, %v", rels, err)
	}

	items := dr.CustomXMLItems()
	if len(items) != 1 || items[0] != "customXml/item1.xml" {
		t.Errorf("CustomXMLItems() = %v", items)
	}
}

func TestRelationshipsPartFor(t *testing.T) {
	tests := map[string]string{
		documentPart:  documentRelsPart,
		footnotesPart: "word/_rels/footnotes.xml.rels",
		"root.xml":    "_rels/root.xml.rels",
	}
	for in, want := range tests {
		if got := relationshipsPartFor(in); got != want {
			t.Errorf("relationshipsPartFor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMarshalRelationshipsRoundTrips(t *testing.T) {
	out, err := marshalRelationships([]Relationship{
		{ID: "rId1", Type: "t", Target: "styles.xml"},
		{ID: "rId2", Type: "t", Target: "https://example.com", TargetMode: "External"},
	})
	if err != nil {
		t.Fatal(err)
	}
	dr := openPackage(t, "rels.docx", []DocumentPart{
		{Name: documentPart, Content: []byte(wrapDocument(""))},
		{Name: documentRelsPart, Content: out},
	})
	rels, err := dr.GetRelationships(documentPart)
	if err != nil {
		t.Fatal(err)
	}
	if len(rels) != 2 || rels[0].IsExternal() || !rels[1].IsExternal() {
		t.Errorf("relationships = %+v", rels)
	}
	if strings.Contains(string(out), `TargetMode=""`) {
		t.Error("empty TargetMode was written")
	}
}

func TestPackageWriter(t *testing.T) {
	source := openPackage(t, "template.docx", templateParts())
	pw := NewPackageWriter(source)
	pw.Replace(stylesPart, []byte("NEW STYLES"))
	pw.Replace(numberingPart, []byte("first"))
	pw.Replace(numberingPart, []byte("NUMBERING"))
	pw.Add("word/media/image_body_1.png", []byte("PNG"))

	out, err := pw.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	dr, err := NewDocxReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatalf("output unreadable: %v", err)
	}

	parts := dr.ListParts()
	if len(parts) != len(templateParts())+2 {
		t.Fatalf("got %d parts: %v", len(parts), parts)
	}
	if parts[len(parts)-2] != numberingPart || parts[len(parts)-1] != "word/media/image_body_1.png" {
		t.Errorf("added parts not appended in order: %v", parts)
	}

	want := map[string]string{
		stylesPart:              "NEW STYLES",
		numberingPart:           "NUMBERING",
		"word/media/image1.png": "TEMPLATEPNG",
	}
	for name, content := range want {
		got, err := dr.GetPart(name)
		if err != nil || string(got) != content {
			t.Errorf("%s = %q, %v; want %q", name, got, err, content)
		}
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.docx")
	if err := os.WriteFile(target, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := WriteFileAtomic(target, []byte("new")); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}
	got, err := os.ReadFile(target)
	if err != nil || string(got) != "new" {
		t.Errorf("target = %q, %v", got, err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}

	err = WriteFileAtomic(filepath.Join(dir, "missing", "out.docx"), []byte("x"))
	if !IsDocumentError(err) {
		t.Errorf("expected a DocumentError for a missing directory, got %v", err)
	}
}

func TestEnsureContentTypeDefaults(t *testing.T) {
	doc := mustParse(t, contentTypesXML)
	changed := ensureContentTypeDefaults(doc, []DocumentPart{
		{Name: "word/media/a.png"},
		{Name: "word/media/b.JPG"},
		{Name: "word/media/c.emf"},
		{Name: "word/media/d.jpg"},
	})
	if !changed {
		t.Fatal("expected the part to change")
	}

	var got []string
	for _, def := range doc.Root.ChildrenNamed(wxml.NSContent, "Default") {
		got = append(got, def.AttrValue("", "Extension")+"="+def.AttrValue("", "ContentType"))
	}
	want := "rels=application/vnd.openxmlformats-package.relationships+xml,xml=application/xml," +
		"png=image/png,emf=image/x-emf,jpg=image/jpeg"
	if strings.Join(got, ",") != want {
		t.Errorf("defaults = %v", got)
	}

	override := doc.Root.Child(wxml.NSContent, "Override")
	for _, def := range doc.Root.ChildrenNamed(wxml.NSContent, "Default") {
		if def.Index() > override.Index() {
			t.Errorf("Default %s placed after an Override", def.AttrValue("", "Extension"))
		}
	}

	if ensureContentTypeDefaults(doc, []DocumentPart{{Name: "word/media/e.png"}}) {
		t.Error("known extension reported as a change")
	}
}

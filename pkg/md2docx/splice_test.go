package md2docx

import (
	"errors"
	"testing"

	wxml "github.com/benjaminschreck/go-md2docx/pkg/md2docx/xml"
)

func TestSpliceIsBracketed(t *testing.T) {
	cfg := testConfig()
	template := mustParseDocument(t, templateBody)
	body := mustParseDocument(t, bodyContentXML)

	tb := documentBody(template)
	before := tb.Elements()
	// Cover (4), figures heading, figures list.
	prefix := make([]string, 0, 6)
	for _, el := range before[:6] {
		prefix = append(prefix, el.String())
	}
	// References block, trailing paragraph, sectPr.
	suffix := make([]string, 0, 3)
	for _, el := range before[len(before)-3:] {
		suffix = append(suffix, el.String())
	}

	result, err := Splice(template, body, cfg)
	if err != nil {
		t.Fatalf("Splice() error = %v", err)
	}
	if result.Removed != 3 {
		t.Errorf("Removed = %d, want 3", result.Removed)
	}
	if len(result.Inserted) != 7 {
		t.Errorf("Inserted = %d, want 7", len(result.Inserted))
	}

	after := tb.Elements()
	if len(after) != 6+7+3 {
		t.Fatalf("body has %d elements, want 16", len(after))
	}
	for i, want := range prefix {
		if got := after[i].String(); got != want {
			t.Errorf("element %d changed:\n got %s\nwant %s", i, got, want)
		}
	}
	for i, want := range suffix {
		if got := after[len(after)-3+i].String(); got != want {
			t.Errorf("trailing element %d changed:\n got %s\nwant %s", i, got, want)
		}
	}

	if got := paragraphText(after[6]); got != "Capítulo" {
		t.Errorf("first inserted paragraph = %q", got)
	}
	if sect := after[len(after)-1]; !sect.Is(wxml.NSW, "sectPr") ||
		sect.Child(wxml.NSW, "pgSz").AttrValue(wxml.NSW, "w") != "11906" {
		t.Errorf("template section properties not kept: %s", sect)
	}
	if n := len(tb.ChildrenNamed(wxml.NSW, "sectPr")); n != 1 {
		t.Errorf("found %d section properties, want 1", n)
	}
}

func TestSpliceDropsTrailingSectionParagraph(t *testing.T) {
	template := mustParseDocument(t, templateBody)
	body := mustParseDocument(t, textPara("Heading1", "Uno")+
		`<w:p><w:pPr><w:sectPr><w:pgSz w:w="1"/></w:sectPr></w:pPr></w:p>`)

	result, err := Splice(template, body, testConfig())
	if err != nil {
		t.Fatalf("Splice() error = %v", err)
	}
	if len(result.Inserted) != 1 {
		t.Errorf("Inserted = %d, want 1", len(result.Inserted))
	}
}

func TestSpliceStructuralErrors(t *testing.T) {
	tests := []struct {
		name     string
		template string
		landmark string
	}{
		{
			name:     "no list of figures",
			template: textPara("Heading1", "Intro") + referencesBlock,
			landmark: landmarkFigureList,
		},
		{
			name:     "no heading after the list of figures",
			template: textPara("Heading1", "Antes") + tocPara("Figura") + referencesBlock,
			landmark: landmarkContentStart,
		},
		{
			name:     "no references block",
			template: tocPara("Figura") + textPara("Heading1", "Intro"),
			landmark: landmarkReferences,
		},
		{
			name: "references before content",
			template: referencesBlock + tocPara("Figura") + textPara("Heading1", "Intro"),
			landmark: landmarkRegionOrdered,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			template := mustParseDocument(t, tt.template)
			body := mustParseDocument(t, textPara("", "x"))

			_, err := Splice(template, body, testConfig())
			if err == nil {
				t.Fatal("expected an error")
			}
			var se *StructuralError
			if !errors.As(err, &se) {
				t.Fatalf("expected *StructuralError, got %T", err)
			}
			if se.Landmark != tt.landmark {
				t.Errorf("Landmark = %q, want %q", se.Landmark, tt.landmark)
			}
		})
	}
}

func TestSpliceMergesNamespaces(t *testing.T) {
	template := mustParseDocument(t, templateBody)
	body := mustParse(t, xmlDecl+`<w:document `+wordNamespaces+
		` xmlns:w14="http://schemas.microsoft.com/office/word/2010/wordml"><w:body>`+
		`<w:p w14:paraId="1A2B"><w:r><w:t>x</w:t></w:r></w:p></w:body></w:document>`)

	if _, err := Splice(template, body, testConfig()); err != nil {
		t.Fatalf("Splice() error = %v", err)
	}
	if uri, ok := template.Root.LookupNamespace("w14"); !ok || uri != "http://schemas.microsoft.com/office/word/2010/wordml" {
		t.Errorf("w14 not declared on the template root")
	}
}

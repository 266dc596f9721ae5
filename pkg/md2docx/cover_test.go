package md2docx

import (
	"testing"

	wxml "github.com/benjaminschreck/go-md2docx/pkg/md2docx/xml"
)

func TestPatchCoverMetadata(t *testing.T) {
	tests := []struct {
		name string
		meta Metadata
		want []string
	}{
		{
			name: "all values",
			meta: Metadata{Title: "Informe anual", Subtitle: "2024", Author: "Equipo", Date: "1 de marzo"},
			want: []string{"Informe anual", "2024", "Elaborado por: Equipo", "Fecha: 1 de marzo"},
		},
		{
			name: "absent values keep placeholders",
			meta: Metadata{Title: "Solo título", Author: "  "},
			want: []string{"Solo título", "Subtítulo del documento", "Elaborado por:", "Fecha:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParseDocument(t, templateBody)
			if _, err := PatchCover(doc, tt.meta, testConfig()); err != nil {
				t.Fatalf("PatchCover() error = %v", err)
			}
			texts := bodyTexts(doc)
			for i, want := range tt.want {
				if texts[i] != want {
					t.Errorf("cover paragraph %d = %q, want %q", i, texts[i], want)
				}
			}
		})
	}
}

func TestPatchCoverAddsListOfTables(t *testing.T) {
	cfg := testConfig()
	doc := mustParseDocument(t, templateBody)
	before := len(documentBody(doc).Elements())

	result, err := PatchCover(doc, Metadata{}, cfg)
	if err != nil {
		t.Fatalf("PatchCover() error = %v", err)
	}
	if !result.ListOfTablesInserted {
		t.Fatal("expected a list of tables to be inserted")
	}

	elems := documentBody(doc).Elements()
	if len(elems) != before+2 {
		t.Fatalf("body grew by %d elements, want 2", len(elems)-before)
	}

	// Figures list is element 5; the new pair follows it directly.
	heading, field := elems[6], elems[7]
	if paragraphStyle(heading) != "TOCHeading" || paragraphText(heading) != "Lista de tablas" {
		t.Errorf("heading = %s", heading)
	}
	if paragraphStyle(field) != "TableofFigures" {
		t.Errorf("field paragraph style = %q", paragraphStyle(field))
	}
	instr := fieldInstructions(field)
	if len(instr) != 1 || !isCaptionListField(instr[0], "Tabla") {
		t.Errorf("field instruction = %q", instr)
	}
	if instr[0] != ` TOC \h \z \c "Tabla" ` {
		t.Errorf("switches not mirrored: %q", instr[0])
	}
	if paragraphText(elems[8]) != "Introducción" {
		t.Errorf("content start moved: %q", paragraphText(elems[8]))
	}
}

func TestPatchCoverIsIdempotent(t *testing.T) {
	cfg := testConfig()
	meta := Metadata{Title: "T", Subtitle: "S", Author: "A", Date: "D"}

	once := mustParseDocument(t, templateBody)
	if _, err := PatchCover(once, meta, cfg); err != nil {
		t.Fatalf("PatchCover() error = %v", err)
	}
	want := string(once.Bytes())

	result, err := PatchCover(once, meta, cfg)
	if err != nil {
		t.Fatalf("second PatchCover() error = %v", err)
	}
	if result.ListOfTablesInserted {
		t.Error("second run inserted another list of tables")
	}
	if got := string(once.Bytes()); got != want {
		t.Errorf("second run changed the tree:\n got %s\nwant %s", got, want)
	}
}

func TestPatchCoverMultiParagraphField(t *testing.T) {
	figures := `<w:p><w:pPr><w:pStyle w:val="TableofFigures"/></w:pPr>` +
		`<w:r><w:fldChar w:fldCharType="begin"/></w:r>` +
		`<w:r><w:instrText xml:space="preserve"> TOC \h \z \c "Figura" </w:instrText></w:r>` +
		`<w:r><w:fldChar w:fldCharType="separate"/></w:r><w:r><w:t>Figura 1</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Figura 2</w:t></w:r><w:r><w:fldChar w:fldCharType="end"/></w:r></w:p>`
	doc := mustParseDocument(t, figures+textPara("Heading1", "Intro")+referencesBlock)

	if _, err := PatchCover(doc, Metadata{}, testConfig()); err != nil {
		t.Fatalf("PatchCover() error = %v", err)
	}
	texts := bodyTexts(doc)
	if texts[2] != "Lista de tablas" {
		t.Errorf("heading not placed after the closing paragraph: %q", texts)
	}
}

func TestPatchCoverKeepsExistingListOfTables(t *testing.T) {
	doc := mustParseDocument(t, tocPara("Figura")+tocPara("Tabla")+textPara("Heading1", "Intro"))
	result, err := PatchCover(doc, Metadata{}, testConfig())
	if err != nil {
		t.Fatalf("PatchCover() error = %v", err)
	}
	if result.ListOfTablesInserted {
		t.Error("inserted a list of tables although one exists")
	}
}

func TestPatchCoverWithoutFiguresList(t *testing.T) {
	doc := mustParseDocument(t, textPara("Heading1", "Intro"))
	result, err := PatchCover(doc, Metadata{}, testConfig())
	if err != nil {
		t.Fatalf("PatchCover() error = %v", err)
	}
	if result.ListOfTablesInserted {
		t.Error("no list of tables expected without a list of figures")
	}
	if n := len(documentBody(doc).ChildrenNamed(wxml.NSW, "p")); n != 1 {
		t.Errorf("body has %d paragraphs, want 1", n)
	}
}

func TestMirrorInstruction(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{` TOC \h \z \c "Figura" `, ` TOC \h \z \c "Tabla" `},
		{` TOC \c Figura \h `, ` TOC \c "Tabla" \h `},
		{``, ` TOC \h \z \c "Tabla" `},
	}
	for _, tt := range tests {
		if got := mirrorInstruction(tt.in, "Tabla"); got != tt.want {
			t.Errorf("mirrorInstruction(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

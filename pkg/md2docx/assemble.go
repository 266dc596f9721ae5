package md2docx

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	wxml "github.com/benjaminschreck/go-md2docx/pkg/md2docx/xml"
)

// Options describe one build.
type Options struct {
	// TemplatePath is the corporate template package.
	TemplatePath string
	// BodyPath is the package produced by the markdown converter.
	BodyPath string
	// OutputPath receives the linked package. It is written only on success.
	OutputPath string

	Metadata Metadata
	Sources  []Source

	// Config overrides the global configuration when set.
	Config *Config
	// NewGUID generates bibliography entry ids; nil uses NewSourceGUID.
	NewGUID func() string
}

// Validate checks the paths a file-based build needs.
func (o Options) Validate() error {
	err := validation.ValidateStruct(&o,
		validation.Field(&o.TemplatePath, validation.Required),
		validation.Field(&o.BodyPath, validation.Required),
		validation.Field(&o.OutputPath, validation.Required, validation.By(func(v interface{}) error {
			out := v.(string)
			if out == o.TemplatePath || out == o.BodyPath {
				return fmt.Errorf("must not overwrite an input package")
			}
			return nil
		})),
	)
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		return newValidationError("options", fieldErrs)
	}
	return err
}

func (o Options) config() *Config {
	if o.Config != nil {
		return o.Config
	}
	return GetGlobalConfig()
}

// Report summarises a build.
type Report struct {
	Relationships int
	Media         int
	Footnotes     int
	Endnotes      int

	CoverSubstitutions   int
	ListOfTablesInserted bool

	RemovedNodes  int
	InsertedNodes int

	Figures         int
	Tables          int
	References      int
	Citations       int
	CenteredFigures int

	// BibliographyPart names the rebuilt custom XML part, empty when the template
	// has none.
	BibliographyPart string
	Sources          int

	// UnresolvedRefs lists cross-references ("fig:id", "tab:id") to undeclared
	// captions. They are rendered with the bare label.
	UnresolvedRefs []string
	// DanglingRelationships lists body relationship ids referenced from the
	// document that were not carried over.
	DanglingRelationships []string
}

// Assemble links the body package into the template and writes the result to
// opts.OutputPath. Both inputs are closed before it returns; nothing is written
// when the build fails.
func Assemble(opts Options) (report *Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = RecoverError(r)
		}
	}()

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	template, err := OpenDocx(opts.TemplatePath)
	if err != nil {
		return nil, err
	}
	defer template.Close()

	body, err := OpenDocx(opts.BodyPath)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	out, report, err := AssemblePackages(template, body, opts)
	if err != nil {
		return report, err
	}

	if err := WriteFileAtomic(opts.OutputPath, out); err != nil {
		return report, err
	}
	WithFields(Fields{"output": opts.OutputPath, "bytes": len(out)}).Info("package written")
	return report, nil
}

// AssemblePackages runs the link pipeline over two open packages and returns the
// bytes of the output package. Paths in opts are ignored.
func AssemblePackages(template, body *DocxReader, opts Options) ([]byte, *Report, error) {
	cfg := opts.config()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	a := &assembly{
		cfg:      cfg,
		opts:     opts,
		template: template,
		body:     body,
		report:   &Report{},
		log:      WithFields(Fields{"template": template.Name, "body": body.Name}),
	}
	out, err := a.run()
	return out, a.report, err
}

// assembly carries the state of one build between its steps.
type assembly struct {
	cfg      *Config
	opts     Options
	template *DocxReader
	body     *DocxReader
	report   *Report
	log      *Logger

	doc     *wxml.Document
	bodyDoc *wxml.Document
	notes   map[NoteKind]*wxml.Document

	docRels   *RelationshipMerge
	noteRels  map[string]*RelationshipMerge
	noteMerge map[NoteKind]*NoteMerge
	media     []DocumentPart
}

var notePartNames = map[NoteKind]string{
	Footnote: footnotesPart,
	Endnote:  endnotesPart,
}

func (a *assembly) run() ([]byte, error) {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"load", a.load},
		{"merge relationships", a.mergeRelationships},
		{"merge notes", a.mergeNotes},
		{"relocate identifiers", a.relocate},
		{"patch cover", a.patchCover},
		{"splice", a.splice},
		{"resolve markers", a.resolveMarkers},
		{"center figures", a.centerFigures},
	}
	for _, step := range steps {
		a.log.Debug("step: %s", step.name)
		if err := step.fn(); err != nil {
			return nil, err
		}
	}
	return a.write()
}

func (a *assembly) load() error {
	for _, part := range []string{documentRelsPart, footnotesPart, endnotesPart} {
		if !a.template.HasPart(part) {
			return &MissingPartError{Package: a.template.Name, Part: part}
		}
	}
	if !a.body.HasPart(footnotesPart) {
		return &MissingPartError{Package: a.body.Name, Part: footnotesPart}
	}

	var err error
	if a.doc, err = a.template.ParsePart(documentPart); err != nil {
		return err
	}
	if a.bodyDoc, err = a.body.ParsePart(documentPart); err != nil {
		return err
	}

	a.notes = make(map[NoteKind]*wxml.Document, len(notePartNames))
	for kind, part := range notePartNames {
		if a.notes[kind], err = a.template.ParsePart(part); err != nil {
			return err
		}
	}
	return nil
}

func (a *assembly) mergeRelationships() error {
	merger := NewRelationshipMerger(a.template, a.body)

	var err error
	if a.docRels, err = merger.Merge(documentPart); err != nil {
		return err
	}
	a.media = append(a.media, a.docRels.Media...)

	a.noteRels = make(map[string]*RelationshipMerge)
	for _, part := range []string{footnotesPart, endnotesPart} {
		if !a.body.HasPart(relationshipsPartFor(part)) {
			continue
		}
		merge, err := merger.Merge(part)
		if err != nil {
			return err
		}
		if len(merge.IDMap) == 0 {
			continue
		}
		a.noteRels[part] = merge
		a.media = append(a.media, merge.Media...)
	}

	a.report.Relationships = len(a.docRels.IDMap)
	for _, m := range a.noteRels {
		a.report.Relationships += len(m.IDMap)
	}
	a.report.Media = len(a.media)
	return nil
}

func (a *assembly) mergeNotes() error {
	a.noteMerge = make(map[NoteKind]*NoteMerge, len(notePartNames))
	for _, kind := range []NoteKind{Footnote, Endnote} {
		part := notePartNames[kind]

		var bodyNotes *wxml.Document
		if a.body.HasPart(part) {
			var err error
			if bodyNotes, err = a.body.ParsePart(part); err != nil {
				return err
			}
		}

		merge := MergeNotes(a.notes[kind], bodyNotes, kind)
		if rels, ok := a.noteRels[part]; ok {
			for _, note := range merge.Appended {
				ApplyRelationshipMap(note, rels.IDMap)
			}
		}
		a.noteMerge[kind] = merge
	}
	a.report.Footnotes = len(a.noteMerge[Footnote].IDMap)
	a.report.Endnotes = len(a.noteMerge[Endnote].IDMap)
	return nil
}

// relocate applies the relocation maps to the body tree and moves its bookmark ids
// above the template's.
func (a *assembly) relocate() error {
	root := a.bodyDoc.Root
	ApplyNoteMaps(root, a.noteMerge[Footnote].IDMap, a.noteMerge[Endnote].IDMap)

	if dangling := ApplyRelationshipMap(root, a.docRels.IDMap); len(dangling) > 0 {
		a.report.DanglingRelationships = dangling
		a.log.Warn("body references relationships that are not carried over: %s", strings.Join(dangling, ", "))
	}

	RelocateBookmarks(root, maxBookmarkID(a.doc.Root))
	return nil
}

func (a *assembly) patchCover() error {
	result, err := PatchCover(a.doc, a.opts.Metadata, a.cfg)
	if err != nil {
		return err
	}
	a.report.CoverSubstitutions = result.Substitutions
	a.report.ListOfTablesInserted = result.ListOfTablesInserted
	return nil
}

func (a *assembly) splice() error {
	result, err := Splice(a.doc, a.bodyDoc, a.cfg)
	if err != nil {
		return err
	}
	a.report.RemovedNodes = result.Removed
	a.report.InsertedNodes = len(result.Inserted)
	return nil
}

func (a *assembly) resolveMarkers() error {
	mr := NewMarkerResolver(a.doc, a.cfg)
	mr.ResolveCaptions(a.doc.Root)
	mr.ResolveInline(a.doc.Root)
	for _, kind := range []NoteKind{Footnote, Endnote} {
		mr.ResolveInline(a.notes[kind].Root)
	}

	result := mr.Result()
	a.report.Figures = result.Figures
	a.report.Tables = result.Tables
	a.report.References = result.References
	a.report.Citations = result.Citations
	a.report.UnresolvedRefs = result.Unresolved

	if err := CheckNoMarkers(a.doc.Root, documentPart); err != nil {
		return err
	}
	for _, kind := range []NoteKind{Footnote, Endnote} {
		if err := CheckNoMarkers(a.notes[kind].Root, notePartNames[kind]); err != nil {
			return err
		}
	}

	if a.cfg.StrictReferences && len(result.Unresolved) > 0 {
		return fmt.Errorf("%w: %s", ErrUnresolvedReference, strings.Join(result.Unresolved, ", "))
	}
	return nil
}

func (a *assembly) centerFigures() error {
	a.report.CenteredFigures = CenterCaptionedFigures(documentBody(a.doc), a.cfg)
	return nil
}

func (a *assembly) bibliography() (string, []byte, error) {
	name, item, err := findBibliographyPart(a.template)
	if err != nil {
		return "", nil, err
	}
	if name == "" {
		if len(a.opts.Sources) > 0 {
			a.log.Warn("template has no bibliography part; %d sources not written", len(a.opts.Sources))
		}
		return "", nil, nil
	}
	out, err := BuildSourcesXML(item, a.opts.Sources, a.opts.NewGUID)
	if err != nil {
		return "", nil, WithContext(err, "build bibliography", map[string]interface{}{"part": name})
	}
	a.report.BibliographyPart = name
	a.report.Sources = len(taggedSources(a.opts.Sources))
	return name, out, nil
}

func (a *assembly) write() ([]byte, error) {
	pw := NewPackageWriter(a.template)

	pw.Replace(documentPart, a.doc.Bytes())
	rels, err := marshalRelationships(a.docRels.Relationships)
	if err != nil {
		return nil, err
	}
	pw.Replace(documentRelsPart, rels)

	for _, kind := range []NoteKind{Footnote, Endnote} {
		pw.Replace(notePartNames[kind], a.notes[kind].Bytes())
	}
	for _, part := range []string{footnotesPart, endnotesPart} {
		merge, ok := a.noteRels[part]
		if !ok {
			continue
		}
		content, err := marshalRelationships(merge.Relationships)
		if err != nil {
			return nil, err
		}
		pw.Replace(relationshipsPartFor(part), content)
	}

	// Lists and styles in the body refer to the converter's definitions.
	for _, part := range []string{stylesPart, numberingPart} {
		if !a.body.HasPart(part) {
			a.log.Warn("body package has no %s; keeping the template's", part)
			continue
		}
		content, err := a.body.GetPart(part)
		if err != nil {
			return nil, err
		}
		pw.Replace(part, content)
	}

	name, item, err := a.bibliography()
	if err != nil {
		return nil, err
	}
	if name != "" {
		pw.Replace(name, item)
	}

	if len(a.media) > 0 {
		contentTypes, err := a.template.ParsePart(contentTypesPart)
		if err != nil {
			return nil, err
		}
		if ensureContentTypeDefaults(contentTypes, a.media) {
			pw.Replace(contentTypesPart, contentTypes.Bytes())
		}
		for _, m := range a.media {
			pw.Add(m.Name, m.Content)
		}
	}

	var buf bytes.Buffer
	if err := pw.Write(&buf); err != nil {
		return nil, WithContext(err, "write package", nil)
	}

	a.log.Info("linked %d body elements: %d figures, %d tables, %d references, %d citations",
		a.report.InsertedNodes, a.report.Figures, a.report.Tables, a.report.References, a.report.Citations)
	return buf.Bytes(), nil
}

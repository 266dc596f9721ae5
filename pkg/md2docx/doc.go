// Package md2docx links a converted body document into a corporate Word template.
//
// The markdown converter produces a body package whose paragraphs still carry
// textual placeholder tokens for captions, cross-references and citations. The
// template carries the cover page, the tables of contents, sample content and a
// references section. Assemble treats both packages like object files: local
// identifiers are relocated into the template's id spaces and the body content
// replaces the template's sample region.
//
// # Quick Start
//
//	meta, err := md2docx.LoadMetadata("meta.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sources, err := md2docx.LoadSources("sources.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	report, err := md2docx.Assemble(md2docx.Options{
//	    TemplatePath: "template.docx",
//	    BodyPath:     "body.docx",
//	    OutputPath:   "out/report.docx",
//	    Metadata:     meta,
//	    Sources:      sources,
//	})
//
// # Pipeline
//
// A build runs these steps in order over in-memory trees:
//
//  1. Image and hyperlink relationships of the body are renumbered above the
//     template's highest rId and image blobs are copied under fresh names.
//  2. Footnotes and endnotes are appended to the template's collections with
//     new ids. Reserved ids (zero and negative) are never touched.
//  3. The relocation maps are applied to the body tree and its bookmark ids are
//     moved above the template's.
//  4. Cover placeholders are filled and a list of tables is added next to the
//     list of figures when the template has none.
//  5. The region between the first Heading1 after the list of figures and the
//     references block is replaced by the body's top-level content.
//  6. Caption tokens become bookmarked SEQ captions, numbered over the whole
//     document before any reference is rewritten; reference tokens become REF
//     fields and citation tokens become CITATION fields.
//  7. Image paragraphs that follow a figure caption are centred.
//  8. The bibliography custom XML part is rebuilt from the source list.
//
// The output is assembled in memory and published with an atomic rename.
//
// # Markers
//
// The converter emits these tokens inside ordinary text runs:
//
//	[[MD2DOCX_CAPTION_FIG:id|title]]   figure caption (whole paragraph)
//	[[MD2DOCX_CAPTION_TAB:id|title]]   table caption (whole paragraph)
//	[[MD2DOCX_REF:fig:id]]             cross-reference
//	[[MD2DOCX_CITATION:tag]]           citation of a bibliography source
//
// A reference to an id no caption declares is rendered with the bare label and
// listed in Report.UnresolvedRefs; Config.StrictReferences turns it into
// ErrUnresolvedReference.
//
// # Error Handling
//
// Missing template landmarks are reported as *StructuralError and absent parts
// as *MissingPartError. Malformed ids are logged and skipped. I/O failures are
// wrapped in *DocumentError.
//
// # Configuration
//
// Labels, style ids and placeholder texts default to the Spanish corporate
// template and can be overridden with MD2DOCX_* environment variables or by
// passing a Config in Options.
package md2docx

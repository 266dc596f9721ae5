package md2docx

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	wxml "github.com/benjaminschreck/go-md2docx/pkg/md2docx/xml"
)

// Well-known part names
const (
	documentPart     = "word/document.xml"
	documentRelsPart = "word/_rels/document.xml.rels"
	footnotesPart    = "word/footnotes.xml"
	endnotesPart     = "word/endnotes.xml"
	stylesPart       = "word/styles.xml"
	numberingPart    = "word/numbering.xml"
	contentTypesPart = "[Content_Types].xml"
	customXMLPrefix  = "customXml/item"
	wordMediaPrefix  = "word/media/"
)

// DocxReader handles reading DOCX packages
type DocxReader struct {
	// Name identifies the package in errors and logs.
	Name   string
	reader *zip.Reader
	closer io.Closer
	Parts  map[string]*zip.File
	order  []string
}

// Relationship represents a relationship in the DOCX package
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

// IsExternal reports whether the target lives outside the package.
func (r Relationship) IsExternal() bool {
	return strings.EqualFold(r.TargetMode, "External")
}

// Relationships represents the collection of relationships
type Relationships struct {
	XMLName      xml.Name       `xml:"Relationships"`
	Namespace    string         `xml:"xmlns,attr"`
	Relationship []Relationship `xml:"Relationship"`
}

// NewDocxReader creates a reader over an in-memory package
func NewDocxReader(r io.ReaderAt, size int64) (*DocxReader, error) {
	zipReader, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to read zip file: %w", err)
	}
	return newDocxReader(zipReader, nil, "")
}

// OpenDocx opens a package from disk. The caller must Close it.
func OpenDocx(filePath string) (*DocxReader, error) {
	rc, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, NewDocumentError("open", filePath, err)
	}
	dr, err := newDocxReader(&rc.Reader, rc, filePath)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return dr, nil
}

func newDocxReader(zr *zip.Reader, closer io.Closer, name string) (*DocxReader, error) {
	dr := &DocxReader{
		Name:   name,
		reader: zr,
		closer: closer,
		Parts:  make(map[string]*zip.File, len(zr.File)),
	}

	for _, file := range zr.File {
		dr.Parts[file.Name] = file
		dr.order = append(dr.order, file.Name)
	}

	if _, ok := dr.Parts[documentPart]; !ok {
		return nil, &MissingPartError{Package: name, Part: documentPart}
	}

	return dr, nil
}

// Close releases the underlying file. It is safe to call more than once.
func (dr *DocxReader) Close() error {
	if dr == nil || dr.closer == nil {
		return nil
	}
	err := dr.closer.Close()
	dr.closer = nil
	return err
}

// HasPart reports whether the package contains partName.
func (dr *DocxReader) HasPart(partName string) bool {
	_, ok := dr.Parts[partName]
	return ok
}

// GetPart retrieves the content of a specific part
func (dr *DocxReader) GetPart(partName string) ([]byte, error) {
	file, ok := dr.Parts[partName]
	if !ok {
		return nil, &MissingPartError{Package: dr.Name, Part: partName}
	}

	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open part %s: %w", partName, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read part %s: %w", partName, err)
	}

	return content, nil
}

// ParsePart reads and parses an XML part into a node tree.
func (dr *DocxReader) ParsePart(partName string) (*wxml.Document, error) {
	content, err := dr.GetPart(partName)
	if err != nil {
		return nil, err
	}
	doc, err := wxml.ParseBytes(content)
	if err != nil {
		return nil, NewDocumentError("parse", partName, err)
	}
	return doc, nil
}

// relationshipsPartFor maps a part to its relationships part,
// e.g. "word/document.xml" -> "word/_rels/document.xml.rels".
func relationshipsPartFor(partName string) string {
	dir, base := path.Split(partName)
	return dir + "_rels/" + base + ".rels"
}

// GetRelationships retrieves relationships for a given part
func (dr *DocxReader) GetRelationships(partName string) ([]Relationship, error) {
	relPath := relationshipsPartFor(partName)
	if !dr.HasPart(relPath) {
		// Missing relationships file is not an error, just return empty
		return []Relationship{}, nil
	}

	content, err := dr.GetPart(relPath)
	if err != nil {
		return nil, err
	}

	var rels Relationships
	if err := xml.Unmarshal(content, &rels); err != nil {
		return nil, NewDocumentError("parse", relPath, err)
	}

	return rels.Relationship, nil
}

// ListParts returns the part names in archive order
func (dr *DocxReader) ListParts() []string {
	return append([]string(nil), dr.order...)
}

// CustomXMLItems returns the customXml/itemN.xml parts sorted by name.
func (dr *DocxReader) CustomXMLItems() []string {
	var items []string
	for name := range dr.Parts {
		if strings.HasPrefix(name, customXMLPrefix) && strings.HasSuffix(name, ".xml") &&
			!strings.Contains(name[len(customXMLPrefix):], "/") &&
			!strings.HasPrefix(name, "customXml/itemProps") {
			items = append(items, name)
		}
	}
	sort.Strings(items)
	return items
}

// marshalRelationships renders a relationships part.
func marshalRelationships(rels []Relationship) ([]byte, error) {
	out, err := xml.Marshal(Relationships{
		Namespace:    wxml.NSPackageRel,
		Relationship: rels,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal relationships: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

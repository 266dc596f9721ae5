package md2docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// DocumentPart represents a part of the DOCX package
type DocumentPart struct {
	Name    string
	Content []byte
}

// PackageWriter produces a new package from a source package. Parts that were not
// replaced are copied byte-for-byte, compressed payload included.
type PackageWriter struct {
	source   *DocxReader
	replaced map[string][]byte
	added    []DocumentPart
	addedIdx map[string]int
}

// NewPackageWriter creates a writer based on source.
func NewPackageWriter(source *DocxReader) *PackageWriter {
	return &PackageWriter{
		source:   source,
		replaced: make(map[string][]byte),
		addedIdx: make(map[string]int),
	}
}

// Replace substitutes the content of a part. A part the source does not contain
// is appended instead.
func (pw *PackageWriter) Replace(name string, content []byte) {
	if pw.source.HasPart(name) {
		pw.replaced[name] = content
		return
	}
	pw.Add(name, content)
}

// Add appends a new part. Adding the same name twice keeps the latest content at
// the original position.
func (pw *PackageWriter) Add(name string, content []byte) {
	if i, ok := pw.addedIdx[name]; ok {
		pw.added[i].Content = content
		return
	}
	pw.addedIdx[name] = len(pw.added)
	pw.added = append(pw.added, DocumentPart{Name: name, Content: content})
}

// Write streams the package to w.
func (pw *PackageWriter) Write(w io.Writer) error {
	zw := zip.NewWriter(w)

	for _, name := range pw.source.order {
		file := pw.source.Parts[name]
		content, ok := pw.replaced[name]
		if !ok {
			if err := zw.Copy(file); err != nil {
				return fmt.Errorf("failed to copy %s: %w", name, err)
			}
			continue
		}
		if err := writeZipEntry(zw, name, content, file.Modified); err != nil {
			return err
		}
	}

	now := time.Now()
	for _, part := range pw.added {
		if err := writeZipEntry(zw, part.Name, part.Content, now); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize zip: %w", err)
	}
	return nil
}

// Bytes assembles the whole package in memory.
func (pw *PackageWriter) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := pw.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeZipEntry(zw *zip.Writer, name string, content []byte, modified time.Time) error {
	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	if _, err := fw.Write(content); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// WriteFileAtomic writes content to a temporary file next to target and renames
// it into place. On failure target is left untouched.
func WriteFileAtomic(target string, content []byte) (err error) {
	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return NewDocumentError("write", target, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		return NewDocumentError("write", target, err)
	}
	if err = tmp.Sync(); err != nil {
		return NewDocumentError("write", target, err)
	}
	if err = tmp.Close(); err != nil {
		return NewDocumentError("write", target, err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return NewDocumentError("write", target, err)
	}
	if err = os.Rename(tmpName, target); err != nil {
		return NewDocumentError("write", target, err)
	}
	return nil
}

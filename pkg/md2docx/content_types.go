package md2docx

import (
	"path"
	"sort"
	"strings"

	wxml "github.com/benjaminschreck/go-md2docx/pkg/md2docx/xml"
)

var extensionContentTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"tif":  "image/tiff",
	"svg":  "image/svg+xml",
	"webp": "image/webp",
	"emf":  "image/x-emf",
	"wmf":  "image/x-wmf",
}

// mediaExtension returns the lower-cased extension of a part name without the dot.
func mediaExtension(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}

// ensureContentTypeDefaults registers a Default entry for every extension of
// parts that [Content_Types].xml does not know yet. It reports whether the part
// changed.
func ensureContentTypeDefaults(doc *wxml.Document, parts []DocumentPart) bool {
	root := doc.Root

	registered := make(map[string]bool)
	for _, def := range root.ChildrenNamed(wxml.NSContent, "Default") {
		registered[strings.ToLower(def.AttrValue("", "Extension"))] = true
	}

	missing := make(map[string]bool)
	for _, part := range parts {
		ext := mediaExtension(part.Name)
		if ext != "" && !registered[ext] {
			missing[ext] = true
		}
	}
	if len(missing) == 0 {
		return false
	}

	exts := make([]string, 0, len(missing))
	for ext := range missing {
		exts = append(exts, ext)
	}
	sort.Strings(exts)

	// Defaults conventionally precede Overrides.
	insertAt := len(root.Children)
	if first := root.Child(wxml.NSContent, "Override"); first != nil {
		insertAt = first.Index()
	}
	for _, ext := range exts {
		contentType, ok := extensionContentTypes[ext]
		if !ok {
			contentType = "image/" + ext
		}
		def := wxml.NewElement(root.Prefix, "Default", wxml.NSContent,
			wxml.Attr{Local: "Extension", Value: ext},
			wxml.Attr{Local: "ContentType", Value: contentType},
		)
		root.InsertAt(insertAt, def)
		insertAt++
	}
	return true
}

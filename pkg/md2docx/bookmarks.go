package md2docx

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	wxml "github.com/benjaminschreck/go-md2docx/pkg/md2docx/xml"
)

func isBookmarkNode(n *wxml.Node) bool {
	return n.Is(wxml.NSW, "bookmarkStart") || n.Is(wxml.NSW, "bookmarkEnd")
}

// maxBookmarkID returns the highest numeric bookmark id under root. Malformed ids
// are ignored.
func maxBookmarkID(root *wxml.Node) int {
	maxID := 0
	root.Walk(func(n *wxml.Node) bool {
		if !isBookmarkNode(n) {
			return n.Type == wxml.ElementNode
		}
		if id, err := strconv.Atoi(n.AttrValue(wxml.NSW, "id")); err == nil && id > maxID {
			maxID = id
		}
		return false
	})
	return maxID
}

// bookmarkNames returns the set of bookmark names declared under root.
func bookmarkNames(root *wxml.Node) map[string]bool {
	names := make(map[string]bool)
	for _, bm := range root.FindAll(wxml.NSW, "bookmarkStart") {
		names[bm.AttrValue(wxml.NSW, "name")] = true
	}
	return names
}

// RelocateBookmarks renumbers every bookmark id under root above floor, keeping
// start/end pairs matched. It returns the highest id assigned (floor when root has
// no bookmarks). Bookmarks with malformed ids are left as they are.
func RelocateBookmarks(root *wxml.Node, floor int) int {
	next := floor
	idMap := make(map[string]string)

	root.Walk(func(n *wxml.Node) bool {
		if !isBookmarkNode(n) {
			return n.Type == wxml.ElementNode
		}
		raw := n.AttrValue(wxml.NSW, "id")
		if _, err := strconv.Atoi(raw); err != nil {
			Warn("leaving bookmark with malformed id %q", raw)
			return false
		}
		newID, ok := idMap[raw]
		if !ok {
			next++
			newID = strconv.Itoa(next)
			idMap[raw] = newID
		}
		n.SetAttr(n.Prefix, "id", wxml.NSW, newID)
		return false
	})

	return next
}

var nonBookmarkChars = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// foldAccents strips combining marks so "Introducción" becomes "Introduccion".
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// maxBookmarkNameLen is the longest bookmark name Word keeps.
const maxBookmarkNameLen = 40

// captionBookmarkName derives the bookmark name of a caption from its kind prefix
// ("fig", "tab") and entity id. Word accepts letters, digits and underscores. An
// id that does not start with a letter is prefixed with "x_".
func captionBookmarkName(kind, id string) string {
	base := nonBookmarkChars.ReplaceAllString(foldAccents(strings.TrimSpace(id)), "_")
	if base == "" || !isASCIILetter(base[0]) {
		base = "x_" + base
	}
	name := kind + "_" + base
	if len(name) > maxBookmarkNameLen {
		name = name[:maxBookmarkNameLen]
	}
	return name
}

func isASCIILetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

package md2docx

import (
	"strconv"

	wxml "github.com/benjaminschreck/go-md2docx/pkg/md2docx/xml"
)

// NoteKind selects footnotes or endnotes.
type NoteKind string

const (
	Footnote NoteKind = "footnote"
	Endnote  NoteKind = "endnote"
)

func (k NoteKind) referenceElement() string {
	return string(k) + "Reference"
}

// NoteMerge is the outcome of merging one body note collection into the
// template's.
type NoteMerge struct {
	Kind NoteKind
	// IDMap maps body note ids to their ids in the merged collection. Reserved
	// ids never appear.
	IDMap map[string]string
	// Appended are the relocated copies now attached to the template collection.
	Appended []*wxml.Node
}

// parseNoteID parses a note id attribute. ok is false for malformed values.
func parseNoteID(n *wxml.Node) (id int, raw string, ok bool) {
	raw, present := n.Attr(wxml.NSW, "id")
	if !present {
		return 0, "", false
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, raw, false
	}
	return id, raw, true
}

// MergeNotes appends every positive-id note of body to template, renumbering above
// the template's highest id. Reserved (zero or negative) ids are left to the
// template; notes with malformed ids are skipped.
func MergeNotes(template, body *wxml.Document, kind NoteKind) *NoteMerge {
	merge := &NoteMerge{Kind: kind, IDMap: make(map[string]string)}
	log := WithField("kind", string(kind))

	maxID := 0
	for _, note := range template.Root.ChildrenNamed(wxml.NSW, string(kind)) {
		id, raw, ok := parseNoteID(note)
		if !ok {
			log.Warn("template %s has malformed id %q", kind, raw)
			continue
		}
		if id > maxID {
			maxID = id
		}
	}

	if body == nil {
		return merge
	}

	if _, conflicts := template.Root.MergeNamespaces(body.Root.Namespaces()); len(conflicts) > 0 {
		log.Warn("namespace prefixes bound differently in body %ss: %v", kind, conflicts)
	}

	next := maxID
	for _, note := range body.Root.ChildrenNamed(wxml.NSW, string(kind)) {
		id, raw, ok := parseNoteID(note)
		if !ok {
			log.Warn("skipping body %s with malformed id %q", kind, raw)
			continue
		}
		if id <= 0 {
			continue
		}
		if _, dup := merge.IDMap[raw]; dup {
			log.Warn("skipping duplicate body %s id %s", kind, raw)
			continue
		}

		next++
		newID := strconv.Itoa(next)
		relocated := note.Clone()
		relocated.SetAttr(note.Prefix, "id", wxml.NSW, newID)
		template.Root.AppendChild(relocated)

		merge.IDMap[raw] = newID
		merge.Appended = append(merge.Appended, relocated)
		log.Debug("relocated %s %s -> %s", kind, raw, newID)
	}

	return merge
}

// ApplyNoteMaps rewrites footnote and endnote references under root. References
// whose id is malformed or unknown are left untouched.
func ApplyNoteMaps(root *wxml.Node, footnotes, endnotes map[string]string) {
	byElement := map[string]map[string]string{
		Footnote.referenceElement(): footnotes,
		Endnote.referenceElement():  endnotes,
	}
	root.Walk(func(n *wxml.Node) bool {
		if n.Type != wxml.ElementNode {
			return false
		}
		if n.URI != wxml.NSW {
			return true
		}
		idMap, ok := byElement[n.Local]
		if !ok {
			return true
		}
		raw, present := n.Attr(wxml.NSW, "id")
		if !present {
			return true
		}
		if newID, ok := idMap[raw]; ok {
			n.SetAttr(n.Prefix, "id", wxml.NSW, newID)
		} else if _, err := strconv.Atoi(raw); err != nil {
			Warn("leaving %s with malformed id %q", n.Local, raw)
		}
		return true
	})
}

package md2docx

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	wxml "github.com/benjaminschreck/go-md2docx/pkg/md2docx/xml"
)

const (
	imageRelationshipType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	hyperlinkRelationType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
)

// RelationshipMerge is the outcome of merging the body's relationships into the
// template's table.
type RelationshipMerge struct {
	// IDMap maps body relationship ids to their ids in the merged table.
	IDMap map[string]string
	// Relationships is the merged table: the template's entries followed by the
	// relocated body entries.
	Relationships []Relationship
	// Media holds the image blobs to add to the output package.
	Media []DocumentPart
}

// extractRelationshipNumber extracts the numeric part from a relationship ID
// Example: "rId5" -> 5
func extractRelationshipNumber(rID string) (int, error) {
	if !strings.HasPrefix(rID, "rId") {
		return 0, fmt.Errorf("invalid relationship ID format: %s", rID)
	}

	num, err := strconv.Atoi(strings.TrimPrefix(rID, "rId"))
	if err != nil {
		return 0, fmt.Errorf("invalid relationship ID number: %s", rID)
	}

	return num, nil
}

func isImageRelationship(rel Relationship) bool {
	return rel.Type == imageRelationshipType || strings.HasSuffix(rel.Type, "/image")
}

func isHyperlinkRelationship(rel Relationship) bool {
	return rel.Type == hyperlinkRelationType || strings.HasSuffix(rel.Type, "/hyperlink")
}

// relationshipIDAllocator hands out rIdN ids above the template's highest id,
// skipping any id already present in either table.
type relationshipIDAllocator struct {
	next int
	used map[string]bool
}

func newRelationshipIDAllocator(template, body []Relationship) *relationshipIDAllocator {
	a := &relationshipIDAllocator{used: make(map[string]bool)}
	maxID := 0
	for _, rel := range template {
		a.used[rel.ID] = true
		if n, err := extractRelationshipNumber(rel.ID); err == nil && n > maxID {
			maxID = n
		}
	}
	for _, rel := range body {
		a.used[rel.ID] = true
	}
	a.next = maxID + 1
	return a
}

func (a *relationshipIDAllocator) allocate() string {
	for {
		id := fmt.Sprintf("rId%d", a.next)
		a.next++
		if !a.used[id] {
			a.used[id] = true
			return id
		}
	}
}

// mediaNamer picks media part names that collide neither with the template's
// parts nor with names handed out earlier.
type mediaNamer struct {
	taken   func(string) bool
	counter int
	used    map[string]bool
}

func (m *mediaNamer) next(ext string) string {
	for {
		m.counter++
		name := fmt.Sprintf("%simage_body_%d%s", wordMediaPrefix, m.counter, ext)
		if !m.taken(name) && !m.used[name] {
			m.used[name] = true
			return name
		}
	}
}

// resolveTarget resolves a relationship target against the directory of the part
// that owns the relationship.
func resolveTarget(ownerPart, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Clean(path.Join(path.Dir(ownerPart), target))
}

// RelationshipMerger merges relationship tables from a body package into a
// template package. One merger is shared by every part of a build so media names
// never collide.
type RelationshipMerger struct {
	template *DocxReader
	body     *DocxReader
	names    *mediaNamer
}

// NewRelationshipMerger creates a merger for one build.
func NewRelationshipMerger(template, body *DocxReader) *RelationshipMerger {
	return &RelationshipMerger{
		template: template,
		body:     body,
		names:    &mediaNamer{taken: template.HasPart, used: make(map[string]bool)},
	}
}

// MergeRelationships merges the image and hyperlink relationships of body's
// document part into template's.
func MergeRelationships(template, body *DocxReader) (*RelationshipMerge, error) {
	return NewRelationshipMerger(template, body).Merge(documentPart)
}

// Merge merges the image and hyperlink relationships of partName. Image blobs are
// copied under fresh names; other relationship types stay with the template.
func (m *RelationshipMerger) Merge(partName string) (*RelationshipMerge, error) {
	templateRels, err := m.template.GetRelationships(partName)
	if err != nil {
		return nil, err
	}
	bodyRels, err := m.body.GetRelationships(partName)
	if err != nil {
		return nil, err
	}

	ids := newRelationshipIDAllocator(templateRels, bodyRels)
	merge := &RelationshipMerge{
		IDMap:         make(map[string]string),
		Relationships: append([]Relationship(nil), templateRels...),
	}

	for _, rel := range bodyRels {
		image := isImageRelationship(rel)
		if !image && !isHyperlinkRelationship(rel) {
			continue
		}

		newID := ids.allocate()
		merge.IDMap[rel.ID] = newID

		if !image || rel.IsExternal() {
			merge.Relationships = append(merge.Relationships, Relationship{
				ID:         newID,
				Type:       rel.Type,
				Target:     rel.Target,
				TargetMode: rel.TargetMode,
			})
			Debug("relocated %s relationship %s -> %s in %s", path.Base(rel.Type), rel.ID, newID, partName)
			continue
		}

		source := resolveTarget(partName, rel.Target)
		blob, err := m.body.GetPart(source)
		if err != nil {
			return nil, WithContext(err, "merge image relationship", map[string]interface{}{"id": rel.ID, "part": partName})
		}

		mediaName := m.names.next(strings.ToLower(path.Ext(source)))
		merge.Media = append(merge.Media, DocumentPart{Name: mediaName, Content: blob})
		merge.Relationships = append(merge.Relationships, Relationship{
			ID:     newID,
			Type:   rel.Type,
			Target: relativeTarget(partName, mediaName),
		})
		Debug("relocated image %s (%s) -> %s (%s)", rel.ID, source, newID, mediaName)
	}

	return merge, nil
}

// relativeTarget expresses a package part name relative to the directory of the
// part owning the relationship.
func relativeTarget(ownerPart, partName string) string {
	dir := path.Dir(ownerPart) + "/"
	if strings.HasPrefix(partName, dir) {
		return strings.TrimPrefix(partName, dir)
	}
	return "/" + partName
}

// ApplyRelationshipMap rewrites every relationship-namespace attribute under root
// (r:embed, r:link, r:id, ...) whose value idMap knows. Section properties are
// skipped. It returns the referenced ids idMap did not cover.
func ApplyRelationshipMap(root *wxml.Node, idMap map[string]string) []string {
	var unmapped []string
	seen := make(map[string]bool)

	root.Walk(func(n *wxml.Node) bool {
		if n.Type != wxml.ElementNode {
			return false
		}
		if n.Is(wxml.NSW, "sectPr") {
			return false
		}
		for i := range n.Attrs {
			attr := &n.Attrs[i]
			if attr.URI != wxml.NSR {
				continue
			}
			if newID, ok := idMap[attr.Value]; ok {
				attr.Value = newID
				continue
			}
			if !seen[attr.Value] {
				seen[attr.Value] = true
				unmapped = append(unmapped, attr.Value)
			}
		}
		return true
	})

	return unmapped
}

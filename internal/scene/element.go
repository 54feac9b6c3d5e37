package scene

// ElementTypeImage is the element type that references an attachment.
const ElementTypeImage = "image"

// Element is a single vector shape. Only a handful of fields are interpreted
// here; everything else is carried through as-is.
type Element map[string]any

func (e Element) ID() string {
	s, _ := e["id"].(string)
	return s
}

func (e Element) Type() string {
	s, _ := e["type"].(string)
	return s
}

// FileID returns the referenced attachment id, or "" when the element has
// none (including an explicit null).
func (e Element) FileID() string {
	s, _ := e["fileId"].(string)
	return s
}

func (e Element) IsDeleted() bool {
	b, _ := e["isDeleted"].(bool)
	return b
}

// IsImage reports whether the element embeds an attachment.
func (e Element) IsImage() bool {
	return e.Type() == ElementTypeImage && e.FileID() != ""
}

// FilterTombstones returns the elements that are not marked deleted.
// The result is never nil so it always serializes as a JSON array.
func FilterTombstones(elements []Element) []Element {
	out := make([]Element, 0, len(elements))
	for _, e := range elements {
		if e == nil || e.IsDeleted() {
			continue
		}
		out = append(out, e)
	}
	return out
}

// ReferencedFileIDs returns the distinct attachment ids referenced by
// non-deleted image elements, in order of first appearance.
func ReferencedFileIDs(elements []Element) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, e := range elements {
		if e == nil || e.IsDeleted() || !e.IsImage() {
			continue
		}
		id := e.FileID()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

package scene

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// ephemeralAppStateKeys are app-state fields that only describe the live
// session and must never be persisted or pushed.
var ephemeralAppStateKeys = []string{"collaborators"}

// AppState is the view/document settings object of the drawing surface.
type AppState map[string]any

// WithoutEphemeral returns a shallow copy of s with ephemeral keys removed.
func (s AppState) WithoutEphemeral() AppState {
	out := make(AppState, len(s))
	for k, v := range s {
		out[k] = v
	}
	for _, k := range ephemeralAppStateKeys {
		delete(out, k)
	}
	return out
}

// Document is the drawing payload of a scene. Files are resolved lazily and
// are not part of the remote data column.
type Document struct {
	Elements []Element `json:"elements"`
	AppState AppState  `json:"appState"`
	Files    FileMap   `json:"-"`
}

// EmptyDocument is the placeholder shown before anything is loaded.
func EmptyDocument() Document {
	return Document{Elements: []Element{}, AppState: AppState{}, Files: FileMap{}}
}

// Sanitized returns the persistable form of d: tombstones filtered and
// ephemeral app state stripped. Files are carried over unchanged.
func (d Document) Sanitized() Document {
	return Document{
		Elements: FilterTombstones(d.Elements),
		AppState: d.AppState.WithoutEphemeral(),
		Files:    d.Files,
	}
}

var equalOpts = cmp.Options{cmpopts.EquateEmpty()}

// Equal reports deep structural equality of elements and app state.
// Nil and empty collections are considered equal; files are ignored.
func (d Document) Equal(other Document) bool {
	return cmp.Equal(d.Elements, other.Elements, equalOpts) &&
		cmp.Equal(d.AppState, other.AppState, equalOpts)
}

// ReferencedFileIDs is a shortcut for ReferencedFileIDs(d.Elements).
func (d Document) ReferencedFileIDs() []string {
	return ReferencedFileIDs(d.Elements)
}

// IsDark reports whether the surface was in dark theme.
func (d Document) IsDark() bool {
	theme, _ := d.AppState["theme"].(string)
	return theme == "dark"
}

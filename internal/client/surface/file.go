// Package surface adapts an Excalidraw JSON file on disk to the drawing
// surface the sync engine talks to: it hydrates the file with a scene,
// replaces the live view, and reports external edits.
package surface

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/dmitrijs2005/scenesync/internal/logging"
	"github.com/dmitrijs2005/scenesync/internal/scene"
)

const (
	fileType    = "excalidraw"
	fileVersion = 2
	fileSource  = "scenesync"
)

// fileFormat is the on-disk layout written by the Excalidraw editor.
type fileFormat struct {
	Type     string          `json:"type"`
	Version  int             `json:"version"`
	Source   string          `json:"source,omitempty"`
	Elements []scene.Element `json:"elements"`
	AppState scene.AppState  `json:"appState"`
	Files    scene.FileMap   `json:"files"`
}

// FileSurface is safe for concurrent use.
type FileSurface struct {
	path string
	log  logging.Logger

	mu       sync.Mutex
	lastSeen string
}

func NewFileSurface(path string, log logging.Logger) *FileSurface {
	return &FileSurface{
		path: path,
		log:  log.With("module", "surface", "path", path),
	}
}

func (s *FileSurface) Path() string { return s.path }

// Load parses the file. A missing file gives an error matching
// fs.ErrNotExist.
func (s *FileSurface) Load() (scene.Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return scene.Document{}, err
	}
	doc, err := decode(data)
	if err != nil {
		return scene.Document{}, err
	}
	s.remember(data)
	return doc, nil
}

func decode(data []byte) (scene.Document, error) {
	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return scene.Document{}, fmt.Errorf("parse scene file: %w", err)
	}
	if f.Type != "" && f.Type != fileType {
		return scene.Document{}, fmt.Errorf("parse scene file: unexpected type %q", f.Type)
	}
	doc := scene.Document{Elements: f.Elements, AppState: f.AppState, Files: f.Files}
	if doc.Elements == nil {
		doc.Elements = []scene.Element{}
	}
	if doc.AppState == nil {
		doc.AppState = scene.AppState{}
	}
	if doc.Files == nil {
		doc.Files = scene.FileMap{}
	}
	return doc, nil
}

// Render replaces the file content with doc. The write goes through a
// temporary file and a rename so watchers never see a partial scene.
func (s *FileSurface) Render(doc scene.Document) error {
	files := doc.Files
	if files == nil {
		files = scene.FileMap{}
	}
	data, err := json.MarshalIndent(fileFormat{
		Type:     fileType,
		Version:  fileVersion,
		Source:   fileSource,
		Elements: scene.FilterTombstones(doc.Elements),
		AppState: doc.AppState.WithoutEphemeral(),
		Files:    files,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode scene file: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// recorded before the rename so the resulting event is recognised
	s.remember(data)
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace scene file: %w", err)
	}
	return nil
}

func (s *FileSurface) remember(data []byte) {
	s.mu.Lock()
	s.lastSeen = scene.FileID(data)
	s.mu.Unlock()
}

// changed reports whether data differs from the last content written or
// read, and records it.
func (s *FileSurface) changed(data []byte) bool {
	digest := scene.FileID(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	if digest == s.lastSeen {
		return false
	}
	s.lastSeen = digest
	return true
}

// Watch reports external edits of the file until ctx is done. The parent
// directory is watched so editors that save by rename are followed. The
// surface's own writes and unparsable intermediate states are skipped.
// The returned channel is closed when watching stops.
func (s *FileSurface) Watch(ctx context.Context) (<-chan scene.Document, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	out := make(chan scene.Document, 1)
	go func() {
		defer close(out)
		defer w.Close()

		name := filepath.Clean(s.path)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != name || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				doc, ok := s.readChange(ctx)
				if !ok {
					continue
				}
				select {
				case out <- doc:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Warn(ctx, "file watcher error", "error", err)
			}
		}
	}()
	return out, nil
}

func (s *FileSurface) readChange(ctx context.Context) (scene.Document, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn(ctx, "failed to read scene file", "error", err)
		}
		return scene.Document{}, false
	}
	if len(data) == 0 {
		return scene.Document{}, false
	}
	doc, err := decode(data)
	if err != nil {
		s.log.Debug(ctx, "skipping unparsable scene file", "error", err)
		return scene.Document{}, false
	}
	if !s.changed(data) {
		return scene.Document{}, false
	}
	return doc, true
}

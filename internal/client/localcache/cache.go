// Package localcache is the durable per-device store of scene documents,
// attachments and previews. It is the source of truth for what the user sees
// before the remote store answers and while offline.
//
// Documents are stored sanitized (no tombstones, no ephemeral appState) as
// JSON with sorted map keys, so saving the same logical document twice
// writes identical bytes. Attachments are stored once per content id,
// regardless of how many scenes reference them.
package localcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/scenesync/internal/client/kvstore"
	"github.com/dmitrijs2005/scenesync/internal/client/preview"
	"github.com/dmitrijs2005/scenesync/internal/logging"
	"github.com/dmitrijs2005/scenesync/internal/scene"
)

// Options tunes a Cache. Zero values select defaults.
type Options struct {
	Renderer       preview.Renderer
	PreviewQuality int
	Now            func() time.Time
}

type Cache struct {
	store    kvstore.Store
	renderer preview.Renderer
	quality  int
	log      logging.Logger
	now      func() time.Time
}

func New(store kvstore.Store, log logging.Logger, opts Options) *Cache {
	c := &Cache{
		store:    store,
		renderer: opts.Renderer,
		quality:  opts.PreviewQuality,
		log:      log.With("module", "localcache"),
		now:      opts.Now,
	}
	if c.renderer == nil {
		c.renderer = preview.BoxRenderer{}
	}
	if c.quality == 0 {
		c.quality = preview.DefaultQuality
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// SaveDocument persists the sanitized document and the attachments it
// references.
func (c *Cache) SaveDocument(ctx context.Context, sceneID int64, doc scene.Document) error {
	clean := doc.Sanitized()

	elements, err := json.Marshal(clean.Elements)
	if err != nil {
		return fmt.Errorf("encode elements: %w", err)
	}
	appState, err := json.Marshal(clean.AppState)
	if err != nil {
		return fmt.Errorf("encode appstate: %w", err)
	}

	if err := c.store.SetMany(ctx, []kvstore.Entry{
		{Key: elementsKey(sceneID), Value: elements},
		{Key: appStateKey(sceneID), Value: appState},
	}); err != nil {
		return fmt.Errorf("save scene %d: %w", sceneID, err)
	}

	return c.SaveFiles(ctx, clean.Elements, doc.Files)
}

// LoadDocument returns the cached document, or nil when the scene was never
// saved on this device. An undecodable entry is logged and treated as absent.
func (c *Cache) LoadDocument(ctx context.Context, sceneID int64) (*scene.Document, error) {
	values, err := c.store.GetMany(ctx, []string{elementsKey(sceneID), appStateKey(sceneID)})
	if err != nil {
		return nil, fmt.Errorf("load scene %d: %w", sceneID, err)
	}
	if values[0] == nil {
		return nil, nil
	}

	doc := scene.EmptyDocument()
	if err := json.Unmarshal(values[0], &doc.Elements); err != nil {
		c.log.Warn(ctx, "discarding corrupt cached elements", "scene_id", sceneID, "error", err)
		return nil, nil
	}
	if values[1] != nil {
		if err := json.Unmarshal(values[1], &doc.AppState); err != nil {
			c.log.Warn(ctx, "discarding corrupt cached appstate", "scene_id", sceneID, "error", err)
			return nil, nil
		}
	}
	if doc.Elements == nil {
		doc.Elements = []scene.Element{}
	}
	if doc.AppState == nil {
		doc.AppState = scene.AppState{}
	}

	files, err := c.GetFiles(ctx, doc.ReferencedFileIDs())
	if err != nil {
		return nil, err
	}
	doc.Files = files
	return &doc, nil
}

// SaveFiles stores the attachments referenced by live image elements.
// New or changed records are stamped with lastRetrieved; a record already
// stored with the same content is left as is. Files nobody references are
// skipped.
func (c *Cache) SaveFiles(ctx context.Context, elements []scene.Element, files scene.FileMap) error {
	if len(files) == 0 {
		return nil
	}

	var ids []string
	for _, id := range scene.ReferencedFileIDs(elements) {
		if f, ok := files[id]; ok && f != nil {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	stored, err := c.GetFiles(ctx, ids)
	if err != nil {
		return err
	}

	now := c.now().UnixMilli()
	var entries []kvstore.Entry
	for _, id := range ids {
		f := files[id]
		if old, ok := stored[id]; ok && old.MimeType == f.MimeType && old.DataURL == f.DataURL {
			continue
		}
		stamped := *f
		stamped.LastRetrieved = now

		data, err := encodeFile(&stamped)
		if err != nil {
			c.log.Warn(ctx, "skipping attachment", "file_id", id, "error", err)
			continue
		}
		entries = append(entries, kvstore.Entry{Key: fileKey(id), Value: data})
	}
	if len(entries) == 0 {
		return nil
	}

	if err := c.store.SetMany(ctx, entries); err != nil {
		return fmt.Errorf("save files: %w", err)
	}
	return nil
}

// SaveFile stores a single attachment as is.
func (c *Cache) SaveFile(ctx context.Context, f *scene.BinaryFile) error {
	data, err := encodeFile(f)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, fileKey(f.ID), data)
}

// GetFiles returns the cached attachments among ids. Missing and corrupt
// records are left out of the result.
func (c *Cache) GetFiles(ctx context.Context, ids []string) (scene.FileMap, error) {
	files := scene.FileMap{}
	if len(ids) == 0 {
		return files, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = fileKey(id)
	}
	values, err := c.store.GetMany(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("get files: %w", err)
	}

	for i, v := range values {
		if v == nil {
			continue
		}
		f, err := decodeFile(v)
		if err != nil {
			c.log.Warn(ctx, "skipping corrupt attachment", "file_id", ids[i], "error", err)
			continue
		}
		files[f.ID] = f
	}
	return files, nil
}

// SavePreview renders and stores the scene thumbnail.
func (c *Cache) SavePreview(ctx context.Context, sceneID int64, elements []scene.Element, files scene.FileMap, isDark bool) error {
	img, err := c.renderer.Render(elements, files, preview.Options{
		Padding: preview.DefaultPadding,
		Dark:    isDark,
	})
	if err != nil {
		return fmt.Errorf("render preview: %w", err)
	}
	data, err := preview.EncodeJPEG(img, c.quality)
	if err != nil {
		return err
	}
	if err := c.store.Set(ctx, previewKey(sceneID), data); err != nil {
		return fmt.Errorf("save preview: %w", err)
	}
	return nil
}

// GetPreview returns the stored thumbnail or nil.
func (c *Cache) GetPreview(ctx context.Context, sceneID int64) ([]byte, error) {
	return c.store.Get(ctx, previewKey(sceneID))
}

// DeleteScene removes every per-scene key. Attachments are left for GC.
func (c *Cache) DeleteScene(ctx context.Context, sceneID int64) error {
	keys, err := c.store.Keys(ctx, sceneKey(sceneID, ""))
	if err != nil {
		return err
	}
	return c.store.Delete(ctx, keys...)
}

// SceneIDs lists the scenes with any cached state, ascending.
func (c *Cache) SceneIDs(ctx context.Context) ([]int64, error) {
	keys, err := c.store.Keys(ctx, scenePrefix)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for _, k := range keys {
		if id, ok := parseSceneKey(k); ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// GCReport summarises a GC pass.
type GCReport struct {
	ScenesRemoved []int64
	FilesRemoved  int
}

// GC drops cached scenes that isLive reports gone, then attachments no
// remaining cached scene references. A scene whose liveness cannot be
// determined is kept; the failures are returned joined.
func (c *Cache) GC(ctx context.Context, isLive func(ctx context.Context, sceneID int64) (bool, error)) (GCReport, error) {
	var report GCReport

	ids, err := c.SceneIDs(ctx)
	if err != nil {
		return report, err
	}

	var errs []error
	referenced := map[string]struct{}{}
	for _, id := range ids {
		live, err := isLive(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("scene %d: %w", id, err))
			live = true
		}
		if !live {
			if err := c.DeleteScene(ctx, id); err != nil {
				return report, err
			}
			report.ScenesRemoved = append(report.ScenesRemoved, id)
			continue
		}

		raw, err := c.store.Get(ctx, elementsKey(id))
		if err != nil {
			return report, err
		}
		var elements []scene.Element
		if raw != nil && json.Unmarshal(raw, &elements) == nil {
			for _, fid := range scene.ReferencedFileIDs(elements) {
				referenced[fid] = struct{}{}
			}
		}
	}

	fileKeys, err := c.store.Keys(ctx, filePrefix)
	if err != nil {
		return report, err
	}
	var orphans []string
	for _, k := range fileKeys {
		if _, ok := referenced[k[len(filePrefix):]]; !ok {
			orphans = append(orphans, k)
		}
	}
	if err := c.store.Delete(ctx, orphans...); err != nil {
		return report, err
	}
	report.FilesRemoved = len(orphans)

	c.log.Info(ctx, "cache gc done", "scenes_removed", len(report.ScenesRemoved), "files_removed", report.FilesRemoved)
	return report, errors.Join(errs...)
}

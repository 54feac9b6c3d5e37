// Package attachments moves image attachments between the local cache and
// the remote blob store for one scene session.
//
// The synchronizer keeps a per-session set of ids known to exist remotely so
// each attachment is uploaded at most once per session. The set is seeded
// from a listing of the scene namespace when the session starts.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/scenesync/internal/client/blobstore"
	"github.com/dmitrijs2005/scenesync/internal/client/metrics"
	"github.com/dmitrijs2005/scenesync/internal/logging"
	"github.com/dmitrijs2005/scenesync/internal/scene"
)

// FileCache is the attachment part of the local cache.
type FileCache interface {
	GetFiles(ctx context.Context, ids []string) (scene.FileMap, error)
	SaveFile(ctx context.Context, f *scene.BinaryFile) error
}

type Synchronizer struct {
	blobs   blobstore.Store
	cache   FileCache
	ns      blobstore.Namespace
	log     logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu       sync.Mutex
	uploaded map[string]struct{}
}

func New(blobs blobstore.Store, cache FileCache, ns blobstore.Namespace, log logging.Logger, m *metrics.Metrics, now func() time.Time) *Synchronizer {
	if now == nil {
		now = time.Now
	}
	return &Synchronizer{
		blobs:    blobs,
		cache:    cache,
		ns:       ns,
		log:      log.With("module", "attachments", "scene_id", ns.SceneID),
		metrics:  m,
		now:      now,
		uploaded: map[string]struct{}{},
	}
}

// Seed marks every attachment already stored under the namespace as
// uploaded.
func (s *Synchronizer) Seed(ctx context.Context) error {
	ids, err := s.blobs.List(ctx, s.ns)
	if err != nil {
		return fmt.Errorf("seed uploaded attachments: %w", err)
	}
	s.mu.Lock()
	for _, id := range ids {
		s.uploaded[id] = struct{}{}
	}
	s.mu.Unlock()
	s.log.Debug(ctx, "seeded uploaded attachments", "count", len(ids))
	return nil
}

// Uploaded reports whether id is known to exist remotely.
func (s *Synchronizer) Uploaded(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.uploaded[id]
	return ok
}

func (s *Synchronizer) markUploaded(id string) {
	s.mu.Lock()
	s.uploaded[id] = struct{}{}
	s.mu.Unlock()
}

// SyncFilesForRender resolves the attachments referenced by elements: cache
// hits first, then downloads for the rest. Downloaded attachments are
// written back to the cache. Per-file failures do not stop the others; they
// are returned joined and the affected ids are missing from the result.
func (s *Synchronizer) SyncFilesForRender(ctx context.Context, elements []scene.Element) (scene.FileMap, error) {
	ids := scene.ReferencedFileIDs(elements)
	if len(ids) == 0 {
		return scene.FileMap{}, nil
	}

	var errs []error
	files, err := s.cache.GetFiles(ctx, ids)
	if err != nil {
		errs = append(errs, err)
		files = scene.FileMap{}
	}

	for _, id := range ids {
		if _, ok := files[id]; ok {
			continue
		}

		obj, err := s.blobs.Download(ctx, s.ns, id)
		s.metrics.IncTransfer(metrics.DirectionDownload, err)
		if err != nil {
			s.log.Warn(ctx, "attachment download failed", "file_id", id, "error", err)
			errs = append(errs, fmt.Errorf("download %s: %w", id, err))
			continue
		}
		s.markUploaded(id)

		mime := obj.ContentType
		if mime == "" {
			mime = http.DetectContentType(obj.Data)
		}
		ms := s.now().UnixMilli()
		f := &scene.BinaryFile{
			ID:            id,
			MimeType:      mime,
			DataURL:       scene.EncodeDataURL(mime, obj.Data),
			Created:       ms,
			LastRetrieved: ms,
		}
		if err := s.cache.SaveFile(ctx, f); err != nil {
			errs = append(errs, fmt.Errorf("cache %s: %w", id, err))
		}
		files[id] = f
	}

	return files, errors.Join(errs...)
}

// UploadMissing uploads every attachment referenced by elements that is not
// yet known remotely. Ids that fail stay out of the uploaded set so the next
// call retries them.
func (s *Synchronizer) UploadMissing(ctx context.Context, files scene.FileMap, elements []scene.Element) error {
	var errs []error
	for _, id := range scene.ReferencedFileIDs(elements) {
		if s.Uploaded(id) {
			continue
		}
		f, ok := files[id]
		if !ok || f == nil {
			s.log.Debug(ctx, "attachment not available locally", "file_id", id)
			continue
		}

		data, err := f.Bytes()
		if err == nil {
			err = s.blobs.Upload(ctx, s.ns, id, data, blobstore.UploadOptions{
				ContentType: f.MimeType,
				Overwrite:   true,
			})
		}
		s.metrics.IncTransfer(metrics.DirectionUpload, err)
		if err != nil {
			s.log.Warn(ctx, "attachment upload failed", "file_id", id, "error", err)
			errs = append(errs, fmt.Errorf("upload %s: %w", id, err))
			continue
		}
		s.markUploaded(id)
	}
	return errors.Join(errs...)
}

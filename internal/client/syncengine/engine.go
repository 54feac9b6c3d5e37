// Package syncengine wires the local cache, the change coalescer, the
// attachment synchronizer and the reconciler into one session per open
// scene.
package syncengine

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/scenesync/internal/client/attachments"
	"github.com/dmitrijs2005/scenesync/internal/client/blobstore"
	"github.com/dmitrijs2005/scenesync/internal/client/coalescer"
	"github.com/dmitrijs2005/scenesync/internal/client/localcache"
	"github.com/dmitrijs2005/scenesync/internal/client/metrics"
	"github.com/dmitrijs2005/scenesync/internal/client/reconciler"
	"github.com/dmitrijs2005/scenesync/internal/logging"
	"github.com/dmitrijs2005/scenesync/internal/scene"
)

// Cache is everything a session needs from the local cache.
type Cache interface {
	reconciler.Cache
	attachments.FileCache
}

var _ Cache = (*localcache.Cache)(nil)

type Options struct {
	OwnerID   string
	Device    scene.DeviceIdentity
	Coalescer coalescer.Config
	Metrics   *metrics.Metrics
	Now       func() time.Time
	// OnStatus is called with the scene id on every sync status change.
	OnStatus func(sceneID int64, st scene.SyncStatus)
}

type Engine struct {
	store reconciler.SceneStore
	cache Cache
	blobs blobstore.Store
	opts  Options
	log   logging.Logger
}

func New(store reconciler.SceneStore, cache Cache, blobs blobstore.Store, log logging.Logger, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		store: store,
		cache: cache,
		blobs: blobs,
		opts:  opts,
		log:   log.With("module", "syncengine"),
	}
}

// Session is one open scene. It is safe for concurrent use.
type Session struct {
	id         int64
	reconciler *reconciler.Session
	coalescer  *coalescer.Coalescer
	log        logging.Logger

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Open starts a session for sceneID. The coalescer loop runs until Close.
func (e *Engine) Open(ctx context.Context, sceneID int64) *Session {
	att := attachments.New(e.blobs, e.cache,
		blobstore.Namespace{OwnerID: e.opts.OwnerID, SceneID: sceneID},
		e.log, e.opts.Metrics, e.opts.Now)

	var onStatus func(scene.SyncStatus)
	if e.opts.OnStatus != nil {
		cb := e.opts.OnStatus
		onStatus = func(st scene.SyncStatus) { cb(sceneID, st) }
	}

	rec := reconciler.New(reconciler.Config{
		SceneID:     sceneID,
		OwnerID:     e.opts.OwnerID,
		Device:      e.opts.Device,
		Store:       e.store,
		Cache:       e.cache,
		Attachments: att,
		Log:         e.log,
		Metrics:     e.opts.Metrics,
		Now:         e.opts.Now,
		OnStatus:    onStatus,
	})

	s := &Session{
		id:         sceneID,
		reconciler: rec,
		coalescer:  coalescer.New(sceneID, e.cache, pushObserved(rec), e.opts.Coalescer, e.log, e.opts.Now),
		log:        e.log.With("scene_id", sceneID),
		done:       make(chan struct{}),
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	go func() {
		defer close(s.done)
		s.coalescer.Run(loopCtx)
	}()

	s.log.Debug(ctx, "session opened")
	return s
}

// pushObserved ignores the coalescer's snapshot: OnChange hands every edit
// to the reconciler, whose copy is never older than the snapshot.
func pushObserved(rec *reconciler.Session) coalescer.Action {
	return func(ctx context.Context, _ scene.Document) error {
		return rec.SyncObserved(ctx)
	}
}

func (s *Session) ID() int64 { return s.id }

func (s *Session) LoadLocalOrPlaceholder(ctx context.Context) scene.Document {
	return s.reconciler.LoadLocalOrPlaceholder(ctx)
}

// Hydrate resolves the session against the remote row. Offline edits that
// were never pushed are scheduled right away.
func (s *Session) Hydrate(ctx context.Context) (scene.Document, error) {
	doc, err := s.reconciler.Hydrate(ctx)
	if err != nil {
		return doc, err
	}
	if s.reconciler.State() == reconciler.StateSyncing && s.reconciler.Status() == scene.StatusSyncing {
		if err := s.coalescer.OnChange(ctx, doc); err != nil {
			s.log.Warn(ctx, "failed to schedule offline edits", "error", err)
		}
	}
	return doc, nil
}

// OnChange takes an edit from the drawing surface: it is written to the
// local cache at once and pushed after the quiet period. The reconciler
// sees the edit before the coalescer is re-armed, so a tick never pushes a
// document older than the one that armed it.
func (s *Session) OnChange(ctx context.Context, doc scene.Document) error {
	s.reconciler.Observe(doc)
	return s.coalescer.OnChange(ctx, doc)
}

func (s *Session) SaveNow(ctx context.Context) error {
	return s.reconciler.SaveNow(ctx)
}

func (s *Session) AdoptRemote(ctx context.Context) (scene.Document, error) {
	return s.reconciler.AdoptRemote(ctx)
}

func (s *Session) State() reconciler.State { return s.reconciler.State() }

func (s *Session) Status() scene.SyncStatus { return s.reconciler.Status() }

func (s *Session) Current() scene.Document { return s.reconciler.Current() }

func (s *Session) LastError() error { return s.reconciler.LastError() }

// Close stops the timer loop and flushes a pending push.
func (s *Session) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
		err = s.coalescer.Flush(ctx)
		s.log.Debug(ctx, "session closed")
	})
	return err
}

// Package reconciler decides, for one editing session, whether this device
// may write a scene to the remote store, and performs the reads and writes.
//
// Each scene row carries the origin tag of the device that last wrote it.
// A session whose device matches the tag resumes pushing; any other device
// sees the scene as foreign and stops automatic pushes. Nothing is ever
// merged: the caller either overwrites (SaveNow) or adopts the remote copy
// (AdoptRemote).
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/scenesync/internal/client/metrics"
	"github.com/dmitrijs2005/scenesync/internal/common"
	"github.com/dmitrijs2005/scenesync/internal/logging"
	"github.com/dmitrijs2005/scenesync/internal/scene"
)

// ErrPushInProgress is returned by Sync when another push is running.
var ErrPushInProgress = errors.New("push already in progress")

// SceneStore is the remote document store as seen by one owner.
type SceneStore interface {
	Get(ctx context.Context, id int64) (*scene.Scene, error)
	Update(ctx context.Context, id int64, patch scene.ScenePatch) (*scene.Scene, error)
}

// Cache is the document part of the local cache.
type Cache interface {
	LoadDocument(ctx context.Context, sceneID int64) (*scene.Document, error)
	SaveDocument(ctx context.Context, sceneID int64, doc scene.Document) error
	SavePreview(ctx context.Context, sceneID int64, elements []scene.Element, files scene.FileMap, isDark bool) error
}

// Attachments moves image attachments between cache and blob store.
type Attachments interface {
	Seed(ctx context.Context) error
	SyncFilesForRender(ctx context.Context, elements []scene.Element) (scene.FileMap, error)
	UploadMissing(ctx context.Context, files scene.FileMap, elements []scene.Element) error
}

type Config struct {
	SceneID     int64
	OwnerID     string
	Device      scene.DeviceIdentity
	Store       SceneStore
	Cache       Cache
	Attachments Attachments
	Log         logging.Logger
	Metrics     *metrics.Metrics
	Now         func() time.Time
	// OnStatus, when set, is called after every status change.
	OnStatus func(scene.SyncStatus)
}

type Session struct {
	sceneID     int64
	ownerID     string
	device      scene.DeviceIdentity
	store       SceneStore
	cache       Cache
	attachments Attachments
	log         logging.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
	onStatus    func(scene.SyncStatus)

	mu         sync.Mutex
	state      State
	status     scene.SyncStatus
	lastErr    error
	current    scene.Document
	loaded     bool
	hasLocal   bool
	lastPushed *scene.Document
	pushing    bool
	seeded     bool
}

func New(cfg Config) *Session {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	log := cfg.Log
	if log == nil {
		log = logging.Nop()
	}
	return &Session{
		sceneID:     cfg.SceneID,
		ownerID:     cfg.OwnerID,
		device:      cfg.Device,
		store:       cfg.Store,
		cache:       cfg.Cache,
		attachments: cfg.Attachments,
		log:         log.With("module", "reconciler", "scene_id", cfg.SceneID),
		metrics:     cfg.Metrics,
		now:         now,
		onStatus:    cfg.OnStatus,
		state:       StateInit,
		status:      scene.StatusSynced,
		current:     scene.EmptyDocument(),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Status() scene.SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Current returns the latest document seen by the session.
func (s *Session) Current() scene.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// setStatus must be called with mu held. It returns the callback to run
// after unlocking, or nil.
func (s *Session) setStatus(st scene.SyncStatus) func() {
	if s.status == st {
		return nil
	}
	s.status = st
	if s.onStatus == nil {
		return nil
	}
	cb := s.onStatus
	return func() { cb(st) }
}

func run(f func()) {
	if f != nil {
		f()
	}
}

// LoadLocalOrPlaceholder returns the cached document, or an empty
// placeholder when there is none. It never blocks on the network.
func (s *Session) LoadLocalOrPlaceholder(ctx context.Context) scene.Document {
	doc, err := s.cache.LoadDocument(ctx, s.sceneID)
	if err != nil {
		s.log.Warn(ctx, "local cache unavailable, starting from placeholder", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	if doc == nil {
		s.hasLocal = false
		s.current = scene.EmptyDocument()
	} else {
		s.hasLocal = true
		s.current = *doc
	}
	return s.current
}

// decide must be called with mu held.
func (s *Session) decide(remote *scene.Scene) State {
	switch {
	case remote.OwnerID != s.ownerID:
		return StateReadOnly
	case remote.OriginTag != "" && remote.OriginTag == string(s.device):
		return StateSyncing
	default:
		return StateForeign
	}
}

// resolve reads the remote row and settles the session state. The remote
// data becomes the last pushed snapshot.
func (s *Session) resolve(ctx context.Context) (*scene.Scene, error) {
	remote, err := s.store.Get(ctx, s.sceneID)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		notify := s.setStatus(scene.StatusError)
		s.mu.Unlock()
		run(notify)
		return nil, fmt.Errorf("fetch scene %d: %w", s.sceneID, err)
	}

	base := remote.Data.Sanitized()
	base.Files = nil

	s.mu.Lock()
	prev := s.state
	s.state = s.decide(remote)
	s.lastPushed = &base
	s.lastErr = nil
	state := s.state
	s.mu.Unlock()

	if prev != state {
		s.log.Info(ctx, "session state resolved", "state", state.String(), "origin_tag", remote.OriginTag)
	}
	if state != StateReadOnly {
		s.seed(ctx)
	}
	return remote, nil
}

// seed lists the attachments already in the blob store, once per session.
// A failed listing is retried before the next push.
func (s *Session) seed(ctx context.Context) {
	s.mu.Lock()
	done := s.seeded
	s.mu.Unlock()
	if done {
		return
	}

	if err := s.attachments.Seed(ctx); err != nil {
		s.log.Warn(ctx, "failed to list uploaded attachments", "error", err)
		return
	}
	s.mu.Lock()
	s.seeded = true
	s.mu.Unlock()
}

// Hydrate reads the remote row, settles the state and returns the document
// the surface should show, with attachments resolved. An owner's local copy
// is shown as long as there is one, also when the scene is foreign: the
// remote version replaces it only through AdoptRemote. On a remote failure
// it returns the local-or-placeholder document with the error and the
// session stays in Init; the next Sync retries.
func (s *Session) Hydrate(ctx context.Context) (scene.Document, error) {
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()
	if !loaded {
		s.LoadLocalOrPlaceholder(ctx)
	}

	remote, err := s.resolve(ctx)
	if err != nil {
		return s.Current(), err
	}

	s.mu.Lock()
	state := s.state
	hasLocal := s.hasLocal
	local := s.current
	s.mu.Unlock()

	var doc scene.Document
	if hasLocal && (state == StateSyncing || state == StateForeign) {
		doc = local
	} else {
		doc = remote.Data.Sanitized()
		if err := s.cache.SaveDocument(ctx, s.sceneID, doc); err != nil {
			s.log.Warn(ctx, "failed to cache remote scene", "error", err)
		}
	}

	files, err := s.attachments.SyncFilesForRender(ctx, doc.Elements)
	if err != nil {
		s.log.Warn(ctx, "some attachments are unavailable", "error", err)
	}
	doc.Files = mergeFiles(doc.Files, files)

	s.mu.Lock()
	s.current = doc
	st := scene.StatusSynced
	if state == StateSyncing && !doc.Equal(*s.lastPushed) {
		st = scene.StatusSyncing
	}
	notify := s.setStatus(st)
	s.mu.Unlock()
	run(notify)

	return doc, nil
}

func mergeFiles(a, b scene.FileMap) scene.FileMap {
	out := make(scene.FileMap, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// observe records doc as current. Must be called with mu held.
func (s *Session) observe(doc scene.Document) {
	files := doc.Files
	if files == nil {
		files = s.current.Files
	}
	s.current = doc.Sanitized()
	s.current.Files = files
}

// Observe records an edit and updates the visible status: syncing, or
// synced when the document equals what was last pushed.
func (s *Session) Observe(doc scene.Document) {
	s.mu.Lock()
	s.observe(doc)
	var notify func()
	if s.state == StateSyncing || s.state == StateInit {
		if s.lastPushed != nil && s.current.Equal(*s.lastPushed) {
			notify = s.setStatus(scene.StatusSynced)
		} else {
			notify = s.setStatus(scene.StatusSyncing)
		}
	}
	s.mu.Unlock()
	run(notify)
}

// Sync records doc as the latest edit and pushes it when the session is
// syncing.
func (s *Session) Sync(ctx context.Context, doc scene.Document) error {
	s.mu.Lock()
	s.observe(doc)
	s.mu.Unlock()
	return s.SyncObserved(ctx)
}

// SyncObserved is Sync for callers that report every edit through Observe.
// It pushes the latest observed document, never an older snapshot.
func (s *Session) SyncObserved(ctx context.Context) error {
	state := s.State()

	if state == StateInit {
		if _, err := s.resolve(ctx); err != nil {
			return err
		}
		state = s.State()
	}

	switch state {
	case StateForeign, StateReadOnly:
		s.log.Debug(ctx, "automatic push suspended", "state", state.String())
		return nil
	}

	s.mu.Lock()
	if s.lastPushed != nil && s.current.Equal(*s.lastPushed) {
		notify := s.setStatus(scene.StatusSynced)
		s.mu.Unlock()
		run(notify)
		s.metrics.IncSuppressed()
		s.log.Debug(ctx, "push suppressed, document unchanged")
		return nil
	}
	s.mu.Unlock()

	return s.push(ctx)
}

// push writes the current document to the remote row.
func (s *Session) push(ctx context.Context) error {
	s.mu.Lock()
	if s.pushing {
		s.mu.Unlock()
		return ErrPushInProgress
	}
	s.pushing = true
	doc := s.current
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.pushing = false
		s.mu.Unlock()
	}()

	s.seed(ctx)
	start := s.now()

	if err := s.attachments.UploadMissing(ctx, doc.Files, doc.Elements); err != nil {
		s.log.Warn(ctx, "some attachments were not uploaded", "error", err)
	}

	data := scene.Document{Elements: doc.Elements, AppState: doc.AppState}
	updatedAt := s.now()
	_, err := s.store.Update(ctx, s.sceneID, scene.ScenePatch{
		Data:      &data,
		OriginTag: scene.Ref(string(s.device)),
		UpdatedAt: &updatedAt,
	})
	s.metrics.ObservePush(s.now().Sub(start), err)

	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		notify := s.setStatus(scene.StatusError)
		s.mu.Unlock()
		run(notify)
		s.log.Warn(ctx, "push failed", "error", err)
		return fmt.Errorf("push scene %d: %w", s.sceneID, err)
	}

	s.mu.Lock()
	s.lastPushed = &data
	s.lastErr = nil
	st := scene.StatusSynced
	if !s.current.Equal(data) {
		st = scene.StatusSyncing
	}
	notify := s.setStatus(st)
	s.mu.Unlock()
	run(notify)

	s.log.Info(ctx, "scene pushed", "elements", len(data.Elements))

	if err := s.cache.SavePreview(ctx, s.sceneID, data.Elements, doc.Files, data.IsDark()); err != nil {
		s.log.Warn(ctx, "preview refresh failed", "error", err)
	}
	return nil
}

// SaveNow pushes the current document immediately, even when unchanged and
// even when the scene is foreign. Viewers get common.ErrNotOwner. A
// successful save makes this device the last writer.
func (s *Session) SaveNow(ctx context.Context) error {
	if s.State() == StateInit {
		if _, err := s.resolve(ctx); err != nil {
			return err
		}
	}
	if s.State() == StateReadOnly {
		return common.ErrNotOwner
	}

	if err := s.push(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	prev := s.state
	s.state = StateSyncing
	s.mu.Unlock()
	if prev != StateSyncing {
		s.log.Info(ctx, "scene taken over by this device", "previous_state", prev.String())
	}
	return nil
}

// AdoptRemote replaces the local copy with the remote row and returns it,
// so the surface can swap its live view. Owners resume pushing from the
// adopted document.
func (s *Session) AdoptRemote(ctx context.Context) (scene.Document, error) {
	remote, err := s.resolve(ctx)
	if err != nil {
		return scene.Document{}, err
	}

	doc := remote.Data.Sanitized()
	if err := s.cache.SaveDocument(ctx, s.sceneID, doc); err != nil {
		return scene.Document{}, fmt.Errorf("cache adopted scene: %w", err)
	}

	files, err := s.attachments.SyncFilesForRender(ctx, doc.Elements)
	if err != nil {
		s.log.Warn(ctx, "some attachments are unavailable", "error", err)
	}
	doc.Files = mergeFiles(doc.Files, files)

	s.mu.Lock()
	s.current = doc
	s.hasLocal = true
	if s.state == StateForeign {
		s.state = StateSyncing
	}
	state := s.state
	notify := s.setStatus(scene.StatusSynced)
	s.mu.Unlock()
	run(notify)

	s.log.Info(ctx, "adopted remote scene", "state", state.String())
	return doc, nil
}

package reconciler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/scenesync/internal/client/metrics"
	"github.com/dmitrijs2005/scenesync/internal/common"
	"github.com/dmitrijs2005/scenesync/internal/scene"
)

var (
	errNetwork = errors.New("network down")
	t0         = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
)

type fakeStore struct {
	mu      sync.Mutex
	row     *scene.Scene
	getErr  error
	updErr  error
	gets    int
	patches []scene.ScenePatch
}

func (s *fakeStore) Get(_ context.Context, id int64) (*scene.Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.row == nil || s.row.ID != id {
		return nil, common.ErrNotFound
	}
	cp := *s.row
	return &cp, nil
}

func (s *fakeStore) Update(_ context.Context, id int64, patch scene.ScenePatch) (*scene.Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updErr != nil {
		return nil, s.updErr
	}
	s.patches = append(s.patches, patch)
	if patch.Data != nil {
		s.row.Data = *patch.Data
	}
	if patch.OriginTag != nil {
		s.row.OriginTag = *patch.OriginTag
	}
	if patch.UpdatedAt != nil {
		s.row.UpdatedAt = *patch.UpdatedAt
	}
	cp := *s.row
	return &cp, nil
}

func (s *fakeStore) pushes() []scene.ScenePatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]scene.ScenePatch(nil), s.patches...)
}

type fakeCache struct {
	mu       sync.Mutex
	doc      *scene.Document
	loadErr  error
	saved    []scene.Document
	previews int
}

func (c *fakeCache) LoadDocument(context.Context, int64) (*scene.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loadErr != nil {
		return nil, c.loadErr
	}
	if c.doc == nil {
		return nil, nil
	}
	cp := *c.doc
	return &cp, nil
}

func (c *fakeCache) SaveDocument(_ context.Context, _ int64, doc scene.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := doc.Sanitized()
	c.doc = &d
	c.saved = append(c.saved, d)
	return nil
}

func (c *fakeCache) SavePreview(context.Context, int64, []scene.Element, scene.FileMap, bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.previews++
	return nil
}

type fakeAttachments struct {
	mu       sync.Mutex
	seeded   int
	seedErr  error
	files    scene.FileMap
	uploaded []scene.FileMap
}

func (a *fakeAttachments) Seed(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.seedErr != nil {
		return a.seedErr
	}
	a.seeded++
	return nil
}

func (a *fakeAttachments) SyncFilesForRender(context.Context, []scene.Element) (scene.FileMap, error) {
	return a.files, nil
}

func (a *fakeAttachments) UploadMissing(_ context.Context, files scene.FileMap, _ []scene.Element) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.uploaded = append(a.uploaded, files)
	return nil
}

func doc(ids ...string) scene.Document {
	d := scene.EmptyDocument()
	for _, id := range ids {
		d.Elements = append(d.Elements, scene.Element{"id": id, "type": "rectangle"})
	}
	return d
}

func remoteRow(owner, origin string, data scene.Document) *scene.Scene {
	return &scene.Scene{ID: 7, Name: "plan", OwnerID: owner, OriginTag: origin, Data: data, UpdatedAt: t0.Add(-time.Hour)}
}

type fixture struct {
	store    *fakeStore
	cache    *fakeCache
	att      *fakeAttachments
	metrics  *metrics.Metrics
	statuses []scene.SyncStatus
	session  *Session
}

func newFixture(t *testing.T, row *scene.Scene, local *scene.Document, device string) *fixture {
	t.Helper()
	f := &fixture{
		store:   &fakeStore{row: row},
		cache:   &fakeCache{doc: local},
		att:     &fakeAttachments{},
		metrics: metrics.New(),
	}
	f.session = New(Config{
		SceneID:     7,
		OwnerID:     "alice",
		Device:      scene.DeviceIdentity(device),
		Store:       f.store,
		Cache:       f.cache,
		Attachments: f.att,
		Metrics:     f.metrics,
		Now:         func() time.Time { return t0 },
		OnStatus:    func(st scene.SyncStatus) { f.statuses = append(f.statuses, st) },
	})
	return f
}

func TestLoadLocalOrPlaceholder(t *testing.T) {
	ctx := context.Background()

	local := doc("e1")
	f := newFixture(t, nil, &local, "device-B")
	got := f.session.LoadLocalOrPlaceholder(ctx)
	assert.True(t, got.Equal(local))

	f = newFixture(t, nil, nil, "device-B")
	got = f.session.LoadLocalOrPlaceholder(ctx)
	assert.Empty(t, got.Elements)
	assert.NotNil(t, got.AppState)

	f = newFixture(t, nil, nil, "device-B")
	f.cache.loadErr = errors.New("disk gone")
	got = f.session.LoadLocalOrPlaceholder(ctx)
	assert.Empty(t, got.Elements)
}

func TestFreshDevice_EntersForeignAndNeverAutoPushes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, remoteRow("alice", "device-A", doc("r1")), nil, "device-B")

	shown, err := f.session.Hydrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateForeign, f.session.State())
	assert.Equal(t, "r1", shown.Elements[0].ID())

	for i := 0; i < 3; i++ {
		require.NoError(t, f.session.Sync(ctx, doc("r1", "local-"+string(rune('a'+i)))))
	}
	assert.Empty(t, f.store.pushes())
	assert.Equal(t, StateForeign, f.session.State())
}

func TestForeign_ManualSaveTakesOver(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, remoteRow("alice", "device-A", doc("r1")), nil, "device-B")

	_, err := f.session.Hydrate(ctx)
	require.NoError(t, err)

	f.session.Observe(doc("r1", "mine"))
	require.NoError(t, f.session.SaveNow(ctx))

	pushes := f.store.pushes()
	require.Len(t, pushes, 1)
	assert.Equal(t, "device-B", *pushes[0].OriginTag)
	assert.Equal(t, "device-B", f.store.row.OriginTag)
	assert.Equal(t, StateSyncing, f.session.State())

	// Pushes are automatic from now on.
	require.NoError(t, f.session.Sync(ctx, doc("r1", "mine", "more")))
	assert.Len(t, f.store.pushes(), 2)
}

func TestForeign_LocalCopyIsShownAndSavedAsIs(t *testing.T) {
	ctx := context.Background()
	local := doc("local1", "local2")
	f := newFixture(t, remoteRow("alice", "device-A", doc("e1")), &local, "device-B")

	shown, err := f.session.Hydrate(ctx)
	require.NoError(t, err)
	require.Equal(t, StateForeign, f.session.State())
	assert.True(t, shown.Equal(local))
	assert.Empty(t, f.cache.saved)

	// the surface echoes what it was shown, then the user keeps it
	require.NoError(t, f.session.Sync(ctx, shown))
	assert.Empty(t, f.store.pushes())
	require.NoError(t, f.session.SaveNow(ctx))

	pushes := f.store.pushes()
	require.Len(t, pushes, 1)
	assert.True(t, pushes[0].Data.Equal(local))
	assert.True(t, f.store.row.Data.Equal(local))
	assert.Equal(t, StateSyncing, f.session.State())
}

func TestSameDeviceResume_PushesOnce(t *testing.T) {
	ctx := context.Background()
	base := doc("e1")
	f := newFixture(t, remoteRow("alice", "device-B", base), &base, "device-B")

	_, err := f.session.Hydrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateSyncing, f.session.State())
	assert.Equal(t, scene.StatusSynced, f.session.Status())

	edited := doc("e1", "e2")
	require.NoError(t, f.session.Sync(ctx, edited))

	pushes := f.store.pushes()
	require.Len(t, pushes, 1)
	assert.True(t, pushes[0].Data.Equal(edited))
	require.NotNil(t, pushes[0].UpdatedAt)
	assert.Equal(t, t0, *pushes[0].UpdatedAt)
	assert.Equal(t, scene.StatusSynced, f.session.Status())
	assert.Equal(t, 1, f.cache.previews)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Collectors()[0]))
}

func TestSameDeviceResume_UnpushedLocalEditsWin(t *testing.T) {
	ctx := context.Background()
	local := doc("e1", "offline")
	f := newFixture(t, remoteRow("alice", "device-B", doc("e1")), &local, "device-B")

	shown, err := f.session.Hydrate(ctx)
	require.NoError(t, err)
	assert.True(t, shown.Equal(local))
	assert.Equal(t, scene.StatusSyncing, f.session.Status())
	assert.Empty(t, f.cache.saved, "local copy must not be overwritten")
}

func TestSync_SuppressesNoop(t *testing.T) {
	ctx := context.Background()
	base := doc("e1")
	f := newFixture(t, remoteRow("alice", "device-B", base), &base, "device-B")

	_, err := f.session.Hydrate(ctx)
	require.NoError(t, err)

	withPresence := doc("e1")
	withPresence.AppState["collaborators"] = map[string]any{"x": 1}
	require.NoError(t, f.session.Sync(ctx, withPresence))
	require.NoError(t, f.session.Sync(ctx, doc("e1")))

	assert.Empty(t, f.store.pushes())
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.Collectors()[1]))
}

func TestSync_TombstonesNeverPushed(t *testing.T) {
	ctx := context.Background()
	base := doc("e1", "e2")
	f := newFixture(t, remoteRow("alice", "device-B", base), &base, "device-B")

	_, err := f.session.Hydrate(ctx)
	require.NoError(t, err)

	edited := doc("e1", "e2")
	edited.Elements[0]["isDeleted"] = true
	require.NoError(t, f.session.Sync(ctx, edited))

	pushes := f.store.pushes()
	require.Len(t, pushes, 1)
	for _, e := range pushes[0].Data.Elements {
		assert.NotEqual(t, "e1", e.ID())
	}
}

func TestSync_FailureKeepsStateAndRetries(t *testing.T) {
	ctx := context.Background()
	base := doc("e1")
	f := newFixture(t, remoteRow("alice", "device-B", base), &base, "device-B")

	_, err := f.session.Hydrate(ctx)
	require.NoError(t, err)

	f.store.updErr = errNetwork
	err = f.session.Sync(ctx, doc("e1", "e2"))
	require.ErrorIs(t, err, errNetwork)
	assert.Equal(t, StateSyncing, f.session.State())
	assert.Equal(t, scene.StatusError, f.session.Status())
	assert.ErrorIs(t, f.session.LastError(), errNetwork)

	f.store.updErr = nil
	require.NoError(t, f.session.Sync(ctx, doc("e1", "e2")))
	assert.Len(t, f.store.pushes(), 1)
	assert.Equal(t, scene.StatusSynced, f.session.Status())
	assert.NoError(t, f.session.LastError())
	assert.Equal(t, []scene.SyncStatus{scene.StatusError, scene.StatusSynced}, f.statuses)
}

func TestHydrate_RemoteFailureFallsBackToLocal(t *testing.T) {
	ctx := context.Background()
	local := doc("e1", "offline")
	f := newFixture(t, remoteRow("alice", "device-B", doc("e1")), &local, "device-B")
	f.store.getErr = errNetwork

	shown, err := f.session.Hydrate(ctx)
	require.ErrorIs(t, err, errNetwork)
	assert.True(t, shown.Equal(local))
	assert.Equal(t, StateInit, f.session.State())
	assert.Equal(t, scene.StatusError, f.session.Status())

	f.store.getErr = nil
	require.NoError(t, f.session.Sync(ctx, local))
	assert.Equal(t, StateSyncing, f.session.State())
	require.Len(t, f.store.pushes(), 1)
	assert.True(t, f.store.row.Data.Equal(local))
}

func TestHydrate_RemoteFailureStillSeedsBeforeFirstPush(t *testing.T) {
	ctx := context.Background()
	local := doc("e1", "offline")
	f := newFixture(t, remoteRow("alice", "device-B", doc("e1")), &local, "device-B")
	f.store.getErr = errNetwork

	_, err := f.session.Hydrate(ctx)
	require.ErrorIs(t, err, errNetwork)
	assert.Equal(t, 0, f.att.seeded)

	f.store.getErr = nil
	require.NoError(t, f.session.Sync(ctx, local))
	require.Len(t, f.store.pushes(), 1)
	assert.Equal(t, 1, f.att.seeded)

	require.NoError(t, f.session.Sync(ctx, doc("e1", "offline", "more")))
	assert.Len(t, f.store.pushes(), 2)
	assert.Equal(t, 1, f.att.seeded, "listing runs once per session")
}

func TestSeed_FailureIsRetriedBeforePush(t *testing.T) {
	ctx := context.Background()
	base := doc("e1")
	f := newFixture(t, remoteRow("alice", "device-B", base), &base, "device-B")
	f.att.seedErr = errNetwork

	_, err := f.session.Hydrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, f.att.seeded)

	f.att.seedErr = nil
	require.NoError(t, f.session.Sync(ctx, doc("e1", "e2")))
	assert.Equal(t, 1, f.att.seeded)
	assert.Len(t, f.store.pushes(), 1)
}

func TestSyncObserved_PushesLatestObservedEdit(t *testing.T) {
	ctx := context.Background()
	base := doc("e1")
	f := newFixture(t, remoteRow("alice", "device-B", base), &base, "device-B")

	_, err := f.session.Hydrate(ctx)
	require.NoError(t, err)

	f.session.Observe(doc("e1", "e2"))
	f.session.Observe(doc("e1", "e2", "e3"))
	require.NoError(t, f.session.SyncObserved(ctx))

	pushes := f.store.pushes()
	require.Len(t, pushes, 1)
	assert.Len(t, pushes[0].Data.Elements, 3)
	assert.Len(t, f.session.Current().Elements, 3)
	assert.Equal(t, scene.StatusSynced, f.session.Status())

	require.NoError(t, f.session.SyncObserved(ctx))
	assert.Len(t, f.store.pushes(), 1)
}

func TestSync_InitWithForeignRowDoesNotPush(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, remoteRow("alice", "device-A", doc("r1")), nil, "device-B")

	require.NoError(t, f.session.Sync(ctx, doc("x")))
	assert.Equal(t, StateForeign, f.session.State())
	assert.Empty(t, f.store.pushes())
}

func TestReadOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, remoteRow("bob", "device-B", doc("r1")), nil, "device-B")

	_, err := f.session.Hydrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateReadOnly, f.session.State())
	assert.Equal(t, 0, f.att.seeded)
	require.NotNil(t, f.cache.doc)

	require.NoError(t, f.session.Sync(ctx, doc("r1", "x")))
	assert.ErrorIs(t, f.session.SaveNow(ctx), common.ErrNotOwner)
	assert.Empty(t, f.store.pushes())
}

func TestSaveNow_FromInitResolvesFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, remoteRow("bob", "device-B", doc("r1")), nil, "device-B")
	assert.ErrorIs(t, f.session.SaveNow(ctx), common.ErrNotOwner)

	f = newFixture(t, remoteRow("alice", "device-A", doc("r1")), nil, "device-B")
	f.session.Observe(doc("mine"))
	require.NoError(t, f.session.SaveNow(ctx))
	assert.Equal(t, StateSyncing, f.session.State())
	assert.Equal(t, "mine", f.store.row.Data.Elements[0].ID())
}

func TestSaveNow_PushesEvenWhenUnchanged(t *testing.T) {
	ctx := context.Background()
	base := doc("e1")
	f := newFixture(t, remoteRow("alice", "device-B", base), &base, "device-B")

	_, err := f.session.Hydrate(ctx)
	require.NoError(t, err)
	require.NoError(t, f.session.SaveNow(ctx))
	assert.Len(t, f.store.pushes(), 1)
}

func TestAdoptRemote(t *testing.T) {
	ctx := context.Background()
	local := doc("mine")
	f := newFixture(t, remoteRow("alice", "device-A", doc("r1", "r2")), &local, "device-B")
	f.att.files = scene.FileMap{"f1": {ID: "f1", MimeType: "image/png"}}

	_, err := f.session.Hydrate(ctx)
	require.NoError(t, err)
	require.Equal(t, StateForeign, f.session.State())
	assert.Empty(t, f.cache.saved, "foreign row must not clobber local copy on load")

	got, err := f.session.AdoptRemote(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Elements, 2)
	assert.Contains(t, got.Files, "f1")
	assert.Equal(t, StateSyncing, f.session.State())
	require.NotNil(t, f.cache.doc)
	assert.Equal(t, "r1", f.cache.doc.Elements[0].ID())

	// Adopted content is the new baseline.
	require.NoError(t, f.session.Sync(ctx, doc("r1", "r2")))
	assert.Empty(t, f.store.pushes())
}

func TestObserve_Status(t *testing.T) {
	ctx := context.Background()
	base := doc("e1")
	f := newFixture(t, remoteRow("alice", "device-B", base), &base, "device-B")
	_, err := f.session.Hydrate(ctx)
	require.NoError(t, err)

	f.session.Observe(doc("e1", "e2"))
	assert.Equal(t, scene.StatusSyncing, f.session.Status())
	f.session.Observe(doc("e1"))
	assert.Equal(t, scene.StatusSynced, f.session.Status())
}

func TestPush_Guard(t *testing.T) {
	f := newFixture(t, remoteRow("alice", "device-B", doc("e1")), nil, "device-B")
	f.session.pushing = true
	assert.ErrorIs(t, f.session.push(context.Background()), ErrPushInProgress)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "init", StateInit.String())
	assert.Equal(t, "syncing", StateSyncing.String())
	assert.Equal(t, "foreign", StateForeign.String())
	assert.Equal(t, "read-only", StateReadOnly.String())
	assert.Equal(t, "unknown", State(42).String())
}

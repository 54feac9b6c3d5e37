package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/scenesync/internal/common"
	"github.com/dmitrijs2005/scenesync/internal/dbx"
	"github.com/dmitrijs2005/scenesync/internal/scene"
	"github.com/dmitrijs2005/scenesync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/scenesync/internal/server/repositories/scenes"
)

// -------- test fakes --------

type fakeScenesRepo struct {
	scenes.Repository
	rows    map[int64]*scene.Scene
	nextID  int64
	dupName bool
	err     error
	updates []scene.ScenePatch
}

func newFakeRepo(rows ...*scene.Scene) *fakeScenesRepo {
	f := &fakeScenesRepo{rows: map[int64]*scene.Scene{}, nextID: 100}
	for _, r := range rows {
		f.rows[r.ID] = r
	}
	return f
}

func (f *fakeScenesRepo) Get(_ context.Context, id int64) (*scene.Scene, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.rows[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeScenesRepo) GetByName(_ context.Context, name string) (*scene.Scene, error) {
	for _, r := range f.rows {
		if r.Name == name {
			cp := *r
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeScenesRepo) List(_ context.Context, owner string) ([]*scene.Scene, error) {
	var out []*scene.Scene
	for _, r := range f.rows {
		if r.OwnerID == owner {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeScenesRepo) Insert(_ context.Context, s *scene.Scene) (*scene.Scene, error) {
	if f.dupName {
		return nil, common.ErrDuplicateName
	}
	f.nextID++
	s.ID = f.nextID
	f.rows[s.ID] = s
	return s, nil
}

func (f *fakeScenesRepo) Update(_ context.Context, id int64, owner string, p scene.ScenePatch) (*scene.Scene, error) {
	r, ok := f.rows[id]
	if !ok || r.OwnerID != owner {
		return nil, common.ErrNotFound
	}
	f.updates = append(f.updates, p)
	if p.Name != nil {
		r.Name = *p.Name
	}
	return r, nil
}

func (f *fakeScenesRepo) Delete(_ context.Context, id int64, owner string) error {
	r, ok := f.rows[id]
	if !ok || r.OwnerID != owner {
		return common.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

type fakeManager struct {
	repomanager.RepositoryManager
	repo *fakeScenesRepo
}

func (m *fakeManager) Scenes(dbx.DBTX) scenes.Repository { return m.repo }

func newService(repo *fakeScenesRepo) *SceneService {
	return NewSceneService(nil, &fakeManager{repo: repo})
}

func rows() []*scene.Scene {
	return []*scene.Scene{
		{ID: 1, Name: "alice-private", OwnerID: "alice"},
		{ID: 2, Name: "alice-public", OwnerID: "alice", Published: true},
		{ID: 3, Name: "bob-private", OwnerID: "bob"},
	}
}

func TestGet_Visibility(t *testing.T) {
	svc := newService(newFakeRepo(rows()...))
	ctx := context.Background()

	tests := []struct {
		caller string
		id     int64
		want   error
	}{
		{"alice", 1, nil},
		{"alice", 2, nil},
		{"bob", 2, nil},
		{"bob", 1, common.ErrNotFound},
		{"alice", 3, common.ErrNotFound},
		{"alice", 42, common.ErrNotFound},
	}
	for _, tt := range tests {
		_, err := svc.Get(ctx, tt.caller, tt.id)
		assert.ErrorIs(t, err, tt.want, "caller=%s id=%d", tt.caller, tt.id)
		if tt.want == nil {
			assert.NoError(t, err)
		}
	}
}

func TestGetByName_Visibility(t *testing.T) {
	svc := newService(newFakeRepo(rows()...))
	ctx := context.Background()

	s, err := svc.GetByName(ctx, "bob", "alice-public")
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.ID)

	_, err = svc.GetByName(ctx, "bob", "alice-private")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestList_OwnScenesOnly(t *testing.T) {
	svc := newService(newFakeRepo(rows()...))
	got, err := svc.List(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestInsert(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)
	ctx := context.Background()

	s, err := svc.Insert(ctx, "alice", scene.Scene{ID: 9, Name: "my-board", OwnerID: "mallory"})
	require.NoError(t, err)
	assert.Equal(t, int64(101), s.ID)
	assert.Equal(t, "alice", s.OwnerID)
	assert.NotNil(t, s.Data.Elements)

	_, err = svc.Insert(ctx, "alice", scene.Scene{Name: "No Spaces Allowed"})
	assert.ErrorIs(t, err, common.ErrInvalidName)

	repo.dupName = true
	_, err = svc.Insert(ctx, "alice", scene.Scene{Name: "my-board"})
	assert.ErrorIs(t, err, common.ErrDuplicateName)
}

func TestUpdate(t *testing.T) {
	repo := newFakeRepo(rows()...)
	svc := newService(repo)
	ctx := context.Background()

	s, err := svc.Update(ctx, "alice", 1, scene.ScenePatch{Name: scene.Ref("renamed")})
	require.NoError(t, err)
	assert.Equal(t, "renamed", s.Name)

	_, err = svc.Update(ctx, "alice", 1, scene.ScenePatch{Name: scene.Ref("!")})
	assert.ErrorIs(t, err, common.ErrInvalidName)

	_, err = svc.Update(ctx, "bob", 2, scene.ScenePatch{Description: scene.Ref("x")})
	assert.ErrorIs(t, err, common.ErrNotOwner, "published scene of another owner")

	_, err = svc.Update(ctx, "bob", 1, scene.ScenePatch{Description: scene.Ref("x")})
	assert.ErrorIs(t, err, common.ErrNotFound, "private scene of another owner stays hidden")

	_, err = svc.Update(ctx, "alice", 77, scene.ScenePatch{Description: scene.Ref("x")})
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.Len(t, repo.updates, 1)
}

func TestDelete(t *testing.T) {
	repo := newFakeRepo(rows()...)
	svc := newService(repo)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Delete(ctx, "bob", 2), common.ErrNotOwner)
	require.NoError(t, svc.Delete(ctx, "alice", 2))
	assert.ErrorIs(t, svc.Delete(ctx, "alice", 2), common.ErrNotFound)
}

func TestExplainMiss_RepoError(t *testing.T) {
	repo := newFakeRepo(rows()...)
	svc := newService(repo)

	boom := errors.New("boom")
	repo.err = boom
	err := svc.Delete(context.Background(), "bob", 1)
	assert.ErrorIs(t, err, boom)
}

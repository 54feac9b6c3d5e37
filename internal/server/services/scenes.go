// Package services holds the server business rules on top of the
// repositories.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/scenesync/internal/common"
	"github.com/dmitrijs2005/scenesync/internal/scene"
	"github.com/dmitrijs2005/scenesync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/scenesync/internal/server/repositories/scenes"
)

// SceneService applies visibility and ownership rules. The caller is the
// owner id taken from the access token.
type SceneService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewSceneService(db *sql.DB, repomanager repomanager.RepositoryManager) *SceneService {
	return &SceneService{
		db:          db,
		repomanager: repomanager,
	}
}

func (s *SceneService) repo() scenes.Repository {
	return s.repomanager.Scenes(s.db)
}

// visible hides unpublished scenes of other owners.
func visible(sc *scene.Scene, caller string) bool {
	return sc.OwnerID == caller || sc.Published
}

func (s *SceneService) Get(ctx context.Context, caller string, id int64) (*scene.Scene, error) {
	sc, err := s.repo().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(sc, caller) {
		return nil, common.ErrNotFound
	}
	return sc, nil
}

func (s *SceneService) GetByName(ctx context.Context, caller, name string) (*scene.Scene, error) {
	sc, err := s.repo().GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if !visible(sc, caller) {
		return nil, common.ErrNotFound
	}
	return sc, nil
}

// List returns the caller's own scenes.
func (s *SceneService) List(ctx context.Context, caller string) ([]*scene.Scene, error) {
	return s.repo().List(ctx, caller)
}

// Insert creates a scene owned by caller.
func (s *SceneService) Insert(ctx context.Context, caller string, sc scene.Scene) (*scene.Scene, error) {
	if err := scene.ValidateName(sc.Name); err != nil {
		return nil, err
	}
	sc.ID = 0
	sc.OwnerID = caller
	if sc.Data.Elements == nil && sc.Data.AppState == nil {
		sc.Data = scene.EmptyDocument()
	}
	return s.repo().Insert(ctx, &sc)
}

// Update applies patch to a scene owned by caller.
func (s *SceneService) Update(ctx context.Context, caller string, id int64, patch scene.ScenePatch) (*scene.Scene, error) {
	if patch.Name != nil {
		if err := scene.ValidateName(*patch.Name); err != nil {
			return nil, err
		}
	}
	sc, err := s.repo().Update(ctx, id, caller, patch)
	if errors.Is(err, common.ErrNotFound) {
		return nil, s.explainMiss(ctx, caller, id)
	}
	return sc, err
}

// Delete removes a scene owned by caller.
func (s *SceneService) Delete(ctx context.Context, caller string, id int64) error {
	err := s.repo().Delete(ctx, id, caller)
	if errors.Is(err, common.ErrNotFound) {
		return s.explainMiss(ctx, caller, id)
	}
	return err
}

// explainMiss tells a missing row from one the caller may see but not
// write, after an owner-scoped statement matched nothing.
func (s *SceneService) explainMiss(ctx context.Context, caller string, id int64) error {
	sc, err := s.repo().Get(ctx, id)
	switch {
	case errors.Is(err, common.ErrNotFound):
		return common.ErrNotFound
	case err != nil:
		return fmt.Errorf("check scene %d: %w", id, err)
	case !visible(sc, caller):
		return common.ErrNotFound
	case sc.OwnerID != caller:
		return common.ErrNotOwner
	}
	// owned by caller yet the write matched nothing: deleted concurrently
	return common.ErrNotFound
}

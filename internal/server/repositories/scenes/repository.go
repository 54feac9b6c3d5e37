// Package scenes provides the PostgreSQL-backed scene repository.
package scenes

import (
	"context"

	"github.com/dmitrijs2005/scenesync/internal/scene"
)

// Repository persists scene rows. Writes are scoped to the owner: a row
// that exists but belongs to someone else is reported as common.ErrNotFound.
type Repository interface {
	Get(ctx context.Context, id int64) (*scene.Scene, error)
	GetByName(ctx context.Context, name string) (*scene.Scene, error)
	// List returns the owner's scenes without their document payload.
	List(ctx context.Context, ownerID string) ([]*scene.Scene, error)
	Insert(ctx context.Context, s *scene.Scene) (*scene.Scene, error)
	Update(ctx context.Context, id int64, ownerID string, patch scene.ScenePatch) (*scene.Scene, error)
	Delete(ctx context.Context, id int64, ownerID string) error
}

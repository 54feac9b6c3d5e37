package scene

import (
	"regexp"
	"time"

	"github.com/dmitrijs2005/scenesync/internal/common"
)

// Scene is the named, owned drawing document plus metadata.
type Scene struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Published   bool      `json:"published"`
	OwnerID     string    `json:"ownerId"`
	Data        Document  `json:"data"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	OriginTag   string    `json:"originTag,omitempty"`
}

// ScenePatch is a partial update. Nil fields are left untouched.
type ScenePatch struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	Published   *bool      `json:"published,omitempty"`
	Data        *Document  `json:"data,omitempty"`
	OriginTag   *string    `json:"originTag,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

func (p ScenePatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Published == nil &&
		p.Data == nil && p.OriginTag == nil && p.UpdatedAt == nil
}

// Ref returns a pointer to v, for building patches.
func Ref[T any](v T) *T { return &v }

var nameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}[a-z0-9]$`)

// ValidateName checks that name is a usable public slug.
func ValidateName(name string) error {
	if !nameRe.MatchString(name) {
		return common.ErrInvalidName
	}
	return nil
}

// SyncStatus is the user-visible state of the last sync attempt.
type SyncStatus string

const (
	StatusSynced  SyncStatus = "synced"
	StatusSyncing SyncStatus = "syncing"
	StatusError   SyncStatus = "error"
)

// DeviceIdentity identifies this device as the origin of remote writes.
// It is resolved once per process and passed explicitly to the sync engine.
type DeviceIdentity string

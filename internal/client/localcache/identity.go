package localcache

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/scenesync/internal/client/kvstore"
	"github.com/dmitrijs2005/scenesync/internal/scene"
)

// LoadDeviceIdentity returns this device's origin tag, creating and
// persisting a random one on first use.
func LoadDeviceIdentity(ctx context.Context, store kvstore.Store) (scene.DeviceIdentity, error) {
	v, err := store.Get(ctx, deviceOriginKey)
	if err != nil {
		return "", fmt.Errorf("load device identity: %w", err)
	}
	if len(v) > 0 {
		return scene.DeviceIdentity(v), nil
	}

	id := uuid.NewString()
	if err := store.Set(ctx, deviceOriginKey, []byte(id)); err != nil {
		return "", fmt.Errorf("persist device identity: %w", err)
	}
	return scene.DeviceIdentity(id), nil
}

// SaveToken stores the CLI access token.
func SaveToken(ctx context.Context, store kvstore.Store, token string) error {
	return store.Set(ctx, authTokenKey, []byte(token))
}

// LoadToken returns the stored access token or "".
func LoadToken(ctx context.Context, store kvstore.Store) (string, error) {
	v, err := store.Get(ctx, authTokenKey)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/scenesync/internal/client/blobstore"
	"github.com/dmitrijs2005/scenesync/internal/client/coalescer"
	"github.com/dmitrijs2005/scenesync/internal/client/config"
	"github.com/dmitrijs2005/scenesync/internal/client/kvstore"
	"github.com/dmitrijs2005/scenesync/internal/client/localcache"
	"github.com/dmitrijs2005/scenesync/internal/client/metrics"
	"github.com/dmitrijs2005/scenesync/internal/client/remote"
	"github.com/dmitrijs2005/scenesync/internal/client/syncengine"
	"github.com/dmitrijs2005/scenesync/internal/common"
	"github.com/dmitrijs2005/scenesync/internal/filex"
	"github.com/dmitrijs2005/scenesync/internal/logging"
	"github.com/dmitrijs2005/scenesync/internal/scene"
)

// SceneStore is the remote scene store as the CLI uses it.
type SceneStore interface {
	Get(ctx context.Context, id int64) (*scene.Scene, error)
	GetByName(ctx context.Context, name string) (*scene.Scene, error)
	List(ctx context.Context) ([]scene.Scene, error)
	Insert(ctx context.Context, sc scene.Scene) (*scene.Scene, error)
	Update(ctx context.Context, id int64, patch scene.ScenePatch) (*scene.Scene, error)
	Delete(ctx context.Context, id int64) error
}

type App struct {
	config  *config.Config
	log     logging.Logger
	out     io.Writer
	metrics *metrics.Metrics

	store  kvstore.Store
	cache  *localcache.Cache
	device scene.DeviceIdentity

	remote  SceneStore
	blobs   blobstore.Store
	ownerID string

	closers []func() error
}

// seams for tests
var (
	openStore = func(ctx context.Context, c *config.Config) (kvstore.Store, error) {
		switch c.CacheBackend {
		case config.BackendRedis:
			return kvstore.OpenRedis(ctx, c.RedisAddr, c.RedisPrefix)
		default:
			if err := filex.EnsureParentDir(c.CachePath); err != nil {
				return nil, err
			}
			return kvstore.OpenSQLite(ctx, c.CachePath)
		}
	}
	dialRemote = func(c *config.Config, token string) (SceneStore, func() error, error) {
		cl, err := remote.NewGRPCClient(c.ServerAddr, token)
		if err != nil {
			return nil, nil, err
		}
		return cl, cl.Close, nil
	}
	openBlobs = func(ctx context.Context, c *config.Config) (blobstore.Store, error) {
		return blobstore.NewS3Store(ctx, blobstore.S3Config{
			Region:       c.S3Region,
			BaseEndpoint: c.S3Endpoint,
			User:         c.S3User,
			Password:     c.S3Password,
			Bucket:       c.S3Bucket,
		})
	}
)

func NewApp(c *config.Config, log logging.Logger, out io.Writer) *App {
	return &App{config: c, log: log, out: out, metrics: metrics.New()}
}

// openLocal opens the device cache and loads the device identity.
func (a *App) openLocal(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	store, err := openStore(ctx, a.config)
	if err != nil {
		return fmt.Errorf("open local cache: %w", err)
	}
	a.closers = append(a.closers, store.Close)

	device, err := localcache.LoadDeviceIdentity(ctx, store)
	if err != nil {
		return err
	}

	a.store = store
	a.device = device
	a.cache = localcache.New(store, a.log, localcache.Options{PreviewQuality: a.config.PreviewQuality})
	return nil
}

// connect opens the local cache and the remote stores, authenticating with
// the configured or saved access token.
func (a *App) connect(ctx context.Context) error {
	if err := a.openLocal(ctx); err != nil {
		return err
	}
	if a.remote != nil {
		return nil
	}

	token := a.config.AccessToken
	if token == "" {
		saved, err := localcache.LoadToken(ctx, a.store)
		if err != nil {
			return err
		}
		token = saved
	}
	if token == "" {
		return fmt.Errorf("%w: run 'scenesync login' first", common.ErrUnauthorized)
	}

	owner, err := remote.OwnerFromToken(token)
	if err != nil {
		return err
	}

	rs, closeFn, err := dialRemote(a.config, token)
	if err != nil {
		return fmt.Errorf("connect to scene store: %w", err)
	}
	a.closers = append(a.closers, closeFn)

	blobs, err := openBlobs(ctx, a.config)
	if err != nil {
		return fmt.Errorf("connect to attachment store: %w", err)
	}

	a.remote = rs
	a.blobs = blobs
	a.ownerID = owner
	return nil
}

func (a *App) engine(onStatus func(sceneID int64, st scene.SyncStatus)) *syncengine.Engine {
	return syncengine.New(a.remote, a.cache, a.blobs, a.log, syncengine.Options{
		OwnerID: a.ownerID,
		Device:  a.device,
		Coalescer: coalescer.Config{
			Quiet:         a.config.Quiet,
			MaxWait:       a.config.MaxWait,
			RetryInterval: a.config.RetryInterval,
		},
		Metrics:  a.metrics,
		OnStatus: onStatus,
	})
}

// Close releases everything opened by the app, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/scenesync/internal/client/reconciler"
	"github.com/dmitrijs2005/scenesync/internal/client/surface"
	"github.com/dmitrijs2005/scenesync/internal/client/syncengine"
	"github.com/dmitrijs2005/scenesync/internal/scene"
)

func (a *App) closeSession(ctx context.Context, sess *syncengine.Session) {
	if err := sess.Close(context.WithoutCancel(ctx)); err != nil {
		a.log.Warn(ctx, "final push failed, edits stay in the local cache", "scene_id", sess.ID(), "error", err)
		fmt.Fprintf(a.out, "Final push failed (%v); edits are kept locally and pushed next time\n", err)
	}
}

func (a *App) notice(sceneID int64, st reconciler.State) {
	switch st {
	case reconciler.StateForeign:
		fmt.Fprintf(a.out, "Scene %d was last saved from another device. Automatic saving is paused.\n", sceneID)
		fmt.Fprintf(a.out, "Run 'scenesync save %d' to keep your copy or 'scenesync pull %d' to take the remote one.\n", sceneID, sceneID)
	case reconciler.StateReadOnly:
		fmt.Fprintf(a.out, "Scene %d belongs to someone else and is opened read-only.\n", sceneID)
	}
}

// Watch runs a sync session between the file at path and scene id until
// ctx is cancelled.
func (a *App) Watch(ctx context.Context, id int64, path, metricsAddr string) error {
	if err := a.connect(ctx); err != nil {
		return err
	}
	if metricsAddr != "" {
		if err := a.serveMetrics(ctx, metricsAddr); err != nil {
			return err
		}
	}

	surf := surface.NewFileSurface(path, a.log)
	sess := a.engine(func(_ int64, st scene.SyncStatus) {
		fmt.Fprintf(a.out, "[%s] %s\n", time.Now().Format(time.TimeOnly), st)
	}).Open(ctx, id)
	defer a.closeSession(ctx, sess)

	if err := surf.Render(sess.LoadLocalOrPlaceholder(ctx)); err != nil {
		return err
	}
	doc, err := sess.Hydrate(ctx)
	if err != nil {
		fmt.Fprintf(a.out, "Working offline: %v\n", err)
	}
	if err := surf.Render(doc); err != nil {
		return err
	}
	a.notice(id, sess.State())

	changes, err := surf.Watch(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Watching %s for scene %d (Ctrl+C to stop)\n", surf.Path(), id)

	for {
		select {
		case <-ctx.Done():
			return nil
		case doc, ok := <-changes:
			if !ok {
				return nil
			}
			if err := sess.OnChange(ctx, doc); err != nil {
				a.log.Error(ctx, "failed to record edit", "scene_id", id, "error", err)
			}
		}
	}
}

func (a *App) serveMetrics(ctx context.Context, addr string) error {
	reg := prometheus.NewRegistry()
	if err := a.metrics.Register(reg); err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error(ctx, "metrics server failed", "error", err)
		}
	}()
	return nil
}

// Save pushes the file content as the new remote version, taking the scene
// over from another device if needed.
func (a *App) Save(ctx context.Context, id int64, path string) error {
	if err := a.connect(ctx); err != nil {
		return err
	}
	doc, err := surface.NewFileSurface(path, a.log).Load()
	if err != nil {
		return err
	}

	sess := a.engine(nil).Open(ctx, id)
	defer a.closeSession(ctx, sess)

	sess.LoadLocalOrPlaceholder(ctx)
	if err := sess.OnChange(ctx, doc); err != nil {
		return err
	}
	if err := sess.SaveNow(ctx); err != nil {
		return explain(err, "")
	}
	fmt.Fprintf(a.out, "Saved scene %d\n", id)
	return nil
}

// Pull replaces the file and the cached copy with the remote scene.
func (a *App) Pull(ctx context.Context, id int64, path string) error {
	if err := a.connect(ctx); err != nil {
		return err
	}

	sess := a.engine(nil).Open(ctx, id)
	defer a.closeSession(ctx, sess)

	doc, err := sess.AdoptRemote(ctx)
	if err != nil {
		return explain(err, "")
	}
	if err := surface.NewFileSurface(path, a.log).Render(doc); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Pulled scene %d into %s\n", id, path)
	return nil
}

// Status compares the cached copy with the remote row and prints the state
// a session on this device would start in.
func (a *App) Status(ctx context.Context, id int64) error {
	if err := a.connect(ctx); err != nil {
		return err
	}

	cached, err := a.cache.LoadDocument(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Device:        %s\n", a.device)
	fmt.Fprintf(a.out, "Owner:         %s\n", a.ownerID)
	fmt.Fprintf(a.out, "Cached copy:   %t\n", cached != nil)

	row, err := a.remote.Get(ctx, id)
	if err != nil {
		fmt.Fprintf(a.out, "Remote:        unavailable (%v)\n", explain(err, ""))
		return nil
	}
	fmt.Fprintf(a.out, "Remote origin: %s\n", row.OriginTag)
	fmt.Fprintf(a.out, "Remote owner:  %s\n", row.OwnerID)
	fmt.Fprintf(a.out, "Updated:       %s\n", row.UpdatedAt.Local().Format(time.DateTime))

	sess := a.engine(nil).Open(ctx, id)
	defer a.closeSession(ctx, sess)
	sess.LoadLocalOrPlaceholder(ctx)
	if _, err := sess.Hydrate(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "State:         %s\n", sess.State())
	fmt.Fprintf(a.out, "Sync status:   %s\n", sess.Status())
	return nil
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/scenesync/internal/common"
)

// Preview writes the cached JPEG thumbnail of scene id to out.
func (a *App) Preview(ctx context.Context, id int64, out string) error {
	if err := a.openLocal(ctx); err != nil {
		return err
	}
	data, err := a.cache.GetPreview(ctx, id)
	if err != nil {
		return err
	}
	if data == nil {
		return fmt.Errorf("no cached preview for scene %d", id)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Wrote %s (%d bytes)\n", out, len(data))
	return nil
}

// GC drops cached scenes that no longer exist remotely, then attachments
// nothing cached refers to.
func (a *App) GC(ctx context.Context) error {
	if err := a.connect(ctx); err != nil {
		return err
	}

	report, err := a.cache.GC(ctx, func(ctx context.Context, id int64) (bool, error) {
		_, err := a.remote.Get(ctx, id)
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, common.ErrNotFound):
			return false, nil
		default:
			return true, err
		}
	})

	fmt.Fprintf(a.out, "Removed %d scene(s) and %d attachment(s)\n", len(report.ScenesRemoved), report.FilesRemoved)
	if err != nil {
		return fmt.Errorf("some scenes were kept: %w", err)
	}
	return nil
}

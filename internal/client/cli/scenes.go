package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/scenesync/internal/common"
	"github.com/dmitrijs2005/scenesync/internal/scene"
)

// explain turns sentinel errors the user can act on into readable ones.
func explain(err error, name string) error {
	switch {
	case errors.Is(err, common.ErrDuplicateName):
		return fmt.Errorf("a scene named %q already exists, pick another name", name)
	case errors.Is(err, common.ErrInvalidName):
		return fmt.Errorf("invalid scene name %q: use 3-64 lowercase letters, digits and dashes", name)
	case errors.Is(err, common.ErrNotOwner):
		return errors.New("only the owner can change this scene")
	case errors.Is(err, common.ErrNotFound):
		return errors.New("scene not found")
	}
	return err
}

func (a *App) NewScene(ctx context.Context, name, description string) error {
	if err := a.connect(ctx); err != nil {
		return err
	}
	sc, err := a.remote.Insert(ctx, scene.Scene{
		Name:        name,
		Description: description,
		Data:        scene.EmptyDocument(),
	})
	if err != nil {
		return explain(err, name)
	}
	fmt.Fprintf(a.out, "Created scene %d (%s)\n", sc.ID, sc.Name)
	return nil
}

func (a *App) ListScenes(ctx context.Context) error {
	if err := a.connect(ctx); err != nil {
		return err
	}
	list, err := a.remote.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No scenes")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPUBLISHED\tUPDATED\tDESCRIPTION")
	for _, sc := range list {
		fmt.Fprintf(w, "%d\t%s\t%t\t%s\t%s\n",
			sc.ID,
			sc.Name,
			sc.Published,
			sc.UpdatedAt.Local().Format(time.DateTime),
			sc.Description,
		)
	}
	return w.Flush()
}

func (a *App) updateMeta(ctx context.Context, id int64, patch scene.ScenePatch, name string) error {
	if err := a.connect(ctx); err != nil {
		return err
	}
	sc, err := a.remote.Update(ctx, id, patch)
	if err != nil {
		return explain(err, name)
	}
	fmt.Fprintf(a.out, "Updated scene %d (%s)\n", sc.ID, sc.Name)
	return nil
}

func (a *App) Rename(ctx context.Context, id int64, name string) error {
	return a.updateMeta(ctx, id, scene.ScenePatch{Name: &name}, name)
}

func (a *App) Describe(ctx context.Context, id int64, text string) error {
	return a.updateMeta(ctx, id, scene.ScenePatch{Description: &text}, "")
}

func (a *App) Publish(ctx context.Context, id int64, published bool) error {
	return a.updateMeta(ctx, id, scene.ScenePatch{Published: &published}, "")
}

// DeleteScene removes the remote row and every cached key of the scene.
// Cached attachments stay until the next gc.
func (a *App) DeleteScene(ctx context.Context, id int64) error {
	if err := a.connect(ctx); err != nil {
		return err
	}
	if err := a.remote.Delete(ctx, id); err != nil {
		return explain(err, "")
	}
	if err := a.cache.DeleteScene(ctx, id); err != nil {
		return fmt.Errorf("scene deleted remotely, local cleanup failed: %w", err)
	}
	fmt.Fprintf(a.out, "Deleted scene %d\n", id)
	return nil
}

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/dmitrijs2005/scenesync/internal/client/localcache"
	"github.com/dmitrijs2005/scenesync/internal/client/remote"
)

// isTerminal is a seam for tests.
var isTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

// Login reads an access token and saves it in the local cache. The token
// is read without echo on a terminal and as a plain line otherwise.
func (a *App) Login(ctx context.Context, in io.Reader) error {
	if err := a.openLocal(ctx); err != nil {
		return err
	}

	var (
		token string
		err   error
	)
	if isTerminal() {
		token, err = GetSecret("Access token", a.out)
	} else {
		token, err = GetSimpleText(bufio.NewReader(in), "Access token", a.out)
	}
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	if token == "" {
		return errors.New("empty token")
	}

	owner, err := remote.OwnerFromToken(token)
	if err != nil {
		return err
	}
	if err := localcache.SaveToken(ctx, a.store, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}

	fmt.Fprintf(a.out, "Logged in as %s\n", owner)
	return nil
}

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/scenesync/internal/client/config"
	"github.com/dmitrijs2005/scenesync/internal/logging"
)

type appKey struct{}

func appFrom(cmd *cobra.Command) *App {
	return cmd.Context().Value(appKey{}).(*App)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid scene id %q", s)
	}
	return id, nil
}

// withID adapts a command taking a scene id as its first argument.
func withID(run func(cmd *cobra.Command, id int64, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return run(cmd, id, args[1:])
	}
}

// NewRootCommand builds the scenesync command tree. The returned func
// releases what the executed command opened and is safe to call when
// nothing ran.
func NewRootCommand() (*cobra.Command, func() error) {
	var app *App

	root := &cobra.Command{
		Use:   "scenesync",
		Short: "Keep drawing scenes in sync between this device and the scene store",
		Long: `scenesync edits scenes locally and keeps them in sync with a remote
scene store. Edits are saved to a local cache first and pushed after a
short quiet period, so a session survives going offline.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			log := logging.New(logging.Options{Format: cfg.LogFormat, Level: cfg.LogLevel, File: cfg.LogFile})
			app = NewApp(cfg, log, cmd.OutOrStdout())
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, app))
			return nil
		},
	}
	config.AddFlags(root.PersistentFlags())

	root.AddCommand(
		loginCommand(),
		newCommand(),
		lsCommand(),
		renameCommand(),
		describeCommand(),
		publishCommand(),
		deleteCommand(),
		watchCommand(),
		saveCommand(),
		pullCommand(),
		statusCommand(),
		previewCommand(),
		gcCommand(),
	)

	closeApp := func() error {
		if app == nil {
			return nil
		}
		return app.Close()
	}
	return root, closeApp
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root, closeApp := NewRootCommand()
	err := root.ExecuteContext(ctx)
	if cerr := closeApp(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func loginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Save an access token for this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return appFrom(cmd).Login(cmd.Context(), cmd.InOrStdin())
		},
	}
}

func newCommand() *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create an empty scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return appFrom(cmd).NewScene(cmd.Context(), args[0], description)
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "scene description")
	return cmd
}

func lsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List your scenes",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return appFrom(cmd).ListScenes(cmd.Context())
		},
	}
}

func renameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a scene",
		Args:  cobra.ExactArgs(2),
		RunE: withID(func(cmd *cobra.Command, id int64, args []string) error {
			return appFrom(cmd).Rename(cmd.Context(), id, args[0])
		}),
	}
}

func describeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <id> <text>",
		Short: "Set a scene description",
		Args:  cobra.ExactArgs(2),
		RunE: withID(func(cmd *cobra.Command, id int64, args []string) error {
			return appFrom(cmd).Describe(cmd.Context(), id, args[0])
		}),
	}
}

func publishCommand() *cobra.Command {
	var off bool
	cmd := &cobra.Command{
		Use:   "publish <id>",
		Short: "Make a scene visible to everyone",
		Args:  cobra.ExactArgs(1),
		RunE: withID(func(cmd *cobra.Command, id int64, _ []string) error {
			return appFrom(cmd).Publish(cmd.Context(), id, !off)
		}),
	}
	cmd.Flags().BoolVar(&off, "off", false, "unpublish instead")
	return cmd
}

func deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a scene remotely and from the local cache",
		Args:  cobra.ExactArgs(1),
		RunE: withID(func(cmd *cobra.Command, id int64, _ []string) error {
			return appFrom(cmd).DeleteScene(cmd.Context(), id)
		}),
	}
}

func fileFlag(cmd *cobra.Command, dst *string) {
	cmd.Flags().StringVarP(dst, "file", "f", "scene.excalidraw", "scene file to sync")
}

func watchCommand() *cobra.Command {
	var file, metricsAddr string
	cmd := &cobra.Command{
		Use:   "watch <id>",
		Short: "Sync a scene file until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: withID(func(cmd *cobra.Command, id int64, _ []string) error {
			app := appFrom(cmd)
			if metricsAddr == "" {
				metricsAddr = app.config.MetricsAddr
			}
			return app.Watch(cmd.Context(), id, file, metricsAddr)
		}),
	}
	fileFlag(cmd, &file)
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

func saveCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "save <id>",
		Short: "Push the file content now, taking the scene over from other devices",
		Args:  cobra.ExactArgs(1),
		RunE: withID(func(cmd *cobra.Command, id int64, _ []string) error {
			return appFrom(cmd).Save(cmd.Context(), id, file)
		}),
	}
	fileFlag(cmd, &file)
	return cmd
}

func pullCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "pull <id>",
		Short: "Replace the file with the remote scene",
		Args:  cobra.ExactArgs(1),
		RunE: withID(func(cmd *cobra.Command, id int64, _ []string) error {
			return appFrom(cmd).Pull(cmd.Context(), id, file)
		}),
	}
	fileFlag(cmd, &file)
	return cmd
}

func statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id>",
		Short: "Compare the cached and remote copies of a scene",
		Args:  cobra.ExactArgs(1),
		RunE: withID(func(cmd *cobra.Command, id int64, _ []string) error {
			return appFrom(cmd).Status(cmd.Context(), id)
		}),
	}
}

func previewCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "preview <id>",
		Short: "Write the cached thumbnail of a scene",
		Args:  cobra.ExactArgs(1),
		RunE: withID(func(cmd *cobra.Command, id int64, _ []string) error {
			return appFrom(cmd).Preview(cmd.Context(), id, out)
		}),
	}
	cmd.Flags().StringVarP(&out, "out", "o", "preview.jpg", "output file")
	return cmd
}

func gcCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Drop cached scenes and attachments that are no longer needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return appFrom(cmd).GC(cmd.Context())
		},
	}
}

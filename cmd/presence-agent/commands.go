package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"chorus/groupware/client"
	"chorus/groupware/config"
	"chorus/groupware/models"
	"chorus/groupware/presence"
	"chorus/groupware/tui"
	"chorus/groupware/utils"
)

// Version information, set via ldflags
var version = "dev"

// errNotified marks failures that were already shown to the user.
var errNotified = errors.New("change not saved")

const watchRetryDelay = 5 * time.Second

type options struct {
	configPath string
	cfg        *config.AgentConfig
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "presence-agent",
		Short: "Keeps your groupware status fresh",
		Long: `Runs next to your work session: sends presence heartbeats, marks you
away after a period without activity and lets you pick a status.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadAgentConfig(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultAgentConfigPath(), "Path to the agent config file")

	rootCmd.AddCommand(newCmdRun(opts))
	rootCmd.AddCommand(newCmdStatus(opts))
	rootCmd.AddCommand(newCmdSet(opts))
	rootCmd.AddCommand(newCmdMessage(opts))
	rootCmd.AddCommand(newCmdVersion())

	return rootCmd
}

func newCmdRun(opts *options) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the heartbeat and the status menu",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context(), opts.cfg, watch)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", true, "Follow status changes made from other sessions")
	return cmd
}

func newCmdStatus(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show your current status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(opts.cfg)
			status, err := c.FetchStatus(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch status: %w", err)
			}
			printStatus(cmd.OutOrStdout(), *status)
			return nil
		},
	}
}

func newCmdSet(opts *options) *cobra.Command {
	var valid []string
	for _, t := range models.StatusTypes {
		valid = append(valid, string(t))
	}

	return &cobra.Command{
		Use:       "set <status>",
		Short:     "Change your status",
		Long:      "Change your status. Available statuses: " + strings.Join(valid, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: valid,
		RunE: func(cmd *cobra.Command, args []string) error {
			statusType := models.StatusType(args[0])
			if !statusType.Valid() {
				return fmt.Errorf("invalid status: %s (must be one of %s)", args[0], strings.Join(valid, ", "))
			}

			store := presence.NewStore()
			menu := newCLIMenu(cmd, opts.cfg, store)
			if err := menu.ChangeStatus(cmd.Context(), statusType); err != nil {
				return fmt.Errorf("%w: %v", errNotified, err)
			}
			printStatus(cmd.OutOrStdout(), store.Snapshot())
			return nil
		},
	}
}

func newCmdMessage(opts *options) *cobra.Command {
	var (
		icon         string
		clearMessage bool
		clearAfter   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "message [text]",
		Short: "Set or clear your custom status message",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := presence.NewStore()
			menu := newCLIMenu(cmd, opts.cfg, store)

			var err error
			switch {
			case clearMessage:
				err = menu.ClearCustomMessage(cmd.Context())
			case len(args) == 1:
				var iconPtr *string
				if icon != "" {
					iconPtr = &icon
				}
				var clearAt *time.Time
				if clearAfter > 0 {
					at := time.Now().Add(clearAfter)
					clearAt = &at
				}
				err = menu.SetCustomMessage(cmd.Context(), iconPtr, args[0], clearAt)
			default:
				return fmt.Errorf("a message or --clear is required")
			}
			if err != nil {
				return fmt.Errorf("%w: %v", errNotified, err)
			}
			printStatus(cmd.OutOrStdout(), store.Snapshot())
			return nil
		},
	}
	cmd.Flags().StringVar(&icon, "icon", "", "Icon shown before the message")
	cmd.Flags().BoolVar(&clearMessage, "clear", false, "Clear the current message")
	cmd.Flags().DurationVar(&clearAfter, "clear-after", 0, "Clear the message after this duration (e.g. 30m)")
	return cmd
}

func newCmdVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Skip config loading.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "presence-agent %s\n", version)
		},
	}
}

func runAgent(parent context.Context, cfg *config.AgentConfig, watch bool) error {
	logger, closeLog, err := agentLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	c := newClient(cfg)
	store := presence.NewStore()
	if status, err := c.FetchStatus(ctx); err != nil {
		logger.Warn("Failed to load initial status", "error", err)
	} else {
		store.Load(*status)
	}

	toaster := tui.NewToaster()
	menu := presence.NewMenu(c, store, toaster, logger)
	ctrl := presence.NewController(c, store, controllerConfig(cfg), logger)

	updates, unsubscribe := store.Subscribe()
	defer unsubscribe()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ctrl.Run(gctx)
	})
	if watch {
		g.Go(func() error {
			watchStatus(gctx, c, store, logger)
			return nil
		})
	}
	g.Go(func() error {
		// Leaving the menu ends the session.
		defer cancel()
		model := tui.NewModel(gctx, menu, ctrl,
			tui.WithUpdates(store.Snapshot(), updates),
			tui.WithToaster(toaster),
		)
		return tui.Run(gctx, model)
	})

	err = g.Wait()
	logger.Info("Presence agent stopped")
	return err
}

// watchStatus follows server-side changes until ctx is done, reconnecting after failures.
func watchStatus(ctx context.Context, c *client.Client, store *presence.Store, logger *utils.Logger) {
	for {
		err := c.Watch(ctx, store.Reconcile)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logger.Warn("Status stream failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(watchRetryDelay):
		}
	}
}

func controllerConfig(cfg *config.AgentConfig) presence.ControllerConfig {
	return presence.ControllerConfig{
		Keepalive:         cfg.Keepalive,
		HeartbeatInterval: cfg.HeartbeatInterval,
		IdleTimeout:       cfg.IdleTimeout,
		DebounceWindow:    cfg.DebounceWindow,
		RequestTimeout:    cfg.RequestTimeout,
	}
}

func newClient(cfg *config.AgentConfig) *client.Client {
	return client.New(cfg.ServerURL, cfg.Token, cfg.RequestTimeout)
}

func newCLIMenu(cmd *cobra.Command, cfg *config.AgentConfig, store *presence.Store) *presence.Menu {
	notifier := presence.NotifierFunc(func(msg string) {
		fmt.Fprintln(cmd.ErrOrStderr(), msg)
	})
	return presence.NewMenu(newClient(cfg), store, notifier, utils.NewNopLogger())
}

// agentLogger writes to the configured log file. The terminal belongs to the menu, so
// without a file logs are dropped.
func agentLogger(cfg *config.AgentConfig) (*utils.Logger, func() error, error) {
	if cfg.LogFile == "" {
		return utils.NewNopLogger(), func() error { return nil }, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return utils.NewLoggerTo(f, cfg.LogLevel), f.Close, nil
}

func printStatus(w io.Writer, status models.PresenceStatus) {
	line := presence.Label(status.Status)
	if status.IsUserDefined {
		line += " (set by you)"
	}
	var parts []string
	if status.Icon != nil && *status.Icon != "" {
		parts = append(parts, *status.Icon)
	}
	if status.Message != nil && *status.Message != "" {
		parts = append(parts, *status.Message)
	}
	if len(parts) > 0 {
		line += "\n" + strings.Join(parts, " ")
		if status.ClearAt != nil {
			line += fmt.Sprintf(" (until %s)", status.ClearAt.Local().Format("15:04"))
		}
	}
	fmt.Fprintln(w, line)
}

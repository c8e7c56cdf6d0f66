package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"github.com/STRATINT/followbot/internal/config"
	"github.com/STRATINT/followbot/internal/logging"
	"github.com/STRATINT/followbot/internal/metrics"
	"github.com/STRATINT/followbot/internal/pacing"
	"github.com/STRATINT/followbot/internal/runner"
	"github.com/STRATINT/followbot/internal/social"
	"github.com/STRATINT/followbot/internal/state"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitAuth    = 2
)

func main() {
	os.Exit(execute())
}

func execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, runner.ErrAuthentication):
		return exitAuth
	default:
		return exitFailure
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "followbot",
		Short:         "Discover accounts by engagement and follow them under a daily quota",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		runCommand("run", "Refresh candidates if stale, then follow", runner.ModeFull),
		runCommand("discover", "Refresh the candidate set now, without following", runner.ModeDiscover),
		runCommand("follow", "Follow from the stored candidate set, without discovery", runner.ModeFollow),
		statusCommand(),
	)
	return root
}

func runCommand(use, short string, mode runner.Mode) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap()
			if err != nil {
				return err
			}
			defer app.Close()

			r, err := app.newRunner(true)
			if err != nil {
				app.logger.Error("failed to build runner", "error", err)
				return err
			}
			sum, err := r.Run(cmd.Context(), mode)
			if err != nil {
				app.logger.Error("run failed", "run_id", sum.RunID, "error", err)
				return err
			}
			if sum.Report != nil {
				app.logger.Info("run complete",
					"run_id", sum.RunID,
					"stop_reason", string(sum.Report.StopReason),
					"followed", len(sum.Report.Followed),
					"followed_today", sum.Report.Quota.Count,
				)
			}
			return nil
		},
	}
}

func statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print quota, archive and candidate counts without contacting the platform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap()
			if err != nil {
				return err
			}
			defer app.Close()

			r, err := app.newRunner(false)
			if err != nil {
				return err
			}
			return writeStatus(cmd.OutOrStdout(), r.Status())
		},
	}
}

func writeStatus(w io.Writer, s runner.Status) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// app holds the process-wide dependencies shared by every command.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	closer  io.Closer
	store   *state.FileStore
	clock   pacing.Clock
	metrics *metrics.RunCollector
}

func bootstrap() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		return nil, err
	}

	logger, closer, err := logging.Open(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		return nil, err
	}

	store, err := state.NewFileStore(cfg.State.Dir, logger)
	if err != nil {
		logger.Error("failed to open state directory", "dir", cfg.State.Dir, "error", err)
		closer.Close()
		return nil, err
	}

	collector, err := metrics.NewRunCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		closer.Close()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		closer:  closer,
		store:   store,
		clock:   pacing.RealClock{},
		metrics: collector,
	}, nil
}

// newRunner builds a Runner. A remote client is only built when online is set.
func (a *app) newRunner(online bool) (*runner.Runner, error) {
	var dial runner.Dialer
	if online {
		client, err := social.NewClient(social.ClientConfig{
			BaseURL:           a.cfg.Social.BaseURL,
			Timeout:           a.cfg.Social.Timeout,
			RequestsPerMinute: a.cfg.Social.RequestsPerMinute,
			MaxRetries:        a.cfg.Social.MaxRetries,
			SessionFile:       a.cfg.Social.SessionFile,
			WrapTransport:     a.metrics.InstrumentRoundTripper,
		}, a.logger)
		if err != nil {
			return nil, fmt.Errorf("social client: %w", err)
		}
		dial = runner.LoginDialer(client, social.Credentials{
			Username: a.cfg.Social.Username,
			Password: a.cfg.Social.Password,
		})
	}
	return runner.New(a.cfg, a.store, a.clock, dial, a.metrics, a.logger), nil
}

func (a *app) Close() {
	if err := a.closer.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close activity log: %v\n", err)
	}
}

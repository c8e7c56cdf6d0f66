// Package runner wires one end-to-end run: open a session, refresh the
// candidate set when it is stale, drain it through the follow executor and
// release the session.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/STRATINT/followbot/internal/config"
	"github.com/STRATINT/followbot/internal/discovery"
	"github.com/STRATINT/followbot/internal/executor"
	"github.com/STRATINT/followbot/internal/metrics"
	"github.com/STRATINT/followbot/internal/models"
	"github.com/STRATINT/followbot/internal/pacing"
	"github.com/STRATINT/followbot/internal/scheduler"
	"github.com/STRATINT/followbot/internal/social"
	"github.com/STRATINT/followbot/internal/state"
)

// ErrAuthentication marks a run that ended because the platform rejected
// the session.
var ErrAuthentication = errors.New("authentication failed")

// Session is an authenticated handle on the remote graph. It is opened once
// per run and closed when the run ends.
type Session interface {
	social.Graph
	Close() error
}

// Dialer opens a Session.
type Dialer func(ctx context.Context) (Session, error)

// LoginDialer opens sessions with client and creds.
func LoginDialer(client *social.Client, creds social.Credentials) Dialer {
	return func(ctx context.Context) (Session, error) {
		s, err := client.Login(ctx, creds)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Mode selects which stages a run executes.
type Mode int

const (
	// ModeFull refreshes when stale, then follows.
	ModeFull Mode = iota
	// ModeDiscover refreshes unconditionally and does not follow.
	ModeDiscover
	// ModeFollow only follows from the stored candidate set.
	ModeFollow
)

// Summary is what one run did.
type Summary struct {
	RunID     string
	Refreshed bool
	Discovery *discovery.Result
	Report    *models.RunReport
}

// Runner holds the long-lived dependencies of a run.
type Runner struct {
	cfg       config.Config
	store     *state.FileStore
	clock     pacing.Clock
	dial      Dialer
	collector *metrics.RunCollector
	logger    *slog.Logger
}

// New creates a runner. collector may be nil.
func New(cfg config.Config, store *state.FileStore, clock pacing.Clock, dial Dialer, collector *metrics.RunCollector, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:       cfg,
		store:     store,
		clock:     clock,
		dial:      dial,
		collector: collector,
		logger:    logger,
	}
}

// Controller returns a scheduling controller over the runner's store.
func (r *Runner) Controller(logger *slog.Logger) *scheduler.Controller {
	return scheduler.NewController(r.store, r.clock, r.cfg.Follow.DailyLimit, r.cfg.Follow.MaxFeedbackErrors, logger)
}

// Run executes one run in the given mode.
func (r *Runner) Run(ctx context.Context, mode Mode) (*Summary, error) {
	sum := &Summary{RunID: uuid.NewString()}
	logger := r.logger.With("run_id", sum.RunID)
	defer r.exportMetrics(logger)

	controller := r.Controller(logger)
	refresh := mode == ModeDiscover || (mode == ModeFull && controller.ShouldRefresh())
	follow := mode != ModeDiscover

	logger.Info("run starting", "mode", mode.String(), "refresh", refresh)

	session, err := r.dial(ctx)
	if err != nil {
		logger.Error("login failed", "error", err)
		return sum, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("failed to close session", "error", err)
		}
	}()

	pacer := pacing.NewPacer(r.clock, nil, logger)

	if refresh {
		// The marker is written before discovery runs; a partial refresh
		// still counts for today.
		if err := controller.MarkRefreshed(); err != nil {
			return sum, err
		}
		res, err := discovery.NewPipeline(r.store, r.cfg.Discovery, pacer, logger).Refresh(ctx, session)
		if err != nil {
			return sum, r.runError(logger, "discovery failed", err)
		}
		sum.Refreshed = true
		sum.Discovery = res
		if r.collector != nil {
			r.collector.ObserveDiscovery(res)
		}
	} else {
		logger.Info("skipping discovery", "mode", mode.String())
	}

	if !follow {
		return sum, nil
	}

	var observer executor.Observer
	if r.collector != nil {
		observer = r.collector
	}
	report, err := executor.New(r.store, controller, r.cfg.Follow, pacer, observer, logger).Run(ctx, session, sum.RunID)
	sum.Report = report
	if err != nil {
		return sum, r.runError(logger, "follow run failed", err)
	}
	if report.StopReason == models.StopSessionInvalid {
		return sum, fmt.Errorf("%w: session rejected during follow run", ErrAuthentication)
	}
	return sum, nil
}

// runError logs err and maps fatal session errors to ErrAuthentication.
func (r *Runner) runError(logger *slog.Logger, msg string, err error) error {
	logger.Error(msg, "error", err)
	if social.KindOf(err) == social.KindFatal {
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	return err
}

func (r *Runner) exportMetrics(logger *slog.Logger) {
	if r.collector == nil || r.cfg.Metrics.TextfilePath == "" {
		return
	}
	if err := r.collector.WriteTextfile(r.cfg.Metrics.TextfilePath); err != nil {
		logger.Warn("failed to export metrics", "error", err)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeDiscover:
		return "discover"
	case ModeFollow:
		return "follow"
	default:
		return "full"
	}
}

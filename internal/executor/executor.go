// Package executor drains the candidate set, one follow at a time, under the
// daily quota, the feedback error budget and the pacing policy.
package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/STRATINT/followbot/internal/config"
	"github.com/STRATINT/followbot/internal/models"
	"github.com/STRATINT/followbot/internal/pacing"
	"github.com/STRATINT/followbot/internal/scheduler"
	"github.com/STRATINT/followbot/internal/social"
	"github.com/STRATINT/followbot/internal/state"
)

// Store is the subset of the state store the executor needs.
type Store interface {
	LoadArchive() *state.Archive
	LoadCandidates() models.CandidateSet
	SaveArchive(a *state.Archive) error
	SaveQuota(q models.DailyQuota) error
}

// Observer receives per-candidate outcomes, for metrics.
type Observer interface {
	// ObserveOutcome is called once per candidate. err is the failure
	// behind the outcome, nil for follows and archive skips.
	ObserveOutcome(outcome models.Outcome, err error)
	ObserveQuota(q models.DailyQuota, limit int)
}

type nopObserver struct{}

func (nopObserver) ObserveOutcome(models.Outcome, error) {}
func (nopObserver) ObserveQuota(models.DailyQuota, int) {}

// Executor runs the follow loop.
type Executor struct {
	store           Store
	controller      *scheduler.Controller
	policy          pacing.FollowPolicy
	pacer           *pacing.Pacer
	progressEvery   int
	checkpointEvery int
	observer        Observer
	logger          *slog.Logger
}

// PolicyFromConfig builds the follow timing policy.
func PolicyFromConfig(cfg config.FollowConfig) pacing.FollowPolicy {
	return pacing.FollowPolicy{
		Politeness:     pacing.Window{Min: cfg.MinDelay, Max: cfg.MaxDelay},
		Strategic:      pacing.Window{Min: cfg.StrategicMin, Max: cfg.StrategicMax},
		StrategicEvery: cfg.StrategicEvery,
		Cooldowns: pacing.Cooldowns{
			Transient:   cfg.WaitCooldown,
			RateLimited: cfg.RateLimitCooldown,
			Error:       cfg.ErrorCooldown,
		},
	}
}

// New creates an executor. A nil observer is allowed.
func New(store Store, controller *scheduler.Controller, cfg config.FollowConfig, pacer *pacing.Pacer, observer Observer, logger *slog.Logger) *Executor {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Executor{
		store:           store,
		controller:      controller,
		policy:          PolicyFromConfig(cfg),
		pacer:           pacer,
		progressEvery:   cfg.ProgressEvery,
		checkpointEvery: cfg.CheckpointEvery,
		observer:        observer,
		logger:          logger,
	}
}

// run is the in-memory state of one executor run.
type run struct {
	report    *models.RunReport
	archive   *state.Archive
	quota     models.DailyQuota
	feedback  int
	successes int
}

// Run processes the stored candidate set in order and persists the archive
// and quota once the loop ends. The returned error is non-nil only when the
// final write fails; every remote failure is handled inside the loop and
// reflected in the report.
func (e *Executor) Run(ctx context.Context, graph social.Graph, runID string) (*models.RunReport, error) {
	r := &run{
		report:  models.NewRunReport(runID, e.pacer.Clock().Now()),
		archive: e.store.LoadArchive(),
		quota:   e.controller.BeginDay(),
	}
	candidates := e.store.LoadCandidates()
	r.report.StopReason = models.StopExhausted

	e.logger.Info("starting follow run",
		"candidates", len(candidates),
		"followed_today", r.quota.Count,
		"daily_limit", e.controller.DailyLimit(),
	)

	for i, c := range candidates {
		if reason, stop := e.controller.Stop(r.quota, r.feedback); stop {
			r.report.StopReason = reason
			e.logStop(r, reason)
			break
		}
		if ctx.Err() != nil {
			r.report.StopReason = models.StopCancelled
			e.logStop(r, models.StopCancelled)
			break
		}

		attempted := r.report.Attempted
		reason, stop, err := e.process(ctx, graph, r, c, i == len(candidates)-1)
		if err != nil {
			return r.report, err
		}
		if r.report.Attempted > attempted {
			e.progress(r)
		}
		if stop {
			r.report.StopReason = reason
			e.logStop(r, reason)
			break
		}
	}

	r.report.Quota = r.quota
	r.report.FeedbackErrors = r.feedback
	r.report.FinishedAt = e.pacer.Clock().Now()
	e.observer.ObserveQuota(r.quota, e.controller.DailyLimit())

	if err := e.persist(r); err != nil {
		return r.report, err
	}
	e.logger.Info("follow run finished",
		"stop_reason", string(r.report.StopReason),
		"attempted", r.report.Attempted,
		"followed", len(r.report.Followed),
		"followed_today", r.quota.Count,
	)
	return r.report, nil
}

// process drives one candidate through its state machine. It reports
// whether the run must stop, and why.
func (e *Executor) process(ctx context.Context, graph social.Graph, r *run, c models.Candidate, last bool) (models.StopReason, bool, error) {
	if r.archive.Contains(c.Handle) {
		e.record(r, models.OutcomeSkipped, nil)
		e.logger.Debug("skipping archived account", models.ActivitySkip.Attr(), "handle", c.Handle)
		return "", false, nil
	}

	r.report.Attempted++
	err := follow(ctx, graph, c.Handle)
	if err == nil {
		return e.succeeded(ctx, r, c, last)
	}
	if ctx.Err() != nil {
		return models.StopCancelled, true, nil
	}

	kind := social.KindOf(err)
	switch kind {
	case social.KindFatal:
		e.record(r, models.OutcomeFailedBlocking, err)
		e.logger.Error("session rejected, stopping", models.ActivityStop.Attr(), "handle", c.Handle, "error", err)
		return models.StopSessionInvalid, true, nil

	case social.KindNotFound:
		e.record(r, models.OutcomeSkipped, err)
		e.logger.Info("account not found, skipping", models.ActivitySkip.Attr(), "handle", c.Handle)
		return "", false, nil

	case social.KindSoftBlock:
		r.feedback++
		e.record(r, models.OutcomeFailedBlocking, err)
		e.logger.Warn("action feedback received",
			models.ActivityCooldown.Attr(),
			"handle", c.Handle,
			"feedback_errors", r.feedback,
			"max_feedback_errors", e.controller.MaxFeedbackErrors(),
			"error", err,
		)
		if reason, stop, err := e.cooldown(ctx, kind); stop || err != nil {
			return reason, stop, err
		}
		if reason, stop := e.controller.Stop(r.quota, r.feedback); stop {
			return reason, true, nil
		}
		return "", false, nil

	case social.KindTransient, social.KindRateLimited:
		e.record(r, models.OutcomeFailedTransient, err)
		e.logger.Warn("follow throttled", "handle", c.Handle, "kind", kind.String(), "error", err)

	default:
		e.record(r, models.OutcomeFailedTransient, err)
		e.logger.Error("follow failed", "handle", c.Handle, "kind", kind.String(), "error", err)
	}

	return e.cooldown(ctx, kind)
}

func (e *Executor) succeeded(ctx context.Context, r *run, c models.Candidate, last bool) (models.StopReason, bool, error) {
	r.quota.Count++
	r.archive.Add(c.Handle)
	r.successes++
	r.report.Followed = append(r.report.Followed, c.Handle)
	e.record(r, models.OutcomeSucceeded, nil)
	e.logger.Info("followed account",
		models.ActivityFollow.Attr(),
		"handle", c.Handle,
		"source", c.Source,
		"followed_today", r.quota.Count,
		"daily_limit", e.controller.DailyLimit(),
	)

	if e.checkpointEvery > 0 && r.successes%e.checkpointEvery == 0 {
		if err := e.persist(r); err != nil {
			return "", false, err
		}
	}

	// No point waiting when nothing more will be attempted.
	if _, stop := e.controller.Stop(r.quota, r.feedback); stop || last {
		return "", false, nil
	}

	if _, err := e.pacer.Jitter(ctx, e.policy.Politeness, "politeness delay"); err != nil {
		return models.StopCancelled, true, nil
	}
	if e.policy.StrategicPauseDue(r.successes) {
		d := e.pacer.Pick(e.policy.Strategic)
		e.logger.Info("strategic pause", models.ActivityPause.Attr(), "after_follows", r.successes, "duration", d.String())
		if err := e.pacer.Sleep(ctx, d, "strategic pause"); err != nil {
			return models.StopCancelled, true, nil
		}
	}
	return "", false, nil
}

func (e *Executor) cooldown(ctx context.Context, kind social.Kind) (models.StopReason, bool, error) {
	d := e.policy.Cooldowns.For(kind)
	if d <= 0 {
		return "", false, nil
	}
	e.logger.Info("cooling down", models.ActivityCooldown.Attr(), "kind", kind.String(), "duration", d.String())
	if err := e.pacer.Sleep(ctx, d, "cooldown"); err != nil {
		return models.StopCancelled, true, nil
	}
	return "", false, nil
}

func (e *Executor) record(r *run, o models.Outcome, err error) {
	r.report.Record(o)
	e.observer.ObserveOutcome(o, err)
}

// progress logs every progressEvery attempts. Archive skips are not attempts.
func (e *Executor) progress(r *run) {
	if e.progressEvery <= 0 || r.report.Attempted%e.progressEvery != 0 {
		return
	}
	e.logger.Info("follow progress",
		"attempted", r.report.Attempted,
		"followed_today", r.quota.Count,
		"daily_limit", e.controller.DailyLimit(),
	)
}

func (e *Executor) logStop(r *run, reason models.StopReason) {
	switch reason {
	case models.StopDailyLimit:
		e.logger.Info("daily limit reached", models.ActivityStop.Attr(), "followed_today", r.quota.Count, "daily_limit", e.controller.DailyLimit())
	case models.StopFeedbackErrors:
		e.logger.Warn("too many feedback errors, stopping", models.ActivityStop.Attr(), "feedback_errors", r.feedback)
	case models.StopSessionInvalid:
		e.logger.Error("stopping run, session is no longer valid", models.ActivityStop.Attr())
	case models.StopCancelled:
		e.logger.Warn("follow run cancelled", models.ActivityStop.Attr(), "followed_today", r.quota.Count)
	}
}

// persist writes the archive and quota.
func (e *Executor) persist(r *run) error {
	if err := e.store.SaveArchive(r.archive); err != nil {
		return fmt.Errorf("save archive: %w", err)
	}
	if err := e.store.SaveQuota(r.quota); err != nil {
		return fmt.Errorf("save quota: %w", err)
	}
	e.logger.Info("state persisted", models.ActivityPersist.Attr(), "archived", r.archive.Len(), "followed_today", r.quota.Count)
	return nil
}

// follow resolves handle and issues the follow action.
func follow(ctx context.Context, graph social.Graph, handle string) error {
	id, err := graph.ResolveID(ctx, handle)
	if err != nil {
		return err
	}
	return graph.Follow(ctx, id)
}

package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/STRATINT/followbot/internal/models"
	"github.com/STRATINT/followbot/internal/pacing"
)

// Store is the subset of the state store the controller needs.
type Store interface {
	LoadRefreshMarker() (string, bool)
	SaveRefreshMarker(day string) error
	LoadQuota(today string) models.DailyQuota
}

// Controller gates discovery by staleness and execution by the daily quota
// and the run's feedback error budget.
type Controller struct {
	store             Store
	clock             pacing.Clock
	dailyLimit        int
	maxFeedbackErrors int
	logger            *slog.Logger
}

// NewController creates a new controller.
func NewController(store Store, clock pacing.Clock, dailyLimit, maxFeedbackErrors int, logger *slog.Logger) *Controller {
	return &Controller{
		store:             store,
		clock:             clock,
		dailyLimit:        dailyLimit,
		maxFeedbackErrors: maxFeedbackErrors,
		logger:            logger,
	}
}

// Today returns the current calendar day.
func (c *Controller) Today() string {
	return models.Day(c.clock.Now())
}

// DailyLimit returns the configured follow limit.
func (c *Controller) DailyLimit() int { return c.dailyLimit }

// MaxFeedbackErrors returns the per-run soft block budget.
func (c *Controller) MaxFeedbackErrors() int { return c.maxFeedbackErrors }

// ShouldRefresh reports whether discovery is due: never run, or last run on
// an earlier calendar day.
func (c *Controller) ShouldRefresh() bool {
	last, ok := c.store.LoadRefreshMarker()
	if !ok {
		return true
	}
	days, err := daysBetween(last, c.Today())
	if err != nil {
		c.logger.Warn("unreadable refresh marker, refreshing", "marker", last, "error", err)
		return true
	}
	return days >= 1
}

// MarkRefreshed records today as the last refresh. It is called before
// discovery runs, so a partially failed discovery still counts for the day.
func (c *Controller) MarkRefreshed() error {
	if err := c.store.SaveRefreshMarker(c.Today()); err != nil {
		return fmt.Errorf("save refresh marker: %w", err)
	}
	return nil
}

// BeginDay loads the quota and applies day rollover.
func (c *Controller) BeginDay() models.DailyQuota {
	today := c.Today()
	q, reset := c.store.LoadQuota(today).Rollover(today)
	if reset {
		c.logger.Info("new day, follow counter reset", "date", today)
	}
	return q
}

// DailyQuotaExceeded reports whether a stored quota, adjusted for rollover,
// has reached the daily limit.
func (c *Controller) DailyQuotaExceeded(q models.DailyQuota) bool {
	q, _ = q.Rollover(c.Today())
	return q.Exceeded(c.dailyLimit)
}

// Stop is checked before each candidate. q is the run's quota as returned
// by BeginDay; it is not rolled over again, so a run that crosses midnight
// keeps counting against the day it started on.
func (c *Controller) Stop(q models.DailyQuota, feedbackErrors int) (models.StopReason, bool) {
	if q.Exceeded(c.dailyLimit) {
		return models.StopDailyLimit, true
	}
	if feedbackErrors >= c.maxFeedbackErrors {
		return models.StopFeedbackErrors, true
	}
	return "", false
}

// daysBetween counts whole calendar days from a to b, both in DayLayout.
func daysBetween(a, b string) (int, error) {
	from, err := time.Parse(models.DayLayout, a)
	if err != nil {
		return 0, err
	}
	to, err := time.Parse(models.DayLayout, b)
	if err != nil {
		return 0, err
	}
	return int(to.Sub(from).Hours() / 24), nil
}

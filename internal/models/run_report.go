package models

import "time"

// StopReason explains why a follow run ended.
type StopReason string

const (
	StopExhausted      StopReason = "candidates_exhausted"
	StopDailyLimit     StopReason = "daily_limit_reached"
	StopFeedbackErrors StopReason = "max_feedback_errors"
	StopCancelled      StopReason = "cancelled"
	StopSessionInvalid StopReason = "session_invalid"
)

// Outcome is the terminal state of a single candidate within a run.
type Outcome string

const (
	OutcomeSkipped         Outcome = "skipped"
	OutcomeSucceeded       Outcome = "succeeded"
	OutcomeFailedTransient Outcome = "failed_transient"
	OutcomeFailedBlocking  Outcome = "failed_blocking"
)

// RunReport summarises one executor run.
type RunReport struct {
	RunID          string          `json:"run_id"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     time.Time       `json:"finished_at"`
	Attempted      int             `json:"attempted"`
	Followed       []string        `json:"followed"`
	Outcomes       map[Outcome]int `json:"outcomes"`
	FeedbackErrors int             `json:"feedback_errors"`
	StopReason     StopReason      `json:"stop_reason"`
	Quota          DailyQuota      `json:"quota"`
}

// NewRunReport returns an empty report for runID.
func NewRunReport(runID string, startedAt time.Time) *RunReport {
	return &RunReport{
		RunID:     runID,
		StartedAt: startedAt,
		Outcomes:  make(map[Outcome]int),
	}
}

// Record tallies one candidate outcome.
func (r *RunReport) Record(o Outcome) {
	r.Outcomes[o]++
}

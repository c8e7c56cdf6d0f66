package runner

import "github.com/STRATINT/followbot/internal/models"

// Status is a snapshot of the persisted state.
type Status struct {
	Today        string            `json:"today"`
	Quota        models.DailyQuota `json:"quota"`
	DailyLimit   int               `json:"daily_limit"`
	Archived     int               `json:"archived"`
	Candidates   int               `json:"candidates"`
	Pending      int               `json:"pending"`
	LastRefresh  string            `json:"last_refresh,omitempty"`
	RefreshDue   bool              `json:"refresh_due"`
	QuotaReached bool              `json:"quota_reached"`
}

// Status reads the persisted records without touching the remote service.
func (r *Runner) Status() Status {
	controller := r.Controller(r.logger)
	archive := r.store.LoadArchive()
	candidates := r.store.LoadCandidates()
	quota := controller.BeginDay()

	pending := 0
	for _, c := range candidates {
		if !archive.Contains(c.Handle) {
			pending++
		}
	}
	last, _ := r.store.LoadRefreshMarker()

	return Status{
		Today:        controller.Today(),
		Quota:        quota,
		DailyLimit:   controller.DailyLimit(),
		Archived:     archive.Len(),
		Candidates:   len(candidates),
		Pending:      pending,
		LastRefresh:  last,
		RefreshDue:   controller.ShouldRefresh(),
		QuotaReached: controller.DailyQuotaExceeded(quota),
	}
}

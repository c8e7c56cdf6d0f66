// Package discovery turns seed accounts and hashtags into a fresh candidate
// set: it reads the remote graph one call at a time, applies the engagement
// filters, drops archived handles and writes the sorted result.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/STRATINT/followbot/internal/config"
	"github.com/STRATINT/followbot/internal/models"
	"github.com/STRATINT/followbot/internal/pacing"
	"github.com/STRATINT/followbot/internal/social"
	"github.com/STRATINT/followbot/internal/state"
)

// Store is the subset of the state store discovery needs.
type Store interface {
	LoadArchive() *state.Archive
	LoadCandidates() models.CandidateSet
	SaveCandidates(set models.CandidateSet) error
}

// Stats counts what one refresh saw.
type Stats struct {
	Sources      int
	SourceErrors int
	Examined     int
	Kept         int
	ItemErrors   int
	Rejected     map[string]int
}

func (s *Stats) reject(reason string) {
	if s.Rejected == nil {
		s.Rejected = make(map[string]int)
	}
	s.Rejected[reason]++
}

// Result is the outcome of a refresh.
type Result struct {
	Candidates models.CandidateSet
	Stats      Stats
}

// Pipeline orchestrates one discovery pass over every configured source.
type Pipeline struct {
	store   Store
	cfg     config.DiscoveryConfig
	filters Filters
	policy  pacing.DiscoveryPolicy
	pacer   *pacing.Pacer
	logger  *slog.Logger
}

// NewPipeline creates a new discovery pipeline.
func NewPipeline(store Store, cfg config.DiscoveryConfig, pacer *pacing.Pacer, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:   store,
		cfg:     cfg,
		filters: NewFilters(cfg.Filters),
		policy: pacing.DiscoveryPolicy{
			RequestDelay:  pacing.Window{Min: cfg.RequestDelayMin, Max: cfg.RequestDelayMax},
			SourcePause:   pacing.Window{Min: cfg.SourcePauseMin, Max: cfg.SourcePauseMax},
			ErrorCooldown: cfg.ErrorCooldown,
		},
		pacer:  pacer,
		logger: logger,
	}
}

// Sources returns seeds first, then hashtags, in configured order.
func (p *Pipeline) Sources() []Source {
	sources := make([]Source, 0, len(p.cfg.Seeds)+len(p.cfg.Hashtags))
	for _, seed := range p.cfg.Seeds {
		if h := strings.TrimPrefix(strings.TrimSpace(seed), "@"); h != "" {
			sources = append(sources, seedSource{handle: h, limit: p.cfg.FollowingLimit})
		}
	}
	for _, tag := range p.cfg.Hashtags {
		if t := strings.TrimPrefix(strings.TrimSpace(tag), "#"); t != "" {
			sources = append(sources, hashtagSource{tag: t, limit: p.cfg.HashtagLimit})
		}
	}
	return sources
}

// Refresh runs every source and replaces the stored candidate set. With no
// sources configured the stored set is returned untouched. A failing
// source is skipped after the error cooldown; only cancellation, a fatal
// session error or a failed write abort the refresh, and then the previous
// candidate set is left in place.
func (p *Pipeline) Refresh(ctx context.Context, graph social.Graph) (*Result, error) {
	sources := p.Sources()
	if len(sources) == 0 {
		previous := p.store.LoadCandidates()
		p.logger.Warn("no seeds or hashtags configured, keeping stored candidates",
			models.ActivityRefresh.Attr(),
			"candidates", len(previous),
		)
		return &Result{Candidates: previous}, nil
	}
	archive := p.store.LoadArchive()
	ps := &pass{
		graph:   graph,
		filters: p.filters,
		dedup:   NewDeduplicator(archive),
		pacer:   p.pacer,
		policy:  p.policy,
		stats:   &Stats{},
		logger:  p.logger,
	}

	p.logger.Info("starting discovery",
		models.ActivityRefresh.Attr(),
		"sources", len(sources),
		"archived", archive.Len(),
	)

	for i, src := range sources {
		ps.stats.Sources++
		err := src.Collect(ctx, ps)
		if err != nil {
			if abortsPass(ctx, err) {
				return nil, fmt.Errorf("discovery %s: %w", src.Name(), err)
			}
			ps.stats.SourceErrors++
			p.logger.Warn("source failed, moving on",
				models.ActivityCooldown.Attr(),
				"source", src.Name(),
				"kind", social.KindOf(err).String(),
				"cooldown", p.policy.ErrorCooldown.String(),
				"error", err,
			)
			if err := p.pacer.Sleep(ctx, p.policy.ErrorCooldown, "discovery error cooldown"); err != nil {
				return nil, err
			}
			continue
		}

		p.logger.Info("source done", "source", src.Name(), "candidates", ps.dedup.Size())
		if i < len(sources)-1 {
			if _, err := p.pacer.Jitter(ctx, p.policy.SourcePause, "discovery source pause"); err != nil {
				return nil, err
			}
		}
	}

	set := ps.dedup.Result()
	if err := p.store.SaveCandidates(set); err != nil {
		return nil, fmt.Errorf("save candidates: %w", err)
	}

	p.logger.Info("discovery complete",
		models.ActivityRefresh.Attr(),
		"candidates", len(set),
		"examined", ps.stats.Examined,
		"item_errors", ps.stats.ItemErrors,
		"source_errors", ps.stats.SourceErrors,
	)
	return &Result{Candidates: set, Stats: *ps.stats}, nil
}

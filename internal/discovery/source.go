package discovery

import (
	"context"
	"errors"
	"log/slog"

	"github.com/STRATINT/followbot/internal/models"
	"github.com/STRATINT/followbot/internal/pacing"
	"github.com/STRATINT/followbot/internal/social"
)

// Source is one origin of candidates: a seed account or a hashtag.
type Source interface {
	// Name returns the label candidates are attributed to.
	Name() string

	// Collect evaluates the source's accounts and marks the kept ones. Item
	// failures are handled inside; a returned error means the source as a
	// whole could not be read.
	Collect(ctx context.Context, p *pass) error
}

// pass carries the state shared by every source in one refresh.
type pass struct {
	graph   social.Graph
	filters Filters
	dedup   *Deduplicator
	pacer   *pacing.Pacer
	policy  pacing.DiscoveryPolicy
	stats   *Stats
	logger  *slog.Logger
}

// polite waits the per-item politeness delay.
func (p *pass) polite(ctx context.Context) error {
	_, err := p.pacer.Jitter(ctx, p.policy.RequestDelay, "discovery request delay")
	return err
}

// evaluate applies a filter verdict to handle.
func (p *pass) evaluate(handle, source, reason string) {
	p.stats.Examined++
	if reason != "" {
		p.stats.reject(reason)
		p.logger.Debug("candidate rejected", "handle", handle, "source", source, "reason", reason)
		return
	}
	if p.dedup.Mark(handle, source, p.pacer.Clock().Now()) {
		p.stats.Kept++
		p.logger.Debug("candidate kept", "handle", handle, "source", source)
	}
}

// itemFailed logs a per-item failure. It returns the error back only when
// the pass cannot continue.
func (p *pass) itemFailed(ctx context.Context, handle, source string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if social.KindOf(err) == social.KindFatal {
		return err
	}
	p.stats.ItemErrors++
	p.logger.Warn("skipping account after error",
		"handle", handle,
		"source", source,
		"kind", social.KindOf(err).String(),
		"error", err,
	)
	return nil
}

// seedSource yields accounts followed by a seed account.
type seedSource struct {
	handle string
	limit  int
}

func (s seedSource) Name() string { return models.SourceSeed(s.handle) }

func (s seedSource) Collect(ctx context.Context, p *pass) error {
	id, err := p.graph.ResolveID(ctx, s.handle)
	if err != nil {
		return err
	}
	users, err := p.graph.ListFollowing(ctx, id, s.limit)
	if err != nil {
		return err
	}
	p.logger.Info("scanning seed account", "source", s.Name(), "following", len(users))

	for _, u := range users {
		if u.Handle == "" || !p.dedup.IsNew(u.Handle) {
			continue
		}
		if u.IsPrivate {
			p.evaluate(u.Handle, s.Name(), RejectPrivate)
			continue
		}

		profile, err := p.graph.FetchProfile(ctx, u.ID)
		if err != nil {
			if err := p.itemFailed(ctx, u.Handle, s.Name(), err); err != nil {
				return err
			}
		} else {
			p.evaluate(u.Handle, s.Name(), p.filters.SeedProfile(profile))
		}

		if err := p.polite(ctx); err != nil {
			return err
		}
	}
	return nil
}

// hashtagSource yields authors of a hashtag's top posts.
type hashtagSource struct {
	tag   string
	limit int
}

func (s hashtagSource) Name() string { return models.SourceHashtag(s.tag) }

func (s hashtagSource) Collect(ctx context.Context, p *pass) error {
	media, err := p.graph.ListHashtagTopMedia(ctx, s.tag, s.limit)
	if err != nil {
		return err
	}
	p.logger.Info("scanning hashtag", "source", s.Name(), "posts", len(media))

	for _, m := range media {
		if m.AuthorHandle == "" || !p.dedup.IsNew(m.AuthorHandle) {
			continue
		}

		var profile models.Profile
		if m.AuthorID != "" {
			profile, err = p.graph.FetchProfile(ctx, m.AuthorID)
		} else {
			profile, err = p.graph.FetchProfileByHandle(ctx, m.AuthorHandle)
		}
		if err != nil {
			if err := p.itemFailed(ctx, m.AuthorHandle, s.Name(), err); err != nil {
				return err
			}
		} else {
			p.evaluate(m.AuthorHandle, s.Name(), p.filters.HashtagPost(profile, m))
		}

		if err := p.polite(ctx); err != nil {
			return err
		}
	}
	return nil
}

// abortsPass reports whether a source failure must end the whole refresh.
func abortsPass(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return social.KindOf(err) == social.KindFatal
}

package discovery

import (
	"unicode/utf8"

	"github.com/STRATINT/followbot/internal/config"
	"github.com/STRATINT/followbot/internal/models"
)

// Rejection reasons, used in logs and stats.
const (
	RejectPrivate       = "private"
	RejectNoBiography   = "no_biography"
	RejectFewFollowers  = "few_followers"
	RejectFewPosts      = "few_posts"
	RejectLowEngagement = "low_engagement"
	RejectShortCaption  = "short_caption"
)

// Filters applies the engagement thresholds.
type Filters struct {
	cfg config.FilterConfig
}

// NewFilters returns filters for cfg.
func NewFilters(cfg config.FilterConfig) Filters {
	return Filters{cfg: cfg}
}

// SeedProfile decides on an account found through a seed's following list.
// It returns "" when the account is kept, otherwise the rejection reason.
func (f Filters) SeedProfile(p models.Profile) string {
	switch {
	case p.IsPrivate:
		return RejectPrivate
	case p.Biography == "":
		return RejectNoBiography
	case p.FollowerCount < f.cfg.MinFollowers:
		return RejectFewFollowers
	case p.MediaCount < f.cfg.MinPosts:
		return RejectFewPosts
	}
	return ""
}

// HashtagPost decides on the author of a top hashtag post.
func (f Filters) HashtagPost(p models.Profile, m models.HashtagMedia) string {
	switch {
	case p.IsPrivate:
		return RejectPrivate
	case p.MediaCount < f.cfg.MinPosts:
		return RejectFewPosts
	case p.FollowerCount < f.cfg.MinFollowers:
		return RejectFewFollowers
	case m.LikeCount < f.cfg.MinLikes && m.CommentCount < f.cfg.MinComments:
		return RejectLowEngagement
	case utf8.RuneCountInString(m.CaptionText) < f.cfg.MinCaptionLength:
		return RejectShortCaption
	}
	return ""
}

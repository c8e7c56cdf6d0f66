package social

import (
	"context"

	"github.com/STRATINT/followbot/internal/models"
)

// Graph is the authenticated surface of the remote social platform used by
// discovery and the follow executor. Calls are made one at a time; an
// implementation need not be safe for concurrent use.
type Graph interface {
	// ResolveID returns the opaque id for handle.
	ResolveID(ctx context.Context, handle string) (string, error)

	// ListFollowing returns up to limit accounts followed by id.
	ListFollowing(ctx context.Context, id string, limit int) ([]models.FollowingUser, error)

	// FetchProfile returns the extended profile for id.
	FetchProfile(ctx context.Context, id string) (models.Profile, error)

	// FetchProfileByHandle returns the extended profile for handle.
	FetchProfileByHandle(ctx context.Context, handle string) (models.Profile, error)

	// ListHashtagTopMedia returns up to limit top posts for tag.
	ListHashtagTopMedia(ctx context.Context, tag string, limit int) ([]models.HashtagMedia, error)

	// Follow issues a follow action for id.
	Follow(ctx context.Context, id string) error
}

// Credentials authenticate a new session.
type Credentials struct {
	Username string
	Password string
}

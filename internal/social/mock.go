package social

import (
	"context"
	"fmt"
	"strings"

	"github.com/STRATINT/followbot/internal/models"
)

// MockGraph is an in-memory Graph for tests and dry runs. Accounts are keyed
// by handle and use "id-<handle>" as their id.
type MockGraph struct {
	Profiles  map[string]models.Profile
	Following map[string][]models.FollowingUser
	Hashtags  map[string][]models.HashtagMedia

	// Errors injects a failure for a specific call, keyed "op:arg" (for
	// example "follow:id-bob" or "resolve_id:nasa").
	Errors map[string]error
	// FollowErrors are consumed in order by successive Follow calls; a nil
	// entry means success.
	FollowErrors []error

	Calls    []string
	Followed []string
}

var _ Graph = (*MockGraph)(nil)

// NewMockGraph returns an empty MockGraph.
func NewMockGraph() *MockGraph {
	return &MockGraph{
		Profiles:  make(map[string]models.Profile),
		Following: make(map[string][]models.FollowingUser),
		Hashtags:  make(map[string][]models.HashtagMedia),
		Errors:    make(map[string]error),
	}
}

// MockID returns the id MockGraph assigns to handle.
func MockID(handle string) string { return "id-" + handle }

// AddProfile registers p under its handle, filling in the id.
func (m *MockGraph) AddProfile(p models.Profile) {
	p.ID = MockID(p.Handle)
	m.Profiles[p.Handle] = p
}

// AddFollowing registers the accounts followed by seed. Each followed account
// must also be added with AddProfile to pass profile fetches.
func (m *MockGraph) AddFollowing(seed string, followed ...models.FollowingUser) {
	for i := range followed {
		if followed[i].ID == "" {
			followed[i].ID = MockID(followed[i].Handle)
		}
	}
	m.Following[MockID(seed)] = append(m.Following[MockID(seed)], followed...)
}

// AddHashtagMedia registers top posts for tag.
func (m *MockGraph) AddHashtagMedia(tag string, media ...models.HashtagMedia) {
	m.Hashtags[tag] = append(m.Hashtags[tag], media...)
}

func (m *MockGraph) record(op, arg string) error {
	key := op + ":" + arg
	m.Calls = append(m.Calls, key)
	return m.Errors[key]
}

// CallCount returns how many calls were made for op.
func (m *MockGraph) CallCount(op string) int {
	n := 0
	for _, c := range m.Calls {
		if strings.HasPrefix(c, op+":") {
			n++
		}
	}
	return n
}

// ResolveID implements Graph.
func (m *MockGraph) ResolveID(ctx context.Context, handle string) (string, error) {
	if err := m.record("resolve_id", handle); err != nil {
		return "", err
	}
	if _, ok := m.Profiles[handle]; !ok {
		return "", NewError("resolve_id", KindNotFound, fmt.Sprintf("user not found: %s", handle))
	}
	return MockID(handle), nil
}

// ListFollowing implements Graph.
func (m *MockGraph) ListFollowing(ctx context.Context, id string, limit int) ([]models.FollowingUser, error) {
	if err := m.record("list_following", id); err != nil {
		return nil, err
	}
	users := m.Following[id]
	if limit >= 0 && len(users) > limit {
		users = users[:limit]
	}
	return append([]models.FollowingUser(nil), users...), nil
}

// FetchProfile implements Graph.
func (m *MockGraph) FetchProfile(ctx context.Context, id string) (models.Profile, error) {
	if err := m.record("fetch_profile", id); err != nil {
		return models.Profile{}, err
	}
	for _, p := range m.Profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Profile{}, NewError("fetch_profile", KindNotFound, "user not found")
}

// FetchProfileByHandle implements Graph.
func (m *MockGraph) FetchProfileByHandle(ctx context.Context, handle string) (models.Profile, error) {
	if err := m.record("fetch_profile", handle); err != nil {
		return models.Profile{}, err
	}
	p, ok := m.Profiles[handle]
	if !ok {
		return models.Profile{}, NewError("fetch_profile", KindNotFound, "user not found")
	}
	return p, nil
}

// ListHashtagTopMedia implements Graph.
func (m *MockGraph) ListHashtagTopMedia(ctx context.Context, tag string, limit int) ([]models.HashtagMedia, error) {
	if err := m.record("list_hashtag_top_media", tag); err != nil {
		return nil, err
	}
	media := m.Hashtags[tag]
	if limit >= 0 && len(media) > limit {
		media = media[:limit]
	}
	return append([]models.HashtagMedia(nil), media...), nil
}

// Follow implements Graph.
func (m *MockGraph) Follow(ctx context.Context, id string) error {
	if err := m.record("follow", id); err != nil {
		return err
	}
	if len(m.FollowErrors) > 0 {
		err := m.FollowErrors[0]
		m.FollowErrors = m.FollowErrors[1:]
		if err != nil {
			return err
		}
	}
	m.Followed = append(m.Followed, strings.TrimPrefix(id, "id-"))
	return nil
}

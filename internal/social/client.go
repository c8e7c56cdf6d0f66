package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/STRATINT/followbot/internal/models"
)

// ClientConfig configures the HTTP adapter for the remote platform.
type ClientConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int
	MaxRetries        int
	// SessionFile caches the session token between runs. Empty disables it.
	SessionFile string
	// WrapTransport, when set, decorates the underlying round tripper (used
	// for request metrics).
	WrapTransport func(http.RoundTripper) http.RoundTripper
}

// Client talks to the platform's JSON API. It only hands out Sessions; all
// graph operations go through a Session.
type Client struct {
	baseURL *url.URL
	reads   *http.Client
	writes  *http.Client
	limiter *rate.Limiter
	cache   *SessionCache
	logger  *slog.Logger
}

// NewClient creates a new platform API client.
func NewClient(cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}

	transport := defaultTransport()
	if cfg.WrapTransport != nil {
		transport = cfg.WrapTransport(transport)
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 20
	}

	c := &Client{
		baseURL: base,
		reads:   readClient(transport, cfg.Timeout, cfg.MaxRetries, logger),
		writes:  writeClient(transport, cfg.Timeout),
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		logger:  logger,
	}
	if cfg.SessionFile != "" {
		c.cache = NewSessionCache(cfg.SessionFile)
	}
	return c, nil
}

// Login returns an authenticated Session. A cached session for the same
// username is reused when it is still valid; otherwise the credentials are
// exchanged for a new token, which is then cached. Any failure here is
// KindFatal.
func (c *Client) Login(ctx context.Context, creds Credentials) (*Session, error) {
	if c.cache != nil {
		if sess := c.resume(ctx, creds.Username); sess != nil {
			return sess, nil
		}
	}

	if creds.Username == "" || creds.Password == "" {
		return nil, &Error{Op: "login", Kind: KindFatal, Message: "missing credentials"}
	}

	body, err := json.Marshal(map[string]string{
		"username": creds.Username,
		"password": creds.Password,
	})
	if err != nil {
		return nil, &Error{Op: "login", Kind: KindFatal, Err: err}
	}

	var out struct {
		Token  string `json:"token"`
		UserID string `json:"user_id"`
	}
	if err := c.do(ctx, c.writes, http.MethodPost, "/api/v1/accounts/login", "", body, "login", &out); err != nil {
		return nil, asFatal(err)
	}
	if out.Token == "" {
		return nil, &Error{Op: "login", Kind: KindFatal, Message: "empty session token"}
	}

	c.logger.Info("login successful", "username", creds.Username)

	if c.cache != nil {
		saved := SavedSession{Username: creds.Username, Token: out.Token, UserID: out.UserID, SavedAt: time.Now().UTC()}
		if err := c.cache.Save(saved); err != nil {
			c.logger.Warn("failed to save session", "error", err)
		}
	}

	return &Session{client: c, token: out.Token, userID: out.UserID}, nil
}

func (c *Client) resume(ctx context.Context, username string) *Session {
	saved, err := c.cache.Load()
	if err != nil {
		c.logger.Warn("couldn't load session", "error", err)
		return nil
	}
	if saved == nil || saved.Username != username {
		return nil
	}
	if saved.Expired(time.Now()) {
		c.logger.Info("saved session expired, logging in again")
		return nil
	}

	var me struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, c.reads, http.MethodGet, "/api/v1/accounts/current", saved.Token, nil, "resume", &me); err != nil {
		c.logger.Info("saved session rejected, logging in again", "error", err)
		return nil
	}

	c.logger.Info("session loaded", "username", username)
	return &Session{client: c, token: saved.Token, userID: me.ID}
}

// do performs one rate-limited request and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, hc *http.Client, method, path, token string, body []byte, op string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Op: op, Kind: KindUnknown, Err: err}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return &Error{Op: op, Kind: KindUnknown, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return &Error{Op: op, Kind: KindUnknown, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: op, Kind: KindUnknown, Status: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Message   string `json:"message"`
			ErrorType string `json:"error_type"`
		}
		if jsonErr := json.Unmarshal(raw, &apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return &Error{
			Op:      op,
			Kind:    classify(resp.StatusCode, apiErr.Message, apiErr.ErrorType),
			Status:  resp.StatusCode,
			Message: apiErr.Message,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Op: op, Kind: KindUnknown, Status: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	return nil
}

func asFatal(err error) error {
	if se, ok := err.(*Error); ok {
		cp := *se
		cp.Kind = KindFatal
		return &cp
	}
	return &Error{Op: "login", Kind: KindFatal, Err: err}
}

// Session is an authenticated handle on the platform. It implements Graph.
// Create one per run with Client.Login and Close it when the run ends.
type Session struct {
	client *Client
	token  string
	userID string
	closed bool
}

var _ Graph = (*Session)(nil)

// UserID returns the id of the authenticated account, when known.
func (s *Session) UserID() string { return s.userID }

// Close releases the session. Further calls fail with KindFatal.
func (s *Session) Close() error {
	s.closed = true
	return nil
}

func (s *Session) get(ctx context.Context, path, op string, out any) error {
	if s.closed {
		return &Error{Op: op, Kind: KindFatal, Message: "session closed"}
	}
	return s.client.do(ctx, s.client.reads, http.MethodGet, path, s.token, nil, op, out)
}

// wireProfile mirrors the platform's user payload. Every attribute may be
// absent; toModel applies the documented defaults once, here.
type wireProfile struct {
	ID            string  `json:"id"`
	Username      *string `json:"username"`
	IsPrivate     *bool   `json:"is_private"`
	FollowerCount *int    `json:"follower_count"`
	MediaCount    *int    `json:"media_count"`
	Biography     *string `json:"biography"`
}

func (w wireProfile) toModel(op string) (models.Profile, error) {
	if w.ID == "" {
		return models.Profile{}, &Error{Op: op, Kind: KindUnknown, Message: "profile without id"}
	}
	p := models.Profile{ID: w.ID}
	if w.Username != nil {
		p.Handle = *w.Username
	}
	if w.IsPrivate != nil {
		p.IsPrivate = *w.IsPrivate
	}
	if w.FollowerCount != nil {
		p.FollowerCount = *w.FollowerCount
	}
	if w.MediaCount != nil {
		p.MediaCount = *w.MediaCount
	}
	if w.Biography != nil {
		p.Biography = *w.Biography
	}
	return p, nil
}

// ResolveID implements Graph.
func (s *Session) ResolveID(ctx context.Context, handle string) (string, error) {
	p, err := s.FetchProfileByHandle(ctx, handle)
	if err != nil {
		if se, ok := err.(*Error); ok {
			se.Op = "resolve_id"
		}
		return "", err
	}
	return p.ID, nil
}

// FetchProfile implements Graph.
func (s *Session) FetchProfile(ctx context.Context, id string) (models.Profile, error) {
	var w wireProfile
	if err := s.get(ctx, "/api/v1/users/"+url.PathEscape(id), "fetch_profile", &w); err != nil {
		return models.Profile{}, err
	}
	return w.toModel("fetch_profile")
}

// FetchProfileByHandle implements Graph.
func (s *Session) FetchProfileByHandle(ctx context.Context, handle string) (models.Profile, error) {
	var w wireProfile
	path := "/api/v1/users/by-handle/" + url.PathEscape(strings.TrimPrefix(handle, "@"))
	if err := s.get(ctx, path, "fetch_profile", &w); err != nil {
		return models.Profile{}, err
	}
	return w.toModel("fetch_profile")
}

// ListFollowing implements Graph.
func (s *Session) ListFollowing(ctx context.Context, id string, limit int) ([]models.FollowingUser, error) {
	var out struct {
		Users []wireProfile `json:"users"`
	}
	path := "/api/v1/users/" + url.PathEscape(id) + "/following?limit=" + strconv.Itoa(limit)
	if err := s.get(ctx, path, "list_following", &out); err != nil {
		return nil, err
	}

	users := make([]models.FollowingUser, 0, len(out.Users))
	for _, w := range out.Users {
		p, err := w.toModel("list_following")
		if err != nil {
			s.client.logger.Debug("dropping malformed following entry", "error", err)
			continue
		}
		users = append(users, models.FollowingUser{ID: p.ID, Handle: p.Handle, IsPrivate: p.IsPrivate})
		if limit > 0 && len(users) == limit {
			break
		}
	}
	return users, nil
}

type wireMedia struct {
	ID           string       `json:"id"`
	User         *wireProfile `json:"user"`
	LikeCount    *int         `json:"like_count"`
	CommentCount *int         `json:"comment_count"`
	CaptionText  *string      `json:"caption_text"`
}

// ListHashtagTopMedia implements Graph.
func (s *Session) ListHashtagTopMedia(ctx context.Context, tag string, limit int) ([]models.HashtagMedia, error) {
	var out struct {
		Items []wireMedia `json:"items"`
	}
	path := "/api/v1/tags/" + url.PathEscape(strings.TrimPrefix(tag, "#")) + "/top?limit=" + strconv.Itoa(limit)
	if err := s.get(ctx, path, "list_hashtag_top_media", &out); err != nil {
		return nil, err
	}

	media := make([]models.HashtagMedia, 0, len(out.Items))
	for _, w := range out.Items {
		m := models.HashtagMedia{ID: w.ID}
		if w.User != nil {
			m.AuthorID = w.User.ID
			if w.User.Username != nil {
				m.AuthorHandle = *w.User.Username
			}
		}
		if w.LikeCount != nil {
			m.LikeCount = *w.LikeCount
		}
		if w.CommentCount != nil {
			m.CommentCount = *w.CommentCount
		}
		if w.CaptionText != nil {
			m.CaptionText = *w.CaptionText
		}
		media = append(media, m)
		if limit > 0 && len(media) == limit {
			break
		}
	}
	return media, nil
}

// Follow implements Graph.
func (s *Session) Follow(ctx context.Context, id string) error {
	if s.closed {
		return &Error{Op: "follow", Kind: KindFatal, Message: "session closed"}
	}
	var out struct {
		Status string `json:"status"`
	}
	path := "/api/v1/users/" + url.PathEscape(id) + "/follow"
	if err := s.client.do(ctx, s.client.writes, http.MethodPost, path, s.token, []byte("{}"), "follow", &out); err != nil {
		return err
	}
	if out.Status != "" && out.Status != "ok" {
		return &Error{Op: "follow", Kind: classify(http.StatusOK, out.Status, ""), Message: out.Status}
	}
	return nil
}

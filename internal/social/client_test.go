package social

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/STRATINT/followbot/internal/logging"
)

func newTestClient(t *testing.T, srv *httptest.Server, sessionFile string) *Client {
	t.Helper()
	c, err := NewClient(ClientConfig{
		BaseURL:           srv.URL,
		Timeout:           2 * time.Second,
		RequestsPerMinute: 60000,
		MaxRetries:        0,
		SessionFile:       sessionFile,
	}, logging.Discard())
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		message   string
		errorType string
		want      Kind
	}{
		{"feedback", http.StatusBadRequest, "feedback_required", "", KindSoftBlock},
		{"feedback error type", http.StatusBadRequest, "action blocked", "feedback_required", KindSoftBlock},
		{"429", http.StatusTooManyRequests, "", "", KindRateLimited},
		{"too many requests text", http.StatusBadRequest, "Too many requests", "", KindRateLimited},
		{"wait", http.StatusBadRequest, "Please wait a few minutes before you try again.", "", KindTransient},
		{"challenge", http.StatusBadRequest, "challenge_required", "", KindFatal},
		{"unauthorized", http.StatusUnauthorized, "", "", KindFatal},
		{"not found", http.StatusNotFound, "", "", KindNotFound},
		{"server error", http.StatusBadGateway, "upstream", "", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.status, tt.message, tt.errorType); got != tt.want {
				t.Errorf("classify(%d, %q, %q) = %v, want %v", tt.status, tt.message, tt.errorType, got, tt.want)
			}
		})
	}
}

func TestLoginAndFetchProfileAppliesDefaults(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/accounts/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"token": "tok", "user_id": "me"})
	})
	mux.HandleFunc("GET /api/v1/users/by-handle/{handle}", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "login_required"})
			return
		}
		// follower_count and biography deliberately absent
		writeJSON(w, http.StatusOK, map[string]any{"id": "42", "username": r.PathValue("handle"), "media_count": 7})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv, "")
	sess, err := c.Login(context.Background(), Credentials{Username: "bot", Password: "pw"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	defer sess.Close()

	p, err := sess.FetchProfileByHandle(context.Background(), "alice")
	if err != nil {
		t.Fatalf("FetchProfileByHandle returned error: %v", err)
	}
	if p.ID != "42" || p.Handle != "alice" || p.MediaCount != 7 {
		t.Errorf("unexpected profile: %+v", p)
	}
	if p.FollowerCount != 0 || p.Biography != "" || p.IsPrivate {
		t.Errorf("expected zero defaults for absent fields, got %+v", p)
	}

	id, err := sess.ResolveID(context.Background(), "@alice")
	if err != nil || id != "42" {
		t.Fatalf("ResolveID = %q, %v", id, err)
	}
}

func TestLoginFailureIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "The password you entered is incorrect.", "error_type": "bad_password"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "")
	_, err := c.Login(context.Background(), Credentials{Username: "bot", Password: "wrong"})
	if KindOf(err) != KindFatal {
		t.Fatalf("expected fatal login error, got %v", err)
	}

	_, err = c.Login(context.Background(), Credentials{Username: "bot"})
	if KindOf(err) != KindFatal {
		t.Fatalf("expected fatal error for missing password, got %v", err)
	}
}

func TestLoginReusesCachedSession(t *testing.T) {
	var logins atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/accounts/login", func(w http.ResponseWriter, r *http.Request) {
		logins.Add(1)
		writeJSON(w, http.StatusOK, map[string]string{"token": "tok", "user_id": "me"})
	})
	mux.HandleFunc("GET /api/v1/accounts/current", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"id": "me"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sessionFile := filepath.Join(t.TempDir(), "session.json")
	creds := Credentials{Username: "bot", Password: "pw"}

	c := newTestClient(t, srv, sessionFile)
	if _, err := c.Login(context.Background(), creds); err != nil {
		t.Fatalf("first Login returned error: %v", err)
	}
	sess, err := newTestClient(t, srv, sessionFile).Login(context.Background(), creds)
	if err != nil {
		t.Fatalf("second Login returned error: %v", err)
	}

	if logins.Load() != 1 {
		t.Errorf("expected one password login, got %d", logins.Load())
	}
	if sess.UserID() != "me" {
		t.Errorf("expected resumed user id, got %q", sess.UserID())
	}
}

func TestFollowClassifiesFailures(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/accounts/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"token": "tok"})
	})
	mux.HandleFunc("POST /api/v1/users/{id}/follow", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.PathValue("id") {
		case "ok":
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		case "feedback":
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "feedback_required", "status": "fail"})
		case "limited":
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"message": "Too many requests"})
		case "wait":
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Please wait a few minutes before you try again."})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sess, err := newTestClient(t, srv, "").Login(context.Background(), Credentials{Username: "bot", Password: "pw"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	tests := map[string]Kind{
		"feedback": KindSoftBlock,
		"limited":  KindRateLimited,
		"wait":     KindTransient,
		"boom":     KindUnknown,
	}
	if err := sess.Follow(context.Background(), "ok"); err != nil {
		t.Fatalf("Follow(ok) returned error: %v", err)
	}
	for id, want := range tests {
		before := hits.Load()
		err := sess.Follow(context.Background(), id)
		if got := KindOf(err); got != want {
			t.Errorf("Follow(%s) kind = %v, want %v (err=%v)", id, got, want, err)
		}
		if hits.Load()-before != 1 {
			t.Errorf("Follow(%s) was sent %d times, want exactly once", id, hits.Load()-before)
		}
	}

	sess.Close()
	if err := sess.Follow(context.Background(), "ok"); KindOf(err) != KindFatal {
		t.Errorf("expected fatal error on closed session, got %v", err)
	}
}

func TestListEndpointsRespectLimit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/accounts/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"token": "tok"})
	})
	mux.HandleFunc("GET /api/v1/users/{id}/following", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"users": []map[string]any{
			{"id": "1", "username": "a", "is_private": true},
			{"id": "2", "username": "b"},
			{"username": "no-id"},
			{"id": "3", "username": "c"},
		}})
	})
	mux.HandleFunc("GET /api/v1/tags/{tag}/top", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"items": []map[string]any{
			{"id": "m1", "user": map[string]any{"id": "9", "username": "artist"}, "like_count": 80, "caption_text": "sunset study"},
			{"id": "m2"},
		}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sess, err := newTestClient(t, srv, "").Login(context.Background(), Credentials{Username: "bot", Password: "pw"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	users, err := sess.ListFollowing(context.Background(), "seed", 2)
	if err != nil {
		t.Fatalf("ListFollowing returned error: %v", err)
	}
	if len(users) != 2 || users[0].Handle != "a" || !users[0].IsPrivate || users[1].Handle != "b" {
		t.Errorf("unexpected following list: %+v", users)
	}

	media, err := sess.ListHashtagTopMedia(context.Background(), "#art", 10)
	if err != nil {
		t.Fatalf("ListHashtagTopMedia returned error: %v", err)
	}
	if len(media) != 2 {
		t.Fatalf("expected 2 media, got %d", len(media))
	}
	if media[0].AuthorHandle != "artist" || media[0].LikeCount != 80 || media[0].CommentCount != 0 {
		t.Errorf("unexpected first media: %+v", media[0])
	}
	if media[1].AuthorHandle != "" || media[1].CaptionText != "" {
		t.Errorf("expected empty defaults on second media: %+v", media[1])
	}
}

func TestSavedSessionExpired(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	sign := func(exp time.Time) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}
		return tok
	}

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"expired jwt", sign(now.Add(-time.Minute)), true},
		{"live jwt", sign(now.Add(time.Hour)), false},
		{"opaque token", "not-a-jwt", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (SavedSession{Token: tt.token}).Expired(now); got != tt.want {
				t.Errorf("Expired() = %t, want %t", got, tt.want)
			}
		})
	}
}

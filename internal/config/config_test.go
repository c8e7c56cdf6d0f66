package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"log/slog"
)

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Logging.Level != slog.LevelInfo {
		t.Errorf("expected default log level %v, got %v", slog.LevelInfo, cfg.Logging.Level)
	}
	if cfg.Logging.Format != defaultLogFormat {
		t.Errorf("expected default log format %q, got %q", defaultLogFormat, cfg.Logging.Format)
	}
	if cfg.Logging.ActivityLogPath != defaultActivityLogPath {
		t.Errorf("expected default activity log %q, got %q", defaultActivityLogPath, cfg.Logging.ActivityLogPath)
	}
	if cfg.State.Dir != defaultStateDir {
		t.Errorf("expected default state dir %q, got %q", defaultStateDir, cfg.State.Dir)
	}
	if cfg.Follow.DailyLimit != defaultDailyLimit {
		t.Errorf("expected default daily limit %d, got %d", defaultDailyLimit, cfg.Follow.DailyLimit)
	}
	if cfg.Follow.MaxFeedbackErrors != defaultMaxFeedbackErrors {
		t.Errorf("expected default max feedback errors %d, got %d", defaultMaxFeedbackErrors, cfg.Follow.MaxFeedbackErrors)
	}
	if cfg.Follow.RateLimitCooldown != defaultRateLimitCooldown {
		t.Errorf("expected default rate limit cooldown %v, got %v", defaultRateLimitCooldown, cfg.Follow.RateLimitCooldown)
	}
	if cfg.Follow.CheckpointEvery != 0 {
		t.Errorf("expected checkpointing disabled by default, got %d", cfg.Follow.CheckpointEvery)
	}
	if cfg.Discovery.Filters.MinFollowers != defaultMinFollowers {
		t.Errorf("expected default min followers %d, got %d", defaultMinFollowers, cfg.Discovery.Filters.MinFollowers)
	}
	if cfg.Social.Timeout != defaultSocialTimeout {
		t.Errorf("expected default social timeout %v, got %v", defaultSocialTimeout, cfg.Social.Timeout)
	}
	if len(cfg.Discovery.Seeds) != 0 || len(cfg.Discovery.Hashtags) != 0 {
		t.Errorf("expected no seeds or hashtags by default, got %v %v", cfg.Discovery.Seeds, cfg.Discovery.Hashtags)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	clearConfigEnv(t)

	overrides := map[string]string{
		"LOG_LEVEL":                "debug",
		"LOG_FORMAT":               "text",
		"STATE_DIR":                "/var/lib/followbot",
		"FOLLOW_DAILY_LIMIT":       "10",
		"FOLLOW_MIN_DELAY_SECONDS": "1",
		"FOLLOW_MAX_DELAY_SECONDS": "2",
		"DISCOVERY_SEEDS":          "nasa, beeple_crap,,obeygiant",
		"DISCOVERY_HASHTAGS":       "digitalart",
		"DISCOVERY_MIN_LIKES":      "7",
		"SOCIAL_TIMEOUT_SECONDS":   "12",
	}
	for key, value := range overrides {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Logging.Level != slog.LevelDebug {
		t.Errorf("expected log level %v, got %v", slog.LevelDebug, cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected log format text, got %q", cfg.Logging.Format)
	}
	if cfg.State.Dir != "/var/lib/followbot" {
		t.Errorf("expected overridden state dir, got %q", cfg.State.Dir)
	}
	if cfg.Follow.DailyLimit != 10 {
		t.Errorf("expected daily limit 10, got %d", cfg.Follow.DailyLimit)
	}
	if cfg.Follow.MinDelay != time.Second || cfg.Follow.MaxDelay != 2*time.Second {
		t.Errorf("unexpected follow delay window %v-%v", cfg.Follow.MinDelay, cfg.Follow.MaxDelay)
	}
	if want := []string{"nasa", "beeple_crap", "obeygiant"}; !reflect.DeepEqual(cfg.Discovery.Seeds, want) {
		t.Errorf("expected seeds %v, got %v", want, cfg.Discovery.Seeds)
	}
	if cfg.Discovery.Filters.MinLikes != 7 {
		t.Errorf("expected min likes 7, got %d", cfg.Discovery.Filters.MinLikes)
	}
	if cfg.Social.Timeout != 12*time.Second {
		t.Errorf("expected social timeout 12s, got %v", cfg.Social.Timeout)
	}
}

func TestLoadWithInvalidValues(t *testing.T) {
	tests := map[string]string{
		"FOLLOW_MIN_DELAY_SECONDS":   "-1",
		"FOLLOW_DAILY_LIMIT":         "abc",
		"FOLLOW_MAX_FEEDBACK_ERRORS": "0",
		"SOCIAL_TIMEOUT_SECONDS":     "3.5",
		"LOG_LEVEL":                  "verbose",
		"LOG_FORMAT":                 "xml",
		"DISCOVERY_PROFILE":          "/does/not/exist.yaml",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv(key, value)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error when %s=%q", key, value)
			}
		})
	}
}

func TestLoadRejectsInvertedWindow(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("FOLLOW_STRATEGIC_MIN_SECONDS", "500")
	t.Setenv("FOLLOW_STRATEGIC_MAX_SECONDS", "100")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for strategic min above max")
	}
}

func TestLoadAppliesTargetingProfile(t *testing.T) {
	clearConfigEnv(t)

	path := filepath.Join(t.TempDir(), "targeting.yaml")
	profile := `
seeds: [nasa, pubity]
hashtags: [artlife, loneliness]
limits:
  following: 40
filters:
  min_followers: 250
  min_caption_length: 0
`
	if err := os.WriteFile(path, []byte(profile), 0o644); err != nil {
		t.Fatalf("failed to write profile: %v", err)
	}
	t.Setenv("DISCOVERY_PROFILE", path)
	t.Setenv("DISCOVERY_SEEDS", "ignored")
	t.Setenv("DISCOVERY_MIN_POSTS", "9")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if want := []string{"nasa", "pubity"}; !reflect.DeepEqual(cfg.Discovery.Seeds, want) {
		t.Errorf("expected seeds %v, got %v", want, cfg.Discovery.Seeds)
	}
	if want := []string{"artlife", "loneliness"}; !reflect.DeepEqual(cfg.Discovery.Hashtags, want) {
		t.Errorf("expected hashtags %v, got %v", want, cfg.Discovery.Hashtags)
	}
	if cfg.Discovery.FollowingLimit != 40 {
		t.Errorf("expected following limit 40, got %d", cfg.Discovery.FollowingLimit)
	}
	if cfg.Discovery.HashtagLimit != defaultHashtagLimit {
		t.Errorf("expected hashtag limit untouched, got %d", cfg.Discovery.HashtagLimit)
	}
	if cfg.Discovery.Filters.MinFollowers != 250 {
		t.Errorf("expected min followers 250, got %d", cfg.Discovery.Filters.MinFollowers)
	}
	if cfg.Discovery.Filters.MinCaptionLength != 0 {
		t.Errorf("expected explicit zero caption length, got %d", cfg.Discovery.Filters.MinCaptionLength)
	}
	if cfg.Discovery.Filters.MinPosts != 9 {
		t.Errorf("expected env min posts to survive, got %d", cfg.Discovery.Filters.MinPosts)
	}
}

func TestParseLogLevelAliases(t *testing.T) {
	tests := map[string]slog.Level{
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
	}

	for input, expected := range tests {
		level, err := parseLogLevel(input)
		if err != nil {
			t.Fatalf("parseLogLevel(%q) returned error: %v", input, err)
		}

		if level != expected {
			t.Errorf("parseLogLevel(%q) = %v, want %v", input, level, expected)
		}
	}
}

func TestParseSecondsRejectsInvalidInput(t *testing.T) {
	cases := []string{"-1", "abc"}

	for _, input := range cases {
		if _, err := parseSeconds(input); err == nil {
			t.Fatalf("expected error for input %q", input)
		}
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"LOG_LEVEL",
		"LOG_FORMAT",
		"ACTIVITY_LOG_PATH",
		"STATE_DIR",
		"SOCIAL_API_URL",
		"SOCIAL_USERNAME",
		"SOCIAL_PASSWORD",
		"SOCIAL_SESSION_FILE",
		"SOCIAL_TIMEOUT_SECONDS",
		"SOCIAL_REQUESTS_PER_MINUTE",
		"SOCIAL_MAX_RETRIES",
		"FOLLOW_DAILY_LIMIT",
		"FOLLOW_MAX_FEEDBACK_ERRORS",
		"FOLLOW_MIN_DELAY_SECONDS",
		"FOLLOW_MAX_DELAY_SECONDS",
		"FOLLOW_ERROR_COOLDOWN_SECONDS",
		"FOLLOW_WAIT_COOLDOWN_SECONDS",
		"FOLLOW_RATE_LIMIT_COOLDOWN_SECONDS",
		"FOLLOW_STRATEGIC_EVERY",
		"FOLLOW_STRATEGIC_MIN_SECONDS",
		"FOLLOW_STRATEGIC_MAX_SECONDS",
		"FOLLOW_PROGRESS_EVERY",
		"FOLLOW_CHECKPOINT_EVERY",
		"DISCOVERY_PROFILE",
		"DISCOVERY_SEEDS",
		"DISCOVERY_HASHTAGS",
		"DISCOVERY_FOLLOWING_LIMIT",
		"DISCOVERY_HASHTAG_LIMIT",
		"DISCOVERY_MIN_FOLLOWERS",
		"DISCOVERY_MIN_POSTS",
		"DISCOVERY_MIN_LIKES",
		"DISCOVERY_MIN_COMMENTS",
		"DISCOVERY_MIN_CAPTION_LENGTH",
		"DISCOVERY_REQUEST_DELAY_MIN_SECONDS",
		"DISCOVERY_REQUEST_DELAY_MAX_SECONDS",
		"DISCOVERY_SOURCE_PAUSE_MIN_SECONDS",
		"DISCOVERY_SOURCE_PAUSE_MAX_SECONDS",
		"DISCOVERY_ERROR_COOLDOWN_SECONDS",
		"METRICS_TEXTFILE",
	}

	for _, key := range keys {
		t.Setenv(key, "")
	}
}

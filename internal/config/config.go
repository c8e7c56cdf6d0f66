package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents runtime configuration derived from environment variables.
type Config struct {
	Logging   LoggingConfig
	State     StateConfig
	Social    SocialConfig
	Follow    FollowConfig
	Discovery DiscoveryConfig
	Metrics   MetricsConfig
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
	// ActivityLogPath is the append-only human readable log. Empty disables it.
	ActivityLogPath string
}

// StateConfig locates the persisted records.
type StateConfig struct {
	Dir string
}

// SocialConfig holds remote service access parameters.
type SocialConfig struct {
	BaseURL           string
	Username          string
	Password          string
	SessionFile       string
	Timeout           time.Duration
	RequestsPerMinute int
	MaxRetries        int
}

// FollowConfig tunes the follow executor.
type FollowConfig struct {
	DailyLimit        int
	MaxFeedbackErrors int
	MinDelay          time.Duration
	MaxDelay          time.Duration
	ErrorCooldown     time.Duration
	WaitCooldown      time.Duration
	RateLimitCooldown time.Duration
	StrategicEvery    int
	StrategicMin      time.Duration
	StrategicMax      time.Duration
	ProgressEvery     int
	CheckpointEvery   int
}

// DiscoveryConfig tunes target discovery.
type DiscoveryConfig struct {
	ProfilePath     string
	Seeds           []string
	Hashtags        []string
	FollowingLimit  int
	HashtagLimit    int
	Filters         FilterConfig
	RequestDelayMin time.Duration
	RequestDelayMax time.Duration
	SourcePauseMin  time.Duration
	SourcePauseMax  time.Duration
	ErrorCooldown   time.Duration
}

// FilterConfig holds the engagement thresholds a candidate must meet.
type FilterConfig struct {
	MinFollowers     int `yaml:"min_followers"`
	MinPosts         int `yaml:"min_posts"`
	MinLikes         int `yaml:"min_likes"`
	MinComments      int `yaml:"min_comments"`
	MinCaptionLength int `yaml:"min_caption_length"`
}

// MetricsConfig controls Prometheus export.
type MetricsConfig struct {
	TextfilePath string
}

const (
	defaultLogFormat       = "json"
	defaultActivityLogPath = "bot.log"
	defaultStateDir        = "."
	defaultSessionFile     = "session.json"

	defaultSocialTimeout     = 30 * time.Second
	defaultRequestsPerMinute = 20
	defaultMaxRetries        = 2

	defaultDailyLimit        = 25
	defaultMaxFeedbackErrors = 2
	defaultFollowMinDelay    = 45 * time.Second
	defaultFollowMaxDelay    = 120 * time.Second
	defaultErrorCooldown     = 300 * time.Second
	defaultWaitCooldown      = 600 * time.Second
	defaultRateLimitCooldown = 900 * time.Second
	defaultStrategicEvery    = 8
	defaultStrategicMin      = 120 * time.Second
	defaultStrategicMax      = 300 * time.Second
	defaultProgressEvery     = 5

	defaultFollowingLimit    = 100
	defaultHashtagLimit      = 100
	defaultMinFollowers      = 100
	defaultMinPosts          = 3
	defaultMinLikes          = 50
	defaultMinComments       = 5
	defaultMinCaptionLength  = 10
	defaultRequestDelayMin   = 5 * time.Second
	defaultRequestDelayMax   = 10 * time.Second
	defaultSourcePauseMin    = 15 * time.Second
	defaultSourcePauseMax    = 30 * time.Second
	defaultDiscoveryCooldown = 60 * time.Second
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided. Invalid values are reported as errors.
func Load() (Config, error) {
	cfg := Config{
		Logging: LoggingConfig{
			Level:           slog.LevelInfo,
			Format:          defaultLogFormat,
			ActivityLogPath: getEnv("ACTIVITY_LOG_PATH", defaultActivityLogPath),
		},
		State: StateConfig{
			Dir: getEnv("STATE_DIR", defaultStateDir),
		},
		Social: SocialConfig{
			BaseURL:           os.Getenv("SOCIAL_API_URL"),
			Username:          os.Getenv("SOCIAL_USERNAME"),
			Password:          os.Getenv("SOCIAL_PASSWORD"),
			SessionFile:       getEnv("SOCIAL_SESSION_FILE", defaultSessionFile),
			Timeout:           defaultSocialTimeout,
			RequestsPerMinute: defaultRequestsPerMinute,
			MaxRetries:        defaultMaxRetries,
		},
		Follow: FollowConfig{
			DailyLimit:        defaultDailyLimit,
			MaxFeedbackErrors: defaultMaxFeedbackErrors,
			MinDelay:          defaultFollowMinDelay,
			MaxDelay:          defaultFollowMaxDelay,
			ErrorCooldown:     defaultErrorCooldown,
			WaitCooldown:      defaultWaitCooldown,
			RateLimitCooldown: defaultRateLimitCooldown,
			StrategicEvery:    defaultStrategicEvery,
			StrategicMin:      defaultStrategicMin,
			StrategicMax:      defaultStrategicMax,
			ProgressEvery:     defaultProgressEvery,
		},
		Discovery: DiscoveryConfig{
			ProfilePath:    os.Getenv("DISCOVERY_PROFILE"),
			Seeds:          splitList(os.Getenv("DISCOVERY_SEEDS")),
			Hashtags:       splitList(os.Getenv("DISCOVERY_HASHTAGS")),
			FollowingLimit: defaultFollowingLimit,
			HashtagLimit:   defaultHashtagLimit,
			Filters: FilterConfig{
				MinFollowers:     defaultMinFollowers,
				MinPosts:         defaultMinPosts,
				MinLikes:         defaultMinLikes,
				MinComments:      defaultMinComments,
				MinCaptionLength: defaultMinCaptionLength,
			},
			RequestDelayMin: defaultRequestDelayMin,
			RequestDelayMax: defaultRequestDelayMax,
			SourcePauseMin:  defaultSourcePauseMin,
			SourcePauseMax:  defaultSourcePauseMax,
			ErrorCooldown:   defaultDiscoveryCooldown,
		},
		Metrics: MetricsConfig{
			TextfilePath: os.Getenv("METRICS_TEXTFILE"),
		},
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SOCIAL_TIMEOUT_SECONDS", &cfg.Social.Timeout},
		{"FOLLOW_MIN_DELAY_SECONDS", &cfg.Follow.MinDelay},
		{"FOLLOW_MAX_DELAY_SECONDS", &cfg.Follow.MaxDelay},
		{"FOLLOW_ERROR_COOLDOWN_SECONDS", &cfg.Follow.ErrorCooldown},
		{"FOLLOW_WAIT_COOLDOWN_SECONDS", &cfg.Follow.WaitCooldown},
		{"FOLLOW_RATE_LIMIT_COOLDOWN_SECONDS", &cfg.Follow.RateLimitCooldown},
		{"FOLLOW_STRATEGIC_MIN_SECONDS", &cfg.Follow.StrategicMin},
		{"FOLLOW_STRATEGIC_MAX_SECONDS", &cfg.Follow.StrategicMax},
		{"DISCOVERY_REQUEST_DELAY_MIN_SECONDS", &cfg.Discovery.RequestDelayMin},
		{"DISCOVERY_REQUEST_DELAY_MAX_SECONDS", &cfg.Discovery.RequestDelayMax},
		{"DISCOVERY_SOURCE_PAUSE_MIN_SECONDS", &cfg.Discovery.SourcePauseMin},
		{"DISCOVERY_SOURCE_PAUSE_MAX_SECONDS", &cfg.Discovery.SourcePauseMax},
		{"DISCOVERY_ERROR_COOLDOWN_SECONDS", &cfg.Discovery.ErrorCooldown},
	}
	for _, d := range durations {
		if v := os.Getenv(d.key); v != "" {
			parsed, err := parseSeconds(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", d.key, err)
			}
			*d.dst = parsed
		}
	}

	counts := []struct {
		key string
		dst *int
	}{
		{"SOCIAL_REQUESTS_PER_MINUTE", &cfg.Social.RequestsPerMinute},
		{"SOCIAL_MAX_RETRIES", &cfg.Social.MaxRetries},
		{"FOLLOW_DAILY_LIMIT", &cfg.Follow.DailyLimit},
		{"FOLLOW_MAX_FEEDBACK_ERRORS", &cfg.Follow.MaxFeedbackErrors},
		{"FOLLOW_STRATEGIC_EVERY", &cfg.Follow.StrategicEvery},
		{"FOLLOW_PROGRESS_EVERY", &cfg.Follow.ProgressEvery},
		{"FOLLOW_CHECKPOINT_EVERY", &cfg.Follow.CheckpointEvery},
		{"DISCOVERY_FOLLOWING_LIMIT", &cfg.Discovery.FollowingLimit},
		{"DISCOVERY_HASHTAG_LIMIT", &cfg.Discovery.HashtagLimit},
		{"DISCOVERY_MIN_FOLLOWERS", &cfg.Discovery.Filters.MinFollowers},
		{"DISCOVERY_MIN_POSTS", &cfg.Discovery.Filters.MinPosts},
		{"DISCOVERY_MIN_LIKES", &cfg.Discovery.Filters.MinLikes},
		{"DISCOVERY_MIN_COMMENTS", &cfg.Discovery.Filters.MinComments},
		{"DISCOVERY_MIN_CAPTION_LENGTH", &cfg.Discovery.Filters.MinCaptionLength},
	}
	for _, c := range counts {
		if v := os.Getenv(c.key); v != "" {
			parsed, err := parseCount(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", c.key, err)
			}
			*c.dst = parsed
		}
	}

	if cfg.Discovery.ProfilePath != "" {
		if err := applyProfile(&cfg.Discovery, cfg.Discovery.ProfilePath); err != nil {
			return Config{}, fmt.Errorf("invalid DISCOVERY_PROFILE: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	windows := []struct {
		name     string
		min, max time.Duration
	}{
		{"FOLLOW_*_DELAY_SECONDS", c.Follow.MinDelay, c.Follow.MaxDelay},
		{"FOLLOW_STRATEGIC_*_SECONDS", c.Follow.StrategicMin, c.Follow.StrategicMax},
		{"DISCOVERY_REQUEST_DELAY_*_SECONDS", c.Discovery.RequestDelayMin, c.Discovery.RequestDelayMax},
		{"DISCOVERY_SOURCE_PAUSE_*_SECONDS", c.Discovery.SourcePauseMin, c.Discovery.SourcePauseMax},
	}
	for _, w := range windows {
		if w.min > w.max {
			return fmt.Errorf("invalid %s: min %v exceeds max %v", w.name, w.min, w.max)
		}
	}
	if c.Follow.MaxFeedbackErrors < 1 {
		return fmt.Errorf("invalid FOLLOW_MAX_FEEDBACK_ERRORS: must be at least 1")
	}
	if c.Social.RequestsPerMinute < 1 {
		return fmt.Errorf("invalid SOCIAL_REQUESTS_PER_MINUTE: must be at least 1")
	}
	return nil
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func parseCount(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}

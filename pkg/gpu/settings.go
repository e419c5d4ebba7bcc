package gpu

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Routing policy modes.
const (
	ModeServerless        = "serverless"
	ModeDedicated         = "dedicated"
	ModeHybrid            = "hybrid"
	ModeServerlessPrimary = "serverless-primary"
)

const (
	settingsCacheTTL       = 30 * time.Second
	defaultSubmitTimeout   = 5 * time.Second
	settingsKey            = "gpu:routing"
	settingsFieldMode      = "mode"
	settingsFieldDedicated = "dedicated_url"
	settingsFieldTimeout   = "submit_timeout_ms"
)

// RoutingSettings is the active routing policy.
type RoutingSettings struct {
	Mode          string
	DedicatedURL  string
	SubmitTimeout time.Duration
}

// DefaultSettings is the fail-open policy used when the settings source is
// unreachable: everything goes to the known-reliable serverless queue.
func DefaultSettings() RoutingSettings {
	return RoutingSettings{
		Mode:          ModeServerless,
		SubmitTimeout: defaultSubmitTimeout,
	}
}

// SettingsSource supplies the current routing policy.
type SettingsSource interface {
	Current(ctx context.Context) RoutingSettings
}

// StaticSettings is a fixed policy, used for single-mode deployments and tests.
type StaticSettings struct {
	Settings RoutingSettings
}

func (s StaticSettings) Current(_ context.Context) RoutingSettings {
	if s.Settings.SubmitTimeout <= 0 {
		s.Settings.SubmitTimeout = defaultSubmitTimeout
	}

	return s.Settings
}

// RedisSettings reads the routing policy from a redis hash through a TTL
// cache. Staleness up to the TTL is acceptable; there is no invalidation
// coordination across processes.
type RedisSettings struct {
	logger *slog.Logger
	client redis.UniversalClient

	mu        sync.Mutex
	cached    RoutingSettings
	fetchedAt time.Time
}

func NewRedisSettings(logger *slog.Logger, client redis.UniversalClient) *RedisSettings {
	return &RedisSettings{
		logger: logger.With("module", "gpu_settings"),
		client: client,
	}
}

// Current returns the cached policy, refreshing it after the TTL. A failed
// read falls back to the static defaults.
func (s *RedisSettings) Current(ctx context.Context) RoutingSettings {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Since(s.fetchedAt) < settingsCacheTTL && !s.fetchedAt.IsZero() {
		return s.cached
	}

	fields, err := s.client.HGetAll(ctx, settingsKey).Result()
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to read routing settings, using defaults", "error", err)

		return DefaultSettings()
	}

	settings := DefaultSettings()

	if mode, ok := fields[settingsFieldMode]; ok && mode != "" {
		settings.Mode = mode
	}

	if url, ok := fields[settingsFieldDedicated]; ok {
		settings.DedicatedURL = url
	}

	if raw, ok := fields[settingsFieldTimeout]; ok {
		if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
			settings.SubmitTimeout = time.Duration(ms) * time.Millisecond
		}
	}

	s.cached = settings
	s.fetchedAt = time.Now()

	return settings
}

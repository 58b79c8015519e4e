package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/paysplit/internal/chat"
	"github.com/Veraticus/paysplit/internal/common"
	"github.com/Veraticus/paysplit/internal/remote"
	"github.com/Veraticus/paysplit/internal/server"
	"github.com/Veraticus/paysplit/internal/storage"
	"github.com/spf13/viper"
)

// Config is the resolved application configuration.
type Config struct {
	Remote  RemoteConfig
	Cache   CacheConfig
	Server  ServerConfig
	Chat    ChatConfig
	Logging LoggingConfig
	Theme   string
}

// RemoteConfig configures the settings service client.
type RemoteConfig struct {
	URL     string
	Timeout time.Duration
	Enabled bool
}

// CacheConfig configures the local settings cache.
type CacheConfig struct {
	Backend        string
	Path           string
	RedisAddr      string
	RedisNamespace string
}

// ServerConfig configures `paysplit serve`.
type ServerConfig struct {
	Addr      string
	Database  string
	RateLimit float64
	Burst     int
}

// ChatConfig configures the chat command and the server's assistant.
type ChatConfig struct {
	URL      string
	Provider string
	APIKey   string
	Model    string
}

// LoggingConfig configures slog.
type LoggingConfig struct {
	Level  string
	Format string
}

// DataDir is where paysplit keeps its databases by default.
func DataDir() string {
	return ExpandPath("~/.local/share/paysplit")
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("remote.url", "http://localhost:5000")
	v.SetDefault("remote.timeout", 10*time.Second)
	v.SetDefault("remote.enabled", true)
	v.SetDefault("cache.backend", storage.BackendSQLite)
	v.SetDefault("cache.path", filepath.Join(DataDir(), "cache.db"))
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_namespace", storage.DefaultRedisNamespace)
	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.database", filepath.Join(DataDir(), "server.db"))
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.burst", 40)
	v.SetDefault("chat.url", "http://localhost:5000/ai_chat")
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
	v.SetDefault("tui.theme", "default")
}

// Load reads the configuration from v. Paths are expanded, and the chat API
// key falls back to the provider's usual environment variable.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Remote: RemoteConfig{
			URL:     v.GetString("remote.url"),
			Timeout: v.GetDuration("remote.timeout"),
			Enabled: v.GetBool("remote.enabled"),
		},
		Cache: CacheConfig{
			Backend:        strings.ToLower(v.GetString("cache.backend")),
			Path:           ExpandPath(v.GetString("cache.path")),
			RedisAddr:      v.GetString("cache.redis_addr"),
			RedisNamespace: v.GetString("cache.redis_namespace"),
		},
		Server: ServerConfig{
			Addr:      v.GetString("server.addr"),
			Database:  ExpandPath(v.GetString("server.database")),
			RateLimit: v.GetFloat64("server.rate_limit"),
			Burst:     v.GetInt("server.burst"),
		},
		Chat: ChatConfig{
			URL:      v.GetString("chat.url"),
			Provider: strings.ToLower(v.GetString("chat.provider")),
			APIKey:   v.GetString("chat.api_key"),
			Model:    v.GetString("chat.model"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Theme: v.GetString("tui.theme"),
	}

	if cfg.Chat.APIKey == "" {
		switch cfg.Chat.Provider {
		case chat.ProviderAnthropic:
			cfg.Chat.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case chat.ProviderOpenAI:
			cfg.Chat.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values no component can use.
func (c *Config) Validate() error {
	var errs []error

	switch c.Cache.Backend {
	case storage.BackendSQLite:
		if c.Cache.Path == "" {
			errs = append(errs, fmt.Errorf("%w: cache.path", common.ErrMissingConfig))
		}
	case storage.BackendRedis:
		if c.Cache.RedisAddr == "" {
			errs = append(errs, fmt.Errorf("%w: cache.redis_addr", common.ErrMissingConfig))
		}
	case storage.BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("%w: cache.backend %q", common.ErrInvalidConfig, c.Cache.Backend))
	}

	if c.Remote.Enabled && strings.TrimSpace(c.Remote.URL) == "" {
		errs = append(errs, fmt.Errorf("%w: remote.url", common.ErrMissingConfig))
	}
	if c.Remote.Timeout < 0 {
		errs = append(errs, fmt.Errorf("%w: remote.timeout must not be negative", common.ErrInvalidConfig))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("%w: server.rate_limit must not be negative", common.ErrInvalidConfig))
	}
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: logging.format %q", common.ErrInvalidConfig, c.Logging.Format))
	}
	switch c.Chat.Provider {
	case "", chat.ProviderAnthropic, chat.ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("%w: chat.provider %q", common.ErrInvalidConfig, c.Chat.Provider))
	}

	return errors.Join(errs...)
}

// StorageOptions returns the options for storage.Open.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:        c.Cache.Backend,
		Path:           c.Cache.Path,
		RedisAddr:      c.Cache.RedisAddr,
		RedisNamespace: c.Cache.RedisNamespace,
	}
}

// RemoteClientConfig returns the settings client configuration.
func (c *Config) RemoteClientConfig() remote.Config {
	return remote.Config{
		BaseURL: c.Remote.URL,
		Timeout: c.Remote.Timeout,
		Retry:   common.DefaultRetryOptions(),
	}
}

// HTTPServerConfig returns the server configuration.
func (c *Config) HTTPServerConfig() server.Config {
	return server.Config{
		Addr:      c.Server.Addr,
		RateLimit: c.Server.RateLimit,
		Burst:     c.Server.Burst,
	}
}

// AssistantConfig returns the hosted model configuration. ok is false when
// no provider is configured.
func (c *Config) AssistantConfig() (cfg chat.AssistantConfig, ok bool) {
	if c.Chat.Provider == "" {
		return chat.AssistantConfig{}, false
	}
	return chat.AssistantConfig{
		Provider: c.Chat.Provider,
		APIKey:   c.Chat.APIKey,
		Model:    c.Chat.Model,
	}, true
}

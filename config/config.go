package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override (BUDDY_RANKER_TIMEOUT, ...).
const EnvPrefix = "BUDDY"

// Config holds all configuration for the resolution service
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Ranker    RankerConfig    `mapstructure:"ranker"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	Cache     CacheConfig     `mapstructure:"cache"`
	SiteHints SiteHintsConfig `mapstructure:"site_hints"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Session   SessionConfig   `mapstructure:"session"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Browser   BrowserConfig   `mapstructure:"browser"`
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Address       string        `mapstructure:"address"`
	JWTSecret     string        `mapstructure:"jwt_secret"`
	BodyLimit     string        `mapstructure:"body_limit"`
	MaxCandidates int           `mapstructure:"max_candidates"`
	CORSOrigins   []string      `mapstructure:"cors_origins"`
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
}

func (s ServerConfig) Validate() error {
	if strings.TrimSpace(s.Address) == "" {
		return fmt.Errorf("server.address required")
	}
	if s.MaxCandidates <= 0 {
		return fmt.Errorf("server.max_candidates must be > 0")
	}
	return nil
}

// RankerConfig bounds the remote ranking call.
type RankerConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxCandidates int           `mapstructure:"max_candidates"`
}

func (r RankerConfig) Validate() error {
	if r.Timeout <= 0 {
		return fmt.Errorf("ranker.timeout must be > 0")
	}
	if r.MaxCandidates <= 0 {
		return fmt.Errorf("ranker.max_candidates must be > 0")
	}
	return nil
}

// ReconcileConfig tunes how oracle verdicts are accepted or replaced.
type ReconcileConfig struct {
	Threshold        float64       `mapstructure:"threshold"`
	DegradedCap      float64       `mapstructure:"degraded_cap"`
	MaxAlternates    int           `mapstructure:"max_alternates"`
	LiveCheckTimeout time.Duration `mapstructure:"live_check_timeout"`
}

func (r ReconcileConfig) Validate() error {
	if r.Threshold <= 0 || r.Threshold > 1 {
		return fmt.Errorf("reconcile.threshold must be in (0,1]")
	}
	if r.DegradedCap < 0 || r.DegradedCap > 1 {
		return fmt.Errorf("reconcile.degraded_cap must be in [0,1]")
	}
	if r.MaxAlternates < 0 {
		return fmt.Errorf("reconcile.max_alternates cannot be negative")
	}
	return nil
}

// CacheConfig sizes the two in-process caches.
type CacheConfig struct {
	Ranking   CacheTier `mapstructure:"ranking"`
	SiteHints CacheTier `mapstructure:"site_hints"`
	// Shared mirrors site-hint entries into Redis when storage.redis is set.
	Shared bool `mapstructure:"shared"`
}

// CacheTier is one bounded TTL cache.
type CacheTier struct {
	Capacity int           `mapstructure:"capacity"`
	TTL      time.Duration `mapstructure:"ttl"`
}

func (c CacheTier) validate(name string) error {
	if c.Capacity <= 0 {
		return fmt.Errorf("cache.%s.capacity must be > 0", name)
	}
	if c.TTL <= 0 {
		return fmt.Errorf("cache.%s.ttl must be > 0", name)
	}
	return nil
}

func (c CacheConfig) Validate() error {
	if err := c.Ranking.validate("ranking"); err != nil {
		return err
	}
	return c.SiteHints.validate("site_hints")
}

// SiteHintsConfig bounds robots/sitemap/crawl discovery.
type SiteHintsConfig struct {
	Enabled        bool              `mapstructure:"enabled"`
	UserAgent      string            `mapstructure:"user_agent"`
	RobotsTimeout  time.Duration     `mapstructure:"robots_timeout"`
	SitemapTimeout time.Duration     `mapstructure:"sitemap_timeout"`
	CrawlTimeout   time.Duration     `mapstructure:"crawl_timeout"`
	MaxSitemaps    int               `mapstructure:"max_sitemaps"`
	MaxURLs        int               `mapstructure:"max_urls"`
	MaxLinks       int               `mapstructure:"max_links"`
	MaxHints       int               `mapstructure:"max_hints"`
	CrawlPolicy    CrawlPolicyConfig `mapstructure:"crawl_policy"`
}

func (s SiteHintsConfig) Validate() error {
	if s.RobotsTimeout <= 0 || s.SitemapTimeout <= 0 || s.CrawlTimeout <= 0 {
		return fmt.Errorf("site_hints timeouts must be > 0")
	}
	if s.MaxSitemaps <= 0 || s.MaxURLs <= 0 || s.MaxLinks <= 0 || s.MaxHints <= 0 {
		return fmt.Errorf("site_hints limits must be > 0")
	}
	return s.CrawlPolicy.Validate()
}

// LLMConfig selects the remote ranking model.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"` // openai, gemini or empty
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

func (l LLMConfig) Validate() error {
	switch strings.ToLower(strings.TrimSpace(l.Provider)) {
	case "", "openai", "gemini":
		return nil
	default:
		return fmt.Errorf("llm.provider %q not supported", l.Provider)
	}
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether a Redis host was configured.
func (r RedisConfig) Enabled() bool { return strings.TrimSpace(r.Host) != "" }

// Addr returns host:port.
func (r RedisConfig) Addr() string { return net.JoinHostPort(r.Host, r.Port) }

func (r RedisConfig) Validate() error {
	if !r.Enabled() {
		return nil
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// SessionConfig selects the guidance session backend.
type SessionConfig struct {
	Backend string        `mapstructure:"backend"` // memory or redis
	TTL     time.Duration `mapstructure:"ttl"`
}

func (s SessionConfig) Validate(redis RedisConfig) error {
	switch s.Backend {
	case "memory":
	case "redis":
		if !redis.Enabled() {
			return fmt.Errorf("session.backend=redis requires storage.redis.host")
		}
	default:
		return fmt.Errorf("session.backend %q not supported", s.Backend)
	}
	if s.TTL <= 0 {
		return fmt.Errorf("session.ttl must be > 0")
	}
	return nil
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
}

func (t TelemetryConfig) Validate() error {
	if t.Enabled && !strings.HasPrefix(t.MetricsPath, "/") {
		return fmt.Errorf("telemetry.metrics_path must start with /")
	}
	return nil
}

// BrowserConfig configures the headless observer used by the CLI.
type BrowserConfig struct {
	ExecPath string        `mapstructure:"exec_path"`
	Headless bool          `mapstructure:"headless"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.body_limit", "2M")
	v.SetDefault("server.max_candidates", 500)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.shutdown_grace", 10*time.Second)

	v.SetDefault("ranker.timeout", 8000*time.Millisecond)
	v.SetDefault("ranker.max_candidates", 50)

	v.SetDefault("reconcile.threshold", 0.55)
	v.SetDefault("reconcile.degraded_cap", 0.3)
	v.SetDefault("reconcile.max_alternates", 3)
	v.SetDefault("reconcile.live_check_timeout", time.Second)

	v.SetDefault("cache.ranking.capacity", 500)
	v.SetDefault("cache.ranking.ttl", 60*time.Second)
	v.SetDefault("cache.site_hints.capacity", 500)
	v.SetDefault("cache.site_hints.ttl", 30*time.Minute)
	v.SetDefault("cache.shared", false)

	v.SetDefault("site_hints.enabled", true)
	v.SetDefault("site_hints.user_agent", "button-buddy/1.0 (+site-hints)")
	v.SetDefault("site_hints.robots_timeout", 3*time.Second)
	v.SetDefault("site_hints.sitemap_timeout", 3*time.Second)
	v.SetDefault("site_hints.crawl_timeout", 4*time.Second)
	v.SetDefault("site_hints.max_sitemaps", 2)
	v.SetDefault("site_hints.max_urls", 200)
	v.SetDefault("site_hints.max_links", 80)
	v.SetDefault("site_hints.max_hints", 10)
	v.SetDefault("site_hints.crawl_policy.respect_robots", true)

	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 300)

	v.SetDefault("storage.redis.host", "")
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.timeout", 2*time.Second)

	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.ttl", 30*time.Minute)

	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.metrics_path", "/metrics")

	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.timeout", 20*time.Second)
}

// Load reads configuration from path (or the usual search locations when
// empty), applies BUDDY_* environment overrides and validates every section.
// A missing config file is not an error when no explicit path was given.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			exeDir := filepath.Dir(exe)
			v.AddConfigPath(exeDir)
			v.AddConfigPath(filepath.Join(exeDir, "..", "config"))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	cfg.Session.Backend = strings.ToLower(strings.TrimSpace(cfg.Session.Backend))
	cfg.SiteHints.CrawlPolicy = cfg.SiteHints.CrawlPolicy.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	checks := []error{
		c.Server.Validate(),
		c.Ranker.Validate(),
		c.Reconcile.Validate(),
		c.Cache.Validate(),
		c.SiteHints.Validate(),
		c.LLM.Validate(),
		c.Storage.Redis.Validate(),
		c.Session.Validate(c.Storage.Redis),
		c.Telemetry.Validate(),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}

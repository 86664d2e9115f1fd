package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	CWAAPIKey     string
	CWAAPIURL     string
	CWAAPITimeout time.Duration

	RequestTimeout time.Duration

	CacheBackend string // "in_memory" or "memcached"
	CacheTTL     time.Duration

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	// Per-IP quota: RateLimitRequests per RateLimitWindow. 0 disables.
	RateLimitRequests int
	RateLimitWindow   time.Duration

	CORSAllowedOrigins []string

	CoalesceEnabled bool
	CoalesceTimeout time.Duration

	BreakerEnabled     bool
	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration

	WarmRegions  []string
	WarmInterval time.Duration

	Timezone string

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	CWA struct {
		URL      string `yaml:"url"`
		Timeout  string `yaml:"timeout"`
		Timezone string `yaml:"timezone"`
	} `yaml:"cwa"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Cache struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
		WarmRegions  []string `yaml:"warm_regions"`
		WarmInterval string   `yaml:"warm_interval"`
	} `yaml:"cache"`

	RateLimit struct {
		Requests int    `yaml:"requests"`
		Window   string `yaml:"window"`
	} `yaml:"rate_limit"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`

	Reliability struct {
		CoalesceEnabled    *bool  `yaml:"coalesce_enabled"`
		CoalesceTimeout    string `yaml:"coalesce_timeout"`
		BreakerEnabled     *bool  `yaml:"breaker_enabled"`
		BreakerMaxFailures int    `yaml:"breaker_max_failures"`
		BreakerTimeout     string `yaml:"breaker_timeout"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`
}

type secretsFile struct {
	CWAAPIKey string `yaml:"cwa_api_key"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev), with a
// .env file and process env layered on top. The CWA credential comes from
// CWA_API_KEY env or config/secrets.yaml. Call from project root.
func Load() (*Config, error) {
	// Local development keeps CWA_API_KEY in a .env file; absence is fine.
	_ = godotenv.Load()

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = os.Getenv("PORT")
	if cfg.ServerPort == "" {
		cfg.ServerPort = fc.Server.Port
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "3000"
	}

	cfg.CWAAPIKey = os.Getenv("CWA_API_KEY")
	if cfg.CWAAPIKey == "" {
		secretsPath := filepath.Join(cwd, "config", "secrets.yaml")
		secretsData, err := os.ReadFile(secretsPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read secrets file: %w", err)
			}
		} else {
			var sec secretsFile
			if err := yaml.Unmarshal(secretsData, &sec); err != nil {
				return nil, fmt.Errorf("parse secrets file: %w", err)
			}
			cfg.CWAAPIKey = sec.CWAAPIKey
		}
	}
	if cfg.CWAAPIKey == "" {
		return nil, fmt.Errorf("CWA_API_KEY required (set env or config/secrets.yaml cwa_api_key)")
	}

	cfg.CWAAPIURL = fc.CWA.URL
	if cfg.CWAAPIURL == "" {
		cfg.CWAAPIURL = "https://opendata.cwa.gov.tw/api/v1/rest/datastore/F-D0047-091"
	}
	cfg.CWAAPITimeout = parseDuration(fc.CWA.Timeout, 10*time.Second)
	cfg.Timezone = fc.CWA.Timezone
	if cfg.Timezone == "" {
		cfg.Timezone = "Asia/Taipei"
	}

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 15*time.Second)

	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 10*time.Minute)

	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Cache.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.WarmRegions = fc.Cache.WarmRegions
	cfg.WarmInterval = parseDurationOrZero(fc.Cache.WarmInterval, 0)

	cfg.RateLimitRequests = fc.RateLimit.Requests
	if fc.RateLimit.Requests == 0 {
		cfg.RateLimitRequests = 100
	}
	cfg.RateLimitWindow = parseDuration(fc.RateLimit.Window, 15*time.Minute)

	cfg.CORSAllowedOrigins = fc.CORS.AllowedOrigins

	cfg.CoalesceEnabled = true
	if fc.Reliability.CoalesceEnabled != nil {
		cfg.CoalesceEnabled = *fc.Reliability.CoalesceEnabled
	}
	cfg.CoalesceTimeout = parseDuration(fc.Reliability.CoalesceTimeout, 15*time.Second)

	if fc.Reliability.BreakerEnabled != nil {
		cfg.BreakerEnabled = *fc.Reliability.BreakerEnabled
	}
	cfg.BreakerMaxFailures = uint32(fc.Reliability.BreakerMaxFailures)
	if cfg.BreakerMaxFailures == 0 {
		cfg.BreakerMaxFailures = 5
	}
	cfg.BreakerTimeout = parseDuration(fc.Reliability.BreakerTimeout, time.Minute)

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing
// fails or the result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on
// empty string or parse error. Zero and negative values pass through.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation. RequestTimeout is auto-raised to
// exceed the upstream timeout so the handler deadline never fires first.
func validate(cfg *Config) error {
	if cfg.CWAAPITimeout <= 0 {
		return fmt.Errorf("cwa.timeout must be positive")
	}
	if cfg.RequestTimeout <= cfg.CWAAPITimeout {
		cfg.RequestTimeout = cfg.CWAAPITimeout + time.Second
	}
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
		// valid
	default:
		return fmt.Errorf("cache.backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	if cfg.RateLimitRequests < 0 {
		return fmt.Errorf("rate_limit.requests must not be negative")
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/benvon/doit/internal/validation"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration. Values come from defaults, then
// the YAML file named by CONFIG_FILE, then environment variables.
type Config struct {
	ServerPort      string        `yaml:"server_port" validate:"required,numeric"`
	FrontendURL     string        `yaml:"frontend_url" validate:"omitempty,url"`
	EnableHSTS      bool          `yaml:"enable_hsts"`
	RequestTimeout  time.Duration `yaml:"request_timeout" validate:"gte=0"`
	RateLimit       string        `yaml:"rate_limit"`
	ServerDebugMode bool          `yaml:"server_debug_mode"`
	WorkerDebugMode bool          `yaml:"worker_debug_mode"`
	LogFormat       string        `yaml:"log_format" validate:"oneof=json console"`

	StoreBackend string `yaml:"store_backend" validate:"oneof=file redis postgres memory"`
	StorePath    string `yaml:"store_path" validate:"required_if=StoreBackend file"`
	RedisURL     string `yaml:"redis_url" validate:"required_if=StoreBackend redis"`
	DatabaseURL  string `yaml:"database_url" validate:"required_if=StoreBackend postgres"`

	WeatherAPIKey        string        `yaml:"weather_api_key"`
	WeatherBaseURL       string        `yaml:"weather_base_url" validate:"omitempty,url"`
	WeatherCacheTTL      time.Duration `yaml:"weather_cache_ttl" validate:"gte=0"`
	WeatherCacheBackend  string        `yaml:"weather_cache_backend" validate:"oneof=memory redis"`
	WeatherRatePerMinute int           `yaml:"weather_rate_per_minute" validate:"gte=0"`

	LoginDelay  time.Duration `yaml:"login_delay" validate:"gte=0"`
	TokenSecret string        `yaml:"token_secret"`
	MaxSessions int           `yaml:"max_sessions" validate:"min=1"`
	// Location is an IANA zone name for the today view; Local uses the host zone
	Location string `yaml:"location"`

	RabbitMQURL      string        `yaml:"rabbitmq_url"`
	RabbitMQPrefetch int           `yaml:"rabbitmq_prefetch" validate:"min=1"`
	ReminderInterval time.Duration `yaml:"reminder_interval" validate:"gte=0"`

	OTELEnabled     bool    `yaml:"otel_enabled"`
	OTELEndpoint    string  `yaml:"otel_endpoint" validate:"required_if=OTELEnabled true"`
	OTELInsecure    bool    `yaml:"otel_insecure"`
	OTELSampleRatio float64 `yaml:"otel_sample_ratio" validate:"gte=0,lte=1"`
}

// Defaults returns the configuration used when nothing is set
func Defaults() Config {
	return Config{
		ServerPort:          "8080",
		FrontendURL:         "http://localhost:3000",
		RequestTimeout:      30 * time.Second,
		RateLimit:           "100-M",
		LogFormat:           "json",
		StoreBackend:        "file",
		StorePath:           defaultStorePath(),
		WeatherCacheTTL:     30 * time.Minute,
		WeatherCacheBackend: "memory",
		LoginDelay:          800 * time.Millisecond,
		MaxSessions:         1024,
		Location:            "Local",
		RabbitMQPrefetch:    10,
		ReminderInterval:    30 * time.Second,
		OTELInsecure:        true,
		OTELSampleRatio:     1,
	}
}

func defaultStorePath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + string(os.PathSeparator) + "doit"
	}
	return ".doit"
}

// Load loads configuration from a .env file if present, CONFIG_FILE and the
// environment
func Load() (*Config, error) {
	// a missing .env is the common case
	_ = godotenv.Load()
	return load(os.LookupEnv)
}

type lookupFunc func(key string) (string, bool)

func load(lookup lookupFunc) (*Config, error) {
	cfg := Defaults()

	if path := getEnv(lookup, "CONFIG_FILE", ""); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}

	env := envReader{lookup: lookup}
	env.str("SERVER_PORT", &cfg.ServerPort)
	env.str("FRONTEND_URL", &cfg.FrontendURL)
	env.boolean("ENABLE_HSTS", &cfg.EnableHSTS)
	env.duration("REQUEST_TIMEOUT", &cfg.RequestTimeout)
	env.str("RATE_LIMIT", &cfg.RateLimit)
	env.boolean("SERVER_DEBUG_MODE", &cfg.ServerDebugMode)
	env.boolean("WORKER_DEBUG_MODE", &cfg.WorkerDebugMode)
	env.str("LOG_FORMAT", &cfg.LogFormat)
	env.str("STORE_BACKEND", &cfg.StoreBackend)
	env.str("STORE_PATH", &cfg.StorePath)
	env.str("REDIS_URL", &cfg.RedisURL)
	env.str("DATABASE_URL", &cfg.DatabaseURL)
	env.str("WEATHER_API_KEY", &cfg.WeatherAPIKey)
	env.str("WEATHER_BASE_URL", &cfg.WeatherBaseURL)
	env.duration("WEATHER_CACHE_TTL", &cfg.WeatherCacheTTL)
	env.str("WEATHER_CACHE_BACKEND", &cfg.WeatherCacheBackend)
	env.integer("WEATHER_RATE_PER_MINUTE", &cfg.WeatherRatePerMinute)
	env.duration("LOGIN_DELAY", &cfg.LoginDelay)
	env.str("TOKEN_SECRET", &cfg.TokenSecret)
	env.integer("MAX_SESSIONS", &cfg.MaxSessions)
	env.str("LOCATION", &cfg.Location)
	env.str("RABBITMQ_URL", &cfg.RabbitMQURL)
	env.integer("RABBITMQ_PREFETCH", &cfg.RabbitMQPrefetch)
	env.duration("REMINDER_INTERVAL", &cfg.ReminderInterval)
	env.boolean("OTEL_ENABLED", &cfg.OTELEnabled)
	env.str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.OTELEndpoint)
	env.boolean("OTEL_EXPORTER_OTLP_INSECURE", &cfg.OTELInsecure)
	env.float("OTEL_SAMPLE_RATIO", &cfg.OTELSampleRatio)
	if env.err != nil {
		return nil, env.err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and the cross-field requirements
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.WeatherCacheBackend == "redis" && c.RedisURL == "" {
		return fmt.Errorf("invalid configuration: REDIS_URL is required for the redis weather cache")
	}
	if _, err := c.TimeLocation(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// TimeLocation resolves Location
func (c *Config) TimeLocation() (*time.Location, error) {
	if c.Location == "" || strings.EqualFold(c.Location, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return nil, fmt.Errorf("unknown location %q: %w", c.Location, err)
	}
	return loc, nil
}

func (c *Config) overlayFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(lookup lookupFunc, key, defaultValue string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(value string) bool {
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

// envReader overrides fields whose variable is set. The first malformed
// value is kept in err.
type envReader struct {
	lookup lookupFunc
	err    error
}

func (e *envReader) raw(key string) (string, bool) {
	value := getEnv(e.lookup, key, "")
	return value, value != ""
}

func (e *envReader) str(key string, dst *string) {
	if value, ok := e.raw(key); ok {
		*dst = value
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	if value, ok := e.raw(key); ok {
		*dst = getEnvBool(value)
	}
}

func (e *envReader) integer(key string, dst *int) {
	value, ok := e.raw(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		e.fail(key, value, err)
		return
	}
	*dst = n
}

func (e *envReader) float(key string, dst *float64) {
	value, ok := e.raw(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		e.fail(key, value, err)
		return
	}
	*dst = f
}

func (e *envReader) duration(key string, dst *time.Duration) {
	value, ok := e.raw(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		e.fail(key, value, err)
		return
	}
	*dst = d
}

func (e *envReader) fail(key, value string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
}

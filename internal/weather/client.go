package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/benvon/doit/internal/metrics"
	"github.com/benvon/doit/internal/models"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the OpenWeatherMap current-weather API
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"
	// DefaultCacheTTL is how long a lookup is served from cache
	DefaultCacheTTL = 30 * time.Minute

	defaultTimeout  = 10 * time.Second
	maxResponseSize = 1 << 20
)

// Config configures a Client
type Config struct {
	BaseURL  string
	APIKey   string
	CacheTTL time.Duration
	// Cache defaults to a MemoryCache with CacheTTL
	Cache      Cache
	HTTPClient *http.Client
	// RatePerMinute caps outbound provider calls; zero disables the cap
	RatePerMinute int
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
	Now           func() time.Time
}

// Client looks up current weather by city or coordinates. Successful
// results are cached per query; failures are never cached or retried.
type Client struct {
	baseURL string
	apiKey  string
	cache   Cache
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewClient creates a weather client
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid weather base URL: %w", err)
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	c := &Client{
		baseURL: base,
		apiKey:  cfg.APIKey,
		cache:   cfg.Cache,
		http:    cfg.HTTPClient,
		log:     cfg.Logger,
		metrics: cfg.Metrics,
		now:     cfg.Now,
	}
	if c.cache == nil {
		c.cache = NewMemoryCache(DefaultCacheSize, ttl)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: defaultTimeout}
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if cfg.RatePerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), cfg.RatePerMinute)
	}
	return c, nil
}

// CityKey is the cache key for a city lookup
func CityKey(city string) string {
	return "city:" + strings.TrimSpace(city)
}

// CoordsKey is the cache key for a coordinate lookup
func CoordsKey(lat, lon float64) string {
	return "coords:" + strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lon, 'f', -1, 64)
}

// ByCity returns the current weather for a city name
func (c *Client) ByCity(ctx context.Context, city string) (models.WeatherSnapshot, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return models.WeatherSnapshot{}, fmt.Errorf("%w: city is required", ErrInvalidQuery)
	}
	q := url.Values{}
	q.Set("q", city)
	return c.lookup(ctx, CityKey(city), q)
}

// ByCoords returns the current weather at a latitude/longitude pair
func (c *Client) ByCoords(ctx context.Context, lat, lon float64) (models.WeatherSnapshot, error) {
	if err := ValidateCoords(lat, lon); err != nil {
		return models.WeatherSnapshot{}, err
	}
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	return c.lookup(ctx, CoordsKey(lat, lon), q)
}

// ValidateCoords rejects coordinates outside the valid ranges
func ValidateCoords(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: coordinates out of range (%v, %v)", ErrInvalidQuery, lat, lon)
	}
	return nil
}

func (c *Client) lookup(ctx context.Context, key string, q url.Values) (models.WeatherSnapshot, error) {
	snapshot, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.log.Warn("weather_cache_read_failed", zap.String("key", key), zap.Error(err))
	}
	if ok {
		c.metrics.WeatherLookup(true)
		return snapshot, nil
	}
	c.metrics.WeatherLookup(false)

	snapshot, err = c.fetch(ctx, q)
	if err != nil {
		outcome := "error"
		if IsNotFound(err) {
			outcome = "not_found"
		}
		c.metrics.WeatherFetch(outcome)
		c.log.Info("weather_lookup_failed", zap.String("key", key), zap.Error(err))
		return models.WeatherSnapshot{}, err
	}
	c.metrics.WeatherFetch("ok")

	if err := c.cache.Set(ctx, key, snapshot); err != nil {
		c.log.Warn("weather_cache_write_failed", zap.String("key", key), zap.Error(err))
	}
	return snapshot, nil
}

func (c *Client) fetch(ctx context.Context, q url.Values) (models.WeatherSnapshot, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return models.WeatherSnapshot{}, &Error{Kind: KindNetwork, Err: err}
		}
	}

	q.Set("units", "metric")
	q.Set("appid", c.apiKey)
	endpoint := c.baseURL + "/weather?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.WeatherSnapshot{}, &Error{Kind: KindNetwork, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.WeatherSnapshot{}, &Error{Kind: KindNetwork, Err: redactKey(err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return models.WeatherSnapshot{}, &Error{Kind: KindNetwork, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		kind := KindNetwork
		if resp.StatusCode == http.StatusNotFound {
			kind = KindNotFound
		}
		return models.WeatherSnapshot{}, &Error{
			Kind:       kind,
			StatusCode: resp.StatusCode,
			Message:    gjson.GetBytes(body, "message").String(),
		}
	}

	return c.decode(body)
}

// decode maps the provider payload onto a snapshot
func (c *Client) decode(body []byte) (models.WeatherSnapshot, error) {
	if !gjson.ValidBytes(body) {
		return models.WeatherSnapshot{}, &Error{Kind: KindNetwork, StatusCode: http.StatusOK, Message: "malformed response"}
	}
	doc := gjson.ParseBytes(body)
	if !doc.Get("main.temp").Exists() {
		return models.WeatherSnapshot{}, &Error{Kind: KindNetwork, StatusCode: http.StatusOK, Message: "response has no temperature"}
	}

	return models.WeatherSnapshot{
		City:        doc.Get("name").String(),
		Country:     doc.Get("sys.country").String(),
		Temperature: doc.Get("main.temp").Float(),
		Description: doc.Get("weather.0.description").String(),
		Icon:        doc.Get("weather.0.icon").String(),
		Humidity:    int(doc.Get("main.humidity").Int()),
		WindSpeed:   doc.Get("wind.speed").Float(),
		Timestamp:   c.now().UTC(),
	}, nil
}

// redactKey strips the URL (and with it the API key) from transport errors
func redactKey(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

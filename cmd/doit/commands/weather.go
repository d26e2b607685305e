package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/benvon/doit/internal/config"
	"github.com/benvon/doit/internal/models"
	"github.com/benvon/doit/internal/weather"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewWeatherCmd creates the weather command
func NewWeatherCmd(e *env) *cobra.Command {
	var lat, lon float64
	cmd := &cobra.Command{
		Use:   "weather [city]",
		Short: "Show the current weather for a city or coordinates",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := e.opts.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			client, closeFn, err := newWeatherClient(cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			city := strings.TrimSpace(strings.Join(args, " "))
			coords := cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon")

			var snapshot models.WeatherSnapshot
			switch {
			case city != "" && coords:
				return fmt.Errorf("give either a city or --lat/--lon, not both")
			case city != "":
				snapshot, err = client.ByCity(cmd.Context(), city)
			case coords:
				snapshot, err = client.ByCoords(cmd.Context(), lat, lon)
			default:
				return fmt.Errorf("a city or --lat/--lon is required")
			}
			if err != nil {
				return fmt.Errorf("weather lookup: %w", err)
			}

			return e.printer().value(snapshot, func(w io.Writer) {
				place := snapshot.City
				if snapshot.Country != "" {
					place += ", " + snapshot.Country
				}
				_, _ = fmt.Fprintf(w, "%s: %.1f°C, %s (humidity %d%%, wind %.1f m/s)\n",
					place, snapshot.Temperature, snapshot.Description, snapshot.Humidity, snapshot.WindSpeed)
			})
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude")
	return cmd
}

// newWeatherClient shares the server's redis cache when one is configured so
// repeated invocations stay within the provider quota.
func newWeatherClient(cfg *config.Config) (*weather.Client, func(), error) {
	if cfg.WeatherAPIKey == "" {
		return nil, nil, fmt.Errorf("WEATHER_API_KEY is not set")
	}

	wcfg := weather.Config{
		BaseURL:       cfg.WeatherBaseURL,
		APIKey:        cfg.WeatherAPIKey,
		CacheTTL:      cfg.WeatherCacheTTL,
		RatePerMinute: cfg.WeatherRatePerMinute,
	}
	closeFn := func() {}
	if cfg.WeatherCacheBackend == "redis" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rc := redis.NewClient(opts)
		wcfg.Cache = weather.NewRedisCache(rc, cfg.WeatherCacheTTL)
		closeFn = func() { _ = rc.Close() }
	}

	client, err := weather.NewClient(wcfg)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("create weather client: %w", err)
	}
	return client, closeFn, nil
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"reflect"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppConfig holds the configuration for the service.
// Tags used:
// - mapstructure: environment key, used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	Environment string `mapstructure:"APP_ENV" default:"development"`
	LogLevel    string `mapstructure:"LOG_LEVEL" default:"info"`
	Port        int    `mapstructure:"PORT" default:"8080"`

	DatabaseURL string `mapstructure:"DATABASE_URL" required:"true"`

	// RedisURL enables the result cache and the progress archive when set.
	RedisURL string `mapstructure:"REDIS_URL"`

	ORS       ORSConfig       `mapstructure:",squash"`
	Optimizer OptimizerConfig `mapstructure:",squash"`
}

// ORSConfig configures OpenRouteService geocoding and road matrices.
// Both are disabled when APIKey is empty.
type ORSConfig struct {
	APIKey       string `mapstructure:"ORS_API_KEY"`
	BaseURL      string `mapstructure:"ORS_BASE_URL"`
	DepotAddress string `mapstructure:"DEPOT_ADDRESS" default:"1901 W Madison St, Phoenix, AZ 85009"`

	// GeocodeCacheMaxAge bounds how long a cached address lookup is trusted. Zero never expires.
	GeocodeCacheMaxAge time.Duration `mapstructure:"GEOCODE_CACHE_MAX_AGE" default:"720h"`
}

type OptimizerConfig struct {
	AverageSpeedKPH     float64       `mapstructure:"AVERAGE_SPEED_KPH" default:"40"`
	ServiceTime         time.Duration `mapstructure:"SERVICE_TIME" default:"10m"`
	TwoOptMaxIterations int           `mapstructure:"TWO_OPT_MAX_ITERATIONS" default:"1000"`
	SequenceParallelism int           `mapstructure:"SEQUENCE_PARALLELISM" default:"4"`
	ResultCacheTTL      time.Duration `mapstructure:"RESULT_CACHE_TTL" default:"15m"`
	ProgressRetention   time.Duration `mapstructure:"PROGRESS_RETENTION" default:"72h"`
	DefaultVehicleCount int           `mapstructure:"DEFAULT_VEHICLE_COUNT" default:"3"`
	MaxVehicleCount     int           `mapstructure:"MAX_VEHICLE_COUNT" default:"50"`
}

// Load reads path/.env if present, then environment variables.
// Variables already set in the environment win over the file.
func Load(path string) (*AppConfig, error) {
	if err := godotenv.Load(filepath.Join(path, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	if err := config.Optimizer.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Production reports whether the service runs with production logging.
func (c *AppConfig) Production() bool {
	return c.Environment == "production"
}

func (o OptimizerConfig) validate() error {
	switch {
	case o.AverageSpeedKPH <= 0:
		return fmt.Errorf("invalid configuration: AVERAGE_SPEED_KPH must be positive")
	case o.ServiceTime < 0:
		return fmt.Errorf("invalid configuration: SERVICE_TIME must not be negative")
	case o.SequenceParallelism < 1:
		return fmt.Errorf("invalid configuration: SEQUENCE_PARALLELISM must be at least 1")
	case o.MaxVehicleCount < 1:
		return fmt.Errorf("invalid configuration: MAX_VEHICLE_COUNT must be at least 1")
	case o.DefaultVehicleCount < 1 || o.DefaultVehicleCount > o.MaxVehicleCount:
		return fmt.Errorf("invalid configuration: DEFAULT_VEHICLE_COUNT must be between 1 and %d", o.MaxVehicleCount)
	}
	return nil
}

// processTags iterates over the struct fields, binds their keys and sets defaults in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			if err := v.BindEnv(key); err != nil {
				return fmt.Errorf("bind %s: %w", key, err)
			}
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		if field.Tag.Get("required") == "true" && val.Field(i).IsZero() {
			return fmt.Errorf("missing required configuration: %s", field.Tag.Get("mapstructure"))
		}
	}
	return nil
}

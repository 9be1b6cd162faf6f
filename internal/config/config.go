// Package config loads runtime settings for venue-events.
//
// Precedence, lowest to highest: built-in defaults, an optional YAML config
// file, a .env file in the working directory, and process environment
// variables prefixed VENUE_EVENTS_ (dots become underscores, so
// fetch.timeout is VENUE_EVENTS_FETCH_TIMEOUT). The store URI and database
// are also read from the unprefixed MONGODB_URI and MONGODB_DATABASE.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pfrederiksen/venue-events/internal/fetch"
	"github.com/pfrederiksen/venue-events/internal/monitor"
	"github.com/pfrederiksen/venue-events/internal/storage"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "VENUE_EVENTS"

// ErrMissingStoreURI is returned by Validate when no store URI is set.
var ErrMissingStoreURI = errors.New("MONGODB_URI is not set")

// Config holds all application configuration
type Config struct {
	StoreURI  string
	Database  string
	Venues    string
	Timezone  string
	LogLevel  string
	LogFormat string
	AdminAddr string
	Fetch     fetch.Options
	Monitor   monitor.Config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.uri", "")
	v.SetDefault("store.database", storage.DefaultDatabase)
	v.SetDefault("venues", "configs/venues.yaml")
	v.SetDefault("timezone", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("admin.addr", ":8080")
	v.SetDefault("fetch.user_agent", fetch.DefaultUserAgent)
	v.SetDefault("fetch.timeout", fetch.DefaultTimeout)
	v.SetDefault("fetch.settle", fetch.DefaultSettle)
	v.SetDefault("fetch.headless", true)
	v.SetDefault("monitor.history", monitor.DefaultHistoryLength)
	v.SetDefault("monitor.alert_threshold", monitor.DefaultAlertThreshold)
	v.SetDefault("monitor.alert_interval", monitor.DefaultAlertInterval)
}

// Load reads configuration. configFile may be empty, in which case
// ./config.yaml is used when present.
func Load(configFile string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("store.uri", EnvPrefix+"_STORE_URI", "MONGODB_URI"); err != nil {
		return nil, fmt.Errorf("binding env: %w", err)
	}
	if err := v.BindEnv("store.database", EnvPrefix+"_STORE_DATABASE", "MONGODB_DATABASE"); err != nil {
		return nil, fmt.Errorf("binding env: %w", err)
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		StoreURI:  strings.TrimSpace(v.GetString("store.uri")),
		Database:  v.GetString("store.database"),
		Venues:    v.GetString("venues"),
		Timezone:  v.GetString("timezone"),
		LogLevel:  v.GetString("log.level"),
		LogFormat: v.GetString("log.format"),
		AdminAddr: v.GetString("admin.addr"),
		Fetch: fetch.Options{
			UserAgent:   v.GetString("fetch.user_agent"),
			Timeout:     v.GetDuration("fetch.timeout"),
			SettleDelay: v.GetDuration("fetch.settle"),
			Headless:    v.GetBool("fetch.headless"),
		},
		Monitor: monitor.Config{
			HistoryLength:  v.GetInt("monitor.history"),
			AlertThreshold: v.GetInt("monitor.alert_threshold"),
			AlertInterval:  v.GetDuration("monitor.alert_interval"),
		},
	}
}

// Validate reports configuration that makes running impossible.
func (c *Config) Validate() error {
	if c.StoreURI == "" {
		return ErrMissingStoreURI
	}
	return c.ValidateSettings()
}

// ValidateSettings is Validate without the store requirement, for commands
// that never open the store.
func (c *Config) ValidateSettings() error {
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive, got %s", c.Fetch.Timeout)
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
		}
	}
	if err := c.Monitor.Validate(); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "json", "console":
	default:
		return fmt.Errorf("unknown log format %q (want json or console)", c.LogFormat)
	}
	return nil
}

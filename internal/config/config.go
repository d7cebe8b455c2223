// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/relabs-tech/qibla_compass/internal/compass"
	"github.com/relabs-tech/qibla_compass/internal/geo"
	"github.com/relabs-tech/qibla_compass/internal/prayer"
)

// DefaultPath is the config file the binaries look for in the working directory.
const DefaultPath = "qibla_config.txt"

// EnvPrefix prefixes environment overrides, e.g. QIBLA_MQTT_BROKER.
const EnvPrefix = "QIBLA"

// Location sources.
const (
	LocationGPS    = "gps"
	LocationMQTT   = "mqtt"
	LocationStatic = "static"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker              string
	MQTTClientIDProducer    string
	MQTTClientIDGPS         string
	MQTTClientIDCompass     string
	MQTTClientIDConsole     string
	MQTTClientIDWeb         string
	MQTTClientIDDisplay     string
	MQTTClientIDCalibration string

	// Topics
	TopicGPS         string
	TopicOrientation string
	TopicQibla       string
	TopicHeading     string
	TopicCalibration string

	// Target and tracker
	TargetLat          float64
	TargetLng          float64
	FacingThresholdDeg float64
	UpdateIntervalMs   int
	Language           string

	// Location
	LocationSource    string // "gps", "mqtt" or "static"
	StaticLat         float64
	StaticLng         float64
	LocationTimeoutMs int

	// Prayer times
	PrayerMethod string
	PrayerMadhab string

	// GPS
	GPSSerialPort string
	GPSBaudRate   int

	// Timing
	MockSampleInterval int // milliseconds

	// Web Server
	WebServerPort int
	WebStaticDir  string

	// Display
	DisplayI2CBus         string
	DisplayUpdateInterval int // milliseconds

	// Geocoding
	GoogleMapsAPIKey string

	// Logging
	LogLevel string
}

// defaults doubles as the list of accepted keys.
var defaults = map[string]any{
	"MQTT_BROKER":                "tcp://localhost:1883",
	"MQTT_CLIENT_ID_PRODUCER":    "qibla-producer",
	"MQTT_CLIENT_ID_GPS":         "qibla-gps-producer",
	"MQTT_CLIENT_ID_COMPASS":     "qibla-compass",
	"MQTT_CLIENT_ID_CONSOLE":     "qibla-console",
	"MQTT_CLIENT_ID_WEB":         "qibla-web",
	"MQTT_CLIENT_ID_DISPLAY":     "qibla-display",
	"MQTT_CLIENT_ID_CALIBRATION": "qibla-calibration",

	"TOPIC_GPS":         "qibla/gps",
	"TOPIC_ORIENTATION": "qibla/orientation",
	"TOPIC_QIBLA":       "qibla/bearing",
	"TOPIC_HEADING":     "qibla/heading",
	"TOPIC_CALIBRATION": "qibla/calibration",

	"TARGET_LAT":           geo.Kaaba.Latitude,
	"TARGET_LNG":           geo.Kaaba.Longitude,
	"FACING_THRESHOLD_DEG": compass.DefaultFacingThreshold,
	"UPDATE_INTERVAL_MS":   int(compass.DefaultUpdateInterval / time.Millisecond),
	"LANGUAGE":             string(compass.English),

	"LOCATION_SOURCE":     LocationMQTT,
	"STATIC_LAT":          0.0,
	"STATIC_LNG":          0.0,
	"LOCATION_TIMEOUT_MS": 15000,

	"PRAYER_METHOD": prayer.MuslimWorldLeague.Name,
	"PRAYER_MADHAB": prayer.Shafi.String(),

	"GPS_SERIAL_PORT": "/dev/serial0",
	"GPS_BAUD_RATE":   9600,

	"MOCK_SAMPLE_INTERVAL": 50,

	"WEB_SERVER_PORT": 8080,
	"WEB_STATIC_DIR":  "web",

	"DISPLAY_I2C_BUS":         "",
	"DISPLAY_UPDATE_INTERVAL": 200,

	"GOOGLE_MAPS_API_KEY": "",

	"LOG_LEVEL": "info",
}

// Package-level unexported variables for the singleton:
//   - globalConfig is only reachable through InitGlobal and Get.
//   - configOnce makes InitGlobal run once.
//   - configMu lets many readers call Get concurrently.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the KEY=VALUE configuration file at configPath. Missing keys take
// their defaults and QIBLA_<KEY> environment variables override the file.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := checkKeys(v.AllKeys()); err != nil {
		return nil, err
	}

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	return fromViper(v)
}

// Default returns the configuration with every key at its default value.
func Default() *Config {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	cfg, err := fromViper(v)
	if err != nil {
		panic(err) // defaults are static
	}
	return cfg
}

func checkKeys(keys []string) error {
	var unknown []string
	for _, k := range keys {
		if _, ok := defaults[strings.ToUpper(k)]; !ok {
			unknown = append(unknown, strings.ToUpper(k))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown config key(s): %s", strings.Join(unknown, ", "))
	}
	return nil
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		MQTTBroker:              v.GetString("MQTT_BROKER"),
		MQTTClientIDProducer:    v.GetString("MQTT_CLIENT_ID_PRODUCER"),
		MQTTClientIDGPS:         v.GetString("MQTT_CLIENT_ID_GPS"),
		MQTTClientIDCompass:     v.GetString("MQTT_CLIENT_ID_COMPASS"),
		MQTTClientIDConsole:     v.GetString("MQTT_CLIENT_ID_CONSOLE"),
		MQTTClientIDWeb:         v.GetString("MQTT_CLIENT_ID_WEB"),
		MQTTClientIDDisplay:     v.GetString("MQTT_CLIENT_ID_DISPLAY"),
		MQTTClientIDCalibration: v.GetString("MQTT_CLIENT_ID_CALIBRATION"),

		TopicGPS:         v.GetString("TOPIC_GPS"),
		TopicOrientation: v.GetString("TOPIC_ORIENTATION"),
		TopicQibla:       v.GetString("TOPIC_QIBLA"),
		TopicHeading:     v.GetString("TOPIC_HEADING"),
		TopicCalibration: v.GetString("TOPIC_CALIBRATION"),

		TargetLat:          v.GetFloat64("TARGET_LAT"),
		TargetLng:          v.GetFloat64("TARGET_LNG"),
		FacingThresholdDeg: v.GetFloat64("FACING_THRESHOLD_DEG"),
		UpdateIntervalMs:   v.GetInt("UPDATE_INTERVAL_MS"),
		Language:           strings.ToLower(v.GetString("LANGUAGE")),

		LocationSource:    strings.ToLower(v.GetString("LOCATION_SOURCE")),
		StaticLat:         v.GetFloat64("STATIC_LAT"),
		StaticLng:         v.GetFloat64("STATIC_LNG"),
		LocationTimeoutMs: v.GetInt("LOCATION_TIMEOUT_MS"),

		PrayerMethod: strings.ToLower(v.GetString("PRAYER_METHOD")),
		PrayerMadhab: strings.ToLower(v.GetString("PRAYER_MADHAB")),

		GPSSerialPort: v.GetString("GPS_SERIAL_PORT"),
		GPSBaudRate:   v.GetInt("GPS_BAUD_RATE"),

		MockSampleInterval: v.GetInt("MOCK_SAMPLE_INTERVAL"),

		WebServerPort: v.GetInt("WEB_SERVER_PORT"),
		WebStaticDir:  v.GetString("WEB_STATIC_DIR"),

		DisplayI2CBus:         v.GetString("DISPLAY_I2C_BUS"),
		DisplayUpdateInterval: v.GetInt("DISPLAY_UPDATE_INTERVAL"),

		GoogleMapsAPIKey: v.GetString("GOOGLE_MAPS_API_KEY"),

		LogLevel: v.GetString("LOG_LEVEL"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks required fields and ranges.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return errors.New("MQTT_BROKER is required")
	}
	if err := c.Target().Validate(); err != nil {
		return fmt.Errorf("TARGET_LAT/TARGET_LNG: %w", err)
	}
	if c.FacingThresholdDeg <= 0 || c.FacingThresholdDeg >= 180 {
		return fmt.Errorf("FACING_THRESHOLD_DEG must be in (0, 180), got %v", c.FacingThresholdDeg)
	}
	if c.UpdateIntervalMs <= 0 {
		return fmt.Errorf("UPDATE_INTERVAL_MS must be > 0, got %d", c.UpdateIntervalMs)
	}
	if _, err := compass.ParseLanguage(c.Language); err != nil {
		return fmt.Errorf("LANGUAGE: %w", err)
	}
	switch c.LocationSource {
	case LocationGPS:
		if c.GPSSerialPort == "" {
			return errors.New("GPS_SERIAL_PORT is required")
		}
		if c.GPSBaudRate <= 0 {
			return errors.New("GPS_BAUD_RATE is required")
		}
	case LocationMQTT:
		if c.TopicGPS == "" {
			return errors.New("TOPIC_GPS is required")
		}
	case LocationStatic:
		if err := c.StaticPoint().Validate(); err != nil {
			return fmt.Errorf("STATIC_LAT/STATIC_LNG: %w", err)
		}
	default:
		return fmt.Errorf("LOCATION_SOURCE must be gps, mqtt or static, got %q", c.LocationSource)
	}
	if c.LocationTimeoutMs <= 0 {
		return fmt.Errorf("LOCATION_TIMEOUT_MS must be > 0, got %d", c.LocationTimeoutMs)
	}
	if _, err := c.PrayerParams(); err != nil {
		return err
	}
	if c.WebServerPort <= 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("WEB_SERVER_PORT out of range: %d", c.WebServerPort)
	}
	if c.MockSampleInterval <= 0 {
		return fmt.Errorf("MOCK_SAMPLE_INTERVAL must be > 0, got %d", c.MockSampleInterval)
	}
	if c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be > 0, got %d", c.DisplayUpdateInterval)
	}
	return nil
}

// Target returns the configured target point.
func (c *Config) Target() geo.GeoPoint {
	return geo.GeoPoint{Latitude: c.TargetLat, Longitude: c.TargetLng}
}

// StaticPoint returns the fixed location used when LOCATION_SOURCE=static.
func (c *Config) StaticPoint() geo.GeoPoint {
	return geo.GeoPoint{Latitude: c.StaticLat, Longitude: c.StaticLng}
}

// LocationTimeout returns the bounded wait for one location request.
func (c *Config) LocationTimeout() time.Duration {
	return time.Duration(c.LocationTimeoutMs) * time.Millisecond
}

// TrackerConfig builds the heading tracker settings.
func (c *Config) TrackerConfig() compass.Config {
	lang, _ := compass.ParseLanguage(c.Language)
	return compass.Config{
		UpdateInterval:  time.Duration(c.UpdateIntervalMs) * time.Millisecond,
		FacingThreshold: c.FacingThresholdDeg,
		Language:        lang,
	}
}

// PrayerParams resolves PRAYER_METHOD and PRAYER_MADHAB.
func (c *Config) PrayerParams() (prayer.Params, error) {
	method, err := prayer.MethodByName(c.PrayerMethod)
	if err != nil {
		return prayer.Params{}, fmt.Errorf("PRAYER_METHOD: %w", err)
	}
	madhab, err := prayer.ParseMadhab(c.PrayerMadhab)
	if err != nil {
		return prayer.Params{}, fmt.Errorf("PRAYER_MADHAB: %w", err)
	}
	return prayer.Params{Method: method, Madhab: madhab}, nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance, or nil before InitGlobal.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}

package app

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/qibla_compass/internal/config"
	"github.com/relabs-tech/qibla_compass/internal/geocode"
	"github.com/relabs-tech/qibla_compass/internal/gps"
)

// newLocationProvider picks the provider named by LOCATION_SOURCE.
// client may be nil unless the source is mqtt.
func newLocationProvider(cfg *config.Config, client mqtt.Client) (gps.Provider, error) {
	switch cfg.LocationSource {
	case config.LocationGPS:
		return gps.NewNMEAProvider(cfg.GPSSerialPort, cfg.GPSBaudRate), nil
	case config.LocationMQTT:
		if client == nil {
			return nil, fmt.Errorf("location source %q needs an MQTT client", cfg.LocationSource)
		}
		return gps.NewMQTTProvider(client, cfg.TopicGPS), nil
	case config.LocationStatic:
		return gps.StaticProvider{Point: cfg.StaticPoint()}, nil
	default:
		return nil, fmt.Errorf("unknown location source %q", cfg.LocationSource)
	}
}

// newGoogleNamer is swapped in tests.
var newGoogleNamer = geocode.NewGoogleNamer

// newNamer returns a reverse geocoder when an API key is configured, else nil.
func newNamer(cfg *config.Config) (geocode.Namer, error) {
	if cfg.GoogleMapsAPIKey == "" {
		return nil, nil
	}
	namer, err := newGoogleNamer(cfg.GoogleMapsAPIKey, cfg.Language)
	if err != nil {
		return nil, err
	}
	return namer, nil
}

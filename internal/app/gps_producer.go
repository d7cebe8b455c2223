package app

import (
	"bufio"
	"fmt"
	"io"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	serial "github.com/jacobsa/go-serial/serial"
	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/qibla_compass/internal/config"
	"github.com/relabs-tech/qibla_compass/internal/gps"
)

// RunGPSProducer opens the GPS serial port, parses NMEA sentences, and
// publishes each RMC fix as retained JSON on TOPIC_GPS.
func RunGPSProducer() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDGPS)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	port, err := serial.Open(gps.SerialOptions(cfg.GPSSerialPort, cfg.GPSBaudRate))
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.GPSSerialPort, err)
	}
	defer port.Close()
	log.Info().Str("port", cfg.GPSSerialPort).Int("baud", cfg.GPSBaudRate).Msg("gps: serial port opened")

	return streamFixes(port, client, cfg.TopicGPS)
}

// streamFixes publishes every RMC-completed fix read from r until r fails.
// Void fixes are published too so subscribers can show the receiver status.
func streamFixes(r io.Reader, client mqtt.Client, topic string) error {
	var parser gps.Parser
	reader := bufio.NewReader(r)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			log.Error().Err(err).Msg("gps: read error")
			return err
		}

		fix, ok := parser.Feed(line)
		if !ok {
			continue
		}
		if err := gps.Publish(client, topic, fix); err != nil {
			log.Warn().Err(err).Msg("gps: publish error")
			continue
		}
		log.Debug().
			Str("validity", fix.Validity).
			Float64("lat", fix.Latitude).
			Float64("lon", fix.Longitude).
			Float64("hdop", fix.HDOP).
			Msg("gps: published fix")
	}
}

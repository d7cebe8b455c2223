package gps

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"

	serial "github.com/jacobsa/go-serial/serial"
	"github.com/rs/zerolog/log"
)

// SerialOptions returns the port settings used for NMEA receivers.
func SerialOptions(port string, baud int) serial.OpenOptions {
	return serial.OpenOptions{
		PortName:              port,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
}

// NMEAProvider reads a serial GPS receiver until the first valid RMC fix.
type NMEAProvider struct {
	Port     string
	BaudRate int

	// open is swapped in tests.
	open func(serial.OpenOptions) (io.ReadWriteCloser, error)
}

// NewNMEAProvider returns a provider for the receiver on port.
func NewNMEAProvider(port string, baud int) *NMEAProvider {
	return &NMEAProvider{Port: port, BaudRate: baud, open: serial.Open}
}

func (p *NMEAProvider) Locate(ctx context.Context) (Fix, error) {
	open := p.open
	if open == nil {
		open = serial.Open
	}
	port, err := open(SerialOptions(p.Port, p.BaudRate))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Fix{}, &LocationError{Reason: ReasonUnsupported, Err: err}
		}
		if errors.Is(err, os.ErrPermission) {
			return Fix{}, &LocationError{Reason: ReasonPermissionDenied, Err: err}
		}
		return Fix{}, unavailable("open %s: %w", p.Port, err)
	}
	log.Info().Str("port", p.Port).Int("baud", p.BaudRate).Msg("gps: serial port opened")

	// The blocking read is unblocked by closing the port when ctx ends.
	stop := context.AfterFunc(ctx, func() { port.Close() })
	defer func() {
		if stop() {
			port.Close()
		}
	}()

	fix, err := ReadFirstFix(port)
	if ctx.Err() != nil {
		return Fix{}, ctx.Err()
	}
	return fix, err
}

// ReadFirstFix scans NMEA lines from r and returns the first valid fix.
func ReadFirstFix(r io.Reader) (Fix, error) {
	var parser Parser
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			if fix, ok := parser.Feed(line); ok && fix.Valid() {
				return fix, nil
			}
		}
		if err != nil {
			return Fix{}, unavailable("gps read: %w", err)
		}
	}
}

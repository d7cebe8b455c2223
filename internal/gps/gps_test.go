package gps

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/qibla_compass/internal/geo"
)

const (
	rmcValid = "$GPRMC,123519,A,2125.346,N,03951.474,E,000.5,054.7,230394,003.1,W*6B"
	rmcVoid  = "$GPRMC,123520,V,,,,,,,230394,,*39"
	ggaHDOP6 = "$GPGGA,123519,2125.346,N,03951.474,E,1,08,6.0,545.4,M,46.9,M,,*46"
)

func TestParser_RMC(t *testing.T) {
	var p Parser

	fix, ok := p.Feed(rmcValid + "\r\n")
	require.True(t, ok)
	assert.True(t, fix.Valid())
	assert.InDelta(t, 21.422433, fix.Latitude, 1e-5)
	assert.InDelta(t, 39.857900, fix.Longitude, 1e-5)
	assert.InDelta(t, 54.7, fix.CourseDeg, 1e-9)
	assert.Equal(t, "A", fix.Validity)
}

func TestParser_GGASetsAccuracy(t *testing.T) {
	var p Parser

	_, ok := p.Feed(ggaHDOP6)
	assert.False(t, ok, "GGA alone does not complete a fix")

	fix, ok := p.Feed(rmcValid)
	require.True(t, ok)
	assert.InDelta(t, 6.0, fix.HDOP, 1e-9)
	assert.InDelta(t, 30.0, fix.AccuracyM, 1e-9)
	assert.Equal(t, QualityGood, AccuracyQuality(fix.AccuracyM))
}

func TestParser_IgnoresNoise(t *testing.T) {
	var p Parser
	for _, line := range []string{"", "   ", "garbage", "$GPRMC,broken*00", "$GPXYZ,1,2,3*00"} {
		_, ok := p.Feed(line)
		assert.False(t, ok, "line %q", line)
	}
}

func TestReadFirstFix_SkipsVoid(t *testing.T) {
	input := strings.Join([]string{"noise", rmcVoid, ggaHDOP6, rmcValid, ""}, "\r\n")

	fix, err := ReadFirstFix(strings.NewReader(input))
	require.NoError(t, err)
	assert.True(t, fix.Valid())
	assert.InDelta(t, 30.0, fix.AccuracyM, 1e-9)
}

func TestReadFirstFix_EOF(t *testing.T) {
	_, err := ReadFirstFix(strings.NewReader(rmcVoid + "\n"))
	require.Error(t, err)
	assert.Equal(t, ReasonPositionUnavailable, ReasonOf(err))
	assert.ErrorIs(t, err, io.EOF)
}

func TestAccuracyQuality(t *testing.T) {
	assert.Equal(t, QualityExcellent, AccuracyQuality(5))
	assert.Equal(t, QualityGood, AccuracyQuality(20))
	assert.Equal(t, QualityGood, AccuracyQuality(49.9))
	assert.Equal(t, QualityMedium, AccuracyQuality(50))
}

func TestReasonFromBrowserCode(t *testing.T) {
	assert.Equal(t, ReasonPermissionDenied, ReasonFromBrowserCode(1))
	assert.Equal(t, ReasonPositionUnavailable, ReasonFromBrowserCode(2))
	assert.Equal(t, ReasonTimeout, ReasonFromBrowserCode(3))
	assert.Equal(t, ReasonUnknown, ReasonFromBrowserCode(99))
}

func TestLocate_Static(t *testing.T) {
	p := StaticProvider{Point: geo.Kaaba, AccuracyM: 10}

	fix, err := Locate(context.Background(), p, time.Second)
	require.NoError(t, err)
	assert.Equal(t, geo.Kaaba, fix.Point())
	assert.True(t, fix.Valid())
}

func TestLocate_Timeout(t *testing.T) {
	blocking := FuncProvider(func(ctx context.Context) (Fix, error) {
		<-ctx.Done()
		return Fix{}, ctx.Err()
	})

	_, err := Locate(context.Background(), blocking, 10*time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, ReasonTimeout, ReasonOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocate_KeepsLocationError(t *testing.T) {
	denied := FuncProvider(func(context.Context) (Fix, error) {
		return Fix{}, &LocationError{Reason: ReasonPermissionDenied}
	})

	_, err := Locate(context.Background(), denied, time.Second)
	assert.Equal(t, ReasonPermissionDenied, ReasonOf(err))
	assert.Contains(t, err.Error(), "allow location access")
}

func TestLocate_WrapsUnknown(t *testing.T) {
	boom := errors.New("boom")
	failing := FuncProvider(func(context.Context) (Fix, error) { return Fix{}, boom })

	_, err := Locate(context.Background(), failing, time.Second)
	assert.Equal(t, ReasonUnknown, ReasonOf(err))
	assert.ErrorIs(t, err, boom)
}

func TestLocate_RejectsOutOfRangeFix(t *testing.T) {
	bad := FuncProvider(func(context.Context) (Fix, error) {
		return Fix{Latitude: 95, Validity: "A"}, nil
	})

	_, err := Locate(context.Background(), bad, time.Second)
	assert.Equal(t, ReasonPositionUnavailable, ReasonOf(err))
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinate)
}

type fakePort struct {
	io.Reader
}

func (fakePort) Write(p []byte) (int, error) { return len(p), nil }
func (fakePort) Close() error                { return nil }

func TestNMEAProvider(t *testing.T) {
	p := NewNMEAProvider("/dev/fake", 9600)
	p.open = func(opts serial.OpenOptions) (io.ReadWriteCloser, error) {
		assert.Equal(t, "/dev/fake", opts.PortName)
		assert.Equal(t, uint(9600), opts.BaudRate)
		return fakePort{strings.NewReader(rmcValid + "\r\n")}, nil
	}

	fix, err := Locate(context.Background(), p, time.Second)
	require.NoError(t, err)
	assert.InDelta(t, 21.422433, fix.Latitude, 1e-5)
}

func TestNMEAProvider_MissingPort(t *testing.T) {
	p := NewNMEAProvider("/dev/none", 9600)
	p.open = func(serial.OpenOptions) (io.ReadWriteCloser, error) {
		return nil, &os.PathError{Op: "open", Path: "/dev/none", Err: os.ErrNotExist}
	}

	_, err := Locate(context.Background(), p, time.Second)
	assert.Equal(t, ReasonUnsupported, ReasonOf(err))
}

func TestDecodeFix(t *testing.T) {
	fix, ok := DecodeFix([]byte(`{"lat": 51.5, "lon": -0.12, "validity": "A"}`))
	require.True(t, ok)
	assert.Equal(t, geo.GeoPoint{Latitude: 51.5, Longitude: -0.12}, fix.Point())

	_, ok = DecodeFix([]byte(`{"lat": 51.5, "lon": -0.12, "validity": "V"}`))
	assert.False(t, ok)

	_, ok = DecodeFix([]byte(`{"lat": 151.5, "lon": 0, "validity": "A"}`))
	assert.False(t, ok)

	_, ok = DecodeFix([]byte(`nope`))
	assert.False(t, ok)
}

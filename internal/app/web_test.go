package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/qibla_compass/internal/compass"
	"github.com/relabs-tech/qibla_compass/internal/config"
	"github.com/relabs-tech/qibla_compass/internal/orientation"
	"github.com/relabs-tech/qibla_compass/internal/prayer"
)

type published struct {
	topic    string
	retained bool
	v        any
}

type recorder struct {
	mu   sync.Mutex
	msgs []published
}

func (r *recorder) publish(topic string, retained bool, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, published{topic, retained, v})
	return nil
}

func (r *recorder) topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.msgs {
		out = append(out, m.topic)
	}
	return out
}

func newTestServer(t *testing.T, rec *recorder) *httptest.Server {
	t.Helper()
	cfg := config.Default()
	cfg.WebStaticDir = ""
	var pub publishFunc
	if rec != nil {
		pub = rec.publish
	}
	srv := httptest.NewServer(NewWebServer(cfg, nil, pub).Router())
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readResponse(t *testing.T, conn *websocket.Conn) WSResponse {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var resp WSResponse
	require.NoError(t, conn.ReadJSON(&resp))
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPIQibla(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/qibla?lat=21.3891&lng=39.8579")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body QiblaResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.InDelta(t, 318.54, body.Qibla.BearingDegrees, 0.01)
	assert.Equal(t, 319, body.Qibla.DisplayBearing)
	assert.Equal(t, 5, body.Qibla.DisplayDistanceKm)
	assert.Contains(t, body.Share.Text, "319°")
}

func TestAPIQibla_PrayerTimes(t *testing.T) {
	cfg := config.Default()
	cfg.WebStaticDir = ""
	ws := NewWebServer(cfg, nil, nil)
	ws.now = func() time.Time { return time.Date(2024, time.March, 11, 9, 0, 0, 0, time.UTC) }
	srv := httptest.NewServer(ws.Router())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/api/qibla?lat=21.4225&lng=39.8262")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body QiblaResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotNil(t, body.Qibla.Prayer)
	assert.Equal(t, prayer.Dhuhr, body.Qibla.Prayer.Next)
	assert.Equal(t, "1 Ramadan 1445 AH", body.Qibla.Prayer.HijriText)
	assert.Equal(t, time.Date(2024, time.March, 11, 9, 32, 0, 0, time.UTC), body.Qibla.Prayer.Times.Dhuhr.UTC())
}

func TestAPIQibla_BadRequest(t *testing.T) {
	srv := newTestServer(t, nil)
	for _, q := range []string{"", "?lat=1", "?lat=x&lng=2", "?lat=91&lng=0"} {
		resp, err := http.Get(srv.URL + "/api/qibla" + q)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "query %q", q)
	}
}

func TestAPITicks(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/api/ticks")
	require.NoError(t, err)
	defer resp.Body.Close()

	var ticks []compass.Tick
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ticks))
	assert.Len(t, ticks, 72)
}

func TestWS_LocationThenOrientation(t *testing.T) {
	rec := &recorder{}
	conn := dial(t, newTestServer(t, rec))

	lat, lng := 21.3891, 39.8579
	require.NoError(t, conn.WriteJSON(WSMessage{Type: MsgLocation, Lat: &lat, Lng: &lng, AccuracyM: 15}))

	resp := readResponse(t, conn)
	require.Equal(t, RespQibla, resp.Type)
	require.NotNil(t, resp.Qibla)
	assert.Equal(t, 319, resp.Qibla.DisplayBearing)
	require.NotNil(t, resp.Share)
	assert.Contains(t, resp.Share.MapsLink, "google.com/maps")
	require.NotNil(t, resp.Qibla.Prayer)
	assert.NotEmpty(t, resp.Qibla.Prayer.HijriText)

	require.NoError(t, conn.WriteJSON(WSMessage{
		Type:                 MsgOrientation,
		WebkitCompassHeading: orientation.Float(resp.Qibla.BearingDegrees),
		TimestampMs:          1000,
	}))
	resp = readResponse(t, conn)
	require.Equal(t, RespHeading, resp.Type)
	require.NotNil(t, resp.Update)
	assert.True(t, resp.Update.IsFacing)
	assert.True(t, resp.Update.Haptic)
	assert.Equal(t, "NW", resp.Update.Cardinal)
	assert.Equal(t, "You are facing the Qibla", resp.Update.Message)

	// Throttled sample is ignored; the next accepted one still arrives in order.
	require.NoError(t, conn.WriteJSON(WSMessage{Type: MsgOrientation, WebkitCompassHeading: orientation.Float(10), TimestampMs: 1010}))
	require.NoError(t, conn.WriteJSON(WSMessage{Type: MsgOrientation, WebkitCompassHeading: orientation.Float(90), TimestampMs: 1100}))
	resp = readResponse(t, conn)
	require.Equal(t, RespHeading, resp.Type)
	assert.Equal(t, 90.0, resp.Update.Heading)
	assert.False(t, resp.Update.IsFacing)
	assert.True(t, resp.Update.FacingChanged)

	cfg := config.Default()
	assert.Equal(t, []string{cfg.TopicQibla, cfg.TopicHeading, cfg.TopicHeading}, rec.topics())
}

func TestWS_Calibrate(t *testing.T) {
	conn := dial(t, newTestServer(t, nil))

	lat, lng := 51.5074, -0.1278
	require.NoError(t, conn.WriteJSON(WSMessage{Type: MsgLocation, Lat: &lat, Lng: &lng}))
	require.Equal(t, RespQibla, readResponse(t, conn).Type)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MsgCalibrate, OffsetDeg: 10}))
	require.NoError(t, conn.WriteJSON(WSMessage{Type: MsgOrientation, WebkitCompassHeading: orientation.Float(0), TimestampMs: 1}))

	resp := readResponse(t, conn)
	require.Equal(t, RespHeading, resp.Type)
	assert.Equal(t, 10.0, resp.Update.Heading)
}

func TestWS_LocationError(t *testing.T) {
	conn := dial(t, newTestServer(t, nil))

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MsgLocationError, Code: 1}))
	resp := readResponse(t, conn)
	assert.Equal(t, RespError, resp.Type)
	assert.Equal(t, "permission_denied", resp.Reason)
	assert.NotEmpty(t, resp.Message)

	// The failure is terminal: a late fix is ignored.
	lat, lng := 21.0, 39.0
	require.NoError(t, conn.WriteJSON(WSMessage{Type: MsgLocation, Lat: &lat, Lng: &lng}))
	require.NoError(t, conn.WriteJSON(WSMessage{Type: "bogus"}))
	resp = readResponse(t, conn)
	assert.Equal(t, "bad_request", resp.Reason)
}

func TestWS_PermissionDenied(t *testing.T) {
	conn := dial(t, newTestServer(t, nil))

	denied := false
	require.NoError(t, conn.WriteJSON(WSMessage{Type: MsgPermission, Granted: &denied}))
	resp := readResponse(t, conn)
	assert.Equal(t, RespError, resp.Type)
	assert.Equal(t, ReasonSensorPermissionDenied, resp.Reason)
}

func TestWS_InvalidLocation(t *testing.T) {
	conn := dial(t, newTestServer(t, nil))

	lat, lng := 120.0, 0.0
	require.NoError(t, conn.WriteJSON(WSMessage{Type: MsgLocation, Lat: &lat, Lng: &lng}))
	resp := readResponse(t, conn)
	assert.Equal(t, RespError, resp.Type)
	assert.Equal(t, "position_unavailable", resp.Reason)
}

func TestWS_LocationTimeout(t *testing.T) {
	cfg := config.Default()
	cfg.WebStaticDir = ""
	cfg.LocationTimeoutMs = 20
	srv := httptest.NewServer(NewWebServer(cfg, nil, nil).Router())
	t.Cleanup(srv.Close)

	conn := dial(t, srv)
	resp := readResponse(t, conn)
	assert.Equal(t, RespError, resp.Type)
	assert.Equal(t, "timeout", resp.Reason)
}

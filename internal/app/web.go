package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/qibla_compass/internal/compass"
	"github.com/relabs-tech/qibla_compass/internal/config"
	"github.com/relabs-tech/qibla_compass/internal/geo"
	"github.com/relabs-tech/qibla_compass/internal/geocode"
	"github.com/relabs-tech/qibla_compass/internal/prayer"
	"github.com/relabs-tech/qibla_compass/internal/session"
)

// publishFunc mirrors session output onto the bus; nil disables mirroring.
type publishFunc func(topic string, retained bool, v any) error

// WebServer serves the compass API, the websocket session and static files.
type WebServer struct {
	cfg      *config.Config
	namer    geocode.Namer
	publish  publishFunc
	upgrader websocket.Upgrader
	now      func() time.Time
}

// NewWebServer creates a server. namer and publish may be nil.
func NewWebServer(cfg *config.Config, namer geocode.Namer, publish publishFunc) *WebServer {
	return &WebServer{
		cfg:     cfg,
		namer:   namer,
		publish: publish,
		now:     time.Now,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for local development
			},
		},
	}
}

// Router builds the HTTP routes.
func (s *WebServer) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/qibla", s.handleQibla).Methods(http.MethodGet)
	r.HandleFunc("/api/ticks", s.handleTicks).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWS)
	if s.cfg.WebStaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.cfg.WebStaticDir)))
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("web: json encode error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// QiblaResponse is returned by GET /api/qibla.
type QiblaResponse struct {
	Qibla session.Qibla `json:"qibla"`
	Share session.Share `json:"share"`
}

func (s *WebServer) handleQibla(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if errLat != nil || errLng != nil {
		writeError(w, http.StatusBadRequest, "lat and lng query parameters are required")
		return
	}
	origin := geo.GeoPoint{Latitude: lat, Longitude: lng}
	target := s.cfg.Target()

	result, err := geo.ComputeBearingAndDistance(origin, target)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := session.Qibla{
		Origin:            origin,
		Target:            target,
		BearingDegrees:    result.BearingDegrees,
		DistanceKm:        result.DistanceKm,
		DisplayBearing:    result.DisplayBearing(),
		DisplayDistanceKm: result.DisplayDistanceKm(),
	}
	params, _ := s.cfg.PrayerParams()
	if day, err := prayer.ForDay(origin, s.now(), params, s.cfg.TrackerConfig().Language); err == nil {
		q.Prayer = &day
	}
	if s.namer != nil {
		if name, err := s.namer.PlaceName(r.Context(), origin); err == nil {
			q.Place = name
		} else {
			log.Debug().Err(err).Msg("web: place lookup failed")
		}
	}
	writeJSON(w, http.StatusOK, QiblaResponse{Qibla: q, Share: session.NewShare(origin, result)})
}

func (s *WebServer) handleTicks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, compass.Ticks())
}

// RunWeb serves the web UI. Sessions are mirrored to MQTT when the broker is reachable.
func RunWeb() error {
	cfg := config.Get()

	namer, err := newNamer(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("web: reverse geocoding disabled")
	}

	var publish publishFunc
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		log.Warn().Err(err).Msg("web: MQTT unavailable, sessions will not be mirrored")
	} else {
		defer client.Disconnect(250)
		publish = func(topic string, retained bool, v any) error {
			return publishJSON(client, topic, retained, v)
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           NewWebServer(cfg, namer, publish).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info().Str("addr", srv.Addr).Str("static", cfg.WebStaticDir).Msg("web: server listening")
	return srv.ListenAndServe()
}

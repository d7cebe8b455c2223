// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/qibla_compass/internal/compass"
	"github.com/relabs-tech/qibla_compass/internal/gps"
	"github.com/relabs-tech/qibla_compass/internal/logging"
	"github.com/relabs-tech/qibla_compass/internal/orientation"
	"github.com/relabs-tech/qibla_compass/internal/session"
)

// Message types sent by the browser.
const (
	MsgLocation      = "location"
	MsgLocationError = "location_error"
	MsgPermission    = "permission"
	MsgOrientation   = "orientation"
	MsgCalibrate     = "calibrate"
	MsgRelocate      = "relocate"
)

// Message types sent to the browser.
const (
	RespQibla   = "qibla"
	RespHeading = "heading"
	RespError   = "error"
)

// ReasonSensorPermissionDenied is reported when orientation access is refused.
const ReasonSensorPermissionDenied = "sensor_permission_denied"

// WSMessage is one browser-to-server message. Which fields are set depends on Type.
type WSMessage struct {
	Type string `json:"type"`

	// location, relocate
	Lat       *float64 `json:"lat,omitempty"`
	Lng       *float64 `json:"lng,omitempty"`
	AccuracyM float64  `json:"accuracy,omitempty"`

	// location_error: W3C GeolocationPositionError code
	Code int `json:"code,omitempty"`

	// permission
	Granted *bool `json:"granted,omitempty"`

	// orientation
	Alpha                *float64 `json:"alpha,omitempty"`
	Absolute             bool     `json:"absolute,omitempty"`
	WebkitCompassHeading *float64 `json:"webkitCompassHeading,omitempty"`
	TimestampMs          int64    `json:"ts_ms,omitempty"`

	// calibrate
	OffsetDeg float64 `json:"offset_deg,omitempty"`
	Relative  bool    `json:"relative,omitempty"`
}

// WSResponse is one server-to-browser message.
type WSResponse struct {
	Type    string          `json:"type"`
	Qibla   *session.Qibla  `json:"qibla,omitempty"`
	Share   *session.Share  `json:"share,omitempty"`
	Update  *compass.Update `json:"update,omitempty"`
	Reason  string          `json:"reason,omitempty"`
	Message string          `json:"message,omitempty"`
}

// wsSession binds one websocket connection to one compass session. The
// browser acts as both location and orientation provider.
type wsSession struct {
	conn    *websocket.Conn
	sess    *session.Session
	server  *WebServer
	logger  zerolog.Logger
	writeMu sync.Mutex

	mu      sync.Mutex
	located bool
	failed  bool
}

func (s *WebServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("web: websocket upgrade error")
		return
	}
	defer conn.Close()

	params, _ := s.cfg.PrayerParams()
	ws := &wsSession{
		conn:   conn,
		server: s,
		sess: session.New(session.Options{
			Target:  s.cfg.Target(),
			Tracker: s.cfg.TrackerConfig(),
			Namer:   s.namer,
			Prayer:  params,
			Now:     s.now,
		}),
	}
	ws.logger = logging.Component("web").With().Str("session", ws.sess.ID()).Logger()
	ws.logger.Info().Str("remote", r.RemoteAddr).Msg("web: session opened")

	timer := time.AfterFunc(s.cfg.LocationTimeout(), ws.locationTimeout)
	defer timer.Stop()

	ctx := r.Context()
	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				ws.logger.Debug().Err(err).Msg("web: websocket read error")
			}
			break
		}
		ws.handle(ctx, msg)
	}
	ws.logger.Info().Msg("web: session closed")
}

func (ws *wsSession) handle(ctx context.Context, msg WSMessage) {
	switch msg.Type {
	case MsgLocation, MsgRelocate:
		ws.handleLocation(ctx, msg)

	case MsgLocationError:
		ws.fail(&gps.LocationError{Reason: gps.ReasonFromBrowserCode(msg.Code)})

	case MsgPermission:
		if msg.Granted != nil && !*msg.Granted {
			ws.fail(orientation.ErrPermissionDenied)
		}

	case MsgOrientation:
		ws.handleOrientation(msg)

	case MsgCalibrate:
		if _, err := applyCalibration(ws.sess, CalibrationMessage{OffsetDeg: msg.OffsetDeg, Relative: msg.Relative}); err != nil {
			ws.sendError("calibration", err.Error())
		}

	default:
		ws.sendError("bad_request", "unknown message type "+msg.Type)
	}
}

func (ws *wsSession) handleLocation(ctx context.Context, msg WSMessage) {
	if ws.isFailed() {
		return
	}
	if msg.Lat == nil || msg.Lng == nil {
		ws.fail(&gps.LocationError{Reason: gps.ReasonPositionUnavailable, Err: errors.New("missing coordinates")})
		return
	}
	fix := gps.Fix{Latitude: *msg.Lat, Longitude: *msg.Lng, Validity: "A", AccuracyM: msg.AccuracyM}

	q, err := ws.sess.ApplyFix(ctx, fix)
	if err != nil {
		if msg.Type == MsgRelocate {
			ws.sendError(string(gps.ReasonOf(err)), err.Error())
			return
		}
		ws.fail(err)
		return
	}
	ws.mu.Lock()
	ws.located = true
	ws.mu.Unlock()

	share, err := ws.sess.Share()
	if err != nil {
		ws.logger.Warn().Err(err).Msg("web: share payload")
	}
	ws.mirror(ws.server.cfg.TopicQibla, true, q)
	ws.send(WSResponse{Type: RespQibla, Qibla: &q, Share: &share})
}

func (ws *wsSession) handleOrientation(msg WSMessage) {
	update, err := ws.sess.HandleEvent(orientation.Event{
		Alpha:                msg.Alpha,
		Absolute:             msg.Absolute,
		WebkitCompassHeading: msg.WebkitCompassHeading,
		TimestampMs:          msg.TimestampMs,
	})
	if err != nil {
		// Samples before the first fix, skipped samples and samples after a
		// terminal failure are all ignored.
		return
	}
	if update.FacingChanged {
		ws.logger.Debug().Bool("facing", update.IsFacing).Msg("web: facing changed")
	}
	ws.mirror(ws.server.cfg.TopicHeading, false, update)
	ws.send(WSResponse{Type: RespHeading, Update: &update})
}

func (ws *wsSession) locationTimeout() {
	ws.mu.Lock()
	pending := !ws.located && !ws.failed
	ws.mu.Unlock()
	if pending {
		ws.fail(&gps.LocationError{Reason: gps.ReasonTimeout, Err: context.DeadlineExceeded})
	}
}

func (ws *wsSession) isFailed() bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.failed
}

// fail reports a terminal failure once.
func (ws *wsSession) fail(err error) {
	ws.mu.Lock()
	if ws.failed {
		ws.mu.Unlock()
		return
	}
	ws.failed = true
	ws.mu.Unlock()

	ws.sess.Fail(err)
	reason := string(gps.ReasonOf(err))
	if errors.Is(err, orientation.ErrPermissionDenied) {
		reason = ReasonSensorPermissionDenied
	}
	ws.sendError(reason, err.Error())
}

func (ws *wsSession) mirror(topic string, retained bool, v any) {
	if ws.server.publish == nil {
		return
	}
	if err := ws.server.publish(topic, retained, v); err != nil {
		ws.logger.Warn().Err(err).Str("topic", topic).Msg("web: mirror publish failed")
	}
}

func (ws *wsSession) send(resp WSResponse) {
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()
	if err := ws.conn.WriteJSON(resp); err != nil {
		ws.logger.Debug().Err(err).Msg("web: websocket write error")
	}
}

func (ws *wsSession) sendError(reason, message string) {
	ws.send(WSResponse{Type: RespError, Reason: reason, Message: message})
}

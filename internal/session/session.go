// Package session holds the in-memory state of one compass session: the
// origin fix, the bearing to the target and the heading tracker aimed at it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/qibla_compass/internal/compass"
	"github.com/relabs-tech/qibla_compass/internal/geo"
	"github.com/relabs-tech/qibla_compass/internal/geocode"
	"github.com/relabs-tech/qibla_compass/internal/gps"
	"github.com/relabs-tech/qibla_compass/internal/logging"
	"github.com/relabs-tech/qibla_compass/internal/orientation"
	"github.com/relabs-tech/qibla_compass/internal/prayer"
)

var (
	// ErrNotStarted is returned for operations that need a computed bearing.
	ErrNotStarted = errors.New("session not started")
	// ErrNoProvider is returned by Start and Relocate without a location provider.
	ErrNoProvider = errors.New("session has no location provider")
)

// placeLookupTimeout bounds the optional reverse geocoding call.
const placeLookupTimeout = 5 * time.Second

// Options configures a session.
type Options struct {
	Target   geo.GeoPoint // zero value means the Kaaba
	Provider gps.Provider
	Timeout  time.Duration // location wait, gps.DefaultTimeout when zero
	Tracker  compass.Config
	Namer    geocode.Namer // optional
	Prayer   prayer.Params // zero value means prayer.DefaultParams
	Now      func() time.Time
}

// Qibla is the result of a successful location + bearing computation.
type Qibla struct {
	SessionID         string       `json:"session_id"`
	Origin            geo.GeoPoint `json:"origin"`
	Target            geo.GeoPoint `json:"target"`
	BearingDegrees    float64      `json:"bearing_deg"`
	DistanceKm        float64      `json:"distance_km"`
	DisplayBearing    int          `json:"display_bearing_deg"`
	DisplayDistanceKm int          `json:"display_distance_km"`
	AccuracyM         float64      `json:"accuracy_m,omitempty"`
	Quality           gps.Quality  `json:"accuracy_quality,omitempty"`
	Place             string       `json:"place,omitempty"`
	Prayer            *prayer.Day  `json:"prayer,omitempty"` // nil where the sun does not rise or set
}

// Share is the payload for sharing a session's result.
type Share struct {
	Text     string           `json:"text"`
	MapsLink string           `json:"maps_link"`
	Feature  *geojson.Feature `json:"feature"`
}

// Session is safe for concurrent use; calls into the tracker are serialized.
type Session struct {
	id     string
	opts   Options
	logger zerolog.Logger

	mu      sync.Mutex
	fix     gps.Fix
	result  geo.BearingResult
	place   string
	prayer  *prayer.Day
	tracker *compass.Tracker
	failure error
}

// New creates an idle session.
func New(opts Options) *Session {
	if opts.Target == (geo.GeoPoint{}) {
		opts.Target = geo.Kaaba
	}
	if opts.Prayer.Method.Name == "" {
		opts.Prayer = prayer.DefaultParams()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	id := uuid.NewString()
	return &Session{
		id:     id,
		opts:   opts,
		logger: logging.Component("session").With().Str("session", id).Logger(),
	}
}

// ID returns the session's unique id.
func (s *Session) ID() string {
	return s.id
}

// Start performs the one-shot location request and computes the bearing.
// Location failures are terminal: the error is recorded and returned.
func (s *Session) Start(ctx context.Context) (Qibla, error) {
	if s.opts.Provider == nil {
		return Qibla{}, ErrNoProvider
	}
	fix, err := gps.Locate(ctx, s.opts.Provider, s.opts.Timeout)
	if err != nil {
		s.Fail(err)
		return Qibla{}, err
	}
	return s.ApplyFix(ctx, fix)
}

// Relocate requests a new fix and retargets the tracker (retry, orientation change).
func (s *Session) Relocate(ctx context.Context) (Qibla, error) {
	if s.opts.Provider == nil {
		return Qibla{}, ErrNoProvider
	}
	fix, err := gps.Locate(ctx, s.opts.Provider, s.opts.Timeout)
	if err != nil {
		return Qibla{}, err
	}
	return s.ApplyFix(ctx, fix)
}

// ApplyFix computes the bearing from fix. The first call creates the tracker;
// later calls retarget it and keep heading, offset and facing state.
func (s *Session) ApplyFix(ctx context.Context, fix gps.Fix) (Qibla, error) {
	result, err := geo.ComputeBearingAndDistance(fix.Point(), s.opts.Target)
	if err != nil {
		return Qibla{}, &gps.LocationError{Reason: gps.ReasonPositionUnavailable, Err: err}
	}

	place := s.lookupPlace(ctx, fix.Point())
	day := s.prayerDay(fix.Point())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fix = fix
	s.result = result
	s.place = place
	s.prayer = day
	s.failure = nil
	if s.tracker == nil {
		s.tracker = compass.NewTracker(s.opts.Tracker, result.BearingDegrees)
	} else {
		s.tracker.Retarget(result.BearingDegrees)
	}
	s.logger.Info().
		Float64("lat", fix.Latitude).
		Float64("lng", fix.Longitude).
		Float64("bearing", result.BearingDegrees).
		Float64("distance_km", result.DistanceKm).
		Msg("session: bearing computed")
	return s.qiblaLocked(), nil
}

func (s *Session) lookupPlace(ctx context.Context, p geo.GeoPoint) string {
	if s.opts.Namer == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, placeLookupTimeout)
	defer cancel()
	name, err := s.opts.Namer.PlaceName(ctx, p)
	if err != nil {
		s.logger.Warn().Err(err).Msg("session: place lookup failed")
		return ""
	}
	return name
}

func (s *Session) prayerDay(p geo.GeoPoint) *prayer.Day {
	day, err := prayer.ForDay(p, s.opts.Now(), s.opts.Prayer, s.opts.Tracker.Language)
	if err != nil {
		s.logger.Debug().Err(err).Msg("session: no prayer times")
		return nil
	}
	return &day
}

// Fail records a terminal initialization failure (location or sensor permission).
func (s *Session) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = err
	s.logger.Warn().Err(err).Msg("session: failed")
}

// Err returns the recorded failure, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// HandleEvent normalizes a raw platform orientation event and feeds it to the tracker.
func (s *Session) HandleEvent(e orientation.Event) (compass.Update, error) {
	sample, err := orientation.Normalize(e)
	if err != nil {
		return compass.Update{}, fmt.Errorf("%w: %w", compass.ErrInvalidSample, err)
	}
	return s.HandleSample(sample)
}

// HandleSample feeds an already-normalized sample to the tracker.
func (s *Session) HandleSample(sample orientation.Sample) (compass.Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return compass.Update{}, s.failure
	}
	if s.tracker == nil {
		return compass.Update{}, ErrNotStarted
	}
	return s.tracker.OnOrientationSample(sample.HeadingDegrees, sample.TimestampMs)
}

// Recalibrate sets the tracker's calibration offset.
func (s *Session) Recalibrate(offsetDegrees float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		return ErrNotStarted
	}
	s.tracker.Recalibrate(offsetDegrees)
	s.logger.Info().Float64("offset", offsetDegrees).Msg("session: recalibrated")
	return nil
}

// AdjustCalibration adds delta to the current offset and returns the new offset.
func (s *Session) AdjustCalibration(deltaDegrees float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		return 0, ErrNotStarted
	}
	offset := geo.NormalizeSigned(s.tracker.State().CalibrationOffsetDegrees + deltaDegrees)
	s.tracker.Recalibrate(offset)
	s.logger.Info().Float64("offset", offset).Msg("session: recalibrated")
	return offset, nil
}

// State returns the tracker state.
func (s *Session) State() (compass.TrackerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		return compass.TrackerState{}, ErrNotStarted
	}
	return s.tracker.State(), nil
}

// Qibla returns the last computed result.
func (s *Session) Qibla() (Qibla, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		return Qibla{}, ErrNotStarted
	}
	return s.qiblaLocked(), nil
}

func (s *Session) qiblaLocked() Qibla {
	q := Qibla{
		SessionID:         s.id,
		Origin:            s.fix.Point(),
		Target:            s.opts.Target,
		BearingDegrees:    s.result.BearingDegrees,
		DistanceKm:        s.result.DistanceKm,
		DisplayBearing:    s.result.DisplayBearing(),
		DisplayDistanceKm: s.result.DisplayDistanceKm(),
		Place:             s.place,
		Prayer:            s.prayer,
	}
	if s.fix.AccuracyM > 0 {
		q.AccuracyM = s.fix.AccuracyM
		q.Quality = gps.AccuracyQuality(s.fix.AccuracyM)
	}
	return q
}

// Share builds the share payload for the current result.
func (s *Session) Share() (Share, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		return Share{}, ErrNotStarted
	}
	return NewShare(s.fix.Point(), s.result), nil
}

// NewShare builds a share payload for origin and r.
func NewShare(origin geo.GeoPoint, r geo.BearingResult) Share {
	return Share{
		Text:     geo.ShareText(origin, r),
		MapsLink: geo.MapsLink(origin),
		Feature:  geo.Feature(origin, r),
	}
}

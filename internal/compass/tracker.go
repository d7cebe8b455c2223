// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package compass turns a stream of compass-heading samples into needle
// rotations and edge-triggered "facing the target" transitions.
package compass

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/relabs-tech/qibla_compass/internal/geo"
)

const (
	DefaultUpdateInterval  = 50 * time.Millisecond
	DefaultFacingThreshold = 8.0 // degrees
)

var (
	// ErrSkipped matches every sample the tracker declines to apply.
	ErrSkipped = errors.New("sample skipped")
	// ErrThrottled is returned for samples arriving inside the update interval.
	ErrThrottled = fmt.Errorf("%w: throttled", ErrSkipped)
	// ErrInvalidSample is returned for NaN or infinite headings.
	ErrInvalidSample = fmt.Errorf("%w: invalid heading", ErrSkipped)
)

// Config tunes the tracker.
type Config struct {
	UpdateInterval  time.Duration
	FacingThreshold float64 // degrees either side of the target bearing
	Language        Language
}

// DefaultConfig returns the documented defaults (50 ms, 8°, English).
func DefaultConfig() Config {
	return Config{
		UpdateInterval:  DefaultUpdateInterval,
		FacingThreshold: DefaultFacingThreshold,
		Language:        English,
	}
}

// TrackerState is the mutable session state owned by a Tracker.
type TrackerState struct {
	CurrentHeadingDegrees    float64 `json:"heading_deg"`
	CalibrationOffsetDegrees float64 `json:"offset_deg"`
	IsFacing                 bool    `json:"is_facing"`
	LastSampleTimestamp      int64   `json:"last_sample_ms"`
}

// Update is emitted for every accepted sample.
type Update struct {
	Heading        float64  `json:"heading_deg"`
	NeedleRotation float64  `json:"needle_rotation_deg"` // target bearing minus heading, unnormalized
	AbsAngle       float64  `json:"abs_angle_deg"`
	IsFacing       bool     `json:"is_facing"`
	FacingChanged  bool     `json:"facing_changed"`
	Haptic         bool     `json:"haptic"` // one-shot feedback request on becoming facing
	Cardinal       string   `json:"cardinal"`
	Guidance       Guidance `json:"guidance"`
	Message        string   `json:"message"` // Guidance in the configured language
	TimestampMs    int64    `json:"ts_ms"`
}

// Tracker holds one session's heading state. It is not safe for concurrent
// use; hosts feeding it from several goroutines must serialize calls.
type Tracker struct {
	cfg           Config
	targetBearing float64
	state         TrackerState
	primed        bool
	metrics       *metrics
}

// NewTracker creates a tracker aimed at targetBearing. Zero config fields fall back to defaults.
func NewTracker(cfg Config, targetBearing float64) *Tracker {
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = DefaultUpdateInterval
	}
	if cfg.FacingThreshold <= 0 {
		cfg.FacingThreshold = DefaultFacingThreshold
	}
	if cfg.Language == "" {
		cfg.Language = English
	}
	return &Tracker{
		cfg:           cfg,
		targetBearing: geo.Normalize360(targetBearing),
		metrics:       newMetrics(),
	}
}

// OnOrientationSample ingests one heading sample (degrees clockwise from north).
// Skipped samples return an error matching ErrSkipped and leave state untouched.
func (t *Tracker) OnOrientationSample(rawHeading float64, timestampMs int64) (Update, error) {
	if t.primed && timestampMs-t.state.LastSampleTimestamp < t.cfg.UpdateInterval.Milliseconds() {
		t.metrics.skipped(reasonThrottled)
		return Update{}, ErrThrottled
	}

	heading := geo.Normalize360(rawHeading + t.state.CalibrationOffsetDegrees)
	if math.IsNaN(heading) { // NaN and ±Inf both wrap to NaN
		t.metrics.skipped(reasonInvalid)
		return Update{}, ErrInvalidSample
	}

	needle := t.targetBearing - heading
	absAngle := math.Abs(geo.NormalizeSigned(needle))
	nowFacing := absAngle < t.cfg.FacingThreshold

	changed := nowFacing != t.state.IsFacing
	if changed {
		t.metrics.transition(nowFacing)
	}

	t.state.CurrentHeadingDegrees = heading
	t.state.LastSampleTimestamp = timestampMs
	t.state.IsFacing = nowFacing
	t.primed = true
	t.metrics.accepted()

	guidance := GuidanceFor(absAngle, t.cfg.FacingThreshold)
	return Update{
		Heading:        heading,
		NeedleRotation: needle,
		AbsAngle:       absAngle,
		IsFacing:       nowFacing,
		FacingChanged:  changed,
		Haptic:         changed && nowFacing,
		Cardinal:       CardinalDirection(heading, t.cfg.Language),
		Guidance:       guidance,
		Message:        guidance.Message(t.cfg.Language),
		TimestampMs:    timestampMs,
	}, nil
}

// Recalibrate sets the offset added to every subsequent raw heading.
func (t *Tracker) Recalibrate(offsetDegrees float64) {
	t.state.CalibrationOffsetDegrees = offsetDegrees
}

// Retarget points the tracker at a new bearing without resetting heading or facing state.
func (t *Tracker) Retarget(bearingDegrees float64) {
	t.targetBearing = geo.Normalize360(bearingDegrees)
}

// TargetBearing returns the normalized bearing the tracker aims at.
func (t *Tracker) TargetBearing() float64 {
	return t.targetBearing
}

// State returns a copy of the current state.
func (t *Tracker) State() TrackerState {
	return t.state
}

// Config returns the effective configuration.
func (t *Tracker) Config() Config {
	return t.cfg
}

// OffsetFor returns the calibration offset that makes observedHeading read as
// referenceBearing, in [-180,180).
func OffsetFor(referenceBearing, observedHeading float64) float64 {
	return geo.NormalizeSigned(referenceBearing - observedHeading)
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"context"
	"errors"
	"math"

	"github.com/relabs-tech/qibla_compass/internal/geo"
)

var (
	// ErrNoHeading means the event carried neither a compass heading nor an alpha angle.
	ErrNoHeading = errors.New("orientation event has no usable heading")
	// ErrPermissionDenied means the user refused access to the orientation sensor.
	ErrPermissionDenied = errors.New("orientation sensor permission denied")
)

// Event is a raw device-orientation event as delivered by the platform.
// Exactly which fields are set depends on the browser.
type Event struct {
	Alpha                *float64 `json:"alpha,omitempty"`                  // z-axis rotation, counter-clockwise
	Absolute             bool     `json:"absolute,omitempty"`               // alpha is referenced to north
	WebkitCompassHeading *float64 `json:"webkitCompassHeading,omitempty"`   // iOS, clockwise from north
	TimestampMs          int64    `json:"ts_ms"`
}

// Sample is the canonical heading sample fed to the compass tracker.
type Sample struct {
	HeadingDegrees float64 `json:"heading_deg"` // clockwise from north
	TimestampMs    int64   `json:"ts_ms"`
}

// Source is anything that can provide heading samples over time.
type Source interface {
	Next(ctx context.Context) (Sample, error)
}

// Normalize resolves a platform event into a single clockwise-from-north heading.
// A direct compass heading wins; otherwise heading = (360 - alpha) mod 360.
func Normalize(e Event) (Sample, error) {
	var heading float64
	switch {
	case e.WebkitCompassHeading != nil && !math.IsNaN(*e.WebkitCompassHeading):
		heading = *e.WebkitCompassHeading
	case e.Alpha != nil && !math.IsNaN(*e.Alpha):
		heading = 360 - *e.Alpha
	default:
		return Sample{}, ErrNoHeading
	}
	return Sample{
		HeadingDegrees: geo.Normalize360(heading),
		TimestampMs:    e.TimestampMs,
	}, nil
}

// Float is a helper for building Events with optional fields.
func Float(v float64) *float64 {
	return &v
}

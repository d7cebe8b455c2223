// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/relabs-tech/qibla_compass/internal/geo"
)

// DefaultTimeout bounds a single location request.
const DefaultTimeout = 15 * time.Second

// Reason classifies why a location could not be obtained.
type Reason string

const (
	ReasonPermissionDenied    Reason = "permission_denied"
	ReasonPositionUnavailable Reason = "position_unavailable"
	ReasonTimeout             Reason = "timeout"
	ReasonUnsupported         Reason = "unsupported"
	ReasonUnknown             Reason = "unknown"
)

var reasonMessages = map[Reason]string{
	ReasonPermissionDenied:    "please allow location access in the browser settings",
	ReasonPositionUnavailable: "position is currently unavailable",
	ReasonTimeout:             "the location request timed out",
	ReasonUnsupported:         "this device does not support geolocation",
	ReasonUnknown:             "unknown error",
}

// LocationError is the LocationUnavailable failure surfaced to the presentation layer.
type LocationError struct {
	Reason Reason
	Err    error
}

func (e *LocationError) Error() string {
	msg := "failed to get location: " + reasonMessages[e.Reason]
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LocationError) Unwrap() error {
	return e.Err
}

// ReasonOf extracts the reason from err, or ReasonUnknown.
func ReasonOf(err error) Reason {
	var le *LocationError
	if errors.As(err, &le) {
		return le.Reason
	}
	return ReasonUnknown
}

// ReasonFromBrowserCode maps W3C GeolocationPositionError codes.
func ReasonFromBrowserCode(code int) Reason {
	switch code {
	case 1:
		return ReasonPermissionDenied
	case 2:
		return ReasonPositionUnavailable
	case 3:
		return ReasonTimeout
	default:
		return ReasonUnknown
	}
}

// Provider supplies one position per request.
type Provider interface {
	Locate(ctx context.Context) (Fix, error)
}

// Locate asks p for a fix, bounded by timeout (DefaultTimeout when zero).
// Every failure comes back as a *LocationError.
func Locate(ctx context.Context, p Provider, timeout time.Duration) (Fix, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fix, err := p.Locate(ctx)
	if err == nil {
		if verr := fix.Point().Validate(); verr != nil {
			return Fix{}, &LocationError{Reason: ReasonPositionUnavailable, Err: verr}
		}
		return fix, nil
	}

	var le *LocationError
	switch {
	case errors.As(err, &le):
		return Fix{}, err
	case errors.Is(err, context.DeadlineExceeded):
		return Fix{}, &LocationError{Reason: ReasonTimeout, Err: err}
	default:
		return Fix{}, &LocationError{Reason: ReasonUnknown, Err: err}
	}
}

// StaticProvider always returns the same position.
type StaticProvider struct {
	Point     geo.GeoPoint
	AccuracyM float64
}

func (s StaticProvider) Locate(ctx context.Context) (Fix, error) {
	if err := ctx.Err(); err != nil {
		return Fix{}, err
	}
	return Fix{
		Latitude:  s.Point.Latitude,
		Longitude: s.Point.Longitude,
		Validity:  "A",
		AccuracyM: s.AccuracyM,
	}, nil
}

// FuncProvider adapts a function to Provider.
type FuncProvider func(ctx context.Context) (Fix, error)

func (f FuncProvider) Locate(ctx context.Context) (Fix, error) {
	return f(ctx)
}

func unavailable(format string, args ...any) error {
	return &LocationError{Reason: ReasonPositionUnavailable, Err: fmt.Errorf(format, args...)}
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package geo computes the initial great-circle bearing and haversine
// distance from the user's position to a fixed target.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius of the spherical model.
const EarthRadiusKm = 6371.0

// samePointRad is the central angle below which two points are the same
// place (about 6 micrometres on the ground).
const samePointRad = 1e-12

// ErrInvalidCoordinate is returned when a latitude or longitude is out of range or NaN.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// GeoPoint is a latitude/longitude pair in decimal degrees.
type GeoPoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Kaaba is the default target.
var Kaaba = GeoPoint{Latitude: 21.422487, Longitude: 39.826206}

// BearingResult is the direction and distance from an origin to the target.
type BearingResult struct {
	BearingDegrees float64 `json:"bearing_deg"` // [0,360), clockwise from north
	DistanceKm     float64 `json:"distance_km"` // exact, not rounded
}

// DisplayBearing returns the bearing rounded to a whole degree, wrapped so 359.6 shows as 0.
func (r BearingResult) DisplayBearing() int {
	return int(math.Round(r.BearingDegrees)) % 360
}

// DisplayDistanceKm returns the distance rounded to the nearest kilometre.
func (r BearingResult) DisplayDistanceKm() int {
	return int(math.Round(r.DistanceKm))
}

// Validate checks that the point lies within [-90,90] x [-180,180].
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Latitude) || p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v", ErrInvalidCoordinate, p.Latitude)
	}
	if math.IsNaN(p.Longitude) || p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v", ErrInvalidCoordinate, p.Longitude)
	}
	return nil
}

// ComputeBearingAndDistance returns the initial bearing and great-circle
// distance from origin to target. Coincident points, including the same pole
// or antimeridian written two ways, yield {0, 0}.
func ComputeBearingAndDistance(origin, target GeoPoint) (BearingResult, error) {
	if err := origin.Validate(); err != nil {
		return BearingResult{}, fmt.Errorf("origin: %w", err)
	}
	if err := target.Validate(); err != nil {
		return BearingResult{}, fmt.Errorf("target: %w", err)
	}
	φ1 := toRadians(origin.Latitude)
	φ2 := toRadians(target.Latitude)
	Δφ := φ2 - φ1
	Δλ := toRadians(target.Longitude - origin.Longitude)

	a := math.Sin(Δφ/2)*math.Sin(Δφ/2) +
		math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	if c < samePointRad {
		return BearingResult{}, nil
	}

	y := math.Sin(Δλ) * math.Cos(φ2)
	x := math.Cos(φ1)*math.Sin(φ2) - math.Sin(φ1)*math.Cos(φ2)*math.Cos(Δλ)
	bearing := Normalize360(toDegrees(math.Atan2(y, x)))

	return BearingResult{
		BearingDegrees: bearing,
		DistanceKm:     EarthRadiusKm * c,
	}, nil
}

// Normalize360 wraps any angle into [0,360).
func Normalize360(deg float64) float64 {
	n := math.Mod(deg, 360)
	if n < 0 {
		n += 360
	}
	// -1e-15 + 360 rounds up to 360 in float64
	if n >= 360 {
		n = 0
	}
	return n
}

// NormalizeSigned wraps any angle into [-180,180).
func NormalizeSigned(deg float64) float64 {
	return Normalize360(deg+180) - 180
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

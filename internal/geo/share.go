// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package geo

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// MapsLink returns a Google Maps link centred on p.
func MapsLink(p GeoPoint) string {
	return fmt.Sprintf("https://www.google.com/maps?q=%.6f,%.6f", p.Latitude, p.Longitude)
}

// ShareText is the plain text handed to a share sheet or clipboard.
func ShareText(origin GeoPoint, r BearingResult) string {
	return fmt.Sprintf("Qibla bearing: %d°\nDistance to the Kaaba: %d km\nLocation: %s",
		r.DisplayBearing(), r.DisplayDistanceKm(), MapsLink(origin))
}

// Point converts p to an orb point (lon, lat order).
func (p GeoPoint) Point() orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}

// Feature returns origin as a GeoJSON point feature carrying the bearing result.
func Feature(origin GeoPoint, r BearingResult) *geojson.Feature {
	f := geojson.NewFeature(origin.Point())
	f.Properties["bearing_deg"] = r.BearingDegrees
	f.Properties["distance_km"] = r.DistanceKm
	f.Properties["maps_link"] = MapsLink(origin)
	return f
}

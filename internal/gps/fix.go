package gps

import (
	"github.com/relabs-tech/qibla_compass/internal/geo"
)

// Fix represents a single combined GPS fix suitable for JSON and MQTT.
type Fix struct {
	Time       string  `json:"time"`        // e.g. "12:34:56"
	Date       string  `json:"date"`        // e.g. "06/12/25"
	Latitude   float64 `json:"lat"`         // decimal degrees
	Longitude  float64 `json:"lon"`         // decimal degrees
	SpeedKnots float64 `json:"speed_knots"` // speed over ground
	CourseDeg  float64 `json:"course_deg"`  // course over ground
	Validity   string  `json:"validity"`    // "A" (valid) / "V" (void), etc.
	HDOP       float64 `json:"hdop,omitempty"`
	AccuracyM  float64 `json:"accuracy_m,omitempty"` // horizontal accuracy estimate, metres
}

// Valid reports whether the receiver flagged the fix as usable.
func (f Fix) Valid() bool {
	return f.Validity == "A"
}

// Point returns the fix position.
func (f Fix) Point() geo.GeoPoint {
	return geo.GeoPoint{Latitude: f.Latitude, Longitude: f.Longitude}
}

// Quality is a coarse label for horizontal accuracy.
type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityMedium    Quality = "medium"
)

// AccuracyQuality grades an accuracy radius in metres.
func AccuracyQuality(metres float64) Quality {
	switch {
	case metres < 20:
		return QualityExcellent
	case metres < 50:
		return QualityGood
	default:
		return QualityMedium
	}
}

// uereMetres approximates a consumer receiver's range error; accuracy ≈ HDOP × UERE.
const uereMetres = 5.0

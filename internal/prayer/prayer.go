// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package prayer computes the daily prayer times for a position and the
// Hijri date shown next to them.
package prayer

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/relabs-tech/qibla_compass/internal/compass"
	"github.com/relabs-tech/qibla_compass/internal/geo"
)

// ErrNoSunrise is returned where the sun does not rise or does not set on the given day.
var ErrNoSunrise = errors.New("sun does not rise or set on this day")

// riseSetAngle is the sun's depression at sunrise and sunset, refraction included.
const riseSetAngle = 0.833

// Name identifies one of the daily times.
type Name string

const (
	Fajr    Name = "fajr"
	Sunrise Name = "sunrise"
	Dhuhr   Name = "dhuhr"
	Asr     Name = "asr"
	Maghrib Name = "maghrib"
	Isha    Name = "isha"
)

var nameLabels = map[compass.Language]map[Name]string{
	compass.English: {
		Fajr: "Fajr", Sunrise: "Sunrise", Dhuhr: "Dhuhr",
		Asr: "Asr", Maghrib: "Maghrib", Isha: "Isha",
	},
	compass.Arabic: {
		Fajr: "الفجر", Sunrise: "الشروق", Dhuhr: "الظهر",
		Asr: "العصر", Maghrib: "المغرب", Isha: "العشاء",
	},
}

// Label returns the localized name.
func (n Name) Label(lang compass.Language) string {
	if labels, ok := nameLabels[lang]; ok {
		return labels[n]
	}
	return nameLabels[compass.English][n]
}

// Madhab selects the Asr shadow length.
type Madhab int

const (
	Shafi  Madhab = iota // shadow equals object length; also Maliki and Hanbali
	Hanafi               // shadow twice the object length
)

// ParseMadhab accepts "shafi" or "hanafi".
func ParseMadhab(s string) (Madhab, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "shafi", "":
		return Shafi, nil
	case "hanafi":
		return Hanafi, nil
	default:
		return Shafi, fmt.Errorf("unknown madhab %q", s)
	}
}

func (m Madhab) String() string {
	if m == Hanafi {
		return "hanafi"
	}
	return "shafi"
}

func (m Madhab) shadowFactor() float64 {
	if m == Hanafi {
		return 2
	}
	return 1
}

// Method is a set of twilight angles used by a calculation authority.
type Method struct {
	Name         string
	FajrAngle    float64       // sun depression at Fajr, degrees
	IshaAngle    float64       // sun depression at Isha; ignored when IshaInterval is set
	IshaInterval time.Duration // fixed delay after Maghrib
	DhuhrAdjust  time.Duration
}

var (
	MuslimWorldLeague = Method{Name: "muslim_world_league", FajrAngle: 18, IshaAngle: 17, DhuhrAdjust: time.Minute}
	NorthAmerica      = Method{Name: "north_america", FajrAngle: 15, IshaAngle: 15, DhuhrAdjust: time.Minute}
	Egyptian          = Method{Name: "egyptian", FajrAngle: 19.5, IshaAngle: 17.5, DhuhrAdjust: time.Minute}
	Karachi           = Method{Name: "karachi", FajrAngle: 18, IshaAngle: 18, DhuhrAdjust: time.Minute}
	UmmAlQura         = Method{Name: "umm_al_qura", FajrAngle: 18.5, IshaInterval: 90 * time.Minute}
)

var methods = []Method{MuslimWorldLeague, NorthAmerica, Egyptian, Karachi, UmmAlQura}

// MethodByName looks up a method by its config name.
func MethodByName(name string) (Method, error) {
	for _, m := range methods {
		if m.Name == name {
			return m, nil
		}
	}
	return Method{}, fmt.Errorf("unknown calculation method %q", name)
}

// Params selects the method and Asr convention.
type Params struct {
	Method Method
	Madhab Madhab
}

// DefaultParams is Muslim World League with the Shafi Asr.
func DefaultParams() Params {
	return Params{Method: MuslimWorldLeague, Madhab: Shafi}
}

// Entry is one named time.
type Entry struct {
	Name Name      `json:"name"`
	At   time.Time `json:"at"`
}

// Times is one day's schedule. Times are in UTC and rounded to the minute.
type Times struct {
	Date    string    `json:"date"` // YYYY-MM-DD the schedule was computed for
	Fajr    time.Time `json:"fajr"`
	Sunrise time.Time `json:"sunrise"`
	Dhuhr   time.Time `json:"dhuhr"`
	Asr     time.Time `json:"asr"`
	Maghrib time.Time `json:"maghrib"`
	Isha    time.Time `json:"isha"`
}

// All returns the times in daily order.
func (t Times) All() []Entry {
	return []Entry{
		{Fajr, t.Fajr},
		{Sunrise, t.Sunrise},
		{Dhuhr, t.Dhuhr},
		{Asr, t.Asr},
		{Maghrib, t.Maghrib},
		{Isha, t.Isha},
	}
}

// Next returns the first time after now, or Fajr once Isha has passed.
func (t Times) Next(now time.Time) Name {
	for _, e := range t.All() {
		if e.At.After(now) {
			return e.Name
		}
	}
	return Fajr
}

// Compute returns the schedule at p for the calendar day of date.
func Compute(p geo.GeoPoint, date time.Time, params Params) (Times, error) {
	if err := p.Validate(); err != nil {
		return Times{}, err
	}
	y, m, d := date.Date()
	day := solarDay{
		lat: p.Latitude,
		jd:  julianDay(y, m, d) - p.Longitude/(15*24),
	}
	method := params.Method
	factor := params.Madhab.shadowFactor()

	// Hours in local mean solar time, refined from rough guesses.
	fajr, sunrise, dhuhr, asr, sunset, isha := 5.0, 6.0, 12.0, 13.0, 18.0, 18.0
	for i := 0; i < 2; i++ {
		fajr = day.hourAngleTime(method.FajrAngle, fajr, true)
		sunrise = day.hourAngleTime(riseSetAngle, sunrise, true)
		dhuhr = day.transit(dhuhr)
		asr = day.asr(factor, asr)
		sunset = day.hourAngleTime(riseSetAngle, sunset, false)
		isha = day.hourAngleTime(method.IshaAngle, isha, false)
	}
	if math.IsNaN(sunrise) || math.IsNaN(sunset) || math.IsNaN(asr) {
		return Times{}, fmt.Errorf("%w: lat %v on %04d-%02d-%02d", ErrNoSunrise, p.Latitude, y, m, d)
	}

	// Where twilight never gets deep enough, Fajr and Isha are kept within
	// the middle of the night.
	night := 24 - (sunset - sunrise)
	if method.IshaInterval > 0 {
		isha = sunset + method.IshaInterval.Hours()
	} else if math.IsNaN(isha) || isha-sunset > night/2 {
		isha = sunset + night/2
	}
	if math.IsNaN(fajr) || sunrise-fajr > night/2 {
		fajr = sunrise - night/2
	}

	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	at := func(hours float64) time.Time {
		utc := hours - p.Longitude/15
		return midnight.Add(time.Duration(utc * float64(time.Hour)))
	}
	return Times{
		Date:    midnight.Format(time.DateOnly),
		Fajr:    at(fajr).Round(time.Minute),
		Sunrise: at(sunrise).Round(time.Minute),
		Dhuhr:   at(dhuhr).Add(method.DhuhrAdjust).Round(time.Minute),
		Asr:     at(asr).Round(time.Minute),
		Maghrib: at(sunset).Round(time.Minute),
		Isha:    at(isha).Round(time.Minute),
	}, nil
}

// solarDay evaluates the sun's position for one day at one latitude.
// jd is the Julian day at local mean midnight.
type solarDay struct {
	lat float64
	jd  float64
}

// position returns the sun's declination (degrees) and the equation of time (hours).
func (d solarDay) position(hours float64) (decl, eqt float64) {
	n := d.jd + hours/24 - 2451545.0
	g := fixAngle(357.529 + 0.98560028*n)
	q := fixAngle(280.459 + 0.98564736*n)
	l := fixAngle(q + 1.915*dsin(g) + 0.020*dsin(2*g))
	e := 23.439 - 0.00000036*n

	ra := fixHour(degrees(math.Atan2(dcos(e)*dsin(l), dcos(l))) / 15)
	return degrees(math.Asin(dsin(e) * dsin(l))), q/15 - ra
}

func (d solarDay) transit(hours float64) float64 {
	_, eqt := d.position(hours)
	return fixHour(12 - eqt)
}

// hourAngleTime returns when the sun is angle degrees below the horizon,
// before or after transit. NaN means it never gets there.
func (d solarDay) hourAngleTime(angle, hours float64, beforeNoon bool) float64 {
	decl, _ := d.position(hours)
	noon := d.transit(hours)
	cosT := (-dsin(angle) - dsin(decl)*dsin(d.lat)) / (dcos(decl) * dcos(d.lat))
	if cosT < -1 || cosT > 1 || math.IsNaN(cosT) {
		return math.NaN()
	}
	t := degrees(math.Acos(cosT)) / 15
	if beforeNoon {
		return noon - t
	}
	return noon + t
}

func (d solarDay) asr(factor, hours float64) float64 {
	decl, _ := d.position(hours)
	altitude := degrees(math.Atan(1 / (factor + math.Tan(radians(math.Abs(d.lat-decl))))))
	return d.hourAngleTime(-altitude, hours, false)
}

// julianDay returns the Julian day at 0h UT of a Gregorian date.
func julianDay(year int, month time.Month, day int) float64 {
	y, m := year, int(month)
	if m <= 2 {
		y--
		m += 12
	}
	a := math.Floor(float64(y) / 100)
	b := 2 - a + math.Floor(a/4)
	return math.Floor(365.25*float64(y+4716)) + math.Floor(30.6001*float64(m+1)) + float64(day) + b - 1524.5
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }
func dsin(deg float64) float64    { return math.Sin(radians(deg)) }
func dcos(deg float64) float64    { return math.Cos(radians(deg)) }

func fixAngle(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}

func fixHour(h float64) float64 {
	h = math.Mod(h, 24)
	if h < 0 {
		h += 24
	}
	return h
}

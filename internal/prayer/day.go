package prayer

import (
	"time"

	"github.com/relabs-tech/qibla_compass/internal/compass"
	"github.com/relabs-tech/qibla_compass/internal/geo"
)

// Day is the prayer schedule and Hijri date for one position on one day.
type Day struct {
	Times     Times     `json:"times"`
	Next      Name      `json:"next"`
	Hijri     HijriDate `json:"hijri"`
	HijriText string    `json:"hijri_text"`
}

// ForDay computes the schedule for the local day at p that contains now.
func ForDay(p geo.GeoPoint, now time.Time, params Params, lang compass.Language) (Day, error) {
	local := SolarDate(now, p.Longitude)
	times, err := Compute(p, local, params)
	if err != nil {
		return Day{}, err
	}
	h := ToHijri(local)
	return Day{
		Times:     times,
		Next:      times.Next(now),
		Hijri:     h,
		HijriText: h.Format(lang),
	}, nil
}

// SolarDate shifts now to local mean solar time at longitude lng, which
// selects the calendar day there without a time zone database.
func SolarDate(now time.Time, lng float64) time.Time {
	return now.UTC().Add(time.Duration(lng / 15 * float64(time.Hour)))
}

package prayer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/qibla_compass/internal/compass"
	"github.com/relabs-tech/qibla_compass/internal/geo"
)

func clock(t *testing.T, times Times, zone *time.Location) map[Name]string {
	t.Helper()
	out := make(map[Name]string)
	for _, e := range times.All() {
		out[e.Name] = e.At.In(zone).Format("15:04")
	}
	return out
}

func TestCompute_Raleigh(t *testing.T) {
	raleigh := geo.GeoPoint{Latitude: 35.7750, Longitude: -78.6336}
	date := time.Date(2015, time.July, 12, 0, 0, 0, 0, time.UTC)

	times, err := Compute(raleigh, date, Params{Method: NorthAmerica, Madhab: Hanafi})
	require.NoError(t, err)

	edt := time.FixedZone("EDT", -4*3600)
	assert.Equal(t, "2015-07-12", times.Date)
	assert.Equal(t, map[Name]string{
		Fajr:    "04:42",
		Sunrise: "06:08",
		Dhuhr:   "13:21",
		Asr:     "18:22",
		Maghrib: "20:32",
		Isha:    "21:57",
	}, clock(t, times, edt))
}

func TestCompute_Makkah(t *testing.T) {
	makkah := geo.GeoPoint{Latitude: 21.4225, Longitude: 39.8262}
	date := time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)

	times, err := Compute(makkah, date, DefaultParams())
	require.NoError(t, err)

	ast := time.FixedZone("AST", 3*3600)
	assert.Equal(t, map[Name]string{
		Fajr:    "05:19",
		Sunrise: "06:33",
		Dhuhr:   "12:32",
		Asr:     "15:54",
		Maghrib: "18:29",
		Isha:    "19:38",
	}, clock(t, times, ast))
}

func TestCompute_IshaInterval(t *testing.T) {
	makkah := geo.GeoPoint{Latitude: 21.4225, Longitude: 39.8262}
	date := time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)

	times, err := Compute(makkah, date, Params{Method: UmmAlQura})
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, times.Isha.Sub(times.Maghrib))
}

func TestCompute_HanafiAsrIsLater(t *testing.T) {
	p := geo.GeoPoint{Latitude: 51.5074, Longitude: -0.1278}
	date := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)

	shafi, err := Compute(p, date, Params{Method: MuslimWorldLeague, Madhab: Shafi})
	require.NoError(t, err)
	hanafi, err := Compute(p, date, Params{Method: MuslimWorldLeague, Madhab: Hanafi})
	require.NoError(t, err)

	assert.True(t, hanafi.Asr.After(shafi.Asr))
	assert.Equal(t, shafi.Dhuhr, hanafi.Dhuhr)
}

func TestCompute_ShortSummerNight(t *testing.T) {
	// Around the solstice the sun never reaches 18° below the horizon in London.
	london := geo.GeoPoint{Latitude: 51.5074, Longitude: -0.1278}
	date := time.Date(2024, time.June, 21, 0, 0, 0, 0, time.UTC)

	times, err := Compute(london, date, DefaultParams())
	require.NoError(t, err)

	night := 24*time.Hour - times.Maghrib.Sub(times.Sunrise)
	assert.True(t, times.Fajr.Before(times.Sunrise))
	assert.True(t, times.Isha.After(times.Maghrib))
	assert.InDelta(t, night.Minutes()/2, times.Sunrise.Sub(times.Fajr).Minutes(), 2)
	assert.InDelta(t, night.Minutes()/2, times.Isha.Sub(times.Maghrib).Minutes(), 2)
}

func TestCompute_MidnightSun(t *testing.T) {
	tromso := geo.GeoPoint{Latitude: 69.6492, Longitude: 18.9553}
	date := time.Date(2024, time.June, 21, 0, 0, 0, 0, time.UTC)

	_, err := Compute(tromso, date, DefaultParams())
	assert.ErrorIs(t, err, ErrNoSunrise)
}

func TestCompute_InvalidPoint(t *testing.T) {
	_, err := Compute(geo.GeoPoint{Latitude: 100}, time.Now(), DefaultParams())
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinate)
}

func TestTimes_Next(t *testing.T) {
	raleigh := geo.GeoPoint{Latitude: 35.7750, Longitude: -78.6336}
	times, err := Compute(raleigh, time.Date(2015, time.July, 12, 0, 0, 0, 0, time.UTC), DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, Fajr, times.Next(times.Fajr.Add(-time.Hour)))
	assert.Equal(t, Dhuhr, times.Next(times.Dhuhr.Add(-time.Minute)))
	assert.Equal(t, Asr, times.Next(times.Dhuhr))
	assert.Equal(t, Fajr, times.Next(times.Isha.Add(time.Minute)))
}

func TestMethodByName(t *testing.T) {
	m, err := MethodByName("umm_al_qura")
	require.NoError(t, err)
	assert.Equal(t, UmmAlQura, m)

	_, err = MethodByName("tokyo")
	assert.Error(t, err)
}

func TestParseMadhab(t *testing.T) {
	m, err := ParseMadhab("Hanafi")
	require.NoError(t, err)
	assert.Equal(t, Hanafi, m)
	assert.Equal(t, "hanafi", m.String())

	m, err = ParseMadhab("")
	require.NoError(t, err)
	assert.Equal(t, Shafi, m)

	_, err = ParseMadhab("zahiri")
	assert.Error(t, err)
}

func TestNameLabel(t *testing.T) {
	assert.Equal(t, "Maghrib", Maghrib.Label(compass.English))
	assert.Equal(t, "المغرب", Maghrib.Label(compass.Arabic))
	assert.Equal(t, "Fajr", Fajr.Label(compass.Language("xx")))
}

func TestToHijri(t *testing.T) {
	tests := []struct {
		date time.Time
		want HijriDate
	}{
		{time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC), HijriDate{Year: 1445, Month: 9, Day: 1, Calendar: UmmAlQuraCalendar}},
		{time.Date(2024, time.July, 7, 23, 30, 0, 0, time.UTC), HijriDate{Year: 1446, Month: 1, Day: 1, Calendar: UmmAlQuraCalendar}},
		{time.Date(2080, time.June, 1, 0, 0, 0, 0, time.UTC), HijriDate{Year: 1503, Month: 8, Day: 12, Calendar: TabularCalendar}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToHijri(tt.date), "date %s", tt.date.Format(time.DateOnly))
	}
}

func TestHijriDate_Format(t *testing.T) {
	h := HijriDate{Year: 1445, Month: 9, Day: 1, Calendar: UmmAlQuraCalendar}
	assert.Equal(t, "1 Ramadan 1445 AH", h.Format(compass.English))
	assert.Equal(t, "1 رمضان 1445 هـ", h.Format(compass.Arabic))
	assert.Empty(t, HijriDate{}.Format(compass.English))
	assert.Empty(t, HijriDate{Month: 13}.MonthName(compass.English))
}

func TestForDay(t *testing.T) {
	// 22:00 UTC is already the next morning in Makkah.
	now := time.Date(2024, time.March, 10, 22, 0, 0, 0, time.UTC)

	day, err := ForDay(geo.Kaaba, now, DefaultParams(), compass.English)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-11", day.Times.Date)
	assert.Equal(t, Fajr, day.Next)
	assert.Equal(t, "1 Ramadan 1445 AH", day.HijriText)
	assert.True(t, day.Times.Fajr.After(now))
}

func TestSolarDate(t *testing.T) {
	now := time.Date(2024, time.March, 11, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, 10, SolarDate(now, -90).Day())
	assert.Equal(t, 11, SolarDate(now, 0).Day())
	assert.Equal(t, 11, SolarDate(now, 90).Day())
}

package prayer

import (
	"fmt"
	"time"

	"github.com/hablullah/go-hijri"

	"github.com/relabs-tech/qibla_compass/internal/compass"
)

// Calendar names the Hijri reckoning a date came from.
type Calendar string

const (
	UmmAlQuraCalendar Calendar = "umm_al_qura"
	TabularCalendar   Calendar = "tabular" // arithmetic, used outside the Umm al-Qura tables
)

// HijriDate is a day in the Islamic calendar.
type HijriDate struct {
	Year     int      `json:"year"`
	Month    int      `json:"month"` // 1 = Muharram
	Day      int      `json:"day"`
	Calendar Calendar `json:"calendar"`
}

var hijriMonths = map[compass.Language][12]string{
	compass.English: {
		"Muharram", "Safar", "Rabi al-Awwal", "Rabi al-Thani", "Jumada al-Awwal", "Jumada al-Thani",
		"Rajab", "Shaban", "Ramadan", "Shawwal", "Dhu al-Qadah", "Dhu al-Hijjah",
	},
	compass.Arabic: {
		"محرم", "صفر", "ربيع الأول", "ربيع الآخر", "جمادى الأولى", "جمادى الآخرة",
		"رجب", "شعبان", "رمضان", "شوال", "ذو القعدة", "ذو الحجة",
	},
}

// ToHijri converts the calendar day of date. Umm al-Qura is used where its
// tables reach (1937 to 2077) and the tabular calendar elsewhere.
// The zero value is returned for dates before the Hijri epoch.
func ToHijri(date time.Time) HijriDate {
	y, m, d := date.Date()
	noon := time.Date(y, m, d, 12, 0, 0, 0, time.UTC)

	if uq, err := hijri.CreateUmmAlQuraDate(noon); err == nil {
		return HijriDate{Year: int(uq.Year), Month: int(uq.Month), Day: int(uq.Day), Calendar: UmmAlQuraCalendar}
	}
	h, err := hijri.CreateHijriDate(noon, hijri.Default)
	if err != nil {
		return HijriDate{}
	}
	return HijriDate{Year: int(h.Year), Month: int(h.Month), Day: int(h.Day), Calendar: TabularCalendar}
}

// MonthName returns the localized month name, or "" for the zero date.
func (h HijriDate) MonthName(lang compass.Language) string {
	if h.Month < 1 || h.Month > 12 {
		return ""
	}
	names, ok := hijriMonths[lang]
	if !ok {
		names = hijriMonths[compass.English]
	}
	return names[h.Month-1]
}

// Format renders the date as "1 Ramadan 1445 AH" or its Arabic form.
func (h HijriDate) Format(lang compass.Language) string {
	if h.Year == 0 {
		return ""
	}
	if lang == compass.Arabic {
		return fmt.Sprintf("%d %s %d هـ", h.Day, h.MonthName(lang), h.Year)
	}
	return fmt.Sprintf("%d %s %d AH", h.Day, h.MonthName(lang), h.Year)
}

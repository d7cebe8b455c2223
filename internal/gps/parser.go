package gps

import (
	"strings"

	nmea "github.com/adrianmo/go-nmea"
)

// Parser accumulates NMEA sentences into a Fix. RMC completes a fix; GGA only
// refreshes the dilution of precision used for the accuracy estimate.
type Parser struct {
	current Fix
}

// Feed parses one line. It returns the updated fix and true whenever an RMC
// sentence was consumed. Noise, partial lines and unknown sentences are ignored.
func (p *Parser) Feed(line string) (Fix, bool) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, "$") {
		return Fix{}, false
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return Fix{}, false
	}

	switch sentence.DataType() {
	case nmea.TypeRMC:
		m := sentence.(nmea.RMC)
		p.current.Time = m.Time.String()
		p.current.Date = m.Date.String()
		p.current.Latitude = m.Latitude
		p.current.Longitude = m.Longitude
		p.current.SpeedKnots = m.Speed
		p.current.CourseDeg = m.Course
		p.current.Validity = string(m.Validity)
		return p.current, true

	case nmea.TypeGGA:
		m := sentence.(nmea.GGA)
		if m.HDOP > 0 {
			p.current.HDOP = m.HDOP
			p.current.AccuracyM = m.HDOP * uereMetres
		}
	}
	return Fix{}, false
}

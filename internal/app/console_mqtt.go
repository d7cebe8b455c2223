package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/qibla_compass/internal/compass"
	"github.com/relabs-tech/qibla_compass/internal/config"
	"github.com/relabs-tech/qibla_compass/internal/geo"
	"github.com/relabs-tech/qibla_compass/internal/gps"
	"github.com/relabs-tech/qibla_compass/internal/prayer"
	"github.com/relabs-tech/qibla_compass/internal/session"
)

// defaultConsoleOrigin is a point in London, used when no static location is configured.
var defaultConsoleOrigin = geo.GeoPoint{Latitude: 51.5074, Longitude: -0.1278}

// FormatQibla renders a bearing result as one console line.
func FormatQibla(q session.Qibla) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[QIBLA] bearing=%d° (%.2f) distance=%dkm from lat=%.6f lng=%.6f",
		q.DisplayBearing, q.BearingDegrees, q.DisplayDistanceKm, q.Origin.Latitude, q.Origin.Longitude)
	if q.Place != "" {
		fmt.Fprintf(&b, " place=%q", q.Place)
	}
	if q.Quality != "" {
		fmt.Fprintf(&b, " accuracy=%.0fm (%s)", q.AccuracyM, q.Quality)
	}
	return b.String()
}

// FormatPrayer renders the Hijri date and prayer schedule as one console line,
// with times shown in loc.
func FormatPrayer(day prayer.Day, lang compass.Language, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("[PRAY ] ")
	if day.HijriText != "" {
		b.WriteString(day.HijriText)
		b.WriteString(" |")
	}
	for _, e := range day.Times.All() {
		fmt.Fprintf(&b, " %s %s", e.Name.Label(lang), e.At.In(loc).Format("15:04"))
		if e.Name == day.Next {
			b.WriteString("*")
		}
	}
	return b.String()
}

// FormatUpdate renders a tracker update as one console line.
func FormatUpdate(u compass.Update, lang compass.Language) string {
	line := fmt.Sprintf("[HEAD ] heading=%6.2f° %-2s needle=%7.2f° off=%6.2f° %s",
		u.Heading, u.Cardinal, u.NeedleRotation, u.AbsAngle, u.Guidance.Message(lang))
	if u.Haptic {
		line += "  *buzz*"
	}
	return line
}

// FormatFix renders a GPS fix as one console line.
func FormatFix(f gps.Fix) string {
	return fmt.Sprintf("[GPS  ] time=%s date=%s lat=%.6f lon=%.6f hdop=%.1f validity=%s",
		f.Time, f.Date, f.Latitude, f.Longitude, f.HDOP, f.Validity)
}

// RunConsoleMQTT prints bearing, heading and GPS traffic until interrupted.
func RunConsoleMQTT() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	lang := cfg.TrackerConfig().Language

	if err := subscribeJSON(client, cfg.TopicQibla, func(q session.Qibla) {
		fmt.Println(FormatQibla(q))
		if q.Prayer != nil {
			fmt.Println(FormatPrayer(*q.Prayer, lang, time.Local))
		}
	}); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicHeading, func(u compass.Update) {
		fmt.Println(FormatUpdate(u, lang))
	}); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicGPS, func(f gps.Fix) {
		fmt.Println(FormatFix(f))
	}); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	<-ctx.Done()

	log.Info().Msg("console: shutting down")
	client.Disconnect(250)
	return nil
}

package app

import (
	"fmt"
	"image"
	"image/draw"
	"math"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/qibla_compass/internal/compass"
	"github.com/relabs-tech/qibla_compass/internal/config"
	"github.com/relabs-tech/qibla_compass/internal/logging"
	"github.com/relabs-tech/qibla_compass/internal/session"
)

const (
	displayWidth  = 128
	displayHeight = 64
	dialRadius    = 30
)

var dialCenter = image.Pt(32, 32)

// DisplayData holds the latest data for display
type DisplayData struct {
	mu sync.RWMutex

	qibla     session.Qibla
	haveQibla bool

	update     compass.Update
	haveUpdate bool
}

func (d *DisplayData) setQibla(q session.Qibla) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.qibla = q
	d.haveQibla = true
}

func (d *DisplayData) setUpdate(u compass.Update) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.update = u
	d.haveUpdate = true
}

// displaySnapshot is a lock-free copy of DisplayData.
type displaySnapshot struct {
	qibla      session.Qibla
	haveQibla  bool
	update     compass.Update
	haveUpdate bool
}

func (d *DisplayData) snapshot() displaySnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return displaySnapshot{
		qibla:      d.qibla,
		haveQibla:  d.haveQibla,
		update:     d.update,
		haveUpdate: d.haveUpdate,
	}
}

// RunDisplay renders heading updates on an SSD1306 OLED.
func RunDisplay() error {
	cfg := config.Get()
	logger := logging.Component("display")

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Empty name opens the first available bus.
	bus, err := i2creg.Open(cfg.DisplayI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	defer dev.Halt()
	logger.Info().Str("device", dev.String()).Msg("initialized")

	if err := showSplash(dev); err != nil {
		logger.Warn().Err(err).Msg("error showing splash")
	}

	data := &DisplayData{}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	if err := subscribeJSON(client, cfg.TopicQibla, data.setQibla); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicHeading, data.setUpdate); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	logger.Info().Msg("starting update loop")
	var last displaySnapshot
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down")
			return nil
		case <-ticker.C:
		}

		snap := data.snapshot()
		if snap == last {
			continue
		}
		last = snap
		if err := drawFrame(dev, snap); err != nil {
			logger.Warn().Err(err).Msg("error updating display")
		}
	}
}

func newFrame() *image1bit.VerticalLSB {
	return image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
}

func drawFrame(dev display.Drawer, snap displaySnapshot) error {
	img := newFrame()
	renderCompass(img, snap)
	return dev.Draw(dev.Bounds(), img, image.Point{})
}

func newTextDrawer(dst draw.Image) *font.Drawer {
	return &font.Drawer{
		Dst:  dst,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
}

// renderCompass draws the dial on the left half and the readout on the right.
func renderCompass(img draw.Image, snap displaySnapshot) {
	drawer := newTextDrawer(img)

	if !snap.haveQibla {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawString("Qibla compass")
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawString("Locating...")
		return
	}

	heading := 0.0
	if snap.haveUpdate {
		heading = snap.update.Heading
	}

	// The dial turns with the device so north stays north.
	for _, t := range compass.Ticks() {
		inner := dialRadius - 2
		switch t.Kind {
		case compass.TickLong:
			inner = dialRadius - 6
		case compass.TickMedium:
			inner = dialRadius - 4
		}
		if t.Kind == compass.TickMinor && t.Degree%10 != 0 {
			continue // too dense for 64 px
		}
		angle := float64(t.Degree) - heading
		drawLine(img, polar(angle, float64(inner)), polar(angle, dialRadius))
	}
	n := polar(-heading, dialRadius-13)
	drawer.Dot = fixed.P(n.X-3, n.Y+5)
	drawer.DrawString("N")

	// Needle toward the target, relative to the device's top.
	needle := snap.qibla.BearingDegrees - heading
	drawLine(img, dialCenter, polar(needle, dialRadius-3))
	drawLine(img, dialCenter.Add(image.Pt(1, 0)), polar(needle, dialRadius-3).Add(image.Pt(1, 0)))

	drawer.Dot = fixed.P(66, 13)
	drawer.DrawString(fmt.Sprintf("Q %3d", snap.qibla.DisplayBearing))
	drawer.Dot = fixed.P(66, 26)
	drawer.DrawString(fmt.Sprintf("%dkm", snap.qibla.DisplayDistanceKm))

	if !snap.haveUpdate {
		drawer.Dot = fixed.P(66, 52)
		drawer.DrawString("no hdg")
		return
	}
	drawer.Dot = fixed.P(66, 39)
	drawer.DrawString(fmt.Sprintf("H %3.0f %s", math.Round(heading), snap.update.Cardinal))
	drawer.Dot = fixed.P(66, 52)
	if snap.update.IsFacing {
		drawer.DrawString("FACING")
	} else {
		drawer.DrawString(fmt.Sprintf("off %3.0f", snap.update.AbsAngle))
	}
}

// polar returns the point at degrees (clockwise from up) and radius r from the dial centre.
func polar(degrees, r float64) image.Point {
	rad := degrees * math.Pi / 180
	return image.Pt(
		dialCenter.X+int(math.Round(r*math.Sin(rad))),
		dialCenter.Y-int(math.Round(r*math.Cos(rad))),
	)
}

// drawLine plots a 1 px Bresenham line.
func drawLine(img draw.Image, a, b image.Point) {
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	err := dx + dy
	for {
		img.Set(a.X, a.Y, image1bit.On)
		if a == b {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			a.X += sx
		}
		if e2 <= dx {
			err += dx
			a.Y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func showSplash(dev display.Drawer) error {
	img := newFrame()
	drawer := newTextDrawer(img)
	drawer.Dot = fixed.P(20, 26)
	drawer.DrawString("QIBLA")
	drawer.Dot = fixed.P(20, 45)
	drawer.DrawString("COMPASS")
	return dev.Draw(dev.Bounds(), img, image.Point{})
}

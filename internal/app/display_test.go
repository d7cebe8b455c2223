package app

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/qibla_compass/internal/compass"
	"github.com/relabs-tech/qibla_compass/internal/session"
)

type fakeDrawer struct {
	frames []image.Image
}

func (f *fakeDrawer) String() string              { return "fake" }
func (f *fakeDrawer) Halt() error                 { return nil }
func (f *fakeDrawer) ColorModel() color.Model     { return image1bit.BitModel }
func (f *fakeDrawer) Bounds() image.Rectangle     { return image.Rect(0, 0, displayWidth, displayHeight) }
func (f *fakeDrawer) Draw(_ image.Rectangle, src image.Image, _ image.Point) error {
	f.frames = append(f.frames, src)
	return nil
}

func litPixels(img *image1bit.VerticalLSB, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.BitAt(x, y) == image1bit.On {
				n++
			}
		}
	}
	return n
}

func TestPolar(t *testing.T) {
	assert.Equal(t, image.Pt(32, 2), polar(0, 30))
	assert.Equal(t, image.Pt(62, 32), polar(90, 30))
	assert.Equal(t, image.Pt(32, 62), polar(180, 30))
	assert.Equal(t, image.Pt(2, 32), polar(-90, 30))
}

func TestDrawLine(t *testing.T) {
	img := newFrame()
	drawLine(img, image.Pt(0, 0), image.Pt(10, 0))
	assert.Equal(t, 11, litPixels(img, img.Bounds()))

	img = newFrame()
	drawLine(img, image.Pt(5, 5), image.Pt(0, 0))
	assert.Equal(t, image1bit.On, img.BitAt(3, 3))
}

func TestRenderCompass_Waiting(t *testing.T) {
	img := newFrame()
	renderCompass(img, displaySnapshot{})
	assert.Positive(t, litPixels(img, img.Bounds()))
	assert.Zero(t, litPixels(img, image.Rect(0, 44, displayWidth, displayHeight)), "two text lines only")
}

func TestRenderCompass_NeedlePointsAtTarget(t *testing.T) {
	snap := displaySnapshot{
		qibla:      session.Qibla{BearingDegrees: 90, DisplayBearing: 90, DisplayDistanceKm: 5},
		haveQibla:  true,
		update:     compass.Update{Heading: 90, IsFacing: true, Cardinal: "E"},
		haveUpdate: true,
	}
	img := newFrame()
	renderCompass(img, snap)

	// Facing: the needle runs straight up from the centre.
	for y := 10; y < dialCenter.Y; y++ {
		assert.Equal(t, image1bit.On, img.BitAt(dialCenter.X, y), "y=%d", y)
	}
	assert.Positive(t, litPixels(img, image.Rect(66, 0, displayWidth, displayHeight)))
}

func TestDrawFrame(t *testing.T) {
	dev := &fakeDrawer{}
	require.NoError(t, showSplash(dev))
	require.NoError(t, drawFrame(dev, displaySnapshot{}))
	assert.Len(t, dev.frames, 2)
}

func TestDisplayData(t *testing.T) {
	var d DisplayData
	assert.Equal(t, displaySnapshot{}, d.snapshot())

	d.setQibla(session.Qibla{DisplayBearing: 319})
	d.setUpdate(compass.Update{Heading: 12})
	snap := d.snapshot()
	assert.True(t, snap.haveQibla)
	assert.True(t, snap.haveUpdate)
	assert.Equal(t, 319, snap.qibla.DisplayBearing)
	assert.Equal(t, 12.0, snap.update.Heading)
}

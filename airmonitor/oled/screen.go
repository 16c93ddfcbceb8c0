// Package oled renders monitor status onto a 128x64 monochrome panel.
package oled

import (
	"fmt"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/alepar/airmonitor/airmonitor"
)

// Panel is the flushable display; *ssd1306.Dev satisfies it.
type Panel interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

// Five rows of Face7x13, including the last row's descent, fit in 64 px.
const (
	rowHeight     = 12
	ssidPreviewLn = 16
)

type textLine struct {
	x, row int
	text   string
}

type Screen struct {
	Panel Panel
	face  font.Face
}

func NewScreen(panel Panel) *Screen {
	return &Screen{Panel: panel, face: basicfont.Face7x13}
}

func (screen *Screen) RenderReadings(reading airmonitor.Reading, connectivity string) error {
	return screen.render(readingLines(reading, connectivity))
}

func (screen *Screen) RenderConnecting(ssid string) error {
	return screen.render([]textLine{
		{0, 2, "Connecting WiFi..."},
		{0, 3, preview(ssid)},
	})
}

func (screen *Screen) RenderSending() error {
	return screen.render([]textLine{
		{0, 2, "Sending report..."},
	})
}

func readingLines(reading airmonitor.Reading, connectivity string) []textLine {
	temperature, humidity := "--.-", "--.-"
	if reading.ClimateValid {
		temperature = fmt.Sprintf("%.1f", reading.Temperature)
		humidity = fmt.Sprintf("%.1f", reading.Humidity)
	}
	return []textLine{
		{0, 0, "-- Air Monitor --"},
		{0, 1, "Temp: " + temperature + " C"},
		{0, 2, "Hum: " + humidity + " %"},
		{0, 3, "CO2 Eq:"},
		{56, 3, fmt.Sprintf("%d PPM", int64(reading.PPM))},
		{0, 4, fmt.Sprintf("%s W:%s", reading.Quality, connectivity)},
	}
}

func preview(ssid string) string {
	runes := []rune(ssid)
	if len(runes) > ssidPreviewLn {
		return string(runes[:ssidPreviewLn])
	}
	return ssid
}

// render clears a fresh framebuffer, draws lines and flushes it in one transfer.
func (screen *Screen) render(lines []textLine) error {
	bounds := screen.Panel.Bounds()
	img := image1bit.NewVerticalLSB(bounds)
	ascent := screen.face.Metrics().Ascent.Ceil()
	drawer := font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{C: image1bit.On},
		Face: screen.face,
	}
	for _, line := range lines {
		drawer.Dot = fixed.P(bounds.Min.X+line.x, bounds.Min.Y+line.row*rowHeight+ascent)
		drawer.DrawString(line.text)
	}
	return screen.Panel.Draw(bounds, img, image.Point{})
}

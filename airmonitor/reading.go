package airmonitor

import (
	"time"
)

// Reading is one cycle's worth of derived values.
type Reading struct {
	Climate

	// false when the climate sensor failed this cycle; Temperature and Humidity are zero then
	ClimateValid bool

	Raw RawSample

	// units: kOhm
	Resistance float64

	// units: ppm (CO2 equivalent)
	PPM float64

	Quality Quality

	Taken time.Time
}

// NewReading derives resistance, PPM and quality from a raw sample.
// A nil climate marks the climate values as missing.
func NewReading(climate *Climate, raw RawSample, cal Calibration, taken time.Time) Reading {
	reading := Reading{
		Raw:   raw,
		Taken: taken,
	}
	if climate != nil {
		reading.Climate = *climate
		reading.ClimateValid = true
	}
	reading.Resistance = EstimateResistance(raw, cal)
	reading.PPM = EstimatePPM(reading.Resistance, cal)
	reading.Quality = Classify(reading.PPM)
	return reading
}

package airmonitor

import (
	"math"
)

// Calibration holds the MQ-135 divider model and the power-law curve
// ppm = CurveA * (Rs/R0)^CurveB.
type Calibration struct {
	// units: V
	SupplyVoltage float64
	ADCMax        RawSample

	// units: kOhm
	LoadResistance float64

	// R0, units: kOhm
	CleanAirResistance float64

	// Rs/R0 in clean air as given by the datasheet curve
	CleanAirRatio float64

	CurveA float64
	CurveB float64

	// Complete gates whether the curve is trusted at all.
	Complete bool
}

func DefaultCalibration() Calibration {
	return Calibration{
		SupplyVoltage:      3.3,
		ADCMax:             4095,
		LoadResistance:     10.0,
		CleanAirResistance: 10.0,
		CleanAirRatio:      2.66,
		CurveA:             110.0,
		CurveB:             -2.65,
		Complete:           true,
	}
}

// EstimateResistance converts a raw ADC code into the sensor resistance Rs (kOhm).
// Codes above ADCMax are treated as full scale.
func EstimateResistance(raw RawSample, cal Calibration) float64 {
	if cal.ADCMax == 0 {
		return 0.0
	}
	if raw > cal.ADCMax {
		raw = cal.ADCMax
	}
	voltage := float64(raw) * (cal.SupplyVoltage / float64(cal.ADCMax))
	if voltage <= 0 {
		return 0.0
	}
	// rounding at full scale can land a hair below zero
	return math.Max(0, cal.LoadResistance*(cal.SupplyVoltage/voltage-1))
}

// EstimatePPM converts Rs into a CO2-equivalent concentration.
// Returns 0 whenever the curve can't be evaluated: uncalibrated, R0 <= 0, or Rs <= 0.
func EstimatePPM(resistance float64, cal Calibration) float64 {
	if cal.CleanAirResistance <= 0 || !cal.Complete {
		return 0.0
	}
	if resistance <= 0 {
		return 0.0
	}
	ppm := cal.CurveA * math.Pow(resistance/cal.CleanAirResistance, cal.CurveB)
	if math.IsNaN(ppm) || math.IsInf(ppm, 0) || ppm < 0 {
		return 0.0
	}
	return ppm
}

// BaselineResistance estimates R0 from a resistance measured in clean air.
func (cal Calibration) BaselineResistance(resistance float64) float64 {
	if cal.CleanAirRatio <= 0 || resistance <= 0 {
		return 0.0
	}
	return resistance / cal.CleanAirRatio
}

type Quality int

const (
	Good Quality = iota
	Moderate
	Bad
)

func (q Quality) String() string {
	switch q {
	case Good:
		return "GOOD"
	case Moderate:
		return "MODERATE"
	case Bad:
		return "BAD"
	}
	return "UNKNOWN"
}

const (
	goodCeilingPPM     = 800
	moderateCeilingPPM = 1500
)

// Classify buckets a CO2-equivalent PPM; ties go to the less severe class.
func Classify(ppm float64) Quality {
	switch {
	case ppm <= goodCeilingPPM:
		return Good
	case ppm <= moderateCeilingPPM:
		return Moderate
	default:
		return Bad
	}
}

// Band is a rough label for an uncalibrated raw code, used when probing the sensor wiring.
func Band(raw RawSample) string {
	switch {
	case raw < 1000:
		return "Fresh Air"
	case raw < 2000:
		return "Normal Air"
	case raw < 3000:
		return "Poor Air"
	default:
		return "Polluted Air"
	}
}

package airmonitor

// ClimateSensor yields temperature and relative humidity.
// Reads may fail transiently (bus glitches, BLE drop-outs).
type ClimateSensor interface {
	ReadClimate() (Climate, error)
}

// GasSensor yields the raw ADC code of the gas sensor's load-resistor divider.
type GasSensor interface {
	ReadRaw() (RawSample, error)
}

type Climate struct {
	// units: degrees Celsius
	Temperature float64

	// units: % of relative Humidity
	Humidity float64
}

// RawSample is a single analog-to-digital conversion result in [0, Calibration.ADCMax].
type RawSample uint16

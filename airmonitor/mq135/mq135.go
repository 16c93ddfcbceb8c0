// Package mq135 reads the MQ-135 load-resistor divider through an ADS1115.
//
// The ADS1115 reports volts directly; they are mapped back onto the
// 0..ADCMax code range the calibration model is expressed in.
package mq135

import (
	"math"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"

	"github.com/alepar/airmonitor/airmonitor"
)

type Sensor struct {
	adc  *ads1x15.Dev
	pin  ads1x15.PinADC
	cal  airmonitor.Calibration
	read func() (analog.Sample, error)
}

// New opens the ADS1115 at addr on bus and configures channel (0..3) single-ended.
func New(bus i2c.Bus, addr uint16, channel int, cal airmonitor.Calibration) (*Sensor, error) {
	ch, err := singleEnded(channel)
	if err != nil {
		return nil, err
	}
	opts := ads1x15.DefaultOpts
	opts.I2cAddress = addr
	adc, err := ads1x15.NewADS1115(bus, &opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open ads1115")
	}
	// full-scale range must cover the divider's supply voltage
	maxVoltage := physic.ElectricPotential(cal.SupplyVoltage * float64(physic.Volt))
	pin, err := adc.PinForChannel(ch, maxVoltage, 8*physic.Hertz, ads1x15.BestQuality)
	if err != nil {
		_ = adc.Halt()
		return nil, errors.Wrapf(err, "failed to configure ads1115 channel %d", channel)
	}
	return &Sensor{adc: adc, pin: pin, cal: cal, read: pin.Read}, nil
}

func (sensor *Sensor) ReadRaw() (airmonitor.RawSample, error) {
	sample, err := sensor.read()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read ads1115")
	}
	return toRawSample(sample.V, sensor.cal), nil
}

func (sensor *Sensor) Halt() error {
	if err := sensor.pin.Halt(); err != nil {
		return err
	}
	return sensor.adc.Halt()
}

func singleEnded(channel int) (ads1x15.Channel, error) {
	switch channel {
	case 0:
		return ads1x15.Channel0, nil
	case 1:
		return ads1x15.Channel1, nil
	case 2:
		return ads1x15.Channel2, nil
	case 3:
		return ads1x15.Channel3, nil
	}
	return 0, errors.Errorf("ads1115 has no channel %d", channel)
}

func toRawSample(v physic.ElectricPotential, cal airmonitor.Calibration) airmonitor.RawSample {
	if cal.SupplyVoltage <= 0 || v <= 0 {
		return 0
	}
	volts := float64(v) / float64(physic.Volt)
	code := math.Round(volts / cal.SupplyVoltage * float64(cal.ADCMax))
	if code >= float64(cal.ADCMax) {
		return cal.ADCMax
	}
	return airmonitor.RawSample(code)
}

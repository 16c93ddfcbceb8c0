package bme280

import (
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"

	"github.com/alepar/airmonitor/airmonitor"
)

type Sensor struct {
	dev   *bmxx80.Dev
	sense func(*physic.Env) error
}

func New(bus i2c.Bus, addr uint16) (*Sensor, error) {
	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open bme280 at %#x", addr)
	}
	return &Sensor{dev: dev, sense: dev.Sense}, nil
}

func (sensor *Sensor) ReadClimate() (airmonitor.Climate, error) {
	var env physic.Env
	if err := sensor.sense(&env); err != nil {
		return airmonitor.Climate{}, errors.Wrap(err, "failed to sense climate")
	}
	return toClimate(env), nil
}

func (sensor *Sensor) Halt() error {
	return sensor.dev.Halt()
}

func toClimate(env physic.Env) airmonitor.Climate {
	return airmonitor.Climate{
		Temperature: float64(env.Temperature-physic.ZeroCelsius) / float64(physic.Kelvin),
		Humidity:    float64(env.Humidity) / float64(physic.PercentRH),
	}
}

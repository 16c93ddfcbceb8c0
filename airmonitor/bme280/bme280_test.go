package bme280

import (
	"errors"
	"math"
	"testing"

	"periph.io/x/conn/v3/physic"
)

func TestReadClimate(t *testing.T) {
	sensor := &Sensor{sense: func(env *physic.Env) error {
		env.Temperature = physic.ZeroCelsius + 23500*physic.MilliKelvin
		env.Humidity = 41 * physic.PercentRH
		return nil
	}}
	climate, err := sensor.ReadClimate()
	if err != nil {
		t.Fatalf("ReadClimate returned error: %v", err)
	}
	if math.Abs(climate.Temperature-23.5) > 1e-6 {
		t.Errorf("temperature = %v", climate.Temperature)
	}
	if math.Abs(climate.Humidity-41) > 1e-6 {
		t.Errorf("humidity = %v", climate.Humidity)
	}
}

func TestReadClimateError(t *testing.T) {
	sensor := &Sensor{sense: func(*physic.Env) error {
		return errors.New("i/o timeout")
	}}
	if _, err := sensor.ReadClimate(); err == nil {
		t.Fatalf("expected error")
	}
}

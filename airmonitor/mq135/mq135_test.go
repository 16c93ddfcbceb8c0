package mq135

import (
	"errors"
	"testing"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"

	"github.com/alepar/airmonitor/airmonitor"
)

func TestToRawSample(t *testing.T) {
	cal := airmonitor.DefaultCalibration()
	cases := []struct {
		v    physic.ElectricPotential
		want airmonitor.RawSample
	}{
		{0, 0},
		{-100 * physic.MilliVolt, 0},
		{3300 * physic.MilliVolt, 4095},
		{5 * physic.Volt, 4095},
		{physic.Volt, 1241},
	}
	for _, c := range cases {
		if got := toRawSample(c.v, cal); got != c.want {
			t.Errorf("toRawSample(%s) = %d, want %d", c.v, got, c.want)
		}
	}
}

func TestReadRaw(t *testing.T) {
	sensor := &Sensor{
		cal: airmonitor.DefaultCalibration(),
		read: func() (analog.Sample, error) {
			return analog.Sample{V: physic.Volt}, nil
		},
	}
	raw, err := sensor.ReadRaw()
	if err != nil {
		t.Fatalf("ReadRaw returned error: %v", err)
	}
	if raw != 1241 {
		t.Fatalf("raw = %d", raw)
	}

	sensor.read = func() (analog.Sample, error) {
		return analog.Sample{}, errors.New("nack")
	}
	if _, err := sensor.ReadRaw(); err == nil {
		t.Fatalf("expected error from failing adc")
	}
}

func TestSingleEnded(t *testing.T) {
	if _, err := singleEnded(4); err == nil {
		t.Fatalf("expected error for channel 4")
	}
	ch, err := singleEnded(2)
	if err != nil || ch != ads1x15.Channel2 {
		t.Fatalf("unexpected channel %v, %v", ch, err)
	}
}

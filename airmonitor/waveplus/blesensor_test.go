package waveplus

import (
	"math"
	"testing"
)

func TestDecodeValues(t *testing.T) {
	raw := []byte{
		0x01, 0x53, 0x00, 0x00, // version, humidity*2 = 83
		0x10, 0x00, // radon short 16
		0x20, 0x00, // radon long 32
		0x6a, 0x08, // temperature*100 = 2154
		0x8c, 0xc5, // pressure*50 = 50572
		0xc2, 0x01, // co2 450
		0x3c, 0x00, // voc 60
		0x00, 0x00, 0x00, 0x00,
	}
	values, err := decodeValues(raw)
	if err != nil {
		t.Fatalf("decodeValues returned error: %v", err)
	}
	if values.Humidity != 41.5 {
		t.Errorf("humidity = %v", values.Humidity)
	}
	if math.Abs(values.Temperature-21.54) > 1e-9 {
		t.Errorf("temperature = %v", values.Temperature)
	}
	if math.Abs(values.AtmPressure-1011.44) > 1e-9 {
		t.Errorf("pressure = %v", values.AtmPressure)
	}
	if values.RadonShort != 16 || values.RadonLong != 32 || values.Co2Level != 450 || values.VocLevel != 60 {
		t.Errorf("unexpected values %+v", values)
	}

	climate := values.Climate()
	if climate.Temperature != values.Temperature || climate.Humidity != values.Humidity {
		t.Errorf("climate mismatch %+v", climate)
	}
}

func TestDecodeValuesShortPayload(t *testing.T) {
	if _, err := decodeValues(make([]byte, 12)); err == nil {
		t.Fatalf("expected error for short payload")
	}
}

func TestManufacturerData(t *testing.T) {
	data := []byte{0x34, 0x03, 0x39, 0x30, 0x00, 0x00}
	if !isWavePlusManufacturerData(data) {
		t.Fatalf("expected wave plus manufacturer data")
	}
	if isWavePlusManufacturerData([]byte{0x4c, 0x00, 0, 0, 0, 0}) {
		t.Fatalf("unexpected match for foreign manufacturer")
	}
	if serial := manufacturerDataToSerialNumber(data); serial != "12345" {
		t.Fatalf("serial = %s", serial)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsMatchCalibrationConstants(t *testing.T) {
	cfg := Default()
	cal := cfg.Calibration
	if cal.SupplyVoltage != 3.3 || cal.ADCMax != 4095 || cal.LoadResistance != 10 ||
		cal.CleanAirResistance != 10 || cal.CurveA != 110 || cal.CurveB != -2.65 || !cal.Complete {
		t.Fatalf("unexpected default calibration %+v", cal)
	}
	if cfg.Report.MinInterval != 30*time.Second || cfg.Timing.Cycle != 5*time.Second {
		t.Fatalf("unexpected default timing %+v / %+v", cfg.Report, cfg.Timing)
	}
	if cfg.Network.ConnectTimeout != 20*time.Second {
		t.Fatalf("unexpected connect timeout %s", cfg.Network.ConnectTimeout)
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "AIRMON_WIFI_SSID=home\n" +
		"AIRMON_WIFI_PASSWORD=secret\n" +
		"AIRMON_REPORT_URL=https://relay.example.com/f/abc\n" +
		"AIRMON_REPORT_SENDER=monitor@example.com\n" +
		"AIRMON_R0=12.5\n" +
		"AIRMON_ADC_ADDRESS=0x49\n" +
		"AIRMON_REPORT_INTERVAL=1m\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AIRMON_WIFI_SSID", "office")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Network.SSID != "office" {
		t.Errorf("environment should win over file, got %q", cfg.Network.SSID)
	}
	if cfg.Network.Password != "secret" || cfg.Report.Sender != "monitor@example.com" {
		t.Errorf("unexpected credentials %+v / %+v", cfg.Network, cfg.Report)
	}
	if cfg.Calibration.CleanAirResistance != 12.5 {
		t.Errorf("R0 = %v", cfg.Calibration.CleanAirResistance)
	}
	if cfg.Hardware.ADCAddress != 0x49 {
		t.Errorf("ADC address = %#x", cfg.Hardware.ADCAddress)
	}
	if cfg.Report.MinInterval != time.Minute {
		t.Errorf("interval = %s", cfg.Report.MinInterval)
	}
}

func TestLoadMissingEnvFile(t *testing.T) {
	t.Setenv("AIRMON_REPORT_URL", "https://relay.example.com/f/abc")
	if _, err := Load(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("missing env file should be ignored, got %v", err)
	}
}

func TestLoadInvalidValue(t *testing.T) {
	t.Setenv("AIRMON_REPORT_URL", "https://relay.example.com/f/abc")
	t.Setenv("AIRMON_CYCLE", "fast")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing report URL to be rejected")
	}

	cfg.Report.Transport = "mqtt"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("mqtt defaults should validate: %v", err)
	}

	cfg.Hardware.ClimateSource = "waveplus"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing wave plus serial to be rejected")
	}
	cfg.Hardware.WavePlusSerial = "2930012345"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.Report.Transport = "carrier-pigeon"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unknown transport to be rejected")
	}
}

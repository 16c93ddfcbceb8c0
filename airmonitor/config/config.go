// Package config builds the monitor's single immutable configuration value.
//
// Defaults are compiled in; an optional .env file and then the process
// environment override them. All keys share the AIRMON_ prefix.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/alepar/airmonitor/airmonitor"
)

type Network struct {
	SSID           string
	Password       string
	Interface      string
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
}

type Report struct {
	// "http" or "mqtt"
	Transport   string
	URL         string
	Sender      string
	MinInterval time.Duration
	Timeout     time.Duration

	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string
	MQTTTopic    string
}

type Hardware struct {
	I2CBus string

	ADCAddress uint16
	ADCChannel int

	// "bme280" or "waveplus"
	ClimateSource  string
	BME280Address  uint16
	WavePlusSerial string
	ScanDuration   time.Duration
	Retries        int
}

type Timing struct {
	Cycle         time.Duration
	PostDispatch  time.Duration
	ConnectSettle time.Duration
}

type Config struct {
	Device      string
	Calibration airmonitor.Calibration
	Network     Network
	Report      Report
	Hardware    Hardware
	Timing      Timing
}

func Default() Config {
	return Config{
		Device:      "airmon",
		Calibration: airmonitor.DefaultCalibration(),
		Network: Network{
			Interface:      "wlan0",
			ConnectTimeout: 20 * time.Second,
			CommandTimeout: 10 * time.Second,
		},
		Report: Report{
			Transport:    "http",
			MinInterval:  30 * time.Second,
			Timeout:      10 * time.Second,
			MQTTBroker:   "tcp://localhost:1883",
			MQTTClientID: "airmon",
			MQTTTopic:    "airmon/report",
		},
		Hardware: Hardware{
			I2CBus:        "",
			ADCAddress:    0x48,
			ADCChannel:    0,
			ClimateSource: "bme280",
			BME280Address: 0x76,
			ScanDuration:  5 * time.Second,
			Retries:       5,
		},
		Timing: Timing{
			Cycle:         5 * time.Second,
			PostDispatch:  2 * time.Second,
			ConnectSettle: 2 * time.Second,
		},
	}
}

// Load overlays envFile (when non-empty and present) and the environment onto Default.
func Load(envFile string) (Config, error) {
	values := map[string]string{}
	if envFile != "" {
		fileValues, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			values = fileValues
		case os.IsNotExist(errors.Cause(err)):
		default:
			return Config{}, errors.Wrapf(err, "failed to read %s", envFile)
		}
	}
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 && strings.HasPrefix(kv[:i], prefix) {
			values[kv[:i]] = kv[i+1:]
		}
	}

	cfg := Default()
	p := parser{values: values}

	p.str("DEVICE", &cfg.Device)

	p.float("SUPPLY_VOLTAGE", &cfg.Calibration.SupplyVoltage)
	p.rawSample("ADC_MAX", &cfg.Calibration.ADCMax)
	p.float("LOAD_RESISTANCE", &cfg.Calibration.LoadResistance)
	p.float("R0", &cfg.Calibration.CleanAirResistance)
	p.float("CLEAN_AIR_RATIO", &cfg.Calibration.CleanAirRatio)
	p.float("CURVE_A", &cfg.Calibration.CurveA)
	p.float("CURVE_B", &cfg.Calibration.CurveB)
	p.flag("CALIBRATION_COMPLETE", &cfg.Calibration.Complete)

	p.str("WIFI_SSID", &cfg.Network.SSID)
	p.str("WIFI_PASSWORD", &cfg.Network.Password)
	p.str("WIFI_INTERFACE", &cfg.Network.Interface)
	p.duration("WIFI_CONNECT_TIMEOUT", &cfg.Network.ConnectTimeout)
	p.duration("WIFI_COMMAND_TIMEOUT", &cfg.Network.CommandTimeout)

	p.str("REPORT_TRANSPORT", &cfg.Report.Transport)
	p.str("REPORT_URL", &cfg.Report.URL)
	p.str("REPORT_SENDER", &cfg.Report.Sender)
	p.duration("REPORT_INTERVAL", &cfg.Report.MinInterval)
	p.duration("REPORT_TIMEOUT", &cfg.Report.Timeout)
	p.str("MQTT_BROKER", &cfg.Report.MQTTBroker)
	p.str("MQTT_CLIENT_ID", &cfg.Report.MQTTClientID)
	p.str("MQTT_USERNAME", &cfg.Report.MQTTUsername)
	p.str("MQTT_PASSWORD", &cfg.Report.MQTTPassword)
	p.str("MQTT_TOPIC", &cfg.Report.MQTTTopic)

	p.str("I2C_BUS", &cfg.Hardware.I2CBus)
	p.address("ADC_ADDRESS", &cfg.Hardware.ADCAddress)
	p.integer("ADC_CHANNEL", &cfg.Hardware.ADCChannel)
	p.str("CLIMATE_SOURCE", &cfg.Hardware.ClimateSource)
	p.address("BME280_ADDRESS", &cfg.Hardware.BME280Address)
	p.str("WAVEPLUS_SERIAL", &cfg.Hardware.WavePlusSerial)
	p.duration("BLE_SCAN_DURATION", &cfg.Hardware.ScanDuration)
	p.integer("BLE_RETRIES", &cfg.Hardware.Retries)

	p.duration("CYCLE", &cfg.Timing.Cycle)
	p.duration("POST_DISPATCH_DELAY", &cfg.Timing.PostDispatch)
	p.duration("CONNECT_SETTLE", &cfg.Timing.ConnectSettle)

	if p.err != nil {
		return Config{}, p.err
	}
	return cfg, cfg.Validate()
}

func (cfg Config) Validate() error {
	switch cfg.Report.Transport {
	case "http":
		if cfg.Report.URL == "" {
			return errors.New("AIRMON_REPORT_URL is required for the http transport")
		}
	case "mqtt":
		if cfg.Report.MQTTBroker == "" || cfg.Report.MQTTTopic == "" {
			return errors.New("AIRMON_MQTT_BROKER and AIRMON_MQTT_TOPIC are required for the mqtt transport")
		}
	default:
		return errors.Errorf("unknown report transport %q", cfg.Report.Transport)
	}
	switch cfg.Hardware.ClimateSource {
	case "bme280":
	case "waveplus":
		if cfg.Hardware.WavePlusSerial == "" {
			return errors.New("AIRMON_WAVEPLUS_SERIAL is required for the waveplus climate source")
		}
	default:
		return errors.Errorf("unknown climate source %q", cfg.Hardware.ClimateSource)
	}
	if cfg.Calibration.ADCMax == 0 || cfg.Calibration.SupplyVoltage <= 0 {
		return errors.New("ADC max and supply voltage must be positive")
	}
	if cfg.Timing.Cycle <= 0 || cfg.Report.MinInterval < 0 {
		return errors.New("cycle must be positive and report interval non-negative")
	}
	return nil
}

const prefix = "AIRMON_"

// parser keeps the first error and ignores later keys.
type parser struct {
	values map[string]string
	err    error
}

func (p *parser) lookup(key string) (string, bool) {
	if p.err != nil {
		return "", false
	}
	v, ok := p.values[prefix+key]
	return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
}

func (p *parser) fail(key string, err error) {
	p.err = errors.Wrapf(err, "invalid %s%s", prefix, key)
}

func (p *parser) str(key string, dst *string) {
	if v, ok := p.lookup(key); ok {
		*dst = v
	}
}

func (p *parser) float(key string, dst *float64) {
	if v, ok := p.lookup(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			p.fail(key, err)
			return
		}
		*dst = f
	}
}

func (p *parser) flag(key string, dst *bool) {
	if v, ok := p.lookup(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			p.fail(key, err)
			return
		}
		*dst = b
	}
}

func (p *parser) integer(key string, dst *int) {
	if v, ok := p.lookup(key); ok {
		i, err := strconv.Atoi(v)
		if err != nil {
			p.fail(key, err)
			return
		}
		*dst = i
	}
}

func (p *parser) duration(key string, dst *time.Duration) {
	if v, ok := p.lookup(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			p.fail(key, err)
			return
		}
		*dst = d
	}
}

// address accepts decimal or 0x-prefixed I2C addresses.
func (p *parser) address(key string, dst *uint16) {
	if v, ok := p.lookup(key); ok {
		a, err := strconv.ParseUint(v, 0, 16)
		if err != nil {
			p.fail(key, err)
			return
		}
		*dst = uint16(a)
	}
}

func (p *parser) rawSample(key string, dst *airmonitor.RawSample) {
	if v, ok := p.lookup(key); ok {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			p.fail(key, err)
			return
		}
		*dst = airmonitor.RawSample(n)
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/version"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"

	"github.com/alepar/airmonitor/airmonitor"
	"github.com/alepar/airmonitor/airmonitor/bme280"
	"github.com/alepar/airmonitor/airmonitor/config"
	"github.com/alepar/airmonitor/airmonitor/monitor"
	"github.com/alepar/airmonitor/airmonitor/mq135"
	"github.com/alepar/airmonitor/airmonitor/notify"
	"github.com/alepar/airmonitor/airmonitor/oled"
	"github.com/alepar/airmonitor/airmonitor/waveplus"
	"github.com/alepar/airmonitor/airmonitor/wifi"
)

const program = "airmonitor"

// CLI args; everything else comes from config.Load
var (
	listenAddr  = flag.String("listen-address", ":8080", "The address to listen on for metrics; empty disables it.")
	envFile     = flag.String("env-file", ".env", "optional dotenv file with AIRMON_* settings")
	probe       = flag.Bool("probe", false, "print raw gas sensor readings once a second instead of monitoring")
	showVersion = flag.Bool("version", false, "print version and exit")
	logLevel    = flag.String("log-level", "info", "logrus level")
)

// metrics to expose to Prometheus
var (
	gaugeTemperature = newGauge("air_temperature", "Air Temperature (units: degrees Celsius)")
	gaugeHumidity    = newGauge("air_humidity", "Humidity (units: % of relative Humidity)")
	gaugeResistance  = newGauge("air_gas_resistance", "MQ-135 sensor resistance (units: kOhm)")
	gaugeCo2Level    = newGauge("air_co2_equivalent", "CO2 equivalent estimate (units: ppm)")
	gaugeQuality     = newGauge("air_quality_class", "Air quality class (0=GOOD, 1=MODERATE, 2=BAD)")
	counterReports   = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "air_reports_total",
			Help: "Report dispatch attempts by result",
		},
		[]string{"device", "result"},
	)
)

func newGauge(name string, help string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: help,
		},
		[]string{"device"},
	)
}

func init() {
	prometheus.MustRegister(gaugeTemperature)
	prometheus.MustRegister(gaugeHumidity)
	prometheus.MustRegister(gaugeResistance)
	prometheus.MustRegister(gaugeCo2Level)
	prometheus.MustRegister(gaugeQuality)
	prometheus.MustRegister(counterReports)

	// Add Go module build info.
	prometheus.MustRegister(prometheus.NewBuildInfoCollector())

	//logging
	formatter := &log.TextFormatter{
		FullTimestamp: true,
	}
	log.SetFormatter(formatter)
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Print(program))
		return
	}
	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("bad log level: %s", err)
	}
	log.SetLevel(level)
	log.Infof("starting %s %s", program, version.Info())

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("failed to load config: %s", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := host.Init(); err != nil {
		log.Fatalf("failed to initialize periph: %s", err)
	}
	bus, err := i2creg.Open(cfg.Hardware.I2CBus)
	if err != nil {
		log.Fatalf("failed to open i2c bus %q: %s", cfg.Hardware.I2CBus, err)
	}
	defer bus.Close()

	gas, err := mq135.New(bus, cfg.Hardware.ADCAddress, cfg.Hardware.ADCChannel, cfg.Calibration)
	if err != nil {
		log.Fatalf("failed to open gas sensor: %s", err)
	}
	defer gas.Halt()

	if *probe {
		runProbe(ctx, gas, cfg.Calibration)
		return
	}

	panel, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		log.Fatalf("failed to open display: %s", err)
	}
	defer panel.Halt()

	climate, closeClimate, err := openClimate(cfg, bus)
	if err != nil {
		log.Fatalf("failed to open climate sensor: %s", err)
	}
	defer closeClimate()

	transport, closeTransport, err := openTransport(cfg)
	if err != nil {
		log.Fatalf("failed to open report transport: %s", err)
	}
	defer closeTransport()

	if *listenAddr != "" {
		go serveMetrics(*listenAddr)
	}

	link := wifi.NewManager(wifi.NewNetworkManagerLink(cfg.Network.Interface, cfg.Network.CommandTimeout))
	m := monitor.New(monitor.Options{
		Calibration:    cfg.Calibration,
		SSID:           cfg.Network.SSID,
		Credential:     cfg.Network.Password,
		ConnectTimeout: cfg.Network.ConnectTimeout,
		ReportInterval: cfg.Report.MinInterval,
		Cycle:          cfg.Timing.Cycle,
		PostDispatch:   cfg.Timing.PostDispatch,
		ConnectSettle:  cfg.Timing.ConnectSettle,
	}, monitor.Devices{
		Climate:    climate,
		Gas:        gas,
		Display:    oled.NewScreen(panel),
		Link:       link,
		Dispatcher: notify.NewDispatcher(transport, cfg.Report.Sender, cfg.Device),
		Observer:   promObserver{device: cfg.Device},
	})

	log.Infof("monitoring as %s", cfg.Device)
	if err := m.Run(ctx); err != nil && err != context.Canceled {
		log.Errorf("monitor stopped: %s", err)
	}
	log.Infof("shutting down")
}

func openClimate(cfg config.Config, bus i2c.Bus) (airmonitor.ClimateSensor, func(), error) {
	switch cfg.Hardware.ClimateSource {
	case "waveplus":
		d, err := linux.NewDevice()
		if err != nil {
			return nil, nil, err
		}
		ble.SetDefaultDevice(d)

		scanner := &waveplus.BleScanner{
			ScanDuration: cfg.Hardware.ScanDuration,
			Retries:      cfg.Hardware.Retries,
		}
		return waveplus.NewTracker(scanner, cfg.Hardware.WavePlusSerial), func() { _ = ble.Stop() }, nil
	default:
		sensor, err := bme280.New(bus, cfg.Hardware.BME280Address)
		if err != nil {
			return nil, nil, err
		}
		return sensor, func() { _ = sensor.Halt() }, nil
	}
}

func openTransport(cfg config.Config) (notify.Transport, func(), error) {
	if cfg.Report.Transport == "mqtt" {
		return notify.DialMQTT(notify.MQTTConfig{
			Broker:   cfg.Report.MQTTBroker,
			ClientID: cfg.Report.MQTTClientID,
			Username: cfg.Report.MQTTUsername,
			Password: cfg.Report.MQTTPassword,
			Topic:    cfg.Report.MQTTTopic,
			Timeout:  cfg.Report.Timeout,
		})
	}
	return notify.NewHTTPTransport(cfg.Report.URL, cfg.Report.Timeout), func() {}, nil
}

func newRouter() http.Handler {
	r := mux.NewRouter()
	// Expose the registered metrics via HTTP.
	r.Handle("/metrics", promhttp.HandlerFor(
		prometheus.DefaultGatherer,
		promhttp.HandlerOpts{
			// Opt into OpenMetrics to support exemplars.
			EnableOpenMetrics: true,
		},
	)).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
	return handlers.CombinedLoggingHandler(log.StandardLogger().WriterLevel(log.DebugLevel), r)
}

func serveMetrics(addr string) {
	log.Panic(http.ListenAndServe(addr, newRouter()))
}

func runProbe(ctx context.Context, gas airmonitor.GasSensor, cal airmonitor.Calibration) {
	log.Infof("probing gas sensor, ctrl-c to stop")
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		raw, err := gas.ReadRaw()
		if err != nil {
			log.Errorf("failed to read gas sensor: %s", err)
		} else {
			rs := airmonitor.EstimateResistance(raw, cal)
			log.WithFields(log.Fields{
				"raw":     raw,
				"band":    airmonitor.Band(raw),
				"rs_kohm": fmt.Sprintf("%.2f", rs),
				"r0_kohm": fmt.Sprintf("%.2f", cal.BaselineResistance(rs)),
			}).Info("probe")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

type promObserver struct {
	device string
}

func (observer promObserver) ObserveReading(reading airmonitor.Reading) {
	if reading.ClimateValid {
		gaugeTemperature.WithLabelValues(observer.device).Set(reading.Temperature)
		gaugeHumidity.WithLabelValues(observer.device).Set(reading.Humidity)
	} else {
		// missing data points rather than stale ones
		gaugeTemperature.DeleteLabelValues(observer.device)
		gaugeHumidity.DeleteLabelValues(observer.device)
	}
	gaugeResistance.WithLabelValues(observer.device).Set(reading.Resistance)
	gaugeCo2Level.WithLabelValues(observer.device).Set(reading.PPM)
	gaugeQuality.WithLabelValues(observer.device).Set(float64(reading.Quality))
}

func (observer promObserver) ObserveDispatch(ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	counterReports.WithLabelValues(observer.device, result).Inc()
}

// Package monitor sequences sensing, display and throttled reporting.
//
// Everything runs on the caller's goroutine: a slow sensor, display or
// report stalls the whole cycle, and the throttle is only touched here.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/alepar/airmonitor/airmonitor"
)

type Display interface {
	RenderReadings(reading airmonitor.Reading, connectivity string) error
	RenderConnecting(ssid string) error
	RenderSending() error
}

type Connectivity interface {
	Connect(ssid, credential string, maxWait time.Duration) bool
	IsConnected() bool
	Label() string
}

type Dispatcher interface {
	Send(ctx context.Context, reading airmonitor.Reading) bool
}

// Observer receives every reading and dispatch outcome, synchronously.
type Observer interface {
	ObserveReading(reading airmonitor.Reading)
	ObserveDispatch(ok bool)
}

// Devices are the driver handles the loop owns for the process lifetime.
type Devices struct {
	Climate    airmonitor.ClimateSensor
	Gas        airmonitor.GasSensor
	Display    Display
	Link       Connectivity
	Dispatcher Dispatcher
	Observer   Observer
}

type Options struct {
	Calibration    airmonitor.Calibration
	SSID           string
	Credential     string
	ConnectTimeout time.Duration
	ReportInterval time.Duration
	Cycle          time.Duration
	PostDispatch   time.Duration
	ConnectSettle  time.Duration
}

type Monitor struct {
	opts     Options
	devices  Devices
	throttle *airmonitor.ReportThrottle

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration)
}

func New(opts Options, devices Devices) *Monitor {
	if devices.Observer == nil {
		devices.Observer = nopObserver{}
	}
	return &Monitor{
		opts:     opts,
		devices:  devices,
		throttle: airmonitor.NewReportThrottle(opts.ReportInterval),
		Now:      time.Now,
		Sleep:    sleep,
	}
}

// Run connects once and then cycles until ctx is cancelled.
// Connection failure is not fatal; reports simply wait for the link.
func (monitor *Monitor) Run(ctx context.Context) error {
	monitor.connect(ctx)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := monitor.Cycle(ctx); err != nil {
			log.Errorf("cycle failed: %s", err)
		}
		monitor.Sleep(ctx, monitor.opts.Cycle)
	}
}

func (monitor *Monitor) connect(ctx context.Context) {
	if err := monitor.devices.Display.RenderConnecting(monitor.opts.SSID); err != nil {
		log.Warnf("failed to render connecting banner: %s", err)
	}
	monitor.Sleep(ctx, monitor.opts.ConnectSettle)

	if monitor.devices.Link.Connect(monitor.opts.SSID, monitor.opts.Credential, monitor.opts.ConnectTimeout) {
		log.Infof("network up")
	} else {
		log.Warnf("network unavailable, reports deferred until the link comes up")
	}
}

// Cycle runs one sense-render-report pass. Errors and panics from any
// step end the pass and come back as an error.
func (monitor *Monitor) Cycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()

	reading, err := monitor.sense()
	if err != nil {
		return err
	}
	monitor.devices.Observer.ObserveReading(reading)

	label := monitor.devices.Link.Label()
	if err := monitor.devices.Display.RenderReadings(reading, label); err != nil {
		return errors.Wrap(err, "failed to render readings")
	}

	log.WithFields(log.Fields{
		"temperature": formatClimate(reading.ClimateValid, reading.Temperature),
		"humidity":    formatClimate(reading.ClimateValid, reading.Humidity),
		"rs_kohm":     fmt.Sprintf("%.2f", reading.Resistance),
		"ppm":         int64(reading.PPM),
		"quality":     reading.Quality.String(),
		"wifi":        label,
	}).Info("reading")

	return monitor.report(ctx, reading)
}

func (monitor *Monitor) sense() (airmonitor.Reading, error) {
	var climate *airmonitor.Climate
	if c, err := monitor.devices.Climate.ReadClimate(); err != nil {
		log.Warnf("climate read failed, values missing this cycle: %s", err)
	} else {
		climate = &c
	}

	raw, err := monitor.devices.Gas.ReadRaw()
	if err != nil {
		return airmonitor.Reading{}, errors.Wrap(err, "failed to read gas sensor")
	}
	return airmonitor.NewReading(climate, raw, monitor.opts.Calibration, monitor.Now()), nil
}

// report dispatches when the throttle window has elapsed and the link is up.
// Only a successful send advances the throttle, so a failure retries next cycle.
func (monitor *Monitor) report(ctx context.Context, reading airmonitor.Reading) error {
	now := monitor.Now()
	if !monitor.throttle.Due(now) || !monitor.devices.Link.IsConnected() {
		return nil
	}

	if err := monitor.devices.Display.RenderSending(); err != nil {
		return errors.Wrap(err, "failed to render sending banner")
	}
	log.Infof("sending report")
	ok := monitor.devices.Dispatcher.Send(ctx, reading)
	monitor.devices.Observer.ObserveDispatch(ok)
	if ok {
		monitor.throttle.MarkSent(now)
	} else {
		log.Warnf("report not delivered, retrying next cycle")
	}
	monitor.Sleep(ctx, monitor.opts.PostDispatch)
	return nil
}

// LastReport is the zero time until a report has been delivered.
func (monitor *Monitor) LastReport() time.Time {
	return monitor.throttle.LastSent()
}

func formatClimate(valid bool, v float64) string {
	if !valid {
		return "missing"
	}
	return fmt.Sprintf("%.1f", v)
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

type nopObserver struct{}

func (nopObserver) ObserveReading(airmonitor.Reading) {}
func (nopObserver) ObserveDispatch(bool)              {}

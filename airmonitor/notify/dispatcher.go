package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/alepar/airmonitor/airmonitor"
)

// Message is the wire body shared by all transports.
type Message struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

type Transport interface {
	Deliver(ctx context.Context, msg Message) error
}

// Dispatcher formats a reading into a report and hands it to a Transport once.
type Dispatcher struct {
	Transport Transport
	Sender    string
	Device    string
	Now       func() time.Time
}

func NewDispatcher(transport Transport, sender, device string) *Dispatcher {
	return &Dispatcher{
		Transport: transport,
		Sender:    sender,
		Device:    device,
		Now:       time.Now,
	}
}

// Send reports whether the transport accepted the report. Failures are logged, never returned.
func (dispatcher *Dispatcher) Send(ctx context.Context, reading airmonitor.Reading) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("report transport panicked: %v", r)
			ok = false
		}
	}()

	msg := Message{
		Email:   dispatcher.Sender,
		Message: FormatReport(reading, dispatcher.Device, dispatcher.Now()),
	}
	if err := dispatcher.Transport.Deliver(ctx, msg); err != nil {
		log.Errorf("failed to send report: %s", err)
		return false
	}
	log.Infof("report sent")
	return true
}

// FormatReport renders the human-readable report body.
func FormatReport(reading airmonitor.Reading, device string, at time.Time) string {
	temperature, humidity := "n/a", "n/a"
	if reading.ClimateValid {
		temperature = fmt.Sprintf("%.1f C", reading.Temperature)
		humidity = fmt.Sprintf("%.1f %%", reading.Humidity)
	}

	var b strings.Builder
	b.WriteString("Air Quality Report\n\n")
	fmt.Fprintf(&b, "Temperature: %s\n", temperature)
	fmt.Fprintf(&b, "Humidity: %s\n", humidity)
	fmt.Fprintf(&b, "CO2 Equivalent: %d PPM\n", int64(reading.PPM))
	fmt.Fprintf(&b, "Air Quality Status: %s\n\n", reading.Quality)
	fmt.Fprintf(&b, "Device: %s\n", device)
	fmt.Fprintf(&b, "Time: %s\n", at.Format(time.RFC3339))
	return b.String()
}

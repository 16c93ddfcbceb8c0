package waveplus

import (
	"context"
	"fmt"
	"time"

	"github.com/go-ble/ble"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// BleScanner listens for the advertisement of one Wave Plus by serial number.
type BleScanner struct {
	ScanDuration time.Duration
	Retries      int
}

// Find stops listening as soon as serialNr is heard. Up to Retries windows
// of ScanDuration are tried before giving up.
func (scanner *BleScanner) Find(serialNr string) (*BleSensor, error) {
	attempts := scanner.Retries
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		addr, err := scanner.listen(serialNr)
		if err != nil {
			log.Warnf("scan %d/%d for wave plus %s failed: %s", attempt, attempts, serialNr, err)
			continue
		}
		if addr != "" {
			return &BleSensor{Addr: addr, ScanDuration: scanner.ScanDuration, Retries: scanner.Retries}, nil
		}
	}
	return nil, errors.Errorf("wave plus %s not heard after %d scans", serialNr, attempts)
}

// listen returns "" with a nil error when the window closes without a match.
func (scanner *BleScanner) listen(serialNr string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), scanner.ScanDuration)
	defer cancel()

	found := make(chan string, 1)
	err := ble.Scan(ctx, false, func(a ble.Advertisement) {
		select {
		case found <- a.Addr().String():
		default:
		}
		cancel()
	}, advertisesSerial(serialNr))

	select {
	case addr := <-found:
		return addr, nil
	default:
	}
	switch errors.Cause(err) {
	case nil, context.DeadlineExceeded, context.Canceled:
		return "", nil
	}
	return "", errors.Wrap(err, "ble scan failed")
}

func advertisesSerial(serialNr string) ble.AdvFilter {
	return func(a ble.Advertisement) bool {
		data := a.ManufacturerData()
		return a.Connectable() && isWavePlusManufacturerData(data) && manufacturerDataToSerialNumber(data) == serialNr
	}
}

// Airthings company id 0x0334, then the serial as a little-endian u32.
func isWavePlusManufacturerData(data []byte) bool {
	return len(data) >= 6 && data[0] == 0x34 && data[1] == 0x03
}

func manufacturerDataToSerialNumber(data []byte) string {
	return fmt.Sprint(uint32(data[2]) | uint32(data[3])<<8 | uint32(data[4])<<16 | uint32(data[5])<<24)
}

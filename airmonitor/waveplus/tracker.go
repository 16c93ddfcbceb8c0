package waveplus

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/alepar/airmonitor/airmonitor"
)

// Tracker is a ClimateSensor that locates its Wave Plus lazily. A failed
// lookup or read leaves climate missing for that call, and the next call
// scans again.
type Tracker struct {
	Serial string

	locate func(serialNr string) (airmonitor.ClimateSensor, error)
	sensor airmonitor.ClimateSensor
}

func NewTracker(scanner *BleScanner, serialNr string) *Tracker {
	return &Tracker{
		Serial: serialNr,
		locate: func(serialNr string) (airmonitor.ClimateSensor, error) {
			sensor, err := scanner.Find(serialNr)
			if err != nil {
				return nil, err
			}
			log.Infof("found wave plus %s at %s", serialNr, sensor.Address())
			return sensor, nil
		},
	}
}

func (tracker *Tracker) ReadClimate() (airmonitor.Climate, error) {
	if tracker.sensor == nil {
		sensor, err := tracker.locate(tracker.Serial)
		if err != nil {
			return airmonitor.Climate{}, errors.Wrapf(err, "wave plus %s unavailable", tracker.Serial)
		}
		tracker.sensor = sensor
	}
	climate, err := tracker.sensor.ReadClimate()
	if err != nil {
		tracker.sensor = nil
		return airmonitor.Climate{}, err
	}
	return climate, nil
}

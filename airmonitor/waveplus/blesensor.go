package waveplus

import (
	"context"
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-ble/ble"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/alepar/airmonitor/airmonitor"
)

var (
	sensorServiceUuid        = ble.MustParse("b42e1c08ade711e489d3123b93f75cba")
	sensorCharacteristicUuid = ble.MustParse("b42e2a68ade711e489d3123b93f75cba")
)

// BleSensor reads temperature and humidity from an Airthings Wave Plus.
type BleSensor struct {
	Addr         string
	ScanDuration time.Duration
	Retries      int
}

func (sensor *BleSensor) Address() string {
	return sensor.Addr
}

func (sensor *BleSensor) ReadClimate() (airmonitor.Climate, error) {
	values, err := sensor.Receive()
	if err != nil {
		return airmonitor.Climate{}, err
	}
	return values.Climate(), nil
}

func (sensor *BleSensor) Receive() (Values, error) {
	var lastErr error
	var values Values
	for i := 0; i < sensor.Retries; i++ {
		values, lastErr = sensor.receive()
		if lastErr == nil {
			return values, nil
		}
		if i+1 < sensor.Retries {
			log.Errorf("retrying error in receive: %s", lastErr)
			time.Sleep(sensor.ScanDuration) // self-pacing interval in an attempt to fix freezes
		}
	}

	return Values{}, errors.Wrap(lastErr, "all retries to receive failed")
}

func (sensor *BleSensor) receive() (Values, error) {
	filter := func(a ble.Advertisement) bool {
		return strings.EqualFold(a.Addr().String(), sensor.Addr)
	}

	log.Debugf("connecting to device")
	ctx := ble.WithSigHandler(context.WithTimeout(context.Background(), sensor.ScanDuration))
	cln, err := ble.Connect(ctx, filter)
	if err != nil {
		return Values{}, errors.Wrap(err, "couldn't connect to ble")
	}

	// The peripheral may drop the connection on its own, so watch for it.
	done := make(chan struct{})
	go func() {
		<-cln.Disconnected()
		log.Debugf("device disconnected")
		close(done)
	}()
	defer func() {
		log.Debugf("closing connection")
		_ = cln.CancelConnection()
		<-done
	}()

	log.Debugf("discovering services")
	services, err := cln.DiscoverServices([]ble.UUID{sensorServiceUuid})
	if err != nil {
		return Values{}, errors.Wrap(err, "couldn't discover services")
	}
	if len(services) == 0 {
		return Values{}, errors.New("did not find expected sensor service")
	}

	log.Debugf("discovering characteristics")
	characteristics, err := cln.DiscoverCharacteristics([]ble.UUID{sensorCharacteristicUuid}, services[0])
	if err != nil {
		return Values{}, errors.Wrap(err, "couldn't discover characteristic")
	}
	if len(characteristics) == 0 {
		return Values{}, errors.New("did not find expected characteristic")
	}

	log.Debugf("reading characteristic")
	sensorBytes, err := cln.ReadCharacteristic(characteristics[0])
	if err != nil {
		return Values{}, errors.Wrap(err, "failed to read characteristic value")
	}

	return decodeValues(sensorBytes)
}

// Values is the decoded current-values characteristic.
type Values struct {
	// units: % of relative Humidity
	Humidity float64

	// units: Bq/m3
	RadonShort uint16

	// units: Bq/m3
	RadonLong uint16

	// units: degrees Celsius
	Temperature float64

	// units: hPa
	AtmPressure float64

	// units: ppm
	Co2Level float64

	// units: ppb
	VocLevel float64
}

func (values Values) Climate() airmonitor.Climate {
	return airmonitor.Climate{
		Temperature: values.Temperature,
		Humidity:    values.Humidity,
	}
}

const valuesLength = 20

// layout: u8 version, u8 humidity*2, u8, u8, then little-endian u16s:
// radon short, radon long, temperature*100, pressure*50, co2, voc, 2 unused
func decodeValues(raw []byte) (Values, error) {
	if len(raw) < valuesLength {
		return Values{}, errors.Errorf("short sensor payload: %d bytes", len(raw))
	}
	u16 := func(offset int) uint16 {
		return binary.LittleEndian.Uint16(raw[offset : offset+2])
	}
	return Values{
		Humidity:    float64(raw[1]) / 2.0,
		RadonShort:  u16(4),
		RadonLong:   u16(6),
		Temperature: float64(u16(8)) / 100.0,
		AtmPressure: float64(u16(10)) / 50.0,
		Co2Level:    float64(u16(12)),
		VocLevel:    float64(u16(14)),
	}, nil
}

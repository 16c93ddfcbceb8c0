package notify

import (
	"context"
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type publisher interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTTransport publishes the message to a broker topic.
type MQTTTransport struct {
	Topic   string
	QoS     byte
	Timeout time.Duration

	client publisher
}

type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	Timeout  time.Duration
}

// DialMQTT starts connecting to the broker and returns without waiting.
// The paho client keeps retrying in the background, so an unreachable broker
// only makes Deliver fail until the connection comes up.
func DialMQTT(cfg MQTTConfig) (*MQTTTransport, func(), error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(connectRetryInterval)
	opts.SetConnectTimeout(cfg.Timeout)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Infof("mqtt connected to %s", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warnf("mqtt connection lost: %s", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	go func() {
		if token.Wait() && token.Error() != nil {
			log.Errorf("mqtt broker %s: %s", cfg.Broker, token.Error())
		}
	}()

	closer := func() { client.Disconnect(250) }
	return &MQTTTransport{Topic: cfg.Topic, QoS: 1, Timeout: cfg.Timeout, client: client}, closer, nil
}

const connectRetryInterval = 10 * time.Second

// ErrNotConnected is returned by Deliver while the broker connection is down.
var ErrNotConnected = errors.New("mqtt broker not connected")

func (transport *MQTTTransport) Deliver(ctx context.Context, msg Message) error {
	// Publishing while down would queue the report and replay it later.
	if !transport.client.IsConnectionOpen() {
		return errors.Wrapf(ErrNotConnected, "cannot publish to %s", transport.Topic)
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal report")
	}
	token := transport.client.Publish(transport.Topic, transport.QoS, false, payload)

	timer := time.NewTimer(transport.Timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-timer.C:
		return errors.Errorf("timed out publishing to %s", transport.Topic)
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "publish cancelled")
	}
	if err := token.Error(); err != nil {
		return errors.Wrapf(err, "failed to publish to %s", transport.Topic)
	}
	return nil
}

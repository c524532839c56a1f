// Package bridge publishes decoded telegrams to an MQTT broker.
//
// The broker sees two topics under the configured prefix: every accepted
// telegram goes to <prefix>/telegram as a retained JSON document, and
// <prefix>/status carries availability ("online"/"offline"). Offline is
// installed as the last will, so subscribers learn about ungraceful drops
// from the broker itself.
package bridge

import (
	"bytes"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/meterhuis/godsmr/pkg/dsmr"
)

const (
	statusOnline  = "online"
	statusOffline = "offline"

	defaultTimeout = 5 * time.Second
)

// Options configures the broker connection.
type Options struct {
	BrokerURL   string
	ClientID    string
	TopicPrefix string
	Username    string
	Password    string
}

// mqttClient is the slice of mqtt.Client the publisher needs; tests
// substitute a recording fake.
type mqttClient interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
	Disconnect(quiesce uint)
}

// Publisher forwards telegrams to one MQTT broker.
type Publisher struct {
	log         logrus.FieldLogger
	client      mqttClient
	statusTopic string
	usageTopic  string
	timeout     time.Duration
}

// New builds a publisher for the given broker. The MQTT client id gets a
// random suffix so two bridges with the same configuration do not steal
// each other's broker session.
func New(opts Options, log logrus.FieldLogger) *Publisher {
	statusTopic := opts.TopicPrefix + "/status"
	usageTopic := opts.TopicPrefix + "/telegram"
	clientID := fmt.Sprintf("%s-%s", opts.ClientID, uuid.NewString()[:8])

	co := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(time.Minute).
		SetWill(statusTopic, statusOffline, 1, true).
		SetOnConnectHandler(func(c mqtt.Client) {
			c.Publish(statusTopic, 1, true, statusOnline)
			log.WithField("client_id", clientID).Info("connected to mqtt broker")
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("mqtt connection lost")
		})
	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}

	return &Publisher{
		log:         log,
		client:      mqtt.NewClient(co),
		statusTopic: statusTopic,
		usageTopic:  usageTopic,
		timeout:     defaultTimeout,
	}
}

// Connect performs the initial broker handshake. Reconnects after a
// successful first connect are handled by the client itself.
func (p *Publisher) Connect() error {
	t := p.client.Connect()
	if !t.WaitTimeout(p.timeout) {
		return fmt.Errorf("mqtt connect: no broker response within %s", p.timeout)
	}
	if err := t.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// Publish serializes the telegram and sends it retained to the usage
// topic, so a fresh subscriber immediately sees the current reading.
func (p *Publisher) Publish(tel *dsmr.Telegram) error {
	var buf bytes.Buffer
	if err := tel.Serialize(&buf); err != nil {
		return fmt.Errorf("serialize telegram: %w", err)
	}
	t := p.client.Publish(p.usageTopic, 0, true, buf.Bytes())
	if !t.WaitTimeout(p.timeout) {
		return fmt.Errorf("mqtt publish: timed out after %s", p.timeout)
	}
	if err := t.Error(); err != nil {
		return fmt.Errorf("mqtt publish: %w", err)
	}
	return nil
}

// Close reports offline explicitly and disconnects; the last will only
// covers ungraceful drops.
func (p *Publisher) Close() {
	t := p.client.Publish(p.statusTopic, 1, true, statusOffline)
	t.WaitTimeout(p.timeout)
	p.client.Disconnect(250)
}

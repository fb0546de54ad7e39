package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Publisher sends payloads to a message broker.
type Publisher interface {
	Publish(topic string, qos byte, payload []byte) error
	Close() error
}

// WindowMessage is the payload published for each window.
type WindowMessage struct {
	RunID    string `json:"run_id"`
	Facility string `json:"facility"`
	Kind     string `json:"kind"`
	Pass
}

// PublishReport publishes one message per window to <topic>/main_beam and
// <topic>/horizon. Every window is attempted; the errors are joined.
func PublishReport(ctx context.Context, pub Publisher, topic string, qos byte, r Report) (int, error) {
	var (
		sent int
		errs []error
	)
	groups := []struct {
		kind   string
		passes []Pass
	}{
		{"main_beam", r.MainBeam},
		{"horizon", r.Horizon},
	}
	for _, g := range groups {
		for _, p := range g.passes {
			if err := ctx.Err(); err != nil {
				return sent, errors.Join(append(errs, err)...)
			}
			payload, err := json.Marshal(WindowMessage{RunID: r.RunID, Facility: r.Facility, Kind: g.kind, Pass: p})
			if err != nil {
				errs = append(errs, fmt.Errorf("encode window: %w", err))
				continue
			}
			if err := pub.Publish(topic+"/"+g.kind, qos, payload); err != nil {
				errs = append(errs, fmt.Errorf("publish %s window of %d: %w", g.kind, p.ObjectID, err))
				continue
			}
			sent++
		}
	}
	return sent, errors.Join(errs...)
}

// RealPublisher publishes to an MQTT broker.
type RealPublisher struct {
	client  paho.Client
	timeout time.Duration
}

// NewRealPublisher connects to broker and waits up to timeout for the
// connection.
func NewRealPublisher(broker, clientID string, timeout time.Duration) (*RealPublisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("connect to %s: timeout", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return &RealPublisher{client: client, timeout: timeout}, nil
}

// Publish sends payload, not retained.
func (p *RealPublisher) Publish(topic string, qos byte, payload []byte) error {
	token := p.client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish to %s: timeout", topic)
	}
	return token.Error()
}

// Close disconnects, allowing a second for in-flight messages.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}

// FakePublisher records published messages for tests.
type FakePublisher struct {
	Messages []FakeMessage

	// PublishError, if set, is returned by Publish and nothing is recorded.
	PublishError error
	Closed       bool
}

// FakeMessage is one recorded Publish call.
type FakeMessage struct {
	Topic   string
	QoS     byte
	Payload []byte
}

// NewFakePublisher returns an empty FakePublisher.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) Publish(topic string, qos byte, payload []byte) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Messages = append(f.Messages, FakeMessage{Topic: topic, QoS: qos, Payload: payload})
	return nil
}

func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

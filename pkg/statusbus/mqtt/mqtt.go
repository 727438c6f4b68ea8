// Package mqtt implements statusbus.Publisher over an MQTT broker using
// github.com/eclipse/paho.mqtt.golang. This is the transport the robot's
// face and LED firmware subscribe to.
package mqtt

import (
	"fmt"
	"log/slog"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/wrenrobotics/wren/pkg/statusbus"
)

// Compile-time assertion that Publisher satisfies statusbus.Publisher.
var _ statusbus.Publisher = (*Publisher)(nil)

const connectTimeout = 5 * time.Second

// Publisher publishes status updates as QoS 0 MQTT messages.
type Publisher struct {
	client pahomqtt.Client
}

// New connects to the broker at brokerURL (e.g., "tcp://localhost:1883").
// clientID identifies this publisher to the broker.
func New(brokerURL, clientID string) (*Publisher, error) {
	if brokerURL == "" {
		return nil, fmt.Errorf("mqtt: brokerURL must not be empty")
	}
	opts := pahomqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt: connect to %s timed out after %s", brokerURL, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect to %s: %w", brokerURL, err)
	}
	return &Publisher{client: client}, nil
}

// Publish implements statusbus.Publisher. Delivery failures are logged,
// never returned; a dark face is preferable to a stalled conversation.
func (p *Publisher) Publish(topic, payload string) {
	token := p.client.Publish(topic, 0, false, payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			slog.Warn("mqtt publish failed", "topic", topic, "error", err)
		}
	}()
}

// Close disconnects from the broker, allowing in-flight messages 250 ms to
// complete.
func (p *Publisher) Close() error {
	p.client.Disconnect(250)
	return nil
}

package notify

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// MQTTNotifier publishes room events to per-occurrence and per-member
// topics on the shared broker.
type MQTTNotifier struct {
	client mqtt.Client
}

var _ Notifier = (*MQTTNotifier)(nil)

// NewMQTT connects a client to the broker and returns a notifier using it.
func NewMQTT(brokerURL, clientID string) (*MQTTNotifier, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(mqtt.Client) {
		log.Info().Str("broker", brokerURL).Msg("connected to MQTT broker")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Error().Err(err).Msg("MQTT connection lost")
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return &MQTTNotifier{client: client}, nil
}

func (n *MQTTNotifier) publish(topic, event string, payload any) error {
	raw, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		return err
	}
	token := n.client.Publish(topic, 1, false, raw)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event, topic, err)
	}
	return nil
}

// Room publishes to the topic every member of the occurrence subscribes to.
func (n *MQTTNotifier) Room(occurrenceID, event string, payload any) error {
	return n.publish(fmt.Sprintf("room/%s/events", occurrenceID), event, payload)
}

// Member publishes to one participant's personal topic.
func (n *MQTTNotifier) Member(memberKey, event string, payload any) error {
	return n.publish(fmt.Sprintf("member/%s/events", memberKey), event, payload)
}

// Disconnect flushes and closes the underlying client.
func (n *MQTTNotifier) Disconnect() {
	n.client.Disconnect(250)
}

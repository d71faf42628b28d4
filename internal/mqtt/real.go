package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/time/rate"
)

// RealPublisher publishes to an actual MQTT broker.
//
// The moped spends most of its life out of WiFi range, so the
// constructor never blocks on the broker: the paho client retries in
// the background and messages published while disconnected are held in
// a fixed ring buffer, replayed on reconnect. Transition publishes are
// rate limited so a flapping sensor cannot flood the broker.
type RealPublisher struct {
	client paho.Client
	events *rate.Limiter

	mu      sync.Mutex
	pending *backlog
}

// NewRealPublisher creates a publisher for the given broker and starts
// connecting in the background.
func NewRealPublisher(broker string) *RealPublisher {
	p := &RealPublisher{
		events:  rate.NewLimiter(rate.Every(time.Second), 10),
		pending: newBacklog(64),
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("mopo-limiter").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(p.onConnect)

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

// onConnect replays messages buffered while disconnected.
func (p *RealPublisher) onConnect(client paho.Client) {
	p.mu.Lock()
	msgs := p.pending.takeAll()
	p.mu.Unlock()

	if len(msgs) == 0 {
		return
	}
	log.Printf("mqtt: connected, replaying %d buffered messages", len(msgs))
	for _, m := range msgs {
		token := client.Publish(m.topic, m.qos, m.retained, m.payload)
		if !token.WaitTimeout(5 * time.Second) {
			log.Printf("mqtt: replay timeout on %s", m.topic)
			return
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: replay error on %s: %v", m.topic, err)
			return
		}
	}
}

// PublishTransition sends a limiter state change to the MQTT broker.
func (p *RealPublisher) PublishTransition(event Transition) error {
	if !p.events.Allow() {
		log.Printf("mqtt: transition publish rate exceeded, dropping event")
		return nil
	}

	payload, err := FormatTransitionPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 1 (at-least-once): a cut engaging is worth delivering.
	return p.publish(Topic, 1, false, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(TopicSystem, 1, event.Retained, payload)
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnected() {
		p.buffer(topic, qos, retained, payload)
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		p.buffer(topic, qos, retained, payload)
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		p.buffer(topic, qos, retained, payload)
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (p *RealPublisher) buffer(topic string, qos byte, retained bool, payload []byte) {
	p.mu.Lock()
	p.pending.add(queuedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
	n := p.pending.len()
	p.mu.Unlock()
	log.Printf("mqtt: broker unreachable, buffered message for %s (%d pending)", topic, n)
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

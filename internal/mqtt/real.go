package mqtt

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sony/gobreaker"

	"github.com/sweeney/irrigation-controller/internal/logic"
)

const (
	bufferCapacity  = 100
	publishTimeout  = 2 * time.Second
	connectTimeout  = 5 * time.Second
	connectAttempts = 5
	breakerTrips    = 3
	breakerOpen     = 30 * time.Second
)

var errTimeout = errors.New("timeout")

// RealPublisher publishes to an actual MQTT broker.
//
// Publishes run through a circuit breaker so a dead broker costs the control
// loop at most one timeout per trip. Events and system messages published
// while disconnected are buffered and replayed on reconnect; telemetry is
// dropped instead.
type RealPublisher struct {
	client  paho.Client
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration

	mu            sync.Mutex
	buffer        *ringBuffer
	everConnected bool
}

// NewRealPublisher creates a publisher connected to the given broker,
// retrying the initial connect with exponential backoff.
func NewRealPublisher(broker, clientID string) (*RealPublisher, error) {
	p := newPublisher(nil)

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	client := paho.NewClient(opts)
	p.client = client

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second
	err = backoff.Retry(func() error {
		token := client.Connect()
		if !token.WaitTimeout(connectTimeout) {
			return errTimeout
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: connect to %s failed: %v", broker, err)
			return err
		}
		return nil
	}, backoff.WithMaxRetries(bo, connectAttempts-1))
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	log.Printf("mqtt: connected to %s as %s", broker, clientID)
	return p, nil
}

func newPublisher(client paho.Client) *RealPublisher {
	return &RealPublisher{
		client: client,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "mqtt-publish",
			Timeout: breakerOpen,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= breakerTrips
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Printf("mqtt: breaker %s %s -> %s", name, from, to)
			},
		}),
		timeout: publishTimeout,
		buffer:  newRingBuffer(bufferCapacity),
	}
}

// Publish sends a latch transition (QoS 0, not retained).
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.publish(bufferedMsg{topic: Topic, payload: payload}, true)
}

// PublishTelemetry sends a reading (QoS 0, not retained, never buffered).
func (p *RealPublisher) PublishTelemetry(t Telemetry) error {
	payload, err := FormatTelemetryPayload(t)
	if err != nil {
		return fmt.Errorf("format telemetry payload: %w", err)
	}
	return p.publish(bufferedMsg{topic: TopicTelemetry, payload: payload}, false)
}

// PublishSystem sends a system lifecycle event (QoS 1).
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained}, true)
}

func (p *RealPublisher) publish(msg bufferedMsg, buffer bool) error {
	if !p.client.IsConnectionOpen() {
		if buffer {
			p.enqueue(msg)
		}
		return nil
	}

	_, err := p.breaker.Execute(func() (interface{}, error) {
		token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
		if !token.WaitTimeout(p.timeout) {
			return nil, errTimeout
		}
		return nil, token.Error()
	})
	if err != nil {
		if buffer {
			p.enqueue(msg)
		}
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

func (p *RealPublisher) enqueue(msg bufferedMsg) {
	p.mu.Lock()
	p.buffer.push(msg)
	p.mu.Unlock()
}

// onConnect announces a reconnection and replays buffered messages.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	reconnect := p.everConnected
	p.everConnected = true
	msgs := p.buffer.drainAll()
	p.mu.Unlock()

	if reconnect {
		log.Printf("mqtt: reconnected")
		payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		if err == nil {
			c.Publish(TopicSystem, 1, false, payload)
		}
	}

	if len(msgs) == 0 {
		return
	}
	log.Printf("mqtt: replaying %d buffered messages", len(msgs))
	for _, m := range msgs {
		token := c.Publish(m.topic, m.qos, m.retained, m.payload)
		if !token.WaitTimeout(p.timeout) {
			log.Printf("mqtt: replay to %s timed out", m.topic)
			continue
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: replay to %s: %v", m.topic, err)
		}
	}
}

// Buffered returns the number of messages waiting for replay.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.len()
}

// BreakerState returns the publish breaker state as 0 (closed),
// 1 (half-open) or 2 (open).
func (p *RealPublisher) BreakerState() float64 {
	return float64(p.breaker.State())
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

package mqtt

import (
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/irrigation-controller/internal/logic"
)

type fakeToken struct {
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool                     { return !t.timeout }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Error() error                   { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if !t.timeout {
		close(ch)
	}
	return ch
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient implements paho.Client for publisher tests.
type fakeClient struct {
	open       bool
	publishErr error
	timeout    bool
	sent       []published
}

func (c *fakeClient) IsConnected() bool      { return c.open }
func (c *fakeClient) IsConnectionOpen() bool { return c.open }
func (c *fakeClient) Connect() paho.Token    { return &fakeToken{} }
func (c *fakeClient) Disconnect(uint)        { c.open = false }

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	if c.publishErr != nil || c.timeout {
		return &fakeToken{err: c.publishErr, timeout: c.timeout}
	}
	c.sent = append(c.sent, published{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return &fakeToken{}
}

func (c *fakeClient) Subscribe(string, byte, paho.MessageHandler) paho.Token { return &fakeToken{} }
func (c *fakeClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return &fakeToken{}
}
func (c *fakeClient) Unsubscribe(...string) paho.Token        { return &fakeToken{} }
func (c *fakeClient) AddRoute(string, paho.MessageHandler)    {}
func (c *fakeClient) OptionsReader() paho.ClientOptionsReader { return paho.ClientOptionsReader{} }

func TestRealPublisherPublishesWhenConnected(t *testing.T) {
	c := &fakeClient{open: true}
	p := newPublisher(c)

	if err := p.Publish(logic.Event{Type: logic.EventAlertOn, State: logic.StateAlert}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := p.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("publish system: %v", err)
	}

	if len(c.sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(c.sent))
	}
	if c.sent[0].topic != Topic || c.sent[0].qos != 0 || c.sent[0].retained {
		t.Errorf("event message: %+v", c.sent[0])
	}
	if c.sent[1].topic != TopicSystem || c.sent[1].qos != 1 || !c.sent[1].retained {
		t.Errorf("system message: %+v", c.sent[1])
	}
	if !p.IsConnected() {
		t.Error("expected connected")
	}
}

func TestRealPublisherBuffersWhileDisconnected(t *testing.T) {
	c := &fakeClient{}
	p := newPublisher(c)

	if err := p.Publish(logic.Event{Type: logic.EventAlertOn}); err != nil {
		t.Errorf("buffered publish should not error: %v", err)
	}
	p.PublishSystem(SystemEvent{Event: "HEARTBEAT"})
	p.PublishTelemetry(Telemetry{Humidity: 40})

	if got := p.Buffered(); got != 2 {
		t.Fatalf("buffered: got %d, want 2 (telemetry is not buffered)", got)
	}

	c.open = true
	p.onConnect(c)

	if p.Buffered() != 0 {
		t.Errorf("buffer not drained: %d", p.Buffered())
	}
	if len(c.sent) != 2 {
		t.Fatalf("expected 2 replayed messages, got %d", len(c.sent))
	}
	if c.sent[0].topic != Topic || c.sent[1].topic != TopicSystem {
		t.Errorf("replay order: %s, %s", c.sent[0].topic, c.sent[1].topic)
	}
}

func TestRealPublisherAnnouncesReconnect(t *testing.T) {
	c := &fakeClient{open: true}
	p := newPublisher(c)

	p.onConnect(c)
	if len(c.sent) != 0 {
		t.Fatalf("first connect should not announce, sent %d", len(c.sent))
	}

	p.onConnect(c)
	if len(c.sent) != 1 || c.sent[0].topic != TopicSystem {
		t.Fatalf("expected RECONNECTED on system topic, got %+v", c.sent)
	}
}

func TestRealPublisherBreakerOpens(t *testing.T) {
	c := &fakeClient{open: true, publishErr: errors.New("not authorized")}
	p := newPublisher(c)

	for i := 0; i < breakerTrips; i++ {
		if err := p.PublishTelemetry(Telemetry{}); err == nil {
			t.Fatalf("publish %d: expected error", i)
		}
	}
	if p.BreakerState() != 2 {
		t.Fatalf("breaker state: got %v, want 2 (open)", p.BreakerState())
	}

	c.publishErr = nil
	if err := p.Publish(logic.Event{}); err == nil {
		t.Error("open breaker should reject publishes")
	}
	if len(c.sent) != 0 {
		t.Error("open breaker should not reach the client")
	}
	if p.Buffered() != 1 {
		t.Errorf("rejected event should be buffered, got %d", p.Buffered())
	}
}

func TestRealPublisherTimeout(t *testing.T) {
	c := &fakeClient{open: true, timeout: true}
	p := newPublisher(c)

	err := p.Publish(logic.Event{})
	if !errors.Is(err, errTimeout) {
		t.Errorf("expected timeout error, got %v", err)
	}
}

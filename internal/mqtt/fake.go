package mqtt

import (
	"github.com/sweeney/irrigation-controller/internal/logic"
)

// FakePublisher keeps everything handed to it so tests can inspect the
// messages the loop would have sent. Payloads are encoded with the same
// formatters as RealPublisher.
type FakePublisher struct {
	Events   []logic.Event
	Payloads [][]byte // one per Events entry

	Telemetry []Telemetry

	SystemEvents   []SystemEvent
	SystemPayloads [][]byte // one per SystemEvents entry

	// Scripted failures. PublishError covers events and telemetry.
	PublishError       error
	PublishSystemError error

	Closed    bool
	Connected bool
}

// NewFakePublisher returns an empty, disconnected FakePublisher.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) Publish(event logic.Event) error {
	if err := f.PublishError; err != nil {
		return err
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events, f.Payloads = append(f.Events, event), append(f.Payloads, payload)
	return nil
}

func (f *FakePublisher) PublishTelemetry(t Telemetry) error {
	if err := f.PublishError; err != nil {
		return err
	}
	f.Telemetry = append(f.Telemetry, t)
	return nil
}

func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if err := f.PublishSystemError; err != nil {
		return err
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents, f.SystemPayloads = append(f.SystemEvents, event), append(f.SystemPayloads, payload)
	return nil
}

func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected returns the Connected field.
func (f *FakePublisher) IsConnected() bool { return f.Connected }

// Reset drops recorded messages and scripted failures.
func (f *FakePublisher) Reset() {
	*f = FakePublisher{}
}

// NopPublisher discards everything. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(logic.Event) error        { return nil }
func (NopPublisher) PublishTelemetry(Telemetry) error { return nil }
func (NopPublisher) PublishSystem(SystemEvent) error  { return nil }
func (NopPublisher) Close() error                     { return nil }

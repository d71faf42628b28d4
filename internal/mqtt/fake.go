package mqtt

// FakePublisher implements Publisher and ConnectionStatus in memory,
// recording everything published for test assertions.
type FakePublisher struct {
	Transitions    []Transition
	Payloads       [][]byte
	SystemEvents   []SystemEvent
	SystemPayloads [][]byte

	// PublishError, when set, is returned by both publish methods
	// without recording the event.
	PublishError error
	// Connected is reported by IsConnected.
	Connected bool
	Closed    bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) PublishTransition(event Transition) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatTransitionPayload(event)
	if err != nil {
		return err
	}
	f.Transitions = append(f.Transitions, event)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded events and configured behavior.
func (f *FakePublisher) Reset() {
	*f = FakePublisher{}
}

package pulse

import "errors"

// FakeSource is a test double that delivers scripted edges.
type FakeSource struct {
	// Edges are delivered synchronously to the handler when Start is
	// called.
	Edges []Edge

	// StartError, if set, will be returned by Start.
	StartError error

	// Closed tracks if Close was called.
	Closed bool

	handler func(Edge)
}

// NewFakeSource creates a FakeSource with the given scripted edges.
func NewFakeSource(edges []Edge) *FakeSource {
	return &FakeSource{Edges: edges}
}

// Start replays the scripted edges into the handler and keeps it for
// later Emit calls.
func (f *FakeSource) Start(handler func(Edge)) error {
	if f.StartError != nil {
		return f.StartError
	}
	f.handler = handler
	for _, e := range f.Edges {
		handler(e)
	}
	return nil
}

// Emit delivers a single edge to the handler registered by Start.
func (f *FakeSource) Emit(e Edge) error {
	if f.handler == nil {
		return errors.New("fake source not started")
	}
	f.handler(e)
	return nil
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.Closed = true
	return nil
}

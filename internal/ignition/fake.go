package ignition

// FakeDriver records cut commands for test assertions.
type FakeDriver struct {
	// Sets contains every value passed to Set, in order.
	Sets []bool

	// SetError, if set, will be returned by Set.
	SetError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeDriver creates a FakeDriver for testing.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{}
}

// Set records the cut command.
func (f *FakeDriver) Set(cut bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Sets = append(f.Sets, cut)
	return nil
}

// Cut reports the most recent commanded state (false if none).
func (f *FakeDriver) Cut() bool {
	if len(f.Sets) == 0 {
		return false
	}
	return f.Sets[len(f.Sets)-1]
}

// Close marks the driver as closed.
func (f *FakeDriver) Close() error {
	f.Closed = true
	return nil
}

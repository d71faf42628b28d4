// Package pulse provides the edge-event feed from the wheel hall sensor
// and the spark-wire pickup, with hardware abstraction.
// The real implementation uses Linux GPIO character device edge events.
// The fake implementation allows testing without hardware.
package pulse

import (
	"time"

	"github.com/ikke-t/mopo/internal/logic"
)

// Edge is a single timestamped edge on one channel. Timestamps are
// taken with time.Now() in the delivery handler, so they carry Go's
// monotonic clock reading.
type Edge struct {
	Channel logic.Channel
	Time    time.Time
	Rising  bool
}

// Source delivers edges to a handler. The handler runs on the source's
// delivery goroutine (one per channel) and must be O(1) and
// non-blocking — it sits on the interrupt path.
type Source interface {
	// Start begins edge delivery. The handler may be called until
	// Close returns.
	Start(handler func(Edge)) error

	// Close stops delivery and releases GPIO resources.
	Close() error
}

// Pin defaults (BCM numbering).
const (
	DefaultPinSpeed    = 13 // hall sensor
	DefaultPinIgnition = 12 // spark-wire pickup
)

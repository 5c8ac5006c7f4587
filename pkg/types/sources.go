package types

import (
	"errors"
	"time"
)

// ErrSourceClosed is returned by Poll once the capture subsystem has shut
// down and no further events will be delivered.
var ErrSourceClosed = errors.New("event source closed")

// EventSource delivers captured block I/O events. Poll drains whatever is
// buffered, invoking deliver synchronously for each record, and returns no
// later than roughly timeout after being called. Zero deliveries within the
// timeout is not an error. Delivery is best effort; the source may drop
// events under its own buffer pressure.
type EventSource interface {
	Poll(timeout time.Duration, deliver func(BlockIOEvent)) error
	Close() error
}

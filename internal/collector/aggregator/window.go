package aggregator

// WindowAggregate accumulates one window of block I/O statistics. It is
// owned by a single control loop at a time; Reset, Accept and Finalize are
// never called concurrently, so there is no lock.
type WindowAggregate struct {
	sectors       []uint64
	bytesTotal    uint64
	requestCount  uint64
	jumpCount     uint64
	lastSector    uint64
	haveLast      bool
	jumpThreshold uint64
}

// New returns an empty aggregate with the given jump threshold in bytes.
func New(jumpThresholdBytes uint64) *WindowAggregate {
	return &WindowAggregate{
		sectors:       make([]uint64, 0, 1024),
		jumpThreshold: jumpThresholdBytes,
	}
}

// Reset clears the aggregate for the next window, keeping the sector
// buffer's capacity.
func (w *WindowAggregate) Reset() {
	w.sectors = w.sectors[:0]
	w.bytesTotal = 0
	w.requestCount = 0
	w.jumpCount = 0
	w.lastSector = 0
	w.haveLast = false
}

// RequestCount reports events accepted so far in this window.
func (w *WindowAggregate) RequestCount() uint64 {
	return w.requestCount
}

// JumpCount reports large inter-request jumps seen so far in this window.
func (w *WindowAggregate) JumpCount() uint64 {
	return w.jumpCount
}

package classifier

import (
	"fmt"
	"time"
)

// TransportError covers connect, send and receive failures talking to the
// classifier service. The window that triggered it is abandoned.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("classifier transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError reports a kernel-bridge exchange whose reply did not arrive
// within the deadline. Kept distinct from TransportError so operators can
// tell a slow classifier from a broken channel.
type TimeoutError struct {
	Wait time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("classifier reply not received within %s", e.Wait)
}

// ProtocolError reports a well-formed reply carrying a class index outside
// the valid range. The class must not be applied.
type ProtocolError struct {
	Class int32
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("classifier returned out-of-range class %d", e.Class)
}

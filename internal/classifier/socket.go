package classifier

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"time"

	"github.com/blocktune/blocktune/pkg/types"
)

// SocketClient speaks the local stream-socket binding: one fresh connection
// per exchange, 20 bytes out, 4 bytes back. No pooling, so a failed window
// cannot poison the next one.
type SocketClient struct {
	path    string
	timeout time.Duration
}

// NewSocketClient returns a client for the classifier listening at path.
// timeout bounds one whole exchange; zero means no deadline.
func NewSocketClient(path string, timeout time.Duration) *SocketClient {
	return &SocketClient{path: path, timeout: timeout}
}

func (c *SocketClient) Classify(ctx context.Context, features types.FeatureVector) (int, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.path)
	if err != nil {
		return 0, &TransportError{Op: "connect", Err: err}
	}
	defer conn.Close()

	if c.timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, &TransportError{Op: "deadline", Err: err}
		}
	}

	payload, err := features.MarshalBinary()
	if err != nil {
		return 0, &TransportError{Op: "encode", Err: err}
	}
	if _, err := conn.Write(payload); err != nil {
		return 0, &TransportError{Op: "send", Err: err}
	}

	var reply [types.ClassWireSize]byte
	if _, err := io.ReadFull(conn, reply[:]); err != nil {
		return 0, &TransportError{Op: "recv", Err: err}
	}

	class := int32(binary.LittleEndian.Uint32(reply[:]))
	if class < 0 || class >= types.NumClasses {
		return 0, &ProtocolError{Class: class}
	}
	return int(class), nil
}

func (c *SocketClient) Close() error { return nil }

package classifier

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"sync"
	"time"

	"github.com/blocktune/blocktune/pkg/types"
	"golang.org/x/sys/unix"
)

// ReplyDeadline is fixed by the kernel bridge: requests it does not see
// answered within this long are dropped on its side too.
const ReplyDeadline = 200 * time.Millisecond

// NetlinkClient speaks the kernel-bridge binding. Construction performs the
// registration handshake (a zero-length message tells the bridge which port
// to talk to); each Classify pushes the 20-byte payload and awaits the
// 4-byte reply under the fixed deadline.
type NetlinkClient struct {
	mu  sync.Mutex
	fd  int
	pid uint32
	seq uint32
}

func NewNetlinkClient(proto int) (*NetlinkClient, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW, proto)
	if err != nil {
		return nil, &TransportError{Op: "socket", Err: err}
	}

	c := &NetlinkClient{fd: fd, pid: uint32(os.Getpid())}

	if err := unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Pid: c.pid}); err != nil {
		unix.Close(fd)
		return nil, &TransportError{Op: "bind", Err: err}
	}

	// Registration handshake: zero-length payload.
	if err := c.send(nil); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return c, nil
}

func (c *NetlinkClient) Classify(ctx context.Context, features types.FeatureVector) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, &TransportError{Op: "send", Err: err}
	}

	payload, err := features.MarshalBinary()
	if err != nil {
		return 0, &TransportError{Op: "encode", Err: err}
	}
	if err := c.send(payload); err != nil {
		return 0, err
	}

	tv := unix.NsecToTimeval(ReplyDeadline.Nanoseconds())
	if err := unix.SetsockoptTimeval(c.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		return 0, &TransportError{Op: "deadline", Err: err}
	}

	buf := make([]byte, 256)
	n, _, err := unix.Recvfrom(c.fd, buf, 0)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, &TimeoutError{Wait: ReplyDeadline}
		}
		return 0, &TransportError{Op: "recv", Err: err}
	}
	if n < unix.NLMSG_HDRLEN+types.ClassWireSize {
		return 0, &TransportError{Op: "recv", Err: io.ErrUnexpectedEOF}
	}

	class := int32(binary.LittleEndian.Uint32(buf[unix.NLMSG_HDRLEN:]))
	if class < 0 || class >= types.NumClasses {
		return 0, &ProtocolError{Class: class}
	}
	return int(class), nil
}

func (c *NetlinkClient) Close() error {
	return unix.Close(c.fd)
}

func (c *NetlinkClient) send(payload []byte) error {
	c.seq++
	msg := netlinkMessage(c.pid, c.seq, payload)
	dst := &unix.SockaddrNetlink{Family: unix.AF_NETLINK} // pid 0: the kernel
	if err := unix.Sendto(c.fd, msg, 0, dst); err != nil {
		return &TransportError{Op: "send", Err: err}
	}
	return nil
}

// netlinkMessage frames payload behind an nlmsghdr addressed from pid.
func netlinkMessage(pid, seq uint32, payload []byte) []byte {
	length := unix.NLMSG_HDRLEN + len(payload)
	msg := make([]byte, nlmsgAlign(length))
	binary.LittleEndian.PutUint32(msg[0:4], uint32(length))
	binary.LittleEndian.PutUint16(msg[4:6], unix.NLMSG_DONE)
	binary.LittleEndian.PutUint16(msg[6:8], 0)
	binary.LittleEndian.PutUint32(msg[8:12], seq)
	binary.LittleEndian.PutUint32(msg[12:16], pid)
	copy(msg[unix.NLMSG_HDRLEN:], payload)
	return msg
}

func nlmsgAlign(n int) int {
	return (n + unix.NLMSG_ALIGNTO - 1) &^ (unix.NLMSG_ALIGNTO - 1)
}

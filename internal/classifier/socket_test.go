package classifier

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocktune/blocktune/pkg/types"
)

// fakeClassifier accepts one connection, records the received vector and
// replies with the configured class bytes. Passing nil reply closes the
// connection without answering.
func fakeClassifier(t *testing.T, reply []byte) (path string, got <-chan types.FeatureVector) {
	t.Helper()
	path = filepath.Join(t.TempDir(), "predictor.sock")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	ch := make(chan types.FeatureVector, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		buf := make([]byte, types.FeatureWireSize)
		if _, err := io.ReadFull(conn, buf); err != nil {
			return
		}
		var f types.FeatureVector
		if err := f.UnmarshalBinary(buf); err != nil {
			return
		}
		ch <- f

		if reply != nil {
			conn.Write(reply)
		}
	}()
	return path, ch
}

func classBytes(class int32) []byte {
	buf := make([]byte, types.ClassWireSize)
	binary.LittleEndian.PutUint32(buf, uint32(class))
	return buf
}

func TestSocketClassifyRoundTrip(t *testing.T) {
	sent := types.FeatureVector{51200, 0, 4096, 1, 3}
	path, got := fakeClassifier(t, classBytes(types.CLASS_MIXED))

	c := NewSocketClient(path, time.Second)
	class, err := c.Classify(context.Background(), sent)
	require.NoError(t, err)
	assert.Equal(t, types.CLASS_MIXED, class)

	select {
	case f := <-got:
		assert.Equal(t, sent, f)
	case <-time.After(time.Second):
		t.Fatal("classifier never received the vector")
	}
}

func TestSocketClassifyOutOfRangeClass(t *testing.T) {
	path, _ := fakeClassifier(t, classBytes(5))

	c := NewSocketClient(path, time.Second)
	_, err := c.Classify(context.Background(), types.FeatureVector{})
	require.Error(t, err)

	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, int32(5), perr.Class)
}

func TestSocketClassifyNegativeClass(t *testing.T) {
	path, _ := fakeClassifier(t, classBytes(-1))

	c := NewSocketClient(path, time.Second)
	_, err := c.Classify(context.Background(), types.FeatureVector{})

	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, int32(-1), perr.Class)
}

func TestSocketClassifyConnectionRefused(t *testing.T) {
	c := NewSocketClient(filepath.Join(t.TempDir(), "absent.sock"), time.Second)
	_, err := c.Classify(context.Background(), types.FeatureVector{})
	require.Error(t, err)

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "connect", terr.Op)
}

func TestSocketClassifyShortReply(t *testing.T) {
	path, _ := fakeClassifier(t, []byte{0x01, 0x00}) // 2 of 4 bytes, then close

	c := NewSocketClient(path, time.Second)
	_, err := c.Classify(context.Background(), types.FeatureVector{})
	require.Error(t, err)

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "recv", terr.Op)
}

func TestSocketClassifyNoReply(t *testing.T) {
	path, _ := fakeClassifier(t, nil)

	c := NewSocketClient(path, 200*time.Millisecond)
	_, err := c.Classify(context.Background(), types.FeatureVector{})

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
}

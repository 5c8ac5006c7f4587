package loaders

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
	"github.com/cilium/ebpf/ringbuf"
	"github.com/cilium/ebpf/rlimit"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/blocktune/blocktune/pkg/logutil"
	"github.com/blocktune/blocktune/pkg/types"
)

const (
	progName = "trace_rq_issue"
	mapName  = "events"
)

// rawBlockEvent mirrors the packed sample the tracepoint program submits:
// u64 sector, u32 bytes, u64 ts, u32 rw, little-endian, 24 bytes.
type rawBlockEvent struct {
	Sector uint64
	Bytes  uint32
	Ts     uint64
	Rw     uint32
}

const rawEventSize = 24

// BlocktraceLoader attaches to the block:block_rq_issue tracepoint and
// exposes the ring buffer as a polled EventSource.
type BlocktraceLoader struct {
	coll *ebpf.Collection
	tp   link.Link
	rb   *ringbuf.Reader
}

func NewBlocktraceLoader(objectPath string) (*BlocktraceLoader, error) {
	logger := logutil.GetLogger()

	if err := rlimit.RemoveMemlock(); err != nil {
		return nil, err
	}

	spec, err := ebpf.LoadCollectionSpec(objectPath)
	if err != nil {
		logger.Error("error loading BPF object", zap.String("path", objectPath), zap.Error(err))
		return nil, err
	}

	coll, err := ebpf.NewCollection(spec)
	if err != nil {
		logger.Error("error creating BPF collection", zap.Error(err))
		return nil, err
	}

	bt := &BlocktraceLoader{coll: coll}

	prog, ok := coll.Programs[progName]
	if !ok {
		bt.Close()
		return nil, fmt.Errorf("BPF object %s has no program %q", objectPath, progName)
	}

	tp, err := link.Tracepoint("block", "block_rq_issue", prog, nil)
	if err != nil {
		logger.Error("failed to attach tracepoint", zap.Error(err))
		bt.Close()
		return nil, err
	}
	bt.tp = tp
	logger.Info("attached tracepoint", zap.String("tracepoint", "block/block_rq_issue"))

	events, ok := coll.Maps[mapName]
	if !ok {
		bt.Close()
		return nil, fmt.Errorf("BPF object %s has no map %q", objectPath, mapName)
	}

	rb, err := ringbuf.NewReader(events)
	if err != nil {
		logger.Error("error opening ring buffer", zap.Error(err))
		bt.Close()
		return nil, err
	}
	bt.rb = rb

	return bt, nil
}

func (bt *BlocktraceLoader) Close() error {
	var err error
	if bt.rb != nil {
		err = multierr.Append(err, bt.rb.Close())
	}
	if bt.tp != nil {
		err = multierr.Append(err, bt.tp.Close())
	}
	if bt.coll != nil {
		bt.coll.Close()
	}
	return err
}

// Poll drains buffered samples until roughly timeout has passed, invoking
// deliver for each parsed event. Returning with zero deliveries is normal
// on an idle device.
func (bt *BlocktraceLoader) Poll(timeout time.Duration, deliver func(types.BlockIOEvent)) error {
	logger := logutil.GetLogger()

	bt.rb.SetDeadline(time.Now().Add(timeout))
	for {
		record, err := bt.rb.Read()
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return nil
			}
			if errors.Is(err, ringbuf.ErrClosed) {
				return types.ErrSourceClosed
			}
			return err
		}

		if len(record.RawSample) < rawEventSize {
			logger.Warn("Short record", zap.Int("size", len(record.RawSample)))
			continue
		}

		var e rawBlockEvent
		if err := binary.Read(bytes.NewReader(record.RawSample), binary.LittleEndian, &e); err != nil {
			logger.Error("Parsing block event", zap.Error(err))
			continue
		}

		deliver(types.BlockIOEvent{
			Sector:      e.Sector,
			Bytes:       e.Bytes,
			TimestampNs: e.Ts,
			IsWrite:     e.Rw != 0,
		})
	}
}

package types

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	// SectorSize is the positional unit for all distance math. The jump
	// threshold below assumes it; retune both together if a device uses
	// different geometry.
	SectorSize = 512

	// JumpThresholdBytes marks a pair of consecutive requests as a jump
	// when their sector distance exceeds it.
	JumpThresholdBytes = 1_000_000

	CLASS_SEQUENTIAL = 0
	CLASS_RANDOM     = 1
	CLASS_MIXED      = 2
	NumClasses       = 3

	FeatureCount    = 5
	FeatureWireSize = FeatureCount * 4
	ClassWireSize   = 4

	LoaderBlocktrace = "blocktrace"
)

// Fixed positions inside a FeatureVector.
const (
	FeatureAvgDistance = 0
	FeatureJumpRatio   = 1
	FeatureAvgIOSize   = 2
	FeatureSeqRatio    = 3
	FeatureIOPS        = 4
)

var classNames = [NumClasses]string{"sequential", "random", "mixed"}

func ClassName(class int) string {
	if class < 0 || class >= NumClasses {
		return "unknown"
	}
	return classNames[class]
}

// BlockIOEvent is one I/O request as delivered by the capture subsystem.
// TimestampNs is informational and kept for forward compatibility.
type BlockIOEvent struct {
	Sector      uint64
	Bytes       uint32
	TimestampNs uint64
	IsWrite     bool
}

// FeatureVector is the fixed 5-value summary of one window:
// [avg_inter_request_distance_bytes, jump_ratio, avg_io_size_bytes,
// sequential_ratio, iops].
type FeatureVector [FeatureCount]float32

// MarshalBinary encodes the vector as 20 little-endian IEEE-754 bytes,
// the exact payload the classifier service expects.
func (f FeatureVector) MarshalBinary() ([]byte, error) {
	buf := make([]byte, FeatureWireSize)
	for i, v := range f {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf, nil
}

func (f *FeatureVector) UnmarshalBinary(data []byte) error {
	if len(data) != FeatureWireSize {
		return fmt.Errorf("feature vector payload must be %d bytes, got %d", FeatureWireSize, len(data))
	}
	for i := range f {
		f[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return nil
}

package aggregator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocktune/blocktune/pkg/types"
)

func event(sector uint64, bytes uint32) types.BlockIOEvent {
	return types.BlockIOEvent{Sector: sector, Bytes: bytes}
}

func TestEmptyWindowIsAllZero(t *testing.T) {
	w := New(types.JumpThresholdBytes)
	assert.Equal(t, types.FeatureVector{}, w.Finalize(1.0))
}

func TestZeroByteEventsAreDiscarded(t *testing.T) {
	w := New(types.JumpThresholdBytes)
	assert.False(t, w.Accept(event(100, 0)))
	assert.True(t, w.Accept(event(200, 4096)))
	assert.Equal(t, uint64(1), w.RequestCount())
}

func TestSequentialWindow(t *testing.T) {
	// Three requests 100 sectors apart, 4 KiB each, over one second.
	w := New(types.JumpThresholdBytes)
	for _, s := range []uint64{0, 100, 200} {
		require.True(t, w.Accept(event(s, 4096)))
	}

	f := w.Finalize(1.0)
	assert.Equal(t, float32(100*types.SectorSize), f[types.FeatureAvgDistance])
	assert.Equal(t, float32(0), f[types.FeatureJumpRatio])
	assert.Equal(t, float32(4096), f[types.FeatureAvgIOSize])
	assert.Equal(t, float32(1), f[types.FeatureSeqRatio])
	assert.Equal(t, float32(3), f[types.FeatureIOPS])
}

func TestFirstEventNeverCountsAsJump(t *testing.T) {
	w := New(types.JumpThresholdBytes)
	require.True(t, w.Accept(event(5000, 4096)))
	assert.Equal(t, uint64(1), w.RequestCount())
	assert.Equal(t, uint64(0), w.JumpCount())

	f := w.Finalize(1.0)
	assert.Equal(t, float32(0), f[types.FeatureAvgDistance])
	assert.Equal(t, float32(0), f[types.FeatureJumpRatio])
}

func TestLargeJumpDetectedAfterSectorZero(t *testing.T) {
	// A first request at sector 0 still arms the distance check, so the
	// following far request is a jump.
	w := New(types.JumpThresholdBytes)
	require.True(t, w.Accept(event(0, 4096)))
	require.True(t, w.Accept(event(3_000_000, 4096)))

	assert.Equal(t, uint64(1), w.JumpCount())

	f := w.Finalize(1.0)
	assert.Equal(t, float32(0.5), f[types.FeatureJumpRatio])
	assert.Equal(t, float32(0.5), f[types.FeatureSeqRatio])
}

func TestJumpThresholdBoundary(t *testing.T) {
	w := New(types.JumpThresholdBytes)
	require.True(t, w.Accept(event(0, 512)))

	// 1953 sectors = 999_936 bytes, just under the threshold.
	require.True(t, w.Accept(event(1953, 512)))
	assert.Equal(t, uint64(0), w.JumpCount())

	// Back to 0: 1953 sectors again, still no jump.
	require.True(t, w.Accept(event(0, 512)))
	assert.Equal(t, uint64(0), w.JumpCount())

	// 1954 sectors = 1_000_448 bytes, over the threshold.
	require.True(t, w.Accept(event(1954, 512)))
	assert.Equal(t, uint64(1), w.JumpCount())
}

func TestJumpRatioNonDecreasingUnderJumps(t *testing.T) {
	w := New(types.JumpThresholdBytes)
	require.True(t, w.Accept(event(0, 4096)))

	prev := float32(0)
	sector := uint64(0)
	for i := 0; i < 10; i++ {
		sector += 5_000_000
		require.True(t, w.Accept(event(sector, 4096)))
		ratio := w.Finalize(1.0)[types.FeatureJumpRatio]
		assert.GreaterOrEqual(t, ratio, prev)
		prev = ratio
	}
}

func TestSequentialPlusJumpRatioIsOne(t *testing.T) {
	w := New(types.JumpThresholdBytes)
	sectors := []uint64{0, 8, 4_000_000, 4_000_008, 16, 9_000_000}
	for _, s := range sectors {
		require.True(t, w.Accept(event(s, 8192)))
	}

	f := w.Finalize(2.5)
	assert.Equal(t, float32(1), f[types.FeatureJumpRatio]+f[types.FeatureSeqRatio])
}

func TestFinalizeIsPure(t *testing.T) {
	w := New(types.JumpThresholdBytes)
	for _, s := range []uint64{10, 20, 30} {
		require.True(t, w.Accept(event(s, 1024)))
	}

	first := w.Finalize(1.0)
	second := w.Finalize(1.0)
	assert.Equal(t, first, second)
}

func TestFinalizeNeverProducesNaN(t *testing.T) {
	cases := map[string]struct {
		sectors       []uint64
		bytes         uint32
		windowSeconds float64
	}{
		"empty zero duration":  {nil, 0, 0},
		"events zero duration": {[]uint64{1, 2}, 512, 0},
		"huge sectors":         {[]uint64{0, math.MaxUint64 / 1024}, 4096, 2.5},
		"tiny window":          {[]uint64{5}, 512, 1e-9},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := New(types.JumpThresholdBytes)
			for _, s := range tc.sectors {
				w.Accept(event(s, tc.bytes))
			}
			f := w.Finalize(tc.windowSeconds)
			for i, v := range f {
				assert.False(t, math.IsNaN(float64(v)), "feature %d is NaN", i)
			}
		})
	}
}

func TestResetClearsEverything(t *testing.T) {
	w := New(types.JumpThresholdBytes)
	require.True(t, w.Accept(event(0, 4096)))
	require.True(t, w.Accept(event(3_000_000, 4096)))
	require.Equal(t, uint64(1), w.JumpCount())

	w.Reset()
	assert.Equal(t, uint64(0), w.RequestCount())
	assert.Equal(t, types.FeatureVector{}, w.Finalize(1.0))

	// A far-off first event after Reset must not register a jump against
	// the previous window's last sector.
	require.True(t, w.Accept(event(9_000_000, 4096)))
	assert.Equal(t, uint64(0), w.JumpCount())
}

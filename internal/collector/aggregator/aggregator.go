package aggregator

import (
	"github.com/blocktune/blocktune/pkg/types"
)

// Accept folds one event into the window. Zero-byte events are discarded
// here, not by the source; the return value reports whether the event was
// kept. Runs on the capture delivery path, so it stays O(1) and does not
// allocate beyond the amortized sector append.
func (w *WindowAggregate) Accept(ev types.BlockIOEvent) bool {
	if ev.Bytes == 0 {
		return false
	}

	w.sectors = append(w.sectors, ev.Sector)
	w.bytesTotal += uint64(ev.Bytes)
	w.requestCount++

	if w.haveLast {
		if sectorDistance(ev.Sector, w.lastSector)*types.SectorSize > w.jumpThreshold {
			w.jumpCount++
		}
	}
	w.lastSector = ev.Sector
	w.haveLast = true
	return true
}

// Finalize computes the feature vector for the window. It is pure: the
// aggregate is left untouched and is discarded by the caller right after.
// An empty window, or a non-positive duration, yields the all-zero vector;
// no input can make it produce NaN.
func (w *WindowAggregate) Finalize(windowSeconds float64) types.FeatureVector {
	var f types.FeatureVector
	if w.requestCount == 0 || windowSeconds <= 0 {
		return f
	}

	// Mean distance over consecutive pairs in arrival order. Temporal
	// order matters here: sorting would hide back-and-forth seeking.
	var avgDistSectors float64
	if len(w.sectors) > 1 {
		var total uint64
		for i := 1; i < len(w.sectors); i++ {
			total += sectorDistance(w.sectors[i], w.sectors[i-1])
		}
		avgDistSectors = float64(total) / float64(len(w.sectors)-1)
	}

	jumpRatio := float64(w.jumpCount) / float64(w.requestCount)
	bwKBps := (float64(w.bytesTotal) / 1024.0) / windowSeconds
	iops := float64(w.requestCount) / windowSeconds

	var avgIOSizeBytes float64
	if iops > 0.001 {
		avgIOSizeBytes = (bwKBps * 1024.0) / iops
	}

	seqRatio := 1.0 - jumpRatio
	if seqRatio < 0 {
		seqRatio = 0
	} else if seqRatio > 1 {
		seqRatio = 1
	}

	f[types.FeatureAvgDistance] = float32(avgDistSectors * types.SectorSize)
	f[types.FeatureJumpRatio] = float32(jumpRatio)
	f[types.FeatureAvgIOSize] = float32(avgIOSizeBytes)
	f[types.FeatureSeqRatio] = float32(seqRatio)
	f[types.FeatureIOPS] = float32(iops)
	return f
}

func sectorDistance(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

package loaders

import (
	"errors"

	"github.com/blocktune/blocktune/pkg/types"
)

// NewEventSource builds the capture program named by program. objectPath
// points at the compiled BPF object to load.
func NewEventSource(program string, objectPath string) (types.EventSource, error) {
	switch program {
	case types.LoaderBlocktrace:
		return NewBlocktraceLoader(objectPath)
	default:
		return nil, errors.New("unsupported or unknown program")
	}
}

package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/blocktune/blocktune/pkg/types"
)

// readaheadKB is the fixed class → read_ahead_kb mapping.
var readaheadKB = [types.NumClasses]int{
	types.CLASS_SEQUENTIAL: 256,
	types.CLASS_RANDOM:     16,
	types.CLASS_MIXED:      64,
}

// ReadaheadForClass maps a class index to its target read-ahead in KB.
func ReadaheadForClass(class int) (int, error) {
	if class < 0 || class >= types.NumClasses {
		return 0, fmt.Errorf("no readahead policy for class %d", class)
	}
	return readaheadKB[class], nil
}

// WriteError reports a control endpoint that could not be written. The
// window is lost; the next one retries on its own.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("policy write to %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Applier writes readahead targets for one device. Writing the same class
// twice leaves the endpoint in the same state, so repeats are harmless.
type Applier struct {
	device    string
	sysfsRoot string
}

// NewApplier targets device under sysfsRoot, normally /sys/block.
func NewApplier(device, sysfsRoot string) *Applier {
	return &Applier{device: device, sysfsRoot: sysfsRoot}
}

// ControlPath is the tunable endpoint this applier writes.
func (a *Applier) ControlPath() string {
	return filepath.Join(a.sysfsRoot, a.device, "queue", "read_ahead_kb")
}

// Apply writes the mapped KB value as decimal ASCII in a single write.
// No read-back verification is done.
func (a *Applier) Apply(class int) error {
	kb, err := ReadaheadForClass(class)
	if err != nil {
		return err
	}
	path := a.ControlPath()
	if err := os.WriteFile(path, []byte(strconv.Itoa(kb)), 0o644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

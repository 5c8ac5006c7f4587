package classifier

import (
	"fmt"

	"github.com/blocktune/blocktune/internal/config"
	"github.com/blocktune/blocktune/pkg/types"
)

// New selects the transport binding from configuration.
func New(cfg *config.Config) (types.Classifier, error) {
	switch cfg.Transport {
	case config.TransportUnix:
		return NewSocketClient(cfg.SocketPath, cfg.ClassifyTimeout()), nil
	case config.TransportNetlink:
		return NewNetlinkClient(cfg.NetlinkProto)
	default:
		return nil, fmt.Errorf("unsupported classifier transport %q", cfg.Transport)
	}
}

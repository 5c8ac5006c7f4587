package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	TransportUnix    = "unix"
	TransportNetlink = "netlink"
)

// Config is read once at process start and immutable afterwards.
type Config struct {
	// Device is the block device basename under sysfs, e.g. "nvme0n1".
	Device   string `yaml:"device"`
	WindowMs int    `yaml:"window_ms"`

	// Transport selects the classifier binding: "unix" or "netlink".
	Transport    string `yaml:"transport"`
	SocketPath   string `yaml:"socket_path"`
	NetlinkProto int    `yaml:"netlink_proto"`

	// ClassifyTimeoutMs bounds one unix-socket exchange. Zero leaves the
	// connection without a deadline. The netlink binding carries its own
	// fixed reply deadline and ignores this.
	ClassifyTimeoutMs int `yaml:"classify_timeout_ms"`

	BPFObjectPath string `yaml:"bpf_object_path"`
	SysfsRoot     string `yaml:"sysfs_root"`

	// MetricsAddr enables the /metrics listener when non-empty.
	MetricsAddr string `yaml:"metrics_addr"`
}

func Default() *Config {
	return &Config{
		Device:        "nvme0n1",
		WindowMs:      2500,
		Transport:     TransportUnix,
		SocketPath:    "/tmp/ml_predictor.sock",
		NetlinkProto:  31,
		BPFObjectPath: "/usr/local/lib/blocktune/blocktrace.bpf.o",
		SysfsRoot:     "/sys/block",
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// BLOCKTUNE_CONFIG if set, then environment overrides.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("BLOCKTUNE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("device must not be empty")
	}
	if c.WindowMs <= 0 {
		return fmt.Errorf("window_ms must be > 0, got %d", c.WindowMs)
	}
	switch c.Transport {
	case TransportUnix:
		if c.SocketPath == "" {
			return fmt.Errorf("socket_path must not be empty for unix transport")
		}
	case TransportNetlink:
		if c.NetlinkProto <= 0 {
			return fmt.Errorf("netlink_proto must be > 0, got %d", c.NetlinkProto)
		}
	default:
		return fmt.Errorf("unsupported transport %q", c.Transport)
	}
	if c.ClassifyTimeoutMs < 0 {
		return fmt.Errorf("classify_timeout_ms must be >= 0, got %d", c.ClassifyTimeoutMs)
	}
	return nil
}

func (c *Config) Window() time.Duration {
	return time.Duration(c.WindowMs) * time.Millisecond
}

func (c *Config) ClassifyTimeout() time.Duration {
	return time.Duration(c.ClassifyTimeoutMs) * time.Millisecond
}

package config

import (
	"os"
	"strconv"
)

// loadFromEnv applies environment overrides on top of file/default values.
func loadFromEnv(cfg *Config) {
	if v := os.Getenv("BLOCKTUNE_DEVICE"); v != "" {
		cfg.Device = v
	}
	if v := os.Getenv("BLOCKTUNE_WINDOW_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WindowMs = n
		}
	}
	if v := os.Getenv("BLOCKTUNE_TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := os.Getenv("BLOCKTUNE_SOCKET"); v != "" {
		cfg.SocketPath = v
	}
	if v := os.Getenv("BLOCKTUNE_NETLINK_PROTO"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.NetlinkProto = n
		}
	}
	if v := os.Getenv("BLOCKTUNE_CLASSIFY_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ClassifyTimeoutMs = n
		}
	}
	if v := os.Getenv("BLOCKTUNE_BPF_OBJECT"); v != "" {
		cfg.BPFObjectPath = v
	}
	if v := os.Getenv("BLOCKTUNE_SYSFS_ROOT"); v != "" {
		cfg.SysfsRoot = v
	}
	if v := os.Getenv("BLOCKTUNE_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
}

package csr

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds the static platform parameters consumed at reset.
type Config struct {
	// BootAddr is the reset value of the trap vector bases.
	BootAddr uint64 `json:"boot_addr"`

	// CoreID and ClusterID identify this hart within the platform. They
	// combine into the mhartid value.
	CoreID    uint64 `json:"core_id"`
	ClusterID uint64 `json:"cluster_id"`

	// ASIDWidth is the number of implemented address-space-id bits.
	ASIDWidth uint8 `json:"asid_width"`

	// CommitLanes is the number of commit-acknowledge lanes per tick.
	CommitLanes int `json:"commit_lanes"`
}

// coresPerCluster fixes the mhartid split between cluster and core id.
const coresPerCluster = 4

// HartID returns the mhartid value formed from the cluster and core ids.
func (c Config) HartID() uint64 {
	return c.ClusterID*coresPerCluster + c.CoreID
}

// DefaultConfig returns the default platform configuration: a single hart
// booting at 0x8000_0000 with a 16-bit ASID and dual commit lanes.
func DefaultConfig() Config {
	return Config{
		BootAddr:    0x80000000,
		ASIDWidth:   16,
		CommitLanes: 2,
	}
}

// LoadConfigFromFile reads a platform configuration from a JSON file.
// Missing fields keep their default values.
func LoadConfigFromFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.ASIDWidth > 16 {
		return cfg, fmt.Errorf("asid_width %d exceeds the 16-bit field", cfg.ASIDWidth)
	}
	if cfg.CommitLanes < 1 {
		return cfg, fmt.Errorf("commit_lanes must be at least 1")
	}

	return cfg, nil
}

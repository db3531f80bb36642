package boot

import (
	"github.com/BurntSushi/toml"

	"github.com/IRodriguez13/IR0-sub002/pkg/errno"
)

// MountConfig describes one pseudo-filesystem mounted at bring-up, beyond
// the always-present "/", "/dev", "/proc" and "/sys" mounts.
type MountConfig struct {
	Type    string `toml:"type"`     // "tmpfs" or "ramfs"
	Target  string `toml:"target"`
	MaxSize int64  `toml:"max_size"` // tmpfs only; 0 is unlimited
}

// DiskConfig describes the optional MINIX-backed disk image mounted at
// bring-up, per spec.md §4.8/§4.10.
type DiskConfig struct {
	Path    string `toml:"path"`
	ID      string `toml:"id"`      // block device id; a uuid is issued if empty
	Format  bool   `toml:"format"`  // mkfs a fresh volume instead of mounting an existing one
	Inodes  uint32 `toml:"inodes"`  // Format only
	Zones   uint32 `toml:"zones"`   // Format only
	MountAt string `toml:"mount_at"`
}

// Config is the boot-time configuration of spec.md §1/§6: scheduler
// policy, tick frequency, disk image, mount table and memory size,
// unmarshalled from a TOML document per the `runsc` config-file pattern.
type Config struct {
	Scheduler    string        `toml:"scheduler"` // "cfs", "priority" or "rr"
	TickHz       int           `toml:"tick_hz"`
	MemoryFrames int           `toml:"memory_frames"`
	HeapSize     int           `toml:"heap_size"`
	Hostname     string        `toml:"hostname"`
	Disk         DiskConfig    `toml:"disk"`
	Mounts       []MountConfig `toml:"mount"`
}

// defaultConfig returns the configuration used for any field a TOML
// document leaves unset.
func defaultConfig() Config {
	return Config{
		Scheduler:    "cfs",
		TickHz:       1000,
		MemoryFrames: 65536, // 256 MiB at a 4 KiB page size
		HeapSize:     1 << 20,
		Hostname:     "ir0",
	}
}

// DefaultConfig returns the baseline configuration LoadConfig overlays a
// TOML document onto, exported for callers (cmd/ir0's boot subcommand)
// that want to Bringup without requiring a config file on disk.
func DefaultConfig() Config {
	return defaultConfig()
}

// LoadConfig parses path as TOML into a Config, starting from defaults so
// a document only needs to name the fields it overrides.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, errno.EINVAL
	}
	return cfg, nil
}

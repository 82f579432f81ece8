package latency

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/armv7sim/timing/cache"
)

// TimingConfig holds the latency model of a machine: the minimum cycles
// each instruction class costs, the latency of the memory tiers, and the
// optional L1 cache tier placed in front of RAM.
type TimingConfig struct {
	// ALULatency is the minimum cost of data-processing, misc and media
	// instructions. Default: 1 cycle.
	ALULatency uint64 `json:"alu_latency"`

	// BranchLatency is the minimum cost of branches. Default: 1 cycle.
	BranchLatency uint64 `json:"branch_latency"`

	// LoadLatency is the minimum cost of loads, before memory billing.
	// Default: 1 cycle.
	LoadLatency uint64 `json:"load_latency"`

	// StoreLatency is the minimum cost of stores. Default: 1 cycle.
	StoreLatency uint64 `json:"store_latency"`

	// MultiplyLatency is the minimum cost of multiplies. Default: 1 cycle.
	MultiplyLatency uint64 `json:"multiply_latency"`

	// DivideLatency is the minimum cost of SDIV/UDIV. Default: 1 cycle.
	DivideLatency uint64 `json:"divide_latency"`

	// CoprocessorLatency is the minimum cost of coprocessor instructions.
	// Default: 1 cycle.
	CoprocessorLatency uint64 `json:"coprocessor_latency"`

	// RAMLatency is the per-access latency of RAM regions. Default: 1 cycle.
	RAMLatency uint64 `json:"ram_latency"`

	// ROMLatency is the per-access latency of ROM regions. Default: 1 cycle.
	ROMLatency uint64 `json:"rom_latency"`

	// WideBus selects single-transfer word accesses. When false, word
	// accesses cost twice the region latency. Default: true.
	WideBus bool `json:"wide_bus"`

	// StrictAlignment makes misaligned data accesses fault instead of being
	// composed byte by byte. Default: false.
	StrictAlignment bool `json:"strict_alignment"`

	// L1Enabled places a cache tier in front of RAM regions.
	L1Enabled bool `json:"l1_enabled"`

	// L1Size is the L1 capacity in bytes. Default: 32KB.
	L1Size int `json:"l1_size"`

	// L1Associativity is the number of ways. Default: 4.
	L1Associativity int `json:"l1_associativity"`

	// L1BlockSize is the line size in bytes. Default: 64.
	L1BlockSize int `json:"l1_block_size"`

	// L1HitLatency is the latency of an L1 hit. Default: 1 cycle.
	L1HitLatency uint64 `json:"l1_hit_latency"`

	// L1MissLatency is charged on top of the RAM latency on a miss.
	// Default: 8 cycles.
	L1MissLatency uint64 `json:"l1_miss_latency"`

	// L1WritebackLatency is charged when a dirty line is evicted.
	// Default: 4 cycles.
	L1WritebackLatency uint64 `json:"l1_writeback_latency"`
}

// DefaultTimingConfig returns a TimingConfig where every instruction and
// every access costs one cycle and the L1 tier is disabled.
func DefaultTimingConfig() *TimingConfig {
	l1 := cache.DefaultL1Config()
	return &TimingConfig{
		ALULatency:         1,
		BranchLatency:      1,
		LoadLatency:        1,
		StoreLatency:       1,
		MultiplyLatency:    1,
		DivideLatency:      1,
		CoprocessorLatency: 1,
		RAMLatency:         1,
		ROMLatency:         1,
		WideBus:            true,
		L1Size:             l1.Size,
		L1Associativity:    l1.Associativity,
		L1BlockSize:        l1.BlockSize,
		L1HitLatency:       l1.HitLatency,
		L1MissLatency:      l1.MissLatency,
		L1WritebackLatency: l1.WritebackLatency,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Fields absent from the
// file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that every instruction class costs at least one cycle
// and that the L1 geometry is usable when the tier is enabled.
func (c *TimingConfig) Validate() error {
	if c.ALULatency == 0 {
		return fmt.Errorf("alu_latency must be > 0")
	}
	if c.BranchLatency == 0 {
		return fmt.Errorf("branch_latency must be > 0")
	}
	if c.LoadLatency == 0 {
		return fmt.Errorf("load_latency must be > 0")
	}
	if c.StoreLatency == 0 {
		return fmt.Errorf("store_latency must be > 0")
	}
	if c.MultiplyLatency == 0 {
		return fmt.Errorf("multiply_latency must be > 0")
	}
	if c.DivideLatency == 0 {
		return fmt.Errorf("divide_latency must be > 0")
	}
	if c.CoprocessorLatency == 0 {
		return fmt.Errorf("coprocessor_latency must be > 0")
	}
	if c.L1Enabled {
		if err := c.CacheConfig().Validate(); err != nil {
			return fmt.Errorf("invalid l1 configuration: %w", err)
		}
	}
	return nil
}

// CacheConfig returns the L1 tier configuration.
func (c *TimingConfig) CacheConfig() cache.Config {
	return cache.Config{
		Size:             c.L1Size,
		Associativity:    c.L1Associativity,
		BlockSize:        c.L1BlockSize,
		HitLatency:       c.L1HitLatency,
		MissLatency:      c.L1MissLatency,
		WritebackLatency: c.L1WritebackLatency,
	}
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}

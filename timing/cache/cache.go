// Package cache provides a cache tier that wraps a memory region and
// models hit and miss latency using Akita cache components.
package cache

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/armv7sim/mem"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int
	// Associativity (number of ways)
	Associativity int
	// BlockSize in bytes (cache line size)
	BlockSize int
	// HitLatency in cycles
	HitLatency uint64
	// MissLatency in cycles, charged on top of the backing region's latency
	MissLatency uint64
	// WritebackLatency in cycles, charged when a dirty line is evicted
	WritebackLatency uint64
}

// DefaultL1Config returns a 32KB, 4-way, 64B-line L1 configuration.
func DefaultL1Config() Config {
	return Config{
		Size:             32 * 1024,
		Associativity:    4,
		BlockSize:        64,
		HitLatency:       1,
		MissLatency:      8,
		WritebackLatency: 4,
	}
}

// Validate checks that the geometry describes at least one set.
func (c Config) Validate() error {
	if c.Size <= 0 || c.Associativity <= 0 || c.BlockSize <= 0 {
		return fmt.Errorf("cache size, associativity and block size must be > 0")
	}
	if c.BlockSize&(c.BlockSize-1) != 0 {
		return fmt.Errorf("cache block size %d is not a power of two", c.BlockSize)
	}
	if c.Size%(c.Associativity*c.BlockSize) != 0 {
		return fmt.Errorf("cache size %d is not a multiple of associativity*block size", c.Size)
	}
	return nil
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// Cache is a mem.Region that fronts a backing region. The backing region
// always holds the data, so the tier changes timing and nothing else. Tag
// and replacement state come from an Akita directory; lines are
// write-allocate and written back (for latency purposes) on eviction.
type Cache struct {
	// Configuration
	config Config

	// Akita cache directory for tag/state management
	directory *akitacache.DirectoryImpl

	// Statistics
	stats Statistics

	backing mem.Region
}

// New creates a cache tier over backing.
func New(config Config, backing mem.Region) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		backing: backing,
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

// Size returns the size of the backing region.
func (c *Cache) Size() uint64 {
	return c.backing.Size()
}

// Read reads through the cache.
func (c *Cache) Read(offset uint32, width mem.Width, bigEndian bool) (uint32, uint64, error) {
	value, backingCycles, err := c.readBacking(offset, width, bigEndian)
	if err != nil {
		return 0, 0, err
	}

	c.stats.Reads++
	return value, c.access(offset, false, backingCycles), nil
}

// Write writes through to the backing region and marks the line dirty.
func (c *Cache) Write(offset uint32, width mem.Width, bigEndian bool, value uint32) (uint64, error) {
	backingCycles, err := c.writeBacking(offset, width, bigEndian, value)
	if err != nil {
		return 0, err
	}

	c.stats.Writes++
	return c.access(offset, true, backingCycles), nil
}

// access updates tag state and returns the latency of the access.
func (c *Cache) access(offset uint32, isWrite bool, backingCycles uint64) uint64 {
	blockAddr := c.blockAddr(offset)

	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block) // Update LRU
		if isWrite {
			block.IsDirty = true
		}
		return c.config.HitLatency
	}

	c.stats.Misses++
	latency := c.config.MissLatency + backingCycles

	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		return latency
	}

	if victim.IsValid {
		c.stats.Evictions++
		if victim.IsDirty {
			c.stats.Writebacks++
			latency += c.config.WritebackLatency
		}
	}

	// Tag stores the block-aligned offset
	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = isWrite
	c.directory.Visit(victim)

	return latency
}

func (c *Cache) blockAddr(offset uint32) uint64 {
	return (uint64(offset) / uint64(c.config.BlockSize)) * uint64(c.config.BlockSize)
}

// Contains reports whether the line holding offset is cached.
func (c *Cache) Contains(offset uint32) bool {
	block := c.directory.Lookup(0, c.blockAddr(offset))
	return block != nil && block.IsValid
}

// Invalidate marks a cache line as invalid.
func (c *Cache) Invalidate(offset uint32) {
	block := c.directory.Lookup(0, c.blockAddr(offset))
	if block != nil && block.IsValid {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Flush invalidates every line and returns the write-back latency the
// dirty lines would cost.
func (c *Cache) Flush() uint64 {
	var cycles uint64
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty {
				c.stats.Writebacks++
				cycles += c.config.WritebackLatency
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
	return cycles
}

// Reset invalidates all cache lines without writeback.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}

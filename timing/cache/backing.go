package cache

import (
	"github.com/sarchlab/armv7sim/mem"
)

// Backing returns the region the cache fronts.
func (c *Cache) Backing() mem.Region {
	return c.backing
}

// readBacking reads the value from the backing region. Errors, including
// escape signals, are returned untouched so the caller sees them as if
// the tier were absent.
func (c *Cache) readBacking(offset uint32, width mem.Width, bigEndian bool) (uint32, uint64, error) {
	return c.backing.Read(offset, width, bigEndian)
}

// writeBacking forwards the store to the backing region.
func (c *Cache) writeBacking(offset uint32, width mem.Width, bigEndian bool, value uint32) (uint64, error) {
	return c.backing.Write(offset, width, bigEndian, value)
}

package latency

import (
	"github.com/sarchlab/armv7sim/mem"
	"github.com/sarchlab/armv7sim/timing/cache"
)

// NewRAM builds a writable region of size bytes with the configured RAM
// latency, fronted by the L1 tier when it is enabled. The returned RAM is
// the backing store, for host-side loads and dirty tracking.
func (c *TimingConfig) NewRAM(size uint64) (mem.Region, *mem.RAM) {
	ram := mem.NewRAM(size, c.RAMLatency, c.WideBus)
	if !c.L1Enabled {
		return ram, ram
	}
	return cache.New(c.CacheConfig(), ram), ram
}

// NewROM builds a read-only region holding data with the configured ROM
// latency. ROM is never cached.
func (c *TimingConfig) NewROM(data []byte) *mem.RAM {
	return mem.NewROM(data, c.ROMLatency, c.WideBus)
}

// NewVirtual builds a virtual space over phys with the configured
// alignment policy.
func (c *TimingConfig) NewVirtual(phys *mem.Physical) *mem.Virtual {
	vm := mem.NewVirtual(phys)
	vm.SetStrictAlignment(c.StrictAlignment)
	return vm
}

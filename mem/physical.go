package mem

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/armv7sim/faults"
)

// ErrRegionSize is returned when a region cannot fit in the address space.
var ErrRegionSize = errors.New("region does not fit in the 32-bit address space")

type mapping struct {
	base   uint32
	end    uint64
	region Region
}

// Physical is the physical address space. It maps regions at base
// addresses and accumulates the latency of completed accesses into a
// cycle bill that the CPU settles once per instruction.
type Physical struct {
	mappings []mapping
	bill     uint64
	log      logrus.FieldLogger
}

// PhysicalOption configures a Physical space.
type PhysicalOption func(*Physical)

// WithLogger sets the logger used for mapping events.
func WithLogger(log logrus.FieldLogger) PhysicalOption {
	return func(p *Physical) {
		p.log = log
	}
}

// NewPhysical creates an empty physical address space.
func NewPhysical(opts ...PhysicalOption) *Physical {
	p := &Physical{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MapRegion maps region at base. Overlapping mappings are permitted; the
// mapping with the greatest base that covers an address wins.
func (p *Physical) MapRegion(base uint32, region Region) error {
	size := region.Size()
	if size == 0 || uint64(base)+size > MaxRegionSize {
		return fmt.Errorf("failed to map region at 0x%08x (size 0x%x): %w",
			base, size, ErrRegionSize)
	}

	mappings := make([]mapping, 0, len(p.mappings)+1)
	mappings = append(mappings, p.mappings...)
	mappings = append(mappings, mapping{base: base, end: uint64(base) + size, region: region})
	sort.SliceStable(mappings, func(i, j int) bool {
		return mappings[i].base < mappings[j].base
	})
	p.mappings = mappings

	p.log.WithFields(logrus.Fields{
		"base": fmt.Sprintf("0x%08x", base),
		"size": size,
	}).Debug("region mapped")
	return nil
}

// UnmapRegion removes the mapping at base. When region is nil any region
// at base matches; otherwise only that region does. It reports whether a
// mapping was removed.
func (p *Physical) UnmapRegion(base uint32, region Region) bool {
	for i, m := range p.mappings {
		if m.base != base || (region != nil && !sameRegion(m.region, region)) {
			continue
		}

		mappings := make([]mapping, 0, len(p.mappings)-1)
		mappings = append(mappings, p.mappings[:i]...)
		mappings = append(mappings, p.mappings[i+1:]...)
		p.mappings = mappings

		p.log.WithField("base", fmt.Sprintf("0x%08x", base)).Debug("region unmapped")
		return true
	}
	return false
}

// sameRegion reports whether a and b are the same region. Regions whose
// dynamic type is not comparable never match.
func sameRegion(a, b Region) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta == nil || ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// UnmapAllRegions removes every mapping.
func (p *Physical) UnmapAllRegions() {
	p.mappings = nil
	p.log.Debug("all regions unmapped")
}

// Resolve returns the region covering addr and the region-local offset.
func (p *Physical) Resolve(addr uint32) (Region, uint32, bool) {
	i := sort.Search(len(p.mappings), func(i int) bool {
		return p.mappings[i].base > addr
	}) - 1
	for ; i >= 0; i-- {
		m := p.mappings[i]
		if uint64(addr) < m.end {
			return m.region, addr - m.base, true
		}
	}
	return nil, 0, false
}

func (p *Physical) resolve(addr uint32, width Width) (Region, uint32, error) {
	region, offset, ok := p.Resolve(addr)
	if !ok {
		return nil, 0, faults.NewBusError(addr, "unmapped address")
	}
	if uint64(offset)+uint64(width) > region.Size() {
		return nil, 0, faults.NewBusError(addr, "access crosses region end")
	}
	return region, offset, nil
}

// Read reads width bytes at addr. The address must be aligned to width.
func (p *Physical) Read(addr uint32, width Width, bigEndian bool) (uint32, error) {
	region, offset, err := p.resolve(addr, width)
	if err != nil {
		return 0, err
	}
	value, cycles, err := region.Read(offset, width, bigEndian)
	if err != nil {
		return 0, relocate(addr, err)
	}
	p.bill += cycles
	return value, nil
}

// Write writes width bytes at addr. The address must be aligned to width.
func (p *Physical) Write(addr uint32, width Width, bigEndian bool, value uint32) error {
	region, offset, err := p.resolve(addr, width)
	if err != nil {
		return err
	}
	cycles, err := region.Write(offset, width, bigEndian, value)
	if err != nil {
		return relocate(addr, err)
	}
	p.bill += cycles
	return nil
}

// Read8 reads a byte.
func (p *Physical) Read8(addr uint32) (uint8, error) {
	v, err := p.Read(addr, Byte, false)
	return uint8(v), err
}

// Read16 reads an aligned halfword.
func (p *Physical) Read16(addr uint32, bigEndian bool) (uint16, error) {
	v, err := p.Read(addr, Halfword, bigEndian)
	return uint16(v), err
}

// Read32 reads an aligned word.
func (p *Physical) Read32(addr uint32, bigEndian bool) (uint32, error) {
	return p.Read(addr, Word, bigEndian)
}

// Write8 writes a byte.
func (p *Physical) Write8(addr uint32, value uint8) error {
	return p.Write(addr, Byte, false, uint32(value))
}

// Write16 writes an aligned halfword.
func (p *Physical) Write16(addr uint32, bigEndian bool, value uint16) error {
	return p.Write(addr, Halfword, bigEndian, uint32(value))
}

// Write32 writes an aligned word.
func (p *Physical) Write32(addr uint32, bigEndian bool, value uint32) error {
	return p.Write(addr, Word, bigEndian, value)
}

// Bill returns the cycles accumulated since the last settlement.
func (p *Physical) Bill() uint64 {
	return p.bill
}

// SettleAccessBill returns the accumulated cycles and zeroes the bill.
func (p *Physical) SettleAccessBill() uint64 {
	bill := p.bill
	p.bill = 0
	return bill
}

// relocate rewrites a region-local bus error with the absolute address.
func relocate(addr uint32, err error) error {
	var f *faults.Fault
	if errors.As(err, &f) && f.Kind == faults.BusError {
		return faults.NewBusError(addr, f.Event)
	}
	return err
}

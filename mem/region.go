// Package mem provides the memory system of the core: regions, the
// physical address space that maps them, and the virtual space the CPU
// accesses through.
package mem

import (
	"fmt"
)

// Width is the size of a memory access in bytes.
type Width uint8

// Access widths.
const (
	Byte     Width = 1
	Halfword Width = 2
	Word     Width = 4
)

func (w Width) String() string {
	switch w {
	case Byte:
		return "byte"
	case Halfword:
		return "halfword"
	case Word:
		return "word"
	default:
		return fmt.Sprintf("width(%d)", uint8(w))
	}
}

// MaxRegionSize is the largest region a 32-bit space can map.
const MaxRegionSize = uint64(1) << 32

// Region is a block of addressable storage. Offsets are region-local and
// aligned to the access width. Each access reports the cycles it cost.
// Errors are bus errors or escape signals.
type Region interface {
	// Size returns the fixed size of the region in bytes.
	Size() uint64
	// Read returns the value at offset.
	Read(offset uint32, width Width, bigEndian bool) (value uint32, cycles uint64, err error)
	// Write stores value at offset.
	Write(offset uint32, width Width, bigEndian bool, value uint32) (cycles uint64, err error)
}

// ByteStore is the single byte-level primitive a ByteBacked region
// derives every access width from.
type ByteStore interface {
	Size() uint64
	LoadByte(offset uint32) (uint8, error)
	StoreByte(offset uint32, value uint8) error
}

// ByteBacked adapts a ByteStore into a Region with a declared latency.
// A region that is not wide pays double latency for word accesses.
type ByteBacked struct {
	store   ByteStore
	latency uint64
	wide    bool
}

// NewByteBacked creates a ByteBacked region over store.
func NewByteBacked(store ByteStore, latency uint64, wide bool) *ByteBacked {
	return &ByteBacked{store: store, latency: latency, wide: wide}
}

// Size returns the size of the underlying store.
func (b *ByteBacked) Size() uint64 {
	return b.store.Size()
}

// Latency returns the declared per-access latency.
func (b *ByteBacked) Latency() uint64 {
	return b.latency
}

// Wide reports whether word accesses complete in a single transfer.
func (b *ByteBacked) Wide() bool {
	return b.wide
}

func (b *ByteBacked) cost(width Width) uint64 {
	if width == Word && !b.wide {
		return 2 * b.latency
	}
	return b.latency
}

// Read composes a value from width bytes starting at offset.
func (b *ByteBacked) Read(offset uint32, width Width, bigEndian bool) (uint32, uint64, error) {
	var value uint32
	n := uint32(width)
	for i := uint32(0); i < n; i++ {
		v, err := b.store.LoadByte(offset + i)
		if err != nil {
			return 0, 0, err
		}
		if bigEndian {
			value |= uint32(v) << (8 * (n - 1 - i))
		} else {
			value |= uint32(v) << (8 * i)
		}
	}
	return value, b.cost(width), nil
}

// Write splits value into width bytes starting at offset.
func (b *ByteBacked) Write(offset uint32, width Width, bigEndian bool, value uint32) (uint64, error) {
	n := uint32(width)
	for i := uint32(0); i < n; i++ {
		var v uint8
		if bigEndian {
			v = uint8(value >> (8 * (n - 1 - i)))
		} else {
			v = uint8(value >> (8 * i))
		}
		if err := b.store.StoreByte(offset+i, v); err != nil {
			return 0, err
		}
	}
	return b.cost(width), nil
}

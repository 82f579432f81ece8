package mem

import (
	"github.com/sarchlab/armv7sim/faults"
)

// RAM is an array-backed region. It can be made read-only, in which case
// guest writes raise bus errors, and it remembers whether it has been
// written since the dirty flag was last cleared.
type RAM struct {
	*ByteBacked

	data     []byte
	readOnly bool
	dirty    bool
}

// NewRAM creates a zero-filled writable region of size bytes.
func NewRAM(size uint64, latency uint64, wide bool) *RAM {
	r := &RAM{data: make([]byte, size)}
	r.ByteBacked = NewByteBacked(r, latency, wide)
	return r
}

// NewROM creates a read-only region holding a copy of data.
func NewROM(data []byte, latency uint64, wide bool) *RAM {
	r := NewRAM(uint64(len(data)), latency, wide)
	copy(r.data, data)
	r.readOnly = true
	return r
}

// Size returns the size of the region in bytes.
func (r *RAM) Size() uint64 {
	return uint64(len(r.data))
}

// LoadByte returns the byte at offset.
func (r *RAM) LoadByte(offset uint32) (uint8, error) {
	if uint64(offset) >= uint64(len(r.data)) {
		return 0, faults.NewBusError(offset, "read past end of region")
	}
	return r.data[offset], nil
}

// StoreByte stores a byte at offset.
func (r *RAM) StoreByte(offset uint32, value uint8) error {
	if r.readOnly {
		return faults.NewBusError(offset, "write to read-only region")
	}
	if uint64(offset) >= uint64(len(r.data)) {
		return faults.NewBusError(offset, "write past end of region")
	}
	r.data[offset] = value
	r.dirty = true
	return nil
}

// ReadOnly reports whether guest writes are rejected.
func (r *RAM) ReadOnly() bool {
	return r.readOnly
}

// SetReadOnly enables or disables write rejection.
func (r *RAM) SetReadOnly(readOnly bool) {
	r.readOnly = readOnly
}

// Dirty reports whether the region was written since the flag was cleared.
func (r *RAM) Dirty() bool {
	return r.dirty
}

// ClearDirty clears the dirty flag.
func (r *RAM) ClearDirty() {
	r.dirty = false
}

// Load copies data into the region at offset on behalf of the host. It
// bypasses read-only enforcement, billing and the dirty flag.
func (r *RAM) Load(offset uint32, data []byte) error {
	if uint64(offset)+uint64(len(data)) > uint64(len(r.data)) {
		return faults.NewBusError(offset, "host load past end of region")
	}
	copy(r.data[offset:], data)
	return nil
}

// Bytes exposes the backing storage.
func (r *RAM) Bytes() []byte {
	return r.data
}

package mem

import (
	"github.com/sarchlab/armv7sim/faults"
)

// Hook receives notifications from the virtual space. It is used by
// breakpoint and watchpoint tooling. A hook may only return nil or an
// escape signal, and it must not touch the cycle bill.
type Hook interface {
	// BeforeRead fires before a data read resolves.
	BeforeRead(addr uint32, width Width) error
	// AfterWrite fires after a data write completes.
	AfterWrite(addr uint32, width Width, value uint32) error
	// BeforeFetch fires before every instruction fetch.
	BeforeFetch(addr uint32) error
	// Signal delivers a named event with opaque arguments.
	Signal(name string, args ...any)
}

// Access records a memory access for diagnostics.
type Access struct {
	Addr  uint32
	Width Width
	Write bool
	Fetch bool
}

// Virtual is the address space the CPU sees. It forwards to a Physical
// space after running debugger hooks and handling misaligned accesses.
type Virtual struct {
	phys   *Physical
	hook   Hook
	strict bool
	last   Access
}

// NewVirtual creates a virtual space over phys.
func NewVirtual(phys *Physical) *Virtual {
	return &Virtual{phys: phys}
}

// Physical returns the underlying physical space.
func (v *Virtual) Physical() *Physical {
	return v.phys
}

// SetHook installs a debugger hook. A nil hook disables notifications.
func (v *Virtual) SetHook(hook Hook) {
	v.hook = hook
}

// Hook returns the installed debugger hook.
func (v *Virtual) Hook() Hook {
	return v.hook
}

// SetStrictAlignment selects whether misaligned accesses fault.
func (v *Virtual) SetStrictAlignment(strict bool) {
	v.strict = strict
}

// StrictAlignment reports whether misaligned accesses fault.
func (v *Virtual) StrictAlignment() bool {
	return v.strict
}

// LastAccess returns the most recent access attempted.
func (v *Virtual) LastAccess() Access {
	return v.last
}

// Signal forwards a named event to the hook, if any.
func (v *Virtual) Signal(name string, args ...any) {
	if v.hook != nil {
		v.hook.Signal(name, args...)
	}
}

// Read reads width bytes at addr.
func (v *Virtual) Read(addr uint32, width Width, bigEndian bool) (uint32, error) {
	v.last = Access{Addr: addr, Width: width}
	if v.hook != nil {
		if err := v.hook.BeforeRead(addr, width); err != nil {
			return 0, err
		}
	}

	if addr%uint32(width) == 0 {
		return v.phys.Read(addr, width, bigEndian)
	}
	if v.strict {
		return 0, faults.NewAlignment(addr, width.String()+" read")
	}

	var value uint32
	n := uint32(width)
	for i := uint32(0); i < n; i++ {
		b, err := v.phys.Read8(addr + i)
		if err != nil {
			return 0, err
		}
		if bigEndian {
			value |= uint32(b) << (8 * (n - 1 - i))
		} else {
			value |= uint32(b) << (8 * i)
		}
	}
	return value, nil
}

// Write writes width bytes at addr.
func (v *Virtual) Write(addr uint32, width Width, bigEndian bool, value uint32) error {
	v.last = Access{Addr: addr, Width: width, Write: true}

	if err := v.write(addr, width, bigEndian, value); err != nil {
		return err
	}

	if v.hook != nil {
		return v.hook.AfterWrite(addr, width, value)
	}
	return nil
}

func (v *Virtual) write(addr uint32, width Width, bigEndian bool, value uint32) error {
	if addr%uint32(width) == 0 {
		return v.phys.Write(addr, width, bigEndian, value)
	}
	if v.strict {
		return faults.NewAlignment(addr, width.String()+" write")
	}

	n := uint32(width)
	for i := uint32(0); i < n; i++ {
		var b uint8
		if bigEndian {
			b = uint8(value >> (8 * (n - 1 - i)))
		} else {
			b = uint8(value >> (8 * i))
		}
		if err := v.phys.Write8(addr+i, b); err != nil {
			return err
		}
	}
	return nil
}

// Fetch reads an instruction word. Instructions are always little-endian.
func (v *Virtual) Fetch(addr uint32) (uint32, error) {
	v.last = Access{Addr: addr, Width: Word, Fetch: true}
	if v.hook != nil {
		if err := v.hook.BeforeFetch(addr); err != nil {
			return 0, err
		}
	}
	if addr&3 != 0 {
		return 0, faults.NewAlignment(addr, "instruction fetch")
	}
	return v.phys.Read32(addr, false)
}

// Read8 reads a byte.
func (v *Virtual) Read8(addr uint32) (uint8, error) {
	value, err := v.Read(addr, Byte, false)
	return uint8(value), err
}

// Read16 reads a halfword.
func (v *Virtual) Read16(addr uint32, bigEndian bool) (uint16, error) {
	value, err := v.Read(addr, Halfword, bigEndian)
	return uint16(value), err
}

// Read32 reads a word.
func (v *Virtual) Read32(addr uint32, bigEndian bool) (uint32, error) {
	return v.Read(addr, Word, bigEndian)
}

// Write8 writes a byte.
func (v *Virtual) Write8(addr uint32, value uint8) error {
	return v.Write(addr, Byte, false, uint32(value))
}

// Write16 writes a halfword.
func (v *Virtual) Write16(addr uint32, bigEndian bool, value uint16) error {
	return v.Write(addr, Halfword, bigEndian, uint32(value))
}

// Write32 writes a word.
func (v *Virtual) Write32(addr uint32, bigEndian bool, value uint32) error {
	return v.Write(addr, Word, bigEndian, value)
}

// Package faults defines the architectural fault kinds raised by the core
// and the escape signals used to suspend an instruction mid-flight.
package faults

import (
	"errors"
	"fmt"
)

// Kind classifies a fault.
type Kind int

// Fault kinds.
const (
	// BusError is raised for an unmapped or region-rejected address.
	BusError Kind = iota
	// Alignment is raised for a misaligned access under strict alignment.
	Alignment
	// Undefined is raised for an unrecognized or disallowed encoding.
	Undefined
	// Unimplemented marks a recognized instruction the core does not
	// emulate. It is a host diagnostic and never reaches the guest.
	Unimplemented
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case BusError:
		return "bus error"
	case Alignment:
		return "alignment fault"
	case Undefined:
		return "undefined instruction"
	case Unimplemented:
		return "unimplemented instruction"
	default:
		return fmt.Sprintf("fault(%d)", int(k))
	}
}

// Fault is an architectural fault.
type Fault struct {
	Kind Kind
	// Addr is the faulting data address for bus and alignment faults.
	Addr uint32
	// Opcode is the instruction word for undefined and unimplemented
	// faults, when known.
	Opcode uint32
	// Event describes what was being attempted.
	Event string
}

// Sentinels for matching faults by kind with errors.Is.
var (
	ErrBusError      = &Fault{Kind: BusError}
	ErrAlignment     = &Fault{Kind: Alignment}
	ErrUndefined     = &Fault{Kind: Undefined}
	ErrUnimplemented = &Fault{Kind: Unimplemented}
)

// Escape signals. They are control flow rather than faults: the execute
// loop consumes them and never surfaces them to the guest or the host.
var (
	// ErrRetry abandons the current instruction. The driving loop rewinds
	// the program counter so the instruction re-executes from scratch on
	// the next call.
	ErrRetry = errors.New("escape: retry instruction")
	// ErrComplete abandons the current call but treats the instruction as
	// having finished.
	ErrComplete = errors.New("escape: instruction complete")
)

// ErrDoubleFault is returned when the prefetch abort vector itself cannot
// be fetched. It is fatal and never converted into a guest exception.
var ErrDoubleFault = errors.New("prefetch abort vector unreadable")

func (f *Fault) Error() string {
	switch f.Kind {
	case BusError, Alignment:
		if f.Event != "" {
			return fmt.Sprintf("%s at 0x%08x: %s", f.Kind, f.Addr, f.Event)
		}
		return fmt.Sprintf("%s at 0x%08x", f.Kind, f.Addr)
	default:
		if f.Event != "" {
			return fmt.Sprintf("%s 0x%08x: %s", f.Kind, f.Opcode, f.Event)
		}
		return fmt.Sprintf("%s 0x%08x", f.Kind, f.Opcode)
	}
}

// Is reports whether target is the sentinel for this fault's kind.
func (f *Fault) Is(target error) bool {
	t, ok := target.(*Fault)
	if !ok {
		return false
	}
	return t.Kind == f.Kind && t.Event == "" && t.Addr == 0 && t.Opcode == 0
}

// NewBusError returns a bus error at addr.
func NewBusError(addr uint32, event string) *Fault {
	return &Fault{Kind: BusError, Addr: addr, Event: event}
}

// NewAlignment returns an alignment fault at addr.
func NewAlignment(addr uint32, event string) *Fault {
	return &Fault{Kind: Alignment, Addr: addr, Event: event}
}

// NewUndefined returns an undefined-instruction fault for opcode.
func NewUndefined(opcode uint32, event string) *Fault {
	return &Fault{Kind: Undefined, Opcode: opcode, Event: event}
}

// NewUnimplemented returns an unimplemented-instruction diagnostic.
func NewUnimplemented(opcode uint32, event string) *Fault {
	return &Fault{Kind: Unimplemented, Opcode: opcode, Event: event}
}

// KindOf extracts the fault kind from err.
func KindOf(err error) (Kind, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return 0, false
}

// IsSoft reports whether err is a fault the core converts into a guest
// exception: a bus error, an alignment fault or an undefined instruction.
func IsSoft(err error) bool {
	k, ok := KindOf(err)
	if !ok {
		return false
	}
	return k == BusError || k == Alignment || k == Undefined
}

// IsEscape reports whether err is one of the escape signals.
func IsEscape(err error) bool {
	return errors.Is(err, ErrRetry) || errors.Is(err, ErrComplete)
}

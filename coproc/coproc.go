// Package coproc defines the coprocessor contract of the core and a
// standard adapter that decodes the architected coprocessor instruction
// classes into typed operations.
package coproc

import (
	"errors"
	"reflect"

	"github.com/sarchlab/armv7sim/faults"
)

// Coprocessor is a unit attached to one or more coprocessor slots. Any
// instruction it does not recognize must fail as Undefined.
type Coprocessor interface {
	// ExecuteInstruction executes a raw instruction word. unconditional is
	// set for the extended (cond == 0b1111) encodings.
	ExecuteInstruction(unconditional bool, instruction uint32) error
	// Reset returns the coprocessor to its power-on state.
	Reset()
}

// Same reports whether a and b are the same coprocessor. Coprocessors
// whose dynamic type is not comparable never match.
func Same(a, b Coprocessor) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta == nil || ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// Host is the view of the CPU a coprocessor works through.
type Host interface {
	// Register returns a core register as an instruction operand; r15
	// reads as the instruction address plus 8.
	Register(n uint8) uint32
	// SetRegister writes a core register of the current mode.
	SetRegister(n uint8, value uint32)
	// Privileged reports whether the CPU is in a privileged mode.
	Privileged() bool
	// BigEndian reports the current data endianness.
	BigEndian() bool
	// SetFlags writes the NZCV flags from bits 31:28 of nzcv.
	SetFlags(nzcv uint32)
	// ReadWord reads a word-aligned word of data memory.
	ReadWord(addr uint32) (uint32, error)
	// WriteWord writes a word-aligned word of data memory.
	WriteWord(addr uint32, value uint32) error
}

// DataOp is a decoded CDP/CDP2.
type DataOp struct {
	Unconditional bool
	Coproc        uint8
	Opc1          uint8 // bits 23:20
	CRd           uint8
	CRn           uint8
	CRm           uint8
	Opc2          uint8 // bits 7:5
}

// RegisterTransfer is a decoded MCR/MRC (and the "2" forms).
type RegisterTransfer struct {
	Unconditional bool
	Coproc        uint8
	Opc1          uint8 // bits 23:21
	CRn           uint8
	CRm           uint8
	Opc2          uint8 // bits 7:5
}

// PairTransfer is a decoded MCRR/MRRC (and the "2" forms).
type PairTransfer struct {
	Unconditional bool
	Coproc        uint8
	Opc1          uint8 // bits 7:4
	CRm           uint8
}

// MemoryTransfer is a decoded LDC/STC (and the "2" forms). Address is the
// first address to transfer. Imm8 is the word count for indexed forms and
// the option byte for the unindexed form.
type MemoryTransfer struct {
	Unconditional bool
	Coproc        uint8
	Long          bool // D bit
	CRd           uint8
	Rn            uint8
	Address       uint32
	Imm8          uint8
	Pre           bool
	Add           bool
	Writeback     bool
}

// Unindexed reports whether the transfer uses the unindexed form.
func (m MemoryTransfer) Unindexed() bool {
	return !m.Pre && m.Add && !m.Writeback
}

// Operations is the typed contract a coprocessor built on Standard
// implements.
type Operations interface {
	DataOperation(op DataOp) error
	MoveToCoprocessor(op RegisterTransfer, value uint32) error
	MoveFromCoprocessor(op RegisterTransfer) (uint32, error)
	MoveToCoprocessorPair(op PairTransfer, low, high uint32) error
	MoveFromCoprocessorPair(op PairTransfer) (low, high uint32, err error)
	LoadCoprocessor(op MemoryTransfer) error
	StoreCoprocessor(op MemoryTransfer) error
}

// Undefined returns an undefined-instruction fault. Standard fills in the
// instruction word.
func Undefined(event string) error {
	return faults.NewUndefined(0, event)
}

// annotate attaches the instruction word to faults raised without one.
func annotate(word uint32, err error) error {
	var f *faults.Fault
	if errors.As(err, &f) && f.Opcode == 0 &&
		(f.Kind == faults.Undefined || f.Kind == faults.Unimplemented) {
		return &faults.Fault{Kind: f.Kind, Opcode: word, Event: f.Event}
	}
	return err
}

// Unsupported implements every typed operation as Undefined. Embed it to
// implement only the operations a coprocessor supports.
type Unsupported struct{}

// DataOperation is Undefined.
func (Unsupported) DataOperation(DataOp) error {
	return Undefined("unsupported data operation")
}

// MoveToCoprocessor is Undefined.
func (Unsupported) MoveToCoprocessor(RegisterTransfer, uint32) error {
	return Undefined("unsupported register transfer")
}

// MoveFromCoprocessor is Undefined.
func (Unsupported) MoveFromCoprocessor(RegisterTransfer) (uint32, error) {
	return 0, Undefined("unsupported register transfer")
}

// MoveToCoprocessorPair is Undefined.
func (Unsupported) MoveToCoprocessorPair(PairTransfer, uint32, uint32) error {
	return Undefined("unsupported register pair transfer")
}

// MoveFromCoprocessorPair is Undefined.
func (Unsupported) MoveFromCoprocessorPair(PairTransfer) (uint32, uint32, error) {
	return 0, 0, Undefined("unsupported register pair transfer")
}

// LoadCoprocessor is Undefined.
func (Unsupported) LoadCoprocessor(MemoryTransfer) error {
	return Undefined("unsupported memory transfer")
}

// StoreCoprocessor is Undefined.
func (Unsupported) StoreCoprocessor(MemoryTransfer) error {
	return Undefined("unsupported memory transfer")
}

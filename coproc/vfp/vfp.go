// Package vfp implements the floating point coprocessor in slots 10 and
// 11: a 64-word register file, the FPSCR and FPEXC system registers, and
// the scalar VFPv3 data processing, transfer and conversion operations.
package vfp

import (
	"github.com/sarchlab/armv7sim/coproc"
)

// Slots the VFP occupies. Slot 10 encodes single precision and slot 11
// double precision.
const (
	SingleSlot = 10
	DoubleSlot = 11
)

// System register values.
const (
	FPSID uint32 = 0x41033090
	MVFR0 uint32 = 0x00110222
	MVFR1 uint32 = 0x00000000
)

// System register numbers used by VMRS/VMSR.
const (
	regFPSID = 0
	regFPSCR = 1
	regMVFR1 = 6
	regMVFR0 = 7
	regFPEXC = 8
)

// FPEXC bits.
const (
	FPEXCEnable uint32 = 1 << 30
)

// FPSCR bits.
const (
	FlagIOC uint32 = 1 << 0 // invalid operation
	FlagDZC uint32 = 1 << 1 // division by zero
	FlagOFC uint32 = 1 << 2 // overflow
	FlagUFC uint32 = 1 << 3 // underflow
	FlagIXC uint32 = 1 << 4 // inexact

	FPSCRDefaultNaN uint32 = 1 << 25

	fpscrWriteMask uint32 = 0xF7F79F9F
	fpscrNZCV      uint32 = 0xF0000000

	// Only round-to-nearest with default NaN, no flush-to-zero, scalar
	// length and stride, and no trap enables is emulated.
	fpscrConfigMask  uint32 = 0x03F79F00
	fpscrConfigValue uint32 = FPSCRDefaultNaN
)

// VFP is the floating point coprocessor. Attach the same instance to both
// slots.
type VFP struct {
	std  *coproc.Standard
	host coproc.Host

	regs  [64]uint32
	fpscr uint32
	fpexc uint32
}

// New creates the floating point coprocessor for host.
func New(host coproc.Host) *VFP {
	v := &VFP{host: host}
	v.std = coproc.NewStandard(host, v)
	v.Reset()
	return v
}

// ExecuteInstruction executes a CP10 or CP11 instruction.
func (v *VFP) ExecuteInstruction(unconditional bool, instruction uint32) error {
	if unconditional {
		return coproc.Undefined("unconditional VFP encoding")
	}
	return v.std.ExecuteInstruction(unconditional, instruction)
}

// Reset disables the unit, clears the register file and selects the
// emulated FPSCR configuration.
func (v *VFP) Reset() {
	v.regs = [64]uint32{}
	v.fpscr = FPSCRDefaultNaN
	v.fpexc = 0
}

// Enabled reports FPEXC.EN.
func (v *VFP) Enabled() bool {
	return v.fpexc&FPEXCEnable != 0
}

// FPSCR returns the status and control register.
func (v *VFP) FPSCR() uint32 {
	return v.fpscr
}

// SetFPSCR writes the status and control register.
func (v *VFP) SetFPSCR(value uint32) {
	v.fpscr = value & fpscrWriteMask
}

// FPEXC returns the exception control register.
func (v *VFP) FPEXC() uint32 {
	return v.fpexc
}

// SetFPEXC writes the exception control register.
func (v *VFP) SetFPEXC(value uint32) {
	v.fpexc = value & FPEXCEnable
}

// S returns single precision register n.
func (v *VFP) S(n int) uint32 {
	return v.regs[n&31]
}

// SetS writes single precision register n.
func (v *VFP) SetS(n int, value uint32) {
	v.regs[n&31] = value
}

// D returns double precision register n.
func (v *VFP) D(n int) uint64 {
	n &= 31
	return uint64(v.regs[2*n+1])<<32 | uint64(v.regs[2*n])
}

// SetD writes double precision register n.
func (v *VFP) SetD(n int, value uint64) {
	n &= 31
	v.regs[2*n] = uint32(value)
	v.regs[2*n+1] = uint32(value >> 32)
}

func (v *VFP) raise(flags uint32) {
	v.fpscr |= flags
}

// sreg numbers a single register as Vx:X.
func sreg(vx, x uint8) int {
	return int(vx)<<1 | int(x&1)
}

// dreg numbers a double register as X:Vx.
func dreg(vx, x uint8) int {
	return int(x&1)<<4 | int(vx)
}

func (v *VFP) checkEnabled() error {
	if !v.Enabled() {
		return coproc.Undefined("VFP disabled")
	}
	return nil
}

// MoveToCoprocessor implements VMOV core to single, VMOV core to scalar
// and VMSR.
func (v *VFP) MoveToCoprocessor(op coproc.RegisterTransfer, value uint32) error {
	if op.Coproc == SingleSlot && op.Opc1 == 7 && op.CRm == 0 && op.Opc2 == 0 {
		return v.writeSystemRegister(op.CRn, value)
	}

	if err := v.checkEnabled(); err != nil {
		return err
	}

	switch {
	case op.Coproc == SingleSlot && op.Opc1 == 0 && op.CRm == 0 && op.Opc2&3 == 0:
		v.SetS(sreg(op.CRn, op.Opc2>>2), value)
		return nil
	case op.Coproc == DoubleSlot && op.Opc1&0b110 == 0 && op.CRm == 0 && op.Opc2&3 == 0:
		v.setLane(dreg(op.CRn, op.Opc2>>2), op.Opc1&1, value)
		return nil
	}

	return coproc.Undefined("unsupported VFP register transfer")
}

// MoveFromCoprocessor implements VMOV single to core, VMOV scalar to core
// and VMRS.
func (v *VFP) MoveFromCoprocessor(op coproc.RegisterTransfer) (uint32, error) {
	if op.Coproc == SingleSlot && op.Opc1 == 7 && op.CRm == 0 && op.Opc2 == 0 {
		return v.readSystemRegister(op.CRn)
	}

	if err := v.checkEnabled(); err != nil {
		return 0, err
	}

	switch {
	case op.Coproc == SingleSlot && op.Opc1 == 0 && op.CRm == 0 && op.Opc2&3 == 0:
		return v.S(sreg(op.CRn, op.Opc2>>2)), nil
	case op.Coproc == DoubleSlot && op.Opc1&0b110 == 0 && op.CRm == 0 && op.Opc2&3 == 0:
		return v.lane(dreg(op.CRn, op.Opc2>>2), op.Opc1&1), nil
	}

	return 0, coproc.Undefined("unsupported VFP register transfer")
}

func (v *VFP) lane(d int, index uint8) uint32 {
	return v.regs[2*d+int(index)]
}

func (v *VFP) setLane(d int, index uint8, value uint32) {
	v.regs[2*d+int(index)] = value
}

func (v *VFP) readSystemRegister(reg uint8) (uint32, error) {
	if reg == regFPSCR {
		if err := v.checkEnabled(); err != nil {
			return 0, err
		}
		return v.fpscr, nil
	}

	if !v.host.Privileged() {
		return 0, coproc.Undefined("unprivileged VFP system register access")
	}

	switch reg {
	case regFPSID:
		return FPSID, nil
	case regMVFR1:
		return MVFR1, nil
	case regMVFR0:
		return MVFR0, nil
	case regFPEXC:
		return v.fpexc, nil
	}
	return 0, coproc.Undefined("unknown VFP system register")
}

func (v *VFP) writeSystemRegister(reg uint8, value uint32) error {
	if reg == regFPSCR {
		if err := v.checkEnabled(); err != nil {
			return err
		}
		v.SetFPSCR(value)
		return nil
	}

	if !v.host.Privileged() {
		return coproc.Undefined("unprivileged VFP system register access")
	}

	switch reg {
	case regFPSID:
		return nil
	case regFPEXC:
		v.SetFPEXC(value)
		return nil
	}
	return coproc.Undefined("read-only or unknown VFP system register")
}

// MoveToCoprocessorPair implements VMOV from two core registers to two
// singles or one double.
func (v *VFP) MoveToCoprocessorPair(op coproc.PairTransfer, low, high uint32) error {
	if err := v.checkEnabled(); err != nil {
		return err
	}
	if op.Opc1&0b1101 != 0b0001 {
		return coproc.Undefined("unsupported VFP pair transfer")
	}

	m := op.Opc1 >> 1 & 1
	if op.Coproc == DoubleSlot {
		v.SetD(dreg(op.CRm, m), uint64(high)<<32|uint64(low))
		return nil
	}

	s := sreg(op.CRm, m)
	if s == 31 {
		return coproc.Undefined("VMOV pair past S31")
	}
	v.SetS(s, low)
	v.SetS(s+1, high)
	return nil
}

// MoveFromCoprocessorPair implements VMOV from two singles or one double
// to two core registers.
func (v *VFP) MoveFromCoprocessorPair(op coproc.PairTransfer) (uint32, uint32, error) {
	if err := v.checkEnabled(); err != nil {
		return 0, 0, err
	}
	if op.Opc1&0b1101 != 0b0001 {
		return 0, 0, coproc.Undefined("unsupported VFP pair transfer")
	}

	m := op.Opc1 >> 1 & 1
	if op.Coproc == DoubleSlot {
		d := v.D(dreg(op.CRm, m))
		return uint32(d), uint32(d >> 32), nil
	}

	s := sreg(op.CRm, m)
	if s == 31 {
		return 0, 0, coproc.Undefined("VMOV pair past S31")
	}
	return v.S(s), v.S(s + 1), nil
}

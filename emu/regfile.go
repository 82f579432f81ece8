// Package emu provides the functional ARMv7-A core: the banked register
// file, processor modes and exceptions, and the A32 execute loop.
package emu

// RegFile is the banked A32 register file.
//
// Exactly one (SP, LR, SPSR) triple is active at a time, selected by the
// current mode. Switching modes repoints the active bank; it never copies
// values between banks.
type RegFile struct {
	r    [13]uint32 // r0-r12 outside FIQ mode
	fiq  [5]uint32  // r8-r12 in FIQ mode
	sp   [8]uint32
	lr   [7]uint32
	spsr [7]uint32

	// PC is the address of the current instruction.
	PC uint32

	mode     Mode
	fiqBank  bool
	spBank   int
	lrBank   int
	spsrBank int
}

// NewRegFile creates a register file with the User bank active.
func NewRegFile() *RegFile {
	r := &RegFile{}
	r.Bank(ModeUser)
	return r
}

// Bank makes the registers of mode active. The mode must exist.
func (r *RegFile) Bank(mode Mode) {
	info := modeTable[mode]
	r.mode = mode
	r.fiqBank = mode == ModeFIQ
	r.spBank = info.SPBank
	r.lrBank = info.LRBank
	r.spsrBank = info.SPSRBank
}

// Mode returns the mode whose bank is active.
func (r *RegFile) Mode() Mode {
	return r.mode
}

// Read returns r0-r14 of the active bank, or PC for 15.
func (r *RegFile) Read(n uint8) uint32 {
	switch {
	case n < 8:
		return r.r[n]
	case n < 13:
		if r.fiqBank {
			return r.fiq[n-8]
		}
		return r.r[n]
	case n == 13:
		return r.sp[r.spBank]
	case n == 14:
		return r.lr[r.lrBank]
	default:
		return r.PC
	}
}

// Write sets r0-r14 of the active bank, or PC for 15.
func (r *RegFile) Write(n uint8, value uint32) {
	switch {
	case n < 8:
		r.r[n] = value
	case n < 13:
		if r.fiqBank {
			r.fiq[n-8] = value
		} else {
			r.r[n] = value
		}
	case n == 13:
		r.sp[r.spBank] = value
	case n == 14:
		r.lr[r.lrBank] = value
	default:
		r.PC = value
	}
}

// ReadUser returns r0-r14 of the User bank regardless of the active mode.
func (r *RegFile) ReadUser(n uint8) uint32 {
	switch {
	case n < 13:
		return r.r[n]
	case n == 13:
		return r.sp[0]
	case n == 14:
		return r.lr[0]
	default:
		return r.PC
	}
}

// WriteUser sets r0-r14 of the User bank regardless of the active mode.
func (r *RegFile) WriteUser(n uint8, value uint32) {
	switch {
	case n < 13:
		r.r[n] = value
	case n == 13:
		r.sp[0] = value
	case n == 14:
		r.lr[0] = value
	default:
		r.PC = value
	}
}

// SP returns the active stack pointer.
func (r *RegFile) SP() uint32 {
	return r.sp[r.spBank]
}

// LR returns the active link register.
func (r *RegFile) LR() uint32 {
	return r.lr[r.lrBank]
}

// BankedSP returns the stack pointer of mode.
func (r *RegFile) BankedSP(mode Mode) uint32 {
	return r.sp[modeTable[mode].SPBank]
}

// SetBankedSP sets the stack pointer of mode.
func (r *RegFile) SetBankedSP(mode Mode, value uint32) {
	r.sp[modeTable[mode].SPBank] = value
}

// SPSR returns the active saved status register. ok is false for modes
// without one.
func (r *RegFile) SPSR() (value PSR, ok bool) {
	if r.spsrBank == noSPSR {
		return 0, false
	}
	return PSR(r.spsr[r.spsrBank]), true
}

// SetSPSR writes the active saved status register. It reports false for
// modes without one.
func (r *RegFile) SetSPSR(value PSR) bool {
	if r.spsrBank == noSPSR {
		return false
	}
	r.spsr[r.spsrBank] = uint32(value)
	return true
}

package emu

import (
	"math/bits"

	"github.com/sarchlab/armv7sim/faults"
	"github.com/sarchlab/armv7sim/insts"
)

// SignedSaturate clamps value to an n-bit signed range and reports
// whether it saturated.
func SignedSaturate(value int64, n uint32) (int32, bool) {
	max := int64(1)<<(n-1) - 1
	min := -int64(1) << (n - 1)
	switch {
	case value > max:
		return int32(max), true
	case value < min:
		return int32(min), true
	default:
		return int32(value), false
	}
}

// UnsignedSaturate clamps value to an n-bit unsigned range and reports
// whether it saturated.
func UnsignedSaturate(value int64, n uint32) (uint32, bool) {
	max := int64(1)<<n - 1
	switch {
	case value > max:
		return uint32(max), true
	case value < 0:
		return 0, true
	default:
		return uint32(value), false
	}
}

func ror(value, amount uint32) uint32 {
	return bits.RotateLeft32(value, -int(amount))
}

// executeMedia executes the media instruction space.
func (e *Emulator) executeMedia(inst *insts.Instruction) error {
	switch inst.Op {
	case insts.OpUDF, insts.OpUndefined:
		return faults.NewUndefined(inst.Word, "undefined media instruction")
	case insts.OpParallelAddSub, insts.OpSEL, insts.OpSSAT16, insts.OpUSAT16,
		insts.OpExtend16, insts.OpUSAD8, insts.OpDualMultiply:
		return faults.NewUnimplemented(inst.Word, inst.Op.String())
	case insts.OpSDIV, insts.OpUDIV, insts.OpSMMUL, insts.OpSMMLA, insts.OpSMMLS:
		return e.executeSignedMultiply(inst)
	case insts.OpSBFX, insts.OpUBFX, insts.OpBFC, insts.OpBFI:
		return e.executeBitfield(inst)
	case insts.OpSSAT, insts.OpUSAT:
		return e.executeSaturate(inst)
	}

	if inst.Rd == 15 || inst.Rm == 15 {
		return faults.NewUndefined(inst.Word, "media instruction uses PC")
	}
	rm := e.regFile.Read(inst.Rm)
	var result uint32

	switch inst.Op {
	case insts.OpSXTB, insts.OpSXTAB:
		result = uint32(int32(int8(ror(rm, inst.Rotation))))
	case insts.OpSXTH, insts.OpSXTAH:
		result = uint32(int32(int16(ror(rm, inst.Rotation))))
	case insts.OpUXTB, insts.OpUXTAB:
		result = ror(rm, inst.Rotation) & 0xFF
	case insts.OpUXTH, insts.OpUXTAH:
		result = ror(rm, inst.Rotation) & 0xFFFF
	case insts.OpREV:
		result = bits.ReverseBytes32(rm)
	case insts.OpREV16:
		result = bits.RotateLeft32(bits.ReverseBytes32(rm), 16)
	case insts.OpREVSH:
		result = uint32(int32(int16(bits.ReverseBytes16(uint16(rm)))))
	case insts.OpRBIT:
		result = bits.Reverse32(rm)
	case insts.OpPKH:
		if inst.Rn == 15 {
			return faults.NewUndefined(inst.Word, "PKH uses PC")
		}
		rn := e.regFile.Read(inst.Rn)
		shifted, _ := Shift(rm, inst.Shift, inst.ShiftAmount, e.cpsr.C())
		if inst.Bit(6) {
			result = rn&0xFFFF0000 | shifted&0xFFFF
		} else {
			result = rn&0xFFFF | shifted&0xFFFF0000
		}
	}

	switch inst.Op {
	case insts.OpSXTAB, insts.OpSXTAH, insts.OpUXTAB, insts.OpUXTAH:
		result += e.regFile.Read(inst.Rn)
	}

	e.regFile.Write(inst.Rd, result)
	return nil
}

// executeSignedMultiply executes the divides and most-significant-word
// multiplies. Rd is bits 19:16, Ra 15:12, Rm 11:8 and Rn 3:0.
func (e *Emulator) executeSignedMultiply(inst *insts.Instruction) error {
	if inst.Rd == 15 || inst.Rn == 15 || inst.Rm == 15 {
		return faults.NewUndefined(inst.Word, "signed multiply uses PC")
	}
	rn := e.regFile.Read(inst.Rn)
	rm := e.regFile.Read(inst.Rm)

	var result uint32
	switch inst.Op {
	case insts.OpSDIV:
		result = uint32(SignedDivide(int32(rn), int32(rm)))
	case insts.OpUDIV:
		result = UnsignedDivide(rn, rm)
	default:
		product := uint64(int64(int32(rn)) * int64(int32(rm)))
		var acc uint64
		if inst.Op != insts.OpSMMUL {
			acc = uint64(e.regFile.Read(inst.Ra)) << 32
		}
		var sum uint64
		if inst.Op == insts.OpSMMLS {
			sum = acc - product
		} else {
			sum = acc + product
		}
		if inst.Bit(5) {
			sum += 0x80000000
		}
		result = uint32(sum >> 32)
	}

	e.regFile.Write(inst.Rd, result)
	return nil
}

// executeBitfield executes SBFX, UBFX, BFC and BFI. The source register
// is in bits 3:0.
func (e *Emulator) executeBitfield(inst *insts.Instruction) error {
	if inst.Rd == 15 {
		return faults.NewUndefined(inst.Word, "bitfield destination is PC")
	}

	switch inst.Op {
	case insts.OpSBFX, insts.OpUBFX:
		if inst.Rm == 15 || inst.Lsb+inst.Width > 32 {
			return faults.NewUndefined(inst.Word, "bitfield out of range")
		}
		value := e.regFile.Read(inst.Rm) << (32 - inst.Lsb - inst.Width)
		if inst.Op == insts.OpSBFX {
			value = uint32(int32(value) >> (32 - inst.Width))
		} else {
			value >>= 32 - inst.Width
		}
		e.regFile.Write(inst.Rd, value)
	default:
		msb := inst.Width
		if msb < inst.Lsb {
			return faults.NewUndefined(inst.Word, "bitfield msb below lsb")
		}
		mask := uint32(uint64(1)<<(msb-inst.Lsb+1)-1) << inst.Lsb
		var source uint32
		if inst.Op == insts.OpBFI {
			source = e.regFile.Read(inst.Rm) << inst.Lsb
		}
		rd := e.regFile.Read(inst.Rd)
		e.regFile.Write(inst.Rd, rd&^mask|source&mask)
	}
	return nil
}

// executeSaturate executes SSAT and USAT, setting Q on saturation.
func (e *Emulator) executeSaturate(inst *insts.Instruction) error {
	if inst.Rd == 15 || inst.Rm == 15 {
		return faults.NewUndefined(inst.Word, "saturate uses PC")
	}
	operand, _ := Shift(e.regFile.Read(inst.Rm), inst.Shift, inst.ShiftAmount, e.cpsr.C())

	var (
		result    uint32
		saturated bool
	)
	if inst.Op == insts.OpSSAT {
		var r int32
		r, saturated = SignedSaturate(int64(int32(operand)), inst.Width)
		result = uint32(r)
	} else {
		result, saturated = UnsignedSaturate(int64(int32(operand)), inst.Width)
	}

	e.regFile.Write(inst.Rd, result)
	if saturated {
		e.cpsr |= PSRQ
	}
	return nil
}

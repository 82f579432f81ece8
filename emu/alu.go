package emu

import (
	"math"

	"github.com/sarchlab/armv7sim/faults"
	"github.com/sarchlab/armv7sim/insts"
)

// Shift applies the barrel shifter. amount is the full shift amount, taken
// from an immediate or the bottom byte of a register. A zero amount returns
// value and carryIn unchanged, except for RRX.
func Shift(value uint32, typ insts.ShiftType, amount uint32, carryIn bool) (uint32, bool) {
	if amount == 0 && typ != insts.ShiftRRX {
		return value, carryIn
	}

	switch typ {
	case insts.ShiftLSL:
		switch {
		case amount < 32:
			return value << amount, value>>(32-amount)&1 == 1
		case amount == 32:
			return 0, value&1 == 1
		default:
			return 0, false
		}
	case insts.ShiftLSR:
		switch {
		case amount < 32:
			return value >> amount, value>>(amount-1)&1 == 1
		case amount == 32:
			return 0, value>>31 == 1
		default:
			return 0, false
		}
	case insts.ShiftASR:
		if amount < 32 {
			return uint32(int32(value) >> amount), value>>(amount-1)&1 == 1
		}
		if value>>31 == 1 {
			return math.MaxUint32, true
		}
		return 0, false
	case insts.ShiftROR:
		amount %= 32
		if amount == 0 {
			return value, value>>31 == 1
		}
		result := value>>amount | value<<(32-amount)
		return result, result>>31 == 1
	default: // RRX
		result := value >> 1
		if carryIn {
			result |= 1 << 31
		}
		return result, value&1 == 1
	}
}

// ExpandImm expands a data-processing imm12: an 8-bit value rotated right
// by twice the 4-bit rotation. A zero rotation leaves the carry unchanged.
func ExpandImm(imm12 uint32, carryIn bool) (uint32, bool) {
	value := imm12 & 0xFF
	rotation := (imm12 >> 8 & 0xF) * 2
	if rotation == 0 {
		return value, carryIn
	}
	result := value>>rotation | value<<(32-rotation)
	return result, result>>31 == 1
}

// AddWithCarry computes x + y + carry and returns the result with the
// carry out and signed overflow.
func AddWithCarry(x, y uint32, carry bool) (result uint32, carryOut, overflow bool) {
	var c uint64
	if carry {
		c = 1
	}
	unsigned := uint64(x) + uint64(y) + c
	signed := int64(int32(x)) + int64(int32(y)) + int64(c)
	result = uint32(unsigned)
	return result, unsigned>>32 != 0, int64(int32(result)) != signed
}

// SignedDivide performs SDIV. Division by zero yields zero and the most
// negative value divided by -1 yields itself.
func SignedDivide(n, m int32) int32 {
	if m == 0 {
		return 0
	}
	if n == math.MinInt32 && m == -1 {
		return math.MinInt32
	}
	return n / m
}

// UnsignedDivide performs UDIV. Division by zero yields zero.
func UnsignedDivide(n, m uint32) uint32 {
	if m == 0 {
		return 0
	}
	return n / m
}

func isTestOp(op insts.Op) bool {
	return op == insts.OpTST || op == insts.OpTEQ || op == insts.OpCMP || op == insts.OpCMN
}

// shifterOperand returns the second operand of a data-processing
// instruction and the shifter carry.
func (e *Emulator) shifterOperand(inst *insts.Instruction) (uint32, bool, error) {
	carry := e.cpsr.C()
	switch inst.Format {
	case insts.FormatDPImm:
		value, c := ExpandImm(inst.Imm, carry)
		return value, c, nil
	case insts.FormatDPImmShift:
		value, c := Shift(e.operand(inst.Rm), inst.Shift, inst.ShiftAmount, carry)
		return value, c, nil
	default:
		if inst.Rd == 15 || inst.Rn == 15 || inst.Rm == 15 || inst.Rs == 15 {
			return 0, false, faults.NewUndefined(inst.Word, "register-shifted operand uses PC")
		}
		value, c := Shift(e.operand(inst.Rm), inst.Shift, e.operand(inst.Rs)&0xFF, carry)
		return value, c, nil
	}
}

// executeDataProcessing executes the sixteen data-processing operations.
func (e *Emulator) executeDataProcessing(inst *insts.Instruction) error {
	operand2, shifterCarry, err := e.shifterOperand(inst)
	if err != nil {
		return err
	}

	rn := e.operand(inst.Rn)
	carry := e.cpsr.C()
	var (
		result   uint32
		carryOut = shifterCarry
		overflow = e.cpsr.V()
	)

	switch inst.Op {
	case insts.OpAND, insts.OpTST:
		result = rn & operand2
	case insts.OpEOR, insts.OpTEQ:
		result = rn ^ operand2
	case insts.OpSUB, insts.OpCMP:
		result, carryOut, overflow = AddWithCarry(rn, ^operand2, true)
	case insts.OpRSB:
		result, carryOut, overflow = AddWithCarry(^rn, operand2, true)
	case insts.OpADD, insts.OpCMN:
		result, carryOut, overflow = AddWithCarry(rn, operand2, false)
	case insts.OpADC:
		result, carryOut, overflow = AddWithCarry(rn, operand2, carry)
	case insts.OpSBC:
		result, carryOut, overflow = AddWithCarry(rn, ^operand2, carry)
	case insts.OpRSC:
		result, carryOut, overflow = AddWithCarry(^rn, operand2, carry)
	case insts.OpORR:
		result = rn | operand2
	case insts.OpMOV:
		result = operand2
	case insts.OpBIC:
		result = rn &^ operand2
	case insts.OpMVN:
		result = ^operand2
	}

	if isTestOp(inst.Op) {
		e.cpsr = e.cpsr.WithNZCV(result>>31 == 1, result == 0, carryOut, overflow)
		return nil
	}

	if inst.Rd == 15 {
		if inst.SetFlags {
			return e.dataProcessingReturn(inst, result)
		}
		e.interworkingBranch(result)
		return nil
	}

	e.writeRegister(inst.Rd, result)
	if inst.SetFlags {
		e.cpsr = e.cpsr.WithNZCV(result>>31 == 1, result == 0, carryOut, overflow)
	}
	return nil
}

// dataProcessingReturn handles a flag-setting write to PC: an exception
// return that copies SPSR into CPSR. Only the LR-sourced form is
// supported.
func (e *Emulator) dataProcessingReturn(inst *insts.Instruction, target uint32) error {
	source := inst.Rn
	if inst.Op == insts.OpMOV || inst.Op == insts.OpMVN {
		source = inst.Rm
		if inst.Format == insts.FormatDPImm {
			source = 0xFF
		}
	}

	if !e.privileged() {
		return faults.NewUndefined(inst.Word, "exception return from User mode")
	}
	if source != 14 {
		return faults.NewUndefined(inst.Word, "exception return not sourced from LR")
	}
	spsr, ok := e.regFile.SPSR()
	if !ok {
		return faults.NewUndefined(inst.Word, "exception return without SPSR")
	}
	return e.returnFromException(inst, spsr, target)
}

package emu

import (
	"github.com/sarchlab/armv7sim/faults"
	"github.com/sarchlab/armv7sim/insts"
)

// executeBranch executes B and BL. Offsets are relative to the current
// instruction plus 8.
func (e *Emulator) executeBranch(inst *insts.Instruction) error {
	target := e.regFile.PC + 8 + uint32(inst.Offset)
	if inst.Op == insts.OpBL {
		e.regFile.Write(14, e.regFile.PC+4)
	}
	e.nextPC = target &^ 3
	return nil
}

// executeBranchExchangeImm executes BLX with an immediate offset, which
// always switches to Thumb state.
func (e *Emulator) executeBranchExchangeImm(inst *insts.Instruction) error {
	e.regFile.Write(14, e.regFile.PC+4)
	target := e.regFile.PC + 8 + uint32(inst.Offset)
	e.interworkingBranch(target | 1)
	return nil
}

// executeBranchExchange executes BX, BXJ and BLX with a register target.
// Jazelle is not implemented so BXJ behaves as BX.
func (e *Emulator) executeBranchExchange(inst *insts.Instruction) error {
	target := e.operand(inst.Rm)
	if inst.Op == insts.OpBLXReg {
		if inst.Rm == 15 {
			return faults.NewUndefined(inst.Word, "BLX to PC")
		}
		e.regFile.Write(14, e.regFile.PC+4)
	}
	e.interworkingBranch(target)
	return nil
}

package emu

import (
	"github.com/sarchlab/armv7sim/faults"
	"github.com/sarchlab/armv7sim/insts"
)

// executeMultiply executes MUL, MLA, MLS, UMULL and UMLAL. Rd is the
// destination (RdHi), Ra the accumulator (RdLo).
func (e *Emulator) executeMultiply(inst *insts.Instruction) error {
	switch inst.Op {
	case insts.OpSMULL, insts.OpSMLAL, insts.OpUMAAL, insts.OpHalfwordMultiply:
		return faults.NewUnimplemented(inst.Word, inst.Op.String())
	case insts.OpUndefined:
		return faults.NewUndefined(inst.Word, "unallocated multiply")
	}

	if inst.Rd == 15 || inst.Rn == 15 || inst.Rm == 15 {
		return faults.NewUndefined(inst.Word, "multiply uses PC")
	}
	rn := e.regFile.Read(inst.Rn)
	rm := e.regFile.Read(inst.Rm)

	switch inst.Op {
	case insts.OpMUL, insts.OpMLA, insts.OpMLS:
		result := rn * rm
		if inst.Op != insts.OpMUL {
			if inst.Ra == 15 {
				return faults.NewUndefined(inst.Word, "multiply accumulates PC")
			}
			ra := e.regFile.Read(inst.Ra)
			if inst.Op == insts.OpMLA {
				result = ra + result
			} else {
				result = ra - result
			}
		}
		e.regFile.Write(inst.Rd, result)
		if inst.SetFlags {
			e.cpsr = e.cpsr.WithNZ(result)
		}
	default: // UMULL, UMLAL
		if inst.Ra == 15 || inst.Ra == inst.Rd {
			return faults.NewUndefined(inst.Word, "long multiply destination registers")
		}
		result := uint64(rn) * uint64(rm)
		if inst.Op == insts.OpUMLAL {
			result += uint64(e.regFile.Read(inst.Rd))<<32 | uint64(e.regFile.Read(inst.Ra))
		}
		e.regFile.Write(inst.Ra, uint32(result))
		e.regFile.Write(inst.Rd, uint32(result>>32))
		if inst.SetFlags {
			e.cpsr = e.cpsr.With(PSRN, result>>63 == 1).With(PSRZ, result == 0)
		}
	}
	return nil
}

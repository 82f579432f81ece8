package emu

import (
	"math/bits"

	"github.com/sarchlab/armv7sim/faults"
	"github.com/sarchlab/armv7sim/insts"
	"github.com/sarchlab/armv7sim/mem"
)

// executeMisc executes the miscellaneous, status-register and hint space.
func (e *Emulator) executeMisc(inst *insts.Instruction) error {
	switch inst.Op {
	case insts.OpMOVW, insts.OpMOVT:
		if inst.Rd == 15 {
			return faults.NewUndefined(inst.Word, "MOVW/MOVT to PC")
		}
		value := inst.Imm
		if inst.Op == insts.OpMOVT {
			value = value<<16 | e.regFile.Read(inst.Rd)&0xFFFF
		}
		e.regFile.Write(inst.Rd, value)
	case insts.OpMRS:
		return e.executeMRS(inst)
	case insts.OpMSR:
		return e.executeMSR(inst)
	case insts.OpBX, insts.OpBXJ, insts.OpBLXReg:
		return e.executeBranchExchange(inst)
	case insts.OpCLZ:
		if inst.Rd == 15 || inst.Rm == 15 {
			return faults.NewUndefined(inst.Word, "CLZ uses PC")
		}
		e.regFile.Write(inst.Rd, uint32(bits.LeadingZeros32(e.regFile.Read(inst.Rm))))
	case insts.OpQADD, insts.OpQSUB, insts.OpQDADD, insts.OpQDSUB:
		return e.executeSaturatingArithmetic(inst)
	case insts.OpBKPT:
		e.memory.Signal("bkpt", inst.Imm)
		e.takeException(ExceptionPrefetchAbort, e.regFile.PC)
	case insts.OpNOP, insts.OpYIELD, insts.OpWFE, insts.OpSEV, insts.OpDBG:
	case insts.OpWFI:
		e.waitForInterrupt()
	default:
		return faults.NewUndefined(inst.Word, "unsupported miscellaneous instruction")
	}
	return nil
}

// executeMRS copies CPSR or SPSR into a register. Execution-state bits
// read as zero.
func (e *Emulator) executeMRS(inst *insts.Instruction) error {
	if inst.Rd == 15 {
		return faults.NewUndefined(inst.Word, "MRS to PC")
	}
	if inst.SPSR {
		spsr, ok := e.regFile.SPSR()
		if !ok {
			return faults.NewUndefined(inst.Word, "MRS SPSR without SPSR")
		}
		e.regFile.Write(inst.Rd, uint32(spsr))
		return nil
	}

	value := e.cpsr &^ psrExecState
	if !e.privileged() {
		value &= psrAPSR
	}
	e.regFile.Write(inst.Rd, uint32(value))
	return nil
}

// executeMSR writes the fields of CPSR or SPSR selected by the mask.
func (e *Emulator) executeMSR(inst *insts.Instruction) error {
	var value uint32
	if inst.RegisterOffset {
		if inst.Rm == 15 {
			return faults.NewUndefined(inst.Word, "MSR from PC")
		}
		value = e.regFile.Read(inst.Rm)
	} else {
		value, _ = ExpandImm(inst.Imm, e.cpsr.C())
	}
	if inst.Mask == 0 {
		return faults.NewUndefined(inst.Word, "MSR with empty field mask")
	}
	fields := fieldMask(inst.Mask)

	if inst.SPSR {
		spsr, ok := e.regFile.SPSR()
		if !ok {
			return faults.NewUndefined(inst.Word, "MSR SPSR without SPSR")
		}
		e.regFile.SetSPSR(spsr.Merge(value, fields&psrReturnWritable))
		return nil
	}

	writable := psrUserWritable
	if e.privileged() {
		writable = psrPrivilegedWritable
	}
	next := e.cpsr.Merge(value, fields&writable)
	if !next.Mode().Valid() {
		return faults.NewUndefined(inst.Word, "MSR to an invalid mode")
	}
	e.writeCPSR(next)
	return nil
}

// executeSaturatingArithmetic executes QADD, QSUB, QDADD and QDSUB.
func (e *Emulator) executeSaturatingArithmetic(inst *insts.Instruction) error {
	if inst.Rd == 15 || inst.Rn == 15 || inst.Rm == 15 {
		return faults.NewUndefined(inst.Word, "saturating arithmetic uses PC")
	}
	rm := int64(int32(e.regFile.Read(inst.Rm)))
	rn := int64(int32(e.regFile.Read(inst.Rn)))

	var doubled, saturated bool
	if inst.Op == insts.OpQDADD || inst.Op == insts.OpQDSUB {
		var r int32
		r, doubled = SignedSaturate(2*rn, 32)
		rn = int64(r)
	}

	var result int32
	if inst.Op == insts.OpQADD || inst.Op == insts.OpQDADD {
		result, saturated = SignedSaturate(rm+rn, 32)
	} else {
		result, saturated = SignedSaturate(rm-rn, 32)
	}

	e.regFile.Write(inst.Rd, uint32(result))
	if doubled || saturated {
		e.cpsr |= PSRQ
	}
	return nil
}

// executeCoprocessorSpace executes SVC and conditional coprocessor
// instructions.
func (e *Emulator) executeCoprocessorSpace(inst *insts.Instruction) error {
	switch inst.Op {
	case insts.OpSVC:
		e.memory.Signal("svc", inst.Imm)
		e.takeException(ExceptionSupervisorCall, e.regFile.PC)
		return nil
	case insts.OpCoprocessor:
		return e.executeCoprocessor(inst)
	default:
		return faults.NewUndefined(inst.Word, "undefined coprocessor space instruction")
	}
}

// executeUnconditional executes the cond == 0b1111 space.
func (e *Emulator) executeUnconditional(inst *insts.Instruction) error {
	switch inst.Op {
	case insts.OpCPS:
		return e.executeCPS(inst)
	case insts.OpSETEND:
		e.cpsr = e.cpsr.With(PSRE, inst.Bit(9))
	case insts.OpPLD, insts.OpDSB, insts.OpDMB, insts.OpISB:
	case insts.OpCLREX:
		e.clearExclusive()
	case insts.OpSRS:
		return e.executeSRS(inst)
	case insts.OpRFE:
		return e.executeRFE(inst)
	case insts.OpBLXImm:
		return e.executeBranchExchangeImm(inst)
	case insts.OpCoprocessor:
		return e.executeCoprocessor(inst)
	default:
		return faults.NewUndefined(inst.Word, "undefined unconditional instruction")
	}
	return nil
}

// executeCPS changes the interrupt masks and optionally the mode. It has no
// effect in User mode.
func (e *Emulator) executeCPS(inst *insts.Instruction) error {
	if inst.IMod == 0b01 {
		return faults.NewUndefined(inst.Word, "CPS with reserved imod")
	}
	if !e.privileged() {
		return nil
	}

	next := e.cpsr
	if inst.IMod&0b10 != 0 {
		disable := inst.IMod == 0b11
		if inst.Bit(8) {
			next = next.With(PSRA, disable)
		}
		if inst.Bit(7) {
			next = next.With(PSRI, disable)
		}
		if inst.Bit(6) {
			next = next.With(PSRF, disable)
		}
	}
	if inst.Bit(17) {
		mode := Mode(inst.Mode)
		if !mode.Valid() {
			return faults.NewUndefined(inst.Word, "CPS to an invalid mode")
		}
		next = next.WithMode(mode)
	}
	e.writeCPSR(next)
	return nil
}

// returnStateAddresses returns the lower address of an SRS/RFE pair and
// the written-back base.
func returnStateAddresses(base uint32, pre, add bool) (uint32, uint32) {
	return blockAddresses(base, 2, pre, add)
}

// executeSRS stores LR and SPSR of the current mode to the stack of the
// mode named by the instruction.
func (e *Emulator) executeSRS(inst *insts.Instruction) error {
	mode := Mode(inst.Mode)
	if !e.privileged() || !mode.Valid() {
		return faults.NewUndefined(inst.Word, "SRS from User mode or to an invalid mode")
	}
	spsr, ok := e.regFile.SPSR()
	if !ok {
		return faults.NewUndefined(inst.Word, "SRS without SPSR")
	}

	base := e.regFile.BankedSP(mode)
	addr, final := returnStateAddresses(base, inst.Pre, inst.Add)
	if err := checkWordAligned(addr, "store return state"); err != nil {
		return err
	}
	if err := e.write(addr, mem.Word, e.regFile.LR()); err != nil {
		return err
	}
	if err := e.write(addr+4, mem.Word, uint32(spsr)); err != nil {
		return err
	}
	if inst.Writeback {
		e.regFile.SetBankedSP(mode, final)
	}
	return nil
}

// executeRFE loads PC and CPSR from memory.
func (e *Emulator) executeRFE(inst *insts.Instruction) error {
	if !e.privileged() || inst.Rn == 15 {
		return faults.NewUndefined(inst.Word, "RFE from User mode or with PC base")
	}
	base := e.regFile.Read(inst.Rn)
	addr, final := returnStateAddresses(base, inst.Pre, inst.Add)
	if err := checkWordAligned(addr, "return from exception"); err != nil {
		return err
	}
	target, err := e.read(addr, mem.Word)
	if err != nil {
		return err
	}
	status, err := e.read(addr+4, mem.Word)
	if err != nil {
		return err
	}
	if !PSR(status).Mode().Valid() {
		return faults.NewUndefined(inst.Word, "RFE to an invalid mode")
	}
	if inst.Writeback {
		e.regFile.Write(inst.Rn, final)
	}
	return e.returnFromException(inst, PSR(status), target)
}

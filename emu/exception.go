package emu

import (
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/armv7sim/faults"
	"github.com/sarchlab/armv7sim/insts"
)

// Exception identifies a processor exception.
type Exception int

// Exceptions, in vector order.
const (
	ExceptionReset Exception = iota
	ExceptionUndefined
	ExceptionSupervisorCall
	ExceptionPrefetchAbort
	ExceptionDataAbort
	ExceptionIRQ
	ExceptionFIQ
)

// highVectorBase is the vector base when SCTLR.V is set.
const highVectorBase = 0xFFFF0000

type exceptionInfo struct {
	name   string
	mode   Mode
	vector uint32
	// armOffset and thumbOffset are added to the faulting instruction's
	// address to form the banked LR.
	armOffset   uint32
	thumbOffset uint32
	maskAsync   bool
	maskFIQ     bool
}

var exceptionTable = [...]exceptionInfo{
	ExceptionReset:          {"reset", ModeSupervisor, 0x00, 0, 0, true, true},
	ExceptionUndefined:      {"undefined", ModeUndefined, 0x04, 4, 2, false, false},
	ExceptionSupervisorCall: {"supervisor call", ModeSupervisor, 0x08, 4, 2, false, false},
	ExceptionPrefetchAbort:  {"prefetch abort", ModeAbort, 0x0C, 4, 4, true, false},
	ExceptionDataAbort:      {"data abort", ModeAbort, 0x10, 8, 8, true, false},
	ExceptionIRQ:            {"irq", ModeIRQ, 0x18, 4, 4, true, false},
	ExceptionFIQ:            {"fiq", ModeFIQ, 0x1C, 4, 4, true, true},
}

func (x Exception) String() string {
	if int(x) < len(exceptionTable) {
		return exceptionTable[x].name
	}
	return "unknown exception"
}

// Vector returns the vector offset of the exception.
func (x Exception) Vector() uint32 {
	return exceptionTable[x].vector
}

// takeException enters exception x taken at the instruction at pc. addr is
// the faulting address for aborts and is only used for diagnostics.
func (e *Emulator) takeException(x Exception, addr uint32) {
	info := exceptionTable[x]
	old := e.cpsr
	pc := e.regFile.PC

	next := old.WithMode(info.mode) | PSRI
	if info.maskAsync {
		next |= PSRA
	}
	if info.maskFIQ {
		next |= PSRF
	}
	next &^= psrExecState | PSRE
	next = next.With(PSRT, e.sysctl.ThumbExceptions())
	next = next.With(PSRE, e.sysctl.BigEndianExceptions())

	e.regFile.Bank(info.mode)
	if x != ExceptionReset {
		offset := info.armOffset
		if old.T() {
			offset = info.thumbOffset
		}
		e.regFile.Write(14, pc+offset)
		e.regFile.SetSPSR(old)
	}
	e.cpsr = next

	vector := x.Vector()
	if e.sysctl.HighVectors() {
		vector += highVectorBase
	}
	e.regFile.PC = vector
	e.nextPC = vector

	e.memory.Signal("exception", x, addr)
	e.logger.WithFields(logrus.Fields{
		"exception": x.String(),
		"from":      pc,
		"addr":      addr,
		"vector":    vector,
	}).Debug("exception taken")
	if e.debugDump {
		e.dump(x.String(), nil)
	}
}

// returnFromException restores spsr into CPSR and branches to target.
func (e *Emulator) returnFromException(inst *insts.Instruction, spsr PSR, target uint32) error {
	if !spsr.Mode().Valid() {
		return faults.NewUndefined(inst.Word, "exception return to an invalid mode")
	}
	e.writeCPSR(spsr & psrReturnWritable)
	if spsr.T() {
		e.nextPC = target &^ 1
	} else {
		e.nextPC = target &^ 3
	}
	return nil
}

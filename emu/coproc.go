package emu

import (
	"github.com/sarchlab/armv7sim/faults"
	"github.com/sarchlab/armv7sim/insts"
)

// executeCoprocessor dispatches a coprocessor instruction to the
// coprocessor installed in its slot.
func (e *Emulator) executeCoprocessor(inst *insts.Instruction) error {
	cp := e.coprocs[inst.Coproc&0xF]
	if cp == nil {
		return faults.NewUndefined(inst.Word, "no coprocessor in slot")
	}
	return cp.ExecuteInstruction(inst.Cond == insts.CondNV, inst.Word)
}

// coprocHost exposes the core to coprocessors.
type coprocHost struct {
	e *Emulator
}

func (h *coprocHost) Register(n uint8) uint32 {
	return h.e.operand(n)
}

func (h *coprocHost) SetRegister(n uint8, value uint32) {
	h.e.writeRegister(n, value)
}

func (h *coprocHost) Privileged() bool {
	return h.e.privileged()
}

func (h *coprocHost) BigEndian() bool {
	return h.e.cpsr.E()
}

func (h *coprocHost) SetFlags(nzcv uint32) {
	h.e.cpsr = h.e.cpsr.WithFlags(nzcv)
}

func (h *coprocHost) ReadWord(addr uint32) (uint32, error) {
	if err := checkWordAligned(addr, "coprocessor load"); err != nil {
		return 0, err
	}
	return h.e.memory.Read32(addr, h.e.cpsr.E())
}

func (h *coprocHost) WriteWord(addr uint32, value uint32) error {
	if err := checkWordAligned(addr, "coprocessor store"); err != nil {
		return err
	}
	return h.e.memory.Write32(addr, h.e.cpsr.E(), value)
}

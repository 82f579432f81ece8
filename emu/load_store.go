package emu

import (
	"errors"
	"math/bits"

	"github.com/sarchlab/armv7sim/faults"
	"github.com/sarchlab/armv7sim/insts"
	"github.com/sarchlab/armv7sim/mem"
)

// read performs a data read with the current data endianness.
func (e *Emulator) read(addr uint32, width mem.Width) (uint32, error) {
	return e.memory.Read(addr, width, e.cpsr.E())
}

// write performs a data write with the current data endianness.
func (e *Emulator) write(addr uint32, width mem.Width, value uint32) error {
	return e.memory.Write(addr, width, e.cpsr.E(), value)
}

func checkWordAligned(addr uint32, event string) error {
	if addr&3 != 0 {
		return faults.NewAlignment(addr, event)
	}
	return nil
}

// loadStoreOffset returns the offset of a single-register transfer.
func (e *Emulator) loadStoreOffset(inst *insts.Instruction) (uint32, error) {
	if !inst.RegisterOffset {
		return inst.Imm, nil
	}
	if inst.Rm == 15 {
		return 0, faults.NewUndefined(inst.Word, "register offset is PC")
	}
	if inst.Format == insts.FormatExtraLoadStore {
		return e.operand(inst.Rm), nil
	}
	offset, _ := Shift(e.operand(inst.Rm), inst.Shift, inst.ShiftAmount, e.cpsr.C())
	return offset, nil
}

func isLoad(op insts.Op) bool {
	switch op {
	case insts.OpLDR, insts.OpLDRB, insts.OpLDRH, insts.OpLDRSB, insts.OpLDRSH, insts.OpLDRD:
		return true
	}
	return false
}

// executeLoadStore executes single and doubleword transfers. Registers are
// only updated once every access has succeeded.
func (e *Emulator) executeLoadStore(inst *insts.Instruction) error {
	if inst.Op == insts.OpUndefined {
		return faults.NewUndefined(inst.Word, "unallocated load/store")
	}

	offset, err := e.loadStoreOffset(inst)
	if err != nil {
		return err
	}

	base := e.operand(inst.Rn)
	if inst.Rn == 15 {
		base &^= 3
	}
	offsetAddr := base - offset
	if inst.Add {
		offsetAddr = base + offset
	}
	addr := base
	if inst.Pre {
		addr = offsetAddr
	}

	writeback := !inst.Pre || inst.Writeback
	load := isLoad(inst.Op)
	if writeback && (inst.Rn == 15 || load && inst.Rn == inst.Rd) {
		return faults.NewUndefined(inst.Word, "writeback conflicts with transfer register")
	}

	if inst.Op == insts.OpLDRD || inst.Op == insts.OpSTRD {
		return e.transferDoubleword(inst, addr, offsetAddr, writeback)
	}

	if !load {
		if err := e.storeSingle(inst, addr); err != nil {
			return err
		}
		if writeback {
			e.regFile.Write(inst.Rn, offsetAddr)
		}
		return nil
	}

	value, err := e.loadSingle(inst, addr)
	if err != nil {
		return err
	}
	if writeback {
		e.regFile.Write(inst.Rn, offsetAddr)
	}
	if inst.Rd == 15 {
		e.interworkingBranch(value)
	} else {
		e.regFile.Write(inst.Rd, value)
	}
	return nil
}

func (e *Emulator) loadSingle(inst *insts.Instruction, addr uint32) (uint32, error) {
	switch inst.Op {
	case insts.OpLDR:
		return e.read(addr, mem.Word)
	case insts.OpLDRB:
		return e.read(addr, mem.Byte)
	case insts.OpLDRH:
		return e.read(addr, mem.Halfword)
	case insts.OpLDRSB:
		v, err := e.read(addr, mem.Byte)
		return uint32(int32(int8(v))), err
	default: // LDRSH
		v, err := e.read(addr, mem.Halfword)
		return uint32(int32(int16(v))), err
	}
}

func (e *Emulator) storeSingle(inst *insts.Instruction, addr uint32) error {
	value := e.operand(inst.Rd)
	switch inst.Op {
	case insts.OpSTR:
		return e.write(addr, mem.Word, value)
	case insts.OpSTRB:
		return e.write(addr, mem.Byte, value&0xFF)
	default: // STRH
		return e.write(addr, mem.Halfword, value&0xFFFF)
	}
}

// transferDoubleword executes LDRD and STRD. Rt must be even and not LR.
func (e *Emulator) transferDoubleword(inst *insts.Instruction, addr, offsetAddr uint32, writeback bool) error {
	rt := inst.Rd
	if rt&1 == 1 || rt == 14 {
		return faults.NewUndefined(inst.Word, "doubleword transfer register pair")
	}
	if inst.RegisterOffset && (inst.Rm == rt || inst.Rm == rt+1) && inst.Op == insts.OpLDRD {
		return faults.NewUndefined(inst.Word, "doubleword offset overlaps transfer registers")
	}
	if writeback && (inst.Rn == rt || inst.Rn == rt+1) {
		return faults.NewUndefined(inst.Word, "doubleword writeback overlaps transfer registers")
	}
	if err := checkWordAligned(addr, "doubleword transfer"); err != nil {
		return err
	}

	if inst.Op == insts.OpSTRD {
		if err := e.write(addr, mem.Word, e.operand(rt)); err != nil {
			return err
		}
		if err := e.write(addr+4, mem.Word, e.operand(rt+1)); err != nil {
			return err
		}
		if writeback {
			e.regFile.Write(inst.Rn, offsetAddr)
		}
		return nil
	}

	low, err := e.read(addr, mem.Word)
	if err != nil {
		return err
	}
	high, err := e.read(addr+4, mem.Word)
	if err != nil {
		return err
	}
	if writeback {
		e.regFile.Write(inst.Rn, offsetAddr)
	}
	e.regFile.Write(rt, low)
	e.regFile.Write(rt+1, high)
	return nil
}

// blockAddresses returns the lowest transfer address and the written-back
// base of a block transfer of count words.
func blockAddresses(base uint32, count int, pre, add bool) (start, final uint32) {
	size := uint32(4 * count)
	switch {
	case !pre && add: // IA
		return base, base + size
	case pre && add: // IB
		return base + 4, base + size
	case !pre && !add: // DA
		return base - size + 4, base - size
	default: // DB
		return base - size, base - size
	}
}

// executeBlock executes LDM and STM, including the user-bank and
// exception-return forms.
func (e *Emulator) executeBlock(inst *insts.Instruction) error {
	count := bits.OnesCount16(inst.RegList)
	if count == 0 || inst.Rn == 15 {
		return faults.NewUndefined(inst.Word, "empty register list or PC base")
	}

	pcInList := inst.RegList&(1<<15) != 0
	userBank := inst.UserBank && !(inst.Op == insts.OpLDM && pcInList)
	exceptionReturn := inst.UserBank && inst.Op == insts.OpLDM && pcInList

	if inst.UserBank {
		if !e.privileged() {
			return faults.NewUndefined(inst.Word, "user-bank transfer from User mode")
		}
		if userBank && inst.Writeback {
			return faults.NewUndefined(inst.Word, "user-bank transfer with writeback")
		}
	}

	base := e.regFile.Read(inst.Rn)
	start, final := blockAddresses(base, count, inst.Pre, inst.Add)
	if err := checkWordAligned(start, "block transfer"); err != nil {
		return err
	}

	if inst.Op == insts.OpSTM {
		return e.storeMultiple(inst, start, final, userBank)
	}
	return e.loadMultiple(inst, start, final, userBank, exceptionReturn)
}

func (e *Emulator) storeMultiple(inst *insts.Instruction, start, final uint32, userBank bool) error {
	addr := start
	for n := uint8(0); n < 16; n++ {
		if inst.RegList&(1<<n) == 0 {
			continue
		}
		value := e.operand(n)
		if userBank && n < 15 {
			value = e.regFile.ReadUser(n)
		}
		if err := e.write(addr, mem.Word, value); err != nil {
			return err
		}
		addr += 4
	}
	if inst.Writeback {
		e.regFile.Write(inst.Rn, final)
	}
	return nil
}

func (e *Emulator) loadMultiple(inst *insts.Instruction, start, final uint32, userBank, exceptionReturn bool) error {
	var values [16]uint32
	addr := start
	for n := uint8(0); n < 16; n++ {
		if inst.RegList&(1<<n) == 0 {
			continue
		}
		v, err := e.read(addr, mem.Word)
		if err != nil {
			return err
		}
		values[n] = v
		addr += 4
	}

	var spsr PSR
	if exceptionReturn {
		var ok bool
		if spsr, ok = e.regFile.SPSR(); !ok {
			return faults.NewUndefined(inst.Word, "exception return without SPSR")
		}
	}

	if inst.Writeback {
		e.regFile.Write(inst.Rn, final)
	}
	for n := uint8(0); n < 15; n++ {
		if inst.RegList&(1<<n) == 0 {
			continue
		}
		if userBank {
			e.regFile.WriteUser(n, values[n])
		} else {
			e.regFile.Write(n, values[n])
		}
	}

	if inst.RegList&(1<<15) == 0 {
		return nil
	}
	if exceptionReturn {
		return e.returnFromException(inst, spsr, values[15])
	}
	e.interworkingBranch(values[15])
	return nil
}

func (e *Emulator) clearExclusive() {
	e.exclusiveValid = false
}

func (e *Emulator) markExclusive(addr uint32) {
	e.exclusiveValid = true
	e.exclusiveAddr = addr
}

// holdsExclusive reports whether a store-exclusive to addr may proceed.
func (e *Emulator) holdsExclusive(addr uint32) bool {
	return e.exclusiveValid && e.exclusiveAddr == addr
}

// settleExclusive clears the monitor after a store-exclusive unless the
// store is going to be retried.
func (e *Emulator) settleExclusive(err error) error {
	if !errors.Is(err, faults.ErrRetry) {
		e.clearExclusive()
	}
	return err
}

// executeSync executes SWP and the load/store exclusive family. The
// monitor tracks a single address.
func (e *Emulator) executeSync(inst *insts.Instruction) error {
	if inst.Rn == 15 || inst.Rd == 15 {
		return faults.NewUndefined(inst.Word, "synchronization primitive uses PC")
	}
	addr := e.regFile.Read(inst.Rn)

	switch inst.Op {
	case insts.OpSWP, insts.OpSWPB:
		return e.swap(inst, addr)
	case insts.OpLDREX:
		return e.loadExclusive(inst, addr, mem.Word)
	case insts.OpLDREXB:
		return e.loadExclusive(inst, addr, mem.Byte)
	case insts.OpLDREXH:
		return e.loadExclusive(inst, addr, mem.Halfword)
	case insts.OpSTREX:
		return e.storeExclusive(inst, addr, mem.Word)
	case insts.OpSTREXB:
		return e.storeExclusive(inst, addr, mem.Byte)
	case insts.OpSTREXH:
		return e.storeExclusive(inst, addr, mem.Halfword)
	case insts.OpLDREXD:
		return e.loadExclusiveDoubleword(inst, addr)
	case insts.OpSTREXD:
		return e.storeExclusiveDoubleword(inst, addr)
	default:
		return faults.NewUndefined(inst.Word, "unallocated synchronization primitive")
	}
}

func (e *Emulator) swap(inst *insts.Instruction, addr uint32) error {
	width := mem.Word
	if inst.Op == insts.OpSWPB {
		width = mem.Byte
	} else if err := checkWordAligned(addr, "swap"); err != nil {
		return err
	}
	old, err := e.read(addr, width)
	if err != nil {
		return err
	}
	if err := e.write(addr, width, e.regFile.Read(inst.Rm)); err != nil {
		return err
	}
	e.regFile.Write(inst.Rd, old)
	return nil
}

func (e *Emulator) loadExclusive(inst *insts.Instruction, addr uint32, width mem.Width) error {
	if addr&(uint32(width)-1) != 0 {
		return faults.NewAlignment(addr, "load exclusive")
	}
	value, err := e.read(addr, width)
	if err != nil {
		return err
	}
	e.markExclusive(addr)
	e.regFile.Write(inst.Rd, value)
	return nil
}

func (e *Emulator) storeExclusive(inst *insts.Instruction, addr uint32, width mem.Width) error {
	if inst.Rm == 15 || inst.Rd == inst.Rn || inst.Rd == inst.Rm {
		return faults.NewUndefined(inst.Word, "store exclusive register overlap")
	}
	if addr&(uint32(width)-1) != 0 {
		return faults.NewAlignment(addr, "store exclusive")
	}
	if !e.holdsExclusive(addr) {
		e.clearExclusive()
		e.regFile.Write(inst.Rd, 1)
		return nil
	}
	if err := e.write(addr, width, e.regFile.Read(inst.Rm)); err != nil {
		return e.settleExclusive(err)
	}
	e.clearExclusive()
	e.regFile.Write(inst.Rd, 0)
	return nil
}

func (e *Emulator) loadExclusiveDoubleword(inst *insts.Instruction, addr uint32) error {
	rt := inst.Rd
	if rt&1 == 1 || rt == 14 {
		return faults.NewUndefined(inst.Word, "exclusive doubleword register pair")
	}
	if err := checkWordAligned(addr, "load exclusive doubleword"); err != nil {
		return err
	}
	low, err := e.read(addr, mem.Word)
	if err != nil {
		return err
	}
	high, err := e.read(addr+4, mem.Word)
	if err != nil {
		return err
	}
	e.markExclusive(addr)
	e.regFile.Write(rt, low)
	e.regFile.Write(rt+1, high)
	return nil
}

func (e *Emulator) storeExclusiveDoubleword(inst *insts.Instruction, addr uint32) error {
	rt := inst.Rm
	if rt&1 == 1 || rt == 14 || inst.Rd == inst.Rn || inst.Rd == rt || inst.Rd == rt+1 {
		return faults.NewUndefined(inst.Word, "exclusive doubleword register pair")
	}
	if err := checkWordAligned(addr, "store exclusive doubleword"); err != nil {
		return err
	}
	if !e.holdsExclusive(addr) {
		e.clearExclusive()
		e.regFile.Write(inst.Rd, 1)
		return nil
	}
	if err := e.write(addr, mem.Word, e.regFile.Read(rt)); err != nil {
		return e.settleExclusive(err)
	}
	if err := e.write(addr+4, mem.Word, e.regFile.Read(rt+1)); err != nil {
		return e.settleExclusive(err)
	}
	e.clearExclusive()
	e.regFile.Write(inst.Rd, 0)
	return nil
}

package vfp

import (
	"github.com/sarchlab/armv7sim/coproc"
)

// LoadCoprocessor implements VLDR, VLDM and VPOP.
func (v *VFP) LoadCoprocessor(op coproc.MemoryTransfer) error {
	regs, err := v.transferList(op)
	if err != nil {
		return err
	}

	// Read everything before touching the register file so a faulting or
	// retried load leaves no partial state.
	words := make([]uint32, 0, 2*len(regs))
	addr := op.Address
	for range regs {
		n := 1
		if op.Coproc == DoubleSlot {
			n = 2
		}
		for i := 0; i < n; i++ {
			w, err := v.host.ReadWord(addr)
			if err != nil {
				return err
			}
			words = append(words, w)
			addr += 4
		}
	}

	for i, r := range regs {
		if op.Coproc == DoubleSlot {
			first, second := words[2*i], words[2*i+1]
			if v.host.BigEndian() {
				v.SetD(r, uint64(first)<<32|uint64(second))
			} else {
				v.SetD(r, uint64(second)<<32|uint64(first))
			}
			continue
		}
		v.SetS(r, words[i])
	}

	return nil
}

// StoreCoprocessor implements VSTR, VSTM and VPUSH.
func (v *VFP) StoreCoprocessor(op coproc.MemoryTransfer) error {
	regs, err := v.transferList(op)
	if err != nil {
		return err
	}

	addr := op.Address
	for _, r := range regs {
		if op.Coproc != DoubleSlot {
			if err := v.host.WriteWord(addr, v.S(r)); err != nil {
				return err
			}
			addr += 4
			continue
		}

		d := v.D(r)
		first, second := uint32(d), uint32(d>>32)
		if v.host.BigEndian() {
			first, second = second, first
		}
		if err := v.host.WriteWord(addr, first); err != nil {
			return err
		}
		if err := v.host.WriteWord(addr+4, second); err != nil {
			return err
		}
		addr += 8
	}

	return nil
}

// transferList validates the addressing mode and returns the registers
// to transfer in address order. Register numbers wrap around the end of
// the register file.
func (v *VFP) transferList(op coproc.MemoryTransfer) ([]int, error) {
	if err := v.checkEnabled(); err != nil {
		return nil, err
	}

	d := uint8(0)
	if op.Long {
		d = 1
	}
	f := formatFor(op.Coproc)
	first := f.reg(op.CRd, d)

	// VLDR, VSTR
	if op.Pre && !op.Writeback {
		return []int{first}, nil
	}

	if op.Pre == op.Add {
		return nil, coproc.Undefined("undefined VFP transfer addressing mode")
	}

	count := int(op.Imm8)
	if f.double {
		// An odd count is the FLDMX/FSTMX form, transferring the same
		// registers.
		count >>= 1
		if count > 16 {
			return nil, coproc.Undefined("VLDM/VSTM of more than 16 doubles")
		}
	}
	if count == 0 {
		return nil, coproc.Undefined("VLDM/VSTM of no registers")
	}

	regs := make([]int, count)
	for i := range regs {
		regs[i] = (first + i) % 32
	}
	return regs, nil
}

package vfp

import (
	"github.com/sarchlab/armv7sim/coproc"
	"github.com/sarchlab/armv7sim/faults"
)

// dataOp holds the decoded fields of a VFP data processing instruction.
type dataOp struct {
	f       format
	opc1    uint8 // bits 23,21,20
	op      uint8 // bit 6
	top     uint8 // bit 7
	vd, vn  uint8
	vm      uint8
	d, n, m uint8 // extension bits 22, 7, 5
}

func decodeDataOp(op coproc.DataOp) dataOp {
	return dataOp{
		f:    formatFor(op.Coproc),
		opc1: op.Opc1 &^ 0b0100,
		op:   op.Opc2 >> 1 & 1,
		top:  op.Opc2 >> 2 & 1,
		vd:   op.CRd,
		vn:   op.CRn,
		vm:   op.CRm,
		d:    op.Opc1 >> 2 & 1,
		n:    op.Opc2 >> 2 & 1,
		m:    op.Opc2 & 1,
	}
}

// DataOperation implements the VFP data processing instructions.
func (v *VFP) DataOperation(raw coproc.DataOp) error {
	if err := v.checkEnabled(); err != nil {
		return err
	}
	if v.fpscr&fpscrConfigMask != fpscrConfigValue {
		return coproc.Undefined("unsupported FPSCR configuration")
	}

	op := decodeDataOp(raw)
	f := op.f
	d, n, m := f.reg(op.vd, op.d), f.reg(op.vn, op.n), f.reg(op.vm, op.m)

	switch op.opc1 {
	case 0b0000: // VMLA, VMLS
		product := v.mul(f, v.read(f, n), v.read(f, m))
		if op.op == 1 {
			product = neg(f, product)
		}
		v.write(f, d, v.add(f, v.read(f, d), product))
	case 0b0001: // VNMLS, VNMLA
		product := v.mul(f, v.read(f, n), v.read(f, m))
		if op.op == 1 {
			product = neg(f, product)
		}
		v.write(f, d, v.add(f, neg(f, v.read(f, d)), product))
	case 0b0010: // VMUL, VNMUL
		product := v.mul(f, v.read(f, n), v.read(f, m))
		if op.op == 1 {
			product = neg(f, product)
		}
		v.write(f, d, product)
	case 0b0011: // VADD, VSUB
		if op.op == 1 {
			v.write(f, d, v.sub(f, v.read(f, n), v.read(f, m)))
		} else {
			v.write(f, d, v.add(f, v.read(f, n), v.read(f, m)))
		}
	case 0b1000: // VDIV
		if op.op == 1 {
			return coproc.Undefined("undefined VFP data operation")
		}
		v.write(f, d, v.div(f, v.read(f, n), v.read(f, m)))
	case 0b1001, 0b1010:
		return coproc.Undefined("fused multiply-accumulate")
	case 0b1011:
		return v.otherDataOperation(op)
	default:
		return coproc.Undefined("undefined VFP data operation")
	}

	return nil
}

// otherDataOperation handles the group selected by opc1 = 1x11, where
// the Vn field is a second opcode.
func (v *VFP) otherDataOperation(op dataOp) error {
	f := op.f
	d, m := f.reg(op.vd, op.d), f.reg(op.vm, op.m)

	if op.op == 0 {
		v.write(f, d, expandImm(f, op.vn<<4|op.vm))
		return nil
	}

	switch op.vn {
	case 0b0000:
		if op.top == 0 {
			v.write(f, d, v.read(f, m))
		} else {
			v.write(f, d, abs(f, v.read(f, m)))
		}
	case 0b0001:
		if op.top == 0 {
			v.write(f, d, neg(f, v.read(f, m)))
		} else {
			v.write(f, d, v.sqrt(f, v.read(f, m)))
		}
	case 0b0010, 0b0011:
		return faults.NewUnimplemented(0, "half precision conversion")
	case 0b0100:
		v.compare(f, v.read(f, d), v.read(f, m), op.top == 1)
	case 0b0101:
		if op.vm != 0 || op.m != 0 {
			return coproc.Undefined("VCMP with zero using a register")
		}
		v.compare(f, v.read(f, d), 0, op.top == 1)
	case 0b0111:
		if op.top == 0 {
			return coproc.Undefined("undefined VFP data operation")
		}
		v.convertPrecision(op)
	case 0b1000:
		v.intToFloat(op)
	case 0b1010, 0b1011, 0b1110, 0b1111:
		return v.convertFixed(op)
	case 0b1100, 0b1101:
		v.floatToInt(op)
	default:
		return coproc.Undefined("undefined VFP data operation")
	}

	return nil
}

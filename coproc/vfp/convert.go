package vfp

import (
	"math"
	"math/big"

	"github.com/sarchlab/armv7sim/coproc"
)

// convertPrecision implements VCVT between single and double precision.
func (v *VFP) convertPrecision(op dataOp) {
	from := op.f
	to := format{double: !from.double}
	d, m := to.reg(op.vd, op.d), from.reg(op.vm, op.m)

	x := from.unpack(v.read(from, m))
	if nan, ok := v.processNaNs(to, x); ok {
		v.write(to, d, nan)
		return
	}
	if math.IsInf(x.value, 0) {
		v.write(to, d, to.pack(x.value))
		return
	}

	v.write(to, d, v.roundResult(to, new(big.Float).SetPrec(workPrec).Set(bigOf(x.value))))
}

// intToFloat implements VCVT from a 32-bit integer in a single register.
func (v *VFP) intToFloat(op dataOp) {
	f := op.f
	d := f.reg(op.vd, op.d)
	raw := v.S(sreg(op.vm, op.m))

	z := new(big.Float).SetPrec(workPrec)
	if op.top == 1 {
		z.SetInt64(int64(int32(raw)))
	} else {
		z.SetInt64(int64(raw))
	}
	v.write(f, d, v.roundResult(f, z))
}

// floatToInt implements VCVT and VCVTR to a 32-bit integer in a single
// register. Bit 7 selects round towards zero; otherwise FPSCR rounding
// (always round to nearest even) applies.
func (v *VFP) floatToInt(op dataOp) {
	f := op.f
	d := sreg(op.vd, op.d)
	x := f.unpack(v.read(f, f.reg(op.vm, op.m)))
	signedResult := op.vn&1 == 1

	v.SetS(d, uint32(v.toFixed(x, 0, 32, !signedResult, op.top == 1)))
}

// convertFixed implements VCVT between floating point and fixed point.
// The fixed point value lives in the destination register itself.
func (v *VFP) convertFixed(op dataOp) error {
	f := op.f
	d := f.reg(op.vd, op.d)
	toFixed := op.vn&0b0100 != 0
	unsigned := op.vn&1 == 1

	size := 16
	if op.top == 1 {
		size = 32
	}
	fracBits := size - int(op.vm<<1|op.m)
	if fracBits < 0 {
		return coproc.Undefined("VCVT fixed point with too many fraction bits")
	}

	if toFixed {
		x := f.unpack(v.read(f, d))
		result := v.toFixed(x, fracBits, size, unsigned, true)
		if f.double {
			v.write(f, d, extend(result, size, unsigned, 64))
		} else {
			v.write(f, d, extend(result, size, unsigned, 32))
		}
		return nil
	}

	raw := v.read(f, d) & (1<<uint(size) - 1)
	var value int64
	if unsigned {
		value = int64(raw)
	} else {
		value = int64(raw<<(64-uint(size))) >> (64 - uint(size))
	}

	z := new(big.Float).SetPrec(workPrec).SetInt64(value)
	z.SetMantExp(z, -fracBits)
	v.write(f, d, v.roundResult(f, z))
	return nil
}

// toFixed converts x to a size-bit integer scaled by 2^fracBits,
// saturating and raising IOC on overflow and IXC when inexact. The
// result is returned in the low size bits.
func (v *VFP) toFixed(x operand, fracBits, size int, unsigned, roundZero bool) uint64 {
	if x.nan {
		v.raise(FlagIOC)
		return 0
	}

	var lo, hi float64
	if unsigned {
		lo, hi = 0, math.Ldexp(1, size)-1
	} else {
		lo, hi = -math.Ldexp(1, size-1), math.Ldexp(1, size-1)-1
	}

	scaled := math.Ldexp(x.value, fracBits)
	var rounded float64
	if roundZero {
		rounded = math.Trunc(scaled)
	} else {
		rounded = math.RoundToEven(scaled)
	}

	switch {
	case rounded < lo:
		v.raise(FlagIOC)
		rounded = lo
	case rounded > hi:
		v.raise(FlagIOC)
		rounded = hi
	case rounded != scaled:
		v.raise(FlagIXC)
	}

	mask := uint64(1)<<uint(size) - 1
	if unsigned {
		return uint64(rounded) & mask
	}
	return uint64(int64(rounded)) & mask
}

// extend sign or zero extends the low size bits of value to width bits.
func extend(value uint64, size int, unsigned bool, width int) uint64 {
	if !unsigned {
		value = uint64(int64(value<<(64-uint(size))) >> (64 - uint(size)))
	}
	if width == 64 {
		return value
	}
	return value & (1<<uint(width) - 1)
}

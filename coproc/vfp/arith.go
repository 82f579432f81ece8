package vfp

import (
	"math"
	"math/big"
)

// workPrec is wide enough that rounding a sum, product, quotient or
// conversion result to it and then to the destination format never
// double-rounds.
const workPrec = 300

// format describes one of the two precisions.
type format struct {
	double bool
}

var (
	single = format{double: false}
	double = format{double: true}
)

func formatFor(coprocSlot uint8) format {
	return format{double: coprocSlot == DoubleSlot}
}

func (f format) reg(vx, x uint8) int {
	if f.double {
		return dreg(vx, x)
	}
	return sreg(vx, x)
}

func (f format) defaultNaN() uint64 {
	if f.double {
		return 0x7FF8_0000_0000_0000
	}
	return 0x7FC0_0000
}

func (f format) signBit() uint64 {
	if f.double {
		return 1 << 63
	}
	return 1 << 31
}

func (f format) minNormal() float64 {
	if f.double {
		return 0x1p-1022
	}
	return 0x1p-126
}

// pack encodes x, which must be representable in f.
func (f format) pack(x float64) uint64 {
	if f.double {
		return math.Float64bits(x)
	}
	return uint64(math.Float32bits(float32(x)))
}

func (f format) round(z *big.Float) (float64, big.Accuracy) {
	if f.double {
		return z.Float64()
	}
	r, acc := z.Float32()
	return float64(r), acc
}

// operand is an unpacked register value.
type operand struct {
	value float64
	nan   bool
	snan  bool
}

func (f format) unpack(bits uint64) operand {
	if f.double {
		exp := bits >> 52 & 0x7FF
		frac := bits & (1<<52 - 1)
		if exp == 0x7FF && frac != 0 {
			return operand{nan: true, snan: frac&(1<<51) == 0}
		}
		return operand{value: math.Float64frombits(bits)}
	}

	b := uint32(bits)
	exp := b >> 23 & 0xFF
	frac := b & (1<<23 - 1)
	if exp == 0xFF && frac != 0 {
		return operand{nan: true, snan: frac&(1<<22) == 0}
	}
	return operand{value: float64(math.Float32frombits(b))}
}

func (v *VFP) read(f format, n int) uint64 {
	if f.double {
		return v.D(n)
	}
	return uint64(v.S(n))
}

func (v *VFP) write(f format, n int, bits uint64) {
	if f.double {
		v.SetD(n, bits)
		return
	}
	v.SetS(n, uint32(bits))
}

// processNaNs returns the default NaN if any operand is a NaN, raising
// IOC for signalling NaNs.
func (v *VFP) processNaNs(f format, ops ...operand) (uint64, bool) {
	isNaN := false
	for _, op := range ops {
		if op.snan {
			v.raise(FlagIOC)
		}
		isNaN = isNaN || op.nan
	}
	if isNaN {
		return f.defaultNaN(), true
	}
	return 0, false
}

func (v *VFP) invalid(f format) uint64 {
	v.raise(FlagIOC)
	return f.defaultNaN()
}

func bigOf(x float64) *big.Float {
	return new(big.Float).SetFloat64(x)
}

// roundResult rounds z to f, raising OFC, UFC and IXC. z must carry the
// accuracy of the operation that produced it.
func (v *VFP) roundResult(f format, z *big.Float) uint64 {
	r, acc := f.round(z)
	if math.IsInf(r, 0) {
		v.raise(FlagOFC | FlagIXC)
		return f.pack(r)
	}

	if acc != big.Exact || z.Acc() != big.Exact {
		v.raise(FlagIXC)
		if new(big.Float).Abs(z).Cmp(bigOf(f.minNormal())) < 0 {
			v.raise(FlagUFC)
		}
	}
	return f.pack(r)
}

func (v *VFP) add(f format, a, b uint64) uint64 {
	x, y := f.unpack(a), f.unpack(b)
	if nan, ok := v.processNaNs(f, x, y); ok {
		return nan
	}

	xInf, yInf := math.IsInf(x.value, 0), math.IsInf(y.value, 0)
	switch {
	case xInf && yInf && math.Signbit(x.value) != math.Signbit(y.value):
		return v.invalid(f)
	case xInf:
		return f.pack(x.value)
	case yInf:
		return f.pack(y.value)
	}

	z := new(big.Float).SetPrec(workPrec).Add(bigOf(x.value), bigOf(y.value))
	return v.roundResult(f, z)
}

func (v *VFP) sub(f format, a, b uint64) uint64 {
	return v.add(f, a, neg(f, b))
}

func (v *VFP) mul(f format, a, b uint64) uint64 {
	x, y := f.unpack(a), f.unpack(b)
	if nan, ok := v.processNaNs(f, x, y); ok {
		return nan
	}

	xInf, yInf := math.IsInf(x.value, 0), math.IsInf(y.value, 0)
	if xInf || yInf {
		if x.value == 0 || y.value == 0 {
			return v.invalid(f)
		}
		return f.pack(math.Copysign(math.Inf(1), x.value*y.value))
	}

	z := new(big.Float).SetPrec(workPrec).Mul(bigOf(x.value), bigOf(y.value))
	return v.roundResult(f, z)
}

func (v *VFP) div(f format, a, b uint64) uint64 {
	x, y := f.unpack(a), f.unpack(b)
	if nan, ok := v.processNaNs(f, x, y); ok {
		return nan
	}

	xInf, yInf := math.IsInf(x.value, 0), math.IsInf(y.value, 0)
	sign := math.Signbit(x.value) != math.Signbit(y.value)
	switch {
	case xInf && yInf, x.value == 0 && y.value == 0:
		return v.invalid(f)
	case xInf:
		return f.pack(signed(math.Inf(1), sign))
	case yInf:
		return f.pack(signed(0, sign))
	case y.value == 0:
		v.raise(FlagDZC)
		return f.pack(signed(math.Inf(1), sign))
	}

	z := new(big.Float).SetPrec(workPrec).Quo(bigOf(x.value), bigOf(y.value))
	return v.roundResult(f, z)
}

func (v *VFP) sqrt(f format, a uint64) uint64 {
	x := f.unpack(a)
	if nan, ok := v.processNaNs(f, x); ok {
		return nan
	}

	switch {
	case x.value == 0, math.IsInf(x.value, 1):
		return f.pack(x.value)
	case x.value < 0:
		return v.invalid(f)
	}

	r := math.Sqrt(x.value)
	if !f.double {
		r = float64(float32(r))
	}

	sq := new(big.Float).SetPrec(2 * 53).Mul(bigOf(r), bigOf(r))
	if sq.Cmp(bigOf(x.value)) != 0 {
		v.raise(FlagIXC)
	}
	return f.pack(r)
}

func signed(x float64, negative bool) float64 {
	if negative {
		return -x
	}
	return x
}

func neg(f format, bits uint64) uint64 {
	return bits ^ f.signBit()
}

func abs(f format, bits uint64) uint64 {
	return bits &^ f.signBit()
}

// NZCV patterns written by VCMP.
const (
	cmpEqual     uint32 = 0b0110 << 28
	cmpLess      uint32 = 0b1000 << 28
	cmpGreater   uint32 = 0b0010 << 28
	cmpUnordered uint32 = 0b0011 << 28
)

func (v *VFP) compare(f format, a, b uint64, quietNaNsSignal bool) {
	x, y := f.unpack(a), f.unpack(b)

	var flags uint32
	switch {
	case x.nan || y.nan:
		if x.snan || y.snan || quietNaNsSignal {
			v.raise(FlagIOC)
		}
		flags = cmpUnordered
	case x.value == y.value:
		flags = cmpEqual
	case x.value < y.value:
		flags = cmpLess
	default:
		flags = cmpGreater
	}

	v.fpscr = v.fpscr&^fpscrNZCV | flags
}

// expandImm expands the 8-bit VMOV immediate.
func expandImm(f format, imm8 uint8) uint64 {
	sign := uint64(imm8 >> 7)
	b6 := uint64(imm8 >> 6 & 1)
	top := uint64(imm8 >> 4 & 3)
	frac := uint64(imm8 & 0xF)

	if f.double {
		var rep uint64
		if b6 != 0 {
			rep = 0xFF
		}
		hi := sign<<31 | (b6^1)<<30 | rep<<22 | top<<20 | frac<<16
		return hi << 32
	}

	var rep uint64
	if b6 != 0 {
		rep = 0x1F
	}
	return sign<<31 | (b6^1)<<30 | rep<<25 | top<<23 | frac<<19
}

package benchmarks

import "github.com/sarchlab/armv7sim/insts"

// A32 instruction encoders for benchmark programs. All encoders produce
// the AL condition.

const condAL = 0xE << 28

// EncodeADDImm encodes ADD{S} Rd, Rn, #imm8.
func EncodeADDImm(rd, rn uint8, imm uint8, setFlags bool) uint32 {
	return encodeDPImm(0b0100, rd, rn, imm, setFlags)
}

// EncodeSUBImm encodes SUB{S} Rd, Rn, #imm8.
func EncodeSUBImm(rd, rn uint8, imm uint8, setFlags bool) uint32 {
	return encodeDPImm(0b0010, rd, rn, imm, setFlags)
}

// EncodeMOVImm encodes MOV Rd, #imm8.
func EncodeMOVImm(rd uint8, imm uint8) uint32 {
	return encodeDPImm(0b1101, rd, 0, imm, false)
}

// EncodeCMPImm encodes CMP Rn, #imm8.
func EncodeCMPImm(rn uint8, imm uint8) uint32 {
	return encodeDPImm(0b1010, 0, rn, imm, true)
}

func encodeDPImm(opcode uint32, rd, rn uint8, imm uint8, setFlags bool) uint32 {
	inst := uint32(condAL) | 1<<25 | opcode<<21
	if setFlags {
		inst |= 1 << 20
	}
	return inst | uint32(rn&0xF)<<16 | uint32(rd&0xF)<<12 | uint32(imm)
}

// EncodeADDReg encodes ADD Rd, Rn, Rm.
func EncodeADDReg(rd, rn, rm uint8) uint32 {
	return condAL | 0b0100<<21 | uint32(rn&0xF)<<16 | uint32(rd&0xF)<<12 | uint32(rm&0xF)
}

// EncodeMUL encodes MUL Rd, Rn, Rm.
func EncodeMUL(rd, rn, rm uint8) uint32 {
	return condAL | uint32(rd&0xF)<<16 | uint32(rm&0xF)<<8 | 0b1001<<4 | uint32(rn&0xF)
}

// EncodeUDIV encodes UDIV Rd, Rn, Rm.
func EncodeUDIV(rd, rn, rm uint8) uint32 {
	return condAL | 0x073<<20 | uint32(rd&0xF)<<16 | 0xF<<12 | uint32(rm&0xF)<<8 | 0b0001<<4 | uint32(rn&0xF)
}

// EncodeLDR encodes LDR Rt, [Rn, #imm12].
func EncodeLDR(rt, rn uint8, imm uint16) uint32 {
	return condAL | 0x59<<20 | uint32(rn&0xF)<<16 | uint32(rt&0xF)<<12 | uint32(imm&0xFFF)
}

// EncodeSTR encodes STR Rt, [Rn, #imm12].
func EncodeSTR(rt, rn uint8, imm uint16) uint32 {
	return condAL | 0x58<<20 | uint32(rn&0xF)<<16 | uint32(rt&0xF)<<12 | uint32(imm&0xFFF)
}

// EncodeB encodes a branch from the instruction at from to target, with
// the given condition.
func EncodeB(cond insts.Cond, from, target uint32) uint32 {
	offset := (int32(target) - int32(from) - 8) >> 2
	return uint32(cond&0xF)<<28 | 0b1010<<24 | uint32(offset)&0xFFFFFF
}

// EncodeBL encodes a branch with link from the instruction at from.
func EncodeBL(from, target uint32) uint32 {
	return EncodeB(insts.CondAL, from, target) | 1<<24
}

// EncodeBXLR encodes BX lr.
func EncodeBXLR() uint32 {
	return 0xE12FFF1E
}

// EncodeWFI encodes WFI, which ends a benchmark.
func EncodeWFI() uint32 {
	return 0xE320F003
}

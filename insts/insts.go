// Package insts provides ARMv7 A32 instruction definitions and decoding.
//
// This package implements decoding of 32-bit ARM machine code into
// structured instruction representations. It covers:
//   - Data processing (immediate, immediate shift, register shift)
//   - Miscellaneous, status register access, hints and saturating arithmetic
//   - Multiply, synchronization primitives and extra load/store
//   - Word and byte load/store, block transfer and branches
//   - Media instructions (bitfields, extension, reversal, saturation, divide)
//   - Coprocessor space, supervisor call and the unconditional space
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0xE0010002) // AND r0, r1, r2
//	fmt.Printf("Op: %v, Rd: %d, Rn: %d, Rm: %d\n", inst.Op, inst.Rd, inst.Rn, inst.Rm)
package insts

// Op represents an A32 operation.
type Op uint16

// Data-processing opcodes are ordered by their 4-bit opcode field so that
// OpAND + opcode yields the operation.
const (
	OpUndefined Op = iota

	OpAND
	OpEOR
	OpSUB
	OpRSB
	OpADD
	OpADC
	OpSBC
	OpRSC
	OpTST
	OpTEQ
	OpCMP
	OpCMN
	OpORR
	OpMOV
	OpBIC
	OpMVN

	// Miscellaneous
	OpMOVW
	OpMOVT
	OpMRS
	OpMSR
	OpBX
	OpBXJ
	OpBLXReg
	OpCLZ
	OpQADD
	OpQSUB
	OpQDADD
	OpQDSUB
	OpBKPT
	OpSVC
	OpNOP
	OpYIELD
	OpWFE
	OpWFI
	OpSEV
	OpDBG
	OpHVC
	OpSMC
	OpERET
	OpBankedMRS
	OpBankedMSR

	// Multiply
	OpMUL
	OpMLA
	OpMLS
	OpUMULL
	OpUMLAL
	OpSMULL
	OpSMLAL
	OpUMAAL
	OpHalfwordMultiply

	// Synchronization
	OpSWP
	OpSWPB
	OpLDREX
	OpSTREX
	OpLDREXB
	OpSTREXB
	OpLDREXH
	OpSTREXH
	OpLDREXD
	OpSTREXD

	// Load/store
	OpLDR
	OpSTR
	OpLDRB
	OpSTRB
	OpLDRH
	OpSTRH
	OpLDRSB
	OpLDRSH
	OpLDRD
	OpSTRD
	OpLDM
	OpSTM

	// Media
	OpSDIV
	OpUDIV
	OpSMMUL
	OpSMMLA
	OpSMMLS
	OpSBFX
	OpUBFX
	OpBFC
	OpBFI
	OpSXTB
	OpSXTH
	OpUXTB
	OpUXTH
	OpSXTAB
	OpSXTAH
	OpUXTAB
	OpUXTAH
	OpREV
	OpREV16
	OpREVSH
	OpRBIT
	OpSSAT
	OpUSAT
	OpPKH
	OpUDF
	OpParallelAddSub
	OpSEL
	OpSSAT16
	OpUSAT16
	OpExtend16
	OpUSAD8
	OpDualMultiply

	// Branch
	OpB
	OpBL
	OpBLXImm

	// Coprocessor space
	OpCoprocessor

	// Unconditional space
	OpCPS
	OpSETEND
	OpPLD
	OpCLREX
	OpDSB
	OpDMB
	OpISB
	OpSRS
	OpRFE
)

var opNames = map[Op]string{
	OpUndefined: "UNDEFINED",
	OpAND:       "AND", OpEOR: "EOR", OpSUB: "SUB", OpRSB: "RSB",
	OpADD: "ADD", OpADC: "ADC", OpSBC: "SBC", OpRSC: "RSC",
	OpTST: "TST", OpTEQ: "TEQ", OpCMP: "CMP", OpCMN: "CMN",
	OpORR: "ORR", OpMOV: "MOV", OpBIC: "BIC", OpMVN: "MVN",
	OpMOVW: "MOVW", OpMOVT: "MOVT", OpMRS: "MRS", OpMSR: "MSR",
	OpBX: "BX", OpBXJ: "BXJ", OpBLXReg: "BLX", OpCLZ: "CLZ",
	OpQADD: "QADD", OpQSUB: "QSUB", OpQDADD: "QDADD", OpQDSUB: "QDSUB",
	OpBKPT: "BKPT", OpSVC: "SVC", OpNOP: "NOP", OpYIELD: "YIELD",
	OpWFE: "WFE", OpWFI: "WFI", OpSEV: "SEV", OpDBG: "DBG",
	OpHVC: "HVC", OpSMC: "SMC", OpERET: "ERET",
	OpBankedMRS: "MRS(banked)", OpBankedMSR: "MSR(banked)",
	OpMUL: "MUL", OpMLA: "MLA", OpMLS: "MLS", OpUMULL: "UMULL",
	OpUMLAL: "UMLAL", OpSMULL: "SMULL", OpSMLAL: "SMLAL", OpUMAAL: "UMAAL",
	OpHalfwordMultiply: "SMUL<x><y>",
	OpSWP:              "SWP", OpSWPB: "SWPB",
	OpLDREX: "LDREX", OpSTREX: "STREX", OpLDREXB: "LDREXB", OpSTREXB: "STREXB",
	OpLDREXH: "LDREXH", OpSTREXH: "STREXH", OpLDREXD: "LDREXD", OpSTREXD: "STREXD",
	OpLDR: "LDR", OpSTR: "STR", OpLDRB: "LDRB", OpSTRB: "STRB",
	OpLDRH: "LDRH", OpSTRH: "STRH", OpLDRSB: "LDRSB", OpLDRSH: "LDRSH",
	OpLDRD: "LDRD", OpSTRD: "STRD", OpLDM: "LDM", OpSTM: "STM",
	OpSDIV: "SDIV", OpUDIV: "UDIV", OpSMMUL: "SMMUL", OpSMMLA: "SMMLA",
	OpSMMLS: "SMMLS", OpSBFX: "SBFX", OpUBFX: "UBFX", OpBFC: "BFC", OpBFI: "BFI",
	OpSXTB: "SXTB", OpSXTH: "SXTH", OpUXTB: "UXTB", OpUXTH: "UXTH",
	OpSXTAB: "SXTAB", OpSXTAH: "SXTAH", OpUXTAB: "UXTAB", OpUXTAH: "UXTAH",
	OpREV: "REV", OpREV16: "REV16", OpREVSH: "REVSH", OpRBIT: "RBIT",
	OpSSAT: "SSAT", OpUSAT: "USAT", OpPKH: "PKH", OpUDF: "UDF",
	OpParallelAddSub: "parallel add/sub", OpSEL: "SEL",
	OpSSAT16: "SSAT16", OpUSAT16: "USAT16", OpExtend16: "XTB16",
	OpUSAD8: "USAD8", OpDualMultiply: "dual multiply",
	OpB: "B", OpBL: "BL", OpBLXImm: "BLX",
	OpCoprocessor: "coprocessor",
	OpCPS:         "CPS", OpSETEND: "SETEND", OpPLD: "PLD", OpCLREX: "CLREX",
	OpDSB: "DSB", OpDMB: "DMB", OpISB: "ISB", OpSRS: "SRS", OpRFE: "RFE",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return "UNKNOWN"
}

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatUnknown     Format = iota
	FormatDPImm              // Data processing, rotated immediate
	FormatDPImmShift         // Data processing, register shifted by immediate
	FormatDPRegShift         // Data processing, register shifted by register
	FormatMisc               // Miscellaneous and status register access
	FormatMultiply           // Multiply and multiply-accumulate
	FormatSync               // Swap and exclusive access
	FormatExtraLoadStore     // Halfword, signed byte and doubleword transfers
	FormatLoadStore          // Word and byte transfers
	FormatMedia              // Media instructions
	FormatBlock              // Load/store multiple
	FormatBranch             // Branch with 24-bit offset
	FormatCoprocessor        // Coprocessor space and SVC
	FormatUnconditional      // cond == 0b1111
)

// Cond represents an A32 condition code.
type Cond uint8

// A32 condition codes.
const (
	CondEQ Cond = 0b0000 // Equal (Z == 1)
	CondNE Cond = 0b0001 // Not Equal (Z == 0)
	CondCS Cond = 0b0010 // Carry Set / Unsigned higher or same (C == 1)
	CondCC Cond = 0b0011 // Carry Clear / Unsigned lower (C == 0)
	CondMI Cond = 0b0100 // Minus / Negative (N == 1)
	CondPL Cond = 0b0101 // Plus / Positive or zero (N == 0)
	CondVS Cond = 0b0110 // Overflow (V == 1)
	CondVC Cond = 0b0111 // No overflow (V == 0)
	CondHI Cond = 0b1000 // Unsigned higher (C == 1 && Z == 0)
	CondLS Cond = 0b1001 // Unsigned lower or same (C == 0 || Z == 1)
	CondGE Cond = 0b1010 // Signed greater than or equal (N == V)
	CondLT Cond = 0b1011 // Signed less than (N != V)
	CondGT Cond = 0b1100 // Signed greater than (Z == 0 && N == V)
	CondLE Cond = 0b1101 // Signed less than or equal (Z == 1 || N != V)
	CondAL Cond = 0b1110 // Always
	CondNV Cond = 0b1111 // Unconditional instruction space
)

var condNames = [16]string{
	"EQ", "NE", "CS", "CC", "MI", "PL", "VS", "VC",
	"HI", "LS", "GE", "LT", "GT", "LE", "AL", "NV",
}

func (c Cond) String() string {
	return condNames[c&0xF]
}

// Passed evaluates the condition against the APSR flags.
func (c Cond) Passed(n, z, carry, v bool) bool {
	var result bool
	switch c >> 1 {
	case 0:
		result = z
	case 1:
		result = carry
	case 2:
		result = n
	case 3:
		result = v
	case 4:
		result = carry && !z
	case 5:
		result = n == v
	case 6:
		result = n == v && !z
	default:
		return true
	}
	if c&1 == 1 {
		return !result
	}
	return result
}

// ShiftType is a barrel shifter operation.
type ShiftType uint8

// Shift types. RRX is encoded as ROR #0 in immediate shifts.
const (
	ShiftLSL ShiftType = iota
	ShiftLSR
	ShiftASR
	ShiftROR
	ShiftRRX
)

func (s ShiftType) String() string {
	switch s {
	case ShiftLSL:
		return "LSL"
	case ShiftLSR:
		return "LSR"
	case ShiftASR:
		return "ASR"
	case ShiftROR:
		return "ROR"
	case ShiftRRX:
		return "RRX"
	default:
		return "?"
	}
}

// DecodeImmShift converts a 2-bit shift type and 5-bit immediate into the
// shift operation and amount it denotes.
func DecodeImmShift(typ uint32, imm5 uint32) (ShiftType, uint32) {
	switch typ & 3 {
	case 0:
		return ShiftLSL, imm5
	case 1:
		if imm5 == 0 {
			return ShiftLSR, 32
		}
		return ShiftLSR, imm5
	case 2:
		if imm5 == 0 {
			return ShiftASR, 32
		}
		return ShiftASR, imm5
	default:
		if imm5 == 0 {
			return ShiftRRX, 1
		}
		return ShiftROR, imm5
	}
}

// Class groups operations by their timing behavior.
type Class uint8

// Instruction classes.
const (
	ClassALU Class = iota
	ClassBranch
	ClassLoad
	ClassStore
	ClassMultiply
	ClassDivide
	ClassCoprocessor
)

// Instruction represents a decoded A32 instruction.
//
// Register fields follow the architectural field positions: Rn is bits
// 19:16, Rd bits 15:12, Rs bits 11:8 and Rm bits 3:0. Instructions whose
// manual names differ are documented at their decode site; multiplies use
// Rd for bits 19:16 and Ra for bits 15:12.
type Instruction struct {
	Word   uint32
	Op     Op
	Format Format
	Cond   Cond

	Rd uint8
	Rn uint8
	Rm uint8
	Rs uint8
	Ra uint8

	// SetFlags is the S bit of data-processing and multiply instructions.
	SetFlags bool

	// Imm holds the instruction's immediate: the unexpanded imm12 of a
	// data-processing immediate, a load/store offset, MOVW/MOVT imm16,
	// SVC/BKPT comment field, or the MSR immediate.
	Imm uint32

	// Shift and ShiftAmount describe an immediate-shifted register operand.
	Shift       ShiftType
	ShiftAmount uint32

	// RegisterOffset is set for load/store forms with a register offset.
	RegisterOffset bool

	// Addressing mode bits.
	Pre       bool // P
	Add       bool // U
	Writeback bool // W
	// Unprivileged marks the LDRT/STRT family.
	Unprivileged bool
	// UserBank is the S bit of LDM/STM.
	UserBank bool

	RegList uint16

	// Offset is the sign-extended byte offset of a branch.
	Offset int32

	// Bitfield and extend operands.
	Lsb      uint32
	Width    uint32
	Rotation uint32

	// SPSR selects the saved status register for MRS/MSR.
	SPSR bool
	// Mask is the MSR field mask (bits 19:16).
	Mask uint32

	// Unconditional-space operands.
	IMod uint32
	Mode uint32

	// Coproc is the coprocessor number of coprocessor space instructions.
	Coproc uint8
}

// Bits extracts bits hi..lo of the instruction word.
func (i *Instruction) Bits(hi, lo uint) uint32 {
	return (i.Word >> lo) & ((1 << (hi - lo + 1)) - 1)
}

// Bit reports whether bit n of the instruction word is set.
func (i *Instruction) Bit(n uint) bool {
	return (i.Word>>n)&1 == 1
}

// Class returns the timing class of the instruction.
func (i *Instruction) Class() Class {
	switch i.Op {
	case OpB, OpBL, OpBLXImm, OpBX, OpBXJ, OpBLXReg:
		return ClassBranch
	case OpLDR, OpLDRB, OpLDRH, OpLDRSB, OpLDRSH, OpLDRD, OpLDM,
		OpLDREX, OpLDREXB, OpLDREXH, OpLDREXD, OpSWP, OpSWPB, OpRFE:
		return ClassLoad
	case OpSTR, OpSTRB, OpSTRH, OpSTRD, OpSTM,
		OpSTREX, OpSTREXB, OpSTREXH, OpSTREXD, OpSRS:
		return ClassStore
	case OpMUL, OpMLA, OpMLS, OpUMULL, OpUMLAL, OpSMMUL, OpSMMLA, OpSMMLS:
		return ClassMultiply
	case OpSDIV, OpUDIV:
		return ClassDivide
	case OpCoprocessor:
		return ClassCoprocessor
	default:
		return ClassALU
	}
}

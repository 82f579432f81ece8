package insts

// Decoder decodes A32 instructions.
type Decoder struct{}

// NewDecoder creates a new A32 instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit A32 instruction word.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{}
	d.DecodeInto(word, inst)
	return inst
}

// DecodeInto decodes word into inst, overwriting every field.
func (d *Decoder) DecodeInto(word uint32, inst *Instruction) {
	*inst = Instruction{
		Word: word,
		Op:   OpUndefined,
		Cond: Cond(word >> 28),
		Rn:   uint8((word >> 16) & 0xF),
		Rd:   uint8((word >> 12) & 0xF),
		Rs:   uint8((word >> 8) & 0xF),
		Rm:   uint8(word & 0xF),
	}

	if inst.Cond == CondNV {
		d.decodeUnconditional(word, inst)
		return
	}

	switch (word >> 25) & 0x7 { // bits [27:25]
	case 0b000, 0b001:
		d.decodeDataProcessingAndMisc(word, inst)
	case 0b010:
		d.decodeLoadStore(word, inst)
	case 0b011:
		if word&(1<<4) != 0 {
			d.decodeMedia(word, inst)
		} else {
			d.decodeLoadStore(word, inst)
		}
	case 0b100:
		d.decodeBlock(word, inst)
	case 0b101:
		d.decodeBranch(word, inst)
	default:
		d.decodeCoprocessor(word, inst)
	}
}

func bits(word uint32, hi, lo uint) uint32 {
	return (word >> lo) & ((1 << (hi - lo + 1)) - 1)
}

func bit(word uint32, n uint) bool {
	return (word>>n)&1 == 1
}

func (d *Decoder) decodeDataProcessingAndMisc(word uint32, inst *Instruction) {
	immediate := bit(word, 25)
	op1 := bits(word, 24, 20)
	op2 := bits(word, 7, 4)

	if immediate {
		switch {
		case op1 == 0b10000:
			inst.Format = FormatMisc
			inst.Op = OpMOVW
			inst.Imm = bits(word, 19, 16)<<12 | bits(word, 11, 0)
		case op1 == 0b10100:
			inst.Format = FormatMisc
			inst.Op = OpMOVT
			inst.Imm = bits(word, 19, 16)<<12 | bits(word, 11, 0)
		case op1&0b11011 == 0b10010:
			d.decodeMSRImmAndHints(word, inst)
		default:
			d.decodeDataProcessing(word, inst, FormatDPImm)
		}
		return
	}

	switch {
	case op1&0b11001 == 0b10000 && op2&0b1000 == 0:
		d.decodeMisc(word, inst)
	case op1&0b11001 == 0b10000 && op2&0b1001 == 0b1000:
		inst.Format = FormatMultiply
		inst.Op = OpHalfwordMultiply
	case op2 == 0b1001 && op1&0b10000 == 0:
		d.decodeMultiply(word, inst)
	case op2 == 0b1001:
		d.decodeSync(word, inst)
	case op2 == 0b1011 || op2&0b1101 == 0b1101:
		d.decodeExtraLoadStore(word, inst)
	case op2&1 == 0:
		d.decodeDataProcessing(word, inst, FormatDPImmShift)
	default:
		d.decodeDataProcessing(word, inst, FormatDPRegShift)
	}
}

func (d *Decoder) decodeDataProcessing(word uint32, inst *Instruction, format Format) {
	inst.Format = format
	inst.Op = OpAND + Op(bits(word, 24, 21))
	inst.SetFlags = bit(word, 20)

	switch format {
	case FormatDPImm:
		inst.Imm = bits(word, 11, 0)
	case FormatDPImmShift:
		inst.Shift, inst.ShiftAmount = DecodeImmShift(bits(word, 6, 5), bits(word, 11, 7))
	case FormatDPRegShift:
		inst.Shift = ShiftType(bits(word, 6, 5))
	}
}

func (d *Decoder) decodeMSRImmAndHints(word uint32, inst *Instruction) {
	inst.Format = FormatMisc
	spsr := bit(word, 22)
	mask := bits(word, 19, 16)

	if !spsr && mask == 0 {
		hint := bits(word, 7, 0)
		switch {
		case hint == 0:
			inst.Op = OpNOP
		case hint == 1:
			inst.Op = OpYIELD
		case hint == 2:
			inst.Op = OpWFE
		case hint == 3:
			inst.Op = OpWFI
		case hint == 4:
			inst.Op = OpSEV
		case hint&0xF0 == 0xF0:
			inst.Op = OpDBG
		default:
			// Unallocated hints execute as NOP.
			inst.Op = OpNOP
		}
		return
	}

	inst.Op = OpMSR
	inst.SPSR = spsr
	inst.Mask = mask
	inst.Imm = bits(word, 11, 0)
}

func (d *Decoder) decodeMisc(word uint32, inst *Instruction) {
	inst.Format = FormatMisc
	op := bits(word, 22, 21)
	op2 := bits(word, 6, 4)

	switch op2 {
	case 0b000:
		banked := bit(word, 9)
		switch {
		case op&1 == 0 && banked:
			inst.Op = OpBankedMRS
		case op&1 == 0:
			inst.Op = OpMRS
			inst.SPSR = bit(word, 22)
		case banked:
			inst.Op = OpBankedMSR
		default:
			inst.Op = OpMSR
			inst.SPSR = bit(word, 22)
			inst.Mask = bits(word, 19, 16)
			inst.RegisterOffset = true
		}
	case 0b001:
		switch op {
		case 0b01:
			inst.Op = OpBX
		case 0b11:
			inst.Op = OpCLZ
		}
	case 0b010:
		if op == 0b01 {
			inst.Op = OpBXJ
		}
	case 0b011:
		if op == 0b01 {
			inst.Op = OpBLXReg
		}
	case 0b101:
		inst.Op = [4]Op{OpQADD, OpQSUB, OpQDADD, OpQDSUB}[op]
	case 0b110:
		if op == 0b11 {
			inst.Op = OpERET
		}
	case 0b111:
		switch op {
		case 0b01:
			inst.Op = OpBKPT
			inst.Imm = bits(word, 19, 8)<<4 | bits(word, 3, 0)
		case 0b10:
			inst.Op = OpHVC
		case 0b11:
			inst.Op = OpSMC
		}
	}
}

// decodeMultiply: Rd is bits 19:16 (RdHi for long multiplies), Ra is bits
// 15:12 (RdLo for long multiplies), Rm is bits 11:8 and Rn is bits 3:0.
func (d *Decoder) decodeMultiply(word uint32, inst *Instruction) {
	inst.Format = FormatMultiply
	inst.SetFlags = bit(word, 20)
	inst.Rd = uint8(bits(word, 19, 16))
	inst.Ra = uint8(bits(word, 15, 12))
	inst.Rm = uint8(bits(word, 11, 8))
	inst.Rn = uint8(bits(word, 3, 0))

	switch bits(word, 23, 21) {
	case 0b000:
		inst.Op = OpMUL
	case 0b001:
		inst.Op = OpMLA
	case 0b010:
		if !inst.SetFlags {
			inst.Op = OpUMAAL
		}
	case 0b011:
		if !inst.SetFlags {
			inst.Op = OpMLS
		}
	case 0b100:
		inst.Op = OpUMULL
	case 0b101:
		inst.Op = OpUMLAL
	case 0b110:
		inst.Op = OpSMULL
	case 0b111:
		inst.Op = OpSMLAL
	}
}

// decodeSync: for STREX, Rd is the status register and Rm the source.
// SWP loads into Rd and stores Rm.
func (d *Decoder) decodeSync(word uint32, inst *Instruction) {
	inst.Format = FormatSync
	op := bits(word, 23, 20)

	if op&0b1011 == 0 {
		if bit(word, 22) {
			inst.Op = OpSWPB
		} else {
			inst.Op = OpSWP
		}
		return
	}

	switch op {
	case 0b1000:
		inst.Op = OpSTREX
	case 0b1001:
		inst.Op = OpLDREX
	case 0b1010:
		inst.Op = OpSTREXD
	case 0b1011:
		inst.Op = OpLDREXD
	case 0b1100:
		inst.Op = OpSTREXB
	case 0b1101:
		inst.Op = OpLDREXB
	case 0b1110:
		inst.Op = OpSTREXH
	case 0b1111:
		inst.Op = OpLDREXH
	}
}

func (d *Decoder) decodeExtraLoadStore(word uint32, inst *Instruction) {
	inst.Format = FormatExtraLoadStore
	d.decodeAddressing(word, inst)
	load := bit(word, 20)

	if bit(word, 22) {
		inst.Imm = bits(word, 11, 8)<<4 | bits(word, 3, 0)
	} else {
		inst.RegisterOffset = true
	}

	switch bits(word, 6, 5) {
	case 0b01:
		if load {
			inst.Op = OpLDRH
		} else {
			inst.Op = OpSTRH
		}
	case 0b10:
		if load {
			inst.Op = OpLDRSB
		} else if !inst.Unprivileged {
			inst.Op = OpLDRD
		}
	case 0b11:
		if load {
			inst.Op = OpLDRSH
		} else if !inst.Unprivileged {
			inst.Op = OpSTRD
		}
	}
}

func (d *Decoder) decodeAddressing(word uint32, inst *Instruction) {
	inst.Pre = bit(word, 24)
	inst.Add = bit(word, 23)
	inst.Writeback = bit(word, 21)
	inst.Unprivileged = !inst.Pre && inst.Writeback
}

func (d *Decoder) decodeLoadStore(word uint32, inst *Instruction) {
	inst.Format = FormatLoadStore
	d.decodeAddressing(word, inst)

	if bit(word, 25) {
		inst.RegisterOffset = true
		inst.Shift, inst.ShiftAmount = DecodeImmShift(bits(word, 6, 5), bits(word, 11, 7))
	} else {
		inst.Imm = bits(word, 11, 0)
	}

	byteAccess := bit(word, 22)
	load := bit(word, 20)
	switch {
	case load && byteAccess:
		inst.Op = OpLDRB
	case load:
		inst.Op = OpLDR
	case byteAccess:
		inst.Op = OpSTRB
	default:
		inst.Op = OpSTR
	}
}

func (d *Decoder) decodeMedia(word uint32, inst *Instruction) {
	inst.Format = FormatMedia
	op1 := bits(word, 24, 20)
	op2 := bits(word, 7, 5)

	switch {
	case op1&0b11000 == 0b00000:
		inst.Op = OpParallelAddSub
	case op1&0b11000 == 0b01000:
		d.decodePackSaturateReverse(word, inst)
	case op1&0b11000 == 0b10000:
		d.decodeSignedMultiply(word, inst)
	case op1 == 0b11000 && op2 == 0b000:
		inst.Op = OpUSAD8
	case op1&0b11110 == 0b11010 && op2&0b011 == 0b010:
		inst.Op = OpSBFX
		inst.Lsb = bits(word, 11, 7)
		inst.Width = bits(word, 20, 16) + 1
	case op1&0b11110 == 0b11110 && op2&0b011 == 0b010:
		inst.Op = OpUBFX
		inst.Lsb = bits(word, 11, 7)
		inst.Width = bits(word, 20, 16) + 1
	case op1&0b11110 == 0b11100 && op2&0b011 == 0b000:
		if inst.Rm == 0xF {
			inst.Op = OpBFC
		} else {
			inst.Op = OpBFI
		}
		// Width holds msb; the emulator validates msb >= lsb.
		inst.Lsb = bits(word, 11, 7)
		inst.Width = bits(word, 20, 16)
	case op1 == 0b11111 && op2 == 0b111:
		inst.Op = OpUDF
		inst.Imm = bits(word, 19, 8)<<4 | bits(word, 3, 0)
	}
}

func (d *Decoder) decodePackSaturateReverse(word uint32, inst *Instruction) {
	op1 := bits(word, 22, 20)
	op2 := bits(word, 7, 5)
	inst.Rotation = bits(word, 11, 10) * 8

	switch {
	case op1 == 0b000 && op2&1 == 0:
		inst.Op = OpPKH
		inst.Shift, inst.ShiftAmount = DecodeImmShift(bits(word, 6, 5), bits(word, 11, 7))
	case op1 == 0b000 && op2 == 0b011, op1 == 0b100 && op2 == 0b011:
		inst.Op = OpExtend16
	case op1 == 0b000 && op2 == 0b101:
		inst.Op = OpSEL
	case op1&0b110 == 0b010 && op2&1 == 0:
		inst.Op = OpSSAT
		inst.Width = bits(word, 20, 16) + 1
		inst.Shift, inst.ShiftAmount = DecodeImmShift(bits(word, 6, 5)&0b10, bits(word, 11, 7))
	case op1&0b110 == 0b110 && op2&1 == 0:
		inst.Op = OpUSAT
		inst.Width = bits(word, 20, 16)
		inst.Shift, inst.ShiftAmount = DecodeImmShift(bits(word, 6, 5)&0b10, bits(word, 11, 7))
	case op1 == 0b010 && op2 == 0b001:
		inst.Op = OpSSAT16
	case op1 == 0b110 && op2 == 0b001:
		inst.Op = OpUSAT16
	case op1 == 0b010 && op2 == 0b011:
		inst.Op = pick(inst.Rn == 0xF, OpSXTB, OpSXTAB)
	case op1 == 0b011 && op2 == 0b011:
		inst.Op = pick(inst.Rn == 0xF, OpSXTH, OpSXTAH)
	case op1 == 0b110 && op2 == 0b011:
		inst.Op = pick(inst.Rn == 0xF, OpUXTB, OpUXTAB)
	case op1 == 0b111 && op2 == 0b011:
		inst.Op = pick(inst.Rn == 0xF, OpUXTH, OpUXTAH)
	case op1 == 0b011 && op2 == 0b001:
		inst.Op = OpREV
	case op1 == 0b011 && op2 == 0b101:
		inst.Op = OpREV16
	case op1 == 0b111 && op2 == 0b001:
		inst.Op = OpRBIT
	case op1 == 0b111 && op2 == 0b101:
		inst.Op = OpREVSH
	}
}

func pick(cond bool, a, b Op) Op {
	if cond {
		return a
	}
	return b
}

// decodeSignedMultiply uses the multiply register layout: Rd is bits
// 19:16, Ra bits 15:12, Rm bits 11:8 and Rn bits 3:0.
func (d *Decoder) decodeSignedMultiply(word uint32, inst *Instruction) {
	inst.Rd = uint8(bits(word, 19, 16))
	inst.Ra = uint8(bits(word, 15, 12))
	inst.Rm = uint8(bits(word, 11, 8))
	inst.Rn = uint8(bits(word, 3, 0))
	op1 := bits(word, 22, 20)
	op2 := bits(word, 7, 5)

	switch {
	case op1 == 0b000 && op2&0b100 == 0, op1 == 0b100 && op2&0b100 == 0:
		inst.Op = OpDualMultiply
	case op1 == 0b001 && op2 == 0b000:
		inst.Op = OpSDIV
	case op1 == 0b011 && op2 == 0b000:
		inst.Op = OpUDIV
	case op1 == 0b101 && op2&0b110 == 0b000:
		inst.Op = pick(inst.Ra == 0xF, OpSMMUL, OpSMMLA)
	case op1 == 0b101 && op2&0b110 == 0b110:
		inst.Op = OpSMMLS
	}
}

func (d *Decoder) decodeBlock(word uint32, inst *Instruction) {
	inst.Format = FormatBlock
	inst.Pre = bit(word, 24)
	inst.Add = bit(word, 23)
	inst.UserBank = bit(word, 22)
	inst.Writeback = bit(word, 21)
	inst.RegList = uint16(word & 0xFFFF)
	if bit(word, 20) {
		inst.Op = OpLDM
	} else {
		inst.Op = OpSTM
	}
}

func branchOffset(word uint32) int32 {
	return int32(word<<8) >> 6
}

func (d *Decoder) decodeBranch(word uint32, inst *Instruction) {
	inst.Format = FormatBranch
	inst.Offset = branchOffset(word)
	if bit(word, 24) {
		inst.Op = OpBL
	} else {
		inst.Op = OpB
	}
}

func (d *Decoder) decodeCoprocessor(word uint32, inst *Instruction) {
	inst.Format = FormatCoprocessor
	inst.Coproc = uint8(bits(word, 11, 8))
	op1 := bits(word, 25, 20)

	switch {
	case op1&0b111110 == 0:
		inst.Op = OpUndefined
	case op1&0b110000 == 0b110000:
		inst.Op = OpSVC
		inst.Imm = bits(word, 23, 0)
	default:
		inst.Op = OpCoprocessor
	}
}

func (d *Decoder) decodeUnconditional(word uint32, inst *Instruction) {
	inst.Format = FormatUnconditional
	op1 := bits(word, 27, 20)

	switch {
	case op1&0x80 == 0:
		d.decodeUnconditionalMisc(word, inst)
	case op1&0xE5 == 0x84:
		inst.Op = OpSRS
		inst.Pre = bit(word, 24)
		inst.Add = bit(word, 23)
		inst.Writeback = bit(word, 21)
		inst.Mode = bits(word, 4, 0)
	case op1&0xE5 == 0x81:
		inst.Op = OpRFE
		inst.Pre = bit(word, 24)
		inst.Add = bit(word, 23)
		inst.Writeback = bit(word, 21)
	case op1&0xE0 == 0xA0:
		inst.Op = OpBLXImm
		inst.Offset = branchOffset(word) | int32(bits(word, 24, 24)<<1)
	case op1&0xE0 == 0xC0 && op1&0xFE != 0xC0, op1&0xF0 == 0xE0:
		inst.Op = OpCoprocessor
		inst.Coproc = uint8(bits(word, 11, 8))
	}
}

func (d *Decoder) decodeUnconditionalMisc(word uint32, inst *Instruction) {
	op1 := bits(word, 26, 20)
	op2 := bits(word, 7, 4)

	switch {
	case op1 == 0b0010000 && op2&0b0010 == 0 && inst.Rn&1 == 0:
		inst.Op = OpCPS
		inst.IMod = bits(word, 19, 18)
		inst.Mode = bits(word, 4, 0)
	case op1 == 0b0010000 && op2 == 0 && inst.Rn&1 == 1:
		inst.Op = OpSETEND
	case op1 == 0b1010111:
		switch op2 {
		case 0b0001:
			inst.Op = OpCLREX
		case 0b0100:
			inst.Op = OpDSB
		case 0b0101:
			inst.Op = OpDMB
		case 0b0110:
			inst.Op = OpISB
		}
	case op1&0b1000011 == 0b1000001:
		// PLD, PLDW, PLI and unallocated memory hints. Register forms
		// require bit 4 clear.
		if op1&0b0100000 == 0 || op2&1 == 0 {
			inst.Op = OpPLD
		}
	}
}

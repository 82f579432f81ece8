package coproc

// Standard decodes the architected coprocessor encodings and forwards
// them to typed Operations.
type Standard struct {
	host Host
	ops  Operations
}

// NewStandard creates an adapter that decodes for ops using host.
func NewStandard(host Host, ops Operations) *Standard {
	return &Standard{host: host, ops: ops}
}

// Host returns the CPU view the adapter works through.
func (s *Standard) Host() Host {
	return s.host
}

// ExecuteInstruction decodes and executes a coprocessor instruction.
func (s *Standard) ExecuteInstruction(unconditional bool, word uint32) error {
	return annotate(word, s.execute(unconditional, word))
}

func field(word uint32, hi, lo uint) uint8 {
	return uint8((word >> lo) & ((1 << (hi - lo + 1)) - 1))
}

func (s *Standard) execute(unconditional bool, word uint32) error {
	coproc := field(word, 11, 8)

	switch (word >> 24) & 0xF { // bits [27:24]
	case 0b1110:
		if word&(1<<4) == 0 {
			return s.ops.DataOperation(DataOp{
				Unconditional: unconditional,
				Coproc:        coproc,
				Opc1:          field(word, 23, 20),
				CRn:           field(word, 19, 16),
				CRd:           field(word, 15, 12),
				Opc2:          field(word, 7, 5),
				CRm:           field(word, 3, 0),
			})
		}
		return s.registerTransfer(unconditional, coproc, word)
	case 0b1100, 0b1101:
		pre := word&(1<<24) != 0
		add := word&(1<<23) != 0
		writeback := word&(1<<21) != 0
		if !pre && !add && !writeback {
			if word&(1<<22) != 0 {
				return s.pairTransfer(unconditional, coproc, word)
			}
			return Undefined("reserved coprocessor encoding")
		}
		return s.memoryTransfer(unconditional, coproc, word)
	default:
		return Undefined("not a coprocessor instruction")
	}
}

func (s *Standard) registerTransfer(unconditional bool, coproc uint8, word uint32) error {
	op := RegisterTransfer{
		Unconditional: unconditional,
		Coproc:        coproc,
		Opc1:          field(word, 23, 21),
		CRn:           field(word, 19, 16),
		Opc2:          field(word, 7, 5),
		CRm:           field(word, 3, 0),
	}
	rt := field(word, 15, 12)

	if word&(1<<20) == 0 {
		if rt == 15 {
			return Undefined("MCR from PC")
		}
		return s.ops.MoveToCoprocessor(op, s.host.Register(rt))
	}

	value, err := s.ops.MoveFromCoprocessor(op)
	if err != nil {
		return err
	}
	if rt == 15 {
		s.host.SetFlags(value & 0xF0000000)
		return nil
	}
	s.host.SetRegister(rt, value)
	return nil
}

func (s *Standard) pairTransfer(unconditional bool, coproc uint8, word uint32) error {
	op := PairTransfer{
		Unconditional: unconditional,
		Coproc:        coproc,
		Opc1:          field(word, 7, 4),
		CRm:           field(word, 3, 0),
	}
	rt2 := field(word, 19, 16)
	rt := field(word, 15, 12)
	if rt == 15 || rt2 == 15 {
		return Undefined("register pair transfer with PC")
	}

	if word&(1<<20) == 0 {
		return s.ops.MoveToCoprocessorPair(op, s.host.Register(rt), s.host.Register(rt2))
	}

	if rt == rt2 {
		return Undefined("MRRC to a single register")
	}
	low, high, err := s.ops.MoveFromCoprocessorPair(op)
	if err != nil {
		return err
	}
	s.host.SetRegister(rt, low)
	s.host.SetRegister(rt2, high)
	return nil
}

func (s *Standard) memoryTransfer(unconditional bool, coproc uint8, word uint32) error {
	op := MemoryTransfer{
		Unconditional: unconditional,
		Coproc:        coproc,
		Long:          word&(1<<22) != 0,
		CRd:           field(word, 15, 12),
		Rn:            field(word, 19, 16),
		Imm8:          field(word, 7, 0),
		Pre:           word&(1<<24) != 0,
		Add:           word&(1<<23) != 0,
		Writeback:     word&(1<<21) != 0,
	}
	if op.Writeback && op.Rn == 15 {
		return Undefined("coprocessor transfer writeback to PC")
	}

	base := s.host.Register(op.Rn)
	if op.Rn == 15 {
		base &^= 3
	}
	offset := uint32(op.Imm8) << 2
	offsetAddr := base - offset
	if op.Add {
		offsetAddr = base + offset
	}
	op.Address = base
	if op.Pre {
		op.Address = offsetAddr
	}

	var err error
	if word&(1<<20) != 0 {
		err = s.ops.LoadCoprocessor(op)
	} else {
		err = s.ops.StoreCoprocessor(op)
	}
	if err != nil {
		return err
	}

	if op.Writeback {
		s.host.SetRegister(op.Rn, offsetAddr)
	}
	return nil
}

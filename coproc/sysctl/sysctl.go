// Package sysctl implements the CP15 system control coprocessor: fixed
// identification registers, the boot-configured SCTLR, and the cache,
// TLB and barrier maintenance operations (accepted as no-ops).
package sysctl

import (
	"github.com/sarchlab/armv7sim/coproc"
	"github.com/sarchlab/armv7sim/faults"
)

// Slot is the coprocessor slot CP15 occupies.
const Slot = 15

// Identification register values. They describe an ARM-only core with no
// Thumb, Jazelle, Security or Virtualization support and a VMSAv7 MMU
// with PXN.
const (
	MIDR    uint32 = 0x410FC080
	CTR     uint32 = 0x8444C004
	TCMTR   uint32 = 0x00000000
	TLBTR   uint32 = 0x00000000
	MPIDR   uint32 = 0xC0000000
	REVIDR  uint32 = 0x00000000
	IDPFR0  uint32 = 0x00000001
	IDPFR1  uint32 = 0x00000001
	IDDFR0  uint32 = 0x00000000
	IDAFR0  uint32 = 0x00000000
	IDMMFR0 uint32 = 0x00000005
	IDMMFR1 uint32 = 0x40000000
	IDMMFR2 uint32 = 0x01260000
	IDMMFR3 uint32 = 0x00100211
	IDISAR0 uint32 = 0x02140111
	IDISAR1 uint32 = 0x13101111
	IDISAR2 uint32 = 0x21102041
	IDISAR3 uint32 = 0x01002111
	IDISAR4 uint32 = 0x00011142
	IDISAR5 uint32 = 0x00000000
	CCSIDR  uint32 = 0x700FE01A
	CLIDR   uint32 = 0x09200003
	AIDR    uint32 = 0x00000000
)

// SCTLR bits configured at reset.
const (
	SCTLRV  uint32 = 1 << 13 // high exception vectors
	SCTLREE uint32 = 1 << 25 // big-endian exception entry
	SCTLRTE uint32 = 1 << 30 // Thumb exception entry
)

const (
	sctlrRAZ uint32 = 0x84028380
	sctlrRAO uint32 = 0x00C50078

	csselrMask uint32 = 0x0000000F
	cpacrMask  uint32 = 0x00F00000 // cp10 and cp11 access fields
	cpacrRAO   uint32 = 1 << 31    // ASEDIS: no Advanced SIMD
)

// regKey identifies a register by (CRn, opc1, CRm, opc2).
type regKey struct {
	crn, opc1, crm, opc2 uint8
}

var idRegisters = map[regKey]uint32{
	{0, 0, 0, 0}: MIDR,
	{0, 0, 0, 1}: CTR,
	{0, 0, 0, 2}: TCMTR,
	{0, 0, 0, 3}: TLBTR,
	{0, 0, 0, 5}: MPIDR,
	{0, 0, 0, 6}: REVIDR,
	{0, 0, 1, 0}: IDPFR0,
	{0, 0, 1, 1}: IDPFR1,
	{0, 0, 1, 2}: IDDFR0,
	{0, 0, 1, 3}: IDAFR0,
	{0, 0, 1, 4}: IDMMFR0,
	{0, 0, 1, 5}: IDMMFR1,
	{0, 0, 1, 6}: IDMMFR2,
	{0, 0, 1, 7}: IDMMFR3,
	{0, 0, 2, 0}: IDISAR0,
	{0, 0, 2, 1}: IDISAR1,
	{0, 0, 2, 2}: IDISAR2,
	{0, 0, 2, 3}: IDISAR3,
	{0, 0, 2, 4}: IDISAR4,
	{0, 0, 2, 5}: IDISAR5,
	{0, 1, 0, 0}: CCSIDR,
	{0, 1, 0, 1}: CLIDR,
	{0, 1, 0, 7}: AIDR,
}

var (
	keyCSSELR = regKey{0, 2, 0, 0}
	keySCTLR  = regKey{1, 0, 0, 0}
	keyCPACR  = regKey{1, 0, 0, 2}
)

// SystemControl is the CP15 coprocessor.
type SystemControl struct {
	coproc.Unsupported

	std  *coproc.Standard
	host coproc.Host

	bootSCTLR uint32
	csselr    uint32
	cpacr     uint32
}

// New creates the system control coprocessor for host.
func New(host coproc.Host) *SystemControl {
	s := &SystemControl{host: host}
	s.std = coproc.NewStandard(host, s)
	s.Reset()
	return s
}

// ExecuteInstruction executes a CP15 instruction.
func (s *SystemControl) ExecuteInstruction(unconditional bool, instruction uint32) error {
	return s.std.ExecuteInstruction(unconditional, instruction)
}

// Reset clears the stored registers. The boot configuration is kept.
func (s *SystemControl) Reset() {
	s.csselr = 0
	s.cpacr = 0
}

// Configure sets the SCTLR bits selected at boot.
func (s *SystemControl) Configure(thumbExceptions, bigEndian, highVectors bool) {
	s.bootSCTLR = 0
	if thumbExceptions {
		s.bootSCTLR |= SCTLRTE
	}
	if bigEndian {
		s.bootSCTLR |= SCTLREE
	}
	if highVectors {
		s.bootSCTLR |= SCTLRV
	}
}

// SCTLR returns the control register as software reads it.
func (s *SystemControl) SCTLR() uint32 {
	return (s.bootSCTLR &^ sctlrRAZ) | sctlrRAO
}

// ThumbExceptions reports SCTLR.TE.
func (s *SystemControl) ThumbExceptions() bool {
	return s.bootSCTLR&SCTLRTE != 0
}

// BigEndianExceptions reports SCTLR.EE.
func (s *SystemControl) BigEndianExceptions() bool {
	return s.bootSCTLR&SCTLREE != 0
}

// HighVectors reports SCTLR.V.
func (s *SystemControl) HighVectors() bool {
	return s.bootSCTLR&SCTLRV != 0
}

// CPACR returns the coprocessor access control register.
func (s *SystemControl) CPACR() uint32 {
	return s.cpacr | cpacrRAO
}

// MoveFromCoprocessor implements MRC p15.
func (s *SystemControl) MoveFromCoprocessor(op coproc.RegisterTransfer) (uint32, error) {
	if !s.host.Privileged() {
		return 0, coproc.Undefined("unprivileged CP15 access")
	}

	key := regKey{op.CRn, op.Opc1, op.CRm, op.Opc2}
	if value, ok := idRegisters[key]; ok {
		return value, nil
	}

	switch key {
	case keyCSSELR:
		return s.csselr, nil
	case keySCTLR:
		return s.SCTLR(), nil
	case keyCPACR:
		return s.CPACR(), nil
	}

	return 0, coproc.Undefined("unknown CP15 register")
}

// MoveToCoprocessor implements MCR p15.
func (s *SystemControl) MoveToCoprocessor(op coproc.RegisterTransfer, value uint32) error {
	if !s.host.Privileged() {
		return coproc.Undefined("unprivileged CP15 access")
	}

	key := regKey{op.CRn, op.Opc1, op.CRm, op.Opc2}
	switch key {
	case keyCSSELR:
		s.csselr = value & csselrMask
		return nil
	case keySCTLR:
		return faults.NewUnimplemented(0, "SCTLR write")
	case keyCPACR:
		s.cpacr = value & cpacrMask
		return nil
	}

	// c7 cache and barrier maintenance, c8 TLB maintenance
	if (op.CRn == 7 || op.CRn == 8) && op.Opc1 == 0 {
		return nil
	}

	return coproc.Undefined("unknown CP15 register")
}

package sysctl_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/armv7sim/coproc/sysctl"
	"github.com/sarchlab/armv7sim/faults"
)

type host struct {
	regs       [16]uint32
	privileged bool
}

func (h *host) Register(n uint8) uint32 { return h.regs[n] }
func (h *host) SetRegister(n uint8, v uint32) { h.regs[n] = v }
func (h *host) Privileged() bool { return h.privileged }
func (h *host) BigEndian() bool { return false }
func (h *host) SetFlags(uint32) {}
func (h *host) ReadWord(uint32) (uint32, error) { return 0, nil }
func (h *host) WriteWord(uint32, uint32) error { return nil }

// mrc encodes MRC p15, opc1, r0, CRn, CRm, opc2.
func mrc(opc1, crn, crm, opc2 uint32) uint32 {
	return 0xEE100F10 | opc1<<21 | crn<<16 | opc2<<5 | crm
}

// mcr encodes MCR p15, opc1, r0, CRn, CRm, opc2.
func mcr(opc1, crn, crm, opc2 uint32) uint32 {
	return 0xEE000F10 | opc1<<21 | crn<<16 | opc2<<5 | crm
}

var _ = Describe("SystemControl", func() {
	var (
		h  *host
		cp *sysctl.SystemControl
	)

	BeforeEach(func() {
		h = &host{privileged: true}
		cp = sysctl.New(h)
	})

	read := func(opc1, crn, crm, opc2 uint32) uint32 {
		h.regs[0] = 0xDEADBEEF
		Expect(cp.ExecuteInstruction(false, mrc(opc1, crn, crm, opc2))).To(Succeed())
		return h.regs[0]
	}

	DescribeTable("identification registers",
		func(opc1, crn, crm, opc2 uint32, expected uint32) {
			Expect(read(opc1, crn, crm, opc2)).To(Equal(expected))
		},
		Entry("MIDR", uint32(0), uint32(0), uint32(0), uint32(0), sysctl.MIDR),
		Entry("CTR", uint32(0), uint32(0), uint32(0), uint32(1), sysctl.CTR),
		Entry("MPIDR", uint32(0), uint32(0), uint32(0), uint32(5), sysctl.MPIDR),
		Entry("ID_PFR0", uint32(0), uint32(0), uint32(1), uint32(0), sysctl.IDPFR0),
		Entry("ID_MMFR0", uint32(0), uint32(0), uint32(1), uint32(4), sysctl.IDMMFR0),
		Entry("ID_ISAR0", uint32(0), uint32(0), uint32(2), uint32(0), sysctl.IDISAR0),
		Entry("ID_ISAR4", uint32(0), uint32(0), uint32(2), uint32(4), sysctl.IDISAR4),
		Entry("CCSIDR", uint32(1), uint32(0), uint32(0), uint32(0), sysctl.CCSIDR),
		Entry("CLIDR", uint32(1), uint32(0), uint32(0), uint32(1), sysctl.CLIDR),
	)

	Describe("SCTLR", func() {
		It("should read the boot value with the fixed bits applied", func() {
			cp.Configure(false, false, false)
			Expect(read(0, 1, 0, 0)).To(Equal(uint32(0x00C50078)))
		})

		It("should reflect the boot configuration", func() {
			cp.Configure(true, true, true)
			Expect(read(0, 1, 0, 0)).To(Equal(uint32(0x42C52078)))
			Expect(cp.ThumbExceptions()).To(BeTrue())
			Expect(cp.BigEndianExceptions()).To(BeTrue())
			Expect(cp.HighVectors()).To(BeTrue())
		})

		It("should report writes as unimplemented", func() {
			err := cp.ExecuteInstruction(false, mcr(0, 1, 0, 0))
			Expect(errors.Is(err, faults.ErrUnimplemented)).To(BeTrue())
		})
	})

	It("should store CSSELR", func() {
		h.regs[0] = 0xFFFF_FFF3
		Expect(cp.ExecuteInstruction(false, mcr(2, 0, 0, 0))).To(Succeed())
		Expect(read(2, 0, 0, 0)).To(Equal(uint32(3)))
	})

	It("should store CPACR coprocessor access fields until reset", func() {
		h.regs[0] = 0x00F0_0000
		Expect(cp.ExecuteInstruction(false, mcr(0, 1, 0, 2))).To(Succeed())
		Expect(read(0, 1, 0, 2)).To(Equal(uint32(0x80F0_0000)))

		cp.Reset()
		Expect(cp.CPACR()).To(Equal(uint32(0x8000_0000)))
	})

	DescribeTable("maintenance operations are accepted",
		func(crn, crm, opc2 uint32) {
			Expect(cp.ExecuteInstruction(false, mcr(0, crn, crm, opc2))).To(Succeed())
		},
		Entry("ICIALLU", uint32(7), uint32(5), uint32(0)),
		Entry("CP15ISB", uint32(7), uint32(5), uint32(4)),
		Entry("CP15DSB", uint32(7), uint32(10), uint32(4)),
		Entry("DCCIMVAC", uint32(7), uint32(14), uint32(1)),
		Entry("TLBIALL", uint32(8), uint32(7), uint32(0)),
	)

	It("should reject unprivileged access", func() {
		h.privileged = false
		err := cp.ExecuteInstruction(false, mrc(0, 0, 0, 0))
		Expect(errors.Is(err, faults.ErrUndefined)).To(BeTrue())
	})

	It("should reject unknown registers and writes to identification registers", func() {
		Expect(errors.Is(cp.ExecuteInstruction(false, mrc(0, 2, 0, 0)), faults.ErrUndefined)).To(BeTrue())
		Expect(errors.Is(cp.ExecuteInstruction(false, mcr(0, 0, 0, 0)), faults.ErrUndefined)).To(BeTrue())
	})

	It("should reject data operations", func() {
		err := cp.ExecuteInstruction(false, 0xEE000F00)
		Expect(errors.Is(err, faults.ErrUndefined)).To(BeTrue())
	})
})

package core_test

import (
	"encoding/binary"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/armv7sim/emu"
	"github.com/sarchlab/armv7sim/mem"
	"github.com/sarchlab/armv7sim/timing/core"
	"github.com/sarchlab/armv7sim/timing/latency"
)

const (
	nop = 0xE320F000
	wfi = 0xE320F003
)

var _ = Describe("Core", func() {
	var (
		ram *mem.RAM
		cpu *emu.Emulator
		c   *core.Core
	)

	load := func(addr uint32, words ...uint32) {
		buf := make([]byte, 4*len(words))
		for i, w := range words {
			binary.LittleEndian.PutUint32(buf[4*i:], w)
		}
		Expect(ram.Load(addr, buf)).To(Succeed())
	}

	BeforeEach(func() {
		phys := mem.NewPhysical()
		ram = mem.NewRAM(0x10000, 1, true)
		Expect(phys.MapRegion(0, ram)).To(Succeed())

		cpu = emu.NewEmulator(phys)
		c = core.NewCore(cpu)
		c.Reset()
	})

	It("should wrap the emulator", func() {
		Expect(c.Emulator()).To(BeIdenticalTo(cpu))
	})

	It("should set and get PC", func() {
		c.SetPC(0x1000)
		Expect(cpu.Register(15)).To(Equal(uint32(0x1000)))
	})

	It("should not be halted initially", func() {
		Expect(c.Halted()).To(BeFalse())
	})

	It("should execute instructions through tick", func() {
		load(0x1000, 0xE3A0102A, nop) // MOV r1, #42
		c.SetPC(0x1000)

		Expect(c.Tick()).To(Succeed())
		Expect(cpu.Register(1)).To(Equal(uint32(42)))
		Expect(c.Stats()).To(Equal(core.Stats{Cycles: 1, Instructions: 1}))
	})

	It("should count stall cycles while an instruction is paid off", func() {
		load(0x1000, 0xE5910000, nop) // LDR r0, [r1]
		cpu.SetRegister(1, 0x2000)
		c.SetPC(0x1000)

		Expect(c.Tick()).To(Succeed())
		Expect(c.Tick()).To(Succeed())
		Expect(c.Tick()).To(Succeed())

		stats := c.Stats()
		Expect(stats.Cycles).To(Equal(uint64(3)))
		Expect(stats.Instructions).To(Equal(uint64(2)))
		Expect(stats.Stalls).To(Equal(uint64(1)))
	})

	It("should run until halt and return exit code", func() {
		load(0x1000, 0xE3A0000A, wfi) // MOV r0, #10
		c.SetPC(0x1000)

		exitCode, err := c.Run(100)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Halted()).To(BeTrue())
		Expect(exitCode).To(Equal(uint32(10)))
		Expect(c.ExitCode()).To(Equal(uint32(10)))
		Expect(c.Stats().Instructions).To(Equal(uint64(2)))
	})

	It("should report a run that does not halt", func() {
		load(0x1000, 0xEAFFFFFE) // B .
		c.SetPC(0x1000)

		_, err := c.Run(50)
		Expect(err).To(MatchError(ContainSubstring("did not halt")))
		Expect(c.Stats().Cycles).To(Equal(uint64(50)))
	})

	It("should run for specified cycles and return running status", func() {
		load(0x1000, nop, nop, nop, nop, nop, nop, nop, nop, nop, nop)
		c.SetPC(0x1000)

		running, err := c.RunCycles(5)
		Expect(err).NotTo(HaveOccurred())
		Expect(running).To(BeTrue())
		Expect(c.Halted()).To(BeFalse())
		Expect(c.Stats().Cycles).To(Equal(uint64(5)))
	})

	It("should stop running cycles when halted", func() {
		load(0x1000, 0xE3A00000, wfi) // MOV r0, #0
		c.SetPC(0x1000)

		running, err := c.RunCycles(100)
		Expect(err).NotTo(HaveOccurred())
		Expect(running).To(BeFalse())
		Expect(c.Halted()).To(BeTrue())
		Expect(c.Stats().Cycles).To(Equal(uint64(2)))
	})

	It("should surface unimplemented instructions", func() {
		load(0x1000, 0xE0C10392) // SMULL r0, r1, r2, r3
		c.SetPC(0x1000)

		Expect(c.Tick()).To(MatchError(ContainSubstring("core faulted at 0x00001000")))
	})

	It("should stretch cycles with a slower RAM", func() {
		config := latency.DefaultTimingConfig()
		config.RAMLatency = 3

		phys := mem.NewPhysical()
		region, slowRAM := config.NewRAM(0x10000)
		Expect(phys.MapRegion(0, region)).To(Succeed())
		Expect(slowRAM.Load(0x1000, []byte{
			0x2A, 0x00, 0xA0, 0xE3, // MOV r0, #42
			0x03, 0xF0, 0x20, 0xE3, // WFI
		})).To(Succeed())

		slow := core.NewCore(emu.NewEmulator(phys,
			emu.WithLatencyTable(latency.NewTableWithConfig(config))))
		slow.Reset()
		slow.SetPC(0x1000)

		exitCode, err := slow.Run(100)
		Expect(err).NotTo(HaveOccurred())
		Expect(exitCode).To(Equal(uint32(42)))
		Expect(slow.Stats()).To(Equal(core.Stats{Cycles: 4, Instructions: 2, Stalls: 2}))
	})

	It("should reset core state", func() {
		load(0x1000, nop, nop, nop, nop)
		c.SetPC(0x1000)
		for i := 0; i < 4; i++ {
			Expect(c.Tick()).To(Succeed())
		}
		Expect(c.Stats().Cycles).To(BeNumerically(">", 0))

		c.Reset()

		Expect(c.Stats()).To(Equal(core.Stats{}))
		Expect(cpu.Register(15)).To(BeZero())
		Expect(c.Halted()).To(BeFalse())
	})
})

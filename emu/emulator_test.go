package emu_test

import (
	"bytes"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/armv7sim/coproc/sysctl"
	"github.com/sarchlab/armv7sim/coproc/vfp"
	"github.com/sarchlab/armv7sim/emu"
	"github.com/sarchlab/armv7sim/faults"
	"github.com/sarchlab/armv7sim/mem"
	"github.com/sarchlab/armv7sim/timing/latency"
)

type signalHook struct {
	signals  []string
	fetchErr []error
	readErr  []error
	writeErr []error
}

// popErr pops the first queued error.
func popErr(queue *[]error) error {
	if len(*queue) == 0 {
		return nil
	}
	err := (*queue)[0]
	*queue = (*queue)[1:]
	return err
}

func (h *signalHook) BeforeRead(addr uint32, width mem.Width) error {
	return popErr(&h.readErr)
}

func (h *signalHook) AfterWrite(addr uint32, width mem.Width, value uint32) error {
	return popErr(&h.writeErr)
}

func (h *signalHook) BeforeFetch(addr uint32) error {
	return popErr(&h.fetchErr)
}

func (h *signalHook) Signal(name string, args ...any) {
	h.signals = append(h.signals, name)
}

type countingCoprocessor struct {
	words  []uint32
	resets int
}

func (c *countingCoprocessor) ExecuteInstruction(unconditional bool, instruction uint32) error {
	c.words = append(c.words, instruction)
	return nil
}

func (c *countingCoprocessor) Reset() {
	c.resets++
}

// valueCoprocessor is attached by value and holds a slice, so its
// dynamic type is not comparable.
type valueCoprocessor struct {
	resets *int
	words  []uint32
}

func (c valueCoprocessor) ExecuteInstruction(unconditional bool, instruction uint32) error {
	return nil
}

func (c valueCoprocessor) Reset() {
	*c.resets++
}

var _ = Describe("Emulator", func() {
	var m *machine

	BeforeEach(func() {
		m = newMachine()
	})

	Describe("Reset", func() {
		It("should start in Supervisor mode at the reset vector", func() {
			Expect(m.cpu.Mode()).To(Equal(emu.ModeSupervisor))
			Expect(m.cpu.Register(15)).To(BeZero())
			cpsr := m.cpu.CPSR()
			Expect(cpsr.I()).To(BeTrue())
			Expect(cpsr.F()).To(BeTrue())
			Expect(cpsr.A()).To(BeTrue())
			Expect(cpsr.T()).To(BeFalse())
		})

		It("should use the high vectors when configured", func() {
			m.cpu.Reset(false, false, true)
			Expect(m.cpu.Register(15)).To(Equal(uint32(0xFFFF0000)))
			Expect(m.cpu.SystemControl().HighVectors()).To(BeTrue())
		})

		It("should enter exceptions in Thumb state when configured", func() {
			m.cpu.Reset(true, false, false)
			Expect(m.cpu.CPSR().T()).To(BeTrue())
			Expect(m.cpu.SystemControl().ThumbExceptions()).To(BeTrue())

			err := m.cpu.Step()
			Expect(errors.Is(err, faults.ErrUndefined)).To(BeTrue())
			Expect(m.cpu.InstructionCount()).To(BeZero())
		})

		It("should enter exceptions big-endian when configured", func() {
			m.cpu.Reset(false, true, false)
			Expect(m.cpu.CPSR().E()).To(BeTrue())
			Expect(m.cpu.CPSR().T()).To(BeFalse())
			Expect(m.cpu.Register(15)).To(BeZero())

			m.load(0x100, 0xE5910000) // LDR r0, [r1]
			m.load(0x200, 0x11223344)
			m.cpu.SetRegister(1, 0x200)
			m.run(0x100, 1)
			Expect(m.cpu.Register(0)).To(Equal(uint32(0x44332211)))
		})

		It("should reset a coprocessor attached to several slots once", func() {
			cp := &countingCoprocessor{}
			Expect(m.cpu.AttachCoprocessor(4, cp)).To(Succeed())
			Expect(m.cpu.AttachCoprocessor(5, cp)).To(Succeed())
			m.cpu.Reset(false, false, false)
			Expect(cp.resets).To(Equal(1))
		})

		It("should reset coprocessors attached by value", func() {
			resets := 0
			cp := valueCoprocessor{resets: &resets, words: []uint32{1}}
			Expect(m.cpu.AttachCoprocessor(1, cp)).To(Succeed())
			Expect(m.cpu.AttachCoprocessor(2, cp)).To(Succeed())

			Expect(func() { m.cpu.Reset(false, false, false) }).NotTo(Panic())
			Expect(resets).To(Equal(2))
		})

		It("should reset attached coprocessors", func() {
			cp := &countingCoprocessor{}
			Expect(m.cpu.AttachCoprocessor(3, cp)).To(Succeed())
			m.cpu.Reset(false, false, false)
			Expect(cp.resets).To(Equal(1))
		})
	})

	Describe("Execute", func() {
		It("should run one cycle per instruction from RAM", func() {
			m.cpu.SetRegister(15, 0x100)
			exhausted, err := m.cpu.Execute(2)
			Expect(err).NotTo(HaveOccurred())
			Expect(exhausted).To(BeTrue())
			Expect(m.cpu.InstructionCount()).To(Equal(uint64(2)))
			Expect(m.cpu.Register(15)).To(Equal(uint32(0x108)))
			Expect(m.cpu.Budget()).To(BeZero())
		})

		It("should charge loads their memory bill", func() {
			m.load(0x100, 0xE5910000) // LDR r0, [r1]
			m.load(0x200, 0xCAFEF00D)
			m.cpu.SetRegister(1, 0x200)
			m.cpu.SetRegister(15, 0x100)

			exhausted, err := m.cpu.Execute(1)
			Expect(err).NotTo(HaveOccurred())
			Expect(exhausted).To(BeTrue())
			Expect(m.cpu.Register(0)).To(Equal(uint32(0xCAFEF00D)))
			Expect(m.cpu.Budget()).To(Equal(int64(-1)))
		})

		It("should carry an overrun into the next call", func() {
			m.load(0x100, 0xE5910000) // LDR r0, [r1]
			m.cpu.SetRegister(1, 0x200)
			m.cpu.SetRegister(15, 0x100)
			_, _ = m.cpu.Execute(1)

			exhausted, err := m.cpu.Execute(1)
			Expect(err).NotTo(HaveOccurred())
			Expect(exhausted).To(BeTrue())
			Expect(m.cpu.InstructionCount()).To(Equal(uint64(1)))
		})

		It("should charge the configured class latency", func() {
			cfg := latency.DefaultTimingConfig()
			cfg.DivideLatency = 12
			m = newMachine(emu.WithLatencyTable(latency.NewTableWithConfig(cfg)))
			m.load(0x100, 0xE730F211) // UDIV r0, r1, r2
			m.cpu.SetRegister(15, 0x100)

			_, err := m.cpu.Execute(20)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.cpu.InstructionCount()).To(Equal(uint64(9)))
		})
	})

	Describe("Exceptions", func() {
		It("should take Undefined for an empty coprocessor slot", func() {
			m.load(0x100, 0xEE000510) // MCR p5, 0, r0, c0, c0, 0
			m.cpu.SetRegister(15, 0x100)

			_, err := m.cpu.Execute(1)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.cpu.Mode()).To(Equal(emu.ModeUndefined))
			Expect(m.cpu.Register(15)).To(Equal(uint32(0x4)))
			Expect(m.cpu.Register(14)).To(Equal(uint32(0x104)))
			spsr, ok := m.cpu.SPSR()
			Expect(ok).To(BeTrue())
			Expect(spsr.Mode()).To(Equal(emu.ModeSupervisor))
		})

		It("should forfeit the budget after taking an exception", func() {
			m.load(0x100, 0xEE000510)
			m.cpu.SetRegister(15, 0x100)

			exhausted, err := m.cpu.Execute(50)
			Expect(err).NotTo(HaveOccurred())
			Expect(exhausted).To(BeTrue())
			Expect(m.cpu.Budget()).To(BeZero())
		})

		It("should return the fault in exception debug mode", func() {
			m.load(0x100, 0xEE000510)
			m.cpu.SetRegister(15, 0x100)
			m.cpu.SetExceptionDebug(true)

			_, err := m.cpu.Execute(10)
			Expect(errors.Is(err, faults.ErrUndefined)).To(BeTrue())
			Expect(m.cpu.Register(15)).To(Equal(uint32(0x100)))
			Expect(m.cpu.Mode()).To(Equal(emu.ModeSupervisor))
		})

		It("should report unimplemented instructions to the caller", func() {
			m.load(0x100, 0xE0C10392) // SMULL r0, r1, r2, r3
			m.cpu.SetRegister(15, 0x100)

			_, err := m.cpu.Execute(10)
			Expect(errors.Is(err, faults.ErrUnimplemented)).To(BeTrue())
		})

		It("should enter and return from a supervisor call", func() {
			start := emu.PSR(emu.ModeUser) | emu.PSRC
			Expect(m.cpu.SetCPSR(start)).To(Succeed())
			m.load(0x100, 0xEF000000) // SVC #0
			m.load(0x8, 0xE1B0F00E)   // MOVS pc, lr

			m.run(0x100, 1)
			Expect(m.cpu.Mode()).To(Equal(emu.ModeSupervisor))
			Expect(m.cpu.Register(15)).To(Equal(emu.ExceptionSupervisorCall.Vector()))
			Expect(m.cpu.Register(14)).To(Equal(uint32(0x104)))
			spsr, _ := m.cpu.SPSR()
			Expect(spsr).To(Equal(start))
			Expect(m.cpu.CPSR().I()).To(BeTrue())

			Expect(m.cpu.Step()).To(Succeed())
			Expect(m.cpu.CPSR()).To(Equal(start))
			Expect(m.cpu.Register(15)).To(Equal(uint32(0x104)))
		})

		It("should take a data abort on an unmapped load", func() {
			m.load(0x100, 0xE5910000) // LDR r0, [r1]
			m.cpu.SetRegister(1, 0x80000000)
			m.cpu.SetRegister(0, 0x77)
			m.cpu.SetRegister(15, 0x100)

			_, err := m.cpu.Execute(1)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.cpu.Mode()).To(Equal(emu.ModeAbort))
			Expect(m.cpu.Register(15)).To(Equal(uint32(0x10)))
			Expect(m.cpu.Register(14)).To(Equal(uint32(0x108)))
			Expect(m.cpu.CPSR().A()).To(BeTrue())
		})

		It("should take a prefetch abort and run the handler", func() {
			m.cpu.SetRegister(15, 0x80000000)

			_, err := m.cpu.Execute(1)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.cpu.Mode()).To(Equal(emu.ModeAbort))
			Expect(m.cpu.Register(14)).To(Equal(uint32(0x80000004)))
			Expect(m.cpu.Register(15)).To(Equal(uint32(0x10)))
		})

		It("should fail with a double fault when the abort vector is unmapped", func() {
			phys := mem.NewPhysical()
			Expect(phys.MapRegion(0x10000, mem.NewRAM(0x1000, 1, true))).To(Succeed())
			cpu := emu.NewEmulator(phys)
			cpu.Reset(false, false, false)

			_, err := cpu.Execute(1)
			Expect(errors.Is(err, faults.ErrDoubleFault)).To(BeTrue())
		})

		It("should trap Thumb execution as Undefined", func() {
			m.load(0x100, 0xE12FFF10) // BX r0
			m.cpu.SetRegister(0, 0x201)
			m.run(0x100, 1)
			Expect(m.cpu.CPSR().T()).To(BeTrue())
			Expect(m.cpu.Register(15)).To(Equal(uint32(0x200)))

			_, err := m.cpu.Execute(1)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.cpu.Mode()).To(Equal(emu.ModeUndefined))
			Expect(m.cpu.Register(14)).To(Equal(uint32(0x202)))
			Expect(m.cpu.CPSR().T()).To(BeFalse())
			spsr, _ := m.cpu.SPSR()
			Expect(spsr.T()).To(BeTrue())
		})

		It("should signal the hook and dump registers", func() {
			hook := &signalHook{}
			var out bytes.Buffer
			m = newMachine(emu.WithHook(hook), emu.WithStderr(&out))
			m.cpu.SetDebugDump(true)
			m.load(0x100, 0xEF000000) // SVC #0
			m.run(0x100, 1)

			Expect(hook.signals).To(ContainElements("svc", "exception"))
			Expect(out.String()).To(ContainSubstring("register dump"))
		})

		It("should reject exception returns from modes without SPSR", func() {
			Expect(m.cpu.SetCPSR(emu.PSR(emu.ModeSystem))).To(Succeed())
			m.load(0x100, 0xE1B0F00E) // MOVS pc, lr
			m.cpu.SetRegister(15, 0x100)
			Expect(errors.Is(m.cpu.Step(), faults.ErrUndefined)).To(BeTrue())
		})
	})

	Describe("Escape signals", func() {
		It("should rewind and return on retry", func() {
			hook := &signalHook{fetchErr: []error{faults.ErrRetry}}
			m = newMachine(emu.WithHook(hook))
			m.cpu.SetRegister(15, 0x100)

			exhausted, err := m.cpu.Execute(10)
			Expect(err).NotTo(HaveOccurred())
			Expect(exhausted).To(BeFalse())
			Expect(m.cpu.Register(15)).To(Equal(uint32(0x100)))
			Expect(m.cpu.InstructionCount()).To(BeZero())

			Expect(m.cpu.Step()).To(Succeed())
			Expect(m.cpu.Register(15)).To(Equal(uint32(0x104)))
		})

		It("should retire the instruction and stop on complete", func() {
			hook := &signalHook{writeErr: []error{faults.ErrComplete}}
			m = newMachine(emu.WithHook(hook))
			m.load(0x100, 0xE5810000) // STR r0, [r1]
			m.cpu.SetRegister(0, 0xCAFE)
			m.cpu.SetRegister(1, 0x200)
			m.cpu.SetRegister(15, 0x100)

			exhausted, err := m.cpu.Execute(10)
			Expect(err).NotTo(HaveOccurred())
			Expect(exhausted).To(BeFalse())
			Expect(m.cpu.Register(15)).To(Equal(uint32(0x104)))
			Expect(m.cpu.InstructionCount()).To(Equal(uint64(1)))
			Expect(m.cpu.Budget()).To(BeNumerically(">", 0))
			Expect(m.word(0x200)).To(Equal(uint32(0xCAFE)))
			Expect(m.cpu.Mode()).To(Equal(emu.ModeSupervisor))
		})

		It("should stop on complete from a read", func() {
			hook := &signalHook{readErr: []error{faults.ErrComplete}}
			m = newMachine(emu.WithHook(hook))
			m.load(0x100, 0xE5910000) // LDR r0, [r1]
			m.cpu.SetRegister(1, 0x200)
			m.cpu.SetRegister(15, 0x100)

			_, err := m.cpu.Execute(10)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.cpu.Register(15)).To(Equal(uint32(0x104)))
			Expect(m.cpu.InstructionCount()).To(Equal(uint64(1)))
		})

		It("should keep the exclusive monitor across a retried store", func() {
			hook := &signalHook{writeErr: []error{faults.ErrRetry}}
			m = newMachine(emu.WithHook(hook))
			m.load(0x100,
				0xE1910F9F, // LDREX r0, [r1]
				0xE1812F90, // STREX r2, r0, [r1]
			)
			m.load(0x200, 5)
			m.cpu.SetRegister(1, 0x200)
			m.cpu.SetRegister(2, 0xFF)
			m.cpu.SetRegister(15, 0x100)

			_, err := m.cpu.Execute(10)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.cpu.Register(15)).To(Equal(uint32(0x104)))
			Expect(m.cpu.InstructionCount()).To(Equal(uint64(1)))
			Expect(m.cpu.Register(2)).To(Equal(uint32(0xFF)))

			Expect(m.cpu.Step()).To(Succeed())
			Expect(m.cpu.Register(2)).To(BeZero())
		})
	})

	Describe("Interrupts", func() {
		BeforeEach(func() {
			Expect(m.cpu.SetCPSR(emu.PSR(emu.ModeSupervisor))).To(Succeed())
		})

		It("should take an unmasked IRQ and return from it", func() {
			m.load(0x1C, 0xE25EF004) // SUBS pc, lr, #4
			m.cpu.SetIRQ("timer")
			m.run(0x100, 1)

			Expect(m.cpu.Mode()).To(Equal(emu.ModeIRQ))
			Expect(m.cpu.Register(14)).To(Equal(uint32(0x104)))
			Expect(m.cpu.Register(15)).To(Equal(uint32(0x1C)))

			m.cpu.ClearIRQ("timer")
			Expect(m.cpu.Step()).To(Succeed())
			Expect(m.cpu.Mode()).To(Equal(emu.ModeSupervisor))
			Expect(m.cpu.Register(15)).To(Equal(uint32(0x100)))
		})

		It("should track the FIQ line by source", func() {
			m.cpu.SetFIQ("a")
			Expect(m.cpu.FIQAsserted()).To(BeTrue())
			Expect(m.cpu.IRQAsserted()).To(BeFalse())
			m.cpu.ClearFIQ("a")
			Expect(m.cpu.FIQAsserted()).To(BeFalse())
		})

		It("should keep the line asserted while any source holds it", func() {
			m.cpu.SetIRQ("a")
			m.cpu.SetIRQ("b")
			m.cpu.ClearIRQ("a")
			Expect(m.cpu.IRQAsserted()).To(BeTrue())
			m.cpu.ClearIRQ("b")
			Expect(m.cpu.IRQAsserted()).To(BeFalse())
		})

		It("should prefer FIQ over IRQ", func() {
			m.cpu.SetIRQ("irq")
			m.cpu.SetFIQ("fiq")
			m.run(0x100, 1)
			Expect(m.cpu.Mode()).To(Equal(emu.ModeFIQ))
			Expect(m.cpu.CPSR().I()).To(BeTrue())
			Expect(m.cpu.CPSR().F()).To(BeTrue())
		})

		It("should ignore masked interrupts", func() {
			Expect(m.cpu.SetCPSR(emu.PSR(emu.ModeSupervisor) | emu.PSRI)).To(Succeed())
			m.cpu.SetIRQ("timer")
			m.run(0x100, 1)
			Expect(m.cpu.Mode()).To(Equal(emu.ModeSupervisor))
			Expect(m.cpu.Register(15)).To(Equal(uint32(0x104)))
		})
	})

	Describe("WFI", func() {
		It("should halt until an interrupt is asserted", func() {
			m.load(0x100, wfi)
			m.cpu.SetRegister(15, 0x100)

			exhausted, err := m.cpu.Execute(100)
			Expect(err).NotTo(HaveOccurred())
			Expect(exhausted).To(BeTrue())
			Expect(m.cpu.Waiting()).To(BeTrue())
			Expect(m.cpu.Budget()).To(BeZero())

			_, _ = m.cpu.Execute(100)
			Expect(m.cpu.Register(15)).To(Equal(uint32(0x104)))

			m.cpu.SetIRQ("dev")
			Expect(m.cpu.Waiting()).To(BeFalse())
			_, err = m.cpu.Execute(2)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.cpu.Register(15)).To(Equal(uint32(0x10C)))
		})
	})

	Describe("Status registers", func() {
		It("should hide privileged state from User-mode MRS", func() {
			Expect(m.cpu.SetCPSR(emu.PSR(emu.ModeUser) | emu.PSRN)).To(Succeed())
			m.load(0x100, 0xE10F0000) // MRS r0, CPSR
			m.run(0x100, 1)
			Expect(m.cpu.Register(0)).To(Equal(uint32(0x80000000)))
		})

		It("should not let User mode change mode with MSR", func() {
			Expect(m.cpu.SetCPSR(emu.PSR(emu.ModeUser))).To(Succeed())
			m.load(0x100,
				0xE321F013, // MSR CPSR_c, #0x13
				0xE328F20F, // MSR CPSR_f, #0xF0000000
			)
			m.run(0x100, 2)
			Expect(m.cpu.Mode()).To(Equal(emu.ModeUser))
			Expect(m.cpu.CPSR().V()).To(BeTrue())
		})

		It("should let User mode change endianness with MSR", func() {
			Expect(m.cpu.SetCPSR(emu.PSR(emu.ModeUser))).To(Succeed())
			m.load(0x100,
				0xE322FC02, // MSR CPSR_x, #0x200
				0xE10F0000, // MRS r0, CPSR
			)
			m.run(0x100, 2)
			Expect(m.cpu.CPSR().E()).To(BeTrue())
			Expect(m.cpu.Mode()).To(Equal(emu.ModeUser))
			Expect(m.cpu.Register(0)).To(BeZero())
		})

		It("should switch modes with a privileged MSR", func() {
			m.load(0x100, 0xE321F01F) // MSR CPSR_c, #0x1F
			m.run(0x100, 1)
			Expect(m.cpu.Mode()).To(Equal(emu.ModeSystem))
		})

		It("should reject unsupported modes", func() {
			m.load(0x100, 0xE321F016) // MSR CPSR_c, #0x16
			m.cpu.SetRegister(15, 0x100)
			Expect(errors.Is(m.cpu.Step(), faults.ErrUndefined)).To(BeTrue())
			Expect(m.cpu.Mode()).To(Equal(emu.ModeSupervisor))
		})

		It("should enable interrupts with CPS", func() {
			m.load(0x100, 0xF1080080) // CPSIE i
			m.run(0x100, 1)
			Expect(m.cpu.CPSR().I()).To(BeFalse())
			Expect(m.cpu.CPSR().F()).To(BeTrue())
		})
	})

	Describe("Memory instructions", func() {
		It("should push and pop a register list", func() {
			m.load(0x100,
				0xE92D0003, // STMDB sp!, {r0, r1}
				0xE8BD000C, // LDMIA sp!, {r2, r3}
			)
			m.cpu.SetRegister(13, 0x1000)
			m.cpu.SetRegister(0, 11)
			m.cpu.SetRegister(1, 22)
			m.run(0x100, 1)
			Expect(m.cpu.Register(13)).To(Equal(uint32(0xFF8)))
			Expect(m.word(0xFF8)).To(Equal(uint32(11)))
			Expect(m.word(0xFFC)).To(Equal(uint32(22)))

			Expect(m.cpu.Step()).To(Succeed())
			Expect(m.cpu.Register(2)).To(Equal(uint32(11)))
			Expect(m.cpu.Register(3)).To(Equal(uint32(22)))
			Expect(m.cpu.Register(13)).To(Equal(uint32(0x1000)))
		})

		It("should fault misaligned block transfers", func() {
			m.load(0x100, 0xE92D0003)
			m.cpu.SetRegister(13, 0x1002)
			m.cpu.SetRegister(15, 0x100)
			Expect(errors.Is(m.cpu.Step(), faults.ErrAlignment)).To(BeTrue())
			Expect(m.cpu.Register(13)).To(Equal(uint32(0x1002)))
		})

		It("should store with post-indexed writeback", func() {
			m.load(0x100, 0xE4810004) // STR r0, [r1], #4
			m.cpu.SetRegister(0, 0xAABBCCDD)
			m.cpu.SetRegister(1, 0x300)
			m.run(0x100, 1)
			Expect(m.word(0x300)).To(Equal(uint32(0xAABBCCDD)))
			Expect(m.cpu.Register(1)).To(Equal(uint32(0x304)))
		})

		It("should pair load and store exclusive", func() {
			m.load(0x100,
				0xE1910F9F, // LDREX r0, [r1]
				0xE1812F90, // STREX r2, r0, [r1]
				0xE1812F90, // STREX r2, r0, [r1]
			)
			m.load(0x200, 5)
			m.cpu.SetRegister(1, 0x200)

			m.run(0x100, 2)
			Expect(m.cpu.Register(0)).To(Equal(uint32(5)))
			Expect(m.cpu.Register(2)).To(BeZero())

			Expect(m.cpu.Step()).To(Succeed())
			Expect(m.cpu.Register(2)).To(Equal(uint32(1)))
		})
	})

	Describe("Coprocessors", func() {
		It("should log attachment at debug level only", func() {
			var out bytes.Buffer
			logger := logrus.New()
			logger.SetOutput(&out)
			logger.SetLevel(logrus.InfoLevel)
			m = newMachine(emu.WithLogger(logger))

			Expect(m.cpu.AttachCoprocessor(2, &countingCoprocessor{})).To(Succeed())
			Expect(out.String()).NotTo(ContainSubstring("coprocessor attached"))

			logger.SetLevel(logrus.DebugLevel)
			Expect(m.cpu.AttachCoprocessor(3, &countingCoprocessor{})).To(Succeed())
			Expect(out.String()).To(ContainSubstring("coprocessor attached"))
		})

		It("should reach the system control coprocessor", func() {
			m.load(0x100, 0xEE100F10) // MRC p15, 0, r0, c0, c0, 0
			m.run(0x100, 1)
			Expect(m.cpu.Register(0)).To(Equal(sysctl.MIDR))
		})

		It("should reach the floating point coprocessor", func() {
			m.load(0x100, 0xEEF00A10) // VMRS r0, FPSID
			m.run(0x100, 1)
			Expect(m.cpu.Register(0)).To(Equal(vfp.FPSID))
			Expect(m.cpu.FPU()).NotTo(BeNil())
		})

		It("should dispatch to an attached coprocessor", func() {
			cp := &countingCoprocessor{}
			Expect(m.cpu.AttachCoprocessor(5, cp)).To(Succeed())
			m.load(0x100, 0xEE000510)
			m.run(0x100, 1)
			Expect(cp.words).To(Equal([]uint32{0xEE000510}))
		})

		It("should refuse the architecture-defined slots", func() {
			Expect(m.cpu.AttachCoprocessor(8, &countingCoprocessor{})).NotTo(Succeed())
			Expect(m.cpu.AttachCoprocessor(15, &countingCoprocessor{})).NotTo(Succeed())
		})
	})
})

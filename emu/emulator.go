package emu

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/armv7sim/coproc"
	"github.com/sarchlab/armv7sim/coproc/sysctl"
	"github.com/sarchlab/armv7sim/coproc/vfp"
	"github.com/sarchlab/armv7sim/faults"
	"github.com/sarchlab/armv7sim/insts"
	"github.com/sarchlab/armv7sim/mem"
	"github.com/sarchlab/armv7sim/timing/latency"
)

// Emulator executes A32 instructions functionally against a virtual
// address space, charging each instruction cycles from a budget.
type Emulator struct {
	regFile *RegFile
	cpsr    PSR
	phys    *mem.Physical
	memory  *mem.Virtual
	decoder *insts.Decoder
	inst    insts.Instruction
	latency *latency.Table

	coprocs [16]coproc.Coprocessor
	sysctl  *sysctl.SystemControl
	fpu     *vfp.VFP
	host    *coprocHost

	irq     map[any]struct{}
	fiq     map[any]struct{}
	waiting bool

	budget           int64
	instructionCount uint64

	exceptionDebug bool
	debugDump      bool

	exclusiveValid bool
	exclusiveAddr  uint32

	// pc is the address of the executing instruction, nextPC where the
	// next one comes from and fetchPC where a retried instruction resumes.
	nextPC  uint32
	fetchPC uint32

	logger *logrus.Logger
	stderr io.Writer

	hook   mem.Hook
	strict bool
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithStderr sets the writer register dumps go to when no logger is given.
func WithStderr(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stderr = w
	}
}

// WithLogger sets the logger used for diagnostics and register dumps.
func WithLogger(logger *logrus.Logger) EmulatorOption {
	return func(e *Emulator) {
		e.logger = logger
	}
}

// WithHook installs a debugger hook on the virtual address space.
func WithHook(hook mem.Hook) EmulatorOption {
	return func(e *Emulator) {
		e.hook = hook
	}
}

// WithStrictAlignment makes misaligned data accesses fault.
func WithStrictAlignment(strict bool) EmulatorOption {
	return func(e *Emulator) {
		e.strict = strict
	}
}

// WithLatencyTable sets the timing model used to charge instructions.
func WithLatencyTable(table *latency.Table) EmulatorOption {
	return func(e *Emulator) {
		e.latency = table
	}
}

// NewEmulator creates a core over the physical space phys. The VFP unit
// occupies slots 10 and 11 and system control slot 15. Call Reset before
// executing.
func NewEmulator(phys *mem.Physical, opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: NewRegFile(),
		cpsr:    PSR(ModeSupervisor) | PSRA | PSRI | PSRF,
		phys:    phys,
		decoder: insts.NewDecoder(),
		irq:     make(map[any]struct{}),
		fiq:     make(map[any]struct{}),
		stderr:  os.Stderr,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.latency == nil {
		e.latency = latency.NewTable()
	}
	if e.logger == nil {
		e.logger = logrus.New()
		e.logger.SetOutput(e.stderr)
	}

	e.memory = e.latency.Config().NewVirtual(phys)
	if e.strict {
		e.memory.SetStrictAlignment(true)
	}
	if e.hook != nil {
		e.memory.SetHook(e.hook)
	}
	e.regFile.Bank(ModeSupervisor)

	e.host = &coprocHost{e: e}
	e.sysctl = sysctl.New(e.host)
	e.fpu = vfp.New(e.host)
	e.coprocs[vfp.SingleSlot] = e.fpu
	e.coprocs[vfp.DoubleSlot] = e.fpu
	e.coprocs[sysctl.Slot] = e.sysctl

	return e
}

// AttachCoprocessor installs a custom coprocessor in one of the
// implementation-defined slots 0-7.
func (e *Emulator) AttachCoprocessor(slot int, cp coproc.Coprocessor) error {
	if slot < 0 || slot > 7 {
		return fmt.Errorf("failed to attach coprocessor: slot %d is reserved", slot)
	}
	e.coprocs[slot] = cp
	e.logger.WithField("slot", slot).Debug("coprocessor attached")
	return nil
}

// Reset resets the core and its coprocessors and takes the reset
// exception. The arguments select the exception-entry instruction set,
// exception endianness and high vectors.
func (e *Emulator) Reset(thumbExceptions, bigEndian, highVectors bool) {
	e.sysctl.Reset()
	e.fpu.Reset()
	for slot, cp := range e.coprocs[:8] {
		if cp != nil && !e.attachedBefore(slot, cp) {
			cp.Reset()
		}
	}
	e.sysctl.Configure(thumbExceptions, bigEndian, highVectors)

	e.waiting = false
	e.exclusiveValid = false
	e.budget = 0
	e.takeException(ExceptionReset, 0)
	e.fetchPC = e.regFile.PC
}

// attachedBefore reports whether cp also occupies a slot below slot, so a
// coprocessor attached to several slots resets once.
func (e *Emulator) attachedBefore(slot int, cp coproc.Coprocessor) bool {
	for _, other := range e.coprocs[:slot] {
		if other != nil && coproc.Same(other, cp) {
			return true
		}
	}
	return false
}

// Memory returns the virtual address space the core executes against.
func (e *Emulator) Memory() *mem.Virtual {
	return e.memory
}

// SystemControl returns the system-control coprocessor.
func (e *Emulator) SystemControl() *sysctl.SystemControl {
	return e.sysctl
}

// FPU returns the floating-point coprocessor.
func (e *Emulator) FPU() *vfp.VFP {
	return e.fpu
}

// InstructionCount returns the number of instructions completed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// Budget returns the cycles left. It is negative when the last
// instruction overran.
func (e *Emulator) Budget() int64 {
	return e.budget
}

// Waiting reports whether the core is halted in WFI.
func (e *Emulator) Waiting() bool {
	return e.waiting
}

// Register returns r0-r14 of the active mode, or the current PC for 15.
func (e *Emulator) Register(n int) uint32 {
	return e.regFile.Read(uint8(n))
}

// SetRegister sets r0-r14 of the active mode, or the PC for 15.
func (e *Emulator) SetRegister(n int, value uint32) {
	e.regFile.Write(uint8(n), value)
	if n == 15 {
		e.nextPC = value
		e.fetchPC = value
	}
}

// CPSR returns the current program status register.
func (e *Emulator) CPSR() PSR {
	return e.cpsr
}

// SetCPSR replaces the current program status register, switching the
// register bank when the mode changes.
func (e *Emulator) SetCPSR(value PSR) error {
	if !value.Mode().Valid() {
		return fmt.Errorf("failed to set CPSR: invalid mode %s", value.Mode())
	}
	e.writeCPSR(value)
	return nil
}

// SPSR returns the saved status register of the active mode.
func (e *Emulator) SPSR() (PSR, bool) {
	return e.regFile.SPSR()
}

// Mode returns the current processor mode.
func (e *Emulator) Mode() Mode {
	return e.cpsr.Mode()
}

// SetExceptionDebug makes soft faults return to the caller instead of
// being converted into guest exceptions.
func (e *Emulator) SetExceptionDebug(enabled bool) {
	e.exceptionDebug = enabled
}

// SetDebugDump enables a register dump on every exception entry and every
// fault returned to the caller.
func (e *Emulator) SetDebugDump(enabled bool) {
	e.debugDump = enabled
}

// writeCPSR installs a new CPSR, rebanking registers on a mode change.
func (e *Emulator) writeCPSR(value PSR) {
	if value.Mode() != e.regFile.Mode() {
		e.regFile.Bank(value.Mode())
	}
	e.cpsr = value
}

func (e *Emulator) privileged() bool {
	return e.cpsr.Mode() != ModeUser
}

// operand reads a register as an instruction operand. PC reads as the
// address of the current instruction plus 8.
func (e *Emulator) operand(n uint8) uint32 {
	if n == 15 {
		return e.regFile.PC + 8
	}
	return e.regFile.Read(n)
}

// writeRegister writes an instruction result. A write to PC branches
// without changing instruction set.
func (e *Emulator) writeRegister(n uint8, value uint32) {
	if n == 15 {
		e.nextPC = value &^ 3
		return
	}
	e.regFile.Write(n, value)
}

// interworkingBranch branches to addr, selecting Thumb state when bit 0
// is set.
func (e *Emulator) interworkingBranch(addr uint32) {
	if addr&1 == 1 {
		e.cpsr |= PSRT
		e.nextPC = addr &^ 1
		return
	}
	e.nextPC = addr &^ 3
}

// Step executes a single instruction. Pending unmasked interrupts are taken
// first. Faults are returned to the caller without being converted.
func (e *Emulator) Step() error {
	e.checkInterrupts()

	e.inst = insts.Instruction{}
	e.fetchPC = e.regFile.PC
	e.nextPC = e.regFile.PC + 4

	if e.cpsr.T() {
		return faults.NewUndefined(0, "Thumb execution")
	}

	word, err := e.fetch()
	if err != nil {
		return err
	}

	e.nextPC = e.regFile.PC + 4
	e.decoder.DecodeInto(word, &e.inst)

	err = e.execute(&e.inst)
	if err == nil || errors.Is(err, faults.ErrComplete) {
		e.regFile.PC = e.nextPC
		e.instructionCount++
	}
	return err
}

// fetch reads the instruction at PC. A failed fetch takes a prefetch abort
// and fetches the handler's first instruction instead.
func (e *Emulator) fetch() (uint32, error) {
	word, err := e.memory.Fetch(e.regFile.PC)
	if err == nil || !faults.IsSoft(err) {
		return word, err
	}

	e.takeException(ExceptionPrefetchAbort, e.regFile.PC)
	e.fetchPC = e.regFile.PC

	word, err = e.memory.Fetch(e.regFile.PC)
	if err != nil {
		if faults.IsEscape(err) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %v", faults.ErrDoubleFault, err)
	}
	return word, nil
}

// Execute adds budget to the cycle budget and runs until it is exhausted,
// the core enters WFI, an escape signal arrives or a fault must be
// reported. It returns true when the budget is exhausted.
func (e *Emulator) Execute(budget int64) (bool, error) {
	e.budget += budget
	if e.waiting && e.interruptPending() {
		e.waiting = false
	}

	for e.budget > 0 && !e.waiting {
		err := e.Step()
		e.charge()
		if err == nil {
			continue
		}

		switch {
		case errors.Is(err, faults.ErrRetry):
			e.regFile.PC = e.fetchPC
			return e.budget <= 0, nil
		case errors.Is(err, faults.ErrComplete):
			return e.budget <= 0, nil
		case faults.IsSoft(err) && !e.exceptionDebug:
			e.raise(err)
			e.forfeit()
		default:
			if e.debugDump {
				e.dump("fault", err)
			}
			return e.budget <= 0, err
		}
	}

	if e.waiting {
		e.forfeit()
	}
	return e.budget <= 0, nil
}

func (e *Emulator) charge() {
	bill := e.phys.SettleAccessBill()
	e.budget -= int64(e.latency.Charge(e.inst.Class(), bill))
}

// forfeit discards the remaining positive budget.
func (e *Emulator) forfeit() {
	if e.budget > 0 {
		e.budget = 0
	}
}

// raise converts a soft fault into the matching guest exception.
func (e *Emulator) raise(err error) {
	kind, _ := faults.KindOf(err)
	if kind == faults.Undefined {
		e.takeException(ExceptionUndefined, e.regFile.PC)
		return
	}
	var fault *faults.Fault
	addr := e.regFile.PC
	if errors.As(err, &fault) {
		addr = fault.Addr
	}
	e.takeException(ExceptionDataAbort, addr)
}

// execute runs a decoded instruction whose condition passes.
func (e *Emulator) execute(inst *insts.Instruction) error {
	if inst.Cond != insts.CondNV &&
		!inst.Cond.Passed(e.cpsr.N(), e.cpsr.Z(), e.cpsr.C(), e.cpsr.V()) {
		return nil
	}

	switch inst.Format {
	case insts.FormatDPImm, insts.FormatDPImmShift, insts.FormatDPRegShift:
		return e.executeDataProcessing(inst)
	case insts.FormatMisc:
		return e.executeMisc(inst)
	case insts.FormatMultiply:
		return e.executeMultiply(inst)
	case insts.FormatSync:
		return e.executeSync(inst)
	case insts.FormatLoadStore, insts.FormatExtraLoadStore:
		return e.executeLoadStore(inst)
	case insts.FormatMedia:
		return e.executeMedia(inst)
	case insts.FormatBlock:
		return e.executeBlock(inst)
	case insts.FormatBranch:
		return e.executeBranch(inst)
	case insts.FormatCoprocessor:
		return e.executeCoprocessorSpace(inst)
	case insts.FormatUnconditional:
		return e.executeUnconditional(inst)
	default:
		return faults.NewUndefined(inst.Word, "undefined instruction")
	}
}

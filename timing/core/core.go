// Package core provides the cycle-driven CPU core model.
// It wraps the interpreter and hands it a budget of one cycle per tick, so
// an instruction that costs N cycles occupies N ticks.
package core

import (
	"fmt"

	"github.com/sarchlab/armv7sim/emu"
)

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of cycles in which no instruction retired.
	Stalls uint64
}

// Core represents a cycle-driven CPU core.
type Core struct {
	cpu   *emu.Emulator
	stats Stats
}

// NewCore creates a new Core driving cpu.
func NewCore(cpu *emu.Emulator) *Core {
	return &Core{cpu: cpu}
}

// Emulator returns the wrapped interpreter.
func (c *Core) Emulator() *emu.Emulator {
	return c.cpu
}

// SetPC sets the program counter.
func (c *Core) SetPC(pc uint32) {
	c.cpu.SetRegister(15, pc)
}

// Tick executes one cycle.
func (c *Core) Tick() error {
	before := c.cpu.InstructionCount()
	_, err := c.cpu.Execute(1)
	retired := c.cpu.InstructionCount() - before

	c.stats.Cycles++
	c.stats.Instructions += retired
	if retired == 0 {
		c.stats.Stalls++
	}

	if err != nil {
		return fmt.Errorf("core faulted at 0x%08x: %w", c.cpu.Register(15), err)
	}
	return nil
}

// Halted returns true if the core is waiting for an interrupt.
func (c *Core) Halted() bool {
	return c.cpu.Waiting()
}

// ExitCode returns r0.
func (c *Core) ExitCode() uint32 {
	return c.cpu.Register(0)
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	return c.stats
}

// Run executes the core until it halts or maxCycles have elapsed.
// Returns the exit code.
func (c *Core) Run(maxCycles uint64) (uint32, error) {
	running, err := c.RunCycles(maxCycles)
	if err != nil {
		return c.ExitCode(), err
	}
	if running {
		return c.ExitCode(), fmt.Errorf("core did not halt within %d cycles", maxCycles)
	}
	return c.ExitCode(), nil
}

// RunCycles executes the core for the specified number of cycles.
// Returns true if still running, false if halted.
func (c *Core) RunCycles(cycles uint64) (bool, error) {
	for i := uint64(0); i < cycles && !c.Halted(); i++ {
		if err := c.Tick(); err != nil {
			return false, err
		}
	}
	return !c.Halted(), nil
}

// Reset takes the reset exception with ARM, little-endian exception entry
// and low vectors, and clears the statistics.
func (c *Core) Reset() {
	c.cpu.Reset(false, false, false)
	c.stats = Stats{}
}

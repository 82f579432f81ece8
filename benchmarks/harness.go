// Package benchmarks provides the timing benchmark harness used to
// calibrate the latency model.
//
// The harness drives the core one cycle at a time: every tick hands the
// core a budget of one cycle, so an instruction that costs N cycles
// occupies N ticks. A benchmark ends when its program executes WFI.
package benchmarks

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sarchlab/armv7sim/emu"
	"github.com/sarchlab/armv7sim/mem"
	"github.com/sarchlab/armv7sim/timing/cache"
	"github.com/sarchlab/armv7sim/timing/core"
	"github.com/sarchlab/armv7sim/timing/latency"
)

// Memory layout of a benchmark machine.
const (
	ProgramAddr = 0x1000
	DataAddr    = 0x8000
	StackTop    = 0x10000
	memorySize  = 0x10000
)

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is the number of cycle ticks until the program halted
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of completed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// L1 statistics (if the tier is enabled)
	L1Hits   uint64 `json:"l1_hits,omitempty"`
	L1Misses uint64 `json:"l1_misses,omitempty"`

	// ExitCode is r0 when the program halted
	ExitCode uint32 `json:"exit_code"`

	// Err is set when the program faulted or never halted
	Err error `json:"-"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Setup prepares the core state (e.g., initialize registers, memory)
	Setup func(cpu *emu.Emulator, ram *mem.RAM)

	// Program is the A32 machine code to execute, loaded at ProgramAddr
	Program []byte

	// ExpectedExit is the expected value of r0 at the final WFI
	ExpectedExit uint32
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Timing is the latency model. Default: latency.DefaultTimingConfig().
	Timing *latency.TimingConfig

	// MaxCycles bounds each run. Default: 1,000,000.
	MaxCycles uint64

	// Output is where to write results (default: os.Stdout)
	Output io.Writer
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Timing:    latency.DefaultTimingConfig(),
		MaxCycles: 1_000_000,
		Output:    os.Stdout,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Timing == nil {
		config.Timing = latency.DefaultTimingConfig()
	}
	if config.MaxCycles == 0 {
		config.MaxCycles = 1_000_000
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		results = append(results, h.Run(bench))
	}

	return results
}

// Run executes a single benchmark on a fresh machine.
func (h *Harness) Run(bench Benchmark) BenchmarkResult {
	result := BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
	}

	phys := mem.NewPhysical()
	region, ram := h.config.Timing.NewRAM(memorySize)
	if err := phys.MapRegion(0, region); err != nil {
		result.Err = fmt.Errorf("failed to map benchmark memory: %w", err)
		return result
	}
	if err := ram.Load(ProgramAddr, bench.Program); err != nil {
		result.Err = fmt.Errorf("failed to load program: %w", err)
		return result
	}

	cpu := emu.NewEmulator(phys,
		emu.WithLatencyTable(latency.NewTableWithConfig(h.config.Timing)))
	c := core.NewCore(cpu)
	c.Reset()
	cpu.SetRegister(13, StackTop)
	c.SetPC(ProgramAddr)

	if bench.Setup != nil {
		bench.Setup(cpu, ram)
	}

	start := time.Now()
	exitCode, err := c.Run(h.config.MaxCycles)
	result.WallTime = time.Since(start)
	if err != nil {
		result.Err = fmt.Errorf("benchmark %s: %w", bench.Name, err)
	}

	stats := c.Stats()
	result.SimulatedCycles = stats.Cycles
	result.InstructionsRetired = stats.Instructions
	if result.InstructionsRetired > 0 {
		result.CPI = float64(result.SimulatedCycles) / float64(result.InstructionsRetired)
	}
	result.ExitCode = exitCode

	if l1, ok := region.(*cache.Cache); ok {
		l1Stats := l1.Stats()
		result.L1Hits = l1Stats.Hits
		result.L1Misses = l1Stats.Misses
	}

	return result
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	out := h.config.Output
	_, _ = fmt.Fprintln(out, "=== ARMv7 Timing Benchmark Results ===")
	_, _ = fmt.Fprintln(out, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(out, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(out, "  Description: %s\n", r.Description)
		if r.Err != nil {
			_, _ = fmt.Fprintf(out, "  Error: %v\n", r.Err)
		}
		_, _ = fmt.Fprintf(out, "  Exit Code (r0):       %d\n", r.ExitCode)
		_, _ = fmt.Fprintf(out, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(out, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(out, "  CPI:                  %.3f\n", r.CPI)

		if r.L1Hits > 0 || r.L1Misses > 0 {
			_, _ = fmt.Fprintln(out, "  --- L1 ---")
			_, _ = fmt.Fprintf(out, "  Hits:   %d\n", r.L1Hits)
			_, _ = fmt.Fprintf(out, "  Misses: %d\n", r.L1Misses)
		}

		_, _ = fmt.Fprintf(out, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(out, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "name,cycles,instructions,cpi,l1_hits,l1_misses,exit_code")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%d\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.L1Hits,
			r.L1Misses,
			r.ExitCode,
		)
	}
}

// BuildProgram assembles instruction words into a little-endian byte slice.
func BuildProgram(instrs ...uint32) []byte {
	program := make([]byte, 4*len(instrs))
	for i, inst := range instrs {
		binary.LittleEndian.PutUint32(program[4*i:], inst)
	}
	return program
}

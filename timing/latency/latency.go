// Package latency provides the timing model of the core: the minimum cost
// of each instruction class and the latency of the memory tiers.
//
// The CPU charges an instruction the greater of its class latency and the
// memory access bill it accumulated.
package latency

import (
	"github.com/sarchlab/armv7sim/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the minimum cost in cycles of an instruction class.
func (t *Table) GetLatency(class insts.Class) uint64 {
	switch class {
	case insts.ClassBranch:
		return t.config.BranchLatency
	case insts.ClassLoad:
		return t.config.LoadLatency
	case insts.ClassStore:
		return t.config.StoreLatency
	case insts.ClassMultiply:
		return t.config.MultiplyLatency
	case insts.ClassDivide:
		return t.config.DivideLatency
	case insts.ClassCoprocessor:
		return t.config.CoprocessorLatency
	default:
		return t.config.ALULatency
	}
}

// Charge returns the cycles an instruction of class costs given the memory
// bill it accumulated.
func (t *Table) Charge(class insts.Class, bill uint64) uint64 {
	floor := t.GetLatency(class)
	if floor == 0 {
		floor = 1
	}
	if bill > floor {
		return bill
	}
	return floor
}

// IsMemoryOp reports whether the class accesses data memory.
func (t *Table) IsMemoryOp(class insts.Class) bool {
	return class == insts.ClassLoad || class == insts.ClassStore
}

// Config returns the timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}

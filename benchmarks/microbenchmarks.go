package benchmarks

import (
	"github.com/sarchlab/armv7sim/emu"
	"github.com/sarchlab/armv7sim/insts"
	"github.com/sarchlab/armv7sim/mem"
)

// VFP encodings used by the floating point benchmark.
const (
	vmsrFPEXCr0  = 0xEEE80A10 // VMSR FPEXC, r0
	vmovS0r1     = 0xEE001A10 // VMOV s0, r1
	vcvtF32S32   = 0xEEB80AC0 // VCVT.F32.S32 s0, s0
	vaddF32      = 0xEE300A00 // VADD.F32 s0, s0, s0
	vcvtS32F32   = 0xEEBD0AC0 // VCVT.S32.F32 s0, s0
	vmovR0s0     = 0xEE100A10 // VMOV r0, s0
	movR0FPEXCOn = 0xE3A00101 // MOV r0, #0x40000000
)

// GetMicrobenchmarks returns the standard set of timing microbenchmarks.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		memorySequential(),
		countedLoop(),
		functionCalls(),
		multiplyDivide(),
		floatingPoint(),
	}
}

// GetCoreBenchmarks returns the benchmarks that exercise only the integer
// core, which keeps their cycle counts independent of the VFP.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		countedLoop(),
	}
}

// 1. Arithmetic Sequential - independent ALU operations over five registers
func arithmeticSequential() Benchmark {
	instrs := make([]uint32, 0, 21)
	for i := 0; i < 20; i++ {
		r := uint8(i % 5)
		instrs = append(instrs, EncodeADDImm(r, r, 1, false))
	}
	instrs = append(instrs, EncodeWFI())

	return Benchmark{
		Name:         "arithmetic_sequential",
		Description:  "20 independent ADDs spread over r0-r4",
		Program:      BuildProgram(instrs...),
		ExpectedExit: 4,
	}
}

// 2. Dependency Chain - every ADD reads the previous result
func dependencyChain() Benchmark {
	instrs := make([]uint32, 0, 21)
	for i := 0; i < 20; i++ {
		instrs = append(instrs, EncodeADDImm(0, 0, 1, false))
	}
	instrs = append(instrs, EncodeWFI())

	return Benchmark{
		Name:         "dependency_chain",
		Description:  "20 dependent ADDs on r0",
		Program:      BuildProgram(instrs...),
		ExpectedExit: 20,
	}
}

// 3. Memory Sequential - stores then loads through the data area
func memorySequential() Benchmark {
	var instrs []uint32
	for i := uint16(0); i < 8; i++ {
		instrs = append(instrs, EncodeSTR(0, 1, i*4))
	}
	for i := uint16(0); i < 8; i++ {
		instrs = append(instrs, EncodeLDR(0, 1, i*4))
	}
	instrs = append(instrs, EncodeWFI())

	return Benchmark{
		Name:        "memory_sequential",
		Description: "8 word stores then 8 word loads over consecutive addresses",
		Setup: func(cpu *emu.Emulator, _ *mem.RAM) {
			cpu.SetRegister(0, 7)
			cpu.SetRegister(1, DataAddr)
		},
		Program:      BuildProgram(instrs...),
		ExpectedExit: 7,
	}
}

// 4. Counted Loop - a taken backward branch on every iteration
func countedLoop() Benchmark {
	const loopAddr = ProgramAddr + 8
	const branchAddr = ProgramAddr + 16

	return Benchmark{
		Name:        "loop",
		Description: "10 iterations of ADD, SUBS and a conditional branch",
		Program: BuildProgram(
			EncodeMOVImm(0, 0),
			EncodeMOVImm(1, 10),
			EncodeADDImm(0, 0, 2, false),
			EncodeSUBImm(1, 1, 1, true),
			EncodeB(insts.CondNE, branchAddr, loopAddr),
			EncodeWFI(),
		),
		ExpectedExit: 20,
	}
}

// 5. Function Calls - BL and BX lr round trips
func functionCalls() Benchmark {
	const body = ProgramAddr + 16

	return Benchmark{
		Name:        "function_calls",
		Description: "3 calls to a function that increments r0",
		Program: BuildProgram(
			EncodeBL(ProgramAddr, body),
			EncodeBL(ProgramAddr+4, body),
			EncodeBL(ProgramAddr+8, body),
			EncodeWFI(),
			EncodeADDImm(0, 0, 1, false),
			EncodeBXLR(),
		),
		ExpectedExit: 3,
	}
}

// 6. Multiply Divide - long latency integer operations
func multiplyDivide() Benchmark {
	return Benchmark{
		Name:        "multiply_divide",
		Description: "UDIV followed by a dependent MUL",
		Setup: func(cpu *emu.Emulator, _ *mem.RAM) {
			cpu.SetRegister(1, 100)
			cpu.SetRegister(2, 7)
		},
		Program: BuildProgram(
			EncodeUDIV(0, 1, 2),
			EncodeMUL(0, 0, 2),
			EncodeWFI(),
		),
		ExpectedExit: 98,
	}
}

// 7. Floating Point - enable the VFP, convert, add and convert back
func floatingPoint() Benchmark {
	return Benchmark{
		Name:        "floating_point",
		Description: "int to float, VADD, float to int through the VFP",
		Setup: func(cpu *emu.Emulator, _ *mem.RAM) {
			cpu.SetRegister(1, 21)
		},
		Program: BuildProgram(
			movR0FPEXCOn,
			vmsrFPEXCr0,
			vmovS0r1,
			vcvtF32S32,
			vaddF32,
			vcvtS32F32,
			vmovR0s0,
			EncodeWFI(),
		),
		ExpectedExit: 42,
	}
}

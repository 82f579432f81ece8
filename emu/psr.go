package emu

import "fmt"

// Mode is a processor mode, encoded as CPSR bits 4:0.
type Mode uint32

// Processor modes.
const (
	ModeUser       Mode = 0x10
	ModeFIQ        Mode = 0x11
	ModeIRQ        Mode = 0x12
	ModeSupervisor Mode = 0x13
	ModeMonitor    Mode = 0x16
	ModeAbort      Mode = 0x17
	ModeHyp        Mode = 0x1A
	ModeUndefined  Mode = 0x1B
	ModeSystem     Mode = 0x1F
)

// noSPSR marks a mode without a saved program status register.
const noSPSR = -1

// ModeInfo describes the banking and privilege of a mode.
type ModeInfo struct {
	Name       string
	SPBank     int
	LRBank     int
	SPSRBank   int
	Privileged bool
	// Supported is false for modes that need extensions this core does
	// not implement.
	Supported bool
}

var modeTable = map[Mode]ModeInfo{
	ModeUser:       {Name: "usr", SPBank: 0, LRBank: 0, SPSRBank: noSPSR, Privileged: false, Supported: true},
	ModeSystem:     {Name: "sys", SPBank: 0, LRBank: 0, SPSRBank: noSPSR, Privileged: true, Supported: true},
	ModeHyp:        {Name: "hyp", SPBank: 1, LRBank: 0, SPSRBank: 0, Privileged: true, Supported: false},
	ModeFIQ:        {Name: "fiq", SPBank: 2, LRBank: 1, SPSRBank: 1, Privileged: true, Supported: true},
	ModeIRQ:        {Name: "irq", SPBank: 3, LRBank: 2, SPSRBank: 2, Privileged: true, Supported: true},
	ModeSupervisor: {Name: "svc", SPBank: 4, LRBank: 3, SPSRBank: 3, Privileged: true, Supported: true},
	ModeMonitor:    {Name: "mon", SPBank: 5, LRBank: 4, SPSRBank: 4, Privileged: true, Supported: false},
	ModeAbort:      {Name: "abt", SPBank: 6, LRBank: 5, SPSRBank: 5, Privileged: true, Supported: true},
	ModeUndefined:  {Name: "und", SPBank: 7, LRBank: 6, SPSRBank: 6, Privileged: true, Supported: true},
}

// Info returns the table entry of the mode.
func (m Mode) Info() (ModeInfo, bool) {
	info, ok := modeTable[m]
	return info, ok
}

// Valid reports whether the mode exists and is supported.
func (m Mode) Valid() bool {
	info, ok := modeTable[m]
	return ok && info.Supported
}

// Privileged reports whether the mode is privileged.
func (m Mode) Privileged() bool {
	return modeTable[m].Privileged
}

func (m Mode) String() string {
	if info, ok := modeTable[m]; ok {
		return info.Name
	}
	return fmt.Sprintf("mode(0x%02x)", uint32(m))
}

// PSR is a program status register value (CPSR or SPSR).
type PSR uint32

// PSR bits.
const (
	PSRN PSR = 1 << 31
	PSRZ PSR = 1 << 30
	PSRC PSR = 1 << 29
	PSRV PSR = 1 << 28
	PSRQ PSR = 1 << 27
	PSRJ PSR = 1 << 24
	PSRE PSR = 1 << 9
	PSRA PSR = 1 << 8
	PSRI PSR = 1 << 7
	PSRF PSR = 1 << 6
	PSRT PSR = 1 << 5

	psrModeMask PSR = 0x1F
	psrNZCV     PSR = 0xF0000000
	psrGE       PSR = 0x000F0000
	psrIT       PSR = 0x0600FC00
	psrReserved PSR = 0x00F00000

	// psrExecState holds IT, J and T, which instruction writes never alter.
	psrExecState PSR = psrIT | PSRJ | PSRT

	// psrAPSR is the application-level view User-mode MRS returns.
	psrAPSR PSR = psrNZCV | PSRQ | psrGE

	psrUserWritable       PSR = psrAPSR | PSRE
	psrPrivilegedWritable PSR = psrUserWritable | PSRA | PSRI | PSRF | psrModeMask
	psrReturnWritable     PSR = ^psrReserved
)

// Mode returns the mode field.
func (p PSR) Mode() Mode {
	return Mode(p & psrModeMask)
}

// WithMode returns p with the mode field replaced.
func (p PSR) WithMode(m Mode) PSR {
	return p&^psrModeMask | PSR(m)&psrModeMask
}

// With returns p with bits set or cleared.
func (p PSR) With(bits PSR, set bool) PSR {
	if set {
		return p | bits
	}
	return p &^ bits
}

// WithFlags returns p with NZCV replaced by bits 31:28 of nzcv.
func (p PSR) WithFlags(nzcv uint32) PSR {
	return p&^psrNZCV | PSR(nzcv)&psrNZCV
}

// WithNZCV returns p with the four condition flags replaced.
func (p PSR) WithNZCV(n, z, c, v bool) PSR {
	return p.With(PSRN, n).With(PSRZ, z).With(PSRC, c).With(PSRV, v)
}

// WithNZ returns p with N and Z derived from result.
func (p PSR) WithNZ(result uint32) PSR {
	return p.With(PSRN, result>>31 == 1).With(PSRZ, result == 0)
}

// N, Z, C, V, Q, T, E, A, I and F report the individual bits.

func (p PSR) N() bool { return p&PSRN != 0 }
func (p PSR) Z() bool { return p&PSRZ != 0 }
func (p PSR) C() bool { return p&PSRC != 0 }
func (p PSR) V() bool { return p&PSRV != 0 }
func (p PSR) Q() bool { return p&PSRQ != 0 }
func (p PSR) T() bool { return p&PSRT != 0 }
func (p PSR) E() bool { return p&PSRE != 0 }
func (p PSR) A() bool { return p&PSRA != 0 }
func (p PSR) I() bool { return p&PSRI != 0 }
func (p PSR) F() bool { return p&PSRF != 0 }

// Merge returns p with the bits selected by mask taken from value.
func (p PSR) Merge(value uint32, mask PSR) PSR {
	return p&^mask | PSR(value)&mask
}

// fieldMask expands the MSR field mask (c, x, s, f) to a byte mask.
func fieldMask(mask uint32) PSR {
	var m PSR
	for i := uint(0); i < 4; i++ {
		if mask&(1<<i) != 0 {
			m |= 0xFF << (8 * i)
		}
	}
	return m
}

func (p PSR) String() string {
	flags := []byte("nzcvq")
	for i, bit := range []PSR{PSRN, PSRZ, PSRC, PSRV, PSRQ} {
		if p&bit != 0 {
			flags[i] -= 'a' - 'A'
		}
	}
	return fmt.Sprintf("%s %s 0x%08x", flags, p.Mode(), uint32(p))
}

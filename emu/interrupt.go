package emu

// SetIRQ asserts the IRQ line on behalf of source. The line stays asserted
// while any source holds it. Asserting wakes a core halted in WFI even
// when IRQs are masked.
func (e *Emulator) SetIRQ(source any) {
	e.irq[source] = struct{}{}
	e.waiting = false
}

// ClearIRQ releases source's hold on the IRQ line.
func (e *Emulator) ClearIRQ(source any) {
	delete(e.irq, source)
}

// SetFIQ asserts the FIQ line on behalf of source.
func (e *Emulator) SetFIQ(source any) {
	e.fiq[source] = struct{}{}
	e.waiting = false
}

// ClearFIQ releases source's hold on the FIQ line.
func (e *Emulator) ClearFIQ(source any) {
	delete(e.fiq, source)
}

// IRQAsserted reports whether any source holds the IRQ line.
func (e *Emulator) IRQAsserted() bool {
	return len(e.irq) > 0
}

// FIQAsserted reports whether any source holds the FIQ line.
func (e *Emulator) FIQAsserted() bool {
	return len(e.fiq) > 0
}

func (e *Emulator) interruptPending() bool {
	return e.IRQAsserted() || e.FIQAsserted()
}

// checkInterrupts takes a pending unmasked interrupt. FIQ has priority.
func (e *Emulator) checkInterrupts() {
	if e.FIQAsserted() && !e.cpsr.F() {
		e.takeException(ExceptionFIQ, e.regFile.PC)
		return
	}
	if e.IRQAsserted() && !e.cpsr.I() {
		e.takeException(ExceptionIRQ, e.regFile.PC)
	}
}

// waitForInterrupt halts the core until an interrupt line is asserted.
func (e *Emulator) waitForInterrupt() {
	if !e.interruptPending() {
		e.waiting = true
	}
}

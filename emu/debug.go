package emu

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

var registerNames = [15]string{
	"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7",
	"r8", "r9", "r10", "r11", "r12", "sp", "lr",
}

// RegisterFields returns the visible register state as log fields.
func (e *Emulator) RegisterFields() logrus.Fields {
	fields := logrus.Fields{
		"pc":   fmt.Sprintf("%08x", e.regFile.PC),
		"cpsr": e.cpsr.String(),
	}
	for n, name := range registerNames {
		fields[name] = fmt.Sprintf("%08x", e.regFile.Read(uint8(n)))
	}
	if spsr, ok := e.regFile.SPSR(); ok {
		fields["spsr"] = spsr.String()
	}
	return fields
}

// dump logs the register state at error level.
func (e *Emulator) dump(event string, err error) {
	entry := e.logger.WithFields(e.RegisterFields()).WithField("event", event)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error("register dump")
}

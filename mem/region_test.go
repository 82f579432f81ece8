package mem_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/armv7sim/faults"
	"github.com/sarchlab/armv7sim/mem"
)

var _ = Describe("RAM", func() {
	var ram *mem.RAM

	BeforeEach(func() {
		ram = mem.NewRAM(16, 3, true)
	})

	It("should report its size", func() {
		Expect(ram.Size()).To(Equal(uint64(16)))
		Expect(ram.Latency()).To(Equal(uint64(3)))
		Expect(ram.Wide()).To(BeTrue())
	})

	It("should read back a little-endian word byte by byte", func() {
		_, err := ram.Write(4, mem.Word, false, 0x11223344)
		Expect(err).NotTo(HaveOccurred())

		Expect(ram.Bytes()[4:8]).To(Equal([]byte{0x44, 0x33, 0x22, 0x11}))
		v, cycles, err := ram.Read(4, mem.Word, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint32(0x11223344)))
		Expect(cycles).To(Equal(uint64(3)))
	})

	It("should honor big-endian byte order", func() {
		_, err := ram.Write(0, mem.Halfword, true, 0xABCD)
		Expect(err).NotTo(HaveOccurred())

		Expect(ram.Bytes()[0:2]).To(Equal([]byte{0xAB, 0xCD}))
		v, _, _ := ram.Read(0, mem.Halfword, false)
		Expect(v).To(Equal(uint32(0xCDAB)))
	})

	It("should track the dirty flag", func() {
		Expect(ram.Dirty()).To(BeFalse())
		_, _ = ram.Write(0, mem.Byte, false, 1)
		Expect(ram.Dirty()).To(BeTrue())
		ram.ClearDirty()
		Expect(ram.Dirty()).To(BeFalse())
	})

	It("should not mark host loads dirty", func() {
		Expect(ram.Load(2, []byte{1, 2, 3})).To(Succeed())
		Expect(ram.Dirty()).To(BeFalse())
		Expect(ram.Bytes()[2:5]).To(Equal([]byte{1, 2, 3}))
	})

	It("should reject host loads past the end", func() {
		err := ram.Load(14, []byte{1, 2, 3})
		Expect(errors.Is(err, faults.ErrBusError)).To(BeTrue())
	})

	Context("when read-only", func() {
		It("should reject writes with a bus error", func() {
			rom := mem.NewROM([]byte{1, 2, 3, 4}, 1, true)

			_, err := rom.Write(0, mem.Byte, false, 9)

			Expect(errors.Is(err, faults.ErrBusError)).To(BeTrue())
			Expect(rom.Dirty()).To(BeFalse())
			v, _, err := rom.Read(0, mem.Word, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(uint32(0x04030201)))
		})
	})

	Context("when not wide", func() {
		It("should charge double latency for words only", func() {
			narrow := mem.NewRAM(8, 5, false)
			Expect(narrow.Wide()).To(BeFalse())

			_, cycles, _ := narrow.Read(0, mem.Word, false)
			Expect(cycles).To(Equal(uint64(10)))
			_, cycles, _ = narrow.Read(0, mem.Halfword, false)
			Expect(cycles).To(Equal(uint64(5)))
			cycles, _ = narrow.Write(0, mem.Byte, false, 0)
			Expect(cycles).To(Equal(uint64(5)))
		})
	})
})

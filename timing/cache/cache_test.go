package cache_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/armv7sim/faults"
	"github.com/sarchlab/armv7sim/mem"
	"github.com/sarchlab/armv7sim/timing/cache"
)

var _ = Describe("Cache", func() {
	var (
		c       *cache.Cache
		backing *mem.RAM
	)

	BeforeEach(func() {
		backing = mem.NewRAM(0x2000, 2, true)
		// Small cache for testing: 4KB, 4-way, 64B lines
		config := cache.Config{
			Size:             4 * 1024,
			Associativity:    4,
			BlockSize:        64,
			HitLatency:       1,
			MissLatency:      10,
			WritebackLatency: 5,
		}
		c = cache.New(config, backing)
	})

	It("should expose the backing region's size", func() {
		Expect(c.Size()).To(Equal(uint64(0x2000)))
		Expect(c.Backing()).To(BeIdenticalTo(backing))
	})

	Describe("Read operations", func() {
		It("should miss on cold cache", func() {
			Expect(backing.Load(0x1000, []byte{0xEF, 0xBE, 0xAD, 0xDE})).To(Succeed())

			v, latency, err := c.Read(0x1000, mem.Word, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(uint32(0xDEADBEEF)))
			Expect(latency).To(Equal(uint64(12)))

			stats := c.Stats()
			Expect(stats.Reads).To(Equal(uint64(1)))
			Expect(stats.Misses).To(Equal(uint64(1)))
			Expect(stats.Hits).To(Equal(uint64(0)))
		})

		It("should hit on different addresses in same cache line", func() {
			_, _, _ = c.Read(0x1000, mem.Word, false)

			_, latency, err := c.Read(0x1004, mem.Halfword, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(latency).To(Equal(uint64(1)))
			Expect(c.Contains(0x103F)).To(BeTrue())
		})
	})

	Describe("Write operations", func() {
		It("should write-allocate on miss and keep data in the backing region", func() {
			latency, err := c.Write(0x1000, mem.Word, false, 0x12345678)
			Expect(err).NotTo(HaveOccurred())
			Expect(latency).To(Equal(uint64(12)))
			Expect(backing.Bytes()[0x1000:0x1004]).To(Equal([]byte{0x78, 0x56, 0x34, 0x12}))

			v, latency, _ := c.Read(0x1000, mem.Word, false)
			Expect(latency).To(Equal(uint64(1)))
			Expect(v).To(Equal(uint32(0x12345678)))
		})

		It("should pass backing faults through without touching tags", func() {
			backing.SetReadOnly(true)

			_, err := c.Write(0x40, mem.Byte, false, 1)
			Expect(errors.Is(err, faults.ErrBusError)).To(BeTrue())
			Expect(c.Contains(0x40)).To(BeFalse())
			Expect(c.Stats().Writes).To(BeZero())
		})
	})

	Describe("Eviction", func() {
		fillSet := func() {
			// 16 sets: these all map to set 0
			for _, addr := range []uint32{0x0000, 0x0400, 0x0800, 0x0C00} {
				_, err := c.Write(addr, mem.Word, false, addr)
				Expect(err).NotTo(HaveOccurred())
			}
		}

		It("should evict the least recently used line", func() {
			fillSet()
			_, _, _ = c.Read(0x0400, mem.Word, false)
			_, _, _ = c.Read(0x0800, mem.Word, false)
			_, _, _ = c.Read(0x0C00, mem.Word, false)

			_, _, _ = c.Read(0x1000, mem.Word, false)

			Expect(c.Contains(0x0000)).To(BeFalse())
			Expect(c.Contains(0x0400)).To(BeTrue())
			Expect(c.Stats().Evictions).To(Equal(uint64(1)))
		})

		It("should charge write-back latency for dirty victims", func() {
			fillSet()

			_, latency, _ := c.Read(0x1000, mem.Word, false)

			Expect(latency).To(Equal(uint64(10 + 2 + 5)))
			Expect(c.Stats().Writebacks).To(Equal(uint64(1)))
		})
	})

	Describe("Flush", func() {
		It("should charge every dirty line and invalidate", func() {
			_, _ = c.Write(0x0000, mem.Word, false, 1)
			_, _ = c.Write(0x1000, mem.Word, false, 2)
			_, _, _ = c.Read(0x0040, mem.Word, false)

			Expect(c.Flush()).To(Equal(uint64(10)))
			Expect(c.Contains(0x0000)).To(BeFalse())
			Expect(c.Stats().Writebacks).To(Equal(uint64(2)))
		})
	})

	It("should invalidate a single line", func() {
		_, _, _ = c.Read(0x80, mem.Word, false)
		c.Invalidate(0x84)
		Expect(c.Contains(0x80)).To(BeFalse())
	})

	It("should reset tags and statistics", func() {
		_, _, _ = c.Read(0x80, mem.Word, false)
		c.Reset()
		Expect(c.Contains(0x80)).To(BeFalse())
		Expect(c.Stats()).To(Equal(cache.Statistics{}))
	})

	Describe("as a mapped region", func() {
		It("should bill tier latency to the physical space", func() {
			phys := mem.NewPhysical()
			Expect(phys.MapRegion(0x8000_0000, c)).To(Succeed())

			_, _ = phys.Read32(0x8000_0000, false)
			_, _ = phys.Read32(0x8000_0004, false)

			Expect(phys.SettleAccessBill()).To(Equal(uint64(12 + 1)))
		})
	})

	It("should clear statistics without dropping lines", func() {
		_, _, _ = c.Read(0x1000, mem.Word, false)
		_, _, _ = c.Read(0x1000, mem.Word, false)
		Expect(c.Stats().Hits).To(Equal(uint64(1)))

		c.ResetStats()
		Expect(c.Stats()).To(Equal(cache.Statistics{}))

		_, latency, err := c.Read(0x1000, mem.Word, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(latency).To(Equal(uint64(1)))
		Expect(c.Stats().Hits).To(Equal(uint64(1)))
	})

	Describe("Config", func() {
		It("should validate the default L1 geometry", func() {
			Expect(cache.DefaultL1Config().Validate()).To(Succeed())
		})

		It("should reject block sizes that are not powers of two", func() {
			cfg := cache.DefaultL1Config()
			cfg.BlockSize = 48
			Expect(cfg.Validate()).NotTo(Succeed())
		})
	})
})

package wire_test

import (
	"testing"

	. "github.com/sid3xyz/slircd-ng/internal/wire"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestWire(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "wire pool suite")
}

var _ = Describe("BufferPool", func() {

	var pool *BufferPool

	BeforeEach(func() {
		pool = NewBufferPool(1)
	})

	Describe("getting a buffer", func() {
		Context("when the free list is empty", func() {
			It("returns a freshly allocated buffer", func() {
				buf := pool.Get()
				Expect(buf).ShouldNot(BeNil())
				Expect(buf.Len()).Should(Equal(0))
			})
		})

		Context("when the free list has a recycled buffer", func() {
			It("returns the recycled buffer instead of allocating", func() {
				recycled := pool.Get()
				recycled.WriteString("stale data")
				pool.Put(recycled)

				buf := pool.Get()
				Expect(buf).Should(BeIdenticalTo(recycled))
			})
		})
	})

	Describe("putting a buffer back", func() {
		It("resets the buffer's contents", func() {
			buf := pool.Get()
			buf.WriteString("irc.example.net PRIVMSG #ops :hello")
			pool.Put(buf)

			Expect(buf.Len()).Should(Equal(0))
		})

		Context("when the pool is already full", func() {
			It("drops the extra buffer without blocking", func() {
				first := pool.Get()
				second := pool.Get()

				pool.Put(first)
				Expect(func() { pool.Put(second) }).ShouldNot(Panic())
			})
		})
	})
})

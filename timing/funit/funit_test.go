package funit

import (
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/minorsim/insts"
)

func TestFunit(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Functional Unit Suite")
}

var _ = Describe("Config", func() {
	It("should validate the default configuration", func() {
		Expect(DefaultConfig().Validate()).To(Succeed())
	})

	It("should build one desc per configured unit", func() {
		descs, err := DefaultConfig().Descs()
		Expect(err).ToNot(HaveOccurred())
		Expect(descs).To(HaveLen(len(DefaultConfig().Units)))
	})

	It("should reject zero latency", func() {
		c := &Config{Units: []UnitConfig{
			{OpClasses: []string{"IntAlu"}, Latency: 0},
		}}
		Expect(c.Validate()).ToNot(Succeed())
	})

	It("should reject unknown op classes", func() {
		c := &Config{Units: []UnitConfig{
			{OpClasses: []string{"Quantum"}, Latency: 1},
		}}
		Expect(c.Validate()).ToNot(Succeed())
	})

	It("should reject forwarding suppression of unknown units", func() {
		c := &Config{Units: []UnitConfig{
			{OpClasses: []string{"IntAlu"}, Latency: 1, CantForwardFrom: []int{5}},
		}}
		Expect(c.Validate()).ToNot(Succeed())
	})

	It("should round-trip through a file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "units.json")
		Expect(DefaultConfig().SaveConfig(path)).To(Succeed())

		loaded, err := LoadConfig(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(loaded.Units).To(HaveLen(len(DefaultConfig().Units)))
		Expect(loaded.Validate()).To(Succeed())
	})
})

var _ = Describe("Desc", func() {
	It("should report the classes it provides", func() {
		d := &Desc{OpClasses: []insts.OpClass{insts.OpClassIntAlu, insts.OpClassIntMult}, Latency: 1}
		Expect(d.Provides(insts.OpClassIntAlu)).To(BeTrue())
		Expect(d.Provides(insts.OpClassFloat)).To(BeFalse())
	})

	It("should return the first matching timing override", func() {
		d := &Desc{
			OpClasses: []insts.OpClass{insts.OpClassIntAlu},
			Latency:   1,
			Timings: []Timing{
				{Mnemonics: []string{"madd"}, ExtraCommitLat: 2},
				{Mnemonics: []string{"madd", "msub"}, ExtraCommitLat: 5},
			},
		}

		timing := d.FindTiming(&insts.StaticInst{Mnemonic: "madd"})
		Expect(timing).ToNot(BeNil())
		Expect(timing.ExtraCommitLat).To(Equal(uint64(2)))

		Expect(d.FindTiming(&insts.StaticInst{Mnemonic: "add"})).To(BeNil())
	})
})

var _ = Describe("Pipeline", func() {
	makeInst := func(execSeq insts.SeqNum) *insts.DynInst {
		return &insts.DynInst{
			ID:     insts.InstID{StreamSeq: 1, ExecSeq: execSeq},
			Static: &insts.StaticInst{Mnemonic: "add", Class: insts.OpClassIntAlu},
		}
	}

	It("should expose a pushed instruction at the tail after latency advances", func() {
		p := NewPipeline(&Desc{OpClasses: []insts.OpClass{insts.OpClassIntAlu}, Latency: 3}, 0)
		inst := makeInst(1)

		p.Push(inst)
		Expect(p.AlreadyPushed()).To(BeTrue())

		p.Advance()
		Expect(p.Front().IsBubble()).To(BeTrue())
		p.Advance()
		Expect(p.Front().IsBubble()).To(BeTrue())
		p.Advance()
		Expect(p.Front()).To(BeIdenticalTo(inst))
		Expect(p.Stalled).To(BeTrue())
	})

	It("should hold the tail while stalled", func() {
		p := NewPipeline(&Desc{OpClasses: []insts.OpClass{insts.OpClassIntAlu}, Latency: 1}, 0)
		inst := makeInst(1)

		p.Push(inst)
		p.Advance()
		Expect(p.Front()).To(BeIdenticalTo(inst))

		p.Advance()
		p.Advance()
		Expect(p.Front()).To(BeIdenticalTo(inst))
		Expect(p.Stalled).To(BeTrue())
	})

	It("should accept a new instruction once the tail is popped", func() {
		p := NewPipeline(&Desc{OpClasses: []insts.OpClass{insts.OpClassIntAlu}, Latency: 1}, 0)
		first := makeInst(1)
		second := makeInst(2)

		p.Push(first)
		p.Advance()
		Expect(p.CanInsert()).To(BeFalse())

		Expect(p.Pop()).To(BeIdenticalTo(first))
		Expect(p.Stalled).To(BeFalse())
		Expect(p.CanInsert()).To(BeTrue())

		p.Push(second)
		p.Advance()
		Expect(p.Front()).To(BeIdenticalTo(second))
		Expect(p.Occupancy()).To(Equal(1))
	})

	It("should refuse same-cycle double insertion", func() {
		p := NewPipeline(&Desc{OpClasses: []insts.OpClass{insts.OpClassIntAlu}, Latency: 2}, 0)

		p.Push(makeInst(1))
		Expect(p.CanInsert()).To(BeFalse())

		p.Advance()
		Expect(p.CanInsert()).To(BeTrue())
	})
})

// Package funit models the fixed-latency functional-unit pipelines that
// execute instructions in the timing engine, together with their
// configuration: supported operation classes, base latency, and per-opcode
// timing overrides.
package funit

import "github.com/sarchlab/minorsim/insts"

// Timing is a per-opcode timing override within a unit. The first Timing
// whose mnemonic set contains the instruction applies.
type Timing struct {
	// Mnemonics selects the instructions the override applies to.
	Mnemonics []string

	// Suppress prevents the unit from accepting the instruction at all.
	Suppress bool

	// ExtraCommitLat delays retirement by a fixed number of cycles after
	// the instruction leaves the unit. ExtraCommitLatFn, if set, is
	// evaluated once at commit time and added on top.
	ExtraCommitLat   uint64
	ExtraCommitLatFn func(ctx insts.ExecContext) uint64

	// ExtraAssumedLat extends the scoreboard's projected availability of
	// the destination registers without delaying retirement.
	ExtraAssumedLat uint64

	// SrcRegsRelativeLats gives, per source operand position, how many
	// cycles before the producer's nominal retire time the operand may be
	// read when forwarding applies. The last entry repeats for further
	// operands.
	SrcRegsRelativeLats []uint64
}

// Matches reports whether the override applies to the instruction.
func (t *Timing) Matches(si *insts.StaticInst) bool {
	for _, m := range t.Mnemonics {
		if m == si.Mnemonic {
			return true
		}
	}
	return false
}

// Desc is the immutable description of one functional unit.
type Desc struct {
	// OpClasses is the set of operation classes the unit can execute.
	OpClasses []insts.OpClass

	// Latency is the unit's pipeline depth in cycles.
	Latency uint64

	// CantForwardFromFUIndices lists producing units whose results this
	// unit cannot receive early through forwarding.
	CantForwardFromFUIndices []int

	// Timings are per-opcode overrides, first match wins.
	Timings []Timing
}

// Provides reports whether the unit can execute the operation class.
func (d *Desc) Provides(class insts.OpClass) bool {
	for _, c := range d.OpClasses {
		if c == class {
			return true
		}
	}
	return false
}

// FindTiming returns the first timing override matching the instruction, or
// nil.
func (d *Desc) FindTiming(si *insts.StaticInst) *Timing {
	for i := range d.Timings {
		if d.Timings[i].Matches(si) {
			return &d.Timings[i]
		}
	}
	return nil
}

// CantForwardFrom reports whether results produced by the given unit index
// are barred from early forwarding into this unit.
func (d *Desc) CantForwardFrom(fuIndex int) bool {
	for _, i := range d.CantForwardFromFUIndices {
		if i == fuIndex {
			return true
		}
	}
	return false
}

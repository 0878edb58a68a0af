package funit

import "github.com/sarchlab/minorsim/insts"

// Pipeline is one functional unit: a self-stalling, fixed-latency staged
// pipeline. Instructions pushed at cycle T reach the tail stage after
// Latency advances. When an instruction occupies the tail, the pipeline
// stalls itself; the commit engine clears Stalled once it has retired the
// tail instruction, letting the next Advance discard it and move everything
// up a stage.
type Pipeline struct {
	// Desc is the unit's immutable description.
	Desc *Desc

	// Index is the unit's position in the pool, used for deterministic
	// tie-breaking and forwarding suppression.
	Index int

	// Stalled freezes the pipeline while the tail instruction waits to
	// retire. Managed by the commit engine and by Advance.
	Stalled bool

	in        *insts.DynInst
	slots     []*insts.DynInst
	occupancy int
}

// NewPipeline builds a pipeline from its description. The description's
// latency must be >= 1 (enforced by Config.Validate).
func NewPipeline(desc *Desc, index int) *Pipeline {
	return &Pipeline{
		Desc:  desc,
		Index: index,
		slots: make([]*insts.DynInst, desc.Latency),
	}
}

// Provides reports whether the unit can execute the operation class.
func (p *Pipeline) Provides(class insts.OpClass) bool {
	return p.Desc.Provides(class)
}

// AlreadyPushed reports whether an instruction was inserted this cycle.
// At most one instruction enters a unit per cycle.
func (p *Pipeline) AlreadyPushed() bool { return p.in != nil }

// CanInsert reports whether the unit can accept an instruction this cycle.
// While not stalled, the next Advance vacates the first stage, so only a
// stall or a same-cycle push blocks insertion.
func (p *Pipeline) CanInsert() bool {
	return !p.Stalled && p.in == nil
}

// Push inserts an instruction at the head of the pipeline. Valid only when
// CanInsert.
func (p *Pipeline) Push(inst *insts.DynInst) {
	p.in = inst
	p.occupancy++
}

// Front returns the instruction at the tail stage, or the bubble if the
// tail is empty.
func (p *Pipeline) Front() *insts.DynInst {
	if tail := p.slots[len(p.slots)-1]; tail != nil {
		return tail
	}
	return insts.Bubble()
}

// Advance moves every staged instruction one cycle toward the tail. The
// tail stage is cleared first: by the time Advance runs, a tail instruction
// has either been retired by commit (which cleared Stalled) or the pipeline
// is stalled and nothing moves.
func (p *Pipeline) Advance() {
	last := len(p.slots) - 1

	if !p.Stalled {
		if p.slots[last] != nil {
			p.slots[last] = nil
			p.occupancy--
		}
		for i := last; i > 0; i-- {
			p.slots[i] = p.slots[i-1]
		}
		p.slots[0] = p.in
		p.in = nil
	}

	if p.slots[last] != nil {
		p.Stalled = true
	}
}

// Pop removes and returns the tail instruction, clearing any stall it
// caused. Returns nil when the tail is empty.
func (p *Pipeline) Pop() *insts.DynInst {
	last := len(p.slots) - 1
	inst := p.slots[last]
	if inst != nil {
		p.slots[last] = nil
		p.occupancy--
		p.Stalled = false
	}
	return inst
}

// Occupancy returns the number of instructions in the unit, including one
// inserted this cycle.
func (p *Pipeline) Occupancy() int { return p.occupancy }

package insts

import "fmt"

// DynInst is one dynamic instruction flowing through the engine. It is
// created by the fetch/decode side, decorated with scheduling state by the
// issue scheduler, and retired (or discarded) by the commit engine.
type DynInst struct {
	// ID is the instruction's position in the fetch/execute streams.
	ID InstID

	// Static is the decoded instruction. Nil for bubbles and for fault
	// "instructions" that carry only a Fault.
	Static *StaticInst

	// PC is the fetch-time program-counter state.
	PC PCState

	// PredictedTaken and PredictedTarget record the fetch-time branch
	// prediction.
	PredictedTaken  bool
	PredictedTarget PCState

	// Fault is a fault captured before execute (fetch or decode). An
	// instruction with a Fault and no Static is a pure fault marker.
	Fault *Fault

	// Scheduling state owned by the engine.

	// FUIndex is the functional unit the instruction was issued to.
	FUIndex int

	// ExtraCommitDelay is a fixed number of cycles the instruction must
	// wait at commit beyond its pipeline latency. ExtraCommitDelayFn, if
	// set, is evaluated exactly once at commit time and folded in.
	ExtraCommitDelay   uint64
	ExtraCommitDelayFn func(ctx ExecContext) uint64

	// MinimumCommitCycle gates retirement until the given cycle.
	MinimumCommitCycle uint64

	// InLSQ marks a memory instruction whose access has been sent to the
	// memory queue.
	InLSQ bool

	// CanEarlyIssue allows a memory instruction to start its access
	// before reaching the head of the in-flight queue. InstToWaitFor is
	// the exec sequence number of the youngest instruction it depends on.
	CanEarlyIssue bool
	InstToWaitFor SeqNum
}

// bubble is the shared "no instruction" sentinel. It is immutable and never
// reallocated.
var bubble = &DynInst{}

// Bubble returns the shared empty-slot instruction.
func Bubble() *DynInst { return bubble }

// IsBubble reports whether the instruction is the empty-slot sentinel.
func (d *DynInst) IsBubble() bool { return d == bubble }

// IsFault reports whether this is a fault marker rather than a real
// instruction.
func (d *DynInst) IsFault() bool { return d.Static == nil && d.Fault != nil }

// IsInst reports whether this is a real decoded instruction.
func (d *DynInst) IsInst() bool { return d.Static != nil }

// IsMemRef reports whether the instruction references memory.
func (d *DynInst) IsMemRef() bool { return d.Static != nil && d.Static.IsMemRef() }

// IsNoCost reports whether the instruction executes in zero cycles and
// bypasses the functional units.
func (d *DynInst) IsNoCost() bool { return d.Static != nil && d.Static.IsNoCost }

// IsLastOpInInst reports whether the instruction ends a macro-instruction.
func (d *DynInst) IsLastOpInInst() bool {
	if d.Static == nil {
		return false
	}
	return !d.Static.IsMicroop || d.Static.IsLastMicroop
}

func (d *DynInst) String() string {
	switch {
	case d.IsBubble():
		return "-"
	case d.IsFault():
		return fmt.Sprintf("inst %s %s pc: %s", d.ID, d.Fault, d.PC)
	default:
		return fmt.Sprintf("inst %s %s pc: %s", d.ID, d.Static, d.PC)
	}
}

package execute

import (
	"fmt"

	"github.com/sarchlab/minorsim/insts"
)

// BranchReason classifies a control-flow outcome at commit time.
type BranchReason int

const (
	// NoBranch means execution continued sequentially as expected.
	NoBranch BranchReason = iota
	// CorrectlyPredictedBranch means the instruction branched to exactly
	// the predicted target. Fetch keeps its stream.
	CorrectlyPredictedBranch
	// UnpredictedBranch means the instruction branched but no prediction
	// had been made for it.
	UnpredictedBranch
	// BadlyPredictedBranch means a prediction was made but the
	// instruction did not branch at all.
	BadlyPredictedBranch
	// BadlyPredictedBranchTarget means the instruction branched but to a
	// different target than predicted.
	BadlyPredictedBranchTarget
	// Interrupt redirects fetch to an interrupt vector.
	Interrupt
	// SuspendThread redirects fetch after the thread suspended itself.
	SuspendThread
	// HaltFetch stops fetch entirely, used while draining.
	HaltFetch
	// WakeupFetch restarts fetch after a suspension or drain.
	WakeupFetch
)

var branchReasonNames = map[BranchReason]string{
	NoBranch:                   "NoBranch",
	CorrectlyPredictedBranch:   "CorrectlyPredictedBranch",
	UnpredictedBranch:          "UnpredictedBranch",
	BadlyPredictedBranch:       "BadlyPredictedBranch",
	BadlyPredictedBranchTarget: "BadlyPredictedBranchTarget",
	Interrupt:                  "Interrupt",
	SuspendThread:              "SuspendThread",
	HaltFetch:                  "HaltFetch",
	WakeupFetch:                "WakeupFetch",
}

func (r BranchReason) String() string {
	if name, ok := branchReasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("BranchReason(%d)", int(r))
}

// IsStreamChange reports whether the outcome starts a new fetch stream.
// Correctly predicted branches keep the current stream.
func (r BranchReason) IsStreamChange() bool {
	return r != NoBranch && r != CorrectlyPredictedBranch
}

// IsBranch reports whether the outcome is an actual branch misprediction
// outcome rather than a control message to fetch.
func (r BranchReason) IsBranch() bool {
	switch r {
	case CorrectlyPredictedBranch, UnpredictedBranch,
		BadlyPredictedBranch, BadlyPredictedBranchTarget:
		return true
	}
	return false
}

// ClassifyBranch compares what an instruction actually did against what was
// predicted for it. mustBranch is true when the post-execute thread PC does
// not equal the instruction's own PC, i.e. execution did not fall through.
func ClassifyBranch(inst *insts.DynInst, mustBranch bool, target insts.PCState) BranchReason {
	switch {
	case !mustBranch && !inst.PredictedTaken:
		return NoBranch
	case mustBranch && !inst.PredictedTaken:
		return UnpredictedBranch
	case !mustBranch && inst.PredictedTaken:
		return BadlyPredictedBranch
	case target.Equal(inst.PredictedTarget):
		return CorrectlyPredictedBranch
	default:
		return BadlyPredictedBranchTarget
	}
}

// BranchData is a fetch redirect raised at commit. NewStreamSeq names the
// stream all in-flight instructions are checked against; instructions from
// older streams are squashed.
type BranchData struct {
	Reason        BranchReason
	ThreadID      int
	NewStreamSeq  insts.SeqNum
	NewPredSeq    insts.SeqNum
	Target        insts.PCState
	Inst          *insts.DynInst
}

// IsBubble reports whether the redirect slot is empty.
func (b *BranchData) IsBubble() bool {
	return b == nil || b.Reason == NoBranch && b.Inst == nil
}

func (b *BranchData) String() string {
	if b.IsBubble() {
		return "branch(bubble)"
	}
	return fmt.Sprintf("branch(%v stream=%d pred=%d target=%v)",
		b.Reason, b.NewStreamSeq, b.NewPredSeq, b.Target)
}

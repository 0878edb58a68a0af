package execute

import (
	"github.com/sarchlab/minorsim/insts"
)

const invalidFUIndex = -1

// Scoreboard tracks in-flight register writes over the flat register index
// space. It answers whether an instruction's source operands will be ready,
// taking result forwarding latencies into account.
type Scoreboard struct {
	numResults       [insts.NumFlatRegs]int
	numUnpredictable [insts.NumFlatRegs]int
	returnCycle      [insts.NumFlatRegs]uint64
	writingInst      [insts.NumFlatRegs]insts.SeqNum
	fuIndex          [insts.NumFlatRegs]int
}

// NewScoreboard returns an empty scoreboard.
func NewScoreboard() *Scoreboard {
	sb := &Scoreboard{}
	for i := range sb.fuIndex {
		sb.fuIndex[i] = invalidFUIndex
	}
	return sb
}

// MarkupInstDests records the instruction's destination registers as busy
// until retireCycle. Unpredictable results (memory loads with no assumed
// latency) additionally block dependents until explicitly cleared.
func (sb *Scoreboard) MarkupInstDests(inst *insts.DynInst, retireCycle uint64, unpredictable bool) {
	for _, reg := range inst.Static.Dests {
		index, ok := reg.Flatten()
		if !ok {
			continue
		}

		sb.numResults[index]++
		if unpredictable {
			sb.numUnpredictable[index]++
		}
		sb.returnCycle[index] = retireCycle
		sb.writingInst[index] = inst.ID.ExecSeq
		sb.fuIndex[index] = inst.FUIndex
	}
}

// ClearInstDests releases the instruction's destination registers. Pass
// clearUnpredictable for memory references so the unpredictable-result
// count placed at issue is released together with the result count.
func (sb *Scoreboard) ClearInstDests(inst *insts.DynInst, clearUnpredictable bool) {
	for _, reg := range inst.Static.Dests {
		index, ok := reg.Flatten()
		if !ok {
			continue
		}

		if clearUnpredictable && sb.numUnpredictable[index] > 0 {
			sb.numUnpredictable[index]--
		}

		if sb.numResults[index] > 0 {
			sb.numResults[index]--
		}
		if sb.numResults[index] == 0 {
			sb.returnCycle[index] = 0
			sb.writingInst[index] = 0
			sb.fuIndex[index] = invalidFUIndex
		}
	}
}

// CanInstIssue reports whether all of the instruction's source registers
// will have values available, possibly forwarded, by the cycles given in
// srcRelativeLats. cantForwardFrom tells whether the candidate unit can
// accept forwarded results from the unit holding the newest write.
func (sb *Scoreboard) CanInstIssue(
	inst *insts.DynInst,
	srcRelativeLats []uint64,
	cantForwardFrom func(fuIndex int) bool,
	cycle uint64,
) bool {
	for i, reg := range inst.Static.Srcs {
		index, ok := reg.Flatten()
		if !ok {
			continue
		}

		var relativeLat uint64
		if len(srcRelativeLats) > 0 {
			if i >= len(srcRelativeLats) {
				relativeLat = srcRelativeLats[len(srcRelativeLats)-1]
			} else {
				relativeLat = srcRelativeLats[i]
			}
		}

		if sb.numUnpredictable[index] != 0 {
			return false
		}

		if sb.numResults[index] != 0 {
			cantForward := sb.fuIndex[index] != invalidFUIndex &&
				cantForwardFrom != nil && cantForwardFrom(sb.fuIndex[index])
			if cantForward || cycle+relativeLat < sb.returnCycle[index] {
				return false
			}
		}
	}

	return true
}

// ExecSeqNumToWaitFor returns the exec sequence number of the newest
// in-flight write to any of the instruction's source registers, or 0 if
// none. Used to order early-issued memory operations behind producers.
func (sb *Scoreboard) ExecSeqNumToWaitFor(inst *insts.DynInst) insts.SeqNum {
	var ret insts.SeqNum
	for _, reg := range inst.Static.Srcs {
		index, ok := reg.Flatten()
		if !ok {
			continue
		}
		if sb.numResults[index] != 0 && sb.writingInst[index] > ret {
			ret = sb.writingInst[index]
		}
	}
	return ret
}

package execute

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/minorsim/emu"
	"github.com/sarchlab/minorsim/insts"
)

// issue moves instructions from the input buffer into functional units, in
// order. The first instruction that cannot issue blocks everything behind
// it. With onlyMicroops set, only micro-ops continuing an already started
// macro-instruction may issue. Returns the number of instructions issued,
// discards included.
func (e *Engine) issue(onlyMicroops bool) int {
	numIssued := 0
	numMemIssued := 0

	for len(e.input) > 0 && numIssued < e.issueLimit {
		inst := e.input[0]
		issued := false
		discarded := false

		switch {
		case inst.IsBubble():
			issued = true
			discarded = true
		case e.thread.Status() == emu.Suspended:
			e.log.WithField("inst", inst.String()).
				Debug("discarding inst from suspended thread")
			issued = true
			discarded = true
		case inst.ID.StreamSeq != e.streamSeq ||
			e.drainState == DrainAllInsts:
			e.log.WithFields(logrus.Fields{
				"inst":     inst.String(),
				"expected": e.streamSeq,
			}).Debug("discarding inst from stale stream")
			issued = true
			discarded = true
		case onlyMicroops && !(inst.IsInst() &&
			inst.Static.IsMicroop && !inst.Static.IsFirstMicroop):
			return numIssued
		default:
			if !e.inFlightInsts.CanPush() {
				return numIssued
			}
			if inst.IsMemRef() && numMemIssued >= e.memIssueLimit {
				return numIssued
			}
			if inst.IsFault() {
				// Faults carry no operation; they ride the in-flight
				// queue straight to commit.
				inst.FUIndex = e.noCostFUIndex
				issued = true
			} else {
				issued = e.tryIssueToFU(inst)
				if !issued {
					return numIssued
				}
			}
		}

		if issued && !discarded {
			e.registerIssued(inst)
			if inst.IsMemRef() {
				numMemIssued++
				e.stats.MemRefsIssued++
			}
			e.stats.InstsIssued++

			e.InvokeHook(sim.HookCtx{
				Domain: e,
				Pos:    HookPosInstIssue,
				Item:   inst,
			})
		}
		if discarded && !inst.IsBubble() {
			e.stats.OpsDiscarded++
		}

		e.input[0] = nil
		e.input = e.input[1:]
		numIssued++
	}

	return numIssued
}

// tryIssueToFU scans the unit pool in index order for a unit that can take
// the instruction this cycle. No-cost instructions bypass the pool.
func (e *Engine) tryIssueToFU(inst *insts.DynInst) bool {
	if inst.IsNoCost() {
		inst.FUIndex = e.noCostFUIndex
		return true
	}

	class := inst.Static.Class

	for _, fu := range e.fus {
		if !fu.Provides(class) {
			continue
		}
		if fu.AlreadyPushed() || fu.Stalled || !fu.CanInsert() {
			continue
		}

		timing := fu.Desc.FindTiming(inst.Static)
		if timing != nil && timing.Suppress {
			continue
		}

		var srcRelLats []uint64
		var extraCommitLat, extraAssumedLat uint64
		var extraCommitLatFn func(insts.ExecContext) uint64
		if timing != nil {
			srcRelLats = timing.SrcRegsRelativeLats
			extraCommitLat = timing.ExtraCommitLat
			extraCommitLatFn = timing.ExtraCommitLatFn
			extraAssumedLat = timing.ExtraAssumedLat
		}

		if !e.scoreboard.CanInstIssue(inst, srcRelLats, fu.Desc.CantForwardFrom, e.cycle) {
			continue
		}

		inst.FUIndex = fu.Index
		inst.ExtraCommitDelay = extraCommitLat
		inst.ExtraCommitDelayFn = extraCommitLatFn
		fu.Push(inst)

		retireAt := e.cycle + fu.Desc.Latency + extraCommitLat + extraAssumedLat
		unpredictable := inst.IsMemRef() && extraAssumedLat == 0
		e.scoreboard.MarkupInstDests(inst, retireAt, unpredictable)

		e.log.WithFields(logrus.Fields{
			"cycle": e.cycle,
			"inst":  inst.String(),
			"fu":    fu.Index,
		}).Debug("issued inst")

		return true
	}

	return false
}

// registerIssued enrolls an issued instruction into the in-flight queues
// and sets up memory ordering state.
func (e *Engine) registerIssued(inst *insts.DynInst) {
	if inst.IsNoCost() {
		// No-cost instructions carry no timing annotations and retire
		// as soon as they reach the head of the in-flight queue.
		e.scoreboard.MarkupInstDests(inst, e.cycle, false)
	}

	e.inFlightInsts.Push(inst)

	if inst.IsInst() && inst.Static.IsMemBarrier {
		e.mem.IssuedMemBarrierInst(inst)
	}

	if inst.IsMemRef() {
		inst.InstToWaitFor = e.scoreboard.ExecSeqNumToWaitFor(inst)
		if e.allowEarlyMemIssue {
			inst.CanEarlyIssue = true
			if barrier := e.mem.LastMemBarrier(); barrier > inst.InstToWaitFor {
				inst.InstToWaitFor = barrier
			}
		} else {
			inst.CanEarlyIssue = false
		}
		e.inFUMemInsts.Push(inst)
	}
}

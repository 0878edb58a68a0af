package execute

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/minorsim/emu"
	"github.com/sarchlab/minorsim/insts"
	"github.com/sarchlab/minorsim/timing/lsq"
)

// commit retires instructions in order from the head of the in-flight
// queue. Each iteration services one of three sources, in priority order:
// a memory response for the head, an early issue of the oldest in-FU
// memory reference, or the head arriving at its functional unit's tail.
//
// With onlyCommitMicroops set, commit only finishes the current macro-op.
// With discard set, everything is thrown away without architectural
// effect.
func (e *Engine) commit(onlyCommitMicroops, discard bool, branch *BranchData) *BranchData {
	numCommitted := 0
	numMemRefsCommitted := 0
	completedInst := true

	for !e.inFlightInsts.Empty() && completedInst && branch == nil &&
		numCommitted < e.commitLimit {

		if onlyCommitMicroops && e.lastCommitWasEndOfMacroop {
			break
		}

		headInst := e.inFlightInsts.Front()
		inst := headInst

		committedInst := false
		completedMemRef := false
		issuedMemRef := false
		earlyMemoryIssue := false
		tryToCommit := false
		completedInst = false
		var fault *insts.Fault

		discardInst := inst.ID.StreamSeq != e.streamSeq || discard

		if inst.IsFault() {
			tryToCommit = true
		} else {
			var memResponse *lsq.Response
			if inst.InLSQ {
				memResponse = e.mem.FindResponse(inst)
			}

			if memResponse != nil && numMemRefsCommitted < e.memCommitLimit {
				if discardInst {
					e.mem.PopResponse(memResponse)
				} else {
					fault, branch = e.handleMemResponse(inst, memResponse, branch)
					committedInst = true
					completedMemRef = true
					numMemRefsCommitted++
				}
				completedInst = true
			} else {
				if e.allowEarlyMemIssue && !discard &&
					e.mem.CanRequest() && !e.inFUMemInsts.Empty() {
					headMemRef := e.inFUMemInsts.Front()
					if headMemRef.CanEarlyIssue && !headMemRef.InLSQ &&
						headMemRef.ID.StreamSeq == e.streamSeq &&
						headMemRef.InstToWaitFor < inst.ID.ExecSeq {
						inst = headMemRef
						tryToCommit = true
						earlyMemoryIssue = true
					}
				}

				if !tryToCommit && !inst.InLSQ {
					if inst.FUIndex == e.noCostFUIndex {
						tryToCommit = true
					} else {
						fuInst := e.fus[inst.FUIndex].Front()
						if !fuInst.IsBubble() &&
							fuInst.ID.ExecSeq == inst.ID.ExecSeq {
							tryToCommit = true
						}
					}
				}
			}
		}

		if tryToCommit {
			discardInst = inst.ID.StreamSeq != e.streamSeq || discard

			if discardInst {
				completedInst = true
			} else {
				e.foldExtraCommitDelay(inst)

				if inst.MinimumCommitCycle > e.cycle {
					// Not allowed to retire yet.
				} else if inst.IsMemRef() &&
					e.mem.LastMemBarrier() != 0 &&
					e.mem.LastMemBarrier() < inst.ID.ExecSeq {
					// An older barrier is still outstanding.
				} else {
					completedInst, committedInst, issuedMemRef, fault, branch =
						e.commitInst(inst, earlyMemoryIssue, branch)
				}
			}
		}

		if !completedInst {
			break
		}

		if inst.IsMemRef() && e.inFUMemInsts.Front() == inst {
			e.inFUMemInsts.Pop()
		}

		if completedInst && !(issuedMemRef && fault == nil) {
			e.lastCommitWasEndOfMacroop = inst.IsFault() || inst.IsLastOpInInst()

			// Instructions leaving through the functional-unit tail also
			// leave the unit, unstalling it.
			if !inst.IsFault() && !completedMemRef && !inst.InLSQ &&
				inst.FUIndex != e.noCostFUIndex {
				fu := e.fus[inst.FUIndex]
				if front := fu.Front(); !front.IsBubble() &&
					front.ID.ExecSeq == inst.ID.ExecSeq {
					fu.Pop()
				}
			}

			if inst == headInst {
				e.inFlightInsts.Pop()
			}

			if !inst.IsFault() {
				e.scoreboard.ClearInstDests(inst, inst.IsMemRef())
			}

			if inst.Static != nil && inst.Static.IsMemBarrier {
				e.mem.CompleteMemBarrierInst(inst, committedInst)
			}
		}

		if issuedMemRef {
			inst.InLSQ = true
		}

		if committedInst {
			numCommitted++
			e.stats.OpsCommitted++
			if inst.IsLastOpInInst() || inst.IsFault() {
				e.stats.InstsCommitted++
			}
			if completedMemRef {
				if inst.Static.IsLoad {
					e.stats.LoadsCommitted++
				} else {
					e.stats.StoresCommitted++
				}
			}

			e.InvokeHook(sim.HookCtx{
				Domain: e,
				Pos:    HookPosInstCommit,
				Item:   inst,
			})
			e.log.WithFields(logrus.Fields{
				"cycle": e.cycle,
				"inst":  inst.String(),
			}).Debug("committed inst")
		} else if completedInst && !issuedMemRef && !inst.IsBubble() {
			e.stats.OpsDiscarded++
		}
	}

	return branch
}

// foldExtraCommitDelay converts an instruction's pending extra commit
// delay into an absolute earliest-commit cycle, evaluating the delay
// function at most once.
func (e *Engine) foldExtraCommitDelay(inst *insts.DynInst) {
	if inst.ExtraCommitDelayFn != nil {
		ctx := &execContext{
			thread:    e.thread,
			inst:      inst,
			mem:       e.mem,
			predicate: true,
		}
		extra := inst.ExtraCommitDelayFn(ctx)
		if extra > maxExtraCommitDelay {
			extra = maxExtraCommitDelay
		}
		inst.ExtraCommitDelay += extra
		inst.ExtraCommitDelayFn = nil
	}
	if inst.ExtraCommitDelay != 0 {
		inst.MinimumCommitCycle = e.cycle + inst.ExtraCommitDelay
		inst.ExtraCommitDelay = 0
	}
}

// commitInst retires one instruction: faults invoke their handler, memory
// references start their access, barriers wait for store-buffer space, and
// everything else executes then resolves its branch outcome.
func (e *Engine) commitInst(
	inst *insts.DynInst,
	earlyMemoryIssue bool,
	branch *BranchData,
) (completedInst, committed, issuedMemRef bool, fault *insts.Fault, outBranch *BranchData) {
	outBranch = branch

	if inst.IsFault() {
		fault = inst.Fault
		e.log.WithFields(logrus.Fields{
			"cycle": e.cycle,
			"fault": fault.Name,
		}).Debug("committing fault")

		e.thread.SetPCState(insts.NewPCState(fault.Vector))
		outBranch = e.updateBranchData(
			UnpredictedBranch, inst, e.thread.PCState(), outBranch)
		return true, true, false, fault, outBranch
	}

	if e.thread.Status() == emu.Suspended {
		e.log.WithField("inst", inst.String()).
			Debug("discarding inst from suspended thread")
		return true, false, false, nil, outBranch
	}

	if inst.IsMemRef() {
		var issued bool
		issued, fault, outBranch = e.executeMemRefInst(inst, earlyMemoryIssue, outBranch)
		// A fault while issuing to memory commits the instruction here
		// and now; a clean issue leaves it waiting for its response.
		return issued, issued && fault != nil, issued, fault, outBranch
	}

	if inst.Static.IsMemBarrier && !e.mem.CanPushIntoStoreBuffer() {
		// Barriers wait until the store buffer can take the stores they
		// order against.
		return false, false, false, nil, outBranch
	}

	ctx := newExecContext(e.thread, inst, e.mem)
	if inst.Static.Exec != nil {
		fault = inst.Static.Exec(ctx)
	}
	if fault != nil {
		fault.Invoke(ctx)
	}

	outBranch = e.tryToBranch(inst, fault, outBranch)

	if ctx.suspended {
		e.stats.FetchSuspends++
		// A pending interrupt reactivates the thread next cycle and
		// raises its own redirect, so fetch must not be put to sleep.
		if outBranch == nil && !e.interruptPending() {
			outBranch = e.updateBranchData(
				SuspendThread, inst, e.thread.PCState(), outBranch)
		}
	}

	return true, true, false, fault, outBranch
}

// executeMemRefInst starts a memory access for the instruction. Faults
// raised while issuing early are deferred: the instruction loses its
// early-issue right and faults again, visibly, at its unit's tail.
func (e *Engine) executeMemRefInst(
	inst *insts.DynInst,
	earlyMemoryIssue bool,
	branch *BranchData,
) (issued bool, fault *insts.Fault, outBranch *BranchData) {
	outBranch = branch

	if !e.mem.CanRequest() {
		return false, nil, outBranch
	}

	ctx := newExecContext(e.thread, inst, e.mem)
	if inst.Static.InitiateAcc != nil {
		fault = inst.Static.InitiateAcc(ctx)
	}

	if fault != nil {
		if earlyMemoryIssue {
			inst.CanEarlyIssue = false
			return false, nil, outBranch
		}
		fault.Invoke(ctx)
		outBranch = e.tryToBranch(inst, fault, outBranch)
		return true, fault, outBranch
	}

	if !ctx.initiated {
		// The predicate failed before any access was started; complete
		// the instruction through a packetless response.
		e.mem.PushFailedRequest(inst)
	}

	e.log.WithFields(logrus.Fields{
		"cycle": e.cycle,
		"inst":  inst.String(),
		"early": earlyMemoryIssue,
	}).Debug("issued mem ref to memory")

	return true, nil, outBranch
}

// handleMemResponse finishes a memory reference whose access completed.
func (e *Engine) handleMemResponse(
	inst *insts.DynInst,
	resp *lsq.Response,
	branch *BranchData,
) (*insts.Fault, *BranchData) {
	var fault *insts.Fault

	if resp.NeedsToBeSentToStoreBuffer() {
		e.mem.SendStoreToStoreBuffer(resp)
	}

	ctx := newExecContext(e.thread, inst, e.mem)

	switch {
	case resp.Error:
		e.log.WithField("inst", inst.String()).
			Fatal("memory system returned an error response for a committed access")
	case resp.Fault != nil:
		fault = resp.Fault
		fault.Invoke(ctx)
	case resp.Packet == nil:
		// Failed request, no architectural effect.
	default:
		if inst.Static.CompleteAcc != nil {
			fault = inst.Static.CompleteAcc(resp.Packet, ctx)
		}
		if fault != nil {
			fault.Invoke(ctx)
		}
	}

	e.mem.PopResponse(resp)

	branch = e.tryToBranch(inst, fault, branch)
	return fault, branch
}

// tryToBranch compares what the instruction did to the program counter
// against what fetch predicted, advances the thread past the instruction,
// and raises a redirect when fetch guessed wrong.
func (e *Engine) tryToBranch(
	inst *insts.DynInst,
	fault *insts.Fault,
	branch *BranchData,
) *BranchData {
	pcBefore := inst.PC
	target := e.thread.PCState()

	forceBranch := e.thread.Status() != emu.Suspended &&
		inst.IsLastOpInInst() &&
		inst.Static.IsSerializeAfter

	mustBranch := !pcBefore.Equal(target) || fault != nil || forceBranch

	if fault == nil {
		target = inst.Static.AdvancePC(target)
		e.thread.SetPCState(target)
	}

	var reason BranchReason
	if forceBranch {
		reason = UnpredictedBranch
	} else {
		reason = ClassifyBranch(inst, mustBranch, target)
	}

	if reason.IsBranch() {
		e.stats.BranchesResolved++
		if reason != CorrectlyPredictedBranch {
			e.stats.BranchMispredicts++
		}
	}

	return e.updateBranchData(reason, inst, target, branch)
}

// Package execute implements the execute and commit engine of an in-order
// pipeline timing model. Instructions arrive decoded in fetch order, issue
// in order into a pool of fixed-latency functional units, and retire
// strictly in order. The engine resolves branches at commit, raising fetch
// redirects that squash in-flight instructions from stale streams.
package execute

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/minorsim/emu"
	"github.com/sarchlab/minorsim/insts"
	"github.com/sarchlab/minorsim/timing/funit"
)

// Hook positions an Engine reports progress at. The hook item is the
// *insts.DynInst concerned, or the *BranchData for redirects.
var (
	HookPosInstIssue  = &sim.HookPos{Name: "InstIssue"}
	HookPosInstCommit = &sim.HookPos{Name: "InstCommit"}
	HookPosRedirect   = &sim.HookPos{Name: "Redirect"}
)

// DrainState tracks progress through a drain request.
type DrainState int

const (
	// NotDraining is normal operation.
	NotDraining DrainState = iota
	// DrainCurrentInst commits only until the current macro-op finishes.
	DrainCurrentInst
	// DrainHaltFetch raises a fetch-halting redirect.
	DrainHaltFetch
	// DrainAllInsts discards everything still in flight.
	DrainAllInsts
)

func (s DrainState) String() string {
	switch s {
	case NotDraining:
		return "NotDraining"
	case DrainCurrentInst:
		return "DrainCurrentInst"
	case DrainHaltFetch:
		return "DrainHaltFetch"
	case DrainAllInsts:
		return "DrainAllInsts"
	}
	return fmt.Sprintf("DrainState(%d)", int(s))
}

// Commit-time extra delays evaluated from a timing function are clamped so
// a misconfigured function cannot wedge retirement.
const maxExtraCommitDelay = 127

// Engine is the execute/commit stage. It owns the functional units, the
// scoreboard, and the in-flight instruction queues, and drives one thread.
type Engine struct {
	sim.HookableBase

	thread *emu.Thread
	mem    MemQueue
	intc   emu.InterruptController
	log    *logrus.Logger

	fus           []*funit.Pipeline
	noCostFUIndex int

	issueLimit     int
	memIssueLimit  int
	commitLimit    int
	memCommitLimit int

	inputBufferCap     int
	allowEarlyMemIssue bool

	input         []*insts.DynInst
	inFlightInsts *InstQueue
	inFUMemInsts  *InstQueue
	scoreboard    *Scoreboard

	cycle             uint64
	streamSeq         insts.SeqNum
	lastPredictionSeq insts.SeqNum

	lastCommitWasEndOfMacroop bool
	drainState                DrainState

	pendingBranch *BranchData

	stats Statistics
}

// Option configures an Engine.
type Option func(*Engine)

// WithFunctionalUnits replaces the default functional-unit pool.
func WithFunctionalUnits(descs []*funit.Desc) Option {
	return func(e *Engine) {
		e.fus = e.fus[:0]
		for i, d := range descs {
			e.fus = append(e.fus, funit.NewPipeline(d, i))
		}
	}
}

// WithIssueLimit caps instructions issued per cycle.
func WithIssueLimit(n int) Option {
	return func(e *Engine) { e.issueLimit = n }
}

// WithMemoryIssueLimit caps memory references issued per cycle.
func WithMemoryIssueLimit(n int) Option {
	return func(e *Engine) { e.memIssueLimit = n }
}

// WithCommitLimit caps instructions committed per cycle.
func WithCommitLimit(n int) Option {
	return func(e *Engine) { e.commitLimit = n }
}

// WithMemoryCommitLimit caps memory responses committed per cycle.
func WithMemoryCommitLimit(n int) Option {
	return func(e *Engine) { e.memCommitLimit = n }
}

// WithInputBufferSize sets how many decoded instructions the engine buffers.
func WithInputBufferSize(n int) Option {
	return func(e *Engine) { e.inputBufferCap = n }
}

// WithInFlightQueueSize sets the capacity of the in-flight queue.
func WithInFlightQueueSize(n int) Option {
	return func(e *Engine) {
		e.inFlightInsts = NewInstQueue(n)
		e.inFUMemInsts = NewInstQueue(n)
	}
}

// WithEarlyMemIssue enables or disables issuing memory references to the
// memory queue before they reach the head of the in-flight queue.
func WithEarlyMemIssue(enable bool) Option {
	return func(e *Engine) { e.allowEarlyMemIssue = enable }
}

// WithInterruptController attaches an interrupt source.
func WithInterruptController(intc emu.InterruptController) Option {
	return func(e *Engine) { e.intc = intc }
}

// WithLogger replaces the default logger.
func WithLogger(log *logrus.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// NewEngine builds an engine driving the thread, with memory accesses going
// through mem.
func NewEngine(thread *emu.Thread, mem MemQueue, opts ...Option) (*Engine, error) {
	e := &Engine{
		thread:                    thread,
		mem:                       mem,
		log:                       logrus.StandardLogger(),
		issueLimit:                2,
		memIssueLimit:             1,
		commitLimit:               2,
		memCommitLimit:            1,
		inputBufferCap:            8,
		allowEarlyMemIssue:        true,
		scoreboard:                NewScoreboard(),
		streamSeq:                 insts.FirstStreamSeqNum,
		lastPredictionSeq:         insts.FirstPredictionSeqNum,
		lastCommitWasEndOfMacroop: true,
	}

	defaultDescs, err := funit.DefaultConfig().Descs()
	if err != nil {
		return nil, fmt.Errorf("failed to build default functional units: %w", err)
	}
	for i, d := range defaultDescs {
		e.fus = append(e.fus, funit.NewPipeline(d, i))
	}

	for _, opt := range opts {
		opt(e)
	}

	if thread == nil {
		return nil, fmt.Errorf("engine requires a thread")
	}
	if mem == nil {
		return nil, fmt.Errorf("engine requires a memory queue")
	}
	if len(e.fus) == 0 {
		return nil, fmt.Errorf("engine requires at least one functional unit")
	}
	if e.issueLimit < 1 || e.memIssueLimit < 1 {
		return nil, fmt.Errorf("issue limits must be >= 1 (%d, %d)",
			e.issueLimit, e.memIssueLimit)
	}
	if e.commitLimit < 1 || e.memCommitLimit < 1 {
		return nil, fmt.Errorf("commit limits must be >= 1 (%d, %d)",
			e.commitLimit, e.memCommitLimit)
	}
	if e.inputBufferCap < 1 {
		return nil, fmt.Errorf("input buffer size must be >= 1 (%d)",
			e.inputBufferCap)
	}

	if e.inFlightInsts == nil {
		// No-cost instructions hold in-flight slots without a unit stage,
		// so size for the whole unit pool plus a full input buffer.
		capacity := e.inputBufferCap
		for _, fu := range e.fus {
			capacity += int(fu.Desc.Latency)
		}
		e.inFlightInsts = NewInstQueue(capacity)
		e.inFUMemInsts = NewInstQueue(capacity)
	}

	for _, class := range []insts.OpClass{insts.OpClassMemRead, insts.OpClassMemWrite} {
		if !e.anyFUProvides(class) {
			e.log.Warnf("no functional unit provides %v, such instructions will never issue", class)
		}
	}

	e.noCostFUIndex = len(e.fus)

	return e, nil
}

func (e *Engine) anyFUProvides(class insts.OpClass) bool {
	for _, fu := range e.fus {
		if fu.Provides(class) {
			return true
		}
	}
	return false
}

// CanAccept reports whether the input buffer has space for another
// instruction.
func (e *Engine) CanAccept() bool {
	return len(e.input) < e.inputBufferCap
}

// PushInput hands a decoded instruction to the engine. The caller must
// check CanAccept first.
func (e *Engine) PushInput(inst *insts.DynInst) error {
	if !e.CanAccept() {
		return fmt.Errorf("input buffer overflow (%d insts)", len(e.input))
	}
	e.input = append(e.input, inst)
	return nil
}

// StreamSeq returns the fetch stream the engine currently expects.
func (e *Engine) StreamSeq() insts.SeqNum {
	return e.streamSeq
}

// Cycle returns the number of cycles evaluated so far.
func (e *Engine) Cycle() uint64 {
	return e.cycle
}

// Stats returns a copy of the accumulated counters.
func (e *Engine) Stats() Statistics {
	return e.stats
}

// TakeBranch returns and clears the redirect raised by the last cycle, or
// nil. The fetch side consumes this to steer and renumber its stream.
func (e *Engine) TakeBranch() *BranchData {
	b := e.pendingBranch
	e.pendingBranch = nil
	return b
}

// Evaluate advances the engine by one cycle: memory queue work, interrupt
// admission, commit, issue, then functional-unit advance.
func (e *Engine) Evaluate() {
	e.cycle++
	e.stats.Cycles++

	e.mem.Step()

	if e.pendingBranch != nil {
		// Last cycle's redirect has not been consumed; committing or
		// issuing now could raise another and overwrite it.
		e.stats.ActiveCycles++
		return
	}

	branch := e.checkInterrupts(nil)

	numIssued := 0
	if branch == nil {
		switch e.drainState {
		case NotDraining:
			// A pending interrupt that cannot be admitted yet throttles
			// commit to the rest of the current macro-op, so the engine
			// reaches an instruction boundary as soon as possible.
			branch = e.commit(e.interruptPending(), false, branch)
		case DrainCurrentInst:
			if e.lastCommitWasEndOfMacroop {
				e.setDrainState(DrainHaltFetch)
			} else {
				// Fetch is about to halt; redirects raised by this
				// commit have no stream left to steer and are dropped.
				e.commit(true, false, nil)
				if e.lastCommitWasEndOfMacroop {
					e.setDrainState(DrainHaltFetch)
				}
			}
		case DrainHaltFetch:
			branch = e.updateBranchData(HaltFetch, nil, e.thread.PCState(), branch)
			e.setDrainState(DrainAllInsts)
		case DrainAllInsts:
			branch = e.commit(false, true, branch)
		}

		numIssued = e.issue(e.drainState == DrainCurrentInst)
	}

	// Memory references already handed to the memory queue leave their
	// functional unit as soon as they reach the tail.
	for _, fu := range e.fus {
		if front := fu.Front(); !front.IsBubble() && front.InLSQ {
			fu.Pop()
		}
	}

	fusBusy := false
	for _, fu := range e.fus {
		if fu.Occupancy() > 0 {
			fu.Advance()
		}
		if fu.Occupancy() > 0 {
			fusBusy = true
		}
	}

	if branch != nil {
		e.pendingBranch = branch
		e.InvokeHook(sim.HookCtx{
			Domain: e,
			Pos:    HookPosRedirect,
			Item:   branch,
		})
		e.log.WithFields(logrus.Fields{
			"cycle":  e.cycle,
			"reason": branch.Reason.String(),
			"stream": branch.NewStreamSeq,
		}).Debug("fetch redirect")
	}

	needToTick := numIssued > 0 || fusBusy ||
		!e.inFlightInsts.Empty() || len(e.input) > 0 ||
		e.mem.NeedsToTick() || branch != nil ||
		e.drainState != NotDraining
	if needToTick {
		e.stats.ActiveCycles++
	}
}

// NeedsToTick reports whether evaluating another cycle can make progress.
// Drivers may skip Evaluate calls while it is false.
func (e *Engine) NeedsToTick() bool {
	if len(e.input) > 0 || !e.inFlightInsts.Empty() || e.mem.NeedsToTick() ||
		e.pendingBranch != nil {
		return true
	}
	for _, fu := range e.fus {
		if fu.Occupancy() > 0 {
			return true
		}
	}
	if e.intc != nil && e.intc.Pending(e.thread.ID) {
		return true
	}
	return e.drainState == DrainCurrentInst || e.drainState == DrainHaltFetch
}

// checkInterrupts admits a pending interrupt, but only on a whole
// instruction boundary with no memory accesses in flight. Instructions
// still in the units belong to the redirected-away stream and are
// discarded when they reach commit.
func (e *Engine) checkInterrupts(branch *BranchData) *BranchData {
	if branch != nil || e.intc == nil || e.drainState != NotDraining {
		return branch
	}
	if !e.intc.Pending(e.thread.ID) || !e.isInbetweenInsts() {
		return branch
	}

	fault := e.intc.Take(e.thread.ID)
	if fault == nil {
		return branch
	}

	e.thread.Activate()
	e.thread.SetPCState(insts.NewPCState(fault.Vector))
	e.stats.InterruptsTaken++

	e.log.WithFields(logrus.Fields{
		"cycle": e.cycle,
		"fault": fault.Name,
	}).Debug("taking interrupt")

	return e.updateBranchData(Interrupt, nil, e.thread.PCState(), branch)
}

func (e *Engine) isInbetweenInsts() bool {
	return e.lastCommitWasEndOfMacroop &&
		!e.mem.AccessesInFlight()
}

func (e *Engine) interruptPending() bool {
	return e.intc != nil && e.intc.Pending(e.thread.ID)
}

// updateBranchData folds a branch outcome into the outgoing redirect.
// Stream-changing outcomes advance the expected stream so younger in-flight
// instructions are squashed.
func (e *Engine) updateBranchData(
	reason BranchReason,
	inst *insts.DynInst,
	target insts.PCState,
	branch *BranchData,
) *BranchData {
	if inst != nil {
		e.lastPredictionSeq = inst.ID.PredictionSeq
	}

	if reason == NoBranch {
		return branch
	}

	if reason.IsStreamChange() {
		e.streamSeq++
	}

	// Redirects without an instruction, such as interrupts and drain
	// halts, preserve the prediction sequence last seen at commit.
	predSeq := e.lastPredictionSeq

	return &BranchData{
		Reason:       reason,
		ThreadID:     e.thread.ID,
		NewStreamSeq: e.streamSeq,
		NewPredSeq:   predSeq,
		Target:       target,
		Inst:         inst,
	}
}

// Drain asks the engine to wind down: finish the current macro-op, halt
// fetch, then discard everything still in flight. Between whole
// instructions there is nothing to finish and fetch halts right away.
func (e *Engine) Drain() {
	if e.drainState != NotDraining {
		return
	}
	if e.isInbetweenInsts() {
		e.setDrainState(DrainHaltFetch)
	} else {
		e.setDrainState(DrainCurrentInst)
	}
}

// IsDrained reports whether a requested drain has fully completed.
func (e *Engine) IsDrained() bool {
	return e.drainState == DrainAllInsts &&
		e.inFlightInsts.Empty() &&
		len(e.input) == 0 &&
		e.mem.IsDrained()
}

// DrainResume returns to normal operation and raises a redirect waking
// fetch at the current PC.
func (e *Engine) DrainResume() {
	e.setDrainState(NotDraining)
	e.pendingBranch = e.updateBranchData(
		WakeupFetch, nil, e.thread.PCState(), nil)
}

// WakeupFetch restarts fetch for a thread that was suspended, without
// going through a drain.
func (e *Engine) WakeupFetch() {
	e.thread.Activate()
	e.pendingBranch = e.updateBranchData(
		WakeupFetch, nil, e.thread.PCState(), nil)
}

func (e *Engine) setDrainState(state DrainState) {
	e.log.WithFields(logrus.Fields{
		"cycle": e.cycle,
		"from":  e.drainState.String(),
		"to":    state.String(),
	}).Debug("drain state change")
	e.drainState = state
}

// CurrentDrainState returns the current drain progress.
func (e *Engine) CurrentDrainState() DrainState {
	return e.drainState
}

package execute

import (
	"github.com/sarchlab/minorsim/emu"
	"github.com/sarchlab/minorsim/insts"
	"github.com/sarchlab/minorsim/timing/lsq"
)

// MemQueue is the memory collaborator the engine issues loads and stores
// through. It is satisfied by lsq.Queue.
type MemQueue interface {
	CanRequest() bool
	PushRequest(inst *insts.DynInst, isLoad bool, addr uint64, size int, data []byte)
	PushFailedRequest(inst *insts.DynInst)
	FindResponse(inst *insts.DynInst) *lsq.Response
	PopResponse(resp *lsq.Response)
	SendStoreToStoreBuffer(resp *lsq.Response)
	CanPushIntoStoreBuffer() bool
	IssuedMemBarrierInst(inst *insts.DynInst)
	CompleteMemBarrierInst(inst *insts.DynInst, committed bool)
	LastMemBarrier() insts.SeqNum
	AccessesInFlight() bool
	NeedsToTick() bool
	IsDrained() bool
	Step()
}

// execContext adapts one instruction's execution onto the thread state and
// the memory queue. The thread PC is set to the instruction's own PC on
// construction so that execution observes a consistent program counter.
type execContext struct {
	thread    *emu.Thread
	inst      *insts.DynInst
	mem       MemQueue
	predicate bool
	suspended bool
	initiated bool
}

var _ insts.ExecContext = (*execContext)(nil)

func newExecContext(thread *emu.Thread, inst *insts.DynInst, mem MemQueue) *execContext {
	thread.SetPCState(inst.PC)
	return &execContext{
		thread:    thread,
		inst:      inst,
		mem:       mem,
		predicate: true,
	}
}

func (c *execContext) ReadReg(reg insts.Reg) uint64 {
	return c.thread.Regs.Read(reg)
}

func (c *execContext) WriteReg(reg insts.Reg, value uint64) {
	c.thread.Regs.Write(reg, value)
}

func (c *execContext) PCState() insts.PCState {
	return c.thread.PCState()
}

func (c *execContext) SetPCState(pc insts.PCState) {
	c.thread.SetPCState(pc)
}

func (c *execContext) ReadPredicate() bool {
	return c.predicate
}

func (c *execContext) SetPredicate(pred bool) {
	c.predicate = pred
}

func (c *execContext) InitiateMemRead(addr uint64, size int) {
	c.initiated = true
	if !c.predicate {
		c.mem.PushFailedRequest(c.inst)
		return
	}
	c.mem.PushRequest(c.inst, true, addr, size, nil)
}

func (c *execContext) InitiateMemWrite(addr uint64, size int, data []byte) {
	c.initiated = true
	if !c.predicate {
		c.mem.PushFailedRequest(c.inst)
		return
	}
	c.mem.PushRequest(c.inst, false, addr, size, data)
}

func (c *execContext) SuspendThread() {
	c.suspended = true
	c.thread.Suspend()
}

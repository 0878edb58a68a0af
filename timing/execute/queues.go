package execute

import (
	"github.com/sarchlab/minorsim/insts"
)

// InstQueue is a bounded FIFO of in-flight instructions, ordered by issue.
type InstQueue struct {
	insts    []*insts.DynInst
	capacity int
}

// NewInstQueue builds a queue holding at most capacity instructions.
func NewInstQueue(capacity int) *InstQueue {
	return &InstQueue{capacity: capacity}
}

// CanPush reports whether another instruction fits.
func (q *InstQueue) CanPush() bool {
	return len(q.insts) < q.capacity
}

// Push appends an instruction at the tail.
func (q *InstQueue) Push(inst *insts.DynInst) {
	q.insts = append(q.insts, inst)
}

// Front returns the oldest instruction, or nil when empty.
func (q *InstQueue) Front() *insts.DynInst {
	if len(q.insts) == 0 {
		return nil
	}
	return q.insts[0]
}

// Pop removes and returns the oldest instruction.
func (q *InstQueue) Pop() *insts.DynInst {
	if len(q.insts) == 0 {
		return nil
	}
	head := q.insts[0]
	q.insts[0] = nil
	q.insts = q.insts[1:]
	return head
}

// Len returns the number of queued instructions.
func (q *InstQueue) Len() int {
	return len(q.insts)
}

// Empty reports whether the queue holds no instructions.
func (q *InstQueue) Empty() bool {
	return len(q.insts) == 0
}

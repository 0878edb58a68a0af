package emu

import "github.com/sarchlab/minorsim/insts"

// Status is the run state of a hardware thread.
type Status int

const (
	// Active threads issue and commit normally.
	Active Status = iota
	// Suspended threads stall issue and commit until woken (typically by
	// an interrupt).
	Suspended
)

func (s Status) String() string {
	switch s {
	case Active:
		return "Active"
	case Suspended:
		return "Suspended"
	default:
		return "Status(?)"
	}
}

// Thread is the per-hardware-thread architectural context: the program
// counter, run status and register file.
type Thread struct {
	ID   int
	Regs *RegFile

	status Status
	pc     insts.PCState
}

// NewThread returns an active thread starting at the given PC.
func NewThread(id int, startPC uint64) *Thread {
	return &Thread{
		ID:     id,
		Regs:   &RegFile{},
		status: Active,
		pc:     insts.NewPCState(startPC),
	}
}

// Status returns the thread's run state.
func (t *Thread) Status() Status { return t.status }

// Suspend stalls the thread.
func (t *Thread) Suspend() { t.status = Suspended }

// Activate resumes the thread.
func (t *Thread) Activate() { t.status = Active }

// PCState returns the architectural program-counter state.
func (t *Thread) PCState() insts.PCState { return t.pc }

// SetPCState replaces the architectural program-counter state.
func (t *Thread) SetPCState(pc insts.PCState) { t.pc = pc }

package emu

import "github.com/sarchlab/minorsim/insts"

// InterruptController is the engine's view of the external interrupt
// machinery. The engine polls Pending every cycle and calls Take only when
// the pipeline is between whole instructions.
type InterruptController interface {
	// Pending reports whether an interrupt is waiting for the thread.
	Pending(threadID int) bool

	// Take acknowledges the interrupt and returns the fault that redirects
	// the thread to its handler; nil if no interrupt was actually waiting.
	Take(threadID int) *insts.Fault
}

// LineController is a minimal level-triggered interrupt controller: raised
// lines stay pending until taken.
type LineController struct {
	pending []*insts.Fault
}

// NewLineController returns an empty controller.
func NewLineController() *LineController {
	return &LineController{}
}

// Raise queues an interrupt described by the given fault.
func (c *LineController) Raise(f *insts.Fault) {
	c.pending = append(c.pending, f)
}

// Pending implements InterruptController.
func (c *LineController) Pending(threadID int) bool {
	return len(c.pending) > 0
}

// Take implements InterruptController.
func (c *LineController) Take(threadID int) *insts.Fault {
	if len(c.pending) == 0 {
		return nil
	}

	f := c.pending[0]
	c.pending = c.pending[1:]
	return f
}

package emu

import (
	"testing"

	"github.com/sarchlab/minorsim/insts"
)

func TestRegFileZeroReg(t *testing.T) {
	rf := &RegFile{}

	rf.Write(insts.IntReg(insts.ZeroRegIndex), 42)
	if got := rf.Read(insts.IntReg(insts.ZeroRegIndex)); got != 0 {
		t.Errorf("zero reg read = %d, want 0", got)
	}

	rf.Write(insts.IntReg(5), 42)
	if got := rf.Read(insts.IntReg(5)); got != 42 {
		t.Errorf("r5 read = %d, want 42", got)
	}
}

func TestRegFileClasses(t *testing.T) {
	rf := &RegFile{}

	rf.Write(insts.IntReg(1), 10)
	rf.Write(insts.FloatReg(1), 20)
	rf.Write(insts.CCReg(1), 30)
	rf.Write(insts.MiscReg(1), 40)

	if rf.Read(insts.IntReg(1)) != 10 ||
		rf.Read(insts.FloatReg(1)) != 20 ||
		rf.Read(insts.CCReg(1)) != 30 ||
		rf.Read(insts.MiscReg(1)) != 40 {
		t.Error("register classes must not alias")
	}
}

func TestThreadStatus(t *testing.T) {
	th := NewThread(0, 0x1000)

	if th.Status() != Active {
		t.Fatal("new thread must be active")
	}
	if th.PCState().PC != 0x1000 {
		t.Errorf("start PC = %#x, want 0x1000", th.PCState().PC)
	}

	th.Suspend()
	if th.Status() != Suspended {
		t.Error("thread must be suspended after Suspend")
	}

	th.Activate()
	if th.Status() != Active {
		t.Error("thread must be active after Activate")
	}
}

func TestLineControllerFIFO(t *testing.T) {
	c := NewLineController()

	if c.Pending(0) {
		t.Fatal("empty controller must not be pending")
	}
	if c.Take(0) != nil {
		t.Fatal("Take on empty controller must return nil")
	}

	first := &insts.Fault{Name: "irq0", Vector: 0x800}
	second := &insts.Fault{Name: "irq1", Vector: 0x900}
	c.Raise(first)
	c.Raise(second)

	if !c.Pending(0) {
		t.Fatal("controller must be pending after Raise")
	}
	if got := c.Take(0); got != first {
		t.Errorf("Take() = %v, want first raised", got)
	}
	if got := c.Take(0); got != second {
		t.Errorf("Take() = %v, want second raised", got)
	}
	if c.Pending(0) {
		t.Error("controller must drain after Take")
	}
}

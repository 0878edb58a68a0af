// Package emu provides the architectural-state collaborators of the timing
// engine: typed register storage, the per-thread context, and interrupt
// sources. The engine tracks register readiness itself; this package only
// holds values.
package emu

import "github.com/sarchlab/minorsim/insts"

// RegFile is the architectural register storage, split by register class.
type RegFile struct {
	Int   [insts.NumIntRegs]uint64
	Float [insts.NumFloatRegs]uint64
	CC    [insts.NumCCRegs]uint64
	Misc  [insts.NumMiscRegs]uint64
}

// Read returns the value of a register. The zero register reads as 0;
// out-of-range indices read as 0.
func (r *RegFile) Read(reg insts.Reg) uint64 {
	if reg.IsZero() {
		return 0
	}

	switch reg.Class {
	case insts.IntRegClass:
		if reg.Index >= 0 && reg.Index < insts.NumIntRegs {
			return r.Int[reg.Index]
		}
	case insts.FloatRegClass:
		if reg.Index >= 0 && reg.Index < insts.NumFloatRegs {
			return r.Float[reg.Index]
		}
	case insts.CCRegClass:
		if reg.Index >= 0 && reg.Index < insts.NumCCRegs {
			return r.CC[reg.Index]
		}
	case insts.MiscRegClass:
		if reg.Index >= 0 && reg.Index < insts.NumMiscRegs {
			return r.Misc[reg.Index]
		}
	}

	return 0
}

// Write sets the value of a register. Writes to the zero register and to
// out-of-range indices are dropped.
func (r *RegFile) Write(reg insts.Reg, v uint64) {
	if reg.IsZero() {
		return
	}

	switch reg.Class {
	case insts.IntRegClass:
		if reg.Index >= 0 && reg.Index < insts.NumIntRegs {
			r.Int[reg.Index] = v
		}
	case insts.FloatRegClass:
		if reg.Index >= 0 && reg.Index < insts.NumFloatRegs {
			r.Float[reg.Index] = v
		}
	case insts.CCRegClass:
		if reg.Index >= 0 && reg.Index < insts.NumCCRegs {
			r.CC[reg.Index] = v
		}
	case insts.MiscRegClass:
		if reg.Index >= 0 && reg.Index < insts.NumMiscRegs {
			r.Misc[reg.Index] = v
		}
	}
}

package insts

import "fmt"

// RegClass distinguishes the architectural register files.
type RegClass int

const (
	// IntRegClass is the general-purpose integer register file.
	IntRegClass RegClass = iota
	// FloatRegClass is the floating-point register file.
	FloatRegClass
	// CCRegClass is the condition-code register file.
	CCRegClass
	// MiscRegClass is the control/status register file.
	MiscRegClass
)

// Register file sizes. The scoreboard and register storage are sized from
// these.
const (
	NumIntRegs   = 32
	NumFloatRegs = 32
	NumCCRegs    = 8
	NumMiscRegs  = 16

	// NumFlatRegs is the size of the flattened register index space.
	NumFlatRegs = NumIntRegs + NumFloatRegs + NumCCRegs + NumMiscRegs

	// ZeroRegIndex is the integer register that always reads as zero.
	// Writes to it are dropped and it never participates in dependency
	// tracking.
	ZeroRegIndex = 31
)

// Reg names one architectural register.
type Reg struct {
	Class RegClass
	Index int
}

// IntReg returns the integer register with the given index.
func IntReg(index int) Reg { return Reg{Class: IntRegClass, Index: index} }

// FloatReg returns the floating-point register with the given index.
func FloatReg(index int) Reg { return Reg{Class: FloatRegClass, Index: index} }

// CCReg returns the condition-code register with the given index.
func CCReg(index int) Reg { return Reg{Class: CCRegClass, Index: index} }

// MiscReg returns the control/status register with the given index.
func MiscReg(index int) Reg { return Reg{Class: MiscRegClass, Index: index} }

// IsZero reports whether the register is the fixed always-zero register.
func (r Reg) IsZero() bool {
	return r.Class == IntRegClass && r.Index == ZeroRegIndex
}

// Flatten maps the register into the flat index space used by the
// scoreboard. The second return value is false for the zero register and for
// out-of-range indices, which must not be tracked.
func (r Reg) Flatten() (int, bool) {
	if r.IsZero() {
		return 0, false
	}

	switch r.Class {
	case IntRegClass:
		if r.Index < 0 || r.Index >= NumIntRegs {
			return 0, false
		}
		return r.Index, true
	case FloatRegClass:
		if r.Index < 0 || r.Index >= NumFloatRegs {
			return 0, false
		}
		return NumIntRegs + r.Index, true
	case CCRegClass:
		if r.Index < 0 || r.Index >= NumCCRegs {
			return 0, false
		}
		return NumIntRegs + NumFloatRegs + r.Index, true
	case MiscRegClass:
		if r.Index < 0 || r.Index >= NumMiscRegs {
			return 0, false
		}
		return NumIntRegs + NumFloatRegs + NumCCRegs + r.Index, true
	}

	return 0, false
}

func (r Reg) String() string {
	switch r.Class {
	case IntRegClass:
		if r.Index == ZeroRegIndex {
			return "zero"
		}
		return fmt.Sprintf("x%d", r.Index)
	case FloatRegClass:
		return fmt.Sprintf("f%d", r.Index)
	case CCRegClass:
		return fmt.Sprintf("cc%d", r.Index)
	case MiscRegClass:
		return fmt.Sprintf("m%d", r.Index)
	}
	return fmt.Sprintf("?%d", r.Index)
}

package insts

import "fmt"

// OpClass groups instructions by the kind of functional unit that can
// execute them.
type OpClass int

const (
	// OpClassNone marks instructions with no unit requirement (faults,
	// no-cost control micro-ops).
	OpClassNone OpClass = iota
	// OpClassIntAlu covers integer arithmetic and logic.
	OpClassIntAlu
	// OpClassIntMult covers integer multiplication.
	OpClassIntMult
	// OpClassIntDiv covers integer division.
	OpClassIntDiv
	// OpClassFloat covers floating-point arithmetic.
	OpClassFloat
	// OpClassMemRead covers loads.
	OpClassMemRead
	// OpClassMemWrite covers stores and memory barriers.
	OpClassMemWrite

	// NumOpClasses is the number of operation classes.
	NumOpClasses
)

var opClassNames = map[OpClass]string{
	OpClassNone:     "None",
	OpClassIntAlu:   "IntAlu",
	OpClassIntMult:  "IntMult",
	OpClassIntDiv:   "IntDiv",
	OpClassFloat:    "Float",
	OpClassMemRead:  "MemRead",
	OpClassMemWrite: "MemWrite",
}

func (c OpClass) String() string {
	if name, ok := opClassNames[c]; ok {
		return name
	}
	return fmt.Sprintf("OpClass(%d)", int(c))
}

// ParseOpClass maps a configuration-file name to an OpClass.
func ParseOpClass(name string) (OpClass, error) {
	for class, n := range opClassNames {
		if n == name {
			return class, nil
		}
	}
	return OpClassNone, fmt.Errorf("unknown op class %q", name)
}

// ExecContext is the window through which instruction semantics see
// architectural state. The engine constructs one per committing instruction;
// instruction semantics never touch the thread context directly.
type ExecContext interface {
	// ReadReg and WriteReg access the typed register storage. The zero
	// register reads as 0 and swallows writes.
	ReadReg(r Reg) uint64
	WriteReg(r Reg, v uint64)

	// PCState and SetPCState access the architectural program counter. A
	// taken branch sets a PC state whose continuation address is the
	// branch target.
	PCState() PCState
	SetPCState(pc PCState)

	// ReadPredicate and SetPredicate carry the instruction predicate. A
	// memory operation whose predicate fails produces a packetless
	// response instead of a memory access.
	ReadPredicate() bool
	SetPredicate(v bool)

	// InitiateMemRead and InitiateMemWrite start a memory access on
	// behalf of a memory-referencing instruction. The access completes
	// later through CompleteAcc when the response arrives.
	InitiateMemRead(addr uint64, size int)
	InitiateMemWrite(addr uint64, size int, data []byte)

	// SuspendThread marks the thread as suspended once the instruction
	// commits.
	SuspendThread()
}

// Fault is a precise architectural fault captured during fetch, execution,
// address translation, or memory access. Invoking it redirects the thread to
// the fault vector.
type Fault struct {
	// Name describes the fault for logging.
	Name string

	// Vector is the PC control flow resumes at once the fault is taken.
	Vector uint64
}

// Invoke applies the fault to architectural state.
func (f *Fault) Invoke(ctx ExecContext) {
	ctx.SetPCState(NewPCState(f.Vector))
}

func (f *Fault) String() string {
	return fmt.Sprintf("fault(%s->0x%x)", f.Name, f.Vector)
}

// MemPacket is the data portion of a memory response.
type MemPacket struct {
	Addr   uint64
	Size   int
	Data   []byte
	IsLoad bool
}

// StaticInst is the immutable decoded form of an instruction. The engine
// treats the semantic callbacks as opaque: Exec for non-memory instructions,
// InitiateAcc/CompleteAcc for the two halves of a memory access.
type StaticInst struct {
	// Mnemonic names the instruction for logging and timing matching.
	Mnemonic string

	// Class selects which functional units may execute the instruction.
	Class OpClass

	// Srcs and Dests are the architectural source and destination
	// registers, used by the scoreboard only; values flow through the
	// register storage collaborator.
	Srcs  []Reg
	Dests []Reg

	// Instruction kind flags.
	IsLoad           bool
	IsStore          bool
	IsMemBarrier     bool
	IsControl        bool
	IsMicroop        bool
	IsFirstMicroop   bool
	IsLastMicroop    bool
	IsSerializeAfter bool
	IsNoCost         bool

	// Exec applies the instruction's architectural effects. Memory
	// instructions use InitiateAcc/CompleteAcc instead.
	Exec func(ctx ExecContext) *Fault

	// InitiateAcc computes the effective address and starts the memory
	// access via the context.
	InitiateAcc func(ctx ExecContext) *Fault

	// CompleteAcc finishes a memory access from its response packet.
	CompleteAcc func(pkt *MemPacket, ctx ExecContext) *Fault
}

// IsMemRef reports whether the instruction references memory.
func (s *StaticInst) IsMemRef() bool {
	return s.IsLoad || s.IsStore
}

// AdvancePC moves a PC state past this instruction: to the next micro-op
// within the macro-instruction, or to the continuation address at the end of
// it.
func (s *StaticInst) AdvancePC(pc PCState) PCState {
	if s.IsMicroop && !s.IsLastMicroop {
		pc.Micro++
		return pc
	}
	return NewPCState(pc.NPC)
}

func (s *StaticInst) String() string {
	return s.Mnemonic
}

package insts

import "fmt"

// InstBytes is the fixed encoding size assumed for sequential PC advance.
const InstBytes = 4

// PCState is the architectural program-counter state carried by an
// instruction and by the thread context. NPC is the address control flow
// continues at after the instruction; Micro is the micro-op counter within a
// macro-instruction.
type PCState struct {
	PC    uint64
	NPC   uint64
	Micro uint32
}

// NewPCState returns a PCState at addr with a sequential NPC.
func NewPCState(addr uint64) PCState {
	return PCState{PC: addr, NPC: addr + InstBytes}
}

// Equal reports whether two PC states are identical, including the
// continuation address and micro-op counter.
func (p PCState) Equal(other PCState) bool {
	return p == other
}

// SetTarget redirects the continuation address, as a taken branch does
// during execution.
func (p *PCState) SetTarget(addr uint64) {
	p.NPC = addr
}

func (p PCState) String() string {
	if p.Micro != 0 {
		return fmt.Sprintf("0x%x.%d->0x%x", p.PC, p.Micro, p.NPC)
	}
	return fmt.Sprintf("0x%x->0x%x", p.PC, p.NPC)
}

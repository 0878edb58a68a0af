package insts

import "testing"

func TestInstIDOrdering(t *testing.T) {
	tests := []struct {
		name string
		a, b InstID
		want int
	}{
		{
			name: "equal",
			a:    InstID{StreamSeq: 1, ExecSeq: 5},
			b:    InstID{StreamSeq: 1, ExecSeq: 5},
			want: 0,
		},
		{
			name: "exec seq breaks tie",
			a:    InstID{StreamSeq: 1, ExecSeq: 4},
			b:    InstID{StreamSeq: 1, ExecSeq: 5},
			want: -1,
		},
		{
			name: "stream seq dominates exec seq",
			a:    InstID{StreamSeq: 2, ExecSeq: 1},
			b:    InstID{StreamSeq: 1, ExecSeq: 9},
			want: 1,
		},
		{
			name: "thread id dominates everything",
			a:    InstID{ThreadID: 1},
			b:    InstID{ThreadID: 0, StreamSeq: 7, ExecSeq: 7},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Compare(tt.b); got != tt.want {
				t.Errorf("Compare() = %d, want %d", got, tt.want)
			}
			if got := tt.a.Before(tt.b); got != (tt.want < 0) {
				t.Errorf("Before() = %v, want %v", got, tt.want < 0)
			}
		})
	}
}

func TestRegFlatten(t *testing.T) {
	tests := []struct {
		name      string
		reg       Reg
		wantIndex int
		wantOK    bool
	}{
		{"int reg 0", IntReg(0), 0, true},
		{"int reg 30", IntReg(30), 30, true},
		{"zero reg does not flatten", IntReg(ZeroRegIndex), 0, false},
		{"float reg 0 after int space", FloatReg(0), NumIntRegs, true},
		{"cc reg after float space", CCReg(1), NumIntRegs + NumFloatRegs + 1, true},
		{"misc reg at tail", MiscReg(0), NumIntRegs + NumFloatRegs + NumCCRegs, true},
		{"out of range", IntReg(99), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index, ok := tt.reg.Flatten()
			if ok != tt.wantOK {
				t.Fatalf("Flatten() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && index != tt.wantIndex {
				t.Errorf("Flatten() index = %d, want %d", index, tt.wantIndex)
			}
		})
	}
}

func TestAdvancePC(t *testing.T) {
	plain := &StaticInst{Mnemonic: "add"}
	micro := &StaticInst{Mnemonic: "ldp.0", IsMicroop: true}
	lastMicro := &StaticInst{Mnemonic: "ldp.1", IsMicroop: true, IsLastMicroop: true}

	pc := NewPCState(0x1000)

	next := plain.AdvancePC(pc)
	if next.PC != 0x1004 || next.Micro != 0 {
		t.Errorf("plain advance = %v", next)
	}

	next = micro.AdvancePC(pc)
	if next.PC != 0x1000 || next.Micro != 1 {
		t.Errorf("micro-op advance = %v", next)
	}

	next = lastMicro.AdvancePC(PCState{PC: 0x1000, NPC: 0x1004, Micro: 1})
	if next.PC != 0x1004 || next.Micro != 0 {
		t.Errorf("last micro-op advance = %v", next)
	}
}

func TestAdvancePCTakenBranch(t *testing.T) {
	br := &StaticInst{Mnemonic: "b", IsControl: true}

	pc := NewPCState(0x1000)
	pc.SetTarget(0x2000)

	next := br.AdvancePC(pc)
	if next.PC != 0x2000 || next.NPC != 0x2004 {
		t.Errorf("taken-branch advance = %v", next)
	}
}

func TestBubbleIdentity(t *testing.T) {
	if !Bubble().IsBubble() {
		t.Error("Bubble() must report IsBubble")
	}
	if (&DynInst{}).IsBubble() {
		t.Error("an ordinary empty inst is not the bubble")
	}
	if Bubble().IsInst() || Bubble().IsFault() {
		t.Error("the bubble is neither an inst nor a fault")
	}
}

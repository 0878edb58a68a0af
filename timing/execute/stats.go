package execute

// Statistics accumulates engine activity counters. Derived metrics are
// computed on read so the struct stays a plain value.
type Statistics struct {
	Cycles       uint64
	ActiveCycles uint64

	InstsIssued    uint64
	InstsCommitted uint64
	OpsCommitted   uint64
	MemRefsIssued  uint64

	LoadsCommitted  uint64
	StoresCommitted uint64

	BranchesResolved  uint64
	BranchMispredicts uint64

	InterruptsTaken uint64
	FetchSuspends   uint64
	OpsDiscarded    uint64
}

// IPC returns committed instructions per simulated cycle.
func (s Statistics) IPC() float64 {
	if s.Cycles == 0 {
		return 0
	}
	return float64(s.InstsCommitted) / float64(s.Cycles)
}

// CPI returns simulated cycles per committed instruction.
func (s Statistics) CPI() float64 {
	if s.InstsCommitted == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.InstsCommitted)
}

// GatedCycles returns cycles the engine skipped work because nothing could
// make progress.
func (s Statistics) GatedCycles() uint64 {
	return s.Cycles - s.ActiveCycles
}

// MispredictRate returns the fraction of resolved branches that were
// mispredicted.
func (s Statistics) MispredictRate() float64 {
	if s.BranchesResolved == 0 {
		return 0
	}
	return float64(s.BranchMispredicts) / float64(s.BranchesResolved)
}

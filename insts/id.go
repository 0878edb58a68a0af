// Package insts provides the instruction-level data model for the timing
// engine: instruction identities, static instruction metadata, and the
// dynamic (in-flight) instruction record.
package insts

import "fmt"

// SeqNum is one of the sequence-number streams carried in an InstID.
type SeqNum uint64

// First values for the sequence-number streams. Zero is reserved so that it
// can act as a "none" marker (for example LSQ barrier tracking).
const (
	FirstStreamSeqNum     SeqNum = 1
	FirstPredictionSeqNum SeqNum = 1
	FirstLineSeqNum       SeqNum = 1
	FirstFetchSeqNum      SeqNum = 1
	FirstExecSeqNum       SeqNum = 1
)

// InstID identifies a dynamic instruction within the pipeline. The stream
// sequence number is the squash authority: an instruction whose StreamSeq
// disagrees with the engine's current value is stale and must be discarded.
// The prediction sequence number identifies a predicted-path segment within
// a stream and is stable across redirects that do not change the stream.
type InstID struct {
	// ThreadID is the hardware thread the instruction belongs to.
	ThreadID int

	// StreamSeq counts control-flow streams; bumped on every real redirect.
	StreamSeq SeqNum

	// PredictionSeq counts predicted-path segments within a stream.
	PredictionSeq SeqNum

	// LineSeq counts fetched lines.
	LineSeq SeqNum

	// FetchSeq counts fetched instructions.
	FetchSeq SeqNum

	// ExecSeq counts decoded micro-ops; this is the commit-order authority.
	ExecSeq SeqNum
}

// Compare defines a total order over instruction identities within a thread:
// lexicographic by (ThreadID, StreamSeq, PredictionSeq, LineSeq, FetchSeq,
// ExecSeq). It returns -1, 0 or 1.
func (id InstID) Compare(other InstID) int {
	lhs := [6]uint64{
		uint64(id.ThreadID), uint64(id.StreamSeq), uint64(id.PredictionSeq),
		uint64(id.LineSeq), uint64(id.FetchSeq), uint64(id.ExecSeq),
	}
	rhs := [6]uint64{
		uint64(other.ThreadID), uint64(other.StreamSeq),
		uint64(other.PredictionSeq), uint64(other.LineSeq),
		uint64(other.FetchSeq), uint64(other.ExecSeq),
	}

	for i := range lhs {
		switch {
		case lhs[i] < rhs[i]:
			return -1
		case lhs[i] > rhs[i]:
			return 1
		}
	}

	return 0
}

// Before reports whether id orders strictly before other.
func (id InstID) Before(other InstID) bool {
	return id.Compare(other) < 0
}

// String formats the identity as thread/stream.pred/line/fetch.exec.
func (id InstID) String() string {
	return fmt.Sprintf("T%d/S%d.P%d/L%d/F%d.E%d",
		id.ThreadID, id.StreamSeq, id.PredictionSeq,
		id.LineSeq, id.FetchSeq, id.ExecSeq)
}

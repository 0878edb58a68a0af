// Package lsq provides a simple load/store queue for the timing engine: an
// in-order request queue with a fixed access latency, an in-order response
// queue, a store buffer drained in the background, and memory-barrier
// tracking. It implements the engine's memory-queue collaborator contract.
package lsq

import (
	"fmt"

	"github.com/sarchlab/minorsim/insts"
)

// Response is the completion of one memory request. A response with no
// packet and no fault denotes a failed request (the instruction's predicate
// did not pass) and completes without architectural effect.
type Response struct {
	Inst   *insts.DynInst
	Fault  *insts.Fault
	Packet *insts.MemPacket

	// Error flags a response the memory system could not serve correctly.
	// The engine treats an error response for a committed request as a
	// fatal protocol violation.
	Error bool
}

// NeedsToBeSentToStoreBuffer reports whether the response is a completed
// store whose data still has to drain through the store buffer.
func (r *Response) NeedsToBeSentToStoreBuffer() bool {
	return r.Packet != nil && !r.Packet.IsLoad && r.Fault == nil && !r.Error
}

type request struct {
	resp      *Response
	remaining uint64
}

// Option configures a Queue.
type Option func(*Queue)

// WithLatency sets the access latency in cycles.
func WithLatency(cycles uint64) Option {
	return func(q *Queue) { q.latency = cycles }
}

// WithRequestQueueSize sets the capacity of the in-flight request queue.
func WithRequestQueueSize(n int) Option {
	return func(q *Queue) { q.requestsCap = n }
}

// WithTransferQueueSize sets the capacity of the response queue.
func WithTransferQueueSize(n int) Option {
	return func(q *Queue) { q.transfersCap = n }
}

// WithStoreBufferSize sets the capacity of the store buffer.
func WithStoreBufferSize(n int) Option {
	return func(q *Queue) { q.storeBufferCap = n }
}

// WithMaxStoresPerCycle sets how many store-buffer entries drain per cycle.
func WithMaxStoresPerCycle(n int) Option {
	return func(q *Queue) { q.maxStoresPerCycle = n }
}

// Queue is the load/store queue. Memory contents are backed by a sparse
// byte map so tests and the CLI can run without a separate memory model.
type Queue struct {
	latency           uint64
	requestsCap       int
	transfersCap      int
	storeBufferCap    int
	maxStoresPerCycle int

	requests    []*request
	responses   []*Response
	storeBuffer []*insts.MemPacket

	lastMemBarrier insts.SeqNum

	mem map[uint64]byte
}

// NewQueue builds a queue with the given options. Zero-sized queues are
// configuration errors.
func NewQueue(opts ...Option) (*Queue, error) {
	q := &Queue{
		latency:           1,
		requestsCap:       4,
		transfersCap:      4,
		storeBufferCap:    4,
		maxStoresPerCycle: 2,
		mem:               map[uint64]byte{},
	}

	for _, opt := range opts {
		opt(q)
	}

	if q.requestsCap < 1 {
		return nil, fmt.Errorf("lsq: request queue size must be >= 1 (%d)", q.requestsCap)
	}
	if q.transfersCap < 1 {
		return nil, fmt.Errorf("lsq: transfer queue size must be >= 1 (%d)", q.transfersCap)
	}
	if q.storeBufferCap < 1 {
		return nil, fmt.Errorf("lsq: store buffer size must be >= 1 (%d)", q.storeBufferCap)
	}
	if q.maxStoresPerCycle < 1 {
		return nil, fmt.Errorf("lsq: max stores per cycle must be >= 1 (%d)", q.maxStoresPerCycle)
	}

	return q, nil
}

// CanRequest reports whether a new request can be accepted this cycle.
func (q *Queue) CanRequest() bool {
	return len(q.requests) < q.requestsCap
}

// PushRequest starts a memory access for the instruction. For stores, data
// carries the bytes to write.
func (q *Queue) PushRequest(inst *insts.DynInst, isLoad bool, addr uint64, size int, data []byte) {
	pkt := &insts.MemPacket{
		Addr:   addr,
		Size:   size,
		IsLoad: isLoad,
	}
	if !isLoad {
		pkt.Data = append([]byte(nil), data...)
	}

	q.requests = append(q.requests, &request{
		resp:      &Response{Inst: inst, Packet: pkt},
		remaining: q.latency,
	})
}

// PushFailedRequest records a request whose predicate did not pass. It
// completes as a packetless response.
func (q *Queue) PushFailedRequest(inst *insts.DynInst) {
	q.requests = append(q.requests, &request{
		resp:      &Response{Inst: inst},
		remaining: q.latency,
	})
}

// PushFaultedRequest records a request that faulted during address
// translation. The fault is delivered with the response.
func (q *Queue) PushFaultedRequest(inst *insts.DynInst, fault *insts.Fault) {
	q.requests = append(q.requests, &request{
		resp:      &Response{Inst: inst, Fault: fault},
		remaining: q.latency,
	})
}

// FindResponse returns the ready response for the instruction, or nil.
// Responses are handed out strictly in request order.
func (q *Queue) FindResponse(inst *insts.DynInst) *Response {
	if len(q.responses) == 0 {
		return nil
	}
	if q.responses[0].Inst != inst {
		return nil
	}
	return q.responses[0]
}

// PopResponse retires the head response. The response must be the head.
func (q *Queue) PopResponse(resp *Response) {
	if len(q.responses) > 0 && q.responses[0] == resp {
		q.responses = q.responses[1:]
	}
}

// SendStoreToStoreBuffer moves a completed store into the store buffer.
func (q *Queue) SendStoreToStoreBuffer(resp *Response) {
	q.storeBuffer = append(q.storeBuffer, resp.Packet)
}

// CanPushIntoStoreBuffer reports whether the store buffer has space.
func (q *Queue) CanPushIntoStoreBuffer() bool {
	return len(q.storeBuffer) < q.storeBufferCap
}

// IssuedMemBarrierInst records the barrier as the latest issued one. Memory
// operations younger than it must not commit until it completes.
func (q *Queue) IssuedMemBarrierInst(inst *insts.DynInst) {
	q.lastMemBarrier = inst.ID.ExecSeq
}

// CompleteMemBarrierInst releases the barrier once it commits or is
// discarded.
func (q *Queue) CompleteMemBarrierInst(inst *insts.DynInst, committed bool) {
	if q.lastMemBarrier == inst.ID.ExecSeq {
		q.lastMemBarrier = 0
	}
}

// LastMemBarrier returns the exec sequence number of the last issued,
// not-yet-completed barrier, or 0 if none.
func (q *Queue) LastMemBarrier() insts.SeqNum {
	return q.lastMemBarrier
}

// AccessesInFlight reports whether any request or response is outstanding.
func (q *Queue) AccessesInFlight() bool {
	return len(q.requests) > 0 || len(q.responses) > 0
}

// NeedsToTick reports whether the queue still has per-cycle work to do.
func (q *Queue) NeedsToTick() bool {
	return len(q.requests) > 0 || len(q.storeBuffer) > 0
}

// IsDrained reports whether the queue holds no state at all.
func (q *Queue) IsDrained() bool {
	return len(q.requests) == 0 && len(q.responses) == 0 &&
		len(q.storeBuffer) == 0 && q.lastMemBarrier == 0
}

// Step performs one cycle of queue work: draining the store buffer and
// moving completed requests to the response queue in order.
func (q *Queue) Step() {
	for i := 0; i < q.maxStoresPerCycle && len(q.storeBuffer) > 0; i++ {
		pkt := q.storeBuffer[0]
		q.storeBuffer = q.storeBuffer[1:]
		q.writeMem(pkt.Addr, pkt.Data)
	}

	for _, r := range q.requests {
		if r.remaining > 0 {
			r.remaining--
		}
	}

	// Completed requests leave in order; one blocked head blocks the rest.
	for len(q.requests) > 0 &&
		q.requests[0].remaining == 0 &&
		len(q.responses) < q.transfersCap {
		head := q.requests[0]
		q.requests = q.requests[1:]

		if pkt := head.resp.Packet; pkt != nil && pkt.IsLoad && head.resp.Fault == nil {
			pkt.Data = q.readMem(pkt.Addr, pkt.Size)
		}

		q.responses = append(q.responses, head.resp)
	}
}

// WriteMemory sets backing-memory contents, for program setup.
func (q *Queue) WriteMemory(addr uint64, data []byte) {
	q.writeMem(addr, data)
}

// ReadMemory returns backing-memory contents, for inspection.
func (q *Queue) ReadMemory(addr uint64, size int) []byte {
	return q.readMem(addr, size)
}

func (q *Queue) writeMem(addr uint64, data []byte) {
	for i, b := range data {
		q.mem[addr+uint64(i)] = b
	}
}

func (q *Queue) readMem(addr uint64, size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = q.mem[addr+uint64(i)]
	}
	return data
}

// Package main provides the MinorSim CLI: it runs a built-in demonstration
// workload through the execute/commit engine and reports timing statistics.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/minorsim/emu"
	"github.com/sarchlab/minorsim/insts"
	"github.com/sarchlab/minorsim/timing/execute"
	"github.com/sarchlab/minorsim/timing/funit"
	"github.com/sarchlab/minorsim/timing/lsq"
)

var (
	configPath = flag.String("config", "", "Path to functional-unit configuration JSON file")
	dumpConfig = flag.String("dump-config", "", "Write the default functional-unit configuration to this path and exit")
	maxCycles  = flag.Uint64("cycles", 100000, "Maximum number of cycles to simulate")
	arrayLen   = flag.Uint64("n", 64, "Length of the array summed by the demo workload")
	fetchWidth = flag.Int("fetch-width", 2, "Instructions fetched per cycle")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	if *dumpConfig != "" {
		if err := funit.DefaultConfig().SaveConfig(*dumpConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote default functional-unit config to %s\n", *dumpConfig)
		return
	}

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	config := funit.DefaultConfig()
	if *configPath != "" {
		var err error
		config, err = funit.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	descs, err := config.Descs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error in config: %v\n", err)
		os.Exit(1)
	}

	exitCode := run(descs)
	os.Exit(exitCode)
}

func run(descs []*funit.Desc) int {
	memory, err := lsq.NewQueue(
		lsq.WithLatency(2),
		lsq.WithRequestQueueSize(4),
		lsq.WithTransferQueueSize(4),
		lsq.WithStoreBufferSize(4),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building memory queue: %v\n", err)
		return 1
	}

	const arrayBase = 0x2000
	for i := uint64(0); i < *arrayLen; i++ {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], i+1)
		memory.WriteMemory(arrayBase+i*8, buf[:])
	}

	const entryPoint = 0x1000
	thread := emu.NewThread(0, entryPoint)

	engine, err := execute.NewEngine(thread, memory,
		execute.WithFunctionalUnits(descs),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building engine: %v\n", err)
		return 1
	}

	program := sumProgram(entryPoint, arrayBase, *arrayLen)
	fetch := newFetcher(program, entryPoint, engine.StreamSeq())

	var cycle uint64
	for cycle = 0; cycle < *maxCycles; cycle++ {
		if br := engine.TakeBranch(); br != nil {
			fetch.redirect(br)
		}

		for i := 0; i < *fetchWidth && engine.CanAccept() && !fetch.halted; i++ {
			if err := engine.PushInput(fetch.next()); err != nil {
				fmt.Fprintf(os.Stderr, "Error feeding engine: %v\n", err)
				return 1
			}
		}

		engine.Evaluate()

		if fetch.halted && !engine.NeedsToTick() {
			break
		}
	}

	stats := engine.Stats()
	sum := thread.Regs.Read(insts.IntReg(3))
	expected := *arrayLen * (*arrayLen + 1) / 2

	fmt.Printf("MinorSim demo workload: sum of %d elements\n", *arrayLen)
	fmt.Printf("Result: %d (expected %d)\n", sum, expected)
	fmt.Printf("Cycles: %d (active %d)\n", stats.Cycles, stats.ActiveCycles)
	fmt.Printf("Instructions committed: %d (ops %d, discarded %d)\n",
		stats.InstsCommitted, stats.OpsCommitted, stats.OpsDiscarded)
	fmt.Printf("Loads: %d  Stores: %d\n", stats.LoadsCommitted, stats.StoresCommitted)
	fmt.Printf("Branches: %d resolved, %d mispredicted\n",
		stats.BranchesResolved, stats.BranchMispredicts)
	fmt.Printf("IPC: %.3f  CPI: %.3f\n", stats.IPC(), stats.CPI())

	if sum != expected {
		fmt.Fprintf(os.Stderr, "Result mismatch\n")
		return 1
	}
	return 0
}

// progInst couples a static instruction with the static branch prediction
// the fetch side makes for it (backward taken, forward not taken).
type progInst struct {
	static       *insts.StaticInst
	predictTaken bool
	target       uint64
}

// sumProgram builds the demo loop: sum n 64-bit elements at base into r3,
// with r1 as the index and r2 the limit, then suspend the thread.
func sumProgram(entry, base, n uint64) map[uint64]progInst {
	program := map[uint64]progInst{}
	pc := entry

	add := func(static *insts.StaticInst, predictTaken bool, target uint64) {
		program[pc] = progInst{static: static, predictTaken: predictTaken, target: target}
		pc += insts.InstBytes
	}

	// r1 = 0; r2 = n; r3 = 0
	add(movImm("movi r1, 0", insts.IntReg(1), 0), false, 0)
	add(movImm("movi r2, n", insts.IntReg(2), n), false, 0)
	add(movImm("movi r3, 0", insts.IntReg(3), 0), false, 0)

	loopTop := pc

	// r4 = mem[base + r1*8]
	add(&insts.StaticInst{
		Mnemonic: "ldr r4, [r1]",
		Class:    insts.OpClassMemRead,
		Srcs:     []insts.Reg{insts.IntReg(1)},
		Dests:    []insts.Reg{insts.IntReg(4)},
		IsLoad:   true,
		InitiateAcc: func(ctx insts.ExecContext) *insts.Fault {
			addr := base + ctx.ReadReg(insts.IntReg(1))*8
			ctx.InitiateMemRead(addr, 8)
			return nil
		},
		CompleteAcc: func(pkt *insts.MemPacket, ctx insts.ExecContext) *insts.Fault {
			ctx.WriteReg(insts.IntReg(4), binary.LittleEndian.Uint64(pkt.Data))
			return nil
		},
	}, false, 0)

	// r3 = r3 + r4
	add(&insts.StaticInst{
		Mnemonic: "add r3, r3, r4",
		Class:    insts.OpClassIntAlu,
		Srcs:     []insts.Reg{insts.IntReg(3), insts.IntReg(4)},
		Dests:    []insts.Reg{insts.IntReg(3)},
		Exec: func(ctx insts.ExecContext) *insts.Fault {
			ctx.WriteReg(insts.IntReg(3),
				ctx.ReadReg(insts.IntReg(3))+ctx.ReadReg(insts.IntReg(4)))
			return nil
		},
	}, false, 0)

	// r1 = r1 + 1
	add(&insts.StaticInst{
		Mnemonic: "addi r1, r1, 1",
		Class:    insts.OpClassIntAlu,
		Srcs:     []insts.Reg{insts.IntReg(1)},
		Dests:    []insts.Reg{insts.IntReg(1)},
		Exec: func(ctx insts.ExecContext) *insts.Fault {
			ctx.WriteReg(insts.IntReg(1), ctx.ReadReg(insts.IntReg(1))+1)
			return nil
		},
	}, false, 0)

	// if r1 < r2 goto loopTop
	add(&insts.StaticInst{
		Mnemonic:  "blt r1, r2, loop",
		Class:     insts.OpClassIntAlu,
		Srcs:      []insts.Reg{insts.IntReg(1), insts.IntReg(2)},
		IsControl: true,
		Exec: func(ctx insts.ExecContext) *insts.Fault {
			if ctx.ReadReg(insts.IntReg(1)) < ctx.ReadReg(insts.IntReg(2)) {
				pc := ctx.PCState()
				pc.SetTarget(loopTop)
				ctx.SetPCState(pc)
			}
			return nil
		},
	}, true, loopTop)

	// wfi
	add(&insts.StaticInst{
		Mnemonic: "wfi",
		Class:    insts.OpClassIntAlu,
		Exec: func(ctx insts.ExecContext) *insts.Fault {
			ctx.SuspendThread()
			return nil
		},
	}, false, 0)

	return program
}

func movImm(mnemonic string, dest insts.Reg, value uint64) *insts.StaticInst {
	return &insts.StaticInst{
		Mnemonic: mnemonic,
		Class:    insts.OpClassIntAlu,
		Dests:    []insts.Reg{dest},
		Exec: func(ctx insts.ExecContext) *insts.Fault {
			ctx.WriteReg(dest, value)
			return nil
		},
	}
}

// fetcher is a minimal fetch/decode front end: it walks the program in
// stream order, applies static predictions, and follows engine redirects.
type fetcher struct {
	program map[uint64]progInst

	pc        insts.PCState
	streamSeq insts.SeqNum
	lineSeq   insts.SeqNum
	fetchSeq  insts.SeqNum
	execSeq   insts.SeqNum

	halted bool
}

func newFetcher(program map[uint64]progInst, entry uint64, stream insts.SeqNum) *fetcher {
	return &fetcher{
		program:   program,
		pc:        insts.NewPCState(entry),
		streamSeq: stream,
		lineSeq:   insts.FirstLineSeqNum,
		fetchSeq:  insts.FirstFetchSeqNum,
		execSeq:   insts.FirstExecSeqNum,
	}
}

func (f *fetcher) next() *insts.DynInst {
	pi, ok := f.program[f.pc.PC]
	if !ok {
		f.halted = true
		return insts.Bubble()
	}

	inst := &insts.DynInst{
		ID: insts.InstID{
			StreamSeq: f.streamSeq,
			LineSeq:   f.lineSeq,
			FetchSeq:  f.fetchSeq,
			ExecSeq:   f.execSeq,
		},
		Static: pi.static,
		PC:     f.pc,
	}
	f.fetchSeq++
	f.execSeq++

	if pi.predictTaken {
		inst.PredictedTaken = true
		inst.PredictedTarget = insts.NewPCState(pi.target)
		f.pc = insts.NewPCState(pi.target)
		f.lineSeq++
	} else {
		f.pc = insts.NewPCState(f.pc.NPC)
	}

	return inst
}

func (f *fetcher) redirect(b *execute.BranchData) {
	if b.Reason == execute.CorrectlyPredictedBranch {
		return
	}

	switch b.Reason {
	case execute.HaltFetch, execute.SuspendThread:
		f.halted = true
	case execute.WakeupFetch:
		f.halted = false
	}

	f.streamSeq = b.NewStreamSeq
	f.pc = b.Target
	f.lineSeq++
}

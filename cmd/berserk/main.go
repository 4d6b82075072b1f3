// Command berserk is the UCI entry point: it wires an
// internal/engine.Engine to internal/uci and runs the protocol loop
// on stdin/stdout.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"github.com/berserk-go/berserk/internal/board"
	"github.com/berserk-go/berserk/internal/engine"
	"github.com/berserk-go/berserk/internal/timeman"
	"github.com/berserk-go/berserk/internal/uci"
)

var (
	hashMB     = flag.Int("hash", 64, "transposition table size in MB")
	threads    = flag.Int("threads", engine.NumWorkers, "number of search threads")
	bench      = flag.Bool("bench", false, "run the fixed-position benchmark and exit")
	benchDepth = flag.Int("benchdepth", 13, "search depth used by -bench")
	cpuprofile = flag.String("cpuprofile", "", "write a CPU profile to this path")
)

func main() {
	flag.Parse()

	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	eng := engine.New(*hashMB, *threads)
	defer eng.Close()

	if *bench {
		runBench(eng, *benchDepth)
		return
	}

	protocol := uci.New(eng)
	protocol.Run()
}

// benchPositions is a small, fixed set of FENs covering the opening,
// a tactical middlegame, and an endgame, used for OpenBench-style
// single-number performance comparisons across commits: the total
// node count must match bit-for-bit between two builds that searched
// the same moves, so adding or reordering entries changes the number.
var benchPositions = []string{
	"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
	"r1bqkbnr/pppp1ppp/2n5/1B2p3/4P3/5N2/PPPP1PPP/RNBQK2R b KQkq - 3 3",
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"4rrk1/1p1nq3/p7/2p1P1pp/3P2bp/3Q1Bn1/PPPB4/1K2R1NR w - - 0 1",
	"2rr3k/pp3pp1/1nnqbN1p/3p4/2pP4/2P3P1/PPBN1PBP/R2Q1K1R w - - 0 1",
	"8/8/8/8/4k3/8/R7/4K3 w - - 0 1",
}

// runBench searches every benchPositions entry to benchDepth and
// prints the OpenBench-style total: nodes searched, elapsed time, and
// resulting nps.
func runBench(eng *engine.Engine, depth int) {
	start := time.Now()
	var totalNodes uint64

	for i, fen := range benchPositions {
		pos, err := board.ParseFEN(fen)
		if err != nil {
			log.Fatalf("bench position %d: %v", i, err)
		}

		var nodes uint64
		eng.OnInfo = func(info engine.Info) { nodes = info.Nodes }
		eng.Search(pos, engine.Limits{Depth: depth, Limits: timeman.Limits{}})
		totalNodes += nodes
	}
	eng.OnInfo = nil

	elapsed := time.Since(start)
	nps := uint64(float64(totalNodes) / elapsed.Seconds())

	fmt.Printf("\n")
	fmt.Printf("Nodes searched: %d\n", totalNodes)
	fmt.Printf("Time: %v\n", elapsed)
	fmt.Printf("NPS: %d\n", nps)
}

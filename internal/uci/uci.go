// Package uci implements the Universal Chess Interface protocol loop:
// it parses commands off stdin, drives an internal/engine.Engine, and
// formats its results back onto stdout. It is the engine's only I/O
// boundary; nothing else in this module touches os.Stdin/os.Stdout.
package uci

import (
	"bufio"
	"fmt"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/berserk-go/berserk/internal/board"
	"github.com/berserk-go/berserk/internal/book"
	"github.com/berserk-go/berserk/internal/engine"
	"github.com/berserk-go/berserk/internal/tablebase"
)

const (
	engineName   = "Berserk"
	engineAuthor = "Berserk Contributors"
)

// UCI implements the Universal Chess Interface protocol on top of an
// internal/engine.Engine. position's own RepetitionHistory tracks
// threefold repetition across "position ... moves ..."; UCI does not
// keep a second copy.
type UCI struct {
	engine   *engine.Engine
	position *board.Position

	ownBook      bool
	bookPath     string
	loadedBook   *book.Book
	syzygyPath   string
	syzygyProber *tablebase.SyzygyProber

	multiPV  int
	ponder   bool
	chess960 bool

	searching     bool
	searchDone    chan struct{}
	stopRequested atomic.Bool

	profileFile *os.File
}

// New creates a UCI handler driving eng.
func New(eng *engine.Engine) *UCI {
	return &UCI{
		engine:   eng,
		position: board.NewPosition(),
		multiPV:  1,
	}
}

// Run reads commands from stdin until "quit" or EOF.
func (u *UCI) Run() {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			fmt.Println("readyok")
		case "ucinewgame":
			u.handleNewGame()
		case "position":
			u.handlePosition(args)
		case "go":
			u.handleGo(args)
		case "stop":
			u.handleStop()
		case "ponderhit":
			// A ponder search runs as an infinite search; ponderhit ends it
			// the same way "stop" does.
			u.handleStop()
		case "quit":
			u.handleQuit()
		case "setoption":
			u.handleSetOption(args)
		case "d":
			fmt.Println(u.position.String())
		case "perft":
			u.handlePerft(args)
		default:
			fmt.Printf("info string unknown command: %s\n", cmd)
		}
	}
}

// handleUCI responds to the "uci" handshake.
func (u *UCI) handleUCI() {
	fmt.Printf("id name %s\n", engineName)
	fmt.Printf("id author %s\n", engineAuthor)
	fmt.Println()
	fmt.Println("option name Hash type spin default 64 min 1 max 65536")
	fmt.Printf("option name Threads type spin default %d min 1 max 512\n", engine.NumWorkers)
	fmt.Println("option name MultiPV type spin default 1 min 1 max 256")
	fmt.Println("option name Ponder type check default false")
	fmt.Println("option name UCI_Chess960 type check default false")
	fmt.Println("option name OwnBook type check default false")
	fmt.Println("option name BookFile type string default <empty>")
	fmt.Println("option name SyzygyPath type string default <empty>")
	fmt.Println("option name SyzygyProbeDepth type spin default 1 min 1 max 100")
	fmt.Println("uciok")
}

// handleNewGame clears the TT and every worker's accumulated history,
// per the "ucinewgame" contract.
func (u *UCI) handleNewGame() {
	u.engine.NewGame()
	u.position = board.NewPosition()
}

// handlePosition parses and applies:
//   - position startpos [moves m1 m2 ...]
//   - position fen <6 fields> [moves m1 m2 ...]
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	var moveStart int

	switch args[0] {
	case "startpos":
		u.position = board.NewPosition()
		moveStart = len(args)
		for i, arg := range args {
			if arg == "moves" {
				moveStart = i + 1
				break
			}
		}
	case "fen":
		fenEnd := len(args)
		for i, arg := range args[1:] {
			if arg == "moves" {
				fenEnd = i + 1
				break
			}
		}
		fenStr := strings.Join(args[1:fenEnd], " ")
		pos, err := board.ParseFEN(fenStr)
		if err != nil {
			fmt.Printf("info string invalid FEN: %v\n", err)
			return
		}
		u.position = pos

		moveStart = len(args)
		for i, arg := range args {
			if arg == "moves" {
				moveStart = i + 1
				break
			}
		}
	default:
		return
	}

	if moveStart < len(args) {
		for _, moveStr := range args[moveStart:] {
			move := u.parseMove(moveStr)
			if move == board.NoMove {
				fmt.Printf("info string invalid move: %s\n", moveStr)
				return
			}
			u.position.MakeMove(move)
			u.position.UpdateCheckers()
		}
	}
}

// parseMove resolves a long-algebraic move string against the
// position's legal move list; castling is matched either way (e1g1 in
// standard mode, king-captures-rook in Chess960) since the generator
// already produces moves in whichever form applies.
func (u *UCI) parseMove(moveStr string) board.Move {
	if len(moveStr) < 4 {
		return board.NoMove
	}

	fromFile := int(moveStr[0] - 'a')
	fromRank := int(moveStr[1] - '1')
	toFile := int(moveStr[2] - 'a')
	toRank := int(moveStr[3] - '1')

	if fromFile < 0 || fromFile > 7 || fromRank < 0 || fromRank > 7 ||
		toFile < 0 || toFile > 7 || toRank < 0 || toRank > 7 {
		return board.NoMove
	}

	from := board.NewSquare(fromFile, fromRank)
	to := board.NewSquare(toFile, toRank)

	var promo board.PieceType
	if len(moveStr) == 5 {
		switch moveStr[4] {
		case 'q':
			promo = board.Queen
		case 'r':
			promo = board.Rook
		case 'b':
			promo = board.Bishop
		case 'n':
			promo = board.Knight
		}
	}

	moves := u.position.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if m.From() != from || m.To() != to {
			continue
		}
		if promo != 0 {
			if m.IsPromotion() && m.Promotion() == promo {
				return m
			}
		} else if !m.IsPromotion() {
			return m
		}
	}

	return board.NoMove
}

// GoOptions holds the parsed arguments of a "go" command.
type GoOptions struct {
	Depth     int
	Nodes     uint64
	MoveTime  time.Duration
	Infinite  bool
	Ponder    bool
	WTime     time.Duration
	BTime     time.Duration
	WInc      time.Duration
	BInc      time.Duration
	MovesToGo int
}

// handleGo starts a search for the current position in its own
// goroutine and returns immediately; handleStop/"quit" interrupt it.
func (u *UCI) handleGo(args []string) {
	opts := u.parseGoOptions(args)

	u.engine.OnInfo = func(info engine.Info) {
		u.sendInfo(info)
	}

	limits := u.calculateLimits(opts)

	u.searching = true
	u.stopRequested.Store(false)
	u.searchDone = make(chan struct{})

	searchPos := u.position.Copy()
	origPos := u.position.Copy()

	go func() {
		defer close(u.searchDone)

		bestMove := u.engine.Search(searchPos, limits)
		u.searching = false

		legal := origPos.GenerateLegalMoves()
		if bestMove != board.NoMove {
			for i := 0; i < legal.Len(); i++ {
				if legal.Get(i) == bestMove {
					fmt.Printf("bestmove %s\n", bestMove.String())
					return
				}
			}
			fmt.Printf("info string search returned illegal move %s, falling back\n", bestMove.String())
		}

		if legal.Len() > 0 {
			fmt.Printf("bestmove %s\n", legal.Get(0).String())
		} else {
			fmt.Println("bestmove 0000")
		}
	}()
}

// parseGoOptions parses "go" command arguments.
func (u *UCI) parseGoOptions(args []string) GoOptions {
	opts := GoOptions{}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			if i+1 < len(args) {
				opts.Depth, _ = strconv.Atoi(args[i+1])
				i++
			}
		case "nodes":
			if i+1 < len(args) {
				n, _ := strconv.ParseUint(args[i+1], 10, 64)
				opts.Nodes = n
				i++
			}
		case "movetime":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.MoveTime = time.Duration(ms) * time.Millisecond
				i++
			}
		case "infinite":
			opts.Infinite = true
		case "ponder":
			opts.Ponder = true
		case "wtime":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.WTime = time.Duration(ms) * time.Millisecond
				i++
			}
		case "btime":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.BTime = time.Duration(ms) * time.Millisecond
				i++
			}
		case "winc":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.WInc = time.Duration(ms) * time.Millisecond
				i++
			}
		case "binc":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.BInc = time.Duration(ms) * time.Millisecond
				i++
			}
		case "movestogo":
			if i+1 < len(args) {
				opts.MovesToGo, _ = strconv.Atoi(args[i+1])
				i++
			}
		}
	}

	return opts
}

// calculateLimits converts GoOptions into engine.Limits. Move-time
// math itself lives in internal/timeman; this only fills the Limits
// struct timeman.NewManager consumes.
func (u *UCI) calculateLimits(opts GoOptions) engine.Limits {
	var limits engine.Limits
	limits.Infinite = opts.Infinite || opts.Ponder
	limits.Depth = opts.Depth
	limits.Nodes = opts.Nodes
	limits.MoveTime = opts.MoveTime
	limits.MovesToGo = opts.MovesToGo
	limits.Time[board.White] = opts.WTime
	limits.Time[board.Black] = opts.BTime
	limits.Inc[board.White] = opts.WInc
	limits.Inc[board.Black] = opts.BInc
	return limits
}

// sendInfo formats one completed iterative-deepening depth as a UCI
// "info" line.
func (u *UCI) sendInfo(info engine.Info) {
	var parts []string

	parts = append(parts, fmt.Sprintf("depth %d", info.Depth))
	if info.SelDepth > 0 {
		parts = append(parts, fmt.Sprintf("seldepth %d", info.SelDepth))
	}

	const mateBound = 32000 - 100
	switch {
	case info.Score > mateBound:
		mateIn := (32000 - info.Score + 1) / 2
		parts = append(parts, fmt.Sprintf("score mate %d", mateIn))
	case info.Score < -mateBound:
		mateIn := -(32000 + info.Score + 1) / 2
		parts = append(parts, fmt.Sprintf("score mate %d", mateIn))
	default:
		parts = append(parts, fmt.Sprintf("score cp %d", info.Score))
	}

	parts = append(parts, fmt.Sprintf("nodes %d", info.Nodes))
	parts = append(parts, fmt.Sprintf("time %d", info.Elapsed.Milliseconds()))

	if info.Elapsed > 0 {
		nps := uint64(float64(info.Nodes) / info.Elapsed.Seconds())
		parts = append(parts, fmt.Sprintf("nps %d", nps))
	}

	if info.HashFull > 0 {
		parts = append(parts, fmt.Sprintf("hashfull %d", info.HashFull))
	}

	if len(info.PV) > 0 {
		validPV := make([]string, 0, len(info.PV))
		testPos := u.position.Copy()
		for _, move := range info.PV {
			legal := testPos.GenerateLegalMoves()
			isLegal := false
			for i := 0; i < legal.Len(); i++ {
				if legal.Get(i) == move {
					isLegal = true
					break
				}
			}
			if !isLegal {
				break
			}
			validPV = append(validPV, move.String())
			testPos.MakeMove(move)
		}
		if len(validPV) > 0 {
			parts = append(parts, "pv "+strings.Join(validPV, " "))
		}
	}

	fmt.Printf("info %s\n", strings.Join(parts, " "))
}

// handleStop requests the running search unwind and waits for its
// "bestmove" to be sent, per UCI's synchronous stop contract.
func (u *UCI) handleStop() {
	if u.searching {
		u.stopRequested.Store(true)
		u.engine.Stop()
		<-u.searchDone
	}
}

// handleQuit stops any running search and exits the process.
func (u *UCI) handleQuit() {
	u.handleStop()
	if u.profileFile != nil {
		pprof.StopCPUProfile()
		u.profileFile.Close()
		fmt.Println("info string CPU profile saved")
	}
	u.engine.Close()
	os.Exit(0)
}

// handleSetOption processes "setoption name <name> value <value>".
// Errors are reported as "info string ..." on stdout, never stderr:
// UCI defines no stderr channel a GUI is guaranteed to read.
func (u *UCI) handleSetOption(args []string) {
	var name, value string
	readingName := false
	readingValue := false

	for _, arg := range args {
		switch arg {
		case "name":
			readingName = true
			readingValue = false
		case "value":
			readingName = false
			readingValue = true
		default:
			if readingName {
				if name != "" {
					name += " "
				}
				name += arg
			} else if readingValue {
				if value != "" {
					value += " "
				}
				value += arg
			}
		}
	}

	switch strings.ToLower(name) {
	case "hash":
		mb, err := strconv.Atoi(value)
		if err != nil || mb < 1 {
			fmt.Printf("info string invalid Hash value: %s\n", value)
			return
		}
		if u.searching {
			fmt.Println("info string cannot resize Hash while searching")
			return
		}
		u.engine.Resize(mb)
	case "threads":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			fmt.Printf("info string invalid Threads value: %s\n", value)
			return
		}
		if u.searching {
			fmt.Println("info string cannot change Threads while searching")
			return
		}
		u.engine.SetThreads(n)
	case "multipv":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			fmt.Printf("info string invalid MultiPV value: %s\n", value)
			return
		}
		u.multiPV = n
	case "ponder":
		u.ponder = strings.ToLower(value) == "true"
	case "uci_chess960":
		// Accepted for UCI compliance; internal/board only generates
		// standard castling notation, so this doesn't change move text.
		u.chess960 = strings.ToLower(value) == "true"
	case "ownbook":
		u.ownBook = strings.ToLower(value) == "true"
		u.syncBook()
	case "bookfile":
		u.bookPath = value
		u.syncBook()
	case "syzygypath":
		u.syzygyPath = value
		u.initSyzygy()
	case "syzygyprobedepth":
		depth, err := strconv.Atoi(value)
		if err == nil && depth >= 1 {
			u.engine.SetSyzygyProbeDepth(depth)
		}
	case "debug":
		// Accepted for UCI compliance; the value is ignored and no
		// extra tracing is produced.
	case "cpuprofile":
		u.setCPUProfile(value)
	default:
		fmt.Printf("info string unknown option: %s\n", name)
	}
}

// syncBook (re)loads the configured Polyglot book if OwnBook is on and
// a path has been set, or clears the installed book otherwise.
func (u *UCI) syncBook() {
	if !u.ownBook || u.bookPath == "" {
		u.engine.SetBook(nil)
		return
	}
	b, err := book.LoadPolyglot(u.bookPath)
	if err != nil {
		fmt.Printf("info string failed to load book %s: %v\n", u.bookPath, err)
		return
	}
	u.loadedBook = b
	u.engine.SetBook(b)
}

// initSyzygy wires a Syzygy tablebase prober at the configured path.
func (u *UCI) initSyzygy() {
	if u.syzygyPath == "" {
		u.engine.SetTablebase(nil)
		return
	}
	u.syzygyProber = tablebase.NewSyzygyProber(u.syzygyPath)
	u.engine.SetTablebase(u.syzygyProber)
}

// setCPUProfile starts or stops CPU profiling; value "stop" or ""
// stops an active profile, any other value starts one at that path.
func (u *UCI) setCPUProfile(value string) {
	if u.profileFile != nil {
		pprof.StopCPUProfile()
		u.profileFile.Close()
		fmt.Println("info string CPU profile stopped")
		u.profileFile = nil
	}
	if value == "" || value == "stop" {
		return
	}
	f, err := os.Create(value)
	if err != nil {
		fmt.Printf("info string failed to create profile: %v\n", err)
		return
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		fmt.Printf("info string failed to start profile: %v\n", err)
		return
	}
	u.profileFile = f
	fmt.Printf("info string CPU profiling to %s\n", value)
}

// handlePerft runs a leaf-node count at the given depth (debug tool;
// not part of the search path).
func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		depth, _ = strconv.Atoi(args[0])
	}

	start := time.Now()
	nodes := u.engine.Perft(u.position, depth)
	elapsed := time.Since(start)

	fmt.Printf("Nodes: %d\n", nodes)
	fmt.Printf("Time: %v\n", elapsed)
	if elapsed > 0 {
		nps := float64(nodes) / elapsed.Seconds()
		fmt.Printf("NPS: %.0f\n", nps)
	}
}

package board

import "fmt"

// Move packs a chess move into 32 bits so that it is fully
// self-describing: everything a move picker, history table or
// transposition table needs to score or replay the move lives in the
// integer itself, with no board lookup required.
//
// bits  0-5:  from square
// bits  6-11: to square
// bits 12-15: moved piece type (Pawn..King)
// bits 16-19: promotion piece type (Knight..Queen), 0 if none
// bit  20:    capture flag
// bit  21:    double pawn push flag
// bit  22:    en passant flag
// bit  23:    castle flag
type Move uint32

const (
	moveFromShift  = 0
	moveToShift    = 6
	movePieceShift = 12
	movePromoShift = 16
	moveCapShift   = 20
	moveDubShift   = 21
	moveEPShift    = 22
	moveCastShift  = 23

	moveSquareMask = 0x3F
	movePieceMask  = 0xF
)

// NoMove represents an invalid or null move.
const NoMove Move = 0

// buildMove packs the given fields into a Move, mirroring the reference
// engine's BuildMove layout bit for bit.
func buildMove(from, to Square, piece, promo PieceType, capture, doublePush, ep, castle bool) Move {
	m := Move(from)<<moveFromShift | Move(to)<<moveToShift | Move(piece)<<movePieceShift
	if promo != NoPieceType {
		m |= Move(promo) << movePromoShift
	}
	if capture {
		m |= 1 << moveCapShift
	}
	if doublePush {
		m |= 1 << moveDubShift
	}
	if ep {
		m |= 1 << moveEPShift
	}
	if castle {
		m |= 1 << moveCastShift
	}
	return m
}

// NewMove creates a normal (non-capture) move of the given piece.
func NewMove(from, to Square, piece PieceType) Move {
	return buildMove(from, to, piece, NoPieceType, false, false, false, false)
}

// NewCapture creates a capturing move of the given piece.
func NewCapture(from, to Square, piece PieceType) Move {
	return buildMove(from, to, piece, NoPieceType, true, false, false, false)
}

// NewDoublePush creates a two-square pawn push, enabling en passant.
func NewDoublePush(from, to Square) Move {
	return buildMove(from, to, Pawn, NoPieceType, false, true, false, false)
}

// NewPromotion creates a (possibly capturing) pawn promotion move.
func NewPromotion(from, to Square, promo PieceType, capture bool) Move {
	return buildMove(from, to, Pawn, promo, capture, false, false, false)
}

// NewEnPassant creates an en passant capture move.
func NewEnPassant(from, to Square) Move {
	return buildMove(from, to, Pawn, NoPieceType, true, false, true, false)
}

// NewCastling creates a castling move (the king's part of it).
func NewCastling(from, to Square) Move {
	return buildMove(from, to, King, NoPieceType, false, false, false, true)
}

// From returns the origin square.
func (m Move) From() Square {
	return Square(m >> moveFromShift & moveSquareMask)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square(m >> moveToShift & moveSquareMask)
}

// StartEnd returns the combined 12-bit from/to index used as the key
// into butterfly-style history tables.
func (m Move) StartEnd() int {
	return int(m & 0xFFF)
}

// Piece returns the type of the piece that was moved.
func (m Move) Piece() PieceType {
	return PieceType(m >> movePieceShift & movePieceMask)
}

// Promotion returns the promotion piece type; NoPieceType if none.
func (m Move) Promotion() PieceType {
	pt := PieceType(m >> movePromoShift & movePieceMask)
	if pt == Pawn {
		return NoPieceType
	}
	return pt
}

// IsPromotion returns true if this is a promotion move.
func (m Move) IsPromotion() bool {
	return m.Promotion() != NoPieceType
}

// IsCapture returns true if this move captures a piece (including en passant).
func (m Move) IsCapture() bool {
	return m&(1<<moveCapShift) != 0
}

// IsDoublePush returns true if this is a two-square pawn push.
func (m Move) IsDoublePush() bool {
	return m&(1<<moveDubShift) != 0
}

// IsEnPassant returns true if this is an en passant capture.
func (m Move) IsEnPassant() bool {
	return m&(1<<moveEPShift) != 0
}

// IsCastling returns true if this is a castling move.
func (m Move) IsCastling() bool {
	return m&(1<<moveCastShift) != 0
}

// Tactical returns true if the move is a capture or a promotion — the
// set of moves the quiescence search and move picker treat as "noisy".
func (m Move) Tactical() bool {
	return m&0x1F0000 != 0
}

// IsQuiet returns true if this move is neither a capture nor a promotion.
func (m Move) IsQuiet() bool {
	return !m.Tactical()
}

// String returns the UCI format of the move (e.g., "e2e4", "e7e8q").
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}

	s := m.From().String() + m.To().String()

	if m.IsPromotion() {
		s += string(m.Promotion().Char())
	}

	return s
}

// ParseMove parses a UCI format move string against the given position,
// filling in the moved piece and capture/special flags from the board.
func ParseMove(s string, pos *Position) (Move, error) {
	if len(s) < 4 {
		return NoMove, fmt.Errorf("invalid move string: %s", s)
	}

	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, err
	}

	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, err
	}

	piece := pos.PieceAt(from)
	if piece == NoPiece {
		return NoMove, fmt.Errorf("no piece at %s", from)
	}
	pt := piece.Type()
	capture := !pos.IsEmpty(to)

	if len(s) == 5 {
		var promo PieceType
		switch s[4] {
		case 'n':
			promo = Knight
		case 'b':
			promo = Bishop
		case 'r':
			promo = Rook
		case 'q':
			promo = Queen
		default:
			return NoMove, fmt.Errorf("invalid promotion piece: %c", s[4])
		}
		return NewPromotion(from, to, promo, capture), nil
	}

	// Castling
	if pt == King && abs(int(to)-int(from)) == 2 {
		return NewCastling(from, to), nil
	}

	// En passant
	if pt == Pawn && to == pos.EnPassant && to.File() != from.File() {
		return NewEnPassant(from, to), nil
	}

	// Double pawn push
	if pt == Pawn && abs(int(to)-int(from)) == 16 {
		return NewDoublePush(from, to), nil
	}

	if capture {
		return NewCapture(from, to, pt), nil
	}
	return NewMove(from, to, pt), nil
}

// MoveList is a fixed-size list of moves to avoid allocations.
type MoveList struct {
	moves [256]Move
	count int
}

// NewMoveList creates an empty move list.
func NewMoveList() *MoveList {
	return &MoveList{}
}

// Add adds a move to the list.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

// Len returns the number of moves in the list.
func (ml *MoveList) Len() int {
	return ml.count
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

// Set sets the move at index i.
func (ml *MoveList) Set(i int, m Move) {
	ml.moves[i] = m
}

// Swap swaps two moves in the list.
func (ml *MoveList) Swap(i, j int) {
	ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i]
}

// Clear clears the list.
func (ml *MoveList) Clear() {
	ml.count = 0
}

// Contains returns true if the list contains the move.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Slice returns the moves as a slice.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}

// UndoInfo stores information needed to undo a move.
type UndoInfo struct {
	CapturedPiece  Piece
	CastlingRights CastlingRights
	EnPassant      Square
	HalfMoveClock  int
	Hash           uint64
	PawnKey        uint64
	Checkers       Bitboard
	KingSquare     [2]Square      // Not filled in by MakeMove; UnmakeMove does not read it
	Pieces         [2][6]Bitboard // Not filled in by MakeMove; UnmakeMove does not read it
	Occupied       [2]Bitboard    // Not filled in by MakeMove; UnmakeMove does not read it
	AllOccupied    Bitboard       // Not filled in by MakeMove; UnmakeMove does not read it
	Valid          bool           // True if move was actually applied
}

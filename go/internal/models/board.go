package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

const (
	GridWidth = 5
	BoardSize = GridWidth * GridWidth

	// TileImageExt is appended to the tile id when building an image URL.
	TileImageExt = ".jpg"
)

// ErrInvalidBoard is returned for a missing, mistyped, or wrongly sized board.
var ErrInvalidBoard = errors.New("invalid board")

// Board maps grid position (row-major, 0-indexed) to tile id.
// Tile membership and uniqueness belong to the authority; only the length is checked here.
type Board []int

// ValidateBoard checks that b holds exactly BoardSize tiles.
func ValidateBoard(b Board) error {
	if b == nil {
		return fmt.Errorf("%w: missing", ErrInvalidBoard)
	}
	if len(b) != BoardSize {
		return fmt.Errorf("%w: expected %d tiles, got %d", ErrInvalidBoard, BoardSize, len(b))
	}
	return nil
}

// ParseBoard decodes a JSON array of integers and validates its size.
func ParseBoard(raw []byte) (Board, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: missing", ErrInvalidBoard)
	}

	var b Board
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBoard, err)
	}
	if err := ValidateBoard(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Clone returns an independent copy.
func (b Board) Clone() Board {
	if b == nil {
		return nil
	}
	out := make(Board, len(b))
	copy(out, b)
	return out
}

// Equal reports whether both boards hold the same tiles in the same order.
func (b Board) Equal(other Board) bool {
	if len(b) != len(other) {
		return false
	}
	for i := range b {
		if b[i] != other[i] {
			return false
		}
	}
	return true
}

// InRange reports whether pos is a valid grid position.
func InRange(pos int) bool {
	return pos >= 0 && pos < BoardSize
}

// TileImage builds the image URL for a tile: base + id + ".jpg".
func TileImage(base string, id int) string {
	return base + strconv.Itoa(id) + TileImageExt
}

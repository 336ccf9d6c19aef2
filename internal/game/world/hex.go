// Package world provides the hex grid model: coordinates, directions, hallways, rooms,
// and the grid that holds them.
package world

import (
	"fmt"
	"strings"
)

// Coord identifies a grid cell by row and column.
type Coord struct {
	Row int
	Col int
}

// DraftCoord returns the sentinel coordinate carried by draft option idx before placement.
func DraftCoord(idx int) Coord {
	return Coord{Row: -1, Col: idx}
}

// IsDraft reports whether c is a draft sentinel rather than a grid cell.
func (c Coord) IsDraft() bool {
	return c.Row == -1
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Direction is one of the six hex directions, numbered clockwise from North.
type Direction int

// The six hex directions in clockwise order.
const (
	North Direction = iota
	NorthEast
	SouthEast
	South
	SouthWest
	NorthWest
)

// DirectionCount is the number of hex directions.
const DirectionCount = 6

// Directions lists every direction in clockwise order.
var Directions = [DirectionCount]Direction{North, NorthEast, SouthEast, South, SouthWest, NorthWest}

var directionNames = [DirectionCount]string{
	"north", "north_east", "south_east", "south", "south_west", "north_west",
}

var directionAliases = map[string]Direction{
	"n": North, "north": North,
	"ne": NorthEast, "northeast": NorthEast, "north_east": NorthEast, "north-east": NorthEast,
	"se": SouthEast, "southeast": SouthEast, "south_east": SouthEast, "south-east": SouthEast,
	"s": South, "south": South,
	"sw": SouthWest, "southwest": SouthWest, "south_west": SouthWest, "south-west": SouthWest,
	"nw": NorthWest, "northwest": NorthWest, "north_west": NorthWest, "north-west": NorthWest,
}

// Valid reports whether d is one of the six directions.
func (d Direction) Valid() bool {
	return d >= North && d <= NorthWest
}

func (d Direction) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

// ParseDirection resolves a direction name or abbreviation, case-insensitively.
//
// Postcondition: Returns (direction, true) on a match, or (0, false).
func ParseDirection(s string) (Direction, bool) {
	d, ok := directionAliases[strings.ToLower(strings.TrimSpace(s))]
	return d, ok
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid direction %d", int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, ok := ParseDirection(string(text))
	if !ok {
		return fmt.Errorf("unknown direction %q", string(text))
	}
	*d = parsed
	return nil
}

// Opposite returns the direction pointing back along the same axis.
//
// Precondition: d must be valid. Panics with "world: Opposite of invalid direction" otherwise.
// Postcondition: d.Opposite().Opposite() == d.
func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case NorthEast:
		return SouthWest
	case SouthWest:
		return NorthEast
	case SouthEast:
		return NorthWest
	case NorthWest:
		return SouthEast
	default:
		panic(fmt.Sprintf("world: Opposite of invalid direction %d", int(d)))
	}
}

// Offset tables for the odd-q layout: odd columns sit half a cell lower than even ones,
// so the diagonal row deltas depend on column parity.
var (
	evenColOffsets = [DirectionCount]Coord{
		North:     {-1, 0},
		NorthEast: {-1, 1},
		SouthEast: {0, 1},
		South:     {1, 0},
		SouthWest: {0, -1},
		NorthWest: {-1, -1},
	}
	oddColOffsets = [DirectionCount]Coord{
		North:     {-1, 0},
		NorthEast: {0, 1},
		SouthEast: {1, 1},
		South:     {1, 0},
		SouthWest: {1, -1},
		NorthWest: {0, -1},
	}
)

// TileTowards returns the neighbor of pos in direction dir. The result may lie off the grid.
//
// Precondition: dir must be valid. Panics otherwise.
// Postcondition: TileTowards(TileTowards(pos, d), d.Opposite()) == pos.
func TileTowards(pos Coord, dir Direction) Coord {
	if !dir.Valid() {
		panic(fmt.Sprintf("world: TileTowards with invalid direction %d", int(dir)))
	}
	offsets := &evenColOffsets
	if pos.Col%2 != 0 {
		offsets = &oddColOffsets
	}
	off := offsets[dir]
	return Coord{Row: pos.Row + off.Row, Col: pos.Col + off.Col}
}

// Layout describes grid dimensions.
type Layout struct {
	Rows int
	Cols int
}

// Valid reports whether c lies on the grid.
func (l Layout) Valid(c Coord) bool {
	return l.ValidRowCol(c.Row, c.Col)
}

// ValidRowCol reports whether 0 <= row < Rows and 0 <= col < Cols.
func (l Layout) ValidRowCol(row, col int) bool {
	return row >= 0 && row < l.Rows && col >= 0 && col < l.Cols
}

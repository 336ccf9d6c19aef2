package world

import "fmt"

// Grid is a fixed-size array of rooms created once per game.
type Grid struct {
	layout Layout
	rooms  []Room
}

// NewGrid creates a grid of unrevealed rooms.
//
// Precondition: rows and cols must be >= 1.
// Postcondition: Every cell holds NewRoom at its own coordinate.
func NewGrid(rows, cols int) *Grid {
	if rows < 1 || cols < 1 {
		panic(fmt.Sprintf("world: NewGrid with invalid size %dx%d", rows, cols))
	}
	g := &Grid{
		layout: Layout{Rows: rows, Cols: cols},
		rooms:  make([]Room, rows*cols),
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			pos := Coord{Row: r, Col: c}
			g.rooms[g.offset(pos)] = NewRoom(pos)
		}
	}
	return g
}

// Layout returns the grid dimensions.
func (g *Grid) Layout() Layout {
	return g.layout
}

// Valid reports whether c lies on the grid.
func (g *Grid) Valid(c Coord) bool {
	return g.layout.Valid(c)
}

func (g *Grid) offset(c Coord) int {
	return c.Row*g.layout.Cols + c.Col
}

// At returns the live room at c.
//
// Precondition: c must be on the grid. Panics otherwise.
func (g *Grid) At(c Coord) *Room {
	if !g.Valid(c) {
		panic(fmt.Sprintf("world: At off-grid coordinate %s", c))
	}
	return &g.rooms[g.offset(c)]
}

// Place replaces the room at c wholesale with a copy of room, stamped with c.
//
// Precondition: c must be on the grid.
func (g *Grid) Place(c Coord, room Room) {
	placed := room.Clone()
	placed.Coord = c
	*g.At(c) = placed
}

// Neighbor returns the room adjacent to c in direction d.
//
// Postcondition: Returns (room, true) when the neighbor is on the grid, or (nil, false).
func (g *Grid) Neighbor(c Coord, d Direction) (*Room, bool) {
	n := TileTowards(c, d)
	if !g.Valid(n) {
		return nil, false
	}
	return g.At(n), true
}

// Rooms returns deep copies of every room in row-major order.
func (g *Grid) Rooms() []Room {
	out := make([]Room, len(g.rooms))
	for i, r := range g.rooms {
		out[i] = r.Clone()
	}
	return out
}

// RevealedCount returns how many rooms are revealed.
func (g *Grid) RevealedCount() int {
	n := 0
	for i := range g.rooms {
		if g.rooms[i].Revealed {
			n++
		}
	}
	return n
}

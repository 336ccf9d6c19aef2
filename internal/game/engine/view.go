package engine

import (
	"github.com/cory-johannsen/hexdraft/internal/game/resource"
	"github.com/cory-johannsen/hexdraft/internal/game/world"
)

// View is a read-only copy of everything a frontend needs to draw a game.
type View struct {
	Seed      int64
	Layout    world.Layout
	Rooms     []world.Room
	Player    world.Coord
	Exit      world.Coord
	State     State
	Draft     *Draft
	Resources map[resource.ItemID]int
	Message   string
	Running   bool
	ShopOpen  bool
	Offers    []Offer
	Stats     Stats
}

// At returns the room at c from the view.
//
// Precondition: c must lie within Layout.
func (v View) At(c world.Coord) world.Room {
	return v.Rooms[c.Row*v.Layout.Cols+c.Col]
}

// Snapshot copies the game state. Mutating the result never affects the game.
func (g *Game) Snapshot() View {
	v := View{
		Seed:      g.src.Seed(),
		Layout:    g.grid.Layout(),
		Rooms:     g.grid.Rooms(),
		Player:    g.player,
		Exit:      g.exit,
		State:     g.state,
		Resources: g.ledger.Snapshot(),
		Message:   g.message,
		Running:   g.running,
		ShopOpen:  g.shopOpen,
		Stats:     g.stats,
	}
	if d, ok := g.Draft(); ok {
		v.Draft = &d
	}
	if g.shopOpen {
		v.Offers = g.ShopOffers()
	}
	return v
}

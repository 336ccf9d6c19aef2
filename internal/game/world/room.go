package world

import (
	"github.com/cory-johannsen/hexdraft/internal/game/effect"
	"github.com/cory-johannsen/hexdraft/internal/game/resource"
)

// HallwayStatus describes what is known about one side of a hallway.
type HallwayStatus int

// Hallway statuses.
const (
	// StatusUnknown means the far side has not been revealed yet.
	StatusUnknown HallwayStatus = iota
	// StatusOpen means both sides agree the connection is usable.
	StatusOpen
	// StatusBlocked means traversal from this side is disallowed.
	StatusBlocked
)

func (s HallwayStatus) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusOpen:
		return "open"
	case StatusBlocked:
		return "blocked"
	default:
		return "invalid"
	}
}

// Hallway is one of the six edges of a room.
//
// Invariant: a disabled hallway has StatusBlocked.
type Hallway struct {
	Status  HallwayStatus
	Enabled bool
}

// DisabledHallway returns a hallway that does not physically exist.
func DisabledHallway() Hallway {
	return Hallway{Status: StatusBlocked, Enabled: false}
}

// UnknownHallway returns an existing hallway whose far side is unrevealed.
func UnknownHallway() Hallway {
	return Hallway{Status: StatusUnknown, Enabled: true}
}

// Traversable reports whether the hallway exists and is not blocked from this side.
func (h Hallway) Traversable() bool {
	return h.Enabled && h.Status != StatusBlocked
}

// Events binds room lifecycle events to effects. Only Enter is fired by gameplay.
type Events struct {
	Enter effect.ID
	Exit  effect.ID
	Use   effect.ID
}

// NoopEvents binds every event to the noop effect.
func NoopEvents() Events {
	return Events{Enter: effect.NoopID, Exit: effect.NoopID, Use: effect.NoopID}
}

// Room is the gameplay data of one cell.
type Room struct {
	// Coord is the room's own cell, or a DraftCoord while it is a draft option.
	Coord Coord
	// Events binds lifecycle events to effects.
	Events Events
	// Hallways is indexed by Direction; all six entries always exist.
	Hallways [DirectionCount]Hallway
	// Revealed is true once the room is committed to the grid.
	Revealed bool
	// TriggerCount counts firings of the enter effect on this room instance.
	TriggerCount int
	// NeedsKey is true while entering requires spending a key.
	NeedsKey bool
	// Items lists what the room visibly offers.
	Items []resource.ItemID
}

// NewRoom returns an unrevealed room at c with every hallway disabled.
func NewRoom(c Coord) Room {
	r := Room{Coord: c, Events: NoopEvents()}
	for _, d := range Directions {
		r.Hallways[d] = DisabledHallway()
	}
	return r
}

// Hallway returns a pointer to the hallway in direction d.
//
// Precondition: d must be valid.
func (r *Room) Hallway(d Direction) *Hallway {
	return &r.Hallways[d]
}

// Clone returns a deep copy sharing no mutable state with r.
func (r Room) Clone() Room {
	out := r
	if r.Items != nil {
		out.Items = make([]resource.ItemID, len(r.Items))
		copy(out.Items, r.Items)
	}
	return out
}

// OpenDirections returns the directions whose hallways are traversable from this side.
func (r *Room) OpenDirections() []Direction {
	var dirs []Direction
	for _, d := range Directions {
		if r.Hallways[d].Traversable() {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// Package draft generates the three candidate rooms offered when the player moves into
// an unrevealed cell.
package draft

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/hexdraft/internal/config"
	"github.com/cory-johannsen/hexdraft/internal/game/effect"
	"github.com/cory-johannsen/hexdraft/internal/game/resource"
	"github.com/cory-johannsen/hexdraft/internal/game/rng"
	"github.com/cory-johannsen/hexdraft/internal/game/world"
)

// OptionCount is the number of rooms in every draft.
const OptionCount = 3

// Stats describes how a batch was produced.
type Stats struct {
	// Attempts is the number of full batches generated.
	Attempts int
	// Forced is true when the retry cap was hit and a key requirement was cleared.
	Forced bool
}

// Generator builds draft options from the effect registry and a shared RNG.
type Generator struct {
	cfg     config.DraftConfig
	effects *effect.Registry
	src     *rng.Rand
	logger  *zap.Logger
}

// NewGenerator creates a Generator.
//
// Precondition: effects, src, and logger must be non-nil; cfg must pass Validate.
func NewGenerator(cfg config.DraftConfig, effects *effect.Registry, src *rng.Rand, logger *zap.Logger) *Generator {
	return &Generator{cfg: cfg, effects: effects, src: src, logger: logger}
}

// Generate produces a batch of options for the cell pos, approached by moving in dir. The
// whole batch is regenerated until keys >= 1 or some option needs no key.
//
// Precondition: pos must be on the grid.
// Postcondition: keys >= 1, or at least one returned option has NeedsKey == false. Each
// option's hallway at dir.Opposite() is enabled and open.
func (g *Generator) Generate(grid *world.Grid, pos world.Coord, dir world.Direction, keys int) ([OptionCount]world.Room, Stats) {
	var options [OptionCount]world.Room
	stats := Stats{}
	for {
		stats.Attempts++
		for i := range options {
			options[i] = g.Room(grid, pos, dir, i)
		}
		if Enterable(options, keys) {
			return options, stats
		}
		if g.cfg.MaxAttempts > 0 && stats.Attempts >= g.cfg.MaxAttempts {
			options[0].NeedsKey = false
			stats.Forced = true
			g.logger.Warn("draft retry cap reached, clearing key requirement",
				zap.Int("attempts", stats.Attempts),
				zap.Stringer("position", pos),
				zap.Stringer("direction", dir),
			)
			return options, stats
		}
	}
}

// Enterable reports whether the player can commit at least one option while holding keys.
func Enterable(options [OptionCount]world.Room, keys int) bool {
	if keys >= 1 {
		return true
	}
	for i := range options {
		if !options[i].NeedsKey {
			return true
		}
	}
	return false
}

// Room generates a single candidate for pos, tagged with the draft sentinel for idx.
//
// Postcondition: The hallway at dir.Opposite() is {open, enabled}; rooms whose effect
// grants an item never need a key.
func (g *Generator) Room(grid *world.Grid, pos world.Coord, dir world.Direction, idx int) world.Room {
	room := world.NewRoom(world.DraftCoord(idx))

	eff := g.effects.Pick(g.src)
	room.Events.Enter = eff.ID
	if eff.GrantsItem != "" {
		room.Items = []resource.ItemID{eff.GrantsItem}
	}

	for _, d := range world.Directions {
		room.Hallways[d] = g.Hallway(grid, pos, d)
	}
	room.Hallways[dir.Opposite()] = world.Hallway{Status: world.StatusOpen, Enabled: true}

	if eff.GrantsItem == "" {
		room.NeedsKey = g.src.Chance(g.cfg.KeyChance)
	}
	return room
}

// Hallway decides the hallway of a room at pos facing d. Off-grid edges and the common
// case are disabled; surviving edges take their status from the revealed neighbor.
func (g *Generator) Hallway(grid *world.Grid, pos world.Coord, d world.Direction) world.Hallway {
	if !g.src.Chance(g.cfg.HallwayChance) {
		return world.DisabledHallway()
	}
	neighbor, ok := grid.Neighbor(pos, d)
	if !ok {
		return world.DisabledHallway()
	}
	if !g.src.Chance(g.cfg.ConnectChance) {
		return world.DisabledHallway()
	}
	if !neighbor.Revealed {
		return world.UnknownHallway()
	}
	if neighbor.Hallways[d.Opposite()].Enabled {
		return world.Hallway{Status: world.StatusOpen, Enabled: true}
	}
	return world.Hallway{Status: world.StatusBlocked, Enabled: true}
}

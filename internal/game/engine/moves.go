package engine

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/hexdraft/internal/game/draft"
	"github.com/cory-johannsen/hexdraft/internal/game/resource"
	"github.com/cory-johannsen/hexdraft/internal/game/world"
)

// MovePlayer attempts to walk from the player's room in dir. Walking into an unrevealed
// cell opens a draft instead of moving.
//
// Postcondition: Returns false and leaves the game unchanged when the move is rejected.
func (g *Game) MovePlayer(dir world.Direction) bool {
	if !g.running || g.state != StateMove {
		return false
	}
	return g.updatePlayerPosition(dir)
}

func (g *Game) updatePlayerPosition(dir world.Direction) bool {
	if !g.running {
		return false
	}
	target := world.TileTowards(g.player, dir)
	if !g.grid.Valid(target) {
		return false
	}
	if g.ledger.Get(resource.Steps) <= 0 {
		return false
	}
	if !g.grid.At(g.player).Hallways[dir].Traversable() {
		return false
	}

	next := g.grid.At(target)
	if !next.Revealed {
		g.beginDraft(target, dir)
		return true
	}
	if !next.Hallways[dir.Opposite()].Enabled {
		return false
	}

	g.shopOpen = false
	g.enter(next)
	g.player = target
	g.ledger.Remove(resource.Steps, 1)
	g.stats.Moves++
	g.logger.Debug("player moved",
		zap.Stringer("direction", dir),
		zap.Stringer("position", target),
		zap.Int("steps", g.ledger.Get(resource.Steps)),
	)
	return true
}

// enter fires the room's enter effect, honoring its trigger limit. An effect that did
// not fire does not count against the limit.
func (g *Game) enter(room *world.Room) {
	eff := g.effects.MustLookup(room.Events.Enter)
	if eff.Limited() && room.TriggerCount >= eff.TriggerLimit {
		g.message = ""
		return
	}
	msg, fired := eff.Apply(effectTarget{g: g})
	g.message = msg
	if fired && eff.Limited() {
		room.TriggerCount++
	}
}

func (g *Game) beginDraft(pos world.Coord, dir world.Direction) {
	g.state = StateDraft
	g.draft = Draft{Position: pos, Direction: dir}
	g.generateOptions()
	g.logger.Debug("draft started",
		zap.Stringer("position", pos),
		zap.Stringer("direction", dir),
	)
}

func (g *Game) generateOptions() {
	options, stats := g.gen.Generate(g.grid, g.draft.Position, g.draft.Direction, g.ledger.Get(resource.Keys))
	g.draft.Options = options
	g.stats.DraftAttempts += stats.Attempts
	if stats.Forced {
		g.stats.ForcedDrafts++
	}
}

// SelectDraftOption moves the draft cursor by delta, clamped to the option range.
//
// Postcondition: Returns true only if the selected index changed.
func (g *Game) SelectDraftOption(delta int) bool {
	if !g.running || g.state != StateDraft {
		return false
	}
	idx := g.draft.Selected + delta
	if idx < 0 {
		idx = 0
	}
	if idx > draft.OptionCount-1 {
		idx = draft.OptionCount - 1
	}
	if idx == g.draft.Selected {
		return false
	}
	g.draft.Selected = idx
	return true
}

// CommitDraftSelection places the selected option, completes the pending move, and
// returns to StateMove. A locked option costs one key.
//
// Postcondition: Returns false and leaves the game unchanged when the option needs a key
// and none is held.
func (g *Game) CommitDraftSelection() bool {
	if !g.running || g.state != StateDraft {
		return false
	}
	room := g.draft.Options[g.draft.Selected].Clone()
	if room.NeedsKey {
		if !g.ledger.Spend(resource.Keys, 1) {
			return false
		}
		room.NeedsKey = false
	}
	room.Revealed = true

	pos, dir := g.draft.Position, g.draft.Direction
	g.grid.Place(pos, room)
	g.stats.Placements++
	g.logger.Debug("room placed",
		zap.Stringer("position", pos),
		zap.String("effect", string(room.Events.Enter)),
		zap.Int("option", g.draft.Selected),
	)

	g.updatePlayerPosition(dir)
	g.reconcileNeighbors(pos)
	g.state = StateMove
	g.draft = Draft{}
	return true
}

// reconcileNeighbors settles the back-hallways of revealed rooms around pos now that the
// room at pos is known.
func (g *Game) reconcileNeighbors(pos world.Coord) {
	placed := g.grid.At(pos)
	for _, d := range world.Directions {
		n, ok := g.grid.Neighbor(pos, d)
		if !ok || !n.Revealed {
			continue
		}
		back := n.Hallway(d.Opposite())
		if !back.Enabled {
			continue
		}
		if placed.Hallways[d].Enabled {
			back.Status = world.StatusOpen
		} else {
			back.Status = world.StatusBlocked
		}
	}
}

// RefreshDraftOptions pays the refresh cost in gems and regenerates the whole batch.
//
// Postcondition: Returns false and leaves the game unchanged when gems are short.
func (g *Game) RefreshDraftOptions() bool {
	if !g.running || g.state != StateDraft {
		return false
	}
	if !g.ledger.Spend(resource.Gems, g.cfg.Game.RefreshCost) {
		return false
	}
	g.generateOptions()
	g.stats.Refreshes++
	g.logger.Debug("draft refreshed",
		zap.Stringer("position", g.draft.Position),
		zap.Int("gems", g.ledger.Get(resource.Gems)),
	)
	return true
}

package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/hexdraft/internal/config"
	"github.com/cory-johannsen/hexdraft/internal/game/dice"
	"github.com/cory-johannsen/hexdraft/internal/game/effect"
	"github.com/cory-johannsen/hexdraft/internal/game/resource"
	"github.com/cory-johannsen/hexdraft/internal/game/world"
	"github.com/cory-johannsen/hexdraft/internal/scripting"
)

func newTestGame(t *testing.T, seed int64, opts ...Option) *Game {
	t.Helper()
	return newTestGameWith(t, config.Default(), effect.DefaultRegistry(), append([]Option{WithSeed(seed)}, opts...)...)
}

func newTestGameWith(t *testing.T, cfg config.Config, reg *effect.Registry, opts ...Option) *Game {
	t.Helper()
	g, err := New(cfg, reg, zaptest.NewLogger(t), opts...)
	require.NoError(t, err)
	return g
}

// revealAt turns the cell at c into a revealed noop room with every hallway unknown.
func revealAt(g *Game, c world.Coord) *world.Room {
	r := g.grid.At(c)
	r.Revealed = true
	r.Events = world.NoopEvents()
	for _, d := range world.Directions {
		*r.Hallway(d) = world.UnknownHallway()
	}
	return r
}

func TestNew_InitialConfiguration(t *testing.T) {
	g := newTestGame(t, 42)

	assert.Equal(t, int64(42), g.Seed())
	assert.Equal(t, world.Layout{Rows: 5, Cols: 13}, g.Layout())
	assert.Equal(t, world.Coord{Row: 2, Col: 0}, g.Player())
	assert.Equal(t, world.Coord{Row: 2, Col: 9}, g.Exit())
	assert.Equal(t, StateMove, g.State())
	assert.True(t, g.Running())
	assert.Equal(t, "", g.Message())
	assert.Equal(t, map[resource.ItemID]int{resource.Steps: 40, resource.Keys: 1, resource.Gems: 0}, g.Resources())
	assert.Equal(t, 2, g.RevealedCount())

	spawn := g.Room(g.Player())
	assert.True(t, spawn.Revealed)
	assert.Equal(t, effect.NoopID, spawn.Events.Enter)
	for _, d := range []world.Direction{world.North, world.NorthEast, world.SouthEast, world.South} {
		assert.Equal(t, world.UnknownHallway(), spawn.Hallways[d], "spawn %s", d)
	}
	assert.Equal(t, world.DisabledHallway(), spawn.Hallways[world.SouthWest])
	assert.Equal(t, world.DisabledHallway(), spawn.Hallways[world.NorthWest])

	exit := g.Room(g.Exit())
	assert.True(t, exit.Revealed)
	assert.Equal(t, effect.ExitID, exit.Events.Enter)
	for _, d := range world.Directions {
		assert.True(t, exit.Hallways[d].Enabled, "exit %s", d)
	}

	other := g.Room(world.Coord{Row: 0, Col: 5})
	assert.False(t, other.Revealed)
	assert.Empty(t, other.OpenDirections())

	_, drafting := g.Draft()
	assert.False(t, drafting)
}

func TestNew_RejectsUnknownBlockedDirection(t *testing.T) {
	cfg := config.Default()
	cfg.Game.BlockedStartDirections = []string{"east"}
	_, err := New(cfg, effect.DefaultRegistry(), zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "east")
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Game.ExitCol = 99
	_, err := New(cfg, effect.DefaultRegistry(), zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestMovePlayer_OffGridNorthNeverMoves(t *testing.T) {
	g := newTestGame(t, 1)
	top := world.Coord{Row: 0, Col: 4}
	revealAt(g, top)
	g.player = top

	for i := 0; i < 10; i++ {
		assert.False(t, g.MovePlayer(world.North))
	}
	assert.Equal(t, top, g.Player())
	assert.Equal(t, 40, g.Resource(resource.Steps))
	assert.Equal(t, StateMove, g.State())
}

func TestMovePlayer_BlockedStartDirectionsRejected(t *testing.T) {
	g := newTestGame(t, 1)
	for _, d := range []world.Direction{world.SouthWest, world.NorthWest} {
		assert.False(t, g.MovePlayer(d), "direction %s", d)
	}
	assert.Equal(t, world.Coord{Row: 2, Col: 0}, g.Player())
	assert.Equal(t, 40, g.Resource(resource.Steps))
	assert.Equal(t, StateMove, g.State())
}

func TestMovePlayer_BlockedStartDirectionsRejectedInsideGrid(t *testing.T) {
	cfg := config.Default()
	cfg.Game.StartCol = 4
	g := newTestGameWith(t, cfg, effect.DefaultRegistry(), WithSeed(1))

	// Both neighbors exist on the grid; only the configuration keeps them closed.
	assert.True(t, g.grid.Valid(world.TileTowards(g.Player(), world.SouthWest)))
	assert.False(t, g.MovePlayer(world.SouthWest))
	assert.False(t, g.MovePlayer(world.NorthWest))
	assert.Equal(t, StateMove, g.State())
}

func TestMovePlayer_IntoUnrevealedStartsDraft(t *testing.T) {
	g := newTestGame(t, 7)
	require.True(t, g.MovePlayer(world.North))

	assert.Equal(t, StateDraft, g.State())
	assert.Equal(t, world.Coord{Row: 2, Col: 0}, g.Player(), "drafting does not move the player")
	assert.Equal(t, 40, g.Resource(resource.Steps), "drafting is free")

	d, ok := g.Draft()
	require.True(t, ok)
	assert.Equal(t, world.Coord{Row: 1, Col: 0}, d.Position)
	assert.Equal(t, world.North, d.Direction)
	assert.Equal(t, 0, d.Selected)
	assert.Len(t, d.Options, 3)
	for i, opt := range d.Options {
		assert.Equal(t, world.Hallway{Status: world.StatusOpen, Enabled: true}, opt.Hallways[world.South], "option %d", i)
	}

	assert.False(t, g.MovePlayer(world.NorthEast), "moves are ignored while drafting")
}

func TestMovePlayer_ZeroStepsRejected(t *testing.T) {
	g := newTestGame(t, 7)
	g.ledger.Set(resource.Steps, 0)
	assert.False(t, g.MovePlayer(world.North))
	assert.Equal(t, StateMove, g.State())
}

func TestMovePlayer_RevealedWithoutBackHallwayRejected(t *testing.T) {
	g := newTestGame(t, 7)
	north := revealAt(g, world.Coord{Row: 1, Col: 0})
	*north.Hallway(world.South) = world.DisabledHallway()

	assert.False(t, g.MovePlayer(world.North))
	assert.Equal(t, world.Coord{Row: 2, Col: 0}, g.Player())
}

func TestMovePlayer_RevealedRoomEntersAndCostsStep(t *testing.T) {
	g := newTestGame(t, 7)
	north := revealAt(g, world.Coord{Row: 1, Col: 0})
	north.Events.Enter = "gems"

	require.True(t, g.MovePlayer(world.North))
	assert.Equal(t, world.Coord{Row: 1, Col: 0}, g.Player())
	assert.Equal(t, 39, g.Resource(resource.Steps))
	assert.Equal(t, 2, g.Resource(resource.Gems))
	assert.Equal(t, "You collect 2 gems.", g.Message())
	assert.Equal(t, 1, g.Room(world.Coord{Row: 1, Col: 0}).TriggerCount)

	// Walking back and in again finds the gems gone and the message cleared.
	require.True(t, g.MovePlayer(world.South))
	assert.Equal(t, "Nothing here.", g.Message())
	require.True(t, g.MovePlayer(world.North))
	assert.Equal(t, 2, g.Resource(resource.Gems))
	assert.Equal(t, "", g.Message())
	assert.Equal(t, 37, g.Resource(resource.Steps))
	assert.Equal(t, 3, g.Stats().Moves)
}

func TestMovePlayer_BlockedHallwayRejected(t *testing.T) {
	g := newTestGame(t, 7)
	revealAt(g, world.Coord{Row: 1, Col: 0})
	g.grid.At(g.Player()).Hallway(world.North).Status = world.StatusBlocked

	assert.False(t, g.MovePlayer(world.North))
}

func TestExit_HaltsGame(t *testing.T) {
	g := newTestGame(t, 3)
	beside := world.Coord{Row: 2, Col: 8}
	revealAt(g, beside)
	g.player = beside

	require.True(t, g.MovePlayer(world.SouthEast))
	assert.Equal(t, g.Exit(), g.Player())
	assert.False(t, g.Running())
	assert.Equal(t, "You escaped!", g.Message())

	for _, d := range world.Directions {
		assert.False(t, g.MovePlayer(d))
	}
	assert.False(t, g.SelectDraftOption(1))
	assert.False(t, g.CommitDraftSelection())
	assert.False(t, g.RefreshDraftOptions())

	g.NewGame(3)
	assert.True(t, g.Running())
	assert.Equal(t, world.Coord{Row: 2, Col: 0}, g.Player())
	assert.Equal(t, 2, g.RevealedCount())
}

func TestNewGame_ReproducibleUnderSeed(t *testing.T) {
	play := func() View {
		g := newTestGame(t, 99)
		g.MovePlayer(world.North)
		g.SelectDraftOption(1)
		g.CommitDraftSelection()
		g.MovePlayer(world.NorthEast)
		g.MovePlayer(world.SouthEast)
		return g.Snapshot()
	}
	assert.Equal(t, play(), play())
}

func TestNewGame_ResetsState(t *testing.T) {
	g := newTestGame(t, 5)
	require.True(t, g.MovePlayer(world.North))
	g.DebugAddResource(resource.Gems, 9)

	g.NewGame(6)
	assert.Equal(t, int64(6), g.Seed())
	assert.Equal(t, StateMove, g.State())
	assert.Equal(t, 0, g.Resource(resource.Gems))
	assert.Equal(t, Stats{}, g.Stats())
}

func TestNewRandomGame_Runs(t *testing.T) {
	g, err := New(config.Default(), effect.DefaultRegistry(), zaptest.NewLogger(t))
	require.NoError(t, err)
	g.NewRandomGame()
	assert.True(t, g.Running())
	assert.Equal(t, 40, g.Resource(resource.Steps))
}

func TestDebugAddResource(t *testing.T) {
	g := newTestGame(t, 5)
	g.DebugAddResource(resource.Keys, 3)
	assert.Equal(t, 4, g.Resource(resource.Keys))
	g.DebugAddResource(resource.Keys, -10)
	assert.Equal(t, 0, g.Resource(resource.Keys))
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	g := newTestGame(t, 11)
	require.True(t, g.MovePlayer(world.North))

	v := g.Snapshot()
	require.NotNil(t, v.Draft)
	assert.Equal(t, StateDraft, v.State)
	assert.Equal(t, g.Player(), v.Player)
	assert.True(t, v.At(g.Exit()).Revealed)

	v.Rooms[0].Revealed = true
	v.Resources[resource.Keys] = 99
	v.Draft.Options[0].NeedsKey = !v.Draft.Options[0].NeedsKey

	assert.False(t, g.Room(world.Coord{Row: 0, Col: 0}).Revealed)
	assert.Equal(t, 1, g.Resource(resource.Keys))
	d, _ := g.Draft()
	assert.NotEqual(t, v.Draft.Options[0].NeedsKey, d.Options[0].NeedsKey)
}

type stubHooks struct {
	msg string
	err error
}

func (s stubHooks) CallHook(hook string, ledger *resource.Ledger) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	ledger.Add(resource.Gems, 5)
	return s.msg, nil
}

func (stubHooks) Reset() error { return nil }
func (stubHooks) Close()       {}

func scriptRegistry(t *testing.T) *effect.Registry {
	t.Helper()
	effects := effect.BuiltinEffects()
	effects = append(effects, effect.Effect{
		ID: "fountain", Kind: effect.KindScript, Hook: "fountain",
		TriggerText: "The fountain gurgles.", TriggerLimit: effect.Unlimited,
	})
	reg, err := effect.NewRegistry(effects)
	require.NoError(t, err)
	return reg
}

func TestScriptEffect_MessageOverride(t *testing.T) {
	g := newTestGameWith(t, config.Default(), scriptRegistry(t), WithSeed(1), WithHookRunner(stubHooks{msg: "Coins rain down."}))
	north := revealAt(g, world.Coord{Row: 1, Col: 0})
	north.Events.Enter = "fountain"

	require.True(t, g.MovePlayer(world.North))
	assert.Equal(t, "Coins rain down.", g.Message())
	assert.Equal(t, 5, g.Resource(resource.Gems))
}

func TestScriptEffect_FailureFallsBackToTriggerText(t *testing.T) {
	g := newTestGameWith(t, config.Default(), scriptRegistry(t), WithSeed(1), WithHookRunner(stubHooks{err: assert.AnError}))
	north := revealAt(g, world.Coord{Row: 1, Col: 0})
	north.Events.Enter = "fountain"

	require.True(t, g.MovePlayer(world.North))
	assert.Equal(t, "", g.Message(), "a failed hook is a no-op")
	assert.Equal(t, 0, g.Resource(resource.Gems))
}

func TestScriptEffect_NoRunnerIsHarmless(t *testing.T) {
	g := newTestGameWith(t, config.Default(), scriptRegistry(t), WithSeed(1))
	north := revealAt(g, world.Coord{Row: 1, Col: 0})
	north.Events.Enter = "fountain"

	require.True(t, g.MovePlayer(world.North))
	assert.Equal(t, "", g.Message())
}

// luaGame builds a game whose "fountain" effect runs the hook of the same name from
// src, in a VM of its own.
func luaGame(t *testing.T, src string, limit int, seed int64) *Game {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fountain.lua"), []byte(src), 0644))
	mgr := scripting.NewManager(zaptest.NewLogger(t))
	require.NoError(t, mgr.Load(dir, 0))
	t.Cleanup(mgr.Close)
	vm, err := mgr.Fork()
	require.NoError(t, err)

	effects := append(effect.BuiltinEffects(), effect.Effect{
		ID: "fountain", Kind: effect.KindScript, Hook: "fountain",
		TriggerText: "The fountain gurgles.", TriggerLimit: limit,
	})
	reg, err := effect.NewRegistry(effects)
	require.NoError(t, err)
	g := newTestGameWith(t, config.Default(), reg, WithSeed(seed), WithHookRunner(vm))
	t.Cleanup(g.Close)
	return g
}

func enterFountainNorth(t *testing.T, g *Game) {
	t.Helper()
	north := revealAt(g, world.Coord{Row: 1, Col: 0})
	north.Events.Enter = "fountain"
	require.True(t, g.MovePlayer(world.North))
}

func TestScriptEffect_ErrorDiscardsLedgerWrites(t *testing.T) {
	g := luaGame(t, `
		function fountain()
			hex.add("gems", 7)
			hex.remove("steps", 30)
			error("boom")
		end
	`, effect.Unlimited, 1)

	enterFountainNorth(t, g)
	assert.Equal(t, 0, g.Resource(resource.Gems))
	assert.Equal(t, 39, g.Resource(resource.Steps), "only the move's step is spent")
	assert.Equal(t, "", g.Message())
}

func TestScriptEffect_FailureKeepsTriggerCharge(t *testing.T) {
	g := luaGame(t, `
		function fountain()
			if hex.get("gems") == 0 then
				error("dry")
			end
			hex.add("steps", 5)
			return "Refreshed."
		end
	`, 1, 1)

	enterFountainNorth(t, g)
	room := g.grid.At(world.Coord{Row: 1, Col: 0})
	assert.Equal(t, 0, room.TriggerCount)

	g.ledger.Set(resource.Gems, 1)
	require.True(t, g.MovePlayer(world.South))
	require.True(t, g.MovePlayer(world.North))
	assert.Equal(t, "Refreshed.", g.Message())
	assert.Equal(t, 1, room.TriggerCount)
	assert.Equal(t, 40-3+5, g.Resource(resource.Steps))
}

const visitCounter = `
	visits = 0
	function fountain()
		visits = visits + 1
		hex.add("gems", visits)
	end
`

func TestScriptEffect_SameSeedReplaysWithStatefulScript(t *testing.T) {
	g := luaGame(t, visitCounter, effect.Unlimited, 1)
	enterFountainNorth(t, g)
	assert.Equal(t, 1, g.Resource(resource.Gems))

	g.NewGame(1)
	enterFountainNorth(t, g)
	assert.Equal(t, 1, g.Resource(resource.Gems), "a new game starts with fresh script globals")

	other := luaGame(t, visitCounter, effect.Unlimited, 1)
	enterFountainNorth(t, other)
	assert.Equal(t, 1, other.Resource(resource.Gems))
}

func rolledRegistry(t *testing.T) *effect.Registry {
	t.Helper()
	roll := dice.MustParse("2d6")
	effects := append(effect.BuiltinEffects(), effect.Effect{
		ID: "cache", Kind: effect.KindAdd, Item: resource.Gems, Roll: &roll,
		TriggerText: "You find {amount} gems.", TriggerLimit: 1,
	})
	reg, err := effect.NewRegistry(effects)
	require.NoError(t, err)
	return reg
}

func TestRolledEffect_ReplaysWithSeed(t *testing.T) {
	play := func() (int, string) {
		g := newTestGameWith(t, config.Default(), rolledRegistry(t), WithSeed(11))
		north := revealAt(g, world.Coord{Row: 1, Col: 0})
		north.Events.Enter = "cache"
		require.True(t, g.MovePlayer(world.North))
		return g.Resource(resource.Gems), g.Message()
	}
	gems, msg := play()
	assert.GreaterOrEqual(t, gems, 2)
	assert.LessOrEqual(t, gems, 12)
	assert.Contains(t, msg, "You find ")
	assert.NotContains(t, msg, effect.AmountPlaceholder)

	again, msgAgain := play()
	assert.Equal(t, gems, again)
	assert.Equal(t, msg, msgAgain)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "move", StateMove.String())
	assert.Equal(t, "draft", StateDraft.String())
	assert.Equal(t, "invalid", State(7).String())
}

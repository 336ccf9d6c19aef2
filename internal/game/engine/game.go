// Package engine implements one hexdraft session: the grid, the player, the resource
// ledger, and the move/draft state machine that ties them together.
package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/hexdraft/internal/config"
	"github.com/cory-johannsen/hexdraft/internal/game/draft"
	"github.com/cory-johannsen/hexdraft/internal/game/effect"
	"github.com/cory-johannsen/hexdraft/internal/game/resource"
	"github.com/cory-johannsen/hexdraft/internal/game/rng"
	"github.com/cory-johannsen/hexdraft/internal/game/world"
)

// State is the input mode of a game.
type State int

// Game states.
const (
	StateMove State = iota
	StateDraft
)

func (s State) String() string {
	switch s {
	case StateMove:
		return "move"
	case StateDraft:
		return "draft"
	default:
		return "invalid"
	}
}

// Draft is the pending choice of a room for an unrevealed cell.
type Draft struct {
	// Position is the cell being drafted.
	Position world.Coord
	// Direction is the move that led into Position.
	Direction world.Direction
	Options   [draft.OptionCount]world.Room
	// Selected indexes Options and is always in [0, OptionCount).
	Selected int
}

// Clone returns a copy sharing no room items with d.
func (d Draft) Clone() Draft {
	out := d
	for i := range d.Options {
		out.Options[i] = d.Options[i].Clone()
	}
	return out
}

// Stats counts what happened during the current game.
type Stats struct {
	Moves         int
	Placements    int
	Refreshes     int
	DraftAttempts int
	ForcedDrafts  int
}

// HookRunner executes scripted effect hooks against the session's ledger. A Game owns
// its runner: script state must not be shared with any other Game.
type HookRunner interface {
	// CallHook runs hook. On error the ledger must be left unchanged.
	CallHook(hook string, ledger *resource.Ledger) (string, error)
	// Reset discards script state so a new game replays from its seed alone.
	Reset() error
	Close()
}

// Option configures a Game at construction.
type Option func(*Game)

// WithSeed starts the first game from seed instead of the clock.
func WithSeed(seed int64) Option {
	return func(g *Game) {
		g.initialSeed = &seed
	}
}

// WithHookRunner enables script effects. The Game takes ownership of h and closes it
// in Close.
func WithHookRunner(h HookRunner) Option {
	return func(g *Game) {
		g.hooks = h
	}
}

// Game is a single session. It is not safe for concurrent use; callers serialize access.
type Game struct {
	cfg     config.Config
	effects *effect.Registry
	logger  *zap.Logger
	hooks   HookRunner
	blocked []world.Direction

	initialSeed *int64

	src      *rng.Rand
	gen      *draft.Generator
	grid     *world.Grid
	ledger   *resource.Ledger
	player   world.Coord
	exit     world.Coord
	state    State
	draft    Draft
	message  string
	running  bool
	shopOpen bool
	stats    Stats
}

// New creates a Game and starts its first run.
//
// Precondition: effects and logger must be non-nil.
// Postcondition: Returns a running Game in StateMove, or an error if cfg is invalid.
func New(cfg config.Config, effects *effect.Registry, logger *zap.Logger, opts ...Option) (*Game, error) {
	if err := cfg.Game.Validate(); err != nil {
		return nil, fmt.Errorf("game config: %w", err)
	}
	if err := cfg.Draft.Validate(); err != nil {
		return nil, fmt.Errorf("draft config: %w", err)
	}
	blocked := make([]world.Direction, 0, len(cfg.Game.BlockedStartDirections))
	for _, name := range cfg.Game.BlockedStartDirections {
		d, ok := world.ParseDirection(name)
		if !ok {
			return nil, fmt.Errorf("game.blocked_start_directions: unknown direction %q", name)
		}
		blocked = append(blocked, d)
	}

	g := &Game{
		cfg:     cfg,
		effects: effects,
		logger:  logger,
		blocked: blocked,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.initialSeed != nil {
		g.NewGame(*g.initialSeed)
	} else {
		g.NewRandomGame()
	}
	return g, nil
}

// NewGame resets every piece of session state and reseeds the generator.
//
// Postcondition: Running() is true, State() is StateMove, and the grid holds only the
// spawn and exit rooms.
func (g *Game) NewGame(seed int64) {
	g.reset(rng.New(seed))
}

// NewRandomGame is NewGame seeded from the clock.
func (g *Game) NewRandomGame() {
	g.reset(rng.NewFromTime())
}

// Close releases the game's script VM, if any. Script effects are no-ops afterwards.
func (g *Game) Close() {
	if g.hooks != nil {
		g.hooks.Close()
	}
}

func (g *Game) reset(src *rng.Rand) {
	gc := g.cfg.Game
	if g.hooks != nil {
		if err := g.hooks.Reset(); err != nil {
			g.logger.Warn("resetting script state", zap.Error(err))
		}
	}
	g.src = src
	g.gen = draft.NewGenerator(g.cfg.Draft, g.effects, src, g.logger)
	g.grid = world.NewGrid(gc.Rows, gc.Cols)
	g.player = world.Coord{Row: gc.StartRow, Col: gc.StartCol}
	g.exit = world.Coord{Row: gc.ExitRow, Col: gc.ExitCol}

	g.ledger = resource.NewLedger()
	g.ledger.Set(resource.Steps, gc.StartSteps)
	g.ledger.Set(resource.Keys, gc.StartKeys)
	g.ledger.Set(resource.Gems, gc.StartGems)

	spawn := g.grid.At(g.player)
	spawn.Revealed = true
	spawn.Events = world.NoopEvents()
	g.enableInGridHallways(spawn)
	for _, d := range g.blocked {
		*spawn.Hallway(d) = world.DisabledHallway()
	}

	exit := g.grid.At(g.exit)
	exit.Revealed = true
	exit.Events = world.NoopEvents()
	exit.Events.Enter = effect.ExitID
	g.enableInGridHallways(exit)

	g.state = StateMove
	g.draft = Draft{}
	g.message = ""
	g.running = true
	g.shopOpen = false
	g.stats = Stats{}

	g.logger.Debug("new game",
		zap.Int64("seed", src.Seed()),
		zap.Stringer("player", g.player),
		zap.Stringer("exit", g.exit),
	)
}

func (g *Game) enableInGridHallways(r *world.Room) {
	for _, d := range world.Directions {
		if g.grid.Valid(world.TileTowards(r.Coord, d)) {
			*r.Hallway(d) = world.UnknownHallway()
		} else {
			*r.Hallway(d) = world.DisabledHallway()
		}
	}
}

// Seed returns the seed of the current run.
func (g *Game) Seed() int64 {
	return g.src.Seed()
}

// Player returns the player's cell.
func (g *Game) Player() world.Coord {
	return g.player
}

// Exit returns the exit cell.
func (g *Game) Exit() world.Coord {
	return g.exit
}

// Layout returns the grid dimensions.
func (g *Game) Layout() world.Layout {
	return g.grid.Layout()
}

// State returns the current input mode.
func (g *Game) State() State {
	return g.state
}

// Draft returns a copy of the pending draft.
//
// Postcondition: ok is false unless State() is StateDraft.
func (g *Game) Draft() (Draft, bool) {
	if g.state != StateDraft {
		return Draft{}, false
	}
	return g.draft.Clone(), true
}

// Resources returns a copy of the ledger.
func (g *Game) Resources() map[resource.ItemID]int {
	return g.ledger.Snapshot()
}

// Resource returns one ledger count.
func (g *Game) Resource(item resource.ItemID) int {
	return g.ledger.Get(item)
}

// Message returns the text of the last triggered effect, or "" when cleared.
func (g *Game) Message() string {
	return g.message
}

// Running reports whether the game still accepts input. It turns false when the exit fires.
func (g *Game) Running() bool {
	return g.running
}

// Room returns a copy of the room at c.
//
// Precondition: c must be on the grid.
func (g *Game) Room(c world.Coord) world.Room {
	return g.grid.At(c).Clone()
}

// Stats returns the counters of the current run.
func (g *Game) Stats() Stats {
	return g.stats
}

// RevealedCount returns the number of revealed rooms, spawn and exit included.
func (g *Game) RevealedCount() int {
	return g.grid.RevealedCount()
}

// RefreshCost returns the gem price of RefreshDraftOptions.
func (g *Game) RefreshCost() int {
	return g.cfg.Game.RefreshCost
}

// Effects returns the registry the game draws from.
func (g *Game) Effects() *effect.Registry {
	return g.effects
}

// DebugAddResource adds n of item to the ledger. A negative n removes, clamped at 0.
// It exists for developer tooling and bypasses every gameplay rule.
func (g *Game) DebugAddResource(item resource.ItemID, n int) {
	g.ledger.Add(item, n)
	g.logger.Debug("debug resource change",
		zap.String("item", string(item)),
		zap.Int("delta", n),
		zap.Int("total", g.ledger.Get(item)),
	)
}

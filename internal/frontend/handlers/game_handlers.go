package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/hexdraft/internal/frontend/telnet"
	"github.com/cory-johannsen/hexdraft/internal/game/command"
	"github.com/cory-johannsen/hexdraft/internal/game/effect"
	"github.com/cory-johannsen/hexdraft/internal/game/engine"
	"github.com/cory-johannsen/hexdraft/internal/game/resource"
	"github.com/cory-johannsen/hexdraft/internal/game/session"
	"github.com/cory-johannsen/hexdraft/internal/storage/postgres"
)

// handlerContext carries all inputs a command handler needs.
type handlerContext struct {
	ctx    context.Context
	h      *GameHandler
	sess   *session.Session
	conn   *telnet.Conn
	cmd    *command.Command
	parsed command.ParseResult
	run    *runTracker
	logger *zap.Logger
}

// handlerResult is returned by every command handler.
// quit is true when the player asked to disconnect and commandLoop should return nil.
type handlerResult struct {
	quit bool
}

// handlerFunc is the signature for all command dispatch functions.
type handlerFunc func(hc *handlerContext) (handlerResult, error)

// GameHandlers returns the set of Handler constants that have a dispatch function.
// Exported so tests can verify every registered command is wired.
func GameHandlers() map[string]bool {
	out := make(map[string]bool, len(gameHandlerMap))
	for k := range gameHandlerMap {
		out[k] = true
	}
	return out
}

// gameHandlerMap is the single source of truth for command dispatch.
// To add a new command: add a Handler constant to commands.go AND add an entry here.
var gameHandlerMap = map[string]handlerFunc{
	command.HandlerMove:    handleMove,
	command.HandlerNext:    handleNext,
	command.HandlerPrev:    handlePrev,
	command.HandlerTake:    handleTake,
	command.HandlerRefresh: handleRefresh,
	command.HandlerMap:     handleMap,
	command.HandlerStatus:  handleStatus,
	command.HandlerShop:    handleShop,
	command.HandlerBuy:     handleBuy,
	command.HandlerScores:  handleScores,
	command.HandlerNew:     handleNew,
	command.HandlerHelp:    handleHelp,
	command.HandlerQuit:    handleQuit,
	command.HandlerCheat:   handleCheat,
}

// writeError writes a red rejection message.
func writeError(hc *handlerContext, msg string) (handlerResult, error) {
	_ = hc.conn.WriteLine(RenderError(msg))
	return handlerResult{}, nil
}

// writeView redraws the full screen.
func writeView(hc *handlerContext) (handlerResult, error) {
	return handlerResult{}, hc.h.showView(hc.sess, hc.conn)
}

// do runs fn against the session's game.
func do(hc *handlerContext, fn func(g *engine.Game)) {
	_ = hc.sess.Do(func(g *engine.Game) error {
		fn(g)
		return nil
	})
}

// moveRejection explains why a move was refused.
func moveRejection(g *engine.Game) string {
	switch {
	case !g.Running():
		return "The game is over. Type new to play again."
	case g.State() == engine.StateDraft:
		return "Finish the draft first: take a room or refresh the options."
	case g.Resource(resource.Steps) == 0:
		return "You are out of steps."
	default:
		return "You can't go that way."
	}
}

// handleMove moves the player, opening a draft when the target is unrevealed.
// Precondition: hc.cmd must be a movement command.
// Postcondition: redraws the view on success; writes the reason on rejection.
func handleMove(hc *handlerContext) (handlerResult, error) {
	dir, ok := command.Direction(hc.cmd)
	if !ok {
		return writeError(hc, "That is not a direction.")
	}
	var (
		moved  bool
		reason string
	)
	do(hc, func(g *engine.Game) {
		moved = g.MovePlayer(dir)
		if !moved {
			reason = moveRejection(g)
		}
	})
	if !moved {
		return writeError(hc, reason)
	}
	return writeView(hc)
}

func selectOption(hc *handlerContext, delta int) (handlerResult, error) {
	var (
		d        engine.Draft
		drafting bool
		keys     int
		reg      *effect.Registry
	)
	do(hc, func(g *engine.Game) {
		g.SelectDraftOption(delta)
		d, drafting = g.Draft()
		keys = g.Resource(resource.Keys)
		reg = g.Effects()
	})
	if !drafting {
		return writeError(hc, "You are not drafting a room.")
	}
	return handlerResult{}, hc.conn.WriteBlock(RenderDraft(&d, reg, keys))
}

// handleNext selects the next draft option.
func handleNext(hc *handlerContext) (handlerResult, error) {
	return selectOption(hc, 1)
}

// handlePrev selects the previous draft option.
func handlePrev(hc *handlerContext) (handlerResult, error) {
	return selectOption(hc, -1)
}

// handleTake commits the selected draft option.
// Postcondition: redraws the view on success; explains a missing key or absent draft otherwise.
func handleTake(hc *handlerContext) (handlerResult, error) {
	var (
		placed   bool
		drafting bool
	)
	do(hc, func(g *engine.Game) {
		_, drafting = g.Draft()
		placed = g.CommitDraftSelection()
	})
	switch {
	case !drafting:
		return writeError(hc, "You are not drafting a room.")
	case !placed:
		return writeError(hc, "That room is locked and you have no keys.")
	}
	return writeView(hc)
}

// handleRefresh pays gems to redraw the draft options.
func handleRefresh(hc *handlerContext) (handlerResult, error) {
	var (
		refreshed bool
		drafting  bool
		cost      int
	)
	do(hc, func(g *engine.Game) {
		_, drafting = g.Draft()
		cost = g.RefreshCost()
		refreshed = g.RefreshDraftOptions()
	})
	switch {
	case !drafting:
		return writeError(hc, "You are not drafting a room.")
	case !refreshed:
		return writeError(hc, fmt.Sprintf("Redrawing costs %d gems.", cost))
	}
	return writeView(hc)
}

// handleMap redraws the full view.
func handleMap(hc *handlerContext) (handlerResult, error) {
	return writeView(hc)
}

// handleStatus shows resources and run statistics.
func handleStatus(hc *handlerContext) (handlerResult, error) {
	var v engine.View
	do(hc, func(g *engine.Game) { v = g.Snapshot() })
	return handlerResult{}, hc.conn.WriteBlock(RenderStatus(v))
}

// handleShop lists the offers when the player stands in an open shop.
func handleShop(hc *handlerContext) (handlerResult, error) {
	var offers []engine.Offer
	do(hc, func(g *engine.Game) {
		if g.ShopOpen() {
			offers = g.ShopOffers()
		}
	})
	return handlerResult{}, hc.conn.WriteBlock(RenderShop(offers))
}

// parseItem accepts singular and plural item names.
func parseItem(s string) resource.ItemID {
	s = strings.ToLower(s)
	switch s {
	case "key":
		return resource.Keys
	case "step":
		return resource.Steps
	case "gem":
		return resource.Gems
	}
	return resource.ItemID(s)
}

// handleBuy purchases one shop offer.
// Postcondition: shows the new status on success; explains the rejection otherwise.
func handleBuy(hc *handlerContext) (handlerResult, error) {
	if len(hc.parsed.Args) == 0 {
		return writeError(hc, "Buy what? Usage: "+hc.cmd.Usage)
	}
	item := parseItem(hc.parsed.Args[0])

	var (
		bought  bool
		open    bool
		forSale bool
		v       engine.View
	)
	do(hc, func(g *engine.Game) {
		open = g.ShopOpen()
		for _, o := range g.ShopOffers() {
			if o.Item == item {
				forSale = true
			}
		}
		bought = g.Buy(item)
		v = g.Snapshot()
	})
	switch {
	case !open:
		return writeError(hc, "There is no shop here.")
	case !forSale:
		return writeError(hc, fmt.Sprintf("The shop does not sell %s.", item))
	case !bought:
		return writeError(hc, "You don't have enough gems.")
	}
	_ = hc.conn.WriteLine(telnet.Colorf(telnet.Green, "You buy %s.", item))
	return handlerResult{}, hc.conn.WriteBlock(RenderStatus(v))
}

// handleScores lists recent runs and the best run on the current seed.
func handleScores(hc *handlerContext) (handlerResult, error) {
	runs := hc.h.runs
	if runs == nil {
		return writeError(hc, "Run history is disabled on this server.")
	}
	recent, err := runs.ListRecent(hc.ctx, recentRunsShown)
	if err != nil {
		hc.logger.Warn("listing runs", zap.Error(err))
		return writeError(hc, "Run history is unavailable right now.")
	}
	_ = hc.conn.WriteBlock(RenderRuns(recent))

	var seed int64
	do(hc, func(g *engine.Game) { seed = g.Seed() })
	best, err := runs.BestForSeed(hc.ctx, seed)
	switch {
	case errors.Is(err, postgres.ErrRunNotFound):
		return handlerResult{}, hc.conn.WriteLine(telnet.Colorf(telnet.Dim, "Nobody has escaped seed %d yet.", seed))
	case err != nil:
		hc.logger.Warn("querying best run", zap.Error(err))
		return handlerResult{}, nil
	}
	return handlerResult{}, hc.conn.WriteLine(telnet.Colorf(telnet.BrightGreen,
		"Best on seed %d: %d steps left after %d moves.", seed, best.StepsLeft, best.Moves))
}

// handleNew abandons the current game and starts another, optionally with a seed.
func handleNew(hc *handlerContext) (handlerResult, error) {
	var seed *int64
	if len(hc.parsed.Args) > 0 {
		n, err := hc.parsed.Int(0)
		if err != nil {
			return writeError(hc, fmt.Sprintf("%v. Usage: %s", err, hc.cmd.Usage))
		}
		seed = &n
	}

	hc.h.finishAbandoned(hc.sess, hc.run, hc.logger)
	do(hc, func(g *engine.Game) {
		if seed != nil {
			g.NewGame(*seed)
		} else {
			g.NewRandomGame()
		}
	})
	hc.run.reset()
	hc.logger.Info("new game", zap.Bool("seeded", seed != nil))
	if err := hc.conn.Write([]byte(telnet.ClearScreen)); err != nil {
		return handlerResult{}, err
	}
	return writeView(hc)
}

// handleHelp lists the available commands.
func handleHelp(hc *handlerContext) (handlerResult, error) {
	return handlerResult{}, hc.conn.WriteBlock(RenderHelp(hc.h.registry, hc.h.debug))
}

// handleQuit says goodbye and ends the session.
func handleQuit(hc *handlerContext) (handlerResult, error) {
	_ = hc.conn.WriteLine(telnet.Colorize(telnet.Cyan, "The hallways fold shut behind you. Goodbye."))
	return handlerResult{quit: true}, nil
}

// handleCheat adds resources. Only reachable when debug commands are enabled.
func handleCheat(hc *handlerContext) (handlerResult, error) {
	if !hc.h.debug {
		return writeError(hc, "Debug commands are disabled.")
	}
	if len(hc.parsed.Args) < 2 {
		return writeError(hc, "Usage: "+hc.cmd.Usage)
	}
	n, err := hc.parsed.Int(1)
	if err != nil {
		return writeError(hc, err.Error())
	}
	item := parseItem(hc.parsed.Args[0])
	var v engine.View
	do(hc, func(g *engine.Game) {
		g.DebugAddResource(item, int(n))
		v = g.Snapshot()
	})
	hc.logger.Info("cheat", zap.String("item", string(item)), zap.Int64("amount", n))
	return handlerResult{}, hc.conn.WriteBlock(RenderStatus(v))
}

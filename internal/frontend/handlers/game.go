// Package handlers provides Telnet session handling and command processing.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/hexdraft/internal/config"
	"github.com/cory-johannsen/hexdraft/internal/frontend/telnet"
	"github.com/cory-johannsen/hexdraft/internal/game/command"
	"github.com/cory-johannsen/hexdraft/internal/game/effect"
	"github.com/cory-johannsen/hexdraft/internal/game/engine"
	"github.com/cory-johannsen/hexdraft/internal/game/resource"
	"github.com/cory-johannsen/hexdraft/internal/game/session"
	"github.com/cory-johannsen/hexdraft/internal/storage/postgres"
)

// RunStore defines the run history operations required by GameHandler.
type RunStore interface {
	Record(ctx context.Context, run postgres.Run) (postgres.Run, error)
	ListRecent(ctx context.Context, limit int) ([]postgres.Run, error)
	BestForSeed(ctx context.Context, seed int64) (postgres.Run, error)
}

// recentRunsShown is how many runs the scores command lists.
const recentRunsShown = 10

const welcomeBanner = `
` + telnet.Bold + telnet.BrightCyan + `
   _                  _            __ _
  | |__   _____  ____| |_ __ __ _ / _| |_
  | '_ \ / _ \ \/ / _' | '__/ _' | |_| __|
  | | | |  __/>  < (_| | | | (_| |  _| |_
  |_| |_|\___/_/\_\__,_|_|  \__,_|_|  \__|` + telnet.Reset + `

` + telnet.BrightYellow + `  Draft the dungeon one room at a time. Reach the exit before your steps run out.` + telnet.Reset + `

  Type ` + telnet.Green + `help` + telnet.Reset + ` for commands, ` + telnet.Green + `quit` + telnet.Reset + ` to disconnect.
`

// GameHandler implements telnet.SessionHandler. Each connection plays its own game in
// a session owned by the session manager.
type GameHandler struct {
	sessions *session.Manager
	registry *command.Registry
	runs     RunStore
	telnet   config.TelnetConfig
	debug    bool
	logger   *zap.Logger
}

// NewGameHandler creates a GameHandler.
//
// Precondition: sessions, registry, and logger must be non-nil. runs may be nil,
// which disables run history.
// Postcondition: Returns a GameHandler ready to handle sessions.
func NewGameHandler(
	sessions *session.Manager,
	registry *command.Registry,
	runs RunStore,
	telnetCfg config.TelnetConfig,
	debug bool,
	logger *zap.Logger,
) *GameHandler {
	return &GameHandler{
		sessions: sessions,
		registry: registry,
		runs:     runs,
		telnet:   telnetCfg,
		debug:    debug,
		logger:   logger,
	}
}

// prompt renders the input prompt for the current state.
func prompt(g *engine.Game) string {
	switch {
	case !g.Running():
		return telnet.Colorize(telnet.BrightCyan, "[over]> ")
	case g.State() == engine.StateDraft:
		return telnet.Colorize(telnet.BrightMagenta, "[draft]> ")
	default:
		return telnet.Colorf(telnet.BrightCyan, "[%d steps]> ", g.Resource(resource.Steps))
	}
}

// HandleSession implements telnet.SessionHandler. It creates a game, then reads and
// dispatches commands until the player quits, the connection drops, or ctx is done.
//
// Postcondition: The session is removed and, when run history is enabled, an unfinished
// run is recorded as abandoned. Returns nil on clean quit.
func (h *GameHandler) HandleSession(ctx context.Context, conn *telnet.Conn) error {
	start := time.Now()
	addr := conn.RemoteAddr().String()

	sess, err := h.sessions.Create(nil)
	if err != nil {
		_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Failed to start a game. Please try again later."))
		return fmt.Errorf("creating session: %w", err)
	}
	logger := h.logger.With(zap.String("session", sess.ID), zap.String("remote_addr", addr))
	logger.Info("player connected")

	if err := conn.Write([]byte(welcomeBanner)); err != nil {
		_ = h.sessions.Remove(sess.ID)
		return fmt.Errorf("sending welcome: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		forwardNotes(sess.Outbox, conn)
	}()

	run := &runTracker{id: sess.ID, started: sess.Started}
	defer func() {
		h.finishAbandoned(sess, run, logger)
		// Remove closes the outbox, which ends the forwarder.
		if err := h.sessions.Remove(sess.ID); err != nil {
			logger.Warn("removing session", zap.Error(err))
		}
		wg.Wait()
		logger.Info("player disconnected", zap.Duration("duration", time.Since(start)))
	}()

	var lastInput atomic.Int64
	lastInput.Store(time.Now().UnixNano())
	if h.telnet.IdleTimeout > 0 {
		stop := StartIdleMonitor(IdleMonitorConfig{
			LastInput:    &lastInput,
			IdleTimeout:  h.telnet.IdleTimeout,
			GracePeriod:  h.telnet.IdleGracePeriod,
			TickInterval: idleTick(h.telnet.IdleTimeout),
			OnWarning: func() {
				_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "You have been idle. Type anything to stay connected."))
			},
			OnDisconnect: func() {
				logger.Info("disconnecting idle player")
				_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "Disconnected for inactivity."))
				_ = conn.Close()
			},
		})
		defer stop()
	}

	if err := h.showView(sess, conn); err != nil {
		return err
	}
	return h.commandLoop(ctx, sess, conn, run, &lastInput, logger)
}

// idleTick samples a tenth as often as the timeout, at most once a second.
func idleTick(timeout time.Duration) time.Duration {
	tick := timeout / 10
	if tick > time.Second {
		tick = time.Second
	}
	if tick <= 0 {
		tick = time.Millisecond
	}
	return tick
}

// commandLoop reads lines from the Telnet connection, parses commands, and dispatches
// them through the handler map.
//
// Postcondition: Returns nil on clean quit, ctx.Err() on cancellation, or a wrapped error on failure.
func (h *GameHandler) commandLoop(
	ctx context.Context,
	sess *session.Session,
	conn *telnet.Conn,
	run *runTracker,
	lastInput *atomic.Int64,
	logger *zap.Logger,
) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := h.writePrompt(sess, conn); err != nil {
			return fmt.Errorf("writing prompt: %w", err)
		}

		line, err := conn.ReadLine()
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		lastInput.Store(time.Now().UnixNano())

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parsed := command.Parse(line)
		cmd, ok := h.registry.Resolve(parsed.Command)
		if !ok || (cmd.Category == command.CategoryDebug && !h.debug) {
			_ = conn.WriteLine(telnet.Colorf(telnet.Dim, "You don't know how to '%s'. Type help for commands.", parsed.Command))
			continue
		}

		fn, ok := gameHandlerMap[cmd.Handler]
		if !ok {
			logger.Error("command has no handler", zap.String("handler", cmd.Handler))
			continue
		}

		hctx := &handlerContext{
			ctx:    ctx,
			h:      h,
			sess:   sess,
			conn:   conn,
			cmd:    cmd,
			parsed: parsed,
			run:    run,
			logger: logger,
		}
		res, err := fn(hctx)
		if err != nil {
			return fmt.Errorf("handling %s: %w", cmd.Name, err)
		}
		if res.quit {
			return nil
		}
		h.finishEscaped(ctx, sess, run, logger)
	}
}

func (h *GameHandler) writePrompt(sess *session.Session, conn *telnet.Conn) error {
	var p string
	_ = sess.Do(func(g *engine.Game) error {
		p = prompt(g)
		return nil
	})
	return conn.WritePrompt(p)
}

// showView renders the full game screen.
func (h *GameHandler) showView(sess *session.Session, conn *telnet.Conn) error {
	var (
		v   engine.View
		reg *effect.Registry
	)
	_ = sess.Do(func(g *engine.Game) error {
		v = g.Snapshot()
		reg = g.Effects()
		return nil
	})
	if err := conn.WriteBlock(RenderView(v, reg)); err != nil {
		return fmt.Errorf("writing view: %w", err)
	}
	return nil
}

// forwardNotes writes server notices to conn until the outbox closes.
func forwardNotes(out *session.Outbox, conn *telnet.Conn) {
	for note := range out.Notes() {
		_ = conn.WriteLine("")
		_ = conn.WriteLine(telnet.Colorize(telnet.BrightYellow, note))
	}
}

// runTracker remembers whether the current game has been recorded. The first game on a
// connection is keyed by the session id; later games get fresh ids.
type runTracker struct {
	id       string
	started  time.Time
	recorded bool
}

// reset prepares the tracker for the next game.
func (r *runTracker) reset() {
	r.id = uuid.NewString()
	r.recorded = false
	r.started = time.Now()
}

// snapshotRun builds the history row for g.
func snapshotRun(id string, started time.Time, outcome string, g *engine.Game) postgres.Run {
	stats := g.Stats()
	return postgres.Run{
		SessionID:     id,
		Seed:          g.Seed(),
		Outcome:       outcome,
		StepsLeft:     g.Resource(resource.Steps),
		KeysLeft:      g.Resource(resource.Keys),
		GemsLeft:      g.Resource(resource.Gems),
		RoomsRevealed: g.RevealedCount(),
		Moves:         stats.Moves,
		Placements:    stats.Placements,
		Refreshes:     stats.Refreshes,
		StartedAt:     started,
		FinishedAt:    time.Now(),
	}
}

// finishEscaped records the run once the game has halted.
func (h *GameHandler) finishEscaped(ctx context.Context, sess *session.Session, run *runTracker, logger *zap.Logger) {
	if run.recorded {
		return
	}
	var (
		rec    postgres.Run
		halted bool
	)
	_ = sess.Do(func(g *engine.Game) error {
		if !g.Running() {
			halted = true
			rec = snapshotRun(run.id, run.started, postgres.OutcomeEscaped, g)
		}
		return nil
	})
	if !halted {
		return
	}
	run.recorded = true
	logger.Info("run escaped",
		zap.Int64("seed", rec.Seed),
		zap.Int("steps_left", rec.StepsLeft),
		zap.Int("moves", rec.Moves),
	)
	h.record(ctx, rec, logger)
}

// finishAbandoned records a run that was left while still running.
func (h *GameHandler) finishAbandoned(sess *session.Session, run *runTracker, logger *zap.Logger) {
	if run.recorded {
		return
	}
	var (
		rec     postgres.Run
		running bool
	)
	_ = sess.Do(func(g *engine.Game) error {
		if g.Running() {
			running = true
			rec = snapshotRun(run.id, run.started, postgres.OutcomeAbandoned, g)
		}
		return nil
	})
	if !running {
		return
	}
	run.recorded = true
	// The connection context may already be cancelled; history writes get their own deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h.record(ctx, rec, logger)
}

func (h *GameHandler) record(ctx context.Context, rec postgres.Run, logger *zap.Logger) {
	if h.runs == nil {
		return
	}
	if _, err := h.runs.Record(ctx, rec); err != nil {
		if errors.Is(err, postgres.ErrRunExists) {
			logger.Debug("run already recorded", zap.String("run", rec.SessionID))
			return
		}
		logger.Warn("recording run", zap.Error(err))
	}
}

package engine

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/hexdraft/internal/game/dice"
	"github.com/cory-johannsen/hexdraft/internal/game/resource"
)

// effectTarget exposes the parts of a Game that effects may mutate.
type effectTarget struct {
	g *Game
}

func (t effectTarget) Ledger() *resource.Ledger {
	return t.g.ledger
}

func (t effectTarget) OpenShop() {
	t.g.shopOpen = true
}

func (t effectTarget) Halt() {
	t.g.running = false
	t.g.logger.Info("game halted at exit",
		zap.Int64("seed", t.g.src.Seed()),
		zap.Int("steps", t.g.ledger.Get(resource.Steps)),
	)
}

func (t effectTarget) RunHook(hook string) (string, bool) {
	if t.g.hooks == nil {
		t.g.logger.Warn("script effect without a hook runner", zap.String("hook", hook))
		return "", false
	}
	msg, err := t.g.hooks.CallHook(hook, t.g.ledger)
	if err != nil {
		t.g.logger.Warn("script hook failed", zap.String("hook", hook), zap.Error(err))
		return "", false
	}
	return msg, true
}

// Roll draws from the game's generator, so rolled amounts replay with the seed.
func (t effectTarget) Roll(expr dice.Expression) int {
	r := expr.Roll(t.g.src)
	t.g.logger.Debug("effect roll",
		zap.String("expression", r.Expression),
		zap.Ints("dice", r.Dice),
		zap.Int("modifier", r.Modifier),
		zap.Int("total", r.Total()),
	)
	return r.Total()
}

package effect_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/hexdraft/internal/game/dice"
	"github.com/cory-johannsen/hexdraft/internal/game/effect"
	"github.com/cory-johannsen/hexdraft/internal/game/resource"
	"github.com/cory-johannsen/hexdraft/internal/game/rng"
)

// applied returns only the text of e.Apply(t).
func applied(e effect.Effect, t effect.Target) string {
	text, _ := e.Apply(t)
	return text
}

type fakeTarget struct {
	ledger   *resource.Ledger
	shopOpen bool
	halted   bool
	hooks    []string
	hookMsg  string
	hookOK   bool
	rolls    []string
	rolled   int
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{ledger: resource.NewLedger()}
}

func (f *fakeTarget) Ledger() *resource.Ledger { return f.ledger }
func (f *fakeTarget) OpenShop()                { f.shopOpen = true }
func (f *fakeTarget) Halt()                    { f.halted = true }
func (f *fakeTarget) RunHook(hook string) (string, bool) {
	f.hooks = append(f.hooks, hook)
	return f.hookMsg, f.hookOK
}
func (f *fakeTarget) Roll(expr dice.Expression) int {
	f.rolls = append(f.rolls, expr.Raw)
	return f.rolled
}

func TestApply_Kinds(t *testing.T) {
	reg := effect.DefaultRegistry()

	tgt := newFakeTarget()
	tgt.ledger.Set(resource.Steps, 10)
	tgt.ledger.Set(resource.Gems, 1)

	assert.Equal(t, "You pocket a key.", applied(reg.MustLookup("key"), tgt))
	assert.Equal(t, 1, tgt.ledger.Get(resource.Keys))

	reg.MustLookup("pit").Apply(tgt)
	assert.Equal(t, 8, tgt.ledger.Get(resource.Steps))

	reg.MustLookup("thief").Apply(tgt)
	assert.Equal(t, 0, tgt.ledger.Get(resource.Gems), "thief clamps at zero")

	reg.MustLookup("bedroom").Apply(tgt)
	assert.Equal(t, 40, tgt.ledger.Get(resource.Steps))

	reg.MustLookup("shop").Apply(tgt)
	assert.True(t, tgt.shopOpen)

	assert.False(t, tgt.halted)
	assert.Equal(t, "You escaped!", applied(reg.MustLookup(effect.ExitID), tgt))
	assert.True(t, tgt.halted)
}

func TestApply_ScriptMessageOverride(t *testing.T) {
	e := effect.Effect{ID: "f", Kind: effect.KindScript, Hook: "fountain", TriggerText: "dry", TriggerLimit: 1}
	tgt := newFakeTarget()

	tgt.hookOK, tgt.hookMsg = true, "splash"
	text, fired := e.Apply(tgt)
	assert.Equal(t, "splash", text)
	assert.True(t, fired)

	tgt.hookOK, tgt.hookMsg = true, ""
	text, fired = e.Apply(tgt)
	assert.Equal(t, "dry", text, "an empty hook message keeps the trigger text")
	assert.True(t, fired)

	tgt.hookOK, tgt.hookMsg = false, "ignored"
	text, fired = e.Apply(tgt)
	assert.Equal(t, "", text, "a failed hook is a no-op")
	assert.False(t, fired)
	assert.Equal(t, []string{"fountain", "fountain", "fountain"}, tgt.hooks)
}

func TestDefaultRegistry_Order(t *testing.T) {
	reg := effect.DefaultRegistry()
	all := reg.All()
	require.Equal(t, reg.Len(), len(all))
	assert.Equal(t, effect.NoopID, all[0].ID)
	assert.Equal(t, effect.ExitID, all[len(all)-1].ID)
}

func TestMustLookup_PanicsOnUnknown(t *testing.T) {
	reg := effect.DefaultRegistry()
	assert.Panics(t, func() { reg.MustLookup("nope") })
}

func TestNewRegistry_Rejects(t *testing.T) {
	base := effect.BuiltinEffects()

	cases := map[string]func([]effect.Effect) []effect.Effect{
		"duplicate id": func(e []effect.Effect) []effect.Effect { return append(e, e[0]) },
		"missing exit": func(e []effect.Effect) []effect.Effect { return e[:len(e)-1] },
		"missing noop": func(e []effect.Effect) []effect.Effect { return e[1:] },
		"drawable exit": func(e []effect.Effect) []effect.Effect {
			e[len(e)-1].Rarity = 1
			return e
		},
		"negative rarity": func(e []effect.Effect) []effect.Effect {
			e[1].Rarity = -1
			return e
		},
		"add without item": func(e []effect.Effect) []effect.Effect {
			e[1].Item = ""
			return e
		},
		"script without hook": func(e []effect.Effect) []effect.Effect {
			return append(e, effect.Effect{ID: "s", Kind: effect.KindScript})
		},
		"unknown kind": func(e []effect.Effect) []effect.Effect {
			return append(e, effect.Effect{ID: "u", Kind: "teleport"})
		},
		"no positive rarity": func(e []effect.Effect) []effect.Effect {
			for i := range e {
				e[i].Rarity = 0
			}
			return e
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			effects := make([]effect.Effect, len(base))
			copy(effects, base)
			_, err := effect.NewRegistry(mutate(effects))
			assert.Error(t, err)
		})
	}
}

func TestPick_NeverDrawsExit(t *testing.T) {
	reg := effect.DefaultRegistry()
	src := rng.New(11)
	for i := 0; i < 5000; i++ {
		assert.NotEqual(t, effect.ExitID, reg.Pick(src).ID)
	}
}

// Property: Pick is reproducible under a fixed seed.
func TestPropertyPickDeterministic(t *testing.T) {
	reg := effect.DefaultRegistry()
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Int64().Draw(t, "seed")
		a, b := rng.New(seed), rng.New(seed)
		for i := 0; i < 100; i++ {
			if reg.Pick(a).ID != reg.Pick(b).ID {
				t.Fatalf("pick diverged at draw %d", i)
			}
		}
	})
}

func TestLoadRegistryFromBytes(t *testing.T) {
	data := []byte(`
effects:
  - id: noop
    kind: noop
    rarity: 1
  - id: gem
    kind: add
    item: gems
    amount: 5
    trigger_limit: 2
    rarity: 1
  - id: exit
    kind: exit
    rarity: 0
`)
	reg, err := effect.LoadRegistryFromBytes(data)
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Len())

	gem := reg.MustLookup("gem")
	assert.Equal(t, effect.KindAdd, gem.Kind)
	assert.Equal(t, resource.Gems, gem.Item)
	assert.Equal(t, 5, gem.Amount)
	assert.Equal(t, 2, gem.TriggerLimit)
	assert.Equal(t, effect.Unlimited, reg.MustLookup(effect.NoopID).TriggerLimit, "omitted limit means unlimited")
}

func TestLoadRegistryFromBytes_Invalid(t *testing.T) {
	_, err := effect.LoadRegistryFromBytes([]byte("effects: [}"))
	assert.Error(t, err)

	_, err = effect.LoadRegistryFromBytes([]byte("effects: []"))
	assert.Error(t, err)

	_, err = effect.LoadRegistryFromBytes([]byte("effects:\n  - id: noop\n    kind: noop\n    rarity: 1\n"))
	assert.Error(t, err, "exit is required")
}

func TestLoadRegistryFromFile_ShippedContent(t *testing.T) {
	reg, err := effect.LoadRegistryFromFile(filepath.Join("..", "..", "..", "content", "effects.yaml"))
	require.NoError(t, err)

	key := reg.MustLookup("key")
	assert.Equal(t, resource.Keys, key.GrantsItem)
	assert.Equal(t, effect.KindScript, reg.MustLookup("fountain").Kind)
	cache := reg.MustLookup("cache")
	require.NotNil(t, cache.Roll)
	assert.Equal(t, "1d3", cache.Roll.Raw)
}

func TestLoadRegistryFromFile_Missing(t *testing.T) {
	_, err := effect.LoadRegistryFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("effects: 3"), 0644))
	_, err = effect.LoadRegistryFromFile(path)
	assert.Error(t, err)
}

func TestApply_RolledAmount(t *testing.T) {
	roll := dice.MustParse("1d4+1")
	e := effect.Effect{
		ID: "cache", Kind: effect.KindAdd, Item: resource.Gems, Amount: 99, Roll: &roll,
		TriggerText: "You find {amount} gems.", TriggerLimit: 1,
	}
	require.NoError(t, e.Validate())

	tgt := newFakeTarget()
	tgt.rolled = 4
	assert.Equal(t, "You find 4 gems.", applied(e, tgt))
	assert.Equal(t, 4, tgt.ledger.Get(resource.Gems), "the roll replaces the fixed amount")
	assert.Equal(t, []string{"1d4+1"}, tgt.rolls)
}

func TestApply_FixedAmountPlaceholder(t *testing.T) {
	e := effect.Effect{ID: "stash", Kind: effect.KindAdd, Item: resource.Gems, Amount: 3, TriggerText: "+{amount} gems"}
	tgt := newFakeTarget()
	assert.Equal(t, "+3 gems", applied(e, tgt))
	assert.Empty(t, tgt.rolls, "no roll without an expression")
}

func TestValidate_RollBelowZero(t *testing.T) {
	roll := dice.MustParse("1d4-3")
	e := effect.Effect{ID: "leak", Kind: effect.KindRemove, Item: resource.Steps, Roll: &roll}
	assert.Error(t, e.Validate())
}

func TestLoadRegistryFromBytes_Roll(t *testing.T) {
	base := "effects:\n  - id: noop\n    kind: noop\n    rarity: 1\n  - id: exit\n    kind: exit\n    rarity: 0\n  - id: cache\n    kind: add\n    item: gems\n    rarity: 1\n    roll: "

	reg, err := effect.LoadRegistryFromBytes([]byte(base + "2d3\n"))
	require.NoError(t, err)
	cache := reg.MustLookup("cache")
	require.NotNil(t, cache.Roll)
	assert.Equal(t, 2, cache.Roll.Count)
	assert.Equal(t, 3, cache.Roll.Sides)

	_, err = effect.LoadRegistryFromBytes([]byte(base + "lots\n"))
	assert.Error(t, err)
}

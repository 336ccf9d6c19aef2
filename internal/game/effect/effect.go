// Package effect provides the registry of room effects: named, weighted, rate-limited
// mutations applied when the player enters a room.
package effect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cory-johannsen/hexdraft/internal/game/dice"
	"github.com/cory-johannsen/hexdraft/internal/game/resource"
)

// ID names an effect in the registry.
type ID string

// Effects every registry must define.
const (
	NoopID ID = "noop"
	ExitID ID = "exit"
)

// Unlimited marks an effect that may trigger any number of times per room.
const Unlimited = -1

// Kind selects how an effect mutates the game.
type Kind string

// Effect kinds.
const (
	KindNoop   Kind = "noop"
	KindAdd    Kind = "add"
	KindRemove Kind = "remove"
	KindSet    Kind = "set"
	KindShop   Kind = "shop"
	KindExit   Kind = "exit"
	KindScript Kind = "script"
)

var validKinds = map[Kind]bool{
	KindNoop: true, KindAdd: true, KindRemove: true, KindSet: true,
	KindShop: true, KindExit: true, KindScript: true,
}

// Target is the slice of game state an effect may touch.
type Target interface {
	// Ledger returns the live resource ledger.
	Ledger() *resource.Ledger
	// OpenShop makes the shop available until the player leaves the room.
	OpenShop()
	// Halt stops the game from accepting further input.
	Halt()
	// RunHook calls a scripted hook. ok is false when the hook failed or is unavailable,
	// in which case the hook must have left the ledger unchanged. A non-empty message
	// replaces the effect's trigger text.
	RunHook(hook string) (message string, ok bool)
	// Roll rolls expr against the game's generator and returns the total.
	Roll(expr dice.Expression) int
}

// AmountPlaceholder in trigger text is replaced by the applied amount.
const AmountPlaceholder = "{amount}"

// Effect is one registry entry.
type Effect struct {
	ID   ID
	Kind Kind
	// Item and Amount parameterize add, remove, and set.
	Item   resource.ItemID
	Amount int
	// Roll, when set, replaces Amount with a fresh roll each time the effect fires.
	Roll *dice.Expression
	// Hook is the Lua function name invoked by script effects.
	Hook string
	// Description is shown while the room is a draft option.
	Description string
	// TriggerText is shown when the effect fires.
	TriggerText string
	// TriggerLimit caps firings per room instance; Unlimited for no cap.
	TriggerLimit int
	// Rarity is the relative weight in random selection. 0 is never drawn.
	Rarity float64
	// GrantsItem, when set, is listed in the room's items while it is on offer.
	GrantsItem resource.ItemID
}

// Limited reports whether the effect has a trigger cap.
func (e Effect) Limited() bool {
	return e.TriggerLimit != Unlimited
}

// Apply performs the effect's mutation on t and returns the text to display. A failed
// script hook leaves t untouched, and Apply returns "" and false.
//
// Precondition: e must have passed Validate.
// Postcondition: fired is false only for a script effect whose hook failed.
func (e Effect) Apply(t Target) (text string, fired bool) {
	amount := e.Amount
	switch e.Kind {
	case KindAdd, KindRemove, KindSet:
		if e.Roll != nil {
			amount = t.Roll(*e.Roll)
		}
	}
	switch e.Kind {
	case KindNoop:
	case KindAdd:
		t.Ledger().Add(e.Item, amount)
	case KindRemove:
		t.Ledger().Remove(e.Item, amount)
	case KindSet:
		t.Ledger().Set(e.Item, amount)
	case KindShop:
		t.OpenShop()
	case KindExit:
		t.Halt()
	case KindScript:
		msg, ok := t.RunHook(e.Hook)
		if !ok {
			return "", false
		}
		if msg != "" {
			return msg, true
		}
	default:
		panic(fmt.Sprintf("effect: unknown kind %q on %q", e.Kind, e.ID))
	}
	return strings.ReplaceAll(e.TriggerText, AmountPlaceholder, strconv.Itoa(amount)), true
}

// Validate checks that the entry is internally consistent.
//
// Postcondition: Returns nil if valid, or an error describing the first violation.
func (e Effect) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("effect id must not be empty")
	}
	if !validKinds[e.Kind] {
		return fmt.Errorf("effect %q: unknown kind %q", e.ID, e.Kind)
	}
	if e.Rarity < 0 {
		return fmt.Errorf("effect %q: rarity must be >= 0, got %v", e.ID, e.Rarity)
	}
	if e.TriggerLimit < Unlimited {
		return fmt.Errorf("effect %q: trigger_limit must be >= -1, got %d", e.ID, e.TriggerLimit)
	}
	switch e.Kind {
	case KindAdd, KindRemove, KindSet:
		if e.Item == "" {
			return fmt.Errorf("effect %q: kind %q requires an item", e.ID, e.Kind)
		}
		if e.Amount < 0 {
			return fmt.Errorf("effect %q: amount must be >= 0, got %d", e.ID, e.Amount)
		}
		if e.Roll != nil && e.Roll.Min() < 0 {
			return fmt.Errorf("effect %q: roll %q can go below zero", e.ID, e.Roll.Raw)
		}
	case KindScript:
		if e.Hook == "" {
			return fmt.Errorf("effect %q: kind script requires a hook", e.ID)
		}
	}
	return nil
}

package effect

import (
	"fmt"

	"github.com/cory-johannsen/hexdraft/internal/game/resource"
	"github.com/cory-johannsen/hexdraft/internal/game/rng"
)

// Registry holds effects in registration order. Order is significant: weighted
// selection scans entries in this order.
type Registry struct {
	effects []Effect
	index   map[ID]int
	weights []float64
}

// NewRegistry creates a Registry from effects, preserving their order.
//
// Precondition: ids must be unique; noop and exit must be present; exit must have rarity 0
// and kind exit; at least one effect must have positive rarity.
// Postcondition: Returns a Registry or an error describing the first violation.
func NewRegistry(effects []Effect) (*Registry, error) {
	r := &Registry{
		effects: make([]Effect, 0, len(effects)),
		index:   make(map[ID]int, len(effects)),
		weights: make([]float64, 0, len(effects)),
	}
	total := 0.0
	for _, e := range effects {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.index[e.ID]; exists {
			return nil, fmt.Errorf("duplicate effect id: %q", e.ID)
		}
		r.index[e.ID] = len(r.effects)
		r.effects = append(r.effects, e)
		r.weights = append(r.weights, e.Rarity)
		total += e.Rarity
	}

	if _, ok := r.index[NoopID]; !ok {
		return nil, fmt.Errorf("registry must define %q", NoopID)
	}
	exit, ok := r.Lookup(ExitID)
	if !ok {
		return nil, fmt.Errorf("registry must define %q", ExitID)
	}
	if exit.Kind != KindExit {
		return nil, fmt.Errorf("effect %q must have kind %q, got %q", ExitID, KindExit, exit.Kind)
	}
	if exit.Rarity != 0 {
		return nil, fmt.Errorf("effect %q must have rarity 0 so it is only placed deliberately", ExitID)
	}
	if total <= 0 {
		return nil, fmt.Errorf("registry needs at least one effect with positive rarity")
	}
	return r, nil
}

// DefaultRegistry returns the built-in effect table.
//
// Postcondition: Returns a valid Registry.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(BuiltinEffects())
	if err != nil {
		panic(fmt.Sprintf("building default effect registry: %v", err))
	}
	return r
}

// BuiltinEffects returns the built-in effect table in registration order.
func BuiltinEffects() []Effect {
	return []Effect{
		{ID: NoopID, Kind: KindNoop, Description: "An empty room.", TriggerText: "Nothing here.", TriggerLimit: Unlimited, Rarity: 6},
		{ID: "key", Kind: KindAdd, Item: resource.Keys, Amount: 1, Description: "A key rests on a pedestal.", TriggerText: "You pocket a key.", TriggerLimit: 1, Rarity: 2, GrantsItem: resource.Keys},
		{ID: "gems", Kind: KindAdd, Item: resource.Gems, Amount: 2, Description: "Gems glitter in the dust.", TriggerText: "You collect 2 gems.", TriggerLimit: 1, Rarity: 3},
		{ID: "pantry", Kind: KindAdd, Item: resource.Steps, Amount: 3, Description: "A well-stocked pantry.", TriggerText: "You eat and regain 3 steps.", TriggerLimit: 1, Rarity: 3},
		{ID: "pit", Kind: KindRemove, Item: resource.Steps, Amount: 2, Description: "The floor looks uneven.", TriggerText: "You stumble into a pit and lose 2 steps.", TriggerLimit: 1, Rarity: 2},
		{ID: "thief", Kind: KindRemove, Item: resource.Gems, Amount: 2, Description: "Someone lurks in the corner.", TriggerText: "A thief lifts 2 gems from you.", TriggerLimit: 1, Rarity: 1},
		{ID: "bedroom", Kind: KindSet, Item: resource.Steps, Amount: 40, Description: "A bed with fresh linen.", TriggerText: "You sleep and wake fully rested.", TriggerLimit: 1, Rarity: 0.5},
		{ID: "shop", Kind: KindShop, Description: "A shopkeeper waves you in.", TriggerText: "The shop is open.", TriggerLimit: Unlimited, Rarity: 1},
		{ID: ExitID, Kind: KindExit, Description: "The way out.", TriggerText: "You escaped!", TriggerLimit: Unlimited, Rarity: 0},
	}
}

// Lookup returns the effect with id.
//
// Postcondition: Returns (effect, true) if found, or (Effect{}, false).
func (r *Registry) Lookup(id ID) (Effect, bool) {
	i, ok := r.index[id]
	if !ok {
		return Effect{}, false
	}
	return r.effects[i], true
}

// MustLookup returns the effect with id and panics if it is unknown. An unknown id
// reaching this point is a programming error.
func (r *Registry) MustLookup(id ID) Effect {
	e, ok := r.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("effect: unknown effect id %q", id))
	}
	return e
}

// Pick draws an effect weighted by rarity using exactly one value from src.
//
// Postcondition: The returned effect has positive rarity.
func (r *Registry) Pick(src *rng.Rand) Effect {
	return r.effects[src.WeightedIndex(r.weights)]
}

// All returns the effects in registration order.
func (r *Registry) All() []Effect {
	out := make([]Effect, len(r.effects))
	copy(out, r.effects)
	return out
}

// Len returns the number of registered effects.
func (r *Registry) Len() int {
	return len(r.effects)
}

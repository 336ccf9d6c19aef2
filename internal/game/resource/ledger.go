// Package resource provides the player's named resource counters.
package resource

import (
	"fmt"
	"sort"
)

// ItemID names a counted resource.
type ItemID string

// Built-in resources.
const (
	Steps ItemID = "steps"
	Keys  ItemID = "keys"
	Gems  ItemID = "gems"
)

// Ledger maps items to non-negative counts.
//
// Invariant: every stored count is >= 0.
type Ledger struct {
	counts map[ItemID]int
}

// NewLedger returns an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{counts: make(map[ItemID]int)}
}

// Get returns the count for item; unknown items count as 0.
func (l *Ledger) Get(item ItemID) int {
	return l.counts[item]
}

// Set stores n for item, clamped at 0.
//
// Postcondition: Get(item) == max(n, 0).
func (l *Ledger) Set(item ItemID, n int) {
	if n < 0 {
		n = 0
	}
	l.counts[item] = n
}

// Add increases item by n. A negative n behaves like Remove(item, -n).
//
// Postcondition: Get(item) >= 0.
func (l *Ledger) Add(item ItemID, n int) {
	l.Set(item, l.counts[item]+n)
}

// Remove decreases item by n, clamping at 0.
//
// Postcondition: Get(item) == max(old-n, 0).
func (l *Ledger) Remove(item ItemID, n int) {
	l.Set(item, l.counts[item]-n)
}

// Spend removes n of item only if at least n is held.
//
// Postcondition: Returns true and deducts n, or returns false leaving the ledger unchanged.
func (l *Ledger) Spend(item ItemID, n int) bool {
	if n < 0 || l.counts[item] < n {
		return false
	}
	l.counts[item] -= n
	return true
}

// Clone returns an independent copy of l.
func (l *Ledger) Clone() *Ledger {
	return &Ledger{counts: l.Snapshot()}
}

// Replace overwrites every count in l with the counts held by other.
//
// Postcondition: l.Snapshot() equals other.Snapshot().
func (l *Ledger) Replace(other *Ledger) {
	l.counts = other.Snapshot()
}

// Snapshot returns a copy of all counts.
func (l *Ledger) Snapshot() map[ItemID]int {
	out := make(map[ItemID]int, len(l.counts))
	for k, v := range l.counts {
		out[k] = v
	}
	return out
}

// Items returns the known item ids in sorted order.
func (l *Ledger) Items() []ItemID {
	items := make([]ItemID, 0, len(l.counts))
	for k := range l.counts {
		items = append(items, k)
	}
	sort.Slice(items, func(i, j int) bool { return items[i] < items[j] })
	return items
}

// String renders the ledger as "gems=0 keys=1 steps=40".
func (l *Ledger) String() string {
	s := ""
	for i, item := range l.Items() {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%d", item, l.counts[item])
	}
	return s
}

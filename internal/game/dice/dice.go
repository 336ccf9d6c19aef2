// Package dice rolls effect amounts written as dice expressions such as "1d4+1".
// Rolls draw from the caller's Source, so a seeded game rolls the same values on replay.
package dice

import "fmt"

// Source is the randomness provider for dice rolls.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// Result holds the individual dice of one roll.
//
// Postcondition: Total() == sum(Dice) + Modifier.
type Result struct {
	Expression string // original expression string, e.g. "2d6+3"
	Dice       []int  // individual die results before modifier
	Modifier   int    // flat modifier (may be negative)
}

// Total returns the sum of all die results plus the modifier.
func (r Result) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// String returns a readable audit string such as "2d6+3: [4 5] +3 = 12".
func (r Result) String() string {
	return fmt.Sprintf("%s: %v %+d = %d", r.Expression, r.Dice, r.Modifier, r.Total())
}

// Roll evaluates e with src. Exactly Count values are drawn.
//
// Precondition: e must come from Parse; src must be non-nil.
// Postcondition: e.Min() <= result.Total() <= e.Max().
func (e Expression) Roll(src Source) Result {
	rolled := make([]int, e.Count)
	for i := range rolled {
		rolled[i] = src.Intn(e.Sides) + 1
	}
	return Result{Expression: e.Raw, Dice: rolled, Modifier: e.Modifier}
}

// Min returns the lowest total e can roll.
func (e Expression) Min() int {
	return e.Count + e.Modifier
}

// Max returns the highest total e can roll.
func (e Expression) Max() int {
	return e.Count*e.Sides + e.Modifier
}

// MustParse parses expr and panics on error.
//
// Precondition: expr must be a valid dice expression.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return e
}

package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// maxDice caps the die count so a typo in a content file cannot stall a move.
const maxDice = 100

// Expression is a parsed dice expression ready to be rolled.
type Expression struct {
	Raw      string // original input string
	Count    int    // number of dice
	Sides    int    // faces per die
	Modifier int    // flat modifier (may be negative)
}

// Parse parses "NdS", "dS", "NdS+M", or "NdS-M", case-insensitively. Surrounding
// spaces are ignored.
//
// Postcondition: Returns an Expression with 1 <= Count <= 100 and Sides >= 2, or a
// descriptive error.
func Parse(expr string) (Expression, error) {
	raw := strings.TrimSpace(expr)
	if raw == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}
	s := strings.ToLower(raw)

	countStr, rest, ok := strings.Cut(s, "d")
	if !ok {
		return Expression{}, fmt.Errorf("dice: missing 'd' in expression %q", raw)
	}

	count := 1
	if countStr != "" {
		n, err := strconv.Atoi(countStr)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: %w", raw, err)
		}
		if n < 1 || n > maxDice {
			return Expression{}, fmt.Errorf("dice: die count in %q must be 1-%d", raw, maxDice)
		}
		count = n
	}

	sidesStr, modStr := rest, ""
	if i := strings.IndexAny(rest, "+-"); i >= 0 {
		sidesStr, modStr = rest[:i], rest[i:]
	}

	sides, err := strconv.Atoi(sidesStr)
	if err != nil {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: %w", raw, err)
	}
	if sides < 2 {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: must be >= 2", raw)
	}

	modifier := 0
	if modStr != "" {
		modifier, err = strconv.Atoi(modStr)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid modifier in %q: %w", raw, err)
		}
	}

	return Expression{Raw: raw, Count: count, Sides: sides, Modifier: modifier}, nil
}

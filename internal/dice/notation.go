// Package dice parses dice notation and rolls it.
//
// The supported grammar is a die count, the letter d, a face count and an
// optional chain of signed integer modifiers:
//
//	d20        one twenty-sided die
//	2d10+5     two ten-sided dice plus five
//	3d6-1+2    modifiers are summed
//	d%         shorthand for d100
//
// Anything else is rejected with ErrInvalidNotation.
package dice

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidNotation indicates the input does not match the dice grammar.
var ErrInvalidNotation = errors.New("invalid dice notation")

const (
	// MaxCount bounds the number of dice in a single expression.
	MaxCount = 1000
	// MaxFaces bounds the number of faces on a single die.
	MaxFaces = 1000
	// MaxModifier bounds the absolute value of the summed modifier.
	MaxModifier = 100000
)

var (
	notationPattern = regexp.MustCompile(`^(\d*)[dD](\d+|%)((?:\s*[+-]\s*\d+)*)$`)
	modifierPattern = regexp.MustCompile(`([+-])\s*(\d+)`)
)

// Expression is a parsed dice notation.
type Expression struct {
	Count    int
	Faces    int
	Modifier int
}

// String renders the expression in canonical form, e.g. "2d10+5".
func (e Expression) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%dd%d", e.Count, e.Faces)
	switch {
	case e.Modifier > 0:
		fmt.Fprintf(&b, "+%d", e.Modifier)
	case e.Modifier < 0:
		fmt.Fprintf(&b, "%d", e.Modifier)
	}
	return b.String()
}

// Min returns the lowest total the expression can produce.
func (e Expression) Min() int {
	return e.Count + e.Modifier
}

// Max returns the highest total the expression can produce.
func (e Expression) Max() int {
	return e.Count*e.Faces + e.Modifier
}

// Parse validates notation and returns its expression.
func Parse(notation string) (Expression, error) {
	raw := strings.TrimSpace(notation)
	m := notationPattern.FindStringSubmatch(raw)
	if m == nil {
		return Expression{}, fmt.Errorf("%w: %q", ErrInvalidNotation, notation)
	}

	count := 1
	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return Expression{}, fmt.Errorf("%w: die count %q", ErrInvalidNotation, m[1])
		}
		count = n
	}
	if count <= 0 || count > MaxCount {
		return Expression{}, fmt.Errorf("%w: die count must be between 1 and %d", ErrInvalidNotation, MaxCount)
	}

	faces := 100
	if m[2] != "%" {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return Expression{}, fmt.Errorf("%w: face count %q", ErrInvalidNotation, m[2])
		}
		faces = n
	}
	if faces <= 0 || faces > MaxFaces {
		return Expression{}, fmt.Errorf("%w: face count must be between 1 and %d", ErrInvalidNotation, MaxFaces)
	}

	modifier := 0
	for _, mod := range modifierPattern.FindAllStringSubmatch(m[3], -1) {
		n, err := strconv.Atoi(mod[2])
		if err != nil || n > MaxModifier {
			return Expression{}, fmt.Errorf("%w: modifier %q", ErrInvalidNotation, mod[0])
		}
		if mod[1] == "-" {
			n = -n
		}
		modifier += n
		if modifier > MaxModifier || modifier < -MaxModifier {
			return Expression{}, fmt.Errorf("%w: modifier out of range", ErrInvalidNotation)
		}
	}

	return Expression{Count: count, Faces: faces, Modifier: modifier}, nil
}

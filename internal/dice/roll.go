package dice

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
)

// Result captures a rolled expression.
type Result struct {
	Expression Expression
	Rolls      []int
	Total      int
	Rendering  string
}

// Notation returns the canonical notation of the rolled expression.
func (r Result) Notation() string {
	return r.Expression.String()
}

// Roller rolls dice from a seeded pseudo-random source.
//
// # Determinism
//
// Two rollers built with the same seed produce the same sequence of results
// for the same sequence of calls. Production rollers are seeded from
// crypto/rand; only uniformity across each die's face range is relied upon.
//
// A Roller is safe for concurrent use.
type Roller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRoller returns a roller seeded from crypto/rand.
func NewRoller() *Roller {
	seed, err := NewSeed()
	if err != nil {
		// crypto/rand failing leaves no good source; fall back to a fixed seed
		// rather than refusing to roll.
		seed = 1
	}
	return NewSeededRoller(seed)
}

// NewSeededRoller returns a deterministic roller.
func NewSeededRoller(seed int64) *Roller {
	return &Roller{rng: rand.New(rand.NewSource(seed))}
}

// Roll parses notation and rolls it.
func (r *Roller) Roll(notation string) (Result, error) {
	expr, err := Parse(notation)
	if err != nil {
		return Result{}, err
	}
	return r.RollExpression(expr), nil
}

// RollExpression rolls an already parsed expression.
func (r *Roller) RollExpression(expr Expression) Result {
	rolls := make([]int, expr.Count)
	sum := 0

	r.mu.Lock()
	for i := range rolls {
		rolls[i] = rollDie(r.rng, expr.Faces)
		sum += rolls[i]
	}
	r.mu.Unlock()

	total := sum + expr.Modifier
	return Result{
		Expression: expr,
		Rolls:      rolls,
		Total:      total,
		Rendering:  render(expr, rolls, total),
	}
}

// RollPercentile rolls a single d100 and returns a value in [1,100].
func (r *Roller) RollPercentile() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return rollDie(r.rng, 100)
}

// rollDie rolls a single die with the provided number of sides.
func rollDie(rng *rand.Rand, sides int) int {
	return rng.Intn(sides) + 1
}

// render produces e.g. "2d10+5: [3, 7]+5 = 15".
func render(expr Expression, rolls []int, total int) string {
	parts := make([]string, len(rolls))
	for i, v := range rolls {
		parts[i] = strconv.Itoa(v)
	}

	var b strings.Builder
	b.WriteString(expr.String())
	b.WriteString(": [")
	b.WriteString(strings.Join(parts, ", "))
	b.WriteString("]")
	switch {
	case expr.Modifier > 0:
		fmt.Fprintf(&b, "+%d", expr.Modifier)
	case expr.Modifier < 0:
		fmt.Fprintf(&b, "%d", expr.Modifier)
	}
	fmt.Fprintf(&b, " = %d", total)
	return b.String()
}

// Package rules resolves percentile checks against a capability sheet.
//
// A check succeeds when the d100 roll is at or under the target number. Its
// success level is the difference between the tens digits of target and
// roll, computed with floor division:
//
//	SL = floor(target/10) - floor(roll/10)
//
// so target 45 with roll 30 is SL +1, roll 100 against 45 is SL -6, and an
// equal roll counts as a success.
package rules

import (
	"github.com/antoniostano/ironhand/internal/character"
)

// PercentileRoller supplies d100 rolls.
type PercentileRoller interface {
	RollPercentile() int
}

// Check is a resolved check.
type Check struct {
	Name         string
	Modifier     int
	TargetNumber int
	Roll         int
	Success      bool
	SuccessLevel int
}

// Outcome is the success/margin pair for a roll against a target.
type Outcome struct {
	Success      bool
	SuccessLevel int
}

// Evaluate compares roll against target.
func Evaluate(target, roll int) Outcome {
	return Outcome{
		Success:      roll <= target,
		SuccessLevel: SuccessLevel(target, roll),
	}
}

// SuccessLevel returns floor(target/10) - floor(roll/10).
func SuccessLevel(target, roll int) int {
	return floorDiv(target, 10) - floorDiv(roll, 10)
}

// Target returns the sheet's score for name plus modifier.
func Target(sheet character.Sheet, name string, modifier int) int {
	return sheet.Lookup(name) + modifier
}

// ResolveWithRoll resolves a check using a roll the caller already made.
// It is a pure function of its inputs.
func ResolveWithRoll(sheet character.Sheet, name string, modifier, roll int) Check {
	target := Target(sheet, name, modifier)
	out := Evaluate(target, roll)
	return Check{
		Name:         name,
		Modifier:     modifier,
		TargetNumber: target,
		Roll:         roll,
		Success:      out.Success,
		SuccessLevel: out.SuccessLevel,
	}
}

// Resolver rolls and resolves checks.
type Resolver struct {
	roller PercentileRoller
}

func NewResolver(roller PercentileRoller) *Resolver {
	return &Resolver{roller: roller}
}

// Resolve rolls d100 and resolves the named check.
func (r *Resolver) Resolve(sheet character.Sheet, name string, modifier int) Check {
	return ResolveWithRoll(sheet, name, modifier, r.roller.RollPercentile())
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

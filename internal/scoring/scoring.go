// Package scoring computes point deltas for answered questions. The
// per-level base values are a versioned configuration input: two
// incompatible tables exist historically, and which one a deployment
// uses is an operational decision, never a literal at point of use.
package scoring

import (
	"fmt"
	"math"

	"cinetrivia/internal/domain"
)

// Table maps each difficulty tier to its full-credit base value.
type Table map[domain.LevelName]int

// Named base tables observed in production configurations.
var (
	// TableClassic is the low-stakes 10/20/30 configuration.
	TableClassic = Table{
		domain.LevelEasy:   10,
		domain.LevelMedium: 20,
		domain.LevelHard:   30,
	}

	// TableArena is the 300/600/1000 stage configuration.
	TableArena = Table{
		domain.LevelEasy:   300,
		domain.LevelMedium: 600,
		domain.LevelHard:   1000,
	}
)

// TableByName resolves a configured table name.
func TableByName(name string) (Table, error) {
	switch name {
	case "classic":
		return TableClassic, nil
	case "arena", "":
		return TableArena, nil
	default:
		return nil, fmt.Errorf("unknown scoring table %q", name)
	}
}

// Engine applies the scoring formula over a base table. It is pure:
// no state, no side effects.
type Engine struct {
	table Table
}

// NewEngine creates an engine over the given base table.
func NewEngine(table Table) *Engine {
	return &Engine{table: table}
}

// Score returns the signed point delta for an answer:
//
//	not passed: correct → +base, wrong → −round(base·0.5)
//	passed:     correct → +round(base·0.5), wrong → −round(base·0.25)
//
// Rounding is half-up on the scaled magnitude; the sign is applied
// afterwards, so a wrong passed answer at base 10 costs 3, not 2.
func (e *Engine) Score(level domain.LevelName, isCorrect, isPassed bool) int {
	base := e.table[level]

	if !isPassed {
		if isCorrect {
			return base
		}
		return -roundHalfUp(float64(base) * 0.5)
	}
	if isCorrect {
		return roundHalfUp(float64(base) * 0.5)
	}
	return -roundHalfUp(float64(base) * 0.25)
}

// Base returns the configured full-credit value for a level.
func (e *Engine) Base(level domain.LevelName) int {
	return e.table[level]
}

// LevelRules is the effective delta set for one difficulty tier,
// exposed to clients so they can render point values.
type LevelRules struct {
	Correct int `json:"correct"`
	Wrong   int `json:"wrong"`
	Pass    int `json:"pass"`
}

// Rules returns the effective deltas per level for the not-passed
// correct/wrong cases and the passed-correct case.
func (e *Engine) Rules() map[domain.LevelName]LevelRules {
	rules := make(map[domain.LevelName]LevelRules, len(e.table))
	for _, level := range domain.LevelNames() {
		rules[level] = LevelRules{
			Correct: e.Score(level, true, false),
			Wrong:   e.Score(level, false, false),
			Pass:    e.Score(level, true, true),
		}
	}
	return rules
}

// roundHalfUp rounds a non-negative magnitude half-up to an integer.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

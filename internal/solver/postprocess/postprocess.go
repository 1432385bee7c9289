// Package postprocess implements the tabu-search / simulated-annealing local
// search that repairs a solver's raw assignment set, grounded on
// original_source/scheduler-worker/src/solver/postprocessor.py. It never
// re-derives violations itself — every evaluation goes through
// diagnostics.Collect, the same function the driver uses, so a postprocessed
// schedule's reported diagnostics can never drift from what a fresh
// Collect(input, result) would find (DESIGN.md Open Question #1).
package postprocess

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/solver/diagnostics"
)

const (
	defaultMaxIterations = 400
	defaultTimeLimitMs   = 4000
	defaultTabuSize      = 32
	defaultAnnealingTemp = 5.0
	defaultAnnealingCool = 0.92
)

// Result bundles the repaired assignment set with the stats describing the
// search that produced it and the diagnostics re-derived from the final
// assignments.
type Result struct {
	Assignments []entity.Assignment
	Record      *diagnostics.Record
	Stats       diagnostics.PostprocessStats
}

// violationPriority is the fixed dispatch order postprocessor.py's
// _pick_violation walks: staffing shortfalls are repaired before anything
// else, unfilled special requests last.
var violationPriority = []string{
	"staffingShortage",
	"shiftPatternBreak",
	"teamCoverageGap",
	"careerGroupCoverageGap",
	"teamWorkloadGap",
	"offBalanceGap",
	"avoidPatternViolation",
	"specialRequestMissed",
}

// Run performs bounded local search over assignments and returns the best
// schedule it found, with no guarantee of zero remaining violations — only
// that it never returns an assignment set worse than the one it started
// from.
func Run(ctx context.Context, input entity.ScheduleInput, assignments []entity.Assignment) *Result {
	settings := input.Options.CSPSettings
	maxIterations := settings.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	timeLimitMs := settings.TimeLimitMs
	if timeLimitMs <= 0 {
		timeLimitMs = defaultTimeLimitMs
	}
	tabuSize := resolveTabuSize(settings)
	temperature := settings.Annealing.Temperature
	if temperature <= 0 {
		temperature = defaultAnnealingTemp
	}
	coolingRate := settings.Annealing.CoolingRate
	if coolingRate <= 0 {
		coolingRate = defaultAnnealingCool
	}

	seed := int64(1)
	if input.Options.MultiRun.Seed != nil {
		seed = *input.Options.MultiRun.Seed
	}
	rng := rand.New(rand.NewSource(seed))

	cloned := append([]entity.Assignment(nil), assignments...)
	state := newScheduleState(input, cloned)
	weights := input.Options.ConstraintWeights

	rec := diagnostics.Collect(input, state.assignments)
	currentScore := score(rec, weights)
	initialScore := currentScore
	bestScore := currentScore
	bestRec := rec
	bestAssignments := append([]entity.Assignment(nil), state.assignments...)

	tabu := newTabuList(tabuSize)
	deadline := time.Now().Add(time.Duration(timeLimitMs) * time.Millisecond)

	stats := diagnostics.PostprocessStats{InitialPenalty: initialScore}

	for iter := 0; iter < maxIterations; iter++ {
		if ctx.Err() != nil || time.Now().After(deadline) {
			break
		}

		kind, cands := pickViolation(state, rec)
		if kind == "" || len(cands) == 0 {
			break
		}

		applied, newRec, newScore, accepted, improved := tryApplyBest(state, cands, rec, weights, currentScore, temperature, rng, tabu)
		stats.Iterations++
		if !applied {
			temperature *= coolingRate
			continue
		}
		if improved {
			stats.Improvements++
		} else if accepted {
			stats.AcceptedWorse++
		}
		rec = newRec
		currentScore = newScore
		if currentScore < bestScore {
			bestScore = currentScore
			bestRec = rec
			bestAssignments = append(bestAssignments[:0], state.assignments...)
		}
		temperature *= coolingRate
	}

	stats.FinalPenalty = bestScore
	stats.Temperature = temperature
	bestRec.Postprocess = &stats

	return &Result{Assignments: bestAssignments, Record: bestRec, Stats: stats}
}

// resolveTabuSize distinguishes an unset TabuSize (nil, falls back to
// defaultTabuSize) from an explicit 0 (tabu list disabled outright) —
// a bare "<= 0 means default" check would wrongly collapse the two.
func resolveTabuSize(settings entity.CSPSettings) int {
	if settings.TabuSize == nil {
		return defaultTabuSize
	}
	if *settings.TabuSize < 0 {
		return 0
	}
	return *settings.TabuSize
}

// pickViolation returns the highest-priority nonempty violation kind in rec
// and the swap candidates generated for its first entry.
func pickViolation(state *scheduleState, rec *diagnostics.Record) (string, []candidate) {
	for _, kind := range violationPriority {
		switch kind {
		case "staffingShortage":
			if len(rec.StaffingShortages) > 0 {
				if c := resolveStaffingShortage(state, rec.StaffingShortages[0]); len(c) > 0 {
					return kind, c
				}
			}
		case "shiftPatternBreak":
			if len(rec.ShiftPatternBreaks) > 0 {
				if c := resolveShiftPatternBreak(state, rec.ShiftPatternBreaks[0]); len(c) > 0 {
					return kind, c
				}
			}
		case "teamCoverageGap":
			if len(rec.TeamCoverageGaps) > 0 {
				if c := resolveTeamCoverageGap(state, rec.TeamCoverageGaps[0]); len(c) > 0 {
					return kind, c
				}
			}
		case "careerGroupCoverageGap":
			if len(rec.CareerGroupCoverageGaps) > 0 {
				if c := resolveCareerGroupCoverageGap(state, rec.CareerGroupCoverageGaps[0]); len(c) > 0 {
					return kind, c
				}
			}
		case "teamWorkloadGap":
			if len(rec.TeamWorkloadGaps) > 0 {
				if c := resolveTeamWorkloadGap(state, rec.TeamWorkloadGaps[0]); len(c) > 0 {
					return kind, c
				}
			}
		case "offBalanceGap":
			if len(rec.OffBalanceGaps) > 0 {
				if c := resolveOffBalanceGap(state, rec.OffBalanceGaps[0]); len(c) > 0 {
					return kind, c
				}
			}
		case "avoidPatternViolation":
			if len(rec.AvoidPatternViolations) > 0 {
				if c := resolveAvoidPatternViolation(state, rec.AvoidPatternViolations[0]); len(c) > 0 {
					return kind, c
				}
			}
		case "specialRequestMissed":
			if len(rec.SpecialRequestMisses) > 0 {
				if c := resolveSpecialRequestMissed(state, rec.SpecialRequestMisses[0]); len(c) > 0 {
					return kind, c
				}
			}
		}
	}
	return "", nil
}

// tryApplyBest evaluates every candidate swap (applying, scoring, reverting),
// then commits the best-improving non-tabu move, or — failing that —
// probabilistically accepts the least-bad non-tabu move per the simulated
// annealing rule, mirroring postprocessor.py's _apply_best_swap.
func tryApplyBest(
	state *scheduleState,
	cands []candidate,
	rec *diagnostics.Record,
	weights entity.ConstraintWeights,
	currentScore, temperature float64,
	rng *rand.Rand,
	tabu *tabuList,
) (applied bool, newRec *diagnostics.Record, newScore float64, acceptedWorse bool, improved bool) {
	type evaluated struct {
		cand  candidate
		rec   *diagnostics.Record
		score float64
	}
	var best *evaluated
	var fallback *evaluated

	for _, c := range cands {
		key := tabuKeyFor(c)
		if tabu.contains(key) {
			continue
		}
		if !state.swapPair(c.DayA, c.EmpA, c.DayB, c.EmpB) {
			continue
		}
		candRec := diagnostics.Collect(state.input, state.assignments)
		candScore := score(candRec, weights)
		state.swapPair(c.DayA, c.EmpA, c.DayB, c.EmpB) // undo (swap is its own inverse)

		e := &evaluated{cand: c, rec: candRec, score: candScore}
		if best == nil || e.score < best.score {
			best = e
		}
		if fallback == nil || e.score < fallback.score {
			fallback = e
		}
	}

	if best == nil {
		return false, rec, currentScore, false, false
	}

	if best.score < currentScore {
		state.swapPair(best.cand.DayA, best.cand.EmpA, best.cand.DayB, best.cand.EmpB)
		tabu.push(tabuKeyFor(best.cand))
		return true, best.rec, best.score, false, true
	}

	if acceptWorseMove(currentScore, fallback.score, temperature, rng) {
		state.swapPair(fallback.cand.DayA, fallback.cand.EmpA, fallback.cand.DayB, fallback.cand.EmpB)
		tabu.push(tabuKeyFor(fallback.cand))
		return true, fallback.rec, fallback.score, true, false
	}

	return false, rec, currentScore, false, false
}

// acceptWorseMove is the standard simulated-annealing acceptance rule: a
// move that increases the penalty by delta is taken with probability
// exp(-delta/temperature).
func acceptWorseMove(currentScore, candidateScore, temperature float64, rng *rand.Rand) bool {
	if temperature <= 0 {
		return false
	}
	delta := candidateScore - currentScore
	if delta <= 0 {
		return true
	}
	probability := math.Exp(-delta / temperature)
	return rng.Float64() < probability
}

// tabuList is a fixed-size FIFO set of recently-applied swap keys.
type tabuList struct {
	capacity int
	queue    []string
	set      map[string]bool
}

func newTabuList(capacity int) *tabuList {
	return &tabuList{capacity: capacity, set: map[string]bool{}}
}

func (t *tabuList) contains(key string) bool {
	return t.set[key]
}

func (t *tabuList) push(key string) {
	if t.set[key] {
		return
	}
	t.queue = append(t.queue, key)
	t.set[key] = true
	for len(t.queue) > t.capacity {
		oldest := t.queue[0]
		t.queue = t.queue[1:]
		delete(t.set, oldest)
	}
}

// tabuKeyFor builds a canonical (order-independent) key for a swap so that
// undoing and redoing the same pair is recognized as the same move.
func tabuKeyFor(c candidate) string {
	sideA := c.DayA + "|" + c.EmpA
	sideB := c.DayB + "|" + c.EmpB
	sides := []string{sideA, sideB}
	sort.Strings(sides)
	return sides[0] + "::" + sides[1]
}

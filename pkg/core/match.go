package core

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Matches reports whether a peak falls inside a compound's mass and
// retention-time tolerance windows. Both window edges are inclusive: a peak
// exactly at the tolerance boundary counts as a match, and a tolerance of
// zero degenerates to exact float equality.
func Matches(c *CompoundTarget, p *Peak, tol Tolerance) bool {
	lo, hi := tol.MassWindow(c.MZ)
	if p.MZ < lo || p.MZ > hi {
		return false
	}
	// Unknown retention time: identify on mass alone.
	if c.RT == nil || math.IsNaN(*c.RT) {
		return true
	}
	rtTol := tol.RTToleranceFor(c)
	return p.RT >= *c.RT-rtTol && p.RT <= *c.RT+rtTol
}

// Match scans the peak set for every compound and emits one MatchResult per
// (compound, matching peak) pair, grouped by compound in input order with
// peaks in input order. A compound with no matching peak yields exactly one
// result with Matched false, so the output always has at least one row per
// compound. The computation is a pure function of its inputs.
func Match(compounds []CompoundTarget, peaks []Peak, tol Tolerance) []MatchResult {
	results := make([]MatchResult, 0, len(compounds))
	for i := range compounds {
		results = append(results, matchOne(&compounds[i], peaks, tol)...)
	}
	return results
}

// matchOne returns the result rows for a single compound.
func matchOne(c *CompoundTarget, peaks []Peak, tol Tolerance) []MatchResult {
	var rows []MatchResult
	for j := range peaks {
		if Matches(c, &peaks[j], tol) {
			rows = append(rows, MatchResult{Compound: c, Peak: &peaks[j], Matched: true})
		}
	}
	if len(rows) == 0 {
		rows = append(rows, MatchResult{Compound: c, Matched: false})
	}
	return rows
}

// MatchParallel is Match parallelized over the compound dimension. Each
// compound's scan is independent and read-only over the shared peak slice;
// per-compound result slots keep the assembled output byte-identical to the
// serial path regardless of scheduling. workers <= 0 uses GOMAXPROCS.
func MatchParallel(ctx context.Context, compounds []CompoundTarget, peaks []Peak, tol Tolerance, workers int) ([]MatchResult, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers == 1 || len(compounds) < 2 {
		return Match(compounds, peaks, tol), nil
	}

	perCompound := make([][]MatchResult, len(compounds))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range compounds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			perCompound[i] = matchOne(&compounds[i], peaks, tol)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]MatchResult, 0, len(compounds))
	for _, rows := range perCompound {
		results = append(results, rows...)
	}
	return results, nil
}

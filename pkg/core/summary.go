package core

import (
	"math"
	"sort"
)

// CompoundSummary aggregates the matching peaks of one identified compound.
type CompoundSummary struct {
	Compound *CompoundTarget

	// TotalIntensityPPM is the summed intensity of the matching peaks,
	// normalized to parts-per-million of the whole peak list's intensity.
	TotalIntensityPPM float64

	// ObservedMZ and ObservedRT are intensity-weighted means over the
	// matching peaks.
	ObservedMZ float64
	ObservedRT float64

	// MZErrorPPM is the intensity-weighted mean absolute deviation from the
	// expected m/z, in parts-per-million of the expected m/z.
	MZErrorPPM float64

	// RTError is the intensity-weighted mean absolute deviation from the
	// expected retention time. Nil when the expected retention time is
	// unknown.
	RTError *float64

	// PeakCount is the number of peaks within tolerance.
	PeakCount int
}

// Summarize derives per-compound aggregates from a match result set. Only
// compounds with at least one matching peak appear; rows are ordered by total
// intensity descending, ties broken by compound input order.
func Summarize(results []MatchResult, peaks []Peak) []CompoundSummary {
	totalIntensity := 0.0
	for i := range peaks {
		totalIntensity += peaks[i].Intensity
	}

	// Group matched rows by compound, preserving input order.
	grouped := make(map[*CompoundTarget][]*Peak)
	var order []*CompoundTarget
	for i := range results {
		r := &results[i]
		if !r.Matched {
			continue
		}
		if _, seen := grouped[r.Compound]; !seen {
			order = append(order, r.Compound)
		}
		grouped[r.Compound] = append(grouped[r.Compound], r.Peak)
	}

	summaries := make([]CompoundSummary, 0, len(order))
	for _, c := range order {
		summaries = append(summaries, summarizeCompound(c, grouped[c], totalIntensity))
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].TotalIntensityPPM > summaries[j].TotalIntensityPPM
	})
	return summaries
}

func summarizeCompound(c *CompoundTarget, matched []*Peak, totalIntensity float64) CompoundSummary {
	sum := CompoundSummary{Compound: c, PeakCount: len(matched)}

	intensitySum := 0.0
	for _, p := range matched {
		intensitySum += p.Intensity
	}
	if totalIntensity > 0 {
		sum.TotalIntensityPPM = intensitySum / totalIntensity * 1e6
	}
	if intensitySum <= 0 {
		// Degenerate zero-intensity group: fall back to unweighted means.
		for _, p := range matched {
			sum.ObservedMZ += p.MZ / float64(len(matched))
			sum.ObservedRT += p.RT / float64(len(matched))
		}
		return sum
	}

	for _, p := range matched {
		w := p.Intensity / intensitySum
		sum.ObservedMZ += p.MZ * w
		sum.ObservedRT += p.RT * w
		sum.MZErrorPPM += math.Abs(p.MZ-c.MZ) * 1e6 / c.MZ * w
	}
	if c.RT != nil && !math.IsNaN(*c.RT) {
		rtErr := 0.0
		for _, p := range matched {
			rtErr += math.Abs(p.RT-*c.RT) * p.Intensity / intensitySum
		}
		sum.RTError = &rtErr
	}
	return sum
}

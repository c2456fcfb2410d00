package core

import (
	"context"
	"reflect"
	"testing"
)

func fp(v float64) *float64 { return &v }

func TestMatches(t *testing.T) {
	tol := Tolerance{Mass: 0.002, Unit: ToleranceDa, RTWindow: 0.5}

	tests := []struct {
		name     string
		compound CompoundTarget
		peak     Peak
		tol      Tolerance
		want     bool
	}{
		{
			name:     "inside both windows",
			compound: CompoundTarget{MZ: 100.0, RT: fp(5.0), RTTolerance: fp(0.1)},
			peak:     Peak{MZ: 100.0, RT: 5.05, Intensity: 1000},
			tol:      tol,
			want:     true,
		},
		{
			name:     "outside rt window",
			compound: CompoundTarget{MZ: 100.0, RT: fp(5.0), RTTolerance: fp(0.1)},
			peak:     Peak{MZ: 100.0, RT: 5.2, Intensity: 1000},
			tol:      tol,
			want:     false,
		},
		{
			name:     "outside mass window",
			compound: CompoundTarget{MZ: 100.0, RT: fp(5.0), RTTolerance: fp(0.1)},
			peak:     Peak{MZ: 100.01, RT: 5.0, Intensity: 1000},
			tol:      tol,
			want:     false,
		},
		{
			name:     "exact lower rt edge matches",
			compound: CompoundTarget{MZ: 100.0, RT: fp(5.0), RTTolerance: fp(0.1)},
			peak:     Peak{MZ: 100.0, RT: 4.9, Intensity: 1},
			tol:      tol,
			want:     true,
		},
		{
			name:     "exact upper rt edge matches",
			compound: CompoundTarget{MZ: 100.0, RT: fp(5.0), RTTolerance: fp(0.1)},
			peak:     Peak{MZ: 100.0, RT: 5.1, Intensity: 1},
			tol:      tol,
			want:     true,
		},
		{
			name:     "just beyond upper rt edge",
			compound: CompoundTarget{MZ: 100.0, RT: fp(5.0), RTTolerance: fp(0.1)},
			peak:     Peak{MZ: 100.0, RT: 5.1000001, Intensity: 1},
			tol:      tol,
			want:     false,
		},
		{
			name:     "exact mass edge matches",
			compound: CompoundTarget{MZ: 100.0, RT: fp(5.0), RTTolerance: fp(0.1)},
			peak:     Peak{MZ: 100.002, RT: 5.0, Intensity: 1},
			tol:      tol,
			want:     true,
		},
		{
			name:     "zero tolerance requires exact equality",
			compound: CompoundTarget{MZ: 100.0, RT: fp(5.0), RTTolerance: fp(0)},
			peak:     Peak{MZ: 100.0, RT: 5.0, Intensity: 1},
			tol:      Tolerance{Mass: 0, Unit: ToleranceDa, RTWindow: 0.5},
			want:     true,
		},
		{
			name:     "zero tolerance rejects any deviation",
			compound: CompoundTarget{MZ: 100.0, RT: fp(5.0), RTTolerance: fp(0)},
			peak:     Peak{MZ: 100.0000001, RT: 5.0, Intensity: 1},
			tol:      Tolerance{Mass: 0, Unit: ToleranceDa, RTWindow: 0.5},
			want:     false,
		},
		{
			name:     "nil rt tolerance falls back to run default",
			compound: CompoundTarget{MZ: 100.0, RT: fp(5.0)},
			peak:     Peak{MZ: 100.0, RT: 5.4, Intensity: 1},
			tol:      tol,
			want:     true,
		},
		{
			name:     "unknown rt matches on mass alone",
			compound: CompoundTarget{MZ: 100.0},
			peak:     Peak{MZ: 100.001, RT: 99.0, Intensity: 1},
			tol:      tol,
			want:     true,
		},
		{
			name:     "ppm window inside",
			compound: CompoundTarget{MZ: 500.0, RT: fp(5.0), RTTolerance: fp(1.0)},
			peak:     Peak{MZ: 500.002, RT: 5.0, Intensity: 1},
			tol:      Tolerance{Mass: 5, Unit: TolerancePPM, RTWindow: 0.5},
			want:     true,
		},
		{
			name:     "ppm window outside",
			compound: CompoundTarget{MZ: 500.0, RT: fp(5.0), RTTolerance: fp(1.0)},
			peak:     Peak{MZ: 500.01, RT: 5.0, Intensity: 1},
			tol:      Tolerance{Mass: 5, Unit: TolerancePPM, RTWindow: 0.5},
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Matches(&tt.compound, &tt.peak, tt.tol)
			if got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchSingleCompound(t *testing.T) {
	tol := Tolerance{Mass: 0.002, Unit: ToleranceDa, RTWindow: 0.5}
	compounds := []CompoundTarget{
		{MZ: 100.0, RT: fp(5.0), RTTolerance: fp(0.1), Row: 1},
	}
	peaks := []Peak{
		{MZ: 100.0, RT: 5.05, Intensity: 1000, Row: 1},
	}

	results := Match(compounds, peaks, tol)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !results[0].Matched {
		t.Error("expected matched=true")
	}
	if results[0].Peak == nil || results[0].Peak.Row != 1 {
		t.Error("expected result to reference peak row 1")
	}
}

func TestMatchUnmatchedCompound(t *testing.T) {
	tol := Tolerance{Mass: 0.002, Unit: ToleranceDa, RTWindow: 0.5}
	compounds := []CompoundTarget{
		{MZ: 100.0, RT: fp(5.0), RTTolerance: fp(0.1)},
	}
	peaks := []Peak{
		{MZ: 100.0, RT: 5.2, Intensity: 1000},
	}

	results := Match(compounds, peaks, tol)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Matched {
		t.Error("expected matched=false")
	}
	if results[0].Peak != nil {
		t.Error("unmatched result must not reference a peak")
	}
}

func TestMatchZeroPeaks(t *testing.T) {
	tol := Tolerance{Mass: 0.002, Unit: ToleranceDa, RTWindow: 0.5}
	compounds := []CompoundTarget{
		{MZ: 100.0, RT: fp(5.0), RTTolerance: fp(0.1)},
		{MZ: 200.0, RT: fp(7.0), RTTolerance: fp(0.2)},
	}

	results := Match(compounds, nil, tol)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Matched {
			t.Errorf("result %d: expected matched=false", i)
		}
	}
}

func TestMatchZeroCompounds(t *testing.T) {
	tol := Tolerance{Mass: 0.002, Unit: ToleranceDa, RTWindow: 0.5}
	peaks := []Peak{{MZ: 100.0, RT: 5.0, Intensity: 1}}

	results := Match(nil, peaks, tol)
	if len(results) != 0 {
		t.Fatalf("expected empty output, got %d rows", len(results))
	}
}

func TestMatchMultiplePeaksOneCompound(t *testing.T) {
	tol := Tolerance{Mass: 0.002, Unit: ToleranceDa, RTWindow: 0.5}
	compounds := []CompoundTarget{
		{MZ: 100.0, RT: fp(5.0), RTTolerance: fp(0.1)},
	}
	peaks := []Peak{
		{MZ: 100.0, RT: 4.95, Intensity: 500, Row: 1},
		{MZ: 300.0, RT: 5.0, Intensity: 900, Row: 2},
		{MZ: 100.001, RT: 5.05, Intensity: 700, Row: 3},
	}

	results := Match(compounds, peaks, tol)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	// Peak-input order must be preserved.
	if results[0].Peak.Row != 1 || results[1].Peak.Row != 3 {
		t.Errorf("results out of peak order: rows %d, %d", results[0].Peak.Row, results[1].Peak.Row)
	}
	for i, r := range results {
		if !r.Matched {
			t.Errorf("result %d: expected matched=true", i)
		}
	}
}

func TestMatchAmbiguousPeakSharedByCompounds(t *testing.T) {
	tol := Tolerance{Mass: 0.002, Unit: ToleranceDa, RTWindow: 0.5}
	compounds := []CompoundTarget{
		{MZ: 100.0, RT: fp(5.0), RTTolerance: fp(0.2), Row: 1},
		{MZ: 100.001, RT: fp(5.1), RTTolerance: fp(0.2), Row: 2},
	}
	peaks := []Peak{
		{MZ: 100.0, RT: 5.05, Intensity: 1000, Row: 1},
	}

	results := Match(compounds, peaks, tol)
	if len(results) != 2 {
		t.Fatalf("expected 2 results (ambiguity preserved), got %d", len(results))
	}
	if results[0].Compound.Row != 1 || results[1].Compound.Row != 2 {
		t.Error("results must be grouped by compound input order")
	}
	if results[0].Peak != results[1].Peak {
		t.Error("both results should reference the same shared peak")
	}
}

func TestMatchRowCountInvariant(t *testing.T) {
	tol := Tolerance{Mass: 0.002, Unit: ToleranceDa, RTWindow: 0.5}
	compounds := []CompoundTarget{
		{MZ: 100.0, RT: fp(5.0), RTTolerance: fp(0.1)},
		{MZ: 200.0, RT: fp(6.0), RTTolerance: fp(0.1)},
		{MZ: 300.0, RT: fp(7.0), RTTolerance: fp(0.1)},
	}
	peaks := []Peak{
		{MZ: 100.0, RT: 5.0, Intensity: 10},
		{MZ: 100.0005, RT: 5.01, Intensity: 20},
		{MZ: 999.0, RT: 1.0, Intensity: 30},
	}

	results := Match(compounds, peaks, tol)
	if len(results) < len(compounds) {
		t.Errorf("|output| = %d < |compounds| = %d", len(results), len(compounds))
	}
}

func TestMatchDeterministic(t *testing.T) {
	tol := Tolerance{Mass: 0.01, Unit: ToleranceDa, RTWindow: 0.5}
	var compounds []CompoundTarget
	var peaks []Peak
	for i := 0; i < 25; i++ {
		rt := float64(i) * 0.3
		compounds = append(compounds, CompoundTarget{MZ: 100 + float64(i), RT: &rt, RTTolerance: fp(0.4), Row: i + 1})
		peaks = append(peaks, Peak{MZ: 100 + float64(i)*0.5, RT: float64(i) * 0.2, Intensity: float64(i), Row: i + 1})
	}

	first := Match(compounds, peaks, tol)
	second := Match(compounds, peaks, tol)
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated runs must produce identical output")
	}
}

func TestMatchParallelMatchesSerial(t *testing.T) {
	tol := Tolerance{Mass: 0.01, Unit: ToleranceDa, RTWindow: 0.5}
	var compounds []CompoundTarget
	var peaks []Peak
	for i := 0; i < 50; i++ {
		rt := float64(i%10) * 0.5
		compounds = append(compounds, CompoundTarget{MZ: 100 + float64(i%7), RT: &rt, RTTolerance: fp(0.3), Row: i + 1})
		peaks = append(peaks, Peak{MZ: 100 + float64(i%7), RT: float64(i%10) * 0.5, Intensity: float64(i), Row: i + 1})
	}

	serial := Match(compounds, peaks, tol)
	for _, workers := range []int{0, 2, 8} {
		parallel, err := MatchParallel(context.Background(), compounds, peaks, tol, workers)
		if err != nil {
			t.Fatalf("MatchParallel(workers=%d) error: %v", workers, err)
		}
		if !reflect.DeepEqual(serial, parallel) {
			t.Errorf("MatchParallel(workers=%d) diverges from serial output", workers)
		}
	}
}

func TestMassWindowPPM(t *testing.T) {
	tol := Tolerance{Mass: 10, Unit: TolerancePPM}
	lo, hi := tol.MassWindow(500.0)
	if lo != 500.0-0.005 || hi != 500.0+0.005 {
		t.Errorf("MassWindow(500) = [%v, %v], want [499.995, 500.005]", lo, hi)
	}
}

package main

import (
	"testing"
)

func TestScoreOutcome(t *testing.T) {
	cases := []struct {
		name   string
		status statusResponse
		capped bool
		want   float64
	}{
		{name: "white resigned", status: statusResponse{Winner: 1, StonesWhite: 9}, want: 1},
		{name: "black resigned", status: statusResponse{Winner: 2, StonesBlack: 9}, want: 0},
		{name: "black ahead on material", status: statusResponse{StonesBlack: 10, StonesWhite: 8, CapturedW: 1}, capped: true, want: 1},
		{name: "white ahead on captures", status: statusResponse{StonesBlack: 10, StonesWhite: 10, CapturedW: 2}, want: 0},
		{name: "even", status: statusResponse{StonesBlack: 7, StonesWhite: 6, CapturedW: 1}, want: 0.5},
	}
	for _, tc := range cases {
		got := scoreOutcome(tc.status, tc.capped)
		if got.Result != tc.want {
			t.Fatalf("%s: expected %.1f, got %.1f", tc.name, tc.want, got.Result)
		}
		if got.Capped != tc.capped {
			t.Fatalf("%s: capped flag lost", tc.name)
		}
	}
}

func TestMutateHeuristicsStaysPositiveAndBounded(t *testing.T) {
	tr := &trainer{mutationStrength: 0.2}
	base := defaultHeuristics()
	for i := 0; i < 200; i++ {
		next := tr.mutateHeuristics(base)
		for _, pair := range [][2]float64{
			{base.Stones, next.Stones},
			{base.Liberties, next.Liberties},
			{base.Atari, next.Atari},
		} {
			if pair[1] <= 0 || pair[1] < pair[0]*0.8-1e-9 || pair[1] > pair[0]*1.2+1e-9 {
				t.Fatalf("mutation out of range: %v -> %v", pair[0], pair[1])
			}
		}
	}
}

func TestHeuristicFileRoundTrip(t *testing.T) {
	tr := &trainer{outputDir: t.TempDir()}
	if got := tr.baseHeuristics(); got != defaultHeuristics() {
		t.Fatalf("expected defaults without a saved file, got %+v", got)
	}
	want := heuristicConfig{Stones: 1.3, Liberties: 0.2, Atari: 0.9}
	if err := tr.writeHeuristicFile("champion_heuristics.json", want); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := tr.baseHeuristics(); got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

package monitor

import (
	"math/rand/v2"
	"testing"
	"time"
)

func TestDiff_FirstPollSuppressed(t *testing.T) {
	tests := []struct {
		name     string
		previous Snapshot
		current  Snapshot
	}{
		{"nil previous", nil, Snapshot{true, true, false}},
		{"empty previous", Snapshot{}, Snapshot{true}},
		{"both empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Diff(tt.previous, tt.current); len(got) != 0 {
				t.Errorf("Diff() = %v, want no transitions", got)
			}
		})
	}
}

func TestDiff_OneTransitionPerChangedIndex(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2)) //nolint:gosec // deterministic test data
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for round := 0; round < 200; round++ {
		n := 1 + rng.IntN(64)
		prev := make(Snapshot, n)
		cur := make(Snapshot, n)
		want := 0
		for i := range n {
			prev[i] = rng.IntN(2) == 1
			cur[i] = rng.IntN(2) == 1
			if prev[i] != cur[i] {
				want++
			}
		}

		got := DiffAt(prev, cur, at)
		if len(got) != want {
			t.Fatalf("round %d: %d transitions, want %d", round, len(got), want)
		}
		last := -1
		for _, tr := range got {
			if tr.Index <= last {
				t.Fatalf("round %d: indices not ascending: %v", round, got)
			}
			last = tr.Index
			if tr.Previous != prev[tr.Index] || tr.Current != cur[tr.Index] {
				t.Fatalf("round %d: transition %+v does not match snapshots", round, tr)
			}
			if !tr.At.Equal(at) {
				t.Fatalf("round %d: At = %v", round, tr.At)
			}
		}
	}
}

func TestDiff_MixedTypes(t *testing.T) {
	prev := Snapshot{float32(1.5), int16(3), "abc", []byte{1, 2}}
	cur := Snapshot{float32(1.5), int32(3), "abd", []byte{1, 2}}

	got := Diff(prev, cur)
	if len(got) != 2 || got[0].Index != 1 || got[1].Index != 2 {
		t.Errorf("Diff() = %+v, want transitions at 1 and 2", got)
	}
}

func TestDiff_ShorterPreviousForcesTransition(t *testing.T) {
	prev := Snapshot{false}
	cur := Snapshot{false, false, true}

	got := Diff(prev, cur)
	if len(got) != 2 {
		t.Fatalf("Diff() = %+v, want 2 forced transitions", got)
	}
	for i, tr := range got {
		if tr.Index != i+1 || tr.Previous != nil {
			t.Errorf("transition %d = %+v, want index %d with nil previous", i, tr, i+1)
		}
	}
	if !got[0].Falling() || !got[1].Rising() {
		t.Errorf("forced transitions should classify by current value: %+v", got)
	}
}

func TestDiff_ShorterCurrentIgnoresTail(t *testing.T) {
	got := Diff(Snapshot{true, true, true}, Snapshot{true})
	if len(got) != 0 {
		t.Errorf("Diff() = %+v, want none", got)
	}
}

func TestTransition_RisingFalling(t *testing.T) {
	tests := []struct {
		name    string
		tr      Transition
		rising  bool
		falling bool
	}{
		{"false to true", Transition{Previous: false, Current: true}, true, false},
		{"true to false", Transition{Previous: true, Current: false}, false, true},
		{"unknown to true", Transition{Previous: nil, Current: true}, true, false},
		{"unknown to false", Transition{Previous: nil, Current: false}, false, true},
		{"numeric", Transition{Previous: int16(1), Current: int16(2)}, false, false},
		{"bool to number", Transition{Previous: true, Current: int16(0)}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tr.Rising(); got != tt.rising {
				t.Errorf("Rising() = %v, want %v", got, tt.rising)
			}
			if got := tt.tr.Falling(); got != tt.falling {
				t.Errorf("Falling() = %v, want %v", got, tt.falling)
			}
		})
	}
}

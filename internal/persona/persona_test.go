package persona

import (
	"testing"
	"time"
)

func TestCadenceFloor(t *testing.T) {
	p := New("bot", "Bot", "dry", nil, 0)
	if p.Cadence() != time.Minute {
		t.Fatalf("expected 1m cadence floor, got %v", p.Cadence())
	}
	p = New("bot", "Bot", "dry", nil, -5*time.Minute)
	if p.Cadence() != time.Minute {
		t.Fatalf("expected 1m cadence floor for negative input, got %v", p.Cadence())
	}
}

func TestInterestsAreCopied(t *testing.T) {
	interests := []string{"weather"}
	p := New("bot", "Bot", "dry", interests, time.Minute)
	interests[0] = "mutated"
	if p.Interests()[0] != "weather" {
		t.Fatal("persona interests should not alias caller slice")
	}
	got := p.Interests()
	got[0] = "mutated"
	if p.Interests()[0] != "weather" {
		t.Fatal("persona interests should not alias returned slice")
	}
}

func TestDefaultRosterHandlesAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range DefaultRoster() {
		if seen[p.Handle()] {
			t.Fatalf("duplicate handle %s", p.Handle())
		}
		seen[p.Handle()] = true
		if p.ID().String() == "" {
			t.Fatal("expected non-empty id")
		}
	}
}

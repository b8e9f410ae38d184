package memory

import (
	"testing"
	"time"
)

func TestNewerMemoryScoresAtLeastOlder(t *testing.T) {
	ranker := NewRanker()
	now := time.Now().UTC()
	newer := Entry{Salience: 0.5, CreatedAt: now.Add(-time.Hour)}
	older := Entry{Salience: 0.5, CreatedAt: now.Add(-48 * time.Hour)}
	if ranker.Score(newer, now) < ranker.Score(older, now) {
		t.Fatal("newer memory with equal salience should not score lower")
	}
}

func TestHigherSalienceWinsAtEqualAge(t *testing.T) {
	ranker := NewRanker()
	now := time.Now().UTC()
	created := now.Add(-2 * time.Hour)
	loud := Entry{Salience: 0.9, CreatedAt: created}
	quiet := Entry{Salience: 0.1, CreatedAt: created}
	if ranker.Score(loud, now) <= ranker.Score(quiet, now) {
		t.Fatal("higher salience should score strictly higher at equal age")
	}
}

func TestRecencyDecaysToZeroOutsideWindow(t *testing.T) {
	ranker := NewRanker()
	now := time.Now().UTC()
	ancient := Entry{Salience: 0.4, CreatedAt: now.Add(-30 * 24 * time.Hour)}
	if got := ranker.Score(ancient, now); got != 0.4 {
		t.Fatalf("expected pure salience score 0.4 outside recency window, got %v", got)
	}
}

func TestFutureTimestampsDoNotInflateRecency(t *testing.T) {
	ranker := NewRanker()
	now := time.Now().UTC()
	future := Entry{Salience: 0, CreatedAt: now.Add(time.Hour)}
	if got := ranker.Score(future, now); got > 1.0 {
		t.Fatalf("future-dated memory should cap recency at 1.0, got %v", got)
	}
}

func TestTopKOrdersAndBounds(t *testing.T) {
	ranker := NewRanker()
	now := time.Now().UTC()
	entries := []Entry{
		{Content: "old-low", Salience: 0.1, CreatedAt: now.Add(-6 * 24 * time.Hour)},
		{Content: "new-high", Salience: 0.9, CreatedAt: now.Add(-time.Hour)},
		{Content: "new-mid", Salience: 0.5, CreatedAt: now.Add(-2 * time.Hour)},
	}

	top := ranker.TopK(entries, now, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(top))
	}
	if top[0].Content != "new-high" {
		t.Fatalf("expected new-high first, got %s", top[0].Content)
	}
	if entries[0].Content != "old-low" {
		t.Fatal("TopK must not reorder the input slice")
	}
}

func TestTopKTieBreaksNewerFirst(t *testing.T) {
	ranker := Ranker{RecencyWindow: time.Hour, RecencyWeight: 1, SalienceWeight: 1}
	now := time.Now().UTC()
	// Both outside the window, equal salience: scores tie exactly.
	a := Entry{Content: "older", Salience: 0.5, CreatedAt: now.Add(-3 * time.Hour)}
	b := Entry{Content: "newer", Salience: 0.5, CreatedAt: now.Add(-2 * time.Hour)}

	top := ranker.TopK([]Entry{a, b}, now, 2)
	if top[0].Content != "newer" {
		t.Fatalf("expected newer entry to win the tie, got %s", top[0].Content)
	}
}

func TestTopKZeroK(t *testing.T) {
	ranker := NewRanker()
	if got := ranker.TopK([]Entry{{}}, time.Now(), 0); got != nil {
		t.Fatal("expected nil for k=0")
	}
}

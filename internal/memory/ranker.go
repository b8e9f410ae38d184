package memory

import (
	"sort"
	"time"
)

const (
	defaultRecencyWindow  = 7 * 24 * time.Hour
	defaultRecencyWeight  = 1.0
	defaultSalienceWeight = 1.0
)

// Ranker scores memories by recency decay and salience. It is a pure
// function of the entries handed to it; nothing is mutated.
type Ranker struct {
	RecencyWindow  time.Duration
	RecencyWeight  float64
	SalienceWeight float64
}

// NewRanker returns a ranker with the default 7-day window and equal weights.
func NewRanker() Ranker {
	return Ranker{
		RecencyWindow:  defaultRecencyWindow,
		RecencyWeight:  defaultRecencyWeight,
		SalienceWeight: defaultSalienceWeight,
	}
}

// Score computes recencyWeight * max(0, 1 - age/window) + salienceWeight * salience.
func (r Ranker) Score(entry Entry, now time.Time) float64 {
	window := r.RecencyWindow
	if window <= 0 {
		window = defaultRecencyWindow
	}
	age := now.Sub(entry.CreatedAt)
	if age < 0 {
		age = 0
	}
	recency := 1 - age.Seconds()/window.Seconds()
	if recency < 0 {
		recency = 0
	}
	return r.RecencyWeight*recency + r.SalienceWeight*entry.Salience
}

// TopK returns the k highest-scoring entries, best first. Score ties go to
// the newer entry.
func (r Ranker) TopK(entries []Entry, now time.Time, k int) []Entry {
	if k <= 0 || len(entries) == 0 {
		return nil
	}
	ranked := make([]Entry, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := r.Score(ranked[i], now), r.Score(ranked[j], now)
		if si != sj {
			return si > sj
		}
		return ranked[i].CreatedAt.After(ranked[j].CreatedAt)
	})
	if k > len(ranked) {
		k = len(ranked)
	}
	return ranked[:k]
}

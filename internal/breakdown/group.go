// Package breakdown partitions trade collections by a key and summarizes
// each group with the portfolio aggregator.
package breakdown

import (
	"trade-journal/internal/metrics"
	"trade-journal/internal/models"
)

// KeyFunc maps a trade to its group key.
type KeyFunc[K comparable] func(t *models.Trade) K

// Groups is an ordered partition of trades. Keys iterate in the order of
// their first occurrence in the input.
type Groups[K comparable] struct {
	order  []K
	index  map[K]int
	groups [][]models.Trade
}

// GroupBy partitions trades by key, keeping first-seen key order and the
// input order of trades within each group.
func GroupBy[K comparable](trades []models.Trade, key KeyFunc[K]) *Groups[K] {
	g := &Groups[K]{index: make(map[K]int)}
	for i := range trades {
		k := key(&trades[i])
		idx, ok := g.index[k]
		if !ok {
			idx = len(g.order)
			g.index[k] = idx
			g.order = append(g.order, k)
			g.groups = append(g.groups, nil)
		}
		g.groups[idx] = append(g.groups[idx], trades[i])
	}
	return g
}

// Keys returns the group keys in first-seen order.
func (g *Groups[K]) Keys() []K {
	return append([]K(nil), g.order...)
}

// Get returns the trades for key, or nil.
func (g *Groups[K]) Get(key K) []models.Trade {
	idx, ok := g.index[key]
	if !ok {
		return nil
	}
	return g.groups[idx]
}

// Len returns the number of groups.
func (g *Groups[K]) Len() int {
	return len(g.order)
}

// Each calls fn for every group in key order.
func (g *Groups[K]) Each(fn func(key K, trades []models.Trade)) {
	for i, k := range g.order {
		fn(k, g.groups[i])
	}
}

// GroupSummary is the per-group result of a breakdown.
type GroupSummary struct {
	Key     string         `json:"key"`
	Metrics models.Metrics `json:"metrics"`
	Best    *models.Trade  `json:"best,omitempty"`
	Worst   *models.Trade  `json:"worst,omitempty"`
	Equity  []float64      `json:"equity"`
}

// Summarize aggregates every group independently.
func Summarize(g *Groups[string]) []GroupSummary {
	out := make([]GroupSummary, 0, g.Len())
	g.Each(func(key string, trades []models.Trade) {
		out = append(out, summarize(key, trades))
	})
	return out
}

func summarize(key string, trades []models.Trade) GroupSummary {
	return GroupSummary{
		Key:     key,
		Metrics: metrics.Aggregate(trades),
		Best:    metrics.Best(trades),
		Worst:   metrics.Worst(trades),
		Equity:  metrics.EquityCurve(trades),
	}
}

// InOrder returns summaries arranged by labels. Labels without trades get a
// zero summary; keys not listed in labels are appended after them.
func InOrder(summaries []GroupSummary, labels []string) []GroupSummary {
	byKey := make(map[string]GroupSummary, len(summaries))
	for _, s := range summaries {
		byKey[s.Key] = s
	}

	out := make([]GroupSummary, 0, len(labels))
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		seen[l] = true
		if s, ok := byKey[l]; ok {
			out = append(out, s)
			continue
		}
		out = append(out, summarize(l, nil))
	}
	for _, s := range summaries {
		if !seen[s.Key] {
			out = append(out, s)
		}
	}
	return out
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package phase

import (
	"math"

	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// Selection strategy cutoffs (R4.2-R4.4).
const (
	// consolidationHighShare of a consolidation batch comes from the high
	// tier; the rest from medium, falling back to any remaining items.
	consolidationHighShare = 0.7

	// refinementMinScore is the reliability floor for the unseen-type pick.
	refinementMinScore = 0.6

	// Optimization admits only proven items and backfills from slightly
	// below the bar when the elite pool runs short.
	eliteMinScore      = 0.8
	eliteMinImpact     = 2.0
	eliteBackfillScore = 0.7
)

// selectItems fills a batch of up to size items from the reliability-sorted
// pool using the current phase's strategy (R4.1-R4.4).
func (c *Controller) selectItems(sorted []types.LiteratureItem, size int) []types.LiteratureItem {
	switch c.current {
	case types.PhaseExploration:
		return selectDiverse(sorted, size)
	case types.PhaseConsolidation:
		return selectTiered(sorted, size)
	case types.PhaseRefinement:
		return selectUnseenTypes(sorted, size)
	case types.PhaseOptimization:
		return selectElite(sorted, size)
	}
	return take(sorted, size)
}

// selectDiverse implements the exploration strategy: up to two of the most
// reliable items per segment type, round-robin across types in pool order,
// then fill by global reliability (R4.1).
func selectDiverse(sorted []types.LiteratureItem, size int) []types.LiteratureItem {
	byType := make(map[string][]types.LiteratureItem)
	var typeOrder []string
	for _, item := range sorted {
		if _, ok := byType[item.SegmentType]; !ok {
			typeOrder = append(typeOrder, item.SegmentType)
		}
		byType[item.SegmentType] = append(byType[item.SegmentType], item)
	}

	batch := make([]types.LiteratureItem, 0, size)
	taken := make(map[string]bool)

	for pass := 0; pass < 2 && len(batch) < size; pass++ {
		for _, st := range typeOrder {
			if len(batch) >= size {
				break
			}
			if pass < len(byType[st]) {
				item := byType[st][pass]
				batch = append(batch, item)
				taken[item.ID] = true
			}
		}
	}

	return fillByReliability(batch, sorted, size, taken)
}

// selectTiered implements the consolidation strategy: roughly 70% from the
// high tier and 30% from the medium tier, falling back to any remaining
// items when either tier runs short (R4.2).
func selectTiered(sorted []types.LiteratureItem, size int) []types.LiteratureItem {
	var high, medium []types.LiteratureItem
	for _, item := range sorted {
		switch item.ReliabilityTier {
		case types.TierHigh:
			high = append(high, item)
		case types.TierMedium:
			medium = append(medium, item)
		}
	}

	highWant := int(math.Round(float64(size) * consolidationHighShare))
	mediumWant := size - highWant

	batch := make([]types.LiteratureItem, 0, size)
	taken := make(map[string]bool)
	for _, item := range take(high, highWant) {
		batch = append(batch, item)
		taken[item.ID] = true
	}
	for _, item := range take(medium, mediumWant) {
		batch = append(batch, item)
		taken[item.ID] = true
	}

	return fillByReliability(batch, sorted, size, taken)
}

// selectUnseenTypes implements the refinement strategy: one reliable item
// per segment type not yet in the batch, then fill by reliability (R4.3).
func selectUnseenTypes(sorted []types.LiteratureItem, size int) []types.LiteratureItem {
	batch := make([]types.LiteratureItem, 0, size)
	taken := make(map[string]bool)
	seenTypes := make(map[string]bool)

	for _, item := range sorted {
		if len(batch) >= size {
			break
		}
		if !seenTypes[item.SegmentType] && item.ReliabilityScore >= refinementMinScore {
			batch = append(batch, item)
			taken[item.ID] = true
			seenTypes[item.SegmentType] = true
		}
	}

	return fillByReliability(batch, sorted, size, taken)
}

// selectElite implements the optimization strategy: only items clearing the
// elite score and impact bars, backfilled from the slightly lower score band
// when the elite pool is short (R4.4). Unlike the other strategies this one
// may return fewer than size items; optimization never pads with weak
// sources.
func selectElite(sorted []types.LiteratureItem, size int) []types.LiteratureItem {
	batch := make([]types.LiteratureItem, 0, size)
	taken := make(map[string]bool)

	for _, item := range sorted {
		if len(batch) >= size {
			break
		}
		if item.ReliabilityScore >= eliteMinScore && item.ImpactFactor >= eliteMinImpact {
			batch = append(batch, item)
			taken[item.ID] = true
		}
	}

	for _, item := range sorted {
		if len(batch) >= size {
			break
		}
		if !taken[item.ID] && item.ReliabilityScore >= eliteBackfillScore {
			batch = append(batch, item)
			taken[item.ID] = true
		}
	}

	return batch
}

// take returns the first n items, or all of them when fewer.
func take(items []types.LiteratureItem, n int) []types.LiteratureItem {
	if n > len(items) {
		n = len(items)
	}
	if n <= 0 {
		return nil
	}
	return items[:n]
}

// fillByReliability tops a batch up to size from the sorted pool, skipping
// items already taken.
func fillByReliability(batch, sorted []types.LiteratureItem, size int, taken map[string]bool) []types.LiteratureItem {
	for _, item := range sorted {
		if len(batch) >= size {
			break
		}
		if !taken[item.ID] {
			batch = append(batch, item)
			taken[item.ID] = true
		}
	}
	return batch
}

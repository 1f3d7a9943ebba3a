// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reliability computes trust scores for literature items.
// Implements: prd001-reliability (R1-R3);
//
//	docs/ARCHITECTURE § Reliability Scoring.
package reliability

import (
	"math"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// Component weights for the combined reliability score (R2.1).
const (
	weightImpact   = 0.4
	weightCitation = 0.3
	weightSource   = 0.2
	weightRecency  = 0.1
)

// Tier cutoffs on the combined score (R1.3).
const (
	tierHighCutoff   = 0.8
	tierMediumCutoff = 0.5
)

// topTierVenues is the curated list of venues that score 1.0 outright.
// Matching is case-insensitive on the full venue name (R2.3).
var topTierVenues = map[string]bool{
	"nature":                                    true,
	"science":                                   true,
	"cell":                                      true,
	"nature materials":                          true,
	"nature energy":                             true,
	"nature chemistry":                          true,
	"nature nanotechnology":                     true,
	"science advances":                          true,
	"joule":                                     true,
	"advanced materials":                        true,
	"journal of the american chemical society":  true,
	"angewandte chemie international edition":   true,
	"physical review letters":                   true,
	"proceedings of the national academy of sciences": true,
}

// qualityKeywords marks venues from reputable publisher families that score
// 0.7 when the venue is not on the top-tier list (R2.3).
var qualityKeywords = []string{
	"nature",
	"science",
	"acs",
	"advanced",
	"angewandte",
	"energy",
	"materials",
	"chemistry of",
}

// Scorer computes reliability scores and tiers for literature items.
// Scoring is a pure function of the item's metadata and AsOfYear, so a
// Scorer may be shared freely across goroutines.
type Scorer struct {
	// AsOfYear anchors recency scoring. NewScorer sets it to the current
	// year; tests pin it for determinism.
	AsOfYear int
}

// NewScorer returns a Scorer anchored at the current year.
func NewScorer() *Scorer {
	return &Scorer{AsOfYear: time.Now().Year()}
}

// Score computes an item's reliability score in [0,1] and its tier (R1.2,
// R1.3). Missing metadata falls back to the per-component defaults; there
// is no failure mode.
func (s *Scorer) Score(item types.LiteratureItem) (float64, types.ReliabilityTier) {
	score := weightImpact*impactScore(item.ImpactFactor) +
		weightCitation*citationScore(item.CitationCount) +
		weightSource*sourceScore(item.SourceName) +
		weightRecency*s.recencyScore(item.PublicationYear)

	score = math.Max(0.0, math.Min(1.0, score))

	switch {
	case score >= tierHighCutoff:
		return score, types.TierHigh
	case score >= tierMediumCutoff:
		return score, types.TierMedium
	default:
		return score, types.TierLow
	}
}

// Annotate scores a corpus concurrently and returns a new slice with the
// reliability fields populated (R3.1). The input slice is not modified.
// Scoring is read-only per item, so workers share nothing; Annotate joins
// all workers before returning (R3.2).
func (s *Scorer) Annotate(items []types.LiteratureItem) []types.LiteratureItem {
	annotated := make([]types.LiteratureItem, len(items))
	copy(annotated, items)

	workers := runtime.GOMAXPROCS(0)
	if workers > len(annotated) {
		workers = len(annotated)
	}
	if workers <= 1 {
		for i := range annotated {
			annotated[i].ReliabilityScore, annotated[i].ReliabilityTier = s.Score(annotated[i])
		}
		return annotated
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				annotated[i].ReliabilityScore, annotated[i].ReliabilityTier = s.Score(annotated[i])
			}
		}()
	}
	for i := range annotated {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return annotated
}

// impactScore maps a venue impact factor onto [0.1, 1.0] with a
// piecewise-linear curve (R2.2): breakpoints at 10, 5, 2, and 0.5.
func impactScore(impact float64) float64 {
	switch {
	case impact >= 10:
		return 1.0
	case impact >= 5:
		return 0.8 + 0.2*(impact-5)/5
	case impact >= 2:
		return 0.5 + 0.3*(impact-2)/3
	case impact >= 0.5:
		return 0.2 + 0.3*(impact-0.5)/1.5
	case impact > 0:
		return 0.1 + 0.1*impact/0.5
	default:
		return 0.1
	}
}

// citationScore maps a citation count onto [0.1, 1.0] with breakpoints at
// 1000, 100, and 10 (R2.2).
func citationScore(citations int) float64 {
	c := float64(citations)
	switch {
	case c >= 1000:
		return 1.0
	case c >= 100:
		return 0.8 + 0.2*(c-100)/900
	case c >= 10:
		return 0.5 + 0.3*(c-10)/90
	case c > 0:
		return 0.1 + 0.4*c/10
	default:
		return 0.1
	}
}

// sourceScore rates the publishing venue categorically (R2.3): curated
// top-tier venue 1.0, quality-keyword match 0.7, any other named venue 0.5,
// unknown venue 0.3.
func sourceScore(source string) float64 {
	name := strings.ToLower(strings.TrimSpace(source))
	if name == "" {
		return 0.3
	}
	if topTierVenues[name] {
		return 1.0
	}
	for _, kw := range qualityKeywords {
		if strings.Contains(name, kw) {
			return 0.7
		}
	}
	return 0.5
}

// recencyScore rates publication age against AsOfYear (R2.4). A missing
// year scores the neutral 0.5; beyond ten years the score decays by 0.02
// per year down to a floor of 0.1.
func (s *Scorer) recencyScore(year int) float64 {
	if year <= 0 {
		return 0.5
	}
	yearsAgo := s.AsOfYear - year
	switch {
	case yearsAgo <= 0:
		return 1.0
	case yearsAgo <= 2:
		return 0.9
	case yearsAgo <= 5:
		return 0.7
	case yearsAgo <= 10:
		return 0.5
	default:
		return math.Max(0.1, 0.5-0.02*float64(yearsAgo-10))
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package deviation decides whether a candidate item diverges too far from
// the accumulated knowledge to be worth synthesizing.
// Implements: prd002-deviation (R1-R3);
//
//	docs/ARCHITECTURE § Deviation Filtering.
package deviation

import (
	"fmt"

	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// Cutoffs for the supplementary skip rules (R2.2). These are independent of
// the per-tier thresholds: a weak source diverging even moderately is
// skipped, as is any low-tier item beyond moderate divergence.
const (
	weakImpactCutoff       = 0.5
	weakImpactDeviation    = 0.5
	lowTierDeviationCutoff = 0.6
)

// Policy applies the configured skip rules to one item at a time. The
// deviation report comes from the external oracle; the policy computes no
// semantic similarity itself (R1.2).
type Policy struct {
	cfg types.DeviationConfig
}

// NewPolicy returns a Policy with zero-valued config fields replaced by the
// house defaults (min reliability 0.6; tier thresholds 0.8/0.6/0.4).
func NewPolicy(cfg types.DeviationConfig) *Policy {
	if cfg.MinReliability <= 0 {
		cfg.MinReliability = 0.6
	}
	if cfg.HighTierThreshold <= 0 {
		cfg.HighTierThreshold = 0.8
	}
	if cfg.MediumTierThreshold <= 0 {
		cfg.MediumTierThreshold = 0.6
	}
	if cfg.LowTierThreshold <= 0 {
		cfg.LowTierThreshold = 0.4
	}
	return &Policy{cfg: cfg}
}

// ShouldSkip evaluates every skip rule against the item and its deviation
// report, returning whether to skip and the full list of reasons that fired
// (R2.1-R2.3). Rules accumulate: an item can be rejected for several
// reasons at once. The first round of a run bypasses this policy entirely;
// that is the orchestrator's responsibility, not checked here.
func (p *Policy) ShouldSkip(item types.LiteratureItem, report types.DeviationReport) (bool, []string) {
	var reasons []string

	// Tier rule: unreliable item diverging beyond its tier's tolerance.
	threshold := p.tierThreshold(item.ReliabilityTier)
	if item.ReliabilityScore < p.cfg.MinReliability && report.Overall > threshold {
		reasons = append(reasons, fmt.Sprintf(
			"reliability %.2f below %.2f and overall deviation %.2f exceeds %s-tier threshold %.2f",
			item.ReliabilityScore, p.cfg.MinReliability, report.Overall, item.ReliabilityTier, threshold))
	}

	// Weak-source rule: a low-impact venue diverging even moderately.
	if item.ImpactFactor < weakImpactCutoff && report.Overall > weakImpactDeviation {
		reasons = append(reasons, fmt.Sprintf(
			"impact factor %.2f below %.1f with overall deviation %.2f above %.1f",
			item.ImpactFactor, weakImpactCutoff, report.Overall, weakImpactDeviation))
	}

	// Low-tier rule: low-tier items get no slack past moderate divergence.
	if item.ReliabilityTier == types.TierLow && report.Overall > lowTierDeviationCutoff {
		reasons = append(reasons, fmt.Sprintf(
			"low-tier item with overall deviation %.2f above %.1f",
			report.Overall, lowTierDeviationCutoff))
	}

	return len(reasons) > 0, reasons
}

// tierThreshold returns the overall-deviation tolerance for a tier (R2.1).
// Unknown tiers get the low-tier tolerance.
func (p *Policy) tierThreshold(tier types.ReliabilityTier) float64 {
	switch tier {
	case types.TierHigh:
		return p.cfg.HighTierThreshold
	case types.TierMedium:
		return p.cfg.MediumTierThreshold
	default:
		return p.cfg.LowTierThreshold
	}
}

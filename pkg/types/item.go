// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the synthesis engine.
// Implements: prd001-reliability (LiteratureItem, ReliabilityTier, R1.1-R1.3);
//
//	prd003-batching (BatchPhase, PhaseConfig, BatchRequest, R2.1-R2.4);
//	prd004-convergence (BatchOutcome, RunHistory, TerminationReason);
//	prd002-deviation (DeviationReport, SkippedItem);
//	prd005-orchestration (SynthesisState, RunResult, engine configuration).
//
// See docs/ARCHITECTURE.md § Engine Interface, § Data Structures.
package types

// ReliabilityTier buckets a literature item by its computed reliability score.
// Per prd001-reliability R1.3.
type ReliabilityTier string

const (
	TierHigh   ReliabilityTier = "high"
	TierMedium ReliabilityTier = "medium"
	TierLow    ReliabilityTier = "low"
)

// LiteratureItem is one candidate document segment in the synthesis corpus.
// Identity and metadata are immutable after loading; the reliability fields
// are computed once per run by the annotation pass and never mutated
// afterward. Per prd001-reliability R1.1-R1.2.
type LiteratureItem struct {
	// ID is a stable identifier for the item within its corpus.
	ID string `json:"id" yaml:"id"`

	// Title is the source document title.
	Title string `json:"title" yaml:"title"`

	// Content is the text handed to the oracle when the item is batched.
	Content string `json:"content" yaml:"content"`

	// SourceName is the publishing venue (journal, conference, publisher).
	SourceName string `json:"source_name" yaml:"source_name"`

	// PublicationYear is the four-digit publication year. Zero means unknown.
	PublicationYear int `json:"publication_year" yaml:"publication_year"`

	// ImpactFactor is the venue impact factor. Zero or negative means absent.
	ImpactFactor float64 `json:"impact_factor" yaml:"impact_factor"`

	// CitationCount is the number of citations. Zero or negative means absent.
	CitationCount int `json:"citation_count" yaml:"citation_count"`

	// SegmentType labels the kind of content the item carries
	// (e.g. "method", "result", "review"). Used by phase selection.
	SegmentType string `json:"segment_type" yaml:"segment_type"`

	// ReliabilityScore is the computed trust score in [0,1].
	// Per prd001-reliability R1.2.
	ReliabilityScore float64 `json:"reliability_score" yaml:"reliability_score"`

	// ReliabilityTier is the bucket derived from ReliabilityScore.
	ReliabilityTier ReliabilityTier `json:"reliability_tier" yaml:"reliability_tier"`
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// DeviationReport measures how far a candidate item's content diverges from
// the accumulated knowledge, as judged by the deviation oracle. All axes are
// in [0,1]; Overall is the axis the skip policy acts on.
// Per prd002-deviation R1.1.
type DeviationReport struct {
	// Overall is the combined divergence measure.
	Overall float64 `json:"overall" yaml:"overall"`

	// Methodology measures divergence in experimental or analytical method.
	Methodology float64 `json:"methodology" yaml:"methodology"`

	// Conclusion measures divergence in stated conclusions.
	Conclusion float64 `json:"conclusion" yaml:"conclusion"`

	// Data measures divergence in reported data or measurements.
	Data float64 `json:"data" yaml:"data"`

	// Theory measures divergence in theoretical framing.
	Theory float64 `json:"theory" yaml:"theory"`
}

// SkippedItem records an item the deviation policy rejected, with every
// reason that fired. Per prd002-deviation R2.3.
type SkippedItem struct {
	// ItemID identifies the rejected item.
	ItemID string `json:"item_id" yaml:"item_id"`

	// Title is the rejected item's title, kept for reporting.
	Title string `json:"title" yaml:"title"`

	// Round is the round in which the item was rejected.
	Round int `json:"round" yaml:"round"`

	// Reasons lists every skip rule that fired, in rule order.
	Reasons []string `json:"reasons" yaml:"reasons"`
}

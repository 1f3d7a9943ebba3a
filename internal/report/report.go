// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders finished synthesis runs as markdown for review.
// Implements: prd008-reporting (R1-R3);
//
//	docs/ARCHITECTURE § Run Report.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/synthesis-engine/internal/history"
	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// Render produces the markdown report for one run (R1.1-R1.4): run metadata,
// rolling aggregates, the per-round table, phase transitions, skipped items
// with their reasons, and the accumulated knowledge.
func Render(meta history.RunMeta, result *types.RunResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Synthesis Run %s\n\n", meta.ID)
	if meta.Question != "" {
		fmt.Fprintf(&b, "- **Question:** %s\n", meta.Question)
	}
	if meta.Domain != "" {
		fmt.Fprintf(&b, "- **Domain:** %s\n", meta.Domain)
	}
	if !meta.StartedAt.IsZero() {
		fmt.Fprintf(&b, "- **Started:** %s\n", meta.StartedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "- **Rounds:** %d\n", result.Rounds)
	fmt.Fprintf(&b, "- **Termination:** %s\n", result.TerminationReason)
	fmt.Fprintf(&b, "- **Synthesis achieved:** %s\n", yesNo(result.SynthesisAchieved))
	fmt.Fprintf(&b, "- **Final phase:** %s\n", result.State.CurrentPhase)

	hist := &result.History
	fmt.Fprintf(&b, "\n## Outcome metrics\n\n")
	fmt.Fprintf(&b, "- Successful rounds: %d/%d\n", hist.SuccessCount(), hist.Total())
	fmt.Fprintf(&b, "- Average information gain: %.3f\n", hist.AvgInformationGain)
	fmt.Fprintf(&b, "- Average quality score: %.2f\n", hist.AvgQualityScore)
	fmt.Fprintf(&b, "- Average processing time: %s\n", formatDuration(hist.AvgProcessingTime))
	fmt.Fprintf(&b, "- Phase transitions: %d\n", hist.PhaseTransitionCount)

	fmt.Fprintf(&b, "\n## Rounds\n\n")
	if len(hist.Outcomes) == 0 {
		fmt.Fprintf(&b, "No rounds were executed.\n")
	} else {
		fmt.Fprintf(&b, "| Round | Batch | Phase | Items | Pool left | Gain | Quality | Time | Result |\n")
		fmt.Fprintf(&b, "|------:|-------|-------|------:|----------:|-----:|--------:|-----:|--------|\n")
		for _, o := range hist.Outcomes {
			fmt.Fprintf(&b, "| %d | %s | %s | %d | %d | %.2f | %.1f | %s | %s |\n",
				o.Round, o.BatchID, o.Phase, o.ItemCount, o.PoolRemaining,
				o.InformationGain, o.QualityScore, formatDuration(o.ProcessingTime),
				okFailed(o.Success))
		}
	}

	fmt.Fprintf(&b, "\n## Phase transitions\n\n")
	if len(hist.Transitions) == 0 {
		fmt.Fprintf(&b, "The run stayed in %s.\n", result.State.CurrentPhase)
	} else {
		for _, tr := range hist.Transitions {
			fmt.Fprintf(&b, "- round %d: %s -> %s (%s)\n", tr.Round, tr.From, tr.To, tr.Reason)
		}
	}

	fmt.Fprintf(&b, "\n## Skipped items\n\n")
	if len(result.Skipped) == 0 {
		fmt.Fprintf(&b, "No items were skipped.\n")
	} else {
		for _, sk := range result.Skipped {
			title := sk.Title
			if title == "" {
				title = sk.ItemID
			}
			fmt.Fprintf(&b, "- round %d: %s (%s): %s\n", sk.Round, title, sk.ItemID, strings.Join(sk.Reasons, "; "))
		}
	}

	fmt.Fprintf(&b, "\n## Accumulated knowledge\n\n")
	if result.State.Knowledge == "" {
		fmt.Fprintf(&b, "The run accumulated no knowledge.\n")
	} else {
		fmt.Fprintf(&b, "%s\n", result.State.Knowledge)
	}

	return b.String()
}

// WriteReport renders the run and writes it to dir/<run-id>.md, creating
// the directory as needed (R2.1). It returns the written path.
func WriteReport(dir string, meta history.RunMeta, result *types.RunResult) (string, error) {
	if meta.ID == "" {
		return "", fmt.Errorf("run ID must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}
	path := filepath.Join(dir, meta.ID+".md")
	if err := os.WriteFile(path, []byte(Render(meta, result)), 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

func formatDuration(d time.Duration) string {
	return d.Round(10 * time.Millisecond).String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func okFailed(b bool) string {
	if b {
		return "ok"
	}
	return "failed"
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/synthesis-engine/internal/reliability"
	"github.com/pdiddy/synthesis-engine/pkg/types"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Annotate a corpus with reliability scores",
	Long: `Score loads a corpus, computes the reliability score and tier for every
item, and prints the annotated items. Use it to preview how the engine will
order and select sources before running a synthesis.`,
	RunE: runScore,
}

func runScore(cmd *cobra.Command, args []string) error {
	corpusPath, _ := cmd.Flags().GetString("corpus")
	if corpusPath == "" {
		return fmt.Errorf("--corpus is required: provide a corpus YAML file or directory")
	}
	source, err := corpusSource(corpusPath)
	if err != nil {
		return err
	}
	items, err := source.Load(cmd.Context())
	if err != nil {
		return err
	}

	scorer := reliability.NewScorer()
	if year, _ := cmd.Flags().GetInt("as-of-year"); year > 0 {
		scorer.AsOfYear = year
	}
	annotated := scorer.Annotate(items)

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "table", "":
		// Table output shows selection order: most reliable first.
		sort.SliceStable(annotated, func(i, j int) bool {
			return annotated[i].ReliabilityScore > annotated[j].ReliabilityScore
		})
		printScoreTable(annotated)
	case "yaml":
		data, err := yaml.Marshal(annotated)
		if err != nil {
			return fmt.Errorf("marshaling annotated corpus: %w", err)
		}
		os.Stdout.Write(data)
	default:
		return fmt.Errorf("unsupported format %q: use table or yaml", format)
	}
	return nil
}

func printScoreTable(items []types.LiteratureItem) {
	fmt.Fprintf(os.Stdout, "%-20s  %-5s  %-6s  %-5s  %-6s  %-24s  %s\n",
		"ID", "Score", "Tier", "Year", "Impact", "Source", "Title")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))

	for _, item := range items {
		id := item.ID
		if len(id) > 20 {
			id = id[:17] + "..."
		}
		source := item.SourceName
		if len(source) > 24 {
			source = source[:21] + "..."
		}
		title := item.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-20s  %-5.2f  %-6s  %-5d  %-6.1f  %-24s  %s\n",
			id, item.ReliabilityScore, item.ReliabilityTier,
			item.PublicationYear, item.ImpactFactor, source, title)
	}

	fmt.Fprintf(os.Stdout, "\n%d items\n", len(items))
}

func init() {
	scoreCmd.Flags().String("corpus", "", "corpus YAML file or directory of corpus files (required)")
	scoreCmd.Flags().String("format", "table", "output format: table or yaml")
	scoreCmd.Flags().Int("as-of-year", 0, "anchor year for recency scoring (default: current year)")

	rootCmd.AddCommand(scoreCmd)
}

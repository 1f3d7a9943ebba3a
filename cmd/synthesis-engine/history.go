// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/synthesis-engine/internal/history"
	"github.com/pdiddy/synthesis-engine/internal/report"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the archive of finished runs (list, show, export)",
	Long: `History manages the SQLite archive of finished synthesis runs. Use
subcommands to list archived runs, render one run in full, or export the
whole archive.`,
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived runs, newest first",
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openArchive(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	summaries, err := store.ListRuns(cmd.Context())
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No archived runs.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-24s  %-19s  %-6s  %-12s  %-8s  %-13s  %s\n",
		"Run", "Started", "Rounds", "Termination", "Achieved", "Final phase", "Avg gain")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 104))

	for _, s := range summaries {
		id := s.ID
		if len(id) > 24 {
			id = id[:21] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-24s  %-19s  %-6d  %-12s  %-8v  %-13s  %.3f\n",
			id, s.StartedAt.UTC().Format("2006-01-02 15:04:05"), s.Rounds,
			s.TerminationReason, s.SynthesisAchieved, s.FinalPhase, s.AvgInformationGain)
	}

	fmt.Fprintf(os.Stdout, "\n%d runs\n", len(summaries))
	return nil
}

// --- show subcommand ---

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Render one archived run in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openArchive(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	meta, result, err := store.GetRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Print(report.Render(meta, result))
	return nil
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the whole archive to YAML or JSON",
	RunE:  runHistoryExport,
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")

	store, err := openArchive(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	switch format {
	case "yaml", "":
		if out == "" {
			out = "synthesis-runs.yaml"
		}
		if err := store.ExportYAML(cmd.Context(), out); err != nil {
			return err
		}
	case "json":
		if out == "" {
			out = "synthesis-runs.json"
		}
		if err := store.ExportJSON(cmd.Context(), out); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	fmt.Printf("Exported archive to %s\n", out)
	return nil
}

// --- shared helpers ---

func openArchive(cmd *cobra.Command) (*history.Store, error) {
	path, _ := cmd.Flags().GetString("archive-path")
	if path == "" {
		cfg, err := loadSynthesisConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.Archive.Path
	}
	return history.Open(path)
}

func init() {
	// Shared flag on the parent command, inherited by subcommands.
	historyCmd.PersistentFlags().String("archive-path", "", "archive database path (default: from config)")

	// Export flags.
	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	historyExportCmd.Flags().String("out", "", "output file (default: synthesis-runs.<format>)")

	// Wire subcommands.
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)

	rootCmd.AddCommand(historyCmd)
}

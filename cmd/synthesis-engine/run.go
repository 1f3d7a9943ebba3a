// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/synthesis-engine/internal/corpus"
	"github.com/pdiddy/synthesis-engine/internal/engine"
	"github.com/pdiddy/synthesis-engine/internal/history"
	"github.com/pdiddy/synthesis-engine/internal/logging"
	"github.com/pdiddy/synthesis-engine/internal/report"
	"github.com/pdiddy/synthesis-engine/internal/secrets"
	"github.com/pdiddy/synthesis-engine/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one progressive synthesis over a corpus",
	Long: `Run loads a literature corpus, annotates reliability, and feeds batches to
the synthesis oracle round by round until the run converges, exhausts the
corpus, or hits the iteration ceiling.

The oracle comes from --oracle-script (deterministic scripted responses for
demos and dry runs) or --oracle-endpoint (a live HTTP oracle service); one of
the two is required. A finished run prints a termination summary; --archive
stores it in the run archive and --report renders a markdown report.`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadSynthesisConfig()
	if err != nil {
		return err
	}

	debug, _ := cmd.Flags().GetBool("debug")
	log := logging.New(cfg.Logging.Path, debug || cfg.Logging.Debug)
	defer log.Sync()

	corpusPath, _ := cmd.Flags().GetString("corpus")
	if corpusPath == "" {
		return fmt.Errorf("--corpus is required: provide a corpus YAML file or directory")
	}
	source, err := corpusSource(corpusPath)
	if err != nil {
		return err
	}

	// A single corpus file may carry the run context in its header.
	question, _ := cmd.Flags().GetString("question")
	domain, _ := cmd.Flags().GetString("domain")
	if question == "" || domain == "" {
		if cf, err := corpus.ReadCorpusFile(corpusPath); err == nil {
			if question == "" {
				question = cf.Question
			}
			if domain == "" {
				domain = cf.Domain
			}
		}
	}

	synth, dev, err := selectOracle(cmd, cfg)
	if err != nil {
		return err
	}

	progress := func(u types.ProgressUpdate) {
		fmt.Printf("[%5.1f%%] %s  gain=%.3f quality=%.1f pool=%.0f\n",
			u.PercentComplete, u.Step,
			u.Metrics["information_gain"], u.Metrics["quality_score"], u.Metrics["pool_remaining"])
	}

	eng, err := engine.New(cfg.Engine, synth, dev,
		engine.WithLogger(log),
		engine.WithProgress(progress))
	if err != nil {
		return err
	}

	runID, _ := cmd.Flags().GetString("run-id")
	if runID == "" {
		runID = "run-" + time.Now().UTC().Format("20060102-150405")
	}
	meta := history.RunMeta{
		ID:        runID,
		Question:  question,
		Domain:    domain,
		StartedAt: time.Now().UTC(),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, runErr := eng.Run(ctx, source, types.RunContext{Question: question, Domain: domain})
	if result == nil {
		return runErr
	}

	printRunSummary(result)

	// Archiving and reporting still happen for interrupted runs, so the
	// partial history is not lost. They must not use the cancelled context.
	if archive, _ := cmd.Flags().GetBool("archive"); archive {
		if err := archiveRun(context.Background(), cfg, meta, result); err != nil {
			return err
		}
		fmt.Printf("Archived run %s to %s\n", meta.ID, cfg.Archive.Path)
	}
	if wantReport, _ := cmd.Flags().GetBool("report"); wantReport {
		path, err := report.WriteReport(cfg.Report.OutputDir, meta, result)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote report %s\n", path)
	}

	if runErr != nil {
		return fmt.Errorf("run interrupted: %w", runErr)
	}
	return nil
}

// selectOracle builds the synthesis and deviation oracle from the run flags:
// a scripted oracle when --oracle-script is set, otherwise the HTTP adapter
// against --oracle-endpoint (or the configured endpoint).
func selectOracle(cmd *cobra.Command, cfg types.SynthesisConfig) (engine.SynthesisOracle, engine.DeviationOracle, error) {
	scriptPath, _ := cmd.Flags().GetString("oracle-script")
	endpoint, _ := cmd.Flags().GetString("oracle-endpoint")
	if endpoint == "" {
		endpoint = cfg.Engine.Oracle.Endpoint
	}

	switch {
	case scriptPath != "":
		script, err := engine.LoadScript(scriptPath)
		if err != nil {
			return nil, nil, err
		}
		return script, script, nil
	case endpoint != "":
		apiKey, _ := cmd.Flags().GetString("api-key")
		oracle := &engine.HTTPOracle{
			Endpoint:   endpoint,
			APIKey:     secretDefault(secrets.OracleAPIKey, apiKey),
			UserAgent:  cfg.Engine.Oracle.UserAgent,
			MaxRetries: cfg.Engine.Oracle.MaxRetries,
		}
		return oracle, oracle, nil
	}
	return nil, nil, fmt.Errorf("an oracle is required: provide --oracle-script or --oracle-endpoint")
}

// corpusSource builds a CorpusSource for path, which may be one corpus YAML
// file or a directory of them.
func corpusSource(path string) (engine.CorpusSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("corpus path: %w", err)
	}
	if info.IsDir() {
		return corpus.Dir{Path: path}, nil
	}
	return corpus.File{Path: path}, nil
}

func archiveRun(ctx context.Context, cfg types.SynthesisConfig, meta history.RunMeta, result *types.RunResult) error {
	store, err := history.Open(cfg.Archive.Path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.SaveRun(ctx, meta, result)
}

func printRunSummary(result *types.RunResult) {
	reason := string(result.TerminationReason)
	if reason == "" {
		reason = "interrupted"
	}
	hist := &result.History

	fmt.Println()
	fmt.Printf("Rounds:               %d\n", result.Rounds)
	fmt.Printf("Termination:          %s\n", reason)
	fmt.Printf("Synthesis achieved:   %v\n", result.SynthesisAchieved)
	fmt.Printf("Final phase:          %s\n", result.State.CurrentPhase)
	fmt.Printf("Successful rounds:    %d/%d\n", hist.SuccessCount(), hist.Total())
	fmt.Printf("Avg information gain: %.3f\n", hist.AvgInformationGain)
	fmt.Printf("Avg quality score:    %.2f\n", hist.AvgQualityScore)
	fmt.Printf("Phase transitions:    %d\n", hist.PhaseTransitionCount)
	if len(result.Skipped) > 0 {
		fmt.Printf("Skipped items:        %d\n", len(result.Skipped))
	}
}

func init() {
	runCmd.Flags().String("corpus", "", "corpus YAML file or directory of corpus files (required)")
	runCmd.Flags().String("question", "", "research question (default: corpus file header)")
	runCmd.Flags().String("domain", "", "subject domain (default: corpus file header)")
	runCmd.Flags().String("oracle-script", "", "YAML script of oracle responses for a deterministic run")
	runCmd.Flags().String("oracle-endpoint", "", "HTTP oracle service URL")
	runCmd.Flags().String("api-key", "", "oracle API key (default: .secrets/oracle-api-key)")
	runCmd.Flags().String("run-id", "", "archive identifier for the run (default: run-<timestamp>)")
	runCmd.Flags().Bool("archive", false, "store the finished run in the archive")
	runCmd.Flags().Bool("report", false, "write a markdown run report")
	runCmd.Flags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(runCmd)
}

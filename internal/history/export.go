// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// ExportRun holds one archived run with its metadata for export (R3.1).
type ExportRun struct {
	ID        string          `json:"id" yaml:"id"`
	Question  string          `json:"question,omitempty" yaml:"question,omitempty"`
	Domain    string          `json:"domain,omitempty" yaml:"domain,omitempty"`
	StartedAt string          `json:"started_at" yaml:"started_at"`
	Result    types.RunResult `json:"result" yaml:"result"`
}

// ExportYAML writes every archived run to path as YAML (R3.2).
func (s *Store) ExportYAML(ctx context.Context, path string) error {
	runs, err := s.exportRuns(ctx)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(runs)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ExportJSON writes every archived run to path as indented JSON (R3.3).
func (s *Store) ExportJSON(ctx context.Context, path string) error {
	runs, err := s.exportRuns(ctx)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Store) exportRuns(ctx context.Context) ([]ExportRun, error) {
	summaries, err := s.ListRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing runs for export: %w", err)
	}

	runs := make([]ExportRun, 0, len(summaries))
	for _, summary := range summaries {
		meta, result, err := s.GetRun(ctx, summary.ID)
		if err != nil {
			return nil, fmt.Errorf("loading run %s for export: %w", summary.ID, err)
		}
		runs = append(runs, ExportRun{
			ID:        meta.ID,
			Question:  meta.Question,
			Domain:    meta.Domain,
			StartedAt: meta.StartedAt.UTC().Format(time.RFC3339),
			Result:    *result,
		})
	}
	return runs, nil
}

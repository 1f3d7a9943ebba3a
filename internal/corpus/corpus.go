// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus loads literature corpora from YAML files on disk.
// A corpus file carries an optional research-question header and an
// items list; a corpus directory merges every YAML file it contains.
// Implements: prd006-corpus R1.1-R1.4.
//
// See docs/ARCHITECTURE.md § Corpus Adapter.
package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// CorpusFile is the on-disk representation of a literature corpus.
// The question and domain header is optional; when present, the run
// command uses it as the default run context (R1.1).
type CorpusFile struct {
	Question string                 `yaml:"question,omitempty"`
	Domain   string                 `yaml:"domain,omitempty"`
	Items    []types.LiteratureItem `yaml:"items"`
}

// ReadCorpusFile loads a single corpus file and validates its items (R1.2).
func ReadCorpusFile(path string) (*CorpusFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus file: %w", err)
	}
	var cf CorpusFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parsing corpus file %s: %w", path, err)
	}
	if len(cf.Items) == 0 {
		return nil, fmt.Errorf("corpus file %s contains no items", path)
	}
	if err := validateItems(cf.Items, path); err != nil {
		return nil, err
	}
	return &cf, nil
}

// File is a CorpusSource backed by one YAML corpus file.
type File struct {
	Path string
}

// Load reads and validates the corpus file.
func (f File) Load(ctx context.Context) ([]types.LiteratureItem, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	cf, err := ReadCorpusFile(f.Path)
	if err != nil {
		return nil, err
	}
	return cf.Items, nil
}

// Dir is a CorpusSource that merges every corpus file in a directory.
// Files are read in lexical order, so the merged item order is stable
// across runs (R1.3).
type Dir struct {
	Path string
}

// Load reads every .yaml/.yml file under the directory and merges their
// items. Item IDs must be unique across the whole directory (R1.4).
func (d Dir) Load(ctx context.Context) ([]types.LiteratureItem, error) {
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus directory %s: %w", d.Path, err)
	}

	var items []types.LiteratureItem
	seen := make(map[string]string)

	for _, entry := range entries {
		if entry.IsDir() || !isCorpusFile(entry.Name()) {
			continue
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		path := filepath.Join(d.Path, entry.Name())
		cf, err := ReadCorpusFile(path)
		if err != nil {
			return nil, err
		}
		for _, item := range cf.Items {
			if prev, ok := seen[item.ID]; ok {
				return nil, fmt.Errorf("duplicate item ID %q in %s (already defined in %s)", item.ID, path, prev)
			}
			seen[item.ID] = path
		}
		items = append(items, cf.Items...)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no corpus files in %s", d.Path)
	}
	return items, nil
}

func isCorpusFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

func validateItems(items []types.LiteratureItem, path string) error {
	seen := make(map[string]int)
	for i, item := range items {
		if strings.TrimSpace(item.ID) == "" {
			return fmt.Errorf("corpus file %s: item %d has an empty ID", path, i)
		}
		if prev, ok := seen[item.ID]; ok {
			return fmt.Errorf("corpus file %s: duplicate item ID %q (items %d and %d)", path, item.ID, prev, i)
		}
		seen[item.ID] = i
	}
	return nil
}

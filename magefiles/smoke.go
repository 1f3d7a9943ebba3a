package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

const demoDir = "output/demo"

// demoCorpus is a small mixed-tier corpus for exercising the full pipeline.
const demoCorpus = `question: What governs long-term operational stability of perovskite solar cells?
domain: materials science
items:
  - id: demo-01
    title: Encapsulation strategies for perovskite photovoltaics
    content: Atomic-layer-deposited barriers extend device lifetime under damp heat.
    source_name: Nature Energy
    publication_year: 2024
    impact_factor: 49.7
    citation_count: 310
    segment_type: method
  - id: demo-02
    title: Ion migration pathways in halide perovskites
    content: Activation energies for iodide migration measured across grain boundaries.
    source_name: Joule
    publication_year: 2023
    impact_factor: 38.6
    citation_count: 420
    segment_type: result
  - id: demo-03
    title: A review of degradation mechanisms in perovskite solar cells
    content: Moisture, oxygen, heat, and bias stress each drive distinct decay modes.
    source_name: Chemical Reviews
    publication_year: 2022
    impact_factor: 62.1
    citation_count: 1150
    segment_type: review
  - id: demo-04
    title: Additive engineering for defect passivation
    content: Alkali halide additives suppress trap-assisted recombination.
    source_name: Advanced Materials
    publication_year: 2024
    impact_factor: 27.4
    citation_count: 95
    segment_type: method
  - id: demo-05
    title: Outdoor field trials of perovskite minimodules
    content: Twelve-month outdoor exposure with hourly IV tracking in three climates.
    source_name: Solar RRL
    publication_year: 2023
    impact_factor: 7.9
    citation_count: 48
    segment_type: result
  - id: demo-06
    title: Thermal cycling endurance of inverted cells
    content: Devices retain 92 percent of initial efficiency after 200 cycles.
    source_name: ACS Energy Letters
    publication_year: 2025
    impact_factor: 22.0
    citation_count: 12
    segment_type: result
  - id: demo-07
    title: Workshop notes on accelerated aging protocols
    content: Draft consensus on ISOS-L-3 variants for perovskite stability reporting.
    source_name: preprint
    publication_year: 2021
    segment_type: review
  - id: demo-08
    title: Interfacial buffer layers and electrode corrosion
    content: Metal electrode corrosion halted by thin SnO2 buffer layers.
    source_name: Energy and Environmental Science
    publication_year: 2024
    impact_factor: 32.5
    citation_count: 201
    segment_type: method
`

// demoScript drives the run with declining gains so it terminates on its own.
const demoScript = `responses:
  - knowledge: Encapsulation and interface engineering dominate early stability gains.
    information_gain: 0.62
    quality_score: 8.1
    success: true
  - knowledge: Ion migration emerges as the unifying bulk degradation mechanism.
    information_gain: 0.34
    quality_score: 7.8
    success: true
  - knowledge: Field data corroborates accelerated aging rankings.
    information_gain: 0.12
    quality_score: 7.5
    success: true
  - knowledge: Remaining sources restate known mechanisms.
    information_gain: 0.06
    quality_score: 7.3
    success: true
  - knowledge: No further novel findings.
    information_gain: 0.04
    quality_score: 7.2
    success: true
default_deviation:
  overall: 0.2
  methodology: 0.2
  conclusion: 0.1
  data: 0.2
  theory: 0.1
`

// Smoke builds the binary and drives a scripted end-to-end run, archiving the
// result and writing a report under output/. Verifies the whole pipeline
// without a live oracle service.
func Smoke() error {
	mg.Deps(Build)

	if err := os.MkdirAll(demoDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", demoDir, err)
	}
	corpusPath := filepath.Join(demoDir, "corpus.yaml")
	scriptPath := filepath.Join(demoDir, "oracle-script.yaml")
	if err := os.WriteFile(corpusPath, []byte(demoCorpus), 0o644); err != nil {
		return fmt.Errorf("writing demo corpus: %w", err)
	}
	if err := os.WriteFile(scriptPath, []byte(demoScript), 0o644); err != nil {
		return fmt.Errorf("writing demo oracle script: %w", err)
	}

	cmd := exec.Command(filepath.Join(binDir, binName), "run",
		"--corpus", corpusPath,
		"--oracle-script", scriptPath,
		"--archive", "--report")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("smoke run: %w", err)
	}
	fmt.Println("Smoke run complete.")
	return nil
}

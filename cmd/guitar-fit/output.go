package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cwbudde/algo-guitar/analysis"
	"github.com/cwbudde/algo-guitar/internal/fitcommon"
	"github.com/cwbudde/algo-guitar/preset"
)

type runReport struct {
	ReferencePath   string               `json:"reference_path"`
	PresetPath      string               `json:"preset_path"`
	OutputPreset    string               `json:"output_preset"`
	SampleRate      int                  `json:"sample_rate"`
	Note            int                  `json:"note"`
	DurationSec     float64              `json:"elapsed_seconds"`
	Evaluations     int                  `json:"evaluations"`
	MayflyVariant   string               `json:"mayfly_variant"`
	BestScore       float64              `json:"best_score"`
	BestSimilarity  float64              `json:"best_similarity"`
	BestMetrics     analysis.ToneMetrics `json:"best_metrics"`
	BestKnobs       map[string]float64   `json:"best_knobs"`
	CheckpointCount int                  `json:"checkpoint_count"`
}

func reportPathFor(outputPreset, reportPath string) string {
	if reportPath != "" {
		return reportPath
	}
	return outputPreset + ".report.json"
}

func writeOutputs(cfg *optimizationConfig, elapsed float64, evals int, best candidate, bestM evalResult, checkpoints int) error {
	p, _, _ := applyCandidate(cfg.baseParams, cfg.defs, best)
	p.CabinetIRWavPath = presetIRPath(cfg.outputPreset, p.CabinetIRWavPath)
	if err := preset.SaveJSON(cfg.outputPreset, p); err != nil {
		return err
	}

	knobs := make(map[string]float64, len(cfg.defs))
	for i, d := range cfg.defs {
		knobs[d.Name] = best.Vals[i]
	}
	rep := runReport{
		ReferencePath:   cfg.referencePath,
		PresetPath:      cfg.presetPath,
		OutputPreset:    cfg.outputPreset,
		SampleRate:      cfg.sampleRate,
		Note:            cfg.note,
		DurationSec:     elapsed,
		Evaluations:     evals,
		MayflyVariant:   cfg.mayflyVariant,
		BestScore:       bestM.Objective,
		BestSimilarity:  bestM.Metrics.Similarity,
		BestMetrics:     bestM.ToneMetrics,
		BestKnobs:       knobs,
		CheckpointCount: checkpoints,
	}
	return writeJSON(reportPathFor(cfg.outputPreset, cfg.reportPath), rep)
}

func writeBestCandidateSnapshot(cfg *optimizationConfig, best candidate) error {
	p, velocity, releaseAfter := applyCandidate(cfg.baseParams, cfg.defs, best)
	samples, err := fitcommon.RenderNote(p, cfg.sampleRate, cfg.note, velocity, releaseAfter, cfg.render)
	if err != nil {
		return err
	}
	return fitcommon.WriteMonoWAV(cfg.writeBestCandidate, samples, cfg.sampleRate)
}

// presetIRPath rewrites an IR path relative to the preset's directory so the
// fitted preset stays loadable from anywhere.
func presetIRPath(presetPath string, irPath string) string {
	if irPath == "" {
		return ""
	}
	presetDirAbs, err := filepath.Abs(filepath.Dir(presetPath))
	if err != nil {
		return irPath
	}
	irAbs := irPath
	if !filepath.IsAbs(irAbs) {
		irAbs, err = filepath.Abs(irAbs)
		if err != nil {
			return irPath
		}
	}
	rel, err := filepath.Rel(presetDirAbs, irAbs)
	if err != nil {
		return irPath
	}
	return filepath.ToSlash(rel)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/cwbudde/algo-guitar/guitar"
	"github.com/cwbudde/algo-guitar/internal/fitcommon"
	"github.com/cwbudde/algo-guitar/preset"
)

func main() {
	referencePath := flag.String("reference", "reference/e2.wav", "Reference WAV path")
	presetPath := flag.String("preset", "", "Base preset JSON path (default: built-in params)")
	outputPreset := flag.String("output-preset", "assets/presets/fitted-e2.json", "Path to write best fitted preset JSON")
	reportPath := flag.String("report", "", "Optional report JSON path (default: <output-preset>.report.json)")
	note := flag.Int("note", 40, "MIDI note to fit")
	sampleRate := flag.Int("sample-rate", 48000, "Render/analysis sample rate")
	seed := flag.Int64("seed", 1, "Random seed")
	timeBudget := flag.Float64("time-budget", 120.0, "Optimization time budget in seconds")
	maxEvals := flag.Int("max-evals", 10000, "Maximum objective evaluations")
	reportEvery := flag.Int("report-every", 20, "Print progress every N evaluations")
	checkpointEvery := flag.Int("checkpoint-every", 1, "Write checkpoint every N best-score improvements")
	decayDBFS := flag.Float64("decay-dbfs", -90.0, "Auto-stop threshold in dBFS")
	decayHoldBlocks := flag.Int("decay-hold-blocks", 6, "Consecutive below-threshold blocks for stop")
	minDuration := flag.Float64("min-duration", 1.0, "Minimum render duration in seconds")
	maxDuration := flag.Float64("max-duration", 12.0, "Maximum render duration in seconds")
	toneWeight := flag.Float64("tone-weight", 0.25, "Weight of the relative partial-level error in the objective")
	partials := flag.Int("partials", 12, "Number of partials compared by the tone term")
	writeBestCandidate := flag.String("write-best-candidate", "", "Optional WAV path to write best candidate render")
	resume := flag.Bool("resume", true, "Resume from previous best_knobs report when available")
	resumeReport := flag.String("resume-report", "", "Optional report JSON path to resume from (default: current report path)")
	workersRaw := flag.String("workers", "auto", "Parallel Mayfly rounds: integer >= 1 or 'auto'")

	mayflyVariant := flag.String("mayfly-variant", "desma", "Mayfly variant: ma|desma|olce|eobbma|gsasma|mpma|aoblmoa")
	mayflyPop := flag.Int("mayfly-pop", 10, "Male and female population size per Mayfly run")
	mayflyRoundEvals := flag.Int("mayfly-round-evals", 240, "Target eval budget per Mayfly round")
	flag.Parse()

	if *maxEvals < 1 {
		die("max-evals must be >= 1")
	}
	if *timeBudget <= 0 {
		die("time-budget must be > 0")
	}
	workers, err := fitcommon.ParseWorkers(*workersRaw)
	if err != nil {
		die("invalid -workers: %v", err)
	}
	variant := strings.ToLower(strings.TrimSpace(*mayflyVariant))
	if _, err := newMayflyConfig(variant, 2, 1, 1); err != nil {
		die("invalid mayfly variant: %v", err)
	}
	*reportEvery = max(*reportEvery, 1)
	*checkpointEvery = max(*checkpointEvery, 1)
	*mayflyPop = max(*mayflyPop, 2)
	*mayflyRoundEvals = max(*mayflyRoundEvals, *mayflyPop*2)

	baseParams := guitar.NewDefaultParams()
	if *presetPath != "" {
		baseParams, err = preset.LoadJSON(*presetPath)
		if err != nil {
			die("failed to load preset: %v", err)
		}
	}

	ref, err := fitcommon.ReadReference(*referencePath, *sampleRate)
	if err != nil {
		die("failed to read reference: %v", err)
	}

	defs, initCand := initCandidate(baseParams)
	if *resume {
		resumePath := *resumeReport
		if resumePath == "" {
			resumePath = reportPathFor(*outputPreset, *reportPath)
		}
		if resumed, ok, err := loadCandidateFromReport(resumePath, defs, initCand); err != nil {
			fmt.Fprintf(os.Stderr, "resume skipped (%s): %v\n", resumePath, err)
		} else if ok {
			initCand = resumed
			fmt.Printf("Resumed candidate from %s\n", resumePath)
		}
	}

	cfg := &optimizationConfig{
		reference:     ref,
		baseParams:    baseParams,
		defs:          defs,
		initCandidate: initCand,
		note:          *note,
		sampleRate:    *sampleRate,
		seed:          *seed,
		timeBudget:    *timeBudget,
		maxEvals:      *maxEvals,
		reportEvery:   *reportEvery,
		render: fitcommon.RenderOptions{
			BlockSize:       128,
			DecayDBFS:       *decayDBFS,
			DecayHoldBlocks: *decayHoldBlocks,
			MinDuration:     *minDuration,
			MaxDuration:     *maxDuration,
		},
		checkpointEvery:    *checkpointEvery,
		toneWeight:         *toneWeight,
		partials:           *partials,
		mayflyVariant:      variant,
		mayflyPop:          *mayflyPop,
		mayflyRoundEvals:   *mayflyRoundEvals,
		workers:            workers,
		outputPreset:       *outputPreset,
		reportPath:         *reportPath,
		referencePath:      *referencePath,
		presetPath:         *presetPath,
		writeBestCandidate: *writeBestCandidate,
	}

	res, err := runOptimization(cfg)
	if err != nil {
		die("%v", err)
	}
	if err := writeOutputs(cfg, res.elapsed, res.evals, res.best, res.bestMetrics, res.checkpoints); err != nil {
		die("failed to write outputs: %v", err)
	}
	if *writeBestCandidate != "" {
		if err := writeBestCandidateSnapshot(cfg, res.best); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write best candidate wav: %v\n", err)
		}
	}

	fmt.Printf("Done evals=%d elapsed=%.1fs best_score=%.4f best_similarity=%.2f%% variant=%s workers=%d\n",
		res.evals, res.elapsed, res.bestMetrics.Objective, res.bestMetrics.Similarity*100.0, variant, workers)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

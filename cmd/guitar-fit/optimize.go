package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwbudde/algo-guitar/analysis"
	"github.com/cwbudde/algo-guitar/guitar"
	"github.com/cwbudde/algo-guitar/internal/fitcommon"
	"github.com/cwbudde/mayfly"
	"golang.org/x/sync/errgroup"
)

type optimizationConfig struct {
	reference          []float64
	baseParams         *guitar.Params
	defs               []knobDef
	initCandidate      candidate
	note               int
	sampleRate         int
	seed               int64
	timeBudget         float64
	maxEvals           int
	reportEvery        int
	checkpointEvery    int
	render             fitcommon.RenderOptions
	toneWeight         float64
	partials           int
	mayflyVariant      string
	mayflyPop          int
	mayflyRoundEvals   int
	workers            int
	outputPreset       string
	reportPath         string
	referencePath      string
	presetPath         string
	writeBestCandidate string
}

// evalResult is one scored render.
type evalResult struct {
	analysis.ToneMetrics
	Objective float64
}

type optimizationResult struct {
	best        candidate
	bestMetrics evalResult
	evals       int
	elapsed     float64
	checkpoints int
}

type optimizationState struct {
	mu          sync.Mutex
	best        candidate
	bestMetrics evalResult
	checkpoints int
}

// objective blends the Compare score with relative partial levels, which
// carry the pluck position and pickup colour.
func objective(tm analysis.ToneMetrics, toneWeight float64) float64 {
	score := tm.Score
	if toneWeight > 0 && tm.Partials > 0 {
		score = (score + toneWeight*fitcommon.Clamp(tm.PartialLevelRMSEDB/30.0, 0, 1)) / (1 + toneWeight)
	}
	return score
}

func noteFrequency(note int, reference float64) float64 {
	return reference * math.Pow(2, float64(note-69)/12.0)
}

func evaluateCandidate(cfg *optimizationConfig, c candidate) (evalResult, error) {
	p, velocity, releaseAfter := applyCandidate(cfg.baseParams, cfg.defs, c)
	samples, err := fitcommon.RenderNote(p, cfg.sampleRate, cfg.note, velocity, releaseAfter, cfg.render)
	if err != nil {
		return evalResult{}, err
	}
	mono := fitcommon.ToFloat64(samples)
	f0 := noteFrequency(cfg.note, float64(p.ReferencePitch))
	tm, err := analysis.CompareTone(cfg.reference, mono, cfg.sampleRate, f0, cfg.partials)
	if err != nil {
		// Too low to resolve partials; fall back to the broadband score.
		tm = analysis.ToneMetrics{Metrics: analysis.Compare(cfg.reference, mono, cfg.sampleRate)}
	}
	return evalResult{ToneMetrics: tm, Objective: objective(tm, cfg.toneWeight)}, nil
}

func runOptimization(cfg *optimizationConfig) (*optimizationResult, error) {
	start := time.Now()
	ctx, cancel := context.WithDeadline(context.Background(), start.Add(time.Duration(cfg.timeBudget*float64(time.Second))))
	defer cancel()

	best := cloneCandidate(cfg.initCandidate)
	bestM, err := evaluateCandidate(cfg, best)
	if err != nil {
		return nil, fmt.Errorf("initial evaluation failed: %w", err)
	}
	fmt.Printf("Start score=%.4f similarity=%.2f%%\n", bestM.Objective, bestM.Similarity*100.0)

	state := &optimizationState{best: best, bestMetrics: bestM}
	var evals int64 = 1
	var rounds int64
	var improves int64
	var outputMu sync.Mutex
	var latestPersistedImprove int64

	workers := max(cfg.workers, 1)
	eg, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		eg.Go(func() error {
			for ctx.Err() == nil && atomic.LoadInt64(&evals) < int64(cfg.maxEvals) {
				round := int(atomic.AddInt64(&rounds, 1))
				remaining := cfg.maxEvals - int(atomic.LoadInt64(&evals))
				if remaining <= 0 {
					return nil
				}
				budget := min(cfg.mayflyRoundEvals, remaining)
				iters := max(1, budget/(2*cfg.mayflyPop))

				mayflyConfig, err := newMayflyConfig(cfg.mayflyVariant, cfg.mayflyPop, len(cfg.defs), iters)
				if err != nil {
					return err
				}
				mayflyConfig.Rand = rand.New(rand.NewSource(cfg.seed + int64(round)*7919))
				mayflyConfig.ObjectiveFunc = func(pos []float64) float64 {
					if ctx.Err() != nil {
						return currentBestScore(state) + 1.0
					}
					evalNum, ok := reserveEval(&evals, cfg.maxEvals)
					if !ok {
						return currentBestScore(state) + 1.0
					}

					cand := fromNormalized(pos, cfg.defs)
					m, err := evaluateCandidate(cfg, cand)
					if err != nil {
						return currentBestScore(state) + 0.8
					}

					improved := false
					checkpointDue := false
					var improveNum int64

					state.mu.Lock()
					if m.Objective < state.bestMetrics.Objective {
						state.best = cloneCandidate(cand)
						state.bestMetrics = m
						improved = true
						improveNum = atomic.AddInt64(&improves, 1)
						checkpointDue = cfg.checkpointEvery > 0 && improveNum%int64(cfg.checkpointEvery) == 0
					}
					bestSnapshot := cloneCandidate(state.best)
					bestMetrics := state.bestMetrics
					state.mu.Unlock()

					if improved {
						fmt.Printf("Improved #%d eval=%d score=%.4f sim=%.2f%% pitch=%+.2fc\n", improveNum, evalNum, bestMetrics.Objective, bestMetrics.Similarity*100.0, bestMetrics.PitchErrorCents)
						outputMu.Lock()
						if improveNum > latestPersistedImprove {
							latestPersistedImprove = improveNum
							if cfg.writeBestCandidate != "" {
								if err := writeBestCandidateSnapshot(cfg, bestSnapshot); err != nil {
									fmt.Fprintf(os.Stderr, "failed to update best candidate wav: %v\n", err)
								}
							}
							if checkpointDue {
								state.mu.Lock()
								checkpointNum := state.checkpoints + 1
								state.mu.Unlock()
								if err := writeOutputs(cfg, time.Since(start).Seconds(), int(atomic.LoadInt64(&evals)), bestSnapshot, bestMetrics, checkpointNum); err != nil {
									fmt.Fprintf(os.Stderr, "checkpoint write failed: %v\n", err)
								} else {
									state.mu.Lock()
									state.checkpoints = max(state.checkpoints, checkpointNum)
									state.mu.Unlock()
								}
							}
						}
						outputMu.Unlock()
					}

					if cfg.reportEvery > 0 && evalNum%int64(cfg.reportEvery) == 0 {
						fmt.Printf("Progress round=%d eval=%d elapsed=%.1fs best=%.4f\n", round, evalNum, time.Since(start).Seconds(), bestMetrics.Objective)
					}
					return m.Objective
				}

				if _, err := runMayfly(mayflyConfig); err != nil {
					fmt.Fprintf(os.Stderr, "mayfly round %d failed: %v\n", round, err)
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	return &optimizationResult{
		best:        cloneCandidate(state.best),
		bestMetrics: state.bestMetrics,
		evals:       int(atomic.LoadInt64(&evals)),
		elapsed:     time.Since(start).Seconds(),
		checkpoints: state.checkpoints,
	}, nil
}

func reserveEval(evals *int64, maxEvals int) (int64, bool) {
	for {
		cur := atomic.LoadInt64(evals)
		if cur >= int64(maxEvals) {
			return 0, false
		}
		if atomic.CompareAndSwapInt64(evals, cur, cur+1) {
			return cur + 1, true
		}
	}
}

func currentBestScore(state *optimizationState) float64 {
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.bestMetrics.Objective
}

func newMayflyConfig(variant string, pop int, dims int, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported variant %q", variant)
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	// NC/2 parent pairs are drawn from both populations.
	cfg.NC = 2 * pop
	cfg.NM = max(1, int(math.Round(0.05*float64(pop))))
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}

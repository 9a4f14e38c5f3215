// Package main provides CMA-ES calibration for finding simulation parameters
// that keep the vivarium population alive and balanced across seasons.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/vivarium/config"
)

// evalLog appends one CSV row per fitness evaluation, flushing as it goes so
// a killed calibration still leaves a usable log.
type evalLog struct {
	w *csv.Writer
}

func newEvalLog(f *os.File, names []string) *evalLog {
	w := csv.NewWriter(f)
	header := append([]string{"eval", "fitness"}, names...)
	w.Write(header)
	w.Flush()
	return &evalLog{w: w}
}

func (l *evalLog) record(eval int, fitness float64, values []float64) {
	row := make([]string, 0, len(values)+2)
	row = append(row, strconv.Itoa(eval), fmt.Sprintf("%.6f", fitness))
	for _, v := range values {
		row = append(row, fmt.Sprintf("%.6f", v))
	}
	l.w.Write(row)
	l.w.Flush()
}

// hms renders a duration in whole seconds, dropping the hour field when zero.
func hms(d time.Duration) string {
	sec := int(d.Round(time.Second).Seconds())
	if sec >= 3600 {
		return fmt.Sprintf("%dh%02dm%02ds", sec/3600, sec/60%60, sec%60)
	}
	return fmt.Sprintf("%dm%02ds", sec/60, sec%60)
}

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	maxTicks := flag.Int("max-ticks", 20000, "Maximum simulation duration in ticks (cap)")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	baseCfg := config.Cfg()

	params := NewParamVector()

	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(params, *maxTicks, evalSeeds, baseCfg)

	dim := params.Dim()
	initX := params.Normalize(params.DefaultVector())

	popSize := *population
	if popSize == 0 {
		// Auto-size: 4 + floor(3*ln(n))
		popSize = 4 + int(3.0*math.Log(float64(dim)))
	}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}
	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // Sequential evaluation
	}

	logFile, err := os.Create(filepath.Join(*outputDir, "calibrate_log.csv"))
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()

	names := make([]string, len(params.Specs))
	for i, spec := range params.Specs {
		names[i] = spec.Name
	}
	evals := newEvalLog(logFile, names)

	var (
		evalCount   int
		bestFitness = math.Inf(1)
		bestParams  []float64
		started     = time.Now()
	)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			fitness := evaluator.Evaluate(params.Denormalize(x))
			evalCount++

			// The evaluator clamps before running, so log what actually ran.
			clamped := params.Clamp(params.Denormalize(x))
			evals.record(evalCount, fitness, clamped)
			if fitness < bestFitness {
				bestFitness = fitness
				bestParams = append([]float64(nil), clamped...)
			}

			// Undo the fitness blend to report survival in ticks: the score
			// is -(survival × (1 + 0.2×quality)).
			quality := evaluator.LastQuality()
			survived := -fitness / (1.0 + 0.2*quality)

			elapsed := time.Since(started)
			eta := elapsed / time.Duration(evalCount) * time.Duration(*maxEvals-evalCount)
			fmt.Printf("[%d/%d] survived %.0f ticks, quality %.2f, best %.0f (%s elapsed, ~%s left)\n",
				evalCount, *maxEvals, survived, quality, bestFitness, hms(elapsed), hms(eta))

			return fitness
		},
	}

	fmt.Printf("Calibrating %d parameters: population=%d, max_evals=%d, %d seeds x %d ticks\n",
		dim, popSize, *maxEvals, *seeds, *maxTicks)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		log.Printf("calibration ended: %v", err)
	}
	if bestParams == nil {
		bestParams = params.Denormalize(result.X)
	}

	fmt.Printf("\nDone: %d evaluations in %s, best fitness %.0f\n",
		evalCount, hms(time.Since(started)), bestFitness)
	for i, spec := range params.Specs {
		fmt.Printf("  %s = %.6f\n", spec.Name, bestParams[i])
	}

	bestCfg, _ := config.Load(*configPath)
	params.ApplyToConfig(bestCfg, bestParams)
	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		log.Printf("failed to write best config: %v", err)
	} else {
		fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	}

	if board := evaluator.BestLeaderboard(); board != nil {
		boardPath := filepath.Join(*outputDir, "leaderboard.json")
		data, err := json.MarshalIndent(board, "", "  ")
		if err != nil {
			log.Printf("failed to marshal leaderboard: %v", err)
		} else if err := os.WriteFile(boardPath, data, 0644); err != nil {
			log.Printf("failed to write leaderboard: %v", err)
		} else {
			fmt.Printf("Leaderboard saved to: %s\n", boardPath)
		}
	}
}

package outrights

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/optimize"
)

// Objective is a black-box function to minimise
type Objective func(x []float64) float64

// Optimum is the best point found by a Minimizer
type Optimum struct {
	X           []float64 `json:"x"`
	F           float64   `json:"f"`
	Iterations  int       `json:"iterations"`
	Evaluations int       `json:"evaluations"`
	Converged   bool      `json:"converged"`
}

// Minimizer performs bounded minimisation. Implementations clamp every
// candidate to its bounds and are deterministic for a fixed seed.
// Running out of iterations is not an error; the best point found is returned.
type Minimizer interface {
	Minimize(ctx context.Context, f Objective, x0 []float64, bounds []Range, maxIter int) (*Optimum, error)
}

const (
	StrategyGenetic    = "genetic"
	StrategyPopulation = "population"
	StrategyHybrid     = "hybrid"
	StrategyNelderMead = "neldermead"
)

// MinimizerByName resolves an optimisation strategy from its configuration name
func MinimizerByName(name string, seed uint64, logger logrus.FieldLogger) (Minimizer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyGenetic:
		m := NewGeneticMinimizer(seed)
		m.Logger = logger
		return m, nil
	case StrategyPopulation:
		m := NewPopulationMinimizer(seed)
		m.Logger = logger
		return m, nil
	case StrategyHybrid:
		m := NewHybridMinimizer(seed)
		m.Genetic.Logger = logger
		m.Logger = logger
		return m, nil
	case StrategyNelderMead, "nelder-mead":
		m := NewNelderMeadMinimizer()
		m.Logger = logger
		return m, nil
	default:
		return nil, fmt.Errorf("unknown optimisation strategy %q", name)
	}
}

func clampTo(x []float64, bounds []Range) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if i < len(bounds) {
			v = bounds[i].Clamp(v)
		}
		out[i] = v
	}
	return out
}

func checkBounds(x0 []float64, bounds []Range) error {
	if len(bounds) != len(x0) {
		return fmt.Errorf("optimiser: %d bounds for %d parameters", len(bounds), len(x0))
	}
	for i, b := range bounds {
		if b.Min > b.Max {
			return fmt.Errorf("optimiser: bound %d has min %v > max %v", i, b.Min, b.Max)
		}
	}
	return nil
}

// GeneticMinimizer mutates one coordinate at a time with an annealed Gaussian
// step, keeping a mutation only when it improves the objective
type GeneticMinimizer struct {
	Seed           uint64
	Decay          float64 // Exponent of the ((max-gen)/max) step decay (default: 2)
	MutationFactor float64 // Step scale at generation zero (default: 0.1)
	Tolerance      float64 // Improvement below which a generation counts as stalled (default: 1e-6)
	Patience       int     // Stalled generations tolerated before stopping (default: 10)
	Logger         logrus.FieldLogger
}

// NewGeneticMinimizer creates a coordinate-mutation minimiser with default settings
func NewGeneticMinimizer(seed uint64) *GeneticMinimizer {
	return &GeneticMinimizer{
		Seed:           seed,
		Decay:          2.0,
		MutationFactor: 0.1,
		Tolerance:      1e-6,
		Patience:       10,
	}
}

// Minimize mutates one coordinate at a time, keeping improvements, until the
// error stalls for Patience generations or maxIter is reached
func (g *GeneticMinimizer) Minimize(ctx context.Context, f Objective, x0 []float64, bounds []Range, maxIter int) (*Optimum, error) {
	if err := checkBounds(x0, bounds); err != nil {
		return nil, err
	}
	log := loggerOrDiscard(g.Logger)
	rng := newRand(g.Seed, 0)

	x := clampTo(x0, bounds)
	best := f(x)
	evals := 1
	stalled := 0
	converged := false

	iter := 0
	for iter < maxIter {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		old := best
		decay := math.Pow(float64(maxIter-iter)/float64(maxIter), g.Decay)

		for i := range x {
			delta := rng.NormFloat64() * decay * g.MutationFactor
			orig := x[i]

			x[i] = bounds[i].Clamp(orig + delta)
			evals++
			if v := f(x); v < best {
				best = v
				continue
			}

			x[i] = bounds[i].Clamp(orig - delta)
			evals++
			if v := f(x); v < best {
				best = v
				continue
			}

			x[i] = orig
		}
		iter++

		if iter%10 == 1 || iter == maxIter {
			log.WithFields(logrus.Fields{
				"generation": iter,
				"objective":  best,
				"decay":      decay,
			}).Debug("genetic generation")
		}

		if math.Abs(old-best) < g.Tolerance {
			stalled++
			if stalled >= g.Patience {
				converged = true
				break
			}
		} else {
			stalled = 0
		}
	}

	return &Optimum{X: x, F: best, Iterations: iter, Evaluations: evals, Converged: converged}, nil
}

// PopulationMinimizer runs an elitist genetic algorithm; candidates within a
// generation are evaluated concurrently
type PopulationMinimizer struct {
	Seed           uint64
	Size           int     // Candidates per generation (default: 8)
	EliteRatio     float64 // Share of candidates surviving unchanged (default: 0.2)
	MutationFactor float64 // Mutation scale at generation zero (default: 0.1)
	MutationRate   float64 // Per-parameter mutation probability (default: 0.3)
	ExcellentError float64 // Stop once the best objective is at or below this (default: 0.03)
	Workers        int     // Concurrent evaluations, 0 means one per candidate
	Logger         logrus.FieldLogger
}

// NewPopulationMinimizer creates a population minimiser with default settings
func NewPopulationMinimizer(seed uint64) *PopulationMinimizer {
	return &PopulationMinimizer{
		Seed:           seed,
		Size:           8,
		EliteRatio:     0.2,
		MutationFactor: 0.1,
		MutationRate:   0.3,
		ExcellentError: 0.03,
	}
}

func (p *PopulationMinimizer) evaluate(ctx context.Context, f Objective, population [][]float64) ([]float64, error) {
	fitness := make([]float64, len(population))
	g, ctx := errgroup.WithContext(ctx)
	if p.Workers > 0 {
		g.SetLimit(p.Workers)
	}
	for i := range population {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fitness[i] = f(population[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fitness, nil
}

// Minimize evolves a population seeded with x0, keeping the elite each generation
func (p *PopulationMinimizer) Minimize(ctx context.Context, f Objective, x0 []float64, bounds []Range, maxIter int) (*Optimum, error) {
	if err := checkBounds(x0, bounds); err != nil {
		return nil, err
	}
	log := loggerOrDiscard(p.Logger)
	rng := newRand(p.Seed, 0)

	size := max(p.Size, 2)
	nElite := max(1, int(float64(size)*p.EliteRatio))

	// First candidate is the warm start, the rest are uniform within bounds
	population := make([][]float64, 0, size)
	population = append(population, clampTo(x0, bounds))
	for len(population) < size {
		candidate := make([]float64, len(x0))
		for i, b := range bounds {
			candidate[i] = b.Min + rng.Float64()*(b.Max-b.Min)
		}
		population = append(population, candidate)
	}

	bestF := math.Inf(1)
	var bestX []float64
	evals := 0
	converged := false

	iter := 0
	for iter < maxIter {
		fitness, err := p.evaluate(ctx, f, population)
		if err != nil {
			return nil, err
		}
		evals += len(fitness)

		order := make([]int, len(fitness))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool { return fitness[order[a]] < fitness[order[b]] })

		if fitness[order[0]] < bestF {
			bestF = fitness[order[0]]
			bestX = append([]float64(nil), population[order[0]]...)
		}
		iter++

		if iter%10 == 1 || iter == maxIter {
			log.WithFields(logrus.Fields{
				"generation": iter,
				"best":       bestF,
			}).Debug("population generation")
		}

		if bestF <= p.ExcellentError {
			converged = true
			break
		}

		decay := math.Sqrt(float64(maxIter-iter+1) / float64(maxIter))
		mutation := p.MutationFactor * decay

		next := make([][]float64, 0, size)
		for _, idx := range order[:nElite] {
			next = append(next, append([]float64(nil), population[idx]...))
		}
		for len(next) < size {
			parent := append([]float64(nil), next[rng.IntN(nElite)]...)
			for i := range parent {
				if rng.Float64() < p.MutationRate {
					parent[i] = bounds[i].Clamp(parent[i] + rng.NormFloat64()*mutation)
				}
			}
			next = append(next, parent)
		}
		population = next
	}

	if bestX == nil {
		bestX = clampTo(x0, bounds)
		bestF = f(bestX)
		evals++
	}
	return &Optimum{X: bestX, F: bestF, Iterations: iter, Evaluations: evals, Converged: converged}, nil
}

// HybridMinimizer spends most of its budget on coordinate mutation, then
// fine-tunes with an adaptive fixed-step coordinate descent
type HybridMinimizer struct {
	Genetic      *GeneticMinimizer
	GeneticShare float64 // Share of iterations given to the genetic phase (default: 0.8)
	LearningRate float64 // Initial coordinate step (default: 0.01)
	Tolerance    float64 // Improvement below which descent stops (default: 1e-6)
	Logger       logrus.FieldLogger
}

// NewHybridMinimizer creates a hybrid minimiser with default settings
func NewHybridMinimizer(seed uint64) *HybridMinimizer {
	return &HybridMinimizer{
		Genetic:      NewGeneticMinimizer(seed),
		GeneticShare: 0.8,
		LearningRate: 0.01,
		Tolerance:    1e-6,
	}
}

// Minimize runs the genetic phase, then refines its best point by coordinate descent
func (h *HybridMinimizer) Minimize(ctx context.Context, f Objective, x0 []float64, bounds []Range, maxIter int) (*Optimum, error) {
	geneticIter := int(float64(maxIter) * h.GeneticShare)
	coarse, err := h.Genetic.Minimize(ctx, f, x0, bounds, geneticIter)
	if err != nil {
		return nil, err
	}
	log := loggerOrDiscard(h.Logger)

	x := coarse.X
	best := coarse.F
	evals := coarse.Evaluations
	rate := h.LearningRate
	fineIter := maxIter - geneticIter
	converged := false

	iter := 0
	for iter < fineIter {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		old := best
		for i := range x {
			for _, direction := range []float64{-1, 1} {
				candidate := x[i] + rate*direction
				if candidate < bounds[i].Min || candidate > bounds[i].Max {
					continue
				}
				orig := x[i]
				x[i] = candidate
				evals++
				if v := f(x); v < best {
					best = v
					break
				}
				x[i] = orig
			}
		}
		iter++

		if math.Abs(old-best) < h.Tolerance {
			converged = true
			break
		}
		if best < old {
			rate *= 1.01
		} else {
			rate *= 0.99
		}
	}

	log.WithFields(logrus.Fields{
		"objective":  best,
		"iterations": coarse.Iterations + iter,
	}).Debug("hybrid optimisation completed")

	return &Optimum{
		X:           x,
		F:           best,
		Iterations:  coarse.Iterations + iter,
		Evaluations: evals,
		Converged:   converged,
	}, nil
}

// NelderMeadMinimizer delegates to gonum's Nelder-Mead simplex search,
// evaluating the objective at bound-clamped coordinates
type NelderMeadMinimizer struct {
	SimplexSize float64 // Size of the initial simplex (default: 0.5)
	Logger      logrus.FieldLogger
}

// NewNelderMeadMinimizer creates a Nelder-Mead minimiser with default settings
func NewNelderMeadMinimizer() *NelderMeadMinimizer {
	return &NelderMeadMinimizer{SimplexSize: 0.5}
}

type contextRecorder struct {
	ctx context.Context
}

func (r contextRecorder) Init() error { return r.ctx.Err() }

func (r contextRecorder) Record(*optimize.Location, optimize.Operation, *optimize.Stats) error {
	return r.ctx.Err()
}

// Minimize runs gonum Nelder-Mead on clamped coordinates. Hitting the
// iteration limit returns the best point found.
func (n *NelderMeadMinimizer) Minimize(ctx context.Context, f Objective, x0 []float64, bounds []Range, maxIter int) (*Optimum, error) {
	if err := checkBounds(x0, bounds); err != nil {
		return nil, err
	}
	if len(x0) == 0 {
		return &Optimum{F: f(x0), Evaluations: 1, Converged: true}, nil
	}
	log := loggerOrDiscard(n.Logger)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return f(clampTo(x, bounds))
		},
	}
	settings := &optimize.Settings{
		MajorIterations: maxIter,
		Recorder:        contextRecorder{ctx: ctx},
	}
	result, err := optimize.Minimize(problem, clampTo(x0, bounds), settings, &optimize.NelderMead{SimplexSize: n.SimplexSize})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if result == nil {
		return nil, fmt.Errorf("nelder-mead: %w", err)
	}
	if err != nil {
		log.WithError(err).WithField("status", result.Status.String()).Warn("nelder-mead stopped early")
	}

	x := clampTo(result.X, bounds)
	return &Optimum{
		X:           x,
		F:           f(x),
		Iterations:  result.Stats.MajorIterations,
		Evaluations: result.Stats.FuncEvaluations + 1,
		Converged:   err == nil && !result.Status.Early(),
	}, nil
}

package outrights

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// simChunkSize is the number of paths drawn from one random stream.
// Chunk boundaries do not depend on the worker count.
const simChunkSize = 256

// noiseStream is the PCG stream reserved for initial tie-break noise
const noiseStream = math.MaxUint64

// SimPoints holds one accumulated season value per team per simulation path.
// A value is league points plus goal difference scaled down far enough never
// to outweigh a single point.
type SimPoints struct {
	NPaths    int
	TeamNames []string

	values [][]float64 // team x path
	index  map[string]int

	seed         uint64
	workers      int
	gridSize     int
	rho          float64
	gdMultiplier float64
	noise        float64
	fixtures     uint64

	mu            sync.Mutex
	positionCache map[string]map[string][]float64 // sortedTeamsKey -> teamName -> probabilities
}

// SimOption configures a SimPoints
type SimOption func(*SimPoints)

// WithSimSeed sets the seed all simulation randomness derives from
func WithSimSeed(seed uint64) SimOption {
	return func(sp *SimPoints) { sp.seed = seed }
}

// WithWorkers bounds the number of path chunks simulated concurrently
func WithWorkers(workers int) SimOption {
	return func(sp *SimPoints) {
		if workers > 0 {
			sp.workers = workers
		}
	}
}

// WithSimMatrix sets the score matrix grid size and Dixon-Coles rho
func WithSimMatrix(gridSize int, rho float64) SimOption {
	return func(sp *SimPoints) {
		sp.gridSize = gridSize
		sp.rho = rho
	}
}

// WithMultipliers sets the goal difference and initial noise multipliers
func WithMultipliers(gd, noise float64) SimOption {
	return func(sp *SimPoints) {
		sp.gdMultiplier = gd
		sp.noise = noise
	}
}

// WithSimParams applies the simulation fields of SimParams
func WithSimParams(params *SimParams) SimOption {
	return func(sp *SimPoints) {
		WithSimSeed(params.Seed)(sp)
		WithWorkers(params.Workers)(sp)
		WithSimMatrix(params.GridSize, params.Rho)(sp)
		WithMultipliers(params.GDMultiplier, params.NoiseMultiplier)(sp)
	}
}

// NewSimPoints seeds every path with the team's current points and goal
// difference plus a tiny uniform noise that breaks exact ties at random
func NewSimPoints(table []TeamRow, nPaths int, opts ...SimOption) (*SimPoints, error) {
	if nPaths < 1 {
		return nil, fmt.Errorf("simulation needs at least one path, got %d", nPaths)
	}
	defaults := DefaultSimParams()
	sp := &SimPoints{
		NPaths:        nPaths,
		TeamNames:     make([]string, len(table)),
		values:        make([][]float64, len(table)),
		index:         make(map[string]int, len(table)),
		workers:       runtime.NumCPU(),
		seed:          defaults.Seed,
		gridSize:      defaults.GridSize,
		rho:           defaults.Rho,
		gdMultiplier:  defaults.GDMultiplier,
		noise:         defaults.NoiseMultiplier,
		positionCache: make(map[string]map[string][]float64),
	}
	for _, opt := range opts {
		opt(sp)
	}
	if sp.gridSize < 1 {
		return nil, fmt.Errorf("%w: grid size must be at least 1, got %d", ErrInvalidRequest, sp.gridSize)
	}

	rng := newRand(sp.seed, noiseStream)
	for i, row := range table {
		if _, dup := sp.index[row.Name]; dup {
			return nil, fmt.Errorf("duplicate team %s in league table", row.Name)
		}
		sp.TeamNames[i] = row.Name
		sp.index[row.Name] = i

		base := float64(row.Points) + sp.gdMultiplier*float64(row.GoalDifference)
		sp.values[i] = make([]float64, nPaths)
		for path := range sp.values[i] {
			sp.values[i][path] = base + sp.noise*(rng.Float64()-0.5)
		}
	}

	return sp, nil
}

// Simulate plays one fixture across all paths and adds the result to both teams.
// Calls must not overlap; paths within a call are simulated concurrently.
func (sp *SimPoints) Simulate(ctx context.Context, eventName string, ratings Ratings, homeAdvantage float64) error {
	homeTeam, awayTeam, err := ParseEventName(eventName)
	if err != nil {
		return err
	}
	homeIdx, ok := sp.index[homeTeam]
	if !ok {
		return fmt.Errorf("%w: %s in fixture %s", ErrUnknownTeam, homeTeam, eventName)
	}
	awayIdx, ok := sp.index[awayTeam]
	if !ok {
		return fmt.Errorf("%w: %s in fixture %s", ErrUnknownTeam, awayTeam, eventName)
	}

	matrix, err := InitScoreMatrix(eventName, ratings, homeAdvantage, sp.gridSize, sp.rho)
	if err != nil {
		return err
	}

	sp.mu.Lock()
	fixture := sp.fixtures
	sp.fixtures++
	sp.positionCache = make(map[string]map[string][]float64)
	sp.mu.Unlock()

	homeValues, awayValues := sp.values[homeIdx], sp.values[awayIdx]

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sp.workers)
	for start := 0; start < sp.NPaths; start += simChunkSize {
		chunk := uint64(start / simChunkSize)
		end := min(start+simChunkSize, sp.NPaths)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src := rand.NewPCG(sp.seed, fixture<<32|chunk)
			scores := matrix.SimulateScores(end-start, src)
			for k, score := range scores {
				path := start + k
				homePoints, awayPoints := matchPoints(score.Home, score.Away)
				gd := float64(score.Home - score.Away)
				homeValues[path] += float64(homePoints) + sp.gdMultiplier*gd
				awayValues[path] += float64(awayPoints) - sp.gdMultiplier*gd
			}
			return nil
		})
	}
	return g.Wait()
}

func matchPoints(homeGoals, awayGoals int) (int, int) {
	switch {
	case homeGoals > awayGoals:
		return 3, 0
	case homeGoals == awayGoals:
		return 1, 1
	default:
		return 0, 3
	}
}

// PositionProbabilities ranks the given teams (all teams when nil) on every
// path and returns, per team, the probability of finishing in each position
// of that group. Results are cached until the next Simulate.
func (sp *SimPoints) PositionProbabilities(teamNames []string) (map[string][]float64, error) {
	if teamNames == nil {
		teamNames = sp.TeamNames
	}

	selected := make([]int, len(teamNames))
	seen := make(map[string]bool, len(teamNames))
	for i, name := range teamNames {
		idx, ok := sp.index[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTeam, name)
		}
		if seen[name] {
			return nil, fmt.Errorf("team %s listed twice", name)
		}
		seen[name] = true
		selected[i] = idx
	}

	sortedNames := append([]string{}, teamNames...)
	sort.Strings(sortedNames)
	cacheKey := strings.Join(sortedNames, "\x00")

	sp.mu.Lock()
	defer sp.mu.Unlock()
	if cached, ok := sp.positionCache[cacheKey]; ok {
		return cached, nil
	}

	n := len(selected)
	counts := make([][]int, n)
	for i := range counts {
		counts[i] = make([]int, n)
	}

	order := make([]int, n)
	for path := 0; path < sp.NPaths; path++ {
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return sp.values[selected[order[a]]][path] > sp.values[selected[order[b]]][path]
		})
		for pos, i := range order {
			counts[i][pos]++
		}
	}

	probabilities := make(map[string][]float64, n)
	for i, name := range teamNames {
		probs := make([]float64, n)
		for pos, c := range counts[i] {
			probs[pos] = float64(c) / float64(sp.NPaths)
		}
		probabilities[name] = probs
	}

	sp.positionCache[cacheKey] = probabilities
	return probabilities, nil
}

// MeanPoints returns each team's season value averaged over all paths
func (sp *SimPoints) MeanPoints() map[string]float64 {
	means := make(map[string]float64, len(sp.TeamNames))
	for i, name := range sp.TeamNames {
		var total float64
		for _, v := range sp.values[i] {
			total += v
		}
		means[name] = total / float64(sp.NPaths)
	}
	return means
}

package solver

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"time"
)

const (
	DefaultGroupSize   = 4
	DefaultMaxAttempts = 1000
)

// ErrNoSolution is returned by Generate when the attempt budget runs out
// without a partition that passes validation.
var ErrNoSolution = errors.New("no solution found")

type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

type Member struct {
	ID          int
	Name        string
	Gender      Gender
	Leader      bool
	NeedsHelp   bool
	Preferences []int
}

type Group struct {
	ID      int
	Members []Member
}

type Result struct {
	Groups   []Group
	Attempts int
}

type Option func(*Generator)

// WithRand sets the random source used to shuffle leaders and members.
func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) {
		if rng != nil {
			g.rng = rng
		}
	}
}

func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// Generator partitions a roster into balanced groups. It owns its random
// source and is not safe for concurrent use.
type Generator struct {
	members     []Member
	constraints []Constraint
	leaders     []Member
	groupSize   int
	numGroups   int
	maxAttempts int
	rng         *rand.Rand
	logger      *slog.Logger

	scratch []Member
}

func New(members []Member, constraints []Constraint, groupSize int, opts ...Option) *Generator {
	g := &Generator{
		members:     slices.Clone(members),
		groupSize:   normalizeGroupSize(groupSize, len(members)),
		maxAttempts: DefaultMaxAttempts,
	}
	for _, c := range constraints {
		if c.Enabled {
			g.constraints = append(g.constraints, c)
		}
	}
	for _, m := range g.members {
		if m.Leader {
			g.leaders = append(g.leaders, m)
		}
	}
	if g.groupSize > 0 {
		g.numGroups = (len(g.members) + g.groupSize - 1) / g.groupSize
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if g.logger == nil {
		g.logger = slog.New(slog.DiscardHandler)
	}
	return g
}

func normalizeGroupSize(size, n int) int {
	if size <= 0 {
		return min(DefaultGroupSize, n)
	}
	return min(size, n)
}

func (g *Generator) GroupSize() int   { return g.groupSize }
func (g *Generator) NumGroups() int   { return g.numGroups }
func (g *Generator) MaxAttempts() int { return g.maxAttempts }

// Constraints returns the enabled constraints the generator checks.
func (g *Generator) Constraints() []Constraint {
	return slices.Clone(g.constraints)
}

// Generate runs up to MaxAttempts placement attempts and returns the first
// partition that validates. Exhausting the budget yields ErrNoSolution.
func (g *Generator) Generate() (*Result, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		groups := g.attempt()
		if g.Validate(groups) {
			g.logger.Debug("partition accepted",
				"attempt", attempt,
				"members", len(g.members),
				"groups", len(groups),
				"group_size", g.groupSize)
			return &Result{Groups: groups, Attempts: attempt}, nil
		}
	}
	g.logger.Debug("attempt budget exhausted",
		"attempts", g.maxAttempts,
		"members", len(g.members),
		"constraints", len(g.constraints))
	return nil, fmt.Errorf("%w after %d attempts", ErrNoSolution, g.maxAttempts)
}

func (g *Generator) attempt() []Group {
	groups := make([]Group, g.numGroups)
	for i := range groups {
		groups[i].ID = i + 1
	}

	leaders := slices.Clone(g.leaders)
	g.rng.Shuffle(len(leaders), func(i, j int) { leaders[i], leaders[j] = leaders[j], leaders[i] })

	// Leaders without a seat of their own are placed like everyone else.
	remaining := make([]Member, 0, len(g.members))
	for i, l := range leaders {
		if i < len(groups) {
			groups[i].Members = append(groups[i].Members, l)
		} else {
			remaining = append(remaining, l)
		}
	}
	for _, m := range g.members {
		if !m.Leader {
			remaining = append(remaining, m)
		}
	}
	g.rng.Shuffle(len(remaining), func(i, j int) { remaining[i], remaining[j] = remaining[j], remaining[i] })

	for _, m := range remaining {
		gi := g.bestGroup(m, groups)
		if gi < 0 {
			g.logger.Debug("no valid group for member", "member", m.ID)
			return groups
		}
		groups[gi].Members = append(groups[gi].Members, m)
	}
	return groups
}

func (g *Generator) bestGroup(m Member, groups []Group) int {
	best, bestScore := -1, -1
	for gi := range groups {
		if len(groups[gi].Members) >= g.groupSize {
			continue
		}
		if !g.canAdd(m, groups[gi]) {
			continue
		}
		if sc := score(m, groups[gi]); sc > bestScore {
			best, bestScore = gi, sc
		}
	}
	return best
}

func (g *Generator) canAdd(m Member, grp Group) bool {
	g.scratch = append(g.scratch[:0], grp.Members...)
	g.scratch = append(g.scratch, m)
	for _, c := range g.constraints {
		if !c.holdsLocal(g.scratch, g.groupSize) {
			return false
		}
	}
	return true
}

func score(m Member, grp Group) int {
	sc := 0
	for _, other := range grp.Members {
		if slices.Contains(m.Preferences, other.ID) {
			sc += 10
		}
	}
	if slices.ContainsFunc(grp.Members, func(o Member) bool { return o.Leader }) {
		sc += 5
	}
	males, females := genderCounts(grp.Members)
	if abs(males-females) < 2 {
		sc += 3
	}
	return sc
}

func genderCounts(members []Member) (males, females int) {
	for _, m := range members {
		switch m.Gender {
		case Male:
			males++
		case Female:
			females++
		}
	}
	return males, females
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Package snapshot reads and writes exported group configurations and the
// partitions generated from them.
package snapshot

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"groups/solver"
)

//go:embed sample.json
var sampleJSON []byte

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

type Student struct {
	ID          int    `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Gender      string `json:"gender" yaml:"gender"`
	IsLeader    bool   `json:"isLeader" yaml:"isLeader"`
	NeedsHelp   bool   `json:"needsHelp" yaml:"needsHelp"`
	Preferences []int  `json:"preferences" yaml:"preferences"`
}

type Constraint struct {
	ID            string `json:"id" yaml:"id"`
	Type          string `json:"type" yaml:"type"`
	Description   string `json:"description" yaml:"description"`
	Students      []int  `json:"students" yaml:"students"`
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	MaxBoys       *int   `json:"maxBoys,omitempty" yaml:"maxBoys,omitempty"`
	TargetStudent *int   `json:"targetStudent,omitempty" yaml:"targetStudent,omitempty"`
}

// Configuration is the exported record of a roster and its constraints.
type Configuration struct {
	Students    []Student    `json:"students" yaml:"students"`
	Constraints []Constraint `json:"constraints" yaml:"constraints"`
	Name        string       `json:"name,omitempty" yaml:"name,omitempty"`
	CreatedAt   time.Time    `json:"createdAt,omitzero" yaml:"createdAt,omitempty"`
}

// New builds a configuration from engine types.
func New(name string, members []solver.Member, constraints []solver.Constraint, createdAt time.Time) *Configuration {
	c := &Configuration{
		Name:        name,
		CreatedAt:   createdAt.UTC(),
		Students:    make([]Student, 0, len(members)),
		Constraints: make([]Constraint, 0, len(constraints)),
	}
	for _, m := range members {
		prefs := m.Preferences
		if prefs == nil {
			prefs = []int{}
		}
		c.Students = append(c.Students, Student{
			ID:          m.ID,
			Name:        m.Name,
			Gender:      string(m.Gender),
			IsLeader:    m.Leader,
			NeedsHelp:   m.NeedsHelp,
			Preferences: prefs,
		})
	}
	for _, k := range constraints {
		ids := k.Members
		if ids == nil {
			ids = []int{}
		}
		c.Constraints = append(c.Constraints, Constraint{
			ID:            k.ID,
			Type:          string(k.Kind),
			Description:   k.Description,
			Students:      ids,
			Enabled:       k.Enabled,
			MaxBoys:       k.MaxBoys,
			TargetStudent: k.Target,
		})
	}
	return c
}

// Validate checks the parts of the record the engine relies on: known
// genders and unique student ids. Constraint types are not checked.
func (c *Configuration) Validate() error {
	seen := make(map[int]bool, len(c.Students))
	for _, s := range c.Students {
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate student id %d", ErrInvalid, s.ID)
		}
		seen[s.ID] = true
		switch solver.Gender(s.Gender) {
		case solver.Male, solver.Female:
		default:
			return fmt.Errorf("%w: student %d: unknown gender %q", ErrInvalid, s.ID, s.Gender)
		}
	}
	for i, k := range c.Constraints {
		if k.ID == "" {
			return fmt.Errorf("%w: constraint %d has no id", ErrInvalid, i)
		}
	}
	return nil
}

func (c *Configuration) Members() []solver.Member {
	out := make([]solver.Member, len(c.Students))
	for i, s := range c.Students {
		out[i] = solver.Member{
			ID:          s.ID,
			Name:        s.Name,
			Gender:      solver.Gender(s.Gender),
			Leader:      s.IsLeader,
			NeedsHelp:   s.NeedsHelp,
			Preferences: s.Preferences,
		}
	}
	return out
}

func (c *Configuration) EngineConstraints() []solver.Constraint {
	out := make([]solver.Constraint, len(c.Constraints))
	for i, k := range c.Constraints {
		out[i] = solver.Constraint{
			ID:          k.ID,
			Kind:        solver.Kind(k.Type),
			Description: k.Description,
			Members:     k.Students,
			Enabled:     k.Enabled,
			MaxBoys:     k.MaxBoys,
			Target:      k.TargetStudent,
		}
	}
	return out
}

// Generator returns an engine configured for this roster.
func (c *Configuration) Generator(groupSize int, opts ...solver.Option) *solver.Generator {
	return solver.New(c.Members(), c.EngineConstraints(), groupSize, opts...)
}

// Generate runs the engine and packages the accepted partition.
func (c *Configuration) Generate(groupSize int, opts ...solver.Option) (*Result, error) {
	gen := c.Generator(groupSize, opts...)
	res, err := gen.Generate()
	if err != nil {
		return nil, err
	}
	return NewResult(gen.GroupSize(), res, c.EngineConstraints()), nil
}

func Read(r io.Reader) (*Configuration, error) {
	var c Configuration
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func ReadFile(path string) (*Configuration, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func Write(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func WriteFile(path string, v any) error {
	var buf bytes.Buffer
	if err := Write(&buf, v); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Sample returns the bundled 24-student example class.
func Sample() (*Configuration, error) {
	return Read(bytes.NewReader(sampleJSON))
}

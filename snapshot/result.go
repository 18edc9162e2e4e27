package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"groups/solver"
)

type Group struct {
	ID       int   `json:"id" yaml:"id"`
	Students []int `json:"students" yaml:"students"`
}

type Stats struct {
	GroupsWithLeader     int     `json:"groupsWithLeader" yaml:"groupsWithLeader"`
	PreferencesSatisfied int     `json:"preferencesSatisfied" yaml:"preferencesSatisfied"`
	GenderImbalance      float64 `json:"genderImbalance" yaml:"genderImbalance"`
	ActiveConstraints    int     `json:"activeConstraints" yaml:"activeConstraints"`
}

// Result is the exported form of an accepted partition. Groups list member
// ids in assignment order.
type Result struct {
	GroupSize int     `json:"groupSize" yaml:"groupSize"`
	Attempts  int     `json:"attempts" yaml:"attempts"`
	Seed      *int64  `json:"seed,omitempty" yaml:"seed,omitempty"`
	Groups    []Group `json:"groups" yaml:"groups"`
	Stats     Stats   `json:"stats" yaml:"stats"`
}

func NewStats(st solver.Stats) Stats {
	return Stats{
		GroupsWithLeader:     st.GroupsWithLeader,
		PreferencesSatisfied: st.PreferencesSatisfied,
		GenderImbalance:      st.GenderImbalance,
		ActiveConstraints:    st.ActiveConstraints,
	}
}

func NewResult(groupSize int, res *solver.Result, constraints []solver.Constraint) *Result {
	out := &Result{
		GroupSize: groupSize,
		Attempts:  res.Attempts,
		Groups:    make([]Group, len(res.Groups)),
		Stats:     NewStats(solver.ComputeStats(res.Groups, constraints)),
	}
	for i, grp := range res.Groups {
		ids := make([]int, len(grp.Members))
		for j, m := range grp.Members {
			ids[j] = m.ID
		}
		out.Groups[i] = Group{ID: grp.ID, Students: ids}
	}
	return out
}

// Partition resolves the result's member ids against members. Ids that are
// not on the roster are an error; duplicates are left for the generator's
// Validate to reject.
func (r *Result) Partition(members []solver.Member) ([]solver.Group, error) {
	byID := make(map[int]solver.Member, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}
	groups := make([]solver.Group, len(r.Groups))
	for i, g := range r.Groups {
		groups[i].ID = g.ID
		for _, id := range g.Students {
			m, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("%w: group %d: unknown student %d", ErrInvalid, g.ID, id)
			}
			groups[i].Members = append(groups[i].Members, m)
		}
	}
	return groups, nil
}

func ReadResult(r io.Reader) (*Result, error) {
	var res Result
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, fmt.Errorf("decoding groups: %w", err)
	}
	return &res, nil
}

func ReadResultFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	res, err := ReadResult(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

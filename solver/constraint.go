package solver

import "slices"

type Kind string

const (
	CannotBeTogether   Kind = "cannot_be_together"
	MustBeTogether     Kind = "must_be_together"
	SeparateLeaders    Kind = "separate_leaders"
	SeparateHelp       Kind = "separate_help"
	MaxBoysWithStudent Kind = "max_boys_with_student"
	ExcludeCombination Kind = "exclude_combination"
)

// Kinds lists every constraint kind the generator evaluates.
var Kinds = []Kind{
	CannotBeTogether,
	MustBeTogether,
	SeparateLeaders,
	SeparateHelp,
	MaxBoysWithStudent,
	ExcludeCombination,
}

// Constraint is a rule over the roster. Members holds the referenced member
// IDs; MaxBoys and Target are only read by MaxBoysWithStudent.
type Constraint struct {
	ID          string
	Kind        Kind
	Description string
	Members     []int
	Enabled     bool
	MaxBoys     *int
	Target      *int
}

type rule struct {
	// local is checked on the hypothetical group while members are placed.
	local func(c Constraint, group []Member, groupSize int) bool
	// global is checked on the finished partition.
	global func(c Constraint, groups []Group, groupSize int) bool
}

var rules = map[Kind]rule{
	CannotBeTogether:   {local: atMostOne, global: everyGroup(atMostOne)},
	MustBeTogether:     {local: pairHasRoom, global: pairShareGroup},
	SeparateLeaders:    {local: atMostOne, global: distinctGroups},
	SeparateHelp:       {local: atMostOne, global: distinctGroups},
	MaxBoysWithStudent: {local: maxBoys, global: everyGroup(maxBoys)},
	ExcludeCombination: {local: atMostOne, global: everyGroup(atMostOne)},
}

// Known reports whether the generator has a rule for k. Constraints of any
// other kind always pass.
func (k Kind) Known() bool {
	_, ok := rules[k]
	return ok
}

// UnknownKinds returns the enabled constraints whose kind has no rule.
func UnknownKinds(constraints []Constraint) []Constraint {
	var out []Constraint
	for _, c := range constraints {
		if c.Enabled && !c.Kind.Known() {
			out = append(out, c)
		}
	}
	return out
}

func (c Constraint) holdsLocal(group []Member, groupSize int) bool {
	r, ok := rules[c.Kind]
	if !ok {
		return true
	}
	return r.local(c, group, groupSize)
}

func (c Constraint) holdsGlobal(groups []Group, groupSize int) bool {
	r, ok := rules[c.Kind]
	if !ok {
		return true
	}
	return r.global(c, groups, groupSize)
}

func (c Constraint) maxBoys() int {
	if c.MaxBoys == nil || *c.MaxBoys == 0 {
		return 1
	}
	return *c.MaxBoys
}

func countReferenced(c Constraint, group []Member) int {
	n := 0
	for _, m := range group {
		if slices.Contains(c.Members, m.ID) {
			n++
		}
	}
	return n
}

func hasMember(group []Member, id int) bool {
	return slices.ContainsFunc(group, func(m Member) bool { return m.ID == id })
}

func atMostOne(c Constraint, group []Member, _ int) bool {
	return countReferenced(c, group) <= 1
}

func pairHasRoom(c Constraint, group []Member, groupSize int) bool {
	if len(c.Members) != 2 {
		return true
	}
	hasA, hasB := hasMember(group, c.Members[0]), hasMember(group, c.Members[1])
	if hasA != hasB {
		return len(group) < groupSize
	}
	return true
}

func maxBoys(c Constraint, group []Member, _ int) bool {
	if c.Target == nil || !hasMember(group, *c.Target) {
		return true
	}
	males, _ := genderCounts(group)
	return males <= c.maxBoys()
}

func everyGroup(check func(Constraint, []Member, int) bool) func(Constraint, []Group, int) bool {
	return func(c Constraint, groups []Group, groupSize int) bool {
		for _, grp := range groups {
			if !check(c, grp.Members, groupSize) {
				return false
			}
		}
		return true
	}
}

func groupOf(groups []Group, id int) (int, bool) {
	for _, grp := range groups {
		if hasMember(grp.Members, id) {
			return grp.ID, true
		}
	}
	return 0, false
}

func pairShareGroup(c Constraint, groups []Group, _ int) bool {
	if len(c.Members) != 2 {
		return true
	}
	a, okA := groupOf(groups, c.Members[0])
	b, okB := groupOf(groups, c.Members[1])
	return okA == okB && a == b
}

func distinctGroups(c Constraint, groups []Group, _ int) bool {
	seen := map[int]bool{}
	for _, id := range c.Members {
		gid, ok := groupOf(groups, id)
		if !ok {
			continue
		}
		if seen[gid] {
			return false
		}
		seen[gid] = true
	}
	return true
}

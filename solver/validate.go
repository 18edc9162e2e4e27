package solver

// Validate reports whether groups is an acceptable partition of the
// generator's roster: every member placed exactly once, no group over
// capacity, sizes balanced to within one, and every enabled constraint
// satisfied.
func (g *Generator) Validate(groups []Group) bool {
	n := len(g.members)
	pending := make(map[int]int, n)
	for _, m := range g.members {
		pending[m.ID]++
	}
	for _, grp := range groups {
		if len(grp.Members) > g.groupSize {
			return false
		}
		for _, m := range grp.Members {
			if pending[m.ID] == 0 {
				return false
			}
			pending[m.ID]--
		}
	}
	for _, left := range pending {
		if left != 0 {
			return false
		}
	}

	if len(groups) == 0 {
		return n == 0 && g.allHold(groups)
	}
	lo := n / len(groups)
	hi := (n + len(groups) - 1) / len(groups)
	for _, grp := range groups {
		if len(grp.Members) < lo || len(grp.Members) > hi {
			return false
		}
	}
	return g.allHold(groups)
}

func (g *Generator) allHold(groups []Group) bool {
	return len(g.Violations(groups)) == 0
}

// Violations returns the enabled constraints that groups breaks.
func (g *Generator) Violations(groups []Group) []Constraint {
	var out []Constraint
	for _, c := range g.constraints {
		if !c.holdsGlobal(groups, g.groupSize) {
			out = append(out, c)
		}
	}
	return out
}

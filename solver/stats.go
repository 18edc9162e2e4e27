package solver

import (
	"math"
	"slices"
	"strconv"
	"strings"
)

type Stats struct {
	GroupsWithLeader     int
	PreferencesSatisfied int
	GenderImbalance      float64
	ActiveConstraints    int
}

// ComputeStats summarises a partition. GenderImbalance is the mean absolute
// difference between male and female counts per group, rounded to one decimal.
func ComputeStats(groups []Group, constraints []Constraint) Stats {
	var st Stats
	imbalance := 0
	for _, grp := range groups {
		if slices.ContainsFunc(grp.Members, func(m Member) bool { return m.Leader }) {
			st.GroupsWithLeader++
		}
		for _, m := range grp.Members {
			for _, p := range m.Preferences {
				if p != m.ID && hasMember(grp.Members, p) {
					st.PreferencesSatisfied++
				}
			}
		}
		males, females := genderCounts(grp.Members)
		imbalance += abs(males - females)
	}
	if len(groups) > 0 {
		st.GenderImbalance = math.Round(float64(imbalance)/float64(len(groups))*10) / 10
	}
	for _, c := range constraints {
		if c.Enabled {
			st.ActiveConstraints++
		}
	}
	return st
}

// Key returns a canonical string for a partition that ignores group order and
// member order, so equal partitions from different runs compare equal.
func Key(groups []Group) string {
	var gs [][]int
	for _, grp := range groups {
		if len(grp.Members) == 0 {
			continue
		}
		ids := make([]int, len(grp.Members))
		for i, m := range grp.Members {
			ids[i] = m.ID
		}
		slices.Sort(ids)
		gs = append(gs, ids)
	}
	slices.SortFunc(gs, func(a, b []int) int { return a[0] - b[0] })
	var buf strings.Builder
	for _, g := range gs {
		for i, id := range g {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.Itoa(id))
		}
		buf.WriteByte(';')
	}
	return buf.String()
}

package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeStats(t *testing.T) {
	groups := []Group{
		{ID: 1, Members: []Member{
			member(1, Female, true, 2, 1),
			member(2, Female, false, 1, 9),
			member(3, Female, false),
		}},
		{ID: 2, Members: []Member{
			member(4, Male, false, 5),
			member(5, Female, false),
		}},
	}
	constraints := []Constraint{
		{ID: "a", Kind: CannotBeTogether, Enabled: true},
		{ID: "b", Kind: MustBeTogether, Enabled: false},
		{ID: "c", Kind: "mystery", Enabled: true},
	}

	st := ComputeStats(groups, constraints)
	assert.Equal(t, 1, st.GroupsWithLeader)
	assert.Equal(t, 3, st.PreferencesSatisfied)
	assert.Equal(t, 1.5, st.GenderImbalance)
	assert.Equal(t, 2, st.ActiveConstraints)
}

func TestComputeStatsEmpty(t *testing.T) {
	assert.Equal(t, Stats{}, ComputeStats(nil, nil))
}

func TestComputeStatsRoundsImbalance(t *testing.T) {
	groups := []Group{
		{ID: 1, Members: []Member{member(1, Male, false)}},
		{ID: 2, Members: []Member{member(2, Male, false), member(3, Female, false)}},
		{ID: 3, Members: []Member{member(4, Male, false), member(5, Female, false)}},
	}
	assert.Equal(t, 0.3, ComputeStats(groups, nil).GenderImbalance)
}

func TestKeyIgnoresOrder(t *testing.T) {
	a := []Group{
		{ID: 1, Members: []Member{member(3, Male, false), member(1, Male, false)}},
		{ID: 2, Members: []Member{member(2, Male, false), member(4, Male, false)}},
	}
	b := []Group{
		{ID: 1, Members: []Member{member(4, Male, false), member(2, Male, false)}},
		{ID: 2, Members: []Member{member(1, Male, false), member(3, Male, false)}},
		{ID: 3},
	}
	assert.Equal(t, "1,3;2,4;", Key(a))
	assert.Equal(t, Key(a), Key(b))

	c := []Group{
		{ID: 1, Members: []Member{member(1, Male, false), member(2, Male, false)}},
		{ID: 2, Members: []Member{member(3, Male, false), member(4, Male, false)}},
	}
	assert.NotEqual(t, Key(a), Key(c))
}

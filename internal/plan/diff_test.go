package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute_Partition(t *testing.T) {
	observed := Observed{Users: []string{"a", "b", "c"}}
	p := Compute([]string{"b", "c", "d"}, nil, observed, false)

	assert.Equal(t, []string{"d"}, p.Users.Create)
	assert.Equal(t, []string{"b", "c"}, p.Users.Update)
	assert.Equal(t, []string{"a"}, p.Users.Delete)
}

func TestCompute_MutableSuppressesDeletes(t *testing.T) {
	observed := Observed{Users: []string{"a", "b"}}
	p := Compute([]string{"b"}, nil, observed, true)

	assert.Empty(t, p.Users.Delete)
	assert.Equal(t, []string{"b"}, p.Users.Update)
	assert.Empty(t, p.Users.Create)
}

func TestCompute_Groups(t *testing.T) {
	observed := Observed{Groups: []string{"old"}}
	p := Compute(nil, []string{"new"}, observed, false)

	assert.Equal(t, []string{"new"}, p.Groups.Create)
	assert.Equal(t, []string{"old"}, p.Groups.Delete)
	assert.Empty(t, p.Groups.Update)
}

func TestCompute_SortedOutput(t *testing.T) {
	p := Compute([]string{"zeta", "alpha", "mid"}, nil, Observed{}, false)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, p.Users.Create)
}

func TestDelta_Empty(t *testing.T) {
	assert.True(t, Delta{}.Empty())
	assert.False(t, Delta{Update: []string{"x"}}.Empty())
}

// Package plan computes the delta between declared configuration and
// the observed set of managed accounts and groups.
package plan

import "sort"

// Delta partitions one entity kind into the operations a pass will
// perform. All lists are sorted by name.
type Delta struct {
	Create []string
	Update []string
	Delete []string
}

// Empty reports whether the delta contains no work.
func (d Delta) Empty() bool {
	return len(d.Create) == 0 && len(d.Update) == 0 && len(d.Delete) == 0
}

// Plan is the full work list for one reconciliation pass.
type Plan struct {
	Users  Delta
	Groups Delta
}

// Observed is the managed-marker view of the live directory: names of
// accounts and groups this engine owns. Externally created entities
// never appear here and are never touched.
type Observed struct {
	Users  []string
	Groups []string
}

// Compute diffs declared names against the observed managed set.
// Deletions are only planned when mutable is false; under mutable mode
// extra managed entities are left alone. Updates cover every name
// present on both sides (the reconciler decides how much of an update
// mutable mode permits).
func Compute(declaredUsers, declaredGroups []string, observed Observed, mutable bool) Plan {
	return Plan{
		Users:  diff(declaredUsers, observed.Users, mutable),
		Groups: diff(declaredGroups, observed.Groups, mutable),
	}
}

func diff(declared, observed []string, mutable bool) Delta {
	have := map[string]bool{}
	for _, n := range observed {
		have[n] = true
	}
	want := map[string]bool{}
	for _, n := range declared {
		want[n] = true
	}

	var d Delta
	for n := range want {
		if have[n] {
			d.Update = append(d.Update, n)
		} else {
			d.Create = append(d.Create, n)
		}
	}
	if !mutable {
		for n := range have {
			if !want[n] {
				d.Delete = append(d.Delete, n)
			}
		}
	}
	sort.Strings(d.Create)
	sort.Strings(d.Update)
	sort.Strings(d.Delete)
	return d
}

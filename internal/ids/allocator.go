// Package ids assigns UIDs and GIDs to declared users and groups that
// do not carry one explicitly.
package ids

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/dlubawy/nix-darwin/internal/config"
)

var ErrAllocationExhausted = errors.New("id allocation exhausted")

// Observed holds the identifiers already present on the system,
// including accounts the engine does not manage. Allocated ids never
// collide with these.
type Observed struct {
	UIDs map[int]bool
	GIDs map[int]bool
}

// AssignMissing fills in missing UIDs and GIDs in place. System
// accounts draw from [200,400], normal accounts from 501 upward; groups
// use the same ranges. Assignment is deterministic: entities are
// processed in name order and each gets the lowest free id in its
// range. Pure aside from mutating the declared slices.
func AssignMissing(users []config.User, groups []config.Group, observed Observed) error {
	takenUIDs := map[int]bool{}
	takenGIDs := map[int]bool{}
	for id := range observed.UIDs {
		takenUIDs[id] = true
	}
	for id := range observed.GIDs {
		takenGIDs[id] = true
	}
	for _, u := range users {
		if u.UID != nil {
			takenUIDs[*u.UID] = true
		}
	}
	for _, g := range groups {
		if g.GID != nil {
			takenGIDs[*g.GID] = true
		}
	}

	for _, i := range byName(len(users), func(i int) string { return users[i].Name }) {
		if users[i].UID != nil {
			continue
		}
		lo, hi := rangeFor(users[i].IsSystemAccount())
		id, err := lowestFree(takenUIDs, lo, hi)
		if err != nil {
			return fmt.Errorf("user %s: %w", users[i].Name, err)
		}
		takenUIDs[id] = true
		users[i].UID = &id
	}

	for _, i := range byName(len(groups), func(i int) string { return groups[i].Name }) {
		if groups[i].GID != nil {
			continue
		}
		// Groups named with the system marker prefix allocate from the
		// system range, mirroring the user convention.
		system := len(groups[i].Name) > 0 && groups[i].Name[:1] == config.SystemNamePrefix
		lo, hi := rangeFor(system)
		id, err := lowestFree(takenGIDs, lo, hi)
		if err != nil {
			return fmt.Errorf("group %s: %w", groups[i].Name, err)
		}
		takenGIDs[id] = true
		groups[i].GID = &id
	}
	return nil
}

func rangeFor(system bool) (int, int) {
	if system {
		return config.SystemIDMin, config.SystemIDMax
	}
	return config.NormalIDMin, math.MaxInt32
}

func lowestFree(taken map[int]bool, lo, hi int) (int, error) {
	for id := lo; id <= hi; id++ {
		if !taken[id] {
			return id, nil
		}
	}
	return 0, ErrAllocationExhausted
}

// byName yields indexes ordered by the name of the element they point
// at, so allocation does not depend on declaration order.
func byName(n int, name func(int) string) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return name(idx[a]) < name(idx[b]) })
	return idx
}

package deployment

import "sort"

// The reducers below never mutate their input; callers swap the whole
// sequence in one assignment so interleaved updates cannot be lost.

// Prepend returns a new sequence with d at the front.
func Prepend(list []*Deployment, d *Deployment) []*Deployment {
	out := make([]*Deployment, 0, len(list)+1)
	out = append(out, d)
	return append(out, list...)
}

// ReplaceByID returns a new sequence where the entry matching d's ID is
// replaced by d. Non-matching entries are kept as is; a missing ID leaves the
// sequence unchanged.
func ReplaceByID(list []*Deployment, d *Deployment) []*Deployment {
	out := make([]*Deployment, len(list))
	for i, existing := range list {
		if existing.ID().Equals(d.ID()) {
			out[i] = d
			continue
		}
		out[i] = existing
	}
	return out
}

// SortNewestFirst returns a copy ordered by creation time, descending.
func SortNewestFirst(list []*Deployment) []*Deployment {
	out := append([]*Deployment(nil), list...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt().After(out[j].CreatedAt())
	})
	return out
}

// IsNewestFirst reports whether list is ordered by creation time, descending.
func IsNewestFirst(list []*Deployment) bool {
	for i := 1; i < len(list); i++ {
		if list[i].CreatedAt().After(list[i-1].CreatedAt()) {
			return false
		}
	}
	return true
}

// FindByID returns the entry with the given ID, or nil.
func FindByID(list []*Deployment, id DeploymentID) *Deployment {
	for _, d := range list {
		if d.ID().Equals(id) {
			return d
		}
	}
	return nil
}

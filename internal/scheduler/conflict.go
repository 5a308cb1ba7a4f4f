package scheduler

// Conflict details an overlapping event that claims a resource also requested
// by the candidate.
type Conflict struct {
	WithEvent string
	Resource  string
}

// DetectConflicts identifies conflicts for the candidate event against existing
// ones. Events sharing the candidate's name are skipped so the candidate can be
// checked against a list that still contains its previous version. Results
// follow the order of existing, then the candidate's resource order.
func DetectConflicts(existing []Event, candidate Event) []Conflict {
	if len(candidate.Resources) == 0 {
		return nil
	}

	var conflicts []Conflict
	for _, other := range existing {
		if other.Name == candidate.Name || len(other.Resources) == 0 {
			continue
		}
		if !candidate.Overlaps(other) {
			continue
		}
		for _, resource := range candidate.Resources {
			if other.HasResource(resource) {
				conflicts = append(conflicts, Conflict{WithEvent: other.Name, Resource: resource})
			}
		}
	}
	return conflicts
}

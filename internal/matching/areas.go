package matching

import "fmt"

// CheckAreas scores the overlap between a funder's declared areas and a
// candidate's declared areas. Unresolvable names are dropped; an empty
// resolved candidate list is not computable and scores 0 with no reasoning.
//
// Per candidate area, the first rule that fires wins:
//  1. exact ID match: granularity(candidate area) x 1.0
//  2. candidate area sits inside a funder area (first funder ancestor in
//     declared order): granularity(funder ancestor) x 0.6
//  3. a funder area sits inside the candidate area (first funder descendant
//     in declared order): granularity(candidate area) x 0.4
//  4. no match: 0
//
// The final score is the mean of the non-zero per-area scores.
func (m *Matcher) CheckAreas(funderAreas, userAreas []string) CategoryResult {
	funderIDs := m.taxonomy.ResolveAreas(funderAreas)
	userIDs := m.taxonomy.ResolveAreas(userAreas)

	if len(userIDs) == 0 {
		return CategoryResult{}
	}

	funderSet := make(map[int]struct{}, len(funderIDs))
	for _, id := range funderIDs {
		funderSet[id] = struct{}{}
	}

	var scores []float64
	var reasoning []string

	for _, userArea := range userIDs {
		userName, _ := m.taxonomy.AreaName(userArea)

		if _, ok := funderSet[userArea]; ok {
			scores = append(scores, m.taxonomy.GranularityWeight(userArea)*1.0)
			reasoning = append(reasoning, fmt.Sprintf("Exact match: %s", userName))
			continue
		}

		// Candidate area inside a funder area; first ancestor in funder
		// declared order wins.
		if parent, ok := m.firstAncestor(funderIDs, userArea); ok {
			parentName, _ := m.taxonomy.AreaName(parent)
			scores = append(scores, m.taxonomy.GranularityWeight(parent)*0.6)
			reasoning = append(reasoning,
				fmt.Sprintf("Hierarchical match: %s (user) within %s (funder)", userName, parentName))
			continue
		}

		// Funder area inside the candidate area.
		if child, ok := m.firstDescendant(funderIDs, userArea); ok {
			childName, _ := m.taxonomy.AreaName(child)
			scores = append(scores, m.taxonomy.GranularityWeight(userArea)*0.4)
			reasoning = append(reasoning,
				fmt.Sprintf("Hierarchical match: %s (funder) within %s (user)", childName, userName))
			continue
		}

		scores = append(scores, 0.0)
		reasoning = append(reasoning, fmt.Sprintf("No match: %s", userName))
	}

	return CategoryResult{Score: meanNonZero(scores), Reasoning: reasoning}
}

// firstAncestor returns the first candidate in ids that is an ancestor of
// area, in slice order.
func (m *Matcher) firstAncestor(ids []int, area int) (int, bool) {
	for _, id := range ids {
		if m.taxonomy.IsAncestor(id, area) {
			return id, true
		}
	}
	return 0, false
}

// firstDescendant returns the first candidate in ids that is a descendant
// of area, in slice order.
func (m *Matcher) firstDescendant(ids []int, area int) (int, bool) {
	for _, id := range ids {
		if m.taxonomy.IsAncestor(area, id) {
			return id, true
		}
	}
	return 0, false
}

// meanNonZero averages the positive entries of scores; 0 when none are
// positive. The floor keeps degenerate float sums from going negative.
func meanNonZero(scores []float64) float64 {
	var sum float64
	var n int
	for _, s := range scores {
		if s > 0 {
			sum += s
			n++
		}
	}
	if n == 0 {
		return 0.0
	}
	mean := sum / float64(n)
	if mean < 0 {
		return 0.0
	}
	return mean
}

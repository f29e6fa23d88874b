package matching

import "fmt"

// Sentinel values in the causes and beneficiaries vocabularies. Catch-alls
// signal broad, non-specific scope and trigger weak-match scoring; excluded
// values carry no matching signal and are filtered from both sides.
const (
	causeGeneralPurposes = "General Charitable Purposes"
	causeOtherPurposes   = "Other Charitable Purposes"

	benOtherDefinedGroups = "Other Defined Groups"
	benGeneralPublic      = "The General Public/mankind"
	benOtherCharities     = "Other Charities Or Voluntary Bodies"
)

// weak-match weights: how much a catch-all on the funder side is worth
// compared to a specific match.
const (
	beneficiaryWeakWeight = 0.2
	causeWeakWeight       = 0.6
)

// CheckBeneficiaries scores the overlap between a funder's declared
// beneficiary groups and a candidate's. The excluded sentinel is filtered
// from both sides; either catch-all in the funder list makes unmatched
// candidate groups score a weak match instead of nothing.
func CheckBeneficiaries(funderList, userList []string) CategoryResult {
	exclude := map[string]struct{}{benOtherCharities: {}}
	broad := map[string]struct{}{benOtherDefinedGroups: {}, benGeneralPublic: {}}

	funderBens := filterOut(funderList, exclude)
	userBens := filterOut(userList, exclude)

	if len(userBens) == 0 {
		return CategoryResult{}
	}

	specific := make(map[string]struct{})
	hasBroad := false
	for _, ben := range funderBens {
		if _, ok := broad[ben]; ok {
			hasBroad = true
			continue
		}
		specific[ben] = struct{}{}
	}

	var scores []float64
	var reasoning []string
	for _, userBen := range userBens {
		switch {
		case contains(specific, userBen):
			scores = append(scores, 1.0)
			reasoning = append(reasoning, fmt.Sprintf("Exact match: %s", userBen))
		case hasBroad:
			scores = append(scores, beneficiaryWeakWeight)
			reasoning = append(reasoning,
				fmt.Sprintf("Weak match: user states '%s' and funder supports broad categories", userBen))
		default:
			scores = append(scores, 0.0)
			reasoning = append(reasoning, fmt.Sprintf("No match: %s", userBen))
		}
	}

	return CategoryResult{Score: meanNonZero(scores), Reasoning: reasoning}
}

// CheckCauses scores the overlap between a funder's declared causes and a
// candidate's. Same shape as CheckBeneficiaries with a single catch-all
// ("General Charitable Purposes") and a higher weak-match weight: a
// general-purposes funder is a much stronger signal than a generic
// beneficiary group.
func CheckCauses(funderList, userList []string) CategoryResult {
	exclude := map[string]struct{}{causeOtherPurposes: {}}

	funderCauses := filterOut(funderList, exclude)
	userCauses := filterOut(userList, exclude)

	if len(userCauses) == 0 {
		return CategoryResult{}
	}

	specific := make(map[string]struct{})
	hasGeneral := false
	for _, cause := range funderCauses {
		if cause == causeGeneralPurposes {
			hasGeneral = true
			continue
		}
		specific[cause] = struct{}{}
	}

	var scores []float64
	var reasoning []string
	for _, userCause := range userCauses {
		switch {
		case contains(specific, userCause):
			scores = append(scores, 1.0)
			reasoning = append(reasoning, fmt.Sprintf("Exact match: %s", userCause))
		case hasGeneral:
			scores = append(scores, causeWeakWeight)
			reasoning = append(reasoning,
				fmt.Sprintf("Weak match: user states '%s' and funder supports general charitable purposes", userCause))
		default:
			scores = append(scores, 0.0)
			reasoning = append(reasoning, fmt.Sprintf("No match: %s", userCause))
		}
	}

	return CategoryResult{Score: meanNonZero(scores), Reasoning: reasoning}
}

// filterOut returns the values not present in exclude, preserving order.
func filterOut(values []string, exclude map[string]struct{}) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := exclude[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}

// contains reports set membership.
func contains(set map[string]struct{}, v string) bool {
	_, ok := set[v]
	return ok
}

package matching

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/openfunders/fundermatch/internal/models"
)

// UKCAT specificity level weights for the keyword bonus. More specific tags
// carry more weight; tags missing from the catalogue get the broadest one.
var ukcatLevelWeights = map[int]float64{
	1: 0.3,
	2: 0.7,
	3: 1.0,
}

const ukcatDefaultWeight = 0.3

// KeywordsBonus converts strong keyword matches into a multiplier in
// [1.1, 1.3], weighting each match by the UKCAT specificity of its keyword.
// Returns the neutral 1.0 when there are no strong matches.
func (m *Matcher) KeywordsBonus(strongMatches map[string]float64) Bonus {
	if len(strongMatches) == 0 {
		return Bonus{Value: 1.0}
	}

	keys := make([]string, 0, len(strongMatches))
	for key := range strongMatches {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sum float64
	reasoning := make([]string, 0, len(keys))
	for _, key := range keys {
		weight := m.tagWeight(key)
		weighted := strongMatches[key] * weight
		sum += weighted
		reasoning = append(reasoning, fmt.Sprintf("Strong match %s: %.3f (tag weight %.1f)", key, strongMatches[key], weight))
	}
	avg := sum / float64(len(keys))

	bonus := 1.1 + avg*0.2
	if bonus < 1.1 {
		bonus = 1.1
	}
	if bonus > 1.3 {
		bonus = 1.3
	}
	return Bonus{Value: bonus, Reasoning: reasoning}
}

// tagWeight resolves the UKCAT level weight for a strong-match key of the
// form "funder_kw & user_kw". Either side of the pair may be the catalogued
// tag; the funder side is tried first.
func (m *Matcher) tagWeight(pairKey string) float64 {
	for _, part := range strings.SplitN(pairKey, " & ", 2) {
		if level, ok := m.taxonomy.TagLevel(strings.TrimSpace(part)); ok {
			if w, ok := ukcatLevelWeights[level]; ok {
				return w
			}
			return 1.0
		}
	}
	return ukcatDefaultWeight
}

// CalculateRelationshipBonus turns an existing relationship into a
// recency-banded multiplier, with an uplift for recurring giving. Returns
// the neutral 1.0 when no relationship exists.
func CalculateRelationshipBonus(rel Relationship, now time.Time) RelationshipBonus {
	if !rel.Exists {
		return RelationshipBonus{Bonus: Bonus{Value: 1.0}}
	}

	lastYear := 0
	for _, g := range rel.Grants {
		if g.Year > lastYear {
			lastYear = g.Year
		}
	}
	lapsed := now.Year() - lastYear

	var bonus float64
	switch {
	case lapsed <= 2:
		bonus = 1.5
	case lapsed <= 3:
		bonus = 1.4
	case lapsed <= 5:
		bonus = 1.3
	case lapsed <= 10:
		bonus = 1.2
	default:
		bonus = 1.1
	}

	reasoning := []string{fmt.Sprintf("Last grant %d (%d years ago)", lastYear, lapsed)}
	if rel.Count >= 5 {
		bonus += 0.1
		reasoning = append(reasoning, fmt.Sprintf("Recurring relationship: %d grants", rel.Count))
	}

	return RelationshipBonus{
		Bonus:         Bonus{Value: bonus, Reasoning: reasoning},
		TimeLapsed:    lapsed,
		LastGrantYear: lastYear,
	}
}

// AreasBonusRP rewards candidates whose areas match where the funder has
// actually given: the pooled recipient areas from the grant history are run
// through the area matcher as if they were the funder's declared list.
// Reasoning is restricted to fine-grained areas (granularity >= 0.9), top
// ten by grant frequency. Neutral when there is no usable history.
func (m *Matcher) AreasBonusRP(history *models.GrantHistory, userAreas []string) Bonus {
	if history.Empty() {
		return Bonus{Value: 1.0, Reasoning: []string{"No grants history available"}}
	}

	var pooled []string
	for _, g := range history.Grants {
		pooled = append(pooled, g.RecipientAreas...)
	}
	if len(pooled) == 0 {
		return Bonus{Value: 1.0, Reasoning: []string{"No area data available"}}
	}

	// Deduplicate and sort so the matcher's first-match-in-order rules see a
	// stable list regardless of grant ordering.
	seen := make(map[string]struct{}, len(pooled))
	var unique []string
	for _, name := range pooled {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		unique = append(unique, name)
	}
	sort.Strings(unique)

	match := m.CheckAreas(unique, userAreas)
	bonus := 1.0 + match.Score*0.2

	// Frequency reasoning over fine-grained areas only: broad regions in a
	// history say little about where a funder focuses.
	counts := make(map[string]int)
	totalFine := 0
	for _, name := range pooled {
		id, ok := m.taxonomy.AreaID(name)
		if !ok || m.taxonomy.GranularityWeight(id) < 0.9 {
			continue
		}
		counts[name]++
		totalFine++
	}
	if len(counts) == 0 {
		return Bonus{Value: bonus, Reasoning: []string{"Only broad geographic areas found"}}
	}

	type areaCount struct {
		name  string
		count int
	}
	ranked := make([]areaCount, 0, len(counts))
	for name, count := range counts {
		ranked = append(ranked, areaCount{name: name, count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].name < ranked[j].name
	})
	if len(ranked) > 10 {
		ranked = ranked[:10]
	}

	reasoning := make([]string, 0, len(ranked))
	for _, ac := range ranked {
		pct := float64(ac.count) / float64(totalFine) * 100
		reasoning = append(reasoning, fmt.Sprintf("%s: %d grants (%.1f%%)", ac.name, ac.count, pct))
	}
	return Bonus{Value: bonus, Reasoning: reasoning}
}

// KeywordsBonusRP rewards exact (non-semantic) overlap between the
// candidate's keywords and the extracted classifications of the funder's
// prior recipients. Neutral when history or keywords are missing.
func KeywordsBonusRP(history *models.GrantHistory, userKeywords []string) Bonus {
	if history.Empty() {
		return Bonus{Value: 1.0, Reasoning: []string{"No grants history available"}}
	}
	if len(userKeywords) == 0 {
		return Bonus{Value: 1.0, Reasoning: []string{"No user keywords to match"}}
	}

	poolCounts := make(map[string]int)
	total := 0
	for _, g := range history.Grants {
		for _, kw := range g.RecipientClasses {
			poolCounts[kw]++
			total++
		}
	}
	if total == 0 {
		return Bonus{Value: 1.0, Reasoning: []string{"No recipient keywords available"}}
	}

	matched := make(map[string]int)
	matchedUser := make(map[string]struct{})
	for _, kw := range userKeywords {
		if count, ok := poolCounts[kw]; ok {
			matchedUser[kw] = struct{}{}
			matched[kw] += count
		}
	}

	matchPct := float64(len(matchedUser)) / float64(len(userKeywords))
	var bonus float64
	switch {
	case matchPct >= 0.9:
		bonus = 1.1
	case matchPct >= 0.5:
		bonus = 1.05
	default:
		bonus = 1.0 + matchPct*0.2
	}

	if len(matched) == 0 {
		return Bonus{Value: bonus, Reasoning: []string{"No exact keyword matches found"}}
	}

	type kwCount struct {
		keyword string
		count   int
	}
	ranked := make([]kwCount, 0, len(matched))
	for kw, count := range matched {
		ranked = append(ranked, kwCount{keyword: kw, count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].keyword < ranked[j].keyword
	})
	if len(ranked) > 10 {
		ranked = ranked[:10]
	}

	reasoning := make([]string, 0, len(ranked))
	for _, kc := range ranked {
		reasoning = append(reasoning, fmt.Sprintf("%s: %d occurrences", kc.keyword, kc.count))
	}
	return Bonus{Value: bonus, Reasoning: reasoning}
}

// LowVariancePenalty penalizes funders that repeatedly fund the same narrow
// set of recipients. Funders with fewer than ten grants are exempt: too
// little history to call the giving low-variance.
func LowVariancePenalty(history *models.GrantHistory) float64 {
	if history.Empty() || len(history.Grants) < 10 {
		return 1.0
	}

	unique := make(map[string]struct{}, len(history.Grants))
	for _, g := range history.Grants {
		unique[g.RecipientName] = struct{}{}
	}

	varianceProportion := float64(len(unique)) / float64(len(history.Grants))
	if varianceProportion < 0.3 {
		return 0.7
	}
	return 1.0
}

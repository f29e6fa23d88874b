// Package matching implements the funder-candidate compatibility scoring
// engine: category matchers over the taxonomy, semantic keyword matching,
// revealed-preference matching over grant history, and the bonus/penalty
// multipliers combined into one final score with a reasoning trail.
package matching

import "github.com/openfunders/fundermatch/internal/models"

// CategoryResult is the outcome of a categorical matcher (areas,
// beneficiaries, causes): a score in [0, 1] and one reasoning line per
// compared item.
type CategoryResult struct {
	Score     float64  `json:"score"`
	Reasoning []string `json:"reasoning"`
}

// KeywordResult is the outcome of the keyword semantic matcher. Strong
// matches (similarity at or above the threshold) are excluded from Score
// and instead make the pair eligible for the keyword bonus.
type KeywordResult struct {
	Score         float64            `json:"score"`
	StrongMatches map[string]float64 `json:"strong_matches"`
	Reasoning     []string           `json:"reasoning"`
	BonusEligible bool               `json:"bonus_eligible"`
}

// RPResult is the outcome of a revealed-preference matcher: the average
// similarity of the candidate against the top entries of the funder's
// giving history.
type RPResult struct {
	Score     float64  `json:"score"`
	Reasoning []string `json:"reasoning"`
}

// Relationship describes an existing funder-candidate grant history.
type Relationship struct {
	Exists bool           `json:"exists"`
	Count  int            `json:"count"`
	Grants []models.Grant `json:"-"`
}

// Bonus is a multiplicative score adjustment with its explanation. Value is
// 1.0 when the trigger condition is not met.
type Bonus struct {
	Value     float64  `json:"value"`
	Reasoning []string `json:"reasoning"`
}

// RelationshipBonus extends Bonus with the recency details behind the band.
type RelationshipBonus struct {
	Bonus
	TimeLapsed    int `json:"time_lapsed"`
	LastGrantYear int `json:"last_grant_year"`
}

// Result is the full scoring outcome for one funder-candidate pair: every
// sub-score with its reasoning, every multiplier, and the combined final
// score. This is the audit trail the presentation layer renders.
type Result struct {
	FunderNum  string `json:"funder_num"`
	FunderName string `json:"funder_name,omitempty"`

	Areas         CategoryResult `json:"areas"`
	Beneficiaries CategoryResult `json:"beneficiaries"`
	Causes        CategoryResult `json:"causes"`
	Keywords      KeywordResult  `json:"keywords"`
	NameRP        RPResult       `json:"name_rp"`
	GrantsRP      RPResult       `json:"grants_rp"`
	RecipientsRP  RPResult       `json:"recipients_rp"`

	Relationship Relationship `json:"relationship"`

	KeywordsBonus      Bonus             `json:"keywords_bonus"`
	RelationshipBonus  RelationshipBonus `json:"relationship_bonus"`
	AreasBonusRP       Bonus             `json:"areas_bonus_rp"`
	KeywordsBonusRP    Bonus             `json:"keywords_bonus_rp"`
	LowVariancePenalty float64           `json:"low_variance_penalty"`

	BaseScore  float64 `json:"base_score"`
	FinalScore float64 `json:"final_score"`
}

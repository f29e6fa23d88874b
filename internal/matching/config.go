package matching

// Config holds the weights and thresholds of the scoring policy. The
// aggregation weights are deliberately configuration, not constants: the
// right blend is an open tuning question, so deployments override them in
// yaml rather than in code.
type Config struct {
	// Weights for the base weighted-average of sub-scores.
	AreasWeight         float64 `yaml:"areas_weight"`         // default: 0.20
	BeneficiariesWeight float64 `yaml:"beneficiaries_weight"` // default: 0.15
	CausesWeight        float64 `yaml:"causes_weight"`        // default: 0.15
	KeywordsWeight      float64 `yaml:"keywords_weight"`      // default: 0.20
	NameRPWeight        float64 `yaml:"name_rp_weight"`       // default: 0.05
	GrantsRPWeight      float64 `yaml:"grants_rp_weight"`     // default: 0.125
	RecipientsRPWeight  float64 `yaml:"recipients_rp_weight"` // default: 0.125

	// StrongMatchThreshold is the similarity at or above which a keyword
	// pair counts as a strong match (feeding the bonus, not the base score).
	StrongMatchThreshold float64 `yaml:"strong_match_threshold"` // default: 0.90

	// PairTopK is how many sub-threshold keyword pairs average into the
	// base keyword score; PairReasoningTopK how many appear in reasoning.
	PairTopK          int `yaml:"pair_top_k"`           // default: 10
	PairReasoningTopK int `yaml:"pair_reasoning_top_k"` // default: 9

	// RPTopK is how many history entries average into each
	// revealed-preference score.
	RPTopK int `yaml:"rp_top_k"` // default: 10
}

// DefaultConfig returns the default scoring policy.
func DefaultConfig() *Config {
	return &Config{
		AreasWeight:         0.20,
		BeneficiariesWeight: 0.15,
		CausesWeight:        0.15,
		KeywordsWeight:      0.20,
		NameRPWeight:        0.05,
		GrantsRPWeight:      0.125,
		RecipientsRPWeight:  0.125,

		StrongMatchThreshold: 0.90,
		PairTopK:             10,
		PairReasoningTopK:    9,
		RPTopK:               10,
	}
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.AreasWeight == 0 {
		c.AreasWeight = d.AreasWeight
	}
	if c.BeneficiariesWeight == 0 {
		c.BeneficiariesWeight = d.BeneficiariesWeight
	}
	if c.CausesWeight == 0 {
		c.CausesWeight = d.CausesWeight
	}
	if c.KeywordsWeight == 0 {
		c.KeywordsWeight = d.KeywordsWeight
	}
	if c.NameRPWeight == 0 {
		c.NameRPWeight = d.NameRPWeight
	}
	if c.GrantsRPWeight == 0 {
		c.GrantsRPWeight = d.GrantsRPWeight
	}
	if c.RecipientsRPWeight == 0 {
		c.RecipientsRPWeight = d.RecipientsRPWeight
	}
	if c.StrongMatchThreshold == 0 {
		c.StrongMatchThreshold = d.StrongMatchThreshold
	}
	if c.PairTopK == 0 {
		c.PairTopK = d.PairTopK
	}
	if c.PairReasoningTopK == 0 {
		c.PairReasoningTopK = d.PairReasoningTopK
	}
	if c.RPTopK == 0 {
		c.RPTopK = d.RPTopK
	}
}

// TotalWeight returns the sum of the base weights, used to normalize the
// weighted average.
func (c *Config) TotalWeight() float64 {
	return c.AreasWeight + c.BeneficiariesWeight + c.CausesWeight +
		c.KeywordsWeight + c.NameRPWeight + c.GrantsRPWeight + c.RecipientsRPWeight
}

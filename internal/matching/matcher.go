package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/openfunders/fundermatch/internal/embedding"
	"github.com/openfunders/fundermatch/internal/models"
	"github.com/openfunders/fundermatch/internal/taxonomy"
)

// Matcher scores funder-candidate pairs. It is stateless apart from its
// injected dependencies (taxonomy, embedder, weights), so one instance is
// safe to share across scoring workers.
type Matcher struct {
	config   *Config
	taxonomy *taxonomy.Store
	embedder embedding.Embedder
}

// NewMatcher creates a matcher. A nil config gets the defaults.
func NewMatcher(cfg *Config, tax *taxonomy.Store, embedder embedding.Embedder) *Matcher {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.ApplyDefaults()
	return &Matcher{config: cfg, taxonomy: tax, embedder: embedder}
}

// Config returns the matcher's scoring policy.
func (m *Matcher) Config() *Config {
	return m.config
}

// Score computes the full compatibility result for one funder-candidate
// pair at the given time. All inputs are read in-memory; the only error
// source is the embedder. Missing history, empty lists, and unresolvable
// taxonomy terms are valid states that adjust nothing.
func (m *Matcher) Score(ctx context.Context, funder *models.Funder, cand *models.Candidate, now time.Time) (*Result, error) {
	r := &Result{
		FunderNum:  funder.RegisteredNum,
		FunderName: funder.Name,
	}

	r.Areas = m.CheckAreas(funder.Areas, cand.Areas)
	r.Beneficiaries = CheckBeneficiaries(funder.Beneficiaries, cand.Beneficiaries)
	r.Causes = CheckCauses(funder.Causes, cand.Causes)

	kw, err := m.CheckKeywords(ctx, funder.Keywords, cand.Keywords)
	if err != nil {
		return nil, fmt.Errorf("funder %s: %w", funder.RegisteredNum, err)
	}
	r.Keywords = kw

	history := funder.History
	if history != nil {
		r.NameRP = m.CheckNameRP(history.NameEmbeddings, cand.Embedding, cand.Name)
		r.GrantsRP = m.CheckGrantsRP(history.GrantEmbeddings, cand.Embedding, cand.Name)
		r.RecipientsRP = m.CheckRecipientsRP(history.RecipientEmbeddings, cand.Embedding, cand.Name)
		r.Relationship = CheckRelationship(history.Grants, funder.RegisteredNum, cand.RecipientID)
	}

	if r.Keywords.BonusEligible {
		r.KeywordsBonus = m.KeywordsBonus(r.Keywords.StrongMatches)
	} else {
		r.KeywordsBonus = Bonus{Value: 1.0}
	}
	r.RelationshipBonus = CalculateRelationshipBonus(r.Relationship, now)
	r.AreasBonusRP = m.AreasBonusRP(history, cand.Areas)
	r.KeywordsBonusRP = KeywordsBonusRP(history, cand.Keywords)
	r.LowVariancePenalty = LowVariancePenalty(history)

	r.BaseScore = m.Combine(r)
	r.FinalScore = r.BaseScore *
		r.KeywordsBonus.Value *
		r.RelationshipBonus.Value *
		r.AreasBonusRP.Value *
		r.KeywordsBonusRP.Value *
		r.LowVariancePenalty

	return r, nil
}

// Combine folds the seven sub-scores into the base score: a weighted
// average normalized by the total weight, so the base stays in [0, 1]
// whatever the configured blend.
func (m *Matcher) Combine(r *Result) float64 {
	total := m.config.TotalWeight()
	if total == 0 {
		return 0.0
	}
	sum := m.config.AreasWeight*r.Areas.Score +
		m.config.BeneficiariesWeight*r.Beneficiaries.Score +
		m.config.CausesWeight*r.Causes.Score +
		m.config.KeywordsWeight*r.Keywords.Score +
		m.config.NameRPWeight*r.NameRP.Score +
		m.config.GrantsRPWeight*r.GrantsRP.Score +
		m.config.RecipientsRPWeight*r.RecipientsRP.Score
	return sum / total
}

package matching

import (
	"context"
	"fmt"
	"sort"

	"github.com/openfunders/fundermatch/internal/vector"
)

// keywordPair is one cell of the funder x user keyword cross-product.
type keywordPair struct {
	funderKeyword string
	userKeyword   string
	similarity    float64
}

// CheckKeywords runs the all-pairs semantic comparison between funder
// keywords and user keywords. Every pair's cosine similarity is computed;
// pairs at or above the strong-match threshold are collected separately and
// make the pair bonus-eligible, while the base score is the mean similarity
// of the top sub-threshold pairs. Strong matches never feed the base score.
//
// Returns an error only if the embedder fails; empty keyword lists are a
// valid state scoring 0.
func (m *Matcher) CheckKeywords(ctx context.Context, funderKeywords, userKeywords []string) (KeywordResult, error) {
	if len(funderKeywords) == 0 || len(userKeywords) == 0 {
		return KeywordResult{
			StrongMatches: map[string]float64{},
			Reasoning:     []string{"No keywords to compare"},
		}, nil
	}

	funderVecs, err := m.embedder.EmbedBatch(ctx, funderKeywords)
	if err != nil {
		return KeywordResult{}, fmt.Errorf("embed funder keywords: %w", err)
	}
	userVecs, err := m.embedder.EmbedBatch(ctx, userKeywords)
	if err != nil {
		return KeywordResult{}, fmt.Errorf("embed user keywords: %w", err)
	}

	pairs := make([]keywordPair, 0, len(funderKeywords)*len(userKeywords))
	for i, fkw := range funderKeywords {
		for j, ukw := range userKeywords {
			pairs = append(pairs, keywordPair{
				funderKeyword: fkw,
				userKeyword:   ukw,
				similarity:    vector.Similarity(funderVecs[i], userVecs[j]),
			})
		}
	}

	// Similarity descending; keyword text breaks ties so identical inputs
	// always produce identical output.
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].similarity != pairs[j].similarity {
			return pairs[i].similarity > pairs[j].similarity
		}
		if pairs[i].funderKeyword != pairs[j].funderKeyword {
			return pairs[i].funderKeyword < pairs[j].funderKeyword
		}
		return pairs[i].userKeyword < pairs[j].userKeyword
	})

	strong := map[string]float64{}
	var rest []keywordPair
	for _, p := range pairs {
		if p.similarity >= m.config.StrongMatchThreshold {
			strong[fmt.Sprintf("%s & %s", p.funderKeyword, p.userKeyword)] = p.similarity
		} else {
			rest = append(rest, p)
		}
	}

	score := 0.0
	if top := topPairs(rest, m.config.PairTopK); len(top) > 0 {
		var sum float64
		for _, p := range top {
			sum += p.similarity
		}
		score = sum / float64(len(top))
	}

	var reasoning []string
	for _, p := range topPairs(rest, m.config.PairReasoningTopK) {
		reasoning = append(reasoning,
			fmt.Sprintf("'%s' & '%s': %.3f", p.funderKeyword, p.userKeyword, p.similarity))
	}

	if score < 0 {
		score = 0.0
	}
	return KeywordResult{
		Score:         score,
		StrongMatches: strong,
		Reasoning:     reasoning,
		BonusEligible: len(strong) > 0,
	}, nil
}

// topPairs returns up to k leading pairs.
func topPairs(pairs []keywordPair, k int) []keywordPair {
	if len(pairs) <= k {
		return pairs
	}
	return pairs[:k]
}

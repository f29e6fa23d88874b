package matching

import (
	"fmt"
	"sort"

	"github.com/openfunders/fundermatch/internal/models"
	"github.com/openfunders/fundermatch/internal/vector"
)

// CheckNameRP scores the candidate's name against the names of the funder's
// previous recipients: a funder that keeps giving to similarly-named
// organizations has revealed a preference the stated mission may not.
func (m *Matcher) CheckNameRP(history map[string]models.Vector, userEmbedding models.Vector, userName string) RPResult {
	return m.checkRP(history, userEmbedding, userName)
}

// CheckGrantsRP scores the candidate's narrative text against the texts of
// the funder's previous grants.
func (m *Matcher) CheckGrantsRP(history map[string]models.Vector, userEmbedding models.Vector, userName string) RPResult {
	return m.checkRP(history, userEmbedding, userName)
}

// CheckRecipientsRP scores the candidate's narrative text against the
// narrative texts of the funder's previous recipients.
func (m *Matcher) CheckRecipientsRP(history map[string]models.Vector, userEmbedding models.Vector, userName string) RPResult {
	return m.checkRP(history, userEmbedding, userName)
}

// checkRP compares the candidate's embedding against every history entry
// except the candidate itself (a recipient that previously received a grant
// must not match its own record), sorts descending, and averages the top
// entries. An empty filtered history scores 0.
func (m *Matcher) checkRP(history map[string]models.Vector, userEmbedding models.Vector, selfKey string) RPResult {
	type scored struct {
		key        string
		similarity float64
	}

	entries := make([]scored, 0, len(history))
	for key, emb := range history {
		if key == selfKey {
			continue
		}
		entries = append(entries, scored{key: key, similarity: vector.Similarity(emb, userEmbedding)})
	}

	// Similarity descending, key ascending on ties: map iteration order must
	// not leak into the result.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].similarity != entries[j].similarity {
			return entries[i].similarity > entries[j].similarity
		}
		return entries[i].key < entries[j].key
	})

	if len(entries) > m.config.RPTopK {
		entries = entries[:m.config.RPTopK]
	}
	if len(entries) == 0 {
		return RPResult{}
	}

	var sum float64
	reasoning := make([]string, 0, len(entries))
	for _, e := range entries {
		sum += e.similarity
		reasoning = append(reasoning, fmt.Sprintf("%s: %.3f", e.key, e.similarity))
	}
	score := sum / float64(len(entries))
	if score < 0 {
		score = 0.0
	}
	return RPResult{Score: score, Reasoning: reasoning}
}

// CheckRelationship filters the grant history to grants from funderNum to
// recipientID. Pure filter, no scoring.
func CheckRelationship(grants []models.Grant, funderNum, recipientID string) Relationship {
	if recipientID == "" {
		return Relationship{}
	}
	var matched []models.Grant
	for _, g := range grants {
		if g.FunderNum == funderNum && g.RecipientID == recipientID {
			matched = append(matched, g)
		}
	}
	return Relationship{
		Exists: len(matched) > 0,
		Count:  len(matched),
		Grants: matched,
	}
}

package models

// Grant is a historical disbursement from a funder to a recipient: the unit
// of revealed-preference evidence and of relationship history. Grants are
// append-only fact records.
type Grant struct {
	ID               string      `json:"grant_id" db:"grant_id"`
	FunderNum        string      `json:"funder_num" db:"funder_num"`
	RecipientID      string      `json:"recipient_id" db:"recipient_id"`
	RecipientName    string      `json:"recipient_name" db:"recipient_name"`
	Amount           float64     `json:"amount" db:"amount"`
	Year             int         `json:"year" db:"year"`
	RecipientAreas   []string    `json:"recipient_areas" db:"recipient_areas"`
	RecipientClasses KeywordList `json:"recipient_extracted_class" db:"recipient_extracted_class"`
}

// GrantHistory is a funder's giving history materialized for scoring:
// the raw grant rows plus the precomputed embedding collections the
// revealed-preference matchers compare against. Name and recipient maps
// are keyed by recipient name; grant texts by grant id.
type GrantHistory struct {
	Grants []Grant `json:"grants"`

	// NameEmbeddings holds embeddings of prior recipient names.
	NameEmbeddings map[string]Vector `json:"-"`
	// GrantEmbeddings holds embeddings of prior grant texts.
	GrantEmbeddings map[string]Vector `json:"-"`
	// RecipientEmbeddings holds embeddings of prior recipients' narrative text.
	RecipientEmbeddings map[string]Vector `json:"-"`
}

// Empty reports whether the history carries no grants.
func (h *GrantHistory) Empty() bool {
	return h == nil || len(h.Grants) == 0
}

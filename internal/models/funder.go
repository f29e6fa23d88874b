package models

// Funder is a registered charitable funder with its declared classifications
// and, when loaded for scoring, its grant history. Matching inputs are
// read-only snapshots at scoring time.
type Funder struct {
	RegisteredNum string      `json:"registered_num" db:"registered_num"`
	Name          string      `json:"name" db:"name"`
	Objectives    string      `json:"objectives,omitempty" db:"objectives"`
	Areas         []string    `json:"areas" db:"areas"`
	Causes        []string    `json:"causes" db:"causes"`
	Beneficiaries []string    `json:"beneficiaries" db:"beneficiaries"`
	Keywords      KeywordList `json:"keywords" db:"keywords"`
	Embedding     Vector      `json:"-" db:"embedding"`

	// History is the funder's giving history; nil when not yet loaded.
	History *GrantHistory `json:"-" db:"-"`
}

// Candidate is a charity seeking funding, supplied at query time. It carries
// the same matching attributes as a funder plus an optional registered
// recipient ID used for relationship detection and self-exclusion.
type Candidate struct {
	Name          string      `json:"name"`
	RecipientID   string      `json:"recipient_id,omitempty"`
	Areas         []string    `json:"areas"`
	Causes        []string    `json:"causes"`
	Beneficiaries []string    `json:"beneficiaries"`
	Keywords      KeywordList `json:"keywords"`
	Embedding     Vector      `json:"embedding,omitempty"`
}

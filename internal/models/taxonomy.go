// Package models defines core data structures for funders, grants, candidates, and taxonomy.
package models

// AreaLevel is the granularity tier of a geographic area.
type AreaLevel string

const (
	// AreaLevelLocalAuthority is an England/Wales local authority.
	AreaLevelLocalAuthority AreaLevel = "local_authority"
	// AreaLevelMetropolitanCounty is an England metropolitan county.
	AreaLevelMetropolitanCounty AreaLevel = "metropolitan_county"
	// AreaLevelRegion is an England/Wales region.
	AreaLevelRegion AreaLevel = "region"
	// AreaLevelCountry is a country.
	AreaLevelCountry AreaLevel = "country"
	// AreaLevelContinent is a continent.
	AreaLevelContinent AreaLevel = "continent"
)

// GranularityWeight returns the scalar weight for the level: finer areas
// score higher. Unknown levels get 0.5.
func (l AreaLevel) GranularityWeight() float64 {
	switch l {
	case AreaLevelLocalAuthority, AreaLevelCountry:
		return 1.0
	case AreaLevelMetropolitanCounty:
		return 0.85
	case AreaLevelRegion, AreaLevelContinent:
		return 0.7
	default:
		return 0.5
	}
}

// Area is a geographic area from the reference taxonomy. Immutable once
// created; unique on (Name, Level).
type Area struct {
	ID    int       `json:"area_id" db:"area_id"`
	Name  string    `json:"area_name" db:"area_name"`
	Level AreaLevel `json:"area_level" db:"area_level"`
}

// HierarchyEdge is a parent-to-child edge in the area hierarchy
// (e.g. region -> local authority).
type HierarchyEdge struct {
	ParentID int `json:"parent_area_id" db:"parent_area_id"`
	ChildID  int `json:"child_area_id" db:"child_area_id"`
}

// Cause is an entry in the charitable-causes controlled vocabulary.
type Cause struct {
	ID   int    `json:"cause_id" db:"cause_id"`
	Name string `json:"cause_name" db:"cause_name"`
}

// Beneficiary is an entry in the beneficiary-groups controlled vocabulary.
type Beneficiary struct {
	ID   int    `json:"ben_id" db:"ben_id"`
	Name string `json:"ben_name" db:"ben_name"`
}

// UKCATTag is an entry in the UK charity classification tag catalogue.
// Level encodes specificity (1 = broadest, 3 = most specific) and feeds
// the keyword bonus weighting. Pattern and ExcludePattern are the regexes
// used for classification extraction from narrative text.
type UKCATTag struct {
	Tag            string `json:"tag" db:"tag"`
	Level          int    `json:"level" db:"level"`
	Pattern        string `json:"pattern,omitempty" db:"pattern"`
	ExcludePattern string `json:"exclude_pattern,omitempty" db:"exclude_pattern"`
}

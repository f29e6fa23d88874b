// Package taxonomy provides in-memory lookup structures for the area
// hierarchy and the UKCAT tag catalogue. Reference data is loaded once and
// never mutated afterwards, so lookups are safe for concurrent use.
package taxonomy

import (
	"strings"

	"github.com/openfunders/fundermatch/internal/models"
)

// Store indexes areas, hierarchy edges, and UKCAT tags for matching.
type Store struct {
	areasByID   map[int]models.Area
	areasByName map[string]models.Area
	children    map[int][]int
	tagsByName  map[string]models.UKCATTag
}

// NewStore builds a store from reference tables. Duplicate area names keep
// the first occurrence; edges referencing unknown areas are kept as-is
// (reachability simply never visits them).
func NewStore(areas []models.Area, edges []models.HierarchyEdge, tags []models.UKCATTag) *Store {
	s := &Store{
		areasByID:   make(map[int]models.Area, len(areas)),
		areasByName: make(map[string]models.Area, len(areas)),
		children:    make(map[int][]int),
		tagsByName:  make(map[string]models.UKCATTag, len(tags)),
	}
	for _, a := range areas {
		s.areasByID[a.ID] = a
		if _, ok := s.areasByName[a.Name]; !ok {
			s.areasByName[a.Name] = a
		}
	}
	for _, e := range edges {
		s.children[e.ParentID] = append(s.children[e.ParentID], e.ChildID)
	}
	for _, t := range tags {
		key := strings.ToUpper(t.Tag)
		if _, ok := s.tagsByName[key]; !ok {
			s.tagsByName[key] = t
		}
	}
	return s
}

// AreaID resolves an area name to its ID.
func (s *Store) AreaID(name string) (int, bool) {
	a, ok := s.areasByName[name]
	return a.ID, ok
}

// AreaName resolves an area ID to its name.
func (s *Store) AreaName(id int) (string, bool) {
	a, ok := s.areasByID[id]
	return a.Name, ok
}

// GranularityWeight returns the granularity weight for an area ID.
// Unknown IDs get the catch-all weight 0.5.
func (s *Store) GranularityWeight(id int) float64 {
	a, ok := s.areasByID[id]
	if !ok {
		return 0.5
	}
	return a.Level.GranularityWeight()
}

// ResolveAreas maps area names to IDs, silently dropping names that are not
// in the taxonomy. Callers may legitimately use terms outside the controlled
// vocabulary.
func (s *Store) ResolveAreas(names []string) []int {
	ids := make([]int, 0, len(names))
	for _, name := range names {
		if id, ok := s.AreaID(name); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// IsAncestor reports whether child is reachable from parent by following
// child edges. The worklist carries a visited set so traversal terminates
// even if the hierarchy data has been corrupted into a cycle.
func (s *Store) IsAncestor(parent, child int) bool {
	if parent == child {
		return false
	}
	visited := make(map[int]struct{})
	stack := []int{parent}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range s.children[current] {
			if c == child {
				return true
			}
			if _, seen := visited[c]; seen {
				continue
			}
			visited[c] = struct{}{}
			stack = append(stack, c)
		}
	}
	return false
}

// Descendants returns the set of all areas reachable from id.
func (s *Store) Descendants(id int) map[int]struct{} {
	descendants := make(map[int]struct{})
	stack := []int{id}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range s.children[current] {
			if _, seen := descendants[c]; seen {
				continue
			}
			descendants[c] = struct{}{}
			stack = append(stack, c)
		}
	}
	return descendants
}

// TagLevel returns the UKCAT specificity level for a tag, matched
// case-insensitively.
func (s *Store) TagLevel(tag string) (int, bool) {
	t, ok := s.tagsByName[strings.ToUpper(tag)]
	if !ok {
		return 0, false
	}
	return t.Level, true
}

// Tags returns all UKCAT tags in the catalogue.
func (s *Store) Tags() []models.UKCATTag {
	tags := make([]models.UKCATTag, 0, len(s.tagsByName))
	for _, t := range s.tagsByName {
		tags = append(tags, t)
	}
	return tags
}

// Areas returns all areas in the taxonomy.
func (s *Store) Areas() []models.Area {
	areas := make([]models.Area, 0, len(s.areasByID))
	for _, a := range s.areasByID {
		areas = append(areas, a)
	}
	return areas
}

package matching

import (
	"math"
	"reflect"
	"testing"

	"github.com/openfunders/fundermatch/internal/models"
	"github.com/openfunders/fundermatch/internal/taxonomy"
)

func TestCheckAreasExactMatch(t *testing.T) {
	m := newTestMatcher(nil)

	got := m.CheckAreas([]string{"Manchester"}, []string{"Manchester"})
	if math.Abs(got.Score-1.0) > 1e-9 {
		t.Errorf("Score = %v, want 1.0", got.Score)
	}
	want := []string{"Exact match: Manchester"}
	if !reflect.DeepEqual(got.Reasoning, want) {
		t.Errorf("Reasoning = %v, want %v", got.Reasoning, want)
	}
}

// A user area inside a funder area scores the funder ancestor's granularity
// weight times 0.6. With a region-level parent (weight 0.7) that is 0.42.
func TestCheckAreasUserWithinFunder(t *testing.T) {
	areas := []models.Area{
		{ID: 1, Name: "Greater Manchester", Level: models.AreaLevelRegion},
		{ID: 2, Name: "Manchester", Level: models.AreaLevelLocalAuthority},
	}
	edges := []models.HierarchyEdge{{ParentID: 1, ChildID: 2}}
	m := NewMatcher(nil, taxonomy.NewStore(areas, edges, nil), nil)

	got := m.CheckAreas([]string{"Greater Manchester"}, []string{"Manchester"})
	if math.Abs(got.Score-0.42) > 1e-9 {
		t.Errorf("Score = %v, want 0.42", got.Score)
	}
	want := []string{"Hierarchical match: Manchester (user) within Greater Manchester (funder)"}
	if !reflect.DeepEqual(got.Reasoning, want) {
		t.Errorf("Reasoning = %v, want %v", got.Reasoning, want)
	}
}

// A funder area inside a user area scores the user area's granularity
// weight times 0.4.
func TestCheckAreasFunderWithinUser(t *testing.T) {
	m := newTestMatcher(nil)

	got := m.CheckAreas([]string{"Manchester"}, []string{"North West"})
	want := 0.7 * 0.4
	if math.Abs(got.Score-want) > 1e-9 {
		t.Errorf("Score = %v, want %v", got.Score, want)
	}
	wantReason := []string{"Hierarchical match: Manchester (funder) within North West (user)"}
	if !reflect.DeepEqual(got.Reasoning, wantReason) {
		t.Errorf("Reasoning = %v, want %v", got.Reasoning, wantReason)
	}
}

func TestCheckAreasEmptyUser(t *testing.T) {
	m := newTestMatcher(nil)

	got := m.CheckAreas([]string{"Manchester", "Salford"}, nil)
	if got.Score != 0.0 || len(got.Reasoning) != 0 {
		t.Errorf("CheckAreas(F, nil) = %+v, want zero result", got)
	}

	// All user names unresolvable behaves the same as empty.
	got = m.CheckAreas([]string{"Manchester"}, []string{"Atlantis"})
	if got.Score != 0.0 || len(got.Reasoning) != 0 {
		t.Errorf("CheckAreas with unresolvable user areas = %+v, want zero result", got)
	}
}

func TestCheckAreasUnresolvableFunderNamesDropped(t *testing.T) {
	m := newTestMatcher(nil)

	got := m.CheckAreas([]string{"Narnia", "Manchester"}, []string{"Manchester"})
	if math.Abs(got.Score-1.0) > 1e-9 {
		t.Errorf("Score = %v, want 1.0", got.Score)
	}
}

// Non-zero scores only enter the mean: a matched and an unmatched area
// average over the matched one alone.
func TestCheckAreasMeanSkipsZeroScores(t *testing.T) {
	m := newTestMatcher(nil)

	got := m.CheckAreas([]string{"Manchester"}, []string{"Manchester", "France"})
	if math.Abs(got.Score-1.0) > 1e-9 {
		t.Errorf("Score = %v, want 1.0 (mean of non-zero only)", got.Score)
	}
	if len(got.Reasoning) != 2 {
		t.Fatalf("Reasoning lines = %d, want 2", len(got.Reasoning))
	}
	if got.Reasoning[1] != "No match: France" {
		t.Errorf("Reasoning[1] = %q", got.Reasoning[1])
	}
}

// An exact match must outscore any hierarchical match at the same
// granularity: 1.0x beats 0.6x and 0.4x.
func TestCheckAreasExactBeatsHierarchical(t *testing.T) {
	m := newTestMatcher(nil)

	exact := m.CheckAreas([]string{"Manchester"}, []string{"Manchester"})
	within := m.CheckAreas([]string{"Greater Manchester"}, []string{"Manchester"})
	if exact.Score <= within.Score {
		t.Errorf("exact %v should beat hierarchical %v", exact.Score, within.Score)
	}
}

// Identical inputs must give identical outputs.
func TestCheckAreasIdempotent(t *testing.T) {
	m := newTestMatcher(nil)
	funder := []string{"Greater Manchester", "France"}
	user := []string{"Manchester", "Salford", "Europe"}

	first := m.CheckAreas(funder, user)
	second := m.CheckAreas(funder, user)
	if first.Score != second.Score || !reflect.DeepEqual(first.Reasoning, second.Reasoning) {
		t.Errorf("CheckAreas not deterministic: %+v vs %+v", first, second)
	}
}

func TestCheckAreasScoreBounds(t *testing.T) {
	m := newTestMatcher(nil)

	cases := [][2][]string{
		{{}, {}},
		{{"Manchester"}, {"Manchester", "Salford", "France", "Europe", "North West"}},
		{{"North West", "Europe"}, {"Manchester", "France"}},
		{{"France"}, {"Manchester"}},
	}
	for _, c := range cases {
		got := m.CheckAreas(c[0], c[1])
		if got.Score < 0.0 || got.Score > 1.0 {
			t.Errorf("CheckAreas(%v, %v) score %v out of [0,1]", c[0], c[1], got.Score)
		}
	}
}

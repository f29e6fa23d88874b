package matching

import (
	"math"
	"testing"
	"time"

	"github.com/openfunders/fundermatch/internal/models"
)

func TestKeywordsBonus(t *testing.T) {
	m := newTestMatcher(nil)

	tests := []struct {
		name   string
		strong map[string]float64
		want   float64
	}{
		{"no strong matches is neutral", nil, 1.0},
		// "education" is a level-2 tag (weight 0.7): 1.1 + 1.0*0.7*0.2 = 1.24.
		{"catalogued level 2 tag", map[string]float64{"education & education": 1.0}, 1.24},
		// "homelessness" is level 3 (weight 1.0): 1.1 + 0.2 = 1.3, the cap.
		{"level 3 tag hits the cap", map[string]float64{"homelessness & homelessness": 1.0}, 1.3},
		// Unknown keyword falls back to 0.3: 1.1 + 0.95*0.3*0.2 = 1.157.
		{"uncatalogued keyword", map[string]float64{"puppetry & puppets": 0.95}, 1.157},
		// User-side keyword is catalogued even when the funder side is not.
		{"user side tag resolves", map[string]float64{"learning & education": 1.0}, 1.24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.KeywordsBonus(tt.strong)
			if math.Abs(got.Value-tt.want) > 1e-6 {
				t.Errorf("KeywordsBonus() = %v, want %v", got.Value, tt.want)
			}
		})
	}
}

func TestKeywordsBonusBounds(t *testing.T) {
	m := newTestMatcher(nil)

	// Even a near-zero weighted average never drops the bonus below the
	// floor, and perfect matches never push it above the cap.
	low := m.KeywordsBonus(map[string]float64{"obscure & arcane": 0.90})
	if low.Value < 1.1 {
		t.Errorf("bonus %v below floor 1.1", low.Value)
	}
	high := m.KeywordsBonus(map[string]float64{
		"homelessness & homelessness": 1.0,
		"homelessness & housing":      1.0,
	})
	if high.Value > 1.3 {
		t.Errorf("bonus %v above cap 1.3", high.Value)
	}
}

func TestCalculateRelationshipBonus(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	grantsIn := func(years ...int) Relationship {
		grants := make([]models.Grant, len(years))
		for i, y := range years {
			grants[i] = models.Grant{FunderNum: "111", RecipientID: "R1", Year: y}
		}
		return Relationship{Exists: true, Count: len(grants), Grants: grants}
	}

	tests := []struct {
		name string
		rel  Relationship
		want float64
	}{
		{"no relationship is neutral", Relationship{}, 1.0},
		{"grant within two years", grantsIn(2023), 1.5},
		{"grants in 2019 and 2021", grantsIn(2019, 2021), 1.4},
		{"grant five years back", grantsIn(2019), 1.3},
		{"grant within ten years", grantsIn(2016), 1.2},
		{"grant over ten years back", grantsIn(2010), 1.1},
		{"recurring giving uplift", grantsIn(2023, 2022, 2021, 2020, 2019), 1.6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateRelationshipBonus(tt.rel, now)
			if math.Abs(got.Bonus.Value-tt.want) > 1e-9 {
				t.Errorf("bonus = %v, want %v", got.Bonus.Value, tt.want)
			}
		})
	}
}

func TestCalculateRelationshipBonusMetadata(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rel := Relationship{
		Exists: true,
		Count:  2,
		Grants: []models.Grant{
			{FunderNum: "111", RecipientID: "R1", Year: 2019},
			{FunderNum: "111", RecipientID: "R1", Year: 2021},
		},
	}
	got := CalculateRelationshipBonus(rel, now)
	if got.LastGrantYear != 2021 || got.TimeLapsed != 3 {
		t.Errorf("last year %d lapsed %d, want 2021 and 3", got.LastGrantYear, got.TimeLapsed)
	}
}

func TestAreasBonusRP(t *testing.T) {
	m := newTestMatcher(nil)

	t.Run("no history is neutral", func(t *testing.T) {
		got := m.AreasBonusRP(nil, []string{"Manchester"})
		if got.Value != 1.0 {
			t.Errorf("bonus = %v, want 1.0", got.Value)
		}
		if len(got.Reasoning) != 1 || got.Reasoning[0] != "No grants history available" {
			t.Errorf("Reasoning = %v", got.Reasoning)
		}
	})

	t.Run("no area data is neutral", func(t *testing.T) {
		history := &models.GrantHistory{Grants: []models.Grant{{ID: "g1"}}}
		got := m.AreasBonusRP(history, []string{"Manchester"})
		if got.Value != 1.0 {
			t.Errorf("bonus = %v, want 1.0", got.Value)
		}
	})

	t.Run("exact area overlap", func(t *testing.T) {
		history := &models.GrantHistory{Grants: []models.Grant{
			{ID: "g1", RecipientAreas: []string{"Manchester"}},
			{ID: "g2", RecipientAreas: []string{"Manchester"}},
			{ID: "g3", RecipientAreas: []string{"Salford"}},
		}}
		got := m.AreasBonusRP(history, []string{"Manchester"})
		// Pooled history resolves Manchester exactly: score 1.0, bonus 1.2.
		if math.Abs(got.Value-1.2) > 1e-6 {
			t.Errorf("bonus = %v, want 1.2", got.Value)
		}
		if len(got.Reasoning) == 0 || got.Reasoning[0] != "Manchester: 2 grants (66.7%)" {
			t.Errorf("Reasoning = %v, want Manchester ranked first", got.Reasoning)
		}
	})

	t.Run("broad areas only", func(t *testing.T) {
		history := &models.GrantHistory{Grants: []models.Grant{
			{ID: "g1", RecipientAreas: []string{"North West"}},
		}}
		got := m.AreasBonusRP(history, []string{"North West"})
		if len(got.Reasoning) != 1 || got.Reasoning[0] != "Only broad geographic areas found" {
			t.Errorf("Reasoning = %v", got.Reasoning)
		}
		// The score still counts, only the frequency reasoning is dropped.
		if math.Abs(got.Value-1.2) > 1e-6 {
			t.Errorf("bonus = %v, want 1.2", got.Value)
		}
	})
}

func TestKeywordsBonusRP(t *testing.T) {
	historyWith := func(classes ...[]string) *models.GrantHistory {
		grants := make([]models.Grant, len(classes))
		for i, c := range classes {
			grants[i] = models.Grant{ID: "g", RecipientClasses: c}
		}
		return &models.GrantHistory{Grants: grants}
	}

	tests := []struct {
		name    string
		history *models.GrantHistory
		user    []string
		want    float64
	}{
		{"no history", nil, []string{"education"}, 1.0},
		{"no user keywords", historyWith([]string{"education"}), nil, 1.0},
		{"no recipient keywords", historyWith(nil), []string{"education"}, 1.0},
		{"all user keywords matched", historyWith([]string{"education", "housing"}), []string{"education", "housing"}, 1.1},
		{"half matched", historyWith([]string{"education"}), []string{"education", "housing"}, 1.05},
		// 1 of 3 matched: 1.0 + (1/3)*0.2.
		{"third matched", historyWith([]string{"education"}), []string{"education", "housing", "arts"}, 1.0 + 0.2/3},
		{"none matched", historyWith([]string{"education"}), []string{"housing"}, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := KeywordsBonusRP(tt.history, tt.user)
			if math.Abs(got.Value-tt.want) > 1e-9 {
				t.Errorf("KeywordsBonusRP() = %v, want %v", got.Value, tt.want)
			}
		})
	}
}

func TestKeywordsBonusRPReasoning(t *testing.T) {
	history := &models.GrantHistory{Grants: []models.Grant{
		{ID: "g1", RecipientClasses: []string{"education", "education", "housing"}},
		{ID: "g2", RecipientClasses: []string{"education"}},
	}}
	got := KeywordsBonusRP(history, []string{"education", "housing"})
	want := []string{"education: 3 occurrences", "housing: 1 occurrences"}
	if len(got.Reasoning) != len(want) {
		t.Fatalf("Reasoning = %v, want %v", got.Reasoning, want)
	}
	for i := range want {
		if got.Reasoning[i] != want[i] {
			t.Errorf("Reasoning[%d] = %q, want %q", i, got.Reasoning[i], want[i])
		}
	}
}

func TestLowVariancePenalty(t *testing.T) {
	repeats := func(total int, names ...string) *models.GrantHistory {
		grants := make([]models.Grant, total)
		for i := range grants {
			grants[i] = models.Grant{ID: "g", RecipientName: names[i%len(names)]}
		}
		return &models.GrantHistory{Grants: grants}
	}

	tests := []struct {
		name    string
		history *models.GrantHistory
		want    float64
	}{
		{"no history", nil, 1.0},
		// Nine grants to one org: below the ten-grant floor, never
		// penalized no matter how concentrated.
		{"under ten grants exempt", repeats(9, "Same Org"), 1.0},
		// Ten grants to two orgs: 2/10 = 0.2 < 0.3.
		{"concentrated giving penalized", repeats(10, "Org A", "Org B"), 0.7},
		// Ten grants to four orgs: 4/10 = 0.4 >= 0.3.
		{"varied giving not penalized", repeats(10, "Org A", "Org B", "Org C", "Org D"), 1.0},
		// Exactly at the threshold: 3/10 = 0.3 is not below 0.3.
		{"threshold is exclusive", repeats(10, "Org A", "Org B", "Org C"), 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LowVariancePenalty(tt.history); got != tt.want {
				t.Errorf("LowVariancePenalty() = %v, want %v", got, tt.want)
			}
		})
	}
}

package matching

import (
	"context"
	"math"
	"strings"
	"testing"
)

// Unit vectors at known angles: cos(a,b) = 0.8, cos(a,a) = 1.0.
var keywordVectors = map[string][]float32{
	"education": {1, 0, 0},
	"schools":   {0.8, 0.6, 0},
	"animals":   {0, 1, 0},
	"welfare":   {0.6, 0.8, 0},
}

func TestCheckKeywordsEmptyInputs(t *testing.T) {
	m := newTestMatcher(keywordVectors)
	ctx := context.Background()

	for _, tc := range []struct {
		name         string
		funder, user []string
	}{
		{"both empty", nil, nil},
		{"funder empty", nil, []string{"education"}},
		{"user empty", []string{"education"}, nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := m.CheckKeywords(ctx, tc.funder, tc.user)
			if err != nil {
				t.Fatalf("CheckKeywords() error = %v", err)
			}
			if got.Score != 0.0 || got.BonusEligible || len(got.StrongMatches) != 0 {
				t.Errorf("CheckKeywords() = %+v, want zero score, no bonus", got)
			}
			if len(got.Reasoning) != 1 || got.Reasoning[0] != "No keywords to compare" {
				t.Errorf("Reasoning = %v", got.Reasoning)
			}
		})
	}
}

// An identical keyword on both sides is a strong match: it feeds the bonus,
// not the base score, and with no sub-threshold pairs the base score is 0.
func TestCheckKeywordsStrongMatchExcludedFromBase(t *testing.T) {
	m := newTestMatcher(keywordVectors)

	got, err := m.CheckKeywords(context.Background(), []string{"education"}, []string{"education"})
	if err != nil {
		t.Fatalf("CheckKeywords() error = %v", err)
	}
	if !got.BonusEligible {
		t.Error("BonusEligible = false, want true")
	}
	sim, ok := got.StrongMatches["education & education"]
	if !ok || math.Abs(sim-1.0) > 1e-6 {
		t.Errorf("StrongMatches = %v, want {education & education: 1.0}", got.StrongMatches)
	}
	if got.Score != 0.0 {
		t.Errorf("Score = %v, want 0.0 (strong matches excluded)", got.Score)
	}
	if len(got.Reasoning) != 0 {
		t.Errorf("Reasoning = %v, want empty (no sub-threshold pairs)", got.Reasoning)
	}
}

func TestCheckKeywordsBaseScoreFromSubThresholdPairs(t *testing.T) {
	m := newTestMatcher(keywordVectors)

	// education x schools = 0.8, education x welfare = 0.6: both below the
	// 0.90 threshold, so the base score is their mean.
	got, err := m.CheckKeywords(context.Background(), []string{"education"}, []string{"schools", "welfare"})
	if err != nil {
		t.Fatalf("CheckKeywords() error = %v", err)
	}
	if got.BonusEligible {
		t.Error("BonusEligible = true, want false")
	}
	want := (0.8 + 0.6) / 2
	if math.Abs(got.Score-want) > 1e-6 {
		t.Errorf("Score = %v, want %v", got.Score, want)
	}
	if len(got.Reasoning) != 2 {
		t.Fatalf("Reasoning = %v, want 2 lines", got.Reasoning)
	}
	// Sorted descending: the 0.800 pair comes first.
	if !strings.Contains(got.Reasoning[0], "0.800") {
		t.Errorf("Reasoning[0] = %q, want the 0.800 pair first", got.Reasoning[0])
	}
}

func TestCheckKeywordsMixedStrongAndWeak(t *testing.T) {
	m := newTestMatcher(keywordVectors)

	got, err := m.CheckKeywords(context.Background(),
		[]string{"education", "animals"}, []string{"education", "welfare"})
	if err != nil {
		t.Fatalf("CheckKeywords() error = %v", err)
	}
	if !got.BonusEligible || len(got.StrongMatches) != 1 {
		t.Errorf("StrongMatches = %v, want exactly the education pair", got.StrongMatches)
	}
	// Sub-threshold pairs: education/welfare 0.6, animals/education 0.0,
	// animals/welfare 0.8. All three average into the base score.
	want := (0.6 + 0.0 + 0.8) / 3
	if math.Abs(got.Score-want) > 1e-6 {
		t.Errorf("Score = %v, want %v", got.Score, want)
	}
}

func TestCheckKeywordsDeterministic(t *testing.T) {
	m := newTestMatcher(keywordVectors)
	ctx := context.Background()

	funder := []string{"education", "animals"}
	user := []string{"schools", "welfare"}
	first, err := m.CheckKeywords(ctx, funder, user)
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.CheckKeywords(ctx, funder, user)
	if err != nil {
		t.Fatal(err)
	}
	if first.Score != second.Score || len(first.Reasoning) != len(second.Reasoning) {
		t.Errorf("CheckKeywords not deterministic: %+v vs %+v", first, second)
	}
	for i := range first.Reasoning {
		if first.Reasoning[i] != second.Reasoning[i] {
			t.Errorf("Reasoning[%d] differs: %q vs %q", i, first.Reasoning[i], second.Reasoning[i])
		}
	}
}

func TestCheckKeywordsEmbedderErrorPropagates(t *testing.T) {
	m := newTestMatcher(map[string][]float32{"education": {1, 0, 0}})

	_, err := m.CheckKeywords(context.Background(), []string{"education"}, []string{"unknown"})
	if err == nil {
		t.Error("CheckKeywords() with failing embedder should return error")
	}
}

func TestCheckKeywordsScoreBounds(t *testing.T) {
	m := newTestMatcher(keywordVectors)

	got, err := m.CheckKeywords(context.Background(),
		[]string{"education", "schools", "animals", "welfare"},
		[]string{"education", "schools", "animals", "welfare"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Score < 0.0 || got.Score > 1.0 {
		t.Errorf("Score %v out of [0,1]", got.Score)
	}
}

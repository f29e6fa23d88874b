package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/openfunders/fundermatch/internal/matching"
	"github.com/openfunders/fundermatch/internal/models"
	"github.com/openfunders/fundermatch/internal/storage"
	"github.com/openfunders/fundermatch/internal/taxonomy"
)

type stubEmbedder struct {
	vectors map[string][]float32
	base    []float32
}

func (e *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if vec, ok := e.vectors[text]; ok {
		return vec, nil
	}
	if e.base != nil {
		return e.base, nil
	}
	return nil, fmt.Errorf("no stub vector for %q", text)
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (e *stubEmbedder) Dimensions() int { return 3 }
func (e *stubEmbedder) Close() error    { return nil }

func newTestEngine(t *testing.T, embedder *stubEmbedder, opts ...Option) (*Engine, *storage.SQLiteStorage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	tax := taxonomy.NewStore(
		[]models.Area{{ID: 1, Name: "Manchester", Level: models.AreaLevelLocalAuthority}},
		nil, nil,
	)
	matcher := matching.NewMatcher(nil, tax, embedder)
	return NewEngine(store, embedder, matcher, opts...), store
}

func seedFunders(t *testing.T, store *storage.SQLiteStorage, funders ...*models.Funder) {
	t.Helper()
	ctx := context.Background()
	for _, f := range funders {
		if err := store.UpsertFunder(ctx, f); err != nil {
			t.Fatal(err)
		}
	}
}

func TestMatchRanksFunders(t *testing.T) {
	embedder := &stubEmbedder{
		vectors: map[string][]float32{
			"education": {1, 0, 0},
			"schools":   {0.8, 0.6, 0},
			"animals":   {0, 1, 0},
		},
		base: []float32{1, 0, 0},
	}
	eng, store := newTestEngine(t, embedder)
	seedFunders(t, store,
		// Area and keyword alignment: the clear best match.
		&models.Funder{RegisteredNum: "111", Name: "A", Areas: []string{"Manchester"}, Keywords: models.KeywordList{"schools"}},
		// Keyword alignment only.
		&models.Funder{RegisteredNum: "222", Name: "B", Keywords: models.KeywordList{"schools"}},
		// No alignment at all.
		&models.Funder{RegisteredNum: "333", Name: "C", Keywords: models.KeywordList{"animals"}},
	)

	resp, err := eng.Match(context.Background(), &MatchRequest{
		Candidate: models.Candidate{
			Name:     "Learning Society",
			Areas:    []string{"Manchester"},
			Keywords: models.KeywordList{"education"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 3 || resp.Skipped != 0 {
		t.Fatalf("total %d skipped %d, want 3 and 0", resp.Total, resp.Skipped)
	}
	if resp.Results[0].FunderNum != "111" {
		t.Errorf("top result = %s, want 111", resp.Results[0].FunderNum)
	}
	if resp.Results[2].FunderNum != "333" {
		t.Errorf("last result = %s, want 333", resp.Results[2].FunderNum)
	}
	for i := 1; i < len(resp.Results); i++ {
		if resp.Results[i].FinalScore > resp.Results[i-1].FinalScore {
			t.Errorf("results not sorted at %d", i)
		}
	}
}

func TestMatchLimitAndMinScore(t *testing.T) {
	embedder := &stubEmbedder{base: []float32{1, 0, 0}}
	eng, store := newTestEngine(t, embedder)
	for i := 0; i < 5; i++ {
		seedFunders(t, store, &models.Funder{
			RegisteredNum: fmt.Sprintf("%d", 100+i),
			Name:          "F",
			Areas:         []string{"Manchester"},
		})
	}

	resp, err := eng.Match(context.Background(), &MatchRequest{
		Candidate: models.Candidate{Name: "X", Areas: []string{"Manchester"}},
		Limit:     2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 || resp.Total != 5 {
		t.Errorf("len %d total %d, want 2 and 5", len(resp.Results), resp.Total)
	}

	resp, err = eng.Match(context.Background(), &MatchRequest{
		Candidate: models.Candidate{Name: "X"},
		MinScore:  0.5,
	})
	if err != nil {
		t.Fatal(err)
	}
	// No area/keyword alignment: every pair scores below the floor.
	if len(resp.Results) != 0 {
		t.Errorf("got %d results above min score, want 0", len(resp.Results))
	}
}

func TestMatchSkipsFailingPairs(t *testing.T) {
	// Keywords the embedder cannot embed make that pair fail; the run
	// carries on with the rest.
	embedder := &stubEmbedder{vectors: map[string][]float32{"education": {1, 0, 0}}}
	eng, store := newTestEngine(t, embedder)
	seedFunders(t, store,
		&models.Funder{RegisteredNum: "111", Name: "A", Keywords: models.KeywordList{"unembeddable"}},
		&models.Funder{RegisteredNum: "222", Name: "B", Areas: []string{"Manchester"}},
	)

	resp, err := eng.Match(context.Background(), &MatchRequest{
		Candidate: models.Candidate{
			Name:      "X",
			Areas:     []string{"Manchester"},
			Keywords:  models.KeywordList{"education"},
			Embedding: models.Vector{1, 0, 0},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", resp.Skipped)
	}
	if resp.Total != 1 || resp.Results[0].FunderNum != "222" {
		t.Errorf("results = %+v, want only 222", resp.Results)
	}
}

func TestMatchDeterministicTiebreak(t *testing.T) {
	embedder := &stubEmbedder{base: []float32{1, 0, 0}}
	eng, store := newTestEngine(t, embedder, WithWorkers(8))
	// Identical funders score identically; ranking falls back to the
	// registered number.
	for _, num := range []string{"333", "111", "222"} {
		seedFunders(t, store, &models.Funder{RegisteredNum: num, Name: "Same", Areas: []string{"Manchester"}})
	}

	for run := 0; run < 3; run++ {
		resp, err := eng.Match(context.Background(), &MatchRequest{
			Candidate: models.Candidate{Name: "X", Areas: []string{"Manchester"}},
		})
		if err != nil {
			t.Fatal(err)
		}
		for i, want := range []string{"111", "222", "333"} {
			if resp.Results[i].FunderNum != want {
				t.Fatalf("run %d: result %d = %s, want %s", run, i, resp.Results[i].FunderNum, want)
			}
		}
	}
}

func TestMatchCancelledContext(t *testing.T) {
	embedder := &stubEmbedder{base: []float32{1, 0, 0}}
	eng, store := newTestEngine(t, embedder)
	for i := 0; i < 20; i++ {
		seedFunders(t, store, &models.Funder{RegisteredNum: fmt.Sprintf("%d", 100+i), Name: "F"})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := eng.Match(ctx, &MatchRequest{Candidate: models.Candidate{Name: "X", Embedding: models.Vector{1, 0, 0}}})
	if err == nil {
		t.Error("expected context error")
	}
}

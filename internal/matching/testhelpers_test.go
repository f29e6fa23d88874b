package matching

import (
	"context"
	"fmt"

	"github.com/openfunders/fundermatch/internal/models"
	"github.com/openfunders/fundermatch/internal/taxonomy"
)

// stubEmbedder returns fixed vectors per text so similarity values in tests
// are exact. Unknown texts get an error, which keeps fixtures honest.
type stubEmbedder struct {
	vectors map[string][]float32
}

func (e *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec, ok := e.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no stub vector for %q", text)
	}
	return vec, nil
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

// newTestTaxonomy builds the Greater Manchester fixture used across tests:
// North West (region) -> Greater Manchester (metropolitan county) ->
// Manchester, Salford (local authorities); Europe -> France separately.
func newTestTaxonomy() *taxonomy.Store {
	areas := []models.Area{
		{ID: 1, Name: "North West", Level: models.AreaLevelRegion},
		{ID: 2, Name: "Greater Manchester", Level: models.AreaLevelMetropolitanCounty},
		{ID: 3, Name: "Manchester", Level: models.AreaLevelLocalAuthority},
		{ID: 4, Name: "Salford", Level: models.AreaLevelLocalAuthority},
		{ID: 5, Name: "Europe", Level: models.AreaLevelContinent},
		{ID: 6, Name: "France", Level: models.AreaLevelCountry},
	}
	edges := []models.HierarchyEdge{
		{ParentID: 1, ChildID: 2},
		{ParentID: 2, ChildID: 3},
		{ParentID: 2, ChildID: 4},
		{ParentID: 5, ChildID: 6},
	}
	tags := []models.UKCATTag{
		{Tag: "education", Level: 2},
		{Tag: "homelessness", Level: 3},
		{Tag: "welfare", Level: 1},
	}
	return taxonomy.NewStore(areas, edges, tags)
}

// newTestMatcher wires the fixture taxonomy with a stub embedder.
func newTestMatcher(vectors map[string][]float32) *Matcher {
	return NewMatcher(nil, newTestTaxonomy(), &stubEmbedder{vectors: vectors})
}

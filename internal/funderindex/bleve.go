// Package funderindex provides full-text funder lookup over names and
// objectives, backed by Bleve.
package funderindex

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/openfunders/fundermatch/internal/models"
)

// Result is one funder lookup hit.
type Result struct {
	RegisteredNum string  `json:"registered_num"`
	Score         float64 `json:"score"`
}

// Index is a Bleve-backed funder name/objectives index.
type Index struct {
	index bleve.Index
}

type funderDoc struct {
	RegisteredNum string `json:"registered_num"`
	Name          string `json:"name"`
	Objectives    string `json:"objectives"`
}

func indexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so charity names
	// match on the exact words users type.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("name", textFieldMapping)
	docMapping.AddFieldMappingsAt("objectives", textFieldMapping)
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("registered_num", keywordFieldMapping)
	im.AddDocumentMapping("funder", docMapping)
	im.DefaultType = "funder"
	im.DefaultMapping = docMapping
	return im
}

// NewIndex creates or opens a Bleve index at path. An existing index is
// reused; remove the directory to force a full re-index after a mapping
// change.
func NewIndex(path string) (*Index, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open funder index: %w", openErr)
		}
		return &Index{index: index}, nil
	}

	index, err := bleve.New(path, indexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create funder index: %w", err)
	}
	return &Index{index: index}, nil
}

// NewMemIndex creates an in-memory index, used in tests and one-shot CLI
// runs where persistence buys nothing.
func NewMemIndex() (*Index, error) {
	index, err := bleve.NewMemOnly(indexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create funder index: %w", err)
	}
	return &Index{index: index}, nil
}

// Add indexes a funder by registered number.
func (ix *Index) Add(ctx context.Context, funder *models.Funder) error {
	doc := funderDoc{
		RegisteredNum: funder.RegisteredNum,
		Name:          funder.Name,
		Objectives:    funder.Objectives,
	}
	return ix.index.Index(funder.RegisteredNum, doc)
}

// Search matches the query against funder names and objectives, name hits
// boosted, and returns up to limit results ordered by relevance.
func (ix *Index) Search(ctx context.Context, query string, limit int) ([]*Result, error) {
	nameQuery := bleve.NewMatchQuery(query)
	nameQuery.SetField("name")
	nameQuery.SetBoost(2.0)
	objectivesQuery := bleve.NewMatchQuery(query)
	objectivesQuery.SetField("objectives")

	search := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(nameQuery, objectivesQuery))
	search.Size = limit
	results, err := ix.index.Search(search)
	if err != nil {
		return nil, fmt.Errorf("funder search failed: %w", err)
	}

	out := make([]*Result, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &Result{RegisteredNum: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// Delete removes a funder from the index.
func (ix *Index) Delete(ctx context.Context, registeredNum string) error {
	return ix.index.Delete(registeredNum)
}

// Count returns the number of indexed funders.
func (ix *Index) Count() (uint64, error) {
	return ix.index.DocCount()
}

// Close closes the underlying index.
func (ix *Index) Close() error {
	return ix.index.Close()
}

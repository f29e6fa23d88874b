package funderindex

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/openfunders/fundermatch/internal/models"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := NewMemIndex()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func TestIndexSearch(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	funders := []*models.Funder{
		{RegisteredNum: "111", Name: "The Education Trust", Objectives: "advancement of education in schools"},
		{RegisteredNum: "222", Name: "Animal Rescue Fund", Objectives: "welfare of abandoned animals"},
		{RegisteredNum: "333", Name: "Community Foundation", Objectives: "education and training for adults"},
	}
	for _, f := range funders {
		if err := ix.Add(ctx, f); err != nil {
			t.Fatal(err)
		}
	}

	count, err := ix.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}

	results, err := ix.Search(ctx, "education", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	// Name hits outrank objectives-only hits.
	if results[0].RegisteredNum != "111" {
		t.Errorf("top hit = %s, want 111", results[0].RegisteredNum)
	}

	results, err = ix.Search(ctx, "animals", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].RegisteredNum != "222" {
		t.Errorf("results = %+v, want only 222", results)
	}
}

func TestIndexSearchLimit(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	for _, f := range []*models.Funder{
		{RegisteredNum: "111", Name: "Grants Fund One"},
		{RegisteredNum: "222", Name: "Grants Fund Two"},
		{RegisteredNum: "333", Name: "Grants Fund Three"},
	} {
		if err := ix.Add(ctx, f); err != nil {
			t.Fatal(err)
		}
	}

	results, err := ix.Search(ctx, "grants", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want limit 2", len(results))
	}
}

func TestIndexDelete(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	if err := ix.Add(ctx, &models.Funder{RegisteredNum: "111", Name: "The Education Trust"}); err != nil {
		t.Fatal(err)
	}
	if err := ix.Delete(ctx, "111"); err != nil {
		t.Fatal(err)
	}
	results, err := ix.Search(ctx, "education", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results after delete, want 0", len(results))
	}
}

func TestIndexPersistsOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "funders.bleve")
	ix, err := NewIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := ix.Add(ctx, &models.Funder{RegisteredNum: "111", Name: "The Education Trust"}); err != nil {
		t.Fatal(err)
	}
	if err := ix.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen and search.
	ix, err = NewIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ix.Close()
	results, err := ix.Search(ctx, "education", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results after reopen, want 1", len(results))
	}
}

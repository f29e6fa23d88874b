// Package storage persists the funder registry, taxonomy vocabularies, and
// grant history in SQLite.
package storage

import (
	"context"
	"errors"

	"github.com/openfunders/fundermatch/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Storage is the persistence interface the engine and server depend on.
type Storage interface {
	// Funders.
	UpsertFunder(ctx context.Context, funder *models.Funder) error
	GetFunder(ctx context.Context, registeredNum string) (*models.Funder, error)
	ListFunders(ctx context.Context, offset, limit int) ([]*models.Funder, error)
	CountFunders(ctx context.Context) (int64, error)

	// Grants.
	BatchCreateGrants(ctx context.Context, grants []*GrantRecord) error
	LoadHistory(ctx context.Context, funderNum string) (*models.GrantHistory, error)
	CountGrants(ctx context.Context) (int64, error)
	UpdateRecipientProfile(ctx context.Context, recipientID string, classes models.KeywordList, areas []string, embedding models.Vector) (int64, error)

	// Taxonomy vocabularies.
	ReplaceAreas(ctx context.Context, areas []models.Area, edges []models.HierarchyEdge) error
	ReplaceCauses(ctx context.Context, causes []models.Cause) error
	ReplaceBeneficiaries(ctx context.Context, beneficiaries []models.Beneficiary) error
	ReplaceUKCATTags(ctx context.Context, tags []models.UKCATTag) error
	LoadTaxonomy(ctx context.Context) (*TaxonomyData, error)

	Close() error
}

// GrantRecord is a grant row together with the embeddings computed at
// ingestion time. The scoring path reads them back through LoadHistory.
type GrantRecord struct {
	models.Grant
	NameEmbedding      models.Vector
	GrantEmbedding     models.Vector
	RecipientEmbedding models.Vector
}

// TaxonomyData is everything needed to build a taxonomy.Store.
type TaxonomyData struct {
	Areas         []models.Area
	Edges         []models.HierarchyEdge
	Causes        []models.Cause
	Beneficiaries []models.Beneficiary
	Tags          []models.UKCATTag
}

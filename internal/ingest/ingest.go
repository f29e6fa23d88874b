// Package ingest turns reference files, grant exports and account filings
// into stored, embedded records ready for scoring.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openfunders/fundermatch/internal/embedding"
	"github.com/openfunders/fundermatch/internal/extract"
	"github.com/openfunders/fundermatch/internal/funderindex"
	"github.com/openfunders/fundermatch/internal/loader"
	"github.com/openfunders/fundermatch/internal/models"
	"github.com/openfunders/fundermatch/internal/storage"
)

// Ingestor wires the loaders, the extractor and the classifier to storage
// and the funder text index.
type Ingestor struct {
	storage    storage.Storage
	embedder   embedding.Embedder
	index      *funderindex.Index
	extractor  *extract.Extractor
	classifier *loader.Classifier
	logger     *zap.Logger
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(i *Ingestor) { i.logger = l }
}

// WithClassifier sets the classifier used on filing text. Without one,
// filings are ingested with raw text embeddings only.
func WithClassifier(c *loader.Classifier) Option {
	return func(i *Ingestor) { i.classifier = c }
}

// NewIngestor creates an ingestor. The index may be nil when funder text
// search is not needed (e.g. one-shot CLI loads).
func NewIngestor(store storage.Storage, embedder embedding.Embedder, index *funderindex.Index, opts ...Option) *Ingestor {
	i := &Ingestor{
		storage:   store,
		embedder:  embedder,
		index:     index,
		extractor: extract.NewExtractor(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IngestFunders loads a funder registry JSON file, embeds each funder's
// name and objectives, and upserts into storage and the text index.
// Returns the number of funders ingested.
func (i *Ingestor) IngestFunders(ctx context.Context, path string) (int, error) {
	funders, err := loader.LoadFunders(path)
	if err != nil {
		return 0, err
	}
	for _, funder := range funders {
		if len(funder.Embedding) == 0 {
			vec, err := i.embedder.Embed(ctx, funderText(funder))
			if err != nil {
				return 0, fmt.Errorf("embed funder %s: %w", funder.RegisteredNum, err)
			}
			funder.Embedding = vec
		}
		if err := i.storage.UpsertFunder(ctx, funder); err != nil {
			return 0, fmt.Errorf("upsert funder %s: %w", funder.RegisteredNum, err)
		}
		if i.index != nil {
			if err := i.index.Add(ctx, funder); err != nil {
				return 0, fmt.Errorf("index funder %s: %w", funder.RegisteredNum, err)
			}
		}
	}
	i.logger.Info("funders ingested", zap.String("path", path), zap.Int("count", len(funders)))
	return len(funders), nil
}

// IngestGrants loads a grants CSV export, mints IDs for rows without one,
// computes the three revealed-preference embeddings per grant, and stores
// the batch. Returns the number of grants ingested.
func (i *Ingestor) IngestGrants(ctx context.Context, path string) (int, error) {
	grants, err := loader.LoadGrants(path)
	if err != nil {
		return 0, err
	}
	records := make([]*storage.GrantRecord, 0, len(grants))
	for _, grant := range grants {
		if grant.ID == "" {
			grant.ID = uuid.NewString()
		}
		record := &storage.GrantRecord{Grant: grant}
		if grant.RecipientName != "" {
			vec, err := i.embedder.Embed(ctx, grant.RecipientName)
			if err != nil {
				return 0, fmt.Errorf("embed grant %s: %w", grant.ID, err)
			}
			record.NameEmbedding = vec
		}
		if text := grantText(&grant); text != "" {
			vec, err := i.embedder.Embed(ctx, text)
			if err != nil {
				return 0, fmt.Errorf("embed grant %s: %w", grant.ID, err)
			}
			record.GrantEmbedding = vec
		}
		if len(grant.RecipientClasses) > 0 {
			vec, err := i.embedder.Embed(ctx, strings.Join(grant.RecipientClasses, ", "))
			if err != nil {
				return 0, fmt.Errorf("embed grant %s: %w", grant.ID, err)
			}
			record.RecipientEmbedding = vec
		}
		records = append(records, record)
	}
	if err := i.storage.BatchCreateGrants(ctx, records); err != nil {
		return 0, err
	}
	i.logger.Info("grants ingested", zap.String("path", path), zap.Int("count", len(records)))
	return len(records), nil
}

// IngestFiling extracts the narrative text of an account filing, classifies
// it, and refreshes the recipient's extracted classes, areas and narrative
// embedding on every grant made to that recipient. The recipient ID is the
// filing's file name without extension. Returns the number of grants updated.
func (i *Ingestor) IngestFiling(ctx context.Context, path string) (int64, error) {
	recipientID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if recipientID == "" {
		return 0, fmt.Errorf("filing %s: cannot derive recipient id", path)
	}
	text, err := i.extractor.Extract(path)
	if err != nil {
		return 0, fmt.Errorf("filing %s: %w", path, err)
	}
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("filing %s: no text extracted", path)
	}

	var classes models.KeywordList
	var areas []string
	if i.classifier != nil {
		classes = i.classifier.ExtractClasses(text)
		areas = i.classifier.ExtractAreas(text)
	}
	vec, err := i.embedder.Embed(ctx, text)
	if err != nil {
		return 0, fmt.Errorf("filing %s: embed: %w", path, err)
	}
	n, err := i.storage.UpdateRecipientProfile(ctx, recipientID, classes, areas, vec)
	if err != nil {
		return 0, err
	}
	i.logger.Info("filing ingested",
		zap.String("path", path),
		zap.String("recipient_id", recipientID),
		zap.Int64("grants_updated", n),
		zap.Int("classes", len(classes)))
	return n, nil
}

// IngestDataFile routes a dropped data file by name and extension:
// funder JSON, grants CSV, taxonomy CSVs or a UKCAT tag workbook.
func (i *Ingestor) IngestDataFile(ctx context.Context, path string) error {
	base := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(base, ".json"):
		_, err := i.IngestFunders(ctx, path)
		return err
	case strings.HasSuffix(base, ".xlsx"):
		tags, err := loader.LoadUKCATWorkbook(path)
		if err != nil {
			return err
		}
		return i.storage.ReplaceUKCATTags(ctx, tags)
	case strings.HasPrefix(base, "grants"):
		_, err := i.IngestGrants(ctx, path)
		return err
	case strings.HasPrefix(base, "areas"):
		areas, err := loader.LoadAreas(path)
		if err != nil {
			return err
		}
		return i.storage.ReplaceAreas(ctx, areas, nil)
	case strings.HasPrefix(base, "hierarchy"):
		edges, err := loader.LoadHierarchy(path)
		if err != nil {
			return err
		}
		data, err := i.storage.LoadTaxonomy(ctx)
		if err != nil {
			return err
		}
		return i.storage.ReplaceAreas(ctx, data.Areas, edges)
	case strings.HasPrefix(base, "causes"):
		causes, err := loader.LoadCauses(path)
		if err != nil {
			return err
		}
		return i.storage.ReplaceCauses(ctx, causes)
	case strings.HasPrefix(base, "beneficiaries"):
		beneficiaries, err := loader.LoadBeneficiaries(path)
		if err != nil {
			return err
		}
		return i.storage.ReplaceBeneficiaries(ctx, beneficiaries)
	default:
		return fmt.Errorf("unrecognized data file: %s", base)
	}
}

// RebuildIndex re-indexes every stored funder into the text index.
func (i *Ingestor) RebuildIndex(ctx context.Context) (int, error) {
	if i.index == nil {
		return 0, fmt.Errorf("no funder index configured")
	}
	const pageSize = 500
	total := 0
	for offset := 0; ; offset += pageSize {
		funders, err := i.storage.ListFunders(ctx, offset, pageSize)
		if err != nil {
			return total, err
		}
		if len(funders) == 0 {
			return total, nil
		}
		for _, funder := range funders {
			if err := i.index.Add(ctx, funder); err != nil {
				return total, fmt.Errorf("index funder %s: %w", funder.RegisteredNum, err)
			}
			total++
		}
	}
}

func funderText(f *models.Funder) string {
	parts := []string{f.Name}
	if f.Objectives != "" {
		parts = append(parts, f.Objectives)
	}
	if len(f.Keywords) > 0 {
		parts = append(parts, strings.Join(f.Keywords, ", "))
	}
	return strings.Join(parts, ". ")
}

func grantText(g *models.Grant) string {
	parts := make([]string, 0, 2)
	if g.RecipientName != "" {
		parts = append(parts, g.RecipientName)
	}
	if len(g.RecipientClasses) > 0 {
		parts = append(parts, strings.Join(g.RecipientClasses, ", "))
	}
	return strings.Join(parts, ": ")
}

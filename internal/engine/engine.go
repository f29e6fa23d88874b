// Package engine runs candidate-against-registry batch scoring: every
// funder is scored independently and the ranked top results are returned.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openfunders/fundermatch/internal/embedding"
	"github.com/openfunders/fundermatch/internal/matching"
	"github.com/openfunders/fundermatch/internal/models"
	"github.com/openfunders/fundermatch/internal/storage"
)

const (
	defaultWorkers = 4
	defaultLimit   = 20
	listPageSize   = 500
)

// MatchRequest is a candidate plus result shaping options.
type MatchRequest struct {
	Candidate models.Candidate `json:"candidate"`
	Limit     int              `json:"limit,omitempty"`
	MinScore  float64          `json:"min_score,omitempty"`
}

// MatchResponse is the ranked outcome of scoring a candidate against the
// registry.
type MatchResponse struct {
	Results   []*matching.Result `json:"results"`
	Total     int                `json:"total"`
	Scored    int                `json:"scored"`
	Skipped   int                `json:"skipped"`
	QueryTime int64              `json:"query_time_ms"`
}

// Engine scores one candidate against every stored funder using a bounded
// worker pool. Scoring a pair is independent of every other pair, so
// failures skip that funder rather than abort the run.
type Engine struct {
	storage  storage.Storage
	embedder embedding.Embedder
	matcher  *matching.Matcher
	workers  int
	logger   *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets the scoring worker count.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets a logger for skipped-pair diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine with the given dependencies.
func NewEngine(store storage.Storage, embedder embedding.Embedder, matcher *matching.Matcher, opts ...Option) *Engine {
	e := &Engine{
		storage:  store,
		embedder: embedder,
		matcher:  matcher,
		workers:  defaultWorkers,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Match scores the request's candidate against every funder and returns the
// top results by final score. Identical requests against identical data
// return identical rankings.
func (e *Engine) Match(ctx context.Context, req *MatchRequest) (*MatchResponse, error) {
	startTime := time.Now()

	cand := req.Candidate
	if len(cand.Embedding) == 0 {
		vec, err := e.embedder.Embed(ctx, candidateText(&cand))
		if err != nil {
			return nil, fmt.Errorf("embed candidate: %w", err)
		}
		cand.Embedding = vec
	}

	funders, err := e.loadFunders(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	jobs := make(chan *models.Funder)
	var (
		mu      sync.Mutex
		results []*matching.Result
		skipped int
		wg      sync.WaitGroup
	)

	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for funder := range jobs {
				result, err := e.scorePair(ctx, funder, &cand, now)
				mu.Lock()
				if err != nil {
					skipped++
					e.logger.Warn("skipping funder",
						zap.String("funder_num", funder.RegisteredNum),
						zap.Error(err))
				} else {
					results = append(results, result)
				}
				mu.Unlock()
			}
		}()
	}

	for _, funder := range funders {
		select {
		case jobs <- funder:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	// Final score descending; registered number breaks ties so repeated
	// runs rank identically.
	sort.Slice(results, func(i, j int) bool {
		if results[i].FinalScore != results[j].FinalScore {
			return results[i].FinalScore > results[j].FinalScore
		}
		return results[i].FunderNum < results[j].FunderNum
	})

	scored := len(results)
	if req.MinScore > 0 {
		filtered := results[:0]
		for _, r := range results {
			if r.FinalScore >= req.MinScore {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	total := len(results)
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if len(results) > limit {
		results = results[:limit]
	}

	return &MatchResponse{
		Results:   results,
		Total:     total,
		Scored:    scored,
		Skipped:   skipped,
		QueryTime: time.Since(startTime).Milliseconds(),
	}, nil
}

// scorePair loads the funder's grant history and runs the matcher.
func (e *Engine) scorePair(ctx context.Context, funder *models.Funder, cand *models.Candidate, now time.Time) (*matching.Result, error) {
	history, err := e.storage.LoadHistory(ctx, funder.RegisteredNum)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	funder.History = history
	return e.matcher.Score(ctx, funder, cand, now)
}

// loadFunders pages through the whole registry.
func (e *Engine) loadFunders(ctx context.Context) ([]*models.Funder, error) {
	var funders []*models.Funder
	for offset := 0; ; offset += listPageSize {
		page, err := e.storage.ListFunders(ctx, offset, listPageSize)
		if err != nil {
			return nil, fmt.Errorf("list funders: %w", err)
		}
		funders = append(funders, page...)
		if len(page) < listPageSize {
			return funders, nil
		}
	}
}

// candidateText composes the text embedded for a candidate that arrives
// without a precomputed embedding.
func candidateText(cand *models.Candidate) string {
	parts := []string{cand.Name}
	if len(cand.Keywords) > 0 {
		parts = append(parts, strings.Join(cand.Keywords, ", "))
	}
	return strings.Join(parts, ". ")
}

// Package orchestrator runs one ingestion cycle end to end: start a
// fetch-run record, pull articles from the selected source, classify and
// reconcile each one against the content store, and finalize the run with
// its metrics. Fetch-stage failures are fatal for the run; per-article
// write failures and telemetry failures are logged and absorbed.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"newswire/deduplication"
	"newswire/fetcher"
	"newswire/storage"
	"newswire/types"
)

const defaultRunDeadline = 5 * time.Minute

// Source pulls a batch of articles from an upstream provider.
type Source interface {
	Source() types.SourceType
	Fetch(ctx context.Context, keyword string, limit int) ([]types.Article, error)
}

// ContentStore is the write-side slice of the store gateway the
// orchestrator needs.
type ContentStore interface {
	FindByTitle(ctx context.Context, title string) (*types.Article, error)
	FindByURL(ctx context.Context, url string) (*types.Article, error)
	Upsert(ctx context.Context, article *types.Article) error
	StartRun(ctx context.Context, source types.SourceType) (string, error)
	FinishRunByIDOrMostRecentPending(ctx context.Context, runID string, source types.SourceType, status types.RunStatus, metrics storage.RunMetrics) error
}

// Classifier decides duplicate status for one candidate article.
type Classifier interface {
	Classify(ctx context.Context, article *types.Article, threshold float64) deduplication.Classification
	Remember(ctx context.Context, article *types.Article)
}

// Archiver persists the raw fetched batch for audit. Optional.
type Archiver interface {
	ArchiveBatch(ctx context.Context, runID string, articles []types.Article) error
}

// Config wires the orchestrator's collaborators.
type Config struct {
	Sources    map[types.SourceType]Source
	Store      ContentStore
	Classifier Classifier
	Archiver   Archiver
	// APIKey is only validated when the news_api source is requested.
	APIKey      string
	RunDeadline time.Duration
	Logger      *zap.Logger
}

// Orchestrator is the single entry point callers invoke.
type Orchestrator struct {
	sources     map[types.SourceType]Source
	store       ContentStore
	classifier  Classifier
	archiver    Archiver
	apiKey      string
	runDeadline time.Duration
	logger      *zap.Logger
}

// New constructs the orchestrator.
func New(cfg Config) *Orchestrator {
	if cfg.RunDeadline <= 0 {
		cfg.RunDeadline = defaultRunDeadline
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Orchestrator{
		sources:     cfg.Sources,
		store:       cfg.Store,
		classifier:  cfg.Classifier,
		archiver:    cfg.Archiver,
		apiKey:      cfg.APIKey,
		runDeadline: cfg.RunDeadline,
		logger:      cfg.Logger,
	}
}

// Run executes one ingestion invocation. The returned response is always
// populated; err is non-nil only for fatal failures (configuration or
// fetch stage), in which case the response carries success=false and the
// run record carries the error message.
func (o *Orchestrator) Run(ctx context.Context, req types.IngestRequest) (types.IngestResponse, error) {
	req.Normalize()
	start := time.Now()

	// The whole run is bounded so a hung collaborator cannot stall it
	// forever; telemetry finalization deliberately escapes the deadline.
	ctx, cancel := context.WithTimeout(ctx, o.runDeadline)
	defer cancel()

	result := newRunResult()

	if err := o.validate(req); err != nil {
		return o.fail(ctx, "", req, result, start, err)
	}

	runID, err := o.store.StartRun(ctx, req.Source)
	if err != nil {
		// Telemetry is best effort; ingestion is not.
		o.logger.Error("failed to record run start", zap.Error(err))
		runID = ""
	}

	source := o.sources[req.Source]
	articles, err := source.Fetch(ctx, req.Keyword, req.Limit)
	if err != nil {
		return o.fail(ctx, runID, req, result, start, err)
	}
	result.fetched = len(articles)

	if o.archiver != nil && runID != "" {
		if err := o.archiver.ArchiveBatch(ctx, runID, articles); err != nil {
			o.logger.Warn("batch archival failed", zap.String("run_id", runID), zap.Error(err))
		}
	}

	// Sequential on purpose: an article written earlier in the batch is
	// visible to later articles' URL and title checks.
	for i := range articles {
		o.reconcile(ctx, &articles[i], req, result)
	}

	o.finalize(ctx, runID, req, result, types.RunSuccess, nil, start)

	resp := types.IngestResponse{
		Success: true,
		Count:   result.added,
		Message: result.summary(),
	}
	if req.TestMode {
		resp.Articles = result.articles
		resp.DuplicateGroups = result.groups
	}
	return resp, nil
}

func (o *Orchestrator) validate(req types.IngestRequest) error {
	if _, ok := o.sources[req.Source]; !ok {
		return fmt.Errorf("unknown source type %q", req.Source)
	}
	if req.Source == types.SourceNewsAPI && o.apiKey == "" {
		return errors.New("news api credential is not configured; set NEWS_API_KEY")
	}
	return nil
}

// reconcile classifies and writes one article. Failures here only reduce
// the counters; they never abort the batch.
func (o *Orchestrator) reconcile(ctx context.Context, article *types.Article, req types.IngestRequest, result *runResult) {
	enrich(article, req.Keyword)

	classification := o.classifier.Classify(ctx, article, req.DeduplicationThreshold)

	existing, err := o.store.FindByTitle(ctx, article.Title)
	if err != nil {
		o.logger.Error("title lookup failed, skipping article",
			zap.String("title", article.Title), zap.Error(err))
		result.failed++
		return
	}

	// A same-URL article whose headline changed must land on its
	// existing row; inserting under the new title would trip the url
	// unique constraint.
	if existing == nil && article.URL != nil {
		existing, err = o.store.FindByURL(ctx, *article.URL)
		if err != nil {
			o.logger.Error("url lookup failed, skipping article",
				zap.String("title", article.Title), zap.Error(err))
			result.failed++
			return
		}
	}

	if existing != nil {
		article.ID = existing.ID
	} else {
		article.ID = types.NewArticleID()
	}

	if classification.IsDuplicate {
		article.MarkDuplicate(classification.DuplicateOf, classification.Similarity)
		result.recordGroup(classification.DuplicateOf, classification.SimilarArticles)
	}

	result.articles = append(result.articles, *article)

	if classification.IsDuplicate && *req.SkipDuplicates {
		result.duplicatesSkipped++
		return
	}

	if err := o.store.Upsert(ctx, article); err != nil {
		o.logger.Error("article write failed",
			zap.String("title", article.Title), zap.Error(err))
		result.failed++
		return
	}

	if existing != nil {
		result.updated++
	} else {
		result.added++
		o.classifier.Remember(ctx, article)
	}
}

// fail finalizes the run as errored and builds the failure response.
func (o *Orchestrator) fail(ctx context.Context, runID string, req types.IngestRequest, result *runResult, start time.Time, cause error) (types.IngestResponse, error) {
	message := failureMessage(cause)
	o.logger.Error("ingestion run failed", zap.String("run_id", runID), zap.Error(cause))
	o.finalize(ctx, runID, req, result, types.RunError, &message, start)
	return types.IngestResponse{Success: false, Message: message}, cause
}

// finalize persists the run metrics. Runs even when the run deadline has
// expired, and never surfaces its own failure.
func (o *Orchestrator) finalize(ctx context.Context, runID string, req types.IngestRequest, result *runResult, status types.RunStatus, errMsg *string, start time.Time) {
	metrics := result.metrics(req, time.Since(start), errMsg)

	finalizeCtx := context.WithoutCancel(ctx)
	if err := o.store.FinishRunByIDOrMostRecentPending(finalizeCtx, runID, req.Source, status, metrics); err != nil {
		o.logger.Error("failed to record run telemetry",
			zap.String("run_id", runID), zap.Error(err))
	}
}

// failureMessage turns a fatal error into the actionable message stored
// on the run and returned to the caller.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, fetcher.ErrInvalidCredentials):
		return fmt.Sprintf("news source rejected the configured credentials: %v", err)
	case errors.Is(err, fetcher.ErrRateLimited):
		return fmt.Sprintf("news source rate limit reached, retry later: %v", err)
	case errors.Is(err, fetcher.ErrTimeout):
		return fmt.Sprintf("news source did not respond in time: %v", err)
	case errors.Is(err, fetcher.ErrBadResponse):
		return fmt.Sprintf("news source returned an unusable response: %v", err)
	default:
		return err.Error()
	}
}

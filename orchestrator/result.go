package orchestrator

import (
	"fmt"
	"time"

	"newswire/storage"
	"newswire/types"
)

// runResult accumulates everything a run produces in memory; it is
// persisted exactly once, by finalize. Keeping the accumulator separate
// from the telemetry write keeps pipeline failures and telemetry failures
// on different error channels.
type runResult struct {
	fetched           int
	added             int
	updated           int
	duplicatesSkipped int
	failed            int
	articles          []types.Article
	groups            map[string][]types.SimilarityMatch
}

func newRunResult() *runResult {
	return &runResult{groups: make(map[string][]types.SimilarityMatch)}
}

// recordGroup indexes the advisory near-match cluster by the duplicate
// target so test-mode callers can inspect grouping decisions.
func (r *runResult) recordGroup(duplicateOf string, matches []types.SimilarityMatch) {
	if duplicateOf == "" || len(matches) == 0 {
		return
	}
	r.groups[duplicateOf] = append(r.groups[duplicateOf], matches...)
}

func (r *runResult) metrics(req types.IngestRequest, elapsed time.Duration, errMsg *string) storage.RunMetrics {
	return storage.RunMetrics{
		Fetched:           r.fetched,
		Added:             r.added,
		Updated:           r.updated,
		DuplicatesSkipped: r.duplicatesSkipped,
		ExecutionTimeMs:   elapsed.Milliseconds(),
		ErrorMessage:      errMsg,
		Metadata: types.Metadata{
			"keyword":         req.Keyword,
			"limit":           req.Limit,
			"skip_duplicates": *req.SkipDuplicates,
			"threshold":       req.DeduplicationThreshold,
			"test_mode":       req.TestMode,
			"failed":          r.failed,
		},
	}
}

func (r *runResult) summary() string {
	msg := fmt.Sprintf("Processed %d articles: %d added, %d updated, %d duplicates skipped",
		r.fetched, r.added, r.updated, r.duplicatesSkipped)
	if r.failed > 0 {
		msg += fmt.Sprintf(" (%d failed to store)", r.failed)
	}
	return msg
}

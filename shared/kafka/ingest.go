package kafka

import (
	"context"

	"go.uber.org/zap"

	"newswire/types"
)

// Runner executes one ingestion cycle; the orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, req types.IngestRequest) (types.IngestResponse, error)
}

// NewIngestHandler builds the handler for ingestion-trigger messages.
// The payload is a types.IngestRequest; an empty object triggers a run
// with all defaults. Run failures leave the message unmarked so the
// trigger is retried.
func NewIngestHandler(runner Runner, logger *zap.Logger) MessageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TypedMessageHandler[types.IngestRequest]{
		AlwaysMark: true,
		Logger:     logger,
		Process: func(ctx context.Context, req *types.IngestRequest) error {
			resp, err := runner.Run(ctx, *req)
			if err != nil {
				return err
			}
			logger.Info("triggered ingestion run finished",
				zap.Int("added", resp.Count), zap.String("message", resp.Message))
			return nil
		},
	}
}

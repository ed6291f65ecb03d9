package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"newswire/config"
	"newswire/types"
)

// S3 wraps the AWS SDK for Go v2 S3 client with the narrow surface the
// archiver needs.
type S3 struct {
	client *s3.Client
}

// NewS3 creates an S3 wrapper using the default AWS configuration
// chain, with optional overrides from config.
func NewS3(ctx context.Context, cfg config.S3) (*S3, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	c := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3{client: c}, nil
}

// Put uploads an object to the given bucket/key.
func (s *S3) Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	_, err := s.client.PutObject(ctx, in)
	return err
}

// Exists returns true on HTTP 200 from HeadObject; false on 404/NotFound.
func (s *S3) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return false, nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
		return false, nil
	}

	return false, err
}

// archivedBatch is the object layout written for each run.
type archivedBatch struct {
	RunID      string          `json:"run_id"`
	ArchivedAt time.Time       `json:"archived_at"`
	Count      int             `json:"count"`
	Articles   []types.Article `json:"articles"`
}

// Archiver persists each run's raw fetched batch to S3 as one JSON
// object per run, keyed by run ID so re-archiving the same run is a
// no-op.
type Archiver struct {
	store  *S3
	bucket string
	prefix string
	logger *zap.Logger
}

// NewArchiver constructs an archiver writing under cfg.Prefix in
// cfg.Bucket.
func NewArchiver(store *S3, cfg config.S3, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &Archiver{store: store, bucket: cfg.Bucket, prefix: prefix, logger: logger}
}

// ArchiveBatch writes the fetched batch for one run. The key is
// deterministic per run ID; if the object already exists the batch was
// archived by an earlier attempt and is left untouched.
func (a *Archiver) ArchiveBatch(ctx context.Context, runID string, articles []types.Article) error {
	key := a.key(runID)

	exists, err := a.store.Exists(ctx, a.bucket, key)
	if err != nil {
		return fmt.Errorf("failed to check archive for run %s: %w", runID, err)
	}
	if exists {
		a.logger.Debug("batch already archived", zap.String("key", key))
		return nil
	}

	payload, err := json.Marshal(archivedBatch{
		RunID:      runID,
		ArchivedAt: time.Now().UTC(),
		Count:      len(articles),
		Articles:   articles,
	})
	if err != nil {
		return fmt.Errorf("failed to encode batch for run %s: %w", runID, err)
	}

	if err := a.store.Put(ctx, a.bucket, key, bytes.NewReader(payload), "application/json"); err != nil {
		return fmt.Errorf("failed to archive batch for run %s: %w", runID, err)
	}

	a.logger.Info("archived fetched batch",
		zap.String("key", key), zap.Int("articles", len(articles)))
	return nil
}

func (a *Archiver) key(runID string) string {
	return a.prefix + "runs/" + runID + ".json"
}

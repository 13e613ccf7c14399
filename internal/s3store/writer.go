// Package s3store wraps the S3 operations the copier needs: a bucket
// reachability probe and single-call object uploads.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrBucketNotFound is returned by CheckBucket when the bucket does not exist.
var ErrBucketNotFound = errors.New("s3store: bucket not found")

// ErrBucketForbidden is returned by CheckBucket when the caller has no
// permission to access the bucket.
var ErrBucketForbidden = errors.New("s3store: access to bucket denied")

// api is the subset of the S3 client used by Writer. Tests substitute a fake.
type api interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Writer uploads byte streams to keys in a single S3 bucket.
type Writer struct {
	client api
	bucket string
	logger *slog.Logger
}

// New creates a Writer for the given bucket. When profile is non-empty the
// named shared-config profile is used; otherwise credentials resolve through
// the default chain (environment, shared config, instance role).
func New(ctx context.Context, bucket, profile string, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := make([]func(*awsconfig.LoadOptions) error, 0, 1)
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3store: loading AWS config: %w", err)
	}

	return &Writer{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		logger: logger,
	}, nil
}

// NewWithClient creates a Writer with an injected S3 client. Used by tests.
func NewWithClient(client api, bucket string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Writer{client: client, bucket: bucket, logger: logger}
}

// CheckBucket verifies the bucket exists and is accessible. Missing buckets
// wrap ErrBucketNotFound and permission failures wrap ErrBucketForbidden so
// callers can report setup errors precisely.
func (w *Writer) CheckBucket(ctx context.Context) error {
	_, err := w.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(w.bucket),
	})
	if err == nil {
		w.logger.Debug("bucket reachable", slog.String("bucket", w.bucket))
		return nil
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return fmt.Errorf("s3store: bucket %s: %w", w.bucket, ErrBucketNotFound)
		case http.StatusForbidden:
			return fmt.Errorf("s3store: bucket %s: %w", w.bucket, ErrBucketForbidden)
		}
	}

	return fmt.Errorf("s3store: checking bucket %s: %w", w.bucket, err)
}

// Put uploads size bytes from body to the given key. One blocking call per
// object; the SDK handles signing and transport retries.
func (w *Writer) Put(ctx context.Context, key string, body io.Reader, size int64) error {
	_, err := w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(w.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("s3store: putting s3://%s/%s: %w", w.bucket, key, err)
	}

	w.logger.Debug("object uploaded",
		slog.String("bucket", w.bucket),
		slog.String("key", key),
		slog.Int64("size", size),
	)

	return nil
}

package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// PutObjectAPI is the subset of the S3 client used by the exporter.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// s3Exporter implements Exporter by uploading reports to an S3 bucket.
type s3Exporter struct {
	client PutObjectAPI
	bucket string
	logger zerolog.Logger
}

// NewS3Exporter creates an exporter for bucket using the default AWS credential chain.
func NewS3Exporter(ctx context.Context, bucket, region string, logger zerolog.Logger) (Exporter, error) {
	logger = logger.With().Str("component", "s3-exporter").Logger()

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	logger.Info().
		Str("bucket", bucket).
		Str("region", region).
		Msg("S3 exporter initialised")

	return NewS3ExporterWithClient(s3.NewFromConfig(cfg), bucket, logger), nil
}

// NewS3ExporterWithClient creates an exporter over an existing client.
func NewS3ExporterWithClient(client PutObjectAPI, bucket string, logger zerolog.Logger) Exporter {
	return &s3Exporter{
		client: client,
		bucket: bucket,
		logger: logger,
	}
}

// Export uploads data under key and returns its s3:// location.
func (e *s3Exporter) Export(ctx context.Context, key string, data []byte) (string, error) {
	_, err := e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		e.logger.Error().
			Err(err).
			Str("bucket", e.bucket).
			Str("key", key).
			Msg("failed to put object to S3")
		return "", fmt.Errorf("failed to put object to S3 (bucket=%s, key=%s): %w", e.bucket, key, err)
	}

	location := fmt.Sprintf("s3://%s/%s", e.bucket, key)
	e.logger.Info().
		Str("location", location).
		Int("bytes", len(data)).
		Msg("report uploaded")
	return location, nil
}

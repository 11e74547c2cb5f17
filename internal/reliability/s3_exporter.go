// Package reliability keeps run artifacts and databases healthy: result export
// to S3-compatible storage and periodic database maintenance.
package reliability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/aristath/tradepath/internal/modules/simulation"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ErrExportDisabled is returned by NewS3Exporter when no bucket is configured
var ErrExportDisabled = errors.New("artifact export disabled: no bucket configured")

// DefaultPrefix is the key prefix of exported run results
const DefaultPrefix = "runs"

// S3Config describes the artifact bucket
type S3Config struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

// Uploader is the part of the S3 upload manager the exporter uses
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Exporter uploads completed run results as JSON documents
type S3Exporter struct {
	uploader Uploader
	bucket   string
	prefix   string
	log      zerolog.Logger
}

// Artifact is the exported document
type Artifact struct {
	ExportedAt time.Time          `json:"exported_at"`
	Result     *simulation.Result `json:"result"`
	RunID      string             `json:"run_id"`
	Return     float64            `json:"return"`
}

// NewS3Exporter builds an exporter from static credentials.
// A custom endpoint switches to path-style addressing for S3-compatible stores.
func NewS3Exporter(ctx context.Context, cfg S3Config, log zerolog.Logger) (*S3Exporter, error) {
	if cfg.Bucket == "" {
		return nil, ErrExportDisabled
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3ExporterWithUploader(manager.NewUploader(client), cfg.Bucket, cfg.Prefix, log), nil
}

// NewS3ExporterWithUploader creates an exporter over an existing uploader
func NewS3ExporterWithUploader(uploader Uploader, bucket, prefix string, log zerolog.Logger) *S3Exporter {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &S3Exporter{
		uploader: uploader,
		bucket:   bucket,
		prefix:   prefix,
		log:      log.With().Str("service", "s3_exporter").Logger(),
	}
}

// Key returns the object key of a run's artifact
func (e *S3Exporter) Key(runID string) string {
	return path.Join(e.prefix, runID+".json")
}

// Export uploads result to <bucket>/<prefix>/<runID>.json
func (e *S3Exporter) Export(ctx context.Context, runID string, result *simulation.Result) error {
	if result == nil {
		return fmt.Errorf("export %s: nil result", runID)
	}

	body, err := json.MarshalIndent(Artifact{
		ExportedAt: time.Now().UTC(),
		Result:     result,
		RunID:      runID,
		Return:     result.Return(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}

	key := e.Key(runID)
	start := time.Now()
	out, err := e.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	location := ""
	if out != nil {
		location = out.Location
	}
	e.log.Info().
		Str("run_id", runID).
		Str("key", key).
		Str("location", location).
		Int("bytes", len(body)).
		Dur("duration", time.Since(start)).
		Msg("Run result exported")

	return nil
}

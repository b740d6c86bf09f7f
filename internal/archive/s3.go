// Package archive keeps a raw copy of every imported sheet in S3-compatible
// object storage before it replaces the live data.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/hongminglow/sales-dashboard-be/internal/config"
)

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes JSON snapshots under prefix/dataset/YYYY/MM/DD/.
type S3Archiver struct {
	client putObjectAPI
	bucket string
	prefix string
	newID  func() string
}

// NewS3Archiver resolves AWS configuration the SDK way, overriding region,
// static keys and endpoint when they are set.
func NewS3Archiver(ctx context.Context, cfg config.S3Config) (*S3Archiver, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Archiver(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3Archiver(client putObjectAPI, bucket, prefix string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket, prefix: prefix, newID: uuid.NewString}
}

// ArchiveSnapshot uploads rows as a JSON array and returns the object key.
func (a *S3Archiver) ArchiveSnapshot(ctx context.Context, dataset string, rows []map[string]string, at time.Time) (string, error) {
	body, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	key := SnapshotKey(a.prefix, dataset, at, a.newID())
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return key, nil
}

func SnapshotKey(prefix, dataset string, at time.Time, id string) string {
	at = at.UTC()
	return path.Join(prefix, dataset, fmt.Sprintf("%04d/%02d/%02d", at.Year(), at.Month(), at.Day()), id+".json")
}

// Package archive keeps scan results in an S3 results bucket so later runs
// and report generators can read them back.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/phiguard/internal/models"
)

// Prefix is the key prefix every archived scan lives under.
const Prefix = "scans/"

// ErrNoRecords is returned by Latest when the bucket holds no scans.
var ErrNoRecords = errors.New("no archived scans")

// Client is the subset of the S3 API the archive uses.
type Client interface {
	s3svc.ListObjectsV2APIClient
	PutObject(ctx context.Context, params *s3svc.PutObjectInput, optFns ...func(*s3svc.Options)) (*s3svc.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3svc.GetObjectInput, optFns ...func(*s3svc.Options)) (*s3svc.GetObjectOutput, error)
}

// Record is one archived run.
type Record struct {
	RunID       string            `json:"run_id"`
	AccountID   string            `json:"account_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Result      models.ScanResult `json:"result"`
}

// NewRecord stamps result with a fresh run ID and the current time.
func NewRecord(accountID string, result *models.ScanResult) Record {
	return Record{
		RunID:       uuid.New().String(),
		AccountID:   accountID,
		GeneratedAt: time.Now().UTC(),
		Result:      *result,
	}
}

// Key returns the object key for rec: scans/YYYY/MM/DD/<run-id>.json.
func Key(rec Record) string {
	return fmt.Sprintf("%s%s/%s.json", Prefix, rec.GeneratedAt.UTC().Format("2006/01/02"), rec.RunID)
}

// Archive reads and writes records in one bucket.
type Archive struct {
	client Client
	bucket string
	log    zerolog.Logger
}

// New returns an Archive storing records in bucket.
func New(client Client, bucket string, log zerolog.Logger) *Archive {
	return &Archive{client: client, bucket: bucket, log: log}
}

// NewFromConfig returns an Archive backed by a real S3 client.
func NewFromConfig(cfg aws.Config, bucket string, log zerolog.Logger) *Archive {
	return New(s3svc.NewFromConfig(cfg), bucket, log)
}

// Save writes rec and returns its key.
func (a *Archive) Save(ctx context.Context, rec Record) (string, error) {
	body, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	key := Key(rec)
	_, err = a.client.PutObject(ctx, &s3svc.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", a.bucket, key, err)
	}
	a.log.Info().Str("bucket", a.bucket).Str("key", key).Int("bytes", len(body)).Msg("scan archived")
	return key, nil
}

// Latest returns the most recently written record.
func (a *Archive) Latest(ctx context.Context) (*Record, error) {
	var (
		newestKey string
		newestAt  time.Time
	)
	pager := s3svc.NewListObjectsV2Paginator(a.client, &s3svc.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(Prefix),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", a.bucket, Prefix, err)
		}
		for _, obj := range page.Contents {
			at := aws.ToTime(obj.LastModified)
			if newestKey == "" || at.After(newestAt) {
				newestKey, newestAt = aws.ToString(obj.Key), at
			}
		}
	}
	if newestKey == "" {
		return nil, ErrNoRecords
	}
	return a.Get(ctx, newestKey)
}

// Get reads the record stored at key.
func (a *Archive) Get(ctx context.Context, key string) (*Record, error) {
	out, err := a.client.GetObject(ctx, &s3svc.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", a.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", a.bucket, key, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode s3://%s/%s: %w", a.bucket, key, err)
	}
	return &rec, nil
}

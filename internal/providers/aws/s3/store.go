// Package awss3 is the S3 capability layer. It lists buckets, reads each
// bucket's security configuration as tri-state lookups and performs the
// corrective writes used by remediation. Nothing above this package sees SDK
// errors for "configuration not set"; those arrive as models.LookupAbsent.
package awss3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/pankaj-dahiya-devops/phiguard/internal/models"
)

// listPageSize is the MaxBuckets value sent with each ListBuckets page.
const listPageSize int32 = 1000

// Store performs S3 calls for one account. It remembers the region of every
// bucket seen during ListBucketNames so later per-bucket calls are sent to
// the bucket's home region. A Store is not safe for concurrent use.
type Store struct {
	client  Client
	regions map[string]string
}

// NewStore wraps client.
func NewStore(client Client) *Store {
	return &Store{client: client, regions: make(map[string]string)}
}

// NewStoreFromConfig builds a Store backed by a real S3 client.
func NewStoreFromConfig(cfg aws.Config) *Store {
	return NewStore(s3svc.NewFromConfig(cfg))
}

// inRegion returns the per-call option routing a request for bucket to its
// home region, when known.
func (s *Store) inRegion(bucket string) []func(*s3svc.Options) {
	region, ok := s.regions[bucket]
	if !ok || region == "" {
		return nil
	}
	return []func(*s3svc.Options){func(o *s3svc.Options) { o.Region = region }}
}

// ListBucketNames pages through ListBuckets and returns every bucket name in
// listing order. Any page failure fails the whole listing.
func (s *Store) ListBucketNames(ctx context.Context) ([]string, error) {
	var names []string
	pager := s3svc.NewListBucketsPaginator(s.client, &s3svc.ListBucketsInput{
		MaxBuckets: aws.Int32(listPageSize),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list S3 buckets: %w", err)
		}
		for _, b := range page.Buckets {
			name := aws.ToString(b.Name)
			if name == "" {
				continue
			}
			if b.BucketRegion != nil {
				s.regions[name] = aws.ToString(b.BucketRegion)
			}
			names = append(names, name)
		}
	}
	return names, nil
}

// CollectPosture reads the four security configurations of bucket. Each read
// is independent: a failure in one is recorded in its Lookup and never stops
// the others.
func (s *Store) CollectPosture(ctx context.Context, bucket string) models.BucketPosture {
	return models.BucketPosture{
		Name:              bucket,
		PublicAccessBlock: s.PublicAccessBlock(ctx, bucket),
		ACL:               s.BucketACL(ctx, bucket),
		Policy:            s.BucketPolicy(ctx, bucket),
		Encryption:        s.BucketEncryption(ctx, bucket),
	}
}

// PublicAccessBlock reads the bucket's public access block. A bucket with no
// configuration is Absent.
func (s *Store) PublicAccessBlock(ctx context.Context, bucket string) models.Lookup[models.PublicAccessBlock] {
	out, err := s.client.GetPublicAccessBlock(ctx, &s3svc.GetPublicAccessBlockInput{
		Bucket: aws.String(bucket),
	}, s.inRegion(bucket)...)
	if err != nil {
		return classify[models.PublicAccessBlock](err, codeNoPublicAccessBlock)
	}
	cfg := out.PublicAccessBlockConfiguration
	if cfg == nil {
		return models.Absent[models.PublicAccessBlock]()
	}
	return models.Present(models.PublicAccessBlock{
		BlockPublicAcls:       aws.ToBool(cfg.BlockPublicAcls),
		IgnorePublicAcls:      aws.ToBool(cfg.IgnorePublicAcls),
		BlockPublicPolicy:     aws.ToBool(cfg.BlockPublicPolicy),
		RestrictPublicBuckets: aws.ToBool(cfg.RestrictPublicBuckets),
	})
}

// BucketACL reads the bucket ACL grants. Every bucket has an ACL, so the
// result is either Present or Failed.
func (s *Store) BucketACL(ctx context.Context, bucket string) models.Lookup[[]models.Grant] {
	out, err := s.client.GetBucketAcl(ctx, &s3svc.GetBucketAclInput{
		Bucket: aws.String(bucket),
	}, s.inRegion(bucket)...)
	if err != nil {
		return models.Failed[[]models.Grant](fmt.Errorf("get bucket ACL: %w", err))
	}
	return models.Present(toGrants(out.Grants))
}

// BucketPolicy reads the raw bucket policy document. A bucket without a
// policy is Absent.
func (s *Store) BucketPolicy(ctx context.Context, bucket string) models.Lookup[string] {
	out, err := s.client.GetBucketPolicy(ctx, &s3svc.GetBucketPolicyInput{
		Bucket: aws.String(bucket),
	}, s.inRegion(bucket)...)
	if err != nil {
		return classify[string](err, codeNoBucketPolicy)
	}
	if aws.ToString(out.Policy) == "" {
		return models.Absent[string]()
	}
	return models.Present(aws.ToString(out.Policy))
}

// BucketEncryption reads the default encryption rules and returns their SSE
// algorithms. A bucket without default encryption is Absent.
func (s *Store) BucketEncryption(ctx context.Context, bucket string) models.Lookup[[]string] {
	out, err := s.client.GetBucketEncryption(ctx, &s3svc.GetBucketEncryptionInput{
		Bucket: aws.String(bucket),
	}, s.inRegion(bucket)...)
	if err != nil {
		return classify[[]string](err, codeNoEncryption)
	}
	var algos []string
	if cfg := out.ServerSideEncryptionConfiguration; cfg != nil {
		for _, r := range cfg.Rules {
			if r.ApplyServerSideEncryptionByDefault != nil {
				algos = append(algos, string(r.ApplyServerSideEncryptionByDefault.SSEAlgorithm))
			}
		}
	}
	if len(algos) == 0 {
		return models.Absent[[]string]()
	}
	return models.Present(algos)
}

// ListObjectKeys returns up to limit object keys from a single ListObjectsV2
// page.
func (s *Store) ListObjectKeys(ctx context.Context, bucket string, limit int32) ([]string, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3svc.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		MaxKeys: aws.Int32(limit),
	}, s.inRegion(bucket)...)
	if err != nil {
		return nil, fmt.Errorf("list objects in %s: %w", bucket, err)
	}
	keys := make([]string, 0, len(out.Contents))
	for _, o := range out.Contents {
		keys = append(keys, aws.ToString(o.Key))
	}
	return keys, nil
}

// ObjectGrants returns the ACL grants of one object.
func (s *Store) ObjectGrants(ctx context.Context, bucket, key string) ([]models.Grant, error) {
	out, err := s.client.GetObjectAcl(ctx, &s3svc.GetObjectAclInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s.inRegion(bucket)...)
	if err != nil {
		return nil, fmt.Errorf("get object ACL %s/%s: %w", bucket, key, err)
	}
	return toGrants(out.Grants), nil
}

// SetPrivateACL replaces the bucket ACL with the canned "private" ACL.
func (s *Store) SetPrivateACL(ctx context.Context, bucket string) error {
	_, err := s.client.PutBucketAcl(ctx, &s3svc.PutBucketAclInput{
		Bucket: aws.String(bucket),
		ACL:    s3types.BucketCannedACLPrivate,
	}, s.inRegion(bucket)...)
	if err != nil {
		return fmt.Errorf("put bucket ACL: %w", err)
	}
	return nil
}

// BlockPublicAccess enables all four public access block flags.
func (s *Store) BlockPublicAccess(ctx context.Context, bucket string) error {
	_, err := s.client.PutPublicAccessBlock(ctx, &s3svc.PutPublicAccessBlockInput{
		Bucket: aws.String(bucket),
		PublicAccessBlockConfiguration: &s3types.PublicAccessBlockConfiguration{
			BlockPublicAcls:       aws.Bool(true),
			IgnorePublicAcls:      aws.Bool(true),
			BlockPublicPolicy:     aws.Bool(true),
			RestrictPublicBuckets: aws.Bool(true),
		},
	}, s.inRegion(bucket)...)
	if err != nil {
		return fmt.Errorf("put public access block: %w", err)
	}
	return nil
}

// PutPolicy replaces the bucket policy with doc.
func (s *Store) PutPolicy(ctx context.Context, bucket, doc string) error {
	_, err := s.client.PutBucketPolicy(ctx, &s3svc.PutBucketPolicyInput{
		Bucket: aws.String(bucket),
		Policy: aws.String(doc),
	}, s.inRegion(bucket)...)
	if err != nil {
		return fmt.Errorf("put bucket policy: %w", err)
	}
	return nil
}

// DeletePolicy removes the bucket policy.
func (s *Store) DeletePolicy(ctx context.Context, bucket string) error {
	_, err := s.client.DeleteBucketPolicy(ctx, &s3svc.DeleteBucketPolicyInput{
		Bucket: aws.String(bucket),
	}, s.inRegion(bucket)...)
	if err != nil {
		return fmt.Errorf("delete bucket policy: %w", err)
	}
	return nil
}

// EnableDefaultEncryption turns on SSE-S3 (AES256) default encryption with
// S3 Bucket Keys enabled.
func (s *Store) EnableDefaultEncryption(ctx context.Context, bucket string) error {
	_, err := s.client.PutBucketEncryption(ctx, &s3svc.PutBucketEncryptionInput{
		Bucket: aws.String(bucket),
		ServerSideEncryptionConfiguration: &s3types.ServerSideEncryptionConfiguration{
			Rules: []s3types.ServerSideEncryptionRule{{
				ApplyServerSideEncryptionByDefault: &s3types.ServerSideEncryptionByDefault{
					SSEAlgorithm: s3types.ServerSideEncryptionAes256,
				},
				BucketKeyEnabled: aws.Bool(true),
			}},
		},
	}, s.inRegion(bucket)...)
	if err != nil {
		return fmt.Errorf("put bucket encryption: %w", err)
	}
	return nil
}

// EnableVersioning turns on object versioning.
func (s *Store) EnableVersioning(ctx context.Context, bucket string) error {
	_, err := s.client.PutBucketVersioning(ctx, &s3svc.PutBucketVersioningInput{
		Bucket: aws.String(bucket),
		VersioningConfiguration: &s3types.VersioningConfiguration{
			Status: s3types.BucketVersioningStatusEnabled,
		},
	}, s.inRegion(bucket)...)
	if err != nil {
		return fmt.Errorf("put bucket versioning: %w", err)
	}
	return nil
}

// BucketExists reports whether bucket exists and is reachable with the
// current credentials. Only a not-found answer yields false without error.
func (s *Store) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := s.client.HeadBucket(ctx, &s3svc.HeadBucketInput{
		Bucket: aws.String(bucket),
	}, s.inRegion(bucket)...)
	if err == nil {
		return true, nil
	}
	if code := ErrorCode(err); code == codeNotFound || code == codeNoSuchBucket {
		return false, nil
	}
	return false, fmt.Errorf("head bucket %s: %w", bucket, err)
}

// CreateBucketNear creates bucket in the home region of near. Later calls for
// bucket are routed to that region.
func (s *Store) CreateBucketNear(ctx context.Context, bucket, near string) error {
	region := s.regions[near]
	in := &s3svc.CreateBucketInput{Bucket: aws.String(bucket)}
	// us-east-1 rejects an explicit location constraint.
	if region != "" && region != "us-east-1" {
		in.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(region),
		}
	}
	if _, err := s.client.CreateBucket(ctx, in, s.inRegion(near)...); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	if region != "" {
		s.regions[bucket] = region
	}
	return nil
}

// EnableAccessLogging sends server access logs for bucket to target under
// prefix.
func (s *Store) EnableAccessLogging(ctx context.Context, bucket, target, prefix string) error {
	_, err := s.client.PutBucketLogging(ctx, &s3svc.PutBucketLoggingInput{
		Bucket: aws.String(bucket),
		BucketLoggingStatus: &s3types.BucketLoggingStatus{
			LoggingEnabled: &s3types.LoggingEnabled{
				TargetBucket: aws.String(target),
				TargetPrefix: aws.String(prefix),
			},
		},
	}, s.inRegion(bucket)...)
	if err != nil {
		return fmt.Errorf("put bucket logging: %w", err)
	}
	return nil
}

func toGrants(in []s3types.Grant) []models.Grant {
	grants := make([]models.Grant, 0, len(in))
	for _, g := range in {
		grant := models.Grant{Permission: string(g.Permission)}
		if g.Grantee != nil {
			grant.GranteeType = string(g.Grantee.Type)
			grant.URI = aws.ToString(g.Grantee.URI)
			grant.ID = aws.ToString(g.Grantee.ID)
		}
		grants = append(grants, grant)
	}
	return grants
}

package awss3

import (
	"context"

	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
)

// Client is the narrow S3 interface used by the posture store. It covers
// bucket listing, the four posture reads, their corrective writes and the
// object sampling needed by the public-ACL safety check, plus the
// versioning, logging and bucket creation calls of rule-directed actions. It embeds
// ListBucketsAPIClient so the SDK paginator can be used directly.
type Client interface {
	s3svc.ListBucketsAPIClient

	GetPublicAccessBlock(ctx context.Context, params *s3svc.GetPublicAccessBlockInput, optFns ...func(*s3svc.Options)) (*s3svc.GetPublicAccessBlockOutput, error)
	PutPublicAccessBlock(ctx context.Context, params *s3svc.PutPublicAccessBlockInput, optFns ...func(*s3svc.Options)) (*s3svc.PutPublicAccessBlockOutput, error)

	GetBucketAcl(ctx context.Context, params *s3svc.GetBucketAclInput, optFns ...func(*s3svc.Options)) (*s3svc.GetBucketAclOutput, error)
	PutBucketAcl(ctx context.Context, params *s3svc.PutBucketAclInput, optFns ...func(*s3svc.Options)) (*s3svc.PutBucketAclOutput, error)

	GetBucketPolicy(ctx context.Context, params *s3svc.GetBucketPolicyInput, optFns ...func(*s3svc.Options)) (*s3svc.GetBucketPolicyOutput, error)
	PutBucketPolicy(ctx context.Context, params *s3svc.PutBucketPolicyInput, optFns ...func(*s3svc.Options)) (*s3svc.PutBucketPolicyOutput, error)
	DeleteBucketPolicy(ctx context.Context, params *s3svc.DeleteBucketPolicyInput, optFns ...func(*s3svc.Options)) (*s3svc.DeleteBucketPolicyOutput, error)

	GetBucketEncryption(ctx context.Context, params *s3svc.GetBucketEncryptionInput, optFns ...func(*s3svc.Options)) (*s3svc.GetBucketEncryptionOutput, error)
	PutBucketEncryption(ctx context.Context, params *s3svc.PutBucketEncryptionInput, optFns ...func(*s3svc.Options)) (*s3svc.PutBucketEncryptionOutput, error)

	PutBucketVersioning(ctx context.Context, params *s3svc.PutBucketVersioningInput, optFns ...func(*s3svc.Options)) (*s3svc.PutBucketVersioningOutput, error)
	PutBucketLogging(ctx context.Context, params *s3svc.PutBucketLoggingInput, optFns ...func(*s3svc.Options)) (*s3svc.PutBucketLoggingOutput, error)
	HeadBucket(ctx context.Context, params *s3svc.HeadBucketInput, optFns ...func(*s3svc.Options)) (*s3svc.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3svc.CreateBucketInput, optFns ...func(*s3svc.Options)) (*s3svc.CreateBucketOutput, error)

	ListObjectsV2(ctx context.Context, params *s3svc.ListObjectsV2Input, optFns ...func(*s3svc.Options)) (*s3svc.ListObjectsV2Output, error)
	GetObjectAcl(ctx context.Context, params *s3svc.GetObjectAclInput, optFns ...func(*s3svc.Options)) (*s3svc.GetObjectAclOutput, error)
}

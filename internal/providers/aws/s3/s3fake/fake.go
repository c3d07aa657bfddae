// Package s3fake provides an in-memory implementation of awss3.Client for
// tests. Buckets hold real SDK types so the store's conversions are exercised,
// and every call is recorded so tests can assert that no mutation happened.
package s3fake

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// AllUsers is a grant to the anonymous AllUsers group.
func AllUsers(perm s3types.Permission) s3types.Grant {
	return s3types.Grant{
		Grantee: &s3types.Grantee{
			Type: s3types.TypeGroup,
			URI:  aws.String("http://acs.amazonaws.com/groups/global/AllUsers"),
		},
		Permission: perm,
	}
}

// OwnerFullControl is the grant a private ACL leaves behind.
func OwnerFullControl() s3types.Grant {
	return s3types.Grant{
		Grantee: &s3types.Grantee{
			Type: s3types.TypeCanonicalUser,
			ID:   aws.String("owner-canonical-id"),
		},
		Permission: s3types.PermissionFullControl,
	}
}

// BlockAll returns a public access block with every flag set to v.
func BlockAll(v bool) *s3types.PublicAccessBlockConfiguration {
	return &s3types.PublicAccessBlockConfiguration{
		BlockPublicAcls:       aws.Bool(v),
		IgnorePublicAcls:      aws.Bool(v),
		BlockPublicPolicy:     aws.Bool(v),
		RestrictPublicBuckets: aws.Bool(v),
	}
}

// AES256 returns a default encryption configuration using SSE-S3.
func AES256() *s3types.ServerSideEncryptionConfiguration {
	return &s3types.ServerSideEncryptionConfiguration{
		Rules: []s3types.ServerSideEncryptionRule{{
			ApplyServerSideEncryptionByDefault: &s3types.ServerSideEncryptionByDefault{
				SSEAlgorithm: s3types.ServerSideEncryptionAes256,
			},
		}},
	}
}

// APIError returns an error carrying an S3 error code, as the SDK does.
func APIError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code}
}

// Object is an object stored in a fake bucket.
type Object struct {
	Key    string
	Grants []s3types.Grant
}

// Bucket is the mutable state of one fake bucket. Nil PublicAccessBlock,
// empty Policy, nil Encryption, empty Versioning and nil Logging mean "not
// configured".
type Bucket struct {
	Name              string
	Region            string
	PublicAccessBlock *s3types.PublicAccessBlockConfiguration
	Grants            []s3types.Grant
	Policy            string
	Encryption        *s3types.ServerSideEncryptionConfiguration
	Versioning        s3types.BucketVersioningStatus
	Logging           *s3types.LoggingEnabled
	Objects           []Object
}

// Secure returns a bucket that passes every check: all block flags on,
// private ACL, a non-wildcard policy and default encryption.
func Secure(name string) *Bucket {
	return &Bucket{
		Name:              name,
		PublicAccessBlock: BlockAll(true),
		Grants:            []s3types.Grant{OwnerFullControl()},
		Policy:            `{"Version":"2012-10-17","Statement":[{"Sid":"Reader","Effect":"Allow","Principal":{"AWS":"arn:aws:iam::111122223333:role/reader"},"Action":"s3:GetObject","Resource":"arn:aws:s3:::` + name + `/*"}]}`,
		Encryption:        AES256(),
	}
}

// Call records one API invocation.
type Call struct {
	Op     string
	Bucket string
	Region string
}

// Client is an in-memory awss3.Client.
type Client struct {
	// Buckets are returned by ListBuckets in slice order.
	Buckets []*Bucket
	// PageSize caps buckets per ListBuckets page; 0 honours MaxBuckets.
	PageSize int
	// Calls is the ordered log of every API call.
	Calls []Call

	errs map[string]error
}

// New returns a Client holding buckets.
func New(buckets ...*Bucket) *Client {
	return &Client{Buckets: buckets, errs: make(map[string]error)}
}

// Fail makes op fail with err. An empty bucket applies to every bucket.
func (c *Client) Fail(op, bucket string, err error) {
	if c.errs == nil {
		c.errs = make(map[string]error)
	}
	c.errs[op+"/"+bucket] = err
}

// Bucket returns the named bucket or nil.
func (c *Client) Bucket(name string) *Bucket {
	for _, b := range c.Buckets {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// Mutations returns the recorded Put*/Delete*/Create* calls.
func (c *Client) Mutations() []Call {
	var out []Call
	for _, call := range c.Calls {
		if strings.HasPrefix(call.Op, "Put") || strings.HasPrefix(call.Op, "Delete") || strings.HasPrefix(call.Op, "Create") {
			out = append(out, call)
		}
	}
	return out
}

// CallsTo returns the recorded calls for op.
func (c *Client) CallsTo(op string) []Call {
	var out []Call
	for _, call := range c.Calls {
		if call.Op == op {
			out = append(out, call)
		}
	}
	return out
}

func (c *Client) record(op, bucket string, optFns []func(*s3svc.Options)) (*Bucket, error) {
	var o s3svc.Options
	for _, fn := range optFns {
		fn(&o)
	}
	c.Calls = append(c.Calls, Call{Op: op, Bucket: bucket, Region: o.Region})
	if err, ok := c.errs[op+"/"+bucket]; ok {
		return nil, err
	}
	if err, ok := c.errs[op+"/"]; ok {
		return nil, err
	}
	if bucket == "" {
		return nil, nil
	}
	b := c.Bucket(bucket)
	if b == nil {
		return nil, APIError("NoSuchBucket")
	}
	return b, nil
}

func (c *Client) ListBuckets(_ context.Context, in *s3svc.ListBucketsInput, optFns ...func(*s3svc.Options)) (*s3svc.ListBucketsOutput, error) {
	if _, err := c.record("ListBuckets", "", optFns); err != nil {
		return nil, err
	}
	start := 0
	if in.ContinuationToken != nil {
		n, err := strconv.Atoi(*in.ContinuationToken)
		if err != nil {
			return nil, APIError("InvalidArgument")
		}
		start = n
	}
	size := c.PageSize
	if size == 0 {
		size = int(aws.ToInt32(in.MaxBuckets))
	}
	if size == 0 {
		size = len(c.Buckets)
	}
	end := min(start+size, len(c.Buckets))

	out := &s3svc.ListBucketsOutput{}
	for _, b := range c.Buckets[start:end] {
		sb := s3types.Bucket{Name: aws.String(b.Name)}
		if b.Region != "" {
			sb.BucketRegion = aws.String(b.Region)
		}
		out.Buckets = append(out.Buckets, sb)
	}
	if end < len(c.Buckets) {
		out.ContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (c *Client) GetPublicAccessBlock(_ context.Context, in *s3svc.GetPublicAccessBlockInput, optFns ...func(*s3svc.Options)) (*s3svc.GetPublicAccessBlockOutput, error) {
	b, err := c.record("GetPublicAccessBlock", aws.ToString(in.Bucket), optFns)
	if err != nil {
		return nil, err
	}
	if b.PublicAccessBlock == nil {
		return nil, APIError("NoSuchPublicAccessBlockConfiguration")
	}
	cfg := *b.PublicAccessBlock
	return &s3svc.GetPublicAccessBlockOutput{PublicAccessBlockConfiguration: &cfg}, nil
}

func (c *Client) PutPublicAccessBlock(_ context.Context, in *s3svc.PutPublicAccessBlockInput, optFns ...func(*s3svc.Options)) (*s3svc.PutPublicAccessBlockOutput, error) {
	b, err := c.record("PutPublicAccessBlock", aws.ToString(in.Bucket), optFns)
	if err != nil {
		return nil, err
	}
	cfg := *in.PublicAccessBlockConfiguration
	b.PublicAccessBlock = &cfg
	return &s3svc.PutPublicAccessBlockOutput{}, nil
}

func (c *Client) GetBucketAcl(_ context.Context, in *s3svc.GetBucketAclInput, optFns ...func(*s3svc.Options)) (*s3svc.GetBucketAclOutput, error) {
	b, err := c.record("GetBucketAcl", aws.ToString(in.Bucket), optFns)
	if err != nil {
		return nil, err
	}
	return &s3svc.GetBucketAclOutput{Grants: append([]s3types.Grant(nil), b.Grants...)}, nil
}

func (c *Client) PutBucketAcl(_ context.Context, in *s3svc.PutBucketAclInput, optFns ...func(*s3svc.Options)) (*s3svc.PutBucketAclOutput, error) {
	b, err := c.record("PutBucketAcl", aws.ToString(in.Bucket), optFns)
	if err != nil {
		return nil, err
	}
	if in.ACL != s3types.BucketCannedACLPrivate {
		return nil, fmt.Errorf("s3fake: unsupported canned ACL %q", in.ACL)
	}
	b.Grants = []s3types.Grant{OwnerFullControl()}
	return &s3svc.PutBucketAclOutput{}, nil
}

func (c *Client) GetBucketPolicy(_ context.Context, in *s3svc.GetBucketPolicyInput, optFns ...func(*s3svc.Options)) (*s3svc.GetBucketPolicyOutput, error) {
	b, err := c.record("GetBucketPolicy", aws.ToString(in.Bucket), optFns)
	if err != nil {
		return nil, err
	}
	if b.Policy == "" {
		return nil, APIError("NoSuchBucketPolicy")
	}
	return &s3svc.GetBucketPolicyOutput{Policy: aws.String(b.Policy)}, nil
}

func (c *Client) PutBucketPolicy(_ context.Context, in *s3svc.PutBucketPolicyInput, optFns ...func(*s3svc.Options)) (*s3svc.PutBucketPolicyOutput, error) {
	b, err := c.record("PutBucketPolicy", aws.ToString(in.Bucket), optFns)
	if err != nil {
		return nil, err
	}
	b.Policy = aws.ToString(in.Policy)
	return &s3svc.PutBucketPolicyOutput{}, nil
}

func (c *Client) DeleteBucketPolicy(_ context.Context, in *s3svc.DeleteBucketPolicyInput, optFns ...func(*s3svc.Options)) (*s3svc.DeleteBucketPolicyOutput, error) {
	b, err := c.record("DeleteBucketPolicy", aws.ToString(in.Bucket), optFns)
	if err != nil {
		return nil, err
	}
	b.Policy = ""
	return &s3svc.DeleteBucketPolicyOutput{}, nil
}

func (c *Client) GetBucketEncryption(_ context.Context, in *s3svc.GetBucketEncryptionInput, optFns ...func(*s3svc.Options)) (*s3svc.GetBucketEncryptionOutput, error) {
	b, err := c.record("GetBucketEncryption", aws.ToString(in.Bucket), optFns)
	if err != nil {
		return nil, err
	}
	if b.Encryption == nil {
		return nil, APIError("ServerSideEncryptionConfigurationNotFoundError")
	}
	return &s3svc.GetBucketEncryptionOutput{ServerSideEncryptionConfiguration: b.Encryption}, nil
}

func (c *Client) PutBucketEncryption(_ context.Context, in *s3svc.PutBucketEncryptionInput, optFns ...func(*s3svc.Options)) (*s3svc.PutBucketEncryptionOutput, error) {
	b, err := c.record("PutBucketEncryption", aws.ToString(in.Bucket), optFns)
	if err != nil {
		return nil, err
	}
	b.Encryption = in.ServerSideEncryptionConfiguration
	return &s3svc.PutBucketEncryptionOutput{}, nil
}

func (c *Client) PutBucketVersioning(_ context.Context, in *s3svc.PutBucketVersioningInput, optFns ...func(*s3svc.Options)) (*s3svc.PutBucketVersioningOutput, error) {
	b, err := c.record("PutBucketVersioning", aws.ToString(in.Bucket), optFns)
	if err != nil {
		return nil, err
	}
	b.Versioning = in.VersioningConfiguration.Status
	return &s3svc.PutBucketVersioningOutput{}, nil
}

func (c *Client) PutBucketLogging(_ context.Context, in *s3svc.PutBucketLoggingInput, optFns ...func(*s3svc.Options)) (*s3svc.PutBucketLoggingOutput, error) {
	b, err := c.record("PutBucketLogging", aws.ToString(in.Bucket), optFns)
	if err != nil {
		return nil, err
	}
	if in.BucketLoggingStatus.LoggingEnabled == nil {
		b.Logging = nil
		return &s3svc.PutBucketLoggingOutput{}, nil
	}
	target := aws.ToString(in.BucketLoggingStatus.LoggingEnabled.TargetBucket)
	if c.Bucket(target) == nil {
		return nil, APIError("InvalidTargetBucketForLogging")
	}
	le := *in.BucketLoggingStatus.LoggingEnabled
	b.Logging = &le
	return &s3svc.PutBucketLoggingOutput{}, nil
}

// HeadBucket answers NotFound for a missing bucket, as S3 does.
func (c *Client) HeadBucket(_ context.Context, in *s3svc.HeadBucketInput, optFns ...func(*s3svc.Options)) (*s3svc.HeadBucketOutput, error) {
	b, err := c.record("HeadBucket", aws.ToString(in.Bucket), optFns)
	if err != nil {
		if errorCode(err) == "NoSuchBucket" {
			return nil, APIError("NotFound")
		}
		return nil, err
	}
	out := &s3svc.HeadBucketOutput{}
	if b.Region != "" {
		out.BucketRegion = aws.String(b.Region)
	}
	return out, nil
}

// CreateBucket adds a bucket with no configuration. The location constraint
// becomes its Region.
func (c *Client) CreateBucket(_ context.Context, in *s3svc.CreateBucketInput, optFns ...func(*s3svc.Options)) (*s3svc.CreateBucketOutput, error) {
	name := aws.ToString(in.Bucket)
	if _, err := c.record("CreateBucket", name, optFns); err == nil {
		return nil, APIError("BucketAlreadyOwnedByYou")
	} else if code := errorCode(err); code != "NoSuchBucket" {
		return nil, err
	}
	b := &Bucket{Name: name, Grants: []s3types.Grant{OwnerFullControl()}}
	if cfg := in.CreateBucketConfiguration; cfg != nil {
		b.Region = string(cfg.LocationConstraint)
	}
	c.Buckets = append(c.Buckets, b)
	return &s3svc.CreateBucketOutput{Location: aws.String("/" + name)}, nil
}

func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func (c *Client) ListObjectsV2(_ context.Context, in *s3svc.ListObjectsV2Input, optFns ...func(*s3svc.Options)) (*s3svc.ListObjectsV2Output, error) {
	b, err := c.record("ListObjectsV2", aws.ToString(in.Bucket), optFns)
	if err != nil {
		return nil, err
	}
	limit := int(aws.ToInt32(in.MaxKeys))
	if limit == 0 || limit > 1000 {
		limit = 1000
	}
	out := &s3svc.ListObjectsV2Output{}
	for i, o := range b.Objects {
		if i == limit {
			out.IsTruncated = aws.Bool(true)
			break
		}
		out.Contents = append(out.Contents, s3types.Object{Key: aws.String(o.Key)})
	}
	out.KeyCount = aws.Int32(int32(len(out.Contents)))
	return out, nil
}

func (c *Client) GetObjectAcl(_ context.Context, in *s3svc.GetObjectAclInput, optFns ...func(*s3svc.Options)) (*s3svc.GetObjectAclOutput, error) {
	bucket := aws.ToString(in.Bucket)
	key := aws.ToString(in.Key)
	b, err := c.record("GetObjectAcl", bucket, optFns)
	if err != nil {
		return nil, err
	}
	if err, ok := c.errs["GetObjectAcl/"+bucket+"/"+key]; ok {
		return nil, err
	}
	for _, o := range b.Objects {
		if o.Key == key {
			return &s3svc.GetObjectAclOutput{Grants: append([]s3types.Grant(nil), o.Grants...)}, nil
		}
	}
	return nil, APIError("NoSuchKey")
}

// FailObjectACL makes GetObjectAcl fail for one object.
func (c *Client) FailObjectACL(bucket, key string, err error) {
	if c.errs == nil {
		c.errs = make(map[string]error)
	}
	c.errs["GetObjectAcl/"+bucket+"/"+key] = err
}

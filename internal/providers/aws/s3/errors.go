package awss3

import (
	"errors"

	"github.com/aws/smithy-go"

	"github.com/pankaj-dahiya-devops/phiguard/internal/models"
)

// S3 error codes that mean "this configuration is not set".
const (
	codeNoPublicAccessBlock = "NoSuchPublicAccessBlockConfiguration"
	codeNoBucketPolicy      = "NoSuchBucketPolicy"
	codeNoEncryption        = "ServerSideEncryptionConfigurationNotFoundError"
	codeNotFound            = "NotFound"
	codeNoSuchBucket        = "NoSuchBucket"
)

// ErrorCode returns the service error code carried by err, or "" when err is
// not an AWS API error.
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// classify turns a read error into Absent when its code is absentCode and
// into Failed otherwise.
func classify[T any](err error, absentCode string) models.Lookup[T] {
	if absentCode != "" && ErrorCode(err) == absentCode {
		return models.Absent[T]()
	}
	return models.Failed[T](err)
}

package bucketpolicy

import (
	"encoding/json"
	"fmt"
)

// Version is the policy language version written into new documents.
const Version = "2012-10-17"

// SidDenyInsecureTransport identifies the statement added by
// DenyInsecureTransport.
const SidDenyInsecureTransport = "DenyInsecureTransport"

type conditionBool struct {
	SecureTransport string `json:"aws:SecureTransport"`
}

type denyStatement struct {
	Sid       string                   `json:"Sid"`
	Effect    string                   `json:"Effect"`
	Principal string                   `json:"Principal"`
	Action    string                   `json:"Action"`
	Resource  []string                 `json:"Resource"`
	Condition map[string]conditionBool `json:"Condition"`
}

// DenyInsecureTransport returns a statement refusing every S3 request to
// bucket and its objects made without TLS.
func DenyInsecureTransport(bucket string) (Statement, error) {
	raw, err := json.Marshal(denyStatement{
		Sid:       SidDenyInsecureTransport,
		Effect:    "Deny",
		Principal: "*",
		Action:    "s3:*",
		Resource: []string{
			"arn:aws:s3:::" + bucket,
			"arn:aws:s3:::" + bucket + "/*",
		},
		Condition: map[string]conditionBool{"Bool": {SecureTransport: "false"}},
	})
	if err != nil {
		return Statement{}, fmt.Errorf("encode statement: %w", err)
	}
	return parseStatement(raw)
}

// Empty returns a document with a Version and no statements.
func Empty() *Document {
	return &Document{
		fields: map[string]json.RawMessage{"Version": json.RawMessage(`"` + Version + `"`)},
	}
}

// Package bucketpolicy models S3 bucket policy documents just far enough to
// find and strip unrestricted statements. Statements are kept as raw JSON so
// that a rewritten policy carries every untouched statement unchanged.
package bucketpolicy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoStatements is returned by Parse when the document has no Statement key.
var ErrNoStatements = errors.New("policy has no Statement")

// Document is a parsed bucket policy.
type Document struct {
	fields     map[string]json.RawMessage
	statements []Statement
}

// Statement is one policy statement. Only the fields needed for wildcard
// detection are decoded; Raw holds the original JSON.
type Statement struct {
	Raw       json.RawMessage
	Sid       string
	Effect    string
	principal json.RawMessage
	actions   []string
}

// Parse decodes a policy document. Statement may be a single object or an
// array, as IAM accepts both.
func Parse(doc string) (*Document, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(doc), &fields); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}
	rawStmts, ok := fields["Statement"]
	if !ok {
		return nil, ErrNoStatements
	}

	var raws []json.RawMessage
	trimmed := bytes.TrimSpace(rawStmts)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		raws = []json.RawMessage{trimmed}
	} else if err := json.Unmarshal(rawStmts, &raws); err != nil {
		return nil, fmt.Errorf("decode policy statements: %w", err)
	}

	stmts := make([]Statement, 0, len(raws))
	for i, raw := range raws {
		s, err := parseStatement(raw)
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", i, err)
		}
		stmts = append(stmts, s)
	}
	return &Document{fields: fields, statements: stmts}, nil
}

func parseStatement(raw json.RawMessage) (Statement, error) {
	var s struct {
		Sid       string          `json:"Sid"`
		Effect    string          `json:"Effect"`
		Principal json.RawMessage `json:"Principal"`
		Action    json.RawMessage `json:"Action"`
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return Statement{}, err
	}
	actions, err := stringOrList(s.Action)
	if err != nil {
		return Statement{}, fmt.Errorf("Action: %w", err)
	}
	return Statement{
		Raw:       raw,
		Sid:       s.Sid,
		Effect:    s.Effect,
		principal: s.Principal,
		actions:   actions,
	}, nil
}

// stringOrList decodes a JSON value that is either a string or an array of
// strings. A missing value yields nil.
func stringOrList(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, err
	}
	return many, nil
}

// Statements returns the parsed statements in document order.
func (d *Document) Statements() []Statement {
	return d.statements
}

// Len returns the number of statements.
func (d *Document) Len() int {
	return len(d.statements)
}

// PrincipalIsStar reports whether Principal is exactly the string "*".
func (s Statement) PrincipalIsStar() bool {
	var p string
	if err := json.Unmarshal(s.principal, &p); err != nil {
		return false
	}
	return p == "*"
}

// HasWildcardPrincipal reports whether the statement applies to everyone:
// Principal "*" or an AWS principal list containing "*".
func (s Statement) HasWildcardPrincipal() bool {
	if s.PrincipalIsStar() {
		return true
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(s.principal, &m); err != nil {
		return false
	}
	aws, err := stringOrList(m["AWS"])
	if err != nil {
		return false
	}
	for _, p := range aws {
		if p == "*" {
			return true
		}
	}
	return false
}

// WildcardActions returns the actions that grant a whole service ("s3:*",
// "kms:*") or everything ("*").
func (s Statement) WildcardActions() []string {
	var out []string
	for _, a := range s.actions {
		if IsWildcardAction(a) {
			out = append(out, a)
		}
	}
	return out
}

// IsWildcardAction reports whether action is "*" or "<service>:*".
func IsWildcardAction(action string) bool {
	if action == "*" {
		return true
	}
	svc, op, ok := strings.Cut(action, ":")
	return ok && svc != "" && op == "*"
}

// IsDeny reports whether the statement's Effect is Deny.
func (s Statement) IsDeny() bool {
	return strings.EqualFold(s.Effect, "Deny")
}

// IsWildcard reports whether the statement has a wildcard principal or a
// wildcard service action. Deny statements only ever narrow access and are
// never wildcards.
func (s Statement) IsWildcard() bool {
	if s.IsDeny() {
		return false
	}
	return s.HasWildcardPrincipal() || len(s.WildcardActions()) > 0
}

// WildcardStatements returns the statements for which IsWildcard is true.
func (d *Document) WildcardStatements() []Statement {
	var out []Statement
	for _, s := range d.statements {
		if s.IsWildcard() {
			out = append(out, s)
		}
	}
	return out
}

// WithoutStarPrincipal returns a copy of d with every Allow statement whose
// Principal is exactly "*" removed. Statements with wildcard actions but named
// principals are kept; their intent cannot be inferred safely. Deny
// statements are always kept.
func (d *Document) WithoutStarPrincipal() *Document {
	kept := make([]Statement, 0, len(d.statements))
	for _, s := range d.statements {
		if s.PrincipalIsStar() && !s.IsDeny() {
			continue
		}
		kept = append(kept, s)
	}
	return &Document{fields: d.copyFields(), statements: kept}
}

// HasSid reports whether any statement carries sid.
func (d *Document) HasSid(sid string) bool {
	for _, s := range d.statements {
		if s.Sid == sid {
			return true
		}
	}
	return false
}

// With returns a copy of d with s appended.
func (d *Document) With(s Statement) *Document {
	stmts := make([]Statement, 0, len(d.statements)+1)
	stmts = append(stmts, d.statements...)
	stmts = append(stmts, s)
	return &Document{fields: d.copyFields(), statements: stmts}
}

func (d *Document) copyFields() map[string]json.RawMessage {
	fields := make(map[string]json.RawMessage, len(d.fields))
	for k, v := range d.fields {
		fields[k] = v
	}
	return fields
}

// Marshal encodes the document. Statement is always written as an array.
func (d *Document) Marshal() (string, error) {
	raws := make([]json.RawMessage, 0, len(d.statements))
	for _, s := range d.statements {
		raws = append(raws, s.Raw)
	}
	stmts, err := json.Marshal(raws)
	if err != nil {
		return "", fmt.Errorf("encode statements: %w", err)
	}
	fields := d.copyFields()
	fields["Statement"] = stmts
	out, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode policy: %w", err)
	}
	return string(out), nil
}

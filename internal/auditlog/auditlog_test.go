package auditlog

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/phiguard/internal/models"
)

type fakeDynamo struct {
	puts   []*dynamodb.PutItemInput
	failOn map[string]bool // bucket names whose PutItem fails
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	bucket := in.Item["Bucket"].(*ddbtypes.AttributeValueMemberS).Value
	if f.failOn[bucket] {
		return nil, errors.New("ProvisionedThroughputExceededException")
	}
	return &dynamodb.PutItemOutput{}, nil
}

func str(t *testing.T, item map[string]ddbtypes.AttributeValue, key string) string {
	t.Helper()
	v, ok := item[key].(*ddbtypes.AttributeValueMemberS)
	if !ok {
		t.Fatalf("%s is not a string attribute", key)
	}
	return v.Value
}

func TestItem_Shape(t *testing.T) {
	at := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	item := Item("111122223333", "run-1", at, 2, models.FixOutcome{
		Bucket: "phi", Action: models.ActionRemovedPublicACL,
		Status: models.FixSkipped, Reason: "objects with public ACLs detected - manual review required",
	})

	if str(t, item, "ClientAccountId") != "111122223333" {
		t.Error("wrong ClientAccountId")
	}
	if got := str(t, item, "Timestamp"); got != "2026-04-01T12:00:00Z#002" {
		t.Errorf("Timestamp = %q", got)
	}
	if str(t, item, "Action") != "removed_public_acl" || str(t, item, "Status") != "skipped" {
		t.Error("wrong Action/Status")
	}
	if str(t, item, "RunId") != "run-1" || str(t, item, "Bucket") != "phi" {
		t.Error("wrong RunId/Bucket")
	}
	ttl, ok := item["TTL"].(*ddbtypes.AttributeValueMemberN)
	if !ok {
		t.Fatal("TTL is not a number attribute")
	}
	want := strconv.FormatInt(at.Add(90*24*time.Hour).Unix(), 10)
	if ttl.Value != want {
		t.Errorf("TTL = %s; want %s", ttl.Value, want)
	}
}

func TestRecord_WritesOneItemPerOutcome(t *testing.T) {
	ddb := &fakeDynamo{}
	l := New(ddb, "phiguard-remediations", zerolog.Nop())
	fixes := []models.FixOutcome{
		{Bucket: "a", Action: models.ActionEnabledEncryption, Status: models.FixSuccess},
		{Bucket: "b", Action: models.ActionEnabledPublicAccessBlock, Status: models.FixFailed, Reason: "AccessDenied"},
	}
	if err := l.Record(context.Background(), "111122223333", "run", fixes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ddb.puts) != 2 {
		t.Fatalf("PutItem calls = %d; want 2", len(ddb.puts))
	}
	if aws.ToString(ddb.puts[0].TableName) != "phiguard-remediations" {
		t.Errorf("TableName = %q", aws.ToString(ddb.puts[0].TableName))
	}
	ts0 := str(t, ddb.puts[0].Item, "Timestamp")
	ts1 := str(t, ddb.puts[1].Item, "Timestamp")
	if ts0 == ts1 {
		t.Error("timestamps must be unique within a run")
	}
}

func TestRecord_CollectsFailures(t *testing.T) {
	ddb := &fakeDynamo{failOn: map[string]bool{"a": true, "c": true}}
	l := New(ddb, "t", zerolog.Nop())
	fixes := []models.FixOutcome{
		{Bucket: "a", Action: models.ActionEnabledEncryption},
		{Bucket: "b", Action: models.ActionEnabledEncryption},
		{Bucket: "c", Action: models.ActionEnabledEncryption},
	}
	err := l.Record(context.Background(), "111122223333", "run", fixes)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(ddb.puts) != 3 {
		t.Errorf("every item must be attempted; got %d calls", len(ddb.puts))
	}
	if !strings.Contains(err.Error(), "audit a/") || !strings.Contains(err.Error(), "audit c/") {
		t.Errorf("err = %v; want both failures", err)
	}
}

func TestRecord_NoFixes(t *testing.T) {
	ddb := &fakeDynamo{}
	if err := New(ddb, "t", zerolog.Nop()).Record(context.Background(), "1", "r", nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if len(ddb.puts) != 0 {
		t.Error("no items expected")
	}
}

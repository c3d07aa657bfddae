// Package auditlog writes one DynamoDB item per remediation outcome so every
// change made to a customer bucket can be traced back to a run.
package auditlog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/phiguard/internal/models"
)

// Retention is how long audit items live before DynamoDB expires them.
const Retention = 90 * 24 * time.Hour

// Client is the subset of the DynamoDB API the audit log uses.
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Log appends remediation outcomes to a table keyed by ClientAccountId and
// Timestamp.
type Log struct {
	client Client
	table  string
	now    func() time.Time
	log    zerolog.Logger
}

// New returns a Log writing to table.
func New(client Client, table string, log zerolog.Logger) *Log {
	return &Log{client: client, table: table, now: time.Now, log: log}
}

// NewFromConfig returns a Log backed by a real DynamoDB client.
func NewFromConfig(cfg aws.Config, table string, log zerolog.Logger) *Log {
	return New(dynamodb.NewFromConfig(cfg), table, log)
}

// Record writes one item per outcome. Every item is attempted; the failures
// are returned joined.
func (l *Log) Record(ctx context.Context, accountID, runID string, fixes []models.FixOutcome) error {
	now := l.now().UTC()
	var errs []error
	for i, f := range fixes {
		_, err := l.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(l.table),
			Item:      Item(accountID, runID, now, i, f),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("audit %s/%s: %w", f.Bucket, f.Action, err))
		}
	}
	if len(errs) > 0 {
		l.log.Error().Int("failed", len(errs)).Int("total", len(fixes)).Msg("audit log incomplete")
		return errors.Join(errs...)
	}
	l.log.Debug().Int("items", len(fixes)).Str("table", l.table).Msg("audit log written")
	return nil
}

// Item builds the DynamoDB item for the i-th outcome of a run. The index
// suffix keeps Timestamp unique within one run.
func Item(accountID, runID string, at time.Time, i int, f models.FixOutcome) map[string]ddbtypes.AttributeValue {
	return map[string]ddbtypes.AttributeValue{
		"ClientAccountId": &ddbtypes.AttributeValueMemberS{Value: accountID},
		"Timestamp":       &ddbtypes.AttributeValueMemberS{Value: fmt.Sprintf("%s#%03d", at.Format(time.RFC3339Nano), i)},
		"Bucket":          &ddbtypes.AttributeValueMemberS{Value: f.Bucket},
		"Action":          &ddbtypes.AttributeValueMemberS{Value: string(f.Action)},
		"Status":          &ddbtypes.AttributeValueMemberS{Value: string(f.Status)},
		"Reason":          &ddbtypes.AttributeValueMemberS{Value: f.Reason},
		"RunId":           &ddbtypes.AttributeValueMemberS{Value: runID},
		"TTL":             &ddbtypes.AttributeValueMemberN{Value: strconv.FormatInt(at.Add(Retention).Unix(), 10)},
	}
}

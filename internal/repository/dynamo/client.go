// Package dynamo stores metrics, costs, forecasts, anomalies and alerts in
// DynamoDB tables keyed by a string partition key (pk) and sort key (sk).
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/pratik-mahalle/cloudops/internal/config"
	"github.com/pratik-mahalle/cloudops/internal/pkg/metrics"
)

// timeLayout is fixed-width so sort keys order lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// BatchWriteItem accepts at most this many requests
const maxBatchWrite = 25

const maxBatchAttempts = 5

// API is the subset of the DynamoDB client used by the repositories
type API interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	UpdateTimeToLive(ctx context.Context, in *dynamodb.UpdateTimeToLiveInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error)
}

// Tables names the table of each entity
type Tables struct {
	Metrics   string
	Costs     string
	Forecasts string
	Anomalies string
	Alerts    string
}

// TablesFromConfig reads the table names from the AWS settings
func TablesFromConfig(cfg config.AWSConfig) Tables {
	return Tables{
		Metrics:   cfg.MetricsTable,
		Costs:     cfg.CostsTable,
		Forecasts: cfg.ForecastsTable,
		Anomalies: cfg.AnomaliesTable,
		Alerts:    cfg.AlertsTable,
	}
}

// Client pairs a DynamoDB API with the table layout
type Client struct {
	api    API
	tables Tables
}

// New creates a client from an SDK config
func New(cfg aws.Config, tables Tables) *Client {
	return NewWithAPI(dynamodb.NewFromConfig(cfg), tables)
}

// NewWithAPI creates a client over any API implementation
func NewWithAPI(api API, tables Tables) *Client {
	return &Client{api: api, tables: tables}
}

// Ping checks that the metrics table is reachable
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(c.tables.Metrics)})
	return err
}

// EnsureTables creates any missing table with on-demand billing and enables
// expiry on the expiresAt attribute. It returns the names it created.
func (c *Client) EnsureTables(ctx context.Context) ([]string, error) {
	var created []string
	for _, name := range []string{c.tables.Metrics, c.tables.Costs, c.tables.Forecasts, c.tables.Anomalies, c.tables.Alerts} {
		_, err := c.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
		if err == nil {
			continue
		}
		var notFound *types.ResourceNotFoundException
		if !errors.As(err, &notFound) {
			return created, fmt.Errorf("failed to describe table %s: %w", name, err)
		}

		_, err = c.api.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName:   aws.String(name),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
				{AttributeName: aws.String("sk"), AttributeType: types.ScalarAttributeTypeS},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
			},
		})
		if err != nil {
			return created, fmt.Errorf("failed to create table %s: %w", name, err)
		}

		_, err = c.api.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
			TableName: aws.String(name),
			TimeToLiveSpecification: &types.TimeToLiveSpecification{
				AttributeName: aws.String("expiresAt"),
				Enabled:       aws.Bool(true),
			},
		})
		if err != nil {
			return created, fmt.Errorf("failed to enable ttl on %s: %w", name, err)
		}
		created = append(created, name)
	}
	return created, nil
}

// queryAll follows LastEvaluatedKey until the result set is exhausted or
// limit items have been read. A limit of 0 reads everything.
func (c *Client) queryAll(ctx context.Context, in *dynamodb.QueryInput, limit int) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	for {
		out, err := c.api.Query(ctx, in)
		if err != nil {
			return nil, err
		}
		items = append(items, out.Items...)
		if limit > 0 && len(items) >= limit {
			return items[:limit], nil
		}
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// batchPut writes items in chunks, retrying unprocessed requests
func (c *Client) batchPut(ctx context.Context, table string, items []map[string]types.AttributeValue) error {
	for start := 0; start < len(items); start += maxBatchWrite {
		end := start + maxBatchWrite
		if end > len(items) {
			end = len(items)
		}

		requests := make([]types.WriteRequest, 0, end-start)
		for _, item := range items[start:end] {
			requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
		}

		pending := map[string][]types.WriteRequest{table: requests}
		for attempt := 0; len(pending) > 0; attempt++ {
			if attempt == maxBatchAttempts {
				return fmt.Errorf("%d items left unprocessed in %s", len(pending[table]), table)
			}
			if attempt > 0 {
				if err := sleep(ctx, time.Duration(attempt)*50*time.Millisecond); err != nil {
					return err
				}
			}
			out, err := c.api.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return err
			}
			pending = out.UnprocessedItems
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isConditionFailed(err error) bool {
	var cfe *types.ConditionalCheckFailedException
	return errors.As(err, &cfe)
}

func observe(operation, table string, start time.Time) {
	metrics.RecordStoreOp(operation, table, time.Since(start))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t.UTC()
}

func strAttr(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}

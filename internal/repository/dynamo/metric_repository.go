package dynamo

import (
	"context"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/pratik-mahalle/cloudops/internal/domain/metric"
	"github.com/pratik-mahalle/cloudops/internal/pkg/errors"
)

// metricItem is keyed by pk = accountId#metricType and sk = sample time
type metricItem struct {
	PK         string            `dynamodbav:"pk"`
	SK         string            `dynamodbav:"sk"`
	AccountID  string            `dynamodbav:"accountId"`
	MetricType string            `dynamodbav:"metricType"`
	Value      float64           `dynamodbav:"value"`
	Unit       string            `dynamodbav:"unit"`
	Namespace  string            `dynamodbav:"namespace,omitempty"`
	Dimensions map[string]string `dynamodbav:"dimensions,omitempty"`
	ExpiresAt  int64             `dynamodbav:"expiresAt"`
	CreatedAt  string            `dynamodbav:"createdAt"`
}

func metricPK(accountID, metricType string) string {
	return accountID + "#" + metricType
}

type MetricRepository struct {
	c *Client
}

func NewMetricRepository(c *Client) metric.Repository {
	return &MetricRepository{c: c}
}

func (r *MetricRepository) toItem(m *metric.Metric) (map[string]types.AttributeValue, error) {
	expires := m.ExpiresAt
	if expires.IsZero() {
		expires = m.Timestamp.Add(metric.Retention)
	}
	return attributevalue.MarshalMap(metricItem{
		PK:         metricPK(m.AccountID, m.MetricType),
		SK:         formatTime(m.Timestamp),
		AccountID:  m.AccountID,
		MetricType: m.MetricType,
		Value:      m.Value,
		Unit:       m.Unit,
		Namespace:  m.Namespace,
		Dimensions: m.Dimensions,
		ExpiresAt:  expires.Unix(),
		CreatedAt:  formatTime(time.Now()),
	})
}

func (r *MetricRepository) Put(ctx context.Context, m *metric.Metric) error {
	defer observe("put", r.c.tables.Metrics, time.Now())

	item, err := r.toItem(m)
	if err != nil {
		return errors.DatabaseError("Failed to encode metric", err)
	}
	if _, err := r.c.api.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(r.c.tables.Metrics), Item: item}); err != nil {
		return errors.DatabaseError("Failed to store metric", err)
	}
	return nil
}

func (r *MetricRepository) PutBatch(ctx context.Context, ms []*metric.Metric) error {
	if len(ms) == 0 {
		return nil
	}
	defer observe("put_batch", r.c.tables.Metrics, time.Now())

	items := make([]map[string]types.AttributeValue, 0, len(ms))
	for _, m := range ms {
		item, err := r.toItem(m)
		if err != nil {
			return errors.DatabaseError("Failed to encode metric", err)
		}
		items = append(items, item)
	}
	if err := r.c.batchPut(ctx, r.c.tables.Metrics, items); err != nil {
		return errors.DatabaseError("Failed to store metric batch", err)
	}
	return nil
}

func (r *MetricRepository) Query(ctx context.Context, q metric.Query) ([]*metric.Metric, error) {
	defer observe("query", r.c.tables.Metrics, time.Now())

	start := q.Start
	end := q.End
	if end.IsZero() {
		end = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	}

	in := &dynamodb.QueryInput{
		TableName:              aws.String(r.c.tables.Metrics),
		KeyConditionExpression: aws.String("pk = :pk AND sk BETWEEN :start AND :end"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":    strAttr(metricPK(q.AccountID, q.MetricType)),
			":start": strAttr(formatTime(start)),
			":end":   strAttr(formatTime(end)),
		},
		ScanIndexForward: aws.Bool(q.Ascending),
	}
	if q.Limit > 0 {
		in.Limit = aws.Int32(int32(q.Limit))
	}

	raw, err := r.c.queryAll(ctx, in, q.Limit)
	if err != nil {
		return nil, errors.DatabaseError("Failed to query metrics", err)
	}

	var items []metricItem
	if err := attributevalue.UnmarshalListOfMaps(raw, &items); err != nil {
		return nil, errors.DatabaseError("Failed to decode metrics", err)
	}

	out := make([]*metric.Metric, 0, len(items))
	for _, it := range items {
		out = append(out, &metric.Metric{
			AccountID:  it.AccountID,
			MetricType: it.MetricType,
			Timestamp:  parseTime(it.SK),
			Value:      it.Value,
			Unit:       it.Unit,
			Namespace:  it.Namespace,
			Dimensions: it.Dimensions,
			ExpiresAt:  time.Unix(it.ExpiresAt, 0).UTC(),
		})
	}
	return out, nil
}

// ListTypes scans the table since metric types are part of the partition key
func (r *MetricRepository) ListTypes(ctx context.Context, accountID string) ([]string, error) {
	defer observe("scan", r.c.tables.Metrics, time.Now())

	in := &dynamodb.ScanInput{
		TableName:                 aws.String(r.c.tables.Metrics),
		FilterExpression:          aws.String("accountId = :account"),
		ProjectionExpression:      aws.String("metricType"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":account": strAttr(accountID)},
	}

	seen := map[string]bool{}
	for {
		out, err := r.c.api.Scan(ctx, in)
		if err != nil {
			return nil, errors.DatabaseError("Failed to list metric types", err)
		}
		var items []struct {
			MetricType string `dynamodbav:"metricType"`
		}
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, errors.DatabaseError("Failed to decode metric types", err)
		}
		for _, it := range items {
			seen[it.MetricType] = true
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}

	names := make([]string, 0, len(seen))
	for t := range seen {
		names = append(names, t)
	}
	sort.Strings(names)
	return names, nil
}

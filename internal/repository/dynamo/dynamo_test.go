package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/cloudops/internal/domain/alert"
	"github.com/pratik-mahalle/cloudops/internal/domain/anomaly"
	"github.com/pratik-mahalle/cloudops/internal/domain/cost"
	"github.com/pratik-mahalle/cloudops/internal/domain/metric"
)

// fakeDynamo keeps items per table and understands the key conditions the
// repositories issue
type fakeDynamo struct {
	mu          sync.Mutex
	tables      map[string]map[string]map[string]types.AttributeValue
	unprocessed int
	batchCalls  int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{tables: map[string]map[string]map[string]types.AttributeValue{}}
}

func attrString(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func (f *fakeDynamo) table(name string) map[string]map[string]types.AttributeValue {
	t, ok := f.tables[name]
	if !ok {
		t = map[string]map[string]types.AttributeValue{}
		f.tables[name] = t
	}
	return t
}

func itemKey(item map[string]types.AttributeValue) string {
	return attrString(item, "pk") + "|" + attrString(item, "sk")
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := f.table(aws.ToString(in.TableName))
	key := itemKey(in.Item)
	if aws.ToString(in.ConditionExpression) == "attribute_exists(pk)" {
		if _, ok := t[key]; !ok {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("conditional check failed")}
		}
	}
	t[key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	item := f.table(aws.ToString(in.TableName))[itemKey(in.Key)]
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values := in.ExpressionAttributeValues
	pk := attrString(values, ":pk")
	start, hasRange := values[":start"]
	prefix := attrString(values, ":prefix")

	var matched []map[string]types.AttributeValue
	for _, item := range f.table(aws.ToString(in.TableName)) {
		if attrString(item, "pk") != pk {
			continue
		}
		sk := attrString(item, "sk")
		if hasRange {
			lo := start.(*types.AttributeValueMemberS).Value
			hi := attrString(values, ":end")
			if sk < lo || sk > hi {
				continue
			}
		}
		if prefix != "" && !strings.HasPrefix(sk, prefix) {
			continue
		}
		matched = append(matched, item)
	}

	ascending := in.ScanIndexForward == nil || *in.ScanIndexForward
	sort.Slice(matched, func(i, j int) bool {
		if ascending {
			return attrString(matched[i], "sk") < attrString(matched[j], "sk")
		}
		return attrString(matched[i], "sk") > attrString(matched[j], "sk")
	})

	if in.ExclusiveStartKey != nil {
		after := attrString(in.ExclusiveStartKey, "sk")
		for i, item := range matched {
			if attrString(item, "sk") == after {
				matched = matched[i+1:]
				break
			}
		}
	}

	out := &dynamodb.QueryOutput{}
	if in.Limit != nil && int(*in.Limit) < len(matched) {
		matched = matched[:*in.Limit]
		last := matched[len(matched)-1]
		out.LastEvaluatedKey = map[string]types.AttributeValue{"pk": last["pk"], "sk": last["sk"]}
	}
	out.Items = matched
	return out, nil
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	account := attrString(in.ExpressionAttributeValues, ":account")
	out := &dynamodb.ScanOutput{}
	for _, item := range f.table(aws.ToString(in.TableName)) {
		if attrString(item, "accountId") == account {
			out.Items = append(out.Items, map[string]types.AttributeValue{"metricType": item["metricType"]})
		}
	}
	return out, nil
}

func (f *fakeDynamo) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++

	out := &dynamodb.BatchWriteItemOutput{UnprocessedItems: map[string][]types.WriteRequest{}}
	for name, requests := range in.RequestItems {
		if len(requests) > maxBatchWrite {
			return nil, fmt.Errorf("too many requests: %d", len(requests))
		}
		t := f.table(name)
		for _, req := range requests {
			if f.unprocessed > 0 {
				f.unprocessed--
				out.UnprocessedItems[name] = append(out.UnprocessedItems[name], req)
				continue
			}
			t[itemKey(req.PutRequest.Item)] = req.PutRequest.Item
		}
	}
	if len(out.UnprocessedItems) == 0 {
		out.UnprocessedItems = nil
	}
	return out, nil
}

func (f *fakeDynamo) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.tables[aws.ToString(in.TableName)]; !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("table not found")}
	}
	return &dynamodb.DescribeTableOutput{}, nil
}

func (f *fakeDynamo) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.table(aws.ToString(in.TableName))
	return &dynamodb.CreateTableOutput{}, nil
}

func (f *fakeDynamo) UpdateTimeToLive(context.Context, *dynamodb.UpdateTimeToLiveInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error) {
	return &dynamodb.UpdateTimeToLiveOutput{}, nil
}

var testTables = Tables{
	Metrics:   "metrics",
	Costs:     "costs",
	Forecasts: "forecasts",
	Anomalies: "anomalies",
	Alerts:    "alerts",
}

func newTestClient() (*Client, *fakeDynamo) {
	fake := newFakeDynamo()
	return NewWithAPI(fake, testTables), fake
}

func TestClient_EnsureTables(t *testing.T) {
	c, fake := newTestClient()
	fake.tables["metrics"] = map[string]map[string]types.AttributeValue{}

	created, err := c.EnsureTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"costs", "forecasts", "anomalies", "alerts"}, created)

	created, err = c.EnsureTables(context.Background())
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.NoError(t, c.Ping(context.Background()))
}

func TestMetricRepository_QueryRangeAndOrder(t *testing.T) {
	c, _ := newTestClient()
	repo := NewMetricRepository(c)
	ctx := context.Background()
	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Put(ctx, &metric.Metric{
			AccountID:  "acct-1",
			MetricType: metric.TypeCPUUtilization,
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			Value:      float64(i),
			Unit:       metric.UnitPercent,
		}))
	}

	got, err := repo.Query(ctx, metric.Query{
		AccountID:  "acct-1",
		MetricType: metric.TypeCPUUtilization,
		Start:      base.Add(time.Minute),
		End:        base.Add(3 * time.Minute),
		Ascending:  true,
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 1.0, got[0].Value)
	assert.Equal(t, 3.0, got[2].Value)
	assert.Equal(t, base.Add(time.Minute), got[0].Timestamp)
	assert.Equal(t, base.Add(time.Minute).Add(metric.Retention).Unix(), got[0].ExpiresAt.Unix())

	latest, err := repo.Query(ctx, metric.Query{AccountID: "acct-1", MetricType: metric.TypeCPUUtilization, Limit: 2})
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, 4.0, latest[0].Value)
	assert.Equal(t, 3.0, latest[1].Value)
}

func TestMetricRepository_PutBatchRetriesUnprocessed(t *testing.T) {
	c, fake := newTestClient()
	repo := NewMetricRepository(c)
	ctx := context.Background()
	fake.unprocessed = 3

	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	batch := make([]*metric.Metric, 30)
	for i := range batch {
		batch[i] = &metric.Metric{AccountID: "acct-1", MetricType: metric.TypeNetworkIn, Timestamp: base.Add(time.Duration(i) * time.Second), Value: float64(i)}
	}
	require.NoError(t, repo.PutBatch(ctx, batch))
	assert.Len(t, fake.tables["metrics"], 30)
	assert.Equal(t, 3, fake.batchCalls)

	names, err := repo.ListTypes(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, []string{metric.TypeNetworkIn}, names)
}

func TestCostRepository_DailyAndForecasts(t *testing.T) {
	c, _ := newTestClient()
	repo := NewCostRepository(c)
	ctx := context.Background()

	for _, date := range []string{"2024-03-01", "2024-03-02", "2024-03-05"} {
		require.NoError(t, repo.PutDaily(ctx, &cost.DailyRecord{
			AccountID: "acct-1",
			Date:      date,
			TotalCost: decimal.RequireFromString("12.35"),
			Currency:  cost.DefaultCurrency,
			Breakdown: []cost.ServiceCost{{Service: "Amazon EC2", Cost: decimal.RequireFromString("12.35"), Usage: decimal.NewFromInt(24)}},
		}))
	}

	records, err := repo.QueryDaily(ctx, "acct-1", "2024-03-01", "2024-03-02")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2024-03-01", records[0].Date)
	assert.True(t, decimal.RequireFromString("12.35").Equal(records[0].TotalCost))
	require.Len(t, records[0].Breakdown, 1)
	assert.Equal(t, "Amazon EC2", records[0].Breakdown[0].Service)

	generated := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.PutForecasts(ctx, []*cost.Forecast{
		{AccountID: "acct-1", ForecastDate: "2024-05-01", PredictedCost: 3121.2, GeneratedAt: generated},
		{AccountID: "acct-1", ForecastDate: "2024-04-01", PredictedCost: 3060, GeneratedAt: generated},
	}))

	forecasts, err := repo.ListForecasts(ctx, "acct-1", 0)
	require.NoError(t, err)
	require.Len(t, forecasts, 2)
	assert.Equal(t, "2024-04-01", forecasts[0].ForecastDate)
	assert.Equal(t, generated, forecasts[0].GeneratedAt)
}

func TestAnomalyRepository_Lifecycle(t *testing.T) {
	c, _ := newTestClient()
	repo := NewAnomalyRepository(c)
	ctx := context.Background()
	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	var batch []*anomaly.Anomaly
	for i := 0; i < 4; i++ {
		severity := anomaly.SeverityHigh
		if i%2 == 0 {
			severity = anomaly.SeverityCritical
		}
		batch = append(batch, &anomaly.Anomaly{
			ID:         fmt.Sprintf("anomaly-%d", i),
			AccountID:  "acct-1",
			MetricType: metric.TypeCPUUtilization,
			DetectedAt: base.Add(time.Duration(i) * time.Minute),
			Severity:   severity,
			Status:     anomaly.StatusOpen,
		})
	}
	require.NoError(t, repo.PutBatch(ctx, batch))

	got, err := repo.Get(ctx, "acct-1", "anomaly-2")
	require.NoError(t, err)
	assert.Equal(t, base.Add(2*time.Minute), got.DetectedAt)
	assert.Nil(t, got.ResolvedAt)

	_, err = repo.Get(ctx, "acct-2", "anomaly-2")
	assert.ErrorIs(t, err, anomaly.ErrNotFound)

	require.NoError(t, got.Transition(anomaly.StatusResolved, base.Add(time.Hour)))
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.Get(ctx, "acct-1", "anomaly-2")
	require.NoError(t, err)
	assert.Equal(t, anomaly.StatusResolved, got.Status)
	require.NotNil(t, got.ResolvedAt)
	assert.Equal(t, base.Add(time.Hour), *got.ResolvedAt)

	err = repo.Update(ctx, &anomaly.Anomaly{ID: "missing", AccountID: "acct-1"})
	assert.ErrorIs(t, err, anomaly.ErrNotFound)

	items, total, err := repo.List(ctx, "acct-1", anomaly.Filter{Severity: anomaly.SeverityCritical}, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, items, 1)
	assert.Equal(t, "anomaly-2", items[0].ID)

	counts, err := repo.CountByStatusAndSeverity(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 1, counts[anomaly.StatusResolved][anomaly.SeverityCritical])
	assert.Equal(t, 2, counts[anomaly.StatusOpen][anomaly.SeverityHigh])
}

func TestAlertRepository_Lifecycle(t *testing.T) {
	c, _ := newTestClient()
	repo := NewAlertRepository(c)
	ctx := context.Background()
	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Put(ctx, &alert.Alert{
			ID:        fmt.Sprintf("alert-%d", i),
			AccountID: "acct-1",
			Type:      alert.TypeAnomaly,
			Title:     "CPUUtilization anomaly detected",
			Severity:  alert.SeverityCritical,
			Status:    alert.StatusActive,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Metadata:  map[string]interface{}{"anomalyCount": 1.0},
		}))
	}

	alerts, err := repo.List(ctx, "acct-1", alert.Filter{}, 2)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "alert-2", alerts[0].ID)
	assert.Equal(t, 1.0, alerts[0].Metadata["anomalyCount"])

	a, err := repo.Get(ctx, "acct-1", "alert-0")
	require.NoError(t, err)
	ack := base.Add(time.Hour)
	a.Status = alert.StatusAcknowledged
	a.AcknowledgedAt = &ack
	require.NoError(t, repo.Update(ctx, a))

	acked, err := repo.List(ctx, "acct-1", alert.Filter{Status: alert.StatusAcknowledged}, 0)
	require.NoError(t, err)
	require.Len(t, acked, 1)
	assert.Equal(t, ack, *acked[0].AcknowledgedAt)

	err = repo.Update(ctx, &alert.Alert{ID: "missing", AccountID: "acct-1"})
	assert.True(t, errors.Is(err, alert.ErrNotFound))
}

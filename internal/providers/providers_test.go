package providers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/cloudops/internal/config"
	"github.com/pratik-mahalle/cloudops/internal/domain/alert"
	"github.com/pratik-mahalle/cloudops/internal/domain/metric"
	"github.com/pratik-mahalle/cloudops/internal/pkg/logger"
)

type fakeCostExplorer struct {
	out   *costexplorer.GetCostAndUsageOutput
	err   error
	input *costexplorer.GetCostAndUsageInput
}

func (f *fakeCostExplorer) GetCostAndUsage(_ context.Context, in *costexplorer.GetCostAndUsageInput, _ ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error) {
	f.input = in
	return f.out, f.err
}

func group(service, amount, usage, unit string) cetypes.Group {
	return cetypes.Group{
		Keys: []string{service},
		Metrics: map[string]cetypes.MetricValue{
			"UnblendedCost": {Amount: aws.String(amount), Unit: aws.String("USD")},
			"UsageQuantity": {Amount: aws.String(usage), Unit: aws.String(unit)},
		},
	}
}

func TestCostExplorerCollector_FetchDailyCosts(t *testing.T) {
	fake := &fakeCostExplorer{out: &costexplorer.GetCostAndUsageOutput{
		ResultsByTime: []cetypes.ResultByTime{{
			Groups: []cetypes.Group{
				group("Amazon S3", "12.345", "80.6", "GB"),
				group("Tax", "0.01", "0", ""),
				group("Amazon EC2", "55.5", "900.2", "Hours"),
			},
		}},
	}}
	c := newCostExplorerCollector(fake, false, logger.Nop())

	day := time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)
	rec, err := c.FetchDailyCosts(context.Background(), "acct-1", day)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-09", aws.ToString(fake.input.TimePeriod.Start))
	assert.Equal(t, "2024-03-10", aws.ToString(fake.input.TimePeriod.End))
	assert.Equal(t, cetypes.GranularityDaily, fake.input.Granularity)

	assert.Equal(t, "acct-1", rec.AccountID)
	assert.Equal(t, "2024-03-09", rec.Date)
	assert.Equal(t, "USD", rec.Currency)
	require.Len(t, rec.Breakdown, 2)
	assert.Equal(t, "Amazon EC2", rec.Breakdown[0].Service)
	assert.Equal(t, "55.5", rec.Breakdown[0].Cost.String())
	assert.Equal(t, "900", rec.Breakdown[0].Usage.String())
	assert.Equal(t, "Amazon S3", rec.Breakdown[1].Service)
	assert.Equal(t, "12.35", rec.Breakdown[1].Cost.String())
	assert.Equal(t, "67.85", rec.TotalCost.String())
}

func TestCostExplorerCollector_FallsBackOnError(t *testing.T) {
	fake := &fakeCostExplorer{err: errors.New("access denied")}
	c := newCostExplorerCollector(fake, false, logger.Nop())
	c.randomFn = func() float64 { return 0 }

	rec, err := c.FetchDailyCosts(context.Background(), "acct-1", time.Now())
	require.NoError(t, err)
	require.Len(t, rec.Breakdown, len(mockServices))
	assert.Equal(t, "Amazon EC2", rec.Breakdown[0].Service)
	assert.Equal(t, "30", rec.Breakdown[0].Cost.String())
	assert.True(t, rec.TotalCost.IsPositive())
}

func TestCostExplorerCollector_MockSkipsAPI(t *testing.T) {
	fake := &fakeCostExplorer{}
	c := newCostExplorerCollector(fake, true, logger.Nop())

	rec, err := c.FetchDailyCosts(context.Background(), "acct-1", time.Now())
	require.NoError(t, err)
	assert.Nil(t, fake.input)
	for i, s := range rec.Breakdown {
		assert.True(t, s.Cost.InexactFloat64() >= mockServices[i].minCost, s.Service)
		assert.True(t, s.Cost.InexactFloat64() <= mockServices[i].maxCost, s.Service)
	}
}

type fakeCloudWatch struct {
	values map[string][]float64
	fail   map[string]bool
	calls  int
}

func (f *fakeCloudWatch) GetMetricData(_ context.Context, in *cloudwatch.GetMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error) {
	f.calls++
	name := aws.ToString(in.MetricDataQueries[0].MetricStat.Metric.MetricName)
	if f.fail[name] {
		return nil, errors.New("throttled")
	}
	return &cloudwatch.GetMetricDataOutput{
		MetricDataResults: []cwtypes.MetricDataResult{{Values: f.values[name]}},
	}, nil
}

func TestCloudWatchCollector_FetchLatest(t *testing.T) {
	fake := &fakeCloudWatch{
		values: map[string][]float64{"CPUUtilization": {10, 42.5}},
		fail:   map[string]bool{"Errors": true},
	}
	now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	c := newCloudWatchCollector(fake, false, logger.Nop())
	c.now = func() time.Time { return now }
	c.randomFn = func() float64 { return 0.5 }

	out, err := c.FetchLatest(context.Background(), "acct-1")
	require.NoError(t, err)
	require.Len(t, out, len(collectedMetrics))
	assert.Equal(t, len(collectedMetrics), fake.calls)

	byType := map[string]*metric.Metric{}
	for _, m := range out {
		assert.Equal(t, now, m.Timestamp)
		assert.Equal(t, "acct-1", m.AccountID)
		byType[m.MetricType] = m
	}

	assert.Equal(t, 42.5, byType[metric.TypeCPUUtilization].Value)
	assert.Equal(t, metric.UnitPercent, byType[metric.TypeCPUUtilization].Unit)
	assert.Equal(t, "AWS/EC2", byType[metric.TypeCPUUtilization].Namespace)
	assert.Equal(t, 0.0, byType[metric.TypeNetworkIn].Value)
	assert.Equal(t, 5.0, byType[metric.TypeLambdaErrors].Value)
}

func TestCloudWatchCollector_MockValuesInRange(t *testing.T) {
	c := newCloudWatchCollector(&fakeCloudWatch{}, true, logger.Nop())
	c.randomFn = func() float64 { return 0.999 }

	out, err := c.FetchLatest(context.Background(), "acct-1")
	require.NoError(t, err)
	for _, m := range out {
		if m.MetricType == metric.TypeCPUUtilization {
			assert.InDelta(t, 79.94, m.Value, 0.001)
		}
		assert.GreaterOrEqual(t, m.Value, 0.0)
	}
}

type fakeSNS struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = in
	return &sns.PublishOutput{MessageId: aws.String("m-1")}, f.err
}

func TestSNSPublisher_Publish(t *testing.T) {
	fake := &fakeSNS{}
	p := &SNSPublisher{client: fake, topicARN: "arn:aws:sns:us-east-1:000000000000:alerts"}

	a := &alert.Alert{
		ID:        "alert-1",
		AccountID: "acct-1",
		Type:      alert.TypeAnomaly,
		Title:     "CPUUtilization anomaly",
		Severity:  alert.SeverityCritical,
		Status:    alert.StatusActive,
	}
	require.NoError(t, p.Publish(context.Background(), a))

	assert.Equal(t, "[CRITICAL] CPUUtilization anomaly", aws.ToString(fake.input.Subject))
	assert.Equal(t, "critical", aws.ToString(fake.input.MessageAttributes["severity"].StringValue))
	assert.Equal(t, "anomaly", aws.ToString(fake.input.MessageAttributes["type"].StringValue))

	var decoded alert.Alert
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(fake.input.Message)), &decoded))
	assert.Equal(t, "alert-1", decoded.ID)
}

func TestSNSPublisher_PublishError(t *testing.T) {
	p := &SNSPublisher{client: &fakeSNS{err: errors.New("no topic")}, topicARN: "arn"}
	err := p.Publish(context.Background(), &alert.Alert{ID: "alert-2", Title: strings.Repeat("x", 200)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alert-2")
}

func TestSubjectForTruncates(t *testing.T) {
	s := subjectFor(&alert.Alert{Severity: "info", Title: strings.Repeat("y", 300)})
	assert.Len(t, s, maxSubjectLength)
	assert.True(t, strings.HasPrefix(s, "[INFO] "))
}

func TestNewOpenAICompleter_NoKey(t *testing.T) {
	assert.Nil(t, NewOpenAICompleter(config.InsightsConfig{Model: "gpt-4o-mini"}))
}

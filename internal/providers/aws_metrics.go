package providers

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/pratik-mahalle/cloudops/internal/domain/metric"
	"github.com/pratik-mahalle/cloudops/internal/pkg/logger"
	"github.com/pratik-mahalle/cloudops/internal/pkg/metrics"
)

// CollectionWindow is the span each CloudWatch request covers
const CollectionWindow = 5 * time.Minute

type cloudWatchAPI interface {
	GetMetricData(ctx context.Context, in *cloudwatch.GetMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error)
}

type metricDefinition struct {
	namespace  string
	name       string
	metricType string
	unit       string
}

var collectedMetrics = []metricDefinition{
	{"AWS/EC2", "CPUUtilization", metric.TypeCPUUtilization, metric.UnitPercent},
	{"AWS/EC2", "NetworkIn", metric.TypeNetworkIn, metric.UnitBytes},
	{"AWS/EC2", "NetworkOut", metric.TypeNetworkOut, metric.UnitBytes},
	{"AWS/EC2", "DiskReadOps", metric.TypeDiskReadOps, metric.UnitCount},
	{"AWS/EC2", "DiskWriteOps", metric.TypeDiskWriteOps, metric.UnitCount},
	{"AWS/Lambda", "Invocations", metric.TypeLambdaInvocations, metric.UnitCount},
	{"AWS/Lambda", "Duration", metric.TypeLambdaDuration, metric.UnitMilliseconds},
	{"AWS/Lambda", "Errors", metric.TypeLambdaErrors, metric.UnitCount},
}

// CloudWatchCollector samples a fixed set of EC2 and Lambda metrics
type CloudWatchCollector struct {
	client   cloudWatchAPI
	useMock  bool
	logger   *logger.Logger
	now      func() time.Time
	randomFn func() float64
}

// NewCloudWatchCollector creates a collector for the region in cfg
func NewCloudWatchCollector(cfg aws.Config, useMock bool, log *logger.Logger) *CloudWatchCollector {
	return newCloudWatchCollector(cloudwatch.NewFromConfig(cfg), useMock, log)
}

func newCloudWatchCollector(client cloudWatchAPI, useMock bool, log *logger.Logger) *CloudWatchCollector {
	return &CloudWatchCollector{
		client:   client,
		useMock:  useMock,
		logger:   log.WithComponent("metric-collector"),
		now:      time.Now,
		randomFn: rand.Float64,
	}
}

// FetchLatest returns one sample per collected metric, all stamped with the
// end of the collection window. A metric whose request fails gets a
// generated value instead.
func (c *CloudWatchCollector) FetchLatest(ctx context.Context, accountID string) ([]*metric.Metric, error) {
	end := c.now().UTC()
	begin := end.Add(-CollectionWindow)

	out := make([]*metric.Metric, 0, len(collectedMetrics))
	for _, def := range collectedMetrics {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		started := time.Now()
		var value float64
		if c.useMock {
			value = c.mockValue(def.metricType)
			metrics.RecordCollection("mock", "success", time.Since(started))
		} else {
			v, err := c.fetch(ctx, def, begin, end)
			if err != nil {
				c.logger.With("metric_type", def.metricType).WarnWithErr(err, "cloudwatch request failed, using generated value")
				metrics.RecordCollection("cloudwatch", "error", time.Since(started))
				v = c.mockValue(def.metricType)
			} else {
				metrics.RecordCollection("cloudwatch", "success", time.Since(started))
			}
			value = v
		}

		out = append(out, &metric.Metric{
			AccountID:  accountID,
			MetricType: def.metricType,
			Timestamp:  end,
			Value:      value,
			Unit:       def.unit,
			Namespace:  def.namespace,
			Dimensions: map[string]string{"namespace": def.namespace},
		})
	}
	return out, nil
}

// fetch returns the most recent datapoint, or 0 when the window is empty
func (c *CloudWatchCollector) fetch(ctx context.Context, def metricDefinition, begin, end time.Time) (float64, error) {
	resp, err := c.client.GetMetricData(ctx, &cloudwatch.GetMetricDataInput{
		MetricDataQueries: []cwtypes.MetricDataQuery{
			{
				Id: aws.String("m1"),
				MetricStat: &cwtypes.MetricStat{
					Metric: &cwtypes.Metric{
						Namespace:  aws.String(def.namespace),
						MetricName: aws.String(def.name),
					},
					Period: aws.Int32(int32(CollectionWindow / time.Second)),
					Stat:   aws.String("Average"),
				},
			},
		},
		StartTime: aws.Time(begin),
		EndTime:   aws.Time(end),
	})
	if err != nil {
		return 0, err
	}

	if len(resp.MetricDataResults) == 0 || len(resp.MetricDataResults[0].Values) == 0 {
		c.logger.Debugf("no cloudwatch datapoints for %s/%s", def.namespace, def.name)
		return 0, nil
	}
	values := resp.MetricDataResults[0].Values
	v := values[len(values)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("cloudwatch returned non-finite value for %s", def.name)
	}
	return v, nil
}

func (c *CloudWatchCollector) mockValue(metricType string) float64 {
	r := c.randomFn()
	switch metricType {
	case metric.TypeCPUUtilization:
		return 20 + r*60
	case metric.TypeMemoryUtilization:
		return 40 + r*40
	case metric.TypeNetworkIn:
		return math.Floor(1000000 + r*5000000)
	case metric.TypeNetworkOut:
		return math.Floor(500000 + r*2500000)
	case metric.TypeDiskReadOps:
		return math.Floor(100 + r*400)
	case metric.TypeDiskWriteOps:
		return math.Floor(50 + r*200)
	case metric.TypeDatabaseConnections:
		return math.Floor(10 + r*50)
	case metric.TypeLambdaInvocations:
		return math.Floor(1000 + r*9000)
	case metric.TypeLambdaDuration:
		return 50 + r*450
	case metric.TypeLambdaErrors:
		return math.Floor(r * 10)
	}
	return 0
}

package dynamo

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/pratik-mahalle/cloudops/internal/domain/cost"
	"github.com/pratik-mahalle/cloudops/internal/pkg/errors"
)

// CostRetention is how long daily cost items are kept before expiry
const CostRetention = 365 * 24 * time.Hour

const defaultForecastLimit = 12

type costItem struct {
	PK        string          `dynamodbav:"pk"`
	SK        string          `dynamodbav:"sk"`
	AccountID string          `dynamodbav:"accountId"`
	TotalCost float64         `dynamodbav:"totalCost"`
	Currency  string          `dynamodbav:"currency"`
	Breakdown []breakdownItem `dynamodbav:"breakdown"`
	ExpiresAt int64           `dynamodbav:"expiresAt"`
	CreatedAt string          `dynamodbav:"createdAt"`
}

type breakdownItem struct {
	Service string  `dynamodbav:"service"`
	Cost    float64 `dynamodbav:"cost"`
	Usage   float64 `dynamodbav:"usage"`
	Unit    string  `dynamodbav:"unit,omitempty"`
}

type forecastItem struct {
	PK              string  `dynamodbav:"pk"`
	SK              string  `dynamodbav:"sk"`
	AccountID       string  `dynamodbav:"accountId"`
	PredictedCost   float64 `dynamodbav:"predictedCost"`
	LowerBound      float64 `dynamodbav:"lowerBound"`
	UpperBound      float64 `dynamodbav:"upperBound"`
	ConfidenceLevel float64 `dynamodbav:"confidenceLevel"`
	GeneratedAt     string  `dynamodbav:"generatedAt"`
}

type CostRepository struct {
	c   *Client
	now func() time.Time
}

func NewCostRepository(c *Client) cost.Repository {
	return &CostRepository{c: c, now: time.Now}
}

func (r *CostRepository) PutDaily(ctx context.Context, rec *cost.DailyRecord) error {
	defer observe("put", r.c.tables.Costs, time.Now())

	now := r.now().UTC()
	item := costItem{
		PK:        rec.AccountID + "#cost",
		SK:        rec.Date,
		AccountID: rec.AccountID,
		TotalCost: rec.TotalCost.InexactFloat64(),
		Currency:  rec.Currency,
		Breakdown: make([]breakdownItem, 0, len(rec.Breakdown)),
		ExpiresAt: now.Add(CostRetention).Unix(),
		CreatedAt: formatTime(now),
	}
	for _, sc := range rec.Breakdown {
		item.Breakdown = append(item.Breakdown, breakdownItem{
			Service: sc.Service,
			Cost:    sc.Cost.InexactFloat64(),
			Usage:   sc.Usage.InexactFloat64(),
			Unit:    sc.Unit,
		})
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return errors.DatabaseError("Failed to encode daily cost", err)
	}
	if _, err := r.c.api.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(r.c.tables.Costs), Item: av}); err != nil {
		return errors.DatabaseError("Failed to store daily cost", err)
	}
	return nil
}

func (r *CostRepository) QueryDaily(ctx context.Context, accountID, startDate, endDate string) ([]*cost.DailyRecord, error) {
	defer observe("query", r.c.tables.Costs, time.Now())

	raw, err := r.c.queryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.c.tables.Costs),
		KeyConditionExpression: aws.String("pk = :pk AND sk BETWEEN :start AND :end"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":    strAttr(accountID + "#cost"),
			":start": strAttr(startDate),
			":end":   strAttr(endDate),
		},
		ScanIndexForward: aws.Bool(true),
	}, 0)
	if err != nil {
		return nil, errors.DatabaseError("Failed to query daily costs", err)
	}

	var items []costItem
	if err := attributevalue.UnmarshalListOfMaps(raw, &items); err != nil {
		return nil, errors.DatabaseError("Failed to decode daily costs", err)
	}

	records := make([]*cost.DailyRecord, 0, len(items))
	for _, it := range items {
		rec := &cost.DailyRecord{
			AccountID: it.AccountID,
			Date:      it.SK,
			TotalCost: decimal.NewFromFloat(it.TotalCost),
			Currency:  it.Currency,
			Breakdown: make([]cost.ServiceCost, 0, len(it.Breakdown)),
		}
		for _, b := range it.Breakdown {
			rec.Breakdown = append(rec.Breakdown, cost.ServiceCost{
				Service: b.Service,
				Cost:    decimal.NewFromFloat(b.Cost),
				Usage:   decimal.NewFromFloat(b.Usage),
				Unit:    b.Unit,
			})
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *CostRepository) PutForecasts(ctx context.Context, forecasts []*cost.Forecast) error {
	if len(forecasts) == 0 {
		return nil
	}
	defer observe("put_batch", r.c.tables.Forecasts, time.Now())

	items := make([]map[string]types.AttributeValue, 0, len(forecasts))
	for _, f := range forecasts {
		av, err := attributevalue.MarshalMap(forecastItem{
			PK:              f.AccountID + "#forecast",
			SK:              f.ForecastDate,
			AccountID:       f.AccountID,
			PredictedCost:   f.PredictedCost,
			LowerBound:      f.LowerBound,
			UpperBound:      f.UpperBound,
			ConfidenceLevel: f.ConfidenceLevel,
			GeneratedAt:     formatTime(f.GeneratedAt),
		})
		if err != nil {
			return errors.DatabaseError("Failed to encode forecast", err)
		}
		items = append(items, av)
	}
	if err := r.c.batchPut(ctx, r.c.tables.Forecasts, items); err != nil {
		return errors.DatabaseError("Failed to store forecasts", err)
	}
	return nil
}

func (r *CostRepository) ListForecasts(ctx context.Context, accountID string, limit int) ([]*cost.Forecast, error) {
	if limit <= 0 {
		limit = defaultForecastLimit
	}
	defer observe("query", r.c.tables.Forecasts, time.Now())

	raw, err := r.c.queryAll(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.c.tables.Forecasts),
		KeyConditionExpression:    aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":pk": strAttr(accountID + "#forecast")},
		ScanIndexForward:          aws.Bool(true),
		Limit:                     aws.Int32(int32(limit)),
	}, limit)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list forecasts", err)
	}

	var items []forecastItem
	if err := attributevalue.UnmarshalListOfMaps(raw, &items); err != nil {
		return nil, errors.DatabaseError("Failed to decode forecasts", err)
	}

	forecasts := make([]*cost.Forecast, 0, len(items))
	for _, it := range items {
		forecasts = append(forecasts, &cost.Forecast{
			AccountID:       it.AccountID,
			ForecastDate:    it.SK,
			PredictedCost:   it.PredictedCost,
			LowerBound:      it.LowerBound,
			UpperBound:      it.UpperBound,
			ConfidenceLevel: it.ConfidenceLevel,
			GeneratedAt:     parseTime(it.GeneratedAt),
		})
	}
	return forecasts, nil
}

package dynamo

import (
	"context"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/pratik-mahalle/cloudops/internal/domain/anomaly"
	"github.com/pratik-mahalle/cloudops/internal/pkg/errors"
)

type anomalyItem struct {
	PK            string  `dynamodbav:"pk"`
	SK            string  `dynamodbav:"sk"`
	ID            string  `dynamodbav:"id"`
	AccountID     string  `dynamodbav:"accountId"`
	MetricType    string  `dynamodbav:"metricType"`
	DetectedAt    string  `dynamodbav:"detectedAt"`
	Severity      string  `dynamodbav:"severity"`
	Description   string  `dynamodbav:"description"`
	CurrentValue  float64 `dynamodbav:"currentValue"`
	ExpectedValue float64 `dynamodbav:"expectedValue"`
	Deviation     float64 `dynamodbav:"deviation"`
	Status        string  `dynamodbav:"status"`
	ResolvedAt    string  `dynamodbav:"resolvedAt,omitempty"`
	UpdatedAt     string  `dynamodbav:"updatedAt"`
}

func accountPK(accountID string) string {
	return "ACCOUNT#" + accountID
}

func anomalySK(id string) string {
	return "ANOMALY#" + id
}

func toAnomalyItem(a *anomaly.Anomaly) anomalyItem {
	item := anomalyItem{
		PK:            accountPK(a.AccountID),
		SK:            anomalySK(a.ID),
		ID:            a.ID,
		AccountID:     a.AccountID,
		MetricType:    a.MetricType,
		DetectedAt:    formatTime(a.DetectedAt),
		Severity:      a.Severity,
		Description:   a.Description,
		CurrentValue:  a.CurrentValue,
		ExpectedValue: a.ExpectedValue,
		Deviation:     a.Deviation,
		Status:        a.Status,
		UpdatedAt:     formatTime(time.Now()),
	}
	if a.ResolvedAt != nil {
		item.ResolvedAt = formatTime(*a.ResolvedAt)
	}
	return item
}

func (it anomalyItem) toAnomaly() *anomaly.Anomaly {
	a := &anomaly.Anomaly{
		ID:            it.ID,
		AccountID:     it.AccountID,
		MetricType:    it.MetricType,
		DetectedAt:    parseTime(it.DetectedAt),
		Severity:      it.Severity,
		Description:   it.Description,
		CurrentValue:  it.CurrentValue,
		ExpectedValue: it.ExpectedValue,
		Deviation:     it.Deviation,
		Status:        it.Status,
	}
	if it.ResolvedAt != "" {
		t := parseTime(it.ResolvedAt)
		a.ResolvedAt = &t
	}
	return a
}

// AnomalyRepository keeps all anomalies of an account in one partition.
// Filtering and paging happen after the partition is read.
type AnomalyRepository struct {
	c *Client
}

func NewAnomalyRepository(c *Client) anomaly.Repository {
	return &AnomalyRepository{c: c}
}

func (r *AnomalyRepository) Put(ctx context.Context, a *anomaly.Anomaly) error {
	defer observe("put", r.c.tables.Anomalies, time.Now())

	av, err := attributevalue.MarshalMap(toAnomalyItem(a))
	if err != nil {
		return errors.DatabaseError("Failed to encode anomaly", err)
	}
	if _, err := r.c.api.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(r.c.tables.Anomalies), Item: av}); err != nil {
		return errors.DatabaseError("Failed to store anomaly", err)
	}
	return nil
}

func (r *AnomalyRepository) PutBatch(ctx context.Context, anomalies []*anomaly.Anomaly) error {
	if len(anomalies) == 0 {
		return nil
	}
	defer observe("put_batch", r.c.tables.Anomalies, time.Now())

	items := make([]map[string]types.AttributeValue, 0, len(anomalies))
	for _, a := range anomalies {
		av, err := attributevalue.MarshalMap(toAnomalyItem(a))
		if err != nil {
			return errors.DatabaseError("Failed to encode anomaly", err)
		}
		items = append(items, av)
	}
	if err := r.c.batchPut(ctx, r.c.tables.Anomalies, items); err != nil {
		return errors.DatabaseError("Failed to store anomaly batch", err)
	}
	return nil
}

func (r *AnomalyRepository) Get(ctx context.Context, accountID, id string) (*anomaly.Anomaly, error) {
	out, err := r.c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.c.tables.Anomalies),
		Key: map[string]types.AttributeValue{
			"pk": strAttr(accountPK(accountID)),
			"sk": strAttr(anomalySK(id)),
		},
	})
	if err != nil {
		return nil, errors.DatabaseError("Failed to get anomaly", err)
	}
	if len(out.Item) == 0 {
		return nil, anomaly.ErrNotFound
	}

	var item anomalyItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, errors.DatabaseError("Failed to decode anomaly", err)
	}
	return item.toAnomaly(), nil
}

// Update replaces an existing anomaly. A missing item yields ErrNotFound.
func (r *AnomalyRepository) Update(ctx context.Context, a *anomaly.Anomaly) error {
	defer observe("update", r.c.tables.Anomalies, time.Now())

	av, err := attributevalue.MarshalMap(toAnomalyItem(a))
	if err != nil {
		return errors.DatabaseError("Failed to encode anomaly", err)
	}
	_, err = r.c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.c.tables.Anomalies),
		Item:                av,
		ConditionExpression: aws.String("attribute_exists(pk)"),
	})
	if isConditionFailed(err) {
		return anomaly.ErrNotFound
	}
	if err != nil {
		return errors.DatabaseError("Failed to update anomaly", err)
	}
	return nil
}

func (r *AnomalyRepository) all(ctx context.Context, accountID string) ([]*anomaly.Anomaly, error) {
	raw, err := r.c.queryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.c.tables.Anomalies),
		KeyConditionExpression: aws.String("pk = :pk AND begins_with(sk, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     strAttr(accountPK(accountID)),
			":prefix": strAttr("ANOMALY#"),
		},
	}, 0)
	if err != nil {
		return nil, err
	}

	var items []anomalyItem
	if err := attributevalue.UnmarshalListOfMaps(raw, &items); err != nil {
		return nil, err
	}
	out := make([]*anomaly.Anomaly, 0, len(items))
	for _, it := range items {
		out = append(out, it.toAnomaly())
	}
	return out, nil
}

func (r *AnomalyRepository) List(ctx context.Context, accountID string, filter anomaly.Filter, limit, offset int) ([]*anomaly.Anomaly, int64, error) {
	defer observe("query", r.c.tables.Anomalies, time.Now())

	all, err := r.all(ctx, accountID)
	if err != nil {
		return nil, 0, errors.DatabaseError("Failed to list anomalies", err)
	}

	matched := make([]*anomaly.Anomaly, 0, len(all))
	for _, a := range all {
		if filter.MetricType != "" && a.MetricType != filter.MetricType {
			continue
		}
		if filter.Severity != "" && a.Severity != filter.Severity {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		matched = append(matched, a)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].DetectedAt.Equal(matched[j].DetectedAt) {
			return matched[i].DetectedAt.After(matched[j].DetectedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := int64(len(matched))
	if limit <= 0 {
		return matched, total, nil
	}
	if offset >= len(matched) {
		return []*anomaly.Anomaly{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r *AnomalyRepository) CountByStatusAndSeverity(ctx context.Context, accountID string) (map[string]map[string]int, error) {
	all, err := r.all(ctx, accountID)
	if err != nil {
		return nil, errors.DatabaseError("Failed to count anomalies", err)
	}

	counts := make(map[string]map[string]int)
	for _, a := range all {
		if counts[a.Status] == nil {
			counts[a.Status] = make(map[string]int)
		}
		counts[a.Status][a.Severity]++
	}
	return counts, nil
}

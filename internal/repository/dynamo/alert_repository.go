package dynamo

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/pratik-mahalle/cloudops/internal/domain/alert"
	"github.com/pratik-mahalle/cloudops/internal/pkg/errors"
)

type alertItem struct {
	PK             string `dynamodbav:"pk"`
	SK             string `dynamodbav:"sk"`
	ID             string `dynamodbav:"id"`
	AccountID      string `dynamodbav:"accountId"`
	Type           string `dynamodbav:"type"`
	Title          string `dynamodbav:"title"`
	Message        string `dynamodbav:"message"`
	Severity       string `dynamodbav:"severity"`
	Status         string `dynamodbav:"status"`
	CreatedAt      string `dynamodbav:"createdAt"`
	AcknowledgedAt string `dynamodbav:"acknowledgedAt,omitempty"`
	ResolvedAt     string `dynamodbav:"resolvedAt,omitempty"`
	// Metadata is kept as JSON so nested values round-trip unchanged
	Metadata string `dynamodbav:"metadata,omitempty"`
}

func alertSK(id string) string {
	return "ALERT#" + id
}

func toAlertItem(a *alert.Alert) (alertItem, error) {
	item := alertItem{
		PK:        accountPK(a.AccountID),
		SK:        alertSK(a.ID),
		ID:        a.ID,
		AccountID: a.AccountID,
		Type:      a.Type,
		Title:     a.Title,
		Message:   a.Message,
		Severity:  a.Severity,
		Status:    a.Status,
		CreatedAt: formatTime(a.CreatedAt),
	}
	if a.AcknowledgedAt != nil {
		item.AcknowledgedAt = formatTime(*a.AcknowledgedAt)
	}
	if a.ResolvedAt != nil {
		item.ResolvedAt = formatTime(*a.ResolvedAt)
	}
	if len(a.Metadata) > 0 {
		b, err := json.Marshal(a.Metadata)
		if err != nil {
			return item, err
		}
		item.Metadata = string(b)
	}
	return item, nil
}

func (it alertItem) toAlert() *alert.Alert {
	a := &alert.Alert{
		ID:        it.ID,
		AccountID: it.AccountID,
		Type:      it.Type,
		Title:     it.Title,
		Message:   it.Message,
		Severity:  it.Severity,
		Status:    it.Status,
		CreatedAt: parseTime(it.CreatedAt),
	}
	if it.AcknowledgedAt != "" {
		t := parseTime(it.AcknowledgedAt)
		a.AcknowledgedAt = &t
	}
	if it.ResolvedAt != "" {
		t := parseTime(it.ResolvedAt)
		a.ResolvedAt = &t
	}
	if it.Metadata != "" {
		_ = json.Unmarshal([]byte(it.Metadata), &a.Metadata)
	}
	return a
}

type AlertRepository struct {
	c *Client
}

func NewAlertRepository(c *Client) alert.Repository {
	return &AlertRepository{c: c}
}

func (r *AlertRepository) write(ctx context.Context, a *alert.Alert, condition string) error {
	item, err := toAlertItem(a)
	if err != nil {
		return errors.Internal("Failed to encode alert metadata", err)
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return errors.DatabaseError("Failed to encode alert", err)
	}
	in := &dynamodb.PutItemInput{TableName: aws.String(r.c.tables.Alerts), Item: av}
	if condition != "" {
		in.ConditionExpression = aws.String(condition)
	}
	_, err = r.c.api.PutItem(ctx, in)
	return err
}

func (r *AlertRepository) Put(ctx context.Context, a *alert.Alert) error {
	defer observe("put", r.c.tables.Alerts, time.Now())

	if err := r.write(ctx, a, ""); err != nil {
		if _, ok := err.(*errors.AppError); ok {
			return err
		}
		return errors.DatabaseError("Failed to store alert", err)
	}
	return nil
}

func (r *AlertRepository) Get(ctx context.Context, accountID, id string) (*alert.Alert, error) {
	out, err := r.c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.c.tables.Alerts),
		Key: map[string]types.AttributeValue{
			"pk": strAttr(accountPK(accountID)),
			"sk": strAttr(alertSK(id)),
		},
	})
	if err != nil {
		return nil, errors.DatabaseError("Failed to get alert", err)
	}
	if len(out.Item) == 0 {
		return nil, alert.ErrNotFound
	}

	var item alertItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, errors.DatabaseError("Failed to decode alert", err)
	}
	return item.toAlert(), nil
}

func (r *AlertRepository) Update(ctx context.Context, a *alert.Alert) error {
	defer observe("update", r.c.tables.Alerts, time.Now())

	err := r.write(ctx, a, "attribute_exists(pk)")
	if isConditionFailed(err) {
		return alert.ErrNotFound
	}
	if err != nil {
		if _, ok := err.(*errors.AppError); ok {
			return err
		}
		return errors.DatabaseError("Failed to update alert", err)
	}
	return nil
}

// List returns alerts newest first
func (r *AlertRepository) List(ctx context.Context, accountID string, filter alert.Filter, limit int) ([]*alert.Alert, error) {
	defer observe("query", r.c.tables.Alerts, time.Now())

	raw, err := r.c.queryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.c.tables.Alerts),
		KeyConditionExpression: aws.String("pk = :pk AND begins_with(sk, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     strAttr(accountPK(accountID)),
			":prefix": strAttr("ALERT#"),
		},
	}, 0)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list alerts", err)
	}

	var items []alertItem
	if err := attributevalue.UnmarshalListOfMaps(raw, &items); err != nil {
		return nil, errors.DatabaseError("Failed to decode alerts", err)
	}

	alerts := make([]*alert.Alert, 0, len(items))
	for _, it := range items {
		if filter.Type != "" && it.Type != filter.Type {
			continue
		}
		if filter.Severity != "" && it.Severity != filter.Severity {
			continue
		}
		if filter.Status != "" && it.Status != filter.Status {
			continue
		}
		alerts = append(alerts, it.toAlert())
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})
	if limit > 0 && len(alerts) > limit {
		alerts = alerts[:limit]
	}
	return alerts, nil
}

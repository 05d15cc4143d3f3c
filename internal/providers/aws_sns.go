package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/pratik-mahalle/cloudops/internal/domain/alert"
	"github.com/pratik-mahalle/cloudops/internal/pkg/metrics"
)

// SNS rejects subjects longer than this
const maxSubjectLength = 100

type snsAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPublisher publishes alerts to an SNS topic
type SNSPublisher struct {
	client   snsAPI
	topicARN string
}

// NewSNSPublisher creates a publisher for topicARN
func NewSNSPublisher(cfg aws.Config, topicARN string) *SNSPublisher {
	return &SNSPublisher{client: sns.NewFromConfig(cfg), topicARN: topicARN}
}

// Publish sends the alert as a JSON message with severity and type attributes
// so subscribers can filter on them.
func (p *SNSPublisher) Publish(ctx context.Context, a *alert.Alert) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String(subjectFor(a)),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"severity": {DataType: aws.String("String"), StringValue: aws.String(a.Severity)},
			"type":     {DataType: aws.String("String"), StringValue: aws.String(a.Type)},
		},
	})
	if err != nil {
		metrics.RecordAlertPublish(a.Severity, "error")
		return fmt.Errorf("failed to publish alert %s: %w", a.ID, err)
	}

	metrics.RecordAlertPublish(a.Severity, "success")
	return nil
}

func subjectFor(a *alert.Alert) string {
	s := fmt.Sprintf("[%s] %s", strings.ToUpper(a.Severity), a.Title)
	if len(s) > maxSubjectLength {
		s = s[:maxSubjectLength]
	}
	return s
}

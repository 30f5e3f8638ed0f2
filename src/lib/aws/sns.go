package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"guilance/src/lib"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"
)

type SNSPublishAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPublisher publishes JSON messages to one topic. An empty topic disables it.
type SNSPublisher struct {
	TopicArn string
	inner    SNSPublishAPI
}

func NewSNSPublisher(topicArn string) *SNSPublisher {
	p := &SNSPublisher{TopicArn: topicArn}
	if topicArn == "" {
		return p
	}
	if c := lib.AWSGetSNSClient(); c != nil {
		p.inner = c
	}
	return p
}

func NewSNSPublisherWithClient(client SNSPublishAPI, topicArn string) *SNSPublisher {
	return &SNSPublisher{TopicArn: topicArn, inner: client}
}

func (p *SNSPublisher) Publish(ctx context.Context, subject string, payload any) error {
	if p == nil || p.inner == nil || p.TopicArn == "" {
		zap.L().Debug("sns disabled, message dropped", zap.String("subject", subject))
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode sns payload: %w", err)
	}
	out, err := p.inner.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.TopicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("sns publish %s: %w", subject, err)
	}
	zap.L().Debug("published message", zap.String("subject", subject), zap.String("message_id", aws.ToString(out.MessageId)))
	return nil
}

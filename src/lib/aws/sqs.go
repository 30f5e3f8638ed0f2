package aws

import (
	"context"
	"time"

	"guilance/src/lib"
	"guilance/src/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"
)

type SQSAPI interface {
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

type SQSConsumer struct {
	Name    string
	handler types.Handler
	client  SQSAPI
	backoff time.Duration
}

func NewSQSConsumer(queue string, handler types.Handler) *SQSConsumer {
	var client SQSAPI
	if c := lib.AWSGetSQSClient(); c != nil {
		client = c
	}
	return NewSQSConsumerWithClient(client, queue, handler)
}

func NewSQSConsumerWithClient(client SQSAPI, queue string, handler types.Handler) *SQSConsumer {
	return &SQSConsumer{Name: queue, handler: handler, client: client, backoff: 5 * time.Second}
}

// Listen long-polls the queue in the background until ctx is done.
func (s *SQSConsumer) Listen(ctx context.Context) {
	go s.run(ctx)
}

func (s *SQSConsumer) run(ctx context.Context) {
	if s.client == nil {
		zap.L().Warn("sqs unavailable, consumer not started", zap.String("queue", s.Name))
		return
	}
	qurl, err := s.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(s.Name)})
	if err != nil {
		zap.L().Error("failed to resolve queue url", zap.String("queue", s.Name), zap.Error(err))
		return
	}
	zap.L().Info("listening for messages", zap.String("queue", s.Name))
	for ctx.Err() == nil {
		output, err := s.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            qurl.QueueUrl,
			WaitTimeSeconds:     20,
			MaxNumberOfMessages: 10,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			zap.L().Warn("error receiving messages", zap.String("queue", s.Name), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.backoff):
			}
			continue
		}
		for _, m := range output.Messages {
			s.handle(ctx, qurl.QueueUrl, m)
		}
	}
}

func (s *SQSConsumer) handle(ctx context.Context, qurl *string, m sqstypes.Message) {
	s.handler(aws.ToString(m.Body))
	lib.SQSDeleteMessage(context.WithoutCancel(ctx), s.client, qurl, m)
}

package lib

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"guilance/src/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"
)

var (
	awsCfg     *aws.Config
	awsCfgErr  error
	awsCfgOnce sync.Once
)

func awsGetSdkConfig() (*aws.Config, error) {
	awsCfgOnce.Do(func() {
		cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(config.Get().AWS.Region))
		if err != nil {
			zap.L().Error("error loading aws config", zap.Error(err))
			awsCfgErr = err
			return
		}
		awsCfg = &cfg
	})
	return awsCfg, awsCfgErr
}

func AWSGetS3Client() *s3.Client {
	cfg, err := awsGetSdkConfig()
	if err != nil {
		return nil
	}
	return s3.NewFromConfig(*cfg)
}

func AWSGetSQSClient() *sqs.Client {
	cfg, err := awsGetSdkConfig()
	if err != nil {
		return nil
	}
	return sqs.NewFromConfig(*cfg)
}

func AWSGetSNSClient() *sns.Client {
	cfg, err := awsGetSdkConfig()
	if err != nil {
		return nil
	}
	return sns.NewFromConfig(*cfg)
}

func AWSGetSESClient() *ses.Client {
	cfg, err := awsGetSdkConfig()
	if err != nil {
		return nil
	}
	return ses.NewFromConfig(*cfg)
}

func AWSGetSecretsManagerClient() *secretsmanager.Client {
	cfg, err := awsGetSdkConfig()
	if err != nil {
		return nil
	}
	return secretsmanager.NewFromConfig(*cfg)
}

func SQSProduceMessage(ctx context.Context, queue string, body string) error {
	client := AWSGetSQSClient()
	if client == nil {
		return fmt.Errorf("sqs client unavailable")
	}
	qurl, err := client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(queue)})
	if err != nil {
		return fmt.Errorf("resolve queue %s: %w", queue, err)
	}
	out, err := client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    qurl.QueueUrl,
		MessageBody: aws.String(body),
	})
	if err != nil {
		return fmt.Errorf("send to queue %s: %w", queue, err)
	}
	zap.L().Debug("queued message", zap.String("queue", queue), zap.String("message_id", aws.ToString(out.MessageId)))
	return nil
}

type SQSDeleteAPI interface {
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

func SQSDeleteMessage(ctx context.Context, client SQSDeleteAPI, qurl *string, msg sqstypes.Message) {
	_, err := client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      qurl,
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		zap.L().Warn("error deleting message from queue", zap.String("message_id", aws.ToString(msg.MessageId)), zap.Error(err))
	}
}

// GetSecretString reads a secret. JSON secrets may be addressed by key.
func GetSecretString(ctx context.Context, secretID string, key string) (string, error) {
	client := AWSGetSecretsManagerClient()
	if client == nil {
		return "", fmt.Errorf("secrets manager client unavailable")
	}
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(secretID)})
	if err != nil {
		return "", fmt.Errorf("get secret %s: %w", secretID, err)
	}
	return secretField(aws.ToString(out.SecretString), key)
}

func secretField(secret string, key string) (string, error) {
	if key == "" {
		return secret, nil
	}
	var fields map[string]string
	if err := json.Unmarshal([]byte(secret), &fields); err != nil {
		return "", fmt.Errorf("secret is not a json object: %w", err)
	}
	v, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("secret has no key %q", key)
	}
	return v, nil
}

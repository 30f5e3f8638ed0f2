package common

import (
	"context"
	"encoding/json"
	"time"

	"guilance/src/config"
	"guilance/src/lib"
	awslib "guilance/src/lib/aws"
	"guilance/src/types"
	"guilance/src/utils"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const sendTimeout = time.Minute

type DeliverFunc func(ctx context.Context, input *lib.SendMailInput) error

// DefaultDelivery sends through SMTP locally and SES everywhere else.
func DefaultDelivery() DeliverFunc {
	if config.Get().IsLocal() {
		return lib.SendMail
	}
	return awslib.SESSendMessage
}

// EmailHandler decodes a queued email and delivers it. Bodies may arrive wrapped in an SNS envelope.
func EmailHandler(queue string, deliver DeliverFunc) types.Handler {
	return func(body string) {
		if !gjson.Valid(body) {
			zap.L().Warn("received invalid json body, dropping", zap.String("queue", queue))
			return
		}
		if msg := gjson.Get(body, "Message"); msg.Type == gjson.String && gjson.Valid(msg.String()) {
			body = msg.String()
		}
		if !gjson.Get(body, "to.0").Exists() {
			zap.L().Warn("email without recipients, dropping", zap.String("queue", queue))
			return
		}
		var input lib.SendMailInput
		if err := json.Unmarshal([]byte(body), &input); err != nil {
			zap.L().Error("error deserializing email", zap.String("queue", queue), zap.Error(err))
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := deliver(ctx, &input); err != nil {
			zap.L().Error("failed to deliver email", zap.String("queue", queue), zap.Strings("to", input.To), zap.Error(err))
			return
		}
		zap.L().Info("email delivered", zap.String("queue", queue), zap.String("subject", input.Subject))
	}
}

// EmailsToSendConsumer drains the SQS email queue until ctx is done.
func EmailsToSendConsumer(ctx context.Context) {
	queue := utils.WithSuffix(config.Get().Email.Queue)
	zap.L().Info("listening for messages", zap.String("queue", queue))
	awslib.NewSQSConsumer(queue, EmailHandler(queue, DefaultDelivery())).Listen(ctx)
}

// KafkaEmailsConsumer is the local counterpart of EmailsToSendConsumer.
func KafkaEmailsConsumer(ctx context.Context) {
	topic := utils.WithSuffix(config.Get().Email.Queue)
	if err := lib.KafkaConsumer(ctx, "emails-worker", topic, EmailHandler(topic, DefaultDelivery())); err != nil {
		zap.L().Error("failed to start kafka email consumer", zap.String("topic", topic), zap.Error(err))
	}
}

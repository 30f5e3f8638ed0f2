package mailer

import (
	"context"
	"encoding/json"
	"fmt"

	"guilance/src/config"
	"guilance/src/lib"
	"guilance/src/utils"
)

// Producer hands an encoded message to a queue.
type Producer func(ctx context.Context, queue string, body []byte) error

func kafkaProducer(_ context.Context, queue string, body []byte) error {
	return lib.KafkaProduceMessage("emails", queue, json.RawMessage(body))
}

func sqsProducer(ctx context.Context, queue string, body []byte) error {
	return lib.SQSProduceMessage(ctx, queue, string(body))
}

// DefaultProducer sends to Kafka when running locally and to SQS everywhere else.
func DefaultProducer() Producer {
	if config.Get().IsLocal() {
		return kafkaProducer
	}
	return sqsProducer
}

type Mailer struct {
	produce Producer
	queue   string
}

func New(produce Producer, queue string) *Mailer {
	return &Mailer{produce: produce, queue: queue}
}

func NewDefault() *Mailer {
	return New(DefaultProducer(), utils.WithSuffix(config.Get().Email.Queue))
}

// Send enqueues the message for the email worker. It does not wait for delivery.
func (m *Mailer) Send(ctx context.Context, input *lib.SendMailInput) error {
	if len(input.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}
	body, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("encode email: %w", err)
	}
	if err := m.produce(ctx, m.queue, body); err != nil {
		return fmt.Errorf("error sending message to queue: %w", err)
	}
	return nil
}

// NewMailerMessage enqueues input on the configured email queue.
func NewMailerMessage(ctx context.Context, input *lib.SendMailInput) error {
	return NewDefault().Send(ctx, input)
}

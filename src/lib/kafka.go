package lib

import (
	"context"
	"encoding/json"
	"fmt"

	"guilance/src/config"
	"guilance/src/types"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"go.uber.org/zap"
)

func GetKafkaProducerConfig(clientId string) *kafka.ConfigMap {
	return &kafka.ConfigMap{
		"bootstrap.servers": config.Get().KafkaBroker,
		"client.id":         clientId,
		"acks":              "all",
	}
}

func GetKafkaConsumerConfig(groupId string) *kafka.ConfigMap {
	return &kafka.ConfigMap{
		"bootstrap.servers": config.Get().KafkaBroker,
		"group.id":          groupId,
		"auto.offset.reset": "smallest",
		"retry.backoff.ms":  100,
	}
}

func KafkaProduceMessage(clientId string, topic string, payload any) error {
	p, err := kafka.NewProducer(GetKafkaProducerConfig(clientId))
	if err != nil {
		return fmt.Errorf("create producer: %w", err)
	}
	defer p.Close()
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	delivery := make(chan kafka.Event, 1)
	err = p.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          value,
	}, delivery)
	if err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	e := <-delivery
	if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
		return fmt.Errorf("deliver to %s: %w", topic, m.TopicPartition.Error)
	}
	return nil
}

// KafkaConsumer polls topic in the background and hands every message value to handler.
func KafkaConsumer(ctx context.Context, groupId string, topic string, handler types.Handler) error {
	c, err := kafka.NewConsumer(GetKafkaConsumerConfig(groupId))
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}
	if err := c.SubscribeTopics([]string{topic}, nil); err != nil {
		c.Close()
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	go func() {
		defer c.Close()
		zap.L().Info("waiting for messages", zap.String("topic", topic))
		for ctx.Err() == nil {
			switch e := c.Poll(100).(type) {
			case *kafka.Message:
				handler(string(e.Value))
			case kafka.Error:
				zap.L().Error("kafka consumer error", zap.String("topic", topic), zap.Error(e))
				if e.IsFatal() {
					return
				}
			}
		}
	}()
	return nil
}

func KafkaCreateTopics(ctx context.Context, topics ...string) ([]kafka.TopicResult, error) {
	a, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": config.Get().KafkaBroker,
	})
	if err != nil {
		return nil, fmt.Errorf("create admin client: %w", err)
	}
	defer a.Close()
	topicsDef := []kafka.TopicSpecification{}
	for _, topic := range topics {
		topicsDef = append(topicsDef, kafka.TopicSpecification{
			Topic:             topic,
			NumPartitions:     3,
			ReplicationFactor: 1,
		})
	}
	return a.CreateTopics(ctx, topicsDef)
}

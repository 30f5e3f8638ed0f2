package common

import (
	"context"

	"guilance/src/config"
)

// Consumers starts the queue workers for the current environment.
func Consumers(ctx context.Context) {
	if config.Get().IsLocal() {
		KafkaEmailsConsumer(ctx)
		return
	}
	EmailsToSendConsumer(ctx)
}

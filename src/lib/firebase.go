package lib

import (
	"context"
	"fmt"
	"sync"

	"guilance/src/config"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

var (
	innerApp       *firebase.App
	innerMessaging *messaging.Client
	firebaseMu     sync.Mutex
)

// GetFirebaseMessaging returns nil without error when no credentials are configured.
func GetFirebaseMessaging(ctx context.Context) (*messaging.Client, error) {
	firebaseMu.Lock()
	defer firebaseMu.Unlock()
	if innerMessaging != nil {
		return innerMessaging, nil
	}
	if innerApp == nil {
		creds := config.Get().FirebaseCredentials
		if creds == "" {
			return nil, nil
		}
		app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(creds))
		if err != nil {
			return nil, fmt.Errorf("init firebase app: %w", err)
		}
		innerApp = app
	}
	msg, err := innerApp.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init fcm: %w", err)
	}
	innerMessaging = msg
	return msg, nil
}

func UserTopic(userID uint) string {
	return fmt.Sprintf("user-%d", userID)
}

func SendPush(ctx context.Context, topic string, title string, body string, data map[string]string) error {
	client, err := GetFirebaseMessaging(ctx)
	if err != nil {
		return err
	}
	if client == nil {
		zap.L().Debug("fcm disabled, push dropped", zap.String("topic", topic))
		return nil
	}
	id, err := client.Send(ctx, &messaging.Message{
		Topic:        topic,
		Data:         data,
		Notification: &messaging.Notification{Title: title, Body: body},
	})
	if err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}
	zap.L().Debug("sent push", zap.String("topic", topic), zap.String("id", id))
	return nil
}

package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

const androidChannelId = "default"

// FCMProvider sends pushes through Firebase Cloud Messaging.
type FCMProvider struct {
	client *messaging.Client
}

func NewFCMProvider(ctx context.Context, credentialsFile string) (*FCMProvider, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase messaging client: %w", err)
	}

	return &FCMProvider{client: client}, nil
}

func (p *FCMProvider) SendData(ctx context.Context, token string, data map[string]string) error {
	_, err := p.client.Send(ctx, &messaging.Message{
		Token: token,
		Data:  data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	})
	return err
}

func (p *FCMProvider) SendDisplay(ctx context.Context, token string, n Notification) error {
	_, err := p.client.Send(ctx, &messaging.Message{
		Token: token,
		Data:  map[string]string{"type": n.Type},
		Notification: &messaging.Notification{
			Title:    n.Title,
			Body:     n.Body,
			ImageURL: n.Image,
		},
		Android: &messaging.AndroidConfig{
			Notification: &messaging.AndroidNotification{
				ChannelID: androidChannelId,
			},
		},
	})
	return err
}

func (p *FCMProvider) IsTokenNotRegistered(err error) bool {
	return messaging.IsRegistrationTokenNotRegistered(err)
}

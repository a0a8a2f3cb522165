// services/push_service.go
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"firebase.google.com/go/v4/messaging"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mercadopro/mercadopro_backend/config"
	"github.com/mercadopro/mercadopro_backend/models"
)

// FCMPushService delivers push notifications through Firebase Cloud
// Messaging using the user's stored device token. Each notification is also
// stored as an in-app notification so users who miss the push still see it.
type FCMPushService struct {
	users         UserStore
	notifications NotificationStore
}

// NewFCMPushService creates a new push service
func NewFCMPushService(users UserStore, notifications NotificationStore) *FCMPushService {
	return &FCMPushService{users: users, notifications: notifications}
}

// SendToUser sends one push notification to the user's registered device
func (s *FCMPushService) SendToUser(ctx context.Context, userID, title, body string, data map[string]string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user %s: %w", userID, err)
	}

	s.storeNotification(ctx, user.ID, title, body, data)

	if user.FCMToken == "" {
		log.Printf("User %s has no FCM token, push skipped", userID)
		return nil
	}

	if config.FirebaseApp == nil {
		return fmt.Errorf("firebase app not initialized")
	}
	client, err := config.FirebaseApp.Messaging(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging client: %w", err)
	}

	payload := map[string]string{
		"timestamp": time.Now().Format(time.RFC3339),
	}
	for key, value := range data {
		payload[key] = value
	}

	message := &messaging.Message{
		Token: user.FCMToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: payload,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:     "default",
				ChannelID: "mercadopro_fcm_channel",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: title,
						Body:  body,
					},
					Sound: "default",
				},
			},
		},
	}

	response, err := client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send FCM notification: %w", err)
	}
	log.Printf("FCM notification sent to user %s: %s", userID, response)
	return nil
}

func (s *FCMPushService) storeNotification(ctx context.Context, userID primitive.ObjectID, title, body string, data map[string]string) {
	if s.notifications == nil {
		return
	}
	notification := &models.Notification{
		UserID:    userID,
		Title:     title,
		Message:   body,
		Type:      "push",
		Data:      data,
		CreatedAt: time.Now(),
	}
	if err := s.notifications.Insert(ctx, notification); err != nil {
		log.Printf("Failed to store notification for user %s: %v", userID.Hex(), err)
	}
}

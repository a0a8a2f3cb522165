// services/reminder_service.go
package services

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mercadopro/mercadopro_backend/models"
)

// InactiveUserStore is the slice of the user store the reminder job needs
type InactiveUserStore interface {
	FindInactiveSince(ctx context.Context, cutoff time.Time) ([]models.User, error)
	TouchActivity(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

// ReminderService periodically emails users who have gone quiet
type ReminderService struct {
	users    InactiveUserStore
	mailer   *MailService
	inactive time.Duration
	interval time.Duration
}

// NewReminderService creates a reminder job. Users inactive for longer than
// inactive get one nudge per sweep; sweeps run every interval.
func NewReminderService(users InactiveUserStore, mailer *MailService, inactive, interval time.Duration) *ReminderService {
	return &ReminderService{
		users:    users,
		mailer:   mailer,
		inactive: inactive,
		interval: interval,
	}
}

// Run loops until the context is cancelled
func (s *ReminderService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ReminderService) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-s.inactive)
	users, err := s.users.FindInactiveSince(sweepCtx, cutoff)
	if err != nil {
		log.Printf("Reminder sweep failed to list inactive users: %v", err)
		return
	}
	if len(users) == 0 {
		return
	}

	log.Printf("Reminder sweep: %d inactive user(s)", len(users))
	for _, user := range users {
		s.remind(sweepCtx, user)
	}
}

func (s *ReminderService) remind(ctx context.Context, user models.User) {
	if err := s.mailer.SendReminderEmail(user.Email, user.FullName); err != nil {
		log.Printf("Reminder email to %s failed: %v", user.Email, err)
		return
	}
	// Touch activity so the same user is not nudged again next sweep
	if err := s.users.TouchActivity(ctx, user.ID, time.Now()); err != nil {
		log.Printf("Failed to touch activity after reminder for %s: %v", user.ID.Hex(), err)
	}
}

package service

import (
	"context"
	"errors"

	errorvalues "github.com/aidiy/backend/internal/error_values"
	"github.com/aidiy/backend/internal/repository"
	"github.com/google/uuid"
)

// feedLimit caps the notification feed at the most recent entries; the
// unread count is still computed over everything.
const feedLimit = 20

type NotificationService struct {
	repo repository.NotificationsRepositoryI
}

func NewNotificationService(notificationsRepo repository.NotificationsRepositoryI) *NotificationService {
	return &NotificationService{
		repo: notificationsRepo,
	}
}

func (ns *NotificationService) Feed(ctx context.Context, recipientEmail string) (*NotificationFeed, error) {
	notifications, err := ns.repo.ListByRecipient(ctx, recipientEmail, feedLimit)
	if err != nil {
		return nil, errors.New("repository listing error: " + err.Error())
	}
	unread, err := ns.repo.CountUnread(ctx, recipientEmail)
	if err != nil {
		return nil, errors.New("repository counting error: " + err.Error())
	}
	return &NotificationFeed{
		Notifications: notifications,
		UnreadCount:   unread,
	}, nil
}

func (ns *NotificationService) MarkRead(ctx context.Context, recipientEmail string, id uuid.UUID) error {
	err := ns.repo.MarkRead(ctx, id, recipientEmail)
	if err != nil {
		if errors.Is(err, errorvalues.ErrNotificationNotFound) {
			return errorvalues.ErrNotificationNotFound
		}
		return errors.New("repository updating error: " + err.Error())
	}
	return nil
}

func (ns *NotificationService) MarkAllRead(ctx context.Context, recipientEmail string) (int64, error) {
	count, err := ns.repo.MarkAllRead(ctx, recipientEmail)
	if err != nil {
		return 0, errors.New("repository updating error: " + err.Error())
	}
	return count, nil
}

func (ns *NotificationService) UnreadCount(ctx context.Context, recipientEmail string) (int, error) {
	count, err := ns.repo.CountUnread(ctx, recipientEmail)
	if err != nil {
		return 0, errors.New("repository counting error: " + err.Error())
	}
	return count, nil
}

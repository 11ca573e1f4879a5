package repository

import (
	"context"
	"errors"
	"log"

	errorvalues "github.com/aidiy/backend/internal/error_values"
	"github.com/aidiy/backend/pkg/entity"
	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

type NotificationsRepository struct {
	conn PgConnection
}

func NewNotificationsRepo(cfg DBConfig) *NotificationsRepository {
	return &NotificationsRepository{
		conn: newPool(cfg, "notificationsRepo"),
	}
}

func NewNotificationsRepoWithConn(conn PgConnection) *NotificationsRepository {
	err := conn.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for notificationsRepo: " + err.Error())
	}
	return &NotificationsRepository{
		conn: conn,
	}
}

func (nr *NotificationsRepository) Create(ctx context.Context, n *entity.Notification) (uuid.UUID, error) {
	payload := n.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := sonic.Marshal(payload)
	if err != nil {
		return uuid.UUID{}, errors.New("marshalling notification payload error: " + err.Error())
	}
	var id uuid.UUID
	row := nr.conn.QueryRow(ctx, `INSERT INTO notifications
		(recipient_email, type, title, message, status, read, goal_id, submission_id, payload)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7, $8) RETURNING id;`,
		n.RecipientEmail,
		string(n.Type),
		n.Title,
		n.Message,
		n.Status,
		n.GoalID,
		n.SubmissionID,
		raw,
	)
	if err := row.Scan(&id); err != nil {
		return uuid.UUID{}, errors.New("creating notification db error: " + err.Error())
	}
	return id, nil
}

func (nr *NotificationsRepository) ListByRecipient(ctx context.Context, recipientEmail string, limit int) ([]*entity.Notification, error) {
	notifications := make([]*entity.Notification, 0)
	rows, err := nr.conn.Query(ctx, `SELECT id, recipient_email, type, title, message, status, read, goal_id,
		submission_id, payload, created_at FROM notifications
		WHERE recipient_email = $1 ORDER BY created_at DESC LIMIT $2;`, recipientEmail, limit)
	if err != nil {
		return nil, errors.New("listing notifications error: " + err.Error())
	}
	defer rows.Close()
	for rows.Next() {
		var n entity.Notification
		var payload []byte
		err = rows.Scan(&n.ID, &n.RecipientEmail, &n.Type, &n.Title, &n.Message, &n.Status, &n.Read,
			&n.GoalID, &n.SubmissionID, &payload, &n.CreatedAt)
		if err != nil {
			return nil, errors.New("unmarshalling notification error: " + err.Error())
		}
		if len(payload) > 0 {
			if err := sonic.Unmarshal(payload, &n.Payload); err != nil {
				return nil, errors.New("unmarshalling notification payload error: " + err.Error())
			}
		}
		notifications = append(notifications, &n)
	}
	if rows.Err() != nil {
		return nil, errors.New("unexpected error after scanning: " + rows.Err().Error())
	}
	return notifications, nil
}

func (nr *NotificationsRepository) CountUnread(ctx context.Context, recipientEmail string) (int, error) {
	var count int
	row := nr.conn.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE recipient_email = $1 AND read != TRUE;`,
		recipientEmail)
	if err := row.Scan(&count); err != nil {
		return 0, errors.New("counting unread notifications error: " + err.Error())
	}
	return count, nil
}

func (nr *NotificationsRepository) MarkRead(ctx context.Context, id uuid.UUID, recipientEmail string) error {
	ct, err := nr.conn.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient_email = $2;`,
		id, recipientEmail)
	if err != nil {
		return errors.New("marking notification read error: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrNotificationNotFound
	}
	return nil
}

func (nr *NotificationsRepository) MarkAllRead(ctx context.Context, recipientEmail string) (int64, error) {
	ct, err := nr.conn.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE recipient_email = $1;`, recipientEmail)
	if err != nil {
		return 0, errors.New("marking notifications read error: " + err.Error())
	}
	return ct.RowsAffected(), nil
}

func (nr *NotificationsRepository) UpdateStatusByGoal(ctx context.Context, goalID uuid.UUID, status string) error {
	_, err := nr.conn.Exec(ctx, `UPDATE notifications SET status = $1 WHERE goal_id = $2;`, status, goalID)
	if err != nil {
		return errors.New("updating notification status error: " + err.Error())
	}
	return nil
}

func (nr *NotificationsRepository) DeleteBySubmission(ctx context.Context, submissionID uuid.UUID) error {
	_, err := nr.conn.Exec(ctx, `DELETE FROM notifications WHERE submission_id = $1 AND type = 'progress_submission';`,
		submissionID)
	if err != nil {
		return errors.New("deleting submission notification error: " + err.Error())
	}
	return nil
}

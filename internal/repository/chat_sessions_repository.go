package repository

import (
	"context"
	"errors"
	"log"

	errorvalues "github.com/aidiy/backend/internal/error_values"
	"github.com/aidiy/backend/pkg/entity"
	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ChatSessionsRepository struct {
	conn PgConnection
}

func NewChatSessionsRepo(cfg DBConfig) *ChatSessionsRepository {
	return &ChatSessionsRepository{
		conn: newPool(cfg, "chatSessionsRepo"),
	}
}

func NewChatSessionsRepoWithConn(conn PgConnection) *ChatSessionsRepository {
	err := conn.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for chatSessionsRepo: " + err.Error())
	}
	return &ChatSessionsRepository{
		conn: conn,
	}
}

func (csr *ChatSessionsRepository) Create(ctx context.Context, session *entity.ChatSession) (uuid.UUID, error) {
	msgs := session.Messages
	if msgs == nil {
		msgs = []entity.ChatMessage{}
	}
	raw, err := sonic.Marshal(msgs)
	if err != nil {
		return uuid.UUID{}, errors.New("marshalling chat messages error: " + err.Error())
	}
	var id uuid.UUID
	row := csr.conn.QueryRow(ctx, `INSERT INTO chat_sessions (user_email, title, messages)
		VALUES ($1, $2, $3) RETURNING id;`,
		session.UserEmail,
		session.Title,
		raw,
	)
	if err := row.Scan(&id); err != nil {
		return uuid.UUID{}, errors.New("creating chat session db error: " + err.Error())
	}
	return id, nil
}

func (csr *ChatSessionsRepository) GetByID(ctx context.Context, id uuid.UUID, userEmail string) (*entity.ChatSession, error) {
	var session entity.ChatSession
	var msgs []byte
	row := csr.conn.QueryRow(ctx, `SELECT id, user_email, title, messages, created_at, updated_at
		FROM chat_sessions WHERE id = $1 AND user_email = $2;`, id, userEmail)
	if err := row.Scan(&session.ID, &session.UserEmail, &session.Title, &msgs, &session.CreatedAt, &session.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorvalues.ErrSessionNotFound
		}
		return nil, errors.New("getting chat session error: " + err.Error())
	}
	if len(msgs) > 0 {
		if err := sonic.Unmarshal(msgs, &session.Messages); err != nil {
			return nil, errors.New("unmarshalling chat messages error: " + err.Error())
		}
	}
	return &session, nil
}

func (csr *ChatSessionsRepository) ListByUser(ctx context.Context, userEmail string, limit int) ([]*entity.ChatSession, error) {
	sessions := make([]*entity.ChatSession, 0)
	rows, err := csr.conn.Query(ctx, `SELECT id, user_email, title, created_at, updated_at
		FROM chat_sessions WHERE user_email = $1 ORDER BY updated_at DESC LIMIT $2;`, userEmail, limit)
	if err != nil {
		return nil, errors.New("listing chat sessions error: " + err.Error())
	}
	defer rows.Close()
	for rows.Next() {
		var s entity.ChatSession
		err = rows.Scan(&s.ID, &s.UserEmail, &s.Title, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, errors.New("unmarshalling chat session error: " + err.Error())
		}
		sessions = append(sessions, &s)
	}
	if rows.Err() != nil {
		return nil, errors.New("unexpected error after scanning: " + rows.Err().Error())
	}
	return sessions, nil
}

// AppendMessages pushes messages onto the session's jsonb array; a non-empty
// title also retitles the session (used for the first real message).
func (csr *ChatSessionsRepository) AppendMessages(ctx context.Context, id uuid.UUID, title string, msgs []entity.ChatMessage) error {
	raw, err := sonic.Marshal(msgs)
	if err != nil {
		return errors.New("marshalling chat messages error: " + err.Error())
	}
	ct, err := csr.conn.Exec(ctx, `UPDATE chat_sessions SET
		messages = messages || $1::jsonb,
		title = CASE WHEN $2 != '' THEN $2 ELSE title END,
		updated_at = NOW()
		WHERE id = $3;`, raw, title, id)
	if err != nil {
		return errors.New("appending chat messages error: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrSessionNotFound
	}
	return nil
}

func (csr *ChatSessionsRepository) Rename(ctx context.Context, id uuid.UUID, userEmail, title string) error {
	ct, err := csr.conn.Exec(ctx, `UPDATE chat_sessions SET title = $1, updated_at = NOW()
		WHERE id = $2 AND user_email = $3;`, title, id, userEmail)
	if err != nil {
		return errors.New("renaming chat session error: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrSessionNotFound
	}
	return nil
}

func (csr *ChatSessionsRepository) Delete(ctx context.Context, id uuid.UUID, userEmail string) error {
	ct, err := csr.conn.Exec(ctx, `DELETE FROM chat_sessions WHERE id = $1 AND user_email = $2;`, id, userEmail)
	if err != nil {
		return errors.New("deleting chat session error: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrSessionNotFound
	}
	return nil
}

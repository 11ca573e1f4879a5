package repository

import (
	"context"
	"errors"
	"log"
	"time"

	errorvalues "github.com/aidiy/backend/internal/error_values"
	"github.com/aidiy/backend/pkg/entity"
	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type SubmissionsRepository struct {
	conn PgConnection
}

func NewSubmissionsRepo(cfg DBConfig) *SubmissionsRepository {
	return &SubmissionsRepository{
		conn: newPool(cfg, "submissionsRepo"),
	}
}

func NewSubmissionsRepoWithConn(conn PgConnection) *SubmissionsRepository {
	err := conn.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for submissionsRepo: " + err.Error())
	}
	return &SubmissionsRepository{
		conn: conn,
	}
}

func (sr *SubmissionsRepository) Create(ctx context.Context, sub *entity.PendingSubmission) (uuid.UUID, error) {
	chores, err := sonic.Marshal(sub.Chores)
	if err != nil {
		return uuid.UUID{}, errors.New("marshalling chore snapshot error: " + err.Error())
	}
	var id uuid.UUID
	row := sr.conn.QueryRow(ctx, `INSERT INTO pending_submissions
		(goal_id, kid_username, parent_email, earned_amount, chores, status)
		VALUES ($1, $2, $3, $4, $5, 'pending') RETURNING id;`,
		sub.GoalID,
		sub.KidUsername,
		sub.ParentEmail,
		sub.EarnedAmount,
		chores,
	)
	if err := row.Scan(&id); err != nil {
		return uuid.UUID{}, errors.New("creating submission db error: " + err.Error())
	}
	return id, nil
}

func (sr *SubmissionsRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.PendingSubmission, error) {
	var sub entity.PendingSubmission
	var chores []byte
	row := sr.conn.QueryRow(ctx, `SELECT id, goal_id, kid_username, parent_email, earned_amount, chores, status,
		created_at, resolved_at, resolved_by FROM pending_submissions WHERE id = $1;`, id)
	if err := row.Scan(&sub.ID, &sub.GoalID, &sub.KidUsername, &sub.ParentEmail, &sub.EarnedAmount, &chores,
		&sub.Status, &sub.CreatedAt, &sub.ResolvedAt, &sub.ResolvedBy); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorvalues.ErrSubmissionNotFound
		}
		return nil, errors.New("getting submission by id error: " + err.Error())
	}
	if len(chores) > 0 {
		if err := sonic.Unmarshal(chores, &sub.Chores); err != nil {
			return nil, errors.New("unmarshalling chore snapshot error: " + err.Error())
		}
	}
	return &sub, nil
}

// Claim is the single concurrency gate for submission resolution: the
// update matches on status = 'pending', so exactly one of two racing
// decisions transitions the row.
func (sr *SubmissionsRepository) Claim(ctx context.Context, id uuid.UUID, status entity.SubmissionStatus, resolvedBy string, at time.Time) (bool, error) {
	ct, err := sr.conn.Exec(ctx, `UPDATE pending_submissions SET status = $1, resolved_at = $2, resolved_by = $3
		WHERE id = $4 AND status = 'pending';`,
		string(status), at, resolvedBy, id)
	if err != nil {
		return false, errors.New("claiming submission error: " + err.Error())
	}
	return ct.RowsAffected() > 0, nil
}

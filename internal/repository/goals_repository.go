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

type GoalsRepository struct {
	conn PgConnection
}

func NewGoalsRepo(cfg DBConfig) *GoalsRepository {
	return &GoalsRepository{
		conn: newPool(cfg, "goalsRepo"),
	}
}

func NewGoalsRepoWithConn(conn PgConnection) *GoalsRepository {
	err := conn.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for goalsRepo: " + err.Error())
	}
	return &GoalsRepository{
		conn: conn,
	}
}

const goalColumns = `id, kid_username, kid_name, kid_avatar, parent_email, title, category, description,
	amount, saved, progress, duration, status, assigned_chore_ids, has_launched_mission, progress_history,
	created_at, approved_at, approved_by, declined_at, declined_by, completed_at`

func scanGoal(row pgx.Row) (*entity.Goal, error) {
	var g entity.Goal
	var history []byte
	err := row.Scan(&g.ID, &g.KidUsername, &g.KidName, &g.KidAvatar, &g.ParentEmail, &g.Title, &g.Category,
		&g.Description, &g.TargetAmount, &g.SavedAmount, &g.Progress, &g.DurationWeeks, &g.Status,
		&g.AssignedChoreIDs, &g.HasLaunchedMission, &history, &g.CreatedAt, &g.ApprovedAt, &g.ApprovedBy,
		&g.DeclinedAt, &g.DeclinedBy, &g.CompletedAt)
	if err != nil {
		return nil, err
	}
	if len(history) > 0 {
		if err := sonic.Unmarshal(history, &g.ProgressHistory); err != nil {
			return nil, errors.New("unmarshalling progress history error: " + err.Error())
		}
	}
	return &g, nil
}

func (gr *GoalsRepository) collect(rows pgx.Rows) ([]*entity.Goal, error) {
	goals := make([]*entity.Goal, 0)
	defer rows.Close()
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, errors.New("unmarshalling goal error: " + err.Error())
		}
		goals = append(goals, goal)
	}
	if rows.Err() != nil {
		return nil, errors.New("unexpected error after scanning: " + rows.Err().Error())
	}
	return goals, nil
}

func (gr *GoalsRepository) Create(ctx context.Context, goal *entity.Goal) (uuid.UUID, error) {
	var id uuid.UUID
	row := gr.conn.QueryRow(ctx, `INSERT INTO goals
		(kid_username, kid_name, kid_avatar, parent_email, title, category, description, amount, duration, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id;`,
		goal.KidUsername,
		goal.KidName,
		goal.KidAvatar,
		goal.ParentEmail,
		goal.Title,
		goal.Category,
		goal.Description,
		goal.TargetAmount,
		goal.DurationWeeks,
		string(goal.Status),
	)
	if err := row.Scan(&id); err != nil {
		return uuid.UUID{}, errors.New("creating goal db error: " + err.Error())
	}
	return id, nil
}

func (gr *GoalsRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Goal, error) {
	row := gr.conn.QueryRow(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = $1;`, id)
	goal, err := scanGoal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorvalues.ErrGoalNotFound
		}
		return nil, errors.New("getting goal by id error: " + err.Error())
	}
	return goal, nil
}

func (gr *GoalsRepository) ListByKid(ctx context.Context, kidUsername string) ([]*entity.Goal, error) {
	rows, err := gr.conn.Query(ctx, `SELECT `+goalColumns+` FROM goals WHERE kid_username = $1 ORDER BY created_at;`,
		kidUsername)
	if err != nil {
		return nil, errors.New("listing kid goals error: " + err.Error())
	}
	return gr.collect(rows)
}

func (gr *GoalsRepository) ListByParent(ctx context.Context, parentEmail string) ([]*entity.Goal, error) {
	rows, err := gr.conn.Query(ctx, `SELECT `+goalColumns+` FROM goals WHERE parent_email = $1 ORDER BY created_at;`,
		parentEmail)
	if err != nil {
		return nil, errors.New("listing parent goals error: " + err.Error())
	}
	return gr.collect(rows)
}

func (gr *GoalsRepository) Approve(ctx context.Context, id uuid.UUID, approvedBy string, at time.Time) error {
	ct, err := gr.conn.Exec(ctx, `UPDATE goals SET status = 'approved', approved_at = $1, approved_by = $2 WHERE id = $3;`,
		at, approvedBy, id)
	if err != nil {
		return errors.New("approving goal error: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrGoalNotFound
	}
	return nil
}

func (gr *GoalsRepository) Decline(ctx context.Context, id uuid.UUID, declinedBy string, at time.Time) error {
	ct, err := gr.conn.Exec(ctx, `UPDATE goals SET status = 'declined', declined_at = $1, declined_by = $2 WHERE id = $3;`,
		at, declinedBy, id)
	if err != nil {
		return errors.New("declining goal error: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrGoalNotFound
	}
	return nil
}

// SetAssignedChores replaces the goal's chore set. Replacement, not union:
// the goal tracks exactly the last launched selection.
func (gr *GoalsRepository) SetAssignedChores(ctx context.Context, id uuid.UUID, choreIDs []uuid.UUID) error {
	ct, err := gr.conn.Exec(ctx, `UPDATE goals SET assigned_chore_ids = $1, has_launched_mission = TRUE WHERE id = $2;`,
		choreIDs, id)
	if err != nil {
		return errors.New("setting assigned chores error: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrGoalNotFound
	}
	return nil
}

// Credit applies an approved submission in one statement: the saved/progress
// totals, the appended audit entry and the completed stamp land atomically.
func (gr *GoalsRepository) Credit(ctx context.Context, id uuid.UUID, credit *GoalCredit) error {
	entry, err := sonic.Marshal(credit.Entry)
	if err != nil {
		return errors.New("marshalling progress entry error: " + err.Error())
	}
	ct, err := gr.conn.Exec(ctx, `UPDATE goals SET
		saved = $1, progress = $2,
		progress_history = progress_history || $3::jsonb,
		status = CASE WHEN $4::timestamptz IS NOT NULL THEN 'completed' ELSE status END,
		completed_at = COALESCE($4, completed_at)
		WHERE id = $5;`,
		credit.NewSaved,
		credit.NewProgress,
		entry,
		credit.CompletedAt,
		id,
	)
	if err != nil {
		return errors.New("crediting goal error: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrGoalNotFound
	}
	return nil
}

func (gr *GoalsRepository) RemoveAssignedChore(ctx context.Context, choreID uuid.UUID) error {
	_, err := gr.conn.Exec(ctx, `UPDATE goals SET assigned_chore_ids = array_remove(assigned_chore_ids, $1)
		WHERE $1 = ANY(assigned_chore_ids);`, choreID)
	if err != nil {
		return errors.New("removing assigned chore error: " + err.Error())
	}
	return nil
}

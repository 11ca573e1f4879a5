package repository

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	errorvalues "github.com/aidiy/backend/internal/error_values"
	"github.com/aidiy/backend/pkg/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ChoresRepository struct {
	conn PgConnection
}

func NewChoresRepo(cfg DBConfig) *ChoresRepository {
	return &ChoresRepository{
		conn: newPool(cfg, "choresRepo"),
	}
}

func NewChoresRepoWithConn(conn PgConnection) *ChoresRepository {
	err := conn.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for choresRepo: " + err.Error())
	}
	return &ChoresRepository{
		conn: conn,
	}
}

const choreColumns = `id, parent_email, kid_username, title, description, category, difficulty, reward, status,
	due_date, assigned_goal_id, submitted_at, archived_at, approved_by, declined_at, declined_by, created_at, updated_at`

func scanChore(row pgx.Row) (*entity.Chore, error) {
	var c entity.Chore
	err := row.Scan(&c.ID, &c.ParentEmail, &c.KidUsername, &c.Title, &c.Description, &c.Category, &c.Difficulty,
		&c.Reward, &c.Status, &c.DueDate, &c.AssignedGoalID, &c.SubmittedAt, &c.ArchivedAt, &c.ApprovedBy,
		&c.DeclinedAt, &c.DeclinedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (chr *ChoresRepository) collect(rows pgx.Rows) ([]*entity.Chore, error) {
	chores := make([]*entity.Chore, 0)
	defer rows.Close()
	for rows.Next() {
		chore, err := scanChore(rows)
		if err != nil {
			return nil, errors.New("unmarshalling chore error: " + err.Error())
		}
		chores = append(chores, chore)
	}
	if rows.Err() != nil {
		return nil, errors.New("unexpected error after scanning: " + rows.Err().Error())
	}
	return chores, nil
}

func (chr *ChoresRepository) Create(ctx context.Context, chore *entity.Chore) (uuid.UUID, error) {
	var id uuid.UUID
	row := chr.conn.QueryRow(ctx, `INSERT INTO chores
		(parent_email, kid_username, title, description, category, difficulty, reward, status, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id;`,
		chore.ParentEmail,
		chore.KidUsername,
		chore.Title,
		chore.Description,
		chore.Category,
		chore.Difficulty,
		chore.Reward,
		string(chore.Status),
		chore.DueDate,
	)
	if err := row.Scan(&id); err != nil {
		return uuid.UUID{}, errors.New("creating chore db error: " + err.Error())
	}
	return id, nil
}

func (chr *ChoresRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Chore, error) {
	row := chr.conn.QueryRow(ctx, `SELECT `+choreColumns+` FROM chores WHERE id = $1;`, id)
	chore, err := scanChore(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorvalues.ErrChoreNotFound
		}
		return nil, errors.New("getting chore by id error: " + err.Error())
	}
	return chore, nil
}

func (chr *ChoresRepository) List(ctx context.Context, filter ChoreFilter) ([]*entity.Chore, error) {
	query := `SELECT ` + choreColumns + ` FROM chores WHERE status != 'archived'`
	args := make([]any, 0, 4)
	if filter.ParentEmail != "" {
		args = append(args, filter.ParentEmail)
		query += ` AND parent_email = $` + strconv.Itoa(len(args))
	}
	if filter.KidUsername != "" {
		args = append(args, filter.KidUsername)
		query += ` AND kid_username = $` + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if filter.GoalID != nil {
		args = append(args, *filter.GoalID)
		query += ` AND assigned_goal_id = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at;`
	rows, err := chr.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.New("listing chores error: " + err.Error())
	}
	return chr.collect(rows)
}

func (chr *ChoresRepository) ListWorkableByGoal(ctx context.Context, goalID uuid.UUID) ([]*entity.Chore, error) {
	rows, err := chr.conn.Query(ctx, `SELECT `+choreColumns+` FROM chores
		WHERE assigned_goal_id = $1 AND status NOT IN ('archived', 'pending_approval') ORDER BY created_at;`, goalID)
	if err != nil {
		return nil, errors.New("listing goal chores error: " + err.Error())
	}
	return chr.collect(rows)
}

func (chr *ChoresRepository) ListByKid(ctx context.Context, kidUsername string) ([]*entity.Chore, error) {
	rows, err := chr.conn.Query(ctx, `SELECT `+choreColumns+` FROM chores WHERE kid_username = $1 ORDER BY created_at;`,
		kidUsername)
	if err != nil {
		return nil, errors.New("listing kid chores error: " + err.Error())
	}
	return chr.collect(rows)
}

func (chr *ChoresRepository) Update(ctx context.Context, chore *entity.Chore) error {
	ct, err := chr.conn.Exec(ctx, `UPDATE chores SET
		kid_username = $1, title = $2, description = $3, category = $4, difficulty = $5,
		reward = $6, status = $7, due_date = $8, updated_at = NOW()
		WHERE id = $9 AND parent_email = $10;`,
		chore.KidUsername,
		chore.Title,
		chore.Description,
		chore.Category,
		chore.Difficulty,
		chore.Reward,
		string(chore.Status),
		chore.DueDate,
		chore.ID,
		chore.ParentEmail,
	)
	if err != nil {
		return errors.New("updating chore error: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrChoreNotFound
	}
	return nil
}

func (chr *ChoresRepository) Delete(ctx context.Context, id uuid.UUID, parentEmail string) error {
	ct, err := chr.conn.Exec(ctx, `DELETE FROM chores WHERE id = $1 AND parent_email = $2;`, id, parentEmail)
	if err != nil {
		return errors.New("deleting chore error: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrChoreNotFound
	}
	return nil
}

func (chr *ChoresRepository) AssignToGoal(ctx context.Context, choreID, goalID uuid.UUID) error {
	ct, err := chr.conn.Exec(ctx, `UPDATE chores SET assigned_goal_id = $1, status = 'Assigned', updated_at = NOW()
		WHERE id = $2;`, goalID, choreID)
	if err != nil {
		return errors.New("assigning chore to goal error: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrChoreNotFound
	}
	return nil
}

func (chr *ChoresRepository) MarkPendingApproval(ctx context.Context, choreID uuid.UUID, submittedAt time.Time) error {
	ct, err := chr.conn.Exec(ctx, `UPDATE chores SET status = 'pending_approval', submitted_at = $1, updated_at = NOW()
		WHERE id = $2;`, submittedAt, choreID)
	if err != nil {
		return errors.New("marking chore pending approval error: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrChoreNotFound
	}
	return nil
}

// ArchiveIfPending is conditional on the current status: a chore already
// resolved by a racing decision matches zero rows and is left untouched.
func (chr *ChoresRepository) ArchiveIfPending(ctx context.Context, choreID uuid.UUID, approvedBy string) (bool, error) {
	ct, err := chr.conn.Exec(ctx, `UPDATE chores SET status = 'archived', archived_at = NOW(), approved_by = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'pending_approval';`, approvedBy, choreID)
	if err != nil {
		return false, errors.New("archiving chore error: " + err.Error())
	}
	return ct.RowsAffected() > 0, nil
}

func (chr *ChoresRepository) ReassignIfPending(ctx context.Context, choreID uuid.UUID, declinedBy string) (bool, error) {
	ct, err := chr.conn.Exec(ctx, `UPDATE chores SET status = 'Assigned', submitted_at = NULL,
		declined_at = NOW(), declined_by = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'pending_approval';`, declinedBy, choreID)
	if err != nil {
		return false, errors.New("reassigning chore error: " + err.Error())
	}
	return ct.RowsAffected() > 0, nil
}

func (chr *ChoresRepository) CountAssigned(ctx context.Context, kidUsername string) (int, error) {
	var count int
	row := chr.conn.QueryRow(ctx, `SELECT COUNT(*) FROM chores WHERE kid_username = $1 AND status = 'Assigned';`, kidUsername)
	if err := row.Scan(&count); err != nil {
		return 0, errors.New("counting assigned chores error: " + err.Error())
	}
	return count, nil
}

package repository

import (
	"context"
	"errors"
	"log"

	errorvalues "github.com/aidiy/backend/internal/error_values"
	"github.com/aidiy/backend/pkg/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type ChildrenRepository struct {
	conn PgConnection
}

func NewChildrenRepo(cfg DBConfig) *ChildrenRepository {
	return &ChildrenRepository{
		conn: newPool(cfg, "childrenRepo"),
	}
}

func NewChildrenRepoWithConn(conn PgConnection) *ChildrenRepository {
	err := conn.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for childrenRepo: " + err.Error())
	}
	return &ChildrenRepository{
		conn: conn,
	}
}

const childColumns = `id, parent_email, username, first_name, last_name, nick_name, avatar, birth_date,
	login_code, money_accumulated, tasks_assigned, tasks_completed, created_at`

func scanChild(row pgx.Row) (*entity.Child, error) {
	var c entity.Child
	err := row.Scan(&c.ID, &c.ParentEmail, &c.Username, &c.FirstName, &c.LastName, &c.NickName, &c.Avatar,
		&c.BirthDate, &c.LoginCode, &c.MoneyAccumulated, &c.TasksAssigned, &c.TasksCompleted, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (cr *ChildrenRepository) Create(ctx context.Context, child *entity.Child) (uuid.UUID, error) {
	var id uuid.UUID
	row := cr.conn.QueryRow(ctx, `INSERT INTO children
		(parent_email, username, first_name, last_name, nick_name, avatar, birth_date, login_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id;`,
		child.ParentEmail,
		child.Username,
		child.FirstName,
		child.LastName,
		child.NickName,
		child.Avatar,
		child.BirthDate,
		child.LoginCode,
	)
	if err := row.Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			// Unique violation on username
			case "23505":
				return uuid.UUID{}, errorvalues.ErrUsernameTaken
			}
		}
		return uuid.UUID{}, errors.New("creating child db error: " + err.Error())
	}
	return id, nil
}

func (cr *ChildrenRepository) FindByUsername(ctx context.Context, username string) (*entity.Child, error) {
	row := cr.conn.QueryRow(ctx, `SELECT `+childColumns+` FROM children WHERE username = $1;`, username)
	child, err := scanChild(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorvalues.ErrChildNotFound
		}
		return nil, errors.New("searching child by username error: " + err.Error())
	}
	return child, nil
}

func (cr *ChildrenRepository) FindByLogin(ctx context.Context, username, loginCode string) (*entity.Child, error) {
	row := cr.conn.QueryRow(ctx, `SELECT `+childColumns+` FROM children WHERE username = $1 AND login_code = $2;`,
		username, loginCode)
	child, err := scanChild(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorvalues.ErrChildNotFound
		}
		return nil, errors.New("searching child by login error: " + err.Error())
	}
	return child, nil
}

func (cr *ChildrenRepository) ListByParent(ctx context.Context, parentEmail string) ([]*entity.Child, error) {
	children := make([]*entity.Child, 0)
	rows, err := cr.conn.Query(ctx, `SELECT `+childColumns+` FROM children WHERE parent_email = $1 ORDER BY created_at;`,
		parentEmail)
	if err != nil {
		return nil, errors.New("listing children error: " + err.Error())
	}
	defer rows.Close()
	for rows.Next() {
		child, err := scanChild(rows)
		if err != nil {
			return nil, errors.New("unmarshalling child error: " + err.Error())
		}
		children = append(children, child)
	}
	if rows.Err() != nil {
		return nil, errors.New("unexpected error after scanning: " + rows.Err().Error())
	}
	return children, nil
}

func (cr *ChildrenRepository) Update(ctx context.Context, parentEmail, username string, upd *ChildUpdate) error {
	ct, err := cr.conn.Exec(ctx, `UPDATE children SET
		first_name = COALESCE($1, first_name),
		last_name = COALESCE($2, last_name),
		nick_name = COALESCE($3, nick_name),
		avatar = COALESCE($4, avatar),
		birth_date = COALESCE($5, birth_date),
		login_code = COALESCE($6, login_code),
		username = COALESCE($7, username)
		WHERE username = $8 AND parent_email = $9;`,
		upd.FirstName,
		upd.LastName,
		upd.NickName,
		upd.Avatar,
		upd.BirthDate,
		upd.LoginCode,
		upd.Username,
		username,
		parentEmail,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return errorvalues.ErrUsernameTaken
			}
		}
		return errors.New("updating child error: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrChildNotFound
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"log"

	errorvalues "github.com/aidiy/backend/internal/error_values"
	"github.com/aidiy/backend/pkg/entity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type UsersRepository struct {
	conn PgConnection
}

func NewUsersRepo(cfg DBConfig) *UsersRepository {
	return &UsersRepository{
		conn: newPool(cfg, "usersRepo"),
	}
}

func NewUsersRepoWithConn(conn PgConnection) *UsersRepository {
	err := conn.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for usersRepo: " + err.Error())
	}
	return &UsersRepository{
		conn: conn,
	}
}

func (ur *UsersRepository) Create(ctx context.Context, user *entity.User) error {
	if user == nil {
		return errors.New("user is nil")
	}
	_, err := ur.conn.Exec(ctx, `INSERT INTO users
		(email, first_name, last_name, name, phone_number, birth_date, password_hash, is_verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Name,
		user.PhoneNumber,
		user.BirthDate,
		user.PasswordHash,
		user.IsVerified,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			// Unique violation
			case "23505":
				return errorvalues.ErrEmailTaken
			}
		}
		return errors.New("creating user db error: " + err.Error())
	}
	return nil
}

func (ur *UsersRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	row := ur.conn.QueryRow(ctx, `SELECT id, email, first_name, last_name, name, phone_number, birth_date,
		password_hash, parent_role, chore_categories, is_verified, is_profile_complete, has_completed_assessment, created_at
		FROM users WHERE email = $1;`, email)
	if err := row.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.Name, &user.PhoneNumber,
		&user.BirthDate, &user.PasswordHash, &user.ParentRole, &user.ChoreCategories, &user.IsVerified,
		&user.IsProfileComplete, &user.HasCompletedAssessment, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorvalues.ErrUserNotFound
		}
		return nil, errors.New("searching user by email error: " + err.Error())
	}
	return &user, nil
}

func (ur *UsersRepository) UpdateProfile(ctx context.Context, email string, upd *ProfileUpdate) error {
	ct, err := ur.conn.Exec(ctx, `UPDATE users SET
		first_name = COALESCE($1, first_name),
		last_name = COALESCE($2, last_name),
		phone_number = COALESCE($3, phone_number),
		birth_date = COALESCE($4, birth_date),
		parent_role = COALESCE($5, parent_role),
		chore_categories = COALESCE($6, chore_categories),
		name = COALESCE($1, first_name) || ' ' || COALESCE($2, last_name),
		is_profile_complete = TRUE
		WHERE email = $7;`,
		upd.FirstName,
		upd.LastName,
		upd.PhoneNumber,
		upd.BirthDate,
		upd.ParentRole,
		upd.ChoreCategories,
		email,
	)
	if err != nil {
		return errors.New("updating user profile error: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrUserNotFound
	}
	return nil
}

func (ur *UsersRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	ct, err := ur.conn.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE email = $2;`, passwordHash, email)
	if err != nil {
		return errors.New("updating user password error: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrUserNotFound
	}
	return nil
}

func (ur *UsersRepository) MarkAssessmentComplete(ctx context.Context, email string) error {
	ct, err := ur.conn.Exec(ctx, `UPDATE users SET has_completed_assessment = TRUE WHERE email = $1;`, email)
	if err != nil {
		return errors.New("marking assessment complete error: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrUserNotFound
	}
	return nil
}

func (ur *UsersRepository) UpsertPending(ctx context.Context, pending *entity.PendingUser) error {
	_, err := ur.conn.Exec(ctx, `INSERT INTO pending_users (email, first_name, last_name, name, phone_number, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email) DO UPDATE SET
		first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name, name = EXCLUDED.name,
		phone_number = EXCLUDED.phone_number, password_hash = EXCLUDED.password_hash;`,
		pending.Email,
		pending.FirstName,
		pending.LastName,
		pending.Name,
		pending.PhoneNumber,
		pending.PasswordHash,
	)
	if err != nil {
		return errors.New("upserting pending user error: " + err.Error())
	}
	return nil
}

func (ur *UsersRepository) FindPendingByEmail(ctx context.Context, email string) (*entity.PendingUser, error) {
	var pending entity.PendingUser
	row := ur.conn.QueryRow(ctx, `SELECT email, first_name, last_name, name, phone_number, password_hash, created_at
		FROM pending_users WHERE email = $1;`, email)
	if err := row.Scan(&pending.Email, &pending.FirstName, &pending.LastName, &pending.Name,
		&pending.PhoneNumber, &pending.PasswordHash, &pending.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorvalues.ErrPendingNotFound
		}
		return nil, errors.New("searching pending user error: " + err.Error())
	}
	return &pending, nil
}

func (ur *UsersRepository) DeletePending(ctx context.Context, email string) error {
	_, err := ur.conn.Exec(ctx, `DELETE FROM pending_users WHERE email = $1;`, email)
	if err != nil {
		return errors.New("deleting pending user error: " + err.Error())
	}
	return nil
}

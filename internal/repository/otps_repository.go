package repository

import (
	"context"
	"errors"
	"log"

	errorvalues "github.com/aidiy/backend/internal/error_values"
	"github.com/aidiy/backend/pkg/entity"
	"github.com/jackc/pgx/v5"
)

type OTPRepository struct {
	conn PgConnection
}

func NewOTPRepo(cfg DBConfig) *OTPRepository {
	return &OTPRepository{
		conn: newPool(cfg, "otpRepo"),
	}
}

func NewOTPRepoWithConn(conn PgConnection) *OTPRepository {
	err := conn.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for otpRepo: " + err.Error())
	}
	return &OTPRepository{
		conn: conn,
	}
}

func (or *OTPRepository) Upsert(ctx context.Context, otp *entity.OTP) error {
	_, err := or.conn.Exec(ctx, `INSERT INTO otps (email, code, purpose, expires_at, attempts, validated)
		VALUES ($1, $2, $3, $4, 0, FALSE)
		ON CONFLICT (email) DO UPDATE SET
		code = EXCLUDED.code, purpose = EXCLUDED.purpose, expires_at = EXCLUDED.expires_at,
		attempts = 0, validated = FALSE;`,
		otp.Email,
		otp.Code,
		string(otp.Purpose),
		otp.ExpiresAt,
	)
	if err != nil {
		return errors.New("upserting otp error: " + err.Error())
	}
	return nil
}

func (or *OTPRepository) FindByEmail(ctx context.Context, email string) (*entity.OTP, error) {
	var otp entity.OTP
	row := or.conn.QueryRow(ctx, `SELECT email, code, purpose, expires_at, attempts, validated FROM otps WHERE email = $1;`, email)
	if err := row.Scan(&otp.Email, &otp.Code, &otp.Purpose, &otp.ExpiresAt, &otp.Attempts, &otp.Validated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorvalues.ErrOTPNotFound
		}
		return nil, errors.New("searching otp error: " + err.Error())
	}
	return &otp, nil
}

func (or *OTPRepository) IncrementAttempts(ctx context.Context, email string) error {
	ct, err := or.conn.Exec(ctx, `UPDATE otps SET attempts = attempts + 1 WHERE email = $1;`, email)
	if err != nil {
		return errors.New("incrementing otp attempts error: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrOTPNotFound
	}
	return nil
}

func (or *OTPRepository) MarkValidated(ctx context.Context, email string) error {
	ct, err := or.conn.Exec(ctx, `UPDATE otps SET validated = TRUE, code = '' WHERE email = $1;`, email)
	if err != nil {
		return errors.New("validating otp error: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrOTPNotFound
	}
	return nil
}

func (or *OTPRepository) Delete(ctx context.Context, email string) error {
	_, err := or.conn.Exec(ctx, `DELETE FROM otps WHERE email = $1;`, email)
	if err != nil {
		return errors.New("deleting otp error: " + err.Error())
	}
	return nil
}

package service_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	errorvalues "github.com/aidiy/backend/internal/error_values"
	"github.com/aidiy/backend/internal/repository"
	"github.com/aidiy/backend/internal/service"
	"github.com/aidiy/backend/pkg/entity"
	_ "github.com/lib/pq"
	"github.com/pressly/goose"
	"github.com/stretchr/testify/assert"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"
)

type usersRepoFake struct {
	users   map[string]*entity.User
	pending map[string]*entity.PendingUser
}

func newUsersRepoFake() *usersRepoFake {
	return &usersRepoFake{
		users:   map[string]*entity.User{},
		pending: map[string]*entity.PendingUser{},
	}
}

func (f *usersRepoFake) Create(ctx context.Context, user *entity.User) error {
	if _, ok := f.users[user.Email]; ok {
		return errorvalues.ErrEmailTaken
	}
	stored := *user
	f.users[user.Email] = &stored
	return nil
}

func (f *usersRepoFake) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, errorvalues.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *usersRepoFake) UpdateProfile(ctx context.Context, email string, upd *repository.ProfileUpdate) error {
	user, ok := f.users[email]
	if !ok {
		return errorvalues.ErrUserNotFound
	}
	if upd.FirstName != nil {
		user.FirstName = *upd.FirstName
	}
	if upd.ParentRole != nil {
		user.ParentRole = *upd.ParentRole
	}
	if upd.ChoreCategories != nil {
		user.ChoreCategories = upd.ChoreCategories
	}
	user.IsProfileComplete = true
	return nil
}

func (f *usersRepoFake) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	user, ok := f.users[email]
	if !ok {
		return errorvalues.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (f *usersRepoFake) MarkAssessmentComplete(ctx context.Context, email string) error {
	user, ok := f.users[email]
	if !ok {
		return errorvalues.ErrUserNotFound
	}
	user.HasCompletedAssessment = true
	return nil
}

func (f *usersRepoFake) UpsertPending(ctx context.Context, pending *entity.PendingUser) error {
	stored := *pending
	f.pending[pending.Email] = &stored
	return nil
}

func (f *usersRepoFake) FindPendingByEmail(ctx context.Context, email string) (*entity.PendingUser, error) {
	pending, ok := f.pending[email]
	if !ok {
		return nil, errorvalues.ErrPendingNotFound
	}
	copied := *pending
	return &copied, nil
}

func (f *usersRepoFake) DeletePending(ctx context.Context, email string) error {
	delete(f.pending, email)
	return nil
}

type otpRepoFake struct {
	otps map[string]*entity.OTP
}

func newOTPRepoFake() *otpRepoFake {
	return &otpRepoFake{otps: map[string]*entity.OTP{}}
}

func (f *otpRepoFake) Upsert(ctx context.Context, otp *entity.OTP) error {
	stored := *otp
	f.otps[otp.Email] = &stored
	return nil
}

func (f *otpRepoFake) FindByEmail(ctx context.Context, email string) (*entity.OTP, error) {
	otp, ok := f.otps[email]
	if !ok {
		return nil, errorvalues.ErrOTPNotFound
	}
	copied := *otp
	return &copied, nil
}

func (f *otpRepoFake) IncrementAttempts(ctx context.Context, email string) error {
	otp, ok := f.otps[email]
	if !ok {
		return errorvalues.ErrOTPNotFound
	}
	otp.Attempts++
	return nil
}

func (f *otpRepoFake) MarkValidated(ctx context.Context, email string) error {
	otp, ok := f.otps[email]
	if !ok {
		return errorvalues.ErrOTPNotFound
	}
	otp.Validated = true
	return nil
}

func (f *otpRepoFake) Delete(ctx context.Context, email string) error {
	delete(f.otps, email)
	return nil
}

// captureSender records the last issued code instead of sending mail.
type captureSender struct {
	lastEmail string
	lastCode  string
}

func (s *captureSender) SendOTP(email, code string, expiresMinutes int) error {
	s.lastEmail = email
	s.lastCode = code
	return nil
}

func newUserFixture() (*service.UserService, *usersRepoFake, *otpRepoFake, *captureSender) {
	users := newUsersRepoFake()
	otps := newOTPRepoFake()
	sender := &captureSender{}
	return service.NewUserService(users, otps, sender), users, otps, sender
}

var registerReq = service.RegisterRequest{
	FirstName: "Pat",
	LastName:  "Parent",
	Email:     "parent@example.com",
	Password:  "sup3r-secret",
}

func TestRegisterAndVerify(t *testing.T) {
	ctx := context.Background()
	t.Run("register stores pending and emails a code", func(t *testing.T) {
		us, users, _, sender := newUserFixture()
		err := us.Register(ctx, &registerReq)
		assert.NoError(t, err)
		assert.Contains(t, users.pending, registerReq.Email)
		assert.NotContains(t, users.users, registerReq.Email)
		assert.Equal(t, registerReq.Email, sender.lastEmail)
		assert.Len(t, sender.lastCode, 6)
	})
	t.Run("verify promotes the pending registration", func(t *testing.T) {
		us, users, otps, sender := newUserFixture()
		assert.NoError(t, us.Register(ctx, &registerReq))
		purpose, err := us.VerifyOTP(ctx, registerReq.Email, sender.lastCode)
		assert.NoError(t, err)
		assert.Equal(t, entity.OTPPurposeVerify, purpose)
		user := users.users[registerReq.Email]
		assert.True(t, user.IsVerified)
		assert.Equal(t, "Pat Parent", user.Name)
		assert.NotContains(t, users.pending, registerReq.Email)
		assert.NotContains(t, otps.otps, registerReq.Email)
	})
	t.Run("wrong code burns an attempt", func(t *testing.T) {
		us, _, otps, _ := newUserFixture()
		assert.NoError(t, us.Register(ctx, &registerReq))
		_, err := us.VerifyOTP(ctx, registerReq.Email, "000000")
		assert.ErrorIs(t, err, errorvalues.ErrWrongOTP)
		assert.Equal(t, 1, otps.otps[registerReq.Email].Attempts)
	})
	t.Run("third wrong guess locks the code", func(t *testing.T) {
		us, _, _, sender := newUserFixture()
		assert.NoError(t, us.Register(ctx, &registerReq))
		for range 3 {
			_, err := us.VerifyOTP(ctx, registerReq.Email, "000000")
			assert.ErrorIs(t, err, errorvalues.ErrWrongOTP)
		}
		_, err := us.VerifyOTP(ctx, registerReq.Email, sender.lastCode)
		assert.ErrorIs(t, err, errorvalues.ErrOTPAttemptsExceeded)
	})
	t.Run("codes live five minutes", func(t *testing.T) {
		us, _, otps, _ := newUserFixture()
		assert.NoError(t, us.Register(ctx, &registerReq))
		otp := otps.otps[registerReq.Email]
		assert.WithinDuration(t, time.Now().Add(5*time.Minute), otp.ExpiresAt, time.Second)
	})
	t.Run("expired code", func(t *testing.T) {
		us, _, otps, sender := newUserFixture()
		assert.NoError(t, us.Register(ctx, &registerReq))
		otps.otps[registerReq.Email].ExpiresAt = time.Now().Add(-time.Minute)
		_, err := us.VerifyOTP(ctx, registerReq.Email, sender.lastCode)
		assert.ErrorIs(t, err, errorvalues.ErrOTPExpired)
	})
	t.Run("no code issued", func(t *testing.T) {
		us, _, _, _ := newUserFixture()
		_, err := us.VerifyOTP(ctx, registerReq.Email, "123456")
		assert.ErrorIs(t, err, errorvalues.ErrOTPNotFound)
	})
	t.Run("taken email rejected", func(t *testing.T) {
		us, users, _, _ := newUserFixture()
		users.users[registerReq.Email] = &entity.User{Email: registerReq.Email}
		err := us.Register(ctx, &registerReq)
		assert.ErrorIs(t, err, errorvalues.ErrEmailTaken)
	})
	t.Run("invalid payload rejected", func(t *testing.T) {
		us, _, _, _ := newUserFixture()
		err := us.Register(ctx, &service.RegisterRequest{
			FirstName: "Pat",
			LastName:  "Parent",
			Email:     "not-an-email",
			Password:  "short",
		})
		assert.ErrorIs(t, err, errorvalues.ErrMissingFields)
	})
}

func TestSendOTP(t *testing.T) {
	ctx := context.Background()
	t.Run("existing account gets a reset code", func(t *testing.T) {
		us, users, _, sender := newUserFixture()
		users.users[registerReq.Email] = &entity.User{Email: registerReq.Email}
		purpose, err := us.SendOTP(ctx, registerReq.Email)
		assert.NoError(t, err)
		assert.Equal(t, entity.OTPPurposeReset, purpose)
		assert.Equal(t, registerReq.Email, sender.lastEmail)
	})
	t.Run("pending registration gets a verify code", func(t *testing.T) {
		us, users, _, _ := newUserFixture()
		users.pending[registerReq.Email] = &entity.PendingUser{Email: registerReq.Email}
		purpose, err := us.SendOTP(ctx, registerReq.Email)
		assert.NoError(t, err)
		assert.Equal(t, entity.OTPPurposeVerify, purpose)
	})
	t.Run("unknown email", func(t *testing.T) {
		us, _, _, _ := newUserFixture()
		_, err := us.SendOTP(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, errorvalues.ErrUserNotFound)
	})
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	newPassword := "an0ther-secret"
	t.Run("full reset flow", func(t *testing.T) {
		us, users, _, sender := newUserFixture()
		hash, err := bcrypt.GenerateFromPassword([]byte(registerReq.Password), bcrypt.DefaultCost)
		assert.NoError(t, err)
		users.users[registerReq.Email] = &entity.User{Email: registerReq.Email, PasswordHash: string(hash)}
		_, err = us.SendOTP(ctx, registerReq.Email)
		assert.NoError(t, err)
		purpose, err := us.VerifyOTP(ctx, registerReq.Email, sender.lastCode)
		assert.NoError(t, err)
		assert.Equal(t, entity.OTPPurposeReset, purpose)
		err = us.ResetPassword(ctx, registerReq.Email, newPassword)
		assert.NoError(t, err)
		_, err = us.Login(ctx, registerReq.Email, newPassword)
		assert.NoError(t, err)
		_, err = us.Login(ctx, registerReq.Email, registerReq.Password)
		assert.ErrorIs(t, err, errorvalues.ErrWrongCredentials)
	})
	t.Run("reset without a validated code", func(t *testing.T) {
		us, users, _, _ := newUserFixture()
		users.users[registerReq.Email] = &entity.User{Email: registerReq.Email}
		_, err := us.SendOTP(ctx, registerReq.Email)
		assert.NoError(t, err)
		err = us.ResetPassword(ctx, registerReq.Email, newPassword)
		assert.ErrorIs(t, err, errorvalues.ErrOTPNotValidated)
	})
	t.Run("reset without any code", func(t *testing.T) {
		us, _, _, _ := newUserFixture()
		err := us.ResetPassword(ctx, registerReq.Email, newPassword)
		assert.ErrorIs(t, err, errorvalues.ErrOTPNotValidated)
	})
	t.Run("short password", func(t *testing.T) {
		us, _, _, _ := newUserFixture()
		err := us.ResetPassword(ctx, registerReq.Email, "short")
		assert.ErrorIs(t, err, errorvalues.ErrMissingFields)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	us, users, _, _ := newUserFixture()
	hash, err := bcrypt.GenerateFromPassword([]byte(registerReq.Password), bcrypt.DefaultCost)
	assert.NoError(t, err)
	users.users[registerReq.Email] = &entity.User{Email: registerReq.Email, PasswordHash: string(hash)}
	t.Run("success", func(t *testing.T) {
		user, err := us.Login(ctx, registerReq.Email, registerReq.Password)
		assert.NoError(t, err)
		assert.Equal(t, registerReq.Email, user.Email)
	})
	t.Run("wrong password", func(t *testing.T) {
		_, err := us.Login(ctx, registerReq.Email, "nope-nope")
		assert.ErrorIs(t, err, errorvalues.ErrWrongCredentials)
	})
	t.Run("unknown email", func(t *testing.T) {
		_, err := us.Login(ctx, "nobody@example.com", registerReq.Password)
		assert.ErrorIs(t, err, errorvalues.ErrWrongCredentials)
	})
}

func TestUserServiceIntegrational(t *testing.T) {
	dbCfg := setupServiceTestDB(t)
	sender := &captureSender{}
	us := service.NewUserService(repository.NewUsersRepo(dbCfg), repository.NewOTPRepo(dbCfg), sender)
	ctx := context.Background()
	email := "integration@example.com"
	password := "test_password"
	t.Run("register and verify", func(t *testing.T) {
		err := us.Register(ctx, &service.RegisterRequest{
			FirstName: "Test",
			LastName:  "Parent",
			Email:     email,
			Password:  password,
		})
		assert.NoError(t, err)
		purpose, err := us.VerifyOTP(ctx, email, sender.lastCode)
		assert.NoError(t, err)
		assert.Equal(t, entity.OTPPurposeVerify, purpose)
	})
	t.Run("login", func(t *testing.T) {
		user, err := us.Login(ctx, email, password)
		assert.NoError(t, err)
		assert.True(t, user.IsVerified)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)))
	})
	t.Run("error registering taken email", func(t *testing.T) {
		err := us.Register(ctx, &service.RegisterRequest{
			FirstName: "Test",
			LastName:  "Parent",
			Email:     email,
			Password:  password,
		})
		assert.ErrorIs(t, err, errorvalues.ErrEmailTaken)
	})
	t.Run("reset password", func(t *testing.T) {
		purpose, err := us.SendOTP(ctx, email)
		assert.NoError(t, err)
		assert.Equal(t, entity.OTPPurposeReset, purpose)
		_, err = us.VerifyOTP(ctx, email, sender.lastCode)
		assert.NoError(t, err)
		err = us.ResetPassword(ctx, email, "brand-new-pass")
		assert.NoError(t, err)
		_, err = us.Login(ctx, email, "brand-new-pass")
		assert.NoError(t, err)
	})
	t.Run("update profile", func(t *testing.T) {
		role := "mum"
		err := us.UpdateProfile(ctx, email, &service.UpdateProfileRequest{
			ParentRole:      &role,
			ChoreCategories: []string{"kitchen", "garden"},
		})
		assert.NoError(t, err)
		user, err := us.GetByEmail(ctx, email)
		assert.NoError(t, err)
		assert.Equal(t, role, user.ParentRole)
		assert.Equal(t, []string{"kitchen", "garden"}, user.ChoreCategories)
		assert.True(t, user.IsProfileComplete)
	})
}

func TestMain(m *testing.M) {
	service.InitValidator()
	m.Run()
}

type testPGConfig struct {
	connStr string
}

func (cfg *testPGConfig) ConnString() string {
	return cfg.connStr
}

func setupServiceTestDB(t *testing.T) *testPGConfig {
	container, err := postgres.Run(context.Background(), "postgres:17",
		postgres.WithUsername("test_user"),
		postgres.WithDatabase("aidiy"),
		postgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatal("error running test container: " + err.Error())
	}
	connStr, err := container.ConnectionString(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	connStr += "sslmode=disable"
	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatal(err)
	}
	err = goose.Up(conn, "../../migrations")
	if err != nil {
		t.Fatal(err)
	}
	conn.Close()
	t.Cleanup(func() {
		container.Terminate(context.Background())
	})
	return &testPGConfig{
		connStr: connStr,
	}
}

package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	errorvalues "github.com/aidiy/backend/internal/error_values"
	"github.com/aidiy/backend/internal/repository"
	"github.com/aidiy/backend/pkg/entity"
	"github.com/aidiy/backend/pkg/mailer"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

const (
	otpTTL         = 5 * time.Minute
	otpMaxAttempts = 3
)

type UserService struct {
	repo    repository.UsersRepositoryI
	otpRepo repository.OTPRepositoryI
	sender  mailer.Sender
}

func NewUserService(usersRepo repository.UsersRepositoryI, otpRepo repository.OTPRepositoryI, sender mailer.Sender) *UserService {
	return &UserService{
		repo:    usersRepo,
		otpRepo: otpRepo,
		sender:  sender,
	}
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func validateStruct(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	if validationError, ok := err.(validator.ValidationErrors); ok {
		err = errors.New("validation error: ")
		for _, fieldErr := range validationError {
			err = errors.Join(err, fieldErr)
		}
		return errors.Join(errorvalues.ErrMissingFields, err)
	}
	return errors.New("validation unexpected error: " + err.Error())
}

// Register stores the registration as pending and sends a verification
// code. The account only becomes real once the code is confirmed.
func (us *UserService) Register(ctx context.Context, req *RegisterRequest) error {
	if err := validateStruct(*req); err != nil {
		return err
	}
	_, err := us.repo.FindByEmail(ctx, req.Email)
	if err == nil {
		return errorvalues.ErrEmailTaken
	}
	if !errors.Is(err, errorvalues.ErrUserNotFound) {
		return errors.New("repository searching error: " + err.Error())
	}
	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		return errors.New("hashing password error: " + err.Error())
	}
	err = us.repo.UpsertPending(ctx, &entity.PendingUser{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Name:         req.FirstName + " " + req.LastName,
		PhoneNumber:  req.PhoneNumber,
		PasswordHash: passwordHash,
	})
	if err != nil {
		return errors.New("repository creating error: " + err.Error())
	}
	return us.issueOTP(ctx, req.Email, entity.OTPPurposeVerify)
}

// SendOTP issues a code for whichever flow the email is in: password
// reset for existing accounts, verification for pending registrations.
func (us *UserService) SendOTP(ctx context.Context, email string) (entity.OTPPurpose, error) {
	_, err := us.repo.FindByEmail(ctx, email)
	if err == nil {
		return entity.OTPPurposeReset, us.issueOTP(ctx, email, entity.OTPPurposeReset)
	}
	if !errors.Is(err, errorvalues.ErrUserNotFound) {
		return "", errors.New("repository searching error: " + err.Error())
	}
	_, err = us.repo.FindPendingByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errorvalues.ErrPendingNotFound) {
			return "", errorvalues.ErrUserNotFound
		}
		return "", errors.New("repository searching error: " + err.Error())
	}
	return entity.OTPPurposeVerify, us.issueOTP(ctx, email, entity.OTPPurposeVerify)
}

func (us *UserService) issueOTP(ctx context.Context, email string, purpose entity.OTPPurpose) error {
	code, err := generateOTPCode()
	if err != nil {
		return errors.New("generating otp error: " + err.Error())
	}
	err = us.otpRepo.Upsert(ctx, &entity.OTP{
		Email:     email,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(otpTTL),
	})
	if err != nil {
		return errors.New("repository creating error: " + err.Error())
	}
	if err = us.sender.SendOTP(email, code, int(otpTTL.Minutes())); err != nil {
		return errors.New("sending otp error: " + err.Error())
	}
	return nil
}

// VerifyOTP checks the code against the stored OTP. A verification code
// promotes the pending registration into a real account; a reset code is
// marked validated so ResetPassword may follow.
func (us *UserService) VerifyOTP(ctx context.Context, email, code string) (entity.OTPPurpose, error) {
	otp, err := us.otpRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errorvalues.ErrOTPNotFound) {
			return "", errorvalues.ErrOTPNotFound
		}
		return "", errors.New("repository searching error: " + err.Error())
	}
	if time.Now().After(otp.ExpiresAt) {
		return "", errorvalues.ErrOTPExpired
	}
	if otp.Attempts >= otpMaxAttempts {
		return "", errorvalues.ErrOTPAttemptsExceeded
	}
	if otp.Code != code {
		if err = us.otpRepo.IncrementAttempts(ctx, email); err != nil {
			return "", errors.New("repository updating error: " + err.Error())
		}
		return "", errorvalues.ErrWrongOTP
	}
	if otp.Purpose == entity.OTPPurposeReset {
		if err = us.otpRepo.MarkValidated(ctx, email); err != nil {
			return "", errors.New("repository updating error: " + err.Error())
		}
		return entity.OTPPurposeReset, nil
	}
	pending, err := us.repo.FindPendingByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errorvalues.ErrPendingNotFound) {
			return "", errorvalues.ErrPendingNotFound
		}
		return "", errors.New("repository searching error: " + err.Error())
	}
	err = us.repo.Create(ctx, &entity.User{
		Email:        pending.Email,
		FirstName:    pending.FirstName,
		LastName:     pending.LastName,
		Name:         pending.Name,
		PhoneNumber:  pending.PhoneNumber,
		PasswordHash: pending.PasswordHash,
		IsVerified:   true,
	})
	if err != nil {
		if errors.Is(err, errorvalues.ErrEmailTaken) {
			return "", errorvalues.ErrEmailTaken
		}
		return "", errors.New("repository creating error: " + err.Error())
	}
	if err = us.repo.DeletePending(ctx, email); err != nil {
		return "", errors.New("repository deleting error: " + err.Error())
	}
	if err = us.otpRepo.Delete(ctx, email); err != nil {
		return "", errors.New("repository deleting error: " + err.Error())
	}
	return entity.OTPPurposeVerify, nil
}

// ResetPassword requires a previously validated reset OTP for the email.
func (us *UserService) ResetPassword(ctx context.Context, email, newPassword string) error {
	if len(newPassword) < 8 {
		return errorvalues.ErrMissingFields
	}
	otp, err := us.otpRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errorvalues.ErrOTPNotFound) {
			return errorvalues.ErrOTPNotValidated
		}
		return errors.New("repository searching error: " + err.Error())
	}
	if otp.Purpose != entity.OTPPurposeReset || !otp.Validated {
		return errorvalues.ErrOTPNotValidated
	}
	passwordHash, err := hashPassword(newPassword)
	if err != nil {
		return errors.New("hashing password error: " + err.Error())
	}
	if err = us.repo.UpdatePassword(ctx, email, passwordHash); err != nil {
		if errors.Is(err, errorvalues.ErrUserNotFound) {
			return errorvalues.ErrUserNotFound
		}
		return errors.New("repository updating error: " + err.Error())
	}
	if err = us.otpRepo.Delete(ctx, email); err != nil {
		return errors.New("repository deleting error: " + err.Error())
	}
	return nil
}

func (us *UserService) Login(ctx context.Context, email, password string) (*entity.User, error) {
	user, err := us.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errorvalues.ErrUserNotFound) {
			return nil, errorvalues.ErrWrongCredentials
		}
		return nil, errors.New("repository searching error: " + err.Error())
	}
	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errorvalues.ErrWrongCredentials
	}
	return user, nil
}

func (us *UserService) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	user, err := us.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errorvalues.ErrUserNotFound) {
			return nil, errorvalues.ErrUserNotFound
		}
		return nil, errors.New("repository searching error: " + err.Error())
	}
	return user, nil
}

func (us *UserService) UpdateProfile(ctx context.Context, email string, req *UpdateProfileRequest) error {
	err := us.repo.UpdateProfile(ctx, email, &repository.ProfileUpdate{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		PhoneNumber:     req.PhoneNumber,
		BirthDate:       req.BirthDate,
		ParentRole:      req.ParentRole,
		ChoreCategories: req.ChoreCategories,
	})
	if err != nil {
		if errors.Is(err, errorvalues.ErrUserNotFound) {
			return errorvalues.ErrUserNotFound
		}
		return errors.New("repository updating error: " + err.Error())
	}
	return nil
}

func (us *UserService) CompleteAssessment(ctx context.Context, email string) error {
	err := us.repo.MarkAssessmentComplete(ctx, email)
	if err != nil {
		if errors.Is(err, errorvalues.ErrUserNotFound) {
			return errorvalues.ErrUserNotFound
		}
		return errors.New("repository updating error: " + err.Error())
	}
	return nil
}

package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	errorvalues "github.com/aidiy/backend/internal/error_values"
	"github.com/aidiy/backend/internal/service"
	"github.com/aidiy/backend/pkg/entity"
	"github.com/aidiy/backend/pkg/httputil"
)

type RegisterRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
}

type SendOTPRequest struct {
	Email string `json:"email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type KidLoginRequest struct {
	Username string `json:"username"`
	Code     string `json:"code"`
}

func parentPayload(user *entity.User) map[string]any {
	return map[string]any{
		"email":                  user.Email,
		"firstName":              user.FirstName,
		"lastName":               user.LastName,
		"name":                   user.Name,
		"phoneNumber":            user.PhoneNumber,
		"birthDate":              user.BirthDate,
		"parentRole":             user.ParentRole,
		"choreCategories":        user.ChoreCategories,
		"isVerified":             user.IsVerified,
		"isProfileComplete":      user.IsProfileComplete,
		"hasCompletedAssessment": user.HasCompletedAssessment,
	}
}

func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"service": "AIDIY API",
		"status":  "running",
	})
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"time":         time.Now().UTC().Format(time.RFC3339),
		"ai_available": s.aiService.Available(),
	})
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	var req RegisterRequest
	defer r.Body.Close()
	err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		logger.Error("registering error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	err = s.userService.Register(ctx, &service.RegisterRequest{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		switch {
		case errors.Is(err, errorvalues.ErrEmailTaken):
			logger.Error("registering error: email already registered")
			httputil.WriteErrorResponse(w, http.StatusConflict, "email already registered", nil)
		case errors.Is(err, errorvalues.ErrMissingFields):
			logger.Error("registering error: validation failed")
			httputil.WriteErrorResponse(w, http.StatusBadRequest, "missing or invalid fields", nil)
		default:
			logger.Error("registering error: service error", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error during registration", nil)
		}
		return
	}
	httputil.WriteJSONResponse(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "verification code sent",
	})
	logger.Info("registration pending verification")
}

func (s *Server) SendOTP(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	var req SendOTPRequest
	defer r.Body.Close()
	err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req)
	if err != nil || req.Email == "" {
		logger.Error("send otp error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "email required", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	purpose, err := s.userService.SendOTP(ctx, req.Email)
	if err != nil {
		if errors.Is(err, errorvalues.ErrUserNotFound) {
			logger.Error("send otp error: unknown email")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "no account for this email", nil)
			return
		}
		logger.Error("send otp error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error sending code", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"purpose": purpose,
	})
	logger.Info("otp sent")
}

func (s *Server) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	var req VerifyOTPRequest
	defer r.Body.Close()
	err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req)
	if err != nil || req.Email == "" || req.OTP == "" {
		logger.Error("verify otp error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "email and otp required", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	purpose, err := s.userService.VerifyOTP(ctx, req.Email, req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, errorvalues.ErrOTPNotFound), errors.Is(err, errorvalues.ErrPendingNotFound):
			logger.Error("verify otp error: no code for email")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "no verification code for this email", nil)
		case errors.Is(err, errorvalues.ErrOTPExpired):
			logger.Error("verify otp error: code expired")
			httputil.WriteErrorResponse(w, http.StatusBadRequest, "verification code expired", nil)
		case errors.Is(err, errorvalues.ErrOTPAttemptsExceeded):
			logger.Error("verify otp error: too many attempts")
			httputil.WriteErrorResponse(w, http.StatusTooManyRequests, "too many attempts, request a new code", nil)
		case errors.Is(err, errorvalues.ErrWrongOTP):
			logger.Error("verify otp error: wrong code")
			httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid verification code", nil)
		case errors.Is(err, errorvalues.ErrEmailTaken):
			logger.Error("verify otp error: account already verified")
			httputil.WriteErrorResponse(w, http.StatusConflict, "email already registered", nil)
		default:
			logger.Error("verify otp error: service error", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error verifying code", nil)
		}
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"purpose": purpose,
	})
	logger.Info("otp verified")
}

func (s *Server) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	var req ResetPasswordRequest
	defer r.Body.Close()
	err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req)
	if err != nil || req.Email == "" || req.NewPassword == "" {
		logger.Error("reset password error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "email and newPassword required", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	err = s.userService.ResetPassword(ctx, req.Email, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, errorvalues.ErrOTPNotValidated):
			logger.Error("reset password error: otp not validated")
			httputil.WriteErrorResponse(w, http.StatusBadRequest, "verify the reset code first", nil)
		case errors.Is(err, errorvalues.ErrMissingFields):
			logger.Error("reset password error: weak password")
			httputil.WriteErrorResponse(w, http.StatusBadRequest, "password must be at least 8 characters", nil)
		case errors.Is(err, errorvalues.ErrUserNotFound):
			logger.Error("reset password error: unknown email")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "no account for this email", nil)
		default:
			logger.Error("reset password error: service error", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error resetting password", nil)
		}
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "password updated",
	})
	logger.Info("password reset")
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	var req LoginRequest
	defer r.Body.Close()
	err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		logger.Error("login error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	user, err := s.userService.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, errorvalues.ErrWrongCredentials) {
			logger.Error("login error: wrong credentials")
			httputil.WriteErrorResponse(w, http.StatusUnauthorized, "invalid email or password", nil)
			return
		}
		logger.Error("login error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error during login", nil)
		return
	}
	token, err := s.jwtService.GenerateToken(&TokenSubject{
		Email: user.Email,
		Name:  user.Name,
	})
	if err != nil {
		logger.Error("login error: generating token error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "error creating token", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success":  true,
		"appToken": token,
		"user":     parentPayload(user),
	})
	logger.Info("successful login")
}

func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	// Tokens are stateless; the client just drops its copy
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
	})
}

func (s *Server) KidLogin(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	var req KidLoginRequest
	defer r.Body.Close()
	err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req)
	if err != nil || req.Username == "" || len(req.Code) != 4 {
		logger.Error("kid login error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "username and 4-digit code required", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	child, err := s.childrenService.Login(ctx, req.Username, req.Code)
	if err != nil {
		if errors.Is(err, errorvalues.ErrWrongCredentials) {
			logger.Error("kid login error: wrong credentials")
			httputil.WriteErrorResponse(w, http.StatusUnauthorized, "invalid kid credentials", nil)
			return
		}
		logger.Error("kid login error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error during login", nil)
		return
	}
	token, err := s.jwtService.GenerateToken(&TokenSubject{
		Email:    entity.KidEmail(child.Username),
		Name:     child.DisplayName(),
		Username: child.Username,
	})
	if err != nil {
		logger.Error("kid login error: generating token error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "error creating token", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success":  true,
		"appToken": token,
		"user": map[string]any{
			"username":  child.Username,
			"name":      child.DisplayName(),
			"nickName":  child.NickName,
			"firstName": child.FirstName,
			"avatar":    child.Avatar,
		},
	})
	logger.Info("successful kid login")
}

func (s *Server) Profile(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	principal, err := GetPrincipalFromContext(r)
	if err != nil {
		logger.Error("profile error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	if principal.IsChild() {
		child, err := s.childrenService.GetByUsername(ctx, principal.Username)
		if err != nil {
			logger.Error("profile error: service error", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error loading profile", nil)
			return
		}
		summary, err := s.workflowService.KidFinancialSummary(ctx, principal.Username)
		if err != nil {
			logger.Error("profile error: service error", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error loading profile", nil)
			return
		}
		httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
			"success": true,
			"user": map[string]any{
				"email":          principal.Email,
				"username":       child.Username,
				"name":           child.DisplayName(),
				"nickName":       child.NickName,
				"firstName":      child.FirstName,
				"lastName":       child.LastName,
				"avatar":         child.Avatar,
				"birthDate":      child.BirthDate,
				"financial_info": summary,
			},
		})
		logger.Info("kid profile provided")
		return
	}
	user, err := s.userService.GetByEmail(ctx, principal.Email)
	if err != nil {
		if errors.Is(err, errorvalues.ErrUserNotFound) {
			logger.Error("profile error: user not found")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "user not found", nil)
			return
		}
		logger.Error("profile error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error loading profile", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    parentPayload(user),
	})
	logger.Info("profile provided")
}

type UpdateProfileRequest struct {
	FirstName       *string  `json:"firstName"`
	LastName        *string  `json:"lastName"`
	PhoneNumber     *string  `json:"phoneNumber"`
	BirthDate       *string  `json:"birthDate"`
	ParentRole      *string  `json:"parentRole"`
	ChoreCategories []string `json:"choreCategories"`
}

func (s *Server) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	principal, err := GetPrincipalFromContext(r)
	if err != nil {
		logger.Error("update profile error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	if principal.IsChild() {
		logger.Error("update profile error: kid account")
		httputil.WriteErrorResponse(w, http.StatusForbidden, "only parents can edit their profile", nil)
		return
	}
	var req UpdateProfileRequest
	defer r.Body.Close()
	err = sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		logger.Error("update profile error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if req.FirstName == nil && req.LastName == nil && req.PhoneNumber == nil &&
		req.BirthDate == nil && req.ParentRole == nil && req.ChoreCategories == nil {
		logger.Error("update profile error: nothing to update")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "no valid fields to update", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	err = s.userService.UpdateProfile(ctx, principal.Email, &service.UpdateProfileRequest{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		PhoneNumber:     req.PhoneNumber,
		BirthDate:       req.BirthDate,
		ParentRole:      req.ParentRole,
		ChoreCategories: req.ChoreCategories,
	})
	if err != nil {
		if errors.Is(err, errorvalues.ErrUserNotFound) {
			logger.Error("update profile error: user not found")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "user not found", nil)
			return
		}
		logger.Error("update profile error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error updating profile", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "profile updated successfully",
	})
	logger.Info("profile updated")
}

func (s *Server) CompleteAssessment(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	principal, err := GetPrincipalFromContext(r)
	if err != nil {
		logger.Error("complete assessment error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	if principal.IsChild() {
		logger.Error("complete assessment error: kid account")
		httputil.WriteErrorResponse(w, http.StatusForbidden, "only parents can complete the assessment", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	err = s.userService.CompleteAssessment(ctx, principal.Email)
	if err != nil {
		logger.Error("complete assessment error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error updating assessment", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "assessment marked as complete",
	})
	logger.Info("assessment completed")
}

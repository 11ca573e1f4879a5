package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"

	errorvalues "github.com/aidiy/backend/internal/error_values"
	"github.com/aidiy/backend/internal/service"
	"github.com/aidiy/backend/pkg/httputil"
)

type AddChildRequest struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	NickName  string `json:"nickName"`
	Avatar    string `json:"avatar"`
	BirthDate string `json:"birthDate"`
	LoginCode string `json:"loginCode"`
}

type UpdateChildRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	NickName  *string `json:"nickName"`
	Avatar    *string `json:"avatar"`
	BirthDate *string `json:"birthDate"`
	LoginCode *string `json:"loginCode"`
	Username  *string `json:"username"`
}

func (s *Server) GetChildren(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	principal, err := GetPrincipalFromContext(r)
	if err != nil {
		logger.Error("get children error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	children, err := s.childrenService.List(ctx, principal.Email)
	if err != nil {
		logger.Error("get children error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error listing children", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success":  true,
		"children": children,
	})
	logger.Info("children provided")
}

func (s *Server) AddChild(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	principal, err := GetPrincipalFromContext(r)
	if err != nil {
		logger.Error("add child error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	if principal.IsChild() {
		logger.Error("add child error: kid account")
		httputil.WriteErrorResponse(w, http.StatusForbidden, "only parents can add children", nil)
		return
	}
	var req AddChildRequest
	defer r.Body.Close()
	err = sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		logger.Error("add child error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	child, err := s.childrenService.Add(ctx, principal.Email, &service.AddChildRequest{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		NickName:  req.NickName,
		Avatar:    req.Avatar,
		BirthDate: req.BirthDate,
		LoginCode: req.LoginCode,
	})
	if err != nil {
		switch {
		case errors.Is(err, errorvalues.ErrUsernameTaken):
			logger.Error("add child error: username taken")
			httputil.WriteErrorResponse(w, http.StatusConflict, "username already taken", nil)
		case errors.Is(err, errorvalues.ErrMissingFields):
			logger.Error("add child error: validation failed")
			httputil.WriteErrorResponse(w, http.StatusBadRequest, "missing or invalid fields", nil)
		default:
			logger.Error("add child error: service error", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error adding child", nil)
		}
		return
	}
	httputil.WriteJSONResponse(w, http.StatusCreated, map[string]any{
		"success": true,
		"child":   child,
	})
	logger.Info("child added")
}

func (s *Server) UpdateChild(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	principal, err := GetPrincipalFromContext(r)
	if err != nil {
		logger.Error("update child error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	if principal.IsChild() {
		logger.Error("update child error: kid account")
		httputil.WriteErrorResponse(w, http.StatusForbidden, "only parents can edit children", nil)
		return
	}
	username := chi.URLParam(r, "username")
	var req UpdateChildRequest
	defer r.Body.Close()
	err = sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		logger.Error("update child error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if req.FirstName == nil && req.LastName == nil && req.NickName == nil &&
		req.Avatar == nil && req.BirthDate == nil && req.LoginCode == nil && req.Username == nil {
		logger.Error("update child error: nothing to update")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "no valid fields to update", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	child, err := s.childrenService.Update(ctx, principal.Email, username, &service.UpdateChildRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		NickName:  req.NickName,
		Avatar:    req.Avatar,
		BirthDate: req.BirthDate,
		LoginCode: req.LoginCode,
		Username:  req.Username,
	})
	if err != nil {
		switch {
		case errors.Is(err, errorvalues.ErrChildNotFound):
			logger.Error("update child error: child not found")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "child not found", nil)
		case errors.Is(err, errorvalues.ErrUsernameTaken):
			logger.Error("update child error: username taken")
			httputil.WriteErrorResponse(w, http.StatusConflict, "username already taken", nil)
		default:
			logger.Error("update child error: service error", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error updating child", nil)
		}
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"child":   child,
	})
	logger.Info("child updated")
}

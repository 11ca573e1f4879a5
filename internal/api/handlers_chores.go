package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	errorvalues "github.com/aidiy/backend/internal/error_values"
	"github.com/aidiy/backend/internal/service"
	"github.com/aidiy/backend/pkg/httputil"
)

type CreateChoreRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Difficulty  string  `json:"difficulty"`
	Reward      float64 `json:"reward"`
	DueDate     string  `json:"dueDate"`
	AssignedTo  string  `json:"assignedTo"`
}

type UpdateChoreRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Difficulty  *string  `json:"difficulty"`
	Reward      *float64 `json:"reward"`
	DueDate     *string  `json:"dueDate"`
	Status      *string  `json:"status"`
	AssignedTo  *string  `json:"assignedTo"`
}

type AssignChoresRequest struct {
	GoalID   uuid.UUID   `json:"goalId"`
	ChoreIDs []uuid.UUID `json:"choreIds"`
}

func (s *Server) GetChores(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	principal, err := GetPrincipalFromContext(r)
	if err != nil {
		logger.Error("get chores error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()
	if principal.IsChild() {
		var goalID *uuid.UUID
		if raw := r.URL.Query().Get("goalId"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				logger.Error("get chores error: invalid goal id")
				httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid goalId", nil)
				return
			}
			goalID = &id
		}
		chores, err := s.choreService.ListForKid(ctx, principal.Username, goalID)
		if err != nil {
			logger.Error("get chores error: service error", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error listing chores", nil)
			return
		}
		httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
			"success": true,
			"chores":  chores,
		})
		logger.Info("kid chores provided")
		return
	}
	chores, err := s.choreService.ListForParent(ctx, principal.Email, service.ChoreListFilter{
		KidUsername: r.URL.Query().Get("kid"),
		Status:      r.URL.Query().Get("status"),
	})
	if err != nil {
		if errors.Is(err, errorvalues.ErrMissingFields) {
			logger.Error("get chores error: invalid status filter")
			httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid status filter", nil)
			return
		}
		logger.Error("get chores error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error listing chores", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"chores":  chores,
	})
	logger.Info("chores provided")
}

func (s *Server) CreateChore(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	principal, err := GetPrincipalFromContext(r)
	if err != nil {
		logger.Error("create chore error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	if principal.IsChild() {
		logger.Error("create chore error: kid account")
		httputil.WriteErrorResponse(w, http.StatusForbidden, "only parents can create chores", nil)
		return
	}
	var req CreateChoreRequest
	defer r.Body.Close()
	err = sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		logger.Error("create chore error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	chore, err := s.choreService.Create(ctx, principal.Email, &service.CreateChoreRequest{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Difficulty:  req.Difficulty,
		Reward:      req.Reward,
		DueDate:     req.DueDate,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		if errors.Is(err, errorvalues.ErrMissingFields) {
			logger.Error("create chore error: validation failed")
			httputil.WriteErrorResponse(w, http.StatusBadRequest, "missing required fields", nil)
			return
		}
		logger.Error("create chore error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error creating chore", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusCreated, map[string]any{
		"success": true,
		"chore":   chore,
	})
	logger.Info("chore created")
}

func (s *Server) UpdateChore(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	principal, err := GetPrincipalFromContext(r)
	if err != nil {
		logger.Error("update chore error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	choreID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		logger.Error("update chore error: invalid id in path value")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid chore id in path value", nil)
		return
	}
	var req UpdateChoreRequest
	defer r.Body.Close()
	err = sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		logger.Error("update chore error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	chore, err := s.choreService.Update(ctx, principal.Email, choreID, &service.UpdateChoreRequest{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Difficulty:  req.Difficulty,
		Reward:      req.Reward,
		DueDate:     req.DueDate,
		Status:      req.Status,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		switch {
		case errors.Is(err, errorvalues.ErrChoreNotFound), errors.Is(err, errorvalues.ErrNotOwner):
			logger.Error("update chore error: chore not found")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "chore not found", nil)
		case errors.Is(err, errorvalues.ErrMissingFields):
			logger.Error("update chore error: invalid status")
			httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid chore status", nil)
		default:
			logger.Error("update chore error: service error", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error updating chore", nil)
		}
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"chore":   chore,
	})
	logger.Info("chore updated")
}

func (s *Server) DeleteChore(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	principal, err := GetPrincipalFromContext(r)
	if err != nil {
		logger.Error("delete chore error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	choreID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		logger.Error("delete chore error: invalid id in path value")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid chore id in path value", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	err = s.choreService.Delete(ctx, principal.Email, choreID)
	if err != nil {
		if errors.Is(err, errorvalues.ErrChoreNotFound) {
			logger.Error("delete chore error: chore not found")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "chore not found", nil)
			return
		}
		logger.Error("delete chore error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error deleting chore", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	logger.Info("chore deleted")
}

func (s *Server) AssignChoresToGoal(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	_, err := GetPrincipalFromContext(r)
	if err != nil {
		logger.Error("assign chores error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	var req AssignChoresRequest
	defer r.Body.Close()
	err = sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req)
	if err != nil || req.GoalID == uuid.Nil || len(req.ChoreIDs) == 0 {
		logger.Error("assign chores error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "goalId and choreIds required", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	err = s.workflowService.AssignChoresToGoal(ctx, req.GoalID, req.ChoreIDs)
	if err != nil {
		switch {
		case errors.Is(err, errorvalues.ErrGoalNotFound):
			logger.Error("assign chores error: goal not found")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "goal not found", nil)
		case errors.Is(err, errorvalues.ErrGoalNotApproved):
			logger.Error("assign chores error: goal not approved")
			httputil.WriteErrorResponse(w, http.StatusConflict, "goal is not approved yet", nil)
		case errors.Is(err, errorvalues.ErrChoreNotFound):
			logger.Error("assign chores error: chore not found")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "chore not found", nil)
		default:
			logger.Error("assign chores error: service error", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error assigning chores", nil)
		}
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "chores assigned to goal",
	})
	logger.Info("chores assigned to goal")
}

func (s *Server) GetGoalChores(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	goalID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		logger.Error("get goal chores error: invalid id in path value")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid goal id in path value", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	chores, err := s.choreService.GoalChores(ctx, goalID)
	if err != nil {
		logger.Error("get goal chores error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error listing goal chores", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"chores":  chores,
	})
	logger.Info("goal chores provided")
}

func (s *Server) ChildrenChores(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	principal, err := GetPrincipalFromContext(r)
	if err != nil {
		logger.Error("children chores error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	if principal.IsChild() {
		logger.Error("children chores error: kid account")
		httputil.WriteErrorResponse(w, http.StatusForbidden, "parents only", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()
	views, err := s.choreService.ChildrenChores(ctx, principal.Email)
	if err != nil {
		logger.Error("children chores error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error building dashboard", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success":  true,
		"children": views,
	})
	logger.Info("children chores provided")
}

func (s *Server) ChoreRecommendations(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	principal, err := GetPrincipalFromContext(r)
	if err != nil {
		logger.Error("chore recommendations error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	if !s.aiService.Available() {
		httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
			"success":         true,
			"recommendations": []service.ChoreIdea{},
		})
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()
	ideas, err := s.aiService.RecommendChores(ctx, principal.Email)
	if err != nil {
		logger.Error("chore recommendations error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "could not generate recommendations", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success":         true,
		"recommendations": ideas,
	})
	logger.Info("chore recommendations provided")
}

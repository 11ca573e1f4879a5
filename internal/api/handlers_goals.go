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

type CreateGoalRequest struct {
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Duration    int     `json:"duration"`
}

type SubmitProgressRequest struct {
	GoalID      uuid.UUID   `json:"goalId"`
	ChoreIDs    []uuid.UUID `json:"completedChoreIds"`
	TotalEarned float64     `json:"totalEarned"`
}

// GetGoals returns the authenticated kid's goals.
func (s *Server) GetGoals(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	principal, err := GetPrincipalFromContext(r)
	if err != nil {
		logger.Error("get goals error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	if !principal.IsChild() {
		logger.Error("get goals error: not a kid account")
		httputil.WriteErrorResponse(w, http.StatusForbidden, "kid account required", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	goals, err := s.workflowService.KidGoals(ctx, principal.Username)
	if err != nil {
		logger.Error("get goals error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error listing goals", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"goals":   goals,
	})
	logger.Info("goals provided")
}

func (s *Server) CreateGoal(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	principal, err := GetPrincipalFromContext(r)
	if err != nil {
		logger.Error("create goal error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	var req CreateGoalRequest
	defer r.Body.Close()
	err = sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		logger.Error("create goal error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	goal, err := s.workflowService.ProposeGoal(ctx, principal, &service.ProposeGoalRequest{
		Title:       req.Title,
		Category:    req.Category,
		Description: req.Description,
		Amount:      req.Amount,
		Duration:    req.Duration,
	})
	if err != nil {
		switch {
		case errors.Is(err, errorvalues.ErrOnlyKids):
			logger.Error("create goal error: not a kid account")
			httputil.WriteErrorResponse(w, http.StatusForbidden, "only kids can create goals", nil)
		case errors.Is(err, errorvalues.ErrMissingFields):
			logger.Error("create goal error: validation failed")
			httputil.WriteErrorResponse(w, http.StatusBadRequest, "missing or invalid fields", nil)
		case errors.Is(err, errorvalues.ErrChildNotFound):
			logger.Error("create goal error: child not found")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "child not found", nil)
		default:
			logger.Error("create goal error: service error", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error creating goal", nil)
		}
		return
	}
	httputil.WriteJSONResponse(w, http.StatusCreated, map[string]any{
		"success": true,
		"goal":    goal,
	})
	logger.Info("goal proposed")
}

func (s *Server) ApproveGoal(w http.ResponseWriter, r *http.Request) {
	s.resolveGoal(w, r, true)
}

func (s *Server) DeclineGoal(w http.ResponseWriter, r *http.Request) {
	s.resolveGoal(w, r, false)
}

func (s *Server) resolveGoal(w http.ResponseWriter, r *http.Request, approve bool) {
	logger := GetLoggerFromCtx(r.Context())
	principal, err := GetPrincipalFromContext(r)
	if err != nil {
		logger.Error("resolve goal error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	goalID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		logger.Error("resolve goal error: invalid id in path value")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid goal id in path value", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	if approve {
		err = s.workflowService.ApproveGoal(ctx, principal, goalID)
	} else {
		err = s.workflowService.DeclineGoal(ctx, principal, goalID)
	}
	if err != nil {
		switch {
		case errors.Is(err, errorvalues.ErrGoalNotFound):
			logger.Error("resolve goal error: goal not found")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "goal not found", nil)
		case errors.Is(err, errorvalues.ErrNotOwner):
			logger.Error("resolve goal error: not the goal's parent")
			httputil.WriteErrorResponse(w, http.StatusForbidden, "unauthorized", nil)
		default:
			logger.Error("resolve goal error: service error", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error resolving goal", nil)
		}
		return
	}
	message := "goal approved"
	if !approve {
		message = "goal declined"
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
	})
	logger.Info(message)
}

func (s *Server) GetParentGoals(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	principal, err := GetPrincipalFromContext(r)
	if err != nil {
		logger.Error("parent goals error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	if principal.IsChild() {
		logger.Error("parent goals error: kid account")
		httputil.WriteErrorResponse(w, http.StatusForbidden, "parents only", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	goals, err := s.workflowService.ParentGoals(ctx, principal.Email)
	if err != nil {
		logger.Error("parent goals error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error listing goals", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"goals":   goals,
	})
	logger.Info("parent goals provided")
}

func (s *Server) ChildrenProgress(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	principal, err := GetPrincipalFromContext(r)
	if err != nil {
		logger.Error("children progress error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	if principal.IsChild() {
		logger.Error("children progress error: kid account")
		httputil.WriteErrorResponse(w, http.StatusForbidden, "parents only", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()
	views, err := s.workflowService.ChildrenProgress(ctx, principal.Email)
	if err != nil {
		logger.Error("children progress error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error building dashboard", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success":  true,
		"children": views,
	})
	logger.Info("children progress provided")
}

func (s *Server) SubmitProgress(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	principal, err := GetPrincipalFromContext(r)
	if err != nil {
		logger.Error("submit progress error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	var req SubmitProgressRequest
	defer r.Body.Close()
	err = sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		logger.Error("submit progress error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()
	sub, err := s.workflowService.SubmitProgress(ctx, principal, &service.SubmitProgressRequest{
		GoalID:      req.GoalID,
		ChoreIDs:    req.ChoreIDs,
		TotalEarned: req.TotalEarned,
	})
	if err != nil {
		switch {
		case errors.Is(err, errorvalues.ErrOnlyKids):
			logger.Error("submit progress error: not a kid account")
			httputil.WriteErrorResponse(w, http.StatusForbidden, "only kids can submit progress", nil)
		case errors.Is(err, errorvalues.ErrMissingFields):
			logger.Error("submit progress error: missing data")
			httputil.WriteErrorResponse(w, http.StatusBadRequest, "goalId and completedChoreIds required", nil)
		case errors.Is(err, errorvalues.ErrGoalNotFound):
			logger.Error("submit progress error: goal not found")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "goal not found", nil)
		case errors.Is(err, errorvalues.ErrNotOwner):
			logger.Error("submit progress error: goal belongs to another kid")
			httputil.WriteErrorResponse(w, http.StatusForbidden, "unauthorized", nil)
		case errors.Is(err, errorvalues.ErrGoalNotApproved):
			logger.Error("submit progress error: goal not approved")
			httputil.WriteErrorResponse(w, http.StatusConflict, "goal is not approved yet", nil)
		case errors.Is(err, errorvalues.ErrChoreNotFound):
			logger.Error("submit progress error: no eligible chores")
			httputil.WriteErrorResponse(w, http.StatusBadRequest, "no eligible chores in submission", nil)
		default:
			logger.Error("submit progress error: service error", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error submitting progress", nil)
		}
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       "progress submitted to parents for approval",
		"submission_id": sub.ID,
	})
	logger.Info("progress submitted")
}

func (s *Server) ApproveSubmission(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	principal, err := GetPrincipalFromContext(r)
	if err != nil {
		logger.Error("approve submission error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	submissionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		logger.Error("approve submission error: invalid id in path value")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid submission id in path value", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()
	result, err := s.workflowService.ApproveSubmission(ctx, principal, submissionID)
	if err != nil {
		switch {
		case errors.Is(err, errorvalues.ErrSubmissionNotFound):
			logger.Error("approve submission error: submission not found or already resolved")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "submission not found", nil)
		case errors.Is(err, errorvalues.ErrNotOwner):
			logger.Error("approve submission error: not the submission's parent")
			httputil.WriteErrorResponse(w, http.StatusForbidden, "unauthorized", nil)
		case errors.Is(err, errorvalues.ErrGoalNotFound):
			logger.Error("approve submission error: goal not found")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "goal not found", nil)
		default:
			logger.Error("approve submission error: service error", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error approving submission", nil)
		}
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success":               true,
		"message":               "progress approved",
		"new_saved":             result.NewSaved,
		"new_progress":          result.NewProgress,
		"goal_completed":        result.GoalCompleted,
		"archived_chores_count": result.ArchivedCount,
	})
	logger.Info("submission approved")
}

func (s *Server) DeclineSubmission(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	principal, err := GetPrincipalFromContext(r)
	if err != nil {
		logger.Error("decline submission error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	submissionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		logger.Error("decline submission error: invalid id in path value")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid submission id in path value", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()
	result, err := s.workflowService.DeclineSubmission(ctx, principal, submissionID)
	if err != nil {
		switch {
		case errors.Is(err, errorvalues.ErrSubmissionNotFound):
			logger.Error("decline submission error: submission not found or already resolved")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "submission not found", nil)
		case errors.Is(err, errorvalues.ErrNotOwner):
			logger.Error("decline submission error: not the submission's parent")
			httputil.WriteErrorResponse(w, http.StatusForbidden, "unauthorized", nil)
		case errors.Is(err, errorvalues.ErrGoalNotFound):
			logger.Error("decline submission error: goal not found")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "goal not found", nil)
		default:
			logger.Error("decline submission error: service error", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error declining submission", nil)
		}
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success":          true,
		"message":          "progress declined, chores reassigned",
		"reassigned_count": result.ReassignedCount,
		"kid_id":           result.KidUsername,
		"goal_id":          result.GoalID,
	})
	logger.Info("submission declined")
}

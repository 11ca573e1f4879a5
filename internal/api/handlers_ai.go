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

type AIChatRequest struct {
	Message   string     `json:"message"`
	Image     string     `json:"image"`
	SessionID *uuid.UUID `json:"session_id"`
}

type RenameSessionRequest struct {
	Title string `json:"title"`
}

const maxAudioUpload = 25 << 20

func (s *Server) AIChat(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	principal, err := GetPrincipalFromContext(r)
	if err != nil {
		logger.Error("ai chat error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	var req AIChatRequest
	defer r.Body.Close()
	err = sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		logger.Error("ai chat error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*60)
	defer cancel()
	result, err := s.aiService.Chat(ctx, principal.Email, &service.ChatRequest{
		Message:     req.Message,
		ImageBase64: req.Image,
		SessionID:   req.SessionID,
	})
	if err != nil {
		switch {
		case errors.Is(err, errorvalues.ErrMissingFields):
			logger.Error("ai chat error: empty message")
			httputil.WriteErrorResponse(w, http.StatusBadRequest, "message or image required", nil)
		case errors.Is(err, errorvalues.ErrSessionNotFound):
			logger.Error("ai chat error: session not found")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "session not found", nil)
		default:
			logger.Error("ai chat error: service error", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusInternalServerError, "failed to process ai request", nil)
		}
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success":    true,
		"response":   result.Response,
		"session_id": result.SessionID,
	})
	logger.Info("ai chat answered")
}

func (s *Server) SpeechToText(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	_, err := GetPrincipalFromContext(r)
	if err != nil {
		logger.Error("speech to text error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	if err = r.ParseMultipartForm(maxAudioUpload); err != nil {
		logger.Error("speech to text error: invalid form")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "no audio file provided", nil)
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		logger.Error("speech to text error: no audio file")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "no audio file provided", nil)
		return
	}
	defer file.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*60)
	defer cancel()
	text, err := s.aiService.Transcribe(ctx, header.Filename, file)
	if err != nil {
		logger.Error("speech to text error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "failed to process audio", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"text":    text,
	})
	logger.Info("audio transcribed")
}

func (s *Server) CreateChatSession(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	principal, err := GetPrincipalFromContext(r)
	if err != nil {
		logger.Error("create chat session error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	id, err := s.aiService.CreateSession(ctx, principal.Email)
	if err != nil {
		logger.Error("create chat session error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error creating session", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusCreated, map[string]any{
		"success":    true,
		"session_id": id,
	})
	logger.Info("chat session created")
}

func (s *Server) GetChatSessions(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	principal, err := GetPrincipalFromContext(r)
	if err != nil {
		logger.Error("get chat sessions error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	sessions, err := s.aiService.ListSessions(ctx, principal.Email)
	if err != nil {
		logger.Error("get chat sessions error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error listing sessions", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success":  true,
		"sessions": sessions,
	})
	logger.Info("chat sessions provided")
}

func (s *Server) GetChatSession(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	principal, err := GetPrincipalFromContext(r)
	if err != nil {
		logger.Error("get chat session error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		logger.Error("get chat session error: invalid id in path value")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid session id in path value", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	session, err := s.aiService.GetSession(ctx, principal.Email, id)
	if err != nil {
		if errors.Is(err, errorvalues.ErrSessionNotFound) {
			logger.Error("get chat session error: session not found")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "session not found", nil)
			return
		}
		logger.Error("get chat session error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error loading session", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"session": session,
	})
	logger.Info("chat session provided")
}

func (s *Server) RenameChatSession(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	principal, err := GetPrincipalFromContext(r)
	if err != nil {
		logger.Error("rename chat session error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		logger.Error("rename chat session error: invalid id in path value")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid session id in path value", nil)
		return
	}
	var req RenameSessionRequest
	defer r.Body.Close()
	err = sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req)
	if err != nil || req.Title == "" {
		logger.Error("rename chat session error: title required")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "title required", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	err = s.aiService.RenameSession(ctx, principal.Email, id, req.Title)
	if err != nil {
		if errors.Is(err, errorvalues.ErrSessionNotFound) {
			logger.Error("rename chat session error: session not found")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "session not found", nil)
			return
		}
		logger.Error("rename chat session error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error renaming session", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
	})
	logger.Info("chat session renamed")
}

func (s *Server) DeleteChatSession(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	principal, err := GetPrincipalFromContext(r)
	if err != nil {
		logger.Error("delete chat session error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		logger.Error("delete chat session error: invalid id in path value")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid session id in path value", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	err = s.aiService.DeleteSession(ctx, principal.Email, id)
	if err != nil {
		if errors.Is(err, errorvalues.ErrSessionNotFound) {
			logger.Error("delete chat session error: session not found")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "session not found", nil)
			return
		}
		logger.Error("delete chat session error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error deleting session", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
	})
	logger.Info("chat session deleted")
}

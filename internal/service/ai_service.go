package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	errorvalues "github.com/aidiy/backend/internal/error_values"
	"github.com/aidiy/backend/internal/repository"
	"github.com/aidiy/backend/pkg/entity"
	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "You are a helpful financial coach for families. " +
	"You help parents teach kids about saving, goals and the value of chores. " +
	"Keep answers short, friendly and age-appropriate."

const recommendationSystemPrompt = "You are a helpful assistant who generates chore ideas for kids. " +
	"Respond only with a JSON array of objects, each containing a 'title' and 'description'. " +
	"Do NOT include code blocks, markdown, or any explanation."

// OpenAIClient is the slice of the OpenAI client the service needs.
// *openai.Client satisfies it.
type OpenAIClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// AIService backs the family assistant: chat with session history,
// voice transcription and chore idea generation. A nil client disables
// every operation instead of failing halfway.
type AIService struct {
	client       OpenAIClient
	sessionsRepo repository.ChatSessionsRepositoryI
	usersRepo    repository.UsersRepositoryI
}

func NewAIService(client OpenAIClient, sessionsRepo repository.ChatSessionsRepositoryI, usersRepo repository.UsersRepositoryI) *AIService {
	return &AIService{
		client:       client,
		sessionsRepo: sessionsRepo,
		usersRepo:    usersRepo,
	}
}

func (as *AIService) Available() bool {
	return as.client != nil
}

func chatTitle(message string) string {
	if message == "" {
		return "New Chat"
	}
	snippet := message
	if runes := []rune(snippet); len(runes) > 30 {
		snippet = string(runes[:30]) + "..."
	}
	return "Chat: " + snippet
}

// Chat sends the user message to the model and records both sides of
// the exchange in the session. Without a session id a new session is
// created; a session's first message also sets its title.
func (as *AIService) Chat(ctx context.Context, userEmail string, req *ChatRequest) (*ChatResult, error) {
	if !as.Available() {
		return nil, errors.New("ai assistant is not configured")
	}
	if req.Message == "" && req.ImageBase64 == "" {
		return nil, errorvalues.ErrMissingFields
	}

	userMessage := openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Message,
	}
	model := openai.GPT3Dot5Turbo
	if req.ImageBase64 != "" {
		model = openai.GPT4o
		userMessage = openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: req.Message},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL: "data:image/jpeg;base64," + req.ImageBase64,
				}},
			},
		}
	}
	resp, err := as.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			userMessage,
		},
		MaxTokens:   500,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, errors.New("chat completion error: " + err.Error())
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion error: empty response")
	}
	answer := resp.Choices[0].Message.Content

	now := time.Now().UTC()
	msgs := []entity.ChatMessage{
		{Role: "user", Content: req.Message, Image: req.ImageBase64, Timestamp: now},
		{Role: "assistant", Content: answer, Timestamp: now},
	}
	sessionID := uuid.Nil
	if req.SessionID == nil {
		id, err := as.sessionsRepo.Create(ctx, &entity.ChatSession{
			UserEmail: userEmail,
			Title:     chatTitle(req.Message),
			Messages:  msgs,
		})
		if err != nil {
			return nil, errors.New("repository creating error: " + err.Error())
		}
		sessionID = id
	} else {
		sessionID = *req.SessionID
		session, err := as.sessionsRepo.GetByID(ctx, sessionID, userEmail)
		if err != nil {
			if errors.Is(err, errorvalues.ErrSessionNotFound) {
				return nil, errorvalues.ErrSessionNotFound
			}
			return nil, errors.New("repository searching error: " + err.Error())
		}
		// The first exchange names the session
		title := ""
		if len(session.Messages) == 0 {
			title = chatTitle(req.Message)
		}
		if err := as.sessionsRepo.AppendMessages(ctx, sessionID, title, msgs); err != nil {
			return nil, errors.New("repository updating error: " + err.Error())
		}
	}
	return &ChatResult{
		Response:  answer,
		SessionID: sessionID,
	}, nil
}

// Transcribe runs the audio through Whisper. The filename matters: the
// model infers the container format from its extension.
func (as *AIService) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	if !as.Available() {
		return "", errors.New("ai assistant is not configured")
	}
	resp, err := as.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: filename,
		Reader:   audio,
		Language: "en",
	})
	if err != nil {
		return "", errors.New("transcription error: " + err.Error())
	}
	return resp.Text, nil
}

// RecommendChores asks the model for chore ideas restricted to the
// parent's saved categories. No categories means no call and an empty
// list.
func (as *AIService) RecommendChores(ctx context.Context, parentEmail string) ([]ChoreIdea, error) {
	if !as.Available() {
		return nil, errors.New("ai assistant is not configured")
	}
	user, err := as.usersRepo.FindByEmail(ctx, parentEmail)
	if err != nil {
		if errors.Is(err, errorvalues.ErrUserNotFound) {
			return nil, errorvalues.ErrUserNotFound
		}
		return nil, errors.New("repository searching error: " + err.Error())
	}
	if len(user.ChoreCategories) == 0 {
		return []ChoreIdea{}, nil
	}
	prompt := "Generate 5 age-appropriate chores for kids in the following categories only: " +
		strings.Join(user.ChoreCategories, ", ") +
		". Respond only with a JSON array of objects with a 'title' and 'description'. " +
		"Do NOT include code blocks, markdown, or any explanation."
	resp, err := as.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT4o,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: recommendationSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   300,
		Temperature: 0.8,
	})
	if err != nil {
		return nil, errors.New("chat completion error: " + err.Error())
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion error: empty response")
	}
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	// Models occasionally wrap the array in a code fence anyway
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	var ideas []ChoreIdea
	if err = sonic.Unmarshal([]byte(strings.TrimSpace(raw)), &ideas); err != nil {
		return nil, errors.New("parsing recommendations error: " + err.Error())
	}
	return ideas, nil
}

func (as *AIService) CreateSession(ctx context.Context, userEmail string) (uuid.UUID, error) {
	id, err := as.sessionsRepo.Create(ctx, &entity.ChatSession{
		UserEmail: userEmail,
		Title:     "New Chat",
	})
	if err != nil {
		return uuid.Nil, errors.New("repository creating error: " + err.Error())
	}
	return id, nil
}

func (as *AIService) ListSessions(ctx context.Context, userEmail string) ([]*entity.ChatSession, error) {
	sessions, err := as.sessionsRepo.ListByUser(ctx, userEmail, 20)
	if err != nil {
		return nil, errors.New("repository listing error: " + err.Error())
	}
	return sessions, nil
}

func (as *AIService) GetSession(ctx context.Context, userEmail string, id uuid.UUID) (*entity.ChatSession, error) {
	session, err := as.sessionsRepo.GetByID(ctx, id, userEmail)
	if err != nil {
		if errors.Is(err, errorvalues.ErrSessionNotFound) {
			return nil, errorvalues.ErrSessionNotFound
		}
		return nil, errors.New("repository searching error: " + err.Error())
	}
	return session, nil
}

func (as *AIService) RenameSession(ctx context.Context, userEmail string, id uuid.UUID, title string) error {
	if title == "" {
		return errorvalues.ErrMissingFields
	}
	err := as.sessionsRepo.Rename(ctx, id, userEmail, title)
	if err != nil {
		if errors.Is(err, errorvalues.ErrSessionNotFound) {
			return errorvalues.ErrSessionNotFound
		}
		return errors.New("repository updating error: " + err.Error())
	}
	return nil
}

func (as *AIService) DeleteSession(ctx context.Context, userEmail string, id uuid.UUID) error {
	err := as.sessionsRepo.Delete(ctx, id, userEmail)
	if err != nil {
		if errors.Is(err, errorvalues.ErrSessionNotFound) {
			return errorvalues.ErrSessionNotFound
		}
		return errors.New("repository deleting error: " + err.Error())
	}
	return nil
}

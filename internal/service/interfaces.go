package service

import (
	"context"
	"io"

	"github.com/aidiy/backend/pkg/entity"
	"github.com/google/uuid"
)

type RegisterRequest struct {
	FirstName   string `validate:"required,max=100"`
	LastName    string `validate:"required,max=100"`
	Email       string `validate:"required,email,max=255"`
	Password    string `validate:"required,min=8,max=72"`
	PhoneNumber string `validate:"omitempty,max=30"`
}

type UpdateProfileRequest struct {
	FirstName       *string
	LastName        *string
	PhoneNumber     *string
	BirthDate       *string
	ParentRole      *string
	ChoreCategories []string
}

type UserServiceI interface {
	// Validates and stores a registration pending OTP verification
	Register(ctx context.Context, req *RegisterRequest) error
	// Issues an OTP for verification or password reset depending on where
	// the email is found. Returns the purpose chosen.
	SendOTP(ctx context.Context, email string) (entity.OTPPurpose, error)
	// Checks the code and either promotes the pending registration or
	// validates a reset OTP. Returns the purpose served.
	VerifyOTP(ctx context.Context, email, code string) (entity.OTPPurpose, error)
	ResetPassword(ctx context.Context, email, newPassword string) error
	// Compares credentials. On success gives back the verified user.
	Login(ctx context.Context, email, password string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	UpdateProfile(ctx context.Context, email string, req *UpdateProfileRequest) error
	CompleteAssessment(ctx context.Context, email string) error
}

type AddChildRequest struct {
	Username  string `validate:"required,alphanum_underscore,min=3,max=100"`
	FirstName string `validate:"required,max=100"`
	LastName  string `validate:"required,max=100"`
	BirthDate string `validate:"required"`
	LoginCode string `validate:"required,len=4,number"`
	NickName  string `validate:"omitempty,max=100"`
	Avatar    string
}

type UpdateChildRequest struct {
	FirstName *string
	LastName  *string
	NickName  *string
	Avatar    *string
	BirthDate *string
	LoginCode *string
	Username  *string
}

type ChildrenServiceI interface {
	List(ctx context.Context, parentEmail string) ([]*entity.Child, error)
	Add(ctx context.Context, parentEmail string, req *AddChildRequest) (*entity.Child, error)
	Update(ctx context.Context, parentEmail, username string, req *UpdateChildRequest) (*entity.Child, error)
	// Kid login: username plus 4-digit code
	Login(ctx context.Context, username, loginCode string) (*entity.Child, error)
	GetByUsername(ctx context.Context, username string) (*entity.Child, error)
}

type CreateChoreRequest struct {
	Title       string  `validate:"required,max=200"`
	Description string  `validate:"required,max=2000"`
	Category    string  `validate:"required,max=100"`
	Difficulty  string  `validate:"required,max=50"`
	Reward      float64 `validate:"gte=0"`
	DueDate     string  `validate:"required"`
	AssignedTo  string  `validate:"omitempty,max=100"`
}

type UpdateChoreRequest struct {
	Title       *string
	Description *string
	Category    *string
	Difficulty  *string
	Reward      *float64
	DueDate     *string
	Status      *string
	AssignedTo  *string
}

// ChoreListFilter narrows chore listings per caller role: parents filter by
// kid and status, kids by goal.
type ChoreListFilter struct {
	KidUsername string
	Status      string
	GoalID      *uuid.UUID
}

// ChildChores is the parent dashboard view of one kid's chores.
type ChildChores struct {
	Child          *entity.Child   `json:"child"`
	AssignedChores []*entity.Chore `json:"assigned_chores"`
	ChoresDone     int             `json:"chores_completed"`
	ChoresPending  int             `json:"chores_pending"`
	TotalEarned    float64         `json:"total_earned"`
}

type ChoreServiceI interface {
	Create(ctx context.Context, parentEmail string, req *CreateChoreRequest) (*entity.Chore, error)
	Update(ctx context.Context, parentEmail string, choreID uuid.UUID, req *UpdateChoreRequest) (*entity.Chore, error)
	// Hard delete; also detaches the chore from any goal referencing it
	Delete(ctx context.Context, parentEmail string, choreID uuid.UUID) error
	ListForParent(ctx context.Context, parentEmail string, filter ChoreListFilter) ([]*entity.Chore, error)
	ListForKid(ctx context.Context, kidUsername string, goalID *uuid.UUID) ([]*entity.Chore, error)
	// Chores of a goal that a kid can still work on
	GoalChores(ctx context.Context, goalID uuid.UUID) ([]*entity.Chore, error)
	ChildrenChores(ctx context.Context, parentEmail string) ([]*ChildChores, error)
}

type ProposeGoalRequest struct {
	Title       string  `validate:"required,max=200"`
	Category    string  `validate:"omitempty,max=100"`
	Description string  `validate:"omitempty,max=2000"`
	Amount      float64 `validate:"gt=0"`
	Duration    int     `validate:"omitempty,gte=0"`
}

type SubmitProgressRequest struct {
	GoalID   uuid.UUID
	ChoreIDs []uuid.UUID
	// Client-claimed total. Never trusted: earnings are recomputed from
	// the stored chore rewards.
	TotalEarned float64
}

// ApproveResult reports what an approved submission changed.
type ApproveResult struct {
	NewSaved      float64 `json:"new_saved"`
	NewProgress   float64 `json:"new_progress"`
	GoalCompleted bool    `json:"goal_completed"`
	ArchivedCount int     `json:"archived_chores_count"`
}

// DeclineResult reports what a declined submission reassigned.
type DeclineResult struct {
	ReassignedCount int       `json:"reassigned_count"`
	KidUsername     string    `json:"kid_id"`
	GoalID          uuid.UUID `json:"goal_id"`
}

// ChildProgress is the parent dashboard view of one kid's goals.
type ChildProgress struct {
	Child          *entity.Child  `json:"child"`
	Goals          []*entity.Goal `json:"goals"`
	CompletedGoals int            `json:"completed_goals"`
	ActiveGoals    int            `json:"active_goals"`
	TotalSaved     float64        `json:"total_saved"`
}

// FinancialSummary augments a kid's profile with savings totals.
type FinancialSummary struct {
	TotalSavings   float64 `json:"total_savings"`
	TotalGoals     int     `json:"total_goals"`
	ActiveGoals    int     `json:"active_goals"`
	CompletedGoals int     `json:"completed_goals"`
}

type WorkflowServiceI interface {
	// Goal proposal state machine
	ProposeGoal(ctx context.Context, principal entity.Principal, req *ProposeGoalRequest) (*entity.Goal, error)
	ApproveGoal(ctx context.Context, principal entity.Principal, goalID uuid.UUID) error
	DeclineGoal(ctx context.Context, principal entity.Principal, goalID uuid.UUID) error
	// Chore assignment and progress submission
	AssignChoresToGoal(ctx context.Context, goalID uuid.UUID, choreIDs []uuid.UUID) error
	SubmitProgress(ctx context.Context, principal entity.Principal, req *SubmitProgressRequest) (*entity.PendingSubmission, error)
	ApproveSubmission(ctx context.Context, principal entity.Principal, submissionID uuid.UUID) (*ApproveResult, error)
	DeclineSubmission(ctx context.Context, principal entity.Principal, submissionID uuid.UUID) (*DeclineResult, error)
	// Views
	KidGoals(ctx context.Context, kidUsername string) ([]*entity.Goal, error)
	ParentGoals(ctx context.Context, parentEmail string) ([]*entity.Goal, error)
	ChildrenProgress(ctx context.Context, parentEmail string) ([]*ChildProgress, error)
	KidFinancialSummary(ctx context.Context, kidUsername string) (*FinancialSummary, error)
}

// NotificationFeed is the recent slice of a recipient's outbox plus the
// unread total across all of it.
type NotificationFeed struct {
	Notifications []*entity.Notification `json:"notifications"`
	UnreadCount   int                    `json:"unread_count"`
}

type NotificationServiceI interface {
	Feed(ctx context.Context, recipientEmail string) (*NotificationFeed, error)
	MarkRead(ctx context.Context, recipientEmail string, id uuid.UUID) error
	MarkAllRead(ctx context.Context, recipientEmail string) (int64, error)
	UnreadCount(ctx context.Context, recipientEmail string) (int, error)
}

type ChatRequest struct {
	Message     string
	ImageBase64 string
	SessionID   *uuid.UUID
}

type ChatResult struct {
	Response  string    `json:"response"`
	SessionID uuid.UUID `json:"session_id"`
}

// ChoreIdea is one AI-suggested chore.
type ChoreIdea struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type AIServiceI interface {
	Chat(ctx context.Context, userEmail string, req *ChatRequest) (*ChatResult, error)
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
	RecommendChores(ctx context.Context, parentEmail string) ([]ChoreIdea, error)
	CreateSession(ctx context.Context, userEmail string) (uuid.UUID, error)
	ListSessions(ctx context.Context, userEmail string) ([]*entity.ChatSession, error)
	GetSession(ctx context.Context, userEmail string, id uuid.UUID) (*entity.ChatSession, error)
	RenameSession(ctx context.Context, userEmail string, id uuid.UUID, title string) error
	DeleteSession(ctx context.Context, userEmail string, id uuid.UUID) error
	Available() bool
}

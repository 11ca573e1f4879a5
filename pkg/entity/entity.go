package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// KidDomain marks child identities: a kid's subject email is
// "<username>@kids.aidiy" and never exists in the users table.
const KidDomain = "kids.aidiy"

type Role string

const (
	RoleParent Role = "parent"
	RoleChild  Role = "child"
)

// Principal is the authenticated identity resolved by the auth middleware.
type Principal struct {
	Email    string
	Name     string
	Username string
	Role     Role
}

func (p Principal) IsChild() bool {
	return p.Role == RoleChild
}

// RoleForEmail classifies an identity by the reserved kid domain marker.
func RoleForEmail(email string) Role {
	if strings.HasSuffix(email, "@"+KidDomain) {
		return RoleChild
	}
	return RoleParent
}

// KidUsername extracts the registry username from a kid identity email.
func KidUsername(email string) string {
	username, _, _ := strings.Cut(email, "@")
	return username
}

// KidEmail builds the reserved-domain identity for a registry username.
func KidEmail(username string) string {
	return username + "@" + KidDomain
}

type User struct {
	ID                     uuid.UUID
	Email                  string
	FirstName              string
	LastName               string
	Name                   string
	PhoneNumber            string
	BirthDate              string
	PasswordHash           string
	ParentRole             string
	ChoreCategories        []string
	IsVerified             bool
	IsProfileComplete      bool
	HasCompletedAssessment bool
	CreatedAt              time.Time
}

// PendingUser is a registration awaiting OTP verification.
type PendingUser struct {
	Email        string
	FirstName    string
	LastName     string
	Name         string
	PhoneNumber  string
	PasswordHash string
	CreatedAt    time.Time
}

type OTPPurpose string

const (
	OTPPurposeVerify OTPPurpose = "verify"
	OTPPurposeReset  OTPPurpose = "reset"
)

type OTP struct {
	Email     string
	Code      string
	Purpose   OTPPurpose
	ExpiresAt time.Time
	Attempts  int
	Validated bool
}

type Child struct {
	ID               uuid.UUID `json:"id"`
	ParentEmail      string    `json:"parent_email"`
	Username         string    `json:"username"`
	FirstName        string    `json:"firstName"`
	LastName         string    `json:"lastName"`
	NickName         string    `json:"nickName"`
	Avatar           string    `json:"avatar"`
	BirthDate        string    `json:"birthDate"`
	LoginCode        string    `json:"loginCode"`
	MoneyAccumulated float64   `json:"moneyAccumulated"`
	TasksAssigned    int       `json:"tasksAssigned"`
	TasksCompleted   int       `json:"tasksCompleted"`
	CreatedAt        time.Time `json:"created_at"`
}

// DisplayName is the name kids see on their own dashboards.
func (c *Child) DisplayName() string {
	if c.NickName != "" {
		return c.NickName
	}
	return c.FirstName
}

// ChoreStatus values keep the original wire casing; legacy display values
// are folded into the canonical set by ChoreStatusFromWire.
type ChoreStatus string

const (
	ChoreStatusPending         ChoreStatus = "Pending"
	ChoreStatusAssigned        ChoreStatus = "Assigned"
	ChoreStatusPendingApproval ChoreStatus = "pending_approval"
	ChoreStatusArchived        ChoreStatus = "archived"
)

// ChoreStatusFromWire normalizes external status strings, treating the
// legacy "completed"/"in_progress" display values as Assigned.
func ChoreStatusFromWire(s string) (ChoreStatus, bool) {
	switch s {
	case string(ChoreStatusPending), "pending":
		return ChoreStatusPending, true
	case string(ChoreStatusAssigned), "assigned", "completed", "in_progress":
		return ChoreStatusAssigned, true
	case string(ChoreStatusPendingApproval):
		return ChoreStatusPendingApproval, true
	case string(ChoreStatusArchived):
		return ChoreStatusArchived, true
	}
	return "", false
}

type Chore struct {
	ID             uuid.UUID   `json:"id"`
	ParentEmail    string      `json:"parent_email"`
	KidUsername    string      `json:"kid_username,omitempty"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Category       string      `json:"category"`
	Difficulty     string      `json:"difficulty"`
	Reward         float64     `json:"reward"`
	Status         ChoreStatus `json:"status"`
	DueDate        string      `json:"dueDate"`
	AssignedGoalID *uuid.UUID  `json:"assigned_goal_id,omitempty"`
	SubmittedAt    *time.Time  `json:"submitted_at,omitempty"`
	ArchivedAt     *time.Time  `json:"archived_at,omitempty"`
	ApprovedBy     string      `json:"approved_by,omitempty"`
	DeclinedAt     *time.Time  `json:"declined_at,omitempty"`
	DeclinedBy     string      `json:"declined_by,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

type GoalStatus string

const (
	GoalStatusPendingApproval GoalStatus = "pending_approval"
	GoalStatusApproved        GoalStatus = "approved"
	GoalStatusDeclined        GoalStatus = "declined"
	GoalStatusCompleted       GoalStatus = "completed"
)

// ProgressEntry is one approved submission in a goal's audit trail.
type ProgressEntry struct {
	Date       time.Time   `json:"date"`
	Amount     float64     `json:"amount"`
	ApprovedBy string      `json:"approved_by"`
	ChoreIDs   []uuid.UUID `json:"chore_ids"`
}

type Goal struct {
	ID                 uuid.UUID       `json:"id"`
	KidUsername        string          `json:"kid_username"`
	KidName            string          `json:"kid_name"`
	KidAvatar          string          `json:"kid_avatar"`
	ParentEmail        string          `json:"parent_email"`
	Title              string          `json:"title"`
	Category           string          `json:"category"`
	Description        string          `json:"description"`
	TargetAmount       float64         `json:"amount"`
	SavedAmount        float64         `json:"saved"`
	Progress           float64         `json:"progress"`
	DurationWeeks      int             `json:"duration"`
	Status             GoalStatus      `json:"status"`
	AssignedChoreIDs   []uuid.UUID     `json:"assigned_chore_ids"`
	HasLaunchedMission bool            `json:"has_launched_mission"`
	ProgressHistory    []ProgressEntry `json:"progress_history"`
	CreatedAt          time.Time       `json:"created_at"`
	ApprovedAt         *time.Time      `json:"approved_at,omitempty"`
	ApprovedBy         string          `json:"approved_by,omitempty"`
	DeclinedAt         *time.Time      `json:"declined_at,omitempty"`
	DeclinedBy         string          `json:"declined_by,omitempty"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
}

// ProgressPercent computes min(saved/target*100, 100); a non-positive
// target yields 0 so there is never a division fault.
func ProgressPercent(saved, target float64) float64 {
	if target <= 0 {
		return 0
	}
	p := saved / target * 100
	if p > 100 {
		return 100
	}
	return p
}

type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusApproved SubmissionStatus = "approved"
	SubmissionStatusDeclined SubmissionStatus = "declined"
)

// ChoreSnapshot freezes a chore's identity and reward at submission time.
// Later edits to the chore never change what a pending decision resolves.
type ChoreSnapshot struct {
	ID     uuid.UUID `json:"id"`
	Title  string    `json:"title"`
	Reward float64   `json:"reward"`
}

// PendingSubmission is the durable record of a child's progress claim
// awaiting a parent decision. Resolution is a conditional status
// transition; a submission is never resolvable twice.
type PendingSubmission struct {
	ID           uuid.UUID        `json:"id"`
	GoalID       uuid.UUID        `json:"goal_id"`
	KidUsername  string           `json:"kid_username"`
	ParentEmail  string           `json:"parent_email"`
	EarnedAmount float64          `json:"earned_amount"`
	Chores       []ChoreSnapshot  `json:"chores"`
	Status       SubmissionStatus `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
	ResolvedAt   *time.Time       `json:"resolved_at,omitempty"`
	ResolvedBy   string           `json:"resolved_by,omitempty"`
}

// ChoreIDs returns the snapshotted ids in submission order.
func (s *PendingSubmission) ChoreIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s.Chores))
	for _, c := range s.Chores {
		ids = append(ids, c.ID)
	}
	return ids
}

type NotificationType string

const (
	NotificationGoalApprovalRequest NotificationType = "goal_approval_request"
	NotificationProgressSubmission  NotificationType = "progress_submission"
	NotificationProgressApproved    NotificationType = "progress_approved"
	NotificationProgressDeclined    NotificationType = "progress_declined"
	NotificationGoalCompleted       NotificationType = "goal_completed"
)

// Notification is a projection of a workflow transition addressed to one
// recipient. It never feeds back into goal or chore state.
type Notification struct {
	ID             uuid.UUID        `json:"id"`
	RecipientEmail string           `json:"recipient_email"`
	Type           NotificationType `json:"type"`
	Title          string           `json:"title"`
	Message        string           `json:"message"`
	Status         string           `json:"status"`
	Read           bool             `json:"read"`
	GoalID         *uuid.UUID       `json:"goal_id,omitempty"`
	SubmissionID   *uuid.UUID       `json:"submission_id,omitempty"`
	Payload        map[string]any   `json:"payload,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Image     string    `json:"image,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ChatSession struct {
	ID        uuid.UUID     `json:"id"`
	UserEmail string        `json:"user_email"`
	Title     string        `json:"title"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aidiy/backend/pkg/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type UsersRepositoryI interface {
	// Creates a verified user row from a pending registration
	Create(ctx context.Context, user *entity.User) error
	// Looks up a parent account. Used for login and the auth middleware
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	// Updates the profile fields a parent is allowed to edit
	UpdateProfile(ctx context.Context, email string, upd *ProfileUpdate) error
	UpdatePassword(ctx context.Context, email, passwordHash string) error
	MarkAssessmentComplete(ctx context.Context, email string) error
	// Pending registrations awaiting OTP verification
	UpsertPending(ctx context.Context, pending *entity.PendingUser) error
	FindPendingByEmail(ctx context.Context, email string) (*entity.PendingUser, error)
	DeletePending(ctx context.Context, email string) error
}

// ProfileUpdate carries the editable profile fields; nil means unchanged.
type ProfileUpdate struct {
	FirstName       *string
	LastName        *string
	PhoneNumber     *string
	BirthDate       *string
	ParentRole      *string
	ChoreCategories []string
}

type OTPRepositoryI interface {
	// Creates or replaces the single OTP per email
	Upsert(ctx context.Context, otp *entity.OTP) error
	FindByEmail(ctx context.Context, email string) (*entity.OTP, error)
	IncrementAttempts(ctx context.Context, email string) error
	// Marks a reset OTP consumed-for-validation and clears the code
	MarkValidated(ctx context.Context, email string) error
	Delete(ctx context.Context, email string) error
}

type ChildrenRepositoryI interface {
	Create(ctx context.Context, child *entity.Child) (uuid.UUID, error)
	FindByUsername(ctx context.Context, username string) (*entity.Child, error)
	// Kid login lookup: username and code must both match
	FindByLogin(ctx context.Context, username, loginCode string) (*entity.Child, error)
	ListByParent(ctx context.Context, parentEmail string) ([]*entity.Child, error)
	// Updates a child scoped to the owning parent
	Update(ctx context.Context, parentEmail, username string, upd *ChildUpdate) error
}

// ChildUpdate carries editable child fields; nil means unchanged.
type ChildUpdate struct {
	FirstName *string
	LastName  *string
	NickName  *string
	Avatar    *string
	BirthDate *string
	LoginCode *string
	Username  *string
}

// ChoreFilter narrows chore listings. Archived chores are excluded unless
// Status explicitly asks for them.
type ChoreFilter struct {
	ParentEmail string
	KidUsername string
	Status      entity.ChoreStatus
	GoalID      *uuid.UUID
}

type ChoresRepositoryI interface {
	Create(ctx context.Context, chore *entity.Chore) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Chore, error)
	List(ctx context.Context, filter ChoreFilter) ([]*entity.Chore, error)
	// Lists a goal's workable chores (excludes archived and pending_approval)
	ListWorkableByGoal(ctx context.Context, goalID uuid.UUID) ([]*entity.Chore, error)
	ListByKid(ctx context.Context, kidUsername string) ([]*entity.Chore, error)
	// Full-row update scoped to the owning parent
	Update(ctx context.Context, chore *entity.Chore) error
	Delete(ctx context.Context, id uuid.UUID, parentEmail string) error
	// Stamps a chore onto a goal and sets status Assigned
	AssignToGoal(ctx context.Context, choreID, goalID uuid.UUID) error
	// Child submitted the chore; status becomes pending_approval
	MarkPendingApproval(ctx context.Context, choreID uuid.UUID, submittedAt time.Time) error
	// Conditional transitions: both match on current status pending_approval
	// and report whether this call actually transitioned the chore.
	ArchiveIfPending(ctx context.Context, choreID uuid.UUID, approvedBy string) (bool, error)
	ReassignIfPending(ctx context.Context, choreID uuid.UUID, declinedBy string) (bool, error)
	// Count of chores the kid can still work on
	CountAssigned(ctx context.Context, kidUsername string) (int, error)
}

type GoalsRepositoryI interface {
	Create(ctx context.Context, goal *entity.Goal) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Goal, error)
	ListByKid(ctx context.Context, kidUsername string) ([]*entity.Goal, error)
	ListByParent(ctx context.Context, parentEmail string) ([]*entity.Goal, error)
	Approve(ctx context.Context, id uuid.UUID, approvedBy string, at time.Time) error
	Decline(ctx context.Context, id uuid.UUID, declinedBy string, at time.Time) error
	// Replaces the goal's assigned chore set and raises the launched flag
	SetAssignedChores(ctx context.Context, id uuid.UUID, choreIDs []uuid.UUID) error
	// Credits an approved submission: new totals, one appended history
	// entry, and the completed status iff completedAt is set. One statement
	// so a crash cannot split the credit from its audit entry.
	Credit(ctx context.Context, id uuid.UUID, credit *GoalCredit) error
	// Drops a deleted chore's id from any goal's assigned set
	RemoveAssignedChore(ctx context.Context, choreID uuid.UUID) error
}

type GoalCredit struct {
	NewSaved    float64
	NewProgress float64
	Entry       entity.ProgressEntry
	CompletedAt *time.Time
}

type SubmissionsRepositoryI interface {
	Create(ctx context.Context, sub *entity.PendingSubmission) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.PendingSubmission, error)
	// Claim resolves a pending submission to approved or declined. The
	// update matches on status = pending: the second of two racing calls
	// matches zero rows and gets claimed = false.
	Claim(ctx context.Context, id uuid.UUID, status entity.SubmissionStatus, resolvedBy string, at time.Time) (bool, error)
}

type NotificationsRepositoryI interface {
	Create(ctx context.Context, n *entity.Notification) (uuid.UUID, error)
	// Most recent first
	ListByRecipient(ctx context.Context, recipientEmail string, limit int) ([]*entity.Notification, error)
	CountUnread(ctx context.Context, recipientEmail string) (int, error)
	MarkRead(ctx context.Context, id uuid.UUID, recipientEmail string) error
	MarkAllRead(ctx context.Context, recipientEmail string) (int64, error)
	// Reconciles outstanding approval-request notifications for a goal
	UpdateStatusByGoal(ctx context.Context, goalID uuid.UUID, status string) error
	// Removes the parent-facing projection of a resolved submission
	DeleteBySubmission(ctx context.Context, submissionID uuid.UUID) error
}

type ChatSessionsRepositoryI interface {
	Create(ctx context.Context, session *entity.ChatSession) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID, userEmail string) (*entity.ChatSession, error)
	// Newest-updated first, messages omitted
	ListByUser(ctx context.Context, userEmail string, limit int) ([]*entity.ChatSession, error)
	AppendMessages(ctx context.Context, id uuid.UUID, title string, msgs []entity.ChatMessage) error
	Rename(ctx context.Context, id uuid.UUID, userEmail, title string) error
	Delete(ctx context.Context, id uuid.UUID, userEmail string) error
}

type DBConfig interface {
	ConnString() string
}

type PgConnection interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PGCfg struct {
	Address  string
	Username string
	Password string
	DB       string
}

func (pgcfg *PGCfg) ConnString() string {
	return fmt.Sprintf("postgresql://%s:%s@%s/%s", pgcfg.Username, pgcfg.Password, pgcfg.Address, pgcfg.DB)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	errorvalues "github.com/aidiy/backend/internal/error_values"
	"github.com/aidiy/backend/internal/repository"
	"github.com/aidiy/backend/pkg/entity"
	"github.com/google/uuid"
)

// WorkflowService drives the goal and chore lifecycles: proposal,
// approval, mission launch, progress submission and its resolution.
// State transitions are conditional updates in the repositories, so a
// decision that lost a race surfaces as a not-found and is never
// applied twice.
type WorkflowService struct {
	goalsRepo         repository.GoalsRepositoryI
	choresRepo        repository.ChoresRepositoryI
	submissionsRepo   repository.SubmissionsRepositoryI
	notificationsRepo repository.NotificationsRepositoryI
	childrenRepo      repository.ChildrenRepositoryI
}

func NewWorkflowService(
	goalsRepo repository.GoalsRepositoryI,
	choresRepo repository.ChoresRepositoryI,
	submissionsRepo repository.SubmissionsRepositoryI,
	notificationsRepo repository.NotificationsRepositoryI,
	childrenRepo repository.ChildrenRepositoryI,
) *WorkflowService {
	return &WorkflowService{
		goalsRepo:         goalsRepo,
		choresRepo:        choresRepo,
		submissionsRepo:   submissionsRepo,
		notificationsRepo: notificationsRepo,
		childrenRepo:      childrenRepo,
	}
}

// ProposeGoal creates a goal in pending_approval on behalf of a kid and
// notifies the parent. Parents cannot propose goals for their kids.
func (ws *WorkflowService) ProposeGoal(ctx context.Context, principal entity.Principal, req *ProposeGoalRequest) (*entity.Goal, error) {
	if !principal.IsChild() {
		return nil, errorvalues.ErrOnlyKids
	}
	if err := validateStruct(*req); err != nil {
		return nil, err
	}
	child, err := ws.childrenRepo.FindByUsername(ctx, principal.Username)
	if err != nil {
		if errors.Is(err, errorvalues.ErrChildNotFound) {
			return nil, errorvalues.ErrChildNotFound
		}
		return nil, errors.New("repository searching error: " + err.Error())
	}
	goal := &entity.Goal{
		KidUsername:   child.Username,
		KidName:       child.DisplayName(),
		KidAvatar:     child.Avatar,
		ParentEmail:   child.ParentEmail,
		Title:         req.Title,
		Category:      req.Category,
		Description:   req.Description,
		TargetAmount:  req.Amount,
		DurationWeeks: req.Duration,
		Status:        entity.GoalStatusPendingApproval,
	}
	id, err := ws.goalsRepo.Create(ctx, goal)
	if err != nil {
		return nil, errors.New("repository creating error: " + err.Error())
	}
	goal.ID = id
	_, err = ws.notificationsRepo.Create(ctx, &entity.Notification{
		RecipientEmail: child.ParentEmail,
		Type:           entity.NotificationGoalApprovalRequest,
		Title:          fmt.Sprintf("%s wants to save $%.2f", goal.KidName, goal.TargetAmount),
		Message:        "for " + goal.Title,
		Status:         "pending",
		GoalID:         &goal.ID,
		Payload: map[string]any{
			"kid_username": child.Username,
			"kid_avatar":   child.Avatar,
		},
	})
	if err != nil {
		return nil, errors.New("repository creating error: " + err.Error())
	}
	return goal, nil
}

// ApproveGoal moves a pending goal to approved and reconciles the
// parent's approval-request notifications.
func (ws *WorkflowService) ApproveGoal(ctx context.Context, principal entity.Principal, goalID uuid.UUID) error {
	return ws.resolveGoal(ctx, principal, goalID, entity.GoalStatusApproved)
}

// DeclineGoal moves a pending goal to declined.
func (ws *WorkflowService) DeclineGoal(ctx context.Context, principal entity.Principal, goalID uuid.UUID) error {
	return ws.resolveGoal(ctx, principal, goalID, entity.GoalStatusDeclined)
}

func (ws *WorkflowService) resolveGoal(ctx context.Context, principal entity.Principal, goalID uuid.UUID, to entity.GoalStatus) error {
	goal, err := ws.goalsRepo.GetByID(ctx, goalID)
	if err != nil {
		if errors.Is(err, errorvalues.ErrGoalNotFound) {
			return errorvalues.ErrGoalNotFound
		}
		return errors.New("repository searching error: " + err.Error())
	}
	if goal.ParentEmail != principal.Email {
		return errorvalues.ErrNotOwner
	}
	now := time.Now().UTC()
	if to == entity.GoalStatusApproved {
		err = ws.goalsRepo.Approve(ctx, goalID, principal.Email, now)
	} else {
		err = ws.goalsRepo.Decline(ctx, goalID, principal.Email, now)
	}
	if err != nil {
		if errors.Is(err, errorvalues.ErrGoalNotFound) {
			return errorvalues.ErrGoalNotFound
		}
		return errors.New("repository updating error: " + err.Error())
	}
	if err = ws.notificationsRepo.UpdateStatusByGoal(ctx, goalID, string(to)); err != nil {
		return errors.New("repository updating error: " + err.Error())
	}
	return nil
}

// AssignChoresToGoal launches the mission: the chore set is stamped onto
// the goal and each chore becomes Assigned work for the kid. Only an
// approved goal can take chores.
func (ws *WorkflowService) AssignChoresToGoal(ctx context.Context, goalID uuid.UUID, choreIDs []uuid.UUID) error {
	goal, err := ws.goalsRepo.GetByID(ctx, goalID)
	if err != nil {
		if errors.Is(err, errorvalues.ErrGoalNotFound) {
			return errorvalues.ErrGoalNotFound
		}
		return errors.New("repository searching error: " + err.Error())
	}
	if goal.Status != entity.GoalStatusApproved {
		return errorvalues.ErrGoalNotApproved
	}
	for _, choreID := range choreIDs {
		if err = ws.choresRepo.AssignToGoal(ctx, choreID, goalID); err != nil {
			if errors.Is(err, errorvalues.ErrChoreNotFound) {
				return errorvalues.ErrChoreNotFound
			}
			return errors.New("repository updating error: " + err.Error())
		}
	}
	if err = ws.goalsRepo.SetAssignedChores(ctx, goalID, choreIDs); err != nil {
		return errors.New("repository updating error: " + err.Error())
	}
	return nil
}

// SubmitProgress files the kid's claim of completed chores as a pending
// submission. Each eligible chore is snapshotted (id, title, reward) so
// later edits cannot change what the parent is deciding on, then moved
// to pending_approval.
func (ws *WorkflowService) SubmitProgress(ctx context.Context, principal entity.Principal, req *SubmitProgressRequest) (*entity.PendingSubmission, error) {
	if !principal.IsChild() {
		return nil, errorvalues.ErrOnlyKids
	}
	if req.GoalID == uuid.Nil || len(req.ChoreIDs) == 0 {
		return nil, errorvalues.ErrMissingFields
	}
	goal, err := ws.goalsRepo.GetByID(ctx, req.GoalID)
	if err != nil {
		if errors.Is(err, errorvalues.ErrGoalNotFound) {
			return nil, errorvalues.ErrGoalNotFound
		}
		return nil, errors.New("repository searching error: " + err.Error())
	}
	if goal.KidUsername != principal.Username {
		return nil, errorvalues.ErrNotOwner
	}
	if goal.Status != entity.GoalStatusApproved {
		return nil, errorvalues.ErrGoalNotApproved
	}
	child, err := ws.childrenRepo.FindByUsername(ctx, principal.Username)
	if err != nil {
		return nil, errors.New("repository searching error: " + err.Error())
	}
	snapshots := make([]entity.ChoreSnapshot, 0, len(req.ChoreIDs))
	var totalEarned float64
	for _, choreID := range req.ChoreIDs {
		chore, err := ws.choresRepo.GetByID(ctx, choreID)
		if err != nil {
			if errors.Is(err, errorvalues.ErrChoreNotFound) {
				continue
			}
			return nil, errors.New("repository searching error: " + err.Error())
		}
		if chore.AssignedGoalID == nil || *chore.AssignedGoalID != goal.ID || chore.Status != entity.ChoreStatusAssigned {
			continue
		}
		snapshots = append(snapshots, entity.ChoreSnapshot{
			ID:     chore.ID,
			Title:  chore.Title,
			Reward: chore.Reward,
		})
		totalEarned += chore.Reward
	}
	if len(snapshots) == 0 {
		return nil, errorvalues.ErrChoreNotFound
	}
	now := time.Now().UTC()
	sub := &entity.PendingSubmission{
		GoalID:       goal.ID,
		KidUsername:  goal.KidUsername,
		ParentEmail:  goal.ParentEmail,
		EarnedAmount: totalEarned,
		Chores:       snapshots,
		Status:       entity.SubmissionStatusPending,
	}
	subID, err := ws.submissionsRepo.Create(ctx, sub)
	if err != nil {
		return nil, errors.New("repository creating error: " + err.Error())
	}
	sub.ID = subID
	for _, snapshot := range snapshots {
		if err = ws.choresRepo.MarkPendingApproval(ctx, snapshot.ID, now); err != nil {
			return nil, errors.New("repository updating error: " + err.Error())
		}
	}
	_, err = ws.notificationsRepo.Create(ctx, &entity.Notification{
		RecipientEmail: goal.ParentEmail,
		Type:           entity.NotificationProgressSubmission,
		Title:          child.DisplayName() + " completed chores!",
		Message:        fmt.Sprintf("Your child completed %d chore(s) and earned $%.2f", len(snapshots), totalEarned),
		Status:         "pending",
		GoalID:         &goal.ID,
		SubmissionID:   &sub.ID,
		Payload: map[string]any{
			"kid_name":         child.DisplayName(),
			"kid_avatar":       child.Avatar,
			"earned_amount":    totalEarned,
			"completed_chores": snapshots,
		},
	})
	if err != nil {
		return nil, errors.New("repository creating error: " + err.Error())
	}
	return sub, nil
}

// ApproveSubmission resolves a pending submission in the kid's favor.
// Exactly one caller wins the claim; everything after runs once. The
// write order is fixed: goal credit first, then chore archival, then
// notifications, so a crash can forget chores or messages but never the
// money.
func (ws *WorkflowService) ApproveSubmission(ctx context.Context, principal entity.Principal, submissionID uuid.UUID) (*ApproveResult, error) {
	sub, goal, err := ws.loadSubmission(ctx, principal, submissionID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	claimed, err := ws.submissionsRepo.Claim(ctx, submissionID, entity.SubmissionStatusApproved, principal.Email, now)
	if err != nil {
		return nil, errors.New("repository updating error: " + err.Error())
	}
	if !claimed {
		return nil, errorvalues.ErrSubmissionNotFound
	}

	newSaved := goal.SavedAmount + sub.EarnedAmount
	newProgress := entity.ProgressPercent(newSaved, goal.TargetAmount)
	goalCompleted := goal.SavedAmount < goal.TargetAmount && newSaved >= goal.TargetAmount
	credit := &repository.GoalCredit{
		NewSaved:    newSaved,
		NewProgress: newProgress,
		Entry: entity.ProgressEntry{
			Date:       now,
			Amount:     sub.EarnedAmount,
			ApprovedBy: principal.Email,
			ChoreIDs:   sub.ChoreIDs(),
		},
	}
	if goalCompleted {
		credit.CompletedAt = &now
	}
	if err = ws.goalsRepo.Credit(ctx, goal.ID, credit); err != nil {
		return nil, errors.New("repository updating error: " + err.Error())
	}

	archivedCount := 0
	for _, snapshot := range sub.Chores {
		archived, err := ws.choresRepo.ArchiveIfPending(ctx, snapshot.ID, principal.Email)
		if err != nil {
			return nil, errors.New("repository updating error: " + err.Error())
		}
		if archived {
			archivedCount++
		}
	}
	remaining, err := ws.choresRepo.CountAssigned(ctx, goal.KidUsername)
	if err != nil {
		return nil, errors.New("repository counting error: " + err.Error())
	}

	if err = ws.notificationsRepo.DeleteBySubmission(ctx, submissionID); err != nil {
		return nil, errors.New("repository deleting error: " + err.Error())
	}
	_, err = ws.notificationsRepo.Create(ctx, &entity.Notification{
		RecipientEmail: entity.KidEmail(goal.KidUsername),
		Type:           entity.NotificationProgressApproved,
		Title:          "Progress Approved! 🎉",
		Message:        fmt.Sprintf("Your parents approved your progress! $%.2f has been added to your savings.", sub.EarnedAmount),
		Status:         "success",
		GoalID:         &goal.ID,
		Payload: map[string]any{
			"earned_amount":         sub.EarnedAmount,
			"archived_chores_count": archivedCount,
			"can_select_new_chores": remaining > 0,
		},
	})
	if err != nil {
		return nil, errors.New("repository creating error: " + err.Error())
	}
	if goalCompleted {
		if err = ws.notifyGoalCompleted(ctx, goal, principal.Email); err != nil {
			return nil, err
		}
	}
	return &ApproveResult{
		NewSaved:      newSaved,
		NewProgress:   newProgress,
		GoalCompleted: goalCompleted,
		ArchivedCount: archivedCount,
	}, nil
}

func (ws *WorkflowService) notifyGoalCompleted(ctx context.Context, goal *entity.Goal, parentEmail string) error {
	_, err := ws.notificationsRepo.Create(ctx, &entity.Notification{
		RecipientEmail: parentEmail,
		Type:           entity.NotificationGoalCompleted,
		Title:          goal.KidName + " completed their goal! 🎉",
		Message:        fmt.Sprintf("Your child has successfully saved $%.2f for %s", goal.TargetAmount, goal.Title),
		Status:         "success",
		GoalID:         &goal.ID,
		Payload: map[string]any{
			"kid_name":    goal.KidName,
			"kid_avatar":  goal.KidAvatar,
			"goal_title":  goal.Title,
			"goal_amount": goal.TargetAmount,
		},
	})
	if err != nil {
		return errors.New("repository creating error: " + err.Error())
	}
	_, err = ws.notificationsRepo.Create(ctx, &entity.Notification{
		RecipientEmail: entity.KidEmail(goal.KidUsername),
		Type:           entity.NotificationGoalCompleted,
		Title:          "🎊 GOAL ACHIEVED! 🎊",
		Message:        fmt.Sprintf("Congratulations! You've saved $%.2f for %s!", goal.TargetAmount, goal.Title),
		Status:         "success",
		GoalID:         &goal.ID,
		Payload: map[string]any{
			"goal_title":  goal.Title,
			"goal_amount": goal.TargetAmount,
		},
	})
	if err != nil {
		return errors.New("repository creating error: " + err.Error())
	}
	return nil
}

// DeclineSubmission resolves a pending submission against the kid. The
// snapshotted chores go back to Assigned so they can be redone; chores
// already resolved through another path stay untouched.
func (ws *WorkflowService) DeclineSubmission(ctx context.Context, principal entity.Principal, submissionID uuid.UUID) (*DeclineResult, error) {
	sub, goal, err := ws.loadSubmission(ctx, principal, submissionID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	claimed, err := ws.submissionsRepo.Claim(ctx, submissionID, entity.SubmissionStatusDeclined, principal.Email, now)
	if err != nil {
		return nil, errors.New("repository updating error: " + err.Error())
	}
	if !claimed {
		return nil, errorvalues.ErrSubmissionNotFound
	}

	reassignedCount := 0
	reassigned := make([]entity.ChoreSnapshot, 0, len(sub.Chores))
	for _, snapshot := range sub.Chores {
		ok, err := ws.choresRepo.ReassignIfPending(ctx, snapshot.ID, principal.Email)
		if err != nil {
			return nil, errors.New("repository updating error: " + err.Error())
		}
		if ok {
			reassignedCount++
			reassigned = append(reassigned, snapshot)
		}
	}

	if err = ws.notificationsRepo.DeleteBySubmission(ctx, submissionID); err != nil {
		return nil, errors.New("repository deleting error: " + err.Error())
	}
	_, err = ws.notificationsRepo.Create(ctx, &entity.Notification{
		RecipientEmail: entity.KidEmail(goal.KidUsername),
		Type:           entity.NotificationProgressDeclined,
		Title:          "Try Again! 💪",
		Message:        fmt.Sprintf("Your parents want you to redo %d chore(s). They're ready for another try!", reassignedCount),
		Status:         "declined",
		GoalID:         &goal.ID,
		Payload: map[string]any{
			"goal_title":        goal.Title,
			"reassigned_chores": reassigned,
		},
	})
	if err != nil {
		return nil, errors.New("repository creating error: " + err.Error())
	}
	return &DeclineResult{
		ReassignedCount: reassignedCount,
		KidUsername:     goal.KidUsername,
		GoalID:          goal.ID,
	}, nil
}

func (ws *WorkflowService) loadSubmission(ctx context.Context, principal entity.Principal, submissionID uuid.UUID) (*entity.PendingSubmission, *entity.Goal, error) {
	sub, err := ws.submissionsRepo.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, errorvalues.ErrSubmissionNotFound) {
			return nil, nil, errorvalues.ErrSubmissionNotFound
		}
		return nil, nil, errors.New("repository searching error: " + err.Error())
	}
	if sub.ParentEmail != principal.Email {
		return nil, nil, errorvalues.ErrNotOwner
	}
	goal, err := ws.goalsRepo.GetByID(ctx, sub.GoalID)
	if err != nil {
		if errors.Is(err, errorvalues.ErrGoalNotFound) {
			return nil, nil, errorvalues.ErrGoalNotFound
		}
		return nil, nil, errors.New("repository searching error: " + err.Error())
	}
	return sub, goal, nil
}

func (ws *WorkflowService) KidGoals(ctx context.Context, kidUsername string) ([]*entity.Goal, error) {
	goals, err := ws.goalsRepo.ListByKid(ctx, kidUsername)
	if err != nil {
		return nil, errors.New("repository listing error: " + err.Error())
	}
	return goals, nil
}

func (ws *WorkflowService) ParentGoals(ctx context.Context, parentEmail string) ([]*entity.Goal, error) {
	goals, err := ws.goalsRepo.ListByParent(ctx, parentEmail)
	if err != nil {
		return nil, errors.New("repository listing error: " + err.Error())
	}
	return goals, nil
}

// ChildrenProgress assembles per-kid goal totals for the parent
// dashboard.
func (ws *WorkflowService) ChildrenProgress(ctx context.Context, parentEmail string) ([]*ChildProgress, error) {
	children, err := ws.childrenRepo.ListByParent(ctx, parentEmail)
	if err != nil {
		return nil, errors.New("repository listing error: " + err.Error())
	}
	result := make([]*ChildProgress, 0, len(children))
	for _, child := range children {
		goals, err := ws.goalsRepo.ListByKid(ctx, child.Username)
		if err != nil {
			return nil, errors.New("repository listing error: " + err.Error())
		}
		view := &ChildProgress{
			Child: child,
			Goals: goals,
		}
		for _, goal := range goals {
			view.TotalSaved += goal.SavedAmount
			switch goal.Status {
			case entity.GoalStatusCompleted:
				view.CompletedGoals++
			case entity.GoalStatusApproved:
				view.ActiveGoals++
			}
		}
		result = append(result, view)
	}
	return result, nil
}

func (ws *WorkflowService) KidFinancialSummary(ctx context.Context, kidUsername string) (*FinancialSummary, error) {
	goals, err := ws.goalsRepo.ListByKid(ctx, kidUsername)
	if err != nil {
		return nil, errors.New("repository listing error: " + err.Error())
	}
	summary := &FinancialSummary{TotalGoals: len(goals)}
	for _, goal := range goals {
		summary.TotalSavings += goal.SavedAmount
		switch goal.Status {
		case entity.GoalStatusCompleted:
			summary.CompletedGoals++
		case entity.GoalStatusApproved:
			summary.ActiveGoals++
		}
	}
	return summary, nil
}

package service

import (
	"context"
	"errors"

	errorvalues "github.com/aidiy/backend/internal/error_values"
	"github.com/aidiy/backend/internal/repository"
	"github.com/aidiy/backend/pkg/entity"
	"github.com/google/uuid"
)

type ChoreService struct {
	repo         repository.ChoresRepositoryI
	goalsRepo    repository.GoalsRepositoryI
	childrenRepo repository.ChildrenRepositoryI
}

func NewChoreService(choresRepo repository.ChoresRepositoryI, goalsRepo repository.GoalsRepositoryI, childrenRepo repository.ChildrenRepositoryI) *ChoreService {
	return &ChoreService{
		repo:         choresRepo,
		goalsRepo:    goalsRepo,
		childrenRepo: childrenRepo,
	}
}

func (cs *ChoreService) Create(ctx context.Context, parentEmail string, req *CreateChoreRequest) (*entity.Chore, error) {
	if err := validateStruct(*req); err != nil {
		return nil, err
	}
	status := entity.ChoreStatusPending
	if req.AssignedTo != "" {
		status = entity.ChoreStatusAssigned
	}
	chore := &entity.Chore{
		ParentEmail: parentEmail,
		KidUsername: req.AssignedTo,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Difficulty:  req.Difficulty,
		Reward:      req.Reward,
		Status:      status,
		DueDate:     req.DueDate,
	}
	id, err := cs.repo.Create(ctx, chore)
	if err != nil {
		return nil, errors.New("repository creating error: " + err.Error())
	}
	chore.ID = id
	return chore, nil
}

func (cs *ChoreService) Update(ctx context.Context, parentEmail string, choreID uuid.UUID, req *UpdateChoreRequest) (*entity.Chore, error) {
	chore, err := cs.repo.GetByID(ctx, choreID)
	if err != nil {
		if errors.Is(err, errorvalues.ErrChoreNotFound) {
			return nil, errorvalues.ErrChoreNotFound
		}
		return nil, errors.New("repository searching error: " + err.Error())
	}
	if chore.ParentEmail != parentEmail {
		return nil, errorvalues.ErrNotOwner
	}
	if req.Title != nil {
		chore.Title = *req.Title
	}
	if req.Description != nil {
		chore.Description = *req.Description
	}
	if req.Category != nil {
		chore.Category = *req.Category
	}
	if req.Difficulty != nil {
		chore.Difficulty = *req.Difficulty
	}
	if req.Reward != nil {
		chore.Reward = *req.Reward
	}
	if req.DueDate != nil {
		chore.DueDate = *req.DueDate
	}
	if req.AssignedTo != nil {
		chore.KidUsername = *req.AssignedTo
		if chore.KidUsername != "" && chore.Status == entity.ChoreStatusPending {
			chore.Status = entity.ChoreStatusAssigned
		}
	}
	if req.Status != nil {
		status, ok := entity.ChoreStatusFromWire(*req.Status)
		if !ok {
			return nil, errorvalues.ErrMissingFields
		}
		chore.Status = status
	}
	if err = cs.repo.Update(ctx, chore); err != nil {
		if errors.Is(err, errorvalues.ErrChoreNotFound) {
			return nil, errorvalues.ErrChoreNotFound
		}
		return nil, errors.New("repository updating error: " + err.Error())
	}
	return chore, nil
}

// Delete removes the chore and detaches its id from any goal still
// referencing it, so goals never point at missing chores.
func (cs *ChoreService) Delete(ctx context.Context, parentEmail string, choreID uuid.UUID) error {
	err := cs.repo.Delete(ctx, choreID, parentEmail)
	if err != nil {
		if errors.Is(err, errorvalues.ErrChoreNotFound) {
			return errorvalues.ErrChoreNotFound
		}
		return errors.New("repository deleting error: " + err.Error())
	}
	if err = cs.goalsRepo.RemoveAssignedChore(ctx, choreID); err != nil {
		return errors.New("repository updating error: " + err.Error())
	}
	return nil
}

func (cs *ChoreService) ListForParent(ctx context.Context, parentEmail string, filter ChoreListFilter) ([]*entity.Chore, error) {
	repoFilter := repository.ChoreFilter{
		ParentEmail: parentEmail,
		KidUsername: filter.KidUsername,
		GoalID:      filter.GoalID,
	}
	if filter.Status != "" {
		status, ok := entity.ChoreStatusFromWire(filter.Status)
		if !ok {
			return nil, errorvalues.ErrMissingFields
		}
		repoFilter.Status = status
	}
	chores, err := cs.repo.List(ctx, repoFilter)
	if err != nil {
		return nil, errors.New("repository listing error: " + err.Error())
	}
	return chores, nil
}

func (cs *ChoreService) ListForKid(ctx context.Context, kidUsername string, goalID *uuid.UUID) ([]*entity.Chore, error) {
	chores, err := cs.repo.List(ctx, repository.ChoreFilter{
		KidUsername: kidUsername,
		GoalID:      goalID,
	})
	if err != nil {
		return nil, errors.New("repository listing error: " + err.Error())
	}
	return chores, nil
}

func (cs *ChoreService) GoalChores(ctx context.Context, goalID uuid.UUID) ([]*entity.Chore, error) {
	chores, err := cs.repo.ListWorkableByGoal(ctx, goalID)
	if err != nil {
		return nil, errors.New("repository listing error: " + err.Error())
	}
	return chores, nil
}

// ChildrenChores builds the parent dashboard: every kid with their full
// chore list and completion totals. Archived chores count as done.
func (cs *ChoreService) ChildrenChores(ctx context.Context, parentEmail string) ([]*ChildChores, error) {
	children, err := cs.childrenRepo.ListByParent(ctx, parentEmail)
	if err != nil {
		return nil, errors.New("repository listing error: " + err.Error())
	}
	result := make([]*ChildChores, 0, len(children))
	for _, child := range children {
		chores, err := cs.repo.ListByKid(ctx, child.Username)
		if err != nil {
			return nil, errors.New("repository listing error: " + err.Error())
		}
		view := &ChildChores{
			Child:          child,
			AssignedChores: make([]*entity.Chore, 0, len(chores)),
		}
		for _, chore := range chores {
			switch chore.Status {
			case entity.ChoreStatusArchived:
				view.ChoresDone++
				view.TotalEarned += chore.Reward
			case entity.ChoreStatusAssigned, entity.ChoreStatusPendingApproval:
				view.ChoresPending++
				view.AssignedChores = append(view.AssignedChores, chore)
			default:
				view.AssignedChores = append(view.AssignedChores, chore)
			}
		}
		result = append(result, view)
	}
	return result, nil
}

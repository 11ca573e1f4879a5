package service

import (
	"context"
	"errors"

	errorvalues "github.com/aidiy/backend/internal/error_values"
	"github.com/aidiy/backend/internal/repository"
	"github.com/aidiy/backend/pkg/entity"
)

type ChildrenService struct {
	repo repository.ChildrenRepositoryI
}

func NewChildrenService(childrenRepo repository.ChildrenRepositoryI) *ChildrenService {
	return &ChildrenService{
		repo: childrenRepo,
	}
}

func (cs *ChildrenService) List(ctx context.Context, parentEmail string) ([]*entity.Child, error) {
	children, err := cs.repo.ListByParent(ctx, parentEmail)
	if err != nil {
		return nil, errors.New("repository listing error: " + err.Error())
	}
	return children, nil
}

// Add registers a child under the parent. Usernames are global: the same
// username cannot belong to two families.
func (cs *ChildrenService) Add(ctx context.Context, parentEmail string, req *AddChildRequest) (*entity.Child, error) {
	if err := validateStruct(*req); err != nil {
		return nil, err
	}
	child := &entity.Child{
		ParentEmail: parentEmail,
		Username:    req.Username,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		NickName:    req.NickName,
		Avatar:      req.Avatar,
		BirthDate:   req.BirthDate,
		LoginCode:   req.LoginCode,
	}
	id, err := cs.repo.Create(ctx, child)
	if err != nil {
		if errors.Is(err, errorvalues.ErrUsernameTaken) {
			return nil, errorvalues.ErrUsernameTaken
		}
		return nil, errors.New("repository creating error: " + err.Error())
	}
	child.ID = id
	return child, nil
}

func (cs *ChildrenService) Update(ctx context.Context, parentEmail, username string, req *UpdateChildRequest) (*entity.Child, error) {
	err := cs.repo.Update(ctx, parentEmail, username, &repository.ChildUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		NickName:  req.NickName,
		Avatar:    req.Avatar,
		BirthDate: req.BirthDate,
		LoginCode: req.LoginCode,
		Username:  req.Username,
	})
	if err != nil {
		if errors.Is(err, errorvalues.ErrChildNotFound) {
			return nil, errorvalues.ErrChildNotFound
		}
		if errors.Is(err, errorvalues.ErrUsernameTaken) {
			return nil, errorvalues.ErrUsernameTaken
		}
		return nil, errors.New("repository updating error: " + err.Error())
	}
	current := username
	if req.Username != nil {
		current = *req.Username
	}
	child, err := cs.repo.FindByUsername(ctx, current)
	if err != nil {
		return nil, errors.New("repository searching error: " + err.Error())
	}
	return child, nil
}

// Login authenticates a kid by username and 4-digit code. A miss on
// either is indistinguishable from a missing child.
func (cs *ChildrenService) Login(ctx context.Context, username, loginCode string) (*entity.Child, error) {
	child, err := cs.repo.FindByLogin(ctx, username, loginCode)
	if err != nil {
		if errors.Is(err, errorvalues.ErrChildNotFound) {
			return nil, errorvalues.ErrWrongCredentials
		}
		return nil, errors.New("repository searching error: " + err.Error())
	}
	return child, nil
}

func (cs *ChildrenService) GetByUsername(ctx context.Context, username string) (*entity.Child, error) {
	child, err := cs.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, errorvalues.ErrChildNotFound) {
			return nil, errorvalues.ErrChildNotFound
		}
		return nil, errors.New("repository searching error: " + err.Error())
	}
	return child, nil
}
